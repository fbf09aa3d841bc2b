/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding flags.
const EnvPrefix = "KBENCH"

const (
	OutputText = "text"
	OutputYAML = "yaml"
	OutputJSON = "json"
)

// StdoutPath as an output path writes to the report output.
const StdoutPath = "-"

// Config is passed explicitly to everything that needs run-wide settings.
type Config struct {
	Verbose    bool
	Kubeconfig string
	Context    string
	Namespace  string

	// Timeout bounds every wait for convergence. Zero waits forever.
	Timeout time.Duration

	Output         string
	Timings        bool
	CSVPath        string
	MetricsFile    string
	PushgatewayURL string

	// Simulate runs against an in-process control plane instead of a cluster.
	Simulate bool
}

// AddFlags registers the global flags on fs.
func AddFlags(fs *pflag.FlagSet) {
	fs.BoolP("verbose", "v", false, "Enable verbose logging.")
	fs.String("kubeconfig", "", "Path to kubeconfig file.")
	fs.String("context", "", "Kubeconfig context to use.")
	fs.String("namespace", "default", "Namespace to create benchmark resources in.")
	fs.Duration("timeout", 0, "Maximum time to wait for resources to converge (0 waits forever).")
	fs.StringP("output", "o", OutputText, "Report format: text, yaml or json.")
	fs.String("csv", "", "Write per-resource timings to this CSV file.")
	fs.String("metrics-file", "", "Write latency histograms in Prometheus text format to this file (\"-\" for standard out).")
	fs.String("pushgateway-url", "", "Push latency histograms to this Prometheus Pushgateway.")
	fs.Bool("simulate", false, "Run against a simulated in-process control plane.")
}

// Load reads the configuration from v, which has the flags bound and
// environment variables enabled.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Verbose:        v.GetBool("verbose"),
		Kubeconfig:     v.GetString("kubeconfig"),
		Context:        v.GetString("context"),
		Namespace:      v.GetString("namespace"),
		Timeout:        v.GetDuration("timeout"),
		Output:         v.GetString("output"),
		Timings:        v.GetBool("timings") && !v.GetBool("no-timings"),
		CSVPath:        v.GetString("csv"),
		MetricsFile:    v.GetString("metrics-file"),
		PushgatewayURL: v.GetString("pushgateway-url"),
		Simulate:       v.GetBool("simulate"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Output {
	case OutputText, OutputYAML, OutputJSON:
	default:
		return fmt.Errorf("unsupported output format %q: must be one of text, yaml, json", c.Output)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

// NewViper returns a viper instance bound to the flag sets with KBENCH_*
// environment overrides, e.g. KBENCH_KUBECONFIG or KBENCH_METRICS_FILE.
func NewViper(flagSets ...*pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()
	for _, fs := range flagSets {
		if err := v.BindPFlags(fs); err != nil {
			return nil, err
		}
	}
	return v, nil
}

var envKeyReplacer = strings.NewReplacer("-", "_")
