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

package benchmark

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"text/tabwriter"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/client-go/kubernetes"

	kbenchv1alpha1 "github.com/wesleyemery/kbench/api/v1alpha1"
	"github.com/wesleyemery/kbench/internal/config"
	"github.com/wesleyemery/kbench/internal/orchestrator"
	"github.com/wesleyemery/kbench/internal/report"
	"github.com/wesleyemery/kbench/internal/scenario"
	"github.com/wesleyemery/kbench/internal/simulator"
	"github.com/wesleyemery/kbench/pkg/metrics"
)

// Set at build time with -ldflags "-X".
var (
	ReleaseVersion = "dev"
	GitCommit      = "unknown"
	BuildTime      = "unknown"
)

type App struct {
	// Config holds the global settings passed on the command line.
	Config *config.Config
	// Out receives the report. Defaults to standard out.
	Out    io.Writer
	Logger logr.Logger

	// SimulatorOptions tune the in-process control plane used with
	// Config.Simulate.
	SimulatorOptions []simulator.Option
}

// New returns an App writing to standard out.
func New() *App {
	return &App{
		Config: &config.Config{},
		Out:    os.Stdout,
		Logger: logr.Discard(),
	}
}

// Version prints build information to the app output.
func (a *App) Version() error {
	w := tabwriter.NewWriter(a.Out, 1, 1, 1, ' ', 0)
	_, _ = fmt.Fprintf(w, "Version:\t%s\n", ReleaseVersion)
	_, _ = fmt.Fprintf(w, "Commit:\t%s\n", GitCommit)
	_, _ = fmt.Fprintf(w, "Go version:\t%s\n", runtime.Version())
	_, _ = fmt.Fprintf(w, "Built:\t%s\n", BuildTime)
	return w.Flush()
}

// Run validates spec, connects to the control plane, runs the scenario and
// writes every requested output.
func (a *App) Run(ctx context.Context, spec kbenchv1alpha1.BenchmarkSpec) error {
	if spec.Namespace == "" {
		spec.Namespace = a.Config.Namespace
	}
	spec.Default()
	if err := spec.Validate(); err != nil {
		return errors.WithMessage(err, "invalid benchmark")
	}

	client, closeClient, err := a.connect()
	if err != nil {
		return err
	}
	defer closeClient()

	runID := uuid.NewString()
	logger := a.Logger.WithValues("runID", runID)

	issuer := orchestrator.NewIssuer(client, spec.Namespace, runID, logger.WithName("issuer"))
	info, err := issuer.Ping()
	if err != nil {
		return err
	}
	logger.Info("Connected", "serverVersion", info.GitVersion)

	switch spec.Scenario {
	case kbenchv1alpha1.ScenarioDeploymentScaling:
		logger.Info("Will scale a deployment", "image", spec.Image,
			"initReplicas", spec.InitReplicas, "targetReplicas", spec.TargetReplicas)
	default:
		logger.Info("Will launch pods", "count", spec.NumPods, "image", spec.Image)
	}

	runner := scenario.NewRunner(a.Config, issuer, scenario.WithLogger(logger.WithName("scenario")))
	result, err := runner.Run(ctx, spec)
	if err != nil {
		return errors.WithMessagef(err, "%s benchmark failed", spec.Scenario)
	}

	rep, err := report.Build(runID, result)
	if err != nil {
		return err
	}
	if err := report.Write(a.Out, rep, a.Config.Output, a.Config.Timings); err != nil {
		return err
	}

	if a.Config.CSVPath != "" {
		if err := writeCSV(a.Config.CSVPath, rep); err != nil {
			return err
		}
		logger.V(1).Info("Wrote timings", "path", a.Config.CSVPath)
	}

	return a.exportMetrics(ctx, runID, rep, logger)
}

// connect returns a client for the configured control plane and a function
// releasing it.
func (a *App) connect() (kubernetes.Interface, func(), error) {
	if a.Config.Simulate {
		opts := append([]simulator.Option{simulator.WithLogger(a.Logger.WithName("simulator"))}, a.SimulatorOptions...)
		cp := simulator.New(opts...)
		a.Logger.Info("Connecting to simulated control plane")
		return cp, cp.Close, nil
	}

	restConfig, err := orchestrator.RESTConfig(a.Config.Kubeconfig, a.Config.Context)
	if err != nil {
		return nil, nil, err
	}
	a.Logger.Info("Connecting to Kubernetes master", "host", restConfig.Host)

	client, err := orchestrator.NewClientset(restConfig)
	if err != nil {
		return nil, nil, err
	}
	return client, func() {}, nil
}

func (a *App) exportMetrics(ctx context.Context, runID string, rep *kbenchv1alpha1.BenchmarkReport, logger logr.Logger) error {
	if a.Config.MetricsFile == "" && a.Config.PushgatewayURL == "" {
		return nil
	}

	exporter := metrics.NewExporter(runID)
	exporter.Record(rep)

	switch a.Config.MetricsFile {
	case "":
	case config.StdoutPath:
		if err := exporter.Encode(a.Out); err != nil {
			return err
		}
	default:
		if err := exporter.WriteTextfile(a.Config.MetricsFile); err != nil {
			return err
		}
		logger.V(1).Info("Wrote metrics", "path", a.Config.MetricsFile)
	}
	if a.Config.PushgatewayURL != "" {
		if err := exporter.Push(ctx, a.Config.PushgatewayURL); err != nil {
			return err
		}
		logger.V(1).Info("Pushed metrics", "url", a.Config.PushgatewayURL)
	}
	return nil
}

func writeCSV(path string, rep *kbenchv1alpha1.BenchmarkReport) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return report.WriteCSV(f, rep)
}
