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

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	kbenchv1alpha1 "github.com/wesleyemery/kbench/api/v1alpha1"
	"github.com/wesleyemery/kbench/internal/config"
)

// Formatter renders a report document.
type Formatter func(*kbenchv1alpha1.BenchmarkReport) ([]byte, error)

func YAMLFormatter(report *kbenchv1alpha1.BenchmarkReport) ([]byte, error) {
	return yaml.Marshal(report)
}

func JSONFormatter(report *kbenchv1alpha1.BenchmarkReport) ([]byte, error) {
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// FormatterFor returns the formatter of a machine readable output format.
func FormatterFor(output string) (Formatter, error) {
	switch output {
	case config.OutputYAML:
		return YAMLFormatter, nil
	case config.OutputJSON:
		return JSONFormatter, nil
	default:
		return nil, errors.Errorf("no formatter for output %q", output)
	}
}

// Write renders report to out in the given output format. The text format
// appends the per-pod timings table when timings is set.
func Write(out io.Writer, report *kbenchv1alpha1.BenchmarkReport, output string, timings bool) error {
	if output == config.OutputText {
		PrintSummary(out, report)
		if timings {
			return PrintTimings(out, report)
		}
		return nil
	}

	formatter, err := FormatterFor(output)
	if err != nil {
		return err
	}
	data, err := formatter(report)
	if err != nil {
		return errors.Wrapf(err, "rendering %s report", output)
	}
	_, err = out.Write(data)
	return err
}

// PrintSummary writes one line per latency distribution and phase.
func PrintSummary(out io.Writer, report *kbenchv1alpha1.BenchmarkReport) {
	for _, s := range report.Status.Statistics {
		_, _ = fmt.Fprintf(out, "%s: min=%.3f [s], avg=%.3f [s], max=%.3f [s]\n",
			s.Name, s.MinSeconds, s.MeanSeconds, s.MaxSeconds)
	}
	for _, span := range report.Status.Spans {
		_, _ = fmt.Fprintf(out, "%s: %.3f [s]\n", span.Name, span.DurationSeconds)
	}
	for _, phase := range report.Status.Phases {
		_, _ = fmt.Fprintf(out, "Deployment %s: %.3f [s]\n", phase.Name, phase.DurationSeconds)
	}
}

// PrintTimings writes every pod's milestone latencies in creation order.
func PrintTimings(out io.Writer, report *kbenchv1alpha1.BenchmarkReport) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "POD\tSTARTUP [s]\tCLEANUP [s]\tLIFETIME [s]")
	for _, r := range report.Status.Resources {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			r.Name, seconds(r.StartupSeconds), seconds(r.CleanupSeconds), seconds(r.LifetimeSeconds))
	}
	return w.Flush()
}

// WriteCSV writes the per-pod timings of report as CSV.
func WriteCSV(out io.Writer, report *kbenchv1alpha1.BenchmarkReport) error {
	resources := report.Status.Resources
	if resources == nil {
		resources = []kbenchv1alpha1.ResourceTiming{}
	}
	return gocsv.Marshal(&resources, out)
}

func seconds(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *v)
}
