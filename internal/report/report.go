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
	"time"

	"github.com/pkg/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	kbenchv1alpha1 "github.com/wesleyemery/kbench/api/v1alpha1"
	"github.com/wesleyemery/kbench/internal/scenario"
	"github.com/wesleyemery/kbench/pkg/lifecycle"
	"github.com/wesleyemery/kbench/pkg/stats"
)

const (
	StartupLatency = "Pod startup"
	CleanupLatency = "Pod cleanup"
)

// Build turns the result of a run into a report document.
func Build(name string, result *scenario.Result) (*kbenchv1alpha1.BenchmarkReport, error) {
	report := kbenchv1alpha1.NewBenchmarkReport(name, result.Spec)
	report.Status.StartTime = ptr.To(metav1.NewTime(result.StartedAt))
	report.Status.CompletionTime = ptr.To(metav1.NewTime(result.FinishedAt))

	if result.Pods.Len() > 0 {
		for _, dist := range []struct {
			name      string
			durations []time.Duration
		}{
			{StartupLatency, result.Pods.StartupLatencies()},
			{CleanupLatency, result.Pods.CleanupLatencies()},
		} {
			summary, err := stats.Summarize(dist.name, dist.durations)
			if err != nil {
				return nil, errors.WithMessagef(err, "summarizing %s", dist.name)
			}
			report.Status.Statistics = append(report.Status.Statistics, statistics(summary))
		}
	}

	for _, rec := range result.Pods.Records() {
		report.Status.Resources = append(report.Status.Resources, resourceTiming(rec))
	}

	for _, span := range result.Spans {
		report.Status.Spans = append(report.Status.Spans, kbenchv1alpha1.PhaseTiming{
			Name:            span.Name,
			DurationSeconds: span.Duration.Seconds(),
		})
	}

	for _, phase := range result.Phases {
		d, ok := phase.Duration()
		if !ok {
			return nil, errors.Errorf("phase %s of %s did not complete", phase.Name, phase.Resource)
		}
		report.Status.Phases = append(report.Status.Phases, kbenchv1alpha1.PhaseTiming{
			Name:            phase.Name,
			Resource:        phase.Resource,
			TargetReplicas:  ptr.To(phase.Target),
			DurationSeconds: d.Seconds(),
		})
	}

	return report, nil
}

func statistics(s *stats.Summary) kbenchv1alpha1.LatencyStatistics {
	return kbenchv1alpha1.LatencyStatistics{
		Name:          s.Name,
		Count:         s.Count,
		MinSeconds:    s.Min.Seconds(),
		MeanSeconds:   s.Mean.Seconds(),
		MaxSeconds:    s.Max.Seconds(),
		StdDevSeconds: s.StdDev.Seconds(),
		P50Seconds:    s.P50.Seconds(),
		P95Seconds:    s.P95.Seconds(),
		P99Seconds:    s.P99.Seconds(),
	}
}

func resourceTiming(rec *lifecycle.Record) kbenchv1alpha1.ResourceTiming {
	timing := kbenchv1alpha1.ResourceTiming{Name: rec.Name}
	if d, ok := rec.StartupLatency(); ok {
		timing.StartupSeconds = ptr.To(d.Seconds())
	}
	if d, ok := rec.CleanupLatency(); ok {
		timing.CleanupSeconds = ptr.To(d.Seconds())
	}
	if d, ok := rec.Lifetime(); ok {
		timing.LifetimeSeconds = ptr.To(d.Seconds())
	}
	return timing
}
