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
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	kbenchv1alpha1 "github.com/wesleyemery/kbench/api/v1alpha1"
	"github.com/wesleyemery/kbench/internal/config"
	"github.com/wesleyemery/kbench/internal/scenario"
	"github.com/wesleyemery/kbench/pkg/lifecycle"
)

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func at(seconds float64) time.Time {
	return epoch.Add(time.Duration(seconds * float64(time.Second)))
}

// podResult builds a pod run where pod i starts after startups[i] seconds
// and exits one second after its deletion.
func podResult(t *testing.T, startups ...float64) *scenario.Result {
	t.Helper()

	pods := lifecycle.NewRegistry()
	for i, startup := range startups {
		name := "bench-" + string(rune('a'+i))
		rec, err := pods.Add(name, epoch)
		require.NoError(t, err)
		require.NoError(t, rec.Stamp(lifecycle.MilestoneReady, at(startup)))
		require.NoError(t, rec.Stamp(lifecycle.MilestoneDeleted, at(10)))
		require.NoError(t, rec.Stamp(lifecycle.MilestoneExited, at(11)))
	}

	return &scenario.Result{
		Spec: kbenchv1alpha1.BenchmarkSpec{
			Scenario:  kbenchv1alpha1.ScenarioPodThroughput,
			Namespace: "default",
			Image:     "nginx:1.17.2",
			NumPods:   int32(len(startups)),
		},
		StartedAt:  epoch,
		FinishedAt: at(11),
		Pods:       pods,
		Spans: []scenario.Span{
			{Name: "Pod startup", Duration: 3 * time.Second},
			{Name: "Pod cleanup", Duration: time.Second},
		},
	}
}

func deploymentResult() *scenario.Result {
	phase := func(name string, target int32, start, end float64) *lifecycle.PhaseRecord {
		p := &lifecycle.PhaseRecord{Name: name, Resource: "bench-deploy", Target: target, StartedAt: at(start)}
		p.Reach(at(end))
		return p
	}

	return &scenario.Result{
		Spec: kbenchv1alpha1.BenchmarkSpec{
			Scenario:       kbenchv1alpha1.ScenarioDeploymentScaling,
			InitReplicas:   3,
			TargetReplicas: 5,
		},
		StartedAt:  epoch,
		FinishedAt: at(6),
		Pods:       lifecycle.NewRegistry(),
		Phases: []*lifecycle.PhaseRecord{
			phase(lifecycle.PhaseCreation, 3, 0, 2),
			phase(lifecycle.PhaseScaleOut, 5, 2, 3.5),
			phase(lifecycle.PhaseScaleIn, 3, 3.5, 6),
		},
	}
}

func TestBuild_PodStatistics(t *testing.T) {
	report, err := Build("run-1", podResult(t, 1, 2, 3))
	require.NoError(t, err)

	assert.Equal(t, kbenchv1alpha1.GroupVersion, report.APIVersion)
	assert.Equal(t, kbenchv1alpha1.ReportKind, report.Kind)
	assert.Equal(t, "run-1", report.Name)
	assert.Equal(t, "default", report.Namespace)

	require.Len(t, report.Status.Statistics, 2)
	startup := report.Status.Statistics[0]
	assert.Equal(t, StartupLatency, startup.Name)
	assert.Equal(t, 3, startup.Count)
	assert.InDelta(t, 1.0, startup.MinSeconds, 1e-9)
	assert.InDelta(t, 2.0, startup.MeanSeconds, 1e-9)
	assert.InDelta(t, 3.0, startup.MaxSeconds, 1e-9)

	cleanup := report.Status.Statistics[1]
	assert.Equal(t, CleanupLatency, cleanup.Name)
	assert.InDelta(t, 1.0, cleanup.MinSeconds, 1e-9)
	assert.InDelta(t, 1.0, cleanup.MaxSeconds, 1e-9)

	require.Len(t, report.Status.Resources, 3)
	assert.Equal(t, "bench-a", report.Status.Resources[0].Name)
	assert.InDelta(t, 11.0, *report.Status.Resources[0].LifetimeSeconds, 1e-9)

	require.Len(t, report.Status.Spans, 2)
	assert.Empty(t, report.Status.Phases)
}

func TestBuild_DeploymentPhases(t *testing.T) {
	report, err := Build("run-2", deploymentResult())
	require.NoError(t, err)

	assert.Empty(t, report.Status.Statistics)
	assert.Empty(t, report.Status.Resources)

	require.Len(t, report.Status.Phases, 3)
	assert.Equal(t, lifecycle.PhaseCreation, report.Status.Phases[0].Name)
	assert.Equal(t, lifecycle.PhaseScaleOut, report.Status.Phases[1].Name)
	assert.Equal(t, lifecycle.PhaseScaleIn, report.Status.Phases[2].Name)
	assert.Equal(t, int32(5), *report.Status.Phases[1].TargetReplicas)
	assert.InDelta(t, 1.5, report.Status.Phases[1].DurationSeconds, 1e-9)
}

func TestBuild_IncompletePhase(t *testing.T) {
	result := deploymentResult()
	result.Phases = append(result.Phases, &lifecycle.PhaseRecord{Name: "extra", StartedAt: epoch})

	_, err := Build("run-3", result)
	require.Error(t, err)
}

func TestPrintSummary(t *testing.T) {
	report, err := Build("run-1", podResult(t, 1, 2, 3))
	require.NoError(t, err)

	var out bytes.Buffer
	PrintSummary(&out, report)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Pod startup: min=1.000 [s], avg=2.000 [s], max=3.000 [s]", lines[0])
	assert.Equal(t, "Pod cleanup: min=1.000 [s], avg=1.000 [s], max=1.000 [s]", lines[1])
	assert.Equal(t, "Pod startup: 3.000 [s]", lines[2])
}

func TestPrintTimings(t *testing.T) {
	result := podResult(t, 1, 2)
	_, err := result.Pods.Add("bench-pending", epoch)
	require.NoError(t, err)

	report, err := Build("run-1", result)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, PrintTimings(&out, report))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "POD"))
	assert.True(t, strings.HasPrefix(lines[1], "bench-a"))
	assert.Contains(t, lines[1], "1.000")
	assert.True(t, strings.HasPrefix(lines[2], "bench-b"))
	assert.Equal(t, []string{"bench-pending", "-", "-", "-"}, strings.Fields(lines[3]))
}

func TestWrite_MachineReadable(t *testing.T) {
	report, err := Build("run-2", deploymentResult())
	require.NoError(t, err)

	var yamlOut bytes.Buffer
	require.NoError(t, Write(&yamlOut, report, config.OutputYAML, false))

	var fromYAML kbenchv1alpha1.BenchmarkReport
	require.NoError(t, yaml.Unmarshal(yamlOut.Bytes(), &fromYAML))
	assert.Equal(t, kbenchv1alpha1.ReportKind, fromYAML.Kind)
	assert.Len(t, fromYAML.Status.Phases, 3)

	var jsonOut bytes.Buffer
	require.NoError(t, Write(&jsonOut, report, config.OutputJSON, false))

	var fromJSON map[string]any
	require.NoError(t, json.Unmarshal(jsonOut.Bytes(), &fromJSON))
	assert.Equal(t, kbenchv1alpha1.GroupVersion, fromJSON["apiVersion"])
}

func TestWrite_Text(t *testing.T) {
	report, err := Build("run-1", podResult(t, 1))
	require.NoError(t, err)

	var withTimings, without bytes.Buffer
	require.NoError(t, Write(&withTimings, report, config.OutputText, true))
	require.NoError(t, Write(&without, report, config.OutputText, false))

	assert.Contains(t, withTimings.String(), "POD")
	assert.NotContains(t, without.String(), "POD")
}

func TestFormatterFor_Unknown(t *testing.T) {
	_, err := FormatterFor("xml")
	require.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	report, err := Build("run-1", podResult(t, 1.5, 2))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, WriteCSV(&out, report))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "name,startup_seconds,cleanup_seconds,lifetime_seconds", lines[0])
	assert.Equal(t, "bench-a,1.5,1,11", lines[1])
}
