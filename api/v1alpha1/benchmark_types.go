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

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	// GroupVersion of the report documents kbench writes.
	GroupVersion = "kbench.io/v1alpha1"
	// ReportKind is the kind of a benchmark report document.
	ReportKind = "BenchmarkReport"
)

// ScenarioType names a benchmark workload
// +kubebuilder:validation:Enum=pod-latency;pod-throughput;deployment-scaling
type ScenarioType string

const (
	ScenarioPodLatency        ScenarioType = "pod-latency"
	ScenarioPodThroughput     ScenarioType = "pod-throughput"
	ScenarioDeploymentScaling ScenarioType = "deployment-scaling"
)

// BenchmarkSpec defines what a benchmark run creates.
type BenchmarkSpec struct {
	// Scenario selects the workload
	Scenario ScenarioType `json:"scenario"`

	// Namespace the benchmark resources are created in
	// +kubebuilder:default="default"
	Namespace string `json:"namespace,omitempty"`

	// Image is the container image of every benchmark pod
	// +kubebuilder:default="nginx:1.17.2"
	Image string `json:"image,omitempty"`

	// NumPods is the number of pods created by the pod scenarios
	// +kubebuilder:default=5
	NumPods int32 `json:"numPods,omitempty"`

	// NodeSelector is applied to every benchmark pod
	NodeSelector map[string]string `json:"nodeSelector,omitempty"`

	// InitReplicas is the replica count a deployment is created with
	// +kubebuilder:default=3
	InitReplicas int32 `json:"initReplicas,omitempty"`

	// TargetReplicas is the replica count a deployment is scaled to. Zero
	// scales it in completely.
	TargetReplicas int32 `json:"targetReplicas,omitempty"`
}

// BenchmarkStatus holds the measured results of a run.
type BenchmarkStatus struct {
	// StartTime is when the first mutation was issued
	StartTime *metav1.Time `json:"startTime,omitempty"`

	// CompletionTime is when the last milestone was observed
	CompletionTime *metav1.Time `json:"completionTime,omitempty"`

	// Statistics summarizes each latency distribution
	Statistics []LatencyStatistics `json:"statistics,omitempty"`

	// Spans are the wall-clock durations of whole benchmark phases
	Spans []PhaseTiming `json:"spans,omitempty"`

	// Phases are the timed deployment convergence phases, in order
	Phases []PhaseTiming `json:"phases,omitempty"`

	// Resources lists per-pod timings in creation order
	Resources []ResourceTiming `json:"resources,omitempty"`
}

// LatencyStatistics summarizes one latency distribution in seconds.
type LatencyStatistics struct {
	Name          string  `json:"name"`
	Count         int     `json:"count"`
	MinSeconds    float64 `json:"minSeconds"`
	MeanSeconds   float64 `json:"meanSeconds"`
	MaxSeconds    float64 `json:"maxSeconds"`
	StdDevSeconds float64 `json:"stdDevSeconds"`
	P50Seconds    float64 `json:"p50Seconds"`
	P95Seconds    float64 `json:"p95Seconds"`
	P99Seconds    float64 `json:"p99Seconds"`
}

// PhaseTiming is the duration of one benchmark phase.
type PhaseTiming struct {
	Name            string  `json:"name"`
	Resource        string  `json:"resource,omitempty"`
	TargetReplicas  *int32  `json:"targetReplicas,omitempty"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// ResourceTiming holds the milestone latencies of one pod.
type ResourceTiming struct {
	Name            string   `json:"name" csv:"name"`
	StartupSeconds  *float64 `json:"startupSeconds,omitempty" csv:"startup_seconds"`
	CleanupSeconds  *float64 `json:"cleanupSeconds,omitempty" csv:"cleanup_seconds"`
	LifetimeSeconds *float64 `json:"lifetimeSeconds,omitempty" csv:"lifetime_seconds"`
}

// BenchmarkReport is the machine readable result of a benchmark run.
type BenchmarkReport struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   BenchmarkSpec   `json:"spec"`
	Status BenchmarkStatus `json:"status,omitempty"`
}

// NewBenchmarkReport returns an empty report for spec.
func NewBenchmarkReport(name string, spec BenchmarkSpec) *BenchmarkReport {
	return &BenchmarkReport{
		TypeMeta: metav1.TypeMeta{
			APIVersion: GroupVersion,
			Kind:       ReportKind,
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: spec.Namespace,
		},
		Spec: spec,
	}
}
