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

package scenario

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/watch"

	kbenchv1alpha1 "github.com/wesleyemery/kbench/api/v1alpha1"
	"github.com/wesleyemery/kbench/internal/config"
	"github.com/wesleyemery/kbench/internal/correlator"
	"github.com/wesleyemery/kbench/pkg/lifecycle"
)

// scriptedIssuer hands out pre-built watch streams in the order the
// scenario opens them and records every mutation it receives.
type scriptedIssuer struct {
	podNames          []string
	created           int
	failCreateAt      int
	podStreams        []watch.Interface
	deploymentStreams []watch.Interface
	calls             []string
}

func (s *scriptedIssuer) CreatePod(_ context.Context, image string, _ map[string]string) (string, error) {
	s.created++
	if s.created == s.failCreateAt {
		return "", errors.New("create rejected")
	}
	name := s.podNames[s.created-1]
	s.calls = append(s.calls, fmt.Sprintf("create-pod %s %s", name, image))
	return name, nil
}

func (s *scriptedIssuer) DeletePod(_ context.Context, name string) error {
	s.calls = append(s.calls, "delete-pod "+name)
	return nil
}

func (s *scriptedIssuer) CreateDeployment(_ context.Context, _ string, replicas int32) (string, error) {
	s.calls = append(s.calls, fmt.Sprintf("create-deployment %d", replicas))
	return "bench-deploy", nil
}

func (s *scriptedIssuer) RescaleDeployment(_ context.Context, name string, replicas int32) error {
	s.calls = append(s.calls, fmt.Sprintf("rescale %s %d", name, replicas))
	return nil
}

func (s *scriptedIssuer) DeleteDeployment(_ context.Context, name string) error {
	s.calls = append(s.calls, "delete-deployment "+name)
	return nil
}

func (s *scriptedIssuer) WatchPods(_ context.Context, _ string) (watch.Interface, error) {
	return next(&s.podStreams)
}

func (s *scriptedIssuer) WatchDeployments(_ context.Context, _ string) (watch.Interface, error) {
	return next(&s.deploymentStreams)
}

func next(streams *[]watch.Interface) (watch.Interface, error) {
	if len(*streams) == 0 {
		return nil, errors.New("no stream scripted")
	}
	w := (*streams)[0]
	*streams = (*streams)[1:]
	return w, nil
}

func stream(events ...watch.Event) watch.Interface {
	w := watch.NewFakeWithChanSize(len(events), false)
	for _, ev := range events {
		w.Action(ev.Type, ev.Object)
	}
	return w
}

func pod(name string, phase corev1.PodPhase) runtime.Object {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "default"},
		Status:     corev1.PodStatus{Phase: phase},
	}
}

func deployment(ready int32) runtime.Object {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "bench-deploy", Namespace: "default"},
		Status:     appsv1.DeploymentStatus{ReadyReplicas: ready},
	}
}

func running(name string) watch.Event {
	return watch.Event{Type: watch.Modified, Object: pod(name, corev1.PodRunning)}
}

func deleted(name string) watch.Event {
	return watch.Event{Type: watch.Deleted, Object: pod(name, corev1.PodRunning)}
}

func ready(replicas int32) watch.Event {
	return watch.Event{Type: watch.Modified, Object: deployment(replicas)}
}

func newTestRunner(issuer Issuer, timeout time.Duration) *Runner {
	return NewRunner(&config.Config{Timeout: timeout}, issuer)
}

func TestRunner_PodLatencyIsSerial(t *testing.T) {
	names := []string{"bench-a", "bench-b", "bench-c", "bench-d", "bench-e"}
	issuer := &scriptedIssuer{podNames: names}
	for _, name := range names {
		issuer.podStreams = append(issuer.podStreams,
			stream(watch.Event{Type: watch.Added, Object: pod(name, corev1.PodPending)}, running(name)),
			stream(deleted(name)),
		)
	}

	spec := kbenchv1alpha1.BenchmarkSpec{Scenario: kbenchv1alpha1.ScenarioPodLatency, NumPods: 5, Image: "nginx:1.17.2"}
	result, err := newTestRunner(issuer, time.Second).Run(context.Background(), spec)
	require.NoError(t, err)

	var expected []string
	for _, name := range names {
		expected = append(expected, "create-pod "+name+" nginx:1.17.2", "delete-pod "+name)
	}
	assert.Equal(t, expected, issuer.calls)
	assert.Equal(t, names, result.Pods.Names())
	assert.Len(t, result.Pods.StartupLatencies(), 5)
	assert.Len(t, result.Pods.CleanupLatencies(), 5)

	for _, rec := range result.Pods.Records() {
		assert.True(t, rec.Complete(), rec.Name)
		assert.False(t, rec.ReadyAt.Before(rec.CreatedAt))
		assert.False(t, rec.DeletedAt.Before(*rec.ReadyAt))
		assert.False(t, rec.ExitedAt.Before(*rec.DeletedAt))
	}
	assert.Empty(t, result.Spans)
	assert.False(t, result.FinishedAt.Before(result.StartedAt))
}

func TestRunner_PodThroughputOutOfOrder(t *testing.T) {
	issuer := &scriptedIssuer{
		podNames: []string{"bench-1", "bench-2", "bench-3"},
		podStreams: []watch.Interface{
			stream(running("bench-2"), running("bench-1"), running("bench-3")),
			stream(deleted("bench-3"), deleted("bench-1"), deleted("bench-2")),
		},
	}

	spec := kbenchv1alpha1.BenchmarkSpec{Scenario: kbenchv1alpha1.ScenarioPodThroughput, NumPods: 3, Image: "nginx:1.17.2"}
	result, err := newTestRunner(issuer, time.Second).Run(context.Background(), spec)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"create-pod bench-1 nginx:1.17.2",
		"create-pod bench-2 nginx:1.17.2",
		"create-pod bench-3 nginx:1.17.2",
		"delete-pod bench-1",
		"delete-pod bench-2",
		"delete-pod bench-3",
	}, issuer.calls)

	for _, rec := range result.Pods.Records() {
		assert.True(t, rec.Complete(), rec.Name)
	}

	require.Len(t, result.Spans, 2)
	assert.Equal(t, "Pod startup", result.Spans[0].Name)
	assert.Equal(t, "Pod cleanup", result.Spans[1].Name)
}

func TestRunner_DeploymentScaling(t *testing.T) {
	issuer := &scriptedIssuer{
		deploymentStreams: []watch.Interface{
			stream(watch.Event{Type: watch.Added, Object: deployment(0)}, ready(1), ready(2), ready(3)),
			stream(ready(4), ready(5)),
			stream(ready(4), ready(3)),
		},
	}

	spec := kbenchv1alpha1.BenchmarkSpec{
		Scenario:       kbenchv1alpha1.ScenarioDeploymentScaling,
		Image:          "nginx:1.17.2",
		InitReplicas:   3,
		TargetReplicas: 5,
	}
	result, err := newTestRunner(issuer, time.Second).Run(context.Background(), spec)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"create-deployment 3",
		"rescale bench-deploy 5",
		"rescale bench-deploy 3",
		"delete-deployment bench-deploy",
	}, issuer.calls)

	require.Len(t, result.Phases, 3)
	expected := []struct {
		name   string
		target int32
	}{
		{lifecycle.PhaseCreation, 3},
		{lifecycle.PhaseScaleOut, 5},
		{lifecycle.PhaseScaleIn, 3},
	}
	for i, want := range expected {
		phase := result.Phases[i]
		assert.Equal(t, want.name, phase.Name)
		assert.Equal(t, want.target, phase.Target)
		assert.Equal(t, "bench-deploy", phase.Resource)

		d, ok := phase.Duration()
		require.True(t, ok, phase.Name)
		assert.GreaterOrEqual(t, d, time.Duration(0))
	}
	assert.Zero(t, result.Pods.Len())
}

func TestRunner_CreateFailureAborts(t *testing.T) {
	issuer := &scriptedIssuer{
		podNames:     []string{"bench-1", "bench-2", "bench-3"},
		failCreateAt: 2,
	}

	spec := kbenchv1alpha1.BenchmarkSpec{Scenario: kbenchv1alpha1.ScenarioPodThroughput, NumPods: 3}
	_, err := newTestRunner(issuer, time.Second).Run(context.Background(), spec)
	require.Error(t, err)

	assert.Equal(t, []string{"create-pod bench-1 "}, issuer.calls)
}

func TestRunner_PodNeverReady(t *testing.T) {
	issuer := &scriptedIssuer{
		podNames: []string{"bench-1"},
		podStreams: []watch.Interface{
			stream(watch.Event{Type: watch.Added, Object: pod("bench-1", corev1.PodPending)}),
		},
	}

	spec := kbenchv1alpha1.BenchmarkSpec{Scenario: kbenchv1alpha1.ScenarioPodLatency, NumPods: 1}
	_, err := newTestRunner(issuer, 50*time.Millisecond).Run(context.Background(), spec)
	require.ErrorIs(t, err, correlator.ErrDeadlineExceeded)

	var deadline *correlator.DeadlineExceededError
	require.ErrorAs(t, err, &deadline)
	assert.Equal(t, []string{"bench-1"}, deadline.Pending)
	assert.NotContains(t, issuer.calls, "delete-pod bench-1")
}

func TestRunner_UnknownScenario(t *testing.T) {
	_, err := newTestRunner(&scriptedIssuer{}, time.Second).Run(context.Background(),
		kbenchv1alpha1.BenchmarkSpec{Scenario: "node-churn"})
	require.Error(t, err)
}
