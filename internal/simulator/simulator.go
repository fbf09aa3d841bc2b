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

package simulator

import (
	"math/rand"
	"sync"
	"time"

	"github.com/go-logr/logr"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	utilrand "k8s.io/apimachinery/pkg/util/rand"
	"k8s.io/apimachinery/pkg/version"
	"k8s.io/apimachinery/pkg/watch"
	fakediscovery "k8s.io/client-go/discovery/fake"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
)

// SimulatedVersion is the server version the control plane reports.
const SimulatedVersion = "v1.32.1-simulated"

const (
	defaultStartupDelay = 200 * time.Millisecond
	defaultCleanupDelay = 100 * time.Millisecond
	defaultReplicaStep  = 50 * time.Millisecond
	defaultVariance     = 0.3
	varianceOffset      = 0.5
	varianceMultiplier  = 2
	generatedNameLength = 5
)

var (
	podsResource        = corev1.SchemeGroupVersion.WithResource("pods")
	deploymentsResource = appsv1.SchemeGroupVersion.WithResource("deployments")
)

// ControlPlane is an in-process stand-in for an API server and the nodes
// behind it. Pods turn Running after StartupDelay and disappear
// CleanupDelay after their deletion was acknowledged; deployments move their
// ready replica count one step per ReplicaStep towards spec.replicas. Watches
// replay the current state as Added events, like a real API server does for
// a watch without a resource version.
type ControlPlane struct {
	*fake.Clientset

	StartupDelay time.Duration
	CleanupDelay time.Duration
	ReplicaStep  time.Duration
	// Variance randomizes every delay by up to ±Variance of its value.
	Variance float64

	objects []runtime.Object
	logger  logr.Logger
	mu      sync.Mutex
	stop    chan struct{}
	wg      sync.WaitGroup
}

type Option func(*ControlPlane)

func WithLogger(logger logr.Logger) Option {
	return func(c *ControlPlane) {
		c.logger = logger
	}
}

// WithDelays overrides the pod startup, pod cleanup and replica step delays.
func WithDelays(startup, cleanup, replicaStep time.Duration) Option {
	return func(c *ControlPlane) {
		c.StartupDelay = startup
		c.CleanupDelay = cleanup
		c.ReplicaStep = replicaStep
	}
}

// WithObjects seeds the control plane with existing objects.
func WithObjects(objects ...runtime.Object) Option {
	return func(c *ControlPlane) {
		c.objects = append(c.objects, objects...)
	}
}

func WithVariance(variance float64) Option {
	return func(c *ControlPlane) {
		c.Variance = variance
	}
}

func New(opts ...Option) *ControlPlane {
	c := &ControlPlane{
		StartupDelay: defaultStartupDelay,
		CleanupDelay: defaultCleanupDelay,
		ReplicaStep:  defaultReplicaStep,
		Variance:     defaultVariance,
		logger:       logr.Discard(),
		stop:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Clientset = fake.NewSimpleClientset(c.objects...)
	c.Discovery().(*fakediscovery.FakeDiscovery).FakedServerVersion = &version.Info{
		GitVersion: SimulatedVersion,
		Platform:   "simulated",
	}

	// Prepended reactors run in reverse order, names must be generated first.
	c.PrependReactor("create", "pods", c.schedulePodStart)
	c.PrependReactor("delete", "pods", c.schedulePodCleanup)
	c.PrependReactor("create", "deployments", c.scheduleRollout)
	c.PrependReactor("patch", "deployments", c.scheduleRollout)
	c.PrependReactor("create", "*", c.generateName)
	c.PrependWatchReactor("*", c.watchWithReplay)

	return c
}

// Close stops every pending transition and waits for them to return.
func (c *ControlPlane) Close() {
	close(c.stop)
	c.wg.Wait()
}

func (c *ControlPlane) generateName(action k8stesting.Action) (bool, runtime.Object, error) {
	create, ok := action.(k8stesting.CreateAction)
	if !ok {
		return false, nil, nil
	}
	accessor, err := meta.Accessor(create.GetObject())
	if err != nil {
		return false, nil, nil
	}
	if accessor.GetName() == "" && accessor.GetGenerateName() != "" {
		accessor.SetName(accessor.GetGenerateName() + utilrand.String(generatedNameLength))
	}
	return false, nil, nil
}

func (c *ControlPlane) schedulePodStart(action k8stesting.Action) (bool, runtime.Object, error) {
	create := action.(k8stesting.CreateAction)
	accessor, err := meta.Accessor(create.GetObject())
	if err != nil {
		return false, nil, nil
	}
	name, namespace := accessor.GetName(), action.GetNamespace()

	c.after(c.StartupDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		obj, err := c.Tracker().Get(podsResource, namespace, name)
		if err != nil {
			return
		}
		pod := obj.(*corev1.Pod)
		pod.Status.Phase = corev1.PodRunning
		if err := c.Tracker().Update(podsResource, pod, namespace); err != nil {
			c.logger.Error(err, "Failed to start simulated pod", "pod", name)
		}
	})

	return false, nil, nil
}

// schedulePodCleanup acknowledges the deletion and removes the pod later,
// the way graceful termination does.
func (c *ControlPlane) schedulePodCleanup(action k8stesting.Action) (bool, runtime.Object, error) {
	name, namespace := action.(k8stesting.DeleteAction).GetName(), action.GetNamespace()

	if _, err := c.Tracker().Get(podsResource, namespace, name); err != nil {
		return true, nil, err
	}

	c.after(c.CleanupDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		err := c.Tracker().Delete(podsResource, namespace, name)
		if err != nil && !apierrors.IsNotFound(err) {
			c.logger.Error(err, "Failed to remove simulated pod", "pod", name)
		}
	})

	return true, nil, nil
}

func (c *ControlPlane) scheduleRollout(action k8stesting.Action) (bool, runtime.Object, error) {
	var name string
	switch a := action.(type) {
	case k8stesting.CreateAction:
		accessor, err := meta.Accessor(a.GetObject())
		if err != nil {
			return false, nil, nil
		}
		name = accessor.GetName()
	case k8stesting.PatchAction:
		name = a.GetName()
	default:
		return false, nil, nil
	}

	c.after(c.ReplicaStep, func() { c.rolloutStep(action.GetNamespace(), name) })
	return false, nil, nil
}

// rolloutStep moves the ready replica count one step towards spec.replicas
// and schedules the next step until they match.
func (c *ControlPlane) rolloutStep(namespace, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	obj, err := c.Tracker().Get(deploymentsResource, namespace, name)
	if err != nil {
		return
	}
	deployment := obj.(*appsv1.Deployment)

	desired := int32(1)
	if deployment.Spec.Replicas != nil {
		desired = *deployment.Spec.Replicas
	}

	ready := deployment.Status.ReadyReplicas
	switch {
	case ready < desired:
		ready++
	case ready > desired:
		ready--
	default:
		return
	}

	deployment.Status.Replicas = ready
	deployment.Status.ReadyReplicas = ready
	deployment.Status.AvailableReplicas = ready
	if err := c.Tracker().Update(deploymentsResource, deployment, namespace); err != nil {
		c.logger.Error(err, "Failed to update simulated deployment", "deployment", name)
		return
	}

	if ready != desired {
		c.after(c.ReplicaStep, func() { c.rolloutStep(namespace, name) })
	}
}

func (c *ControlPlane) watchWithReplay(action k8stesting.Action) (bool, watch.Interface, error) {
	gvr := action.GetResource()
	namespace := action.GetNamespace()

	inner, err := c.Tracker().Watch(gvr, namespace)
	if err != nil {
		return true, nil, err
	}

	current, err := c.list(gvr, namespace)
	if err != nil {
		inner.Stop()
		return true, nil, err
	}

	return true, newReplayWatcher(inner, current), nil
}

func (c *ControlPlane) list(gvr schema.GroupVersionResource, namespace string) ([]runtime.Object, error) {
	var gvk schema.GroupVersionKind
	switch gvr {
	case podsResource:
		gvk = corev1.SchemeGroupVersion.WithKind("Pod")
	case deploymentsResource:
		gvk = appsv1.SchemeGroupVersion.WithKind("Deployment")
	default:
		return nil, nil
	}

	list, err := c.Tracker().List(gvr, gvk, namespace)
	if err != nil {
		return nil, err
	}
	return meta.ExtractList(list)
}

func (c *ControlPlane) after(d time.Duration, f func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		select {
		case <-c.stop:
		case <-time.After(c.jitter(d)):
			f()
		}
	}()
}

func (c *ControlPlane) jitter(d time.Duration) time.Duration {
	if c.Variance <= 0 {
		return d
	}
	factor := 1 + (rand.Float64()-varianceOffset)*varianceMultiplier*c.Variance
	if factor < 0 {
		factor = 0
	}
	return time.Duration(float64(d) * factor)
}
