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

package orchestrator

import (
	"context"
	"encoding/json"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/version"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"
	"k8s.io/utils/ptr"
)

const (
	// NamePrefix is the generateName prefix of every benchmark resource.
	NamePrefix    = "bench-"
	ContainerName = "bench-container"

	// RunIDLabel scopes watches to the resources of a single run.
	RunIDLabel = "kbench.io/run-id"
	// AppLabel selects the pods of one benchmark deployment.
	AppLabel = "kbench.io/app"

	KindPod        = "pod"
	KindDeployment = "deployment"
)

// Issuer issues the mutations of a benchmark run against one namespace.
type Issuer struct {
	client    kubernetes.Interface
	namespace string
	runID     string
	logger    logr.Logger
}

func NewIssuer(client kubernetes.Interface, namespace, runID string, logger logr.Logger) *Issuer {
	return &Issuer{
		client:    client,
		namespace: namespace,
		runID:     runID,
		logger:    logger.WithValues("namespace", namespace),
	}
}

// Ping checks that the API server answers before anything is created.
func (i *Issuer) Ping() (*version.Info, error) {
	info, err := i.client.Discovery().ServerVersion()
	if err != nil {
		return nil, &SetupError{Err: err}
	}
	return info, nil
}

// CreatePod creates a single container pod and returns the name assigned by
// the API server.
func (i *Issuer) CreatePod(ctx context.Context, image string, nodeSelector map[string]string) (string, error) {
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			GenerateName: NamePrefix,
			Labels:       i.runLabels(),
		},
		Spec: corev1.PodSpec{
			Containers: []corev1.Container{
				{Name: ContainerName, Image: image},
			},
			NodeSelector: nodeSelector,
		},
	}

	created, err := i.client.CoreV1().Pods(i.namespace).Create(ctx, pod, metav1.CreateOptions{})
	if err != nil {
		return "", &RequestError{Verb: "create", Kind: KindPod, Err: err}
	}

	i.logger.V(1).Info("Pod created", "pod", created.Name)
	return created.Name, nil
}

// DeletePod requests deletion and returns without waiting for termination.
func (i *Issuer) DeletePod(ctx context.Context, name string) error {
	if err := i.client.CoreV1().Pods(i.namespace).Delete(ctx, name, metav1.DeleteOptions{}); err != nil {
		return &RequestError{Verb: "delete", Kind: KindPod, Name: name, Err: err}
	}

	i.logger.V(1).Info("Pod deleted", "pod", name)
	return nil
}

// CreateDeployment creates a deployment whose selector matches only its own
// pod template.
func (i *Issuer) CreateDeployment(ctx context.Context, image string, replicas int32) (string, error) {
	podLabels := i.runLabels()
	podLabels[AppLabel] = uuid.NewString()

	deployment := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			GenerateName: NamePrefix,
			Labels:       i.runLabels(),
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(replicas),
			Selector: &metav1.LabelSelector{
				MatchLabels: map[string]string{AppLabel: podLabels[AppLabel]},
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: podLabels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{
						{Name: ContainerName, Image: image},
					},
				},
			},
		},
	}

	created, err := i.client.AppsV1().Deployments(i.namespace).Create(ctx, deployment, metav1.CreateOptions{})
	if err != nil {
		return "", &RequestError{Verb: "create", Kind: KindDeployment, Err: err}
	}

	i.logger.V(1).Info("Deployment created", "deployment", created.Name, "replicas", replicas)
	return created.Name, nil
}

// RescaleDeployment patches spec.replicas and nothing else.
func (i *Issuer) RescaleDeployment(ctx context.Context, name string, replicas int32) error {
	patch, err := json.Marshal(map[string]interface{}{
		"spec": map[string]interface{}{"replicas": replicas},
	})
	if err != nil {
		return &RequestError{Verb: "rescale", Kind: KindDeployment, Name: name, Err: err}
	}

	_, err = i.client.AppsV1().Deployments(i.namespace).Patch(ctx, name, types.MergePatchType, patch, metav1.PatchOptions{})
	if err != nil {
		return &RequestError{Verb: "rescale", Kind: KindDeployment, Name: name, Err: err}
	}

	i.logger.V(1).Info("Deployment rescaled", "deployment", name, "replicas", replicas)
	return nil
}

func (i *Issuer) DeleteDeployment(ctx context.Context, name string) error {
	if err := i.client.AppsV1().Deployments(i.namespace).Delete(ctx, name, metav1.DeleteOptions{}); err != nil {
		return &RequestError{Verb: "delete", Kind: KindDeployment, Name: name, Err: err}
	}

	i.logger.V(1).Info("Deployment deleted", "deployment", name)
	return nil
}

// WatchPods opens a pod watch limited to this run's resources.
func (i *Issuer) WatchPods(ctx context.Context, resourceVersion string) (watch.Interface, error) {
	return i.client.CoreV1().Pods(i.namespace).Watch(ctx, i.listOptions(resourceVersion))
}

// WatchDeployments opens a deployment watch limited to this run's resources.
func (i *Issuer) WatchDeployments(ctx context.Context, resourceVersion string) (watch.Interface, error) {
	return i.client.AppsV1().Deployments(i.namespace).Watch(ctx, i.listOptions(resourceVersion))
}

func (i *Issuer) listOptions(resourceVersion string) metav1.ListOptions {
	return metav1.ListOptions{
		LabelSelector:   labels.SelectorFromSet(labels.Set{RunIDLabel: i.runID}).String(),
		ResourceVersion: resourceVersion,
	}
}

func (i *Issuer) runLabels() map[string]string {
	return map[string]string{RunIDLabel: i.runID}
}
