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
	"fmt"
	"time"

	kbenchv1alpha1 "github.com/wesleyemery/kbench/api/v1alpha1"
	"github.com/wesleyemery/kbench/internal/correlator"
	"github.com/wesleyemery/kbench/pkg/lifecycle"
)

// deploymentScaling times creation, scale-out and scale-in of a deployment,
// then deletes it without waiting.
func (r *Runner) deploymentScaling(ctx context.Context, spec kbenchv1alpha1.BenchmarkSpec, result *Result) error {
	var name string

	creation, err := r.converge(ctx, lifecycle.PhaseCreation, spec.InitReplicas, func() (string, error) {
		return r.issuer.CreateDeployment(ctx, spec.Image, spec.InitReplicas)
	})
	if err != nil {
		return err
	}
	name = creation.Resource
	result.Phases = append(result.Phases, creation)
	r.logger.Info("Deployment created", "deployment", name, "replicas", spec.InitReplicas)

	scaleOut, err := r.converge(ctx, lifecycle.PhaseScaleOut, spec.TargetReplicas, func() (string, error) {
		return name, r.issuer.RescaleDeployment(ctx, name, spec.TargetReplicas)
	})
	if err != nil {
		return err
	}
	result.Phases = append(result.Phases, scaleOut)
	r.logger.V(1).Info("Deployment scaled", "deployment", name, "replicas", spec.TargetReplicas)

	scaleIn, err := r.converge(ctx, lifecycle.PhaseScaleIn, spec.InitReplicas, func() (string, error) {
		return name, r.issuer.RescaleDeployment(ctx, name, spec.InitReplicas)
	})
	if err != nil {
		return err
	}
	result.Phases = append(result.Phases, scaleIn)
	r.logger.V(1).Info("Deployment scaled", "deployment", name, "replicas", spec.InitReplicas)

	return r.issuer.DeleteDeployment(ctx, name)
}

// converge issues mutate and waits until the deployment it returns reports
// target ready replicas.
func (r *Runner) converge(
	ctx context.Context,
	phaseName string,
	target int32,
	mutate func() (string, error),
) (*lifecycle.PhaseRecord, error) {
	var phase *lifecycle.PhaseRecord

	span, err := r.timed("Deployment "+phaseName, func() error {
		start := r.clock.Now()
		name, err := mutate()
		if err != nil {
			return err
		}
		phase = &lifecycle.PhaseRecord{Name: phaseName, Resource: name, Target: target, StartedAt: start}

		pending, err := correlator.NewPendingSet(name)
		if err != nil {
			return err
		}
		return r.correlator.Await(ctx, phaseName, pending, r.issuer.WatchDeployments, correlator.ReadyReplicas(target),
			func(name string, at time.Time) error {
				if !phase.Reach(at) {
					return fmt.Errorf("deployment %s already reached %d replicas in phase %s", name, target, phaseName)
				}
				return nil
			})
	})
	if err != nil {
		return nil, err
	}

	r.logger.V(1).Info("Deployment converged", "phase", phaseName, "deployment", phase.Resource,
		"replicas", target, "seconds", seconds(span.Duration))
	return phase, nil
}
