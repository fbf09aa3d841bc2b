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
	"time"

	kbenchv1alpha1 "github.com/wesleyemery/kbench/api/v1alpha1"
	"github.com/wesleyemery/kbench/internal/correlator"
	"github.com/wesleyemery/kbench/pkg/lifecycle"
)

// podLatency creates, awaits, deletes and awaits one pod at a time.
func (r *Runner) podLatency(ctx context.Context, spec kbenchv1alpha1.BenchmarkSpec, result *Result) error {
	for i := int32(0); i < spec.NumPods; i++ {
		name, err := r.issuer.CreatePod(ctx, spec.Image, spec.NodeSelector)
		if err != nil {
			return err
		}
		rec, err := result.Pods.Add(name, r.clock.Now())
		if err != nil {
			return err
		}

		if err := r.awaitPods(ctx, result.Pods, lifecycle.MilestoneReady, correlator.PodRunning, name); err != nil {
			return err
		}

		if err := r.deletePod(ctx, rec); err != nil {
			return err
		}

		if err := r.awaitPods(ctx, result.Pods, lifecycle.MilestoneExited, correlator.Removed, name); err != nil {
			return err
		}
	}

	return nil
}

// podThroughput creates every pod back to back, waits for all of them, then
// does the same for deletion.
func (r *Runner) podThroughput(ctx context.Context, spec kbenchv1alpha1.BenchmarkSpec, result *Result) error {
	startup, err := r.timed("Pod startup", func() error {
		for i := int32(0); i < spec.NumPods; i++ {
			name, err := r.issuer.CreatePod(ctx, spec.Image, spec.NodeSelector)
			if err != nil {
				return err
			}
			if _, err := result.Pods.Add(name, r.clock.Now()); err != nil {
				return err
			}
		}

		r.logger.Info("Waiting for pods to start")
		return r.awaitPods(ctx, result.Pods, lifecycle.MilestoneReady, correlator.PodRunning, result.Pods.Names()...)
	})
	if err != nil {
		return err
	}
	result.Spans = append(result.Spans, startup)

	cleanup, err := r.timed("Pod cleanup", func() error {
		for _, rec := range result.Pods.Records() {
			if err := r.deletePod(ctx, rec); err != nil {
				return err
			}
		}

		r.logger.Info("Waiting for pods to exit")
		return r.awaitPods(ctx, result.Pods, lifecycle.MilestoneExited, correlator.Removed, result.Pods.Names()...)
	})
	if err != nil {
		return err
	}
	result.Spans = append(result.Spans, cleanup)

	return nil
}

func (r *Runner) deletePod(ctx context.Context, rec *lifecycle.Record) error {
	if err := r.issuer.DeletePod(ctx, rec.Name); err != nil {
		return err
	}
	return rec.Stamp(lifecycle.MilestoneDeleted, r.clock.Now())
}

// awaitPods blocks until every named pod reached milestone.
func (r *Runner) awaitPods(
	ctx context.Context,
	pods *lifecycle.Registry,
	milestone lifecycle.Milestone,
	satisfied correlator.Predicate,
	names ...string,
) error {
	pending, err := correlator.NewPendingSet(names...)
	if err != nil {
		return err
	}

	return r.correlator.Await(ctx, string(milestone), pending, r.issuer.WatchPods, satisfied,
		func(name string, at time.Time) error {
			rec, ok := pods.Get(name)
			if !ok {
				return nil
			}
			if err := rec.Stamp(milestone, at); err != nil {
				return err
			}
			r.logPodMilestone(rec, milestone)
			return nil
		})
}

func (r *Runner) logPodMilestone(rec *lifecycle.Record, milestone lifecycle.Milestone) {
	switch milestone {
	case lifecycle.MilestoneReady:
		if d, ok := rec.StartupLatency(); ok {
			r.logger.V(1).Info("Pod started", "pod", rec.Name, "seconds", seconds(d))
		}
	case lifecycle.MilestoneExited:
		if d, ok := rec.CleanupLatency(); ok {
			r.logger.V(1).Info("Pod exited", "pod", rec.Name, "seconds", seconds(d))
		}
	}
}
