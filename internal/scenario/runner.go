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

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/utils/clock"

	kbenchv1alpha1 "github.com/wesleyemery/kbench/api/v1alpha1"
	"github.com/wesleyemery/kbench/internal/config"
	"github.com/wesleyemery/kbench/internal/correlator"
	"github.com/wesleyemery/kbench/pkg/lifecycle"
)

// Issuer issues the mutations a scenario needs and opens the watch streams
// their convergence is observed on.
type Issuer interface {
	CreatePod(ctx context.Context, image string, nodeSelector map[string]string) (string, error)
	DeletePod(ctx context.Context, name string) error
	CreateDeployment(ctx context.Context, image string, replicas int32) (string, error)
	RescaleDeployment(ctx context.Context, name string, replicas int32) error
	DeleteDeployment(ctx context.Context, name string) error
	WatchPods(ctx context.Context, resourceVersion string) (watch.Interface, error)
	WatchDeployments(ctx context.Context, resourceVersion string) (watch.Interface, error)
}

// Span is the wall-clock duration of a whole benchmark phase.
type Span struct {
	Name     string
	Duration time.Duration
}

// Result holds everything a run measured.
type Result struct {
	Spec       kbenchv1alpha1.BenchmarkSpec
	StartedAt  time.Time
	FinishedAt time.Time

	// Pods holds one record per pod, in creation order
	Pods   *lifecycle.Registry
	Spans  []Span
	Phases []*lifecycle.PhaseRecord
}

// Runner drives benchmark scenarios. It runs on the calling goroutine and
// issues every mutation sequentially.
type Runner struct {
	cfg        *config.Config
	issuer     Issuer
	correlator *correlator.Correlator
	clock      clock.Clock
	logger     logr.Logger
}

type Option func(*Runner)

func WithClock(c clock.Clock) Option {
	return func(r *Runner) {
		r.clock = c
	}
}

func WithLogger(logger logr.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

func NewRunner(cfg *config.Config, issuer Issuer, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		issuer: issuer,
		clock:  clock.RealClock{},
		logger: logr.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.correlator = correlator.New(
		correlator.WithClock(r.clock),
		correlator.WithLogger(r.logger.WithName("correlator")),
		correlator.WithDeadline(cfg.Timeout),
	)
	return r
}

// Run executes the scenario named by spec. Any error aborts the run; the
// resources created so far are left in place.
func (r *Runner) Run(ctx context.Context, spec kbenchv1alpha1.BenchmarkSpec) (*Result, error) {
	result := &Result{
		Spec:      spec,
		StartedAt: r.clock.Now(),
		Pods:      lifecycle.NewRegistry(),
	}

	var err error
	switch spec.Scenario {
	case kbenchv1alpha1.ScenarioPodLatency:
		err = r.podLatency(ctx, spec, result)
	case kbenchv1alpha1.ScenarioPodThroughput:
		err = r.podThroughput(ctx, spec, result)
	case kbenchv1alpha1.ScenarioDeploymentScaling:
		err = r.deploymentScaling(ctx, spec, result)
	default:
		err = fmt.Errorf("unknown scenario %q", spec.Scenario)
	}
	if err != nil {
		return nil, err
	}

	result.FinishedAt = r.clock.Now()
	return result, nil
}

// timed runs f and logs how long it took.
func (r *Runner) timed(name string, f func() error) (Span, error) {
	start := r.clock.Now()
	if err := f(); err != nil {
		return Span{}, err
	}

	span := Span{Name: name, Duration: r.clock.Since(start)}
	r.logger.Info(name+" completed", "seconds", seconds(span.Duration))
	return span, nil
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
