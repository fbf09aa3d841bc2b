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

package correlator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/utils/clock"
)

// ErrDeadlineExceeded is matched by the error returned when a configured
// deadline expires before every pending resource reached its milestone.
var ErrDeadlineExceeded = errors.New("deadline exceeded waiting for resources")

// DeadlineExceededError names the resources that never reached the milestone.
type DeadlineExceededError struct {
	Milestone string
	Pending   []string
}

func (e *DeadlineExceededError) Error() string {
	return fmt.Sprintf("%s: %d resource(s) still awaiting %s: %s",
		ErrDeadlineExceeded, len(e.Pending), e.Milestone, strings.Join(e.Pending, ", "))
}

func (e *DeadlineExceededError) Is(target error) bool {
	return target == ErrDeadlineExceeded
}

// StreamError is returned when the watch stream could not be opened or
// reported an error the correlator cannot recover from.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("watch stream failed: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// OpenFunc opens a watch stream. An empty resourceVersion starts from the
// current state, which the server replays as Added events.
type OpenFunc func(ctx context.Context, resourceVersion string) (watch.Interface, error)

// Predicate decides whether ev satisfies the milestone awaited for name.
type Predicate func(name string, ev Event) bool

// StampFunc records that name reached the awaited milestone at the given time.
type StampFunc func(name string, at time.Time) error

// Correlator matches watch events against pending expectations.
type Correlator struct {
	clock    clock.Clock
	logger   logr.Logger
	deadline time.Duration
	backoff  wait.Backoff
}

type Option func(*Correlator)

// WithClock sets the clock used for stamps.
func WithClock(c clock.Clock) Option {
	return func(cr *Correlator) {
		cr.clock = c
	}
}

func WithLogger(logger logr.Logger) Option {
	return func(cr *Correlator) {
		cr.logger = logger
	}
}

// WithDeadline bounds every Await call. Zero waits forever.
func WithDeadline(d time.Duration) Option {
	return func(cr *Correlator) {
		cr.deadline = d
	}
}

func New(opts ...Option) *Correlator {
	c := &Correlator{
		clock:  clock.RealClock{},
		logger: logr.Discard(),
		backoff: wait.Backoff{
			Duration: 100 * time.Millisecond,
			Factor:   2,
			Steps:    6,
			Cap:      5 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Await blocks until every name in pending has been stamped. Events are
// consumed once, in arrival order; an event stamps its resource when the
// name is still pending and satisfied holds. The stream is stopped before
// Await returns.
//
// When the server ends the stream the watch is reopened from the last seen
// resource version. Without a deadline a resource that never satisfies the
// predicate blocks Await until ctx is cancelled.
func (c *Correlator) Await(
	ctx context.Context,
	milestone string,
	pending *PendingSet,
	open OpenFunc,
	satisfied Predicate,
	stamp StampFunc,
) error {
	if pending.Len() == 0 {
		return nil
	}

	if c.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.deadline)
		defer cancel()
	}

	logger := c.logger.WithValues("milestone", milestone)
	logger.V(1).Info("Awaiting resources", "pending", pending.Len())

	backoff := c.backoff
	resourceVersion := ""

	for {
		w, err := open(ctx, resourceVersion)
		if err != nil {
			if ctx.Err() != nil {
				return c.interrupted(ctx, milestone, pending)
			}
			return &StreamError{Err: err}
		}

		received, err := c.consume(ctx, w, milestone, pending, satisfied, stamp, &resourceVersion)
		w.Stop()
		if err != nil {
			return err
		}
		if pending.Len() == 0 {
			return nil
		}

		logger.V(1).Info("Watch stream closed, reopening",
			"resourceVersion", resourceVersion, "pending", pending.Len())

		if received > 0 {
			backoff = c.backoff
			continue
		}
		select {
		case <-ctx.Done():
			return c.interrupted(ctx, milestone, pending)
		case <-c.clock.After(backoff.Step()):
		}
	}
}

// consume drains one stream. It returns the number of events received and
// a nil error when the stream ended or the pending set emptied.
func (c *Correlator) consume(
	ctx context.Context,
	w watch.Interface,
	milestone string,
	pending *PendingSet,
	satisfied Predicate,
	stamp StampFunc,
	resourceVersion *string,
) (int, error) {
	received := 0
	for {
		select {
		case <-ctx.Done():
			return received, c.interrupted(ctx, milestone, pending)
		case raw, ok := <-w.ResultChan():
			if !ok {
				return received, nil
			}
			received++

			if raw.Type == watch.Error {
				err := apierrors.FromObject(raw.Object)
				if apierrors.IsResourceExpired(err) || apierrors.IsGone(err) {
					// history compacted, start again from a fresh list
					*resourceVersion = ""
					return received, nil
				}
				return received, &StreamError{Err: err}
			}

			ev, ok := FromWatchEvent(raw)
			if !ok {
				continue
			}
			*resourceVersion = ev.ResourceVersion

			if !pending.Has(ev.Name) || !satisfied(ev.Name, ev) {
				continue
			}

			if err := stamp(ev.Name, c.clock.Now()); err != nil {
				return received, err
			}
			pending.Remove(ev.Name)
			c.logger.V(1).Info("Resource reached milestone",
				"milestone", milestone, "name", ev.Name, "event", ev.Kind, "pending", pending.Len())

			if pending.Len() == 0 {
				return received, nil
			}
		}
	}
}

func (c *Correlator) interrupted(ctx context.Context, milestone string, pending *PendingSet) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &DeadlineExceededError{Milestone: milestone, Pending: pending.List()}
	}
	return ctx.Err()
}
