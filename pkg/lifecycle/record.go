package lifecycle

import (
	"errors"
	"fmt"
	"time"
)

// Milestone names an instant in a resource's lifecycle
type Milestone string

const (
	MilestoneCreated Milestone = "created"
	MilestoneReady   Milestone = "ready"
	MilestoneDeleted Milestone = "deleted"
	MilestoneExited  Milestone = "exited"
)

// ErrAlreadyStamped is returned when a milestone is stamped a second time.
var ErrAlreadyStamped = errors.New("milestone already stamped")

// ErrOutOfOrder is returned when a stamp would precede an earlier milestone.
var ErrOutOfOrder = errors.New("milestone stamped before an earlier milestone")

// Record holds the milestone timestamps of one tracked pod. All timestamps
// are taken from a clock with a monotonic reading, so only differences
// between them are meaningful.
type Record struct {
	Name      string
	CreatedAt time.Time
	ReadyAt   *time.Time
	DeletedAt *time.Time
	ExitedAt  *time.Time
}

// NewRecord registers a resource at the moment its create call returned.
func NewRecord(name string, createdAt time.Time) *Record {
	return &Record{Name: name, CreatedAt: createdAt}
}

// Stamp sets milestone m to t. Each milestone can be set once, and never
// earlier than the latest milestone already set.
func (r *Record) Stamp(m Milestone, t time.Time) error {
	var slot **time.Time
	switch m {
	case MilestoneReady:
		slot = &r.ReadyAt
	case MilestoneDeleted:
		slot = &r.DeletedAt
	case MilestoneExited:
		slot = &r.ExitedAt
	case MilestoneCreated:
		return fmt.Errorf("%w: %s %s", ErrAlreadyStamped, r.Name, m)
	default:
		return fmt.Errorf("unknown milestone %q", m)
	}

	if *slot != nil {
		return fmt.Errorf("%w: %s %s", ErrAlreadyStamped, r.Name, m)
	}
	if t.Before(r.latest()) {
		return fmt.Errorf("%w: %s %s", ErrOutOfOrder, r.Name, m)
	}

	*slot = &t
	return nil
}

func (r *Record) latest() time.Time {
	latest := r.CreatedAt
	for _, t := range []*time.Time{r.ReadyAt, r.DeletedAt, r.ExitedAt} {
		if t != nil && t.After(latest) {
			latest = *t
		}
	}
	return latest
}

// Complete reports whether all four milestones are set.
func (r *Record) Complete() bool {
	return r.ReadyAt != nil && r.DeletedAt != nil && r.ExitedAt != nil
}

// StartupLatency is the time from creation to the first Running observation.
func (r *Record) StartupLatency() (time.Duration, bool) {
	if r.ReadyAt == nil {
		return 0, false
	}
	return r.ReadyAt.Sub(r.CreatedAt), true
}

// CleanupLatency is the time from the delete call to the deletion notification.
func (r *Record) CleanupLatency() (time.Duration, bool) {
	if r.DeletedAt == nil || r.ExitedAt == nil {
		return 0, false
	}
	return r.ExitedAt.Sub(*r.DeletedAt), true
}

// Lifetime is the time from creation to the deletion notification.
func (r *Record) Lifetime() (time.Duration, bool) {
	if r.ExitedAt == nil {
		return 0, false
	}
	return r.ExitedAt.Sub(r.CreatedAt), true
}
