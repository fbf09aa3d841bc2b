package lifecycle

import (
	"fmt"
	"time"
)

// Registry keeps records in creation order and indexes them by name.
type Registry struct {
	order   []*Record
	records map[string]*Record
}

func NewRegistry() *Registry {
	return &Registry{records: make(map[string]*Record)}
}

// Add registers a new record. Names are assigned by the API server and are
// unique within a run, so a duplicate is a caller error.
func (r *Registry) Add(name string, createdAt time.Time) (*Record, error) {
	if _, ok := r.records[name]; ok {
		return nil, fmt.Errorf("resource %s already registered", name)
	}
	rec := NewRecord(name, createdAt)
	r.order = append(r.order, rec)
	r.records[name] = rec
	return rec, nil
}

func (r *Registry) Get(name string) (*Record, bool) {
	rec, ok := r.records[name]
	return rec, ok
}

// Names returns the registered names in creation order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, rec := range r.order {
		names = append(names, rec.Name)
	}
	return names
}

// Records returns the records in creation order.
func (r *Registry) Records() []*Record {
	out := make([]*Record, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Len() int {
	return len(r.order)
}

// StartupLatencies collects the startup latency of every record that has one.
func (r *Registry) StartupLatencies() []time.Duration {
	return r.collect((*Record).StartupLatency)
}

// CleanupLatencies collects the cleanup latency of every record that has one.
func (r *Registry) CleanupLatencies() []time.Duration {
	return r.collect((*Record).CleanupLatency)
}

func (r *Registry) collect(f func(*Record) (time.Duration, bool)) []time.Duration {
	var out []time.Duration
	for _, rec := range r.order {
		if d, ok := f(rec); ok {
			out = append(out, d)
		}
	}
	return out
}
