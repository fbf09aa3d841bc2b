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
	"fmt"
	"sort"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/watch"
)

// State is the part of a resource snapshot the predicates look at.
type State struct {
	// Phase is set for pods
	Phase corev1.PodPhase
	// ReadyReplicas is set for deployments
	ReadyReplicas int32
}

// Event is a single notification from a watch stream, reduced to what
// correlation needs.
type Event struct {
	Kind            watch.EventType
	Name            string
	ResourceVersion string
	State           State
}

// FromWatchEvent converts a raw watch event for a pod or deployment. Errors,
// bookmarks and objects of other kinds are reported as not convertible.
func FromWatchEvent(ev watch.Event) (Event, bool) {
	switch ev.Type {
	case watch.Added, watch.Modified, watch.Deleted:
	default:
		return Event{}, false
	}

	accessor, err := meta.Accessor(ev.Object)
	if err != nil {
		return Event{}, false
	}

	out := Event{
		Kind:            ev.Type,
		Name:            accessor.GetName(),
		ResourceVersion: accessor.GetResourceVersion(),
	}

	switch obj := ev.Object.(type) {
	case *corev1.Pod:
		out.State.Phase = obj.Status.Phase
	case *appsv1.Deployment:
		out.State.ReadyReplicas = obj.Status.ReadyReplicas
	default:
		return Event{}, false
	}

	return out, true
}

// PendingSet is the set of resource names still awaiting a milestone.
type PendingSet struct {
	names sets.Set[string]
}

// NewPendingSet builds a pending set. Names must be unique; the API server's
// name generator guarantees this for resources created in one run.
func NewPendingSet(names ...string) (*PendingSet, error) {
	set := sets.New[string]()
	for _, name := range names {
		if set.Has(name) {
			return nil, fmt.Errorf("duplicate resource name %q in pending set", name)
		}
		set.Insert(name)
	}
	return &PendingSet{names: set}, nil
}

func (p *PendingSet) Has(name string) bool {
	return p.names.Has(name)
}

func (p *PendingSet) Remove(name string) {
	p.names.Delete(name)
}

func (p *PendingSet) Len() int {
	return p.names.Len()
}

// List returns the pending names sorted.
func (p *PendingSet) List() []string {
	names := p.names.UnsortedList()
	sort.Strings(names)
	return names
}
