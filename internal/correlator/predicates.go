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
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/watch"
)

// PodRunning is satisfied by the first Added or Modified event that shows
// the pod in phase Running.
func PodRunning(_ string, ev Event) bool {
	return isUpsert(ev) && ev.State.Phase == corev1.PodRunning
}

// Removed is satisfied by the deletion notification.
func Removed(_ string, ev Event) bool {
	return ev.Kind == watch.Deleted
}

// ReadyReplicas is satisfied once a deployment reports exactly target ready
// replicas.
func ReadyReplicas(target int32) Predicate {
	return func(_ string, ev Event) bool {
		return isUpsert(ev) && ev.State.ReadyReplicas == target
	}
}

func isUpsert(ev Event) bool {
	return ev.Kind == watch.Added || ev.Kind == watch.Modified
}
