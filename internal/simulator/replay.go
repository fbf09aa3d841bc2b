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
	"sync"

	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/watch"
)

// replayWatcher emits the objects that existed when the watch was opened as
// Added events, then forwards the live stream.
type replayWatcher struct {
	inner  watch.Interface
	result chan watch.Event
	done   chan struct{}
	once   sync.Once
}

func newReplayWatcher(inner watch.Interface, current []runtime.Object) *replayWatcher {
	w := &replayWatcher{
		inner:  inner,
		result: make(chan watch.Event),
		done:   make(chan struct{}),
	}
	go w.run(current)
	return w
}

func (w *replayWatcher) run(current []runtime.Object) {
	defer close(w.result)

	for _, obj := range current {
		if !w.send(watch.Event{Type: watch.Added, Object: obj}) {
			return
		}
	}
	for ev := range w.inner.ResultChan() {
		if !w.send(ev) {
			return
		}
	}
}

func (w *replayWatcher) send(ev watch.Event) bool {
	select {
	case <-w.done:
		return false
	case w.result <- ev:
		return true
	}
}

func (w *replayWatcher) Stop() {
	w.once.Do(func() {
		close(w.done)
		w.inner.Stop()
	})
}

func (w *replayWatcher) ResultChan() <-chan watch.Event {
	return w.result
}
