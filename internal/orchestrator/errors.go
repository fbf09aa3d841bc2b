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

import "fmt"

// SetupError reports that the control plane could not be reached or
// authenticated against before any mutation was attempted.
type SetupError struct {
	Host string
	Err  error
}

func (e *SetupError) Error() string {
	if e.Host == "" {
		return fmt.Sprintf("failed connecting to Kubernetes master: %v", e.Err)
	}
	return fmt.Sprintf("failed connecting to Kubernetes master at %s: %v", e.Host, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// RequestError reports a create, delete or rescale call rejected by the API
// server. Requests are never retried.
type RequestError struct {
	Verb string
	Kind string
	Name string
	Err  error
}

func (e *RequestError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s %s: %v", e.Verb, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s %s: %v", e.Verb, e.Kind, e.Name, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
