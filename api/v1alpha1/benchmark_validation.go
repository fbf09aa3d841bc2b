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

package v1alpha1

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

const (
	DefaultNamespace      = "default"
	DefaultImage          = "nginx:1.17.2"
	DefaultNumPods        = 5
	DefaultInitReplicas   = 3
	DefaultTargetReplicas = 5
)

// Default fills an empty namespace and image. Pod and replica counts are
// left alone: zero is a valid target and the command line supplies their
// defaults.
func (s *BenchmarkSpec) Default() {
	if s.Namespace == "" {
		s.Namespace = DefaultNamespace
	}
	if s.Image == "" {
		s.Image = DefaultImage
	}
}

// Validate checks the spec of a run before anything is created
func (s *BenchmarkSpec) Validate() error {
	var allErrs field.ErrorList
	specPath := field.NewPath("spec")

	switch s.Scenario {
	case ScenarioPodLatency, ScenarioPodThroughput:
		if s.NumPods < 1 {
			allErrs = append(allErrs, field.Invalid(specPath.Child("numPods"), s.NumPods,
				"must be at least 1"))
		}
	case ScenarioDeploymentScaling:
		if s.InitReplicas < 1 {
			allErrs = append(allErrs, field.Invalid(specPath.Child("initReplicas"), s.InitReplicas,
				"must be at least 1"))
		}
		if s.TargetReplicas < 0 {
			allErrs = append(allErrs, field.Invalid(specPath.Child("targetReplicas"), s.TargetReplicas,
				"must not be negative"))
		}
	default:
		allErrs = append(allErrs, field.NotSupported(specPath.Child("scenario"), s.Scenario, []string{
			string(ScenarioPodLatency), string(ScenarioPodThroughput), string(ScenarioDeploymentScaling),
		}))
	}

	if s.Image == "" {
		allErrs = append(allErrs, field.Required(specPath.Child("image"), "container image is required"))
	}

	for _, msg := range validation.IsDNS1123Label(s.Namespace) {
		allErrs = append(allErrs, field.Invalid(specPath.Child("namespace"), s.Namespace, msg))
	}

	allErrs = append(allErrs, validateNodeSelector(s.NodeSelector, specPath.Child("nodeSelector"))...)

	if len(allErrs) == 0 {
		return nil
	}

	return fmt.Errorf("validation errors: %v", allErrs.ToAggregate())
}

func validateNodeSelector(selector map[string]string, path *field.Path) field.ErrorList {
	var allErrs field.ErrorList
	for key, value := range selector {
		for _, msg := range validation.IsQualifiedName(key) {
			allErrs = append(allErrs, field.Invalid(path.Key(key), key, msg))
		}
		for _, msg := range validation.IsValidLabelValue(value) {
			allErrs = append(allErrs, field.Invalid(path.Key(key), value, msg))
		}
	}
	return allErrs
}

// ParseNodeSelector turns repeated key=value flags into a node selector.
func ParseNodeSelector(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	selector := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid node selector %q: expected key=value", pair)
		}
		selector[key] = value
	}
	return selector, nil
}
