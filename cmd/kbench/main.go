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

package main

import (
	"os"

	// Import all Kubernetes client auth plugins (e.g. Azure, GCP, OIDC, etc.)
	_ "k8s.io/client-go/plugin/pkg/client/auth"

	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/wesleyemery/kbench/cmd/kbench/cmd"
	"github.com/wesleyemery/kbench/internal/benchmark"
)

// Global configuration is handled by internal/config.
func main() {
	ctx := ctrl.SetupSignalHandler()

	app := benchmark.New()
	// Replaced once the flags are parsed.
	app.Logger = zap.New(zap.UseDevMode(true)).WithName("kbench")

	if err := cmd.Execute(ctx, cmd.RootCmd(app), app); err != nil {
		os.Exit(1)
	}
}
