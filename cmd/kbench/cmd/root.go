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

package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	kbenchv1alpha1 "github.com/wesleyemery/kbench/api/v1alpha1"
	"github.com/wesleyemery/kbench/internal/benchmark"
	"github.com/wesleyemery/kbench/internal/config"
)

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands are registered here.
func RootCmd(app *benchmark.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kbench",
		Short: "kbench measures Kubernetes control plane latency.",
		Long: `kbench measures how long it takes a Kubernetes cluster to converge after
a mutation: pod startup and cleanup, and deployment scale-out and scale-in.

Global flags can also be set through KBENCH_* environment variables, e.g.
KBENCH_KUBECONFIG or KBENCH_METRICS_FILE.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, app)
		},
	}

	config.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		versionCmd(app),
		podLatencyCmd(app),
		podThroughputCmd(app),
		deploymentScalingCmd(app),
	)

	return cmd
}

// Execute runs root and logs a failure once through the app logger.
func Execute(ctx context.Context, root *cobra.Command, app *benchmark.App) error {
	err := root.ExecuteContext(ctx)
	if err != nil {
		app.Logger.Error(err, "kbench failed")
	}
	return err
}

// Print version info and exit.
func versionCmd(app *benchmark.App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Version()
		},
	}
}

// Create and delete pods one at a time.
func podLatencyCmd(app *benchmark.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pod-latency",
		Short: "Measure pod startup and cleanup latency.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := podSpec(cmd, kbenchv1alpha1.ScenarioPodLatency)
			if err != nil {
				return err
			}
			return app.Run(cmd.Context(), spec)
		},
	}
	addPodFlags(cmd)
	return cmd
}

// Create a batch of pods, then delete it.
func podThroughputCmd(app *benchmark.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pod-throughput",
		Short: "Measure pod startup and cleanup throughput.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := podSpec(cmd, kbenchv1alpha1.ScenarioPodThroughput)
			if err != nil {
				return err
			}
			return app.Run(cmd.Context(), spec)
		},
	}
	addPodFlags(cmd)
	return cmd
}

// Scale a deployment out and back in.
func deploymentScalingCmd(app *benchmark.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deployment-scaling",
		Short: "Measure deployment scale-in/out latency.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := cmd.Flags().GetString("image")
			if err != nil {
				return err
			}
			initReplicas, err := cmd.Flags().GetInt32("num-init-replicas")
			if err != nil {
				return err
			}
			targetReplicas, err := cmd.Flags().GetInt32("num-target-replicas")
			if err != nil {
				return err
			}

			return app.Run(cmd.Context(), kbenchv1alpha1.BenchmarkSpec{
				Scenario:       kbenchv1alpha1.ScenarioDeploymentScaling,
				Image:          image,
				InitReplicas:   initReplicas,
				TargetReplicas: targetReplicas,
			})
		},
	}

	cmd.Flags().StringP("image", "i", kbenchv1alpha1.DefaultImage, "Container image to use.")
	cmd.Flags().Int32P("num-init-replicas", "m", kbenchv1alpha1.DefaultInitReplicas, "Initial number of replicas.")
	cmd.Flags().Int32P("num-target-replicas", "n", kbenchv1alpha1.DefaultTargetReplicas, "Target number of replicas.")

	return cmd
}

func addPodFlags(cmd *cobra.Command) {
	cmd.Flags().Int32P("num-pods", "n", kbenchv1alpha1.DefaultNumPods, "Number of pods to launch.")
	cmd.Flags().StringP("image", "i", kbenchv1alpha1.DefaultImage, "Container image to use.")
	cmd.Flags().Bool("timings", false, "Print timings for all pods.")
	cmd.Flags().Bool("no-timings", false, "Do not print timings for each pod.")
	cmd.MarkFlagsMutuallyExclusive("timings", "no-timings")
	cmd.Flags().StringArray("node-selector", nil, "Node selector as key=value, may be repeated.")
}

func podSpec(cmd *cobra.Command, scenario kbenchv1alpha1.ScenarioType) (kbenchv1alpha1.BenchmarkSpec, error) {
	numPods, err := cmd.Flags().GetInt32("num-pods")
	if err != nil {
		return kbenchv1alpha1.BenchmarkSpec{}, err
	}
	image, err := cmd.Flags().GetString("image")
	if err != nil {
		return kbenchv1alpha1.BenchmarkSpec{}, err
	}
	pairs, err := cmd.Flags().GetStringArray("node-selector")
	if err != nil {
		return kbenchv1alpha1.BenchmarkSpec{}, err
	}
	nodeSelector, err := kbenchv1alpha1.ParseNodeSelector(pairs)
	if err != nil {
		return kbenchv1alpha1.BenchmarkSpec{}, err
	}

	return kbenchv1alpha1.BenchmarkSpec{
		Scenario:     scenario,
		Image:        image,
		NumPods:      numPods,
		NodeSelector: nodeSelector,
	}, nil
}

// initParams loads the global configuration and installs the logger.
func initParams(cmd *cobra.Command, app *benchmark.App) error {
	v, err := config.NewViper(cmd.Flags())
	if err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	app.Config = cfg

	level := zapcore.InfoLevel
	if cfg.Verbose {
		level = zapcore.DebugLevel
	}
	logger := zap.New(zap.UseDevMode(true), zap.Level(level), zap.WriteTo(cmd.ErrOrStderr()))
	ctrl.SetLogger(logger)
	app.Logger = logger.WithName("kbench")

	return nil
}
