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

package scenario_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	kbenchv1alpha1 "github.com/wesleyemery/kbench/api/v1alpha1"
	"github.com/wesleyemery/kbench/internal/config"
	"github.com/wesleyemery/kbench/internal/orchestrator"
	"github.com/wesleyemery/kbench/internal/scenario"
	"github.com/wesleyemery/kbench/internal/simulator"
	"github.com/wesleyemery/kbench/pkg/lifecycle"
)

const namespace = "default"

var _ = Describe("Runner against a simulated control plane", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		cp     *simulator.ControlPlane
		runner *scenario.Runner
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)

		logger := logf.Log.WithName("scenario-test")
		cp = simulator.New(
			simulator.WithDelays(20*time.Millisecond, 20*time.Millisecond, 10*time.Millisecond),
			simulator.WithVariance(0),
			simulator.WithLogger(logger),
		)
		issuer := orchestrator.NewIssuer(cp, namespace, "run-test", logger)
		runner = scenario.NewRunner(&config.Config{Timeout: 10 * time.Second}, issuer, scenario.WithLogger(logger))
	})

	AfterEach(func() {
		cancel()
		cp.Close()
	})

	Context("pod latency", func() {
		It("measures every pod one at a time", func() {
			spec := kbenchv1alpha1.BenchmarkSpec{
				Scenario: kbenchv1alpha1.ScenarioPodLatency,
				Image:    "nginx:1.17.2",
				NumPods:  5,
			}

			By("running five pods serially")
			result, err := runner.Run(ctx, spec)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Pods.Len()).To(Equal(5))
			Expect(result.Pods.StartupLatencies()).To(HaveLen(5))
			Expect(result.Pods.CleanupLatencies()).To(HaveLen(5))

			records := result.Pods.Records()
			for i, rec := range records {
				Expect(rec.Complete()).To(BeTrue(), rec.Name)
				if i > 0 {
					// the next pod is only created once the previous one exited
					Expect(rec.CreatedAt).NotTo(BeTemporally("<", *records[i-1].ExitedAt))
				}
			}

			By("leaving no pods behind")
			pods, err := cp.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(pods.Items).To(BeEmpty())
		})
	})

	Context("pod throughput", func() {
		It("creates every pod before waiting", func() {
			spec := kbenchv1alpha1.BenchmarkSpec{
				Scenario: kbenchv1alpha1.ScenarioPodThroughput,
				Image:    "nginx:1.17.2",
				NumPods:  5,
			}

			result, err := runner.Run(ctx, spec)
			Expect(err).NotTo(HaveOccurred())

			records := result.Pods.Records()
			Expect(records).To(HaveLen(5))
			lastCreated := records[len(records)-1].CreatedAt
			for _, rec := range records {
				Expect(rec.Complete()).To(BeTrue(), rec.Name)
				Expect(*rec.DeletedAt).To(BeTemporally(">=", lastCreated))
			}

			Expect(result.Spans).To(HaveLen(2))
			Expect(result.Spans[0].Name).To(Equal("Pod startup"))
			Expect(result.Spans[1].Name).To(Equal("Pod cleanup"))
		})
	})

	Context("deployment scaling", func() {
		It("times creation, scale-out and scale-in in order", func() {
			spec := kbenchv1alpha1.BenchmarkSpec{
				Scenario:       kbenchv1alpha1.ScenarioDeploymentScaling,
				Image:          "nginx:1.17.2",
				InitReplicas:   3,
				TargetReplicas: 5,
			}

			result, err := runner.Run(ctx, spec)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Phases).To(HaveLen(3))
			names := make([]string, 0, len(result.Phases))
			for _, phase := range result.Phases {
				names = append(names, phase.Name)
				_, ok := phase.Duration()
				Expect(ok).To(BeTrue(), phase.Name)
			}
			Expect(names).To(Equal([]string{lifecycle.PhaseCreation, lifecycle.PhaseScaleOut, lifecycle.PhaseScaleIn}))
			Expect(result.Phases[1].Target).To(BeEquivalentTo(5))

			By("deleting the deployment afterwards")
			deployments, err := cp.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(deployments.Items).To(BeEmpty())
		})
	})
})
