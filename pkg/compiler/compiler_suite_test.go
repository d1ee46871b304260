package compiler

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/richard-devbot/chaoshunter/pkg/model"
)

func TestCompilerSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Compiler Suite")
}

var _ = Describe("Compiler.Compile", func() {
	var c *Compiler

	BeforeEach(func() {
		c = &Compiler{Opts: Options{Namespace: "default", ProjectName: "chaoshunter", Image: "busybox", now: fixedClock}}
	})

	Context("with a well-formed hypothesis and plans", func() {
		It("binds a unique, sanitized workflow_name to every unit test and fault", func() {
			h := testHypothesis()
			pre, fault, post := testPlans()

			exp, err := c.Compile(h, pre, fault, post)
			Expect(err).NotTo(HaveOccurred())

			Expect(exp.Plan.PreValidation.UnitTests[0].WorkflowName).To(Equal("pre-unittest-pod-count"))
			Expect(exp.Plan.FaultInjection.FaultInjection[0].WorkflowName).To(Equal("fault-pod-kill"))
			Expect(exp.Plan.PostValidation.UnitTests[0].WorkflowName).To(Equal("post-unittest-pod-count"))
		})

		It("renders a workflow YAML that embeds every bound task name", func() {
			h := testHypothesis()
			pre, fault, post := testPlans()

			exp, err := c.Compile(h, pre, fault, post)
			Expect(err).NotTo(HaveOccurred())

			Expect(exp.Workflow.Content).To(ContainSubstring("entry:"))
			Expect(exp.Workflow.Content).To(ContainSubstring("pre-unittest-pod-count"))
			Expect(exp.Workflow.Content).To(ContainSubstring("fault-pod-kill"))
		})

		It("produces byte-identical output across repeated calls given a fixed clock", func() {
			h := testHypothesis()
			pre, fault, post := testPlans()

			first, err := c.Compile(h, pre, fault, post)
			Expect(err).NotTo(HaveOccurred())
			second, err := c.Compile(h, pre, fault, post)
			Expect(err).NotTo(HaveOccurred())

			Expect(first.Workflow.Content).To(Equal(second.Workflow.Content))
		})

		It("sums the three phase deadlines into the plan total", func() {
			h := testHypothesis()
			pre, fault, post := testPlans()

			exp, err := c.Compile(h, pre, fault, post)
			Expect(err).NotTo(HaveOccurred())

			ts := exp.Plan.TimeSchedule
			Expect(ts.Total).To(Equal(ts.PreValidation + ts.FaultInjection + ts.PostValidation + 3*model.DeadlineMargin))
		})
	})

	Context("when a planned unit test names a steady state that was never hypothesized", func() {
		It("returns an error instead of compiling a dangling reference", func() {
			h := model.Hypothesis{}
			pre := model.ValidationPhase{UnitTests: []model.PlannedUnitTest{{Name: "missing"}}}

			_, err := c.Compile(h, pre, model.FaultInjectionPhase{}, model.ValidationPhase{})
			Expect(err).To(HaveOccurred())
		})
	})

	Context("when every phase is empty", func() {
		It("refuses to compile a workflow with no tasks at all", func() {
			_, err := c.Compile(model.Hypothesis{}, model.ValidationPhase{}, model.FaultInjectionPhase{}, model.ValidationPhase{})
			Expect(err).To(HaveOccurred())
		})
	})
})
