// Package metrics registers the engine's Prometheus collectors against
// controller-runtime's global registry, following the one-var-block layout
// of neogan74/k8s-chaos's internal/metrics/metrics.go, generalized from
// per-fault-action labels to per-cycle-phase and per-component labels.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	// CyclesTotal counts cycles by terminal outcome (done, fail).
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaoshunter_cycles_total",
			Help: "Total number of CE cycles by terminal outcome",
		},
		[]string{"outcome"},
	)

	// PhaseDuration tracks wall-clock time spent in each cycle phase.
	PhaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chaoshunter_phase_duration_seconds",
			Help:    "Duration of each CE cycle phase in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"},
	)

	// ImprovementIterations tracks how many improve/replan iterations a
	// cycle needed before reaching DONE or FAIL.
	ImprovementIterations = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chaoshunter_improvement_iterations",
			Help:    "Number of improvement iterations per cycle",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 8, 13},
		},
		[]string{"outcome"},
	)

	// RetryExhaustions counts BudgetExceeded errors by component.
	RetryExhaustions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaoshunter_retry_exhaustions_total",
			Help: "Total number of retry-budget exhaustions by component",
		},
		[]string{"component"},
	)

	// LLMCallsTotal counts oracle calls by operation and outcome.
	LLMCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaoshunter_llm_calls_total",
			Help: "Total number of LLM Gateway calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// LLMCallDuration tracks oracle call latency.
	LLMCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chaoshunter_llm_call_duration_seconds",
			Help:    "Duration of LLM Gateway calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// InspectionRunsTotal counts Inspection Runner pod executions.
	InspectionRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaoshunter_inspection_runs_total",
			Help: "Total number of inspection pod runs by outcome",
		},
		[]string{"tool_type", "outcome"},
	)

	// ExperimentTasksTotal counts compiled workflow tasks by phase and
	// terminal exit status.
	ExperimentTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaoshunter_experiment_tasks_total",
			Help: "Total number of experiment workflow tasks by phase and outcome",
		},
		[]string{"phase", "outcome"},
	)

	// ExperimentRunsTotal counts Experiment Runner workflow executions by
	// whether every task passed.
	ExperimentRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chaoshunter_experiment_runs_total",
			Help: "Total number of experiment workflow runs by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	metrics.Registry.MustRegister(
		CyclesTotal,
		PhaseDuration,
		ImprovementIterations,
		RetryExhaustions,
		LLMCallsTotal,
		LLMCallDuration,
		InspectionRunsTotal,
		ExperimentTasksTotal,
		ExperimentRunsTotal,
	)
}
