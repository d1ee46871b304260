package model

// CyclePhase is one state in the C12 Cycle Engine state machine.
type CyclePhase string

const (
	PhaseIdle        CyclePhase = "IDLE"
	PhasePreprocess  CyclePhase = "PREPROCESS"
	PhaseHypothesis  CyclePhase = "HYPOTHESIS"
	PhasePlan        CyclePhase = "PLAN"
	PhaseRun         CyclePhase = "RUN"
	PhaseAnalyze     CyclePhase = "ANALYZE"
	PhaseImprove     CyclePhase = "IMPROVE"
	PhaseReplan      CyclePhase = "REPLAN"
	PhasePostprocess CyclePhase = "POSTPROCESS"
	PhaseDone        CyclePhase = "DONE"
	PhaseFail        CyclePhase = "FAIL"
)

// CycleState is the C12-owned aggregate persisted after every phase
// boundary. Components receive read-only views derived from it and return
// fresh values; they never mutate it directly.
//
// Invariants (spec.md §3, §8, §9):
//   - len(ResultHistory) == len(AnalysisHistory)+1 when the last recorded
//     result passed; len(ResultHistory) == len(AnalysisHistory) when the
//     cycle hit BudgetExceeded after a failing result. Never padded to
//     force equality.
//   - len(AnalysisHistory) == len(ReconfigHistory).
type CycleState struct {
	Phase  CyclePhase `json:"phase"`
	WorkDir string    `json:"work_dir"`

	ProcessedData *ProcessedData   `json:"processed_data,omitempty"`
	Hypothesis    *Hypothesis      `json:"hypothesis,omitempty"`
	Experiment    *ChaosExperiment `json:"experiment,omitempty"`

	ResultHistory   []ExperimentResult `json:"result_history"`
	AnalysisHistory []Analysis         `json:"analysis_history"`
	ReconfigHistory []Reconfiguration  `json:"reconfig_history"`

	K8sYAMLsHistory [][]File `json:"k8s_yamls_history"`
	ModDirHistory   []string `json:"mod_dir_history"`

	ConductsReconfig  bool   `json:"conducts_reconfig"`
	CompletesReconfig bool   `json:"completes_reconfig"`
	Summary           string `json:"summary"`

	Error string `json:"error,omitempty"`
}

// LastResultPassed reports whether the most recent recorded experiment
// result passed in full. Returns false when there is no result yet.
func (c *CycleState) LastResultPassed() bool {
	if len(c.ResultHistory) == 0 {
		return false
	}
	return c.ResultHistory[len(c.ResultHistory)-1].AllPassed()
}

// HistoryBalanced reports whether the append-only history invariant holds:
// analyses trail results by exactly one unless the cycle ended on a
// failure, in which case they are equal.
func (c *CycleState) HistoryBalanced() bool {
	diff := len(c.ResultHistory) - len(c.AnalysisHistory)
	return diff == 0 || diff == 1
}

// AppendResult records a new experiment result and, when non-nil, its
// paired analysis and reconfiguration. A nil analysis/reconfig records the
// result alone; the cycle engine does this for every result and appends
// the analysis/reconfiguration of a failing one separately, later.
func (c *CycleState) AppendResult(result ExperimentResult, analysis *Analysis, reconfig *Reconfiguration) {
	c.ResultHistory = append(c.ResultHistory, result)
	if analysis != nil {
		c.AnalysisHistory = append(c.AnalysisHistory, *analysis)
	}
	if reconfig != nil {
		c.ReconfigHistory = append(c.ReconfigHistory, *reconfig)
	}
}
