package model

// CEInstructions is free-text operator guidance normalized into a
// structured form by the preprocessing stage's ce_instruct_agent.
type CEInstructions struct {
	TargetCompletion     string   `json:"target_completion,omitempty"`
	FaultPreferences     []string `json:"fault_preferences,omitempty"`
	SteadyStatePreferences []string `json:"steady_state_preferences,omitempty"`
}

// ProcessedData is the immutable input snapshot for one cycle.
//
// Invariant: len(K8sYAMLs) == len(K8sSummaries), each summary corresponding
// positionally to the YAML at the same index.
type ProcessedData struct {
	WorkDir            string         `json:"work_dir"`
	Input              string         `json:"input"`
	K8sYAMLs           []File         `json:"k8s_yamls"`
	K8sSummaries       []string       `json:"k8s_summaries"`
	K8sWeaknessSummary string         `json:"k8s_weakness_summary"`
	K8sApp             string         `json:"k8s_app"`
	CEInstructions     CEInstructions `json:"ce_instructions"`
}

// Valid reports whether the positional-summary invariant holds.
func (p ProcessedData) Valid() bool {
	return len(p.K8sYAMLs) == len(p.K8sSummaries)
}

// ToolType enumerates the inspection execution strategies.
type ToolType string

const (
	ToolProbeScript ToolType = "probe_script"
	ToolLoadTest    ToolType = "load_test"
)

// Inspection describes how a steady state's current value is measured.
// Result is populated only after a successful run through the Inspection
// Runner (C6).
type Inspection struct {
	ToolType ToolType `json:"tool_type"`
	Duration string   `json:"duration"`
	Script   File     `json:"script"`
	// VUs is only meaningful for ToolLoadTest; nil for a probe script.
	VUs    *int    `json:"vus,omitempty"`
	Result *string `json:"result,omitempty"`
}

// Threshold pairs a measured value bound with the rationale an oracle gave
// for choosing it.
type Threshold struct {
	Value     string `json:"value"`
	Rationale string `json:"rationale"`
}

// SteadyState is a measurable, named property whose unit test must pass
// against the pre-fault cluster before the state is considered valid.
type SteadyState struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Inspection  Inspection `json:"inspection"`
	Threshold   Threshold  `json:"threshold"`
	UnitTest    File       `json:"unit_test"`
}

// SteadyStates is the ordered set emitted by the Steady-State Builder (C7).
type SteadyStates []SteadyState

// Fault is a single typed disturbance. Params must validate against the
// fault kind's schema and a server-side dry-run before it is accepted.
type Fault struct {
	Name   string         `json:"name"`
	NameID int            `json:"name_id"`
	Params map[string]any `json:"params"`
}

// Wave is a set of faults injected simultaneously.
type Wave []Fault

// FaultScenario is a temporally ordered sequence of waves.
type FaultScenario struct {
	Event       string `json:"event"`
	Faults      []Wave `json:"faults"`
	Description string `json:"description"`
}

// Hypothesis pairs the steady states under test with the fault scenario
// that will be used to try to break them.
//
// Invariant: every Fault's declared scope must refer to a resource present
// in the owning ProcessedData's K8sYAMLs (checked by callers against the
// selector embedded in Fault.Params, since the schema is fault-kind
// specific and lives in pkg/faultscenario).
type Hypothesis struct {
	SteadyStates SteadyStates  `json:"steady_states"`
	Fault        FaultScenario `json:"fault"`
}
