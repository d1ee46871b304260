// Package faultscenario implements C8, the Fault Scenario Builder. Fault
// kinds form a closed tagged variant, per spec.md 9: each one is a single
// {ParamsSchema, YAMLTemplate} entry, grounded in the action set
// neogan74/k8s-chaos's ChaosExperiment controller actually implements
// (pod-kill, pod-delay/network-loss, node-drain, cpu/memory stress,
// pod-failure, pod-restart), extended with dns-chaos/http-chaos per
// original_source's dns_chaos.py/http_chaos.py and spec.md 6's fault
// enumeration.
package faultscenario

import "sort"

// Kind is one supported fault kind's identity plus its workflow-tool
// binding: the CRD kind/spec key the Experiment Compiler renders it
// under, the params a dry-run must accept, and which params are required.
type Kind struct {
	Name           string // matches Fault.Name / PlannedFault.Name
	CRDKind        string // templates/fault.yaml.tmpl's templateType
	SpecKey        string // the CRD's lower-camel spec field name
	RequiredParams []string
}

// Registry is the closed enumeration of fault kinds the engine supports.
// Adding a kind is adding one entry here, per spec.md 9.
var Registry = map[string]Kind{
	"pod-kill": {
		Name: "pod-kill", CRDKind: "PodChaos", SpecKey: "podChaos",
		RequiredParams: []string{"action", "mode", "selector"},
	},
	"pod-failure": {
		Name: "pod-failure", CRDKind: "PodChaos", SpecKey: "podChaos",
		RequiredParams: []string{"action", "mode", "selector", "duration"},
	},
	"network-delay": {
		Name: "network-delay", CRDKind: "NetworkChaos", SpecKey: "networkChaos",
		RequiredParams: []string{"action", "mode", "selector", "delay_ms", "duration"},
	},
	"network-loss": {
		Name: "network-loss", CRDKind: "NetworkChaos", SpecKey: "networkChaos",
		RequiredParams: []string{"action", "mode", "selector", "loss_percentage", "duration"},
	},
	"cpu-stress": {
		Name: "cpu-stress", CRDKind: "StressChaos", SpecKey: "stressChaos",
		RequiredParams: []string{"mode", "selector", "cpu_workers", "cpu_load", "duration"},
	},
	"memory-stress": {
		Name: "memory-stress", CRDKind: "StressChaos", SpecKey: "stressChaos",
		RequiredParams: []string{"mode", "selector", "memory_workers", "memory_size", "duration"},
	},
	"io-disk-fill": {
		Name: "io-disk-fill", CRDKind: "IOChaos", SpecKey: "ioChaos",
		RequiredParams: []string{"mode", "selector", "fill_percentage", "target_path", "duration"},
	},
	"node-drain": {
		Name: "node-drain", CRDKind: "NodeChaos", SpecKey: "nodeChaos",
		RequiredParams: []string{"selector", "duration"},
	},
	"time-offset": {
		Name: "time-offset", CRDKind: "TimeChaos", SpecKey: "timeChaos",
		RequiredParams: []string{"mode", "selector", "time_offset", "duration"},
	},
	"dns-chaos": {
		Name: "dns-chaos", CRDKind: "DNSChaos", SpecKey: "dnsChaos",
		RequiredParams: []string{"action", "mode", "selector", "duration"},
	},
	"http-chaos": {
		Name: "http-chaos", CRDKind: "HTTPChaos", SpecKey: "httpChaos",
		RequiredParams: []string{"mode", "selector", "port", "duration"},
	},
}

// Kinds returns the registry's names, sorted, for prompting the oracle
// with the available enumeration.
func Kinds() []string {
	out := make([]string, 0, len(Registry))
	for name := range Registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Validate returns the RequiredParams keys of kind's registered entry that
// are missing from params; an empty result means none are missing.
func (k Kind) Validate(params map[string]any) []string {
	var missing []string
	for _, req := range k.RequiredParams {
		if _, ok := params[req]; !ok {
			missing = append(missing, req)
		}
	}
	return missing
}
