// Package template implements C2, the Template Renderer: a pure function
// over embedded template assets. Fault kinds, pod probes, and workflow
// tree nodes are all rendered the same way — no template ever reaches
// into cluster state or the filesystem, so a given input always produces
// the same YAML.
package template

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"sigs.k8s.io/yaml"
)

//go:embed templates/*.tmpl
var assets embed.FS

var funcs = template.FuncMap{
	"toYAMLInline": toYAMLInline,
	"yamlParams":   yamlParams,
}

var tmplSet = template.Must(template.New("templates").Funcs(funcs).ParseFS(assets, "templates/*.tmpl"))

// Render executes the named embedded template (e.g. "task_probe.yaml",
// matched against the file "task_probe.yaml.tmpl") against data and
// returns the rendered text verbatim. It never touches the network or
// the filesystem beyond the compiled-in asset set.
func Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmplSet.ExecuteTemplate(&buf, name+".tmpl", data); err != nil {
		return "", fmt.Errorf("template: rendering %s: %w", name, err)
	}
	return buf.String(), nil
}

// toYAMLInline renders a string slice as a YAML flow sequence, e.g.
// ["sh", "-c", "probe.sh"]. Used for pod container commands, which the
// source templates always express inline.
func toYAMLInline(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = fmt.Sprintf("%q", it)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// yamlParams renders a params map (which may itself nest maps, e.g. a
// Chaos-Mesh selector object) as a block-style YAML fragment indented by
// indent spaces, via sigs.k8s.io/yaml.Marshal so nested objects serialize
// correctly instead of falling back to Go's map[...] syntax. Marshal
// converts through encoding/json first, which sorts map keys, so the
// Experiment Compiler's determinism guarantee (spec.md 4.9: identical
// inputs produce byte-identical YAML) still holds.
func yamlParams(params map[string]any, indent int) (string, error) {
	raw, err := yaml.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("template: marshaling params: %w", err)
	}
	pad := strings.Repeat(" ", indent)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	for i, l := range lines {
		if l == "" {
			continue
		}
		lines[i] = pad + l
	}
	return strings.Join(lines, "\n"), nil
}
