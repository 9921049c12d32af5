package assist

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// debugTrace is the advisory record rendered into DispatcherState.DebugLog.
type debugTrace struct {
	ExecutionID  string         `yaml:"execution_id"`
	Action       string         `yaml:"action"`
	DisplayName  string         `yaml:"display_name"`
	Timestamp    string         `yaml:"timestamp"`
	Duration     string         `yaml:"duration"`
	ResultKind   ResultKind     `yaml:"result_kind"`
	StyleHint    string         `yaml:"style_hint,omitempty"`
	Context      map[string]any `yaml:"context,omitempty"`
	Collaborator string         `yaml:"collaborator_debug,omitempty"`
}

// buildTrace collects the action's debug fields through its optional capabilities.
func buildTrace(executionID string, action Action, result ActionResult, started time.Time, d time.Duration, styleHint *string) debugTrace {
	t := debugTrace{
		ExecutionID: executionID,
		Action:      action.ID(),
		DisplayName: action.DisplayName(),
		Timestamp:   started.Format(time.RFC3339),
		Duration:    d.Round(time.Millisecond).String(),
		ResultKind:  result.Kind,
	}
	if styleHint != nil {
		t.StyleHint = *styleHint
	}
	t.Collaborator = collaboratorDebug(result)

	ctx := map[string]any{}
	if p, ok := action.(DebugContextProvider); ok {
		for k, v := range p.DebugContext() {
			ctx[k] = v
		}
	}
	if p, ok := action.(ResultDebugContextProvider); ok {
		for k, v := range p.ResultDebugContext(result) {
			ctx[k] = v
		}
	}
	if len(ctx) > 0 {
		t.Context = ctx
	}
	return t
}

// collaboratorDebug joins the Debug text of result and its parts.
func collaboratorDebug(result ActionResult) string {
	var parts []string
	if result.Debug != "" {
		parts = append(parts, result.Debug)
	}
	for _, p := range result.Parts {
		if d := collaboratorDebug(p); d != "" {
			parts = append(parts, d)
		}
	}
	return strings.Join(parts, "\n")
}

func (t debugTrace) render() string {
	out, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Sprintf("action: %s\ntimestamp: %s\ntrace_error: %v\n", t.Action, t.Timestamp, err)
	}
	return string(out)
}
