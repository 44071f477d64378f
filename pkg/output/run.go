package output

import (
	"encoding/json"
	"strings"
)

// WuInfo identifies the workunit a run produced. Fields are empty when the
// runner never announced them and are then encoded as null.
type WuInfo struct {
	Wuid  string `json:"wuid" yaml:"wuid"`
	State string `json:"state" yaml:"state"`
}

type nullableWuInfo struct {
	Wuid  *string `json:"wuid" yaml:"wuid"`
	State *string `json:"state" yaml:"state"`
}

func (w WuInfo) nullable() nullableWuInfo {
	return nullableWuInfo{Wuid: nullIfEmpty(w.Wuid), State: nullIfEmpty(w.State)}
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (w WuInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.nullable())
}

func (w WuInfo) MarshalYAML() (any, error) {
	return w.nullable(), nil
}

// MiscInfo holds the informational lines of a run.
type MiscInfo struct {
	Message []string `json:"message" yaml:"message"`
}

// RunError holds the lines that explain a failed run.
type RunError struct {
	Message []string `json:"message" yaml:"message"`
}

// RunResult is the structured outcome of one runner invocation.
type RunResult struct {
	WuInfo    WuInfo    `json:"wu_info" yaml:"wu_info"`
	MiscInfo  MiscInfo  `json:"misc_info" yaml:"misc_info"`
	Error     *RunError `json:"error,omitempty" yaml:"error,omitempty"`
	RawOutput string    `json:"raw_output" yaml:"raw_output"`
}

// Failed reports whether the run carries an error.
func (r *RunResult) Failed() bool {
	return r.Error != nil
}

// ParseRun classifies runner output in a single pass. Noise lines are
// dropped. The wuid and state lines are each consumed the first time they
// appear; later occurrences fall through to the remaining rules. Known error
// lines are collected and attached as Error only when no state was reported
// or the reported state is a failed one.
func (p *Parser) ParseRun(raw []byte) *RunResult {
	text := decode(raw)
	result := &RunResult{
		MiscInfo:  MiscInfo{Message: []string{}},
		RawOutput: text,
	}

	var (
		errorLines []string
		wuidFound  bool
		stateFound bool
	)
	for _, line := range lines(text) {
		if matchAny(p.runNoise, line) {
			continue
		}
		if !wuidFound {
			if m := p.wuid.FindStringSubmatch(line); m != nil {
				result.WuInfo.Wuid = m[1]
				wuidFound = true
				continue
			}
		}
		if !stateFound {
			if m := p.state.FindStringSubmatch(line); m != nil {
				result.WuInfo.State = m[1]
				stateFound = true
				continue
			}
		}
		if matchAny(p.runErrors, line) {
			errorLines = append(errorLines, line)
			continue
		}
		result.MiscInfo.Message = append(result.MiscInfo.Message, line)
	}

	if len(errorLines) > 0 && (!stateFound || p.isFailedState(result.WuInfo.State)) {
		result.Error = &RunError{Message: errorLines}
	}
	return result
}

func (p *Parser) isFailedState(state string) bool {
	_, ok := p.failedStates[strings.ToLower(state)]
	return ok
}
