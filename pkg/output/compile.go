package output

// CompileResult is the structured outcome of one compiler invocation.
type CompileResult struct {
	Status    string   `json:"status" yaml:"status"`
	Errors    []string `json:"errors,omitempty" yaml:"errors,omitempty"`
	RawOutput string   `json:"raw_output" yaml:"raw_output"`
	Command   string   `json:"bash_command,omitempty" yaml:"bash_command,omitempty"`
}

// Succeeded reports whether the compiler produced no error lines.
func (r *CompileResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// ParseCompile classifies every non-blank line of compiler output. A line is
// an error when it starts with one of the error prefixes or contains a located
// diagnostic. Each line is recorded at most once. command is the displayed
// command that produced the output.
func (p *Parser) ParseCompile(raw []byte, command string) *CompileResult {
	text := decode(raw)
	result := &CompileResult{
		Status:    StatusSuccess,
		RawOutput: text,
		Command:   command,
	}
	for _, line := range lines(text) {
		if matchAny(p.compileErrorPrefixes, line) || matchAny(p.compileErrorMiddle, line) {
			result.Errors = append(result.Errors, line)
		}
	}
	if len(result.Errors) > 0 {
		result.Status = StatusError
	}
	return result
}
