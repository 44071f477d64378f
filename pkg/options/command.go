package options

import (
	"context"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

const (
	CompilerTool = "eclcc"
	RunnerTool   = "ecl"

	compiledExt = ".eclxml"
)

// Command is a rendered tool invocation. Args holds argv; the string form is
// only used for display.
type Command struct {
	args   []string
	masked []string
}

// Args returns a copy of argv, program name first.
func (c Command) Args() []string {
	return slices.Clone(c.args)
}

func (c Command) String() string {
	return strings.Join(c.args, " ")
}

// Masked renders the command with password values hidden. It is meant for
// logs and display and must never be executed.
func (c Command) Masked() string {
	if c.masked == nil {
		return c.String()
	}
	return strings.Join(c.masked, " ")
}

// CompiledFileName derives the compiler output path from a source path by
// replacing its extension: a.ecl becomes a.eclxml.
func CompiledFileName(inputFile string) string {
	return strings.TrimSuffix(inputFile, filepath.Ext(inputFile)) + compiledExt
}

// CompileCommand validates opts and renders
//
//	eclcc [flag [value]]... inputFile
//
// When opts has no -o flag, one is derived from inputFile and appended. The
// resolved output path is returned alongside the command. opts is not
// modified.
func CompileCommand(opts *Options, inputFile string) (Command, string, error) {
	if err := opts.Validate(CompileAllowList); err != nil {
		return Command{}, "", err
	}

	resolved := opts.Clone()
	outputFile := CompiledFileName(inputFile)
	if o, ok := resolved.Get(OutputFileOption); ok {
		outputFile = o.Value
	} else {
		resolved.Set(OutputFileOption, outputFile)
	}

	args := append([]string{CompilerTool}, resolved.Args()...)
	args = append(args, inputFile)
	return Command{args: args}, outputFile, nil
}

// RunCommand validates opts and renders
//
//	ecl run targetFile [flag [value]]...
//
// opts is not modified.
func RunCommand(opts *Options, targetFile string) (Command, error) {
	if err := opts.Validate(RunAllowList); err != nil {
		return Command{}, err
	}

	head := []string{RunnerTool, "run", targetFile}
	args := append(slices.Clone(head), opts.Args()...)
	masked := append(slices.Clone(head), opts.render(maskPassword)...)
	return Command{args: args, masked: masked}, nil
}

func maskPassword(o Option) (string, bool) {
	if slices.Contains(PasswordOptions, o.Name) {
		return MaskedPassword, true
	}
	return "", false
}

// Credentials are the auth-derived values of a run command.
type Credentials struct {
	Server   string
	Port     string
	Username string
	Password string
}

// ClusterPicker chooses a target cluster for runs that do not name one.
type ClusterPicker interface {
	LeastActive(ctx context.Context) (string, error)
}

// RunSpec carries the values used to complete a caller's run options.
type RunSpec struct {
	Clusters    ClusterPicker
	JobName     string
	Credentials Credentials
	// OnOverride is called for every caller-supplied auth flag that is replaced.
	OnOverride func(flag string)
}

// Resolve returns a copy of opts completed for execution:
//   - --target from Clusters when absent,
//   - --job-name from JobName (whitespace replaced by underscores) when absent,
//   - --limit set to DefaultLimit when absent,
//   - auth flags always replaced by Credentials, appended last.
//
// Validation runs before any cluster lookup, so a ConfigError is returned
// without touching the platform.
func (s RunSpec) Resolve(ctx context.Context, opts *Options) (*Options, error) {
	if err := opts.Validate(RunAllowList); err != nil {
		return nil, err
	}
	resolved := opts.Clone()

	if !resolved.Has(ClusterOption) && s.Clusters != nil {
		cluster, err := s.Clusters.LeastActive(ctx)
		if err != nil {
			return nil, err
		}
		resolved.Set(ClusterOption, cluster)
	}
	if !resolved.Has(JobNameOption) && s.JobName != "" {
		resolved.Set(JobNameOption, SanitizeJobName(s.JobName))
	}
	if !resolved.Has(LimitOption) {
		resolved.Set(LimitOption, strconv.Itoa(DefaultLimit))
	}

	resolved.SetCredentials(s.Credentials, s.OnOverride)
	return resolved, nil
}

// SetCredentials removes every auth-derived flag and appends -s, --port, -u
// and -pw from c. onOverride, when non-nil, is called for each removed flag.
func (o *Options) SetCredentials(c Credentials, onOverride func(flag string)) {
	for _, name := range o.Names() {
		if slices.Contains(RunAuthOptions, name) {
			if onOverride != nil {
				onOverride(name)
			}
			o.Delete(name)
		}
	}
	o.Set(ServerOptions[0], c.Server)
	o.Set(PortOption, c.Port)
	o.Set(UserOptions[0], c.Username)
	o.Set(PasswordOptions[0], c.Password)
}

// SanitizeJobName replaces runs of whitespace with a single underscore.
func SanitizeJobName(name string) string {
	return strings.Join(strings.Fields(name), "_")
}
