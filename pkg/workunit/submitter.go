package workunit

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/hpcc-systems/gohpcc/internal/shared/logging"
	"github.com/hpcc-systems/gohpcc/pkg/auth"
	"github.com/hpcc-systems/gohpcc/pkg/cluster"
	"github.com/hpcc-systems/gohpcc/pkg/esp"
	"github.com/hpcc-systems/gohpcc/pkg/hpccerr"
	"github.com/hpcc-systems/gohpcc/pkg/options"
	"github.com/hpcc-systems/gohpcc/pkg/output"
)

// maxWaitAttempts bounds how often a wait call is issued when it times out.
const maxWaitAttempts = 2

// Platform is the subset of the ESP client the lifecycle depends on.
type Platform interface {
	cluster.ActivitySource
	CreateWorkunit(ctx context.Context, req esp.CreateWorkunitRequest) (string, error)
	SubmitWorkunit(ctx context.Context, wuid, cluster string) error
	WaitCompiled(ctx context.Context, wuid string) (int, error)
	WaitComplete(ctx context.Context, wuid string) (int, error)
	RunWorkunit(ctx context.Context, wuid, cluster string) (string, error)
}

// Submitter runs one submission at a time. It remembers the job name and
// phase of the current submission and is not safe for concurrent use.
type Submitter struct {
	id       uuid.UUID
	auth     *auth.Auth
	platform Platform
	selector *cluster.Selector
	cluster1 string
	cluster2 string

	runner  Runner
	parser  *output.Parser
	logger  logging.Logger
	workDir string

	jobName string
	phase   Phase
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Submitter) {
		s.logger = logger
	}
}

// WithRunner replaces the child-process runner.
func WithRunner(r Runner) Option {
	return func(s *Submitter) {
		s.runner = r
	}
}

// WithWorkDir sets the directory source files are written to by Submit.
func WithWorkDir(dir string) Option {
	return func(s *Submitter) {
		s.workDir = dir
	}
}

// NewSubmitter creates a submitter for the server described by a. clusters
// are the candidates for runs that do not name a target; the first two are
// also the pair compared by the legacy flow.
func NewSubmitter(a *auth.Auth, platform Platform, clusters []string, opts ...Option) (*Submitter, error) {
	if a == nil {
		return nil, hpccerr.ErrNoAuth
	}
	selector, err := cluster.NewSelector(platform, clusters...)
	if err != nil {
		return nil, err
	}
	s := &Submitter{
		id:       uuid.New(),
		auth:     a,
		platform: platform,
		selector: selector,
		cluster1: clusters[0],
		cluster2: clusters[0],
		runner:   ExecRunner{},
		parser:   output.NewParser(),
		logger:   logging.NewNop(),
		workDir:  ".",
		phase:    PhaseNotStarted,
	}
	if len(clusters) > 1 {
		s.cluster2 = clusters[1]
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ID identifies the submitter in logs.
func (s *Submitter) ID() uuid.UUID {
	return s.id
}

// JobName returns the job name of the current submission.
func (s *Submitter) JobName() string {
	return s.jobName
}

// Phase returns the progress of the current submission.
func (s *Submitter) Phase() Phase {
	return s.phase
}

// CreateFileName writes query to <workDir>/<jobName>.ecl and makes jobName
// the current job name. An empty jobName is replaced by one derived from the
// submitter id.
func (s *Submitter) CreateFileName(query, workDir, jobName string) (string, error) {
	if strings.TrimSpace(jobName) == "" {
		jobName = "gohpcc_" + strings.SplitN(s.id.String(), "-", 2)[0]
	}
	path, err := WriteSource(query, workDir, jobName)
	if err != nil {
		return "", hpccerr.Wrap("write file", err)
	}
	s.jobName = jobName
	s.phase = PhaseFileWritten
	s.logger.Debug("Source file written", "submitter_id", s.id, "job_name", jobName, "file", path)
	return path, nil
}

// Compile compiles file with eclcc. nil opts selects the default compile
// options. Invalid options are returned as *hpccerr.ConfigError; failures to
// launch the compiler are wrapped. Diagnostics are reported in the result,
// not as an error. The second return value is the compiled file path.
func (s *Submitter) Compile(ctx context.Context, file string, opts *options.Options) (*output.CompileResult, string, error) {
	result, outputFile, err := s.compile(ctx, file, opts)
	switch {
	case err != nil:
		if !hpccerr.IsConfigError(err) {
			s.phase = PhaseFailed
		}
	case result.Succeeded():
		s.phase = PhaseCompiled
	default:
		s.phase = PhaseFailed
	}
	return result, outputFile, err
}

func (s *Submitter) compile(ctx context.Context, file string, opts *options.Options) (*output.CompileResult, string, error) {
	if opts == nil {
		opts = options.DefaultCompileOptions()
	}
	cmd, outputFile, err := options.CompileCommand(opts, file)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("Compiling", "submitter_id", s.id, "command", cmd.String())
	out, err := s.runner.Run(ctx, cmd)
	if err != nil {
		return nil, "", hpccerr.Wrap("compile", err)
	}

	result := s.parser.ParseCompile(out, cmd.String())
	if !result.Succeeded() {
		s.logger.Warn("Compilation failed", "submitter_id", s.id, "file", file, "errors", len(result.Errors))
	}
	return result, outputFile, nil
}

// CompileOutcome is the result of compiling one file with CompileAll.
type CompileOutcome struct {
	File       string                `json:"file" yaml:"file"`
	OutputFile string                `json:"output_file,omitempty" yaml:"output_file,omitempty"`
	Result     *output.CompileResult `json:"result,omitempty" yaml:"result,omitempty"`
	Err        error                 `json:"-" yaml:"-"`
}

// CompileAll compiles files on up to workers concurrent compiler processes.
// Outcomes are returned in the order of files. The runner must be safe for
// concurrent use. The submitter phase is not changed.
func (s *Submitter) CompileAll(ctx context.Context, files []string, opts *options.Options, workers int) []CompileOutcome {
	outcomes := make([]CompileOutcome, len(files))
	p := newPool(min(workers, len(files)))
	for i, file := range files {
		p.submit(func() {
			result, outputFile, err := s.compile(ctx, file, opts)
			outcomes[i] = CompileOutcome{File: file, OutputFile: outputFile, Result: result, Err: err}
		})
	}
	p.wait()
	return outcomes
}

// Run runs a compiled file with ecl run. nil opts selects the default run
// options. The target cluster, job name and result limit are filled in when
// absent and the auth flags always come from the server credentials.
func (s *Submitter) Run(ctx context.Context, compiledFile string, opts *options.Options) (*output.RunResult, error) {
	if opts == nil {
		opts = options.DefaultRunOptions()
	}
	if s.jobName == "" {
		base := filepath.Base(compiledFile)
		s.jobName = strings.TrimSuffix(base, filepath.Ext(base))
	}

	spec := options.RunSpec{
		Clusters:    s.selector,
		JobName:     s.jobName,
		Credentials: s.auth.Credentials(),
		OnOverride: func(flag string) {
			s.logger.Warn("Overriding auth option with server credentials", "submitter_id", s.id, "option", flag)
		},
	}
	resolved, err := spec.Resolve(ctx, opts)
	if err != nil {
		if hpccerr.IsConfigError(err) {
			return nil, err
		}
		return nil, hpccerr.Wrap("run", err)
	}
	cmd, err := options.RunCommand(resolved, compiledFile)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Running", "submitter_id", s.id, "job_name", s.jobName, "command", cmd.Masked())
	out, err := s.runner.Run(ctx, cmd)
	if err != nil {
		s.phase = PhaseFailed
		return nil, hpccerr.Wrap("run", err)
	}

	result := s.parser.ParseRun(out)
	s.phase = runPhase(result)
	s.logger.Info("Run finished", "submitter_id", s.id, "wuid", result.WuInfo.Wuid, "state", result.WuInfo.State)
	return result, nil
}

func runPhase(result *output.RunResult) Phase {
	if result.Failed() {
		return PhaseFailed
	}
	state, err := ParseState(result.WuInfo.State)
	switch {
	case err != nil:
		return PhaseSubmitted
	case state.IsFailed():
		return PhaseFailed
	case state == StateCompleted:
		return PhaseCompleted
	default:
		return PhaseSubmitted
	}
}

// Submission is the outcome of Submit.
type Submission struct {
	ID           string                `json:"id" yaml:"id"`
	JobName      string                `json:"job_name" yaml:"job_name"`
	SourceFile   string                `json:"source_file" yaml:"source_file"`
	CompiledFile string                `json:"compiled_file,omitempty" yaml:"compiled_file,omitempty"`
	Phase        Phase                 `json:"phase" yaml:"phase"`
	Compile      *output.CompileResult `json:"compile" yaml:"compile"`
	Run          *output.RunResult     `json:"run,omitempty" yaml:"run,omitempty"`
}

// Submit writes query to the work directory, compiles it and, when
// compilation succeeds, runs it.
func (s *Submitter) Submit(ctx context.Context, query, jobName string, compileOpts, runOpts *options.Options) (*Submission, error) {
	source, err := s.CreateFileName(query, s.workDir, jobName)
	if err != nil {
		return nil, err
	}
	sub := &Submission{ID: s.id.String(), JobName: s.jobName, SourceFile: source}

	compiled, compiledFile, err := s.Compile(ctx, source, compileOpts)
	if err != nil {
		return nil, err
	}
	sub.Compile = compiled
	if !compiled.Succeeded() {
		sub.Phase = s.phase
		return sub, nil
	}
	sub.CompiledFile = compiledFile

	run, err := s.Run(ctx, compiledFile, runOpts)
	if err != nil {
		return nil, err
	}
	sub.Run = run
	sub.Phase = s.phase
	return sub, nil
}

// LeastActiveCluster returns the configured cluster with the fewest running
// jobs.
func (s *Submitter) LeastActiveCluster(ctx context.Context) (string, error) {
	return s.selector.LeastActive(ctx)
}

// Workload returns the running job counts of the legacy cluster pair.
func (s *Submitter) Workload(ctx context.Context) (int, int, error) {
	return cluster.Workload(ctx, s.platform, s.cluster1, s.cluster2)
}

func (s *Submitter) legacyCluster(ctx context.Context, name string) (string, error) {
	if name != "" {
		return name, nil
	}
	n1, n2, err := s.Workload(ctx)
	if err != nil {
		return "", err
	}
	return cluster.PickLegacy(s.cluster1, s.cluster2, n1, n2), nil
}

// CreateWorkunit creates a workunit from query text and returns its wuid. An
// empty cluster is chosen by workload.
func (s *Submitter) CreateWorkunit(ctx context.Context, action, resultLimit int, query, jobName, clusterName string) (string, error) {
	target, err := s.legacyCluster(ctx, clusterName)
	if err != nil {
		return "", err
	}
	wuid, err := s.platform.CreateWorkunit(ctx, esp.CreateWorkunitRequest{
		Action:      action,
		ResultLimit: resultLimit,
		QueryText:   query,
		JobName:     jobName,
		Cluster:     target,
	})
	if err != nil {
		return "", hpccerr.Wrap("create workunit", err)
	}
	s.jobName = jobName
	s.logger.Info("Workunit created", "submitter_id", s.id, "wuid", wuid, "cluster", target)
	return wuid, nil
}

// CompileWorkunit submits a workunit for compilation and waits for it.
func (s *Submitter) CompileWorkunit(ctx context.Context, wuid, clusterName string) (State, error) {
	target, err := s.legacyCluster(ctx, clusterName)
	if err != nil {
		return StateUnknown, err
	}
	if err := s.platform.SubmitWorkunit(ctx, wuid, target); err != nil {
		return StateUnknown, hpccerr.Wrap("submit workunit", err)
	}
	return s.WaitCompiled(ctx, wuid)
}

// RunWorkunit runs a compiled workunit. When the run call itself times out
// the workunit is waited on until complete instead.
func (s *Submitter) RunWorkunit(ctx context.Context, wuid, clusterName string) (State, error) {
	target, err := s.legacyCluster(ctx, clusterName)
	if err != nil {
		return StateUnknown, err
	}
	name, err := s.platform.RunWorkunit(ctx, wuid, target)
	if err != nil {
		if esp.IsTimeout(err) && ctx.Err() == nil {
			s.logger.Info("Run timed out, waiting for completion", "submitter_id", s.id, "wuid", wuid)
			return s.WaitComplete(ctx, wuid)
		}
		return StateUnknown, hpccerr.Wrap("run workunit", err)
	}
	return ParseState(name)
}

// WaitCompiled waits for a workunit to compile. A timed out wait is issued
// once more; a second timeout is returned as is.
func (s *Submitter) WaitCompiled(ctx context.Context, wuid string) (State, error) {
	return s.waitWithRetry(ctx, "wait compiled", wuid, s.platform.WaitCompiled)
}

// WaitComplete waits for a workunit to finish, retrying one timeout like
// WaitCompiled.
func (s *Submitter) WaitComplete(ctx context.Context, wuid string) (State, error) {
	return s.waitWithRetry(ctx, "wait complete", wuid, s.platform.WaitComplete)
}

func (s *Submitter) waitWithRetry(ctx context.Context, op, wuid string, wait func(context.Context, string) (int, error)) (State, error) {
	var lastErr error
	for attempt := 1; attempt <= maxWaitAttempts; attempt++ {
		id, err := wait(ctx, wuid)
		if err == nil {
			return State(id), nil
		}
		lastErr = err
		if !esp.IsTimeout(err) || ctx.Err() != nil {
			break
		}
		s.logger.Info("Wait timed out", "submitter_id", s.id, "op", op, "wuid", wuid, "attempt", attempt)
	}
	if esp.IsTimeout(lastErr) {
		return StateUnknown, lastErr
	}
	return StateUnknown, hpccerr.Wrap(op, lastErr)
}
