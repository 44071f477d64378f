package workunit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpcc-systems/gohpcc/pkg/auth"
	"github.com/hpcc-systems/gohpcc/pkg/cluster"
	"github.com/hpcc-systems/gohpcc/pkg/esp"
	"github.com/hpcc-systems/gohpcc/pkg/hpccerr"
	"github.com/hpcc-systems/gohpcc/pkg/options"
	"github.com/hpcc-systems/gohpcc/pkg/output"
)

type fakeRunner struct {
	outputs  map[string][]byte
	err      error
	commands []options.Command
}

func (r *fakeRunner) Run(_ context.Context, cmd options.Command) ([]byte, error) {
	r.commands = append(r.commands, cmd)
	if r.err != nil {
		return nil, r.err
	}
	return r.outputs[cmd.Args()[0]], nil
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

type fakePlatform struct {
	jobs          []cluster.RunningJob
	activityCalls int

	created esp.CreateWorkunitRequest
	wuid    string

	submitted []string

	waitErrs   []error
	waitState  int
	waitCalls  int
	runState   string
	runErr     error
	runCluster string
}

func (p *fakePlatform) RunningJobs(context.Context) ([]cluster.RunningJob, error) {
	p.activityCalls++
	return p.jobs, nil
}

func (p *fakePlatform) CreateWorkunit(_ context.Context, req esp.CreateWorkunitRequest) (string, error) {
	p.created = req
	if p.wuid == "" {
		return "", hpccerr.ErrWorkunitNotCreated
	}
	return p.wuid, nil
}

func (p *fakePlatform) SubmitWorkunit(_ context.Context, wuid, cluster string) error {
	p.submitted = append(p.submitted, wuid+"@"+cluster)
	return nil
}

func (p *fakePlatform) wait() (int, error) {
	p.waitCalls++
	if len(p.waitErrs) > 0 {
		err := p.waitErrs[0]
		p.waitErrs = p.waitErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	return p.waitState, nil
}

func (p *fakePlatform) WaitCompiled(context.Context, string) (int, error) {
	return p.wait()
}

func (p *fakePlatform) WaitComplete(context.Context, string) (int, error) {
	return p.wait()
}

func (p *fakePlatform) RunWorkunit(_ context.Context, _ string, cluster string) (string, error) {
	p.runCluster = cluster
	return p.runState, p.runErr
}

const deployedOutput = "Deployed\n   wuid: W20240701-115916\n   state: completed\n<Result>\n</Result>\n"

func newTestSubmitter(t *testing.T, platform *fakePlatform, runner *fakeRunner, clusters ...string) *Submitter {
	t.Helper()
	if len(clusters) == 0 {
		clusters = []string{"thor", "hthor"}
	}
	a := auth.New("university.hpccsystems.io", "testuser", "secret")
	s, err := NewSubmitter(a, platform, clusters, WithRunner(runner), WithWorkDir(t.TempDir()))
	require.NoError(t, err)
	return s
}

func TestNewSubmitter_NoClusters(t *testing.T) {
	_, err := NewSubmitter(auth.New("h", "u", "p"), &fakePlatform{}, nil)
	assert.ErrorIs(t, err, hpccerr.ErrNoClusters)
}

func TestNewSubmitter_NoAuth(t *testing.T) {
	s, err := NewSubmitter(nil, &fakePlatform{}, []string{"thor"})
	assert.ErrorIs(t, err, hpccerr.ErrNoAuth)
	assert.Nil(t, s)
}

func TestCreateFileName(t *testing.T) {
	s := newTestSubmitter(t, &fakePlatform{}, &fakeRunner{})
	dir := t.TempDir()

	path, err := s.CreateFileName("OUTPUT('x');", dir, "my job")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "my_job.ecl"), path)
	assert.Equal(t, "my job", s.JobName())
	assert.Equal(t, PhaseFileWritten, s.Phase())

	_, err = s.CreateFileName("x", filepath.Join(dir, "missing"), "job")
	var opErr *hpccerr.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.True(t, strings.HasPrefix(err.Error(), "could not write file"))
}

func TestCreateFileName_DefaultJobName(t *testing.T) {
	s := newTestSubmitter(t, &fakePlatform{}, &fakeRunner{})

	path, err := s.CreateFileName("x", t.TempDir(), " ")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "gohpcc_"))
	assert.True(t, strings.HasPrefix(s.JobName(), "gohpcc_"))
}

func TestCompile(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestSubmitter(t, &fakePlatform{}, runner)

	result, outputFile, err := s.Compile(context.Background(), "/usr/loc/Basic_job_submission.ecl", nil)
	require.NoError(t, err)

	assert.Equal(t, "/usr/loc/Basic_job_submission.eclxml", outputFile)
	assert.True(t, result.Succeeded())
	assert.Equal(t, PhaseCompiled, s.Phase())
	require.Len(t, runner.commands, 1)
	assert.Equal(t,
		[]string{"eclcc", "-platform", "thor", "-wu", "-E", "-o", "/usr/loc/Basic_job_submission.eclxml", "/usr/loc/Basic_job_submission.ecl"},
		runner.commands[0].Args(),
	)
	assert.Equal(t, runner.commands[0].String(), result.Command)
}

func TestCompile_Diagnostics(t *testing.T) {
	runner := &fakeRunner{outputs: map[string][]byte{
		"eclcc": []byte("job.ecl(1,8): error C2195: String constant is not terminated\n1 error, 0 warning\n"),
	}}
	s := newTestSubmitter(t, &fakePlatform{}, runner)

	result, _, err := s.Compile(context.Background(), "job.ecl", options.New())
	require.NoError(t, err)
	assert.Equal(t, output.StatusError, result.Status)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, PhaseFailed, s.Phase())
}

func TestCompile_Errors(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestSubmitter(t, &fakePlatform{}, runner)

	_, _, err := s.Compile(context.Background(), "job.ecl", options.New(options.Value("--target-bogus", "x")))
	assert.True(t, hpccerr.IsConfigError(err))
	assert.Empty(t, runner.commands)

	runner.err = errors.New("executable file not found in $PATH")
	_, _, err = s.Compile(context.Background(), "job.ecl", nil)
	assert.EqualError(t, err, "could not compile: executable file not found in $PATH")
}

func TestRun(t *testing.T) {
	platform := &fakePlatform{jobs: []cluster.RunningJob{{Wuid: "W1", Cluster: "thor"}}}
	runner := &fakeRunner{outputs: map[string][]byte{"ecl": []byte(deployedOutput)}}
	s := newTestSubmitter(t, platform, runner)
	_, err := s.CreateFileName("OUTPUT(1);", t.TempDir(), "Basic job submission")
	require.NoError(t, err)

	result, err := s.Run(context.Background(), "Basic_job_submission.eclxml", options.New(options.Flag("-v"), options.Value("-pw", "caller")))
	require.NoError(t, err)

	assert.Equal(t, output.WuInfo{Wuid: "W20240701-115916", State: "completed"}, result.WuInfo)
	assert.Equal(t, PhaseCompleted, s.Phase())
	assert.Equal(t, 1, platform.activityCalls)
	require.Len(t, runner.commands, 1)
	assert.Equal(t, []string{
		"ecl", "run", "Basic_job_submission.eclxml",
		"-v", "--target", "hthor", "--job-name", "Basic_job_submission", "--limit", "100",
		"-s", "university.hpccsystems.io", "--port", "8010", "-u", "testuser", "-pw", "secret",
	}, runner.commands[0].Args())
	assert.NotContains(t, runner.commands[0].Masked(), "secret")
}

func TestRun_CallerTargetSkipsActivity(t *testing.T) {
	platform := &fakePlatform{}
	runner := &fakeRunner{outputs: map[string][]byte{"ecl": []byte("401: Unauthorized Access\n")}}
	s := newTestSubmitter(t, platform, runner)

	result, err := s.Run(context.Background(), "/tmp/hello.eclxml", options.New(options.Value("--target", "roxie")))
	require.NoError(t, err)

	assert.Zero(t, platform.activityCalls)
	assert.True(t, result.Failed())
	assert.Equal(t, PhaseFailed, s.Phase())
	assert.Equal(t, "hello", s.JobName())
}

func TestRun_InvalidOptions(t *testing.T) {
	platform := &fakePlatform{}
	runner := &fakeRunner{}
	s := newTestSubmitter(t, platform, runner)

	_, err := s.Run(context.Background(), "job.eclxml", options.New(options.Flag("-platform")))
	assert.True(t, hpccerr.IsConfigError(err))
	assert.Zero(t, platform.activityCalls)
	assert.Empty(t, runner.commands)
}

func TestSubmit(t *testing.T) {
	runner := &fakeRunner{outputs: map[string][]byte{"ecl": []byte(deployedOutput)}}
	s := newTestSubmitter(t, &fakePlatform{}, runner, "thor")

	sub, err := s.Submit(context.Background(), "OUTPUT('HELLO WORLD');", "hello world", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, s.ID().String(), sub.ID)
	assert.Equal(t, "hello world", sub.JobName)
	assert.Equal(t, "hello_world.ecl", filepath.Base(sub.SourceFile))
	assert.Equal(t, "hello_world.eclxml", filepath.Base(sub.CompiledFile))
	assert.True(t, sub.Compile.Succeeded())
	require.NotNil(t, sub.Run)
	assert.Equal(t, PhaseCompleted, sub.Phase)
	require.Len(t, runner.commands, 2)

	content, err := os.ReadFile(sub.SourceFile)
	require.NoError(t, err)
	assert.Equal(t, "OUTPUT('HELLO WORLD');", string(content))
}

func TestSubmit_StopsAfterFailedCompile(t *testing.T) {
	runner := &fakeRunner{outputs: map[string][]byte{"eclcc": []byte("Error: File 'x' does not exist\n")}}
	s := newTestSubmitter(t, &fakePlatform{}, runner)

	sub, err := s.Submit(context.Background(), "x", "broken", nil, nil)
	require.NoError(t, err)

	assert.False(t, sub.Compile.Succeeded())
	assert.Nil(t, sub.Run)
	assert.Empty(t, sub.CompiledFile)
	assert.Equal(t, PhaseFailed, sub.Phase)
	assert.Len(t, runner.commands, 1)
}

func TestWaitWithRetry(t *testing.T) {
	other := errors.New("connection reset")
	tests := []struct {
		name      string
		errs      []error
		wantState State
		wantCalls int
		wantErr   error
		wantWrap  bool
	}{
		{name: "first attempt succeeds", wantState: StateCompleted, wantCalls: 1},
		{name: "one timeout retried", errs: []error{timeoutError{}}, wantState: StateCompleted, wantCalls: 2},
		{name: "second timeout propagates", errs: []error{timeoutError{}, timeoutError{}}, wantCalls: 2, wantErr: timeoutError{}},
		{name: "other errors not retried", errs: []error{other}, wantCalls: 1, wantErr: other, wantWrap: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			platform := &fakePlatform{waitErrs: tc.errs, waitState: int(StateCompleted)}
			s := newTestSubmitter(t, platform, &fakeRunner{})

			state, err := s.WaitComplete(context.Background(), "W20240701-115916")

			assert.Equal(t, tc.wantCalls, platform.waitCalls)
			if tc.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, tc.wantState, state)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
			var opErr *hpccerr.OperationError
			assert.Equal(t, tc.wantWrap, errors.As(err, &opErr))
		})
	}
}

func TestLegacyFlow(t *testing.T) {
	platform := &fakePlatform{
		jobs:      []cluster.RunningJob{{Cluster: "hthor"}, {Cluster: "hthor"}, {Cluster: "thor"}},
		wuid:      "W20240701-115916",
		waitState: int(StateCompiled),
		runState:  "completed",
	}
	s := newTestSubmitter(t, platform, &fakeRunner{})
	ctx := context.Background()

	wuid, err := s.CreateWorkunit(ctx, 1, 100, "OUTPUT(1);", "legacy", "")
	require.NoError(t, err)
	assert.Equal(t, "W20240701-115916", wuid)
	assert.Equal(t, "thor", platform.created.Cluster)
	assert.Equal(t, "OUTPUT(1);", platform.created.QueryText)

	state, err := s.CompileWorkunit(ctx, wuid, "roxie")
	require.NoError(t, err)
	assert.Equal(t, StateCompiled, state)
	assert.Equal(t, []string{"W20240701-115916@roxie"}, platform.submitted)

	state, err = s.RunWorkunit(ctx, wuid, "")
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, state)
	assert.Equal(t, "thor", platform.runCluster)
}

func TestCreateWorkunit_NotCreated(t *testing.T) {
	s := newTestSubmitter(t, &fakePlatform{}, &fakeRunner{})

	_, err := s.CreateWorkunit(context.Background(), 1, 100, "x", "job", "thor")
	assert.ErrorIs(t, err, hpccerr.ErrWorkunitNotCreated)
}

func TestRunWorkunit_TimeoutFallsBackToWait(t *testing.T) {
	platform := &fakePlatform{runErr: timeoutError{}, waitState: int(StateCompleted)}
	s := newTestSubmitter(t, platform, &fakeRunner{})

	state, err := s.RunWorkunit(context.Background(), "W1", "thor")
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, state)
	assert.Equal(t, 1, platform.waitCalls)
}

func TestWorkloadAndLeastActive(t *testing.T) {
	platform := &fakePlatform{jobs: []cluster.RunningJob{{Cluster: "thor"}, {Cluster: "thor"}, {Cluster: "hthor"}}}
	s := newTestSubmitter(t, platform, &fakeRunner{})
	ctx := context.Background()

	n1, n2, err := s.Workload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n1)
	assert.Equal(t, 1, n2)

	least, err := s.LeastActiveCluster(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hthor", least)
}

type syncRunner struct {
	mu    sync.Mutex
	calls int
}

func (r *syncRunner) Run(_ context.Context, cmd options.Command) ([]byte, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if strings.Contains(cmd.String(), "broken") {
		return []byte("Error: File 'broken.ecl' does not exist\n"), nil
	}
	return nil, nil
}

func TestCompileAll(t *testing.T) {
	runner := &syncRunner{}
	s := newTestSubmitter(t, &fakePlatform{}, &fakeRunner{})
	s.runner = runner

	files := []string{"a.ecl", "broken.ecl", "c.ecl", "d.ecl"}
	outcomes := s.CompileAll(context.Background(), files, nil, 3)

	require.Len(t, outcomes, len(files))
	assert.Equal(t, 4, runner.calls)
	for i, o := range outcomes {
		assert.Equal(t, files[i], o.File)
		require.NoError(t, o.Err)
	}
	assert.True(t, outcomes[0].Result.Succeeded())
	assert.False(t, outcomes[1].Result.Succeeded())
	assert.Equal(t, "d.eclxml", outcomes[3].OutputFile)
	assert.Equal(t, PhaseNotStarted, s.Phase())
}

func TestCompileAll_InvalidOptions(t *testing.T) {
	runner := &syncRunner{}
	s := newTestSubmitter(t, &fakePlatform{}, &fakeRunner{})
	s.runner = runner

	outcomes := s.CompileAll(context.Background(), []string{"a.ecl", "b.ecl"}, options.New(options.Flag("-bogus")), 2)

	for _, o := range outcomes {
		assert.True(t, hpccerr.IsConfigError(o.Err))
	}
	assert.Zero(t, runner.calls)
}
