package cluster

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpcc-systems/gohpcc/pkg/hpccerr"
)

type fakeSource struct {
	jobs  []RunningJob
	err   error
	calls int
}

func (f *fakeSource) RunningJobs(context.Context) ([]RunningJob, error) {
	f.calls++
	return f.jobs, f.err
}

func running(clusters ...string) []RunningJob {
	jobs := make([]RunningJob, len(clusters))
	for i, c := range clusters {
		jobs[i] = RunningJob{Wuid: "W20240701-11591" + string(rune('0'+i)), Cluster: c}
	}
	return jobs
}

func TestNewSelector_RequiresCandidates(t *testing.T) {
	_, err := NewSelector(&fakeSource{})
	assert.ErrorIs(t, err, hpccerr.ErrNoClusters)
}

func TestSelector_LeastActive(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		jobs       []RunningJob
		want       string
	}{
		{
			name:       "duplicates and ties",
			candidates: []string{"thor", "hthor", "thor", "dthor"},
			jobs:       running("thor", "hthor", "thor", "dthor"),
			want:       "hthor",
		},
		{
			name:       "idle cluster wins",
			candidates: []string{"thor", "roxie"},
			jobs:       running("thor"),
			want:       "roxie",
		},
		{
			name:       "unknown clusters ignored",
			candidates: []string{"thor", "hthor"},
			jobs:       running("roxie", "roxie", "hthor"),
			want:       "thor",
		},
		{
			name:       "empty snapshot picks first",
			candidates: []string{"hthor", "thor"},
			want:       "hthor",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			source := &fakeSource{jobs: tc.jobs}
			selector, err := NewSelector(source, tc.candidates...)
			require.NoError(t, err)

			got, err := selector.LeastActive(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, 1, source.calls)

			again, err := selector.LeastActive(context.Background())
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestSelector_SingleCandidateSkipsSource(t *testing.T) {
	for _, candidates := range [][]string{{"thor"}, {"thor", "thor"}} {
		source := &fakeSource{err: errors.New("must not be called")}
		selector, err := NewSelector(source, candidates...)
		require.NoError(t, err)

		got, err := selector.LeastActive(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "thor", got)
		assert.Zero(t, source.calls)
	}
}

func TestSelector_SourceError(t *testing.T) {
	boom := errors.New("connection refused")
	selector, err := NewSelector(&fakeSource{err: boom}, "thor", "hthor")
	require.NoError(t, err)

	_, err = selector.LeastActive(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestSelector_Candidates(t *testing.T) {
	selector, err := NewSelector(nil, "thor", "hthor", "thor")
	require.NoError(t, err)
	assert.Equal(t, []string{"thor", "hthor"}, selector.Candidates())
}

func TestWorkload(t *testing.T) {
	source := ActivitySourceFunc(func(context.Context) ([]RunningJob, error) {
		return running("thor", "hthor", "thor", "roxie"), nil
	})

	n1, n2, err := Workload(context.Background(), source, "thor", "hthor")
	require.NoError(t, err)
	assert.Equal(t, 2, n1)
	assert.Equal(t, 1, n2)
}

func TestWorkload_Error(t *testing.T) {
	source := ActivitySourceFunc(func(context.Context) ([]RunningJob, error) {
		return nil, errors.New("timeout")
	})

	_, _, err := Workload(context.Background(), source, "thor", "hthor")
	var opErr *hpccerr.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "could not get workload: timeout", err.Error())
}

func TestPickLegacy(t *testing.T) {
	assert.Equal(t, "thor", PickLegacy("thor", "hthor", 1, 2))
	assert.Equal(t, "hthor", PickLegacy("thor", "hthor", 2, 1))
	assert.Equal(t, "hthor", PickLegacy("thor", "hthor", 0, 0))
}
