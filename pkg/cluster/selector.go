// Package cluster chooses the target cluster for a run from the platform's
// live activity.
package cluster

import (
	"context"
	"fmt"

	"github.com/hpcc-systems/gohpcc/pkg/hpccerr"
)

// Baseline is the starting counter of every candidate before running jobs are
// subtracted.
const Baseline = 1000

// RunningJob is one entry of the activity snapshot.
type RunningJob struct {
	Wuid    string `json:"wuid"`
	Cluster string `json:"cluster"`
}

// ActivitySource fetches the jobs currently running on the platform. The
// snapshot is requested fresh for every decision.
type ActivitySource interface {
	RunningJobs(ctx context.Context) ([]RunningJob, error)
}

// ActivitySourceFunc adapts a function to ActivitySource.
type ActivitySourceFunc func(ctx context.Context) ([]RunningJob, error)

func (f ActivitySourceFunc) RunningJobs(ctx context.Context) ([]RunningJob, error) {
	return f(ctx)
}

// Selector picks the least loaded cluster among a fixed set of candidates.
type Selector struct {
	source     ActivitySource
	candidates []string
}

// NewSelector creates a selector over candidates. Duplicates are collapsed,
// keeping first-appearance order.
func NewSelector(source ActivitySource, candidates ...string) (*Selector, error) {
	if len(candidates) == 0 {
		return nil, hpccerr.ErrNoClusters
	}
	seen := make(map[string]struct{}, len(candidates))
	distinct := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		distinct = append(distinct, c)
	}
	return &Selector{source: source, candidates: distinct}, nil
}

// Candidates returns the distinct candidates in selection order.
func (s *Selector) Candidates() []string {
	return append([]string(nil), s.candidates...)
}

// LeastActive returns the candidate with the fewest running jobs. A single
// candidate is returned without consulting the activity source. Ties go to
// the candidate listed first.
func (s *Selector) LeastActive(ctx context.Context) (string, error) {
	if len(s.candidates) == 1 {
		return s.candidates[0], nil
	}

	jobs, err := s.source.RunningJobs(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch activity: %w", err)
	}

	counters := make(map[string]int, len(s.candidates))
	for _, c := range s.candidates {
		counters[c] = Baseline
	}
	for _, job := range jobs {
		if _, ok := counters[job.Cluster]; ok {
			counters[job.Cluster]--
		}
	}

	best := s.candidates[0]
	for _, c := range s.candidates[1:] {
		if counters[c] > counters[best] {
			best = c
		}
	}
	return best, nil
}

// Workload counts the running jobs on two named clusters.
func Workload(ctx context.Context, source ActivitySource, cluster1, cluster2 string) (int, int, error) {
	jobs, err := source.RunningJobs(ctx)
	if err != nil {
		return 0, 0, hpccerr.Wrap("get workload", err)
	}
	var n1, n2 int
	for _, job := range jobs {
		if job.Cluster == cluster1 {
			n1++
		}
		if job.Cluster == cluster2 {
			n2++
		}
	}
	return n1, n2, nil
}

// PickLegacy applies the two-cluster rule: cluster1 when cluster2 is busier,
// cluster2 otherwise.
func PickLegacy(cluster1, cluster2 string, n1, n2 int) string {
	if n2 > n1 {
		return cluster1
	}
	return cluster2
}
