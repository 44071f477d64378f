package esp

import (
	"context"

	"github.com/hpcc-systems/gohpcc/pkg/cluster"
	"github.com/hpcc-systems/gohpcc/pkg/hpccerr"
)

// CreateWorkunitRequest holds the WUCreateAndUpdate fields used to create a
// workunit from query text.
type CreateWorkunitRequest struct {
	Action      int
	ResultLimit int
	QueryText   string
	JobName     string
	Cluster     string
}

// CreateWorkunit creates a workunit and returns its wuid.
func (c *Client) CreateWorkunit(ctx context.Context, r CreateWorkunitRequest) (string, error) {
	resp, err := c.Call(ctx, WUCreateAndUpdate,
		P("Action", r.Action),
		P("ResultLimit", r.ResultLimit),
		P("Jobname", r.JobName),
		P("ClusterOrig", r.Cluster),
		P("QueryText", r.QueryText),
	)
	if err != nil {
		return "", err
	}
	var env wuUpdateEnvelope
	if err := resp.JSON(&env); err != nil {
		return "", err
	}
	if env.WUUpdateResponse.Workunit.Wuid == "" {
		return "", hpccerr.ErrWorkunitNotCreated
	}
	return env.WUUpdateResponse.Workunit.Wuid, nil
}

// SubmitWorkunit queues a workunit for compilation on cluster.
func (c *Client) SubmitWorkunit(ctx context.Context, wuid, cluster string) error {
	_, err := c.Call(ctx, WUSubmit, P("Wuid", wuid), P("Cluster", cluster))
	return err
}

// WaitCompiled blocks until the workunit is compiled and returns its state id.
func (c *Client) WaitCompiled(ctx context.Context, wuid string) (int, error) {
	return c.wait(ctx, WUWaitCompiled, wuid)
}

// WaitComplete blocks until the workunit finishes and returns its state id.
func (c *Client) WaitComplete(ctx context.Context, wuid string) (int, error) {
	return c.wait(ctx, WUWaitComplete, wuid)
}

func (c *Client) wait(ctx context.Context, endpoint, wuid string) (int, error) {
	resp, err := c.Call(ctx, endpoint, P("Wuid", wuid))
	if err != nil {
		return 0, err
	}
	var env wuWaitEnvelope
	if err := resp.JSON(&env); err != nil {
		return 0, err
	}
	return env.WUWaitResponse.StateID, nil
}

// RunWorkunit runs a compiled workunit on cluster and returns the state name
// reported by WURun.
func (c *Client) RunWorkunit(ctx context.Context, wuid, cluster string) (string, error) {
	resp, err := c.Call(ctx, WURun, P("Wuid", wuid), P("Cluster", cluster))
	if err != nil {
		return "", err
	}
	var env wuRunEnvelope
	if err := resp.JSON(&env); err != nil {
		return "", err
	}
	return env.WURunResponse.State, nil
}

// WorkunitInfo fetches the summary of one workunit.
func (c *Client) WorkunitInfo(ctx context.Context, wuid string) (*WorkunitInfo, error) {
	resp, err := c.Call(ctx, WUInfo, P("Wuid", wuid))
	if err != nil {
		return nil, err
	}
	var env wuInfoEnvelope
	if err := resp.JSON(&env); err != nil {
		return nil, err
	}
	return &env.WUInfoResponse.Workunit, nil
}

// ClusterInfo fetches the topology entry of a cluster.
func (c *Client) ClusterInfo(ctx context.Context, name string) (*ClusterInfo, error) {
	resp, err := c.Call(ctx, TpClusterInfo, P("Name", name))
	if err != nil {
		return nil, err
	}
	var env clusterInfoEnvelope
	if err := resp.JSON(&env); err != nil {
		return nil, err
	}
	return &env.TpClusterInfoResponse, nil
}

// RunningJobs returns the workunits currently running on any cluster. It
// implements cluster.ActivitySource.
func (c *Client) RunningJobs(ctx context.Context) ([]cluster.RunningJob, error) {
	resp, err := c.Call(ctx, Activity, P("SortBy", "Name"), P("Descending", 1))
	if err != nil {
		return nil, err
	}
	var env activityEnvelope
	if err := resp.JSON(&env); err != nil {
		return nil, err
	}
	return env.runningJobs(), nil
}

var _ cluster.ActivitySource = (*Client)(nil)
