package esp

import "github.com/hpcc-systems/gohpcc/pkg/cluster"

func (env *activityEnvelope) runningJobs() []cluster.RunningJob {
	if env.ActivityResponse.Running == nil {
		return nil
	}
	active := env.ActivityResponse.Running.ActiveWorkunit
	jobs := make([]cluster.RunningJob, 0, len(active))
	for _, wu := range active {
		jobs = append(jobs, cluster.RunningJob{
			Wuid:    wu.Wuid,
			Cluster: wu.TargetClusterName,
		})
	}
	return jobs
}
