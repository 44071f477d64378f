package esp

import (
	"fmt"
	"strings"
)

// Response envelopes of the calls decoded by the typed helpers. Only the
// fields the client reads are declared.

type wuUpdateEnvelope struct {
	WUUpdateResponse struct {
		Workunit struct {
			Wuid string `json:"Wuid"`
		} `json:"Workunit"`
	} `json:"WUUpdateResponse"`
}

type wuWaitEnvelope struct {
	WUWaitResponse struct {
		StateID int `json:"StateID"`
	} `json:"WUWaitResponse"`
}

type wuRunEnvelope struct {
	WURunResponse struct {
		Wuid  string `json:"Wuid"`
		State string `json:"State"`
	} `json:"WURunResponse"`
}

type wuInfoEnvelope struct {
	WUInfoResponse struct {
		Workunit WorkunitInfo `json:"Workunit"`
	} `json:"WUInfoResponse"`
}

// WorkunitInfo is the subset of WUInfo the client exposes.
type WorkunitInfo struct {
	Wuid    string `json:"Wuid" yaml:"wuid"`
	Owner   string `json:"Owner" yaml:"owner"`
	Cluster string `json:"Cluster" yaml:"cluster"`
	Jobname string `json:"Jobname" yaml:"jobname"`
	State   string `json:"State" yaml:"state"`
	StateID int    `json:"StateID" yaml:"state_id"`
}

// ActiveWorkunit is one running workunit reported by Activity.
type ActiveWorkunit struct {
	Wuid              string `json:"Wuid"`
	State             string `json:"State"`
	TargetClusterName string `json:"TargetClusterName"`
}

type activityEnvelope struct {
	ActivityResponse struct {
		Running *struct {
			ActiveWorkunit []ActiveWorkunit `json:"ActiveWorkunit"`
		} `json:"Running"`
	} `json:"ActivityResponse"`
}

// ClusterInfo is the subset of TpClusterInfo the client exposes.
type ClusterInfo struct {
	Name     string `json:"Name" yaml:"name"`
	WorkUnit string `json:"WorkUnit" yaml:"work_unit"`
}

type clusterInfoEnvelope struct {
	TpClusterInfoResponse ClusterInfo `json:"TpClusterInfoResponse"`
}

type exceptionsEnvelope struct {
	Exceptions *exceptionList `json:"Exceptions"`
}

type exceptionList struct {
	Source    string `json:"Source"`
	Exception []struct {
		Code    int    `json:"Code"`
		Message string `json:"Message"`
	} `json:"Exception"`
}

func (l *exceptionList) toError() *ExceptionError {
	e := &ExceptionError{Source: l.Source}
	for _, ex := range l.Exception {
		e.Messages = append(e.Messages, ex.Message)
	}
	return e
}

// ExceptionError carries the exception messages an ESP service returned in
// place of a regular response.
type ExceptionError struct {
	Source   string
	Messages []string
}

func (e *ExceptionError) Error() string {
	if e.Source == "" {
		return "esp exception: " + strings.Join(e.Messages, ",")
	}
	return fmt.Sprintf("esp exception from %s: %s", e.Source, strings.Join(e.Messages, ","))
}
