package esp

import (
	"fmt"
	"net/http"
	"slices"
	"sort"
)

// Endpoint declares one ESP operation: where it lives, how it is called and
// which parameters it accepts.
type Endpoint struct {
	Name   string
	Path   string
	Method string
	Params []string
}

// Accepts reports whether param is declared for the endpoint.
func (e Endpoint) Accepts(param string) bool {
	return slices.Contains(e.Params, param)
}

// Registry maps endpoint names to declarations.
type Registry struct {
	endpoints map[string]Endpoint
}

// NewRegistry builds a registry from endpoints. An empty Method defaults to
// POST.
func NewRegistry(endpoints ...Endpoint) (*Registry, error) {
	r := &Registry{endpoints: make(map[string]Endpoint, len(endpoints))}
	for _, e := range endpoints {
		if err := r.Register(e); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an endpoint. Names must be unique.
func (r *Registry) Register(e Endpoint) error {
	if _, exists := r.endpoints[e.Name]; exists {
		return fmt.Errorf("endpoint already registered: %s", e.Name)
	}
	if e.Method == "" {
		e.Method = http.MethodPost
	}
	r.endpoints[e.Name] = e
	return nil
}

// Get returns the endpoint registered under name.
func (r *Registry) Get(name string) (Endpoint, bool) {
	e, ok := r.endpoints[name]
	return e, ok
}

// Names returns the registered endpoint names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.endpoints))
	for name := range r.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Endpoint names used by the typed helpers.
const (
	WUInfo            = "WUInfo"
	WUResult          = "WUResult"
	WUCreateAndUpdate = "WUCreateAndUpdate"
	WUUpdate          = "WUUpdate"
	WUSubmit          = "WUSubmit"
	WURun             = "WURun"
	WUQuery           = "WUQuery"
	WUWaitCompiled    = "WUWaitCompiled"
	WUWaitComplete    = "WUWaitComplete"
	WUGetGraph        = "WUGetGraph"
	DFUInfo           = "DFUInfo"
	DFUQuery          = "DFUQuery"
	AddtoSuperfile    = "AddtoSuperfile"
	TpClusterInfo     = "TpClusterInfo"
	Activity          = "Activity"
	UploadFile        = "UploadFile"
	DownloadFile      = "DownloadFile"
	DropZoneFiles     = "DropZoneFiles"
	FileList          = "FileList"
	GetDFUWorkunit    = "GetDFUWorkunit"
	GetDFUWorkunits   = "GetDFUWorkunits"
	SprayVariable     = "SprayVariable"
	SprayFixed        = "SprayFixed"
)

var workunitUpdateParams = []string{
	"Wuid", "State", "StateOrig", "Jobname", "JobnameOrig", "QueryText",
	"Action", "Description", "DescriptionOrig", "AddDrilldownFields",
	"ResultLimit", "Protected", "ProtectedOrig", "PriorityClass",
	"PriorityLevel", "Scope", "ScopeOrig", "ClusterSelection", "ClusterOrig",
	"XmlParams", "ThorSlaveIP", "QueryMainDefinition", "DebugValues",
	"ApplicationValues",
}

var waitParams = []string{"Wuid", "Wait", "ReturnOnWait"}

var sprayCommonParams = []string{
	"sourceIP", "sourcePath", "srcxml", "sourceFormat", "destGroup",
	"destLogicalName", "overwrite", "replicate", "ReplicateOffset",
	"maxConnections", "throttle", "transferBufferSize", "prefix", "nosplit",
	"compress", "push", "pull", "encrypt", "decrypt", "failIfNoSourceFile",
	"recordStructurePresent", "quotedTerminator",
}

// DefaultEndpoints covers the WsWorkunits, WsDfu, WsTopology, WsSMC and
// FileSpray operations the client uses.
var DefaultEndpoints = []Endpoint{
	{Name: WUInfo, Path: "WsWorkunits/WUInfo", Params: []string{
		"Wuid", "TruncateEclTo64k", "IncludeExceptions", "IncludeGraphs",
		"IncludeSourceFiles", "IncludeResults", "IncludeResultsViewNames",
		"IncludeVariables", "IncludeTimers", "IncludeResourceURLs",
		"IncludeDebugValues", "IncludeApplicationValues", "IncludeWorkflows",
		"IncludeXmlSchemas", "SuppressResultSchemas", "rawxml_",
	}},
	{Name: WUResult, Path: "WsWorkunits/WUResult", Params: []string{
		"Wuid", "Sequence", "ResultName", "LogicalName", "Cluster",
		"FilterBy", "Start", "Count",
	}},
	{Name: WUCreateAndUpdate, Path: "WsWorkunits/WUCreateAndUpdate", Params: workunitUpdateParams},
	{Name: WUUpdate, Path: "WsWorkunits/WUUpdate", Params: workunitUpdateParams},
	{Name: WUSubmit, Path: "WsWorkunits/WUSubmit", Params: []string{
		"Wuid", "Cluster", "Queue", "Snapshot", "MaxRunTime",
		"BlockTillFinishTimer", "SyntaxCheck", "NotifyCluster",
	}},
	{Name: WURun, Path: "WsWorkunits/WURun", Params: []string{
		"QuerySet", "Query", "Wuid", "CloneWorkunit", "Cluster", "Wait",
		"Input", "NoRootTag", "DebugValues", "Variables", "ApplicationValues",
		"ExceptionSeverity",
	}},
	{Name: WUQuery, Path: "WsWorkunits/WUQuery", Params: []string{
		"Wuid", "Type", "Cluster", "RoxieCluster", "Owner", "State",
		"StartDate", "EndDate", "ECL", "Jobname", "LogicalFile",
		"LogicalFileSearchType", "ApplicationValues", "After", "Before",
		"Count", "PageSize", "PageStartFrom", "PageEndAt", "LastNDays",
		"Sortby", "Descending", "CacheHint",
	}},
	{Name: WUWaitCompiled, Path: "WsWorkunits/WUWaitCompiled", Params: waitParams},
	{Name: WUWaitComplete, Path: "WsWorkunits/WUWaitComplete", Params: waitParams},
	{Name: WUGetGraph, Path: "WsWorkunits/WUGetGraph", Params: []string{"Wuid", "GraphName", "rawxml_"}},
	{Name: DFUInfo, Path: "WsDfu/DFUInfo", Params: []string{
		"Name", "Cluster", "UpdateDescription", "FileName", "FileDesc",
	}},
	{Name: DFUQuery, Path: "WsDfu/DFUQuery", Params: []string{
		"Prefix", "NodeGroup", "ContentType", "LogicalName", "Description",
		"Owner", "RoxieCluster", "StartDate", "EndDate", "ToTime", "FileType",
		"FileSizeFrom", "FileSizeTo", "FirstN", "PageSize", "PageStartFrom",
		"Sortby", "Descending", "OneLevelDirFileReturn", "CacheHint",
		"MaxNumberOfFiles", "IncludeSuperOwner",
	}},
	{Name: AddtoSuperfile, Path: "WsDfu/AddtoSuperfile", Params: []string{"Superfile", "ExistingFile"}},
	{Name: TpClusterInfo, Path: "WsTopology/TpClusterInfo", Params: []string{"Name"}},
	{Name: Activity, Path: "WsSMC/Activity", Params: []string{"SortBy", "Descending"}},
	{Name: UploadFile, Path: "FileSpray/UploadFile", Params: []string{"upload_", "rawxml_", "NetAddress", "Path", "OS"}},
	{Name: DownloadFile, Path: "FileSpray/DownloadFile", Params: []string{"Name", "NetAddress", "Path", "OS"}},
	{Name: DropZoneFiles, Path: "FileSpray/DropZoneFiles", Params: []string{"id", "rawxml_"}},
	{Name: FileList, Path: "FileSpray/FileList", Params: []string{"Netaddr", "Path", "Mask", "OS", "rawxml_"}},
	{Name: GetDFUWorkunit, Path: "FileSpray/GetDFUWorkunit", Params: []string{"wuid"}},
	{Name: GetDFUWorkunits, Path: "FileSpray/GetDFUWorkunits", Params: []string{
		"Wuid", "Owner", "Cluster", "StateReq", "Type", "Jobname", "PageSize",
		"CurrentPage", "PageStartFrom", "Sortby", "Descending", "CacheHint",
	}},
	{Name: SprayVariable, Path: "FileSpray/SprayVariable", Params: slices.Concat(sprayCommonParams, []string{
		"sourceMaxRecordSize", "NoSourceCsvSeparator", "sourceCsvSeparate",
		"sourceCsvTerminate", "sourceCsvQuote", "sourceCsvEscape",
		"sourceRowTag", "noRecover", "sourceRowPath", "isJSON", "namePrefix",
	})},
	{Name: SprayFixed, Path: "FileSpray/SprayFixed", Params: slices.Concat(sprayCommonParams, []string{
		"sourceRecordSize", "norecover", "wrap",
	})},
}

// DefaultRegistry returns a registry holding DefaultEndpoints.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultEndpoints...)
	if err != nil {
		panic(err)
	}
	return r
}
