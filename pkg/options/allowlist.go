package options

import (
	"slices"
	"strings"

	"github.com/hpcc-systems/gohpcc/pkg/hpccerr"
)

// Flags filled in by the lifecycle when a caller leaves them out.
const (
	OutputFileOption = "-o"
	ClusterOption    = "--target"
	JobNameOption    = "--job-name"
	LimitOption      = "--limit"
	PortOption       = "--port"

	// DefaultLimit is the result limit applied to runs without --limit.
	DefaultLimit = 100
	// MaskedPassword replaces password values in displayed commands.
	MaskedPassword = "******"
)

var (
	UserOptions     = []string{"-u", "--username"}
	PasswordOptions = []string{"-pw", "--password"}
	ServerOptions   = []string{"-s", "--s"}
	VerboseOptions  = []string{"-v", "--verbose"}
)

// AllowList is the set of flags a tool accepts, plus prefixes that admit
// whole families of flags (resource and feature switches).
type AllowList struct {
	Tool     string
	Flags    map[string]struct{}
	Prefixes []string
}

// NewAllowList builds an allow-list for tool.
func NewAllowList(tool string, prefixes []string, flags ...string) AllowList {
	set := make(map[string]struct{}, len(flags))
	for _, f := range flags {
		set[f] = struct{}{}
	}
	return AllowList{Tool: tool, Flags: set, Prefixes: prefixes}
}

// Allows reports whether name is accepted.
func (a AllowList) Allows(name string) bool {
	if _, ok := a.Flags[name]; ok {
		return true
	}
	for _, p := range a.Prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// CompileAllowList covers the eclcc flags; -R and -f prefixes admit resource
// definitions and feature toggles.
var CompileAllowList = NewAllowList("compile", []string{"-R", "-f"},
	"-I", "-L", OutputFileOption, "-manifest", "--main", "-syntax", "-platform",
	"-E", "-q", "-qa", "-wu", "-S", "-g", "--debug", "-Wc", "-xx", "-shared",
	"-dfs", "-scope", "-cluster", "-user", "-password", "-checkDirty",
	"--cleanrepos", "--cleaninvalidrepos", "--fetchrepos", "-help", "--help",
	"--logfile", "--metacache", "--nosourcepath", "-specs", "--updaterepos",
	VerboseOptions[0], VerboseOptions[1], "-wxxxx", "--version", ClusterOption,
)

// RunAllowList covers the ecl run flags; -X and -f prefixes admit debug
// values and feature toggles.
var RunAllowList = NewAllowList("run", []string{"-X", "-f"},
	JobNameOption, "--input", "-in", "--wait", "--poll", "--exception-level",
	"--protect", "--main", "--snapshot", "--ecl-only", LimitOption, "-Dname",
	"-I", "-L", "-manifest", "-g", "debug", "--checkDirty", "--cleanrepos",
	"--cleaninvalidrepos", "--fetchrepos", "--updaterepos", "--help",
	ServerOptions[0], ServerOptions[1], "--ssl", "-ssl", "--accept-self-signed",
	"--cert", "--key", "--cacert", PortOption,
	UserOptions[0], UserOptions[1], PasswordOptions[0], PasswordOptions[1],
	"--wait-connect", "--wait-read", ClusterOption, "--name",
	VerboseOptions[0], VerboseOptions[1],
)

// RunAuthOptions are run flags that always come from the auth context.
var RunAuthOptions = slices.Concat(UserOptions, PasswordOptions, ServerOptions, []string{PortOption})

// Validate checks every flag against the allow-list. All offending flags are
// reported together in a *hpccerr.ConfigError. opts is not modified.
func (o *Options) Validate(allow AllowList) error {
	var invalid []string
	for _, name := range o.Names() {
		if !allow.Allows(name) {
			invalid = append(invalid, name)
		}
	}
	if len(invalid) == 0 {
		return nil
	}
	slices.Sort(invalid)
	return hpccerr.NewConfigError(allow.Tool, slices.Compact(invalid)...)
}

// DefaultCompileOptions returns the options used when a compile is requested
// without any: -platform thor -wu -E.
func DefaultCompileOptions() *Options {
	return New(Value("-platform", "thor"), Flag("-wu"), Flag("-E"))
}

// DefaultRunOptions returns an empty run option set.
func DefaultRunOptions() *Options {
	return New()
}
