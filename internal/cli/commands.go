package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hpcc-systems/gohpcc/pkg/options"
	"github.com/hpcc-systems/gohpcc/pkg/workunit"
)

// parseOptionFlags turns repeated --opt values into options. "-platform=thor"
// is a valued flag, "-wu" a switch. No values yields nil so the defaults
// apply.
func parseOptionFlags(values []string) (*options.Options, error) {
	if len(values) == 0 {
		return nil, nil
	}
	opts := options.New()
	for _, v := range values {
		name, value, hasValue := strings.Cut(v, "=")
		if !strings.HasPrefix(name, "-") {
			return nil, fmt.Errorf("invalid option %q: flags start with '-'", v)
		}
		if hasValue {
			opts.Set(name, value)
		} else {
			opts.SetFlag(name)
		}
	}
	return opts, nil
}

func newCompileCmd(a *app) *cobra.Command {
	var (
		opts     []string
		parallel int
	)

	cmd := &cobra.Command{
		Use:   "compile <pattern>...",
		Short: "Compile ECL sources with eclcc",
		Long:  "Compile every ECL source matching the given glob patterns (** is supported).",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			compileOpts, err := parseOptionFlags(opts)
			if err != nil {
				return err
			}
			if compileOpts != nil {
				if err := compileOpts.Validate(options.CompileAllowList); err != nil {
					return err
				}
			}
			files, err := workunit.FindSources(args)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no source files match %s", strings.Join(args, " "))
			}
			s, err := a.submitter()
			if err != nil {
				return err
			}

			outcomes := s.CompileAll(cmd.Context(), files, compileOpts, parallel)
			results := make(map[string]any, len(outcomes))
			failed := 0
			for _, o := range outcomes {
				if o.Err != nil {
					failed++
					a.logger.Error("Compilation could not run", "file", o.File, "error", o.Err)
					results[o.File] = map[string]string{"error": o.Err.Error()}
					continue
				}
				results[o.File] = o.Result
			}
			if err := a.print(cmd, results); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d files could not be compiled", errReported, failed, len(outcomes))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&parallel, "parallel", runtime.NumCPU(), "Number of concurrent compiler processes")
	cmd.Flags().StringArrayVar(&opts, "opt", nil, "Compiler option, e.g. -platform=thor or -wu (repeatable)")
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	var (
		opts    []string
		target  string
		jobName string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "run <compiled-file>",
		Short: "Run a compiled workunit with ecl run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runOpts, err := parseOptionFlags(opts)
			if err != nil {
				return err
			}
			if runOpts == nil {
				runOpts = options.DefaultRunOptions()
			}
			if target != "" {
				runOpts.Set(options.ClusterOption, target)
			}
			if jobName != "" {
				runOpts.Set(options.JobNameOption, options.SanitizeJobName(jobName))
			}
			if cmd.Flags().Changed("limit") {
				runOpts.Set(options.LimitOption, limit)
			}

			s, err := a.submitter()
			if err != nil {
				return err
			}
			result, err := s.Run(cmd.Context(), args[0], runOpts)
			if err != nil {
				return err
			}
			return a.print(cmd, result)
		},
	}
	cmd.Flags().StringArrayVar(&opts, "opt", nil, "Runner option, e.g. -v or --wait=60 (repeatable)")
	cmd.Flags().StringVar(&target, "target", "", "Target cluster (least active configured cluster when empty)")
	cmd.Flags().StringVar(&jobName, "job-name", "", "Job name (compiled file name when empty)")
	cmd.Flags().IntVar(&limit, "limit", options.DefaultLimit, "Result row limit")
	return cmd
}

func newSubmitCmd(a *app) *cobra.Command {
	var (
		compileOptFlags []string
		runOptFlags     []string
		jobName         string
	)

	cmd := &cobra.Command{
		Use:   "submit <file.ecl>",
		Short: "Compile and run an ECL source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			compileOpts, err := parseOptionFlags(compileOptFlags)
			if err != nil {
				return err
			}
			runOpts, err := parseOptionFlags(runOptFlags)
			if err != nil {
				return err
			}
			query, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if jobName == "" {
				base := filepath.Base(args[0])
				jobName = strings.TrimSuffix(base, filepath.Ext(base))
			}

			s, err := a.submitter()
			if err != nil {
				return err
			}
			sub, err := s.Submit(cmd.Context(), string(query), jobName, compileOpts, runOpts)
			if err != nil {
				return err
			}
			return a.print(cmd, sub)
		},
	}
	cmd.Flags().StringArrayVar(&compileOptFlags, "compile-opt", nil, "Compiler option (repeatable)")
	cmd.Flags().StringArrayVar(&runOptFlags, "run-opt", nil, "Runner option (repeatable)")
	cmd.Flags().StringVar(&jobName, "job-name", "", "Job name (source file name when empty)")
	return cmd
}

func newClusterCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cluster",
		Short: "Print the least active configured cluster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.submitter()
			if err != nil {
				return err
			}
			name, err := s.LeastActiveCluster(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd, map[string]string{"cluster": name})
		},
	}
}

func newWaitCmd(a *app) *cobra.Command {
	var compiled bool

	cmd := &cobra.Command{
		Use:   "wait <wuid>",
		Short: "Wait for a workunit to complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wuid := args[0]
			if !workunit.ValidWuid(wuid) {
				return fmt.Errorf("invalid wuid %q", wuid)
			}
			s, err := a.submitter()
			if err != nil {
				return err
			}

			var state workunit.State
			if compiled {
				state, err = s.WaitCompiled(cmd.Context(), wuid)
			} else {
				state, err = s.WaitComplete(cmd.Context(), wuid)
			}
			if err != nil {
				return err
			}
			return a.print(cmd, map[string]any{
				"wuid":     wuid,
				"state":    state.String(),
				"state_id": int(state),
				"failed":   state.IsFailed(),
			})
		},
	}
	cmd.Flags().BoolVar(&compiled, "compiled", false, "Wait for compilation only")
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify the configured credentials against the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.auth.Verify(cmd.Context()); err != nil {
				return err
			}
			a.logger.Info("Credentials verified", "url", a.auth.URL(), "username", a.auth.Username)
			return a.print(cmd, map[string]any{"url": a.auth.URL(), "verified": true})
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printYAML(cmd.OutOrStdout(), a.cfg.Redacted())
		},
	}
}
