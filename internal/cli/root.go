// Package cli implements the hpcc command-line front end.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hpcc-systems/gohpcc/internal/shared/config"
	"github.com/hpcc-systems/gohpcc/internal/shared/logging"
	"github.com/hpcc-systems/gohpcc/pkg/auth"
	"github.com/hpcc-systems/gohpcc/pkg/esp"
	"github.com/hpcc-systems/gohpcc/pkg/hpccerr"
	"github.com/hpcc-systems/gohpcc/pkg/workunit"
)

// errReported marks errors whose details were already printed as command
// output. Execute only sets the exit code for them.
var errReported = errors.New("errors reported in output")

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errReported) {
			return 1
		}
		format, _ := rootCmd.PersistentFlags().GetString("output")
		if format == formatJSON {
			errObj := map[string]any{"error": err.Error()}
			var cfgErr *hpccerr.ConfigError
			if errors.As(err, &cfgErr) {
				errObj["invalid_options"] = cfgErr.Keys
			}
			_ = printJSON(os.Stdout, errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// app holds what the commands share once configuration is resolved.
type app struct {
	configPath string
	output     string
	debug      bool

	cfg    *config.Config
	logger logging.Logger
	auth   *auth.Auth
	client *esp.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "hpcc",
		Short:         "Compile, run and track ECL workunits",
		Long:          "Command-line interface for compiling ECL with eclcc, running it with ecl run and tracking workunits through ESP.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutputFormat(a.output); err != nil {
				return err
			}
			return a.init(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVarP(&a.output, "output", "o", formatJSON, "Output format (json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		newCompileCmd(a),
		newRunCmd(a),
		newSubmitCmd(a),
		newClusterCmd(a),
		newWaitCmd(a),
		newVerifyCmd(a),
		newConfigCmd(a),
	)
	return rootCmd
}

func (a *app) init(logOut io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.debug {
		cfg.Debug = true
		cfg.Logging.Level = "debug"
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.NewWithWriter(logOut, level, cfg.Logging.Format)
	a.auth = &auth.Auth{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		Username:    cfg.Auth.Username,
		Password:    cfg.Auth.Password,
		Protocol:    cfg.Server.Protocol,
		RequireAuth: cfg.Server.RequireAuth,
	}
	a.client = esp.NewClient(a.auth,
		esp.WithLogger(a.logger),
		esp.WithTimeout(cfg.Timeout),
		esp.WithDebug(cfg.Debug),
	)
	return nil
}

func (a *app) submitter() (*workunit.Submitter, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	return workunit.NewSubmitter(a.auth, a.client, a.cfg.Clusters,
		workunit.WithLogger(a.logger),
		workunit.WithWorkDir(a.cfg.WorkDir),
	)
}
