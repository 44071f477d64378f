package workunit

import (
	"context"
	"errors"
	"os/exec"

	"github.com/hpcc-systems/gohpcc/pkg/options"
)

// Runner executes a rendered command and returns its merged stdout and
// stderr. A non-zero exit status is not an error: tool failures are read from
// the output.
type Runner interface {
	Run(ctx context.Context, cmd options.Command) ([]byte, error)
}

// ExecRunner runs commands as child processes.
type ExecRunner struct {
	// Dir is the working directory of the child; the current one when empty.
	Dir string
}

func (r ExecRunner) Run(ctx context.Context, cmd options.Command) ([]byte, error) {
	args := cmd.Args()
	if len(args) == 0 {
		return nil, errors.New("empty command")
	}
	c := exec.CommandContext(ctx, args[0], args[1:]...)
	c.Dir = r.Dir

	out, err := c.CombinedOutput()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return out, nil
	}
	return out, err
}
