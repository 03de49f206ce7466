package remote

import (
	"context"
	"errors"
	"os/exec"
	"time"
)

var ErrEmptyCommand = errors.New("empty command")

// Exit codes reported when the command did not exit on its own.
const (
	ExitTimedOut uint32 = 124
	ExitSignaled uint32 = 255
)

type Result struct {
	Output   string
	ExitCode uint32
	TimedOut bool
}

// Run executes command through sh -c and collects its combined output. A
// non-zero exit status is reported in the result, not as an error.
func Run(ctx context.Context, command string, timeout time.Duration) (Result, error) {
	if command == "" {
		return Result{}, ErrEmptyCommand
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.WaitDelay = time.Second
	out, err := cmd.CombinedOutput()
	res := Result{Output: string(out)}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	switch {
	case ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.ExitCode = ExitTimedOut
		res.TimedOut = true
		return res, nil
	case errors.As(err, &exitErr):
		if code := exitErr.ExitCode(); code >= 0 {
			res.ExitCode = uint32(code)
		} else {
			res.ExitCode = ExitSignaled
		}
		return res, nil
	}
	return Result{}, err
}
