package core

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
)

// CommandResult carries the observable outcome of one subprocess invocation.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// CommandRunner abstracts subprocess execution so that pipelines can be
// tested without ffmpeg or whisper installed. A non-zero exit is reported
// through ExitCode with a nil error; the error is reserved for failures to
// launch (binary missing, context cancelled).
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string, env []string) (CommandResult, error)
}

// ExecRunner runs commands with os/exec, inheriting the process environment
// plus any extra env entries.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args []string, env []string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}
	return res, nil
}
