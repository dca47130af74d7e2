package azcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/carved4/kvwalk/internal/cloud"
	"github.com/carved4/kvwalk/internal/cmdlog"
)

var (
	ErrTimeout      = fmt.Errorf("command %w", cloud.ErrTimeout)
	ErrNotInstalled = errors.New("az cli not found")
)

// CommandRecorder receives every invocation before it runs.
type CommandRecorder interface {
	RecordCommand(cmd string, args []string) error
}

// Runner executes a binary with a fixed timeout per call. Calls are never retried.
type Runner struct {
	Path    string
	Timeout time.Duration
	Log     logr.Logger
	Audit   CommandRecorder
}

// Opt changes how a single call is run.
type Opt struct {
	// Sensitive suppresses logging of stdout; used for calls returning secret values.
	Sensitive bool
}

// LookPath resolves the runner's binary.
func (r *Runner) LookPath() (string, error) {
	p, err := exec.LookPath(r.Path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotInstalled, r.Path, err)
	}
	return p, nil
}

// Run executes the binary with args and returns stdout and stderr.
func (r *Runner) Run(ctx context.Context, opt *Opt, args ...string) (stdout, stderr []byte, err error) {
	redacted := cmdlog.Redact(args)
	r.Log.V(2).Info("Run", "cmd", r.Path, "args", redacted)

	if r.Audit != nil {
		if err := r.Audit.RecordCommand(r.Path, args); err != nil {
			return nil, nil, err
		}
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, r.Path, args...)

	var sout, serr bytes.Buffer
	c.Stdout, c.Stderr = &sout, &serr
	err = c.Run()
	stdout, stderr = sout.Bytes(), serr.Bytes()

	if opt == nil || !opt.Sensitive {
		r.Log.V(3).Info("Run-result", "stderr", string(stderr), "stdout", string(stdout))
	} else {
		r.Log.V(3).Info("Run-result", "stderr", string(stderr), "stdout-bytes", len(stdout))
	}

	if ctx.Err() == context.DeadlineExceeded {
		return nil, nil, fmt.Errorf("%s %s: %w after %v", r.Path, strings.Join(redacted, " "), ErrTimeout, r.Timeout)
	}
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, nil, fmt.Errorf("%w: %v", ErrNotInstalled, err)
		}
		return nil, stderr, fmt.Errorf("%s %s: %w - %s", r.Path, strings.Join(redacted, " "), err, strings.TrimSpace(string(stderr)))
	}
	return stdout, stderr, nil
}
