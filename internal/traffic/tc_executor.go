package traffic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

type commandOpts struct {
	// ignoreExit treats a non-zero exit status as success, like `cmd || true`.
	ignoreExit bool
	// suppress ignores failures whose output mentions one of these substrings.
	suppress []string
	quiet    bool
}

// commandLine renders a command the way it is echoed in reports.
func commandLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

// execCommand runs name with args under the per-command timeout. The combined
// output is always returned, also when the command fails.
func (s *Shaper) execCommand(ctx context.Context, name string, args []string, opts commandOpts) (string, error) {
	argStr := strings.Join(args, " ")

	cmdCtx, cancel := context.WithTimeout(ctx, s.commandTimeout)
	defer cancel()

	start := time.Now()
	output, err := s.executor.Run(cmdCtx, name, args)
	s.recorder.ObserveCommand(name, time.Since(start), err)

	if s.logger != nil && !opts.quiet {
		s.logger.Debug("command executed",
			slog.String("cmd", name),
			slog.String("args", argStr),
			slog.String("output", strings.TrimSpace(output)))
	}

	if err == nil {
		return output, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return output, ctxErr
	}
	if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
		return output, fmt.Errorf("command %s %s: timed out after %s", name, argStr, s.commandTimeout)
	}

	// A missing binary is never ignored, only a failing one.
	if opts.ignoreExit && !errors.Is(err, exec.ErrNotFound) {
		if s.logger != nil {
			s.logger.Debug("ignoring command failure",
				slog.String("cmd", name),
				slog.String("args", argStr),
				slog.String("error", err.Error()))
		}
		return output, nil
	}

	if len(opts.suppress) > 0 && (containsAny(output, opts.suppress) || containsAny(err.Error(), opts.suppress)) {
		return output, nil
	}

	return output, fmt.Errorf("command %s %s: %w", name, argStr, err)
}

func (s *Shaper) run(ctx context.Context, name string, args ...string) (string, error) {
	return s.execCommand(ctx, name, args, commandOpts{})
}

// runIgnoreExit runs a best-effort command whose exit status is not an error.
func (s *Shaper) runIgnoreExit(ctx context.Context, name string, args ...string) (string, error) {
	return s.execCommand(ctx, name, args, commandOpts{ignoreExit: true})
}

// runQuiet runs a command without debug logging; used for read-only show commands.
func (s *Shaper) runQuiet(ctx context.Context, name string, args ...string) (string, error) {
	return s.execCommand(ctx, name, args, commandOpts{quiet: true})
}

func containsAny(message string, substrings []string) bool {
	if message == "" || len(substrings) == 0 {
		return false
	}
	lower := strings.ToLower(message)
	for _, sub := range substrings {
		if sub == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
