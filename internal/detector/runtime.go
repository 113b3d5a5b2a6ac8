package detector

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	terr "tcshaper/internal/errors"
)

var (
	requiredCommands = []string{"ip", "tc"}

	lookPath = exec.LookPath
	geteuid  = unix.Geteuid
)

// ValidateRuntime checks that ip and tc are on PATH. Running without root is
// only a warning since read-only commands such as report still work.
func ValidateRuntime(logger *slog.Logger) error {
	if logger != nil {
		logger.Debug("runtime prerequisite check started")
	}

	var issues []string
	for _, cmd := range requiredCommands {
		if _, err := lookPath(cmd); err != nil {
			issues = append(issues, fmt.Sprintf("missing command %q: %v", cmd, err))
		}
	}

	if len(issues) > 0 {
		description := strings.Join(issues, "; ")
		if logger != nil {
			logger.Error("runtime prerequisite check failed", slog.String("issues", description))
		}
		return terr.New(
			terr.CategoryCritical,
			errors.New("runtime prerequisites missing"),
			terr.ErrorContext{Operation: "runtime_validation", Actual: description},
		)
	}

	if uid := geteuid(); uid != 0 && logger != nil {
		logger.Warn("not running as root; qdisc and link changes will likely fail",
			slog.Int("euid", uid))
	}

	if logger != nil {
		logger.Debug("runtime prerequisite check passed")
	}
	return nil
}
