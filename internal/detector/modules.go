package detector

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// ModuleInfo captures kernel module metadata and requirement status.
type ModuleInfo struct {
	Name        string
	Required    bool
	Description string
}

// ShapingModules are the modules the HTB + netem + u32 tree depends on.
var ShapingModules = []ModuleInfo{
	{
		Name:        "sch_htb",
		Required:    true,
		Description: "HTB qdisc for rate limiting",
	},
	{
		Name:        "sch_netem",
		Required:    true,
		Description: "netem qdisc for loss, duplication and delay",
	},
	{
		Name:        "cls_u32",
		Required:    false,
		Description: "u32 classifier for protocol filters",
	},
}

var (
	moduleLoaded = func(name string) bool {
		_, err := os.Stat("/sys/module/" + name)
		return err == nil
	}
	modprobe = func(name string) ([]byte, error) {
		return exec.Command("modprobe", name).CombinedOutput()
	}
)

// ValidateKernelModules makes sure the given modules are loaded, running
// modprobe for missing ones. Built-in modules also show up under /sys/module.
func ValidateKernelModules(logger *slog.Logger, modules []ModuleInfo) error {
	var errs []string

	for _, module := range modules {
		if err := ensureModule(module, logger); err != nil {
			if module.Required {
				errs = append(errs, fmt.Sprintf("%s: %v", module.Name, err))
			} else if logger != nil {
				logger.Warn("optional kernel module not available",
					slog.String("module", module.Name),
					slog.String("description", module.Description),
					slog.String("error", err.Error()))
			}
			continue
		}

		if logger != nil {
			logger.Debug("kernel module ready",
				slog.String("module", module.Name),
				slog.String("description", module.Description))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("required kernel modules missing: %s", strings.Join(errs, ", "))
	}
	return nil
}

func ensureModule(module ModuleInfo, logger *slog.Logger) error {
	if moduleLoaded(module.Name) {
		return nil
	}

	if logger != nil {
		logger.Debug("attempting to load kernel module", slog.String("module", module.Name))
	}

	output, err := modprobe(module.Name)
	if err != nil {
		return fmt.Errorf("modprobe failed: %w (output: %s)", err, strings.TrimSpace(string(output)))
	}

	if !moduleLoaded(module.Name) {
		return fmt.Errorf("module %s not found after modprobe", module.Name)
	}
	return nil
}
