package config

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"
)

const (
	defaultStateFile   = "/var/lib/tcshaper/interface_configs.json"
	defaultListenAddr  = "127.0.0.1:5000"
	defaultMetricsPath = "/metrics"
	defaultLogLevel    = "info"
	defaultLogFormat   = "json"
	maxInterfaceName   = 15
)

// UIPaths are the routes served by the web UI; the metrics path may not reuse them.
var UIPaths = []string{"/", "/reset", "/status", "/clear"}

// Config is the top-level tcshaper configuration.
type Config struct {
	Interfaces []string      `yaml:"interfaces" json:"interfaces"`
	Netns      string        `yaml:"netns" json:"netns"`
	StateFile  string        `yaml:"state_file" json:"state_file"`
	RemoveIfb  *bool         `yaml:"remove_ifb" json:"remove_ifb"`
	Timeouts   TimeoutConfig `yaml:"timeouts" json:"timeouts"`
	Server     ServerConfig  `yaml:"server" json:"server"`
	Log        LogConfig     `yaml:"log" json:"log"`
}

// TimeoutConfig bounds external command execution.
type TimeoutConfig struct {
	Command   time.Duration `yaml:"command" json:"command"`
	Operation time.Duration `yaml:"operation" json:"operation"`
}

// ServerConfig controls the HTTP front end.
type ServerConfig struct {
	Listen      string `yaml:"listen" json:"listen"`
	MetricsPath string `yaml:"metrics_path" json:"metrics_path"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Default returns a Config populated with built-in defaults.
func Default() Config {
	cfg := Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills missing or zero values.
func (c *Config) ApplyDefaults() {
	if c == nil {
		return
	}
	if len(c.Interfaces) == 0 {
		c.Interfaces = append([]string(nil), DefaultInterfaces...)
	}
	if c.StateFile == "" {
		c.StateFile = defaultStateFile
	}
	if c.RemoveIfb == nil {
		enabled := true
		c.RemoveIfb = &enabled
	}
	if c.Timeouts.Command <= 0 {
		c.Timeouts.Command = DefaultCommandTimeout
	}
	if c.Timeouts.Operation <= 0 {
		c.Timeouts.Operation = DefaultOperationTimeout
	}
	if c.Server.Listen == "" {
		c.Server.Listen = defaultListenAddr
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = defaultMetricsPath
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultLogFormat
	}
}

// ShouldRemoveIfb reports whether reset deletes leftover IFB mirror devices.
func (c Config) ShouldRemoveIfb() bool {
	return c.RemoveIfb == nil || *c.RemoveIfb
}

// Validate performs boundary checks and returns the first error encountered.
func (c Config) Validate() error {
	if len(c.Interfaces) == 0 {
		return fmt.Errorf("interfaces must not be empty")
	}
	seen := make(map[string]struct{}, len(c.Interfaces))
	for _, name := range c.Interfaces {
		if err := ValidateInterfaceName(name); err != nil {
			return fmt.Errorf("interfaces: %w", err)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("interfaces: %q listed twice", name)
		}
		seen[name] = struct{}{}
	}
	if c.Netns != "" && strings.ContainsAny(c.Netns, "/ \t") {
		return fmt.Errorf("netns %q must be a plain namespace name", c.Netns)
	}
	if c.StateFile == "" {
		return fmt.Errorf("state_file must be set")
	}
	if c.Timeouts.Command <= 0 || c.Timeouts.Operation <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.Timeouts.Command > c.Timeouts.Operation {
		return fmt.Errorf("timeouts.command (%s) exceeds timeouts.operation (%s)", c.Timeouts.Command, c.Timeouts.Operation)
	}
	if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
		return fmt.Errorf("server.listen: %w", err)
	}
	if err := validateMetricsPath(c.Server.MetricsPath); err != nil {
		return err
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}
	return nil
}

// ValidateInterfaceName rejects names the kernel would refuse. It also keeps
// form input from smuggling extra arguments into ip/tc invocations.
func ValidateInterfaceName(name string) error {
	if name == "" {
		return fmt.Errorf("interface name is empty")
	}
	if len(name) > maxInterfaceName {
		return fmt.Errorf("interface name %q longer than %d characters", name, maxInterfaceName)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("interface name %q is reserved", name)
	}
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("interface name %q must not start with '-'", name)
	}
	for _, r := range name {
		if r <= ' ' || r == '/' || r == ':' || r == 0x7f {
			return fmt.Errorf("interface name %q contains invalid character %q", name, r)
		}
	}
	return nil
}

// ParseLogLevel maps a config level string to a slog.Level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unsupported log level %q", level)
	}
}

func validateMetricsPath(path string) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("server.metrics_path must start with /")
	}
	if strings.ContainsAny(path, " \t{}") {
		return fmt.Errorf("server.metrics_path %q must be a plain path", path)
	}
	for _, p := range UIPaths {
		if path == p {
			return fmt.Errorf("server.metrics_path %q is a UI route", path)
		}
	}
	return nil
}
