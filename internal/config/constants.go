package config

import "time"

const (
	// MinMTU and MaxMTU bound the MTU values reported by the link summary.
	MinMTU = 68
	MaxMTU = 65535

	// DefaultCommandTimeout bounds a single ip/tc invocation.
	DefaultCommandTimeout = 5 * time.Second
	// DefaultOperationTimeout bounds a whole reset, apply or report run.
	DefaultOperationTimeout = 45 * time.Second

	// EnvConfigPath overrides the config file location when -config is not given.
	EnvConfigPath = "TCSHAPER_CONFIG"
	// DefaultConfigPath is tried after the flag and environment variable.
	DefaultConfigPath = "/etc/tcshaper/config.yaml"
)

// DefaultInterfaces is the interface set reset when nothing else is configured.
var DefaultInterfaces = []string{"lo", "enp0s25"}
