package traffic

import "time"

// Settings encapsulates the inputs required to build a Shaper.
type Settings struct {
	// CommandTimeout bounds every single ip/tc invocation.
	CommandTimeout time.Duration
	// RemoveIfb makes Reset delete a leftover ifb4<iface> mirror device.
	RemoveIfb bool
	// Recorder observes each executed command. Optional.
	Recorder Recorder
}

const defaultCommandTimeout = 5 * time.Second

func (s Settings) withDefaults() Settings {
	if s.CommandTimeout <= 0 {
		s.CommandTimeout = defaultCommandTimeout
	}
	if s.Recorder == nil {
		s.Recorder = nopRecorder{}
	}
	return s
}
