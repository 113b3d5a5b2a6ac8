package traffic

import (
	"context"
	"fmt"
	"log/slog"

	terr "tcshaper/internal/errors"
)

// ResetResult describes what Reset did to one interface.
type ResetResult struct {
	Interface string
	// Output is the combined output of the root qdisc delete.
	Output string
	// HadShaping is false when tc reported there was no root qdisc to delete.
	HadShaping bool
	Message    string
	Err        error
}

// Reset resets every interface in order. A failing interface does not stop
// the others; their errors are aggregated.
func (s *Shaper) Reset(ctx context.Context, ifaces []string) ([]ResetResult, error) {
	results := make([]ResetResult, 0, len(ifaces))
	var errs terr.MultiError

	for _, iface := range ifaces {
		if err := ctx.Err(); err != nil {
			errs.Add(err)
			break
		}
		result := s.ResetInterface(ctx, iface)
		results = append(results, result)
		errs.Add(result.Err)
	}

	return results, errs.ErrorOrNil()
}

// ResetInterface deletes the root qdisc of iface, ignoring its exit status,
// brings the link up and removes a leftover IFB mirror device.
func (s *Shaper) ResetInterface(ctx context.Context, iface string) ResetResult {
	result := ResetResult{Interface: iface}

	out, err := s.runIgnoreExit(ctx, "tc", rootQdisc(iface).DeleteArgs()...)
	result.Output = out
	if err != nil {
		result.Err = wrapInterfaceError(
			fmt.Errorf("delete root qdisc: %w", err),
			iface, "reset_root_qdisc",
			terr.ErrorContext{Command: "tc qdisc del root"},
		)
		return result
	}

	result.HadShaping = !containsAny(out, noRootQdisc)
	if result.HadShaping {
		result.Message = fmt.Sprintf(msgReset, iface)
	} else {
		result.Message = fmt.Sprintf(msgNoShaping, iface)
	}

	if _, err := s.run(ctx, "ip", "link", "set", "dev", iface, "up"); err != nil {
		result.Err = wrapInterfaceError(
			fmt.Errorf("set link up: %w", err),
			iface, "reset_link_up",
			terr.ErrorContext{Command: "ip link set up"},
		)
		return result
	}

	if s.removeIfb {
		if err := s.removeIfbFor(iface); err != nil {
			s.logOptional("ifb cleanup skipped", iface, err, terr.ErrorContext{Operation: "reset_ifb", Device: ifbNameFor(iface)})
		}
	}

	if s.logger != nil {
		s.logger.Info("interface reset",
			slog.String("interface", iface),
			slog.Bool("had_shaping", result.HadShaping))
	}
	return result
}

// Clear deletes the root qdisc of iface and returns the tc output. Like Reset,
// it succeeds when there was nothing to delete.
func (s *Shaper) Clear(ctx context.Context, iface string) (string, error) {
	out, err := s.runIgnoreExit(ctx, "tc", rootQdisc(iface).DeleteArgs()...)
	if err != nil {
		return out, wrapInterfaceError(err, iface, "clear_root_qdisc", terr.ErrorContext{Command: "tc qdisc del root"})
	}
	return out, nil
}
