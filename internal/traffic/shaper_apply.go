package traffic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	terr "tcshaper/internal/errors"
)

type applyStep struct {
	name    string
	command string
	args    []string
}

// Apply replaces the root qdisc of req.Interface with an HTB tree whose leaf
// class carries a netem qdisc, then adds a u32 filter when a protocol is set.
// The returned output concatenates every command's output, also on failure.
func (s *Shaper) Apply(ctx context.Context, req ShapingRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", terr.New(terr.CategoryCritical, err, terr.ErrorContext{Operation: "validate_request", Interface: req.Interface})
	}
	iface := req.Interface

	if _, err := s.Clear(ctx, iface); err != nil {
		return "", err
	}

	var output strings.Builder
	for _, step := range applySteps(req) {
		out, err := s.run(ctx, "tc", step.args...)
		output.WriteString(out)
		if err != nil {
			return output.String(), wrapInterfaceError(
				fmt.Errorf("%s: %w", step.name, err),
				iface, "apply_"+step.name,
				terr.ErrorContext{Command: step.command},
			)
		}
	}

	if s.logger != nil {
		s.logger.Info("shaping applied",
			slog.String("interface", iface),
			slog.String("rate", req.Rate),
			slog.Float64("loss", req.Loss),
			slog.Float64("duplicate", req.Duplicate),
			slog.Float64("delay_ms", req.DelayMs),
			slog.String("protocol", string(req.Protocol)))
	}
	return output.String(), nil
}

// applySteps renders the tc invocations of Apply, in execution order.
func applySteps(req ShapingRequest) []applyStep {
	iface := req.Interface
	rate := []string{"rate", req.Rate}

	root := QdiscConfig{Device: iface, Root: true, Handle: rootHandle, Kind: "htb", Options: []string{"default", defaultClass}}
	parent := ClassConfig{Device: iface, Parent: rootHandle, ClassID: parentClassID, Kind: "htb", Options: rate}
	leaf := ClassConfig{Device: iface, Parent: parentClassID, ClassID: leafClassID, Kind: "htb", Options: rate}
	netem := QdiscConfig{Device: iface, Parent: leafClassID, Handle: netemHandle, Kind: "netem", Options: req.netemOptions()}

	steps := []applyStep{
		{"root_qdisc", "tc qdisc add root htb", root.AddArgs()},
		{"parent_class", "tc class add htb", parent.AddArgs()},
		{"leaf_class", "tc class add htb", leaf.AddArgs()},
		{"netem_qdisc", "tc qdisc add netem", netem.AddArgs()},
	}

	if proto := req.Protocol.number(); proto != "" {
		filter := FilterConfig{
			Device:   iface,
			Parent:   rootHandle,
			Protocol: "ip",
			Prio:     filterPriority,
			Kind:     "u32",
			Match:    []string{"match", "ip", "protocol", proto, "0xff"},
			FlowID:   leafClassID,
		}
		steps = append(steps, applyStep{"protocol_filter", "tc filter add u32", filter.AddArgs()})
	}
	return steps
}
