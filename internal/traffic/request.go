package traffic

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"tcshaper/internal/config"
)

// Protocol restricts shaping to one IP protocol. The empty value shapes all traffic.
type Protocol string

const (
	ProtocolAll Protocol = ""
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
)

// ParseProtocol accepts "", "all", "tcp" and "udp" in any case.
func ParseProtocol(value string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "all":
		return ProtocolAll, nil
	case "tcp":
		return ProtocolTCP, nil
	case "udp":
		return ProtocolUDP, nil
	default:
		return ProtocolAll, fmt.Errorf("unsupported protocol %q", value)
	}
}

// number returns the IP protocol number matched by the u32 filter.
func (p Protocol) number() string {
	switch p {
	case ProtocolTCP:
		return "6"
	case ProtocolUDP:
		return "17"
	default:
		return ""
	}
}

var rateRe = regexp.MustCompile(`(?i)^[0-9]+(\.[0-9]+)?([kmgt]i?)?(bit|bps)?$`)

// ShapingRequest is the desired shaping for one interface. Zero Loss,
// Duplicate and DelayMs leave the corresponding netem option out.
type ShapingRequest struct {
	Interface string
	Rate      string
	Loss      float64
	Duplicate float64
	DelayMs   float64
	Protocol  Protocol
}

// NewShapingRequest parses string inputs as they arrive from forms and flags.
func NewShapingRequest(iface, rate, loss, duplicate, delay, protocol string) (ShapingRequest, error) {
	req := ShapingRequest{
		Interface: strings.TrimSpace(iface),
		Rate:      strings.TrimSpace(rate),
	}
	var err error
	if req.Loss, err = parseOptionalFloat("loss", loss); err != nil {
		return req, err
	}
	if req.Duplicate, err = parseOptionalFloat("duplicate", duplicate); err != nil {
		return req, err
	}
	if req.DelayMs, err = parseOptionalFloat("delay", delay); err != nil {
		return req, err
	}
	if req.Protocol, err = ParseProtocol(protocol); err != nil {
		return req, err
	}
	return req, req.Validate()
}

func parseOptionalFloat(field, value string) (float64, error) {
	value = strings.TrimSuffix(strings.TrimSpace(value), "%")
	if value == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || !finite(v) {
		return 0, fmt.Errorf("%s: %q is not a number", field, value)
	}
	return v, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate checks the request before any command runs.
func (r ShapingRequest) Validate() error {
	if err := config.ValidateInterfaceName(r.Interface); err != nil {
		return err
	}
	if r.Rate == "" {
		return fmt.Errorf("rate is required")
	}
	if !rateRe.MatchString(r.Rate) {
		return fmt.Errorf("rate %q is not a tc rate such as 10mbit", r.Rate)
	}
	for _, pct := range []struct {
		name  string
		value float64
	}{{"loss", r.Loss}, {"duplicate", r.Duplicate}} {
		if !finite(pct.value) || pct.value < 0 || pct.value > 100 {
			return fmt.Errorf("%s must be between 0 and 100, got %v", pct.name, pct.value)
		}
	}
	if !finite(r.DelayMs) || r.DelayMs < 0 {
		return fmt.Errorf("delay must not be negative, got %v", r.DelayMs)
	}
	if _, err := ParseProtocol(string(r.Protocol)); err != nil {
		return err
	}
	return nil
}

// netemOptions renders the netem arguments in delay, loss, duplicate order.
func (r ShapingRequest) netemOptions() []string {
	var opts []string
	if r.DelayMs > 0 {
		opts = append(opts, "delay", formatNumber(r.DelayMs)+"ms")
	}
	if r.Loss > 0 {
		opts = append(opts, "loss", formatNumber(r.Loss)+"%")
	}
	if r.Duplicate > 0 {
		opts = append(opts, "duplicate", formatNumber(r.Duplicate)+"%")
	}
	return opts
}

// Config returns the display form of the request, as stored and shown in forms.
func (r ShapingRequest) Config() InterfaceConfig {
	cfg := InterfaceConfig{
		Interface: r.Interface,
		Rate:      r.Rate,
		Protocol:  string(r.Protocol),
	}
	if r.Loss > 0 {
		cfg.Loss = formatNumber(r.Loss)
	}
	if r.Duplicate > 0 {
		cfg.Duplicate = formatNumber(r.Duplicate)
	}
	if r.DelayMs > 0 {
		cfg.Delay = formatNumber(r.DelayMs)
	}
	return cfg
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
