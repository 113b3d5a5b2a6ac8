package traffic

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	terr "tcshaper/internal/errors"
)

// InterfaceConfig is the display form of an interface's shaping settings.
// Empty fields mean the setting is not in effect.
type InterfaceConfig struct {
	Interface string `json:"interface"`
	Rate      string `json:"rate"`
	Loss      string `json:"loss"`
	Duplicate string `json:"duplicate"`
	Delay     string `json:"delay"`
	Protocol  string `json:"protocol"`
}

// IsZero reports whether no shaping setting is present.
func (c InterfaceConfig) IsZero() bool {
	return c.Rate == "" && c.Loss == "" && c.Duplicate == "" && c.Delay == "" && c.Protocol == ""
}

var (
	// class htb 1:11 parent 1:1 prio 0 rate 1Mbit ceil 1Mbit burst 1600b cburst 1600b
	classRateRe = regexp.MustCompile(`rate (\S+)`)
	// qdisc netem 10: parent 1:11 limit 1000 delay 2s loss 10% duplicate 5%
	lossRe      = regexp.MustCompile(`loss (\d+(?:\.\d+)?)%`)
	duplicateRe = regexp.MustCompile(`duplicate (\d+(?:\.\d+)?)%`)
	delayRe     = regexp.MustCompile(`delay (\d+(?:\.\d+)?)(us|ms|s)\b`)
	// filter parent 1: protocol ip pref 1 u32 ... match 00060000/00ff0000 at 8
	u32ProtoRe = regexp.MustCompile(`match 00([0-9a-f]{2})0000/00ff0000 at 8`)
)

// ParseConfig extracts shaping settings from tc qdisc, class and filter show output.
func ParseConfig(iface, qdiscOut, classOut, filterOut string) InterfaceConfig {
	cfg := InterfaceConfig{Interface: iface}

	if m := classRateRe.FindStringSubmatch(classOut); m != nil {
		cfg.Rate = m[1]
	}
	if m := lossRe.FindStringSubmatch(qdiscOut); m != nil {
		cfg.Loss = m[1]
	}
	if m := duplicateRe.FindStringSubmatch(qdiscOut); m != nil {
		cfg.Duplicate = m[1]
	}
	if m := delayRe.FindStringSubmatch(qdiscOut); m != nil {
		cfg.Delay = delayToMillis(m[1], m[2])
	}
	cfg.Protocol = string(parseFilterProtocol(filterOut))

	return cfg
}

func delayToMillis(value, unit string) string {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return ""
	}
	switch unit {
	case "us":
		v /= 1000
	case "s":
		v *= 1000
	}
	return formatNumber(v)
}

func parseFilterProtocol(filterOut string) Protocol {
	if !strings.Contains(filterOut, "protocol ip") {
		return ProtocolAll
	}
	lower := strings.ToLower(filterOut)
	switch {
	case strings.Contains(lower, "0x06"), strings.Contains(lower, "ip protocol 6 "):
		return ProtocolTCP
	case strings.Contains(lower, "0x11"), strings.Contains(lower, "ip protocol 17 "):
		return ProtocolUDP
	}
	if m := u32ProtoRe.FindStringSubmatch(lower); m != nil {
		switch m[1] {
		case "06":
			return ProtocolTCP
		case "11":
			return ProtocolUDP
		}
	}
	return ProtocolAll
}

// CurrentConfig reads the live tc state of iface. Any failure yields an
// empty config for the interface.
func (s *Shaper) CurrentConfig(ctx context.Context, iface string) InterfaceConfig {
	outputs := make([]string, 0, 3)
	for _, object := range []string{"qdisc", "class", "filter"} {
		out, err := s.runQuiet(ctx, "tc", showArgs(object, iface)...)
		if err != nil {
			s.logOptional("parse tc config failed", iface, err, terr.ErrorContext{Operation: "current_config", Command: "tc " + object + " show"})
			return InterfaceConfig{Interface: iface}
		}
		outputs = append(outputs, out)
	}
	return ParseConfig(iface, outputs[0], outputs[1], outputs[2])
}
