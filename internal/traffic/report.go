package traffic

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"

	terr "tcshaper/internal/errors"

	"github.com/vishvananda/netlink"
)

// Section is the captured output of one report command.
type Section struct {
	Command string
	Output  string
	Err     error
}

// InterfaceReport is the post-reset view of one interface.
type InterfaceReport struct {
	Interface string
	Link      string
	Sections  []Section
	Note      string
}

// Report captures ip and tc show output for each interface in order. Command
// failures are recorded in their section; only cancellation aborts.
func (s *Shaper) Report(ctx context.Context, ifaces []string) ([]InterfaceReport, error) {
	reports := make([]InterfaceReport, 0, len(ifaces))
	for _, iface := range ifaces {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report := InterfaceReport{
			Interface: iface,
			Link:      s.linkSummary(iface),
		}

		commands := [][]string{
			{"ip", "addr", "show", "dev", iface},
			append([]string{"tc"}, showArgs("qdisc", iface)...),
			append([]string{"tc"}, showArgs("class", iface)...),
			append([]string{"tc"}, showArgs("filter", iface)...),
		}
		for _, cmd := range commands {
			report.Sections = append(report.Sections, s.capture(ctx, cmd[0], cmd[1:]...))
		}
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		if hasDefaultQdisc(report.Sections[1].Output) {
			report.Note = NoShapingNote
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Status returns the tc qdisc, class and filter output for iface.
func (s *Shaper) Status(ctx context.Context, iface string) (string, error) {
	var b strings.Builder
	var qdiscOut string
	for _, object := range []string{"qdisc", "class", "filter"} {
		section := s.capture(ctx, "tc", showArgs(object, iface)...)
		if err := ctx.Err(); err != nil {
			return b.String(), err
		}
		if object == "qdisc" {
			qdiscOut = section.Output
		}
		b.WriteString(section.Output)
	}
	if hasDefaultQdisc(qdiscOut) {
		b.WriteString("\n\n")
		b.WriteString(NoShapingNote)
	}
	return b.String(), nil
}

func (s *Shaper) capture(ctx context.Context, name string, args ...string) Section {
	out, err := s.runQuiet(ctx, name, args...)
	if err != nil {
		s.handleCategorizedError("report command failed", "", err, terr.CategoryRecoverable)
	}
	return Section{Command: commandLine(name, args), Output: out, Err: err}
}

func (s *Shaper) linkSummary(iface string) string {
	link, err := s.netlink.LinkByName(iface)
	if err != nil {
		return fmt.Sprintf("link %s: %v", iface, err)
	}
	attrs := link.Attrs()
	if attrs == nil {
		return fmt.Sprintf("link %s: attributes unavailable", iface)
	}
	admin := "down"
	if attrs.Flags&net.FlagUp != 0 {
		admin = "up"
	}
	return fmt.Sprintf("link %s: index=%d type=%s admin=%s oper=%s mtu=%d qdisc=%s",
		attrs.Name, attrs.Index, link.Type(), admin, attrs.OperState, attrs.MTU, s.rootQdiscKind(link))
}

// rootQdiscKind returns the kind of the qdisc attached at the root handle.
func (s *Shaper) rootQdiscKind(link netlink.Link) string {
	qdiscs, err := s.netlink.QdiscList(link)
	if err != nil {
		s.handleCategorizedError("qdisc list failed", link.Attrs().Name, err, terr.CategoryOptional)
		return "unknown"
	}
	for _, q := range qdiscs {
		if q.Attrs().Parent == netlink.HANDLE_ROOT {
			return q.Type()
		}
	}
	return "none"
}

func hasDefaultQdisc(qdiscOutput string) bool {
	for _, marker := range defaultQdiscMarkers {
		if strings.Contains(qdiscOutput, marker) {
			return true
		}
	}
	return false
}

// WriteReports prints reports in the plain text form used by the reset command.
func WriteReports(w io.Writer, reports []InterfaceReport) error {
	var b strings.Builder
	for i, r := range reports {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "=== %s ===\n", r.Interface)
		b.WriteString(r.Link)
		b.WriteString("\n")
		for _, section := range r.Sections {
			fmt.Fprintf(&b, "Running: %s\n", section.Command)
			b.WriteString(section.Output)
			if section.Output != "" && !strings.HasSuffix(section.Output, "\n") {
				b.WriteString("\n")
			}
			if section.Err != nil {
				fmt.Fprintf(&b, "(error: %v)\n", section.Err)
			}
		}
		if r.Note != "" {
			fmt.Fprintf(&b, "\n%s\n", r.Note)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteResets prints one line per reset interface.
func WriteResets(w io.Writer, results []ResetResult) error {
	var b strings.Builder
	for _, r := range results {
		switch {
		case r.Err != nil && r.Message == "":
			fmt.Fprintf(&b, "%s: reset failed: %v\n", r.Interface, r.Err)
		case r.Err != nil:
			fmt.Fprintf(&b, "%s (link up failed: %v)\n", r.Message, r.Err)
		default:
			fmt.Fprintf(&b, "%s\n", r.Message)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
