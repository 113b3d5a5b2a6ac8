package traffic

import (
	"fmt"
	"log/slog"
)

// ifbNameFor returns the mirror device name used for iface's ingress traffic.
func ifbNameFor(iface string) string {
	return truncateIfb(IfbPrefix + iface)
}

// removeIfbFor deletes the ifb4<iface> device when one exists. Ingress shaping
// left behind by other tools redirects into such a device; the root qdisc
// delete alone leaves it in place.
func (s *Shaper) removeIfbFor(iface string) error {
	name := ifbNameFor(iface)

	links, err := s.netlink.LinkList()
	if err != nil {
		return fmt.Errorf("list links: %w", err)
	}

	for _, link := range links {
		attrs := link.Attrs()
		if attrs == nil || attrs.Name != name {
			continue
		}
		if link.Type() != "ifb" {
			return fmt.Errorf("%s exists but is a %s device", name, link.Type())
		}
		if err := s.netlink.LinkDel(link); err != nil {
			return fmt.Errorf("delete %s: %w", name, err)
		}
		if s.logger != nil {
			s.logger.Info("removed ifb device", slog.String("interface", iface), slog.String("ifb", name))
		}
		return nil
	}
	return nil
}

func truncateIfb(name string) string {
	if len(name) <= 15 {
		return name
	}
	return name[:15]
}
