package traffic

import (
	"context"
	"fmt"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
)

// Namespace bundles the netlink handle and command executor bound to a named
// network namespace. Close releases both handles.
type Namespace struct {
	Name     string
	Netlink  NetlinkClient
	Executor CommandExecutor

	ns     netns.NsHandle
	handle *netlink.Handle
}

// OpenNamespace resolves a namespace created with `ip netns add`. Netlink calls
// go through a handle opened inside it, and ip/tc are run via `ip netns exec`.
func OpenNamespace(name string) (*Namespace, error) {
	ns, err := netns.GetFromName(name)
	if err != nil {
		return nil, fmt.Errorf("open netns %s: %w", name, err)
	}
	handle, err := netlink.NewHandleAt(ns)
	if err != nil {
		ns.Close()
		return nil, fmt.Errorf("netlink handle in netns %s: %w", name, err)
	}
	return &Namespace{
		Name:     name,
		Netlink:  handle,
		Executor: namespacedExecutor{netns: name, next: processExecutor{}},
		ns:       ns,
		handle:   handle,
	}, nil
}

// Close releases the namespace file descriptor and netlink sockets.
func (n *Namespace) Close() error {
	if n == nil {
		return nil
	}
	if n.handle != nil {
		n.handle.Close()
	}
	return n.ns.Close()
}

type namespacedExecutor struct {
	netns string
	next  CommandExecutor
}

func (e namespacedExecutor) Run(ctx context.Context, name string, args []string) (string, error) {
	wrapped := make([]string, 0, len(args)+4)
	wrapped = append(wrapped, "netns", "exec", e.netns, name)
	wrapped = append(wrapped, args...)
	return ensureExecutor(e.next).Run(ctx, "ip", wrapped)
}
