package traffic

import (
	"context"
	"errors"
	"sync"

	"github.com/vishvananda/netlink"
)

var errExit = errors.New("exit status 2")

type fakeResponse struct {
	out string
	err error
}

type fakeExecutor struct {
	mu        sync.Mutex
	calls     []string
	responses map[string]fakeResponse
	block     bool
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{responses: map[string]fakeResponse{}}
}

func (f *fakeExecutor) on(line, out string, err error) *fakeExecutor {
	f.responses[line] = fakeResponse{out: out, err: err}
	return f
}

func (f *fakeExecutor) Run(ctx context.Context, name string, args []string) (string, error) {
	line := commandLine(name, args)
	f.mu.Lock()
	f.calls = append(f.calls, line)
	resp := f.responses[line]
	block := f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", errors.New("signal: killed")
	}
	return resp.out, resp.err
}

func (f *fakeExecutor) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeNetlink struct {
	mu       sync.Mutex
	links    []netlink.Link
	deleted  []string
	listErr  error
	qdiscErr error
}

func (f *fakeNetlink) LinkList() ([]netlink.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]netlink.Link(nil), f.links...), nil
}

func (f *fakeNetlink) LinkByName(name string) (netlink.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, link := range f.links {
		if link.Attrs().Name == name {
			return link, nil
		}
	}
	return nil, errors.New("Link not found")
}

func (f *fakeNetlink) LinkDel(link netlink.Link) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := link.Attrs().Name
	f.deleted = append(f.deleted, name)
	kept := f.links[:0]
	for _, l := range f.links {
		if l.Attrs().Name != name {
			kept = append(kept, l)
		}
	}
	f.links = kept
	return nil
}

func (f *fakeNetlink) QdiscList(link netlink.Link) ([]netlink.Qdisc, error) {
	if f.qdiscErr != nil {
		return nil, f.qdiscErr
	}
	dev, ok := link.(*fakeDevice)
	if !ok || dev.rootQdisc == "" {
		return nil, nil
	}
	index := dev.Attrs().Index
	return []netlink.Qdisc{
		&netlink.GenericQdisc{
			QdiscAttrs: netlink.QdiscAttrs{LinkIndex: index, Handle: netlink.MakeHandle(0x10, 0), Parent: netlink.MakeHandle(1, 0x11)},
			QdiscType:  "netem",
		},
		&netlink.GenericQdisc{
			QdiscAttrs: netlink.QdiscAttrs{LinkIndex: index, Parent: netlink.HANDLE_ROOT},
			QdiscType:  dev.rootQdisc,
		},
	}, nil
}

// fakeDevice is a plain device whose QdiscList reports rootQdisc at the root
// handle behind a child netem qdisc.
type fakeDevice struct {
	netlink.Device
	rootQdisc string
}

func device(index int, name, rootQdisc string) netlink.Link {
	return &fakeDevice{
		Device: netlink.Device{LinkAttrs: netlink.LinkAttrs{
			Index:     index,
			Name:      name,
			MTU:       1500,
			OperState: netlink.OperUp,
		}},
		rootQdisc: rootQdisc,
	}
}

func ifb(index int, name string) netlink.Link {
	return &netlink.Ifb{LinkAttrs: netlink.LinkAttrs{Index: index, Name: name}}
}
