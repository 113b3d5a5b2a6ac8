package traffic

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/vishvananda/netlink"
)

// NetlinkClient abstracts the netlink calls used for link inspection and IFB cleanup.
// *netlink.Handle satisfies it for namespaced use.
type NetlinkClient interface {
	LinkList() ([]netlink.Link, error)
	LinkByName(name string) (netlink.Link, error)
	LinkDel(link netlink.Link) error
	QdiscList(link netlink.Link) ([]netlink.Qdisc, error)
}

// CommandExecutor runs an external command and returns its combined stdout and stderr.
type CommandExecutor interface {
	Run(ctx context.Context, name string, args []string) (string, error)
}

// Recorder receives per-command observations, e.g. for Prometheus counters.
type Recorder interface {
	ObserveCommand(tool string, elapsed time.Duration, err error)
}

type defaultNetlinkClient struct{}

func (defaultNetlinkClient) LinkList() ([]netlink.Link, error) {
	return netlink.LinkList()
}

func (defaultNetlinkClient) LinkByName(name string) (netlink.Link, error) {
	return netlink.LinkByName(name)
}

func (defaultNetlinkClient) LinkDel(link netlink.Link) error {
	return netlink.LinkDel(link)
}

func (defaultNetlinkClient) QdiscList(link netlink.Link) ([]netlink.Qdisc, error) {
	return netlink.QdiscList(link)
}

type processExecutor struct{}

func (processExecutor) Run(ctx context.Context, name string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	err := cmd.Run()
	return output.String(), err
}

func ensureExecutor(executor CommandExecutor) CommandExecutor {
	if executor != nil {
		return executor
	}
	return processExecutor{}
}

type nopRecorder struct{}

func (nopRecorder) ObserveCommand(string, time.Duration, error) {}
