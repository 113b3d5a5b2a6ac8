package traffic

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"
)

func TestReportCapturesSectionsInOrder(t *testing.T) {
	ex := newFakeExecutor().
		on("ip addr show dev lo", "1: lo: <LOOPBACK,UP,LOWER_UP> mtu 65536 qdisc noqueue\n", nil).
		on("tc qdisc show dev lo", "qdisc noqueue 0: root refcnt 2\n", nil).
		on("tc filter show dev lo", "Error: no such device\n", errExit)
	nl := &fakeNetlink{links: []netlink.Link{device(1, "lo", "noqueue")}}
	s := newTestShaper(ex, nl, false)

	reports, err := s.Report(context.Background(), []string{"lo"})
	require.NoError(t, err)
	require.Len(t, reports, 1)

	r := reports[0]
	assert.Equal(t, "link lo: index=1 type=device admin=down oper=up mtu=1500 qdisc=noqueue", r.Link)
	require.Len(t, r.Sections, 4)
	assert.Equal(t, "ip addr show dev lo", r.Sections[0].Command)
	assert.Equal(t, "tc qdisc show dev lo", r.Sections[1].Command)
	assert.Equal(t, "tc class show dev lo", r.Sections[2].Command)
	assert.Equal(t, "tc filter show dev lo", r.Sections[3].Command)
	assert.Error(t, r.Sections[3].Err)
	assert.Equal(t, NoShapingNote, r.Note)

	var buf bytes.Buffer
	require.NoError(t, WriteReports(&buf, reports))
	out := buf.String()
	assert.Contains(t, out, "=== lo ===\n")
	assert.Contains(t, out, "Running: tc qdisc show dev lo\nqdisc noqueue 0: root refcnt 2\n")
	assert.Contains(t, out, "(error: command tc filter show dev lo: exit status 2)")
	assert.Contains(t, out, "\n"+NoShapingNote+"\n")
}

func TestLinkSummaryRootQdisc(t *testing.T) {
	tests := []struct {
		name     string
		link     netlink.Link
		qdiscErr error
		want     string
	}{
		{name: "root htb behind child netem", link: device(2, "enp0s25", "htb"), want: "qdisc=htb"},
		{name: "no qdiscs", link: device(2, "enp0s25", ""), want: "qdisc=none"},
		{name: "list error", link: device(2, "enp0s25", "htb"), qdiscErr: errExit, want: "qdisc=unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nl := &fakeNetlink{links: []netlink.Link{tt.link}, qdiscErr: tt.qdiscErr}
			s := newTestShaper(newFakeExecutor(), nl, false)
			assert.True(t, strings.HasSuffix(s.linkSummary("enp0s25"), tt.want))
		})
	}
}

var _ NetlinkClient = (*netlink.Handle)(nil)

func TestReportUnknownLink(t *testing.T) {
	s := newTestShaper(newFakeExecutor(), &fakeNetlink{}, false)

	reports, err := s.Report(context.Background(), []string{"enp0s25"})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "link enp0s25: Link not found", reports[0].Link)
	assert.Empty(t, reports[0].Note)
}

func TestStatus(t *testing.T) {
	ex := newFakeExecutor().
		on("tc qdisc show dev eth0", "qdisc htb 1: root refcnt 2 r2q 10 default 0x11\n", nil).
		on("tc class show dev eth0", "class htb 1:11 parent 1:1 prio 0 rate 10Mbit ceil 10Mbit\n", nil)
	s := newTestShaper(ex, nil, false)

	out, err := s.Status(context.Background(), "eth0")
	require.NoError(t, err)
	assert.Equal(t, "qdisc htb 1: root refcnt 2 r2q 10 default 0x11\nclass htb 1:11 parent 1:1 prio 0 rate 10Mbit ceil 10Mbit\n", out)

	ex.on("tc qdisc show dev eth0", "qdisc pfifo_fast 0: root refcnt 2 bands 3\n", nil).
		on("tc class show dev eth0", "", nil)
	out, err = s.Status(context.Background(), "eth0")
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix([]byte(out), []byte("\n\n"+NoShapingNote)))
}

func TestInterfacesSortedByIndex(t *testing.T) {
	nl := &fakeNetlink{links: []netlink.Link{
		device(3, "wlan0", ""),
		device(1, "lo", ""),
		device(2, "enp0s25", ""),
	}}
	s := newTestShaper(newFakeExecutor(), nl, false)

	names, err := s.Interfaces(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"lo", "enp0s25", "wlan0"}, names)

	nl.listErr = errExit
	_, err = s.Interfaces(context.Background())
	assert.Error(t, err)
}

func TestNamespacedExecutor(t *testing.T) {
	inner := newFakeExecutor()
	ex := namespacedExecutor{netns: "lab", next: inner}

	_, err := ex.Run(context.Background(), "tc", []string{"qdisc", "show", "dev", "veth0"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ip netns exec lab tc qdisc show dev veth0"}, inner.Calls())
}
