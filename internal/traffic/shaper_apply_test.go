package traffic

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyCommandSequence(t *testing.T) {
	ex := newFakeExecutor()
	s := newTestShaper(ex, nil, false)

	req := ShapingRequest{Interface: "enp0s25", Rate: "10mbit", Loss: 1, Duplicate: 2, DelayMs: 200, Protocol: ProtocolTCP}
	_, err := s.Apply(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"tc qdisc del dev enp0s25 root",
		"tc qdisc add dev enp0s25 root handle 1: htb default 11",
		"tc class add dev enp0s25 parent 1: classid 1:1 htb rate 10mbit",
		"tc class add dev enp0s25 parent 1:1 classid 1:11 htb rate 10mbit",
		"tc qdisc add dev enp0s25 parent 1:11 handle 10: netem delay 200ms loss 1% duplicate 2%",
		"tc filter add dev enp0s25 protocol ip parent 1: prio 1 u32 match ip protocol 6 0xff flowid 1:11",
	}, ex.Calls())
}

func TestApplyWithoutImpairments(t *testing.T) {
	ex := newFakeExecutor()
	s := newTestShaper(ex, nil, false)

	_, err := s.Apply(context.Background(), ShapingRequest{Interface: "lo", Rate: "1mbit"})
	require.NoError(t, err)

	calls := ex.Calls()
	require.Len(t, calls, 5)
	assert.Equal(t, "tc qdisc add dev lo parent 1:11 handle 10: netem", calls[4])
}

func TestApplyUDPFilter(t *testing.T) {
	steps := applySteps(ShapingRequest{Interface: "eth0", Rate: "1mbit", Protocol: ProtocolUDP})
	last := steps[len(steps)-1]
	assert.Equal(t, "protocol_filter", last.name)
	assert.Equal(t, "filter add dev eth0 protocol ip parent 1: prio 1 u32 match ip protocol 17 0xff flowid 1:11", commandLine(last.args[0], last.args[1:]))
}

func TestApplyStopsAtFirstFailure(t *testing.T) {
	ex := newFakeExecutor().
		on("tc class add dev eth0 parent 1: classid 1:1 htb rate 1mbit", "Error: Invalid rate.\n", errExit)
	s := newTestShaper(ex, nil, false)

	out, err := s.Apply(context.Background(), ShapingRequest{Interface: "eth0", Rate: "1mbit"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parent_class")
	assert.Contains(t, out, "Invalid rate")
	assert.Len(t, ex.Calls(), 3)
}

func TestApplyRejectsInvalidRequest(t *testing.T) {
	ex := newFakeExecutor()
	s := newTestShaper(ex, nil, false)

	_, err := s.Apply(context.Background(), ShapingRequest{Interface: "eth0", Rate: "fast"})
	require.Error(t, err)
	assert.Empty(t, ex.Calls())
}

func TestNewShapingRequest(t *testing.T) {
	tests := []struct {
		name                          string
		iface, rate, loss, dup, delay string
		proto                         string
		want                          ShapingRequest
		wantErr                       bool
	}{
		{
			name: "full", iface: "lo", rate: "1mbit", loss: "0.5", dup: "1.0", delay: "20", proto: "TCP",
			want: ShapingRequest{Interface: "lo", Rate: "1mbit", Loss: 0.5, Duplicate: 1, DelayMs: 20, Protocol: ProtocolTCP},
		},
		{
			name: "percent sign and all", iface: "eth0", rate: "10Mbit", loss: "5%", proto: "all",
			want: ShapingRequest{Interface: "eth0", Rate: "10Mbit", Loss: 5},
		},
		{name: "missing rate", iface: "lo", wantErr: true},
		{name: "bad rate", iface: "lo", rate: "10 mbit", wantErr: true},
		{name: "rate injection", iface: "lo", rate: "1mbit;reboot", wantErr: true},
		{name: "loss over 100", iface: "lo", rate: "1mbit", loss: "101", wantErr: true},
		{name: "negative delay", iface: "lo", rate: "1mbit", delay: "-1", wantErr: true},
		{name: "non numeric loss", iface: "lo", rate: "1mbit", loss: "lots", wantErr: true},
		{name: "NaN loss", iface: "lo", rate: "1mbit", loss: "NaN", wantErr: true},
		{name: "infinite delay", iface: "lo", rate: "1mbit", delay: "inf", wantErr: true},
		{name: "infinite duplicate", iface: "lo", rate: "1mbit", dup: "-Inf", wantErr: true},
		{name: "bad protocol", iface: "lo", rate: "1mbit", proto: "icmp", wantErr: true},
		{name: "option interface", iface: "-force", rate: "1mbit", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewShapingRequest(tt.iface, tt.rate, tt.loss, tt.dup, tt.delay, tt.proto)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateRejectsNonFinite(t *testing.T) {
	base := ShapingRequest{Interface: "lo", Rate: "1mbit"}
	for _, req := range []ShapingRequest{
		{Interface: base.Interface, Rate: base.Rate, Loss: math.NaN()},
		{Interface: base.Interface, Rate: base.Rate, Duplicate: math.Inf(1)},
		{Interface: base.Interface, Rate: base.Rate, DelayMs: math.Inf(1)},
	} {
		assert.Error(t, req.Validate())
	}
	assert.NoError(t, base.Validate())
}

func TestShapingRequestConfig(t *testing.T) {
	cfg := ShapingRequest{Interface: "lo", Rate: "1mbit", Loss: 0.5, Duplicate: 1, Protocol: ProtocolTCP}.Config()
	assert.Equal(t, InterfaceConfig{Interface: "lo", Rate: "1mbit", Loss: "0.5", Duplicate: "1", Protocol: "tcp"}, cfg)
}
