package grpcapi

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xilinx-labs/sn-ctl-core/internal/agent"
	"github.com/xilinx-labs/sn-ctl-core/internal/grpcapi/sncfgpb"
	"github.com/xilinx-labs/sn-ctl-core/internal/hw/host"
	"github.com/xilinx-labs/sn-ctl-core/internal/hw/port"
	"github.com/xilinx-labs/sn-ctl-core/internal/hw/swtch"
	"github.com/xilinx-labs/sn-ctl-core/internal/register"
)

// Register block bases, disjoint widely enough that host.SetQueues'
// per-channel indirection table (up to FunctionQueues*4 bytes per
// host) never overruns into the switch's window, mirroring the real
// base-offset spacing internal/agent/device.go uses.
const (
	testBasePort0   = 0x00020000
	testBasePort1   = 0x00021000
	testBaseHost    = 0x00030000
	testBaseSwitch  = 0x00040000
	regRxStatus     = 0x14
	rxStatusUp      = 1 << 0
	rxStatusAligned = 1 << 1
	rxStatusOK      = 1 << 2
)

// testRxStatus has every link-up bit set the port package reads, so
// LinkUp() reports true for the fake CMAC regardless of what Enable's
// own stricter pass/fail check sees (see internal/hw/port/port.go).
const testRxStatus = rxStatusUp | rxStatusAligned | rxStatusOK

func testCfgServerWithTwoPortsTwoHosts() *CfgServer {
	bar2 := register.NewBar2(make([]uint32, (testBaseSwitch+0x1000)/4))
	bar2.Write(testBasePort0+regRxStatus, testRxStatus)
	bar2.Write(testBasePort1+regRxStatus, testRxStatus)

	a := agent.New(slog.Default())
	a.AddDevice(&agent.Device{
		ID:    0,
		BusID: "0000:01:00.0",
		BAR2:  bar2,
		Ports: map[int32]*port.Port{
			0: port.New(register.NewView(bar2, testBasePort0)),
			1: port.New(register.NewView(bar2, testBasePort1)),
		},
		NumHosts: 2,
		Host:     host.New(register.NewView(bar2, testBaseHost)),
		Switch:   swtch.New(register.NewView(bar2, testBaseSwitch)),
	})
	return NewCfgServer(a, nil)
}

// TestSetSwitchDefaultsOrchestratesWholeDevice drives the
// whole-device defaults profile end to end: every port ends enabled,
// the switch
// ends in its one-to-one mapping, and every host ends with its own
// dedicated QDMA queue.
func TestSetSwitchDefaultsOrchestratesWholeDevice(t *testing.T) {
	s := testCfgServerWithTwoPortsTwoHosts()
	resp, err := s.SetSwitchDefaults(context.Background(), &sncfgpb.SetDefaultsRequest{DevID: 0})
	require.NoError(t, err)
	require.Len(t, resp, 1)
	assert.Equal(t, errOK, resp[0].ErrorCode)

	d, ok := s.agent.Device(0)
	require.True(t, ok)

	for id, p := range d.Ports {
		assert.True(t, p.LinkUp(), "port %d should be linked up after defaults", id)
	}

	for i := 0; i < d.NumHosts; i++ {
		base, num := d.Host.GetQueues(uint32(i))
		assert.EqualValues(t, i*defaultQueuesPerHost, base, "host %d base queue", i)
		assert.EqualValues(t, defaultQueuesPerHost, num, "host %d num queues", i)
	}

	gotSwitch, err := s.GetSwitchConfig(context.Background(), &sncfgpb.SwitchConfigRequest{DevID: 0})
	require.NoError(t, err)
	require.Len(t, gotSwitch, 1)
	assert.Equal(t, swtch.Config{
		CMAC0: swtch.DestApp0, CMAC1: swtch.DestApp0,
		Host0: swtch.DestBypass, Host1: swtch.DestBypass,
	}, gotSwitch[0].Config)
}
