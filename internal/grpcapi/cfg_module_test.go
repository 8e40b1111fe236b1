package grpcapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xilinx-labs/sn-ctl-core/internal/core"
	"github.com/xilinx-labs/sn-ctl-core/internal/grpcapi/sncfgpb"
)

func TestGetModuleInfoDecodesIdentification(t *testing.T) {
	s, sim := testCfgServerWithSim()
	page00 := make([]byte, 128)
	copy(page00[20:], []byte("ACME OPTICS     ")) // vendor name
	copy(page00[40:], []byte("QSFP-100G-SR4   ")) // vendor PN
	copy(page00[68:], []byte("SN0001          ")) // vendor SN
	copy(page00[84:], []byte("24013100"))         // date code
	page00[12] = 103                              // 10300 MBd
	sim.SetModuleUpperPage(0, 0x00, page00)

	resp, err := s.GetModuleInfo(context.Background(), &sncfgpb.GetModuleInfoRequest{DevID: 0, ModuleID: 0})
	require.NoError(t, err)
	require.Len(t, resp, 1)
	require.Equal(t, errOK, resp[0].ErrorCode)
	assert.Equal(t, "ACME OPTICS", resp[0].VendorName)
	assert.Equal(t, "QSFP-100G-SR4", resp[0].VendorPN)
	assert.Equal(t, "SN0001", resp[0].VendorSN)
	assert.Equal(t, "24013100", resp[0].DateCode)
	assert.Equal(t, float64(10300), resp[0].BaudRateMBd)
}

func TestGetModuleInfoFansOutOverAllModules(t *testing.T) {
	s, _ := testCfgServerWithSim()
	resp, err := s.GetModuleInfo(context.Background(), &sncfgpb.GetModuleInfoRequest{DevID: 0, ModuleID: -1})
	require.NoError(t, err)
	assert.Len(t, resp, 2)
	assert.EqualValues(t, 0, resp[0].ModuleID)
	assert.EqualValues(t, 1, resp[1].ModuleID)
}

func TestGetModuleStatusReportsMonitors(t *testing.T) {
	s, sim := testCfgServerWithSim()
	sim.SetModuleLower(0, 22, []byte{0x19, 0x00}) // 25.0 C
	sim.SetModuleLower(0, 26, []byte{0x80, 0xE8}) // 3.3 V (33000 x 100uV)
	sim.SetModuleLower(0, 3, []byte{0x02})        // LOS on lane 1

	resp, err := s.GetModuleStatus(context.Background(), &sncfgpb.GetModuleStatusRequest{DevID: 0, ModuleID: 0})
	require.NoError(t, err)
	require.Len(t, resp, 1)
	require.Equal(t, errOK, resp[0].ErrorCode)
	require.NotNil(t, resp[0].Monitors)
	assert.Equal(t, 25.0, resp[0].Monitors.TempCelsius)
	assert.InDelta(t, 3.3, resp[0].Monitors.VccVolts, 0.0001)
	assert.False(t, resp[0].RxLOS[0])
	assert.True(t, resp[0].RxLOS[1])
}

func TestModuleMemReadWriteThroughRPC(t *testing.T) {
	s, sim := testCfgServerWithSim()
	sim.SetModuleLower(0, 0x10, []byte{0xAA, 0xBB})

	got, err := s.GetModuleMem(context.Background(), &sncfgpb.GetModuleMemRequest{DevID: 0, ModuleID: 0, Offset: 0x10, Count: 2})
	require.NoError(t, err)
	require.Equal(t, errOK, got[0].ErrorCode)
	assert.Equal(t, []byte{0xAA, 0xBB}, got[0].Data)

	set, err := s.SetModuleMem(context.Background(), &sncfgpb.SetModuleMemRequest{DevID: 0, ModuleID: 0, Offset: 0x56, Data: []byte{0x5C}})
	require.NoError(t, err)
	require.Equal(t, errOK, set[0].ErrorCode)
	assert.Equal(t, byte(0x5C), sim.ModuleLowerByte(0, 0x56))
}

func TestModuleMemValidatesSpan(t *testing.T) {
	s, _ := testCfgServerWithSim()

	resp, err := s.GetModuleMem(context.Background(), &sncfgpb.GetModuleMemRequest{DevID: 0, ModuleID: 0, Offset: 0x120, Count: 1})
	require.NoError(t, err)
	assert.Equal(t, core.ErrorModuleMemInvalidOffset, resp[0].ErrorCode)

	resp, err = s.GetModuleMem(context.Background(), &sncfgpb.GetModuleMemRequest{DevID: 0, ModuleID: 0, Offset: 0xF0, Count: 0x20})
	require.NoError(t, err)
	assert.Equal(t, core.ErrorModuleMemInvalidCount, resp[0].ErrorCode)

	bad, err := s.GetModuleMem(context.Background(), &sncfgpb.GetModuleMemRequest{DevID: 0, ModuleID: 6, Offset: 0, Count: 1})
	require.NoError(t, err)
	assert.Equal(t, core.ErrorInvalidModuleId, bad[0].ErrorCode)
}

func TestModuleGpioRoundTripAndSfpReject(t *testing.T) {
	s, sim := testCfgServerWithSim()
	// QSFP lines idle high (deasserted); module present.
	sim.SetModuleGpioRaw(0, 0xB) // reset_l | modsel_l | int_l high, modprs_l low

	got, err := s.GetModuleGpio(context.Background(), &sncfgpb.GetModuleGpioRequest{DevID: 0, ModuleID: 0})
	require.NoError(t, err)
	require.Equal(t, errOK, got[0].ErrorCode)
	require.NotNil(t, got[0].Gpio)
	assert.True(t, got[0].Gpio.ModPrs)
	assert.False(t, got[0].Gpio.Reset)

	set, err := s.SetModuleGpio(context.Background(), &sncfgpb.SetModuleGpioRequest{
		DevID: 0, ModuleID: 0,
		Gpio: &sncfgpb.ModuleGpioProto{Reset: true},
	})
	require.NoError(t, err)
	assert.Equal(t, errOK, set[0].ErrorCode)
	assert.Zero(t, sim.ModuleGpioRaw(0)&0x1, "asserted reset drives reset_l low")

	// Module 1 is SFP: low-speed IO writes are unsupported.
	rej, err := s.SetModuleGpio(context.Background(), &sncfgpb.SetModuleGpioRequest{
		DevID: 0, ModuleID: 1,
		Gpio: &sncfgpb.ModuleGpioProto{Reset: true},
	})
	require.NoError(t, err)
	assert.Equal(t, core.ErrorModuleGpioWrite, rej[0].ErrorCode)
}

func TestSetModulePageSelectsAndValidates(t *testing.T) {
	s, sim := testCfgServerWithSim()

	resp, err := s.SetModulePage(context.Background(), &sncfgpb.SetModulePageRequest{DevID: 0, ModuleID: 0, Page: 0x03})
	require.NoError(t, err)
	require.Equal(t, errOK, resp[0].ErrorCode)
	assert.Equal(t, byte(0x03), sim.ModuleLowerByte(0, 127), "page-select byte written")

	d, _ := s.agent.Device(0)
	assert.Equal(t, uint8(0x03), d.Modules[0].Sel.Selected)

	resp, err = s.SetModulePage(context.Background(), &sncfgpb.SetModulePageRequest{DevID: 0, ModuleID: 0, Page: 0x7F})
	require.NoError(t, err)
	assert.Equal(t, core.ErrorModuleMemInvalidPage, resp[0].ErrorCode)
}
