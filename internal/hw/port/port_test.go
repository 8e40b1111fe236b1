package port

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xilinx-labs/sn-ctl-core/internal/register"
)

func TestEnableSucceedsWhenStatusClean(t *testing.T) {
	io := register.NewBar2(make([]uint32, 16))
	io.Write(regRxStatus, rxStatusOK|rxStatusAligned)
	p := New(io)
	assert.True(t, p.Enable())
}

func TestEnableFailsOnTxStatusError(t *testing.T) {
	io := register.NewBar2(make([]uint32, 16))
	io.Write(regTxStatus, 1)
	io.Write(regRxStatus, rxStatusOK|rxStatusAligned)
	p := New(io)
	assert.False(t, p.Enable(), "Enable() should fail on nonzero tx_status")
}

func TestDisableAfterEnableDropsLink(t *testing.T) {
	io := register.NewBar2(make([]uint32, 16))
	io.Write(regRxStatus, rxStatusOK|rxStatusAligned)
	p := New(io)
	p.Enable()
	p.Disable()
	io.Write(regRxStatus, 0)
	assert.False(t, p.LinkUp(), "LinkUp() after Disable with zeroed status")
}

func TestFECRSImpliesReset(t *testing.T) {
	io := register.NewBar2(make([]uint32, 16))
	io.Write(regReset, 1) // sentinel to prove Reset ran (cleared at end)
	p := New(io)
	p.SetFEC(FECRS)
	assert.Equal(t, uint32(0), io.Read(regReset), "reset left asserted after SetFEC(FECRS)")
	assert.NotEqual(t, uint32(0), io.Read(regFECConfig)&1, "rsfec_conf_enable not set")
}

func TestConfigGettersReadBackProgrammedState(t *testing.T) {
	io := register.NewBar2(make([]uint32, 16))
	io.Write(regRxStatus, rxStatusOK|rxStatusAligned)
	p := New(io)

	assert.False(t, p.Enabled())
	p.Enable()
	assert.True(t, p.Enabled())

	assert.Equal(t, FECNone, p.FEC())
	p.SetFEC(FECRS)
	assert.Equal(t, FECRS, p.FEC())

	assert.False(t, p.Loopback())
	p.SetLoopback(true)
	assert.True(t, p.Loopback())
	p.SetLoopback(false)
	assert.False(t, p.Loopback())
}
