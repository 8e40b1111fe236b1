// Package port implements the CMAC (100Gb Ethernet MAC) driver.
package port

import (
	"github.com/xilinx-labs/sn-ctl-core/internal/register"
)

// Register offsets relative to one CMAC block's base, following the
// vendor-generated header naming.
const (
	regControlTx    uint32 = 0x00 // bit0: tx_enable
	regControlRx    uint32 = 0x04 // bit0: rx_enable
	regReset        uint32 = 0x08 // bit0: reset
	regTxStatus     uint32 = 0x10
	regRxStatus     uint32 = 0x14 // bit0: stat_rx_status, bit1: stat_rx_aligned, bit2: rx_ok
	regFECConfig    uint32 = 0x20 // bit0: rsfec_conf_enable, bit1: correction_mode
	regLoopback     uint32 = 0x24 // bit0: gt_loopback
)

const (
	rxStatusOK      uint32 = 1 << 2
	rxStatusAligned uint32 = 1 << 1
	rxStatusUp      uint32 = 1 << 0
)

// FECMode selects forward error correction.
type FECMode int

const (
	FECNone FECMode = iota
	FECFireCode
	FECRS
)

// Port is one CMAC block, addressed via a register.IO scoped to its
// base offset (callers pass an IO already windowed to the block;
// the device-wide base arithmetic lives one layer up in the agent).
type Port struct {
	io register.IO
}

func New(io register.IO) *Port { return &Port{io: io} }

// Enable writes rx/tx enable bits, barriers, and polls rx/tx status
// twice (clearing sticky bits) to confirm link up.
func (p *Port) Enable() bool {
	register.SetBits(p.io, regControlTx, 1)
	register.SetBits(p.io, regControlRx, 1)
	p.io.Barrier()

	txStatus := register.ReadSticky(p.io, regTxStatus)
	rxStatus := register.ReadSticky(p.io, regRxStatus)

	return txStatus == 0 && rxStatus == (rxStatusOK|rxStatusAligned)
}

// Disable clears rx/tx enable.
func (p *Port) Disable() {
	register.ClearBits(p.io, regControlRx, 1)
	register.ClearBits(p.io, regControlTx, 1)
	p.io.Barrier()
}

// Reset pulses the block's reset bit.
func (p *Port) Reset() {
	register.SetBits(p.io, regReset, 1)
	p.io.Barrier()
	register.ClearBits(p.io, regReset, 1)
}

// SetFEC toggles rsfec_conf_enable and the correction mode.
// Enabling RS-FEC implies a subsequent Reset.
func (p *Port) SetFEC(mode FECMode) {
	switch mode {
	case FECNone:
		register.ClearBits(p.io, regFECConfig, 0x3)
	case FECFireCode:
		register.ClearBits(p.io, regFECConfig, 1)
		register.SetBits(p.io, regFECConfig, 1<<1)
	case FECRS:
		register.SetBits(p.io, regFECConfig, 1)
		p.Reset()
	}
}

// SetLoopback toggles gt_loopback.
func (p *Port) SetLoopback(enabled bool) {
	if enabled {
		register.SetBits(p.io, regLoopback, 1)
	} else {
		register.ClearBits(p.io, regLoopback, 1)
	}
}

// LinkUp is stat_rx_status && stat_rx_aligned, read twice to
// account for latched sticky bits.
func (p *Port) LinkUp() bool {
	status := register.ReadSticky(p.io, regRxStatus)
	return status&rxStatusUp != 0 && status&rxStatusAligned != 0
}

// Enabled reports whether both rx and tx enable bits are set.
func (p *Port) Enabled() bool {
	return p.io.Read(regControlTx)&1 != 0 && p.io.Read(regControlRx)&1 != 0
}

// FEC reads back the current forward-error-correction mode.
func (p *Port) FEC() FECMode {
	conf := p.io.Read(regFECConfig)
	switch {
	case conf&1 != 0:
		return FECRS
	case conf&(1<<1) != 0:
		return FECFireCode
	default:
		return FECNone
	}
}

// Loopback reads back the gt_loopback bit.
func (p *Port) Loopback() bool {
	return p.io.Read(regLoopback)&1 != 0
}
