// Package swtch implements the packet switch driver.
// Named swtch because switch is a Go keyword.
package swtch

import (
	"github.com/xilinx-labs/sn-ctl-core/internal/register"
)

// InterfaceType identifies one side of an ingress/egress selector
// mapping.
type InterfaceType int

const (
	IfaceCMAC InterfaceType = iota
	IfaceHost
	IfaceApp
)

// Destination is a well-known fixed mapping target.
type Destination int

const (
	DestDrop Destination = iota
	DestBypass
	DestCMAC0
	DestCMAC1
	DestHost0
	DestHost1
	DestApp0
	DestApp1
)

// hwTID/hwTDEST mapping: fixed per (interfaceType, index).
// The exact TID/TDEST numbering is IP-metadata-derived; this table is the
// reproducible shape the driver programs against.
var selectorSlot = map[InterfaceType][2]uint32{
	IfaceCMAC: {0, 1},
	IfaceHost: {2, 3},
	IfaceApp:  {4, 5},
}

const (
	regIngressBase uint32 = 0x00 // one word per (iface,index) ingress selector
	regEgressBase  uint32 = 0x40
	regBypassMode  uint32 = 0x80 // bit0: swap port ordering
)

func slotAddr(base uint32, iface InterfaceType, index int) uint32 {
	slots, ok := selectorSlot[iface]
	if !ok || index < 0 || index >= len(slots) {
		return base
	}
	return base + slots[index]*4
}

// Switch is the packet-switch register block.
type Switch struct {
	io register.IO
}

func New(io register.IO) *Switch { return &Switch{io: io} }

// SetIngress programs the ingress connection for (iface,index) to
// dest.
func (s *Switch) SetIngress(iface InterfaceType, index int, dest Destination) {
	s.io.Write(slotAddr(regIngressBase, iface, index), uint32(dest))
}

// GetIngress reads back the ingress connection for (iface,index).
func (s *Switch) GetIngress(iface InterfaceType, index int) Destination {
	return Destination(s.io.Read(slotAddr(regIngressBase, iface, index)))
}

// SetEgress programs the egress connection for (iface,index) to dest.
func (s *Switch) SetEgress(iface InterfaceType, index int, dest Destination) {
	s.io.Write(slotAddr(regEgressBase, iface, index), uint32(dest))
}

// GetEgress reads back the egress connection for (iface,index).
func (s *Switch) GetEgress(iface InterfaceType, index int) Destination {
	return Destination(s.io.Read(slotAddr(regEgressBase, iface, index)))
}

// Config is the full set of ingress mappings the GetSwitchConfig RPC
// reports.
type Config struct {
	CMAC0 Destination
	CMAC1 Destination
	Host0 Destination
	Host1 Destination
}

// SetConfig programs all four ingress selectors from cfg, the
// SetSwitchConfig RPC's write path.
func (s *Switch) SetConfig(cfg Config) {
	s.SetIngress(IfaceCMAC, 0, cfg.CMAC0)
	s.SetIngress(IfaceCMAC, 1, cfg.CMAC1)
	s.SetIngress(IfaceHost, 0, cfg.Host0)
	s.SetIngress(IfaceHost, 1, cfg.Host1)
	s.io.Barrier()
}

// SetDefaultsOneToOne resets every ingress connection to DROP,
// barriers, then applies the canonical one-to-one mapping: CMAC0 and
// CMAC1 each go through app 0, both hosts go to bypass, and the
// bypass processor's egress table carries the port-preserving
// crossover (CMAC0 to HOST0, CMAC1 to HOST1, and back). Bypass mode
// is forced to preserve rather than relied on as a reset default.
func (s *Switch) SetDefaultsOneToOne() {
	for iface, slots := range selectorSlot {
		for idx := range slots {
			s.SetIngress(iface, idx, DestDrop)
		}
	}
	s.io.Barrier()

	s.SetIngress(IfaceCMAC, 0, DestApp0)
	s.SetIngress(IfaceCMAC, 1, DestApp0)
	s.SetIngress(IfaceHost, 0, DestBypass)
	s.SetIngress(IfaceHost, 1, DestBypass)

	s.SetEgress(IfaceCMAC, 0, DestHost0)
	s.SetEgress(IfaceCMAC, 1, DestHost1)
	s.SetEgress(IfaceHost, 0, DestCMAC0)
	s.SetEgress(IfaceHost, 1, DestCMAC1)
	s.SetBypassMode(BypassPreserve)
}

// GetConfig reads back the four ingress selectors as they currently
// stand, whether set by SetConfig or by SetDefaultsOneToOne.
func (s *Switch) GetConfig() Config {
	return Config{
		CMAC0: s.GetIngress(IfaceCMAC, 0),
		CMAC1: s.GetIngress(IfaceCMAC, 1),
		Host0: s.GetIngress(IfaceHost, 0),
		Host1: s.GetIngress(IfaceHost, 1),
	}
}

// BypassMode selects whether the bypass path swaps port ordering or
// preserves it.
type BypassMode int

const (
	BypassPreserve BypassMode = iota
	BypassSwap
)

func (s *Switch) SetBypassMode(mode BypassMode) {
	if mode == BypassSwap {
		register.SetBits(s.io, regBypassMode, 1)
	} else {
		register.ClearBits(s.io, regBypassMode, 1)
	}
}

func (s *Switch) BypassMode() BypassMode {
	if s.io.Read(regBypassMode)&1 != 0 {
		return BypassSwap
	}
	return BypassPreserve
}
