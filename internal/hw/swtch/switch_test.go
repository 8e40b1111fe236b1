package swtch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xilinx-labs/sn-ctl-core/internal/register"
)

func TestSetDefaultsOneToOneMatchesWellKnownConfig(t *testing.T) {
	io := register.NewBar2(make([]uint32, 64))
	s := New(io)
	s.SetBypassMode(BypassSwap) // defaults must overwrite, not inherit
	s.SetDefaultsOneToOne()

	got := s.GetConfig()
	want := Config{CMAC0: DestApp0, CMAC1: DestApp0, Host0: DestBypass, Host1: DestBypass}
	assert.Equal(t, want, got)

	// The bypass egress crossover preserves port ordering.
	assert.Equal(t, DestHost0, s.GetEgress(IfaceCMAC, 0))
	assert.Equal(t, DestHost1, s.GetEgress(IfaceCMAC, 1))
	assert.Equal(t, DestCMAC0, s.GetEgress(IfaceHost, 0))
	assert.Equal(t, DestCMAC1, s.GetEgress(IfaceHost, 1))
	assert.Equal(t, BypassPreserve, s.BypassMode())
}

func TestBypassModeRoundTrip(t *testing.T) {
	io := register.NewBar2(make([]uint32, 64))
	s := New(io)
	s.SetBypassMode(BypassSwap)
	assert.Equal(t, BypassSwap, s.BypassMode())

	s.SetBypassMode(BypassPreserve)
	assert.Equal(t, BypassPreserve, s.BypassMode())
}

func TestSetConfigRoundTrip(t *testing.T) {
	io := register.NewBar2(make([]uint32, 64))
	s := New(io)
	want := Config{CMAC0: DestApp1, CMAC1: DestHost1, Host0: DestCMAC0, Host1: DestDrop}
	s.SetConfig(want)
	assert.Equal(t, want, s.GetConfig())
}

func TestEgressSelectorsIndependentOfIngress(t *testing.T) {
	io := register.NewBar2(make([]uint32, 64))
	s := New(io)
	s.SetIngress(IfaceCMAC, 0, DestApp0)
	s.SetEgress(IfaceCMAC, 0, DestHost0)
	assert.Equal(t, DestApp0, s.GetIngress(IfaceCMAC, 0))
	assert.Equal(t, DestHost0, s.GetEgress(IfaceCMAC, 0))
}
