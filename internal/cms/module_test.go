package cms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/xilinx-labs/sn-ctl-core/internal/core"
)

func TestReadModulePageIsExactlyOnePage(t *testing.T) {
	sim := NewSimulator()
	upper := make([]byte, 128)
	copy(upper[20:], []byte("ACME OPTICS     "))
	sim.SetModuleUpperPage(0, 0x00, upper)
	c := New(sim, nil)

	page, err := c.ReadModulePage(0, 0, 0, 0x00, true, false, false, 0)
	require.NoError(t, err)
	require.Len(t, page, 128)
	assert.Equal(t, byte('A'), page[20])
}

func TestModuleByteReadWriteLowerAndUpper(t *testing.T) {
	sim := NewSimulator()
	sim.SetModuleLower(0, 0x56, []byte{0xAA})
	sim.SetModuleUpperPage(0, 0x03, make([]byte, 128))
	c := New(sim, nil)
	sel := &PageSelector{}

	got, err := c.ReadModuleByte(0, 0, 0, sel, 0x56)
	require.NoError(t, err)
	assert.Equal(t, byte(0xAA), got)

	// Upper-half offsets route through the selected page.
	sel.SelectUpperPage(0x03)
	require.NoError(t, c.WriteModuleByte(0, 0, 0, sel, 0x80, 0x5C))
	got, err = c.ReadModuleByte(0, 0, 0, sel, 0x80)
	require.NoError(t, err)
	assert.Equal(t, byte(0x5C), got)
}

func TestModuleByteRejectsOutOfRangeOffset(t *testing.T) {
	c := New(NewSimulator(), nil)
	_, err := c.ReadModuleByte(0, 1, 0, &PageSelector{}, 0x100)
	require.Error(t, err)
	assert.Equal(t, core.ErrorModuleMemInvalidOffset, core.CodeOf(err, core.ErrorOk))
}

func TestQsfpGpioActiveLowDecoding(t *testing.T) {
	sim := NewSimulator()
	// All lines high (deasserted) except modprs_l low (module present).
	sim.SetModuleGpioRaw(0, gpioBitResetL|gpioBitModSelL|gpioBitIntL)
	c := New(sim, nil)

	state, err := c.ReadModuleGPIO(0, 0, ModuleQSFP, 0)
	require.NoError(t, err)
	assert.False(t, state.Reset)
	assert.False(t, state.ModSel)
	assert.True(t, state.ModPrs, "modprs_l low means module present")
	assert.False(t, state.Int)
}

func TestGpioWriteRoundTripAndSfpRejection(t *testing.T) {
	sim := NewSimulator()
	c := New(sim, nil)

	err := c.WriteModuleGPIO(0, 0, ModuleQSFP, 0, GpioState{Reset: true, ModSel: true, LPMode: true})
	require.NoError(t, err)
	raw := sim.ModuleGpioRaw(0)
	assert.Zero(t, raw&gpioBitResetL, "asserted reset drives reset_l low")
	assert.Zero(t, raw&gpioBitModSelL, "asserted modsel drives modsel_l low")
	assert.NotZero(t, raw&gpioBitLPMode)

	err = c.WriteModuleGPIO(0, 1, ModuleSFP, 1, GpioState{})
	require.Error(t, err)
	assert.Equal(t, core.ErrorModuleGpioWrite, core.CodeOf(err, core.ErrorOk))
}
