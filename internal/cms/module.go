package cms

import (
	core "github.com/xilinx-labs/sn-ctl-core/internal/core"
)

const modulePageSize = 128

// moduleI2CSelect packs the three-word cage/page/upper/diag/bank
// selector the mailbox module opcodes take.
func moduleI2CSelect(cage uint8, page uint8, upper bool, sfpDiag bool, cmisBankValid bool, cmisBank uint8) []uint32 {
	w0 := uint32(cage) & 0x1
	if upper {
		w0 |= 1 << 1
	}
	if sfpDiag {
		w0 |= 1 << 2
	}
	w1 := uint32(page)
	w2 := uint32(0)
	if cmisBankValid {
		w2 = 1<<7 | uint32(cmisBank)&0x7f
	}
	return []uint32{w0, w1, w2}
}

// ReadModulePage reads a full 128-byte page of module memory for the
// given cage/page selection via BLOCK_READ_MODULE_I2C, verifying the
// response is exactly one page.
func (c *Client) ReadModulePage(devID, moduleID int32, cage uint8, page uint8, upper bool, sfpDiag bool, cmisBankValid bool, cmisBank uint8) ([]byte, error) {
	req := Request{
		Opcode: OpBlockReadModuleI2C,
		Words:  moduleI2CSelect(cage, page, upper, sfpDiag, cmisBankValid, cmisBank),
	}
	resp, err := c.Post(devID, req)
	if err != nil {
		return nil, err
	}
	buf := wordsToBytes(resp)
	if len(buf) != modulePageSize {
		return nil, core.NewError(core.ErrorModulePageRead, devID, moduleID, "page response is not exactly one page")
	}
	out := make([]byte, modulePageSize)
	copy(out, buf[:modulePageSize])
	return out, nil
}

// PageSelector tracks the page most recently selected for upper
// (offset >= 128) byte access, per-module. Callers own one of these
// per module; byte read/write derive "page = upper ? selected : 0"
// from it instead of re-deriving at every call site.
type PageSelector struct {
	Selected uint8
}

// ReadModuleByte reads a single byte at offset in [0, 0xFF]: upper =
// offset >= 128; page = upper ? selected page : 0.
func (c *Client) ReadModuleByte(devID, moduleID int32, cage uint8, sel *PageSelector, offset int) (byte, error) {
	if offset < 0 || offset > 0xFF {
		return 0, core.NewError(core.ErrorModuleMemInvalidOffset, devID, moduleID, "offset out of range")
	}
	upper := offset >= 128
	page := uint8(0)
	if upper {
		page = sel.Selected
	}
	req := Request{
		Opcode: OpByteReadModuleI2C,
		Words:  append(moduleI2CSelect(cage, page, upper, false, false, 0), uint32(offset&0x7F)),
	}
	resp, err := c.Post(devID, req)
	if err != nil {
		return 0, err
	}
	if len(resp) == 0 {
		return 0, core.NewError(core.ErrorModuleMemRead, devID, moduleID, "empty response")
	}
	return byte(resp[0]), nil
}

// WriteModuleByte writes a single byte at offset in [0, 0xFF].
func (c *Client) WriteModuleByte(devID, moduleID int32, cage uint8, sel *PageSelector, offset int, value byte) error {
	if offset < 0 || offset > 0xFF {
		return core.NewError(core.ErrorModuleMemInvalidOffset, devID, moduleID, "offset out of range")
	}
	upper := offset >= 128
	page := uint8(0)
	if upper {
		page = sel.Selected
	}
	req := Request{
		Opcode: OpByteWriteModuleI2C,
		Words:  append(moduleI2CSelect(cage, page, upper, false, false, 0), uint32(offset&0x7F), uint32(value)),
	}
	_, err := c.Post(devID, req)
	if err != nil {
		return core.NewError(core.ErrorModuleMemWrite, devID, moduleID, err.Error())
	}
	return nil
}

// SelectUpperPage records the page to use for subsequent upper-offset
// byte accesses (writing the module's page-select byte, offset 127,
// is the caller's responsibility via WriteModuleByte).
func (s *PageSelector) SelectUpperPage(page uint8) { s.Selected = page }

// ModuleType distinguishes GPIO line semantics between form factors.
type ModuleType int

const (
	ModuleSFP ModuleType = iota
	ModuleDSFP
	ModuleQSFP
)

// GpioState is the asserted-state view of a module's low-speed IO
// lines. For QSFP the hardware signals are active-low; this struct
// exposes the asserted (i.e. logical-true) sense:
// reset == (reset_l == 0).
type GpioState struct {
	Reset    bool
	ModSel   bool
	ModPrs   bool // present
	Int      bool // interrupt
	LPMode   bool
}

const (
	gpioBitResetL  uint32 = 1 << 0
	gpioBitModSelL uint32 = 1 << 1
	gpioBitModPrsL uint32 = 1 << 2
	gpioBitIntL    uint32 = 1 << 3
	gpioBitLPMode  uint32 = 1 << 4
)

// ReadModuleGPIO proxies READ_MODULE_LOW_SPEED_IO and decodes the
// active-low QSFP signals into asserted-state booleans.
func (c *Client) ReadModuleGPIO(devID, moduleID int32, mtype ModuleType, cage uint8) (*GpioState, error) {
	req := Request{Opcode: OpReadModuleLowSpeedIO, Words: []uint32{uint32(cage)}}
	resp, err := c.Post(devID, req)
	if err != nil {
		return nil, core.NewError(core.ErrorModuleGpioRead, devID, moduleID, err.Error())
	}
	if len(resp) == 0 {
		return nil, core.NewError(core.ErrorModuleGpioRead, devID, moduleID, "empty response")
	}
	raw := resp[0]

	state := &GpioState{LPMode: raw&gpioBitLPMode != 0}
	switch mtype {
	case ModuleQSFP, ModuleDSFP:
		state.Reset = raw&gpioBitResetL == 0
		state.ModSel = raw&gpioBitModSelL == 0
		state.ModPrs = raw&gpioBitModPrsL == 0
		state.Int = raw&gpioBitIntL == 0
	case ModuleSFP:
		// SFP has no reset/modsel lines; presence and rx-loss map
		// directly (active-high) rather than through the QSFP
		// active-low convention.
		state.ModPrs = raw&gpioBitModPrsL != 0
		state.Int = raw&gpioBitIntL != 0
	}
	return state, nil
}

// WriteModuleGPIO proxies WRITE_MODULE_LOW_SPEED_IO. Only DSFP/QSFP
// writes are supported; SFP writes fail.
func (c *Client) WriteModuleGPIO(devID, moduleID int32, mtype ModuleType, cage uint8, state GpioState) error {
	if mtype == ModuleSFP {
		return core.NewError(core.ErrorModuleGpioWrite, devID, moduleID, "SFP modules do not support GPIO writes")
	}
	var raw uint32
	if !state.Reset {
		raw |= gpioBitResetL
	}
	if !state.ModSel {
		raw |= gpioBitModSelL
	}
	if state.LPMode {
		raw |= gpioBitLPMode
	}
	req := Request{Opcode: OpWriteModuleLowSpeedIO, Words: []uint32{uint32(cage), raw}}
	if _, err := c.Post(devID, req); err != nil {
		return core.NewError(core.ErrorModuleGpioWrite, devID, moduleID, err.Error())
	}
	return nil
}
