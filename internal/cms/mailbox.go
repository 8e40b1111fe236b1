// Package cms implements the Card Management Subsystem mailbox
// client: microcontroller reset/ready sequencing, framed
// opcode request/response over a shared memory window, and the
// module I2C/GPIO proxy built on top of it.
package cms

import (
	"log/slog"
	"sync"
	"time"

	core "github.com/xilinx-labs/sn-ctl-core/internal/core"
	"github.com/xilinx-labs/sn-ctl-core/internal/register"
)

// Opcode identifies a mailbox request.
type Opcode uint8

const (
	OpCardInfoReq              Opcode = 0x04
	OpBlockReadModuleI2C       Opcode = 0x0B
	OpReadModuleLowSpeedIO     Opcode = 0x0D
	OpWriteModuleLowSpeedIO    Opcode = 0x0E
	OpByteReadModuleI2C        Opcode = 0x0F
	OpByteWriteModuleI2C       Opcode = 0x10
)

// Register offsets within the CMS block, relative to the block's
// BAR2 base. Real offsets come from the generated register header;
// these are the names the client programs against.
const (
	regResetControl  uint32 = 0x00
	regStatus        uint32 = 0x04 // bit0: reg map ready
	regScMode        uint32 = 0x08
	regMboxControl   uint32 = 0x0C // bit0: mailbox_msg_status
	regMboxError     uint32 = 0x10
	regMboxWindow    uint32 = 0x1000 // 64-byte aligned mailbox window base
)

const (
	statusRegMapReady uint32 = 1 << 0
	mboxBusyBit       uint32 = 1 << 0
	errPktError       uint32 = 1 << 0
	errScCtrlError    uint32 = 1 << 1
)

// SatelliteControllerMode enumerates the sc_mode register values the
// IsReady gate checks against.
type SatelliteControllerMode uint32

const (
	ScModeNormal                    SatelliteControllerMode = 0
	ScModeNormalNotUpgradable       SatelliteControllerMode = 1
	ScModeOther                     SatelliteControllerMode = 0xff
)

const (
	readyPollInterval = 100 * time.Millisecond
	readyTimeout      = 2 * time.Second
	bootDelay         = 5 * time.Second
	maxMailboxAttempts = 5
)

// Client is the CMS mailbox client for one device. One Client per
// device; the mutex is the coarse per-(device,CMS) lock
// serializing every mailbox transaction.
type Client struct {
	io  register.IO
	mu  sync.Mutex
	log *slog.Logger
}

func New(io register.IO, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{io: io, log: log}
}

// Enable releases the on-card microcontroller from reset and sleeps
// a fixed boot delay. Whether a readiness poll could replace the
// fixed delay is unresolved hardware-side; see DESIGN.md.
func (c *Client) Enable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	register.ClearBits(c.io, regResetControl, 1)
	c.io.Barrier()
	time.Sleep(bootDelay)
}

// Disable re-asserts reset.
func (c *Client) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	register.SetBits(c.io, regResetControl, 1)
	c.io.Barrier()
}

func pollUntil(cond func() bool) bool {
	deadline := time.Now().Add(readyTimeout)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(readyPollInterval)
	}
}

// IsReady polls the three readiness gates, each under
// its own 2s/100ms budget, returning CmsBusy on any timeout.
func (c *Client) IsReady(devID int32) error {
	if !pollUntil(func() bool {
		return c.io.Read(regStatus)&statusRegMapReady != 0
	}) {
		return core.NewError(core.ErrorCmsBusy, devID, -1, "register map not ready")
	}
	if !pollUntil(func() bool {
		mode := SatelliteControllerMode(c.io.Read(regScMode))
		return mode == ScModeNormal || mode == ScModeNormalNotUpgradable
	}) {
		return core.NewError(core.ErrorCmsBusy, devID, -1, "satellite controller not in normal mode")
	}
	if !pollUntil(func() bool {
		return c.io.Read(regMboxControl)&mboxBusyBit == 0
	}) {
		return core.NewError(core.ErrorCmsBusy, devID, -1, "mailbox busy")
	}
	return nil
}

// Request is one mailbox transaction: an opcode and its payload
// words, modeled as a typed message rather than a raw union overlay
// on the window.
type Request struct {
	Opcode Opcode
	Words  []uint32
}

// header packs {opcode: u8, reserved: u12, length: u12}.
func header(op Opcode, lengthBytes int) uint32 {
	return uint32(op)<<24 | (uint32(lengthBytes) & 0x0FFF)
}

// Post submits req and returns a view of the mailbox response window
// for the caller to parse, retrying up to five
// times. A nil response with a non-nil error means all attempts
// were exhausted (CmsIo).
func (c *Client) Post(devID int32, req Request) ([]uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < maxMailboxAttempts; attempt++ {
		if !pollUntil(func() bool { return c.io.Read(regMboxControl)&mboxBusyBit == 0 }) {
			lastErr = core.NewError(core.ErrorCmsBusy, devID, -1, "mailbox not ready before post")
			continue
		}

		c.io.Write(regMboxError, 0)
		if !pollUntil(func() bool { return c.io.Read(regMboxError) == 0 }) {
			lastErr = core.NewError(core.ErrorCmsBusy, devID, -1, "error register did not clear")
			continue
		}

		c.io.Write(regMboxWindow, header(req.Opcode, len(req.Words)*4))
		for i, w := range req.Words {
			c.io.Write(regMboxWindow+uint32(4+4*i), w)
		}

		c.io.Barrier()
		register.SetBits(c.io, regMboxControl, mboxBusyBit)

		if !pollUntil(func() bool { return c.io.Read(regMboxControl)&mboxBusyBit == 0 }) {
			lastErr = core.NewError(core.ErrorCmsIo, devID, -1, "mailbox response timeout")
			continue
		}

		errReg := c.io.Read(regMboxError)
		if errReg&errPktError != 0 {
			c.log.Warn("cms mailbox packet error, retrying", "attempt", attempt, "dev", devID)
			lastErr = core.NewError(core.ErrorCmsMsgError, devID, -1, "pkt_error").WithSub(int32(errReg))
			continue
		}
		if errReg&errScCtrlError != 0 {
			c.log.Warn("cms satellite controller error, retrying", "attempt", attempt, "dev", devID)
			lastErr = core.NewError(core.ErrorCmsScError, devID, -1, "sat_ctrl_err").WithSub(int32(errReg))
			continue
		}

		hdr := c.io.Read(regMboxWindow)
		length := hdr & 0x0FFF
		nwords := (length + 3) / 4
		out := make([]uint32, nwords)
		for i := range out {
			out[i] = c.io.Read(regMboxWindow + uint32(4+4*i))
		}
		return out, nil
	}

	msg := "mailbox post exhausted retries"
	if lastErr != nil {
		msg += ": " + lastErr.Error()
	}
	return nil, core.NewError(core.ErrorCmsIo, devID, -1, msg)
}
