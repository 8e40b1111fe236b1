// Package host implements the QDMA queue-mapping driver.
package host

import (
	"github.com/xilinx-labs/sn-ctl-core/internal/register"
)

// FunctionQueues is the per-function queue count the vendor IP
// exposes. QDMAMaxQueues is deliberately conservative: the true
// hardware ceiling is unconfirmed, so 2x is preserved as the bound
// rather than guessing higher.
const (
	FunctionQueues = 2048
	QDMAMaxQueues  = 2 * FunctionQueues
)

const (
	regQConfBase  uint32 = 0x00 // per-channel qconf register: [base_queue:16][num_queues:16]
	regQConfSize  uint32 = 0x04
	indirectTableBase uint32 = 0x1000
)

// Host is one QDMA function's channel register window.
type Host struct {
	io register.IO
}

func New(io register.IO) *Host { return &Host{io: io} }

// GetQueues reads the current base_queue/num_queues for channel.
func (h *Host) GetQueues(channel uint32) (baseQueue, numQueues uint16) {
	addr := regQConfBase + channel*8
	v := h.io.Read(addr)
	return uint16(v >> 16), uint16(v)
}

// SetQueues programs base_queue/num_queues for channel and fills the
// indirection table so every entry maps into [0, numQueues):
// q % max(numQueues, 1).
func (h *Host) SetQueues(channel uint32, baseQueue, numQueues uint16) bool {
	if int(numQueues) > FunctionQueues {
		return false
	}
	if int(baseQueue)+int(numQueues) > QDMAMaxQueues {
		return false
	}

	addr := regQConfBase + channel*8
	h.io.Write(addr, uint32(baseQueue)<<16|uint32(numQueues))

	mod := int(numQueues)
	if mod < 1 {
		mod = 1
	}
	for q := 0; q < FunctionQueues; q++ {
		h.io.Write(indirectTableBase+channel*uint32(FunctionQueues)*4+uint32(q)*4, uint32(q%mod))
	}
	return true
}
