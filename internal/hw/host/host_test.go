package host

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xilinx-labs/sn-ctl-core/internal/register"
)

func TestSetGetQueuesRoundTrip(t *testing.T) {
	io := register.NewBar2(make([]uint32, 4+FunctionQueues))
	h := New(io)
	assert.True(t, h.SetQueues(0, 64, 128), "SetQueues rejected valid request")
	base, num := h.GetQueues(0)
	assert.EqualValues(t, 64, base)
	assert.EqualValues(t, 128, num)
}

func TestSetQueuesRejectsOverLimit(t *testing.T) {
	io := register.NewBar2(make([]uint32, 4+FunctionQueues))
	h := New(io)
	assert.False(t, h.SetQueues(0, 0, FunctionQueues+1), "SetQueues accepted numQueues > FUNCTION_QUEUES")
}

func TestSetQueuesFillsIndirectionTable(t *testing.T) {
	io := register.NewBar2(make([]uint32, 4+FunctionQueues*4))
	h := New(io)
	h.SetQueues(0, 0, 4)
	for q := 0; q < 8; q++ {
		got := io.Read(indirectTableBase + uint32(q)*4)
		assert.Equal(t, uint32(q%4), got, "indirection[%d]", q)
	}
}
