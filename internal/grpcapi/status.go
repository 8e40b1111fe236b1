package grpcapi

import (
	"context"
	"time"

	"github.com/xilinx-labs/sn-ctl-core/internal/grpcapi/sncfgpb"
	"github.com/xilinx-labs/sn-ctl-core/internal/logger"
)

// serverClock captures a CLOCK_MONOTONIC-equivalent reference at
// init: start_time/up_time are derived from it.
type serverClock struct {
	start time.Time
}

func newServerClock() *serverClock {
	return &serverClock{start: time.Now()}
}

func (c *serverClock) status() *sncfgpb.ServerStatusResponse {
	now := time.Now()
	return &sncfgpb.ServerStatusResponse{
		StartTimeUnixNano: c.start.UnixNano(),
		UpTimeNanos:       now.Sub(c.start).Nanoseconds(),
	}
}

// GetServerStatus implements the ServerStatus unary RPC.
func (s *CfgServer) GetServerStatus(ctx context.Context, _ *sncfgpb.ServerStatusRequest) (*sncfgpb.ServerStatusResponse, error) {
	return s.clock.status(), nil
}

// SetDebugFlag toggles verbose logging for one named subsystem
// of the runtime debug-flag set.
func (s *CfgServer) SetDebugFlag(ctx context.Context, req *sncfgpb.SetDebugFlagRequest) (*sncfgpb.SetDebugFlagResponse, error) {
	sub, ok := logger.ParseSubsystem(req.Subsystem)
	if !ok {
		return &sncfgpb.SetDebugFlagResponse{ErrorCode: errServerInvalidDebugFlag}, nil
	}
	s.log.SetDebug(sub, req.Enabled)
	return &sncfgpb.SetDebugFlagResponse{ErrorCode: errOK}, nil
}
