package grpcapi

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/xilinx-labs/sn-ctl-core/internal/agent"
	"github.com/xilinx-labs/sn-ctl-core/internal/core"
	"github.com/xilinx-labs/sn-ctl-core/internal/grpcapi/sncfgpb"
	"github.com/xilinx-labs/sn-ctl-core/internal/hw/port"
	"github.com/xilinx-labs/sn-ctl-core/internal/register"
)

// fakeCfgBatchStream is an in-memory queue standing in for the real
// grpc.ServerStream the generated code would hand Batch.
type fakeCfgBatchStream struct {
	ctx context.Context
	in  []*sncfgpb.BatchRequest
	pos int
	out []*sncfgpb.BatchResponse
}

func (f *fakeCfgBatchStream) Context() context.Context { return f.ctx }

func (f *fakeCfgBatchStream) Recv() (*sncfgpb.BatchRequest, error) {
	if f.pos >= len(f.in) {
		return nil, io.EOF
	}
	req := f.in[f.pos]
	f.pos++
	return req, nil
}

func (f *fakeCfgBatchStream) Send(resp *sncfgpb.BatchResponse) error {
	f.out = append(f.out, resp)
	return nil
}

func testCfgServerWithOnePort() *CfgServer {
	bar2 := register.NewBar2(make([]uint32, 4096))
	a := agent.New(slog.Default())
	a.AddDevice(&agent.Device{
		ID:    0,
		BusID: "0000:01:00.0",
		BAR2:  bar2,
		Ports: map[int32]*port.Port{0: port.New(register.NewView(bar2, 0))},
	})
	return NewCfgServer(a, nil)
}

// TestBatchMixesPortOpsInSubmissionOrder covers the scenario of one
// disable, one status read, one re-enable, all on port 0: three
// responses in submission order, each EC_OK.
func TestBatchMixesPortOpsInSubmissionOrder(t *testing.T) {
	s := testCfgServerWithOnePort()
	stream := &fakeCfgBatchStream{
		ctx: context.Background(),
		in: []*sncfgpb.BatchRequest{
			{Op: sncfgpb.BatchOpSet, SetPortEnable: &sncfgpb.SetPortEnableRequest{DevID: 0, PortID: 0, Enabled: false}},
			{Op: sncfgpb.BatchOpGet, PortStatus: &sncfgpb.PortStatusRequest{DevID: 0, PortID: 0}},
			{Op: sncfgpb.BatchOpSet, SetPortEnable: &sncfgpb.SetPortEnableRequest{DevID: 0, PortID: 0, Enabled: true}},
		},
	}
	require.NoError(t, s.Batch(stream))
	require.Len(t, stream.out, 3)
	wantOps := []sncfgpb.BatchOp{sncfgpb.BatchOpSet, sncfgpb.BatchOpGet, sncfgpb.BatchOpSet}
	for i, resp := range stream.out {
		assert.Equal(t, wantOps[i], resp.Op, "response %d op", i)
		assert.Equal(t, errOK, resp.ErrorCode, "response %d error code", i)
	}
	assert.Len(t, stream.out[1].PortStatus, 1)
}

// TestBatchUnknownRequestPayload covers a request with no sub-request
// populated.
func TestBatchUnknownRequestPayload(t *testing.T) {
	s := testCfgServerWithOnePort()
	stream := &fakeCfgBatchStream{
		ctx: context.Background(),
		in:  []*sncfgpb.BatchRequest{{Op: sncfgpb.BatchOpGet}},
	}
	require.NoError(t, s.Batch(stream))
	assert.Equal(t, core.ErrorUnknownBatchRequest, stream.out[0].ErrorCode)
}

// TestBatchUnsupportedOpForPayload covers an op that doesn't match the
// populated sub-request's expected op.
func TestBatchUnsupportedOpForPayload(t *testing.T) {
	s := testCfgServerWithOnePort()
	stream := &fakeCfgBatchStream{
		ctx: context.Background(),
		in: []*sncfgpb.BatchRequest{
			{Op: sncfgpb.BatchOpDelete, PortStatus: &sncfgpb.PortStatusRequest{DevID: 0, PortID: 0}},
		},
	}
	require.NoError(t, s.Batch(stream))
	assert.Equal(t, core.ErrorUnknownBatchOp, stream.out[0].ErrorCode)
}

// TestStreamInterceptorRejectsUnknownToken covers the auth-reject
// scenario for the Batch stream: the interceptor, not Batch itself,
// is what rejects unauthenticated streams.
func TestStreamInterceptorRejectsUnknownToken(t *testing.T) {
	p := NewAuthMetadataProcessor([]string{"good-token"})

	ctxNoToken := context.Background()
	assert.Equal(t, codes.Unauthenticated, status.Code(p.authorize(ctxNoToken)), "authorize(no metadata)")

	ctxBadToken := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer wrong-token"))
	assert.Equal(t, codes.Unauthenticated, status.Code(p.authorize(ctxBadToken)), "authorize(wrong token)")

	ctxGoodToken := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer good-token"))
	assert.NoError(t, p.authorize(ctxGoodToken))
}

// TestBatchMixesCmsAndPortOps is the disable-port / read-module /
// re-enable-port sequence over one stream: three responses in
// submission order, each EC_OK.
func TestBatchMixesCmsAndPortOps(t *testing.T) {
	s, _ := testCfgServerWithSim()
	stream := &fakeCfgBatchStream{
		ctx: context.Background(),
		in: []*sncfgpb.BatchRequest{
			{Op: sncfgpb.BatchOpSet, SetPortEnable: &sncfgpb.SetPortEnableRequest{DevID: 0, PortID: 0, Enabled: false}},
			{Op: sncfgpb.BatchOpGet, ModuleInfo: &sncfgpb.GetModuleInfoRequest{DevID: 0, ModuleID: 1}},
			{Op: sncfgpb.BatchOpSet, SetPortEnable: &sncfgpb.SetPortEnableRequest{DevID: 0, PortID: 0, Enabled: true}},
		},
	}
	require.NoError(t, s.Batch(stream))
	require.Len(t, stream.out, 3)
	wantOps := []sncfgpb.BatchOp{sncfgpb.BatchOpSet, sncfgpb.BatchOpGet, sncfgpb.BatchOpSet}
	for i, resp := range stream.out {
		assert.Equal(t, wantOps[i], resp.Op, "response %d op", i)
		assert.Equal(t, errOK, resp.ErrorCode, "response %d error code", i)
	}
	require.Len(t, stream.out[1].ModuleInfo, 1)
	assert.Equal(t, errOK, stream.out[1].ModuleInfo[0].ErrorCode)
}
