package grpcapi

import (
	"context"
	"io"

	"github.com/xilinx-labs/sn-ctl-core/internal/core"
	"github.com/xilinx-labs/sn-ctl-core/internal/grpcapi/sncfgpb"
	"github.com/xilinx-labs/sn-ctl-core/internal/grpcapi/snp4pb"
	"github.com/xilinx-labs/sn-ctl-core/internal/logger"
)

// CfgBatchStream is the bidirectional-stream handle the generated gRPC
// code would hand Batch; defined here since no protoc run produced the
// real grpc.ServerStream-embedding type.
type CfgBatchStream interface {
	Context() context.Context
	Recv() (*sncfgpb.BatchRequest, error)
	Send(*sncfgpb.BatchResponse) error
}

// Batch serially consumes one bidirectional stream of heterogeneous
// config operations: read one request, dispatch it to
// the same handler a unary RPC would use, write one response, repeat.
func (s *CfgServer) Batch(stream CfgBatchStream) error {
	ctx := stream.Context()
	for {
		req, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		resp := s.dispatchCfgBatch(ctx, req)
		if s.log.DebugEnabled(logger.SubsystemBatch) {
			s.slg.Debug("batch dispatch", "op", req.Op, "error_code", resp.ErrorCode)
		}
		if err := stream.Send(resp); err != nil {
			return err
		}
	}
}

func (s *CfgServer) dispatchCfgBatch(ctx context.Context, req *sncfgpb.BatchRequest) *sncfgpb.BatchResponse {
	opMismatch := func() *sncfgpb.BatchResponse {
		return &sncfgpb.BatchResponse{Op: req.Op, ErrorCode: core.ErrorUnknownBatchOp}
	}

	switch {
	case req.DeviceInfo != nil:
		if req.Op != sncfgpb.BatchOpGet {
			return opMismatch()
		}
		resp, _ := s.GetDeviceInfo(ctx, req.DeviceInfo)
		return &sncfgpb.BatchResponse{Op: req.Op, ErrorCode: errOK, DeviceInfo: resp}

	case req.PortConfig != nil:
		if req.Op != sncfgpb.BatchOpGet {
			return opMismatch()
		}
		resp, _ := s.GetPortConfig(ctx, req.PortConfig)
		return &sncfgpb.BatchResponse{Op: req.Op, ErrorCode: errOK, PortConfig: resp}

	case req.SetPortConfig != nil:
		if req.Op != sncfgpb.BatchOpSet {
			return opMismatch()
		}
		resp, _ := s.SetPortConfig(ctx, req.SetPortConfig)
		return &sncfgpb.BatchResponse{Op: req.Op, ErrorCode: errOK, SetPortConfig: resp}

	case req.PortStatus != nil:
		if req.Op != sncfgpb.BatchOpGet {
			return opMismatch()
		}
		resp, _ := s.GetPortStatus(ctx, req.PortStatus)
		return &sncfgpb.BatchResponse{Op: req.Op, ErrorCode: errOK, PortStatus: resp}

	case req.SetPortEnable != nil:
		if req.Op != sncfgpb.BatchOpSet {
			return opMismatch()
		}
		resp, _ := s.SetPortEnable(ctx, req.SetPortEnable)
		return &sncfgpb.BatchResponse{Op: req.Op, ErrorCode: errOK, SetPortEnable: resp}

	case req.HostConfig != nil:
		if req.Op != sncfgpb.BatchOpGet {
			return opMismatch()
		}
		resp, _ := s.GetHostConfig(ctx, req.HostConfig)
		return &sncfgpb.BatchResponse{Op: req.Op, ErrorCode: errOK, HostConfig: resp}

	case req.SetHostConfig != nil:
		if req.Op != sncfgpb.BatchOpSet {
			return opMismatch()
		}
		resp, _ := s.SetHostConfig(ctx, req.SetHostConfig)
		return &sncfgpb.BatchResponse{Op: req.Op, ErrorCode: errOK, SetHostConfig: resp}

	case req.SwitchConfig != nil:
		if req.Op != sncfgpb.BatchOpGet {
			return opMismatch()
		}
		resp, _ := s.GetSwitchConfig(ctx, req.SwitchConfig)
		return &sncfgpb.BatchResponse{Op: req.Op, ErrorCode: errOK, SwitchConfig: resp}

	case req.SetSwitchConfig != nil:
		if req.Op != sncfgpb.BatchOpSet {
			return opMismatch()
		}
		resp, _ := s.SetSwitchConfig(ctx, req.SetSwitchConfig)
		return &sncfgpb.BatchResponse{Op: req.Op, ErrorCode: errOK, SetSwitchConfig: resp}

	case req.SetDefaults != nil:
		if req.Op != sncfgpb.BatchOpSet {
			return opMismatch()
		}
		resp, _ := s.SetSwitchDefaults(ctx, req.SetDefaults)
		return &sncfgpb.BatchResponse{Op: req.Op, ErrorCode: errOK, SetDefaults: resp}

	case req.ModuleInfo != nil:
		if req.Op != sncfgpb.BatchOpGet {
			return opMismatch()
		}
		resp, _ := s.GetModuleInfo(ctx, req.ModuleInfo)
		return &sncfgpb.BatchResponse{Op: req.Op, ErrorCode: errOK, ModuleInfo: resp}

	case req.ModuleStatus != nil:
		if req.Op != sncfgpb.BatchOpGet {
			return opMismatch()
		}
		resp, _ := s.GetModuleStatus(ctx, req.ModuleStatus)
		return &sncfgpb.BatchResponse{Op: req.Op, ErrorCode: errOK, ModuleStatus: resp}

	case req.ModuleGpio != nil:
		if req.Op != sncfgpb.BatchOpGet {
			return opMismatch()
		}
		resp, _ := s.GetModuleGpio(ctx, req.ModuleGpio)
		return &sncfgpb.BatchResponse{Op: req.Op, ErrorCode: errOK, ModuleGpio: resp}

	case req.SetModuleGpio != nil:
		if req.Op != sncfgpb.BatchOpSet {
			return opMismatch()
		}
		resp, _ := s.SetModuleGpio(ctx, req.SetModuleGpio)
		return &sncfgpb.BatchResponse{Op: req.Op, ErrorCode: errOK, SetModuleGpio: resp}

	case req.ModuleMem != nil:
		if req.Op != sncfgpb.BatchOpGet {
			return opMismatch()
		}
		resp, _ := s.GetModuleMem(ctx, req.ModuleMem)
		return &sncfgpb.BatchResponse{Op: req.Op, ErrorCode: errOK, ModuleMem: resp}

	case req.SetModuleMem != nil:
		if req.Op != sncfgpb.BatchOpSet {
			return opMismatch()
		}
		resp, _ := s.SetModuleMem(ctx, req.SetModuleMem)
		return &sncfgpb.BatchResponse{Op: req.Op, ErrorCode: errOK, SetModuleMem: resp}

	case req.SetModulePage != nil:
		if req.Op != sncfgpb.BatchOpSet {
			return opMismatch()
		}
		resp, _ := s.SetModulePage(ctx, req.SetModulePage)
		return &sncfgpb.BatchResponse{Op: req.Op, ErrorCode: errOK, SetModulePage: resp}

	case req.Stats != nil:
		if req.Op != sncfgpb.BatchOpGet {
			return opMismatch()
		}
		resp, _ := s.GetStats(ctx, req.Stats)
		return &sncfgpb.BatchResponse{Op: req.Op, ErrorCode: errOK, Stats: resp}

	case req.ClearStats != nil:
		if req.Op != sncfgpb.BatchOpClear {
			return opMismatch()
		}
		resp, _ := s.ClearStats(ctx, req.ClearStats)
		return &sncfgpb.BatchResponse{Op: req.Op, ErrorCode: errOK, ClearStats: resp}

	case req.ServerStatus != nil:
		if req.Op != sncfgpb.BatchOpGet {
			return opMismatch()
		}
		resp, _ := s.GetServerStatus(ctx, req.ServerStatus)
		return &sncfgpb.BatchResponse{Op: req.Op, ErrorCode: errOK, ServerStatus: resp}

	case req.SetDebugFlag != nil:
		if req.Op != sncfgpb.BatchOpSet {
			return opMismatch()
		}
		resp, _ := s.SetDebugFlag(ctx, req.SetDebugFlag)
		return &sncfgpb.BatchResponse{Op: req.Op, ErrorCode: errOK, SetDebugFlag: resp}

	default:
		return &sncfgpb.BatchResponse{Op: req.Op, ErrorCode: core.ErrorUnknownBatchRequest}
	}
}

// P4BatchStream is the P4 service's equivalent of CfgBatchStream.
type P4BatchStream interface {
	Context() context.Context
	Recv() (*snp4pb.BatchRequest, error)
	Send(*snp4pb.BatchResponse) error
}

// Batch serially consumes one bidirectional stream of heterogeneous
// P4 table/pipeline operations.
func (s *P4Server) Batch(stream P4BatchStream) error {
	ctx := stream.Context()
	for {
		req, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		resp := s.dispatchP4Batch(ctx, req)
		if s.log.DebugEnabled(logger.SubsystemBatch) {
			s.slg.Debug("batch dispatch", "op", req.Op, "error_code", resp.ErrorCode)
		}
		if err := stream.Send(resp); err != nil {
			return err
		}
	}
}

func (s *P4Server) dispatchP4Batch(ctx context.Context, req *snp4pb.BatchRequest) *snp4pb.BatchResponse {
	opMismatch := func() *snp4pb.BatchResponse {
		return &snp4pb.BatchResponse{Op: req.Op, ErrorCode: core.ErrorUnknownBatchOp}
	}

	switch {
	case req.PipelineInfo != nil:
		if req.Op != snp4pb.BatchOpGet {
			return opMismatch()
		}
		resp, _ := s.GetPipelineInfo(ctx, req.PipelineInfo)
		return &snp4pb.BatchResponse{Op: req.Op, ErrorCode: errOK, PipelineInfo: resp}

	case req.InsertTableRule != nil:
		if req.Op != snp4pb.BatchOpInsert {
			return opMismatch()
		}
		resp, _ := s.InsertTableRule(ctx, req.InsertTableRule)
		return &snp4pb.BatchResponse{Op: req.Op, ErrorCode: errOK, InsertTableRule: resp}

	case req.DeleteTableRule != nil:
		if req.Op != snp4pb.BatchOpDelete {
			return opMismatch()
		}
		resp, _ := s.DeleteTableRule(ctx, req.DeleteTableRule)
		return &snp4pb.BatchResponse{Op: req.Op, ErrorCode: errOK, DeleteTableRule: resp}

	case req.ClearTable != nil:
		if req.Op != snp4pb.BatchOpClear {
			return opMismatch()
		}
		resp, _ := s.ClearTable(ctx, req.ClearTable)
		return &snp4pb.BatchResponse{Op: req.Op, ErrorCode: errOK, ClearTable: resp}

	case req.Stats != nil:
		if req.Op != snp4pb.BatchOpGet {
			return opMismatch()
		}
		resp, _ := s.GetStats(ctx, req.Stats)
		return &snp4pb.BatchResponse{Op: req.Op, ErrorCode: errOK, Stats: resp}

	case req.ClearStats != nil:
		if req.Op != snp4pb.BatchOpClear {
			return opMismatch()
		}
		resp, _ := s.ClearStats(ctx, req.ClearStats)
		return &snp4pb.BatchResponse{Op: req.Op, ErrorCode: errOK, ClearStats: resp}

	case req.ServerStatus != nil:
		if req.Op != snp4pb.BatchOpGet {
			return opMismatch()
		}
		resp, _ := s.GetServerStatus(ctx, req.ServerStatus)
		return &snp4pb.BatchResponse{Op: req.Op, ErrorCode: errOK, ServerStatus: resp}

	case req.SetDebugFlag != nil:
		if req.Op != snp4pb.BatchOpSet {
			return opMismatch()
		}
		resp, _ := s.SetDebugFlag(ctx, req.SetDebugFlag)
		return &snp4pb.BatchResponse{Op: req.Op, ErrorCode: errOK, SetDebugFlag: resp}

	default:
		return &snp4pb.BatchResponse{Op: req.Op, ErrorCode: core.ErrorUnknownBatchRequest}
	}
}
