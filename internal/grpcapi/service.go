package grpcapi

import (
	"context"

	"google.golang.org/grpc"

	"github.com/xilinx-labs/sn-ctl-core/internal/grpcapi/sncfgpb"
	"github.com/xilinx-labs/sn-ctl-core/internal/grpcapi/snp4pb"
)

// Service descriptors for both gRPC services, hand-written in the
// shape `protoc-gen-go-grpc` would generate (see proto/*.proto for
// the canonical method list). Per-device RPCs are server-streaming:
// one response per (dev, sub-id), so a single-device failure never
// aborts the stream.
// Batch is the single bidirectional stream.

// SmartnicConfigService is the server API for sn_cfg.v2.SmartnicConfig.
type SmartnicConfigService interface {
	GetDeviceInfo(context.Context, *sncfgpb.DeviceInfoRequest) ([]*sncfgpb.DeviceInfoResponse, error)
	GetPortConfig(context.Context, *sncfgpb.GetPortConfigRequest) ([]*sncfgpb.GetPortConfigResponse, error)
	SetPortConfig(context.Context, *sncfgpb.SetPortConfigRequest) ([]*sncfgpb.SetPortConfigResponse, error)
	GetPortStatus(context.Context, *sncfgpb.PortStatusRequest) ([]*sncfgpb.PortStatusResponse, error)
	SetPortEnable(context.Context, *sncfgpb.SetPortEnableRequest) ([]*sncfgpb.SetPortEnableResponse, error)
	GetHostConfig(context.Context, *sncfgpb.GetHostConfigRequest) ([]*sncfgpb.GetHostConfigResponse, error)
	SetHostConfig(context.Context, *sncfgpb.SetHostConfigRequest) ([]*sncfgpb.SetHostConfigResponse, error)
	GetSwitchConfig(context.Context, *sncfgpb.SwitchConfigRequest) ([]*sncfgpb.SwitchConfigResponse, error)
	SetSwitchConfig(context.Context, *sncfgpb.SetSwitchConfigRequest) ([]*sncfgpb.SetSwitchConfigResponse, error)
	SetSwitchDefaults(context.Context, *sncfgpb.SetDefaultsRequest) ([]*sncfgpb.SetDefaultsResponse, error)
	GetModuleInfo(context.Context, *sncfgpb.GetModuleInfoRequest) ([]*sncfgpb.GetModuleInfoResponse, error)
	GetModuleStatus(context.Context, *sncfgpb.GetModuleStatusRequest) ([]*sncfgpb.GetModuleStatusResponse, error)
	GetModuleGpio(context.Context, *sncfgpb.GetModuleGpioRequest) ([]*sncfgpb.GetModuleGpioResponse, error)
	SetModuleGpio(context.Context, *sncfgpb.SetModuleGpioRequest) ([]*sncfgpb.SetModuleGpioResponse, error)
	GetModuleMem(context.Context, *sncfgpb.GetModuleMemRequest) ([]*sncfgpb.GetModuleMemResponse, error)
	SetModuleMem(context.Context, *sncfgpb.SetModuleMemRequest) ([]*sncfgpb.SetModuleMemResponse, error)
	SetModulePage(context.Context, *sncfgpb.SetModulePageRequest) ([]*sncfgpb.SetModulePageResponse, error)
	GetStats(context.Context, *sncfgpb.GetStatsRequest) ([]*sncfgpb.GetStatsResponse, error)
	ClearStats(context.Context, *sncfgpb.ClearStatsRequest) ([]*sncfgpb.ClearStatsResponse, error)
	GetServerStatus(context.Context, *sncfgpb.ServerStatusRequest) (*sncfgpb.ServerStatusResponse, error)
	SetDebugFlag(context.Context, *sncfgpb.SetDebugFlagRequest) (*sncfgpb.SetDebugFlagResponse, error)
	Batch(CfgBatchStream) error
}

// SmartnicP4Service is the server API for sn_p4.v2.SmartnicP4.
type SmartnicP4Service interface {
	GetPipelineInfo(context.Context, *snp4pb.GetPipelineInfoRequest) ([]*snp4pb.GetPipelineInfoResponse, error)
	InsertTableRule(context.Context, *snp4pb.InsertTableRuleRequest) ([]*snp4pb.InsertTableRuleResponse, error)
	DeleteTableRule(context.Context, *snp4pb.DeleteTableRuleRequest) ([]*snp4pb.DeleteTableRuleResponse, error)
	ClearTable(context.Context, *snp4pb.ClearTableRequest) ([]*snp4pb.ClearTableResponse, error)
	GetStats(context.Context, *snp4pb.GetStatsRequest) ([]*snp4pb.GetStatsResponse, error)
	ClearStats(context.Context, *snp4pb.ClearStatsRequest) ([]*snp4pb.ClearStatsResponse, error)
	GetServerStatus(context.Context, *snp4pb.ServerStatusRequest) (*snp4pb.ServerStatusResponse, error)
	SetDebugFlag(context.Context, *snp4pb.SetDebugFlagRequest) (*snp4pb.SetDebugFlagResponse, error)
	Batch(P4BatchStream) error
}

// unaryHandler adapts a typed unary method to the method-handler
// signature grpc.MethodDesc expects, threading the server's
// interceptor chain through.
func unaryHandler[Req any](fullMethod string, call func(srv any, ctx context.Context, req *Req) (any, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv, ctx, req.(*Req))
		})
	}
}

// serverStreamHandler adapts a fan-out method (one request, a slice
// of responses) to a server-streaming handler that sends one message
// per response.
func serverStreamHandler[Req any, Resp any](call func(srv any, ctx context.Context, req *Req) ([]Resp, error)) grpc.StreamHandler {
	return func(srv any, stream grpc.ServerStream) error {
		req := new(Req)
		if err := stream.RecvMsg(req); err != nil {
			return err
		}
		resps, err := call(srv, stream.Context(), req)
		if err != nil {
			return err
		}
		for _, r := range resps {
			if err := stream.SendMsg(r); err != nil {
				return err
			}
		}
		return nil
	}
}

// cfgBatchGrpcStream adapts grpc.ServerStream to the typed
// CfgBatchStream the Batch handler consumes.
type cfgBatchGrpcStream struct{ grpc.ServerStream }

func (s cfgBatchGrpcStream) Recv() (*sncfgpb.BatchRequest, error) {
	m := new(sncfgpb.BatchRequest)
	if err := s.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s cfgBatchGrpcStream) Send(m *sncfgpb.BatchResponse) error { return s.SendMsg(m) }

type p4BatchGrpcStream struct{ grpc.ServerStream }

func (s p4BatchGrpcStream) Recv() (*snp4pb.BatchRequest, error) {
	m := new(snp4pb.BatchRequest)
	if err := s.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s p4BatchGrpcStream) Send(m *snp4pb.BatchResponse) error { return s.SendMsg(m) }

func streamDesc[Req any, Resp any](name string, call func(srv any, ctx context.Context, req *Req) ([]Resp, error)) grpc.StreamDesc {
	return grpc.StreamDesc{StreamName: name, Handler: serverStreamHandler(call), ServerStreams: true}
}

// CfgServiceDesc is the grpc.ServiceDesc for sn_cfg.v2.SmartnicConfig.
var CfgServiceDesc = grpc.ServiceDesc{
	ServiceName: "sn_cfg.v2.SmartnicConfig",
	HandlerType: (*SmartnicConfigService)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetServerStatus",
			Handler: unaryHandler("/sn_cfg.v2.SmartnicConfig/GetServerStatus",
				func(srv any, ctx context.Context, req *sncfgpb.ServerStatusRequest) (any, error) {
					return srv.(SmartnicConfigService).GetServerStatus(ctx, req)
				}),
		},
		{
			MethodName: "SetDebugFlag",
			Handler: unaryHandler("/sn_cfg.v2.SmartnicConfig/SetDebugFlag",
				func(srv any, ctx context.Context, req *sncfgpb.SetDebugFlagRequest) (any, error) {
					return srv.(SmartnicConfigService).SetDebugFlag(ctx, req)
				}),
		},
	},
	Streams: []grpc.StreamDesc{
		streamDesc("GetDeviceInfo", func(srv any, ctx context.Context, req *sncfgpb.DeviceInfoRequest) ([]*sncfgpb.DeviceInfoResponse, error) {
			return srv.(SmartnicConfigService).GetDeviceInfo(ctx, req)
		}),
		streamDesc("GetPortConfig", func(srv any, ctx context.Context, req *sncfgpb.GetPortConfigRequest) ([]*sncfgpb.GetPortConfigResponse, error) {
			return srv.(SmartnicConfigService).GetPortConfig(ctx, req)
		}),
		streamDesc("SetPortConfig", func(srv any, ctx context.Context, req *sncfgpb.SetPortConfigRequest) ([]*sncfgpb.SetPortConfigResponse, error) {
			return srv.(SmartnicConfigService).SetPortConfig(ctx, req)
		}),
		streamDesc("GetPortStatus", func(srv any, ctx context.Context, req *sncfgpb.PortStatusRequest) ([]*sncfgpb.PortStatusResponse, error) {
			return srv.(SmartnicConfigService).GetPortStatus(ctx, req)
		}),
		streamDesc("SetPortEnable", func(srv any, ctx context.Context, req *sncfgpb.SetPortEnableRequest) ([]*sncfgpb.SetPortEnableResponse, error) {
			return srv.(SmartnicConfigService).SetPortEnable(ctx, req)
		}),
		streamDesc("GetHostConfig", func(srv any, ctx context.Context, req *sncfgpb.GetHostConfigRequest) ([]*sncfgpb.GetHostConfigResponse, error) {
			return srv.(SmartnicConfigService).GetHostConfig(ctx, req)
		}),
		streamDesc("SetHostConfig", func(srv any, ctx context.Context, req *sncfgpb.SetHostConfigRequest) ([]*sncfgpb.SetHostConfigResponse, error) {
			return srv.(SmartnicConfigService).SetHostConfig(ctx, req)
		}),
		streamDesc("GetSwitchConfig", func(srv any, ctx context.Context, req *sncfgpb.SwitchConfigRequest) ([]*sncfgpb.SwitchConfigResponse, error) {
			return srv.(SmartnicConfigService).GetSwitchConfig(ctx, req)
		}),
		streamDesc("SetSwitchConfig", func(srv any, ctx context.Context, req *sncfgpb.SetSwitchConfigRequest) ([]*sncfgpb.SetSwitchConfigResponse, error) {
			return srv.(SmartnicConfigService).SetSwitchConfig(ctx, req)
		}),
		streamDesc("SetSwitchDefaults", func(srv any, ctx context.Context, req *sncfgpb.SetDefaultsRequest) ([]*sncfgpb.SetDefaultsResponse, error) {
			return srv.(SmartnicConfigService).SetSwitchDefaults(ctx, req)
		}),
		streamDesc("GetModuleInfo", func(srv any, ctx context.Context, req *sncfgpb.GetModuleInfoRequest) ([]*sncfgpb.GetModuleInfoResponse, error) {
			return srv.(SmartnicConfigService).GetModuleInfo(ctx, req)
		}),
		streamDesc("GetModuleStatus", func(srv any, ctx context.Context, req *sncfgpb.GetModuleStatusRequest) ([]*sncfgpb.GetModuleStatusResponse, error) {
			return srv.(SmartnicConfigService).GetModuleStatus(ctx, req)
		}),
		streamDesc("GetModuleGpio", func(srv any, ctx context.Context, req *sncfgpb.GetModuleGpioRequest) ([]*sncfgpb.GetModuleGpioResponse, error) {
			return srv.(SmartnicConfigService).GetModuleGpio(ctx, req)
		}),
		streamDesc("SetModuleGpio", func(srv any, ctx context.Context, req *sncfgpb.SetModuleGpioRequest) ([]*sncfgpb.SetModuleGpioResponse, error) {
			return srv.(SmartnicConfigService).SetModuleGpio(ctx, req)
		}),
		streamDesc("GetModuleMem", func(srv any, ctx context.Context, req *sncfgpb.GetModuleMemRequest) ([]*sncfgpb.GetModuleMemResponse, error) {
			return srv.(SmartnicConfigService).GetModuleMem(ctx, req)
		}),
		streamDesc("SetModuleMem", func(srv any, ctx context.Context, req *sncfgpb.SetModuleMemRequest) ([]*sncfgpb.SetModuleMemResponse, error) {
			return srv.(SmartnicConfigService).SetModuleMem(ctx, req)
		}),
		streamDesc("SetModulePage", func(srv any, ctx context.Context, req *sncfgpb.SetModulePageRequest) ([]*sncfgpb.SetModulePageResponse, error) {
			return srv.(SmartnicConfigService).SetModulePage(ctx, req)
		}),
		streamDesc("GetStats", func(srv any, ctx context.Context, req *sncfgpb.GetStatsRequest) ([]*sncfgpb.GetStatsResponse, error) {
			return srv.(SmartnicConfigService).GetStats(ctx, req)
		}),
		streamDesc("ClearStats", func(srv any, ctx context.Context, req *sncfgpb.ClearStatsRequest) ([]*sncfgpb.ClearStatsResponse, error) {
			return srv.(SmartnicConfigService).ClearStats(ctx, req)
		}),
		{
			StreamName: "Batch",
			Handler: func(srv any, stream grpc.ServerStream) error {
				return srv.(SmartnicConfigService).Batch(cfgBatchGrpcStream{stream})
			},
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "sn_cfg.proto",
}

// P4ServiceDesc is the grpc.ServiceDesc for sn_p4.v2.SmartnicP4.
var P4ServiceDesc = grpc.ServiceDesc{
	ServiceName: "sn_p4.v2.SmartnicP4",
	HandlerType: (*SmartnicP4Service)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetServerStatus",
			Handler: unaryHandler("/sn_p4.v2.SmartnicP4/GetServerStatus",
				func(srv any, ctx context.Context, req *snp4pb.ServerStatusRequest) (any, error) {
					return srv.(SmartnicP4Service).GetServerStatus(ctx, req)
				}),
		},
		{
			MethodName: "SetDebugFlag",
			Handler: unaryHandler("/sn_p4.v2.SmartnicP4/SetDebugFlag",
				func(srv any, ctx context.Context, req *snp4pb.SetDebugFlagRequest) (any, error) {
					return srv.(SmartnicP4Service).SetDebugFlag(ctx, req)
				}),
		},
	},
	Streams: []grpc.StreamDesc{
		streamDesc("GetPipelineInfo", func(srv any, ctx context.Context, req *snp4pb.GetPipelineInfoRequest) ([]*snp4pb.GetPipelineInfoResponse, error) {
			return srv.(SmartnicP4Service).GetPipelineInfo(ctx, req)
		}),
		streamDesc("InsertTableRule", func(srv any, ctx context.Context, req *snp4pb.InsertTableRuleRequest) ([]*snp4pb.InsertTableRuleResponse, error) {
			return srv.(SmartnicP4Service).InsertTableRule(ctx, req)
		}),
		streamDesc("DeleteTableRule", func(srv any, ctx context.Context, req *snp4pb.DeleteTableRuleRequest) ([]*snp4pb.DeleteTableRuleResponse, error) {
			return srv.(SmartnicP4Service).DeleteTableRule(ctx, req)
		}),
		streamDesc("ClearTable", func(srv any, ctx context.Context, req *snp4pb.ClearTableRequest) ([]*snp4pb.ClearTableResponse, error) {
			return srv.(SmartnicP4Service).ClearTable(ctx, req)
		}),
		streamDesc("GetStats", func(srv any, ctx context.Context, req *snp4pb.GetStatsRequest) ([]*snp4pb.GetStatsResponse, error) {
			return srv.(SmartnicP4Service).GetStats(ctx, req)
		}),
		streamDesc("ClearStats", func(srv any, ctx context.Context, req *snp4pb.ClearStatsRequest) ([]*snp4pb.ClearStatsResponse, error) {
			return srv.(SmartnicP4Service).ClearStats(ctx, req)
		}),
		{
			StreamName: "Batch",
			Handler: func(srv any, stream grpc.ServerStream) error {
				return srv.(SmartnicP4Service).Batch(p4BatchGrpcStream{stream})
			},
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "sn_p4.proto",
}

// RegisterCfgServer registers srv on s under the SmartnicConfig
// service name.
func RegisterCfgServer(s grpc.ServiceRegistrar, srv SmartnicConfigService) {
	s.RegisterService(&CfgServiceDesc, srv)
}

// RegisterP4Server registers srv on s under the SmartnicP4 service
// name.
func RegisterP4Server(s grpc.ServiceRegistrar, srv SmartnicP4Service) {
	s.RegisterService(&P4ServiceDesc, srv)
}
