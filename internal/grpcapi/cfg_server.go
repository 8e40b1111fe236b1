// Package grpcapi implements the sn_cfg.v2.SmartnicConfig and
// sn_p4.v2.SmartnicP4 gRPC services: synchronous per-call dispatch
// over the shared device registry, with per-device fan-out.
package grpcapi

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/xilinx-labs/sn-ctl-core/internal/agent"
	"github.com/xilinx-labs/sn-ctl-core/internal/core"
	"github.com/xilinx-labs/sn-ctl-core/internal/grpcapi/sncfgpb"
	"github.com/xilinx-labs/sn-ctl-core/internal/hw/host"
	"github.com/xilinx-labs/sn-ctl-core/internal/hw/port"
	"github.com/xilinx-labs/sn-ctl-core/internal/logger"
	"github.com/xilinx-labs/sn-ctl-core/internal/stats"
)

// drainDelay is how long SetSwitchDefaults waits with every port
// disabled before touching the switch and host queue mapping, long
// enough for in-flight packets to drain out of the pipelines.
const drainDelay = 1 * time.Second

// defaultQueuesPerHost is the queue count each host function gets
// under the one-to-one defaults profile: one dedicated queue per host,
// packed back to back starting at queue 0.
const defaultQueuesPerHost = 1

const (
	errOK                     = core.ErrorOk
	errServerInvalidDebugFlag = core.ErrorServerInvalidDebugFlag
)

// CfgServer implements sn_cfg.v2.SmartnicConfig against an Agent.
type CfgServer struct {
	agent *agent.Agent
	log   *logger.Handler
	slg   *slog.Logger
	clock *serverClock
}

// NewCfgServer constructs a CfgServer bound to agt.
func NewCfgServer(agt *agent.Agent, log *logger.Handler) *CfgServer {
	if log == nil {
		log = logger.NewHandler(io.Discard, nil)
	}
	return &CfgServer{agent: agt, log: log, slg: slog.New(log), clock: newServerClock()}
}

// devs resolves the dev_id fan-out convention: -1 targets every
// registered device; any other value must name a registered device.
func (s *CfgServer) devs(devID int32) ([]*agent.Device, bool) {
	if devID == -1 {
		return s.agent.Devices(), true
	}
	d, ok := s.agent.Device(devID)
	if !ok {
		return nil, false
	}
	return []*agent.Device{d}, true
}

// portIDs resolves a port selector against one device, in ascending
// ID order for deterministic response ordering on the stream.
func portIDs(d *agent.Device, portID int32) ([]int32, bool) {
	if portID != -1 {
		if _, ok := d.Ports[portID]; !ok {
			return nil, false
		}
		return []int32{portID}, true
	}
	ids := make([]int32, 0, len(d.Ports))
	for id := range d.Ports {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, true
}

// hostIDs resolves a host-function selector against one device.
func hostIDs(d *agent.Device, hostID int32) ([]int32, bool) {
	if hostID != -1 {
		if int(hostID) < 0 || int(hostID) >= d.NumHosts {
			return nil, false
		}
		return []int32{hostID}, true
	}
	ids := make([]int32, d.NumHosts)
	for i := range ids {
		ids[i] = int32(i)
	}
	return ids, true
}

// GetDeviceInfo implements the per-device fan-out GetDeviceInfo RPC:
// dev_id == -1 means every device.
func (s *CfgServer) GetDeviceInfo(ctx context.Context, req *sncfgpb.DeviceInfoRequest) ([]*sncfgpb.DeviceInfoResponse, error) {
	devs, ok := s.devs(req.DevID)
	if !ok {
		return []*sncfgpb.DeviceInfoResponse{{DevID: req.DevID, ErrorCode: core.ErrorInvalidDeviceId}}, nil
	}
	var out []*sncfgpb.DeviceInfoResponse
	for _, d := range devs {
		info, err := d.CMS.GetCardInfo(d.ID)
		resp := &sncfgpb.DeviceInfoResponse{DevID: d.ID, ErrorCode: core.CodeOf(err, core.ErrorCmsIo)}
		if err == nil {
			resp.CardInfo = info
		}
		out = append(out, resp)
	}
	return out, nil
}

// GetPortConfig reads back the administrative configuration of one or
// more ports.
func (s *CfgServer) GetPortConfig(ctx context.Context, req *sncfgpb.GetPortConfigRequest) ([]*sncfgpb.GetPortConfigResponse, error) {
	devs, ok := s.devs(req.DevID)
	if !ok {
		return []*sncfgpb.GetPortConfigResponse{{DevID: req.DevID, PortID: req.PortID, ErrorCode: core.ErrorInvalidDeviceId}}, nil
	}
	var out []*sncfgpb.GetPortConfigResponse
	for _, d := range devs {
		ids, ok := portIDs(d, req.PortID)
		if !ok {
			out = append(out, &sncfgpb.GetPortConfigResponse{DevID: d.ID, PortID: req.PortID, ErrorCode: core.ErrorInvalidPortId})
			continue
		}
		for _, id := range ids {
			p := d.Ports[id]
			state := sncfgpb.PortStateDisable
			if p.Enabled() {
				state = sncfgpb.PortStateEnable
			}
			out = append(out, &sncfgpb.GetPortConfigResponse{
				DevID: d.ID, PortID: id, ErrorCode: errOK,
				Config: &sncfgpb.PortConfigProto{
					State:    state,
					Fec:      fecToWire(p.FEC()),
					Loopback: p.Loopback(),
				},
			})
		}
	}
	return out, nil
}

func fecToWire(m port.FECMode) sncfgpb.PortFec {
	switch m {
	case port.FECFireCode:
		return sncfgpb.PortFecFireCode
	case port.FECRS:
		return sncfgpb.PortFecReedSolomon
	default:
		return sncfgpb.PortFecNone
	}
}

func fecFromWire(f sncfgpb.PortFec) (port.FECMode, bool) {
	switch f {
	case sncfgpb.PortFecNone:
		return port.FECNone, true
	case sncfgpb.PortFecFireCode:
		return port.FECFireCode, true
	case sncfgpb.PortFecReedSolomon:
		return port.FECRS, true
	default:
		return port.FECNone, false
	}
}

// SetPortConfig applies a full port configuration: FEC first (an
// RS-FEC enable implies a port reset), then loopback, then the
// administrative state.
func (s *CfgServer) SetPortConfig(ctx context.Context, req *sncfgpb.SetPortConfigRequest) ([]*sncfgpb.SetPortConfigResponse, error) {
	devs, ok := s.devs(req.DevID)
	if !ok {
		return []*sncfgpb.SetPortConfigResponse{{DevID: req.DevID, PortID: req.PortID, ErrorCode: core.ErrorInvalidDeviceId}}, nil
	}
	var out []*sncfgpb.SetPortConfigResponse
	for _, d := range devs {
		ids, ok := portIDs(d, req.PortID)
		if !ok {
			out = append(out, &sncfgpb.SetPortConfigResponse{DevID: d.ID, PortID: req.PortID, ErrorCode: core.ErrorInvalidPortId})
			continue
		}
		for _, id := range ids {
			out = append(out, s.setOnePortConfig(d, id, req.Config))
		}
	}
	return out, nil
}

func (s *CfgServer) setOnePortConfig(d *agent.Device, id int32, cfg *sncfgpb.PortConfigProto) *sncfgpb.SetPortConfigResponse {
	resp := &sncfgpb.SetPortConfigResponse{DevID: d.ID, PortID: id}
	if cfg == nil {
		resp.ErrorCode = core.ErrorMissingPortConfig
		return resp
	}
	p := d.Ports[id]

	if cfg.Fec != sncfgpb.PortFecUnknown {
		mode, ok := fecFromWire(cfg.Fec)
		if !ok {
			resp.ErrorCode = core.ErrorUnsupportedFec
			return resp
		}
		p.SetFEC(mode)
	}
	p.SetLoopback(cfg.Loopback)
	switch cfg.State {
	case sncfgpb.PortStateEnable:
		p.Enable()
	case sncfgpb.PortStateDisable:
		p.Disable()
	}
	resp.ErrorCode = errOK
	return resp
}

// GetPortStatus implements the per-device/port fan-out GetPortStatus
// RPC; -1 in either selector means all.
func (s *CfgServer) GetPortStatus(ctx context.Context, req *sncfgpb.PortStatusRequest) ([]*sncfgpb.PortStatusResponse, error) {
	devs, ok := s.devs(req.DevID)
	if !ok {
		return []*sncfgpb.PortStatusResponse{{DevID: req.DevID, PortID: req.PortID, ErrorCode: core.ErrorInvalidDeviceId}}, nil
	}
	var out []*sncfgpb.PortStatusResponse
	for _, d := range devs {
		ids, ok := portIDs(d, req.PortID)
		if !ok {
			out = append(out, &sncfgpb.PortStatusResponse{DevID: d.ID, PortID: req.PortID, ErrorCode: core.ErrorInvalidPortId})
			continue
		}
		for _, id := range ids {
			out = append(out, &sncfgpb.PortStatusResponse{
				DevID: d.ID, PortID: id, ErrorCode: errOK, LinkUp: d.Ports[id].LinkUp(),
			})
		}
	}
	return out, nil
}

// SetPortEnable enables or disables one or more ports.
func (s *CfgServer) SetPortEnable(ctx context.Context, req *sncfgpb.SetPortEnableRequest) ([]*sncfgpb.SetPortEnableResponse, error) {
	devs, ok := s.devs(req.DevID)
	if !ok {
		return []*sncfgpb.SetPortEnableResponse{{DevID: req.DevID, PortID: req.PortID, ErrorCode: core.ErrorInvalidDeviceId}}, nil
	}
	var out []*sncfgpb.SetPortEnableResponse
	for _, d := range devs {
		ids, ok := portIDs(d, req.PortID)
		if !ok {
			out = append(out, &sncfgpb.SetPortEnableResponse{DevID: d.ID, PortID: req.PortID, ErrorCode: core.ErrorInvalidPortId})
			continue
		}
		for _, id := range ids {
			p := d.Ports[id]
			if req.Enabled {
				p.Enable()
			} else {
				p.Disable()
			}
			out = append(out, &sncfgpb.SetPortEnableResponse{
				DevID: d.ID, PortID: id, ErrorCode: errOK, LinkUp: p.LinkUp(),
			})
		}
	}
	return out, nil
}

// GetHostConfig reads back one or more host functions' QDMA queue
// windows.
func (s *CfgServer) GetHostConfig(ctx context.Context, req *sncfgpb.GetHostConfigRequest) ([]*sncfgpb.GetHostConfigResponse, error) {
	devs, ok := s.devs(req.DevID)
	if !ok {
		return []*sncfgpb.GetHostConfigResponse{{DevID: req.DevID, HostID: req.HostID, ErrorCode: core.ErrorInvalidDeviceId}}, nil
	}
	var out []*sncfgpb.GetHostConfigResponse
	for _, d := range devs {
		ids, ok := hostIDs(d, req.HostID)
		if !ok {
			out = append(out, &sncfgpb.GetHostConfigResponse{DevID: d.ID, HostID: req.HostID, ErrorCode: core.ErrorInvalidHostId})
			continue
		}
		for _, id := range ids {
			base, num := d.Host.GetQueues(uint32(id))
			out = append(out, &sncfgpb.GetHostConfigResponse{
				DevID: d.ID, HostID: id, ErrorCode: errOK,
				Config: &sncfgpb.HostConfigProto{BaseQueue: int32(base), NumQueues: int32(num)},
			})
		}
	}
	return out, nil
}

// SetHostConfig programs one or more host functions' QDMA queue
// windows, bounded by the conservative 2x FUNCTION_QUEUES ceiling.
func (s *CfgServer) SetHostConfig(ctx context.Context, req *sncfgpb.SetHostConfigRequest) ([]*sncfgpb.SetHostConfigResponse, error) {
	devs, ok := s.devs(req.DevID)
	if !ok {
		return []*sncfgpb.SetHostConfigResponse{{DevID: req.DevID, HostID: req.HostID, ErrorCode: core.ErrorInvalidDeviceId}}, nil
	}
	var out []*sncfgpb.SetHostConfigResponse
	for _, d := range devs {
		ids, ok := hostIDs(d, req.HostID)
		if !ok {
			out = append(out, &sncfgpb.SetHostConfigResponse{DevID: d.ID, HostID: req.HostID, ErrorCode: core.ErrorInvalidHostId})
			continue
		}
		for _, id := range ids {
			resp := &sncfgpb.SetHostConfigResponse{DevID: d.ID, HostID: id}
			switch {
			case req.Config == nil:
				resp.ErrorCode = core.ErrorMissingHostConfig
			case req.Config.BaseQueue < 0 || req.Config.NumQueues < 0 ||
				req.Config.BaseQueue > int32(host.QDMAMaxQueues) || req.Config.NumQueues > int32(host.FunctionQueues):
				resp.ErrorCode = core.ErrorFailedSetHostQueues
			case !d.Host.SetQueues(uint32(id), uint16(req.Config.BaseQueue), uint16(req.Config.NumQueues)):
				resp.ErrorCode = core.ErrorFailedSetHostQueues
			default:
				resp.ErrorCode = errOK
			}
			out = append(out, resp)
		}
	}
	return out, nil
}

// GetSwitchConfig reads back the packet switch's current mapping.
func (s *CfgServer) GetSwitchConfig(ctx context.Context, req *sncfgpb.SwitchConfigRequest) ([]*sncfgpb.SwitchConfigResponse, error) {
	devs, ok := s.devs(req.DevID)
	if !ok {
		return []*sncfgpb.SwitchConfigResponse{{DevID: req.DevID, ErrorCode: core.ErrorInvalidDeviceId}}, nil
	}
	var out []*sncfgpb.SwitchConfigResponse
	for _, d := range devs {
		out = append(out, &sncfgpb.SwitchConfigResponse{
			DevID: d.ID, ErrorCode: errOK, Config: d.Switch.GetConfig(),
		})
	}
	return out, nil
}

// SetSwitchConfig programs the packet switch's ingress selectors from
// the supplied mapping.
func (s *CfgServer) SetSwitchConfig(ctx context.Context, req *sncfgpb.SetSwitchConfigRequest) ([]*sncfgpb.SetSwitchConfigResponse, error) {
	devs, ok := s.devs(req.DevID)
	if !ok {
		return []*sncfgpb.SetSwitchConfigResponse{{DevID: req.DevID, ErrorCode: core.ErrorInvalidDeviceId}}, nil
	}
	var out []*sncfgpb.SetSwitchConfigResponse
	for _, d := range devs {
		if req.Config == nil {
			out = append(out, &sncfgpb.SetSwitchConfigResponse{DevID: d.ID, ErrorCode: core.ErrorMissingSwitchConfig})
			continue
		}
		d.Switch.SetConfig(*req.Config)
		out = append(out, &sncfgpb.SetSwitchConfigResponse{DevID: d.ID, ErrorCode: errOK})
	}
	return out, nil
}

// SetSwitchDefaults restores the one-to-one defaults profile across a
// whole device: every port is disabled and drained, the switch mapping
// and every host's QDMA queue window are reset, and the ports are
// re-enabled with RS-FEC.
func (s *CfgServer) SetSwitchDefaults(ctx context.Context, req *sncfgpb.SetDefaultsRequest) ([]*sncfgpb.SetDefaultsResponse, error) {
	devs, ok := s.devs(req.DevID)
	if !ok {
		return []*sncfgpb.SetDefaultsResponse{{DevID: req.DevID, ErrorCode: core.ErrorInvalidDeviceId}}, nil
	}
	var out []*sncfgpb.SetDefaultsResponse
	for _, d := range devs {
		out = append(out, s.setOneDeviceDefaults(d))
	}
	return out, nil
}

func (s *CfgServer) setOneDeviceDefaults(d *agent.Device) *sncfgpb.SetDefaultsResponse {
	for _, p := range d.Ports {
		p.SetLoopback(false)
		p.Disable()
	}

	time.Sleep(drainDelay)

	d.Switch.SetDefaultsOneToOne()

	for i := 0; i < d.NumHosts; i++ {
		baseQueue := uint16(i * defaultQueuesPerHost)
		if !d.Host.SetQueues(uint32(i), baseQueue, defaultQueuesPerHost) {
			return &sncfgpb.SetDefaultsResponse{DevID: d.ID, ErrorCode: core.ErrorFailedSetHostQueues}
		}
	}

	for _, p := range d.Ports {
		p.SetFEC(port.FECRS)
		p.Enable()
	}

	return &sncfgpb.SetDefaultsResponse{DevID: d.ID, ErrorCode: errOK}
}

// GetStats filters and returns latched metrics from one device's
// stats tree.
func (s *CfgServer) GetStats(ctx context.Context, req *sncfgpb.GetStatsRequest) ([]*sncfgpb.GetStatsResponse, error) {
	devs, ok := s.devs(req.DevID)
	if !ok {
		return []*sncfgpb.GetStatsResponse{{DevID: req.DevID, ErrorCode: core.ErrorInvalidDeviceId}}, nil
	}
	var out []*sncfgpb.GetStatsResponse
	for _, d := range devs {
		resp := &sncfgpb.GetStatsResponse{DevID: d.ID, ErrorCode: errOK}
		if d.Stats != nil {
			filter := stats.Filter{Zone: req.Zone, Block: req.Block, Metric: req.Metric, Labels: req.Labels}
			for _, domain := range statsDomains(d.Stats, req.Domain) {
				d.Stats.ForEachMetric(domain, filter, func(v stats.MetricView) bool {
					resp.Metrics = append(resp.Metrics, sncfgpb.MetricProto{
						Domain: v.Domain, Zone: v.Zone, Block: v.Block, Metric: v.Metric,
						Labels: v.Labels, Values: v.Values,
					})
					return true
				})
			}
		}
		if s.log.DebugEnabled(logger.SubsystemStats) {
			s.slg.Debug("stats query", "dev", d.ID, "domain", req.Domain, "zone", req.Zone, "metrics", len(resp.Metrics))
		}
		out = append(out, resp)
	}
	return out, nil
}

// ClearStats zeroes the latched metrics of the selected domain (all
// when empty), honoring NEVER_CLEAR.
func (s *CfgServer) ClearStats(ctx context.Context, req *sncfgpb.ClearStatsRequest) ([]*sncfgpb.ClearStatsResponse, error) {
	devs, ok := s.devs(req.DevID)
	if !ok {
		return []*sncfgpb.ClearStatsResponse{{DevID: req.DevID, ErrorCode: core.ErrorInvalidDeviceId}}, nil
	}
	var out []*sncfgpb.ClearStatsResponse
	for _, d := range devs {
		if d.Stats != nil {
			for _, domain := range statsDomains(d.Stats, req.Domain) {
				_ = d.Stats.Clear(domain, req.Zone)
			}
		}
		out = append(out, &sncfgpb.ClearStatsResponse{DevID: d.ID, ErrorCode: errOK})
	}
	return out, nil
}

// statsDomains expands an empty domain selector to every domain.
func statsDomains(t *stats.Tree, domain string) []string {
	if domain != "" {
		return []string{domain}
	}
	return t.Domains()
}
