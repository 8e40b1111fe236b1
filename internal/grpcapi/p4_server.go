package grpcapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sort"
	"strconv"

	"github.com/xilinx-labs/sn-ctl-core/internal/agent"
	"github.com/xilinx-labs/sn-ctl-core/internal/core"
	"github.com/xilinx-labs/sn-ctl-core/internal/grpcapi/snp4pb"
	"github.com/xilinx-labs/sn-ctl-core/internal/logger"
	"github.com/xilinx-labs/sn-ctl-core/internal/p4/packer"
	"github.com/xilinx-labs/sn-ctl-core/internal/pipeline"
	"github.com/xilinx-labs/sn-ctl-core/internal/stats"
)

// P4Server implements sn_p4.v2.SmartnicP4 against an Agent.
type P4Server struct {
	agent *agent.Agent
	log   *logger.Handler
	slg   *slog.Logger
	clock *serverClock
	// tableMeta supplies the static Table each pipeline's rules are
	// packed against, keyed by table name; populated at startup from
	// the pipeline's cached PipelineInfo.
	tableMeta func(devID, pipelineID int32, tableName string) (*packer.Table, bool)
}

// NewP4Server constructs a P4Server bound to agt. tableMeta resolves
// the static packer.Table for one (device, pipeline, table) triple.
func NewP4Server(agt *agent.Agent, log *logger.Handler, tableMeta func(devID, pipelineID int32, tableName string) (*packer.Table, bool)) *P4Server {
	if log == nil {
		log = logger.NewHandler(io.Discard, nil)
	}
	return &P4Server{agent: agt, log: log, slg: slog.New(log), clock: newServerClock(), tableMeta: tableMeta}
}

// statsDomain is the single stats domain name every pipeline registers
// its zones under: one "counters" sampling domain shared by
// the counters and table-ecc zones of every pipeline on the device.
const statsDomain = "counters"

func (s *P4Server) devs(devID int32) ([]*agent.Device, bool) {
	if devID == -1 {
		return s.agent.Devices(), true
	}
	d, ok := s.agent.Device(devID)
	if !ok {
		return nil, false
	}
	return []*agent.Device{d}, true
}

// pipelineIDs resolves a pipeline selector against one device, in
// ascending ID order.
func pipelineIDs(d *agent.Device, pipelineID int32) ([]int32, bool) {
	if pipelineID != -1 {
		if _, ok := d.Pipelines[pipelineID]; !ok {
			return nil, false
		}
		return []int32{pipelineID}, true
	}
	ids := make([]int32, 0, len(d.Pipelines))
	for id := range d.Pipelines {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, true
}

// GetPipelineInfo returns the cached inventory for one or all
// pipelines.
func (s *P4Server) GetPipelineInfo(ctx context.Context, req *snp4pb.GetPipelineInfoRequest) ([]*snp4pb.GetPipelineInfoResponse, error) {
	devs, ok := s.devs(req.DevID)
	if !ok {
		return []*snp4pb.GetPipelineInfoResponse{{DevID: req.DevID, PipelineID: req.PipelineID, ErrorCode: core.ErrorInvalidDeviceId}}, nil
	}
	var out []*snp4pb.GetPipelineInfoResponse
	for _, d := range devs {
		ids, ok := pipelineIDs(d, req.PipelineID)
		if !ok {
			out = append(out, &snp4pb.GetPipelineInfoResponse{DevID: d.ID, PipelineID: req.PipelineID, ErrorCode: core.ErrorInvalidPipelineId})
			continue
		}
		for _, id := range ids {
			p := d.Pipelines[id]
			resp := &snp4pb.GetPipelineInfoResponse{
				DevID: d.ID, PipelineID: id, ErrorCode: errOK, Name: p.Info.Name,
			}
			for _, ti := range p.Info.Tables {
				resp.Tables = append(resp.Tables, snp4pb.TableProto{
					Name: ti.Name, Mode: int32(ti.Mode), Endian: int32(ti.Endian),
					NumEntries: int32(ti.NumEntries), NumMasks: int32(ti.NumMasks),
					KeyBits: int32(ti.KeyBits), ResponseBits: int32(ti.ResponseBits),
					PriorityBits: int32(ti.PriorityBits), ActionIDBits: int32(ti.ActionIDBits),
				})
			}
			for _, cb := range p.Info.CounterBlocks {
				resp.CounterBlocks = append(resp.CounterBlocks, snp4pb.CounterBlockProto{
					Name: cb.Name, NumCounters: int32(cb.NumCounters),
				})
			}
			if s.log.DebugEnabled(logger.SubsystemPipelineInfo) {
				s.slg.Debug("pipeline info", "dev", d.ID, "pipeline", id, "tables", len(resp.Tables))
			}
			out = append(out, resp)
		}
	}
	return out, nil
}

// parseMatches converts wire match strings into packer.Match values.
func parseMatches(wire []snp4pb.MatchProto) ([]packer.Match, error) {
	out := make([]packer.Match, len(wire))
	for i, m := range wire {
		parsed, err := packer.ParseMatch(m.Text)
		if err != nil {
			return nil, err
		}
		out[i] = parsed
	}
	return out, nil
}

func parseParams(wire []snp4pb.ParamProto) ([]packer.ParamValue, error) {
	out := make([]packer.ParamValue, len(wire))
	for i, p := range wire {
		v, ok := new(big.Int).SetString(p.ValueHex, 16)
		if !ok {
			return nil, strconv.ErrSyntax
		}
		out[i] = packer.ParamValue{Value: v}
	}
	return out, nil
}

// InsertTableRule packs and inserts (or, with Replace, updates) one rule;
// Replace selects the vendor update operation over insert.
func (s *P4Server) InsertTableRule(ctx context.Context, req *snp4pb.InsertTableRuleRequest) ([]*snp4pb.InsertTableRuleResponse, error) {
	devs, ok := s.devs(req.DevID)
	if !ok {
		return []*snp4pb.InsertTableRuleResponse{{DevID: req.DevID, PipelineID: req.PipelineID, ErrorCode: core.ErrorInvalidDeviceId}}, nil
	}
	var out []*snp4pb.InsertTableRuleResponse
	for _, d := range devs {
		ids, ok := pipelineIDs(d, req.PipelineID)
		if !ok {
			out = append(out, &snp4pb.InsertTableRuleResponse{DevID: d.ID, PipelineID: req.PipelineID, ErrorCode: core.ErrorInvalidPipelineId})
			continue
		}
		for _, id := range ids {
			out = append(out, s.insertOne(d.ID, id, d.Pipelines[id], req))
		}
	}
	return out, nil
}

func (s *P4Server) insertOne(devID, pipelineID int32, p *pipeline.Pipeline, req *snp4pb.InsertTableRuleRequest) *snp4pb.InsertTableRuleResponse {
	resp := &snp4pb.InsertTableRuleResponse{DevID: devID, PipelineID: pipelineID}

	table, ok := s.tableMeta(devID, pipelineID, req.TableName)
	if !ok {
		resp.ErrorCode = core.ErrorInvalidTableName
		return resp
	}
	matches, err := parseMatches(req.Matches)
	if err != nil {
		resp.ErrorCode = packerErrorCode(err)
		return resp
	}
	params, err := parseParams(req.Params)
	if err != nil {
		resp.ErrorCode = core.ErrorTableRuleMatchInvalidKeyFormat
		return resp
	}
	rule := &packer.Rule{TableName: req.TableName, Matches: matches, Action: req.Action, Params: params}
	packed, err := packer.Pack(table, rule)
	if err != nil {
		resp.ErrorCode = packerErrorCode(err)
		return resp
	}
	priority := 0
	if req.HasPriority {
		priority = int(req.Priority)
	}
	if s.log.DebugEnabled(logger.SubsystemTableRuleInsert) {
		s.slg.Debug("table rule insert", "dev", devID, "pipeline", pipelineID,
			"table", req.TableName, "action", req.Action, "replace", req.Replace)
	}
	if err := p.Facade.InsertKMA(req.TableName, packed.Key, packed.Mask, req.Action, packed.ActionParameters, priority, req.Replace); err != nil {
		resp.ErrorCode = core.ErrorFailedInsertTableRule
		return resp
	}
	resp.ErrorCode = errOK
	return resp
}

// DeleteTableRule packs matches and deletes the matching entry.
func (s *P4Server) DeleteTableRule(ctx context.Context, req *snp4pb.DeleteTableRuleRequest) ([]*snp4pb.DeleteTableRuleResponse, error) {
	devs, ok := s.devs(req.DevID)
	if !ok {
		return []*snp4pb.DeleteTableRuleResponse{{DevID: req.DevID, PipelineID: req.PipelineID, ErrorCode: core.ErrorInvalidDeviceId}}, nil
	}
	var out []*snp4pb.DeleteTableRuleResponse
	for _, d := range devs {
		ids, ok := pipelineIDs(d, req.PipelineID)
		if !ok {
			out = append(out, &snp4pb.DeleteTableRuleResponse{DevID: d.ID, PipelineID: req.PipelineID, ErrorCode: core.ErrorInvalidPipelineId})
			continue
		}
		for _, id := range ids {
			out = append(out, s.deleteOne(d.ID, id, d.Pipelines[id], req))
		}
	}
	return out, nil
}

func (s *P4Server) deleteOne(devID, pipelineID int32, p *pipeline.Pipeline, req *snp4pb.DeleteTableRuleRequest) *snp4pb.DeleteTableRuleResponse {
	resp := &snp4pb.DeleteTableRuleResponse{DevID: devID, PipelineID: pipelineID}
	table, ok := s.tableMeta(devID, pipelineID, req.TableName)
	if !ok {
		resp.ErrorCode = core.ErrorInvalidTableName
		return resp
	}
	matches, err := parseMatches(req.Matches)
	if err != nil {
		resp.ErrorCode = packerErrorCode(err)
		return resp
	}
	rule := &packer.Rule{TableName: req.TableName, Matches: matches, Action: firstActionName(table)}
	packed, err := packer.Pack(table, rule)
	if err != nil {
		resp.ErrorCode = packerErrorCode(err)
		return resp
	}
	if s.log.DebugEnabled(logger.SubsystemTableRuleDelete) {
		s.slg.Debug("table rule delete", "dev", devID, "pipeline", pipelineID, "table", req.TableName)
	}
	if err := p.Facade.DeleteK(req.TableName, packed.Key, packed.Mask); err != nil {
		resp.ErrorCode = core.ErrorFailedDeleteTableRule
		return resp
	}
	resp.ErrorCode = errOK
	return resp
}

// firstActionName lets DeleteTableRule pack a rule for match purposes
// only; the vendor driver's delete operation does not consult the
// action, so any declared action satisfies packer.Pack's lookup.
func firstActionName(t *packer.Table) string {
	if len(t.Actions) == 0 {
		return ""
	}
	return t.Actions[0].Name
}

// ClearTable resets one table, or every table in the pipeline when
// TableName is empty.
func (s *P4Server) ClearTable(ctx context.Context, req *snp4pb.ClearTableRequest) ([]*snp4pb.ClearTableResponse, error) {
	devs, ok := s.devs(req.DevID)
	if !ok {
		return []*snp4pb.ClearTableResponse{{DevID: req.DevID, PipelineID: req.PipelineID, ErrorCode: core.ErrorInvalidDeviceId}}, nil
	}
	var out []*snp4pb.ClearTableResponse
	for _, d := range devs {
		ids, ok := pipelineIDs(d, req.PipelineID)
		if !ok {
			out = append(out, &snp4pb.ClearTableResponse{DevID: d.ID, PipelineID: req.PipelineID, ErrorCode: core.ErrorInvalidPipelineId})
			continue
		}
		for _, id := range ids {
			p := d.Pipelines[id]
			resp := &snp4pb.ClearTableResponse{DevID: d.ID, PipelineID: id, ErrorCode: errOK}
			if s.log.DebugEnabled(logger.SubsystemTableClear) {
				s.slg.Debug("table clear", "dev", d.ID, "pipeline", id, "table", req.TableName)
			}
			if req.TableName == "" {
				if err := p.Facade.ResetAllTables(); err != nil {
					resp.ErrorCode = core.ErrorFailedClearAllTables
				}
			} else {
				if _, ok := p.TableByName(req.TableName); !ok {
					resp.ErrorCode = core.ErrorInvalidTableName
				} else if err := p.Facade.ResetTable(req.TableName); err != nil {
					resp.ErrorCode = core.ErrorFailedClearTable
				}
			}
			out = append(out, resp)
		}
	}
	return out, nil
}

// GetStats returns latched metrics from the pipelines' counters
// domain, narrowed by the request's zone/block/metric/label filter.
func (s *P4Server) GetStats(ctx context.Context, req *snp4pb.GetStatsRequest) ([]*snp4pb.GetStatsResponse, error) {
	devs, ok := s.devs(req.DevID)
	if !ok {
		return []*snp4pb.GetStatsResponse{{DevID: req.DevID, ErrorCode: core.ErrorInvalidDeviceId}}, nil
	}
	var out []*snp4pb.GetStatsResponse
	for _, d := range devs {
		resp := &snp4pb.GetStatsResponse{DevID: d.ID, ErrorCode: errOK}
		if d.Stats != nil {
			filter := stats.Filter{Zone: req.Zone, Block: req.Block, Metric: req.Metric, Labels: req.Labels}
			d.Stats.ForEachMetric(statsDomain, filter, func(v stats.MetricView) bool {
				resp.Metrics = append(resp.Metrics, snp4pb.MetricProto{
					Domain: v.Domain, Zone: v.Zone, Block: v.Block, Metric: v.Metric,
					Labels: v.Labels, Values: v.Values,
				})
				return true
			})
		}
		if s.log.DebugEnabled(logger.SubsystemStats) {
			s.slg.Debug("pipeline stats query", "dev", d.ID, "zone", req.Zone, "metrics", len(resp.Metrics))
		}
		out = append(out, resp)
	}
	return out, nil
}

// ClearStats resets the selected pipelines' hardware counter blocks
// and zeroes their latched metrics.
func (s *P4Server) ClearStats(ctx context.Context, req *snp4pb.ClearStatsRequest) ([]*snp4pb.ClearStatsResponse, error) {
	devs, ok := s.devs(req.DevID)
	if !ok {
		return []*snp4pb.ClearStatsResponse{{DevID: req.DevID, PipelineID: req.PipelineID, ErrorCode: core.ErrorInvalidDeviceId}}, nil
	}
	var out []*snp4pb.ClearStatsResponse
	for _, d := range devs {
		ids, ok := pipelineIDs(d, req.PipelineID)
		if !ok {
			out = append(out, &snp4pb.ClearStatsResponse{DevID: d.ID, PipelineID: req.PipelineID, ErrorCode: core.ErrorInvalidPipelineId})
			continue
		}
		for _, id := range ids {
			p := d.Pipelines[id]
			resp := &snp4pb.ClearStatsResponse{DevID: d.ID, PipelineID: id, ErrorCode: errOK}
			for _, cb := range p.Info.CounterBlocks {
				if err := p.Facade.BlockReset(cb.Name); err != nil {
					resp.ErrorCode = core.ErrorFailedClearTable
					break
				}
			}
			if d.Stats != nil {
				for _, zone := range p.StatsZoneNames() {
					_ = d.Stats.Clear(statsDomain, zone)
				}
			}
			out = append(out, resp)
		}
	}
	return out, nil
}

// GetServerStatus implements the P4 service's ServerStatus RPC.
func (s *P4Server) GetServerStatus(ctx context.Context, _ *snp4pb.ServerStatusRequest) (*snp4pb.ServerStatusResponse, error) {
	st := s.clock.status()
	return &snp4pb.ServerStatusResponse{
		StartTimeUnixNano: st.StartTimeUnixNano,
		UpTimeNanos:       st.UpTimeNanos,
	}, nil
}

// SetDebugFlag toggles verbose logging for one named subsystem.
func (s *P4Server) SetDebugFlag(ctx context.Context, req *snp4pb.SetDebugFlagRequest) (*snp4pb.SetDebugFlagResponse, error) {
	sub, ok := logger.ParseSubsystem(req.Subsystem)
	if !ok {
		return &snp4pb.SetDebugFlagResponse{ErrorCode: errServerInvalidDebugFlag}, nil
	}
	s.log.SetDebug(sub, req.Enabled)
	return &snp4pb.SetDebugFlagResponse{ErrorCode: errOK}, nil
}

// packerErrorCode maps a packer sentinel error to its ErrorCode.
// ErrMaskNotContained shares the invalid-mask-format code, and any
// error without a case of its own maps to
// ErrorUnknownTableRuleMatchType.
func packerErrorCode(err error) core.ErrorCode {
	switch {
	case errors.Is(err, packer.ErrTooFewMatches):
		return core.ErrorTableRuleTooFewMatches
	case errors.Is(err, packer.ErrTooManyMatches):
		return core.ErrorTableRuleTooManyMatches
	case errors.Is(err, packer.ErrTooFewActionParams):
		return core.ErrorTableRuleTooFewActionParameters
	case errors.Is(err, packer.ErrTooManyActionParams):
		return core.ErrorTableRuleTooManyActionParameters
	case errors.Is(err, packer.ErrInvalidKeyFormat):
		return core.ErrorTableRuleMatchInvalidKeyFormat
	case errors.Is(err, packer.ErrInvalidMaskFormat):
		return core.ErrorTableRuleMatchInvalidMaskFormat
	case errors.Is(err, packer.ErrInvalidPrefixLength):
		return core.ErrorTableRuleMatchInvalidPrefixLength
	case errors.Is(err, packer.ErrRangeLowerTooBig):
		return core.ErrorTableRuleMatchRangeLowerTooBig
	case errors.Is(err, packer.ErrRangeUpperTooBig):
		return core.ErrorTableRuleMatchRangeUpperTooBig
	case errors.Is(err, packer.ErrKeyTooBig):
		return core.ErrorTableRulePackKeyTooBig
	case errors.Is(err, packer.ErrParamsTooBig):
		return core.ErrorTableRulePackParamsTooBig
	case errors.Is(err, packer.ErrInvalidActionName):
		return core.ErrorInvalidActionName
	case errors.Is(err, packer.ErrMaskNotContained):
		return core.ErrorTableRuleMatchInvalidMaskFormat
	default:
		return core.ErrorUnknownTableRuleMatchType
	}
}
