// Package snp4pb declares the sn_p4.v2.SmartnicP4 wire messages.
// Hand-written stand-ins for `protoc` output; see
// proto/sn_p4.proto.
package snp4pb

import "github.com/xilinx-labs/sn-ctl-core/internal/core"

// GetPipelineInfoRequest selects device/pipeline; -1 in either means all.
type GetPipelineInfoRequest struct {
	DevID      int32
	PipelineID int32
}

type TableProto struct {
	Name         string
	Mode         int32
	Endian       int32
	NumEntries   int32
	NumMasks     int32
	KeyBits      int32
	ResponseBits int32
	PriorityBits int32
	ActionIDBits int32
}

type CounterBlockProto struct {
	Name        string
	Width       int32
	NumCounters int32
	Kind        int32
}

type GetPipelineInfoResponse struct {
	DevID         int32
	PipelineID    int32
	ErrorCode     core.ErrorCode
	Name          string
	Tables        []TableProto
	CounterBlocks []CounterBlockProto
}

// MatchProto is one rule match in its already-parsed textual form.
type MatchProto struct {
	Text string // "key&&&mask" | "key" | "key/prefix" | "lower..upper" | "" | "*"
}

type ParamProto struct {
	ValueHex string // arbitrary-precision, hex-encoded
}

type InsertTableRuleRequest struct {
	DevID      int32
	PipelineID int32
	TableName  string
	Matches    []MatchProto
	Action     string
	Params     []ParamProto
	Priority   int32
	HasPriority bool
	Replace    bool
}

type InsertTableRuleResponse struct {
	DevID      int32
	PipelineID int32
	ErrorCode  core.ErrorCode
}

type DeleteTableRuleRequest struct {
	DevID      int32
	PipelineID int32
	TableName  string
	Matches    []MatchProto
}

type DeleteTableRuleResponse struct {
	DevID      int32
	PipelineID int32
	ErrorCode  core.ErrorCode
}

type ClearTableRequest struct {
	DevID      int32
	PipelineID int32
	TableName  string // empty means clear all tables in the pipeline
}

type ClearTableResponse struct {
	DevID      int32
	PipelineID int32
	ErrorCode  core.ErrorCode
}

type MetricProto struct {
	Domain string
	Zone   string
	Block  string
	Metric string
	Labels map[string]string
	Values []uint64
}

type GetStatsRequest struct {
	DevID      int32
	PipelineID int32
	Zone       string
	Block      string
	Metric     string
	Labels     map[string]string
}

type GetStatsResponse struct {
	DevID      int32
	PipelineID int32
	ErrorCode  core.ErrorCode
	Metrics    []MetricProto
}

// ClearStatsRequest resets the selected pipelines' hardware counter
// blocks and zeroes their latched metrics.
type ClearStatsRequest struct {
	DevID      int32
	PipelineID int32
}

type ClearStatsResponse struct {
	DevID      int32
	PipelineID int32
	ErrorCode  core.ErrorCode
}

// ServerStatusRequest has no fields; ServerStatusResponse reports
// process uptime.
type ServerStatusRequest struct{}

type ServerStatusResponse struct {
	StartTimeUnixNano int64
	UpTimeNanos       int64
}

// SetDebugFlagRequest toggles verbose logging for one subsystem.
type SetDebugFlagRequest struct {
	Subsystem string
	Enabled   bool
}

type SetDebugFlagResponse struct {
	ErrorCode core.ErrorCode
}

// BatchOp selects which unary handler a BatchRequest dispatches to.
type BatchOp int32

const (
	BatchOpUnknown BatchOp = iota
	BatchOpGet
	BatchOpSet
	BatchOpInsert
	BatchOpDelete
	BatchOpClear
)

// BatchRequest carries exactly one populated sub-request.
type BatchRequest struct {
	Op              BatchOp
	PipelineInfo    *GetPipelineInfoRequest
	InsertTableRule *InsertTableRuleRequest
	DeleteTableRule *DeleteTableRuleRequest
	ClearTable      *ClearTableRequest
	Stats           *GetStatsRequest
	ClearStats      *ClearStatsRequest
	ServerStatus    *ServerStatusRequest
	SetDebugFlag    *SetDebugFlagRequest
}

// BatchResponse carries exactly one populated slice of sub-responses.
type BatchResponse struct {
	Op              BatchOp
	ErrorCode       core.ErrorCode
	PipelineInfo    []*GetPipelineInfoResponse
	InsertTableRule []*InsertTableRuleResponse
	DeleteTableRule []*DeleteTableRuleResponse
	ClearTable      []*ClearTableResponse
	Stats           []*GetStatsResponse
	ClearStats      []*ClearStatsResponse
	ServerStatus    *ServerStatusResponse
	SetDebugFlag    *SetDebugFlagResponse
}
