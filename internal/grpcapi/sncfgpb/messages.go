// Package sncfgpb declares the sn_cfg.v2.SmartnicConfig wire messages.
// These are hand-written stand-ins for what `protoc`
// would generate from a sn_cfg.proto source (see proto/sn_cfg.proto);
// the service itself is implemented in package grpcapi.
package sncfgpb

import (
	"github.com/xilinx-labs/sn-ctl-core/internal/cms"
	"github.com/xilinx-labs/sn-ctl-core/internal/core"
	"github.com/xilinx-labs/sn-ctl-core/internal/hw/swtch"
)

// DeviceInfoRequest selects a device; dev_id == -1 means all devices.
type DeviceInfoRequest struct {
	DevID int32
}

// DeviceInfoResponse carries one device's card info and error code.
type DeviceInfoResponse struct {
	DevID     int32
	ErrorCode core.ErrorCode
	CardInfo  *cms.CardInfo
}

// PortState enumerates the administrative port state.
type PortState int32

const (
	PortStateUnknown PortState = iota
	PortStateDisable
	PortStateEnable
)

// PortFec enumerates the forward-error-correction modes the CMAC
// supports; values outside this set yield UNSUPPORTED_FEC.
type PortFec int32

const (
	PortFecUnknown PortFec = iota
	PortFecNone
	PortFecFireCode
	PortFecReedSolomon
)

// PortConfigProto is one port's administrative configuration.
type PortConfigProto struct {
	State    PortState
	Fec      PortFec
	Loopback bool
}

// GetPortConfigRequest selects a device/port pair; -1 in either means all.
type GetPortConfigRequest struct {
	DevID  int32
	PortID int32
}

type GetPortConfigResponse struct {
	DevID     int32
	PortID    int32
	ErrorCode core.ErrorCode
	Config    *PortConfigProto
}

// SetPortConfigRequest applies Config to the selected ports. A nil
// Config yields MISSING_PORT_CONFIG.
type SetPortConfigRequest struct {
	DevID  int32
	PortID int32
	Config *PortConfigProto
}

type SetPortConfigResponse struct {
	DevID     int32
	PortID    int32
	ErrorCode core.ErrorCode
}

// PortStatusRequest selects a device/port pair; -1 in either means all.
type PortStatusRequest struct {
	DevID  int32
	PortID int32
}

type PortStatusResponse struct {
	DevID     int32
	PortID    int32
	ErrorCode core.ErrorCode
	LinkUp    bool
}

// SetPortEnableRequest toggles a CMAC port up or down.
type SetPortEnableRequest struct {
	DevID   int32
	PortID  int32
	Enabled bool
}

type SetPortEnableResponse struct {
	DevID     int32
	PortID    int32
	ErrorCode core.ErrorCode
	LinkUp    bool
}

// HostConfigProto is one host function's QDMA queue window.
type HostConfigProto struct {
	BaseQueue int32
	NumQueues int32
}

// GetHostConfigRequest selects a device/host pair; -1 in either means all.
type GetHostConfigRequest struct {
	DevID  int32
	HostID int32
}

type GetHostConfigResponse struct {
	DevID     int32
	HostID    int32
	ErrorCode core.ErrorCode
	Config    *HostConfigProto
}

// SetHostConfigRequest applies Config to the selected host functions.
// A nil Config yields MISSING_HOST_CONFIG.
type SetHostConfigRequest struct {
	DevID  int32
	HostID int32
	Config *HostConfigProto
}

type SetHostConfigResponse struct {
	DevID     int32
	HostID    int32
	ErrorCode core.ErrorCode
}

// SwitchConfigRequest/Response expose the packet-switch driver.
type SwitchConfigRequest struct {
	DevID int32
}

type SwitchConfigResponse struct {
	DevID     int32
	ErrorCode core.ErrorCode
	Config    swtch.Config
}

// SetSwitchConfigRequest programs the four ingress selectors. A nil
// Config yields MISSING_SWITCH_CONFIG.
type SetSwitchConfigRequest struct {
	DevID  int32
	Config *swtch.Config
}

type SetSwitchConfigResponse struct {
	DevID     int32
	ErrorCode core.ErrorCode
}

// SetDefaultsRequest asks for the whole-device one-to-one defaults
// profile.
type SetDefaultsRequest struct {
	DevID int32
}

type SetDefaultsResponse struct {
	DevID     int32
	ErrorCode core.ErrorCode
}

// GetModuleInfoRequest selects device/module; -1 means all modules.
type GetModuleInfoRequest struct {
	DevID    int32
	ModuleID int32
}

type GetModuleInfoResponse struct {
	DevID     int32
	ModuleID  int32
	ErrorCode core.ErrorCode
	// Populated from sff8636.Module when the decode succeeds.
	VendorName  string
	VendorPN    string
	VendorSN    string
	VendorRev   string
	DateCode    string
	PowerClass  int
	BaudRateMBd float64
}

// ModuleMonitorsProto carries the free-side and per-lane monitors of
// one module's lower page.
type ModuleMonitorsProto struct {
	TempCelsius       float64
	VccVolts          float64
	RxPowerMilliwatts [4]float64
	TxBiasMilliamps   [4]float64
	TxPowerMilliwatts [4]float64
}

// GetModuleStatusRequest selects device/module; -1 means all modules.
type GetModuleStatusRequest struct {
	DevID    int32
	ModuleID int32
}

type GetModuleStatusResponse struct {
	DevID     int32
	ModuleID  int32
	ErrorCode core.ErrorCode
	Monitors  *ModuleMonitorsProto
	RxLOS     [4]bool
	TxFault   [4]bool
}

// ModuleGpioProto is the asserted-state view of a module's low-speed
// IO lines.
type ModuleGpioProto struct {
	Reset  bool
	ModSel bool
	ModPrs bool
	Int    bool
	LPMode bool
}

type GetModuleGpioRequest struct {
	DevID    int32
	ModuleID int32
}

type GetModuleGpioResponse struct {
	DevID     int32
	ModuleID  int32
	ErrorCode core.ErrorCode
	Gpio      *ModuleGpioProto
}

// SetModuleGpioRequest applies the writable lines (reset, modsel,
// lpmode). A nil Gpio yields MISSING_MODULE_CONFIG.
type SetModuleGpioRequest struct {
	DevID    int32
	ModuleID int32
	Gpio     *ModuleGpioProto
}

type SetModuleGpioResponse struct {
	DevID     int32
	ModuleID  int32
	ErrorCode core.ErrorCode
}

// GetModuleMemRequest reads Count bytes of module memory starting at
// Offset (0-255; offsets >= 128 go through the selected upper page).
type GetModuleMemRequest struct {
	DevID    int32
	ModuleID int32
	Offset   int32
	Count    int32
}

type GetModuleMemResponse struct {
	DevID     int32
	ModuleID  int32
	ErrorCode core.ErrorCode
	Data      []byte
}

type SetModuleMemRequest struct {
	DevID    int32
	ModuleID int32
	Offset   int32
	Data     []byte
}

type SetModuleMemResponse struct {
	DevID     int32
	ModuleID  int32
	ErrorCode core.ErrorCode
}

// SetModulePageRequest selects the module's upper page for subsequent
// upper-half memory accesses.
type SetModulePageRequest struct {
	DevID    int32
	ModuleID int32
	Page     int32
}

type SetModulePageResponse struct {
	DevID     int32
	ModuleID  int32
	ErrorCode core.ErrorCode
}

// MetricProto is one latched metric, flattened for the wire.
type MetricProto struct {
	Domain string
	Zone   string
	Block  string
	Metric string
	Labels map[string]string
	Values []uint64
}

// GetStatsRequest selects a device/domain, with an optional zone/
// block/metric/label filter.
type GetStatsRequest struct {
	DevID  int32
	Domain string
	Zone   string
	Block  string
	Metric string
	Labels map[string]string
}

type GetStatsResponse struct {
	DevID     int32
	ErrorCode core.ErrorCode
	Metrics   []MetricProto
}

// ClearStatsRequest zeroes the latched metrics of a domain (all
// domains when Domain is empty), optionally narrowed to one zone.
// NEVER_CLEAR metrics are exempt.
type ClearStatsRequest struct {
	DevID  int32
	Domain string
	Zone   string
}

type ClearStatsResponse struct {
	DevID     int32
	ErrorCode core.ErrorCode
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

// BatchRequest carries exactly one populated sub-request; the server
// dispatches on Op to the matching unary handler. Requests are
// consumed off the stream one at a time.
type BatchRequest struct {
	Op              BatchOp
	DeviceInfo      *DeviceInfoRequest
	PortConfig      *GetPortConfigRequest
	SetPortConfig   *SetPortConfigRequest
	PortStatus      *PortStatusRequest
	SetPortEnable   *SetPortEnableRequest
	HostConfig      *GetHostConfigRequest
	SetHostConfig   *SetHostConfigRequest
	SwitchConfig    *SwitchConfigRequest
	SetSwitchConfig *SetSwitchConfigRequest
	SetDefaults     *SetDefaultsRequest
	ModuleInfo      *GetModuleInfoRequest
	ModuleStatus    *GetModuleStatusRequest
	ModuleGpio      *GetModuleGpioRequest
	SetModuleGpio   *SetModuleGpioRequest
	ModuleMem       *GetModuleMemRequest
	SetModuleMem    *SetModuleMemRequest
	SetModulePage   *SetModulePageRequest
	Stats           *GetStatsRequest
	ClearStats      *ClearStatsRequest
	ServerStatus    *ServerStatusRequest
	SetDebugFlag    *SetDebugFlagRequest
}

// BatchResponse carries exactly one populated slice of sub-responses,
// matching whichever field was set on the request. ErrorCode is
// EC_UNKNOWN_BATCH_REQUEST when no sub-request was set, or
// EC_UNKNOWN_BATCH_OP when Op does not match the sub-request's
// expected op.
type BatchResponse struct {
	Op              BatchOp
	ErrorCode       core.ErrorCode
	DeviceInfo      []*DeviceInfoResponse
	PortConfig      []*GetPortConfigResponse
	SetPortConfig   []*SetPortConfigResponse
	PortStatus      []*PortStatusResponse
	SetPortEnable   []*SetPortEnableResponse
	HostConfig      []*GetHostConfigResponse
	SetHostConfig   []*SetHostConfigResponse
	SwitchConfig    []*SwitchConfigResponse
	SetSwitchConfig []*SetSwitchConfigResponse
	SetDefaults     []*SetDefaultsResponse
	ModuleInfo      []*GetModuleInfoResponse
	ModuleStatus    []*GetModuleStatusResponse
	ModuleGpio      []*GetModuleGpioResponse
	SetModuleGpio   []*SetModuleGpioResponse
	ModuleMem       []*GetModuleMemResponse
	SetModuleMem    []*SetModuleMemResponse
	SetModulePage   []*SetModulePageResponse
	Stats           []*GetStatsResponse
	ClearStats      []*ClearStatsResponse
	ServerStatus    *ServerStatusResponse
	SetDebugFlag    *SetDebugFlagResponse
}
