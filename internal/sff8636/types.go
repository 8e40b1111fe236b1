// Package sff8636 decodes the SFF-8636 optical-module memory map:
// a 128-byte lower page plus one selected upper page, both fixed
// byte layouts.
package sff8636

// Page is the raw 256-byte module memory: lower page (0-127) plus
// whichever upper page (128-255) was last selected.
type Page [256]byte

// UpperPageID identifies which upper page variant is present in
// Page[128:256].
type UpperPageID byte

const (
	UpperPage00 UpperPageID = 0x00 // identification
	UpperPage01 UpperPageID = 0x01 // AST
	UpperPage02 UpperPageID = 0x02 // CLEI
	UpperPage03 UpperPageID = 0x03 // thresholds
	UpperPage20 UpperPageID = 0x20 // parameter telemetry
	UpperPage21 UpperPageID = 0x21 // parameter telemetry
)

// StatusFlags are the lower-page status byte(s).
type StatusFlags struct {
	DataNotReady bool
	FlatMem      bool
	IntL         bool
}

// InterruptFlags are the lower-page latched interrupt flags: LOS,
// fault and LOL per channel, plus threshold flags.
type InterruptFlags struct {
	LOSPerChannel  [4]bool
	FaultPerChannel [4]bool
	LOLPerChannel  [4]bool

	TempHighAlarm, TempLowAlarm   bool
	TempHighWarn, TempLowWarn     bool
	VccHighAlarm, VccLowAlarm     bool
	VccHighWarn, VccLowWarn       bool

	RxPowerHighAlarm [4]bool
	RxPowerLowAlarm  [4]bool
	RxPowerHighWarn  [4]bool
	RxPowerLowWarn   [4]bool

	TxBiasHighAlarm [4]bool
	TxBiasLowAlarm  [4]bool
	TxBiasHighWarn  [4]bool
	TxBiasLowWarn   [4]bool

	TxPowerHighAlarm [4]bool
	TxPowerLowAlarm  [4]bool
	TxPowerHighWarn  [4]bool
	TxPowerLowWarn   [4]bool
}

// FreeSideMonitors are the module-wide (not per-channel) monitors.
type FreeSideMonitors struct {
	TempCelsius float64
	VccVolts    float64
}

// ChannelMonitors are the per-lane monitors, indexed 0-3 (rx1-4,
// tx1-4).
type ChannelMonitors struct {
	RxPowerMilliwatts [4]float64
	TxBiasMilliamps   [4]float64
	TxPowerMilliwatts [4]float64
}

// Controls are the lower-page writable control fields. The rx and tx
// application-select tables are separate per direction; both are
// indexed here 0-3 for lanes 1-4.
type Controls struct {
	TxDisable   [4]bool
	RateSelect  [4]uint8
	RxAppSelect [4]uint8
	TxAppSelect [4]uint8
	PowerClassOverride bool
	HighPowerClassEnable bool
	CDREnableTx [4]bool
	CDREnableRx [4]bool
}

// Masks are the lower-page interrupt mask bits, mirroring
// InterruptFlags' shape for the maskable subset.
type Masks struct {
	LOSMask  [4]bool
	FaultMask [4]bool
	LOLMask  [4]bool
	TempMask bool
	VccMask  bool
}

// Identification is the static, upper-page-00 identity block.
type Identification struct {
	VendorName     string
	VendorPN       string
	VendorSN       string
	VendorRev      string
	VendorOUI      [3]byte
	DateCode       string
	ConnectorType  uint8
	ComplianceCodes []string
	CableLengths   CableLengths
	DeviceTech     uint8
	Options        uint32
	PowerClass     int
	BaudRateMBd    float64
}

// CableLengths is the five media-type length table from upper page
// 00.
type CableLengths struct {
	SMFKm       float64
	OM3_2m      int
	OM2_1m      int
	OM1_1m      int
	CopperOrDAC int
}

// Module is the fully decoded module record.
type Module struct {
	Status     StatusFlags
	Interrupts InterruptFlags
	FreeSide   FreeSideMonitors
	Channels   ChannelMonitors
	Controls   Controls
	Masks      Masks
	Ident      Identification
}
