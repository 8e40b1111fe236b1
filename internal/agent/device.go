package agent

import (
	"log/slog"

	"github.com/xilinx-labs/sn-ctl-core/internal/cms"
	"github.com/xilinx-labs/sn-ctl-core/internal/hw/host"
	"github.com/xilinx-labs/sn-ctl-core/internal/hw/port"
	"github.com/xilinx-labs/sn-ctl-core/internal/hw/swtch"
	"github.com/xilinx-labs/sn-ctl-core/internal/pipeline"
	"github.com/xilinx-labs/sn-ctl-core/internal/register"
	"github.com/xilinx-labs/sn-ctl-core/internal/stats"
)

// Register block base offsets within BAR2. Real offsets come from
// the vendor address map at build time; these are placeholders wide
// enough to keep every block's window disjoint.
const (
	baseCMS    = 0x00010000
	basePort0  = 0x00020000
	basePort1  = 0x00021000
	baseHost   = 0x00030000
	baseSwitch = 0x00040000
	portWindow = 0x1000
)

// DeviceConfig is the static per-device topology needed to bring a
// Device up: how many CMAC ports it has and how many QDMA host
// function channels it exposes. Each port's cage carries one pluggable
// module, so the module count follows the port count.
type DeviceConfig struct {
	ID       int32
	BusID    string
	NumPorts int
	NumHosts int
}

// Module is one pluggable optical module's per-device state: its form
// factor, the cage it sits in, and the page selector tracking which
// upper page byte accesses target.
type Module struct {
	Type cms.ModuleType
	Cage uint8
	Sel  cms.PageSelector
}

// NewDevice opens busID's BAR2 and constructs the line drivers and
// CMS client over fixed sub-windows of it.
// The stats tree and pipelines are attached afterward via
// Device.Pipelines / AttachStats once each pipeline has been
// initialized (pipeline init runs per present pipeline ID, which this
// constructor does not itself enumerate).
func NewDevice(cfg DeviceConfig, log *slog.Logger) (*Device, error) {
	bar2, closer, err := OpenBar2(cfg.BusID)
	if err != nil {
		return nil, err
	}

	d := &Device{
		ID:        cfg.ID,
		BusID:     cfg.BusID,
		BAR2:      bar2,
		CMS:       cms.New(register.NewView(bar2, baseCMS), log),
		Ports:     make(map[int32]*port.Port, cfg.NumPorts),
		Modules:   make(map[int32]*Module, cfg.NumPorts),
		NumHosts:  cfg.NumHosts,
		Host:      host.New(register.NewView(bar2, baseHost)),
		Switch:    swtch.New(register.NewView(bar2, baseSwitch)),
		Pipelines: make(map[int32]*pipeline.Pipeline),
		closeBar2: closer,
	}
	for i := 0; i < cfg.NumPorts; i++ {
		d.Ports[int32(i)] = port.New(register.NewView(bar2, portBase(i)))
		d.Modules[int32(i)] = &Module{Type: cms.ModuleQSFP, Cage: uint8(i)}
	}
	return d, nil
}

func portBase(index int) uint32 {
	return basePort0 + uint32(index)*portWindow
}

// AttachStats installs the device's stats tree, built once every
// pipeline's zones are known; the tree's shape never changes after
// this point, only its latched values.
func (d *Device) AttachStats(tree *stats.Tree) {
	d.Stats = tree
}
