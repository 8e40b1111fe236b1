// Package pipeline wires one VitisNetP4 pipeline's façade to the
// stats tree: at init it resets all tables, caches a
// pipeline inventory, and registers a counters zone and a table-ECC
// zone.
package pipeline

import (
	"fmt"

	"github.com/xilinx-labs/sn-ctl-core/internal/p4/facade"
	"github.com/xilinx-labs/sn-ctl-core/internal/p4/packer"
	"github.com/xilinx-labs/sn-ctl-core/internal/stats"
)

// eccTableModes is the fixed set of table modes that get a
// table-ecc block; DCAM is deliberately excluded.
var eccTableModes = map[packer.TableMode]string{
	packer.ModeBCAM:      "BCAM",
	packer.ModeSTCAM:     "STCAM",
	packer.ModeTCAM:      "TCAM",
	packer.ModeTinyBCAM:  "TINY_BCAM",
	packer.ModeTinyTCAM:  "TINY_TCAM",
}

// TableInfo is one table's static inventory entry plus the match/
// action schema the packer needs to pack rules against it. The
// inventory fields (Name/Mode/NumEntries) are what GetPipelineInfo
// reports; the schema fields are P4-program-specific and come from
// whatever static table description the pipeline was brought up with.
type TableInfo struct {
	Name         string
	Mode         packer.TableMode
	NumEntries   int
	NumMasks     int
	Endian       packer.Endian
	KeyBits      int
	ResponseBits int
	PriorityBits int
	ActionIDBits int
	Matches      []packer.MatchField
	Actions      []packer.Action
}

// CounterBlockInfo is one counter block's static inventory entry.
type CounterBlockInfo struct {
	Name        string
	NumCounters int
	Combo       bool
}

// Info is the cached per-pipeline inventory,
// returned verbatim by GetPipelineInfo.
type Info struct {
	ID            int
	Name          string
	Tables        []TableInfo
	CounterBlocks []CounterBlockInfo
}

// Pipeline binds one pipeline's façade, cached inventory, and the
// stats zones derived from it.
type Pipeline struct {
	Info   Info
	Facade *facade.Facade

	// tableSchema holds the full packer.Table for each table, keyed by
	// name, so rule-insert/delete RPCs can pack against it.
	tableSchema map[string]*packer.Table
}

// Init initializes the vendor driver for one pipeline, resets every
// table, and caches its inventory.
func Init(id int, name string, driver facade.VendorDriver, tables []TableInfo, blocks []CounterBlockInfo) (*Pipeline, error) {
	tableMeta := make(map[string]*packer.Table, len(tables))
	for _, ti := range tables {
		tableMeta[ti.Name] = &packer.Table{
			Name:         ti.Name,
			Mode:         ti.Mode,
			Endian:       ti.Endian,
			NumEntries:   ti.NumEntries,
			NumMasks:     ti.NumMasks,
			KeyBits:      ti.KeyBits,
			ResponseBits: ti.ResponseBits,
			PriorityBits: ti.PriorityBits,
			ActionIDBits: ti.ActionIDBits,
			Matches:      ti.Matches,
			Actions:      ti.Actions,
		}
	}
	specs := make([]facade.CounterBlockSpec, len(blocks))
	for i, b := range blocks {
		specs[i] = facade.CounterBlockSpec{Name: b.Name, NumCounters: b.NumCounters, Combo: b.Combo}
	}

	fc, err := facade.New(driver, tableMeta, specs)
	if err != nil {
		return nil, err
	}
	if err := fc.ResetAllTables(); err != nil {
		return nil, err
	}

	return &Pipeline{
		Info: Info{
			ID:            id,
			Name:          name,
			Tables:        tables,
			CounterBlocks: blocks,
		},
		Facade:      fc,
		tableSchema: tableMeta,
	}, nil
}

// TableByName returns the full packer schema for one of this
// pipeline's tables, used by the P4 RPC layer to pack rules.
func (p *Pipeline) TableByName(name string) (*packer.Table, bool) {
	t, ok := p.tableSchema[name]
	return t, ok
}

// counterBlockIO is the IO descriptor the counters zone's blocks
// close over; LatchMetrics pulls a full block read into it once per
// sampling period and ReadMetric serves each metric from that cache.
type counterBlockIO struct {
	fc          *facade.Facade
	blockName   string
	numCounters int
	combo       bool
	simple      []facade.SimpleCount
	comboVals   []facade.ComboCount
}

func latchCounterBlock(ioAny any, _ []byte) error {
	io := ioAny.(*counterBlockIO)
	if io.combo {
		vals, err := io.fc.BlockComboRead(io.blockName, 0, io.numCounters)
		if err != nil {
			return err
		}
		io.comboVals = vals
		return nil
	}
	vals, err := io.fc.BlockSimpleRead(io.blockName, 0, io.numCounters)
	if err != nil {
		return err
	}
	io.simple = vals
	return nil
}

func readCounterMetric(ioAny any, _ []byte, metric *stats.MetricSpec, values []uint64) error {
	io := ioAny.(*counterBlockIO)
	switch metric.Name {
	case "packets":
		if io.combo {
			for i, v := range io.comboVals {
				values[i] = v.Packets
			}
		} else {
			for i, v := range io.simple {
				values[i] = v.Packets
			}
		}
	case "bytes":
		for i, v := range io.comboVals {
			values[i] = v.Bytes
		}
	}
	return nil
}

// eccIO is the IO descriptor for one table-ecc block.
type eccIO struct {
	fc        *facade.Facade
	tableName string
	corrected uint32
	detected  uint32
}

func latchECC(ioAny any, _ []byte) error {
	io := ioAny.(*eccIO)
	c, d, err := io.fc.TableECC(io.tableName)
	if err != nil {
		return err
	}
	io.corrected, io.detected = c, d
	return nil
}

func readECCMetric(ioAny any, _ []byte, metric *stats.MetricSpec, values []uint64) error {
	io := ioAny.(*eccIO)
	switch metric.Name {
	case "corrected_single_bit_errors":
		values[0] = uint64(io.corrected)
	case "detected_double_bit_errors":
		values[0] = uint64(io.detected)
	}
	return nil
}

// StatsZones builds the counters and table-ecc ZoneSpecs
// registered for this pipeline.
func (p *Pipeline) StatsZones() []stats.ZoneSpec {
	var counterBlocks []stats.BlockSpec
	for _, b := range p.Info.CounterBlocks {
		io := &counterBlockIO{fc: p.Facade, blockName: b.Name, numCounters: b.NumCounters, combo: b.Combo}
		metrics := []stats.MetricSpec{
			{Name: "packets", Type: stats.MetricCounter, Flags: stats.FlagArray | stats.FlagClearOnRead,
				NElements: b.NumCounters, Labels: map[string]string{"pipeline": p.Info.Name}},
		}
		if b.Combo {
			metrics = append(metrics, stats.MetricSpec{
				Name: "bytes", Type: stats.MetricCounter, Flags: stats.FlagArray | stats.FlagClearOnRead,
				NElements: b.NumCounters, Labels: map[string]string{"pipeline": p.Info.Name},
			})
		}
		counterBlocks = append(counterBlocks, stats.BlockSpec{
			Name:         b.Name,
			Metrics:      metrics,
			IO:           io,
			LatchMetrics: latchCounterBlock,
			ReadMetric:   readCounterMetric,
		})
	}

	var eccBlocks []stats.BlockSpec
	for _, ti := range p.Info.Tables {
		modeName, ok := eccTableModes[ti.Mode]
		if !ok {
			continue
		}
		io := &eccIO{fc: p.Facade, tableName: ti.Name}
		labels := map[string]string{"pipeline": p.Info.Name, "mode": modeName}
		eccBlocks = append(eccBlocks, stats.BlockSpec{
			Name: ti.Name,
			Metrics: []stats.MetricSpec{
				{Name: "corrected_single_bit_errors", Type: stats.MetricCounter, Flags: stats.FlagClearOnRead, NElements: 1, Labels: labels},
				{Name: "detected_double_bit_errors", Type: stats.MetricCounter, Flags: stats.FlagClearOnRead, NElements: 1, Labels: labels},
			},
			IO:           io,
			LatchMetrics: latchECC,
			ReadMetric:   readECCMetric,
		})
	}

	names := p.StatsZoneNames()
	return []stats.ZoneSpec{
		{Name: names[0], Blocks: counterBlocks},
		{Name: names[1], Blocks: eccBlocks},
	}
}

// StatsZoneNames returns the two zone names StatsZones registers, in
// order: counters first, table-ecc second.
func (p *Pipeline) StatsZoneNames() []string {
	return []string{
		fmt.Sprintf("%s.counters", p.Info.Name),
		fmt.Sprintf("%s.table-ecc", p.Info.Name),
	}
}
