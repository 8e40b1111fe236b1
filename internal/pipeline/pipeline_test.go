package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xilinx-labs/sn-ctl-core/internal/p4/facade"
	"github.com/xilinx-labs/sn-ctl-core/internal/p4/packer"
	"github.com/xilinx-labs/sn-ctl-core/internal/stats"
)

type stubTable struct {
	mode packer.TableMode
}

type stubCtx struct {
	simple []facade.SimpleCount
}

type stubDriver struct {
	tables map[string]*stubTable
	ctxs   map[string]*stubCtx
}

func newStubDriver() *stubDriver {
	return &stubDriver{tables: map[string]*stubTable{}, ctxs: map[string]*stubCtx{}}
}

func (d *stubDriver) TargetInit() error { return nil }
func (d *stubDriver) TargetExit() error { return nil }
func (d *stubDriver) TableByName(name string) (facade.TableHandle, error) {
	return d.tables[name], nil
}
func (d *stubDriver) TableByIndex(int) (facade.TableHandle, error) { return nil, nil }
func (d *stubDriver) TableCount() int                              { return len(d.tables) }
func (d *stubDriver) TableReset(facade.TableHandle) error          { return nil }
func (d *stubDriver) TableInsert(facade.TableHandle, []byte, []byte, int, uint32, []byte) error {
	return nil
}
func (d *stubDriver) TableUpdate(facade.TableHandle, []byte, []byte, uint32, []byte) error {
	return nil
}
func (d *stubDriver) TableDelete(facade.TableHandle, []byte, []byte) error { return nil }
func (d *stubDriver) TableMode(h facade.TableHandle) (packer.TableMode, error) {
	return h.(*stubTable).mode, nil
}
func (d *stubDriver) TableActionID(facade.TableHandle, string) (uint32, error) { return 0, nil }
func (d *stubDriver) TableECCCounters(facade.TableHandle) (uint32, uint32, error) {
	return 2, 0, nil
}
func (d *stubDriver) CounterInit(name string) (facade.CounterContext, error) {
	ctx := &stubCtx{simple: make([]facade.SimpleCount, 2)}
	ctx.simple[0] = facade.SimpleCount{Packets: 99}
	d.ctxs[name] = ctx
	return ctx, nil
}
func (d *stubDriver) CounterExit(facade.CounterContext) error  { return nil }
func (d *stubDriver) CounterReset(facade.CounterContext) error { return nil }
func (d *stubDriver) CounterSimpleRead(ctx facade.CounterContext, i int) (facade.SimpleCount, error) {
	return ctx.(*stubCtx).simple[i], nil
}
func (d *stubDriver) CounterSimpleWrite(ctx facade.CounterContext, i int, v facade.SimpleCount) error {
	ctx.(*stubCtx).simple[i] = v
	return nil
}
func (d *stubDriver) CounterComboRead(facade.CounterContext, int) (facade.ComboCount, error) {
	return facade.ComboCount{}, nil
}
func (d *stubDriver) CounterComboWrite(facade.CounterContext, int, facade.ComboCount) error {
	return nil
}
func (d *stubDriver) CounterCollectSimpleRead(ctx facade.CounterContext, start, count int) ([]facade.SimpleCount, error) {
	c := ctx.(*stubCtx)
	return append([]facade.SimpleCount(nil), c.simple[start:start+count]...), nil
}
func (d *stubDriver) CounterCollectComboRead(facade.CounterContext, int, int) ([]facade.ComboCount, error) {
	return nil, nil
}

func TestInitRegistersInventoryAndResetsTables(t *testing.T) {
	driver := newStubDriver()
	driver.tables["t0"] = &stubTable{mode: packer.ModeBCAM}

	p, err := Init(0, "pipeline0", driver,
		[]TableInfo{{Name: "t0", Mode: packer.ModeBCAM, NumEntries: 16}},
		[]CounterBlockInfo{{Name: "blk0", NumCounters: 2, Combo: false}})
	require.NoError(t, err)
	assert.Equal(t, "pipeline0", p.Info.Name)
	assert.Len(t, p.Info.Tables, 1)
}

func TestStatsZonesLatchCountersAndECC(t *testing.T) {
	driver := newStubDriver()
	driver.tables["t0"] = &stubTable{mode: packer.ModeBCAM}

	p, err := Init(0, "pipeline0", driver,
		[]TableInfo{{Name: "t0", Mode: packer.ModeBCAM, NumEntries: 16}},
		[]CounterBlockInfo{{Name: "blk0", NumCounters: 2, Combo: false}})
	require.NoError(t, err)

	tree := stats.Build([]stats.DomainSpec{{Name: "counters", Zones: p.StatsZones()}})
	require.NoError(t, tree.LatchDomain("counters"))

	var sawPackets, sawECC bool
	tree.ForEachMetric("counters", stats.Filter{}, func(v stats.MetricView) bool {
		switch v.Metric {
		case "packets":
			sawPackets = true
			assert.Equal(t, uint64(99), v.Values[0], "packets[0]")
		case "corrected_single_bit_errors":
			sawECC = true
			assert.Equal(t, uint64(2), v.Values[0], "corrected")
		}
		return true
	})
	assert.True(t, sawPackets, "missing packets metric")
	assert.True(t, sawECC, "missing corrected_single_bit_errors metric")
}

// TestTableByNameReturnsFullSchemaForPacking checks a pipeline keeps
// the full match/action schema around, not just the display inventory.
func TestTableByNameReturnsFullSchemaForPacking(t *testing.T) {
	driver := newStubDriver()
	driver.tables["t0"] = &stubTable{mode: packer.ModeBCAM}

	p, err := Init(0, "pipeline0", driver,
		[]TableInfo{{
			Name: "t0", Mode: packer.ModeBCAM, NumEntries: 16, KeyBits: 16,
			Matches: []packer.MatchField{{Type: packer.FieldTernary, Width: 16}},
			Actions: []packer.Action{{Name: "noop"}},
		}}, nil)
	require.NoError(t, err)
	schema, ok := p.TableByName("t0")
	require.True(t, ok, "TableByName(t0) not found")
	assert.EqualValues(t, 16, schema.KeyBits)
	assert.Len(t, schema.Matches, 1)
	assert.Len(t, schema.Actions, 1)

	_, ok = p.TableByName("missing")
	assert.False(t, ok, "TableByName(missing) unexpectedly found")
}

// TestDCAMTableHasNoECCZone checks the fixed ECC mode set:
// DCAM tables are deliberately excluded from the table-ecc zone.
func TestDCAMTableHasNoECCZone(t *testing.T) {
	driver := newStubDriver()
	driver.tables["t0"] = &stubTable{mode: packer.ModeDCAM}

	p, err := Init(0, "pipeline0", driver,
		[]TableInfo{{Name: "t0", Mode: packer.ModeDCAM, NumEntries: 16}}, nil)
	require.NoError(t, err)
	zones := p.StatsZones()
	for _, z := range zones {
		if z.Name == "pipeline0.table-ecc" {
			assert.Empty(t, z.Blocks, "table-ecc zone should have 0 blocks for a DCAM-only pipeline")
		}
	}
}
