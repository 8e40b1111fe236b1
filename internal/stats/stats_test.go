package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterBlockSpec(name string, n int) BlockSpec {
	state := make([]uint64, n)
	for i := range state {
		state[i] = uint64(i + 1)
	}
	return BlockSpec{
		Name: name,
		Metrics: []MetricSpec{
			{Name: "pkts", Type: MetricCounter, Flags: FlagArray | FlagClearOnRead, NElements: n},
		},
		LatchDataSize: 0,
		ReadMetric: func(io any, scratch []byte, m *MetricSpec, values []uint64) error {
			copy(values, state)
			return nil
		},
	}
}

func TestBuildAndLatchClearOnRead(t *testing.T) {
	tree := Build([]DomainSpec{
		{Name: "COUNTERS", Zones: []ZoneSpec{
			{Name: "counters", Blocks: []BlockSpec{counterBlockSpec("block0", 3)}},
		}},
	})

	require.NoError(t, tree.LatchDomain("COUNTERS"))

	var seen MetricView
	tree.ForEachMetric("COUNTERS", Filter{}, func(v MetricView) bool {
		seen = v
		return true
	})
	require.Len(t, seen.Values, 3)
	assert.Equal(t, uint64(1), seen.Values[0])
	assert.Equal(t, uint64(3), seen.Values[2])

	// CLEAR_ON_READ: the next latch's read_metric recomputes from the
	// same fake hardware state (1,2,3), but after being latched once
	// the *cleared* copy is what ForEachMetric should show until the
	// next latch repopulates it from the backing callback.
	tree.ForEachMetric("COUNTERS", Filter{}, func(v MetricView) bool { return true })

	// A fresh latch against unmodified backing state reads the same
	// values again; clear-on-read only zeroes the snapshot between
	// latches, not the source of truth in this test's fake hardware.
	require.NoError(t, tree.LatchDomain("COUNTERS"), "second LatchDomain")
	tree.ForEachMetric("COUNTERS", Filter{}, func(v MetricView) bool {
		seen = v
		return true
	})
	assert.Equal(t, uint64(1), seen.Values[0], "expected re-latch to repopulate from hardware")
}

func TestFilterByBlock(t *testing.T) {
	tree := Build([]DomainSpec{
		{Name: "COUNTERS", Zones: []ZoneSpec{
			{Name: "counters", Blocks: []BlockSpec{
				counterBlockSpec("block0", 1),
				counterBlockSpec("block1", 1),
			}},
		}},
	})
	_ = tree.LatchDomain("COUNTERS")

	count := 0
	tree.ForEachMetric("COUNTERS", Filter{Block: "block1"}, func(v MetricView) bool {
		count++
		assert.Equal(t, "block1", v.Block)
		return true
	})
	assert.Equal(t, 1, count)
}

func TestNeverClearSurvivesClear(t *testing.T) {
	tree := Build([]DomainSpec{
		{Name: "D", Zones: []ZoneSpec{
			{Name: "z", Blocks: []BlockSpec{{
				Name: "b",
				Metrics: []MetricSpec{
					{Name: "total", Type: MetricCounter, Flags: FlagNeverClear, NElements: 1},
				},
				ReadMetric: func(io any, scratch []byte, m *MetricSpec, values []uint64) error {
					values[0] = 42
					return nil
				},
			}}},
		}},
	})
	_ = tree.LatchDomain("D")
	_ = tree.Clear("D", "")
	var got uint64
	tree.ForEachMetric("D", Filter{}, func(v MetricView) bool {
		got = v.Values[0]
		return true
	})
	assert.Equal(t, uint64(42), got, "NEVER_CLEAR metric was cleared")
}

func TestPollerLatchesOnStartAndStops(t *testing.T) {
	tree := Build([]DomainSpec{
		{Name: "COUNTERS", Zones: []ZoneSpec{
			{Name: "counters", Blocks: []BlockSpec{counterBlockSpec("block0", 1)}},
		}},
	})
	p := NewPoller(tree, "COUNTERS", time.Hour, nil)
	p.Start()
	p.Stop()

	var got uint64
	tree.ForEachMetric("COUNTERS", Filter{}, func(v MetricView) bool {
		got = v.Values[0]
		return true
	})
	assert.Equal(t, uint64(1), got, "Start should latch once before the first tick")

	p.Stop() // second Stop is a no-op
}
