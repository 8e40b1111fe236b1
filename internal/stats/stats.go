// Package stats implements the domain/zone/block/metric tree:
// static specs build an immutable-shaped tree, a periodic
// poller latches raw hardware state into it, and callers iterate the
// latched snapshot with a filter.
package stats

import (
	"sync"
	"time"
)

// MetricType classifies how a metric behaves over time.
type MetricType int

const (
	MetricCounter MetricType = iota
	MetricGauge
	MetricFlagKind
)

// MetricFlag is a bitmask of per-metric latch/clear semantics.
type MetricFlag uint32

const (
	FlagNone         MetricFlag = 0
	FlagArray        MetricFlag = 1 << iota
	FlagClearOnRead
	FlagNeverClear
)

// MetricSpec is the static description of one metric within a block.
type MetricSpec struct {
	Name       string
	Type       MetricType
	Flags      MetricFlag
	NElements  int // 1 for scalars, >1 implies FlagArray
	Labels     map[string]string
}

// BlockSpec is the static description of one block of metrics sharing
// an IO descriptor and latch behavior.
type BlockSpec struct {
	Name    string
	Metrics []MetricSpec

	// IO is the typed descriptor latch/read callbacks close over
	// (e.g. a counter-block handle or a register window). Opaque to
	// the stats core.
	IO any

	// LatchMetrics captures raw hardware state into a scratch buffer
	// of LatchDataSize bytes. Optional: a block with no hardware
	// state to batch-capture may leave this nil and do everything in
	// ReadMetric.
	LatchMetrics func(io any, scratch []byte) error

	// ReadMetric fills values (len == metric.NElements) with the raw
	// u64 values for one metric, given the block's latched scratch
	// buffer.
	ReadMetric func(io any, scratch []byte, metric *MetricSpec, values []uint64) error

	// ConvertMetric optionally produces an f64 companion for a raw
	// u64 value (e.g. temperature scaling). Nil means no conversion.
	ConvertMetric func(metric *MetricSpec, raw uint64) (float64, bool)

	// ReleaseMetrics optionally releases resources tied to the
	// scratch buffer (mirrors the vendor driver's counter contexts).
	ReleaseMetrics func(io any, scratch []byte) error

	LatchDataSize int
}

// ZoneSpec groups blocks that latch together.
type ZoneSpec struct {
	Name   string
	Blocks []BlockSpec
}

// DomainSpec groups zones sharing a sampling period. COUNTERS is the
// high-frequency domain.
type DomainSpec struct {
	Name  string
	Zones []ZoneSpec
}

// metricValue is the mutable, latched state behind one MetricSpec.
type metricValue struct {
	spec      MetricSpec
	raw       []uint64
	converted []float64
	haveConv  bool
	lastTS    time.Time
}

type block struct {
	spec    BlockSpec
	scratch []byte
	metrics []*metricValue
	mu      sync.Mutex
}

type zone struct {
	spec   ZoneSpec
	blocks []*block
}

type domain struct {
	spec  DomainSpec
	zones []*zone
}

// Tree is the built, immutable-shaped stats tree. Values mutate under
// latch/clear; the domain/zone/block/metric structure itself never
// changes after Build.
type Tree struct {
	domains map[string]*domain
	order   []string
}

// Build constructs a Tree from static specs, allocating one scratch
// buffer per block up front.
func Build(specs []DomainSpec) *Tree {
	t := &Tree{domains: make(map[string]*domain)}
	for _, ds := range specs {
		d := &domain{spec: ds}
		for _, zs := range ds.Zones {
			z := &zone{spec: zs}
			for i := range zs.Blocks {
				bs := zs.Blocks[i]
				b := &block{spec: bs}
				if bs.LatchDataSize > 0 {
					b.scratch = make([]byte, bs.LatchDataSize)
				}
				for j := range bs.Metrics {
					ms := bs.Metrics[j]
					n := ms.NElements
					if n < 1 {
						n = 1
					}
					b.metrics = append(b.metrics, &metricValue{
						spec:      ms,
						raw:       make([]uint64, n),
						converted: make([]float64, n),
					})
				}
				z.blocks = append(z.blocks, b)
			}
			d.zones = append(d.zones, z)
		}
		t.domains[ds.Name] = d
		t.order = append(t.order, ds.Name)
	}
	return t
}

// Domains returns the domain names in registration order.
func (t *Tree) Domains() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// LatchDomain runs latch_metrics/read_metric for every block in the
// named domain, the unit of work the domain's periodic poller
// performs once per sampling period.
func (t *Tree) LatchDomain(name string) error {
	d, ok := t.domains[name]
	if !ok {
		return nil
	}
	var firstErr error
	for _, z := range d.zones {
		for _, b := range z.blocks {
			if err := latchBlock(b); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func latchBlock(b *block) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.spec.LatchMetrics != nil {
		if err := b.spec.LatchMetrics(b.spec.IO, b.scratch); err != nil {
			return err
		}
	}
	now := time.Now()
	for _, mv := range b.metrics {
		if b.spec.ReadMetric == nil {
			continue
		}
		if err := b.spec.ReadMetric(b.spec.IO, b.scratch, &mv.spec, mv.raw); err != nil {
			return err
		}
		mv.haveConv = false
		if b.spec.ConvertMetric != nil {
			// ARRAY metrics convert element-wise; scalar metrics have one element.
			allConverted := true
			for i, raw := range mv.raw {
				c, ok := b.spec.ConvertMetric(&mv.spec, raw)
				if !ok {
					allConverted = false
					break
				}
				mv.converted[i] = c
			}
			mv.haveConv = allConverted
		}
		mv.lastTS = now
	}
	return nil
}

func clearMetricLocked(mv *metricValue) {
	for i := range mv.raw {
		mv.raw[i] = 0
		mv.converted[i] = 0
	}
}

// Clear zeroes every metric in the named zone that is not flagged
// NEVER_CLEAR, the explicit clear operation (as opposed to the
// implicit clear of a CLEAR_ON_READ metric when ForEachMetric's
// callback accepts a visit to it).
func (t *Tree) Clear(domainName, zoneName string) error {
	d, ok := t.domains[domainName]
	if !ok {
		return nil
	}
	for _, z := range d.zones {
		if zoneName != "" && z.spec.Name != zoneName {
			continue
		}
		for _, b := range z.blocks {
			b.mu.Lock()
			for _, mv := range b.metrics {
				if mv.spec.Flags&FlagNeverClear != 0 {
					continue
				}
				clearMetricLocked(mv)
			}
			b.mu.Unlock()
		}
	}
	return nil
}

// MetricView is one visited metric, yielded by ForEachMetric.
type MetricView struct {
	Domain     string
	Zone       string
	Block      string
	Metric     string
	Labels     map[string]string
	Values     []uint64
	Converted  []float64
	HaveConv   bool
	LastUpdate time.Time
}

// Filter narrows ForEachMetric's visitation. A zero-value Filter
// visits everything. Label matching is exact-value AND across all
// given keys.
type Filter struct {
	Zone   string
	Block  string
	Metric string
	Labels map[string]string
}

func (f Filter) matches(zoneName, blockName string, mv *metricValue) bool {
	if f.Zone != "" && f.Zone != zoneName {
		return false
	}
	if f.Block != "" && f.Block != blockName {
		return false
	}
	if f.Metric != "" && f.Metric != mv.spec.Name {
		return false
	}
	for k, v := range f.Labels {
		if mv.spec.Labels[k] != v {
			return false
		}
	}
	return true
}

// ForEachMetric visits every metric in domainName (all zones when
// filter excludes none), invoking cb for each. cb returning false
// rejects the visit without stopping iteration.
func (t *Tree) ForEachMetric(domainName string, filter Filter, cb func(MetricView) bool) {
	d, ok := t.domains[domainName]
	if !ok {
		return
	}
	for _, z := range d.zones {
		for _, b := range z.blocks {
			b.mu.Lock()
			for _, mv := range b.metrics {
				if !filter.matches(z.spec.Name, b.spec.Name, mv) {
					continue
				}
				view := MetricView{
					Domain:     d.spec.Name,
					Zone:       z.spec.Name,
					Block:      b.spec.Name,
					Metric:     mv.spec.Name,
					Labels:     mv.spec.Labels,
					Values:     append([]uint64(nil), mv.raw...),
					Converted:  append([]float64(nil), mv.converted...),
					HaveConv:   mv.haveConv,
					LastUpdate: mv.lastTS,
				}
				// A rejected visit does not consume a clear-on-read
				// snapshot.
				if cb(view) && mv.spec.Flags&FlagClearOnRead != 0 {
					clearMetricLocked(mv)
				}
			}
			b.mu.Unlock()
		}
	}
}
