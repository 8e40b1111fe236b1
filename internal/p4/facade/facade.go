package facade

import (
	"github.com/xilinx-labs/sn-ctl-core/internal/p4/packer"
)

// tableEntry pairs a table's static metadata (for the packer and for
// mode-dependent mask handling) with its vendor-driver handle.
type tableEntry struct {
	meta   *packer.Table
	handle TableHandle
}

// counterBlock pairs a declared counter block's size with its
// allocated vendor-driver context.
type counterBlock struct {
	numCounters int
	combo       bool // true if packets+bytes, false if packets-only
	ctx         CounterContext
}

// Facade wraps a VendorDriver behind the table/counter operations a
// pipeline needs.
type Facade struct {
	driver VendorDriver

	tables  map[string]*tableEntry
	blocks  map[string]*counterBlock
	tableByIdx []*tableEntry
}

// CounterBlockSpec declares one counter block to allocate a context
// for at Init time.
type CounterBlockSpec struct {
	Name        string
	NumCounters int
	Combo       bool
}

// New constructs a Facade around driver. Tables are expected to
// already be queryable by name/index on driver; counterBlocks lists
// the blocks to allocate contexts for.
func New(driver VendorDriver, tableMeta map[string]*packer.Table, counterBlocks []CounterBlockSpec) (*Facade, error) {
	f := &Facade{
		driver: driver,
		tables: make(map[string]*tableEntry, len(tableMeta)),
		blocks: make(map[string]*counterBlock, len(counterBlocks)),
	}

	if err := driver.TargetInit(); err != nil {
		return nil, err
	}

	for name, meta := range tableMeta {
		h, err := driver.TableByName(name)
		if err != nil {
			return nil, err
		}
		entry := &tableEntry{meta: meta, handle: h}
		f.tables[name] = entry
		f.tableByIdx = append(f.tableByIdx, entry)
	}

	for _, spec := range counterBlocks {
		ctx, err := driver.CounterInit(spec.Name)
		if err != nil {
			return nil, err
		}
		f.blocks[spec.Name] = &counterBlock{
			numCounters: spec.NumCounters,
			combo:       spec.Combo,
			ctx:         ctx,
		}
	}
	return f, nil
}

// Close releases every allocated counter context and tears down the
// vendor driver target.
func (f *Facade) Close() error {
	for _, b := range f.blocks {
		if err := f.driver.CounterExit(b.ctx); err != nil {
			return err
		}
	}
	return f.driver.TargetExit()
}

// ResetAllTables iterates every table the façade knows about and
// resets it.
func (f *Facade) ResetAllTables() error {
	for _, e := range f.tableByIdx {
		if err := f.driver.TableReset(e.handle); err != nil {
			return err
		}
	}
	return nil
}

// ResetTable resets a single named table's per-table clear.
func (f *Facade) ResetTable(name string) error {
	e, err := f.lookupTable(name)
	if err != nil {
		return err
	}
	return f.driver.TableReset(e.handle)
}

func (f *Facade) lookupTable(name string) (*tableEntry, error) {
	e, ok := f.tables[name]
	if !ok {
		return nil, errUnknownTable
	}
	return e, nil
}

// maskForMode returns mask unchanged, or nil when the table's mode
// never carries a per-entry mask (BCAM, DCAM and
// TINY_BCAM).
func maskForMode(mode packer.TableMode, mask []byte) []byte {
	switch mode {
	case packer.ModeBCAM, packer.ModeDCAM, packer.ModeTinyBCAM:
		return nil
	default:
		return mask
	}
}

// InsertKMA lowers a packed key/mask/action/params rule to the
// vendor driver's insert or update operation.
// replace=true selects update over insert.
func (f *Facade) InsertKMA(tableName string, key, mask []byte, actionName string, params []byte, priority int, replace bool) error {
	e, err := f.lookupTable(tableName)
	if err != nil {
		return err
	}
	mode, err := f.driver.TableMode(e.handle)
	if err != nil {
		return err
	}
	actionID, err := f.driver.TableActionID(e.handle, actionName)
	if err != nil {
		return errUnknownAction
	}
	effMask := maskForMode(mode, mask)
	if replace {
		return f.driver.TableUpdate(e.handle, key, effMask, actionID, params)
	}
	return f.driver.TableInsert(e.handle, key, effMask, priority, actionID, params)
}

// DeleteK deletes the entry matching key/mask from tableName.
func (f *Facade) DeleteK(tableName string, key, mask []byte) error {
	e, err := f.lookupTable(tableName)
	if err != nil {
		return err
	}
	mode, err := f.driver.TableMode(e.handle)
	if err != nil {
		return err
	}
	return f.driver.TableDelete(e.handle, key, maskForMode(mode, mask))
}

// TableECC returns (corrected_single_bit_errors, detected_double_bit_errors)
// for one table.
func (f *Facade) TableECC(tableName string) (corrected, detected uint32, err error) {
	e, lookupErr := f.lookupTable(tableName)
	if lookupErr != nil {
		return 0, 0, lookupErr
	}
	return f.driver.TableECCCounters(e.handle)
}

func (f *Facade) lookupBlock(name string) (*counterBlock, error) {
	b, ok := f.blocks[name]
	if !ok {
		return nil, errUnknownBlock
	}
	return b, nil
}

// SimpleRead/SimpleWrite/ComboRead/ComboWrite are the scalar counter
// forms.
func (f *Facade) SimpleRead(block string, index int) (SimpleCount, error) {
	b, err := f.lookupBlock(block)
	if err != nil {
		return SimpleCount{}, err
	}
	return f.driver.CounterSimpleRead(b.ctx, index)
}

func (f *Facade) SimpleWrite(block string, index int, v SimpleCount) error {
	b, err := f.lookupBlock(block)
	if err != nil {
		return err
	}
	return f.driver.CounterSimpleWrite(b.ctx, index, v)
}

func (f *Facade) ComboRead(block string, index int) (ComboCount, error) {
	b, err := f.lookupBlock(block)
	if err != nil {
		return ComboCount{}, err
	}
	return f.driver.CounterComboRead(b.ctx, index)
}

func (f *Facade) ComboWrite(block string, index int, v ComboCount) error {
	b, err := f.lookupBlock(block)
	if err != nil {
		return err
	}
	return f.driver.CounterComboWrite(b.ctx, index, v)
}

// BlockReset zeroes every counter in block.
func (f *Facade) BlockReset(block string) error {
	b, err := f.lookupBlock(block)
	if err != nil {
		return err
	}
	return f.driver.CounterReset(b.ctx)
}

// BlockSimpleRead reads count counters starting at start. If the
// caller's buffer (the returned slice's natural length) exceeds the
// block size, the tail is zero-padded rather
// than erroring.
func (f *Facade) BlockSimpleRead(block string, start, count int) ([]SimpleCount, error) {
	b, err := f.lookupBlock(block)
	if err != nil {
		return nil, err
	}
	avail := b.numCounters - start
	if avail < 0 {
		avail = 0
	}
	readCount := count
	if readCount > avail {
		readCount = avail
	}
	got, err := f.driver.CounterCollectSimpleRead(b.ctx, start, readCount)
	if err != nil {
		return nil, err
	}
	out := make([]SimpleCount, count)
	copy(out, got)
	return out, nil
}

// BlockComboRead is BlockSimpleRead's packets+bytes counterpart.
func (f *Facade) BlockComboRead(block string, start, count int) ([]ComboCount, error) {
	b, err := f.lookupBlock(block)
	if err != nil {
		return nil, err
	}
	avail := b.numCounters - start
	if avail < 0 {
		avail = 0
	}
	readCount := count
	if readCount > avail {
		readCount = avail
	}
	got, err := f.driver.CounterCollectComboRead(b.ctx, start, readCount)
	if err != nil {
		return nil, err
	}
	out := make([]ComboCount, count)
	copy(out, got)
	return out, nil
}
