// Package facade wraps the abstract VitisNetP4 vendor driver capability
// interface behind the table/counter operations a pipeline
// actually needs.
package facade

import "github.com/xilinx-labs/sn-ctl-core/internal/p4/packer"

// TableHandle is an opaque reference to one vendor-driver table
// instance, returned by VendorDriver.TableByName/TableByIndex.
type TableHandle interface{}

// CounterContext is an opaque reference to one vendor-driver counter
// block instance, returned by VendorDriver.CounterInit.
type CounterContext interface{}

// SimpleCount is a single-value (packets-only) counter reading.
type SimpleCount struct {
	Packets uint64
}

// ComboCount is a packets+bytes counter reading.
type ComboCount struct {
	Packets uint64
	Bytes   uint64
}

// VendorDriver is the abstract vendor-driver capability interface.
// A real implementation binds to the VitisNetP4 driver library; tests
// in this package use a fake.
type VendorDriver interface {
	TargetInit() error
	TargetExit() error

	TableByName(name string) (TableHandle, error)
	TableByIndex(index int) (TableHandle, error)
	TableCount() int

	TableReset(h TableHandle) error
	TableInsert(h TableHandle, key, mask []byte, priority int, actionID uint32, params []byte) error
	TableUpdate(h TableHandle, key, mask []byte, actionID uint32, params []byte) error
	TableDelete(h TableHandle, key, mask []byte) error
	TableMode(h TableHandle) (packer.TableMode, error)
	TableActionID(h TableHandle, name string) (uint32, error)
	TableECCCounters(h TableHandle) (corrected, detected uint32, err error)

	CounterInit(blockName string) (CounterContext, error)
	CounterExit(ctx CounterContext) error
	CounterReset(ctx CounterContext) error

	CounterSimpleRead(ctx CounterContext, index int) (SimpleCount, error)
	CounterSimpleWrite(ctx CounterContext, index int, v SimpleCount) error
	CounterComboRead(ctx CounterContext, index int) (ComboCount, error)
	CounterComboWrite(ctx CounterContext, index int, v ComboCount) error

	CounterCollectSimpleRead(ctx CounterContext, start, count int) ([]SimpleCount, error)
	CounterCollectComboRead(ctx CounterContext, start, count int) ([]ComboCount, error)
}
