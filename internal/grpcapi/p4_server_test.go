package grpcapi

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xilinx-labs/sn-ctl-core/internal/agent"
	"github.com/xilinx-labs/sn-ctl-core/internal/core"
	"github.com/xilinx-labs/sn-ctl-core/internal/grpcapi/snp4pb"
	"github.com/xilinx-labs/sn-ctl-core/internal/p4/facade"
	"github.com/xilinx-labs/sn-ctl-core/internal/p4/packer"
	"github.com/xilinx-labs/sn-ctl-core/internal/pipeline"
)

type stubTableHandle struct{ mode packer.TableMode }

type stubVendorDriver struct {
	tables map[string]*stubTableHandle
}

func newStubVendorDriver() *stubVendorDriver {
	return &stubVendorDriver{tables: map[string]*stubTableHandle{}}
}

func (d *stubVendorDriver) TargetInit() error { return nil }
func (d *stubVendorDriver) TargetExit() error { return nil }
func (d *stubVendorDriver) TableByName(name string) (facade.TableHandle, error) {
	return d.tables[name], nil
}
func (d *stubVendorDriver) TableByIndex(int) (facade.TableHandle, error) { return nil, nil }
func (d *stubVendorDriver) TableCount() int                             { return len(d.tables) }
func (d *stubVendorDriver) TableReset(facade.TableHandle) error         { return nil }
func (d *stubVendorDriver) TableInsert(facade.TableHandle, []byte, []byte, int, uint32, []byte) error {
	return nil
}
func (d *stubVendorDriver) TableUpdate(facade.TableHandle, []byte, []byte, uint32, []byte) error {
	return nil
}
func (d *stubVendorDriver) TableDelete(facade.TableHandle, []byte, []byte) error { return nil }
func (d *stubVendorDriver) TableMode(h facade.TableHandle) (packer.TableMode, error) {
	return h.(*stubTableHandle).mode, nil
}
func (d *stubVendorDriver) TableActionID(facade.TableHandle, string) (uint32, error) { return 0, nil }
func (d *stubVendorDriver) TableECCCounters(facade.TableHandle) (uint32, uint32, error) {
	return 0, 0, nil
}
func (d *stubVendorDriver) CounterInit(string) (facade.CounterContext, error) { return nil, nil }
func (d *stubVendorDriver) CounterExit(facade.CounterContext) error          { return nil }
func (d *stubVendorDriver) CounterReset(facade.CounterContext) error         { return nil }
func (d *stubVendorDriver) CounterSimpleRead(facade.CounterContext, int) (facade.SimpleCount, error) {
	return facade.SimpleCount{}, nil
}
func (d *stubVendorDriver) CounterSimpleWrite(facade.CounterContext, int, facade.SimpleCount) error {
	return nil
}
func (d *stubVendorDriver) CounterComboRead(facade.CounterContext, int) (facade.ComboCount, error) {
	return facade.ComboCount{}, nil
}
func (d *stubVendorDriver) CounterComboWrite(facade.CounterContext, int, facade.ComboCount) error {
	return nil
}
func (d *stubVendorDriver) CounterCollectSimpleRead(facade.CounterContext, int, int) ([]facade.SimpleCount, error) {
	return nil, nil
}
func (d *stubVendorDriver) CounterCollectComboRead(facade.CounterContext, int, int) ([]facade.ComboCount, error) {
	return nil, nil
}

// testP4ServerWithOneTable builds a P4Server around one device with a
// single pipeline exposing table "t_two": two matches, width 16 and 8,
// one action "a_one" taking a 24-bit parameter.
func testP4ServerWithOneTable() *P4Server {
	driver := newStubVendorDriver()
	driver.tables["t_two"] = &stubTableHandle{mode: packer.ModeBCAM}

	tableInfo := pipeline.TableInfo{
		Name: "t_two", Mode: packer.ModeBCAM, NumEntries: 16, KeyBits: 24,
		Matches: []packer.MatchField{
			{Type: packer.FieldTernary, Width: 16},
			{Type: packer.FieldTernary, Width: 8},
		},
		Actions: []packer.Action{{Name: "a_one", ParamBits: 24, Parameters: []packer.Parameter{{Name: "p0", Width: 24}}}},
	}
	p, err := pipeline.Init(0, "pipe0", driver, []pipeline.TableInfo{tableInfo}, nil)
	if err != nil {
		panic(err)
	}

	a := agent.New(slog.Default())
	a.AddDevice(&agent.Device{
		ID:        0,
		BusID:     "0000:01:00.0",
		Pipelines: map[int32]*pipeline.Pipeline{0: p},
	})

	tableMeta := func(devID, pipelineID int32, tableName string) (*packer.Table, bool) {
		dev, ok := a.Device(devID)
		if !ok {
			return nil, false
		}
		pl, ok := dev.Pipelines[pipelineID]
		if !ok {
			return nil, false
		}
		return pl.TableByName(tableName)
	}
	return NewP4Server(a, nil, tableMeta)
}

// TestGetPipelineInfoEnumeratesTablesAcceptedByPacker checks that
// GetPipelineInfo reports exactly the tables the packer/façade
// accept by name.
func TestGetPipelineInfoEnumeratesTablesAcceptedByPacker(t *testing.T) {
	s := testP4ServerWithOneTable()
	resp, err := s.GetPipelineInfo(context.Background(), &snp4pb.GetPipelineInfoRequest{DevID: 0, PipelineID: -1})
	require.NoError(t, err)
	require.Len(t, resp, 1)
	require.Len(t, resp[0].Tables, 1)
	assert.Equal(t, "t_two", resp[0].Tables[0].Name)
}

// TestInsertTableRuleRejectsMisCountedMatches checks that submitting
// a rule with the wrong number of matches for an enumerated table
// yields the too-few/too-many error code.
func TestInsertTableRuleRejectsMisCountedMatches(t *testing.T) {
	s := testP4ServerWithOneTable()

	tooFew := &snp4pb.InsertTableRuleRequest{
		DevID: 0, PipelineID: 0, TableName: "t_two",
		Matches: []snp4pb.MatchProto{{Text: "0x1234"}},
		Action:  "a_one",
		Params:  []snp4pb.ParamProto{{ValueHex: "deadbe"}},
	}
	resp, err := s.InsertTableRule(context.Background(), tooFew)
	require.NoError(t, err)
	require.Len(t, resp, 1)
	assert.Equal(t, core.ErrorTableRuleTooFewMatches, resp[0].ErrorCode)

	tooMany := &snp4pb.InsertTableRuleRequest{
		DevID: 0, PipelineID: 0, TableName: "t_two",
		Matches: []snp4pb.MatchProto{{Text: "0x1234"}, {Text: "0xab"}, {Text: "0x01"}},
		Action:  "a_one",
		Params:  []snp4pb.ParamProto{{ValueHex: "deadbe"}},
	}
	resp, err = s.InsertTableRule(context.Background(), tooMany)
	require.NoError(t, err)
	require.Len(t, resp, 1)
	assert.Equal(t, core.ErrorTableRuleTooManyMatches, resp[0].ErrorCode)
}

func TestP4InvalidSelectorsSurfaceOnResponses(t *testing.T) {
	s := testP4ServerWithOneTable()

	resp, err := s.GetPipelineInfo(context.Background(), &snp4pb.GetPipelineInfoRequest{DevID: 9, PipelineID: 0})
	require.NoError(t, err)
	require.Len(t, resp, 1)
	assert.Equal(t, core.ErrorInvalidDeviceId, resp[0].ErrorCode)

	resp, err = s.GetPipelineInfo(context.Background(), &snp4pb.GetPipelineInfoRequest{DevID: 0, PipelineID: 5})
	require.NoError(t, err)
	require.Len(t, resp, 1)
	assert.Equal(t, core.ErrorInvalidPipelineId, resp[0].ErrorCode)
	assert.EqualValues(t, 5, resp[0].PipelineID)
}

func TestP4ClearStatsSucceedsOnEmptyCounterSet(t *testing.T) {
	s := testP4ServerWithOneTable()
	resp, err := s.ClearStats(context.Background(), &snp4pb.ClearStatsRequest{DevID: 0, PipelineID: -1})
	require.NoError(t, err)
	require.Len(t, resp, 1)
	assert.Equal(t, core.ErrorOk, resp[0].ErrorCode)
}

func TestP4ServerStatusReportsUptime(t *testing.T) {
	s := testP4ServerWithOneTable()
	status, err := s.GetServerStatus(context.Background(), &snp4pb.ServerStatusRequest{})
	require.NoError(t, err)
	assert.Positive(t, status.StartTimeUnixNano)
	assert.GreaterOrEqual(t, status.UpTimeNanos, int64(0))
}

func TestP4ClearTableUnknownNameSurfaces(t *testing.T) {
	s := testP4ServerWithOneTable()
	resp, err := s.ClearTable(context.Background(), &snp4pb.ClearTableRequest{DevID: 0, PipelineID: 0, TableName: "no_such"})
	require.NoError(t, err)
	require.Len(t, resp, 1)
	assert.Equal(t, core.ErrorInvalidTableName, resp[0].ErrorCode)
}
