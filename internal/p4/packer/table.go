// Package packer implements the P4 rule packer: parsing,
// validation, and bit-packing of a semantic Rule into the exact
// key/mask/parameter byte layout a VitisNetP4 table demands.
package packer

import "math/big"

// TableMode enumerates the hardware table implementations.
type TableMode int

const (
	ModeBCAM TableMode = iota
	ModeSTCAM
	ModeTCAM
	ModeDCAM
	ModeTinyBCAM
	ModeTinyTCAM
)

// Endian selects byte order for a table's key/mask/param serialization.
type Endian int

const (
	Little Endian = iota
	Big
)

// FieldType enumerates a match field's semantic kind.
type FieldType int

const (
	FieldBitfield FieldType = iota
	FieldConstant
	FieldPrefix
	FieldRange
	FieldTernary
	FieldUnused
)

// MatchField is one declared field of a table's key.
type MatchField struct {
	Width    int
	Type     FieldType
	Constant *big.Int // only meaningful when Type == FieldConstant
}

// Parameter is one named, fixed-width action parameter.
type Parameter struct {
	Name  string
	Width int
}

// Action is one declared action of a table.
type Action struct {
	Name       string
	ParamBits  int
	Parameters []Parameter
}

// Table is the static per-table metadata the packer packs against.
type Table struct {
	Name        string
	Mode        TableMode
	Endian      Endian
	NumEntries  int
	NumMasks    int // STCAM only
	KeyBits     int
	ResponseBits int
	PriorityBits int // 0 if no priority
	ActionIDBits int
	Matches     []MatchField
	Actions     []Action
}

// NumMatches is the count of declared match fields.
func (t *Table) NumMatches() int { return len(t.Matches) }

// ActionByName looks up a declared action by name.
func (t *Table) ActionByName(name string) (*Action, bool) {
	for i := range t.Actions {
		if t.Actions[i].Name == name {
			return &t.Actions[i], true
		}
	}
	return nil, false
}

// maskRejected reports whether this table mode rejects a non-null
// mask at submission time: BCAM, DCAM
// and TINY_BCAM modes never carry a per-entry mask even though the
// packer always produces one.
func (t *Table) maskRejected() bool {
	switch t.Mode {
	case ModeBCAM, ModeDCAM, ModeTinyBCAM:
		return true
	default:
		return false
	}
}
