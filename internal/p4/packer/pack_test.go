package packer

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func bigFromHex(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("bad hex literal: " + s)
	}
	return v
}

// TestPackBCAMTwoMatchesBigEndian packs a two-field BCAM rule and
// checks the exact byte layout: match order fills the key LSB-first,
// a key&&&mask match carries its mask through verbatim, and a
// key-only match produces an all-ones mask for its field.
func TestPackBCAMTwoMatchesBigEndian(t *testing.T) {
	table := &Table{
		Name:    "t_two",
		Mode:    ModeBCAM,
		Endian:  Big,
		KeyBits: 24,
		Actions: []Action{
			{Name: "a_one", ParamBits: 24, Parameters: []Parameter{{Name: "p", Width: 24}}},
		},
		Matches: []MatchField{
			{Width: 16, Type: FieldBitfield},
			{Width: 8, Type: FieldBitfield},
		},
	}
	rule := &Rule{
		TableName: "t_two",
		Action:    "a_one",
		Matches: []Match{
			{Kind: MatchKeyMask, Key: bigFromHex("1234"), Mask: bigFromHex("ff00")},
			{Kind: MatchKeyOnly, Key: bigFromHex("ab")},
		},
		Params: []ParamValue{{Value: bigFromHex("deadbe")}},
	}

	packed, err := Pack(table, rule)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xab, 0x12, 0x34}, packed.Key)
	assert.Equal(t, []byte{0xff, 0xff, 0x00}, packed.Mask)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe}, packed.ActionParameters)
}

// TestPackPrefixFormTruncatesDontCareBits exercises the prefix match
// form against a 31-bit field: only the top 16 bits are kept, the
// remaining 15 low bits read back as zero in both key and mask.
func TestPackPrefixFormTruncatesDontCareBits(t *testing.T) {
	table := &Table{
		Name:    "t_prefix",
		Mode:    ModeTCAM,
		Endian:  Big,
		KeyBits: 31,
		Actions: []Action{{Name: "noop", ParamBits: 0}},
		Matches: []MatchField{{Width: 31, Type: FieldPrefix}},
	}
	rule := &Rule{
		TableName: "t_prefix",
		Action:    "noop",
		Matches: []Match{
			{Kind: MatchPrefixForm, Key: bigFromHex("7fffffff"), Prefix: 16},
		},
	}

	packed, err := Pack(table, rule)
	require.NoError(t, err)
	want := []byte{0x7f, 0xff, 0x80, 0x00}
	assert.Equal(t, want, packed.Key)
	assert.Equal(t, want, packed.Mask)
}

func twoFieldTable(endian Endian) *Table {
	return &Table{
		Name:    "t_two",
		Mode:    ModeTCAM,
		Endian:  endian,
		KeyBits: 24,
		Actions: []Action{{Name: "noop", ParamBits: 0}},
		Matches: []MatchField{
			{Width: 16, Type: FieldBitfield},
			{Width: 8, Type: FieldBitfield},
		},
	}
}

// TestKeyAndMaskAlwaysEqualLength checks that the key and mask
// buffers are always the same length, regardless of table mode.
func TestKeyAndMaskAlwaysEqualLength(t *testing.T) {
	table := twoFieldTable(Little)
	rule := &Rule{
		Action: "noop",
		Matches: []Match{
			{Kind: MatchKeyOnly, Key: big.NewInt(1)},
			{Kind: MatchKeyOnly, Key: big.NewInt(2)},
		},
	}
	packed, err := Pack(table, rule)
	require.NoError(t, err)
	assert.Len(t, packed.Mask, len(packed.Key))
}

// TestPackIsDeterministic checks that packing the same rule twice
// produces byte-identical output.
func TestPackIsDeterministic(t *testing.T) {
	table := twoFieldTable(Big)
	rule := &Rule{
		Action: "noop",
		Matches: []Match{
			{Kind: MatchKeyMask, Key: bigFromHex("1200"), Mask: bigFromHex("ff00")},
			{Kind: MatchKeyOnly, Key: bigFromHex("ab")},
		},
	}
	a, err := Pack(table, rule)
	require.NoError(t, err)
	b, err := Pack(table, rule)
	require.NoError(t, err)
	assert.Equal(t, a.Key, b.Key)
	assert.Equal(t, a.Mask, b.Mask)
}

// TestKeyOnlyProducesAllOnesMask checks that a key-only match
// always yields an all-ones mask over its field width.
func TestKeyOnlyProducesAllOnesMask(t *testing.T) {
	table := &Table{
		KeyBits: 8,
		Actions: []Action{{Name: "noop", ParamBits: 0}},
		Matches: []MatchField{{Width: 8, Type: FieldBitfield}},
		Endian:  Big,
	}
	rule := &Rule{Action: "noop", Matches: []Match{{Kind: MatchKeyOnly, Key: big.NewInt(0x5a)}}}
	packed, err := Pack(table, rule)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff}, packed.Mask)
}

// TestKeyMaskPreservesSuppliedMask checks that a
// key_mask match reproduces exactly the supplied mask.
func TestKeyMaskPreservesSuppliedMask(t *testing.T) {
	table := &Table{
		KeyBits: 8,
		Endian:  Big,
		Actions: []Action{{Name: "noop", ParamBits: 0}},
		Matches: []MatchField{{Width: 8, Type: FieldBitfield}},
	}
	rule := &Rule{
		Action:  "noop",
		Matches: []Match{{Kind: MatchKeyMask, Key: bigFromHex("12"), Mask: bigFromHex("0f")}},
	}
	packed, err := Pack(table, rule)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0f}, packed.Mask)
}

// TestPrefixMaskTopBitsPlacement checks that a prefix match's mask
// has its top prefix_len bits set and the remaining low bits clear,
// within the field's declared width.
func TestPrefixMaskTopBitsPlacement(t *testing.T) {
	table := &Table{
		KeyBits: 10,
		Endian:  Big,
		Actions: []Action{{Name: "noop", ParamBits: 0}},
		Matches: []MatchField{{Width: 10, Type: FieldPrefix}},
	}
	rule := &Rule{
		Action:  "noop",
		Matches: []Match{{Kind: MatchPrefixForm, Key: bigFromHex("3ff"), Prefix: 4}},
	}
	packed, err := Pack(table, rule)
	require.NoError(t, err)
	mask := new(big.Int).SetBytes(packed.Mask)
	want := bigFromHex("3c0") // top 4 of 10 bits: 1111000000
	assert.Equal(t, 0, mask.Cmp(want), "mask = %x, want %x", mask, want)
}

// TestRangeFormRejectsLowerAboveUpper checks that a range match
// with lower > upper is rejected rather than silently reordered.
func TestRangeFormRejectsLowerAboveUpper(t *testing.T) {
	table := &Table{
		KeyBits: 16,
		Endian:  Big,
		Actions: []Action{{Name: "noop", ParamBits: 0}},
		Matches: []MatchField{{Width: 16, Type: FieldRange}},
	}
	rule := &Rule{
		Action:  "noop",
		Matches: []Match{{Kind: MatchRangeForm, Lower: 200, Upper: 100}},
	}
	_, err := Pack(table, rule)
	assert.ErrorIs(t, err, ErrRangeLowerTooBig)
}

// TestPackRoundTripsArbitraryKeyOnlyValues is a property test: for
// any 8-bit key-only value, packing then reading the key bytes back
// as a big-endian integer recovers the original value.
func TestPackRoundTripsArbitraryKeyOnlyValues(t *testing.T) {
	table := &Table{
		KeyBits: 8,
		Endian:  Big,
		Actions: []Action{{Name: "noop", ParamBits: 0}},
		Matches: []MatchField{{Width: 8, Type: FieldBitfield}},
	}
	rapid.Check(t, func(rt *rapid.T) {
		v := rapid.IntRange(0, 255).Draw(rt, "key")
		rule := &Rule{
			Action:  "noop",
			Matches: []Match{{Kind: MatchKeyOnly, Key: big.NewInt(int64(v))}},
		}
		packed, err := Pack(table, rule)
		if err != nil {
			rt.Fatalf("Pack: %v", err)
		}
		got := new(big.Int).SetBytes(packed.Key).Int64()
		if got != int64(v) {
			rt.Fatalf("round trip = %d, want %d", got, v)
		}
	})
}
