package packer

import "math/big"

// PackedRule is the hardware-ready byte layout: key, mask
// and action_parameters sized exactly to the table's declared widths.
type PackedRule struct {
	Key              []byte
	Mask             []byte
	ActionParameters []byte
}

func ceilBytes(bits int) int { return (bits + 7) / 8 }

func allOnes(width int) *big.Int {
	one := big.NewInt(1)
	return new(big.Int).Sub(new(big.Int).Lsh(one, uint(width)), big.NewInt(1))
}

// fieldBits computes (keyBits, maskBits) for one match against its
// declared field.
func fieldBits(field MatchField, m Match) (*big.Int, *big.Int, error) {
	switch m.Kind {
	case MatchUnusedForm:
		if field.Type != FieldUnused {
			return nil, nil, ErrUnknownMatchType
		}
		return big.NewInt(0), big.NewInt(0), nil

	case MatchKeyOnly:
		// valid everywhere; a constant field admits only its declared
		// constant.
		if field.Type == FieldConstant && field.Constant != nil && m.Key.Cmp(field.Constant) != 0 {
			return nil, nil, ErrInvalidKeyFormat
		}
		return new(big.Int).Set(m.Key), allOnes(field.Width), nil

	case MatchKeyMask:
		if field.Type != FieldBitfield && field.Type != FieldTernary {
			return nil, nil, ErrUnknownMatchType
		}
		if m.Mask.Cmp(new(big.Int).Lsh(big.NewInt(1), uint(field.Width))) >= 0 {
			return nil, nil, ErrMaskNotContained
		}
		return new(big.Int).Set(m.Key), new(big.Int).Set(m.Mask), nil

	case MatchPrefixForm:
		if field.Type != FieldPrefix {
			return nil, nil, ErrUnknownMatchType
		}
		if m.Prefix > field.Width {
			return nil, nil, ErrInvalidPrefixLength
		}
		// mask = ((1<<width)-1) ^ ((1<<(width-prefix_len))-1): top
		// prefix_len bits set within the field's width bits.
		full := allOnes(field.Width)
		low := allOnes(field.Width - m.Prefix)
		mask := new(big.Int).Xor(full, low)
		// Bits below the prefix length are don't-care; canonicalize
		// them out of the stored key rather than carry through
		// whatever the caller happened to pass there.
		fKey := new(big.Int).And(m.Key, mask)
		return fKey, mask, nil

	case MatchRangeForm:
		if field.Type != FieldRange {
			return nil, nil, ErrUnknownMatchType
		}
		if m.Lower > m.Upper {
			return nil, nil, ErrRangeLowerTooBig
		}
		return big.NewInt(int64(m.Lower)), big.NewInt(int64(m.Upper)), nil

	default:
		return nil, nil, ErrUnknownMatchType
	}
}

// Pack converts a semantic Rule into the exact byte layout table
// demands, validating each step in order.
func Pack(table *Table, rule *Rule) (*PackedRule, error) {
	if len(rule.Matches) < table.NumMatches() {
		return nil, ErrTooFewMatches
	}
	if len(rule.Matches) > table.NumMatches() {
		return nil, ErrTooManyMatches
	}

	key := big.NewInt(0)
	mask := big.NewInt(0)
	totalBits := 0

	for i, field := range table.Matches {
		fKey, fMask, err := fieldBits(field, rule.Matches[i])
		if err != nil {
			return nil, err
		}
		key.Or(key, new(big.Int).Lsh(fKey, uint(totalBits)))
		mask.Or(mask, new(big.Int).Lsh(fMask, uint(totalBits)))
		totalBits += field.Width
	}
	if totalBits != table.KeyBits {
		return nil, ErrKeyTooBig
	}

	action, ok := table.ActionByName(rule.Action)
	if !ok {
		return nil, ErrInvalidActionName
	}
	if len(rule.Params) < len(action.Parameters) {
		return nil, ErrTooFewActionParams
	}
	if len(rule.Params) > len(action.Parameters) {
		return nil, ErrTooManyActionParams
	}

	params := big.NewInt(0)
	paramBits := 0
	for i, p := range action.Parameters {
		params.Or(params, new(big.Int).Lsh(rule.Params[i].Value, uint(paramBits)))
		paramBits += p.Width
	}
	if paramBits != action.ParamBits {
		return nil, ErrParamsTooBig
	}

	keyLen := ceilBytes(table.KeyBits)
	paramLen := ceilBytes(action.ParamBits)

	return &PackedRule{
		Key:              serialize(key, keyLen, table.Endian),
		Mask:             serialize(mask, keyLen, table.Endian),
		ActionParameters: serialize(params, paramLen, table.Endian),
	}, nil
}

// serialize lays v out into an n-byte buffer per the table's
// declared endianness.
func serialize(v *big.Int, n int, endian Endian) []byte {
	be := v.FillBytes(make([]byte, n)) // big-endian, zero-padded, exactly n bytes
	if endian == Big {
		return be
	}
	le := make([]byte, n)
	for i, b := range be {
		le[n-1-i] = b
	}
	return le
}
