package sff8636

import "encoding/binary"

// Upper-page decoders beyond page 00h. Each operates on a Page whose
// upper half was captured with the matching page selected; the caller
// is responsible for pairing the right decoder with the page it read:
// the module has no in-band page tag beyond byte 127.

// ThresholdSet is one monitored quantity's four alarm/warn levels,
// already converted to engineering units.
type ThresholdSet struct {
	HighAlarm float64
	LowAlarm  float64
	HighWarn  float64
	LowWarn   float64
}

// Thresholds is the page-03h threshold table: free-side temp/vcc plus
// the per-channel rx-power/tx-bias/tx-power levels shared by all four
// lanes.
type Thresholds struct {
	Temp    ThresholdSet // degrees Celsius
	Vcc     ThresholdSet // Volts
	RxPower ThresholdSet // milliwatts
	TxBias  ThresholdSet // milliamps
	TxPower ThresholdSet // milliwatts
}

// Page-03h threshold offsets within the upper half. Each set is four
// big-endian 16-bit words: high alarm, low alarm, high warn, low warn.
const (
	thrOffTemp    = 0  // bytes 128-135
	thrOffVcc     = 16 // bytes 144-151
	thrOffRxPower = 48 // bytes 176-183
	thrOffTxBias  = 56 // bytes 184-191
	thrOffTxPower = 64 // bytes 192-199
)

func thresholdSet(up []byte, off int, conv func(uint16) float64) ThresholdSet {
	return ThresholdSet{
		HighAlarm: conv(binary.BigEndian.Uint16(up[off:])),
		LowAlarm:  conv(binary.BigEndian.Uint16(up[off+2:])),
		HighWarn:  conv(binary.BigEndian.Uint16(up[off+4:])),
		LowWarn:   conv(binary.BigEndian.Uint16(up[off+6:])),
	}
}

func convTemp(v uint16) float64    { return float64(int16(v)) / 256.0 }
func convVcc(v uint16) float64     { return float64(v) * 0.0001 }
func convPowerMw(v uint16) float64 { return float64(v) * 0.0001 }
func convBiasMa(v uint16) float64  { return float64(v) * 0.002 }

// DecodeThresholds types a captured page 03h.
func DecodeThresholds(p *Page) Thresholds {
	up := p[128:256]
	return Thresholds{
		Temp:    thresholdSet(up, thrOffTemp, convTemp),
		Vcc:     thresholdSet(up, thrOffVcc, convVcc),
		RxPower: thresholdSet(up, thrOffRxPower, convPowerMw),
		TxBias:  thresholdSet(up, thrOffTxBias, convBiasMa),
		TxPower: thresholdSet(up, thrOffTxPower, convPowerMw),
	}
}

// DecodeCLEI extracts the 10-character Common Language Equipment
// Identifier from a captured page 02h.
func DecodeCLEI(p *Page) string {
	return asciiField(p[128 : 128+10])
}

// ASTEntry is one application select table entry from page 01h. The
// four bytes are kept raw: their meaning is application-code-specific
// and the control plane only ferries them to clients.
type ASTEntry struct {
	Raw [4]byte
}

// DecodeAST types a captured page 01h: a count byte followed by
// 4-byte entries. Counts that would run past the page are clamped.
func DecodeAST(p *Page) []ASTEntry {
	up := p[128:256]
	n := int(up[0])
	if n > (len(up)-1)/4 {
		n = (len(up) - 1) / 4
	}
	out := make([]ASTEntry, n)
	for i := range out {
		copy(out[i].Raw[:], up[1+4*i:1+4*i+4])
	}
	return out
}

// DecodeParameterTelemetry types a captured page 20h or 21h as its 64
// big-endian 16-bit parameter words.
func DecodeParameterTelemetry(p *Page) [64]uint16 {
	var out [64]uint16
	up := p[128:256]
	for i := range out {
		out[i] = binary.BigEndian.Uint16(up[2*i:])
	}
	return out
}
