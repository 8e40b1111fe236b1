package sff8636

import "encoding/binary"

// Lower-page byte offsets (fixed layout: status / interrupt
// flags / monitors / control / mask / properties / password /
// page-select).
const (
	offStatus       = 2
	offIntLOSFault  = 3 // bits 0-3 LOS rx1-4, bits 4-7 tx fault 1-4... packed per-lane
	offIntLOL       = 4
	offIntTempVcc   = 5
	offIntRxPower   = 6 // 2 bytes: hi-alarm/lo-alarm nibbles x4 lanes packed big
	offIntTxBias    = 8
	offIntTxPower   = 10
	offTempMonitor  = 22 // 2 bytes, signed, 1/256 C
	offVccMonitor   = 26 // 2 bytes, unsigned, 100 uV
	offRxPowerMon   = 34 // 4 x 2 bytes
	offTxBiasMon    = 42 // 4 x 2 bytes
	offTxPowerMon   = 50 // 4 x 2 bytes
	offTxDisable    = 86
	offRateSelect   = 87
	offRxAppSelect  = 89 // 4 bytes, reverse lane order (rx4 first)
	offPowerControl = 93
	offTxAppSelect  = 94 // 4 bytes, reverse lane order (tx4 first)
	offCDRControl   = 98
	offMaskLOSFault = 100
	offMaskLOL      = 101
	offMaskTempVcc  = 102
	offPageSelect   = 127
)

// Upper page 00 (identification) byte offsets, within Page[128:256]
// (absolute byte minus 128).
const (
	uOffIdentifier    = 0  // 128
	uOffExtIdentifier = 1  // 129: power class bits + CDR/CLEI presence
	uOffConnector     = 2  // 130
	uOffCompliance    = 3  // 131-138: 8 bytes of compliance code bitmaps
	uOffBaudRate      = 12 // 140
	uOffLinkLength    = 14 // 142-146: smf, om3, om2, om1, passive copper
	uOffDeviceTech    = 19 // 147
	uOffVendorName    = 20 // 148-163: 16 bytes ASCII
	uOffVendorOUI     = 37 // 165-167: 3 bytes
	uOffVendorPN      = 40 // 168-183: 16 bytes ASCII
	uOffVendorRev     = 56 // 184-185: 2 bytes ASCII
	uOffOptions       = 65 // 193-195: equalizer, cdr, device option bytes
	uOffVendorSN      = 68 // 196-211: 16 bytes ASCII
	uOffDateCode      = 84 // 212-219: 8 bytes ASCII
	uOffExtBaudRate   = 94 // 222
)

// Extended-identifier (byte 129) bit positions.
const (
	extIDPowerClassHiMask  = 0x03 // [1:0]
	extIDPowerClass8Bit    = 5    // [5]
	extIDPowerClassLoShift = 6    // [7:6]
)

func asciiField(b []byte) string {
	return trimNulASCII(trimTrailingSpaces(b))
}

func trimTrailingSpaces(b []byte) []byte {
	end := len(b)
	for end > 0 && (b[end-1] == ' ' || b[end-1] == 0) {
		end--
	}
	return b[:end]
}

func trimNulASCII(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return string(b[:end])
}

func bit(b byte, n uint) bool { return b&(1<<n) != 0 }

func decodeStatus(p *Page) StatusFlags {
	s := p[offStatus]
	return StatusFlags{
		DataNotReady: bit(s, 0),
		FlatMem:      bit(s, 2),
		IntL:         bit(s, 1),
	}
}

func decodeInterrupts(p *Page) InterruptFlags {
	var f InterruptFlags
	losFault := p[offIntLOSFault]
	for lane := 0; lane < 4; lane++ {
		f.LOSPerChannel[lane] = bit(losFault, uint(lane))
		f.FaultPerChannel[lane] = bit(losFault, uint(4+lane))
	}
	lol := p[offIntLOL]
	for lane := 0; lane < 4; lane++ {
		f.LOLPerChannel[lane] = bit(lol, uint(lane))
	}
	tv := p[offIntTempVcc]
	f.TempHighAlarm = bit(tv, 0)
	f.TempLowAlarm = bit(tv, 1)
	f.TempHighWarn = bit(tv, 2)
	f.TempLowWarn = bit(tv, 3)
	f.VccHighAlarm = bit(tv, 4)
	f.VccLowAlarm = bit(tv, 5)
	f.VccHighWarn = bit(tv, 6)
	f.VccLowWarn = bit(tv, 7)

	rx := p[offIntRxPower]
	rx2 := p[offIntRxPower+1]
	for lane := 0; lane < 4; lane++ {
		f.RxPowerHighAlarm[lane] = bit(rx, uint(lane))
		f.RxPowerLowAlarm[lane] = bit(rx, uint(4+lane))
		f.RxPowerHighWarn[lane] = bit(rx2, uint(lane))
		f.RxPowerLowWarn[lane] = bit(rx2, uint(4+lane))
	}
	txb := p[offIntTxBias]
	txb2 := p[offIntTxBias+1]
	for lane := 0; lane < 4; lane++ {
		f.TxBiasHighAlarm[lane] = bit(txb, uint(lane))
		f.TxBiasLowAlarm[lane] = bit(txb, uint(4+lane))
		f.TxBiasHighWarn[lane] = bit(txb2, uint(lane))
		f.TxBiasLowWarn[lane] = bit(txb2, uint(4+lane))
	}
	txp := p[offIntTxPower]
	txp2 := p[offIntTxPower+1]
	for lane := 0; lane < 4; lane++ {
		f.TxPowerHighAlarm[lane] = bit(txp, uint(lane))
		f.TxPowerLowAlarm[lane] = bit(txp, uint(4+lane))
		f.TxPowerHighWarn[lane] = bit(txp2, uint(lane))
		f.TxPowerLowWarn[lane] = bit(txp2, uint(4+lane))
	}
	return f
}

func decodeFreeSide(p *Page) FreeSideMonitors {
	tempRaw := int16(binary.BigEndian.Uint16(p[offTempMonitor:]))
	vccRaw := binary.BigEndian.Uint16(p[offVccMonitor:])
	return FreeSideMonitors{
		TempCelsius: float64(tempRaw) / 256.0,
		VccVolts:    float64(vccRaw) * 0.0001,
	}
}

func decodeChannels(p *Page) ChannelMonitors {
	var c ChannelMonitors
	for lane := 0; lane < 4; lane++ {
		rx := binary.BigEndian.Uint16(p[offRxPowerMon+2*lane:])
		bias := binary.BigEndian.Uint16(p[offTxBiasMon+2*lane:])
		tx := binary.BigEndian.Uint16(p[offTxPowerMon+2*lane:])
		c.RxPowerMilliwatts[lane] = float64(rx) * 0.0001
		c.TxBiasMilliamps[lane] = float64(bias) * 0.002
		c.TxPowerMilliwatts[lane] = float64(tx) * 0.0001
	}
	return c
}

func decodeControls(p *Page) Controls {
	var c Controls
	txDis := p[offTxDisable]
	rate := p[offRateSelect]
	cdr := p[offCDRControl]
	pwr := p[offPowerControl]
	for lane := 0; lane < 4; lane++ {
		c.TxDisable[lane] = bit(txDis, uint(lane))
		c.RateSelect[lane] = (rate >> uint(2*lane)) & 0x3
		// The rx/tx app-select tables run rx4..rx1 / tx4..tx1.
		c.RxAppSelect[lane] = p[offRxAppSelect+3-lane]
		c.TxAppSelect[lane] = p[offTxAppSelect+3-lane]
		c.CDREnableTx[lane] = bit(cdr, uint(lane))
		c.CDREnableRx[lane] = bit(cdr, uint(4+lane))
	}
	c.PowerClassOverride = bit(pwr, 2)
	c.HighPowerClassEnable = bit(pwr, 0) || bit(pwr, 1)
	return c
}

func decodeMasks(p *Page) Masks {
	var m Masks
	losFault := p[offMaskLOSFault]
	lol := p[offMaskLOL]
	tv := p[offMaskTempVcc]
	for lane := 0; lane < 4; lane++ {
		m.LOSMask[lane] = bit(losFault, uint(lane))
		m.FaultMask[lane] = bit(losFault, uint(4+lane))
		m.LOLMask[lane] = bit(lol, uint(lane))
	}
	m.TempMask = bit(tv, 0)
	m.VccMask = bit(tv, 1)
	return m
}

// powerClass computes the module power class from its two encoded
// fields: if power_class_8 then 8, else power_class_hi==0 ?
// power_class_lo+1 : power_class_hi+4.
func powerClass(powerClass8 bool, hi, lo uint8) int {
	if powerClass8 {
		return 8
	}
	if hi == 0 {
		return int(lo) + 1
	}
	return int(hi) + 4
}

// baudRateMBd computes the baud rate: baud_rate==0xFF
// uses the extended baud-rate byte x250, else baud_rate x100.
func baudRateMBd(baudRate, extended uint8) float64 {
	if baudRate == 0xFF {
		return float64(extended) * 250.0
	}
	return float64(baudRate) * 100.0
}

func decodeIdentification(p *Page) Identification {
	up := p[128:256]
	connector := up[uOffConnector]
	compliance := decodeComplianceCodes(up[uOffCompliance : uOffCompliance+8])

	// All three power-class fields share the extended-identifier byte:
	// hi in [1:0], power_class_8 in [5], lo in [7:6].
	extID := up[uOffExtIdentifier]
	powerClass8 := bit(extID, extIDPowerClass8Bit)
	hi := extID & extIDPowerClassHiMask
	lo := (extID >> extIDPowerClassLoShift) & 0x3

	return Identification{
		VendorName:    asciiField(up[uOffVendorName : uOffVendorName+16]),
		VendorPN:      asciiField(up[uOffVendorPN : uOffVendorPN+16]),
		VendorSN:      asciiField(up[uOffVendorSN : uOffVendorSN+16]),
		VendorRev:     asciiField(up[uOffVendorRev : uOffVendorRev+2]),
		VendorOUI:     [3]byte{up[uOffVendorOUI], up[uOffVendorOUI+1], up[uOffVendorOUI+2]},
		DateCode:      asciiField(up[uOffDateCode : uOffDateCode+8]),
		ConnectorType: connector,
		ComplianceCodes: compliance,
		CableLengths: CableLengths{
			SMFKm:       float64(up[uOffLinkLength]),
			OM3_2m:      int(up[uOffLinkLength+1]) * 2,
			OM2_1m:      int(up[uOffLinkLength+2]),
			OM1_1m:      int(up[uOffLinkLength+3]),
			CopperOrDAC: int(up[uOffLinkLength+4]),
		},
		DeviceTech: up[uOffDeviceTech],
		// equalizer, cdr, device option bytes, MSB-first.
		Options: uint32(up[uOffOptions])<<16 |
			uint32(up[uOffOptions+1])<<8 |
			uint32(up[uOffOptions+2]),
		PowerClass:  powerClass(powerClass8, hi, lo),
		BaudRateMBd: baudRateMBd(up[uOffBaudRate], up[uOffExtBaudRate]),
	}
}

func decodeComplianceCodes(b []byte) []string {
	names := [8]string{"40G_ACTIVE", "10G_40G", "SONET", "SAS_SATA", "GIGE", "FC", "100GE", "EXTENDED"}
	var out []string
	for i, n := range names {
		if i < len(b) && b[i] != 0 {
			out = append(out, n)
		}
	}
	return out
}

// Decode structurally parses a 256-byte module image into a Module.
// p[128:256] is interpreted as whichever UpperPageID the caller
// selected when it was captured (normally page 00, since that's
// where identification lives); other upper pages are exposed via
// their own Decode* functions rather than folded into Module.
func Decode(p *Page) *Module {
	return &Module{
		Status:     decodeStatus(p),
		Interrupts: decodeInterrupts(p),
		FreeSide:   decodeFreeSide(p),
		Channels:   decodeChannels(p),
		Controls:   decodeControls(p),
		Masks:      decodeMasks(p),
		Ident:      decodeIdentification(p),
	}
}
