package cms

import (
	"encoding/binary"
)

// ConfigMode enumerates the card-info config-mode TLV value.
type ConfigMode uint8

// CageType enumerates the pluggable cage types the card reports.
type CageType uint8

const (
	CageQSFP CageType = iota
	CageDSFP
	CageSFP
)

// CardInfo is the parsed result of a CARD_INFO_REQ response.
type CardInfo struct {
	Serial          string
	Revision        string
	Name            string
	ScVersion       string
	TotalPowerAvail uint32 // one of 75, 150, 225, 300
	FanPresent      bool
	ConfigMode      ConfigMode
	MacAddresses    []string // legacy scheme, up to 4, 18-byte ASCII each
	BlockMacCount   uint32
	BlockMacBase    [6]byte
	HasBlockMac     bool
	CageTypes       []CageType // up to 4
}

// TLV keys recognized in the CARD_INFO_REQ response body.
// Unknown keys are skipped; a zero-length TLV terminates
// parsing.
const (
	keySerial       uint8 = 0x21
	keyRevision     uint8 = 0x22
	keyName         uint8 = 0x27
	keyScVersion    uint8 = 0x28
	keyTotalPower   uint8 = 0x29
	keyFanPresent   uint8 = 0x2A
	keyConfigMode   uint8 = 0x2B
	keyMacAddr0     uint8 = 0x30
	keyMacAddr1     uint8 = 0x31
	keyMacAddr2     uint8 = 0x32
	keyMacAddr3     uint8 = 0x33
	keyBlockMac     uint8 = 0x34
	keyCageType0    uint8 = 0x40
	keyCageType1    uint8 = 0x41
	keyCageType2    uint8 = 0x42
	keyCageType3    uint8 = 0x43
)

func wordsToBytes(words []uint32) []byte {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	return buf
}

// totalPowerWatts maps the card-info total-power-available TLV index
// to its watt value: one of 75, 150, 225 or 300.
func totalPowerWatts(index byte) uint32 {
	watts := [...]uint32{75, 150, 225, 300}
	if int(index) < len(watts) {
		return watts[index]
	}
	return 0
}

func trimNulASCII(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return string(b[:end])
}

// ParseCardInfo iterates TLV triples (key:u8, length:u8, value[length])
// over a mailbox response body, stopping at the first length==0 TLV.
// Unknown keys are skipped; recognized keys populate the returned
// CardInfo; non-provided fields remain default-valued.
func ParseCardInfo(body []uint32) *CardInfo {
	buf := wordsToBytes(body)
	info := &CardInfo{}

	pos := 0
	for pos+2 <= len(buf) {
		key := buf[pos]
		length := int(buf[pos+1])
		pos += 2
		if length == 0 {
			break
		}
		if pos+length > len(buf) {
			break
		}
		value := buf[pos : pos+length]
		pos += length

		switch key {
		case keySerial:
			info.Serial = trimNulASCII(value)
		case keyRevision:
			info.Revision = trimNulASCII(value)
		case keyName:
			info.Name = trimNulASCII(value)
		case keyScVersion:
			info.ScVersion = trimNulASCII(value)
		case keyTotalPower:
			if length >= 1 {
				info.TotalPowerAvail = totalPowerWatts(value[0])
			}
		case keyFanPresent:
			if length >= 1 {
				info.FanPresent = value[0] != 0
			}
		case keyConfigMode:
			if length >= 1 {
				info.ConfigMode = ConfigMode(value[0])
			}
		case keyMacAddr0, keyMacAddr1, keyMacAddr2, keyMacAddr3:
			if len(info.MacAddresses) < 4 {
				info.MacAddresses = append(info.MacAddresses, trimNulASCII(value))
			}
		case keyBlockMac:
			if length >= 10 {
				info.HasBlockMac = true
				info.BlockMacCount = binary.LittleEndian.Uint32(value[0:4])
				copy(info.BlockMacBase[:], value[4:10])
			}
		case keyCageType0, keyCageType1, keyCageType2, keyCageType3:
			if length >= 1 && len(info.CageTypes) < 4 {
				info.CageTypes = append(info.CageTypes, CageType(value[0]))
			}
		default:
			// unknown key: skip.
		}
	}

	return info
}

// GetCardInfo issues CARD_INFO_REQ and parses the response.
func (c *Client) GetCardInfo(devID int32) (*CardInfo, error) {
	resp, err := c.Post(devID, Request{Opcode: OpCardInfoReq})
	if err != nil {
		return nil, err
	}
	return ParseCardInfo(resp), nil
}
