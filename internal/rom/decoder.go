package rom

import (
	"encoding/binary"
	"strconv"
)

// Properties is the structured result of decoding an NFT ROM blob. Fields a
// decoder cannot produce stay at their zero value.
type Properties struct {
	Name          string
	Description   string
	MintTimestamp uint32
	NftType       int
	HasLocked     bool
	Staker        string

	Royalties  string
	AttrType1  string
	AttrValue1 string
	AttrType2  string
	AttrValue2 string
	AttrType3  string
	AttrValue3 string
}

// Decoder turns a raw ROM byte blob into Properties.
type Decoder interface {
	Decode(raw []byte) Properties
}

const crownSymbol = "CROWN"

// unsupportedSymbols have ROM layouts that carry nothing the indexer reads;
// their metadata comes entirely from the node's property list.
var unsupportedSymbols = map[string]struct{}{
	"TTRS": {},
}

// ForSymbol selects the decoder variant for a token symbol.
func ForSymbol(symbol string) Decoder {
	if symbol == crownSymbol {
		return crownDecoder{}
	}
	if _, ok := unsupportedSymbols[symbol]; ok {
		return noopDecoder{}
	}
	return genericDecoder{}
}

// crownDecoder reads the fixed CROWN reward layout: the staker address
// followed by the reward timestamp.
type crownDecoder struct{}

func (crownDecoder) Decode(raw []byte) Properties {
	var p Properties
	r := NewReader(raw)
	if staker, err := r.ReadAddress(); err == nil {
		p.Staker = staker
	}
	if ts, err := r.ReadTimestamp(); err == nil {
		p.MintTimestamp = ts
	}
	return p
}

// noopDecoder is used for symbols whose ROM decoding is known unsupported.
type noopDecoder struct{}

func (noopDecoder) Decode([]byte) Properties {
	return Properties{}
}

// value type tags of the self-describing layout.
const (
	tagString    = 0
	tagNumber    = 1
	tagBytes     = 2
	tagTimestamp = 3
	tagBool      = 4
)

// genericDecoder reads the self-describing field map used by most symbols:
// a field count, then (name, tag, value) triples. Several historical field
// name aliases map onto the same semantic property. A malformed field stops
// the scan but keeps everything decoded so far; a broken ROM degrades to
// zero values instead of failing the NFT.
type genericDecoder struct{}

func (genericDecoder) Decode(raw []byte) Properties {
	var p Properties
	r := NewReader(raw)

	count, err := r.ReadVarInt()
	if err != nil {
		return p
	}
	for i := uint64(0); i < count; i++ {
		name, err := r.ReadString()
		if err != nil {
			return p
		}
		tag, err := r.ReadByte()
		if err != nil {
			return p
		}

		var (
			str string
			num uint64
			ts  uint32
			b   byte
		)
		switch tag {
		case tagString:
			if str, err = r.ReadString(); err != nil {
				return p
			}
		case tagNumber:
			if num, err = r.ReadVarInt(); err != nil {
				return p
			}
		case tagBytes:
			n, err := r.ReadVarInt()
			if err != nil {
				return p
			}
			raw, err := r.ReadBytes(int(n))
			if err != nil {
				return p
			}
			if len(raw) >= 4 {
				ts = binary.LittleEndian.Uint32(raw)
			}
			str = string(raw)
		case tagTimestamp:
			if ts, err = r.ReadTimestamp(); err != nil {
				return p
			}
		case tagBool:
			if b, err = r.ReadByte(); err != nil {
				return p
			}
		default:
			// Unknown tag: the value length is unrecoverable, keep what we have.
			return p
		}

		switch name {
		case "name", "nftName":
			p.Name = str
		case "description", "descr", "nftDescription":
			p.Description = str
		case "created", "date", "mintDate", "timestamp":
			if ts != 0 {
				p.MintTimestamp = ts
			} else if num != 0 {
				p.MintTimestamp = uint32(num)
			}
		case "type", "kind", "nftType":
			p.NftType = int(num)
		case "locked", "hasLocked", "has_locked":
			p.HasLocked = b != 0
		case "royalties", "royalty":
			if str != "" {
				p.Royalties = str
			} else if num != 0 {
				p.Royalties = strconv.FormatUint(num, 10)
			}
		case "attrType1", "attrT1":
			p.AttrType1 = str
		case "attrValue1", "attrV1":
			p.AttrValue1 = str
		case "attrType2", "attrT2":
			p.AttrType2 = str
		case "attrValue2", "attrV2":
			p.AttrValue2 = str
		case "attrType3", "attrT3":
			p.AttrType3 = str
		case "attrValue3", "attrV3":
			p.AttrValue3 = str
		}
	}
	return p
}
