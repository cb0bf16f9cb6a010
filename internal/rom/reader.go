// Package rom decodes the binary VM objects attached to chain records: NFT
// read-only metadata blobs and serialized event payloads.
package rom

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/mr-tron/base58"
)

// ErrShortBuffer is returned when a read runs past the end of the blob.
var ErrShortBuffer = errors.New("rom: short buffer")

const addressLength = 34

// Reader walks a serialized VM object buffer. All multi-byte integers are
// little-endian; lengths use the compact var-int encoding.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps raw bytes.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Remaining reports how many bytes are left unread.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.pos
}

// ReadByte consumes one byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, ErrShortBuffer
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// ReadBytes consumes exactly n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, ErrShortBuffer
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

// ReadVarInt consumes a compact var-int: values below 0xFD are literal, 0xFD
// prefixes a uint16, 0xFE a uint32, 0xFF a uint64.
func (r *Reader) ReadVarInt() (uint64, error) {
	prefix, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	switch prefix {
	case 0xFD:
		b, err := r.ReadBytes(2)
		if err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint16(b)), nil
	case 0xFE:
		b, err := r.ReadBytes(4)
		if err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint32(b)), nil
	case 0xFF:
		b, err := r.ReadBytes(8)
		if err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint64(b), nil
	default:
		return uint64(prefix), nil
	}
}

// ReadString consumes a length-prefixed UTF-8 string.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadVarInt()
	if err != nil {
		return "", err
	}
	b, err := r.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadBigInt consumes a length-prefixed little-endian unsigned integer.
func (r *Reader) ReadBigInt() (*big.Int, error) {
	n, err := r.ReadVarInt()
	if err != nil {
		return nil, err
	}
	b, err := r.ReadBytes(int(n))
	if err != nil {
		return nil, err
	}
	be := make([]byte, len(b))
	for i, v := range b {
		be[len(b)-1-i] = v
	}
	return new(big.Int).SetBytes(be), nil
}

// ReadTimestamp consumes a uint32 unix timestamp.
func (r *Reader) ReadTimestamp() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadAddress consumes a 34-byte address and returns its base58 text form.
func (r *Reader) ReadAddress() (string, error) {
	b, err := r.ReadBytes(addressLength)
	if err != nil {
		return "", err
	}
	return base58.Encode(b), nil
}

// AppendVarInt writes the compact var-int encoding of v to dst. Kept next to
// the reader so tests and fixtures stay in sync with the read side.
func AppendVarInt(dst []byte, v uint64) []byte {
	switch {
	case v < 0xFD:
		return append(dst, byte(v))
	case v <= 0xFFFF:
		dst = append(dst, 0xFD)
		return binary.LittleEndian.AppendUint16(dst, uint16(v))
	case v <= 0xFFFFFFFF:
		dst = append(dst, 0xFE)
		return binary.LittleEndian.AppendUint32(dst, uint32(v))
	default:
		dst = append(dst, 0xFF)
		return binary.LittleEndian.AppendUint64(dst, v)
	}
}

// AppendString writes a length-prefixed string to dst.
func AppendString(dst []byte, s string) []byte {
	dst = AppendVarInt(dst, uint64(len(s)))
	return append(dst, s...)
}

// AppendBigInt writes a length-prefixed little-endian unsigned integer to dst.
func AppendBigInt(dst []byte, v *big.Int) []byte {
	if v == nil || v.Sign() < 0 {
		return AppendVarInt(dst, 0)
	}
	be := v.Bytes()
	le := make([]byte, len(be))
	for i, b := range be {
		le[len(be)-1-i] = b
	}
	dst = AppendVarInt(dst, uint64(len(le)))
	return append(dst, le...)
}

// AppendAddress writes the 34-byte address decoded from its base58 text form.
func AppendAddress(dst []byte, text string) ([]byte, error) {
	raw, err := base58.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("decode address %q: %w", text, err)
	}
	if len(raw) != addressLength {
		return nil, fmt.Errorf("address %q: got %d bytes, want %d", text, len(raw), addressLength)
	}
	return append(dst, raw...), nil
}
