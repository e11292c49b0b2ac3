// Package wire frames persisted state so readers can validate it before
// decoding and tell which revision and codec produced it.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const version byte = 1

var (
	ErrCorrupt = errors.New("revcache: corrupt state envelope")
	magic4     = [...]byte{'R', 'V', 'S', 'T'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Envelope is one decoded state record. Payload aliases the input buffer.
type Envelope struct {
	Revision uint64
	Codec    string
	Payload  []byte
}

// Encode: magic(4) | ver(1) | rev(u64 be) | clen(u8) | codec(clen) | vlen(u32 be) | payload(vlen)
func Encode(rev uint64, codec string, payload []byte) []byte {
	if l := len(codec); l == 0 || l > 0xFF {
		panic("revcache: invalid codec name length")
	}
	var buf bytes.Buffer
	buf.Grow(4 + 1 + 8 + 1 + len(codec) + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], rev)
	buf.Write(u8[:])

	buf.WriteByte(byte(len(codec)))
	buf.WriteString(codec)

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// Decode validates framing. Trailing bytes are corruption.
func Decode(b []byte) (Envelope, error) {
	const fixed = 4 + 1 + 8 + 1
	if len(b) < fixed || !hasMagic(b) || b[4] != version {
		return Envelope{}, ErrCorrupt
	}
	off := 5

	rev := binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	clen := int(b[off])
	off++
	if clen == 0 || clen > len(b)-off {
		return Envelope{}, ErrCorrupt
	}
	codec := string(b[off : off+clen])
	off += clen

	if off+4 > len(b) {
		return Envelope{}, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen != len(b)-off {
		return Envelope{}, ErrCorrupt
	}

	return Envelope{Revision: rev, Codec: codec, Payload: b[off:]}, nil
}
