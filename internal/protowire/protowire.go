// Package protowire implements the small slice of the protobuf wire format
// (varints and length-delimited fields) needed to hand-encode messages that
// have no compiled descriptor in this module: CosmWasm's MsgExecuteContract
// and Query/SmartContractState, mirrored locally rather than pulled in via
// github.com/CosmWasm/wasmd (see DESIGN.md).
package protowire

import "fmt"

// WireTypeLengthDelimited is the wire type shared by every field used here:
// string, bytes, and embedded message.
const WireTypeLengthDelimited = 2

// AppendString appends a length-delimited string field.
func AppendString(dst []byte, fieldNum int, s string) []byte {
	return AppendBytes(dst, fieldNum, []byte(s))
}

// AppendBytes appends a length-delimited bytes/embedded-message field.
func AppendBytes(dst []byte, fieldNum int, b []byte) []byte {
	dst = AppendVarint(dst, uint64(fieldNum)<<3|WireTypeLengthDelimited)
	dst = AppendVarint(dst, uint64(len(b)))
	return append(dst, b...)
}

// AppendVarint appends v as a base-128 varint.
func AppendVarint(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// DecodeVarint reads a varint from the front of data, returning its value
// and the number of bytes consumed.
func DecodeVarint(data []byte) (uint64, int, error) {
	var v uint64
	for i, b := range data {
		v |= uint64(b&0x7f) << (7 * i)
		if b < 0x80 {
			return v, i + 1, nil
		}
		if i >= 9 {
			return 0, 0, fmt.Errorf("varint too long")
		}
	}
	return 0, 0, fmt.Errorf("truncated varint")
}

// DecodeTag reads a (field number, wire type) tag from the front of data.
func DecodeTag(data []byte) (fieldNum int, wireType int, n int, err error) {
	v, n, err := DecodeVarint(data)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("decode tag: %w", err)
	}
	return int(v >> 3), int(v & 7), n, nil
}

// DecodeLengthDelimited reads a length-delimited field's payload from the
// front of data, returning the payload and the number of bytes consumed
// (length prefix included).
func DecodeLengthDelimited(data []byte) ([]byte, int, error) {
	length, n, err := DecodeVarint(data)
	if err != nil {
		return nil, 0, fmt.Errorf("decode length: %w", err)
	}
	end := n + int(length)
	if end > len(data) {
		return nil, 0, fmt.Errorf("length-delimited field exceeds buffer")
	}
	return data[n:end], end, nil
}
