package dbus

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// decoder mirrors encoder: it walks a byte slice with an alignment-
// tracking cursor, the same shape as the teacher's decoder.go, but
// over the full type plan instead of a fixed field list.
type decoder struct {
	order binary.ByteOrder
	buf   []byte
	pos   int
	// strict, when true, rejects boolean words other than 0/1
	// instead of treating any non-zero word as true (spec.md Open
	// Question (i); see DESIGN.md).
	strict bool
}

func newDecoder(order binary.ByteOrder, buf []byte) *decoder {
	return &decoder{order: order, buf: buf}
}

func (d *decoder) align(n int) error {
	next, padding := nextOffset(d.pos, n)
	if d.pos+padding > len(d.buf) {
		return &ProtocolError{Reason: "truncated: padding runs past end of buffer"}
	}
	d.pos = next
	return nil
}

func (d *decoder) need(n int) ([]byte, error) {
	if d.pos+n > len(d.buf) {
		return nil, &ProtocolError{Reason: "truncated: value runs past end of buffer"}
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) getByte() (byte, error) {
	b, err := d.need(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) getUint16() (uint16, error) {
	if err := d.align(2); err != nil {
		return 0, err
	}
	b, err := d.need(2)
	if err != nil {
		return 0, err
	}
	return d.order.Uint16(b), nil
}

func (d *decoder) getUint32() (uint32, error) {
	if err := d.align(4); err != nil {
		return 0, err
	}
	b, err := d.need(4)
	if err != nil {
		return 0, err
	}
	return d.order.Uint32(b), nil
}

func (d *decoder) getUint64() (uint64, error) {
	if err := d.align(8); err != nil {
		return 0, err
	}
	b, err := d.need(8)
	if err != nil {
		return 0, err
	}
	return d.order.Uint64(b), nil
}

func (d *decoder) getString() (string, error) {
	n, err := d.getUint32()
	if err != nil {
		return "", err
	}
	b, err := d.need(int(n) + 1)
	if err != nil {
		return "", err
	}
	s := b[:n]
	if !utf8.Valid(s) {
		return "", &ProtocolError{Reason: "invalid UTF-8 in string"}
	}
	return string(s), nil
}

func (d *decoder) getSignature() (string, error) {
	n, err := d.getByte()
	if err != nil {
		return "", err
	}
	b, err := d.need(int(n) + 1)
	if err != nil {
		return "", err
	}
	return string(b[:n]), nil
}

// decodeValues is the top-level entry point: decode(byteorder,
// signature, bytes) from spec.md §4.2.
func decodeValues(order binary.ByteOrder, signature string, buf []byte) ([]interface{}, error) {
	plan, err := parseSignature(signature)
	if err != nil {
		return nil, err
	}
	d := newDecoder(order, buf)
	out := make([]interface{}, 0, len(plan))
	for i, n := range plan {
		v, err := d.decodeValue(n)
		if err != nil {
			return nil, fmt.Errorf("dbus: decoding value %d of signature %q: %w", i, signature, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (d *decoder) decodeValue(n *typeNode) (interface{}, error) {
	switch n.Code {
	case codeByte:
		return d.getByte()
	case codeBoolean:
		u, err := d.getUint32()
		if err != nil {
			return nil, err
		}
		if d.strict && u != 0 && u != 1 {
			return nil, &ProtocolError{Reason: fmt.Sprintf("invalid boolean word %d", u)}
		}
		return u != 0, nil
	case codeInt16:
		u, err := d.getUint16()
		return int16(u), err
	case codeUint16:
		return d.getUint16()
	case codeInt32:
		u, err := d.getUint32()
		return int32(u), err
	case codeUint32:
		return d.getUint32()
	case codeUnixFD:
		u, err := d.getUint32()
		return u, err
	case codeInt64:
		u, err := d.getUint64()
		return int64(u), err
	case codeUint64:
		return d.getUint64()
	case codeDouble:
		u, err := d.getUint64()
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(u), nil
	case codeString:
		return d.getString()
	case codeObjectPath:
		s, err := d.getString()
		return ObjectPath(s), err
	case codeSignature:
		s, err := d.getSignature()
		return Signature(s), err
	case codeArray:
		return d.decodeArray(n)
	case codeStructO:
		return d.decodeStruct(n)
	case codeVariant:
		return d.decodeVariant()
	default:
		return nil, &ProtocolError{Reason: fmt.Sprintf("unknown type code %q", n.Code)}
	}
}

// decodeArray reads the u32 byte length, then decodes elements until
// that many bytes (measured from the first element) have been
// consumed. When the element type is a dict entry, the result is an
// ordered *Dict instead of a slice, per spec.md §4.2.
func (d *decoder) decodeArray(n *typeNode) (interface{}, error) {
	length, err := d.getUint32()
	if err != nil {
		return nil, err
	}
	if err := d.align(alignment(n.Elem.Code)); err != nil {
		return nil, err
	}
	end := d.pos + int(length)
	if end > len(d.buf) {
		return nil, &ProtocolError{Reason: "truncated: array body runs past end of buffer"}
	}

	if n.Elem.Code == codeDictO {
		dict := NewDict()
		for d.pos < end {
			k, v, err := d.decodeDictEntry(n.Elem)
			if err != nil {
				return nil, err
			}
			dict.Set(k, v)
		}
		return dict, nil
	}

	var out []interface{}
	for d.pos < end {
		v, err := d.decodeValue(n.Elem)
		if err != nil {
			return nil, fmt.Errorf("array element: %w", err)
		}
		out = append(out, v)
	}
	if out == nil {
		out = []interface{}{}
	}
	return out, nil
}

func (d *decoder) decodeDictEntry(n *typeNode) (key, value interface{}, err error) {
	if err = d.align(8); err != nil {
		return
	}
	if key, err = d.decodeValue(n.Key); err != nil {
		return nil, nil, fmt.Errorf("dict key: %w", err)
	}
	if value, err = d.decodeValue(n.Value); err != nil {
		return nil, nil, fmt.Errorf("dict value: %w", err)
	}
	return
}

func (d *decoder) decodeStruct(n *typeNode) (Struct, error) {
	if err := d.align(8); err != nil {
		return nil, err
	}
	out := make(Struct, len(n.Fields))
	for i, f := range n.Fields {
		v, err := d.decodeValue(f)
		if err != nil {
			return nil, fmt.Errorf("struct field %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (d *decoder) decodeVariant() (Variant, error) {
	sig, err := d.getSignature()
	if err != nil {
		return Variant{}, err
	}
	inner, err := parseOneType(sig)
	if err != nil {
		return Variant{}, fmt.Errorf("variant signature %q: %w", sig, err)
	}
	v, err := d.decodeValue(inner)
	if err != nil {
		return Variant{}, err
	}
	return Variant{Signature: sig, Value: v}, nil
}
