package dbus

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
)

// encoder accumulates a byte-aligned D-Bus wire buffer. It mirrors
// the teacher's encoder (encoder.go in the retrieval pack): an offset
// counter plus Align/Byte/Uint32 primitives, generalized here to the
// full type alphabet via a recursive-descent type plan instead of a
// hardcoded field list.
type encoder struct {
	order binary.ByteOrder
	buf   []byte
}

func newEncoder(order binary.ByteOrder) *encoder {
	return &encoder{order: order}
}

func (e *encoder) offset() int { return len(e.buf) }

func (e *encoder) align(n int) {
	_, padding := nextOffset(e.offset(), n)
	e.buf = append(e.buf, padBytes(padding)...)
}

func (e *encoder) putByte(b byte) { e.buf = append(e.buf, b) }

func (e *encoder) putUint16(v uint16) {
	e.align(2)
	var b [2]byte
	e.order.PutUint16(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *encoder) putUint32(v uint32) {
	e.align(4)
	var b [4]byte
	e.order.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *encoder) putUint32At(off int, v uint32) {
	var b [4]byte
	e.order.PutUint32(b[:], v)
	copy(e.buf[off:off+4], b[:])
}

func (e *encoder) putUint64(v uint64) {
	e.align(8)
	var b [8]byte
	e.order.PutUint64(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *encoder) putString(s string) {
	e.putUint32(uint32(len(s)))
	e.buf = append(e.buf, s...)
	e.buf = append(e.buf, 0)
}

func (e *encoder) putSignature(s string) {
	if len(s) > 255 {
		return
	}
	e.putByte(byte(len(s)))
	e.buf = append(e.buf, s...)
	e.buf = append(e.buf, 0)
}

// encodeValues is the top-level entry point: encode(byteorder,
// signature, values...) from spec.md §4.1.
func encodeValues(order binary.ByteOrder, signature string, values ...interface{}) ([]byte, error) {
	plan, err := parseSignature(signature)
	if err != nil {
		return nil, err
	}
	if len(plan) != len(values) {
		return nil, &ProtocolError{Reason: fmt.Sprintf("signature %q wants %d values, got %d", signature, len(plan), len(values))}
	}
	e := newEncoder(order)
	for i, n := range plan {
		if err := e.encodeValue(n, values[i]); err != nil {
			return nil, fmt.Errorf("dbus: encoding value %d of signature %q: %w", i, signature, err)
		}
	}
	return e.buf, nil
}

func (e *encoder) encodeValue(n *typeNode, v interface{}) error {
	switch n.Code {
	case codeByte:
		b, err := asByte(v)
		if err != nil {
			return err
		}
		e.putByte(b)
	case codeBoolean:
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
		u := uint32(0)
		if b {
			u = 1
		}
		e.putUint32(u)
	case codeInt16:
		i, err := asInt64(v)
		if err != nil {
			return err
		}
		e.putUint16(uint16(int16(i)))
	case codeUint16:
		u, err := asUint64(v)
		if err != nil {
			return err
		}
		e.putUint16(uint16(u))
	case codeInt32:
		i, err := asInt64(v)
		if err != nil {
			return err
		}
		e.putUint32(uint32(int32(i)))
	case codeUint32, codeUnixFD:
		u, err := asUint64(v)
		if err != nil {
			return err
		}
		e.putUint32(uint32(u))
	case codeInt64:
		i, err := asInt64(v)
		if err != nil {
			return err
		}
		e.putUint64(uint64(i))
	case codeUint64:
		u, err := asUint64(v)
		if err != nil {
			return err
		}
		e.putUint64(u)
	case codeDouble:
		f, err := asFloat64(v)
		if err != nil {
			return err
		}
		e.putUint64(math.Float64bits(f))
	case codeString, codeObjectPath:
		s, err := asString(v)
		if err != nil {
			return err
		}
		e.putString(s)
	case codeSignature:
		s, err := asString(v)
		if err != nil {
			return err
		}
		e.putSignature(s)
	case codeArray:
		return e.encodeArray(n, v)
	case codeStructO:
		return e.encodeStruct(n, v)
	case codeVariant:
		return e.encodeVariant(v)
	default:
		return &ProtocolError{Reason: fmt.Sprintf("unknown type code %q", n.Code)}
	}
	return nil
}

// encodeArray writes the u32 length placeholder, the elements (each
// re-walking the same element type plan), then backfills the length.
// The array's length counts bytes from the start of the first element
// to the end of the last — padding before that first element is
// emitted for alignment but excluded from the count, per spec.md
// §4.1.
func (e *encoder) encodeArray(n *typeNode, v interface{}) error {
	e.align(4)
	lenOffset := e.offset()
	e.buf = append(e.buf, 0, 0, 0, 0)
	// Element alignment padding before the first element is written
	// but not counted in the array's own length.
	e.align(alignment(n.Elem.Code))
	start := e.offset()

	if n.Elem.Code == codeDictO {
		d, ok := v.(*Dict)
		if !ok {
			if dv, ok2 := v.(Dict); ok2 {
				d = &dv
			} else {
				return fmt.Errorf("expected *Dict for array-of-dict-entry, got %T", v)
			}
		}
		var encErr error
		d.Each(func(k, val interface{}) {
			if encErr != nil {
				return
			}
			encErr = e.encodeDictEntry(n.Elem, k, val)
		})
		if encErr != nil {
			return encErr
		}
	} else {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return fmt.Errorf("expected slice for array type, got %T", v)
		}
		for i := 0; i < rv.Len(); i++ {
			if err := e.encodeValue(n.Elem, rv.Index(i).Interface()); err != nil {
				return fmt.Errorf("array element %d: %w", i, err)
			}
		}
	}

	length := e.offset() - start
	e.putUint32At(lenOffset, uint32(length))
	return nil
}

func (e *encoder) encodeDictEntry(n *typeNode, key, value interface{}) error {
	e.align(8)
	if err := e.encodeValue(n.Key, key); err != nil {
		return fmt.Errorf("dict key: %w", err)
	}
	if err := e.encodeValue(n.Value, value); err != nil {
		return fmt.Errorf("dict value: %w", err)
	}
	return nil
}

func (e *encoder) encodeStruct(n *typeNode, v interface{}) error {
	e.align(8)
	fields, err := asFieldSlice(v)
	if err != nil {
		return err
	}
	if len(fields) != len(n.Fields) {
		return fmt.Errorf("struct %s wants %d fields, got %d", n.String(), len(n.Fields), len(fields))
	}
	for i, f := range n.Fields {
		if err := e.encodeValue(f, fields[i]); err != nil {
			return fmt.Errorf("struct field %d: %w", i, err)
		}
	}
	return nil
}

// encodeVariant writes the inner signature (as a 'g' value) then
// switches to that signature to encode the payload, per spec.md
// §4.1's Variants rule.
func (e *encoder) encodeVariant(v interface{}) error {
	sig, val, err := asVariant(v)
	if err != nil {
		return err
	}
	inner, err := parseOneType(sig)
	if err != nil {
		return fmt.Errorf("variant signature %q: %w", sig, err)
	}
	e.putSignature(sig)
	return e.encodeValue(inner, val)
}

func asVariant(v interface{}) (sig string, val interface{}, err error) {
	switch x := v.(type) {
	case Variant:
		return x.Signature, x.Value, nil
	case *Variant:
		return x.Signature, x.Value, nil
	case Struct:
		if len(x) != 2 {
			break
		}
		s, ok := x[0].(string)
		if !ok {
			break
		}
		return s, x[1], nil
	case []interface{}:
		if len(x) != 2 {
			break
		}
		s, ok := x[0].(string)
		if !ok {
			break
		}
		return s, x[1], nil
	}
	return "", nil, fmt.Errorf("expected Variant or (signature, value) tuple, got %T", v)
}

func asFieldSlice(v interface{}) ([]interface{}, error) {
	switch x := v.(type) {
	case Struct:
		return []interface{}(x), nil
	case []interface{}:
		return x, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected struct fields as a slice, got %T", v)
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func asByte(v interface{}) (byte, error) {
	switch x := v.(type) {
	case byte:
		return x, nil
	case int:
		return byte(x), nil
	}
	return 0, fmt.Errorf("expected byte, got %T", v)
}

func asInt64(v interface{}) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	}
	return 0, fmt.Errorf("expected signed integer, got %T", v)
}

func asUint64(v interface{}) (uint64, error) {
	switch x := v.(type) {
	case int:
		if x < 0 {
			return 0, fmt.Errorf("expected unsigned integer, got negative int %d", x)
		}
		return uint64(x), nil
	case uint:
		return uint64(x), nil
	case byte:
		return uint64(x), nil
	case uint16:
		return uint64(x), nil
	case uint32:
		return uint64(x), nil
	case uint64:
		return x, nil
	}
	return 0, fmt.Errorf("expected unsigned integer, got %T", v)
}

func asFloat64(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	}
	return 0, fmt.Errorf("expected float, got %T", v)
}

func asString(v interface{}) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case ObjectPath:
		return string(x), nil
	case Signature:
		return string(x), nil
	}
	return "", fmt.Errorf("expected string, got %T", v)
}
