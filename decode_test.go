package dbus

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRoundTrip(t *testing.T) {
	tt := []struct {
		sig    string
		values []interface{}
	}{
		{"y", []interface{}{byte(42)}},
		{"b", []interface{}{true}},
		{"n", []interface{}{int16(-5)}},
		{"q", []interface{}{uint16(5)}},
		{"i", []interface{}{int32(-100)}},
		{"u", []interface{}{uint32(100)}},
		{"x", []interface{}{int64(-1000)}},
		{"t", []interface{}{uint64(1000)}},
		{"d", []interface{}{3.25}},
		{"s", []interface{}{"hello"}},
		{"o", []interface{}{ObjectPath("/org/freedesktop/DBus")}},
		{"g", []interface{}{Signature("a{sv}")}},
		{"su", []interface{}{"hello", uint32(7)}},
		{"as", []interface{}{[]interface{}{"a", "b", "c"}}},
		{"(iu)", []interface{}{Struct{int32(-1), uint32(2)}}},
	}

	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		for _, tc := range tt {
			buf, err := encodeValues(order, tc.sig, tc.values...)
			if err != nil {
				t.Errorf("encodeValues(%q): %v", tc.sig, err)
				continue
			}
			got, err := decodeValues(order, tc.sig, buf)
			if err != nil {
				t.Errorf("decodeValues(%q): %v", tc.sig, err)
				continue
			}
			if diff := cmp.Diff(tc.values, got); diff != "" {
				t.Errorf("round trip %q mismatch (-want +got):\n%s", tc.sig, diff)
			}
		}
	}
}

func TestDecodeEmptyArray(t *testing.T) {
	got, err := decodeValues(binary.LittleEndian, "as", []byte{0x00, 0x00, 0x00, 0x00})
	if err != nil {
		t.Fatal(err)
	}
	want := []interface{}{[]interface{}{}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeVariant(t *testing.T) {
	buf := []byte{0x01, 'u', 0x00, 0x00, 0x2A, 0x00, 0x00, 0x00}
	got, err := decodeValues(binary.LittleEndian, "v", buf)
	if err != nil {
		t.Fatal(err)
	}
	v, ok := got[0].(Variant)
	if !ok {
		t.Fatalf("got %T, want Variant", got[0])
	}
	if v.Signature != "u" || v.Value != uint32(42) {
		t.Errorf("got %+v, want signature=u value=42", v)
	}
}

func TestDecodeBooleanLax(t *testing.T) {
	d := newDecoder(binary.LittleEndian, []byte{0x05, 0x00, 0x00, 0x00})
	v, err := d.decodeValue(&typeNode{Code: codeBoolean})
	if err != nil {
		t.Fatal(err)
	}
	if v != true {
		t.Errorf("got %v, want true for non-zero, non-one boolean word", v)
	}
}

func TestDecodeBooleanStrictRejectsInvalid(t *testing.T) {
	d := newDecoder(binary.LittleEndian, []byte{0x05, 0x00, 0x00, 0x00})
	d.strict = true
	if _, err := d.decodeValue(&typeNode{Code: codeBoolean}); err == nil {
		t.Error("expected an error for a non-0/1 boolean word in strict mode")
	}
}

func TestDecodeTruncated(t *testing.T) {
	if _, err := decodeValues(binary.LittleEndian, "u", []byte{0x01, 0x02}); err == nil {
		t.Error("expected an error decoding a truncated uint32, got nil")
	}
}

func BenchmarkDecodeSU(b *testing.B) {
	buf, err := encodeValues(binary.LittleEndian, "su", "hello", uint32(7))
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := decodeValues(binary.LittleEndian, "su", buf); err != nil {
			b.Fatal(err)
		}
	}
}
