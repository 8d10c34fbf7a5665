package dbus

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestEncodeSU covers spec scenario 1: encode/decode "su".
func TestEncodeSU(t *testing.T) {
	got, err := encodeValues(binary.LittleEndian, "su", "hello", uint32(7))
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		0x05, 0x00, 0x00, 0x00, 'h', 'e', 'l', 'l', 'o', 0x00,
		0x00, 0x00, // padding to 4-byte boundary for the uint32
		0x07, 0x00, 0x00, 0x00,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("encodeValues(\"su\") mismatch (-want +got):\n%s", diff)
	}
}

// TestEncodeEmptyArray covers spec scenario 2: empty array "as".
func TestEncodeEmptyArray(t *testing.T) {
	got, err := encodeValues(binary.LittleEndian, "as", []interface{}{})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x00, 0x00, 0x00, 0x00}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("encodeValues(\"as\") mismatch (-want +got):\n%s", diff)
	}
}

// TestEncodeVariant covers spec scenario 3: variant carrying u=42.
func TestEncodeVariant(t *testing.T) {
	got, err := encodeValues(binary.LittleEndian, "v", Variant{Signature: "u", Value: uint32(42)})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x01, 'u', 0x00, 0x00, 0x2A, 0x00, 0x00, 0x00}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("encodeValues(\"v\") mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeStruct(t *testing.T) {
	got, err := encodeValues(binary.LittleEndian, "(iu)", Struct{int32(-1), uint32(2)})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x02, 0x00, 0x00, 0x00}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("encodeValues(\"(iu)\") mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeDict(t *testing.T) {
	d := NewDict()
	d.Set("a", uint32(1))
	d.Set("b", uint32(2))
	buf, err := encodeValues(binary.LittleEndian, "a{su}", d)
	if err != nil {
		t.Fatal(err)
	}
	back, err := decodeValues(binary.LittleEndian, "a{su}", buf)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := back[0].(*Dict)
	if !ok {
		t.Fatalf("decoded value is %T, want *Dict", back[0])
	}
	if got.Len() != 2 {
		t.Fatalf("got %d entries, want 2", got.Len())
	}
	if v, _ := got.Get("a"); v != uint32(1) {
		t.Errorf("got[a] = %v, want 1", v)
	}
	if v, _ := got.Get("b"); v != uint32(2) {
		t.Errorf("got[b] = %v, want 2", v)
	}
}

func TestEncodeSignatureMismatch(t *testing.T) {
	if _, err := encodeValues(binary.LittleEndian, "su", "only one value"); err == nil {
		t.Error("expected an error for too few values, got nil")
	}
}

func TestEncodeArraySharesElementPlan(t *testing.T) {
	got, err := encodeValues(binary.LittleEndian, "ai", []interface{}{int32(1), int32(2), int32(3)})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		0x0c, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x00, 0x00,
		0x02, 0x00, 0x00, 0x00,
		0x03, 0x00, 0x00, 0x00,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("encodeValues(\"ai\") mismatch (-want +got):\n%s", diff)
	}
}

func BenchmarkEncodeSU(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := encodeValues(binary.LittleEndian, "su", "hello", uint32(7)); err != nil {
			b.Fatal(err)
		}
	}
}
