package dbus

import (
	"encoding/binary"
	"testing"
)

// TestHeaderFieldsRoundTrip covers spec scenario 4: header round-trip
// with path and member set, all others absent.
func TestHeaderFieldsRoundTrip(t *testing.T) {
	path := ObjectPath("/x")
	member := "M"
	fields := &Fields{Path: &path, Member: &member}

	buf, err := encodeHeaderFields(binary.LittleEndian, fields)
	if err != nil {
		t.Fatal(err)
	}
	got, err := decodeHeaderFields(binary.LittleEndian, buf)
	if err != nil {
		t.Fatal(err)
	}

	if got.Path == nil || *got.Path != path {
		t.Errorf("Path = %v, want %q", got.Path, path)
	}
	if got.Member == nil || *got.Member != member {
		t.Errorf("Member = %v, want %q", got.Member, member)
	}
	if got.Interface != nil || got.ErrorName != nil || got.ReplySerial != nil ||
		got.Destination != nil || got.Sender != nil || got.Signature != nil || got.UnixFDs != nil {
		t.Errorf("expected all other fields absent, got %+v", got)
	}
}

func TestHeaderFieldsAllPresent(t *testing.T) {
	path := ObjectPath("/org/freedesktop/DBus")
	iface := "org.freedesktop.DBus"
	member := "Hello"
	errName := "org.freedesktop.DBus.Error.Failed"
	replySerial := uint32(3)
	dest := "org.freedesktop.DBus"
	sender := ":1.0"
	sig := Signature("su")
	fds := uint32(1)

	fields := &Fields{
		Path:        &path,
		Interface:   &iface,
		Member:      &member,
		ErrorName:   &errName,
		ReplySerial: &replySerial,
		Destination: &dest,
		Sender:      &sender,
		Signature:   &sig,
		UnixFDs:     &fds,
	}

	buf, err := encodeHeaderFields(binary.LittleEndian, fields)
	if err != nil {
		t.Fatal(err)
	}
	got, err := decodeHeaderFields(binary.LittleEndian, buf)
	if err != nil {
		t.Fatal(err)
	}
	if *got.Path != path || *got.Interface != iface || *got.Member != member ||
		*got.ErrorName != errName || *got.ReplySerial != replySerial ||
		*got.Destination != dest || *got.Sender != sender || *got.Signature != sig ||
		*got.UnixFDs != fds {
		t.Errorf("round trip mismatch: got %+v", got)
	}
}

func TestHeaderFieldTypeMismatch(t *testing.T) {
	// A hand-built header field array claiming field 3 (member, which
	// must be a string) carries a uint32 instead.
	buf := []byte{3, 0x01, 'u', 0x00, 0x07, 0x00, 0x00, 0x00}
	if _, err := decodeHeaderFields(binary.LittleEndian, buf); err != ErrHeaderFieldType {
		t.Errorf("got %v, want ErrHeaderFieldType", err)
	}
}

func BenchmarkEncodeHeaderFields(b *testing.B) {
	path := ObjectPath("/org/freedesktop/DBus")
	member := "Hello"
	fields := &Fields{Path: &path, Member: &member}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := encodeHeaderFields(binary.LittleEndian, fields); err != nil {
			b.Fatal(err)
		}
	}
}
