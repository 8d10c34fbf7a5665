package dbus

import (
	"encoding/binary"
	"net"
	"testing"
	"time"
)

// serverReadMessage reads one framed message off conn the same way
// Connection.readMessage does, for use on the simulated-server side of
// a net.Pipe in these tests.
func serverReadMessage(t *testing.T, conn net.Conn) *Message {
	t.Helper()
	prefix := make([]byte, fixedHeaderSize)
	if _, err := readFullFrom(conn, prefix); err != nil {
		t.Fatalf("read fixed header: %v", err)
	}
	order := m_order(prefix[0])
	fieldsLen := order.Uint32(prefix[12:16])
	bodyLen := order.Uint32(prefix[4:8])
	_, padding := nextOffset(fixedHeaderSize+int(fieldsLen), 8)
	rest := make([]byte, int(fieldsLen)+padding+int(bodyLen))
	if _, err := readFullFrom(conn, rest); err != nil {
		t.Fatalf("read rest of message: %v", err)
	}
	msg, err := ParseMessage(append(prefix, rest...))
	if err != nil {
		t.Fatalf("parse message: %v", err)
	}
	return msg
}

func readFullFrom(conn net.Conn, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := conn.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
		if m == 0 {
			break
		}
	}
	return n, nil
}

// TestConnectionCallCorrelation covers spec scenario 6 at the
// Connection level: Call sends a method-call, a signal arrives first
// and is skipped, then the correlated method-return is returned.
func TestConnectionCallCorrelation(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	conn := newTestConnection(client, WithRaiseOnError(true))

	iface := "com.example.Foo"
	member := "Bar"
	msg, err := NewMessage(binary.LittleEndian, TypeMethodCall, 0, 0, &Fields{
		Interface: &iface,
		Member:    &member,
	})
	if err != nil {
		t.Fatal(err)
	}

	type result struct {
		reply *Message
		err   error
	}
	done := make(chan result, 1)
	go func() {
		reply, err := conn.Call(msg)
		done <- result{reply, err}
	}()

	call := serverReadMessage(t, server)
	fields, err := call.Fields()
	if err != nil {
		t.Fatal(err)
	}
	if fields.Member == nil || *fields.Member != member {
		t.Fatalf("server saw member %v, want %q", fields.Member, member)
	}
	serial := call.Serial()
	if serial == 0 {
		t.Fatal("expected a non-zero serial assigned by Send")
	}

	sigName := "Ping"
	signal, err := NewMessage(binary.LittleEndian, TypeSignal, 0, 1, &Fields{Member: &sigName})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := server.Write(signal.Bytes()); err != nil {
		t.Fatal(err)
	}

	replySerial := serial
	reply, err := NewMessage(binary.LittleEndian, TypeMethodReturn, 0, 2, &Fields{ReplySerial: &replySerial})
	if err != nil {
		t.Fatal(err)
	}
	if err := reply.SetBody("s", "ok"); err != nil {
		t.Fatal(err)
	}
	if _, err := server.Write(reply.Bytes()); err != nil {
		t.Fatal(err)
	}

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("Call: %v", r.err)
		}
		body, err := r.reply.Body()
		if err != nil {
			t.Fatal(err)
		}
		if len(body) != 1 || body[0] != "ok" {
			t.Errorf("got body %+v, want [ok]", body)
		}
	case <-time.After(time.Second):
		t.Fatal("Call did not return")
	}
}

// TestConnectionCallRaisesRemoteError covers the RaiseOnError path: a
// method-return of type error becomes a *RemoteError instead of being
// handed back as a plain *Message.
func TestConnectionCallRaisesRemoteError(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	conn := newTestConnection(client, WithRaiseOnError(true))

	member := "Bar"
	msg, err := NewMessage(binary.LittleEndian, TypeMethodCall, 0, 0, &Fields{Member: &member})
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := conn.Call(msg)
		done <- err
	}()

	call := serverReadMessage(t, server)
	serial := call.Serial()

	errName := "com.example.Error.Broken"
	errMsg, err := NewMessage(binary.LittleEndian, TypeError, 0, 1, &Fields{
		ReplySerial: &serial,
		ErrorName:   &errName,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := errMsg.SetBody("s", "it broke"); err != nil {
		t.Fatal(err)
	}
	if _, err := server.Write(errMsg.Bytes()); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		remoteErr, ok := err.(*RemoteError)
		if !ok {
			t.Fatalf("got %T, want *RemoteError", err)
		}
		if remoteErr.Name != errName {
			t.Errorf("Name = %q, want %q", remoteErr.Name, errName)
		}
	case <-time.After(time.Second):
		t.Fatal("Call did not return")
	}
}

// TestConnectionSendFraming exercises Send directly (no Call): the
// frame the simulated server reads back carries the serial Send
// returned, including the serial-wrap behavior nextSerial guarantees.
func TestConnectionSendFraming(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	conn := newTestConnection(client)
	conn.serial = ^uint32(0) // next call to nextSerial wraps to 1

	member := "Ping"
	msg, err := NewMessage(binary.LittleEndian, TypeMethodCall, FlagNoReplyExpected, 0, &Fields{Member: &member})
	if err != nil {
		t.Fatal(err)
	}

	sendDone := make(chan uint32, 1)
	go func() {
		serial, err := conn.Send(msg)
		if err != nil {
			t.Error(err)
		}
		sendDone <- serial
	}()

	got := serverReadMessage(t, server)
	serial := <-sendDone
	if serial != 1 {
		t.Errorf("serial = %d, want 1 (wrapped past zero)", serial)
	}
	if got.Serial() != 1 {
		t.Errorf("wire serial = %d, want 1", got.Serial())
	}
}
