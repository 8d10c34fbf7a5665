package dbus

import (
	"encoding/binary"
	"fmt"
)

// Message types, the second byte of the fixed header (spec §3).
const (
	TypeMethodCall byte = 1 + iota
	TypeMethodReturn
	TypeError
	TypeSignal
)

// Flag bits, the third byte of the fixed header.
const (
	FlagNoReplyExpected byte = 1 << iota
	FlagNoAutoStart
	_
	FlagInteractiveAuthorization
)

const protocolVersion = 1

const (
	littleEndian = 'l'
	bigEndian    = 'B'
)

const fixedHeaderSize = 16

// maxMessageSize bounds a single message (header + body), matching
// the teacher's own sanity limit in header.go.
const maxMessageSize = 134217728

// Message is a single D-Bus message: the fixed header, the
// header-field array, padding, and a body. It mirrors the teacher's
// lazy-decode shape (cache the bytes, parse header fields and body on
// first access) but is generalized over the whole type alphabet
// rather than one hardcoded signature per call site.
//
// Only type, flags, serial, and body may be mutated after
// construction; everything else is derived from the byte buffer.
type Message struct {
	buf   []byte
	order binary.ByteOrder

	fields     *Fields
	fieldsErr  error
	fieldsDone bool

	body     []interface{}
	bodyErr  error
	bodyDone bool
}

// NewMessage builds a message from its parts. byteorder selects
// binary.LittleEndian or binary.BigEndian; nil defaults to
// LittleEndian (the 'l' marker), matching the host's usual native
// order on Linux.
func NewMessage(order binary.ByteOrder, msgType, flags byte, serial uint32, fields *Fields) (*Message, error) {
	if order == nil {
		order = binary.LittleEndian
	}
	if fields == nil {
		fields = &Fields{}
	}

	fieldBytes, err := encodeHeaderFields(order, fields)
	if err != nil {
		return nil, err
	}

	marker := byte(littleEndian)
	if order == binary.BigEndian {
		marker = bigEndian
	}

	e := newEncoder(order)
	e.putByte(marker)
	e.putByte(msgType)
	e.putByte(flags)
	e.putByte(protocolVersion)
	e.putUint32(0) // body length placeholder, filled by SetBody
	e.putUint32(serial)
	e.putUint32(uint32(len(fieldBytes)))
	e.buf = append(e.buf, fieldBytes...)
	e.align(8)

	return &Message{buf: e.buf, order: order, fields: fields, fieldsDone: true}, nil
}

// ParseMessage reconstructs a Message from a complete frame: the
// fixed header, the header-field array, its padding, and the body,
// all already concatenated (e.g. by a Connection's framed read).
func ParseMessage(buf []byte) (*Message, error) {
	if len(buf) < fixedHeaderSize {
		return nil, &ProtocolError{Reason: "message shorter than the fixed header"}
	}
	switch buf[0] {
	case littleEndian:
	case bigEndian:
	default:
		return nil, &ProtocolError{Reason: fmt.Sprintf("invalid endianness marker %#x", buf[0])}
	}
	m := &Message{buf: buf, order: m_order(buf[0])}
	want, err := m.frameLength()
	if err != nil {
		return nil, err
	}
	if want != len(buf) {
		return nil, &ProtocolError{Reason: fmt.Sprintf("frame length mismatch: header declares %d bytes, got %d", want, len(buf))}
	}
	return m, nil
}

func m_order(marker byte) binary.ByteOrder {
	if marker == bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// frameLength computes 16 + header-array-length + pad-to-8 + body-length
// from the fixed header, per spec §4.3's "from bytes" construction.
func (m *Message) frameLength() (int, error) {
	fieldsLen := m.order.Uint32(m.buf[12:16])
	if fieldsLen > maxMessageSize {
		return 0, &ProtocolError{Reason: "header field array length exceeds maximum message size"}
	}
	_, padding := nextOffset(fixedHeaderSize+int(fieldsLen), 8)
	bodyLen := m.order.Uint32(m.buf[4:8])
	if bodyLen > maxMessageSize {
		return 0, &ProtocolError{Reason: "body length exceeds maximum message size"}
	}
	return fixedHeaderSize + int(fieldsLen) + padding + int(bodyLen), nil
}

// Bytes returns the complete wire representation of the message.
func (m *Message) Bytes() []byte { return m.buf }

// Order returns the message's byte order.
func (m *Message) Order() binary.ByteOrder { return m.order }

// Type returns the message type byte (offset 1).
func (m *Message) Type() byte { return m.buf[1] }

// SetType overwrites the message type in place.
func (m *Message) SetType(t byte) { m.buf[1] = t }

// Flags returns the flags byte (offset 2).
func (m *Message) Flags() byte { return m.buf[2] }

// SetFlags overwrites the flags byte in place.
func (m *Message) SetFlags(f byte) { m.buf[2] = f }

// Serial returns the message serial (offset 8).
func (m *Message) Serial() uint32 { return m.order.Uint32(m.buf[8:12]) }

// SetSerial overwrites the serial in place, in the message's own byte
// order.
func (m *Message) SetSerial(serial uint32) {
	m.order.PutUint32(m.buf[8:12], serial)
}

func (m *Message) fieldsLen() uint32 { return m.order.Uint32(m.buf[12:16]) }
func (m *Message) bodyLen() uint32   { return m.order.Uint32(m.buf[4:8]) }

func (m *Message) fieldsStart() int { return fixedHeaderSize }
func (m *Message) fieldsEnd() int   { return m.fieldsStart() + int(m.fieldsLen()) }

func (m *Message) bodyStart() int {
	_, padding := nextOffset(m.fieldsEnd(), 8)
	return m.fieldsEnd() + padding
}

// Fields decodes and caches the header-field array on first access.
func (m *Message) Fields() (*Fields, error) {
	if m.fieldsDone {
		return m.fields, m.fieldsErr
	}
	m.fields, m.fieldsErr = decodeHeaderFields(m.order, m.buf[m.fieldsStart():m.fieldsEnd()])
	m.fieldsDone = true
	return m.fields, m.fieldsErr
}

// Body decodes and caches the message body on first access, using the
// signature header field to drive the decoder. Returns nil if no
// signature field is present (a zero-length body).
func (m *Message) Body() ([]interface{}, error) {
	if m.bodyDone {
		return m.body, m.bodyErr
	}
	m.bodyDone = true

	fields, err := m.Fields()
	if err != nil {
		m.bodyErr = err
		return nil, err
	}
	if fields.Signature == nil {
		return nil, nil
	}
	start := m.bodyStart()
	end := start + int(m.bodyLen())
	if end > len(m.buf) {
		m.bodyErr = &ProtocolError{Reason: "body runs past end of buffer"}
		return nil, m.bodyErr
	}
	m.body, m.bodyErr = decodeValues(m.order, string(*fields.Signature), m.buf[start:end])
	return m.body, m.bodyErr
}

// SetBody replaces the body with a fresh encoding of (signature,
// values...) and sets the signature header field to signature. The
// message need not carry a signature field beforehand: SetBody adds
// it when absent and re-encodes the header-field array either way.
func (m *Message) SetBody(signature string, values ...interface{}) error {
	bodyBytes, err := encodeValues(m.order, signature, values...)
	if err != nil {
		return err
	}

	fields, err := m.Fields()
	if err != nil {
		return err
	}
	sig := Signature(signature)
	fields.Signature = &sig
	m.fieldsDone = false // force header-field re-encode below to pick it up

	fieldBytes, err := encodeHeaderFields(m.order, fields)
	if err != nil {
		return err
	}

	e := newEncoder(m.order)
	e.buf = append(e.buf, m.buf[:fixedHeaderSize]...)
	e.order.PutUint32(e.buf[12:16], uint32(len(fieldBytes)))
	e.buf = append(e.buf, fieldBytes...)
	e.align(8)
	e.buf = append(e.buf, bodyBytes...)
	e.order.PutUint32(e.buf[4:8], uint32(len(bodyBytes)))

	m.buf = e.buf
	m.fields = fields
	m.fieldsDone = true
	m.fieldsErr = nil
	m.body = values
	m.bodyDone = true
	m.bodyErr = nil
	return nil
}

// Match reports whether this message's header fields and decoded body
// satisfy the given patterns: every entry in header must be present
// and equal on the message (a nil entry never matches), and every
// non-nil entry in body
// must equal the corresponding positional body value. This is the
// predicate Connection.Recv uses to pick a matching message out of the
// stream (spec §4.3).
func (m *Message) Match(header map[int]interface{}, body []interface{}) (bool, error) {
	fields, err := m.Fields()
	if err != nil {
		return false, err
	}
	for index, want := range header {
		got := fields.Get(byte(index))
		if got == nil || got != want {
			return false, nil
		}
	}
	if len(body) == 0 {
		return true, nil
	}
	got, err := m.Body()
	if err != nil {
		return false, err
	}
	if len(body) > len(got) {
		return false, nil
	}
	for i, want := range body {
		if want == nil {
			continue
		}
		if got[i] != want {
			return false, nil
		}
	}
	return true, nil
}
