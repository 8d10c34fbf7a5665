package dbus

import (
	"encoding/binary"
	"fmt"
)

// Header field indices, fixed by spec §3. Field ordering on the wire
// is insertion order by ascending index; encoded as a(yv), mirroring
// the teacher's headerField/encodeHeaderField pair but generalized
// over the full type alphabet via the shared encoder/decoder.
const (
	FieldPath        = 1
	FieldInterface   = 2
	FieldMember      = 3
	FieldErrorName   = 4
	FieldReplySerial = 5
	FieldDestination = 6
	FieldSender      = 7
	FieldSignature   = 8
	FieldUnixFDs     = 9
)

// fieldTypeCode is the declared signature code for each header field
// index, used both to write the (yv) variant tag on encode and, on
// decode, to reject a field whose wire type differs from its declared
// one.
var fieldTypeCode = map[byte]byte{
	FieldPath:        codeObjectPath,
	FieldInterface:   codeString,
	FieldMember:      codeString,
	FieldErrorName:   codeString,
	FieldReplySerial: codeUint32,
	FieldDestination: codeString,
	FieldSender:      codeString,
	FieldSignature:   codeSignature,
	FieldUnixFDs:     codeUint32,
}

func fieldName(index byte) string {
	switch index {
	case FieldPath:
		return "PATH"
	case FieldInterface:
		return "INTERFACE"
	case FieldMember:
		return "MEMBER"
	case FieldErrorName:
		return "ERROR_NAME"
	case FieldReplySerial:
		return "REPLY_SERIAL"
	case FieldDestination:
		return "DESTINATION"
	case FieldSender:
		return "SENDER"
	case FieldSignature:
		return "SIGNATURE"
	case FieldUnixFDs:
		return "UNIX_FDS"
	default:
		return "INVALID"
	}
}

// Fields is the decoded header-field set of a message. Each pointer is
// nil when the field is absent.
type Fields struct {
	Path        *ObjectPath
	Interface   *string
	Member      *string
	ErrorName   *string
	ReplySerial *uint32
	Destination *string
	Sender      *string
	Signature   *Signature
	UnixFDs     *uint32
}

// Get returns the value stored at a header field index, or nil if
// absent. Used by Match and by the header-field encoder.
func (f *Fields) Get(index byte) interface{} {
	switch index {
	case FieldPath:
		if f.Path == nil {
			return nil
		}
		return *f.Path
	case FieldInterface:
		if f.Interface == nil {
			return nil
		}
		return *f.Interface
	case FieldMember:
		if f.Member == nil {
			return nil
		}
		return *f.Member
	case FieldErrorName:
		if f.ErrorName == nil {
			return nil
		}
		return *f.ErrorName
	case FieldReplySerial:
		if f.ReplySerial == nil {
			return nil
		}
		return *f.ReplySerial
	case FieldDestination:
		if f.Destination == nil {
			return nil
		}
		return *f.Destination
	case FieldSender:
		if f.Sender == nil {
			return nil
		}
		return *f.Sender
	case FieldSignature:
		if f.Signature == nil {
			return nil
		}
		return *f.Signature
	case FieldUnixFDs:
		if f.UnixFDs == nil {
			return nil
		}
		return *f.UnixFDs
	default:
		return nil
	}
}

// set stores a decoded value at a header field index, coercing it to
// the field's declared Go type.
func (f *Fields) set(index byte, v interface{}) error {
	switch index {
	case FieldPath:
		p, ok := v.(ObjectPath)
		if !ok {
			return ErrHeaderFieldType
		}
		f.Path = &p
	case FieldInterface:
		s, ok := v.(string)
		if !ok {
			return ErrHeaderFieldType
		}
		f.Interface = &s
	case FieldMember:
		s, ok := v.(string)
		if !ok {
			return ErrHeaderFieldType
		}
		f.Member = &s
	case FieldErrorName:
		s, ok := v.(string)
		if !ok {
			return ErrHeaderFieldType
		}
		f.ErrorName = &s
	case FieldReplySerial:
		u, ok := v.(uint32)
		if !ok {
			return ErrHeaderFieldType
		}
		f.ReplySerial = &u
	case FieldDestination:
		s, ok := v.(string)
		if !ok {
			return ErrHeaderFieldType
		}
		f.Destination = &s
	case FieldSender:
		s, ok := v.(string)
		if !ok {
			return ErrHeaderFieldType
		}
		f.Sender = &s
	case FieldSignature:
		s, ok := v.(Signature)
		if !ok {
			return ErrHeaderFieldType
		}
		f.Signature = &s
	case FieldUnixFDs:
		u, ok := v.(uint32)
		if !ok {
			return ErrHeaderFieldType
		}
		f.UnixFDs = &u
	default:
		// Unknown field indices are ignored on decode.
	}
	return nil
}

// encodeHeaderFields writes the header-field array body: for each
// present field, in ascending index order, a 4-byte preamble
// {index, 0x01, sig-code, 0x00} followed by the value encoded as that
// single-type variant payload. Undeclared fields are skipped.
func encodeHeaderFields(order binary.ByteOrder, f *Fields) ([]byte, error) {
	e := newEncoder(order)
	for index := byte(1); index <= FieldUnixFDs; index++ {
		v := f.Get(index)
		if v == nil {
			continue
		}
		code := fieldTypeCode[index]
		e.align(8)
		e.putByte(index)
		e.putByte(0x01)
		e.putByte(code)
		e.putByte(0x00)
		node := &typeNode{Code: code}
		if err := e.encodeValue(node, v); err != nil {
			return nil, fmt.Errorf("dbus: header field %s: %w", fieldName(index), err)
		}
	}
	return e.buf, nil
}

// decodeHeaderFields parses a(yv)-shaped header-field bytes into a
// Fields set. Container types are not legal header field values on
// the wire (spec §3's header table is scalar-only), so the variant
// signature is always exactly one basic-type code.
func decodeHeaderFields(order binary.ByteOrder, buf []byte) (*Fields, error) {
	f := &Fields{}
	d := newDecoder(order, buf)
	for d.pos < len(buf) {
		if err := d.align(8); err != nil {
			return nil, err
		}
		if d.pos >= len(buf) {
			break
		}
		index, err := d.getByte()
		if err != nil {
			return nil, err
		}
		sigLen, err := d.getByte()
		if err != nil {
			return nil, err
		}
		if sigLen != 1 {
			return nil, &ProtocolError{Reason: "header field variant signature must be a single type code"}
		}
		codeBytes, err := d.need(1)
		if err != nil {
			return nil, err
		}
		code := codeBytes[0]
		switch code {
		case codeArray, codeStructO, codeDictO, codeVariant:
			return nil, &ProtocolError{Reason: "header field variant signature must be a basic type code"}
		}
		if _, err := d.need(1); err != nil { // trailing NUL of the signature string
			return nil, err
		}
		node := &typeNode{Code: code}
		v, err := d.decodeValue(node)
		if err != nil {
			return nil, fmt.Errorf("dbus: header field %s: %w", fieldName(index), err)
		}
		if want, ok := fieldTypeCode[index]; ok && want != code {
			return nil, ErrHeaderFieldType
		}
		if err := f.set(index, v); err != nil {
			return nil, err
		}
	}
	return f, nil
}
