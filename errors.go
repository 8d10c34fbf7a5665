package dbus

import "fmt"

// AddressError is returned when no usable bus address could be
// resolved from a D-Bus address URI list.
type AddressError struct {
	URI string
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("dbus: no usable address found in %q", e.URI)
}

// AuthError is returned when the server rejects or errors out of the
// authentication handshake.
type AuthError struct {
	Reply string
}

func (e *AuthError) Error() string {
	return "dbus: authentication failed: " + e.Reply
}

// ProtocolError is returned for malformed wire data: bad endian
// markers, unknown type codes, signature/value mismatches, and
// unexpected pre-handshake replies.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "dbus: protocol violation: " + e.Reason
}

// DisconnectedError is returned when the peer closes the connection
// mid-frame (a zero-byte read where more data was expected).
type DisconnectedError struct {
	Reason string
}

func (e *DisconnectedError) Error() string {
	if e.Reason == "" {
		return "dbus: disconnected"
	}
	return "dbus: disconnected: " + e.Reason
}

// RemoteError wraps a method-return of type Error received from the
// bus or a peer. Name is the D-Bus error name (e.g.
// "org.freedesktop.DBus.Error.UnknownMethod"); Body holds the
// stringified error arguments.
type RemoteError struct {
	Name string
	Body []string
}

func (e *RemoteError) Error() string {
	s := e.Name
	for _, b := range e.Body {
		s += ": " + b
	}
	return s
}

// NameAcquisitionError is returned when RequestName succeeds on the
// wire but the reply code is neither PrimaryOwner nor AlreadyOwner.
type NameAcquisitionError struct {
	Name string
	Code uint32
}

func (e *NameAcquisitionError) Error() string {
	return fmt.Sprintf("dbus: failed to acquire name %q (reply code %d)", e.Name, e.Code)
}

// ErrNotImplemented is returned by the standard-interface wrappers the
// original implementation declares but never implements.
var ErrNotImplemented = fmt.Errorf("dbus: not implemented")

// ErrHeaderFieldType is returned when a header field is given a value
// whose signature does not match the field's fixed declared type.
var ErrHeaderFieldType = fmt.Errorf("dbus: header field value does not match its declared type")
