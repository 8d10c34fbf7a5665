package dbus

import "fmt"

// Well-known names for the bus daemon itself, used by every
// org.freedesktop.DBus method call below.
const (
	busServiceName = "org.freedesktop.DBus"
	busObjectPath  = ObjectPath("/org/freedesktop/DBus")
	busInterface   = "org.freedesktop.DBus"

	peerInterface           = "org.freedesktop.DBus.Peer"
	introspectableInterface = "org.freedesktop.DBus.Introspectable"
	propertiesInterface     = "org.freedesktop.DBus.Properties"
	monitoringInterface     = "org.freedesktop.DBus.Monitoring"
)

// NameFlags are the bit flags accepted by RequestName, grounded on
// z3ntu-go-dbus's names.go constants (same bit positions as the bus
// daemon's wire protocol).
type NameFlags uint32

const (
	NameFlagAllowReplacement NameFlags = 1 << iota
	NameFlagReplaceExisting
	NameFlagDoNotQueue
)

// RequestName reply codes (spec §7's NameAcquisitionFailed contract).
const (
	NameReplyPrimaryOwner uint32 = 1 + iota
	NameReplyInQueue
	NameReplyExists
	NameReplyAlreadyOwner
)

func (c *Connection) busCall(iface, member, signature string, values ...interface{}) (*Message, error) {
	fields := &Fields{
		Path:        objectPathPtr(busObjectPath),
		Interface:   stringPtr(iface),
		Member:      stringPtr(member),
		Destination: stringPtr(busServiceName),
	}
	msg, err := NewMessage(c.conf.order, TypeMethodCall, 0, 0, fields)
	if err != nil {
		return nil, err
	}
	if signature != "" {
		if err := msg.SetBody(signature, values...); err != nil {
			return nil, err
		}
	}
	return c.Call(msg)
}

func firstString(msg *Message) (string, error) {
	body, err := msg.Body()
	if err != nil {
		return "", err
	}
	if len(body) == 0 {
		return "", &ProtocolError{Reason: "expected a reply body with one string"}
	}
	s, ok := body[0].(string)
	if !ok {
		return "", &ProtocolError{Reason: "expected a string reply"}
	}
	return s, nil
}

// Ping calls org.freedesktop.DBus.Peer.Ping against destination.
func (c *Connection) Ping(destination string) error {
	msg, err := c.peerCall(destination, "Ping")
	if err != nil {
		return err
	}
	if msg.Type() == TypeError {
		return remoteErrorFrom(msg)
	}
	return nil
}

// GetMachineId calls org.freedesktop.DBus.Peer.GetMachineId.
func (c *Connection) GetMachineId(destination string) (string, error) {
	msg, err := c.peerCall(destination, "GetMachineId")
	if err != nil {
		return "", err
	}
	if msg.Type() == TypeError {
		return "", remoteErrorFrom(msg)
	}
	return firstString(msg)
}

func (c *Connection) peerCall(destination, member string) (*Message, error) {
	fields := &Fields{
		Destination: stringPtr(destination),
		Interface:   stringPtr(peerInterface),
		Member:      stringPtr(member),
	}
	msg, err := NewMessage(c.conf.order, TypeMethodCall, 0, 0, fields)
	if err != nil {
		return nil, err
	}
	return c.Call(msg)
}

// Introspect calls org.freedesktop.DBus.Introspectable.Introspect on
// path at destination and returns the introspection XML.
func (c *Connection) Introspect(path ObjectPath, destination string) (string, error) {
	fields := &Fields{
		Path:        &path,
		Destination: stringPtr(destination),
		Interface:   stringPtr(introspectableInterface),
		Member:      stringPtr("Introspect"),
	}
	msg, err := NewMessage(c.conf.order, TypeMethodCall, 0, 0, fields)
	if err != nil {
		return "", err
	}
	reply, err := c.Call(msg)
	if err != nil {
		return "", err
	}
	if reply.Type() == TypeError {
		return "", remoteErrorFrom(reply)
	}
	return firstString(reply)
}

func (c *Connection) propertiesCall(path ObjectPath, destination, member, signature string, values ...interface{}) (*Message, error) {
	fields := &Fields{
		Path:        &path,
		Destination: stringPtr(destination),
		Interface:   stringPtr(propertiesInterface),
		Member:      stringPtr(member),
	}
	msg, err := NewMessage(c.conf.order, TypeMethodCall, 0, 0, fields)
	if err != nil {
		return nil, err
	}
	if err := msg.SetBody(signature, values...); err != nil {
		return nil, err
	}
	return c.Call(msg)
}

// Get calls org.freedesktop.DBus.Properties.Get and returns the
// property's value, unwrapped from its carrying Variant.
func (c *Connection) Get(path ObjectPath, destination, iface, property string) (interface{}, error) {
	reply, err := c.propertiesCall(path, destination, "Get", "ss", iface, property)
	if err != nil {
		return nil, err
	}
	if reply.Type() == TypeError {
		return nil, remoteErrorFrom(reply)
	}
	body, err := reply.Body()
	if err != nil {
		return nil, err
	}
	if len(body) != 1 {
		return nil, &ProtocolError{Reason: "Get reply did not carry exactly one value"}
	}
	v, ok := body[0].(Variant)
	if !ok {
		return nil, &ProtocolError{Reason: "Get reply value was not a variant"}
	}
	return v.Value, nil
}

// Set calls org.freedesktop.DBus.Properties.Set.
func (c *Connection) Set(path ObjectPath, destination, iface, property, signature string, value interface{}) error {
	reply, err := c.propertiesCall(path, destination, "Set", "ssv", iface, property, Variant{Signature: signature, Value: value})
	if err != nil {
		return err
	}
	if reply.Type() == TypeError {
		return remoteErrorFrom(reply)
	}
	return nil
}

// GetAll calls org.freedesktop.DBus.Properties.GetAll and returns the
// property values unwrapped from their carrying Variants.
func (c *Connection) GetAll(path ObjectPath, destination, iface string) (map[string]interface{}, error) {
	reply, err := c.propertiesCall(path, destination, "GetAll", "s", iface)
	if err != nil {
		return nil, err
	}
	if reply.Type() == TypeError {
		return nil, remoteErrorFrom(reply)
	}
	body, err := reply.Body()
	if err != nil {
		return nil, err
	}
	if len(body) != 1 {
		return nil, &ProtocolError{Reason: "GetAll reply did not carry exactly one value"}
	}
	d, ok := body[0].(*Dict)
	if !ok {
		return nil, &ProtocolError{Reason: "GetAll reply value was not a dict"}
	}
	out := make(map[string]interface{}, d.Len())
	d.Each(func(k, v interface{}) {
		key, _ := k.(string)
		if variant, ok := v.(Variant); ok {
			out[key] = variant.Value
		} else {
			out[key] = v
		}
	})
	return out, nil
}

// RequestName calls org.freedesktop.DBus.RequestName.
func (c *Connection) RequestName(name string, flags NameFlags) (uint32, error) {
	reply, err := c.busCall(busInterface, "RequestName", "su", name, uint32(flags))
	if err != nil {
		return 0, err
	}
	if reply.Type() == TypeError {
		return 0, remoteErrorFrom(reply)
	}
	body, err := reply.Body()
	if err != nil {
		return 0, err
	}
	if len(body) != 1 {
		return 0, &ProtocolError{Reason: "RequestName reply did not carry exactly one value"}
	}
	code, ok := body[0].(uint32)
	if !ok {
		return 0, &ProtocolError{Reason: "RequestName reply value was not a uint32"}
	}
	return code, nil
}

// Acquire requests ownership of name and fails with
// *NameAcquisitionError unless the reply is PrimaryOwner or
// AlreadyOwner, collapsing RequestName's four-way result the way
// original_source/dbus.py's name setter does.
func (c *Connection) Acquire(name string) error {
	code, err := c.RequestName(name, 0)
	if err != nil {
		return err
	}
	if code != NameReplyPrimaryOwner && code != NameReplyAlreadyOwner {
		return &NameAcquisitionError{Name: name, Code: code}
	}
	return nil
}

// ReleaseName calls org.freedesktop.DBus.ReleaseName.
func (c *Connection) ReleaseName(name string) (uint32, error) {
	reply, err := c.busCall(busInterface, "ReleaseName", "s", name)
	if err != nil {
		return 0, err
	}
	if reply.Type() == TypeError {
		return 0, remoteErrorFrom(reply)
	}
	body, err := reply.Body()
	if err != nil {
		return 0, err
	}
	if len(body) != 1 {
		return 0, &ProtocolError{Reason: "ReleaseName reply did not carry exactly one value"}
	}
	code, _ := body[0].(uint32)
	return code, nil
}

// ListNames calls org.freedesktop.DBus.ListNames.
func (c *Connection) ListNames() ([]string, error) {
	return c.listStrings("ListNames")
}

// ListActivatableNames calls org.freedesktop.DBus.ListActivatableNames.
func (c *Connection) ListActivatableNames() ([]string, error) {
	return c.listStrings("ListActivatableNames")
}

func (c *Connection) listStrings(member string) ([]string, error) {
	reply, err := c.busCall(busInterface, member, "")
	if err != nil {
		return nil, err
	}
	if reply.Type() == TypeError {
		return nil, remoteErrorFrom(reply)
	}
	body, err := reply.Body()
	if err != nil {
		return nil, err
	}
	if len(body) != 1 {
		return nil, &ProtocolError{Reason: fmt.Sprintf("%s reply did not carry exactly one value", member)}
	}
	raw, ok := body[0].([]interface{})
	if !ok {
		return nil, &ProtocolError{Reason: fmt.Sprintf("%s reply value was not an array", member)}
	}
	out := make([]string, len(raw))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, &ProtocolError{Reason: fmt.Sprintf("%s reply element was not a string", member)}
		}
		out[i] = s
	}
	return out, nil
}

// AddMatch calls org.freedesktop.DBus.AddMatch with rule's string form.
func (c *Connection) AddMatch(rule *MatchRule) error {
	reply, err := c.busCall(busInterface, "AddMatch", "s", rule.String())
	if err != nil {
		return err
	}
	if reply.Type() == TypeError {
		return remoteErrorFrom(reply)
	}
	return nil
}

// RemoveMatch calls org.freedesktop.DBus.RemoveMatch with rule's
// string form.
func (c *Connection) RemoveMatch(rule *MatchRule) error {
	reply, err := c.busCall(busInterface, "RemoveMatch", "s", rule.String())
	if err != nil {
		return err
	}
	if reply.Type() == TypeError {
		return remoteErrorFrom(reply)
	}
	return nil
}

// Bus method wrappers declared by the original implementation but left
// unimplemented there (original_source/dbus.py's NotImplementedError
// stubs) — spec.md §9 Open Question (ii) treats these as explicit
// non-goals, kept as stubs so callers get a typed error instead of a
// missing method.
func (c *Connection) GetManagedObjects(path ObjectPath, destination string) error {
	return ErrNotImplemented
}
func (c *Connection) StartServiceByName(name string, flags uint32) error { return ErrNotImplemented }
func (c *Connection) UpdateActivationEnvironment(env map[string]string) error {
	return ErrNotImplemented
}
func (c *Connection) GetConnectionUnixUser(busName string) error       { return ErrNotImplemented }
func (c *Connection) GetConnectionUnixProcessID(busName string) error  { return ErrNotImplemented }
func (c *Connection) GetConnectionCredentials(busName string) error    { return ErrNotImplemented }
func (c *Connection) GetAdtAuditSessionData(busName string) error      { return ErrNotImplemented }
func (c *Connection) GetConnectionSELinuxSecurityContext(busName string) error {
	return ErrNotImplemented
}
func (c *Connection) NameHasOwner(busName string) error { return ErrNotImplemented }
func (c *Connection) GetNameOwner(busName string) error { return ErrNotImplemented }
