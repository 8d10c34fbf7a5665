package dbus

// BecomeMonitor calls org.freedesktop.DBus.Monitoring.BecomeMonitor,
// turning the connection into a passive listener that receives every
// message matching rules (or all messages, if rules is empty) and
// must never originate a reply. Matches
// original_source/dbus.py's become_monitor, which always forces
// raise_on_error off first since reply correlation stops applying
// once the connection stops being addressed directly.
func (c *Connection) BecomeMonitor(rules []*MatchRule) error {
	c.conf.raiseOnError = false
	c.conf.monitor = true

	strs := make([]interface{}, len(rules))
	for i, r := range rules {
		strs[i] = r.String()
	}

	fields := &Fields{
		Path:        objectPathPtr(busObjectPath),
		Interface:   stringPtr(monitoringInterface),
		Member:      stringPtr("BecomeMonitor"),
		Destination: stringPtr(busServiceName),
	}
	msg, err := NewMessage(c.conf.order, TypeMethodCall, 0, 0, fields)
	if err != nil {
		return err
	}
	if err := msg.SetBody("asu", strs, uint32(0)); err != nil {
		return err
	}
	reply, err := c.Call(msg)
	if err != nil {
		return err
	}
	if reply.Type() == TypeError {
		return remoteErrorFrom(reply)
	}
	return nil
}
