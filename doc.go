// Package dbus implements a minimal, single-threaded client for the
// D-Bus message bus protocol over a Unix domain socket: signature-driven
// marshalling and unmarshalling, the message and header-field wire
// format, the EXTERNAL authentication handshake, serial-correlated
// method calls, and bus address resolution.
package dbus
