package dbus

import "encoding/binary"

const (
	// DefaultConnectionReadSize is the default size (in bytes) of the
	// buffer used for reading from the bus socket. Buffering reduces
	// the number of read syscalls needed to drain a large message.
	DefaultConnectionReadSize = 4096
)

// Config configures a Connection, built up via functional Options the
// same way the teacher's Client config works.
type Config struct {
	order           binary.ByteOrder
	connReadSize    int
	raiseOnError    bool
	monitor         bool
	negotiateUnixFD bool
}

// Option sets up a Config.
type Option func(*Config)

// WithByteOrder selects the byte order used to encode outgoing
// messages. Defaults to binary.LittleEndian.
func WithByteOrder(order binary.ByteOrder) Option {
	return func(c *Config) { c.order = order }
}

// WithConnectionReadSize sets the size of the buffer used for reading
// from the bus socket.
func WithConnectionReadSize(size int) Option {
	return func(c *Config) { c.connReadSize = size }
}

// WithRaiseOnError makes Call return a *RemoteError instead of the
// raw error-type reply message when the bus returns an error.
func WithRaiseOnError(enable bool) Option {
	return func(c *Config) { c.raiseOnError = enable }
}

// WithNegotiateUnixFD requests NEGOTIATE_UNIX_FD during the auth
// handshake. File descriptor transfer itself is out of scope; this
// only affects whether the handshake line is sent.
func WithNegotiateUnixFD(enable bool) Option {
	return func(c *Config) { c.negotiateUnixFD = enable }
}

// withMonitor puts a Config in monitor mode, so that Open skips Hello,
// and forces raiseOnError off since reply correlation no longer
// applies once the connection is receiving every message on the bus.
// BecomeMonitor does not use this option; it sets the same two fields
// on an already open connection directly.
func withMonitor() Option {
	return func(c *Config) {
		c.monitor = true
		c.raiseOnError = false
	}
}

func defaultConfig() Config {
	return Config{
		order:        binary.LittleEndian,
		connReadSize: DefaultConnectionReadSize,
	}
}
