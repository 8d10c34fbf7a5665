package dbus

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// dial opens a UNIX-domain stream socket at path and enables
// credentials passing (SO_PASSCRED) before any handshake byte is
// sent, so the bus can authenticate the EXTERNAL mechanism against
// the kernel-verified peer credentials. Grounded on the teacher's
// Dial in client.go, generalized from the unix:path= prefix parsing
// to accept a resolved address (including the abstract-namespace
// leading NUL) and wired to golang.org/x/sys/unix for socket options
// the way arnnvv-bluetalk's main.go uses the same package for raw
// socket control.
func dial(path string) (*net.UnixConn, error) {
	addr := &net.UnixAddr{Name: path, Net: "unix"}
	conn, err := net.DialUnix("unix", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dbus: dial %q: %w", path, err)
	}

	raw, err := conn.SyscallConn()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("dbus: raw socket access: %w", err)
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_PASSCRED, 1)
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("dbus: raw socket control: %w", err)
	}
	if sockErr != nil {
		conn.Close()
		return nil, fmt.Errorf("dbus: enable SO_PASSCRED: %w", sockErr)
	}

	return conn, nil
}

// PeerCredentials is the kernel-reported identity of the process on
// the other end of a connection's socket (SO_PEERCRED).
type PeerCredentials struct {
	PID int32
	UID uint32
	GID uint32
}

// peerCredentials reads SO_PEERCRED off the connection's socket.
func peerCredentials(conn *net.UnixConn) (PeerCredentials, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return PeerCredentials{}, fmt.Errorf("dbus: raw socket access: %w", err)
	}
	var ucred *unix.Ucred
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		ucred, sockErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return PeerCredentials{}, fmt.Errorf("dbus: raw socket control: %w", err)
	}
	if sockErr != nil {
		return PeerCredentials{}, fmt.Errorf("dbus: SO_PEERCRED: %w", sockErr)
	}
	return PeerCredentials{PID: ucred.Pid, UID: ucred.Uid, GID: ucred.Gid}, nil
}
