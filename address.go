package dbus

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// resolveAddress parses a semicolon-delimited D-Bus address URI list
// and returns the first usable UNIX socket path, or "\x00name" for
// the abstract namespace. Grounded on original_source/dbus.py's
// dbus_socket_path: split on ';', then on the first ':', then parse
// unix: transport k=v pairs, preferring abstract= over path=.
func resolveAddress(uri string) (string, error) {
	for _, address := range strings.Split(uri, ";") {
		if address == "" {
			continue
		}
		transport, rest, ok := strings.Cut(address, ":")
		if !ok {
			continue
		}
		if transport != "unix" {
			continue
		}
		args := make(map[string]string)
		for _, kv := range strings.Split(rest, ",") {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				continue
			}
			args[k] = v
		}
		if name, ok := args["abstract"]; ok {
			return "\x00" + name, nil
		}
		if p, ok := args["path"]; ok {
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
		}
	}
	return "", &AddressError{URI: uri}
}

// sessionBusAddress returns the address URI list for the user session
// bus: the DBUS_SESSION_BUS_ADDRESS environment variable if set, else
// a fallback built from XDG_RUNTIME_DIR or the caller's uid.
func sessionBusAddress() string {
	if v := os.Getenv("DBUS_SESSION_BUS_ADDRESS"); v != "" {
		return v
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return fmt.Sprintf("unix:path=%s/bus", dir)
	}
	uid := os.Getuid()
	return fmt.Sprintf("unix:path=/run/user/%d/bus;unix:path=/var/run/user/%d/bus", uid, uid)
}

// systemBusAddress returns the address URI list for the system bus:
// the DBUS_SYSTEM_BUS_ADDRESS environment variable if set, else the
// conventional system socket paths.
func systemBusAddress() string {
	if v := os.Getenv("DBUS_SYSTEM_BUS_ADDRESS"); v != "" {
		return v
	}
	return "unix:path=/run/dbus/system_bus_socket;unix:path=/var/run/dbus/system_bus_socket"
}

// ResolveSessionBus resolves the session bus socket path using the
// environment, falling back to XDG_RUNTIME_DIR/uid conventions.
func ResolveSessionBus() (string, error) {
	return resolveAddress(sessionBusAddress())
}

// ResolveSystemBus resolves the system bus socket path using the
// environment, falling back to the conventional system socket paths.
func ResolveSystemBus() (string, error) {
	return resolveAddress(systemBusAddress())
}

// externalAuthData is the EXTERNAL mechanism's data payload: the
// caller's effective UID as a decimal ASCII string (spec §6).
func externalAuthData() string {
	return strconv.Itoa(os.Geteuid())
}
