package dbus

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveAddressAbstract(t *testing.T) {
	got, err := resolveAddress("unix:abstract=/tmp/dbus-test,guid=deadbeef")
	if err != nil {
		t.Fatal(err)
	}
	want := "\x00/tmp/dbus-test"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestResolveAddressPath(t *testing.T) {
	dir := t.TempDir()
	sock := filepath.Join(dir, "bus")
	if err := os.WriteFile(sock, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := resolveAddress("unix:path=" + sock)
	if err != nil {
		t.Fatal(err)
	}
	if got != sock {
		t.Errorf("got %q want %q", got, sock)
	}
}

func TestResolveAddressPathMustExist(t *testing.T) {
	_, err := resolveAddress("unix:path=/nonexistent/path/to/bus")
	if err == nil {
		t.Error("expected an error for a path that does not exist")
	}
}

func TestResolveAddressPrefersAbstract(t *testing.T) {
	got, err := resolveAddress("unix:abstract=foo,path=/nonexistent")
	if err != nil {
		t.Fatal(err)
	}
	if got != "\x00foo" {
		t.Errorf("got %q, want abstract name preferred over path", got)
	}
}

func TestResolveAddressFirstSatisfiable(t *testing.T) {
	dir := t.TempDir()
	sock := filepath.Join(dir, "bus")
	if err := os.WriteFile(sock, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	uri := "unix:path=/nonexistent/one;unix:path=" + sock + ";unix:path=/nonexistent/two"
	got, err := resolveAddress(uri)
	if err != nil {
		t.Fatal(err)
	}
	if got != sock {
		t.Errorf("got %q want %q", got, sock)
	}
}

func TestResolveAddressNoneUsable(t *testing.T) {
	_, err := resolveAddress("unix:path=/nonexistent")
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, ok := err.(*AddressError); !ok {
		t.Errorf("got %T, want *AddressError", err)
	}
}

func TestSessionBusAddressFallback(t *testing.T) {
	t.Setenv("DBUS_SESSION_BUS_ADDRESS", "")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	got := sessionBusAddress()
	want := "unix:path=/run/user/1000/bus"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}
