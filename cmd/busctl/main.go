// Command busctl is a small demonstration client over the dbus
// package: it lists bus names, pings a destination, or becomes a
// passive monitor. It replaces the teacher's cmd/units demo, which was
// specific to systemd's ListUnits/MainPID calls.
package main

import (
	"flag"
	"fmt"
	"log"

	dbus "github.com/nalanzeyu/godbus-client"
)

func main() {
	var (
		system  = flag.Bool("system", false, "connect to the system bus instead of the session bus")
		ping    = flag.String("ping", "", "ping the given destination and exit")
		monitor = flag.Bool("monitor", false, "become a bus monitor and print every message")
	)
	flag.Parse()

	opener := dbus.OpenSessionBus
	if *system {
		opener = dbus.OpenSystemBus
	}

	opts := []dbus.Option{dbus.WithRaiseOnError(true)}
	conn, err := opener(opts...)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	switch {
	case *ping != "":
		if err := conn.Ping(*ping); err != nil {
			log.Fatalf("ping %s: %v", *ping, err)
		}
		fmt.Printf("%s is alive\n", *ping)
	case *monitor:
		if err := conn.BecomeMonitor(nil); err != nil {
			log.Fatalf("become monitor: %v", err)
		}
		for {
			msg, err := conn.Recv(nil, nil)
			if err != nil {
				log.Fatalf("recv: %v", err)
			}
			fields, err := msg.Fields()
			if err != nil {
				log.Printf("decode header: %v", err)
				continue
			}
			member := ""
			if fields.Member != nil {
				member = *fields.Member
			}
			log.Printf("type=%d member=%s", msg.Type(), member)
		}
	default:
		names, err := conn.ListNames()
		if err != nil {
			log.Fatalf("list names: %v", err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
	}
}
