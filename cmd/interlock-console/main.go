// Command interlock-console is a host-side terminal for the
// card-interlock daemon. It keeps the device's watchdog fed with
// periodic PINGs, optionally pushes a configuration on connect, prints
// incoming telemetry and events, and passes typed commands (RESUME,
// SET_*) straight through to the device.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/sweeney/card-interlock/internal/link"
	"github.com/sweeney/card-interlock/internal/proto"
)

func main() {
	port := flag.String("port", "/dev/ttyUSB0", "Serial port of the interlock device")
	baud := flag.Int("baud", link.DefaultBaudRate, "Serial baud rate")
	ping := flag.Duration("ping", 500*time.Millisecond, "PING interval (0 disables the keepalive)")
	thr := flag.Int("thr", 0, "Push this lower threshold on connect (0 = leave device default)")
	thrUpper := flag.Int("thr-upper", 0, "Push this upper threshold on connect (0 = leave device default)")
	floor := flag.Int("floor", -1, "Push this health floor on connect (-1 = leave device default)")
	reverse := flag.Bool("push-reverse", false, "Push SET_REVERSE:1 on connect")
	quietTelemetry := flag.Bool("quiet", false, "Suppress D: telemetry lines, show only events")

	flag.Parse()

	if err := run(*port, *baud, *ping, *thr, *thrUpper, *floor, *reverse, *quietTelemetry); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(port string, baud int, ping time.Duration, thr, thrUpper, floor int, reverse, quiet bool) error {
	transport, err := link.OpenSerial(port, baud)
	if err != nil {
		return err
	}
	defer transport.Close()

	log.Printf("connected to %s @ %d", port, baud)

	pushConfig(transport, thr, thrUpper, floor, reverse)

	if ping > 0 {
		go func() {
			ticker := time.NewTicker(ping)
			defer ticker.Stop()
			for range ticker.C {
				if err := transport.WriteLine("PING"); err != nil {
					return
				}
			}
		}()
	}

	// stdin passthrough: anything typed goes to the device verbatim.
	go func() {
		scan := bufio.NewScanner(os.Stdin)
		for scan.Scan() {
			cmd := strings.TrimSpace(scan.Text())
			if cmd == "" {
				continue
			}
			if err := transport.WriteLine(cmd); err != nil {
				log.Printf("write error: %v", err)
				return
			}
		}
	}()

	for line := range transport.Lines() {
		printLine(line, quiet)
	}
	return nil
}

// pushConfig mirrors the host GUI behavior: on connect, re-send the
// operator's configuration so a freshly rebooted device does not sit
// on stale defaults.
func pushConfig(transport link.Transport, thr, thrUpper, floor int, reverse bool) {
	if floor >= 0 {
		transport.WriteLine(fmt.Sprintf("SET_FLOOR:%d", floor))
	}
	if thr > 0 {
		transport.WriteLine(fmt.Sprintf("SET_THR:%d", thr))
	}
	if thrUpper > 0 {
		transport.WriteLine(fmt.Sprintf("SET_THR_UPPER:%d", thrUpper))
	}
	if reverse {
		transport.WriteLine("SET_REVERSE:1")
	}
}

func printLine(line string, quiet bool) {
	switch {
	case strings.HasPrefix(line, "D:"):
		if quiet {
			return
		}
		if t, ok := proto.ParseTelemetry(line); ok {
			log.Printf("telemetry: value=%d present=%v tripped=%v", t.Value, t.Present, t.Tripped)
			return
		}
		log.Printf("telemetry (unparsed): %s", line)
	case strings.HasPrefix(line, "ERR:"):
		log.Printf("!! %s", line)
	case strings.HasPrefix(line, "EVT:"), strings.HasPrefix(line, "MSG:"):
		log.Printf("%s", line)
	default:
		log.Printf("?? %s", line)
	}
}
