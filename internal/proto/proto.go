// Package proto implements the line protocol spoken to the supervising
// host. Every message is one ASCII line: telemetry ("D:"), events
// ("EVT:"), fatal errors ("ERR:"), informational messages ("MSG:") and
// the inbound SET_*/PING/RESUME commands.
package proto

import (
	"fmt"
	"strconv"
	"strings"
)

// Telemetry formats a periodic telemetry line:
// D:<filteredValue>,<present 0|1>,<tripped 0|1>
func Telemetry(value int, present, tripped bool) string {
	return fmt.Sprintf("D:%d,%d,%d", value, boolDigit(present), boolDigit(tripped))
}

// Event formats a verdict event line, e.g. EVT:PASS:500. The peak value
// always accompanies the event for offline diagnosis.
func Event(name string, peak int) string {
	return fmt.Sprintf("EVT:%s:%d", name, peak)
}

// Error formats a fatal error line, e.g. ERR:DOUBLE_CARD:900. A
// negative value means the reason carries no offending reading and the
// suffix is omitted (ERR:WATCHDOG_TIMEOUT).
func Error(reason string, value int) string {
	if value < 0 {
		return "ERR:" + reason
	}
	return fmt.Sprintf("ERR:%s:%d", reason, value)
}

// Message formats an informational line, e.g. MSG:System Booted.
func Message(text string) string {
	return "MSG:" + text
}

func boolDigit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// CommandKind identifies an inbound command.
type CommandKind int

const (
	CmdUnknown CommandKind = iota
	CmdPing
	CmdResume
	CmdSetThreshold
	CmdSetUpperThreshold
	CmdSetFloor
	CmdSetReverse
	CmdSetOverride
)

// Command is a parsed inbound line. Value is only meaningful for the
// SET_* kinds.
type Command struct {
	Kind  CommandKind
	Value int
}

// Prefixes for the value-carrying commands. SET_MIN is an accepted
// alias for SET_FLOOR kept from an earlier firmware revision.
var setPrefixes = []struct {
	prefix string
	kind   CommandKind
}{
	{"SET_THR_UPPER:", CmdSetUpperThreshold}, // must precede SET_THR:
	{"SET_THR:", CmdSetThreshold},
	{"SET_FLOOR:", CmdSetFloor},
	{"SET_MIN:", CmdSetFloor},
	{"SET_REVERSE:", CmdSetReverse},
	{"SET_OVERRIDE:", CmdSetOverride},
}

// ParseCommand parses one inbound line, trimmed of terminators and
// surrounding whitespace. ok is false for unrecognized or malformed
// lines; the protocol ignores those without emitting an error.
func ParseCommand(line string) (Command, bool) {
	line = strings.TrimSpace(line)

	switch line {
	case "PING":
		return Command{Kind: CmdPing}, true
	case "RESUME":
		return Command{Kind: CmdResume}, true
	}

	for _, p := range setPrefixes {
		if !strings.HasPrefix(line, p.prefix) {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, p.prefix)))
		if err != nil {
			return Command{}, false
		}
		return Command{Kind: p.kind, Value: v}, true
	}

	return Command{}, false
}

// Telem is a parsed telemetry line, used by host-side tooling.
type Telem struct {
	Value   int
	Present bool
	Tripped bool
}

// ParseTelemetry parses a "D:<value>,<present>,<tripped>" line.
func ParseTelemetry(line string) (Telem, bool) {
	line = strings.TrimSpace(line)
	rest, found := strings.CutPrefix(line, "D:")
	if !found {
		return Telem{}, false
	}
	parts := strings.Split(rest, ",")
	if len(parts) != 3 {
		return Telem{}, false
	}
	value, err := strconv.Atoi(parts[0])
	if err != nil {
		return Telem{}, false
	}
	present, ok := parseFlag(parts[1])
	if !ok {
		return Telem{}, false
	}
	tripped, ok := parseFlag(parts[2])
	if !ok {
		return Telem{}, false
	}
	return Telem{Value: value, Present: present, Tripped: tripped}, true
}

func parseFlag(s string) (bool, bool) {
	switch s {
	case "0":
		return false, true
	case "1":
		return true, true
	}
	return false, false
}
