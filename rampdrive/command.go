package rampdrive

import "strings"

// Direction is the commanded rotation direction of the drive.
type Direction int

// Drive directions.
const (
	DirStop Direction = iota
	DirForward
	DirReverse
)

func (d Direction) String() string {
	switch d {
	case DirForward:
		return "forward"
	case DirReverse:
		return "reverse"
	default:
		return "stop"
	}
}

type commandKind int

const (
	cmdInvalid commandKind = iota
	cmdForward      // F<n> momentum move
	cmdReverse      // R<n> momentum move
	cmdForwardQuick // FQ<n> quick move
	cmdReverseQuick // RQ<n> quick move
	cmdStop         // S
	cmdBrake        // B
	cmdMinStart     // M<n>
	cmdKick         // K<t>,<ms>[,<rampDownMs>,<maxApply>]
	cmdDiagOn       // D1
	cmdDiagOff      // D0
	cmdHWState      // ?
	cmdState        // ??
	cmdVersion      // V
	cmdIdent        // G
)

// command is a parsed protocol line. raw keeps the trimmed original text so
// responses can echo it back verbatim.
type command struct {
	kind     commandKind
	value    int
	kick     [4]int
	kickArgs int
	raw      string
}

// Kick argument clamp ceilings.
const (
	maxKickThrottle   = 100
	maxKickDurationMs = 2000
	maxKickRampDownMs = 2000
	maxKickApply      = 100
)

// parseLine decodes one trimmed, case-normalized protocol line. Unknown verbs
// and non-digit arguments yield cmdInvalid; out-of-range numeric values are
// clamped, never rejected. Kick is the exception: anything other than 2 or 4
// arguments is invalid.
func parseLine(line string) command {
	raw := strings.TrimSpace(line)
	upper := strings.ToUpper(raw)
	cmd := command{kind: cmdInvalid, raw: raw}

	switch upper {
	case "S":
		cmd.kind = cmdStop
		return cmd
	case "B":
		cmd.kind = cmdBrake
		return cmd
	case "D1":
		cmd.kind = cmdDiagOn
		return cmd
	case "D0":
		cmd.kind = cmdDiagOff
		return cmd
	case "?":
		cmd.kind = cmdHWState
		return cmd
	case "??":
		cmd.kind = cmdState
		return cmd
	case "V":
		cmd.kind = cmdVersion
		return cmd
	case "G":
		cmd.kind = cmdIdent
		return cmd
	}

	switch {
	case strings.HasPrefix(upper, "FQ"):
		return parseThrottleArg(cmd, cmdForwardQuick, upper[2:])
	case strings.HasPrefix(upper, "RQ"):
		return parseThrottleArg(cmd, cmdReverseQuick, upper[2:])
	case strings.HasPrefix(upper, "F"):
		return parseThrottleArg(cmd, cmdForward, upper[1:])
	case strings.HasPrefix(upper, "R"):
		return parseThrottleArg(cmd, cmdReverse, upper[1:])
	case strings.HasPrefix(upper, "M"):
		return parseThrottleArg(cmd, cmdMinStart, upper[1:])
	case strings.HasPrefix(upper, "K"):
		return parseKickArgs(cmd, upper[1:])
	}

	return cmd
}

func parseThrottleArg(cmd command, kind commandKind, arg string) command {
	n, ok := parseDigits(arg)
	if !ok {
		return cmd
	}
	cmd.kind = kind
	cmd.value = clampInt(n, 0, 100)
	return cmd
}

func parseKickArgs(cmd command, args string) command {
	parts := strings.Split(args, ",")
	if len(parts) != 2 && len(parts) != 4 {
		return cmd
	}
	ceilings := [4]int{maxKickThrottle, maxKickDurationMs, maxKickRampDownMs, maxKickApply}
	for i, part := range parts {
		n, ok := parseDigits(part)
		if !ok {
			return cmd
		}
		cmd.kick[i] = clampInt(n, 0, ceilings[i])
	}
	cmd.kind = cmdKick
	cmd.kickArgs = len(parts)
	return cmd
}

// parseDigits accepts pure digit sequences only. Values are capped well above
// every command's clamp ceiling so long inputs cannot overflow.
func parseDigits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
		if n > 1000000 {
			n = 1000000
		}
	}
	return n, true
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func ackResponse(raw string) string {
	return "ACK:" + raw
}

func errResponse(raw string) string {
	return "ERR:" + raw
}

func (k commandKind) isMotion() bool {
	switch k {
	case cmdForward, cmdReverse, cmdForwardQuick, cmdReverseQuick, cmdStop, cmdBrake:
		return true
	default:
		return false
	}
}

// isDirectional reports whether the command belongs to the forward/reverse
// family. Only these clear the forced-stop latch; S and B never do.
func (k commandKind) isDirectional() bool {
	switch k {
	case cmdForward, cmdReverse, cmdForwardQuick, cmdReverseQuick:
		return true
	default:
		return false
	}
}

func (k commandKind) direction() Direction {
	switch k {
	case cmdForward, cmdForwardQuick:
		return DirForward
	case cmdReverse, cmdReverseQuick:
		return DirReverse
	default:
		return DirStop
	}
}

func (k commandKind) isQuick() bool {
	return k == cmdForwardQuick || k == cmdReverseQuick
}
