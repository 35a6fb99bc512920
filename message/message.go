// Package message implements the engine's routable, optionally delayed
// directives: the Message type, the time-ordered Queue that holds them until
// their tick, and the binary script format used for message logs.
package message

import (
	"strconv"
	"strings"
)

// Immediate is the timer value of a message that is due on whatever tick it
// is read.
const Immediate int64 = -1

// ArgSeparator delimits command arguments on disk and in log output.
const ArgSeparator = ";"

// Message is a directive routed to a named subsystem, optionally addressed to
// an entity by name and optionally delayed until an absolute tick.
type Message struct {
	Timer  int64    `yaml:"timer"`
	System string   `yaml:"system"`
	To     string   `yaml:"to,omitempty"`
	From   string   `yaml:"from,omitempty"`
	Cmd    string   `yaml:"cmd"`
	Args   []string `yaml:"args,omitempty"`
}

// New creates an immediate message.
func New(system, to, from, cmd string, args ...string) Message {
	return Message{
		Timer:  Immediate,
		System: system,
		To:     to,
		From:   from,
		Cmd:    cmd,
		Args:   args,
	}
}

// At returns a copy of m scheduled for the given tick.
func (m Message) At(tick int64) Message {
	m.Timer = tick
	return m
}

// IsImmediate reports whether m is due on any tick.
func (m Message) IsImmediate() bool {
	return m.Timer == Immediate
}

// Arg returns the i-th argument or the empty string.
func (m Message) Arg(i int) string {
	if i < 0 || i >= len(m.Args) {
		return ""
	}
	return m.Args[i]
}

// JoinArgs renders an argument list in its delimited form.
func JoinArgs(args []string) string {
	return strings.Join(args, ArgSeparator)
}

// SplitArgs parses a delimited argument list. The empty string yields no
// arguments.
func SplitArgs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ArgSeparator)
}

func (m Message) String() string {
	var sb strings.Builder
	if m.IsImmediate() {
		sb.WriteString("@now")
	} else {
		sb.WriteString("@")
		sb.WriteString(strconv.FormatInt(m.Timer, 10))
	}
	sb.WriteString(" ")
	sb.WriteString(m.System)
	sb.WriteString(" ")
	sb.WriteString(m.From)
	sb.WriteString("->")
	sb.WriteString(m.To)
	sb.WriteString(" ")
	sb.WriteString(m.Cmd)
	if len(m.Args) > 0 {
		sb.WriteString("(")
		sb.WriteString(JoinArgs(m.Args))
		sb.WriteString(")")
	}
	return sb.String()
}
