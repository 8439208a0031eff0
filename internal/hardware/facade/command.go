package facade

import (
	"strconv"
	"strings"
	"time"
)

// Command verbs understood by device actors.
const (
	VerbOn         = "ON"
	VerbOff        = "OFF"
	VerbToggle     = "TOGGLE"
	VerbBlink      = "BLINK"
	VerbState      = "STATE"
	VerbBeep       = "BEEP"
	VerbBuzzerOn   = "BUZZER_ON"
	VerbBuzzerOff  = "BUZZER_OFF"
	VerbGreenLED   = "GREEN_LED"
	VerbConnect    = "CONNECT"
	VerbDisconnect = "DISCONNECT"
	VerbRaise      = "RAISE"
	VerbGetState   = "GET_STATE"
	VerbSetState   = "SET_STATE"
	VerbDisarm     = "DISARM"
)

// KnownVerb reports whether verb is understood by some device actor.
func KnownVerb(verb string) bool {
	switch verb {
	case VerbOn, VerbOff, VerbToggle, VerbBlink, VerbState, VerbBeep,
		VerbBuzzerOn, VerbBuzzerOff, VerbGreenLED, VerbConnect, VerbDisconnect,
		VerbRaise, VerbGetState, VerbSetState, VerbDisarm:
		return true
	}
	return false
}

// IsQuery reports whether verb is answered with data instead of OK or KO.
func IsQuery(verb string) bool {
	return verb == VerbState || verb == VerbGetState || verb == VerbRaise
}

// Replies.
const (
	ReplyOK       = "OK"
	ReplyKO       = "KO"
	ReplyBlinking = "BLINKING"
)

// Param is one positional command parameter: an integer or a string.
type Param struct {
	text string
}

// Int returns an integer parameter.
func Int(v int64) Param { return Param{text: strconv.FormatInt(v, 10)} }

// Str returns a string parameter.
func Str(s string) Param { return Param{text: s} }

// Millis returns d as an integer number of milliseconds.
func Millis(d time.Duration) Param { return Int(d.Milliseconds()) }

// Command is a verb and its parameters. It is immutable once built.
type Command struct {
	verb   string
	params []Param
}

// NewCommand builds a command.
func NewCommand(verb string, params ...Param) Command {
	p := make([]Param, len(params))
	copy(p, params)
	return Command{verb: verb, params: p}
}

// Verb returns the command verb.
func (c Command) Verb() string { return c.verb }

// Frames returns the verb followed by each parameter, in order.
func (c Command) Frames() []string {
	frames := make([]string, 0, len(c.params)+1)
	frames = append(frames, c.verb)
	for _, p := range c.params {
		frames = append(frames, p.text)
	}
	return frames
}

func (c Command) String() string {
	return strings.Join(c.Frames(), " ")
}
