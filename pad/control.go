package pad

import (
	"fmt"
	"strings"
)

// Control identifies a single digital input usable in an action chord.
type Control uint8

const (
	ControlNone Control = iota
	Cross
	Circle
	Square
	Triangle
	L1
	R1
	L2
	R2
	L3
	R3
	Share
	Options
	PS
	DpadUp
	DpadDown
	DpadLeft
	DpadRight
	SideL
	SideR
	BLP
	BRP
	FnL
	FnR
	Capture

	controlCount
)

var controlNames = [controlCount]string{
	ControlNone: "None",
	Cross:       "Cross",
	Circle:      "Circle",
	Square:      "Square",
	Triangle:    "Triangle",
	L1:          "L1",
	R1:          "R1",
	L2:          "L2",
	R2:          "R2",
	L3:          "L3",
	R3:          "R3",
	Share:       "Share",
	Options:     "Options",
	PS:          "PS",
	DpadUp:      "Up",
	DpadDown:    "Down",
	DpadLeft:    "Left",
	DpadRight:   "Right",
	SideL:       "SideL",
	SideR:       "SideR",
	BLP:         "BLP",
	BRP:         "BRP",
	FnL:         "FnL",
	FnR:         "FnR",
	Capture:     "Capture",
}

var controlAliases = map[string]Control{
	"dpadup":    DpadUp,
	"dpaddown":  DpadDown,
	"dpadleft":  DpadLeft,
	"dpadright": DpadRight,
	"a":         Cross,
	"b":         Circle,
	"x":         Square,
	"y":         Triangle,
	"select":    Share,
	"back":      Share,
	"start":     Options,
	"home":      PS,
	"guide":     PS,
	"lb":        L1,
	"rb":        R1,
	"lt":        L2,
	"rt":        R2,
	"ls":        L3,
	"rs":        R3,
	"fn":        Capture,
	// No touchpad on this pad; the capture key takes its place.
	"touchbutton": Capture,
	"touchpad":    Capture,
}

var controlByName = func() map[string]Control {
	m := make(map[string]Control, len(controlNames)+len(controlAliases))
	for c := Control(1); c < controlCount; c++ {
		m[strings.ToLower(controlNames[c])] = c
	}
	for k, v := range controlAliases {
		m[k] = v
	}
	return m
}()

func (c Control) String() string {
	if c < controlCount {
		return controlNames[c]
	}
	return fmt.Sprintf("Control(%d)", uint8(c))
}

// ParseControl resolves a control name case-insensitively.
func ParseControl(s string) (Control, error) {
	if c, ok := controlByName[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c, nil
	}
	return ControlNone, fmt.Errorf("unknown control %q", s)
}

// Controls returns every valid control in declaration order.
func Controls() []Control {
	out := make([]Control, 0, controlCount-1)
	for c := Control(1); c < controlCount; c++ {
		out = append(out, c)
	}
	return out
}

// Pressed reports whether the control is active in s.
func (s *State) Pressed(c Control) bool {
	switch c {
	case Cross:
		return s.Cross
	case Circle:
		return s.Circle
	case Square:
		return s.Square
	case Triangle:
		return s.Triangle
	case L1:
		return s.L1
	case R1:
		return s.R1
	case L2:
		return s.L2Pressed()
	case R2:
		return s.R2Pressed()
	case L3:
		return s.L3
	case R3:
		return s.R3
	case Share:
		return s.Share
	case Options:
		return s.Options
	case PS:
		return s.PS
	case DpadUp:
		return s.DpadUp
	case DpadDown:
		return s.DpadDown
	case DpadLeft:
		return s.DpadLeft
	case DpadRight:
		return s.DpadRight
	case SideL:
		return s.SideL
	case SideR:
		return s.SideR
	case BLP:
		return s.BLP
	case BRP:
		return s.BRP
	case FnL:
		return s.FnL
	case FnR:
		return s.FnR
	case Capture:
		return s.Capture
	default:
		return false
	}
}
