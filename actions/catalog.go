// Package actions detects button chords in controller input and runs the
// special actions bound to them.
package actions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Alia5/padbridge/pad"
)

// Kind is the closed set of special action types.
type Kind uint8

const (
	KindMacro Kind = iota + 1
	KindLaunchProgram
	KindLoadProfile
	KindSendKey
	KindDisconnect
	KindBatteryCheck
	KindMultiAction
	KindCalibration
)

var (
	ErrUnknownKind   = errors.New("unknown action kind")
	ErrInvalidAction = errors.New("invalid action")
)

var kindNames = map[Kind]string{
	KindMacro:         "macro",
	KindLaunchProgram: "launch-program",
	KindLoadProfile:   "load-profile",
	KindSendKey:       "send-key",
	KindDisconnect:    "disconnect",
	KindBatteryCheck:  "battery-check",
	KindMultiAction:   "multi-action",
	KindCalibration:   "calibration",
}

// Legacy profile files spell kinds differently.
var kindAliases = map[string]Kind{
	"program":       KindLaunchProgram,
	"profile":       KindLoadProfile,
	"key":           KindSendKey,
	"disconnectbt":  KindDisconnect,
	"batterycheck":  KindBatteryCheck,
	"multiaction":   KindMultiAction,
	"gyrocalibrate": KindCalibration,
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind resolves a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == key {
			return k, nil
		}
	}
	if k, ok := kindAliases[key]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Chord is the set of controls that must all be held for an action to be
// active.
type Chord []pad.Control

// ParseChord parses "L1+R1+Cross" or "PS/Options". Duplicates are dropped.
func ParseChord(s string) (Chord, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == '+' || r == '/' })
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty trigger", ErrInvalidAction)
	}
	var out Chord
	seen := map[pad.Control]bool{}
	for _, f := range fields {
		c, err := pad.ParseControl(f)
		if err != nil {
			return nil, fmt.Errorf("%w: trigger %q: %w", ErrInvalidAction, s, err)
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}

// Active reports whether every control of the chord is pressed.
func (c Chord) Active(s *pad.State) bool {
	if len(c) == 0 {
		return false
	}
	for _, ctl := range c {
		if !s.Pressed(ctl) {
			return false
		}
	}
	return true
}

func (c Chord) String() string {
	parts := make([]string, len(c))
	for i, ctl := range c {
		parts[i] = ctl.String()
	}
	return strings.Join(parts, "+")
}

// Descriptor is one configured special action.
type Descriptor struct {
	Name    string
	Trigger Chord
	Kind    Kind
	// Details is the kind-specific payload: macro codes, program path,
	// profile name, key code or battery-check settings.
	Details string
}

// NormalizeName trims surrounding whitespace from an action name.
func NormalizeName(s string) string {
	return strings.TrimSpace(s)
}

// DefaultActionName is the action every catalog loaded from a file carries.
const DefaultActionName = "Disconnect Controller"

// DefaultAction disconnects the pad when PS and Options are held together.
func DefaultAction() Descriptor {
	return Descriptor{
		Name:    DefaultActionName,
		Trigger: Chord{pad.PS, pad.Options},
		Kind:    KindDisconnect,
		Details: "0",
	}
}

// Catalog is an immutable, indexed list of actions.
type Catalog struct {
	actions []Descriptor
	byName  map[string]int
}

// NewCatalog validates descs and builds a catalog. Names are normalized and
// must be unique case-insensitively.
func NewCatalog(descs []Descriptor) (*Catalog, error) {
	c := &Catalog{
		actions: make([]Descriptor, 0, len(descs)),
		byName:  make(map[string]int, len(descs)),
	}
	for i, d := range descs {
		d.Name = NormalizeName(d.Name)
		if d.Name == "" {
			return nil, fmt.Errorf("%w: action %d has no name", ErrInvalidAction, i)
		}
		if len(d.Trigger) == 0 {
			return nil, fmt.Errorf("%w: %q has no trigger", ErrInvalidAction, d.Name)
		}
		if _, ok := kindNames[d.Kind]; !ok {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidAction, d.Name, ErrUnknownKind)
		}
		key := strings.ToLower(d.Name)
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidAction, d.Name)
		}
		c.byName[key] = len(c.actions)
		c.actions = append(c.actions, d)
	}
	return c, nil
}

// Len returns the number of actions.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.actions)
}

// At returns the action at index i.
func (c *Catalog) At(i int) Descriptor { return c.actions[i] }

// Index returns the position of the named action.
func (c *Catalog) Index(name string) (int, bool) {
	if c == nil {
		return 0, false
	}
	i, ok := c.byName[strings.ToLower(NormalizeName(name))]
	return i, ok
}

// All returns a copy of the actions.
func (c *Catalog) All() []Descriptor {
	if c == nil {
		return nil
	}
	return append([]Descriptor(nil), c.actions...)
}

// WithDefault returns c with DefaultAction prepended unless an action of
// that name already exists.
func (c *Catalog) WithDefault() *Catalog {
	if _, ok := c.Index(DefaultActionName); ok {
		return c
	}
	out, _ := NewCatalog(append([]Descriptor{DefaultAction()}, c.All()...))
	return out
}
