package motion

import (
	"fmt"
	"strings"
)

// Preset is a named composition of axis writes.
type Preset string

const (
	Forward   Preset = "forward"
	Backward  Preset = "backward"
	LeftTurn  Preset = "left_turn"
	RightTurn Preset = "right_turn"
)

// Presets lists the built-in presets in menu order.
var Presets = []Preset{Forward, Backward, LeftTurn, RightTurn}

type presetWrite struct {
	axis  Axis
	value float32
}

// Axes not listed keep their current value.
var presetWrites = map[Preset][]presetWrite{
	Forward:   {{Pitch, -5}, {Roll, 0}, {Surge, 10}},
	Backward:  {{Pitch, 5}, {Roll, 0}, {Surge, -10}},
	LeftTurn:  {{Yaw, 5}, {Roll, 5}},
	RightTurn: {{Yaw, -5}, {Roll, -5}},
}

func (p Preset) String() string {
	return string(p)
}

func ParsePreset(name string) (Preset, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "-", "_")
	p := Preset(n)
	if _, ok := presetWrites[p]; !ok {
		return "", fmt.Errorf("unknown preset %q", name)
	}
	return p, nil
}

// Apply runs the preset through the clamping setters.
func (s *State) Apply(p Preset) error {
	writes, ok := presetWrites[p]
	if !ok {
		return fmt.Errorf("unknown preset %q", string(p))
	}
	for _, w := range writes {
		s.Set(w.axis, w.value)
	}
	return nil
}
