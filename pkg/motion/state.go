// Package motion holds the six-axis pose of the platform and keeps every axis
// inside its safety limit.
package motion

import (
	"fmt"
	"math"
	"strings"
)

// Axis identifies one degree of freedom. The numeric order is the wire order.
type Axis int

const (
	Pitch Axis = iota
	Roll
	Yaw
	Sway
	Surge
	Heave
)

// NumAxes is the number of degrees of freedom carried by a pose.
const NumAxes = 6

// DefaultLimit is the maximum magnitude applied to every axis unless configured.
const DefaultLimit float32 = 15

// Axes lists every axis in wire order.
var Axes = [NumAxes]Axis{Pitch, Roll, Yaw, Sway, Surge, Heave}

var axisNames = [NumAxes]string{"pitch", "roll", "yaw", "sway", "surge", "heave"}

func (a Axis) String() string {
	if !a.Valid() {
		return fmt.Sprintf("axis(%d)", int(a))
	}
	return axisNames[a]
}

// Valid reports whether a is one of the six axes.
func (a Axis) Valid() bool {
	return a >= Pitch && a <= Heave
}

// ParseAxis resolves an axis from its name, ignoring case and surrounding space.
func ParseAxis(name string) (Axis, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, candidate := range axisNames {
		if candidate == n {
			return Axis(i), nil
		}
	}
	return 0, fmt.Errorf("unknown axis %q", name)
}

// Pose is an immutable snapshot of the six axis values.
type Pose struct {
	Pitch float32 `json:"pitch"`
	Roll  float32 `json:"roll"`
	Yaw   float32 `json:"yaw"`
	Sway  float32 `json:"sway"`
	Surge float32 `json:"surge"`
	Heave float32 `json:"heave"`
}

// Get returns the value of one axis. Invalid axes read as zero.
func (p Pose) Get(a Axis) float32 {
	switch a {
	case Pitch:
		return p.Pitch
	case Roll:
		return p.Roll
	case Yaw:
		return p.Yaw
	case Sway:
		return p.Sway
	case Surge:
		return p.Surge
	case Heave:
		return p.Heave
	default:
		return 0
	}
}

// Values returns the pose in wire order.
func (p Pose) Values() [NumAxes]float32 {
	return [NumAxes]float32{p.Pitch, p.Roll, p.Yaw, p.Sway, p.Surge, p.Heave}
}

// PoseFromValues builds a pose from values in wire order.
func PoseFromValues(v [NumAxes]float32) Pose {
	return Pose{Pitch: v[0], Roll: v[1], Yaw: v[2], Sway: v[3], Surge: v[4], Heave: v[5]}
}

// Limits holds the maximum absolute magnitude of each axis, indexed by Axis.
type Limits [NumAxes]float32

// DefaultLimits returns DefaultLimit for every axis.
func DefaultLimits() Limits {
	var l Limits
	for i := range l {
		l[i] = DefaultLimit
	}
	return l
}

// State is the live, clamped pose. It is not safe for concurrent use; a single
// driver owns it.
type State struct {
	values [NumAxes]float32
	limits Limits
}

type Option func(*State)

// WithLimits replaces all limits. Entries that are not usable limits are skipped.
func WithLimits(l Limits) Option {
	return func(s *State) {
		for i, limit := range l {
			if validLimit(limit) {
				s.limits[i] = limit
			}
		}
	}
}

func WithLimit(a Axis, limit float32) Option {
	return func(s *State) {
		if a.Valid() && validLimit(limit) {
			s.limits[a] = limit
		}
	}
}

// NewState returns a state with every axis at zero.
func NewState(opts ...Option) *State {
	s := &State{limits: DefaultLimits()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the commanded value of a, or 0 for an unknown axis.
func (s *State) Get(a Axis) float32 {
	if !a.Valid() {
		return 0
	}
	return s.values[a]
}

// Limit returns the maximum magnitude a may take.
func (s *State) Limit(a Axis) float32 {
	if !a.Valid() {
		return 0
	}
	return s.limits[a]
}

// Limits returns a copy of every axis limit.
func (s *State) Limits() Limits {
	return s.limits
}

// Set stores value clamped to [-limit, limit]. NaN stores the neutral value 0.
func (s *State) Set(a Axis, value float32) {
	if !a.Valid() {
		return
	}
	s.values[a] = clamp(value, s.limits[a])
}

// SetFromSlider maps a normalized slider position in [0,1] onto [-limit, limit].
// Positions outside [0,1] are clamped like any other value.
func (s *State) SetFromSlider(a Axis, normalized float32) {
	if !a.Valid() {
		return
	}
	s.Set(a, (normalized*2-1)*s.limits[a])
}

// Slider returns the normalized slider position of the current axis value.
func (s *State) Slider(a Axis) float32 {
	if !a.Valid() {
		return 0.5
	}
	return (s.values[a]/s.limits[a] + 1) / 2
}

// SetLimit changes the limit of one axis and re-clamps its current value.
func (s *State) SetLimit(a Axis, limit float32) error {
	if !a.Valid() {
		return fmt.Errorf("invalid axis %d", int(a))
	}
	if !validLimit(limit) {
		return fmt.Errorf("invalid %s limit %v", a, limit)
	}
	s.limits[a] = limit
	s.values[a] = clamp(s.values[a], limit)
	return nil
}

// Reset commands the neutral pose.
func (s *State) Reset() {
	for _, a := range Axes {
		s.Set(a, 0)
	}
}

func (s *State) Pose() Pose {
	return PoseFromValues(s.values)
}

func clamp(v float32, limit float32) float32 {
	if math.IsNaN(float64(v)) {
		return 0
	}
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}

func validLimit(limit float32) bool {
	f := float64(limit)
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}
