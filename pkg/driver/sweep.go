package driver

import (
	"math"
	"time"

	"github.com/FlyingDododo/6dof-application/pkg/motion"
)

// Wave moves one axis as Amplitude*limit*sin(2*pi*FreqHz*t + Phase).
// Amplitude is a fraction of the axis limit.
type Wave struct {
	Axis      motion.Axis
	Amplitude float64
	FreqHz    float64
	Phase     float64
}

// DefaultWaves rocks the seat on pitch, roll and yaw at unrelated rates so the
// motion does not visibly repeat.
var DefaultWaves = []Wave{
	{Axis: motion.Roll, Amplitude: 0.7, FreqHz: 0.23},
	{Axis: motion.Pitch, Amplitude: 0.5, FreqHz: 0.31, Phase: math.Pi / 3},
	{Axis: motion.Yaw, Amplitude: 0.8, FreqHz: 0.17, Phase: 2 * math.Pi / 3},
}

type Sweep struct {
	state *motion.State
	waves []Wave
}

func NewSweep(state *motion.State, waves ...Wave) *Sweep {
	if len(waves) == 0 {
		waves = DefaultWaves
	}
	return &Sweep{state: state, waves: append([]Wave(nil), waves...)}
}

// Step writes every wave's value at since through the clamping setters.
func (s *Sweep) Step(since time.Duration) {
	t := since.Seconds()
	for _, w := range s.waves {
		limit := float64(s.state.Limit(w.Axis))
		v := w.Amplitude * limit * math.Sin(2*math.Pi*w.FreqHz*t+w.Phase)
		s.state.Set(w.Axis, float32(v))
	}
}
