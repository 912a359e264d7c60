package motion

import (
	"math"
	"testing"
)

func TestSetClampsEveryAxis(t *testing.T) {
	inputs := []float32{0, 1.5, -7.25, 15, -15, 15.0001, -100, 1e9, -1e9}
	for _, axis := range Axes {
		for _, v := range inputs {
			s := NewState()
			s.Set(axis, v)
			got := s.Get(axis)
			if got > DefaultLimit || got < -DefaultLimit {
				t.Fatalf("%s: Set(%v) stored %v outside limit", axis, v, got)
			}
			if v <= DefaultLimit && v >= -DefaultLimit && got != v {
				t.Fatalf("%s: Set(%v) stored %v, want unchanged", axis, v, got)
			}
		}
	}
}

func TestSetNonFinite(t *testing.T) {
	s := NewState()
	s.Set(Pitch, 3)
	s.Set(Pitch, float32(math.NaN()))
	if got := s.Get(Pitch); got != 0 {
		t.Fatalf("NaN should store neutral, got %v", got)
	}
	s.Set(Roll, float32(math.Inf(1)))
	if got := s.Get(Roll); got != DefaultLimit {
		t.Fatalf("+Inf should clamp to %v, got %v", DefaultLimit, got)
	}
	s.Set(Roll, float32(math.Inf(-1)))
	if got := s.Get(Roll); got != -DefaultLimit {
		t.Fatalf("-Inf should clamp to %v, got %v", -DefaultLimit, got)
	}
	s.SetFromSlider(Yaw, float32(math.NaN()))
	if got := s.Get(Yaw); got != 0 {
		t.Fatalf("NaN slider should store neutral, got %v", got)
	}
}

func TestSetFromSlider(t *testing.T) {
	tests := []struct {
		name   string
		slider float32
		want   float32
	}{
		{name: "min", slider: 0, want: -15},
		{name: "mid", slider: 0.5, want: 0},
		{name: "max", slider: 1, want: 15},
		{name: "quarter", slider: 0.75, want: 7.5},
		{name: "below range", slider: -3, want: -15},
		{name: "above range", slider: 4, want: 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, axis := range Axes {
				s := NewState()
				s.SetFromSlider(axis, tt.slider)
				if got := s.Get(axis); got != tt.want {
					t.Fatalf("%s: SetFromSlider(%v) = %v, want %v", axis, tt.slider, got, tt.want)
				}
			}
		})
	}
}

func TestSliderInvertsSetFromSlider(t *testing.T) {
	s := NewState()
	s.SetFromSlider(Surge, 0.75)
	if got := s.Slider(Surge); got != 0.75 {
		t.Fatalf("Slider() = %v, want 0.75", got)
	}
}

func TestResetZeroesPose(t *testing.T) {
	s := NewState()
	for i, axis := range Axes {
		s.Set(axis, float32(i+1))
	}
	s.Reset()
	if s.Pose() != (Pose{}) {
		t.Fatalf("expected neutral pose, got %+v", s.Pose())
	}
}

func TestLimitsOptions(t *testing.T) {
	l := DefaultLimits()
	l[Heave] = 5
	l[Sway] = -1
	s := NewState(WithLimits(l), WithLimit(Yaw, 30), WithLimit(Pitch, float32(math.NaN())))

	if got := s.Limit(Heave); got != 5 {
		t.Fatalf("heave limit = %v, want 5", got)
	}
	if got := s.Limit(Sway); got != DefaultLimit {
		t.Fatalf("invalid sway limit should keep default, got %v", got)
	}
	if got := s.Limit(Yaw); got != 30 {
		t.Fatalf("yaw limit = %v, want 30", got)
	}
	if got := s.Limit(Pitch); got != DefaultLimit {
		t.Fatalf("NaN pitch limit should keep default, got %v", got)
	}

	s.Set(Heave, 9)
	if got := s.Get(Heave); got != 5 {
		t.Fatalf("heave = %v, want clamp to 5", got)
	}
}

func TestSetLimitReclamps(t *testing.T) {
	s := NewState()
	s.Set(Surge, 12)
	if err := s.SetLimit(Surge, 4); err != nil {
		t.Fatalf("SetLimit: %v", err)
	}
	if got := s.Get(Surge); got != 4 {
		t.Fatalf("surge = %v after tightening, want 4", got)
	}
	if err := s.SetLimit(Surge, 0); err == nil {
		t.Fatalf("expected error for zero limit")
	}
	if err := s.SetLimit(Axis(9), 3); err == nil {
		t.Fatalf("expected error for invalid axis")
	}
}

func TestInvalidAxisIgnored(t *testing.T) {
	s := NewState()
	s.Set(Axis(-1), 3)
	s.Set(Axis(6), 3)
	if s.Pose() != (Pose{}) {
		t.Fatalf("invalid axes must not mutate state: %+v", s.Pose())
	}
	if got := s.Get(Axis(42)); got != 0 {
		t.Fatalf("invalid axis read = %v", got)
	}
	if got := s.Limit(Axis(42)); got != 0 {
		t.Fatalf("invalid axis limit = %v", got)
	}
	if !Heave.Valid() || Axis(6).Valid() {
		t.Fatalf("unexpected axis validity")
	}
	if s.Limit(Yaw) != DefaultLimit || s.Limits()[Yaw] != DefaultLimit {
		t.Fatalf("default limit not reported")
	}
}

func TestParseAxis(t *testing.T) {
	for _, axis := range Axes {
		got, err := ParseAxis(" " + axis.String() + " ")
		if err != nil || got != axis {
			t.Fatalf("ParseAxis(%q) = %v, %v", axis.String(), got, err)
		}
	}
	if _, err := ParseAxis("HEAVE"); err != nil {
		t.Fatalf("case-insensitive parse failed: %v", err)
	}
	if _, err := ParseAxis("twist"); err == nil {
		t.Fatalf("expected error for unknown axis")
	}
}

func TestPoseValuesRoundTrip(t *testing.T) {
	p := Pose{Pitch: 1, Roll: 2, Yaw: 3, Sway: 4, Surge: 5, Heave: 6}
	if got := PoseFromValues(p.Values()); got != p {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	for i, axis := range Axes {
		if p.Get(axis) != float32(i+1) {
			t.Fatalf("Get(%s) = %v", axis, p.Get(axis))
		}
	}
}
