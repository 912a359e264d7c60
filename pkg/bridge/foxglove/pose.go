package foxglove

import (
	"math"

	"github.com/FlyingDododo/6dof-application/pkg/motion"
)

const degToRad = math.Pi / 180.0

// Rotation converts the pose's pitch, roll and yaw (degrees) into a unit
// quaternion. Roll turns about X (forward), pitch about Y, yaw about Z.
func Rotation(p motion.Pose) Quaternion {
	roll := float64(p.Roll) * degToRad
	pitch := float64(p.Pitch) * degToRad
	yaw := float64(p.Yaw) * degToRad

	cr := math.Cos(roll * 0.5)
	sr := math.Sin(roll * 0.5)
	cp := math.Cos(pitch * 0.5)
	sp := math.Sin(pitch * 0.5)
	cy := math.Cos(yaw * 0.5)
	sy := math.Sin(yaw * 0.5)

	// ZYX intrinsic rotation (yaw -> pitch -> roll).
	w := cr*cp*cy + sr*sp*sy
	x := sr*cp*cy - cr*sp*sy
	y := cr*sp*cy + sr*cp*sy
	z := cr*cp*sy - sr*sp*cy

	norm := math.Sqrt(w*w + x*x + y*y + z*z)
	if norm == 0 {
		return Quaternion{W: 1}
	}
	inv := 1.0 / norm
	return Quaternion{W: w * inv, X: x * inv, Y: y * inv, Z: z * inv}
}

// Translation maps surge to X, sway to Y and heave to Z, divided by scale.
func Translation(p motion.Pose, scale float64) Vector3 {
	if scale <= 0 {
		scale = 1
	}
	return Vector3{
		X: float64(p.Surge) / scale,
		Y: float64(p.Sway) / scale,
		Z: float64(p.Heave) / scale,
	}
}
