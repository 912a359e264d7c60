package protocol

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/FlyingDododo/6dof-application/pkg/motion"
)

// FieldDef places one little-endian float32 axis value inside a packet.
type FieldDef struct {
	Name   string
	Axis   motion.Axis
	Offset int
	Size   int
}

// Layout describes one wire variant.
type Layout struct {
	Variant        Variant
	Size           int
	DeclaredLength uint8
	Fields         []FieldDef
}

const (
	StandardSize = 32
	AltSize      = 123

	// StandardDeclaredLength is what the chair firmware expects in header byte 3.
	// It does not match StandardSize and is kept as observed.
	StandardDeclaredLength uint8 = 0x0A
	AltDeclaredLength      uint8 = 0x7B

	standardPoseOffset = 4
	altPoseOffset      = 16

	altPatternStart = 40
	altPatternEnd   = 52
)

var altTrailer = [4]byte{0x0A, 0x0A, 0x0A, 0xFF}

var layouts = map[Variant]Layout{
	Standard: {
		Variant:        Standard,
		Size:           StandardSize,
		DeclaredLength: StandardDeclaredLength,
		Fields:         poseFields(standardPoseOffset),
	},
	Alt: {
		Variant:        Alt,
		Size:           AltSize,
		DeclaredLength: AltDeclaredLength,
		Fields:         poseFields(altPoseOffset),
	},
}

// LayoutFor returns the layout of a known variant.
func LayoutFor(v Variant) (Layout, bool) {
	l, ok := layouts[v]
	if !ok {
		return Layout{}, false
	}
	l.Fields = append([]FieldDef(nil), l.Fields...)
	return l, true
}

func poseFields(offset int) []FieldDef {
	fields := make([]FieldDef, 0, motion.NumAxes)
	for i, axis := range motion.Axes {
		fields = append(fields, FieldDef{
			Name:   axis.String(),
			Axis:   axis,
			Offset: offset + i*4,
			Size:   4,
		})
	}
	return fields
}

func putPose(buf []byte, fields []FieldDef, pose motion.Pose) {
	for _, f := range fields {
		binary.LittleEndian.PutUint32(buf[f.Offset:f.Offset+f.Size], math.Float32bits(pose.Get(f.Axis)))
	}
}

func readPose(buf []byte, fields []FieldDef) (motion.Pose, error) {
	var values [motion.NumAxes]float32
	for _, f := range fields {
		end := f.Offset + f.Size
		if end > len(buf) {
			return motion.Pose{}, fmt.Errorf("field %s out of range", f.Name)
		}
		values[f.Axis] = math.Float32frombits(binary.LittleEndian.Uint32(buf[f.Offset:end]))
	}
	return motion.PoseFromValues(values), nil
}
