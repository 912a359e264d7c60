package protocol

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/FlyingDododo/6dof-application/pkg/motion"
)

var samplePose = motion.Pose{Pitch: -5, Roll: 1.25, Yaw: 14.5, Sway: -0.75, Surge: 10, Heave: -15}

func readFloats(t *testing.T, buf []byte, offset int) [motion.NumAxes]float32 {
	t.Helper()
	var out [motion.NumAxes]float32
	for i := range out {
		start := offset + i*4
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[start : start+4]))
	}
	return out
}

func TestEncodeStandardLayout(t *testing.T) {
	buf := Encode(samplePose, Standard)
	if len(buf) != 32 {
		t.Fatalf("unexpected length: %d", len(buf))
	}
	if !bytes.Equal(buf[:4], []byte{0xEB, 0x90, 0x01, 0x0A}) {
		t.Fatalf("unexpected header: % X", buf[:4])
	}
	if got := readFloats(t, buf, 4); got != samplePose.Values() {
		t.Fatalf("floats do not round trip: %v", got)
	}
	if !bytes.Equal(buf[28:], []byte{0, 0, 0, 0}) {
		t.Fatalf("reserved bytes not zero: % X", buf[28:])
	}
}

func TestEncodeStandardExactBytes(t *testing.T) {
	buf := EncodeStandard(motion.Pose{Pitch: 1, Heave: -2})
	want := []byte{
		0xEB, 0x90, 0x01, 0x0A,
		0x00, 0x00, 0x80, 0x3F, // 1.0
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0xC0, // -2.0
		0x00, 0x00, 0x00, 0x00,
	}
	if !bytes.Equal(buf, want) {
		t.Fatalf("unexpected bytes:\n got % X\nwant % X", buf, want)
	}
}

func TestEncodeAltLayout(t *testing.T) {
	buf := Encode(samplePose, Alt)
	if len(buf) != 123 {
		t.Fatalf("unexpected length: %d", len(buf))
	}
	if !bytes.Equal(buf[:4], []byte{0xEB, 0x90, 0x02, 0x7B}) {
		t.Fatalf("unexpected header: % X", buf[:4])
	}
	if !bytes.Equal(buf[119:], []byte{0x0A, 0x0A, 0x0A, 0xFF}) {
		t.Fatalf("unexpected trailer: % X", buf[119:])
	}
	if got := readFloats(t, buf, 16); got != samplePose.Values() {
		t.Fatalf("floats do not round trip: %v", got)
	}

	for i := 4; i < 16; i++ {
		if buf[i] != 0 {
			t.Fatalf("byte %d = 0x%02X, want 0", i, buf[i])
		}
	}
	for i := 40; i < 52; i++ {
		var want byte
		switch (i - 40) % 4 {
		case 2:
			want = 0x80
		case 3:
			want = 0x3F
		}
		if buf[i] != want {
			t.Fatalf("pattern byte %d = 0x%02X, want 0x%02X", i, buf[i], want)
		}
	}
	for i := 52; i < 119; i++ {
		if buf[i] != 0 {
			t.Fatalf("byte %d = 0x%02X, want 0", i, buf[i])
		}
	}
}

func TestEncodeAltPatternIndependentOfPose(t *testing.T) {
	a := EncodeAlt(motion.Pose{})
	b := EncodeAlt(samplePose)
	if !bytes.Equal(a[40:], b[40:]) {
		t.Fatalf("bytes after the pose region depend on the pose")
	}
}

func TestEncodeNeutralPose(t *testing.T) {
	s := motion.NewState()
	s.Set(motion.Surge, 9)
	s.Reset()
	buf := Encode(s.Pose(), Standard)
	for i := 4; i < 28; i++ {
		if buf[i] != 0 {
			t.Fatalf("byte %d = 0x%02X after reset", i, buf[i])
		}
	}
}

func TestEncodeUnknownVariantFallsBackToStandard(t *testing.T) {
	if !bytes.Equal(Encode(samplePose, Variant(0x7F)), EncodeStandard(samplePose)) {
		t.Fatalf("unknown variant should encode as standard")
	}
}

func TestEncodeReturnsFreshBuffers(t *testing.T) {
	a := Encode(samplePose, Standard)
	b := Encode(samplePose, Standard)
	a[4] = 0xAA
	if b[4] == 0xAA {
		t.Fatalf("encoder buffers are shared")
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	for _, v := range []Variant{Standard, Alt} {
		frame, err := Decode(Encode(samplePose, v))
		if err != nil {
			t.Fatalf("%s: decode: %v", v, err)
		}
		if frame.Variant != v {
			t.Fatalf("%s: variant = %s", v, frame.Variant)
		}
		if frame.Pose != samplePose {
			t.Fatalf("%s: pose = %+v", v, frame.Pose)
		}
	}
}

func TestDecodeReportsDeclaredLengthLiterally(t *testing.T) {
	frame, err := Decode(EncodeStandard(samplePose))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if frame.DeclaredLength != 0x0A || frame.Size != 32 {
		t.Fatalf("declared=%d size=%d", frame.DeclaredLength, frame.Size)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want string
	}{
		{name: "short", buf: []byte{0xEB, 0x90}, want: "too short"},
		{name: "sync", buf: []byte{0x00, 0x90, 0x01, 0x0A}, want: "sync"},
		{name: "variant", buf: []byte{0xEB, 0x90, 0x09, 0x0A}, want: "unknown variant"},
		{name: "size", buf: EncodeStandard(samplePose)[:28], want: "does not match"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.buf)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Decode error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestFormatHex(t *testing.T) {
	if got := FormatHex([]byte{0xEB, 0x90, 0x01, 0x0A}); got != "EB 90 01 0A" {
		t.Fatalf("FormatHex = %q", got)
	}
}

func TestVariantHelpers(t *testing.T) {
	if Standard.Toggle() != Alt || Alt.Toggle() != Standard {
		t.Fatalf("toggle mismatch")
	}
	if Alt.Header() != "EB 90 02" {
		t.Fatalf("header = %q", Alt.Header())
	}
	for in, want := range map[string]Variant{"standard": Standard, "ALT": Alt, "0x01": Standard, "2": Alt} {
		got, err := ParseVariant(in)
		if err != nil || got != want {
			t.Fatalf("ParseVariant(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseVariant("v3"); err == nil {
		t.Fatalf("expected error for unknown variant")
	}
	if Variant(3).Valid() {
		t.Fatalf("variant 3 should be invalid")
	}
}

func TestLayoutForCopiesFields(t *testing.T) {
	l, ok := LayoutFor(Alt)
	if !ok {
		t.Fatalf("alt layout missing")
	}
	if l.Fields[0].Offset != 16 || l.Fields[5].Offset != 36 {
		t.Fatalf("unexpected alt offsets: %+v", l.Fields)
	}
	l.Fields[0].Offset = 99
	again, _ := LayoutFor(Alt)
	if again.Fields[0].Offset != 16 {
		t.Fatalf("LayoutFor leaked internal slice")
	}
	if _, ok := LayoutFor(Variant(0)); ok {
		t.Fatalf("unexpected layout for variant 0")
	}
}
