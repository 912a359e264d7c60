package protocol

import (
	"fmt"

	"github.com/FlyingDododo/6dof-application/pkg/motion"
)

// Encode builds the datagram payload for pose in the given variant. Unknown
// variants are encoded as Standard. The result is always a fresh buffer.
func Encode(pose motion.Pose, v Variant) []byte {
	if v == Alt {
		return EncodeAlt(pose)
	}
	return EncodeStandard(pose)
}

// EncodeStandard lays out EB 90 01 0A, six floats at offset 4 and four zero bytes.
func EncodeStandard(pose motion.Pose) []byte {
	l := layouts[Standard]
	buf := make([]byte, l.Size)
	putHeader(buf, l)
	putPose(buf, l.Fields, pose)
	return buf
}

// EncodeAlt lays out EB 90 02 7B, six floats at offset 16, the fixed 40..51
// pattern and the 0A 0A 0A FF trailer. Bytes 52..118 are zero; their meaning
// on the chair side is unknown.
func EncodeAlt(pose motion.Pose) []byte {
	l := layouts[Alt]
	buf := make([]byte, l.Size)
	putHeader(buf, l)
	putPose(buf, l.Fields, pose)
	for i := altPatternStart; i < altPatternEnd; i++ {
		switch (i - altPatternStart) % 4 {
		case 2:
			buf[i] = 0x80
		case 3:
			buf[i] = 0x3F
		}
	}
	copy(buf[l.Size-len(altTrailer):], altTrailer[:])
	return buf
}

// Decode parses a packet back into its pose. The true buffer length must match
// the variant's layout; the declared length byte is reported but not trusted.
func Decode(buf []byte) (Frame, error) {
	if len(buf) < HeaderSize {
		return Frame{}, fmt.Errorf("packet too short: %d bytes", len(buf))
	}
	if buf[0] != Sync0 || buf[1] != Sync1 {
		return Frame{}, fmt.Errorf("bad sync bytes %02X %02X", buf[0], buf[1])
	}
	v := Variant(buf[2])
	l, ok := layouts[v]
	if !ok {
		return Frame{}, fmt.Errorf("unknown variant id 0x%02x", buf[2])
	}
	if len(buf) != l.Size {
		return Frame{}, fmt.Errorf("packet size %d does not match %s size %d", len(buf), v, l.Size)
	}
	pose, err := readPose(buf, l.Fields)
	if err != nil {
		return Frame{}, fmt.Errorf("decode %s packet: %w", v, err)
	}
	return Frame{
		Variant:        v,
		DeclaredLength: buf[3],
		Size:           len(buf),
		Pose:           pose,
	}, nil
}

// FormatHex renders bytes as upper-case, space separated hex ("EB 90 01 0A").
func FormatHex(buf []byte) string {
	return fmt.Sprintf("% X", buf)
}

func putHeader(buf []byte, l Layout) {
	buf[0] = Sync0
	buf[1] = Sync1
	buf[2] = uint8(l.Variant)
	buf[3] = l.DeclaredLength
}
