package protocol

import (
	"fmt"
	"strings"

	"github.com/FlyingDododo/6dof-application/pkg/motion"
)

// Sync bytes opening every chair packet.
const (
	Sync0 byte = 0xEB
	Sync1 byte = 0x90
)

// HeaderSize is the length of {sync0, sync1, variant id, declared length}.
const HeaderSize = 4

// Variant selects the wire format. Its value is the id carried in header byte 2.
type Variant uint8

const (
	Standard Variant = 0x01
	Alt      Variant = 0x02
)

func (v Variant) String() string {
	switch v {
	case Standard:
		return "standard"
	case Alt:
		return "alt"
	default:
		return fmt.Sprintf("variant(0x%02x)", uint8(v))
	}
}

// Valid reports whether v has a known layout.
func (v Variant) Valid() bool {
	return v == Standard || v == Alt
}

// Toggle returns the other variant.
func (v Variant) Toggle() Variant {
	if v == Alt {
		return Standard
	}
	return Alt
}

// Header renders the variant the way operators read it off a capture, e.g. "EB 90 01".
func (v Variant) Header() string {
	return fmt.Sprintf("%02X %02X %02X", Sync0, Sync1, uint8(v))
}

// ParseVariant accepts a name ("standard", "alt") or a numeric id ("1", "0x02").
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard", "std", "eb9001", "0x01", "1":
		return Standard, nil
	case "alt", "alternate", "eb9002", "0x02", "2":
		return Alt, nil
	default:
		return 0, fmt.Errorf("unknown protocol variant %q", s)
	}
}

// Frame is a decoded packet, used for display only.
type Frame struct {
	Variant        Variant     `json:"variant"`
	DeclaredLength uint8       `json:"declared_length"`
	Size           int         `json:"size"`
	Pose           motion.Pose `json:"pose"`
}
