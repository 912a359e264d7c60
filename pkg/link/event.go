package link

import (
	"time"

	"github.com/FlyingDododo/6dof-application/pkg/motion"
	"github.com/FlyingDododo/6dof-application/pkg/protocol"
)

// Kind classifies an Event.
type Kind int

const (
	ConnectSucceeded Kind = iota + 1
	ConnectFailed
	Disconnected
	PacketSent
	SendFailed
	PresetExecuted
	VariantChanged
	MotionReset
)

var kindNames = map[Kind]string{
	ConnectSucceeded: "connect_succeeded",
	ConnectFailed:    "connect_failed",
	Disconnected:     "disconnected",
	PacketSent:       "packet_sent",
	SendFailed:       "send_failed",
	PresetExecuted:   "preset_executed",
	VariantChanged:   "variant_changed",
	MotionReset:      "motion_reset",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Failure reports whether the kind signals an error.
func (k Kind) Failure() bool {
	return k == ConnectFailed || k == SendFailed
}

// Event is one observable outcome of the command link. Packet is owned by the
// event; the link never touches it again.
type Event struct {
	Kind        Kind
	Time        time.Time
	Destination string
	Variant     protocol.Variant
	Packet      []byte
	Pose        motion.Pose
	Preset      motion.Preset
	Err         error
}

// Sink receives link events synchronously on the driver's goroutine.
// Implementations must not block.
type Sink interface {
	Handle(Event)
}

type SinkFunc func(Event)

func (f SinkFunc) Handle(ev Event) { f(ev) }

// Fanout delivers each event to every sink in order.
type Fanout []Sink

func (f Fanout) Handle(ev Event) {
	for _, s := range f {
		if s != nil {
			s.Handle(ev)
		}
	}
}
