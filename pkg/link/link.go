// Package link drives the motion platform over a datagram transport: it owns the
// session, paces transmissions from a caller-supplied tick and reports every
// outcome to a Sink.
//
// A Link is cooperative and single-threaded. Every method must be called from
// the one goroutine that drives it (a UI update loop or driver.Loop).
package link

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/FlyingDododo/6dof-application/pkg/motion"
	"github.com/FlyingDododo/6dof-application/pkg/protocol"
	"github.com/FlyingDododo/6dof-application/pkg/transport"
)

// DefaultSendInterval gives the reference 20 Hz command rate.
const DefaultSendInterval = 50 * time.Millisecond

var (
	ErrAlreadyConnected = errors.New("link already connected")
	ErrNotConnected     = errors.New("link not connected")
)

// SessionState is Disconnected or Connected; there is no intermediate state.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnected
)

func (s SessionState) String() string {
	if s == StateConnected {
		return "connected"
	}
	return "disconnected"
}

// TickPolicy decides what happens to accumulated time once a packet is sent.
type TickPolicy int

const (
	// ResetOnSend zeroes the accumulator after each send; slow frames drift.
	ResetOnSend TickPolicy = iota
	// CarryOver keeps the remainder modulo the interval so the average rate holds.
	CarryOver
)

func (p TickPolicy) String() string {
	if p == CarryOver {
		return "carry"
	}
	return "reset"
}

// Transport is the datagram channel owned by one session.
type Transport interface {
	Send(payload []byte) error
	Close() error
}

// DialFunc allocates a transport bound to host:port.
type DialFunc func(host string, port int) (Transport, error)

// UDPDialer returns a DialFunc backed by transport.Dial.
func UDPDialer(opts ...transport.Option) DialFunc {
	return func(host string, port int) (Transport, error) {
		s, err := transport.Dial(host, port, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

type Link struct {
	motion   *motion.State
	dial     DialFunc
	sink     Sink
	interval time.Duration
	policy   TickPolicy
	variant  protocol.Variant
	now      func() time.Time

	state SessionState
	conn  Transport
	host  string
	port  int
	accum time.Duration
}

type Option func(*Link)

func WithDialer(dial DialFunc) Option {
	return func(l *Link) {
		if dial != nil {
			l.dial = dial
		}
	}
}

// WithSink adds an observer. Multiple sinks receive events in registration order.
func WithSink(s Sink) Option {
	return func(l *Link) {
		if s == nil {
			return
		}
		switch cur := l.sink.(type) {
		case nil:
			l.sink = s
		case Fanout:
			l.sink = append(cur, s)
		default:
			l.sink = Fanout{cur, s}
		}
	}
}

func WithSendInterval(d time.Duration) Option {
	return func(l *Link) {
		if d > 0 {
			l.interval = d
		}
	}
}

func WithTickPolicy(p TickPolicy) Option {
	return func(l *Link) {
		l.policy = p
	}
}

func WithVariant(v protocol.Variant) Option {
	return func(l *Link) {
		if v.Valid() {
			l.variant = v
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Link) {
		if now != nil {
			l.now = now
		}
	}
}

// New returns a disconnected link commanding state.
func New(state *motion.State, opts ...Option) *Link {
	if state == nil {
		state = motion.NewState()
	}
	l := &Link{
		motion:   state,
		dial:     UDPDialer(),
		interval: DefaultSendInterval,
		policy:   ResetOnSend,
		variant:  protocol.Standard,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Link) Motion() *motion.State { return l.motion }
func (l *Link) State() SessionState { return l.state }
func (l *Link) Connected() bool { return l.state == StateConnected }
func (l *Link) Variant() protocol.Variant { return l.variant }
func (l *Link) SendInterval() time.Duration { return l.interval }
func (l *Link) TickPolicy() TickPolicy { return l.policy }
func (l *Link) Pending() time.Duration { return l.accum }

// Destination returns the host:port of the current or last session.
func (l *Link) Destination() string {
	if l.host == "" {
		return ""
	}
	return net.JoinHostPort(l.host, strconv.Itoa(l.port))
}

// Connect opens a session and immediately sends the current pose. A dial
// failure leaves the link disconnected and the motion state untouched. If the
// initial send fails the session is torn down and the send error is returned.
func (l *Link) Connect(host string, port int) error {
	if l.state == StateConnected {
		return ErrAlreadyConnected
	}

	conn, err := l.dial(host, port)
	if err != nil {
		l.emit(Event{
			Kind:        ConnectFailed,
			Destination: net.JoinHostPort(host, strconv.Itoa(port)),
			Variant:     l.variant,
			Err:         err,
		})
		return err
	}

	l.conn = conn
	l.host = host
	l.port = port
	l.accum = 0
	l.state = StateConnected
	l.emit(Event{Kind: ConnectSucceeded, Destination: l.Destination(), Variant: l.variant})

	return l.SendCommand()
}

// Disconnect commands the neutral pose, releases the transport and ends the
// session. The final send is best effort.
func (l *Link) Disconnect() error {
	if l.state != StateConnected {
		return ErrNotConnected
	}

	l.motion.Reset()
	pose := l.motion.Pose()
	packet := protocol.Encode(pose, l.variant)
	if err := l.conn.Send(packet); err == nil {
		l.emit(Event{
			Kind:        PacketSent,
			Destination: l.Destination(),
			Variant:     l.variant,
			Packet:      packet,
			Pose:        pose,
		})
	}

	return l.release(nil)
}

// Tick advances the send timer by elapsed and sends at most one packet. It is
// a no-op while disconnected.
func (l *Link) Tick(elapsed time.Duration) error {
	if l.state != StateConnected {
		return nil
	}
	if elapsed > 0 {
		l.accum += elapsed
	}
	if l.accum < l.interval {
		return nil
	}

	switch l.policy {
	case CarryOver:
		l.accum %= l.interval
	default:
		l.accum = 0
	}
	return l.SendCommand()
}

// SendCommand encodes the current pose and writes it. Any transport failure
// ends the session; the caller must Connect again.
func (l *Link) SendCommand() error {
	if l.state != StateConnected {
		return ErrNotConnected
	}

	pose := l.motion.Pose()
	packet := protocol.Encode(pose, l.variant)
	if err := l.conn.Send(packet); err != nil {
		l.emit(Event{
			Kind:        SendFailed,
			Destination: l.Destination(),
			Variant:     l.variant,
			Pose:        pose,
			Err:         err,
		})
		l.motion.Reset()
		_ = l.release(err)
		return err
	}

	l.emit(Event{
		Kind:        PacketSent,
		Destination: l.Destination(),
		Variant:     l.variant,
		Packet:      packet,
		Pose:        pose,
	})
	return nil
}

// SetVariant selects the wire format used from the next send on.
func (l *Link) SetVariant(v protocol.Variant) error {
	if !v.Valid() {
		return fmt.Errorf("invalid protocol variant %s", v)
	}
	l.variant = v
	l.emit(Event{Kind: VariantChanged, Destination: l.Destination(), Variant: v})
	return nil
}

func (l *Link) ToggleVariant() protocol.Variant {
	_ = l.SetVariant(l.variant.Toggle())
	return l.variant
}

// ApplyPreset writes a named preset through the clamping setters.
func (l *Link) ApplyPreset(p motion.Preset) error {
	if err := l.motion.Apply(p); err != nil {
		return err
	}
	l.emit(Event{
		Kind:        PresetExecuted,
		Destination: l.Destination(),
		Variant:     l.variant,
		Preset:      p,
		Pose:        l.motion.Pose(),
	})
	return nil
}

// ResetMotion commands the neutral pose on the next send.
func (l *Link) ResetMotion() {
	l.motion.Reset()
	l.emit(Event{
		Kind:        MotionReset,
		Destination: l.Destination(),
		Variant:     l.variant,
		Pose:        l.motion.Pose(),
	})
}

// Close is process teardown: an open session is disconnected gracefully.
// Calling Close on a disconnected link does nothing.
func (l *Link) Close() error {
	if l.state != StateConnected {
		return nil
	}
	return l.Disconnect()
}

func (l *Link) release(cause error) error {
	var err error
	if l.conn != nil {
		err = l.conn.Close()
		l.conn = nil
	}
	l.state = StateDisconnected
	l.accum = 0
	l.emit(Event{Kind: Disconnected, Destination: l.Destination(), Variant: l.variant, Err: cause})
	return err
}

func (l *Link) emit(ev Event) {
	if l.sink == nil {
		return
	}
	ev.Time = l.now()
	l.sink.Handle(ev)
}
