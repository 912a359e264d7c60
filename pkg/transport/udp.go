package transport

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// UDPSender writes fire-and-forget datagrams to one chair endpoint.
type UDPSender struct {
	network      string
	localAddr    string
	writeTimeout time.Duration

	addr   string
	conn   *net.UDPConn
	mu     sync.Mutex
	closed bool
}

type Option func(*UDPSender)

// WithWriteTimeout bounds each datagram write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *UDPSender) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithLocalAddr binds the socket to a local host:port before dialing.
func WithLocalAddr(addr string) Option {
	return func(s *UDPSender) {
		if addr != "" {
			s.localAddr = addr
		}
	}
}

// WithNetwork selects "udp4" (default), "udp6" or "udp".
func WithNetwork(network string) Option {
	return func(s *UDPSender) {
		switch network {
		case "udp", "udp4", "udp6":
			s.network = network
		}
	}
}

// Dial resolves host:port and allocates a connected UDP socket. No packet is
// exchanged; UDP has no handshake.
func Dial(host string, port int, opts ...Option) (*UDPSender, error) {
	s := &UDPSender{
		network:      "udp4",
		writeTimeout: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}

	host = strings.TrimSpace(host)
	s.addr = net.JoinHostPort(host, strconv.Itoa(port))
	if host == "" {
		return nil, &AddressError{Addr: s.addr, Err: fmt.Errorf("empty host")}
	}
	if port <= 0 || port > 65535 {
		return nil, &AddressError{Addr: s.addr, Err: fmt.Errorf("port %d out of range", port)}
	}

	remote, err := net.ResolveUDPAddr(s.network, s.addr)
	if err != nil {
		return nil, &AddressError{Addr: s.addr, Err: err}
	}

	var local *net.UDPAddr
	if s.localAddr != "" {
		local, err = net.ResolveUDPAddr(s.network, s.localAddr)
		if err != nil {
			return nil, &AllocationError{Addr: s.addr, Err: fmt.Errorf("local address %s: %w", s.localAddr, err)}
		}
	}

	conn, err := net.DialUDP(s.network, local, remote)
	if err != nil {
		return nil, &AllocationError{Addr: s.addr, Err: err}
	}
	s.conn = conn
	return s, nil
}

// Send writes one datagram. A short write is reported as a failure.
func (s *UDPSender) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.conn == nil {
		return &SendError{Addr: s.addr, Err: ErrClosed}
	}
	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	n, err := s.conn.Write(payload)
	if err != nil {
		return &SendError{Addr: s.addr, Err: err}
	}
	if n != len(payload) {
		return &SendError{Addr: s.addr, Err: fmt.Errorf("short write: %d of %d bytes", n, len(payload))}
	}
	return nil
}

// Close releases the socket. Closing twice is a no-op.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Addr returns the destination as host:port.
func (s *UDPSender) Addr() string {
	return s.addr
}

func (s *UDPSender) LocalAddr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}
