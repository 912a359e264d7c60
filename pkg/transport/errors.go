package transport

import (
	"errors"
	"fmt"
)

// ErrClosed is wrapped by SendError when the socket was already released.
var ErrClosed = errors.New("transport closed")

// AddressError reports a destination that is invalid or cannot be resolved.
type AddressError struct {
	Addr string
	Err  error
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("resolve chair address %s: %v", e.Addr, e.Err)
}

func (e *AddressError) Unwrap() error { return e.Err }

// AllocationError reports that no socket could be created for the destination.
type AllocationError struct {
	Addr string
	Err  error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocate udp socket for %s: %v", e.Addr, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// SendError reports a datagram that could not be written on an open session.
type SendError struct {
	Addr string
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to %s: %v", e.Addr, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
