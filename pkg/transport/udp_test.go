package transport_test

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/FlyingDododo/6dof-application/pkg/transport"
)

func listenUDP(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readDatagram(t *testing.T, conn *net.UDPConn) []byte {
	t.Helper()
	buf := make([]byte, 512)
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return buf[:n]
}

func TestSendDeliversDatagram(t *testing.T) {
	ln := listenUDP(t)
	port := ln.LocalAddr().(*net.UDPAddr).Port

	sender, err := transport.Dial("127.0.0.1", port, transport.WithWriteTimeout(100*time.Millisecond))
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer sender.Close()

	payload := []byte{0xEB, 0x90, 0x01, 0x0A, 0x11}
	if err := sender.Send(payload); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if got := readDatagram(t, ln); !bytes.Equal(got, payload) {
		t.Fatalf("unexpected datagram: % X", got)
	}
	if sender.Addr() != ln.LocalAddr().String() {
		t.Fatalf("unexpected addr: %s", sender.Addr())
	}
}

func TestDialAddressErrors(t *testing.T) {
	tests := []struct {
		name string
		host string
		port int
	}{
		{name: "empty host", host: " ", port: 20000},
		{name: "zero port", host: "127.0.0.1", port: 0},
		{name: "port too large", host: "127.0.0.1", port: 70000},
		{name: "unresolvable", host: "chair.invalid", port: 20000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := transport.Dial(tt.host, tt.port)
			var addrErr *transport.AddressError
			if !errors.As(err, &addrErr) {
				t.Fatalf("expected AddressError, got %T: %v", err, err)
			}
		})
	}
}

func TestDialAllocationError(t *testing.T) {
	_, err := transport.Dial("127.0.0.1", 20000, transport.WithLocalAddr("not-an-address"))
	var allocErr *transport.AllocationError
	if !errors.As(err, &allocErr) {
		t.Fatalf("expected AllocationError, got %T: %v", err, err)
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	ln := listenUDP(t)
	port := ln.LocalAddr().(*net.UDPAddr).Port

	sender, err := transport.Dial("127.0.0.1", port)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	if err := sender.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := sender.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}

	err = sender.Send([]byte{0x01})
	var sendErr *transport.SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("expected SendError, got %T: %v", err, err)
	}
	if !errors.Is(err, transport.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestWithNetworkIgnoresUnknown(t *testing.T) {
	ln := listenUDP(t)
	port := ln.LocalAddr().(*net.UDPAddr).Port

	sender, err := transport.Dial("127.0.0.1", port, transport.WithNetwork("tcp"))
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer sender.Close()
	if sender.LocalAddr() == nil {
		t.Fatalf("expected a bound local address")
	}
	if _, ok := sender.LocalAddr().(*net.UDPAddr); !ok {
		t.Fatalf("expected udp local address, got %T", sender.LocalAddr())
	}
}
