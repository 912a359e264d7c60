package engine

import (
	"context"
	"sync/atomic"

	"github.com/FlyingDododo/6dof-application/pkg/link"
)

// Hub fans link events out to asynchronous consumers. Handle never blocks the
// link: when the broadcast buffer is full the event is dropped and counted.
type Hub struct {
	broadcast  chan link.Event
	register   chan chan link.Event
	unregister chan chan link.Event
	clients    map[chan link.Event]struct{}
	clientBuf  int
	dropped    atomic.Uint64
}

type Option func(*Hub)

func WithBroadcastBuffer(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.broadcast = make(chan link.Event, size)
		}
	}
}

func WithClientBuffer(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.clientBuf = size
		}
	}
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		broadcast:  make(chan link.Event, 256),
		register:   make(chan chan link.Event),
		unregister: make(chan chan link.Event),
		clients:    make(map[chan link.Event]struct{}),
		clientBuf:  100,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.flush()
			for ch := range h.clients {
				close(ch)
			}
			return
		case ch := <-h.register:
			h.clients[ch] = struct{}{}
		case ch := <-h.unregister:
			if _, ok := h.clients[ch]; ok {
				delete(h.clients, ch)
				close(ch)
			}
		case ev := <-h.broadcast:
			h.deliver(ev)
		}
	}
}

func (h *Hub) deliver(ev link.Event) {
	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// flush hands queued events to subscribers so a shutdown does not lose the
// tail of a session.
func (h *Hub) flush() {
	for {
		select {
		case ev := <-h.broadcast:
			h.deliver(ev)
		default:
			return
		}
	}
}

func (h *Hub) Subscribe() chan link.Event {
	return h.SubscribeWithBuffer(h.clientBuf)
}

func (h *Hub) SubscribeWithBuffer(size int) chan link.Event {
	if size <= 0 {
		size = h.clientBuf
	}
	ch := make(chan link.Event, size)
	h.register <- ch
	return ch
}

func (h *Hub) Unsubscribe(ch chan link.Event) {
	h.unregister <- ch
}

// Handle implements link.Sink.
func (h *Hub) Handle(ev link.Event) {
	select {
	case h.broadcast <- ev:
	default:
		h.dropped.Add(1)
	}
}

// Dropped counts events lost to a full broadcast buffer or a slow subscriber.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
