package foxglove

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FlyingDododo/6dof-application/pkg/engine"
	"github.com/FlyingDododo/6dof-application/pkg/link"
	"github.com/FlyingDododo/6dof-application/pkg/motion"
)

// Server publishes link events to Foxglove Studio over the foxglove.websocket.v1
// protocol. Events arrive either from a hub subscription (Run, Serve) or
// directly through Handle.
type Server struct {
	cfg     Config
	hub     *engine.Hub
	log     *slog.Logger
	clients map[*client]struct{}
	mu      sync.RWMutex
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	subs map[uint32]uint64
	mu   sync.RWMutex
	once sync.Once
}

func NewServer(cfg Config, hub *engine.Hub, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:     cfg.withDefaults(),
		hub:     hub,
		log:     log,
		clients: make(map[*client]struct{}),
	}
}

func (s *Server) Config() Config {
	return s.cfg
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWS)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.WSAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.WSAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts websocket clients on ln until ctx is done. The hub, when set,
// must already be running.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if s.hub != nil {
		sub := s.hub.Subscribe()
		go s.broadcastLoop(ctx, sub)
	}

	s.log.Info("foxglove bridge listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = httpServer.Shutdown(shutdownCtx)
		cancel()
		s.closeClients()
		return nil
	case err := <-errCh:
		s.closeClients()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		Subprotocols: []string{Subprotocol},
		CheckOrigin: func(*http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := newClient(conn, s.cfg.SendBuf)
	s.addClient(c)
	s.log.Debug("foxglove client connected", "remote", r.RemoteAddr)

	if err := conn.WriteJSON(s.serverInfo()); err != nil {
		c.close()
		s.removeClient(c)
		return
	}
	if err := conn.WriteJSON(s.advertise()); err != nil {
		c.close()
		s.removeClient(c)
		return
	}

	go c.writeLoop()
	c.readLoop(s.supportedChannels())

	c.close()
	s.removeClient(c)
	s.log.Debug("foxglove client disconnected", "remote", r.RemoteAddr)
}

func (s *Server) supportedChannels() map[uint64]struct{} {
	return map[uint64]struct{}{
		EventChannelID:     {},
		TransformChannelID: {},
		LogChannelID:       {},
		MarkerChannelID:    {},
	}
}

func (s *Server) serverInfo() ServerInfoMsg {
	return ServerInfoMsg{
		Op:                 OpServerInfo,
		Name:               s.cfg.Name,
		Capabilities:       []string{},
		SupportedEncodings: []string{},
		SessionID:          fmt.Sprintf("%d", time.Now().UTC().UnixNano()),
	}
}

func (s *Server) advertise() AdvertiseMsg {
	return AdvertiseMsg{Op: OpAdvertise, Channels: []Channel{
		{
			ID:             EventChannelID,
			Topic:          s.cfg.EventTopic,
			Encoding:       "json",
			SchemaName:     "chair.Event",
			SchemaEncoding: "jsonschema",
			Schema:         EventSchema,
		},
		{
			ID:             TransformChannelID,
			Topic:          s.cfg.TransformTopic,
			Encoding:       "json",
			SchemaName:     "foxglove.FrameTransforms",
			SchemaEncoding: "jsonschema",
			Schema:         FrameTransformsSchema,
		},
		{
			ID:             LogChannelID,
			Topic:          s.cfg.LogTopic,
			Encoding:       "json",
			SchemaName:     "foxglove.Log",
			SchemaEncoding: "jsonschema",
			Schema:         LogSchema,
		},
		{
			ID:             MarkerChannelID,
			Topic:          s.cfg.MarkerTopic,
			Encoding:       "json",
			SchemaName:     "visualization_msgs/Marker",
			SchemaEncoding: "jsonschema",
			Schema:         MarkerSchema,
		},
	}}
}

func (s *Server) broadcastLoop(ctx context.Context, sub <-chan link.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			s.broadcastEvent(ev)
		}
	}
}

func (s *Server) broadcastEvent(ev link.Event) {
	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	s.publishJSONToChannel(EventChannelID, ts, eventRecord(ev, ts))

	if ev.Kind == link.PacketSent {
		s.publishJSONToChannel(TransformChannelID, ts, s.transformFromPose(ev.Pose, ts))
		s.publishJSONToChannel(MarkerChannelID, ts, s.markerFromPose(ev.Pose, ts))
	}
	if msg, ok := s.logFromEvent(ev, ts); ok {
		s.publishJSONToChannel(LogChannelID, ts, msg)
	}
}

func (s *Server) publishJSONToChannel(channelID uint64, ts time.Time, message any) {
	payload, err := json.Marshal(message)
	if err != nil {
		return
	}

	logTime := uint64(ts.UnixNano())
	for _, c := range s.snapshotClients() {
		for _, subID := range c.subIDsForChannel(channelID) {
			c.trySend(EncodeMessageData(subID, logTime, payload))
		}
	}
}

func eventRecord(ev link.Event, ts time.Time) EventRecord {
	rec := EventRecord{
		Event:       ev.Kind.String(),
		TS:          ts.UTC().Format(time.RFC3339Nano),
		Destination: ev.Destination,
		Preset:      ev.Preset.String(),
	}
	if ev.Variant.Valid() {
		rec.Variant = ev.Variant.String()
	}
	if ev.Err != nil {
		rec.Error = ev.Err.Error()
	}
	switch ev.Kind {
	case link.PacketSent, link.SendFailed, link.PresetExecuted, link.MotionReset:
		rec.Pose = make(map[string]float32, motion.NumAxes)
		for _, a := range motion.Axes {
			rec.Pose[a.String()] = ev.Pose.Get(a)
		}
	}
	if len(ev.Packet) > 0 {
		rec.PacketHex = hex.EncodeToString(ev.Packet)
	}
	return rec
}

func (s *Server) transformFromPose(p motion.Pose, ts time.Time) FrameTransformsMessage {
	return FrameTransformsMessage{Transforms: []FrameTransformMessage{{
		Timestamp:     frameTime(ts),
		ParentFrameID: s.cfg.ParentFrameID,
		ChildFrameID:  s.cfg.FrameID,
		Translation:   Translation(p, s.cfg.TranslationScale),
		Rotation:      Rotation(p),
	}}}
}

// markerFromPose draws the seat as a flat box riding on the chair frame.
func (s *Server) markerFromPose(p motion.Pose, ts time.Time) MarkerMessage {
	return MarkerMessage{
		Header: MarkerHeader{FrameID: s.cfg.ParentFrameID, Stamp: frameTime(ts)},
		NS:     "chair.seat",
		ID:     1,
		Type:   markerTypeCube,
		Action: markerActionAdd,
		Pose: MarkerPose{
			Position:    Translation(p, s.cfg.TranslationScale),
			Orientation: Rotation(p),
		},
		Scale: Vector3{X: 1, Y: 1, Z: 0.2},
		Color: ColorRGBA{R: 0.2, G: 0.6, B: 1, A: 1},
	}
}

func (s *Server) logFromEvent(ev link.Event, ts time.Time) (LogMessage, bool) {
	level := LogLevelInfo
	var text string
	switch ev.Kind {
	case link.ConnectSucceeded:
		text = "connected to " + ev.Destination
	case link.ConnectFailed:
		level = LogLevelError
		text = fmt.Sprintf("connect to %s failed: %v", ev.Destination, ev.Err)
	case link.SendFailed:
		level = LogLevelError
		text = fmt.Sprintf("send to %s failed: %v", ev.Destination, ev.Err)
	case link.Disconnected:
		text = "disconnected from " + ev.Destination
		if ev.Err != nil {
			level = LogLevelWarning
			text += fmt.Sprintf(" (%v)", ev.Err)
		}
	case link.PresetExecuted:
		text = "preset " + ev.Preset.String()
	case link.MotionReset:
		text = "motion reset to neutral"
	case link.VariantChanged:
		text = fmt.Sprintf("protocol %s (%s)", ev.Variant, ev.Variant.Header())
	default:
		return LogMessage{}, false
	}
	return LogMessage{
		Timestamp: frameTime(ts),
		Level:     level,
		Message:   text,
		Name:      s.cfg.LogName,
	}, true
}

func (s *Server) addClient(c *client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
}

func (s *Server) snapshotClients() []*client {
	s.mu.RLock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()
	return clients
}

func (s *Server) closeClients() {
	for _, c := range s.snapshotClients() {
		c.close()
	}
}

func newClient(conn *websocket.Conn, sendBuf int) *client {
	if sendBuf <= 0 {
		sendBuf = DefaultConfig().SendBuf
	}
	return &client{
		conn: conn,
		send: make(chan []byte, sendBuf),
		subs: make(map[uint32]uint64),
	}
}

func (c *client) readLoop(supportedChannels map[uint64]struct{}) {
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var header struct {
			Op string `json:"op"`
		}
		if err := json.Unmarshal(data, &header); err != nil {
			continue
		}

		switch header.Op {
		case OpSubscribe:
			var msg SubscribeMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			for _, sub := range msg.Subscriptions {
				if _, ok := supportedChannels[sub.ChannelID]; ok {
					c.addSub(sub.ID, sub.ChannelID)
				}
			}
		case OpUnsubscribe:
			var msg UnsubscribeMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			for _, id := range msg.SubscriptionIDs {
				c.removeSub(id)
			}
		}
	}
}

func (c *client) writeLoop() {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			c.close()
			return
		}
	}
}

// trySend drops the frame when the client is slow; send may already be closed.
func (c *client) trySend(msg []byte) {
	defer func() {
		_ = recover()
	}()
	select {
	case c.send <- msg:
	default:
	}
}

func (c *client) addSub(id uint32, channelID uint64) {
	c.mu.Lock()
	c.subs[id] = channelID
	c.mu.Unlock()
}

func (c *client) removeSub(id uint32) {
	c.mu.Lock()
	delete(c.subs, id)
	c.mu.Unlock()
}

func (c *client) subIDsForChannel(channelID uint64) []uint32 {
	c.mu.RLock()
	ids := make([]uint32, 0, len(c.subs))
	for id, ch := range c.subs {
		if ch == channelID {
			ids = append(ids, id)
		}
	}
	c.mu.RUnlock()
	return ids
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}
