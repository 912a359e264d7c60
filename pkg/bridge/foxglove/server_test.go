package foxglove

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FlyingDododo/6dof-application/pkg/engine"
	"github.com/FlyingDododo/6dof-application/pkg/link"
	"github.com/FlyingDododo/6dof-application/pkg/motion"
	"github.com/FlyingDododo/6dof-application/pkg/protocol"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRotationIdentity(t *testing.T) {
	q := Rotation(motion.Pose{})
	if q.W != 1 || q.X != 0 || q.Y != 0 || q.Z != 0 {
		t.Fatalf("unexpected identity rotation: %+v", q)
	}
}

func TestRotationSingleAxis(t *testing.T) {
	half := math.Sqrt2 / 2
	tests := []struct {
		name string
		pose motion.Pose
		want Quaternion
	}{
		{"yaw", motion.Pose{Yaw: 90}, Quaternion{Z: half, W: half}},
		{"pitch", motion.Pose{Pitch: 90}, Quaternion{Y: half, W: half}},
		{"roll", motion.Pose{Roll: -90}, Quaternion{X: -half, W: half}},
	}
	for _, tc := range tests {
		q := Rotation(tc.pose)
		if !near(q.X, tc.want.X) || !near(q.Y, tc.want.Y) || !near(q.Z, tc.want.Z) || !near(q.W, tc.want.W) {
			t.Fatalf("%s: got %+v, want %+v", tc.name, q, tc.want)
		}
	}
}

func TestRotationIsUnit(t *testing.T) {
	q := Rotation(motion.Pose{Pitch: -5, Roll: 12, Yaw: 7})
	norm := q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z
	if !near(norm, 1) {
		t.Fatalf("quaternion norm = %v", norm)
	}
}

func TestTranslationScale(t *testing.T) {
	v := Translation(motion.Pose{Surge: 10, Sway: -5, Heave: 2.5}, 50)
	if !near(v.X, 0.2) || !near(v.Y, -0.1) || !near(v.Z, 0.05) {
		t.Fatalf("unexpected translation: %+v", v)
	}
	if got := Translation(motion.Pose{Surge: 3}, 0); got.X != 3 {
		t.Fatalf("non-positive scale should be ignored, got %+v", got)
	}
}

func TestTransformFromPose(t *testing.T) {
	srv := NewServer(DefaultConfig(), nil, nil)
	ts := time.Unix(42, 99)

	tf := srv.transformFromPose(motion.Pose{Surge: 10}, ts)
	if len(tf.Transforms) != 1 {
		t.Fatalf("expected one transform, got %d", len(tf.Transforms))
	}
	tr := tf.Transforms[0]
	if tr.ParentFrameID != "world" || tr.ChildFrameID != "chair" {
		t.Fatalf("unexpected frame chain: %+v", tr)
	}
	if tr.Timestamp.Sec != 42 || tr.Timestamp.Nsec != 99 {
		t.Fatalf("unexpected timestamp: %+v", tr.Timestamp)
	}
	if !near(tr.Translation.X, 0.2) || tr.Rotation.W != 1 {
		t.Fatalf("unexpected transform: %+v", tr)
	}
}

func TestMarkerFromPose(t *testing.T) {
	srv := NewServer(DefaultConfig(), nil, nil)
	marker := srv.markerFromPose(motion.Pose{Heave: 5}, time.Unix(10, 0))
	if marker.Type != markerTypeCube || marker.Action != markerActionAdd {
		t.Fatalf("unexpected marker mode: type=%d action=%d", marker.Type, marker.Action)
	}
	if marker.Header.FrameID != srv.cfg.ParentFrameID {
		t.Fatalf("unexpected frame id: %s", marker.Header.FrameID)
	}
	if !near(marker.Pose.Position.Z, 0.1) {
		t.Fatalf("unexpected marker position: %+v", marker.Pose.Position)
	}
}

func TestAdvertiseChannels(t *testing.T) {
	srv := NewServer(Config{}, nil, nil)
	msg := srv.advertise()
	if len(msg.Channels) != 4 {
		t.Fatalf("expected 4 channels, got %d", len(msg.Channels))
	}
	want := map[uint64]string{
		EventChannelID:     "chair/event",
		TransformChannelID: "/tf",
		LogChannelID:       "/chair/log",
		MarkerChannelID:    "/chair/marker",
	}
	for _, ch := range msg.Channels {
		if want[ch.ID] != ch.Topic {
			t.Fatalf("channel %d topic = %s, want %s", ch.ID, ch.Topic, want[ch.ID])
		}
		if !json.Valid([]byte(ch.Schema)) {
			t.Fatalf("channel %s schema is not valid JSON", ch.Topic)
		}
	}
}

func TestLogFromEvent(t *testing.T) {
	srv := NewServer(DefaultConfig(), nil, nil)
	ts := time.Unix(1, 0)

	tests := []struct {
		ev    link.Event
		level uint8
		text  string
	}{
		{link.Event{Kind: link.ConnectSucceeded, Destination: "10.0.0.1:20000"}, LogLevelInfo, "connected to 10.0.0.1:20000"},
		{link.Event{Kind: link.SendFailed, Err: errors.New("boom")}, LogLevelError, "boom"},
		{link.Event{Kind: link.Disconnected, Err: errors.New("boom")}, LogLevelWarning, "(boom)"},
		{link.Event{Kind: link.VariantChanged, Variant: protocol.Alt}, LogLevelInfo, "EB 90 02"},
	}
	for _, tc := range tests {
		msg, ok := srv.logFromEvent(tc.ev, ts)
		if !ok {
			t.Fatalf("%s: expected log message", tc.ev.Kind)
		}
		if msg.Level != tc.level || !strings.Contains(msg.Message, tc.text) {
			t.Fatalf("%s: unexpected log %+v", tc.ev.Kind, msg)
		}
	}

	if _, ok := srv.logFromEvent(link.Event{Kind: link.PacketSent}, ts); ok {
		t.Fatalf("packets must not produce log lines")
	}
}

func TestEventRecordCarriesPose(t *testing.T) {
	pose := motion.Pose{Pitch: -5, Surge: 10}
	rec := eventRecord(link.Event{
		Kind:    link.PacketSent,
		Variant: protocol.Standard,
		Packet:  protocol.Encode(pose, protocol.Standard),
		Pose:    pose,
	}, time.Unix(0, 0))
	if rec.Event != "packet_sent" || rec.Variant != "standard" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Pose["pitch"] != -5 || rec.Pose["surge"] != 10 || len(rec.Pose) != motion.NumAxes {
		t.Fatalf("unexpected pose: %v", rec.Pose)
	}
	if !strings.HasPrefix(rec.PacketHex, "eb90010a") {
		t.Fatalf("unexpected packet hex: %s", rec.PacketHex)
	}
}

func TestMessageDataRoundTrip(t *testing.T) {
	frame := EncodeMessageData(7, 123, []byte("{}"))
	id, logTime, payload, ok := DecodeMessageData(frame)
	if !ok || id != 7 || logTime != 123 || string(payload) != "{}" {
		t.Fatalf("unexpected decode: %d %d %q %v", id, logTime, payload, ok)
	}
	if _, _, _, ok := DecodeMessageData([]byte{0x02}); ok {
		t.Fatalf("short frame must not decode")
	}
}

func dialTestServer(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	dialer := websocket.Dialer{Subprotocols: []string{Subprotocol}}
	conn, resp, err := dialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if resp.Header.Get("Sec-WebSocket-Protocol") != Subprotocol {
		t.Fatalf("subprotocol not negotiated")
	}
	return conn
}

func waitForSubscription(t *testing.T, srv *Server, channelID uint64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, c := range srv.snapshotClients() {
			if len(c.subIDsForChannel(channelID)) > 0 {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("subscription to channel %d never registered", channelID)
}

func TestWebsocketSession(t *testing.T) {
	srv := NewServer(DefaultConfig(), nil, nil)
	conn := dialTestServer(t, srv)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var info ServerInfoMsg
	if err := conn.ReadJSON(&info); err != nil || info.Op != OpServerInfo || info.Name != "chairctl" {
		t.Fatalf("unexpected serverInfo: %+v err=%v", info, err)
	}
	var adv AdvertiseMsg
	if err := conn.ReadJSON(&adv); err != nil || adv.Op != OpAdvertise || len(adv.Channels) != 4 {
		t.Fatalf("unexpected advertise: %+v err=%v", adv, err)
	}

	sub := SubscribeMsg{Op: OpSubscribe, Subscriptions: []Subscription{
		{ID: 7, ChannelID: TransformChannelID},
		{ID: 8, ChannelID: 99},
	}}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	waitForSubscription(t, srv, TransformChannelID)

	srv.broadcastEvent(link.Event{Kind: link.PacketSent, Time: time.Unix(5, 0), Pose: motion.Pose{Surge: 10}})

	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if msgType != websocket.BinaryMessage {
		t.Fatalf("expected binary frame, got %d", msgType)
	}
	subID, logTime, payload, ok := DecodeMessageData(data)
	if !ok || subID != 7 || logTime != uint64(time.Unix(5, 0).UnixNano()) {
		t.Fatalf("unexpected frame header: sub=%d time=%d ok=%v", subID, logTime, ok)
	}
	var tf FrameTransformsMessage
	if err := json.Unmarshal(payload, &tf); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if len(tf.Transforms) != 1 || !near(tf.Transforms[0].Translation.X, 0.2) {
		t.Fatalf("unexpected transform payload: %+v", tf)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	hub := engine.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	srvCtx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewServer(DefaultConfig(), hub, nil).Serve(srvCtx, ln)
	}()

	stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("serve did not stop")
	}
}
