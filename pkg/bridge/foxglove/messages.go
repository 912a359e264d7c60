package foxglove

import (
	"encoding/binary"
	"time"
)

const (
	OpServerInfo  = "serverInfo"
	OpAdvertise   = "advertise"
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"

	BinaryOpMessageData = 0x01

	Subprotocol = "foxglove.websocket.v1"
)

// Foxglove Log levels.
const (
	LogLevelInfo    uint8 = 2
	LogLevelWarning uint8 = 3
	LogLevelError   uint8 = 4
)

const (
	markerTypeCube  = 1
	markerActionAdd = 0
)

type ServerInfoMsg struct {
	Op                 string            `json:"op"`
	Name               string            `json:"name"`
	Capabilities       []string          `json:"capabilities"`
	SupportedEncodings []string          `json:"supportedEncodings,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	SessionID          string            `json:"sessionId,omitempty"`
}

type Channel struct {
	ID             uint64 `json:"id"`
	Topic          string `json:"topic"`
	Encoding       string `json:"encoding"`
	SchemaName     string `json:"schemaName"`
	SchemaEncoding string `json:"schemaEncoding,omitempty"`
	Schema         string `json:"schema,omitempty"`
}

type AdvertiseMsg struct {
	Op       string    `json:"op"`
	Channels []Channel `json:"channels"`
}

type Subscription struct {
	ID        uint32 `json:"id"`
	ChannelID uint64 `json:"channelId"`
}

type SubscribeMsg struct {
	Op            string         `json:"op"`
	Subscriptions []Subscription `json:"subscriptions"`
}

type UnsubscribeMsg struct {
	Op              string   `json:"op"`
	SubscriptionIDs []uint32 `json:"subscriptionIds"`
}

func EncodeMessageData(subscriptionID uint32, logTime uint64, payload []byte) []byte {
	out := make([]byte, 1+4+8+len(payload))
	out[0] = BinaryOpMessageData
	binary.LittleEndian.PutUint32(out[1:5], subscriptionID)
	binary.LittleEndian.PutUint64(out[5:13], logTime)
	copy(out[13:], payload)
	return out
}

// DecodeMessageData splits a MessageData frame. ok is false for other opcodes.
func DecodeMessageData(frame []byte) (subscriptionID uint32, logTime uint64, payload []byte, ok bool) {
	if len(frame) < 13 || frame[0] != BinaryOpMessageData {
		return 0, 0, nil, false
	}
	return binary.LittleEndian.Uint32(frame[1:5]), binary.LittleEndian.Uint64(frame[5:13]), frame[13:], true
}

type EventRecord struct {
	Event       string             `json:"event"`
	TS          string             `json:"ts"`
	Destination string             `json:"destination,omitempty"`
	Variant     string             `json:"variant,omitempty"`
	Preset      string             `json:"preset,omitempty"`
	Error       string             `json:"error,omitempty"`
	PacketHex   string             `json:"packet_hex,omitempty"`
	Pose        map[string]float32 `json:"pose,omitempty"`
}

type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

type FrameTime struct {
	Sec  uint32 `json:"sec"`
	Nsec uint32 `json:"nsec"`
}

func frameTime(ts time.Time) FrameTime {
	return FrameTime{Sec: uint32(ts.Unix()), Nsec: uint32(ts.Nanosecond())}
}

type FrameTransformMessage struct {
	Timestamp     FrameTime  `json:"timestamp"`
	ParentFrameID string     `json:"parent_frame_id"`
	ChildFrameID  string     `json:"child_frame_id"`
	Translation   Vector3    `json:"translation"`
	Rotation      Quaternion `json:"rotation"`
}

type FrameTransformsMessage struct {
	Transforms []FrameTransformMessage `json:"transforms"`
}

type LogMessage struct {
	Timestamp FrameTime `json:"timestamp"`
	Level     uint8     `json:"level"`
	Message   string    `json:"message"`
	Name      string    `json:"name"`
	File      string    `json:"file"`
	Line      uint32    `json:"line"`
}

type MarkerMessage struct {
	Header MarkerHeader `json:"header"`
	NS     string       `json:"ns"`
	ID     int32        `json:"id"`
	Type   int32        `json:"type"`
	Action int32        `json:"action"`
	Pose   MarkerPose   `json:"pose"`
	Scale  Vector3      `json:"scale"`
	Color  ColorRGBA    `json:"color"`
}

type MarkerHeader struct {
	FrameID string    `json:"frame_id"`
	Stamp   FrameTime `json:"stamp"`
}

type MarkerPose struct {
	Position    Vector3    `json:"position"`
	Orientation Quaternion `json:"orientation"`
}

type ColorRGBA struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}
