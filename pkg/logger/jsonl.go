package logger

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/FlyingDododo/6dof-application/pkg/link"
	"github.com/FlyingDododo/6dof-application/pkg/motion"
	"github.com/FlyingDododo/6dof-application/pkg/protocol"
)

// LogFilePrefix names per-session packet logs: chairlog_YYYYMMDD_HHMMSS.jsonl.
const LogFilePrefix = "chairlog_"

type JSONLWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

type jsonRecord struct {
	TS          string          `json:"ts"`
	Event       string          `json:"event"`
	Destination string          `json:"destination,omitempty"`
	Variant     string          `json:"variant,omitempty"`
	Preset      string          `json:"preset,omitempty"`
	Error       string          `json:"error,omitempty"`
	PacketHex   string          `json:"packet_hex,omitempty"`
	Frame       *protocol.Frame `json:"frame,omitempty"`
	Pose        *motion.Pose    `json:"pose,omitempty"`
	Text        string          `json:"text,omitempty"`
}

func NewJSONLWriter(w io.Writer) *JSONLWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLWriter{enc: enc}
}

// OpenLogFile creates a timestamped JSONL file inside dir.
func OpenLogFile(dir string, now time.Time) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	name := LogFilePrefix + now.Format("20060102_150405") + ".jsonl"
	file, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return file, nil
}

// Write encodes one event. Sent packets are decoded for readability.
func (j *JSONLWriter) Write(ev link.Event) error {
	rec := jsonRecord{
		TS:          formatTS(ev.Time),
		Event:       ev.Kind.String(),
		Destination: ev.Destination,
		Preset:      string(ev.Preset),
	}
	if ev.Variant.Valid() {
		rec.Variant = ev.Variant.String()
	}
	if ev.Err != nil {
		rec.Error = ev.Err.Error()
	}

	switch ev.Kind {
	case link.PacketSent:
		rec.PacketHex = hex.EncodeToString(ev.Packet)
		if frame, err := protocol.Decode(ev.Packet); err == nil {
			rec.Frame = &frame
		}
	case link.PresetExecuted, link.SendFailed, link.MotionReset:
		pose := ev.Pose
		rec.Pose = &pose
	}
	return j.encode(rec)
}

// WriteMarker records a free-text line such as session start or end.
func (j *JSONLWriter) WriteMarker(ts time.Time, event string, text string) error {
	return j.encode(jsonRecord{TS: formatTS(ts), Event: event, Text: text})
}

// Handle implements link.Sink. Encoding errors are dropped.
func (j *JSONLWriter) Handle(ev link.Event) {
	_ = j.Write(ev)
}

func (j *JSONLWriter) Consume(ctx context.Context, in <-chan link.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			_ = j.Write(ev)
		}
	}
}

func (j *JSONLWriter) encode(rec jsonRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.Encode(rec)
}

func formatTS(ts time.Time) string {
	if ts.IsZero() {
		ts = time.Now()
	}
	return ts.UTC().Format(time.RFC3339Nano)
}
