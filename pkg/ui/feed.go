package ui

import (
	"fmt"
	"strings"

	"github.com/FlyingDododo/6dof-application/pkg/link"
	"github.com/FlyingDododo/6dof-application/pkg/protocol"
)

const (
	DefaultFeedSize = 8
	hexPreviewBytes = 12
)

// Feed keeps the most recent link events as display lines. It is not safe
// for concurrent use; the link calls it from the program's update loop.
type Feed struct {
	size  int
	lines []string
	sent  uint64
	fails uint64
}

func NewFeed(size int) *Feed {
	if size <= 0 {
		size = DefaultFeedSize
	}
	return &Feed{size: size}
}

// Handle implements link.Sink.
func (f *Feed) Handle(ev link.Event) {
	switch ev.Kind {
	case link.PacketSent:
		f.sent++
	case link.SendFailed, link.ConnectFailed:
		f.fails++
	}
	f.push(formatEvent(ev))
}

func (f *Feed) Lines() []string {
	return append([]string(nil), f.lines...)
}

func (f *Feed) Sent() uint64 { return f.sent }

func (f *Feed) Failures() uint64 { return f.fails }

func (f *Feed) push(line string) {
	f.lines = append(f.lines, line)
	if over := len(f.lines) - f.size; over > 0 {
		f.lines = append(f.lines[:0], f.lines[over:]...)
	}
}

func formatEvent(ev link.Event) string {
	ts := ev.Time.Format("15:04:05.000")
	switch ev.Kind {
	case link.PacketSent:
		return fmt.Sprintf("%s sent %s %dB %s", ts, ev.Variant, len(ev.Packet), hexPreview(ev.Packet))
	case link.ConnectSucceeded:
		return fmt.Sprintf("%s connected %s", ts, ev.Destination)
	case link.ConnectFailed:
		return fmt.Sprintf("%s connect failed: %v", ts, ev.Err)
	case link.SendFailed:
		return fmt.Sprintf("%s send failed: %v", ts, ev.Err)
	case link.Disconnected:
		if ev.Err != nil {
			return fmt.Sprintf("%s disconnected (%v)", ts, ev.Err)
		}
		return fmt.Sprintf("%s disconnected", ts)
	case link.PresetExecuted:
		return fmt.Sprintf("%s preset %s", ts, ev.Preset)
	case link.MotionReset:
		return fmt.Sprintf("%s reset to neutral", ts)
	case link.VariantChanged:
		return fmt.Sprintf("%s protocol %s [%s]", ts, ev.Variant, ev.Variant.Header())
	default:
		return fmt.Sprintf("%s %s", ts, ev.Kind)
	}
}

func hexPreview(packet []byte) string {
	if len(packet) <= hexPreviewBytes {
		return protocol.FormatHex(packet)
	}
	return protocol.FormatHex(packet[:hexPreviewBytes]) + " " + strings.Repeat(".", 3)
}
