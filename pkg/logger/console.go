package logger

import (
	"context"
	"log/slog"

	"github.com/FlyingDododo/6dof-application/pkg/link"
	"github.com/FlyingDododo/6dof-application/pkg/protocol"
)

// Console reports link events on a structured logger. Every sent packet is
// logged at debug level; the rest at info, or error for failures.
type Console struct {
	log *slog.Logger
}

func NewConsole(log *slog.Logger) *Console {
	if log == nil {
		log = slog.Default()
	}
	return &Console{log: log}
}

func (c *Console) Handle(ev link.Event) {
	ctx := context.Background()
	attrs := []slog.Attr{slog.String("event", ev.Kind.String())}
	if ev.Destination != "" {
		attrs = append(attrs, slog.String("destination", ev.Destination))
	}

	switch ev.Kind {
	case link.PacketSent:
		if !c.log.Enabled(ctx, slog.LevelDebug) {
			return
		}
		attrs = append(attrs,
			slog.String("variant", ev.Variant.String()),
			slog.String("packet", protocol.FormatHex(ev.Packet)),
			slog.Any("pose", ev.Pose),
		)
		c.log.LogAttrs(ctx, slog.LevelDebug, "packet sent", attrs...)
	case link.ConnectSucceeded:
		c.log.LogAttrs(ctx, slog.LevelInfo, "connected", attrs...)
	case link.ConnectFailed:
		attrs = append(attrs, slog.Any("error", ev.Err))
		c.log.LogAttrs(ctx, slog.LevelError, "connect failed", attrs...)
	case link.SendFailed:
		attrs = append(attrs, slog.Any("error", ev.Err))
		c.log.LogAttrs(ctx, slog.LevelError, "send failed", attrs...)
	case link.Disconnected:
		if ev.Err != nil {
			attrs = append(attrs, slog.Any("cause", ev.Err))
		}
		c.log.LogAttrs(ctx, slog.LevelInfo, "disconnected", attrs...)
	case link.PresetExecuted:
		attrs = append(attrs, slog.String("preset", ev.Preset.String()))
		c.log.LogAttrs(ctx, slog.LevelInfo, "preset executed", attrs...)
	case link.MotionReset:
		c.log.LogAttrs(ctx, slog.LevelInfo, "motion reset", attrs...)
	case link.VariantChanged:
		attrs = append(attrs,
			slog.String("variant", ev.Variant.String()),
			slog.String("header", ev.Variant.Header()),
		)
		c.log.LogAttrs(ctx, slog.LevelInfo, "protocol variant changed", attrs...)
	}
}
