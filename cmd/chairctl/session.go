package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/FlyingDododo/6dof-application/pkg/bridge/foxglove"
	"github.com/FlyingDododo/6dof-application/pkg/config"
	"github.com/FlyingDododo/6dof-application/pkg/engine"
	"github.com/FlyingDododo/6dof-application/pkg/link"
	"github.com/FlyingDododo/6dof-application/pkg/logger"
	"github.com/FlyingDododo/6dof-application/pkg/metrics"
)

// jsonlBuffer is deep enough to absorb a few seconds of 20 Hz packets while
// the file catches up.
const jsonlBuffer = 1024

// session owns a command link and the sinks and servers around it.
type session struct {
	link *link.Link
	log  *slog.Logger

	hub        *engine.Hub
	stopHub    context.CancelFunc
	stopBridge context.CancelFunc
	file       *os.File
	jsonl      *logger.JSONLWriter
	metricsSrv *http.Server
	bridgeDone sync.WaitGroup
	logDone    sync.WaitGroup
	closeOnce  sync.Once
}

// openSession wires the configured sinks around a new link. extra sinks run
// synchronously after the console and metrics sinks.
func openSession(ctx context.Context, cfg config.Config, log *slog.Logger, extra ...link.Sink) (*session, error) {
	s := &session{log: log, hub: engine.NewHub()}

	hubCtx, stopHub := context.WithCancel(context.Background())
	s.stopHub = stopHub
	go s.hub.Run(hubCtx)

	sinks := []link.Sink{logger.NewConsole(log)}

	if cfg.Log.Dir != "" {
		file, err := logger.OpenLogFile(cfg.Log.Dir, time.Now())
		if err != nil {
			s.Close()
			return nil, err
		}
		s.file = file
		s.jsonl = logger.NewJSONLWriter(file)
		_ = s.jsonl.WriteMarker(time.Now(), "session_start", "chairctl "+cfg.Chair.Host)
		sub := s.hub.SubscribeWithBuffer(jsonlBuffer)
		s.logDone.Add(1)
		go func() {
			defer s.logDone.Done()
			s.jsonl.Consume(context.Background(), sub)
		}()
		log.Info("packet log", "path", file.Name())
	}

	if cfg.Metrics.Addr != "" {
		collector, err := metrics.NewCollector(prometheus.NewRegistry())
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("metrics: %w", err)
		}
		sinks = append(sinks, collector)

		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		s.metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := s.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", "addr", cfg.Metrics.Addr, "error", err)
			}
		}()
		log.Info("metrics listening", "addr", cfg.Metrics.Addr)
	}

	if cfg.Telemetry.WSAddr != "" {
		bridgeCtx, stopBridge := context.WithCancel(ctx)
		s.stopBridge = stopBridge
		bridge := foxglove.NewServer(foxglove.Config{
			WSAddr:           cfg.Telemetry.WSAddr,
			Name:             cfg.Telemetry.Name,
			ParentFrameID:    cfg.Telemetry.ParentFrame,
			FrameID:          cfg.Telemetry.FrameID,
			TranslationScale: cfg.Telemetry.TranslationScale,
		}, s.hub, log)
		s.bridgeDone.Add(1)
		go func() {
			defer s.bridgeDone.Done()
			if err := bridge.Run(bridgeCtx); err != nil {
				log.Error("foxglove bridge", "error", err)
			}
		}()
	}

	sinks = append(sinks, extra...)
	sinks = append(sinks, s.hub)

	opts := []link.Option{
		link.WithSendInterval(cfg.SendInterval()),
		link.WithTickPolicy(cfg.TickPolicy()),
		link.WithVariant(cfg.Variant()),
	}
	for _, sink := range sinks {
		opts = append(opts, link.WithSink(sink))
	}
	s.link = link.New(motionState(cfg), opts...)
	return s, nil
}

// Close releases the link, drains the hub into the packet log and shuts the
// servers down.
func (s *session) Close() {
	s.closeOnce.Do(func() {
		if s.link != nil {
			_ = s.link.Close()
		}
		// The bridge subscribes to the hub, so it stops first.
		if s.stopBridge != nil {
			s.stopBridge()
		}
		s.bridgeDone.Wait()
		s.stopHub()
		s.logDone.Wait()
		if s.metricsSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			_ = s.metricsSrv.Shutdown(shutdownCtx)
			cancel()
		}
		if s.jsonl != nil {
			_ = s.jsonl.WriteMarker(time.Now(), "session_end", fmt.Sprintf("dropped %d events", s.hub.Dropped()))
		}
		if s.file != nil {
			_ = s.file.Close()
		}
	})
}
