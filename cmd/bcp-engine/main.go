// Command bcp-engine runs one side of the link-arbitration protocol over
// a serial device, exposing Prometheus metrics and periodic heartbeat
// logging alongside the session.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"arqlink/config"
	"arqlink/engine"
	"arqlink/protocol"
	"arqlink/serial"

	bcpparser "arqlink/parser"
)

func main() {
	os.Exit(run())
}

func run() int {
	var configPath, device string
	flag.StringVar(&configPath, "config", "", "path to a YAML config file (overrides -device)")
	flag.StringVar(&device, "device", "", "serial device path, e.g. /dev/ttyUSB0")
	flag.Parse()

	cfg, err := loadConfig(configPath, device)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	log := newLogger(cfg.Logging)

	port, err := serial.Open(serial.Config{
		Device:      cfg.Serial.Device,
		Baud:        cfg.Serial.Baud,
		ReadTimeout: cfg.Serial.ReadTimeout,
	})
	if err != nil {
		log.Error("failed to open serial port", slog.Any("error", err))
		return 1
	}
	defer port.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	bus := protocol.NewEventBus()
	queue := protocol.NewQueue()
	tx := protocol.NewTransmitter(queue, serial.NewWriter(port))

	p := bcpparser.NewParser(bus)
	go func() {
		if err := serial.ReadLoop(ctx, port, p); err != nil && ctx.Err() == nil {
			log.Error("serial read loop stopped", slog.Any("error", err))
		}
	}()

	reg := prometheus.NewRegistry()
	obs := engine.MultiObserver{
		engine.NewMetrics(reg),
		engine.NewLoggingObserver(log),
	}

	if cfg.Metrics.Enabled {
		go serveMetrics(log, cfg.Metrics.Address, reg)
	}

	if cfg.Heartbeat.Schedule != "" {
		stopHeartbeat := startHeartbeat(log, cfg.Heartbeat.Schedule, queue)
		defer stopHeartbeat()
	}

	ctrl := engine.New(bus, tx, queue, engine.Config{
		ReplyTimeout:         cfg.Link.ReplyTimeout,
		DataInspectionWindow: cfg.Link.DataInspectionWindow,
		MaxReplyTimeouts:     cfg.Link.MaxReplyTimeouts,
		IdleENQRate:          rate.Limit(cfg.Link.IdleENQPerSecond),
		IdleENQBurst:         1,
	}, obs)

	return ctrl.Run(ctx)
}

func loadConfig(configPath, device string) (*config.File, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	if device == "" {
		return nil, fmt.Errorf("either -config or -device must be supplied")
	}
	return config.Default(device), nil
}

func newLogger(cfg config.LoggingInfo) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func serveMetrics(log *slog.Logger, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	log.Info("serving metrics", slog.String("address", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics server stopped", slog.Any("error", err))
	}
}

// startHeartbeat logs the outbound queue depth on the configured cron
// schedule, a cheap liveness signal independent of the session's own
// Observer callbacks.
func startHeartbeat(log *slog.Logger, schedule string, queue *protocol.Queue) (stop func()) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		log.Info("heartbeat", slog.Int("queued_bytes", queue.Len()))
	})
	if err != nil {
		log.Warn("invalid heartbeat schedule, heartbeat disabled", slog.Any("error", err))
		return func() {}
	}
	c.Start()
	return func() { <-c.Stop().Done() }
}
