// Command copilot is the main entrypoint for the stream co-pilot control plane.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations.
//   - Starts the chat pipeline and its ingestion workers: Twitch IRC,
//     YouTube live chat polling, and the Streamer.bot websocket.
//   - Exposes the HTTP API with /config, /status, /audio, /ws/logs, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/streamforge/copilot/audio"
	"github.com/streamforge/copilot/bus"
	"github.com/streamforge/copilot/config"
	"github.com/streamforge/copilot/cooldown"
	"github.com/streamforge/copilot/db"
	"github.com/streamforge/copilot/moderation"
	"github.com/streamforge/copilot/orchestrator"
	"github.com/streamforge/copilot/pipeline"
	"github.com/streamforge/copilot/server"
	"github.com/streamforge/copilot/streamerbot"
	"github.com/streamforge/copilot/telemetry"
	"github.com/streamforge/copilot/twitch"
	"github.com/streamforge/copilot/viewer"
	"github.com/streamforge/copilot/youtube"
)

const version = "1.0.0"

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		// unknown level -> keep info but note once using temporary logger
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("stream-copilot", version)
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// DB
	database, err := db.Connect(cfg.DBDsn)
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer bootCancel()

	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.Migrate(bootCtx, database); err != nil {
		slog.Error("failed to migrate db", slog.Any("err", err))
		os.Exit(1)
	}

	// Operator config document (persisted in kv, editable over the API)
	store, err := config.NewStore(bootCtx, database)
	if err != nil {
		slog.Error("failed to load config document", slog.Any("err", err))
		os.Exit(1)
	}

	// Viewer loyalty records
	viewers, err := viewer.NewStore(bootCtx, database)
	if err != nil {
		slog.Error("failed to load viewer records", slog.Any("err", err))
		os.Exit(1)
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Pipeline stages
	events := bus.New(bus.DefaultBacklog)
	defer events.Close()
	store.OnChange(func(*config.Document) {
		events.Publish(bus.Log("SYSTEM", "", "Configuration updated"))
	})

	gate := moderation.NewGate()
	governor := cooldown.NewGovernor()
	orch := orchestrator.New(nil)

	// Queue size is read once at startup; changing it in the dashboard takes
	// effect on the next restart.
	dispatcher := audio.NewDispatcher(audio.NewUDPSpeaker(store), store.Get().Audio.QueueSize)
	dispatcher.Start(ctx)

	sb := streamerbot.NewClient(store, events)
	go sb.Run(ctx)

	coordinator := pipeline.New(store, gate, governor, orch, dispatcher, viewers, events, sb)

	// Ingestion workers
	reader := twitch.NewReader(cfg, coordinator)
	go reader.Run(ctx)

	poller := youtube.NewPoller(cfg, store, coordinator)
	go poller.Run(ctx)

	watcher := twitch.NewLiveWatcher(twitch.NewHelixClient(cfg.TwitchClientID, cfg.TwitchClientSecret), cfg.TwitchChannel, events)
	go watcher.Run(ctx)

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	// HTTP server
	deps := &server.Deps{
		DB:           database,
		Config:       store,
		Bus:          events,
		Audio:        dispatcher,
		Orchestrator: orch,
		Pipeline:     coordinator,
		Viewers:      viewers,
		StreamerBot:  sb,
		Twitch:       reader,
		YouTube:      poller,
		Live:         watcher,
		Version:      version,
	}
	go func() {
		if err := server.Start(ctx, deps, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
	dispatcher.Wait()
}
