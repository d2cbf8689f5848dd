// Package app assembles the server process: configuration, logging
// router, collaborators, room registry and the HTTP surface.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"coil-and-cash/server/internal/arena"
	"coil-and-cash/server/internal/rooms"
	"coil-and-cash/server/internal/settle"
	"coil-and-cash/server/internal/store"
	"coil-and-cash/server/internal/ws"
	"coil-and-cash/server/logging"
	"coil-and-cash/server/logging/sinks"
)

// Run wires the process together and serves until the listener fails.
func Run(ctx context.Context) error {
	cfg, err := ParseConfig()
	if err != nil {
		return err
	}
	logger := log.Default()

	router, cleanup, err := buildLoggingRouter(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := router.Close(ctx); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
		cleanup()
	}()

	var settler arena.Settler
	if cfg.SettlementEndpoint != "" {
		settler = settle.NewHTTPSettler(cfg.SettlementEndpoint)
	} else {
		logger.Printf("no settlement endpoint configured, using local settler")
		settler = settle.NewLocal()
	}

	var recorder rooms.OutcomeRecorder
	if cfg.OutcomeDBPath != "" {
		outcomes, err := store.Open(cfg.OutcomeDBPath, logger)
		if err != nil {
			return fmt.Errorf("open outcome store: %w", err)
		}
		defer func() {
			if cerr := outcomes.Close(); cerr != nil {
				logger.Printf("failed to close outcome store: %v", cerr)
			}
		}()
		recorder = outcomes
	}

	registry := rooms.NewRegistry(cfg.StakeTiers, rooms.Deps{
		Settler:   settler,
		Recorder:  recorder,
		Publisher: router,
		WorldCfg: arena.Config{
			ArenaRadius: cfg.ArenaRadius,
			TargetItems: cfg.TargetItems,
		},
	})
	defer registry.Close()

	handler := ws.NewHandler(registry, router, logger)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/diagnostics", func(w http.ResponseWriter, r *http.Request) {
		roomsDiag, sessionsDiag := registry.Diagnostics()
		payload := struct {
			Status     string                     `json:"status"`
			ServerTime int64                      `json:"serverTime"`
			TickRate   int                        `json:"tickRate"`
			Rooms      []rooms.RoomDiagnostics    `json:"rooms"`
			Sessions   []rooms.SessionDiagnostics `json:"sessions"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			TickRate:   arena.TickRate,
			Rooms:      roomsDiag,
			Sessions:   sessionsDiag,
		}
		data, err := json.Marshal(payload)
		if err != nil {
			http.Error(w, "failed to encode", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Printf("upgrade failed: %v", err)
			return
		}
		handler.Serve(conn)
	})

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	logger.Printf("server listening on %s (rooms: %v)", cfg.ListenAddr, registry.RoomIDs())

	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// buildLoggingRouter assembles the configured sinks. The returned cleanup
// closes any files the sinks write to.
func buildLoggingRouter(cfg Config) (*logging.Router, func(), error) {
	logCfg := logging.DefaultConfig()
	logCfg.EnabledSinks = cfg.LogSinks
	if cfg.LogJSONPath != "" {
		logCfg.JSON.FilePath = cfg.LogJSONPath
	}

	var named []logging.NamedSink
	cleanup := func() {}
	if logCfg.HasSink("console") {
		named = append(named, logging.NamedSink{Name: "console", Sink: sinks.NewConsoleSink(os.Stdout)})
	}
	if logCfg.HasSink("json") {
		file, err := os.OpenFile(logCfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open json log file: %w", err)
		}
		named = append(named, logging.NamedSink{Name: "json", Sink: sinks.NewJSON(file, logCfg.JSON.FlushInterval)})
		cleanup = func() { file.Close() }
	}
	if logCfg.HasSink("memory") {
		named = append(named, logging.NamedSink{Name: "memory", Sink: sinks.NewMemorySink()})
	}

	return logging.NewRouter(logging.SystemClock{}, logCfg, named), cleanup, nil
}
