// Package main implements the toy rail-network simulator that feeds the demo
// dashboard: static track geometry, live train positions, and incident
// trigger/resolve hooks.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TrackSideAI/trackside-mvp/engine/sim"
	"github.com/TrackSideAI/trackside-mvp/pkg/mid"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	port := os.Getenv("SIM_PORT")
	if port == "" {
		port = "8001"
	}

	network := sim.NewNetwork()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /network-data", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, network.Tracks())
	})
	mux.HandleFunc("GET /live-positions", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, network.Step())
	})
	mux.HandleFunc("POST /trigger-incident/{train_id}", func(w http.ResponseWriter, r *http.Request) {
		if !network.TriggerIncident(r.PathValue("train_id")) {
			writeStatus(w, http.StatusNotFound, "Unknown Train")
			return
		}
		writeStatus(w, http.StatusOK, "Incident Triggered")
	})
	mux.HandleFunc("POST /resolve-incident/{train_id}", func(w http.ResponseWriter, r *http.Request) {
		if !network.ResolveIncident(r.PathValue("train_id")) {
			writeStatus(w, http.StatusNotFound, "Unknown Train")
			return
		}
		writeStatus(w, http.StatusOK, "Incident Resolved")
	})

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS("*"),
	)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("simulator starting", "port", port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("simulator exited with error", "err", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutCtx)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}
