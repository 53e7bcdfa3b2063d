package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cchaithanya83/video-conferncing-platform/internal/config"
	"github.com/cchaithanya83/video-conferncing-platform/internal/logging"
	"github.com/cchaithanya83/video-conferncing-platform/internal/meeting"
	"github.com/cchaithanya83/video-conferncing-platform/internal/server"
	"github.com/cchaithanya83/video-conferncing-platform/internal/signaling"
	"github.com/cchaithanya83/video-conferncing-platform/internal/transcribe"
	"github.com/cchaithanya83/video-conferncing-platform/internal/version"
)

func main() {
	logging.Init()

	var opts config.Options
	flag.StringVar(&opts.ListenAddr, "listen", "", "address to listen on (default :8080)")
	flag.StringVar(&opts.MongoURI, "mongo-uri", "", "MongoDB connection URI (empty disables the meeting store)")
	flag.StringVar(&opts.TranscriberURL, "transcriber-url", "", "transcription service URL (empty disables /transcribe)")
	flag.Parse()

	cfg, err := config.Load(opts)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// 1. Meeting store: Mongo when configured, in-memory otherwise.
	var store meeting.Store
	if cfg.MongoURI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		mongoStore, err := meeting.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
		cancel()
		if err != nil {
			slog.Error("failed to connect to MongoDB", "error", err)
			os.Exit(1)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			mongoStore.Close(ctx)
		}()
		store = mongoStore
		slog.Info("meeting store: mongodb", "database", cfg.MongoDatabase)
	} else {
		store = meeting.NewMemoryStore()
		slog.Info("meeting store: in-memory")
	}

	var recognizer transcribe.Recognizer
	if cfg.TranscriberURL != "" {
		recognizer = transcribe.NewHTTPRecognizer(cfg.TranscriberURL)
		slog.Info("transcription proxy enabled", "url", cfg.TranscriberURL)
	}

	// 2. Create the room coordinator and start its event loop.
	hub := signaling.NewHub()
	go hub.Run()

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.NewMux(hub, store, recognizer),
	}

	// 3. Serve until interrupted, then drain.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting signaling server",
			"addr", cfg.ListenAddr,
			"version", version.Version)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("shutdown did not finish cleanly", "error", err)
		}
		hub.Stop()
	}
}
