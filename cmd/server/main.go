package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/npc-engine/internal/config"
	"github.com/jwebster45206/npc-engine/internal/events"
	"github.com/jwebster45206/npc-engine/internal/handlers"
	"github.com/jwebster45206/npc-engine/internal/logger"
	"github.com/jwebster45206/npc-engine/internal/storage"
	"github.com/jwebster45206/npc-engine/pkg/snapshot"
	"github.com/jwebster45206/npc-engine/pkg/world"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting NPC Engine",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"storage_backend", cfg.StorageBackend,
		"data_dir", cfg.DataDir)

	store, err := storage.Open(storage.Options{
		Backend:       cfg.StorageBackend,
		DataDir:       cfg.DataDir,
		StrictContent: cfg.StrictDialogue,
		RedisURL:      cfg.RedisURL,
		SQLitePath:    cfg.SQLitePath,
		SaveDir:       cfg.SaveDir,
	}, log)
	if err != nil {
		log.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if rs, ok := store.(*storage.RedisStorage); ok {
		if err := rs.WaitForConnection(storageCtx); err != nil {
			log.Error("Failed to connect to storage", "error", err)
			os.Exit(1)
		}
	} else if err := store.Ping(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	w := world.New(world.Config{
		MinutesPerTick: cfg.MinutesPerTick,
		EnableChecksum: cfg.EnableChecksum,
		StrictDialogue: cfg.StrictDialogue,
	}, store, nil, log)

	if err := w.LoadContent(storageCtx); err != nil {
		log.Error("Failed to load content", "error", err)
		os.Exit(1)
	}

	if cfg.SaveSlot != "" {
		err := w.Load(storageCtx, cfg.SaveSlot)
		switch {
		case err == nil:
			log.Info("Resumed from save", "slot", cfg.SaveSlot, "time", w.Clock.Now().String())
		case snapshot.KindOf(err) == snapshot.KindNotFound:
			log.Info("No save to resume; starting fresh", "slot", cfg.SaveSlot)
		default:
			log.Warn("Could not resume from save; starting fresh", "slot", cfg.SaveSlot, "error", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mux := http.NewServeMux()

	mux.Handle("/health", handlers.NewHealthHandler(store, log))

	dialogueHandler := handlers.NewDialogueHandler(w, log)
	mux.Handle("/v1/dialogue", dialogueHandler)
	mux.Handle("/v1/dialogue/", dialogueHandler)

	charactersHandler := handlers.NewCharactersHandler(w, log)
	mux.Handle("/v1/characters", charactersHandler)
	mux.Handle("/v1/characters/", charactersHandler)

	savesHandler := handlers.NewSavesHandler(w, store, log)
	mux.Handle("/v1/saves", savesHandler)
	mux.Handle("/v1/saves/", savesHandler)

	// Live events need Pub/Sub, so they are only served with the redis backend.
	if rs, ok := store.(*storage.RedisStorage); ok {
		broadcaster := events.NewBroadcaster(rs.Client(), log)
		dialogueEvents, cancelDialogue := w.Dialogue.Subscribe(64)
		defer cancelDialogue()
		worldEvents, cancelWorld := w.Subscribe(16)
		defer cancelWorld()
		go broadcaster.Forward(ctx, dialogueEvents, worldEvents)

		mux.Handle("/v1/events", handlers.NewEventsHandler(rs.Client(), log))
		log.Info("Event stream enabled", "channel", events.Channel)
	}

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		opts := world.RunOptions{
			TickInterval:     cfg.TickInterval,
			AutosaveInterval: cfg.AutosaveInterval,
			AutosaveSlot:     cfg.SaveSlot,
		}
		if err := w.Run(ctx, opts); err != nil {
			log.Error("Simulation stopped with error", "error", err)
		}
	}()

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout left unset so the event stream can stay open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	cancel()
	<-runDone

	if cfg.SaveSlot != "" {
		if err := w.Save(shutdownCtx, cfg.SaveSlot); err != nil {
			log.Error("Final save failed", "slot", cfg.SaveSlot, "error", err)
		} else {
			log.Info("World saved", "slot", cfg.SaveSlot)
		}
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
