package main

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/divyam8333/CureBot/internal/config"
	"github.com/divyam8333/CureBot/internal/handler"
	"github.com/divyam8333/CureBot/internal/handler/events"
	chatservice "github.com/divyam8333/CureBot/internal/service/chat"
	"github.com/divyam8333/CureBot/internal/service/reply"
	streamservice "github.com/divyam8333/CureBot/internal/service/stream"
	"github.com/divyam8333/CureBot/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	store, err := openStore(cfg.Storage)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	defer store.Close()

	chatService := chatservice.NewService(store)

	seed := time.Now().UnixNano()
	if cfg.Reply.Seed != nil {
		seed = *cfg.Reply.Seed
	}
	rng := rand.New(rand.NewSource(seed))

	engine := streamservice.NewEngine(chatService, reply.New(), rng, cfg.Stream.Interval)

	hub := events.NewHub()
	chatService.Subscribe(hub)

	router := handler.NewRouter(chatService, engine, hub)

	startServer(ctx, cfg.Server, router)
}

func openStore(cfg config.StorageConfig) (storage.Store, error) {
	if cfg.Path == "" {
		log.Println("no database path configured, keeping chat state in memory")
		return storage.NewMemoryStore(), nil
	}

	store, err := storage.OpenSQLite(cfg.Path)
	if err != nil {
		return nil, err
	}
	log.Printf("chat state persisted to %s", cfg.Path)
	return store, nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("CureBot backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
