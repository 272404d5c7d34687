package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/z-interview/backend/internal/bootstrap"
	"github.com/zhouzirui/z-interview/backend/internal/config"
	"github.com/zhouzirui/z-interview/backend/internal/handler"
	interviewHandler "github.com/zhouzirui/z-interview/backend/internal/handler/interview"
)

const shutdownTimeout = 30 * time.Second

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

	svc, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize services: %v", err)
	}

	deps := handler.Deps{
		Tenants:     svc.Tenants,
		Store:       svc.Store,
		CORSOrigins: cfg.Server.CORSOrigins,
	}
	if svc.Pipeline != nil {
		deps.Pipeline = svc.Pipeline
	}
	if svc.Extractor.Enabled() {
		deps.Extractor = svc.Extractor
	}
	if svc.Enhancer.Enabled() {
		deps.Enhancer = svc.Enhancer
	}

	var interviews *interviewHandler.WebSocketHandler
	if svc.Generator != nil {
		interviews = interviewHandler.NewWebSocketHandler(interviewHandler.Config{
			Generator:     svc.Generator,
			Store:         svc.Store,
			Prompts:       svc.Prompts,
			Extractor:     svc.Extractor,
			Options:       bootstrap.InterviewOptions(cfg.Interview),
			ModelProvider: cfg.Interview.ModelProvider,
		})
		deps.Interview = interviews
		log.Println("Realtime interview endpoint enabled")
	} else {
		log.Println("Realtime interview endpoint disabled: no chat model")
	}

	router := handler.NewRouter(deps)

	startServer(ctx, cfg.Server, router, interviews)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, interviews *interviewHandler.WebSocketHandler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if interviews != nil {
		// hijacked websocket connections are not tracked by Shutdown
		srv.RegisterOnShutdown(func() {
			if n := interviews.Tracker().CancelAll(); n > 0 {
				log.Printf("closing %d live interview session(s)", n)
			}
		})
	}

	log.Printf("Z Interview backend listening on %s", addr)
	if err := runServer(ctx, srv, interviews); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server, interviews *interviewHandler.WebSocketHandler) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		if interviews != nil && !interviews.Tracker().Wait(shutdownCtx) {
			log.Printf("warning: %d interview session(s) did not finalize before shutdown", interviews.Tracker().Count())
		}
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
