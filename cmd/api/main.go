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

	"github.com/chiayulin/mindcoach/backend/internal/config"
	"github.com/chiayulin/mindcoach/backend/internal/fallback"
	"github.com/chiayulin/mindcoach/backend/internal/handler"
	chatHandler "github.com/chiayulin/mindcoach/backend/internal/handler/chat"
	webhookHandler "github.com/chiayulin/mindcoach/backend/internal/handler/webhook"
	"github.com/chiayulin/mindcoach/backend/internal/model/persona"
	"github.com/chiayulin/mindcoach/backend/internal/service/ai"
	"github.com/chiayulin/mindcoach/backend/internal/service/history"
	"github.com/chiayulin/mindcoach/backend/internal/service/line"
	"github.com/chiayulin/mindcoach/backend/internal/service/relay"
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

	personaStore := persona.NewMemoryStore(persona.Seed())
	recorder := history.NewMemoryRecorder(256)
	pool := fallback.Default()

	// Initialize the completion gateway
	var aiService *ai.Service
	if cfg.AI.Enabled() {
		aiService, err = ai.NewService(ctx, cfg.AI, pool)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without AI functionality - 請檢查 Ark 模型相關環境變數")
		} else {
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("Ark 憑證未配置，跳過 AI 功能初始化")
	}

	var chatH *chatHandler.Handler
	if aiService != nil {
		chatH = chatHandler.New(aiService, personaStore, recorder, cfg.Relay.MaxTextLength)
	}

	// Initialize the LINE webhook pipeline
	var webhookH *webhookHandler.Handler
	switch {
	case !cfg.Line.Enabled():
		log.Println("LINE 頻道憑證未配置，跳過 webhook 功能初始化")
	case aiService == nil:
		log.Println("AI 服務未就緒，跳過 webhook 功能初始化")
	default:
		coach, ok := personaStore.FindByID(persona.MindCoachID)
		if !ok {
			log.Fatalf("mind coach persona missing from seed data")
		}
		relayService := relay.NewService(aiService, line.NewClient(cfg.Line), recorder, coach, cfg.Relay)
		webhookH = webhookHandler.New(relayService, cfg.Line.ChannelSecret)
		log.Println("LINE webhook pipeline initialized successfully")
	}

	router := handler.NewRouter(personaStore, webhookH, chatH)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Mind Coach backend listening on %s", addr)
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
