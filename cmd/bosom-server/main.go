package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Mriidul2508/Bosom/internal/capability"
	"github.com/Mriidul2508/Bosom/internal/config"
	"github.com/Mriidul2508/Bosom/internal/dispatch"
	"github.com/Mriidul2508/Bosom/internal/knowcache"
	"github.com/Mriidul2508/Bosom/internal/server"
	"github.com/Mriidul2508/Bosom/internal/session"
)

func main() {
	cfg := config.Load()

	zapCfg := zap.NewProductionConfig()
	if cfg.Debug {
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zapCfg.Build()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Summary cache is optional; without Redis every knowledge lookup
	// goes straight to the remote service.
	var cache *knowcache.Cache
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Info("connected to Redis")
		cache = knowcache.New(rdb, logger)
	}

	knowledge := capability.NewWikipediaService(cfg.KnowledgeBaseURL, cfg.AdapterTimeout, cache, logger)

	creds := capability.NewStaticCredentialStore(cfg.MailToken)
	mail := capability.NewGatewayMailService(cfg.MailGatewayURL, cfg.AdapterTimeout, creds, logger)

	var backends []capability.GenerativeBackend
	if cfg.GeminiAPIKey != "" {
		gemini, err := capability.NewGeminiBackend(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.AdapterTimeout)
		if err != nil {
			logger.Fatal("failed to create Gemini backend", zap.Error(err))
		}
		backends = append(backends, gemini)
	}
	if cfg.OpenAIAPIKey != "" {
		oai, err := capability.NewOpenAIBackend(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.AdapterTimeout)
		if err != nil {
			logger.Fatal("failed to create OpenAI backend", zap.Error(err))
		}
		backends = append(backends, oai)
	}
	if len(backends) == 0 {
		logger.Warn("no generative backend configured, conversational replies will fail")
	}
	chain := capability.NewFallbackChain(logger, backends...)

	dispatcher := dispatch.New(knowledge, mail, chain, cfg.StreamReplies, logger)
	sessions := session.NewManager(logger)
	wsHandler := server.NewHandler(dispatcher, sessions, creds, cfg.AllowedOrigins, logger)

	mux := http.NewServeMux()
	mux.Handle("/ws", wsHandler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: mux,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
		srv.Close()
	}()

	logger.Info("assistant server listening", zap.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
