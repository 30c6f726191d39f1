// Command assistant runs the FAQ-grounded conversational assistant:
// hybrid retrieval over the catalog, threshold policy, and
// multi-provider generation fallback, behind a small HTTP API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/faq-assistant-kernel/internal/archive"
	"github.com/faq-assistant-kernel/internal/assistant"
	"github.com/faq-assistant-kernel/internal/cache"
	"github.com/faq-assistant-kernel/internal/catalog"
	"github.com/faq-assistant-kernel/internal/config"
	"github.com/faq-assistant-kernel/internal/embedding"
	"github.com/faq-assistant-kernel/internal/llm"
	"github.com/faq-assistant-kernel/internal/matcher"
	"github.com/faq-assistant-kernel/internal/memory"
	"github.com/faq-assistant-kernel/internal/policy"
	"github.com/faq-assistant-kernel/internal/server"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	defer func() {
		if r := recover(); r != nil {
			logger.Fatal("Panic in assistant main",
				zap.Any("panic", r),
				zap.Stack("stacktrace"))
		}
	}()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Starting assistant",
		zap.String("catalog", cfg.Catalog.Path),
		zap.String("embedding_backend", cfg.Embedding.Backend),
		zap.String("listen_addr", cfg.Server.ListenAddr))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Embedding backend, wrapped in the FIFO query cache.
	var base embedding.Embedder
	switch cfg.Embedding.Backend {
	case "hash":
		base = embedding.NewHashEmbedder(0)
	default:
		base = embedding.NewOllamaEmbedder(cfg.Embedding.OllamaURL, cfg.Embedding.Model)
	}
	queryCache := embedding.NewCachingEmbedder(base, cfg.Embedding.CacheSize, logger)
	defer queryCache.Close()

	// Catalog + matcher.
	store := catalog.NewFileStore(cfg.Catalog.Path, logger)
	matcherCfg := matcher.DefaultConfig()
	matcherCfg.RetrievalThreshold = cfg.Matcher.RetrievalThreshold
	m := matcher.New(store, queryCache, matcherCfg, logger)

	if err := m.Reload(ctx); err != nil {
		// Serve degraded (reflex rules + generation) rather than die;
		// an admin reload can recover once the catalog is fixed.
		logger.Warn("Initial catalog index build failed, starting with empty index",
			zap.Error(err))
	}

	// Policy.
	policyCfg := policy.DefaultConfig()
	policyCfg.DirectAnswerThreshold = cfg.Matcher.DirectAnswerThreshold
	policyCfg.EscalationFloor = cfg.Matcher.RetrievalThreshold
	pol := policy.New(policyCfg, logger)

	// Generation chain, cheapest first.
	orch := llm.NewOrchestrator(llm.Config{
		ProviderTimeout: cfg.LLM.ProviderTimeout.Std(),
		MaxTokens:       cfg.LLM.MaxTokens,
	}, logger)
	orch.Register(llm.NewGroqProvider(cfg.LLM.GroqAPIKey, cfg.LLM.GroqModel))
	orch.Register(llm.NewOpenAIProvider(cfg.LLM.OpenAIAPIKey, cfg.LLM.OpenAIModel))
	if cfg.LLM.EnableOllama {
		orch.Register(llm.NewOllamaProvider(cfg.LLM.OllamaURL, cfg.LLM.OllamaModel))
	}

	// Conversation memory.
	mem := memory.NewStore(cfg.Memory.MaxTurns, cfg.Memory.MaxUsers, logger)

	// Best-effort archiving.
	var sinks []archive.Sink
	var historySink *archive.RedisSink
	if cfg.Redis.Address != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		historySink = archive.NewRedisSink(client, logger)
		sinks = append(sinks, historySink)
		logger.Info("Redis turn archiving enabled", zap.String("address", cfg.Redis.Address))
	}
	if cfg.NATS.URL != "" {
		conn, err := nats.Connect(cfg.NATS.URL, nats.Name("faq-assistant"))
		if err != nil {
			logger.Warn("NATS connection failed, turn events disabled", zap.Error(err))
		} else {
			defer conn.Close()
			sinks = append(sinks, archive.NewNATSSink(conn))
			logger.Info("NATS turn events enabled", zap.String("url", cfg.NATS.URL))
		}
	}
	archiver := archive.New(sinks, logger)
	go archiver.Run(ctx)

	// Reply memo.
	replyMemo, err := cache.NewManager(cache.DefaultConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to create reply memo", zap.Error(err))
	}
	defer replyMemo.Close()

	svc := assistant.New(m, pol, orch, mem, archiver, queryCache, replyMemo, logger)

	// Follow catalog edits on disk.
	if cfg.Catalog.Watch {
		watcher, err := catalog.NewWatcher(cfg.Catalog.Path, func() {
			reloadCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if err := svc.Reload(reloadCtx); err != nil {
				logger.Error("Automatic catalog reload failed", zap.Error(err))
			}
		}, logger)
		if err != nil {
			logger.Warn("Catalog watcher unavailable", zap.Error(err))
		} else {
			go func() {
				if err := watcher.Run(ctx); err != nil {
					logger.Warn("Catalog watcher stopped", zap.Error(err))
				}
			}()
		}
	}

	srv := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      server.New(svc, historySink, logger).Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Server.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	archiver.Wait()
}
