package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/seance/backend/internal/config"
	"github.com/zhouzirui/seance/backend/internal/handler"
	"github.com/zhouzirui/seance/backend/internal/handler/seance"
	"github.com/zhouzirui/seance/backend/internal/metrics"
	"github.com/zhouzirui/seance/backend/internal/realtime"
	"github.com/zhouzirui/seance/backend/internal/service/session"
	"github.com/zhouzirui/seance/backend/internal/service/speech"
	"github.com/zhouzirui/seance/backend/internal/service/spirit"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// .env 是可选的，缺失时只使用系统环境变量
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logs.GetLoggerFromString(cfg.Server.LogLevel)
	if envErr != nil {
		log.Debug("config.dotenv_skipped", "error", envErr)
	}

	metrics.Register(prometheus.DefaultRegisterer)

	store, err := openStore(cfg.Session, log)
	if err != nil {
		return err
	}
	sessions := session.NewService(store, cfg.Session.MaxUsers, log)
	defer func() {
		log.Info("session.store_closing", "store", cfg.Session.Store)
		if err := sessions.Close(); err != nil {
			log.Warn("session.store_close_failed", "error", err)
		}
	}()

	orchestrator := spirit.NewOrchestrator(newProvider(ctx, cfg.AI, log), spirit.Config{
		MaxAttempts:    cfg.Spirit.MaxAttempts,
		BackoffUnit:    cfg.Spirit.BackoffUnit,
		AttemptTimeout: cfg.Spirit.AttemptTimeout,
		Sampling:       spirit.DefaultSampling().Override(cfg.AI.Temperature, cfg.AI.TopP, cfg.AI.MaxTokens),
	}, log)

	registry := realtime.NewRegistry()
	broadcaster := realtime.NewBroadcaster(registry, log)
	pipeline := seance.NewPipeline(broadcaster, orchestrator, sessions,
		seance.Policy{EnforceCapacity: cfg.Session.EnforceCapacity}, log)
	wsHandler := seance.NewWebSocketHandler(pipeline, sessions, seance.SocketConfig{
		PongWait:               cfg.Socket.PongWait,
		WriteTimeout:           cfg.Socket.WriteTimeout,
		ReadLimit:              cfg.Socket.ReadLimit,
		RequireExistingSession: cfg.Session.RequireExisting,
	}, log)

	tts := speech.NewClient(cfg.Speech.Config, log)
	if tts.Enabled() {
		log.Info("speech.enabled", "voice", cfg.Speech.Voice)
	} else {
		log.Info("speech.disabled", "reason", "SPEECH_APP_ID or SPEECH_ACCESS_TOKEN missing")
	}

	router := handler.NewRouter(handler.Dependencies{
		Sessions:    sessions,
		Presence:    registry,
		Seance:      wsHandler,
		TTS:         tts,
		CORSOrigins: cfg.Server.CORSOrigins,
		Log:         log,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		// 请求上下文派生自信号上下文，关闭时 WebSocket 的 ping 循环随之退出
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server.listening", "addr", cfg.Server.Addr, "store", cfg.Session.Store, "ai", cfg.AI.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("server.shutting_down", "active_sessions", len(registry.Sessions()))
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore 按配置创建会话存储
func openStore(cfg config.SessionConfig, log *slog.Logger) (session.Store, error) {
	switch session.StoreType(cfg.Store) {
	case session.StoreTypeBadger:
		db, err := badger.Open(badger.DefaultOptions(cfg.BadgerPath).WithLoggingLevel(badger.WARNING))
		if err != nil {
			return nil, fmt.Errorf("database opening failed: %w", err)
		}
		log.Info("session.store_opened", "store", cfg.Store, "path", cfg.BadgerPath)
		return session.NewStore(session.StoreTypeBadger, session.WithBadgerDB(db))

	case session.StoreTypeRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		log.Info("session.store_opened", "store", cfg.Store, "addr", opts.Addr)
		return session.NewStore(session.StoreTypeRedis, session.WithRedisClient(client), session.WithRedisTTL(cfg.RedisTTL))

	default:
		log.Info("session.store_opened", "store", session.StoreTypeMemory)
		return session.NewStore(session.StoreTypeMemory)
	}
}

// newProvider 初始化 Ark 模型；未配置或失败时返回 nil，由编排器走兜底台词
func newProvider(ctx context.Context, cfg config.AIConfig, log *slog.Logger) spirit.Provider {
	if !cfg.Enabled() {
		log.Info("spirit.provider_disabled", "reason", "Ark 凭证未配置，使用兜底台词")
		return nil
	}

	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		log.Warn("spirit.provider_init_failed", "error", err)
		return nil
	}

	provider, err := spirit.NewChatProvider(ctx, chatModel)
	if err != nil {
		log.Warn("spirit.provider_init_failed", "error", err)
		return nil
	}

	log.Info("spirit.provider_ready", "model", cfg.Model)
	return provider
}
