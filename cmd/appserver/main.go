// Command appserver runs the application server: authentication, chat
// persistence, and WebSocket fan-out, following the teacher's
// cmd/v1/session/main.go startup shape.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sindrigils/chatroom/internal/appserver/auth"
	"github.com/sindrigils/chatroom/internal/appserver/bus"
	"github.com/sindrigils/chatroom/internal/appserver/chat"
	"github.com/sindrigils/chatroom/internal/appserver/config"
	"github.com/sindrigils/chatroom/internal/appserver/httpapi"
	"github.com/sindrigils/chatroom/internal/appserver/persistence"
	"github.com/sindrigils/chatroom/internal/appserver/suggest"
	"github.com/sindrigils/chatroom/internal/platform/logging"
	"github.com/sindrigils/chatroom/internal/platform/tracing"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	for _, path := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(path); err == nil {
			break
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}

	env := "production"
	if !cfg.Production {
		env = "development"
	}
	log, err := logging.Init(env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer log.Sync()

	config.LogValidated(log, cfg)

	ctx := context.Background()

	shutdownTracing, err := tracing.Init(ctx, "chatroom-appserver")
	if err != nil {
		log.Warn("tracing init failed, continuing without it", zap.Error(err))
		shutdownTracing = func(context.Context) error { return nil }
	}

	store, err := persistence.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := store.Migrate(ctx); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	busService, err := bus.New(cfg.RedisURL)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}

	tokens := auth.New(cfg.JWTSecret, cfg.SessionTTL)
	suggestor := suggest.New(cfg.OllamaURL)
	chatCore := chat.New(busService, store, suggestor, log)

	engine := httpapi.NewRouter(httpapi.Deps{
		Persistence: store,
		Tokens:      tokens,
		Chat:        chatCore,
		SessionTTL:  cfg.SessionTTL,
		LBSecret:    cfg.LBSecret,
		Domain:      cfg.Domain,
		Production:  cfg.Production,
		Log:         log,
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: engine,
	}

	go func() {
		log.Info("app server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down app server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	_ = shutdownTracing(ctxShutdown)
}
