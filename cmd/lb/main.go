// Command lb runs the layer-7 load balancer: backend pool management,
// health probing, consistent-hash and sticky-cookie routing, and HTTP/
// WebSocket reverse proxying, following the teacher's cmd/v1/session/main.go
// startup shape (env load, router assembly, graceful shutdown).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sindrigils/chatroom/internal/lb/config"
	"github.com/sindrigils/chatroom/internal/lb/cookie"
	"github.com/sindrigils/chatroom/internal/lb/hashring"
	"github.com/sindrigils/chatroom/internal/lb/health"
	"github.com/sindrigils/chatroom/internal/lb/httpapi"
	"github.com/sindrigils/chatroom/internal/lb/proxy"
	"github.com/sindrigils/chatroom/internal/lb/ratelimit"
	"github.com/sindrigils/chatroom/internal/lb/registry"
	"github.com/sindrigils/chatroom/internal/lb/router"
	"github.com/sindrigils/chatroom/internal/lb/session"
	"github.com/sindrigils/chatroom/internal/lb/types"
	"github.com/sindrigils/chatroom/internal/lb/wsregistry"
	"github.com/sindrigils/chatroom/internal/platform/logging"
	"github.com/sindrigils/chatroom/internal/platform/tracing"
	"github.com/joho/godotenv"
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

	shutdownTracing, err := tracing.Init(context.Background(), "chatroom-lb")
	if err != nil {
		log.Warn("tracing init failed, continuing without it", zap.Error(err))
		shutdownTracing = func(context.Context) error { return nil }
	}

	specs := make(map[types.BackendID]string, len(cfg.Backends))
	ids := make([]types.BackendID, 0, len(cfg.Backends))
	for _, b := range cfg.Backends {
		specs[b.ID] = b.BaseURL
		ids = append(ids, b.ID)
	}

	backendRegistry := registry.New(specs)
	wsRegistry := wsregistry.New()
	ring := hashring.Build(ids, backendRegistry)
	rt := router.New(backendRegistry, ring)
	extractor := session.New(cfg.StickyCookieName)
	httpProxy := proxy.NewHTTP(cfg.LBSecret)
	wsProxy := proxy.NewWebSocket(wsRegistry, backendRegistry, cfg.LBSecret, log)
	cookieWriter := cookie.New(cfg.StickyCookieName, cfg.StickyCookieMaxAge, cfg.Production)
	limiter := ratelimit.New(cfg.RateLimitPerSecond, cfg.RateLimitBurstSize)

	prober := health.New(backendRegistry, wsRegistry, cfg.HealthCheckInterval, cfg.HealthCheckTimeout, log)
	probeCtx, cancelProbe := context.WithCancel(context.Background())
	go prober.Run(probeCtx)

	engine := httpapi.NewRouter(httpapi.Deps{
		Registry:  backendRegistry,
		Router:    rt,
		Extractor: extractor,
		HTTPProxy: httpProxy,
		WSProxy:   wsProxy,
		Cookie:    cookieWriter,
		RateLimit: limiter,
		Log:       log,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: engine,
	}

	go func() {
		log.Info("load balancer starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down load balancer")

	cancelProbe()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	_ = shutdownTracing(ctx)
}
