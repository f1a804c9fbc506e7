// Package httpapi assembles the load balancer's gin router: the locally
// handled routes (/health, /status, /metrics), the websocket upgrade route,
// and a NoRoute catch-all that reverse-proxies everything else, grounded on the original
// load balancer's routing/handlers.rs for handler ordering (select target,
// set sticky cookie, then forward/upgrade).
package httpapi

import (
	"net/http"
	"time"

	"github.com/sindrigils/chatroom/internal/lb/apierrors"
	"github.com/sindrigils/chatroom/internal/lb/cookie"
	"github.com/sindrigils/chatroom/internal/lb/metrics"
	"github.com/sindrigils/chatroom/internal/lb/proxy"
	"github.com/sindrigils/chatroom/internal/lb/ratelimit"
	"github.com/sindrigils/chatroom/internal/lb/registry"
	"github.com/sindrigils/chatroom/internal/lb/session"
	"github.com/sindrigils/chatroom/internal/lb/types"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps bundles everything the router needs to build request handlers.
type Deps struct {
	Registry   *registry.Registry
	Router     types.Router
	Extractor  *session.Extractor
	HTTPProxy  *proxy.HTTPProxy
	WSProxy    *proxy.WebSocketProxy
	Cookie     *cookie.Writer
	RateLimit  *ratelimit.Limiter
	Log        *zap.Logger
}

// NewRouter builds the full gin engine for the load balancer.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", d.handleHealth)
	r.GET("/status", d.handleStatus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	proxyGroup := r.Group("/")
	proxyGroup.Use(d.rateLimitMiddleware)
	proxyGroup.Any("/ws/*path", d.handleWebsocket)
	r.NoRoute(d.rateLimitMiddleware, d.handleHTTP)

	return r
}

func (d Deps) rateLimitMiddleware(c *gin.Context) {
	if err := d.RateLimit.Allow(c.Request.Context(), c.Request); err != nil {
		metrics.RateLimitRejections.Inc()
		writeError(c, apierrors.AsError(err))
		c.Abort()
		return
	}
	c.Next()
}

func (d Deps) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "load-balancer",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (d Deps) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"backends": d.Registry.List()})
}

func (d Deps) selectBackend(c *gin.Context) (types.Backend, bool) {
	key := d.Extractor.Extract(c.Request)
	backend, ok := d.Router.Route(key)
	if ok {
		current, _ := d.Extractor.StickyID(c.Request)
		d.Cookie.WriteIfNeeded(c.Writer, string(current), backend.ID)
	}
	return backend, ok
}

func (d Deps) handleHTTP(c *gin.Context) {
	backend, ok := d.selectBackend(c)
	if !ok {
		writeError(c, apierrors.New(apierrors.KindServiceUnavailable, nil))
		return
	}

	d.Registry.Inc(backend.ID)
	defer d.Registry.Dec(backend.ID)

	if err := d.HTTPProxy.Forward(c.Writer, c.Request, backend); err != nil {
		apiErr := apierrors.AsError(err)
		metrics.ForwardsTotal.WithLabelValues(string(backend.ID), "error").Inc()
		d.Log.Warn("forward failed", zap.String("backend_id", string(backend.ID)), zap.Error(apiErr))
		if !c.Writer.Written() {
			writeError(c, apiErr)
		}
		return
	}
	metrics.ForwardsTotal.WithLabelValues(string(backend.ID), "ok").Inc()
}

func (d Deps) handleWebsocket(c *gin.Context) {
	backend, ok := d.selectBackend(c)
	if !ok {
		writeError(c, apierrors.New(apierrors.KindServiceUnavailable, nil))
		return
	}

	key := d.Extractor.Extract(c.Request)
	metrics.WSSessionsActive.Inc()
	defer metrics.WSSessionsActive.Dec()

	if err := d.WSProxy.Proxy(c.Writer, c.Request, backend, key.UserID); err != nil {
		d.Log.Warn("websocket proxy session ended with error",
			zap.String("backend_id", string(backend.ID)), zap.Error(err))
	}
}

func writeError(c *gin.Context, err *apierrors.Error) {
	c.JSON(apierrors.Status(err.Kind), apierrors.Body{Error: err.Message})
}
