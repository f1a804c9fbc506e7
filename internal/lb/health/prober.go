// Package health implements the Health Prober component, grounded on the
// original load balancer's core/health_checker.rs: a ticker-driven loop that
// GETs each backend's /health endpoint and acts only on liveness transitions.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/sindrigils/chatroom/internal/lb/types"
	"go.uber.org/zap"
)

// Registry is the subset of the Backend Registry the prober needs.
type Registry interface {
	List() []types.Backend
	SetHealth(id types.BackendID, healthy bool)
	TouchProbe(id types.BackendID)
}

// WSRegistry is the subset of the WS Connection Registry the prober drains
// through on a healthy->unhealthy transition.
type WSRegistry interface {
	CloseByBackend(backend types.BackendID) int
}

// Prober periodically probes every registered backend.
type Prober struct {
	registry Registry
	ws       WSRegistry
	client   *http.Client
	interval time.Duration
	log      *zap.Logger
}

// New builds a Prober with the given probe interval and per-probe timeout.
func New(registry Registry, ws WSRegistry, interval, timeout time.Duration, log *zap.Logger) *Prober {
	return &Prober{
		registry: registry,
		ws:       ws,
		client:   &http.Client{Timeout: timeout},
		interval: interval,
		log:      log,
	}
}

// Run blocks, probing every backend once per tick, until ctx is canceled.
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.probeAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.probeAll(ctx)
		}
	}
}

func (p *Prober) probeAll(ctx context.Context) {
	for _, backend := range p.registry.List() {
		p.probeOne(ctx, backend)
	}
}

func (p *Prober) probeOne(ctx context.Context, backend types.Backend) {
	p.registry.TouchProbe(backend.ID)

	healthy := p.ping(ctx, backend.BaseURL)

	if healthy == backend.Healthy {
		return
	}

	p.registry.SetHealth(backend.ID, healthy)

	if !healthy {
		drained := p.ws.CloseByBackend(backend.ID)
		p.log.Warn("backend transitioned healthy->unhealthy, draining sockets",
			zap.String("backend_id", string(backend.ID)), zap.Int("drained", drained))
		return
	}
	p.log.Info("backend transitioned unhealthy->healthy", zap.String("backend_id", string(backend.ID)))
}

func (p *Prober) ping(ctx context.Context, baseURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
