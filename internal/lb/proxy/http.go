// Package proxy implements the HTTP Proxy and WebSocket Proxy components
// (spec.md §4.7, §4.8), grounded on the original load balancer's
// routing/proxy_service.rs for exact header handling, connection pool
// tuning, and forwarding semantics, with the pooled-transport/reverse-proxy
// pattern cross-checked against the retrieval pack's
// streamspace-dev-streamspace/api/internal/handlers/selkies_proxy.go.
package proxy

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sindrigils/chatroom/internal/lb/apierrors"
	"github.com/sindrigils/chatroom/internal/lb/types"
)

const (
	forwardedBy = "rust-load-balancer"
	servedBy    = "rust-load-balancer"
)

// hopByHop headers are never copied across the proxy boundary in either
// direction (case comparison is done case-insensitively via http.Header).
var hopByHop = map[string]bool{
	"Connection":          true,
	"Upgrade":             true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailers":            true,
	"Transfer-Encoding":   true,
}

// HTTPProxy forwards HTTP requests to chosen backends over a pooled client.
type HTTPProxy struct {
	client   *http.Client
	lbSecret string
}

// NewHTTP builds an HTTPProxy. Pool tuning follows spec.md §4.7: ~30s idle
// timeout, ~10 max-idle-per-host, ~30s overall request timeout.
func NewHTTP(lbSecret string) *HTTPProxy {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	return &HTTPProxy{
		client:   &http.Client{Transport: transport, Timeout: 30 * time.Second},
		lbSecret: lbSecret,
	}
}

// Forward builds and sends the backend request, translating the backend's
// response into the shape the client should receive.
func (p *HTTPProxy) Forward(w http.ResponseWriter, r *http.Request, backend types.Backend) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return apierrors.New(apierrors.KindBadRequest, err)
	}

	targetURL := strings.TrimRight(backend.BaseURL, "/") + r.URL.RequestURI()
	outReq, err := http.NewRequestWithContext(r.Context(), r.Method, targetURL, bytes.NewReader(body))
	if err != nil {
		return apierrors.New(apierrors.KindInternalServer, err)
	}

	copyHeaders(outReq.Header, r.Header)
	outReq.Header.Set("Host", hostOf(backend.BaseURL))
	outReq.Header.Set("X-Forwarded-By", forwardedBy)
	outReq.Header.Set("X-Forwarded-Server", string(backend.ID))
	outReq.Header.Set("X-Lb-Secret", p.lbSecret)

	resp, err := p.client.Do(outReq)
	if err != nil {
		return apierrors.New(apierrors.KindBadGateway, err)
	}
	defer resp.Body.Close()

	copyHeaders(w.Header(), resp.Header)
	w.Header().Set("X-Served-By", servedBy)
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		return apierrors.New(apierrors.KindInternalServer, err)
	}
	return nil
}

func copyHeaders(dst, src http.Header) {
	for k, values := range src {
		if hopByHop[http.CanonicalHeaderKey(k)] {
			continue
		}
		for _, v := range values {
			dst.Add(k, v)
		}
	}
}

func hostOf(baseURL string) string {
	u := strings.TrimPrefix(strings.TrimPrefix(baseURL, "https://"), "http://")
	return u
}
