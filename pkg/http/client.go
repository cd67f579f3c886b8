package http

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ClientConfig sizes the outbound connection pool.
// Zero fields keep the values of http.DefaultTransport.
type ClientConfig struct {
	// SingleHost gives the whole idle pool to one host
	SingleHost      bool
	MaxIdleConns    int
	MaxConnsPerHost int
	IdleConnTimeout time.Duration

	DialTimeout           time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration

	// Tracing wraps the transport with OpenTelemetry spans
	Tracing bool
}

// ProviderClientConfig is tuned for the PortOne API
func ProviderClientConfig() *ClientConfig {
	return &ClientConfig{
		SingleHost:            true,
		MaxIdleConns:          20,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		DialTimeout:           5 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		Tracing:               true,
	}
}

// NewHTTPClient returns a client whose Timeout caps a whole exchange.
// Tighter per-call deadlines come from the request context.
func NewHTTPClient(cfg *ClientConfig, timeout time.Duration) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.DialTimeout > 0 {
		tr.DialContext = (&net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: time.Minute}).DialContext
	}
	if cfg.MaxIdleConns > 0 {
		tr.MaxIdleConns = cfg.MaxIdleConns
		if cfg.SingleHost {
			tr.MaxIdleConnsPerHost = cfg.MaxIdleConns
		}
	}
	if cfg.MaxConnsPerHost > 0 {
		tr.MaxConnsPerHost = cfg.MaxConnsPerHost
	}
	if cfg.IdleConnTimeout > 0 {
		tr.IdleConnTimeout = cfg.IdleConnTimeout
	}
	if cfg.TLSHandshakeTimeout > 0 {
		tr.TLSHandshakeTimeout = cfg.TLSHandshakeTimeout
	}
	tr.ResponseHeaderTimeout = cfg.ResponseHeaderTimeout

	client := &http.Client{Transport: tr, Timeout: timeout}
	if cfg.Tracing {
		client.Transport = otelhttp.NewTransport(tr)
	}
	return client
}
