// Package httpclient builds the HTTP clients provider beans use to reach their backends.
package httpclient

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

// Config tunes the shared transport and the per-client timeout.
type Config struct {
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	DialTimeout         time.Duration
	TLSHandshakeTimeout time.Duration
	// ResponseHeaderTimeout bounds the wait for response headers, which is the useful limit for
	// streaming responses where Timeout would cut the body short.
	ResponseHeaderTimeout time.Duration
	// Timeout bounds a whole request. Zero means no limit.
	Timeout time.Duration
}

// envDuration reads plain seconds ("30") or a Go duration ("2m").
func envDuration(key string, def time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	return def
}

// DefaultConfig returns the defaults, overridable through MODELWIRE_HTTP_TIMEOUT and
// MODELWIRE_HTTP_RESPONSE_HEADER_TIMEOUT.
func DefaultConfig() Config {
	return Config{
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		DialTimeout:           30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: envDuration("MODELWIRE_HTTP_RESPONSE_HEADER_TIMEOUT", 5*time.Minute),
		Timeout:               envDuration("MODELWIRE_HTTP_TIMEOUT", 10*time.Minute),
	}
}

var (
	sharedOnce      sync.Once
	sharedTransport *http.Transport
)

// transport is shared by every provider client so connections to the same backend are pooled.
func transport() *http.Transport {
	sharedOnce.Do(func() {
		sharedTransport = newTransport(DefaultConfig())
	})
	return sharedTransport
}

func newTransport(cfg Config) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// ForProvider returns a client on the shared transport. A positive timeout replaces the
// default request timeout.
func ForProvider(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	return &http.Client{
		Transport: transport(),
		Timeout:   timeout,
	}
}
