// Package storage provides the artifact store for uploaded package
// archives: an S3-compatible HTTP implementation for production and a
// local directory implementation for development and tests.
package storage

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/dnscache"
)

// Store is durable object storage addressed by key. Keys are
// deterministic, slash-prefixed paths like
// /crates/<name>/<name>-<version>.crate.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string, length int64) error
	Delete(ctx context.Context, key string) error

	// URL returns the public download location for a key.
	URL(key string) string
}

// NewHTTPClient builds the outbound HTTP client used for store and
// identity-provider traffic, with a DNS-caching dialer refreshed in the
// background.
func NewHTTPClient(timeout time.Duration) *http.Client {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, err
				}
				ips, err := resolver.LookupHost(ctx, host)
				if err != nil {
					return nil, err
				}
				var lastErr error
				for _, ip := range ips {
					conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
					if err == nil {
						return conn, nil
					}
					lastErr = err
				}
				return nil, lastErr
			},
			MaxIdleConnsPerHost: 8,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
