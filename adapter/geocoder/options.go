package geocoder

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type config struct {
	baseURL   string
	client    *http.Client
	limit     rate.Limit
	timeout   time.Duration
	cacheSize int
	logger    *zap.SugaredLogger
}

// Option configures a [Nominatim] geocoder through the functional options
// pattern.
type Option func(*config)

// WithBaseURL sets the address of the Nominatim service.
func WithBaseURL(u string) Option {
	return func(c *config) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient sets the client used to reach the service.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		if client != nil {
			c.client = client
		}
	}
}

// WithRateLimit sets how many requests per second may be sent. The public
// service allows one.
func WithRateLimit(limit rate.Limit) Option {
	return func(c *config) {
		if limit > 0 {
			c.limit = limit
		}
	}
}

// WithTimeout bounds each request. A request that times out is retried.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCacheSize sets how many resolved addresses are kept.
func WithCacheSize(n int) Option {
	return func(c *config) {
		c.cacheSize = n
	}
}

// WithLogger sets the logger of the geocoder.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
