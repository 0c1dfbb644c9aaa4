package mongostore

import (
	"time"

	"go.uber.org/zap"
)

type config struct {
	logger          *zap.SugaredLogger
	drop            bool
	tlsCertKeyFile  string
	selectTimeout   time.Duration
	applicationName string
}

// Option configures [Connect] through the functional options pattern.
type Option func(*config)

// WithLogger sets the logger of the store.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDropDatabase drops the database right after connecting.
func WithDropDatabase(drop bool) Option {
	return func(c *config) {
		c.drop = drop
	}
}

// WithTLSCertificateKeyFile enables TLS and authenticates the client with
// the certificate and key in the given PEM file.
func WithTLSCertificateKeyFile(path string) Option {
	return func(c *config) {
		c.tlsCertKeyFile = path
	}
}

// WithServerSelectionTimeout bounds how long operations wait for a suitable
// server.
func WithServerSelectionTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.selectTimeout = d
		}
	}
}

// WithApplicationName sets the name the client reports to the server.
func WithApplicationName(name string) Option {
	return func(c *config) {
		c.applicationName = name
	}
}
