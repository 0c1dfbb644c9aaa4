package idgenerator

import "io"

// WithReader sets the source of the random bytes behind each UUID. A nil
// reader keeps crypto/rand.
func WithReader(r io.Reader) Option {
	return func(igo *IDGenerator) {
		if r != nil {
			igo.reader = r
		}
	}
}

// Option configures behavior through the functional options pattern.
type Option func(*IDGenerator)
