package schema

import (
	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/godm/adapter/model"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Option configures a [Registry] through the functional options pattern.
type Option func(*Registry)

// WithLogger sets the logger used by the registry and by the types it
// builds.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
			r.typeOptions = append(r.typeOptions, model.WithLogger(l))
		}
	}
}

// WithGeocoder sets the geocoder of every type built by the registry.
func WithGeocoder(g domain.Geocoder) Option {
	return func(r *Registry) {
		if g != nil {
			r.typeOptions = append(r.typeOptions, model.WithGeocoder(g))
		}
	}
}

// WithDecoder sets the decoder of every type built by the registry.
func WithDecoder(d domain.Decoder) Option {
	return func(r *Registry) {
		r.typeOptions = append(r.typeOptions, model.WithDecoder(d))
	}
}
