package model

import (
	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Option configures a [Type] through the functional options pattern.
type Option func(*Type)

// WithDecoder sets the decoder used by [Model.Decode] and [Model.Location].
func WithDecoder(d domain.Decoder) Option {
	return func(t *Type) {
		if d != nil {
			t.decoder = d
		}
	}
}

// WithGeocoder sets the geocoder used by [Model.Locate].
func WithGeocoder(g domain.Geocoder) Option {
	return func(t *Type) {
		t.geocoder = g
	}
}

// WithLogger sets the logger used to trace persistence calls.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(t *Type) {
		if l != nil {
			t.logger = l
		}
	}
}
