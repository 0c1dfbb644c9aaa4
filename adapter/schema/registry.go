// Package schema turns model definitions into model types bound to the
// collections of a store, creating the indexes each definition declares.
package schema

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/godm/adapter/model"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Registry holds the model types registered against one store. It is safe
// for concurrent use.
type Registry struct {
	store       domain.Store
	mu          sync.RWMutex
	types       map[string]*model.Type
	order       []string
	logger      *zap.SugaredLogger
	typeOptions []model.Option
}

// NewRegistry returns an empty registry creating its types over store.
func NewRegistry(store domain.Store, opts ...Option) *Registry {
	r := &Registry{
		store:  store,
		types:  make(map[string]*model.Type),
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterType validates def, creates its indexes and registers the
// resulting type under the collection name. A definition rejected with
// [domain.ErrConfig] creates no index. Index creation failures are logged
// and otherwise ignored.
func (r *Registry) RegisterType(ctx context.Context, def domain.ModelDefinition) (*model.Type, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validate(def); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.types[def.Collection]; ok {
		return nil, domain.ErrConfig{Collection: def.Collection, Reason: "collection already registered"}
	}

	coll := r.store.Collection(def.Collection)
	typ, err := model.NewType(def, coll, r.typeOptions...)
	if err != nil {
		return nil, err
	}
	if !typ.Admits(typ.LocationField()) {
		r.logger.Warnw("location field is neither required nor admissible",
			"collection", def.Collection, "field", typ.LocationField())
	}

	for _, idx := range def.Indexes {
		if err := coll.CreateIndex(ctx, idx); err != nil {
			r.logger.Warnw("index creation failed",
				"collection", def.Collection, "field", idx.Field, "kind", idx.Kind, "error", err)
			continue
		}
		r.logger.Debugw("index ensured", "collection", def.Collection, "field", idx.Field, "kind", idx.Kind)
	}

	r.types[def.Collection] = typ
	r.order = append(r.order, def.Collection)
	r.logger.Infow("model type registered",
		"collection", def.Collection,
		"required", def.Required,
		"admissible", def.Admissible,
		"indexes", len(def.Indexes),
	)
	return typ, nil
}

func validate(def domain.ModelDefinition) error {
	fail := func(reason string) error {
		return domain.ErrConfig{Collection: def.Collection, Reason: reason}
	}

	if def.Collection == "" {
		return fail("collection name is empty")
	}
	for _, f := range slices.Concat(def.Required, def.Admissible) {
		if f == "" {
			return fail("field name is empty")
		}
		if f == domain.IDField {
			return fail("the identity field cannot be declared")
		}
	}

	geo := 0
	for _, idx := range def.Indexes {
		if idx.Field == "" {
			return fail("index field is empty")
		}
		switch idx.Kind {
		case domain.IndexUnique, domain.IndexRegular:
		case domain.IndexGeospatial:
			geo++
		default:
			return fail("unknown index kind " + string(idx.Kind) + " for field " + idx.Field)
		}
	}
	if geo != 1 {
		return fail("exactly one geospatial index is required")
	}
	return nil
}

// LoadSchema registers defs in order. A rejected definition does not stop
// the others; every failure is returned combined.
func (r *Registry) LoadSchema(ctx context.Context, defs []domain.ModelDefinition) error {
	var errs error
	for _, def := range defs {
		if _, err := r.RegisterType(ctx, def); err != nil {
			errs = multierr.Append(errs, err)
			if ctx.Err() != nil {
				return errs
			}
			r.logger.Errorw("model type rejected", "collection", def.Collection, "error", err)
		}
	}
	return errs
}

// Type returns the type registered for a collection.
func (r *Registry) Type(name string) (*model.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Types returns the registered types in registration order.
func (r *Registry) Types() []*model.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]*model.Type, len(r.order))
	for n, name := range r.order {
		types[n] = r.types[name]
	}
	return types
}

// Names returns the registered collection names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}
