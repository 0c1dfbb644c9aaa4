package godm

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/godm/adapter/memstore"
	"github.com/vinicius-lino-figueiredo/godm/adapter/mongostore"
	"github.com/vinicius-lino-figueiredo/godm/adapter/schema"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// MemoryScheme selects the in-memory store in [InitApp].
const MemoryScheme = "memory://"

type appConfig struct {
	logger        *zap.SugaredLogger
	geocoder      domain.Geocoder
	store         domain.Store
	drop          bool
	tlsCertKey    string
	selectTimeout time.Duration
}

// Option configures [InitApp] through the functional options pattern.
type Option func(*appConfig)

// WithLogger sets the logger of every component.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *appConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithGeocoder sets the geocoder used by [Model.Locate].
func WithGeocoder(g Geocoder) Option {
	return func(c *appConfig) {
		c.geocoder = g
	}
}

// WithStore uses s instead of connecting to the given URI.
func WithStore(s Store) Option {
	return func(c *appConfig) {
		c.store = s
	}
}

// WithDropDatabase drops the database before registering the schema.
func WithDropDatabase(drop bool) Option {
	return func(c *appConfig) {
		c.drop = drop
	}
}

// WithTLSCertificateKeyFile connects to MongoDB over TLS with the
// certificate and key in the given PEM file.
func WithTLSCertificateKeyFile(path string) Option {
	return func(c *appConfig) {
		c.tlsCertKey = path
	}
}

// WithServerSelectionTimeout bounds how long MongoDB operations wait for a
// suitable server.
func WithServerSelectionTimeout(d time.Duration) Option {
	return func(c *appConfig) {
		c.selectTimeout = d
	}
}

// App is the namespace of the types registered from a schema.
type App struct {
	store    domain.Store
	registry *schema.Registry
	logger   *zap.SugaredLogger
}

// InitApp connects to the store at uri, selects the database dbName and
// registers defs in order. A uri starting with [MemoryScheme] uses an
// in-memory store; any other is handed to the MongoDB driver.
//
// Definitions rejected with [ErrConfig] do not stop the others. In that case
// the App is returned together with the combined errors, and holds every
// type that could be registered. Any other failure returns a nil App.
func InitApp(ctx context.Context, defs []ModelDefinition, uri, dbName string, opts ...Option) (*App, error) {
	cfg := appConfig{logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(&cfg)
	}

	store, err := openStore(ctx, uri, dbName, cfg)
	if err != nil {
		return nil, err
	}

	registry := schema.NewRegistry(store,
		schema.WithLogger(cfg.logger),
		schema.WithGeocoder(cfg.geocoder),
	)
	app := &App{store: store, registry: registry, logger: cfg.logger}

	if err := registry.LoadSchema(ctx, defs); err != nil {
		if ctx.Err() != nil {
			_ = store.Close(context.WithoutCancel(ctx))
			return nil, err
		}
		return app, err
	}
	return app, nil
}

func openStore(ctx context.Context, uri, dbName string, cfg appConfig) (domain.Store, error) {
	store := cfg.store
	switch {
	case store != nil:
	case strings.HasPrefix(uri, MemoryScheme):
		store = memstore.NewStore(memstore.WithLogger(cfg.logger))
	default:
		return mongostore.Connect(ctx, uri, dbName,
			mongostore.WithLogger(cfg.logger),
			mongostore.WithDropDatabase(cfg.drop),
			mongostore.WithTLSCertificateKeyFile(cfg.tlsCertKey),
			mongostore.WithServerSelectionTimeout(cfg.selectTimeout),
		)
	}

	err := store.Ping(ctx)
	if err == nil && cfg.drop {
		err = store.Drop(ctx)
	}
	if err != nil {
		_ = store.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	return store, nil
}

// LoadSchemaFile reads the definitions of a YAML schema file. The pattern
// may match several files, including with "**".
func LoadSchemaFile(ctx context.Context, pattern string) ([]ModelDefinition, error) {
	return schema.LoadGlob(ctx, pattern)
}

// Type returns the type registered for a collection.
func (a *App) Type(name string) (*Type, bool) {
	return a.registry.Type(name)
}

// Types returns the registered types in schema order.
func (a *App) Types() []*Type {
	return a.registry.Types()
}

// Names returns the registered collection names in schema order.
func (a *App) Names() []string {
	return a.registry.Names()
}

// Store returns the store the app is connected to.
func (a *App) Store() Store {
	return a.store
}

// Close releases the store.
func (a *App) Close(ctx context.Context) error {
	a.logger.Debugw("closing app", "types", len(a.registry.Names()))
	return a.store.Close(ctx)
}
