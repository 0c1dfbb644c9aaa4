// Package geocoder resolves postal addresses into GeoJSON points with the
// Nominatim search service of OpenStreetMap.
package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dolmen-go/contextio"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// DefaultBaseURL is the public Nominatim service.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// errTimeout marks a request worth sending again.
var errTimeout = errors.New("geocoding request timed out")

// Nominatim implements [domain.Geocoder]. Requests are paced by a rate
// limiter and every request carries a new user agent. Timed out requests
// are retried until ctx is done. Concurrent lookups of one address share a
// request, which stops only when every caller waiting for it has returned.
type Nominatim struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	timeout time.Duration
	cache   *lru.Cache[string, domain.Point]
	group   singleflight.Group
	logger  *zap.SugaredLogger

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the context of a shared lookup and the number of callers
// waiting for it.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewNominatim returns a geocoder using the public service unless
// [WithBaseURL] is given.
func NewNominatim(opts ...Option) (*Nominatim, error) {
	cfg := config{
		baseURL:   DefaultBaseURL,
		client:    http.DefaultClient,
		limit:     1,
		timeout:   10 * time.Second,
		cacheSize: 1024,
		logger:    zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	cache, err := lru.New[string, domain.Point](cfg.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("geocoder cache: %w", err)
	}

	return &Nominatim{
		baseURL: strings.TrimRight(cfg.baseURL, "/"),
		client:  cfg.client,
		limiter: rate.NewLimiter(cfg.limit, 1),
		timeout: cfg.timeout,
		cache:   cache,
		logger:  cfg.logger,
		flights: make(map[string]*flight),
	}, nil
}

// Geocode implements [domain.Geocoder]. Returns [domain.ErrNotFound] when the
// service knows no place for address.
func (n *Nominatim) Geocode(ctx context.Context, address string) (domain.Point, error) {
	key := strings.Join(strings.Fields(address), " ")
	if key == "" {
		return domain.Point{}, domain.ErrNotFound{Key: "empty address"}
	}
	if p, ok := n.cache.Get(key); ok {
		return p, nil
	}

	f := n.join(ctx, key)
	defer n.leave(key, f)

	for {
		ch := n.group.DoChan(key, func() (any, error) {
			p, err := n.resolve(f.ctx, key)
			if err == nil {
				n.cache.Add(key, p)
			}
			return p, err
		})
		select {
		case <-ctx.Done():
			return domain.Point{}, ctx.Err()
		case res := <-ch:
			// joined a lookup abandoned by all of its callers
			if errors.Is(res.Err, context.Canceled) && ctx.Err() == nil && f.ctx.Err() == nil {
				continue
			}
			if res.Err != nil {
				return domain.Point{}, res.Err
			}
			return res.Val.(domain.Point), nil
		}
	}
}

// join registers the caller in the shared lookup of key. The lookup context
// keeps the values of the first caller but none of its deadlines.
func (n *Nominatim) join(ctx context.Context, key string) *flight {
	n.mu.Lock()
	defer n.mu.Unlock()
	f, ok := n.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		n.flights[key] = f
	}
	f.waiters++
	return f
}

// leave cancels the shared lookup once its last caller is gone.
func (n *Nominatim) leave(key string, f *flight) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if f.waiters--; f.waiters > 0 {
		return
	}
	f.cancel()
	if n.flights[key] == f {
		delete(n.flights, key)
	}
}

func (n *Nominatim) resolve(ctx context.Context, address string) (domain.Point, error) {
	for attempt := 1; ; attempt++ {
		if err := n.limiter.Wait(ctx); err != nil {
			return domain.Point{}, err
		}
		p, err := n.search(ctx, address)
		if !errors.Is(err, errTimeout) {
			return p, err
		}
		n.logger.Warnw("geocoding timed out, retrying", "address", address, "attempt", attempt)
	}
}

type place struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (n *Nominatim) search(ctx context.Context, address string) (domain.Point, error) {
	reqCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, n.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return domain.Point{}, err
	}
	req.Header.Set("User-Agent", "godm-"+uuid.NewString())
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return domain.Point{}, n.classify(ctx, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return domain.Point{}, errTimeout
	default:
		return domain.Point{}, fmt.Errorf("geocoding %q: unexpected status %s", address, resp.Status)
	}

	var places []place
	if err := json.NewDecoder(contextio.NewReader(reqCtx, resp.Body)).Decode(&places); err != nil {
		return domain.Point{}, n.classify(ctx, fmt.Errorf("geocoding %q: %w", address, err))
	}
	if len(places) == 0 {
		return domain.Point{}, domain.ErrNotFound{Key: address}
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return domain.Point{}, fmt.Errorf("geocoding %q: bad latitude: %w", address, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return domain.Point{}, fmt.Errorf("geocoding %q: bad longitude: %w", address, err)
	}
	return domain.NewPoint(lon, lat), nil
}

// classify turns the expiry of a single request into errTimeout while the
// caller context is still alive.
func (n *Nominatim) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return errTimeout
	}
	return err
}
