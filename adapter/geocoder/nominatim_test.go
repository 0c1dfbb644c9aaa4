package geocoder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/time/rate"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

type NominatimTestSuite struct {
	suite.Suite
	ctx     context.Context
	calls   atomic.Int32
	mu      sync.Mutex
	agents  []string
	queries []string
	handler func(w http.ResponseWriter, r *http.Request, call int32)
	server  *httptest.Server
}

func (s *NominatimTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.calls.Store(0)
	s.agents, s.queries = nil, nil
	s.handler = func(w http.ResponseWriter, _ *http.Request, _ int32) {
		_, _ = w.Write([]byte(`[{"lat":"38.7223","lon":"-9.1393","display_name":"Lisboa"}]`))
	}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := s.calls.Add(1)
		s.mu.Lock()
		s.agents = append(s.agents, r.Header.Get("User-Agent"))
		s.queries = append(s.queries, r.URL.Query().Get("q"))
		s.mu.Unlock()
		s.Equal("/search", r.URL.Path)
		s.Equal("jsonv2", r.URL.Query().Get("format"))
		s.handler(w, r, call)
	}))
}

func (s *NominatimTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *NominatimTestSuite) geocoder(opts ...Option) *Nominatim {
	opts = append([]Option{WithBaseURL(s.server.URL + "/"), WithRateLimit(rate.Inf)}, opts...)
	g, err := NewNominatim(opts...)
	s.Require().NoError(err)
	return g
}

func (s *NominatimTestSuite) TestGeocode() {
	p, err := s.geocoder().Geocode(s.ctx, "Praça do Comércio, Lisboa")
	s.NoError(err)
	s.Equal(domain.NewPoint(-9.1393, 38.7223), p)
	s.Equal("Point", p.Type)
	s.Equal([]string{"Praça do Comércio, Lisboa"}, s.queries)
}

func (s *NominatimTestSuite) TestUserAgentPerRequest() {
	g := s.geocoder()
	_, err := g.Geocode(s.ctx, "a")
	s.NoError(err)
	_, err = g.Geocode(s.ctx, "b")
	s.NoError(err)

	s.Require().Len(s.agents, 2)
	for _, ua := range s.agents {
		s.True(strings.HasPrefix(ua, "godm-"), ua)
	}
	s.NotEqual(s.agents[0], s.agents[1])
}

func (s *NominatimTestSuite) TestCache() {
	g := s.geocoder()
	first, err := g.Geocode(s.ctx, "Rua Augusta, Lisboa")
	s.NoError(err)
	second, err := g.Geocode(s.ctx, "  Rua   Augusta,  Lisboa ")
	s.NoError(err)

	s.Equal(first, second)
	s.EqualValues(1, s.calls.Load())
}

func (s *NominatimTestSuite) TestNotFound() {
	s.handler = func(w http.ResponseWriter, _ *http.Request, _ int32) {
		_, _ = w.Write([]byte(`[]`))
	}
	_, err := s.geocoder().Geocode(s.ctx, "nowhere")
	s.ErrorIs(err, domain.ErrNotFound{})
	s.EqualValues(1, s.calls.Load())

	_, err = s.geocoder().Geocode(s.ctx, "   ")
	s.ErrorIs(err, domain.ErrNotFound{})
	s.EqualValues(1, s.calls.Load())
}

func (s *NominatimTestSuite) TestRetryOnGatewayTimeout() {
	s.handler = func(w http.ResponseWriter, _ *http.Request, call int32) {
		if call < 3 {
			w.WriteHeader(http.StatusGatewayTimeout)
			return
		}
		_, _ = w.Write([]byte(`[{"lat":"1","lon":"2"}]`))
	}
	p, err := s.geocoder().Geocode(s.ctx, "slow")
	s.NoError(err)
	s.Equal(domain.NewPoint(2, 1), p)
	s.EqualValues(3, s.calls.Load())
}

func (s *NominatimTestSuite) TestRetryOnRequestTimeout() {
	s.handler = func(w http.ResponseWriter, r *http.Request, call int32) {
		if call == 1 {
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
			}
			return
		}
		_, _ = w.Write([]byte(`[{"lat":"1","lon":"2"}]`))
	}
	p, err := s.geocoder(WithTimeout(50*time.Millisecond)).Geocode(s.ctx, "slow")
	s.NoError(err)
	s.Equal(domain.NewPoint(2, 1), p)
	s.EqualValues(2, s.calls.Load())
}

func (s *NominatimTestSuite) TestNoRetryOnOtherErrors() {
	s.handler = func(w http.ResponseWriter, _ *http.Request, _ int32) {
		w.WriteHeader(http.StatusInternalServerError)
	}
	_, err := s.geocoder().Geocode(s.ctx, "a")
	s.ErrorContains(err, "unexpected status")
	s.EqualValues(1, s.calls.Load())

	s.handler = func(w http.ResponseWriter, _ *http.Request, _ int32) {
		_, _ = w.Write([]byte(`{not json`))
	}
	_, err = s.geocoder().Geocode(s.ctx, "b")
	s.Error(err)
	s.EqualValues(2, s.calls.Load())

	s.handler = func(w http.ResponseWriter, _ *http.Request, _ int32) {
		_, _ = w.Write([]byte(`[{"lat":"north","lon":"2"}]`))
	}
	_, err = s.geocoder().Geocode(s.ctx, "c")
	s.ErrorContains(err, "bad latitude")
	s.EqualValues(3, s.calls.Load())
}

func (s *NominatimTestSuite) TestContextStopsRetries() {
	s.handler = func(w http.ResponseWriter, _ *http.Request, _ int32) {
		w.WriteHeader(http.StatusGatewayTimeout)
	}
	ctx, cancel := context.WithTimeout(s.ctx, 200*time.Millisecond)
	defer cancel()

	_, err := s.geocoder(WithRateLimit(50)).Geocode(ctx, "a")
	s.Error(err)
	s.Greater(s.calls.Load(), int32(1))
}

func (s *NominatimTestSuite) TestSharedLookupOutlivesFirstCaller() {
	started := make(chan struct{}, 1)
	s.handler = func(w http.ResponseWriter, r *http.Request, _ int32) {
		select {
		case started <- struct{}{}:
		default:
		}
		select {
		case <-time.After(300 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write([]byte(`[{"lat":"1","lon":"2"}]`))
	}
	g := s.geocoder()

	short, cancel := context.WithTimeout(s.ctx, 50*time.Millisecond)
	defer cancel()
	firstErr := make(chan error, 1)
	go func() {
		_, err := g.Geocode(short, "Avenida da Liberdade")
		firstErr <- err
	}()
	<-started

	p, err := g.Geocode(s.ctx, "Avenida da Liberdade")
	s.NoError(err)
	s.Equal(domain.NewPoint(2, 1), p)
	s.ErrorIs(<-firstErr, context.DeadlineExceeded)
	s.EqualValues(1, s.calls.Load())
}

func (s *NominatimTestSuite) TestAbandonedLookupStops() {
	s.handler = func(w http.ResponseWriter, _ *http.Request, _ int32) {
		w.WriteHeader(http.StatusGatewayTimeout)
	}
	ctx, cancel := context.WithTimeout(s.ctx, 100*time.Millisecond)
	defer cancel()

	_, err := s.geocoder(WithRateLimit(50)).Geocode(ctx, "a")
	s.ErrorIs(err, context.DeadlineExceeded)

	time.Sleep(100 * time.Millisecond)
	calls := s.calls.Load()
	time.Sleep(200 * time.Millisecond)
	s.Equal(calls, s.calls.Load())
}

func (s *NominatimTestSuite) TestInvalidCacheSize() {
	_, err := NewNominatim(WithCacheSize(0))
	s.Error(err)
}

func TestNominatimTestSuite(t *testing.T) {
	suite.Run(t, new(NominatimTestSuite))
}
