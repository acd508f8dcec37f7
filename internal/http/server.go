// Package http serves the browser frontend and the JSON API behind it.
package http

import (
	"context"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/cache"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/log"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/middleware/ratelimit"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/middleware/security"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/middleware/trace"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/rates"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/report"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/services"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/session"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/store"
	appweb "github.com/meteor-lighting/MAKI-TW-Businesstrip/web"
)

// Deps carries everything the server serves with. TripInfo and Identity may
// be nil when the backend has no such capability.
type Deps struct {
	Service  *services.ReportService
	Sessions *session.Manager
	Identity store.Identity
	Resolver *rates.Resolver
	Cities   store.CitySearcher
	Flights  store.FlightSearcher
	TripInfo store.TripInfoSetter
	Logger   *log.Logger

	// PreviewQuiet is the debounce window for rate preview lookups.
	PreviewQuiet time.Duration
}

type Server struct {
	http.Server
	svc      *services.ReportService
	sessions *session.Manager
	identity store.Identity
	resolver *rates.Resolver
	cities   store.CitySearcher
	flights  store.FlightSearcher
	tripInfo store.TripInfoSetter
	logger   *log.Logger

	// modelCache holds built report models keyed by report id; mutations
	// invalidate the entry so the next read rebuilds.
	modelCache *cache.LRUCache[report.Model]
	cacheMgr   *cache.Manager

	limiter *ratelimit.Limiter

	// Rate preview: one debouncer per session plus a token guard that drops
	// out-of-order arrivals.
	previewQuiet time.Duration
	guard        *rates.Guard
	pmu          sync.Mutex
	previewers   map[string]*rates.Previewer

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}
	quiet := deps.PreviewQuiet
	if quiet <= 0 {
		quiet = rates.DefaultQuietPeriod
	}

	s := &Server{
		svc:          deps.Service,
		sessions:     deps.Sessions,
		identity:     deps.Identity,
		resolver:     deps.Resolver,
		cities:       deps.Cities,
		flights:      deps.Flights,
		tripInfo:     deps.TripInfo,
		logger:       logger,
		modelCache:   cache.NewLRUCache[report.Model](100, 5*time.Minute),
		cacheMgr:     cache.NewManager(),
		limiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		previewQuiet: quiet,
		guard:        rates.NewGuard(),
		previewers:   make(map[string]*rates.Previewer),
	}
	s.cacheMgr.Register(s.modelCache)
	s.cacheMgr.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/session", s.handleSessionStart)
	mux.HandleFunc("DELETE /api/session", s.handleSessionEnd)
	mux.HandleFunc("POST /api/session/forgot", s.handleForgotPassword)
	mux.HandleFunc("POST /api/session/password", s.handleChangePassword)

	mux.HandleFunc("GET /api/report", s.handleReportModel)
	mux.HandleFunc("POST /api/report/trip", s.handleTripInfo)
	mux.HandleFunc("POST /api/report/items/{category}", s.handleAddItem)
	mux.HandleFunc("DELETE /api/report/items/{category}/{seq}", s.handleDeleteItem)
	mux.HandleFunc("GET /api/report/export", s.handleExport)

	mux.HandleFunc("GET /api/rates/preview", s.handleRatePreview)
	mux.HandleFunc("GET /api/cities", s.handleCitySearch)
	mux.HandleFunc("GET /api/flights", s.handleFlightSearch)

	// Embedded frontend.
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.FileServer(http.FS(sub))
		mux.Handle("GET /", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(clientIP)
	limited := s.limiter.Middleware(clientIP, nil)

	var handler http.Handler = mux
	handler = limited(handler)
	handler = headers.Middleware(handler)
	handler = log.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})(handler)
	handler = log.Middleware(logger)(handler)
	handler = tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops the listener and background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheMgr.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// model returns the cached render model for a report, building it on miss.
func (s *Server) model(ctx context.Context, reportID, user string) (report.Model, error) {
	if m, ok := s.modelCache.Get(reportID); ok {
		return m, nil
	}
	m, err := s.svc.BuildModel(ctx, reportID, user)
	if err != nil {
		return report.Model{}, err
	}
	s.modelCache.Set(reportID, m)
	return m, nil
}

func (s *Server) invalidateModel(reportID string) {
	s.modelCache.Delete(reportID)
}

// previewer returns the session's debouncer, creating it on first use.
func (s *Server) previewer(token string) *rates.Previewer {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	p, ok := s.previewers[token]
	if !ok {
		p = rates.NewPreviewer(s.resolver, s.previewQuiet)
		s.previewers[token] = p
	}
	return p
}

func (s *Server) dropPreviewer(token string) {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	delete(s.previewers, token)
}
