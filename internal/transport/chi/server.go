// Package chi is the HTTP transport: routing, parameter decoding, and
// domain error mapping for the map search API.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/plano-labs/mapsearch/internal/domain"
	"github.com/plano-labs/mapsearch/internal/domain/geo"
	"github.com/plano-labs/mapsearch/internal/domain/point"
	"github.com/plano-labs/mapsearch/internal/domain/search/criteria"
	"github.com/plano-labs/mapsearch/internal/domain/search/result"
	"github.com/plano-labs/mapsearch/internal/domain/search/sortmode"
	"github.com/plano-labs/mapsearch/internal/domain/viewport"
	"github.com/plano-labs/mapsearch/internal/logger"
	"github.com/plano-labs/mapsearch/internal/metrics"
	"github.com/plano-labs/mapsearch/internal/repository/profilecache"
	"github.com/plano-labs/mapsearch/internal/repository/viewstate"
	healthuc "github.com/plano-labs/mapsearch/internal/usecase/health"
	searchuc "github.com/plano-labs/mapsearch/internal/usecase/search"
)

// Error codes returned to clients.
const (
	codeBadRequest         = "bad_request"
	codeValidationFailed   = "validation_failed"
	codeInvalidBounds      = "invalid_bounds"
	codeNotFound           = "not_found"
	codeSpatialUnavailable = "spatial_unavailable"
	codeCatalogUnavailable = "catalog_unavailable"
	codeInternalError      = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the search and viewport use cases over HTTP.
type Server struct {
	search        *searchuc.Service
	health        *healthuc.Service
	viewports     *viewstate.Store
	profiles      *profilecache.Cache
	sessions      *sessionRegistry
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	health *healthuc.Service,
	viewports *viewstate.Store,
	profiles *profilecache.Cache,
	debounce time.Duration,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:    search,
		health:    health,
		viewports: viewports,
		profiles:  profiles,
		sessions:  newSessionRegistry(viewports, debounce, logger),
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		retryableHandler(domain.ErrSpatialUnavailable, http.StatusServiceUnavailable, codeSpatialUnavailable),
		retryableHandler(domain.ErrCatalogUnavailable, http.StatusBadGateway, codeCatalogUnavailable),
		sentinelHandler(domain.ErrInvalidBounds, http.StatusBadRequest, codeInvalidBounds),
		sentinelHandler(domain.ErrInvalidCriteria, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
	}
	return s
}

// Router assembles the chi router with the standard middleware chain.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(s.jsonRecoverer)
	r.Use(s.wideEventMiddleware)
	r.Use(metrics.Middleware())
	r.Use(BearerAuthMiddleware(apiKeys))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/map/points", s.MapPoints)
		r.Get("/search", s.Search)
		r.Get("/viewport/{session}", s.GetViewport)
		r.Put("/viewport/{session}", s.PutViewport)
		r.Delete("/viewport/{session}", s.DeleteViewport)
		r.Get("/profiles/{id}", s.GetProfile)
		r.Put("/profiles/{id}", s.PutProfile)
	})
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	return r
}

// pointsResponse is the viewport query reply.
type pointsResponse struct {
	Points []searchuc.StyledPoint `json:"points"`
}

// MapPoints handles GET /api/v1/map/points.
func (s *Server) MapPoints(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	bounds, err := parseBounds(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	zoom, _ := strconv.Atoi(q.Get("zoom"))

	c, err := criteriaFromQuery(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	points, err := s.search.MapPoints(r.Context(), bounds, zoom, c)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("points", "error").Inc()
		s.handleDomainError(w, err)
		return
	}
	metrics.SearchRequestsTotal.WithLabelValues("points", "success").Inc()
	metrics.SearchResultCount.WithLabelValues("points").Observe(float64(len(points)))

	if points == nil {
		points = []searchuc.StyledPoint{}
	}
	writeJSON(w, http.StatusOK, pointsResponse{Points: points})
}

// resultDTO is one search row on the wire.
type resultDTO struct {
	ID           string            `json:"id"`
	Tier         int               `json:"tier"`
	Title        string            `json:"title"`
	MediaType    string            `json:"media_type,omitempty"`
	SocialRating float64           `json:"social_rating,omitempty"`
	Popularity   float64           `json:"popularity,omitempty"`
	ReleaseDate  string            `json:"release_date,omitempty"`
	Payload      map[string]string `json:"payload,omitempty"`
}

// searchResponse is the tiered search reply. Stale marks a page that was
// superseded by a newer request on the same session; clients discard it.
type searchResponse struct {
	Results     []resultDTO `json:"results"`
	HasMore     bool        `json:"has_more"`
	NextOffset  int         `json:"next_offset"`
	Version     uint64      `json:"version,omitempty"`
	Stale       bool        `json:"stale,omitempty"`
	FitViewport bool        `json:"fit_viewport,omitempty"`
}

// Search handles GET /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	c, err := criteriaFromQuery(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	sort := sortmode.Mode(q.Get("sort"))
	if q.Get("sort") != "" && !sort.IsValid() {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "unknown sort mode")
		return
	}

	offset, _ := strconv.Atoi(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}

	req := searchuc.Request{
		Criteria:         c,
		Sort:             sort,
		MediaTypes:       csv(q.Get("media_types")),
		Offset:           offset,
		SeenIDs:          csv(q.Get("seen")),
		WatchlistActorID: q.Get("watchlist_actor"),
		SeenByActorID:    q.Get("seen_by"),
		NotSeenByActorID: q.Get("not_seen_by"),
		RatedByActorIDs:  csv(q.Get("rated_by")),
		Tags:             csv(q.Get("tags")),
		Discover: searchuc.DiscoverFilters{
			GenreIDs:    csv(q.Get("genres")),
			PersonIDs:   csv(q.Get("people")),
			Countries:   csv(q.Get("countries")),
			DecadeFrom:  csv(q.Get("decades")),
			ProviderIDs: csv(q.Get("watch_providers")),
			WatchRegion: q.Get("watch_region"),
		},
		Availability: searchuc.AvailabilityPrefs{
			OnlyMyPlatforms:   boolParam(q.Get("only_my_platforms")),
			UserPlatforms:     csv(q.Get("platforms")),
			RentOrBuy:         boolParam(q.Get("rent_or_buy")),
			SelectedProviders: csv(q.Get("providers")),
			Region:            q.Get("region"),
		},
	}

	var sess *session
	if id := q.Get("session"); id != "" {
		sess = s.sessions.get(id)
		req.Version = sess.nextVersion()
	}

	resp, err := s.search.Search(r.Context(), req)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("list", "error").Inc()
		s.handleDomainError(w, err)
		return
	}
	metrics.SearchRequestsTotal.WithLabelValues("list", "success").Inc()
	metrics.SearchResultCount.WithLabelValues("list").Observe(float64(len(resp.Results)))

	out := searchResponse{
		Results:    resultsToDTO(resp.Results),
		HasMore:    resp.HasMore,
		NextOffset: resp.NextOffset,
		Version:    resp.Version,
	}
	if sess != nil {
		out.Stale = !sess.gate.ShouldApply(resp.Version)
		if out.Stale {
			metrics.StaleResultsTotal.Inc()
		} else {
			out.FitViewport = sess.gate.TryConsume(resp.Version, true, len(resp.Results) > 0)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// viewportDTO is the persisted viewport on the wire.
type viewportDTO struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Zoom      float64 `json:"zoom"`
	Mode      string  `json:"mode"`
	Immediate bool    `json:"immediate,omitempty"`
}

// GetViewport handles GET /api/v1/viewport/{session}.
func (s *Server) GetViewport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")
	state, err := s.viewports.Load(r.Context(), id)
	if err != nil {
		// The store already fell back to defaults; log and serve them.
		s.logger.Warn("viewport load degraded", zap.String("session", id), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, viewportDTO{
		Lat: state.Lat, Lng: state.Lng, Zoom: state.Zoom, Mode: string(state.Mode),
	})
}

// PutViewport handles PUT /api/v1/viewport/{session}. Writes are
// debounced per session; immediate bypasses the delay.
func (s *Server) PutViewport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")

	var dto viewportDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	state := viewport.State{
		Lat: dto.Lat, Lng: dto.Lng, Zoom: dto.Zoom, Mode: viewport.Mode(dto.Mode),
	}.Normalize()

	s.sessions.get(id).sync.Propagate(state, dto.Immediate)
	w.WriteHeader(http.StatusAccepted)
}

// DeleteViewport handles DELETE /api/v1/viewport/{session}: session
// teardown. Pending writes are cancelled unless flush=true.
func (s *Server) DeleteViewport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")
	s.sessions.close(id, boolParam(r.URL.Query().Get("flush")))
	w.WriteHeader(http.StatusNoContent)
}

// GetProfile handles GET /api/v1/profiles/{id}: a cached contact
// snapshot for social filter chips. A miss is a plain 404; the client
// refetches from its own profile source and warms the cache.
func (s *Server) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.profiles.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PutProfile handles PUT /api/v1/profiles/{id}: cache warm.
func (s *Server) PutProfile(w http.ResponseWriter, r *http.Request) {
	var p profilecache.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	p.ID = chi.URLParam(r, "id")

	if err := s.profiles.Put(r.Context(), p); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// healthResponse is the health endpoint reply.
type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// jsonRecoverer returns JSON instead of a plain text stacktrace on panic.
func (s *Server) jsonRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				s.logger.Error("panic recovered",
					zap.Any("panic", rvr),
					zap.Stack("stacktrace"),
				)
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// wideEventMiddleware emits a canonical log line per request and
// propagates X-Request-ID (generated when the client sends none).
func (s *Server) wideEventMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		reqLogger := s.logger.With(zap.String("request_id", requestID))
		ctx := logger.ContextWithLogger(r.Context(), reqLogger)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		// Canonical log line — one line per request
		reqLogger.Info("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", r.RemoteAddr),
			zap.String("user_agent", r.UserAgent()),
			zap.Int("response_bytes", ww.BytesWritten()),
		)
	})
}

// parseBounds reads the four viewport edges; all are required.
func parseBounds(q map[string][]string) (geo.Bounds, error) {
	get := func(key string) (float64, error) {
		vs, ok := q[key]
		if !ok || len(vs) == 0 {
			return 0, errors.New(key + " is required")
		}
		v, err := strconv.ParseFloat(vs[0], 64)
		if err != nil {
			return 0, errors.New(key + " must be a number")
		}
		return v, nil
	}

	var b geo.Bounds
	var err error
	if b.North, err = get("north"); err != nil {
		return geo.Bounds{}, err
	}
	if b.South, err = get("south"); err != nil {
		return geo.Bounds{}, err
	}
	if b.East, err = get("east"); err != nil {
		return geo.Bounds{}, err
	}
	if b.West, err = get("west"); err != nil {
		return geo.Bounds{}, err
	}
	return b, nil
}

// criteriaFromQuery decodes the shared filter parameters.
func criteriaFromQuery(q map[string][]string) (criteria.Criteria, error) {
	get := func(key string) string {
		if vs, ok := q[key]; ok && len(vs) > 0 {
			return vs[0]
		}
		return ""
	}
	minRating, _ := strconv.ParseFloat(get("min_rating"), 64)
	contactMin, _ := strconv.ParseFloat(get("contact_min_rating"), 64)

	var statuses []point.Status
	for _, raw := range csv(get("statuses")) {
		st := point.Status(raw)
		if st != point.StatusVisited && st != point.StatusSaved {
			return criteria.Criteria{}, errors.New("unknown status " + strconv.Quote(raw))
		}
		statuses = append(statuses, st)
	}

	c, err := criteria.New(criteria.Params{
		Query:             get("q"),
		CategoryID:        get("category"),
		TypologyIDs:       csv(get("typologies")),
		MaterialIDs:       csv(get("materials")),
		StyleIDs:          csv(get("styles")),
		ContextIDs:        csv(get("contexts")),
		AttributeIDs:      csv(get("attributes")),
		ArchitectIDs:      csv(get("architects")),
		Statuses:          statuses,
		MinRating:         minRating,
		ActorID:           get("actor"),
		ContactIDs:        csv(get("contacts")),
		ContactMinRating:  contactMin,
		RuntimeBuckets:    csv(get("runtimes")),
		HideVisited:       boolParam(get("hide_visited")),
		HideSaved:         boolParam(get("hide_saved")),
		HideWithoutImages: boolParam(get("hide_without_images")),
		ShowHidden:        boolParam(get("show_hidden")),
		Ranking:           criteria.Ranking(get("ranking")),
	})
	if err != nil {
		return criteria.Criteria{}, err
	}
	return c, nil
}

func resultsToDTO(results []result.Result) []resultDTO {
	out := make([]resultDTO, len(results))
	for i := range results {
		r := &results[i]
		dto := resultDTO{
			ID:           r.ID(),
			Tier:         int(r.TierOf()),
			Title:        r.Title(),
			MediaType:    r.MediaType(),
			SocialRating: r.SocialRating(),
			Popularity:   r.Popularity(),
			Payload:      r.Payload(),
		}
		if !r.ReleaseDate().IsZero() {
			dto.ReleaseDate = r.ReleaseDate().Format("2006-01-02")
		}
		out[i] = dto
	}
	return out
}

func csv(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func boolParam(raw string) bool {
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the error envelope returned to clients.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrInvalidBounds,
		domain.ErrInvalidCriteria,
		domain.ErrSpatialUnavailable,
		domain.ErrCatalogUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// retryableHandler is sentinelHandler plus a Retry-After hint.
func retryableHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		w.Header().Set("Retry-After", "1")
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
