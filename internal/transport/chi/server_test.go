package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/plano-labs/mapsearch/internal/db"
	"github.com/plano-labs/mapsearch/internal/domain"
	"github.com/plano-labs/mapsearch/internal/domain/geo"
	"github.com/plano-labs/mapsearch/internal/domain/point"
	"github.com/plano-labs/mapsearch/internal/domain/search/criteria"
	"github.com/plano-labs/mapsearch/internal/domain/search/result"
	"github.com/plano-labs/mapsearch/internal/repository/profilecache"
	"github.com/plano-labs/mapsearch/internal/repository/viewstate"
	healthuc "github.com/plano-labs/mapsearch/internal/usecase/health"
	searchuc "github.com/plano-labs/mapsearch/internal/usecase/search"
)

type stubSpatial struct {
	points    []point.Point
	pointsErr error
	results   []result.Result
	tieredErr error
}

func (s *stubSpatial) QueryPoints(
	_ context.Context, _ geo.Bounds, _ int, _ criteria.Criteria,
) ([]point.Point, error) {
	return s.points, s.pointsErr
}

func (s *stubSpatial) SearchTiered(
	_ context.Context, _ criteria.Criteria, _, _ int,
) ([]result.Result, error) {
	return s.results, s.tieredErr
}

type stubMembers struct{}

func (stubMembers) Query(
	_ context.Context, _ []string, _ []point.Status, _ float64,
) ([]domain.MembershipTuple, error) {
	return nil, nil
}

func (stubMembers) QueryForEntities(
	_ context.Context, _, _ []string,
) ([]domain.MembershipTuple, error) {
	return nil, nil
}

type stubCatalog struct{}

func (stubCatalog) Search(
	_ context.Context, _ string, _ []string, _ int,
) ([]result.Result, error) {
	return nil, nil
}

func (stubCatalog) Discover(
	_ context.Context, _ string, _ searchuc.DiscoverFilters, _ int,
) ([]result.Result, error) {
	return nil, nil
}

type stubAvail struct{}

func (stubAvail) Lookup(
	_ context.Context, _ []string, _ string,
) (map[string]domain.Availability, error) {
	return nil, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(_ context.Context) error { return p.err }

// fakeKV is an in-memory KV backing the viewport store in tests.
type fakeKV struct{ data map[string][]byte }

func newFakeKV() *fakeKV { return &fakeKV{data: make(map[string][]byte)} }

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := f.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeKV) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.data[key] = value
	return nil
}

func (f *fakeKV) Del(_ context.Context, key string) error {
	delete(f.data, key)
	return nil
}

func (f *fakeKV) Exists(_ context.Context, key string) (bool, error) {
	_, ok := f.data[key]
	return ok, nil
}

func newTestHandler(t *testing.T, spatial *stubSpatial) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	searchSvc := searchuc.New(spatial, stubMembers{}, stubCatalog{}, stubAvail{}, logger)
	healthSvc := healthuc.New(stubPinger{}, stubPinger{}, nil)
	kv := newFakeKV()
	viewports := viewstate.New(kv, time.Hour)
	profiles := profilecache.New(kv, time.Hour)
	srv := NewServer(searchSvc, healthSvc, viewports, profiles, 5*time.Millisecond, logger)
	return srv.Router(nil)
}

func doRequest(h http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestMapPoints_MissingBound_400(t *testing.T) {
	h := newTestHandler(t, &stubSpatial{})

	rr := doRequest(h, "GET", "/api/v1/map/points?north=1&south=0&east=1&zoom=4", "")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	var errResp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != codeBadRequest {
		t.Errorf("error code: got %s, want %s", errResp.Code, codeBadRequest)
	}
}

func TestMapPoints_InvertedBounds_400(t *testing.T) {
	h := newTestHandler(t, &stubSpatial{})

	rr := doRequest(h, "GET", "/api/v1/map/points?north=0&south=10&east=1&west=0&zoom=4", "")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	var errResp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != codeInvalidBounds {
		t.Errorf("error code: got %s, want %s", errResp.Code, codeInvalidBounds)
	}
}

func TestMapPoints_OK(t *testing.T) {
	spatial := &stubSpatial{points: []point.Point{
		point.Single("e1", 10, 20, "Casa Uno"),
		point.Cluster("cluster-3", 11, 21, 5, 2),
	}}
	h := newTestHandler(t, spatial)

	rr := doRequest(h, "GET", "/api/v1/map/points?north=50&south=0&east=50&west=0&zoom=4", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (%s)", rr.Code, http.StatusOK, rr.Body.String())
	}
	var resp pointsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Points) != 2 {
		t.Fatalf("points: got %d, want 2", len(resp.Points))
	}
}

func TestMapPoints_SpatialDown_503(t *testing.T) {
	h := newTestHandler(t, &stubSpatial{pointsErr: context.DeadlineExceeded})

	rr := doRequest(h, "GET", "/api/v1/map/points?north=50&south=0&east=50&west=0&zoom=4", "")

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on retryable failure")
	}
	var errResp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != codeSpatialUnavailable {
		t.Errorf("error code: got %s, want %s", errResp.Code, codeSpatialUnavailable)
	}
}

func TestSearch_UnknownSort_400(t *testing.T) {
	h := newTestHandler(t, &stubSpatial{})

	rr := doRequest(h, "GET", "/api/v1/search?sort=bogus", "")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	var errResp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != codeValidationFailed {
		t.Errorf("error code: got %s, want %s", errResp.Code, codeValidationFailed)
	}
}

func TestSearch_ResultsSerialized(t *testing.T) {
	release := time.Date(1994, 9, 23, 0, 0, 0, 0, time.UTC)
	spatial := &stubSpatial{results: []result.Result{
		result.New("m1", result.TierSocial, "First", "movie", 2.5, 80, time.Time{}, release, nil),
		result.New("m2", result.TierCommunity, "Second", "tv", 0, 60, time.Time{}, time.Time{}, nil),
	}}
	h := newTestHandler(t, spatial)

	rr := doRequest(h, "GET", "/api/v1/search?q=first", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (%s)", rr.Code, http.StatusOK, rr.Body.String())
	}
	var resp searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results: got %d, want 2", len(resp.Results))
	}
	first := resp.Results[0]
	if first.ID != "m1" || first.Tier != 1 || first.Title != "First" {
		t.Errorf("unexpected first result: %+v", first)
	}
	if first.ReleaseDate != "1994-09-23" {
		t.Errorf("release date: got %q, want 1994-09-23", first.ReleaseDate)
	}
	if resp.Results[1].ReleaseDate != "" {
		t.Errorf("zero release date should serialize empty, got %q", resp.Results[1].ReleaseDate)
	}
}

func TestSearch_SessionVersioning(t *testing.T) {
	spatial := &stubSpatial{results: []result.Result{
		result.New("m1", result.TierSocial, "First", "movie", 2.5, 80, time.Time{}, time.Time{}, nil),
	}}
	h := newTestHandler(t, spatial)

	rr := doRequest(h, "GET", "/api/v1/search?q=x&session=s1", "")
	var first searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&first); err != nil {
		t.Fatalf("decode first response: %v", err)
	}
	if first.Version != 1 {
		t.Errorf("first version: got %d, want 1", first.Version)
	}
	if first.Stale {
		t.Error("settled response must not be stale")
	}
	if !first.FitViewport {
		t.Error("first non-empty settled page should fit the viewport")
	}

	rr = doRequest(h, "GET", "/api/v1/search?q=x&session=s1", "")
	var second searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&second); err != nil {
		t.Fatalf("decode second response: %v", err)
	}
	if second.Version != 2 {
		t.Errorf("second version: got %d, want 2", second.Version)
	}
	if !second.FitViewport {
		t.Error("each new version fits the viewport once")
	}
}

func TestSession_FirstActionKeepsStartingVersion(t *testing.T) {
	reg := newSessionRegistry(viewstate.New(newFakeKV(), time.Hour), time.Millisecond, zap.NewNop())
	sess := reg.get("s1")

	if v := sess.nextVersion(); v != 1 {
		t.Errorf("first action version: got %d, want 1", v)
	}
	if v := sess.nextVersion(); v != 2 {
		t.Errorf("second action version: got %d, want 2", v)
	}
	if v := sess.nextVersion(); v != 3 {
		t.Errorf("third action version: got %d, want 3", v)
	}
}

func TestSearch_NoSession_NoGateFields(t *testing.T) {
	h := newTestHandler(t, &stubSpatial{})

	rr := doRequest(h, "GET", "/api/v1/search?q=x", "")

	var resp searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Version != 0 || resp.Stale || resp.FitViewport {
		t.Errorf("sessionless response must carry no gate state: %+v", resp)
	}
}

func TestViewport_PutImmediateThenGet(t *testing.T) {
	h := newTestHandler(t, &stubSpatial{})

	body := `{"lat":48.85,"lng":2.35,"zoom":12,"mode":"library","immediate":true}`
	rr := doRequest(h, "PUT", "/api/v1/viewport/s1", body)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("put status: got %d, want %d", rr.Code, http.StatusAccepted)
	}

	rr = doRequest(h, "GET", "/api/v1/viewport/s1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get status: got %d, want %d", rr.Code, http.StatusOK)
	}
	var dto viewportDTO
	if err := json.NewDecoder(rr.Body).Decode(&dto); err != nil {
		t.Fatalf("decode viewport: %v", err)
	}
	if dto.Lat != 48.85 || dto.Lng != 2.35 || dto.Zoom != 12 || dto.Mode != "library" {
		t.Errorf("unexpected viewport: %+v", dto)
	}
}

func TestViewport_PutUnknownMode_NormalizedToDefault(t *testing.T) {
	h := newTestHandler(t, &stubSpatial{})

	body := `{"lat":1,"lng":2,"zoom":3,"mode":"satellite","immediate":true}`
	rr := doRequest(h, "PUT", "/api/v1/viewport/s2", body)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("put status: got %d, want %d", rr.Code, http.StatusAccepted)
	}

	rr = doRequest(h, "GET", "/api/v1/viewport/s2", "")
	var dto viewportDTO
	if err := json.NewDecoder(rr.Body).Decode(&dto); err != nil {
		t.Fatalf("decode viewport: %v", err)
	}
	if dto.Mode != "discover" {
		t.Errorf("unknown mode should fold to discover, got %q", dto.Mode)
	}
}

func TestViewport_GetUnknownSession_Defaults(t *testing.T) {
	h := newTestHandler(t, &stubSpatial{})

	rr := doRequest(h, "GET", "/api/v1/viewport/nobody", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	var dto viewportDTO
	if err := json.NewDecoder(rr.Body).Decode(&dto); err != nil {
		t.Fatalf("decode viewport: %v", err)
	}
	if dto.Lat != 20 || dto.Lng != 0 || dto.Zoom != 2 {
		t.Errorf("unexpected defaults: %+v", dto)
	}
}

func TestViewport_PutInvalidBody_400(t *testing.T) {
	h := newTestHandler(t, &stubSpatial{})

	rr := doRequest(h, "PUT", "/api/v1/viewport/s1", "{not json")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestViewport_Delete_204(t *testing.T) {
	h := newTestHandler(t, &stubSpatial{})

	rr := doRequest(h, "DELETE", "/api/v1/viewport/s1?flush=true", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNoContent)
	}
}

func TestProfiles_PutThenGet(t *testing.T) {
	h := newTestHandler(t, &stubSpatial{})

	body := `{"handle":"ana","display_name":"Ana"}`
	rr := doRequest(h, "PUT", "/api/v1/profiles/u1", body)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("put status: got %d, want %d", rr.Code, http.StatusNoContent)
	}

	rr = doRequest(h, "GET", "/api/v1/profiles/u1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get status: got %d, want %d", rr.Code, http.StatusOK)
	}
	var p profilecache.Profile
	if err := json.NewDecoder(rr.Body).Decode(&p); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if p.ID != "u1" || p.Handle != "ana" {
		t.Errorf("unexpected profile: %+v", p)
	}
}

func TestProfiles_GetMiss_404(t *testing.T) {
	h := newTestHandler(t, &stubSpatial{})

	rr := doRequest(h, "GET", "/api/v1/profiles/nobody", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
	var errResp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != codeNotFound {
		t.Errorf("error code: got %s, want %s", errResp.Code, codeNotFound)
	}
}

func TestHealthz_OK(t *testing.T) {
	h := newTestHandler(t, &stubSpatial{})

	rr := doRequest(h, "GET", "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	var resp healthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status field: got %q, want ok", resp.Status)
	}
}

func TestHealthz_Degraded_503(t *testing.T) {
	logger := zap.NewNop()
	searchSvc := searchuc.New(&stubSpatial{}, stubMembers{}, stubCatalog{}, stubAvail{}, logger)
	healthSvc := healthuc.New(stubPinger{err: context.DeadlineExceeded}, stubPinger{}, nil)
	kv := newFakeKV()
	viewports := viewstate.New(kv, time.Hour)
	profiles := profilecache.New(kv, time.Hour)
	h := NewServer(searchSvc, healthSvc, viewports, profiles, time.Millisecond, logger).Router(nil)

	rr := doRequest(h, "GET", "/healthz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}
