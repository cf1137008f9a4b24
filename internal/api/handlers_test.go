package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"econ-health-api/internal/models"
	"econ-health-api/internal/score"
	"econ-health-api/internal/service"
	"econ-health-api/internal/testutils"
)

// mockDashboard returns canned responses per endpoint, overridable per test.
type mockDashboard struct {
	snapshot  service.Snapshot
	scoreVal  models.HealthScore
	scoreErr  error
	indicator *models.IndicatorSeries
	indErr    error
	jobs      service.SectionReport
	markets   service.MarketsReport
	debt      service.DebtReport
	newsItems []models.NewsItem
}

func (m *mockDashboard) Overview(ctx context.Context) service.Snapshot { return m.snapshot }
func (m *mockDashboard) Score(ctx context.Context) (models.HealthScore, error) {
	return m.scoreVal, m.scoreErr
}
func (m *mockDashboard) Indicator(ctx context.Context, seriesID string) (*models.IndicatorSeries, bool, error) {
	return m.indicator, false, m.indErr
}
func (m *mockDashboard) Jobs(ctx context.Context) service.SectionReport     { return m.jobs }
func (m *mockDashboard) Markets(ctx context.Context) service.MarketsReport  { return m.markets }
func (m *mockDashboard) Debt(ctx context.Context) service.DebtReport        { return m.debt }
func (m *mockDashboard) News(ctx context.Context, query string, limit int) ([]models.NewsItem, bool) {
	if m.newsItems == nil {
		return []models.NewsItem{}, false
	}
	return m.newsItems, false
}

func newTestRouter(dashboard Dashboard) http.Handler {
	handlers := NewHandlers(HandlerConfig{
		Logger:    testutils.MockLogger(),
		Dashboard: dashboard,
	})
	return handlers.SetupRoutes()
}

func doRequest(t *testing.T, router http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(method, path, nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func seriesStub(id string) *models.IndicatorSeries {
	return &models.IndicatorSeries{
		SeriesID: id,
		Label:    id,
		Observations: []models.Observation{
			{Date: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), Value: 3.9},
		},
	}
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(&mockDashboard{})

	recorder := doRequest(t, router, http.MethodGet, "/health")

	if recorder.Code != http.StatusOK {
		t.Errorf("GET /health status = %d, want %d", recorder.Code, http.StatusOK)
	}
	var health models.HealthCheck
	if err := json.Unmarshal(recorder.Body.Bytes(), &health); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("health status = %q, want %q", health.Status, "healthy")
	}
}

func TestGetOverview(t *testing.T) {
	dashboard := &mockDashboard{
		snapshot: service.Snapshot{
			Indicators:  map[string]*models.IndicatorSeries{"UNRATE": seriesStub("UNRATE")},
			Markets:     map[string]*models.IndicatorSeries{"SPY": seriesStub("SPY")},
			News:        []models.NewsItem{},
			GeneratedAt: time.Now(),
		},
	}
	router := newTestRouter(dashboard)

	recorder := doRequest(t, router, http.MethodGet, "/api/v1/overview")

	if recorder.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/overview status = %d, want %d, body %s", recorder.Code, http.StatusOK, recorder.Body.String())
	}
	var snapshot service.Snapshot
	if err := json.Unmarshal(recorder.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("failed to decode overview response: %v", err)
	}
	if _, ok := snapshot.Indicators["UNRATE"]; !ok {
		t.Error("overview response missing UNRATE indicator")
	}
}

func TestGetOverview_AllSourcesDown(t *testing.T) {
	dashboard := &mockDashboard{
		snapshot: service.Snapshot{
			Indicators: map[string]*models.IndicatorSeries{},
			Markets:    map[string]*models.IndicatorSeries{},
			News:       []models.NewsItem{},
			Errors:     map[string]string{"fred": "down"},
			Partial:    true,
		},
	}
	router := newTestRouter(dashboard)

	recorder := doRequest(t, router, http.MethodGet, "/api/v1/overview")

	if recorder.Code != http.StatusBadGateway {
		t.Errorf("GET /api/v1/overview status = %d, want %d", recorder.Code, http.StatusBadGateway)
	}
}

func TestGetScore(t *testing.T) {
	dashboard := &mockDashboard{
		scoreVal: models.HealthScore{
			Value:      62,
			ComputedAt: time.Now(),
			Components: []models.ScoreComponent{{Name: "Unemployment Rate", Z: -0.5, Score: 62, Weight: 0.16}},
		},
	}
	router := newTestRouter(dashboard)

	recorder := doRequest(t, router, http.MethodGet, "/api/v1/score")

	if recorder.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/score status = %d, want %d", recorder.Code, http.StatusOK)
	}
	var healthScore models.HealthScore
	if err := json.Unmarshal(recorder.Body.Bytes(), &healthScore); err != nil {
		t.Fatalf("failed to decode score response: %v", err)
	}
	if healthScore.Value != 62 {
		t.Errorf("score value = %d, want 62", healthScore.Value)
	}
	if len(healthScore.Components) != 1 {
		t.Errorf("score components = %d, want 1", len(healthScore.Components))
	}
}

func TestGetScore_InsufficientData(t *testing.T) {
	router := newTestRouter(&mockDashboard{scoreErr: score.ErrInsufficientData})

	recorder := doRequest(t, router, http.MethodGet, "/api/v1/score")

	if recorder.Code != http.StatusBadGateway {
		t.Errorf("GET /api/v1/score status = %d, want %d", recorder.Code, http.StatusBadGateway)
	}
	var errorResponse models.ErrorResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &errorResponse); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if errorResponse.Error != "insufficient data" {
		t.Errorf("error = %q, want %q", errorResponse.Error, "insufficient data")
	}
}

func TestGetIndicator(t *testing.T) {
	router := newTestRouter(&mockDashboard{indicator: seriesStub("UNRATE")})

	recorder := doRequest(t, router, http.MethodGet, "/api/v1/indicators/unrate")

	if recorder.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/indicators/unrate status = %d, want %d", recorder.Code, http.StatusOK)
	}
	var response models.APIResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode indicator response: %v", err)
	}
	if response.Data == nil {
		t.Error("indicator response data = nil")
	}
}

func TestGetIndicator_Unknown(t *testing.T) {
	router := newTestRouter(&mockDashboard{indErr: service.ErrUnknownSeries})

	recorder := doRequest(t, router, http.MethodGet, "/api/v1/indicators/NOTASERIES")

	if recorder.Code != http.StatusNotFound {
		t.Errorf("GET /api/v1/indicators/NOTASERIES status = %d, want %d", recorder.Code, http.StatusNotFound)
	}
}

func TestGetJobs_Empty(t *testing.T) {
	router := newTestRouter(&mockDashboard{
		jobs: service.SectionReport{Errors: map[string]string{"UNRATE": "timeout"}},
	})

	recorder := doRequest(t, router, http.MethodGet, "/api/v1/jobs")

	if recorder.Code != http.StatusBadGateway {
		t.Errorf("GET /api/v1/jobs status = %d, want %d", recorder.Code, http.StatusBadGateway)
	}
}

func TestGetMarkets(t *testing.T) {
	router := newTestRouter(&mockDashboard{
		markets: service.MarketsReport{
			Histories: map[string]*models.IndicatorSeries{"SPY": seriesStub("SPY")},
			Stats:     []service.MarketStat{{Symbol: "SPY", Last: 3.9}},
		},
	})

	recorder := doRequest(t, router, http.MethodGet, "/api/v1/markets")

	if recorder.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/markets status = %d, want %d", recorder.Code, http.StatusOK)
	}
	var report service.MarketsReport
	if err := json.Unmarshal(recorder.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to decode markets response: %v", err)
	}
	if len(report.Stats) != 1 {
		t.Errorf("markets stats = %d, want 1", len(report.Stats))
	}
}

func TestGetDebt_NothingAvailable(t *testing.T) {
	router := newTestRouter(&mockDashboard{
		debt: service.DebtReport{
			Cards:  []service.DebtCard{{SeriesID: "GFDEBTN", Available: false}},
			Errors: map[string]string{"treasury": "timeout"},
		},
	})

	recorder := doRequest(t, router, http.MethodGet, "/api/v1/debt")

	if recorder.Code != http.StatusBadGateway {
		t.Errorf("GET /api/v1/debt status = %d, want %d", recorder.Code, http.StatusBadGateway)
	}
}

func TestGetNews_AlwaysOK(t *testing.T) {
	router := newTestRouter(&mockDashboard{})

	recorder := doRequest(t, router, http.MethodGet, "/api/v1/news?q=economy&limit=5")

	if recorder.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/news status = %d, want %d", recorder.Code, http.StatusOK)
	}
	var response models.APIResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode news response: %v", err)
	}
	items, ok := response.Data.([]interface{})
	if !ok {
		t.Fatalf("news data type = %T, want array", response.Data)
	}
	if len(items) != 0 {
		t.Errorf("news items = %d, want 0", len(items))
	}
}

func TestCORSHeaders(t *testing.T) {
	router := newTestRouter(&mockDashboard{})

	recorder := doRequest(t, router, http.MethodGet, "/health")

	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "*")
	}
}
