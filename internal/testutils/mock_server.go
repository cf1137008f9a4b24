package testutils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"
)

// MockFREDServer mimics the FRED observations endpoint. It rejects
// requests without an api_key and serves a deterministic monthly series.
type MockFREDServer struct {
	server   *httptest.Server
	requests int64
	// Values served for every series; override per test.
	Values []float64
}

// NewMockFREDServer creates a mock FRED API server
func NewMockFREDServer() *MockFREDServer {
	mock := &MockFREDServer{
		Values: []float64{4.2, 4.1, 4.0, 3.9, 3.8, 3.7, 3.6, 3.7, 3.8, 3.9, 4.0, 4.1},
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handler))
	return mock
}

func (m *MockFREDServer) handler(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&m.requests, 1)

	if r.URL.Query().Get("api_key") == "" {
		http.Error(w, `{"error_message":"Bad Request. api_key missing"}`, http.StatusBadRequest)
		return
	}

	type observation struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	}
	observations := make([]observation, 0, len(m.Values)+1)
	base := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i, value := range m.Values {
		observations = append(observations, observation{
			Date:  base.AddDate(0, i, 0).Format("2006-01-02"),
			Value: fmt.Sprintf("%g", value),
		})
	}
	// FRED marks missing values with "."
	observations = append(observations, observation{
		Date:  base.AddDate(0, len(m.Values), 0).Format("2006-01-02"),
		Value: ".",
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"observations": observations})
}

// Requests reports how many requests the server has seen.
func (m *MockFREDServer) Requests() int64 { return atomic.LoadInt64(&m.requests) }

// URL returns the mock server URL
func (m *MockFREDServer) URL() string { return m.server.URL }

// Close closes the mock server
func (m *MockFREDServer) Close() { m.server.Close() }

// MockMarketServer mimics the Yahoo chart endpoint for any symbol.
type MockMarketServer struct {
	server *httptest.Server
	Closes []float64
}

// NewMockMarketServer creates a mock market data server
func NewMockMarketServer() *MockMarketServer {
	mock := &MockMarketServer{
		Closes: []float64{420.0, 422.5, 419.8, 425.1, 430.6},
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handler))
	return mock
}

func (m *MockMarketServer) handler(w http.ResponseWriter, r *http.Request) {
	timestamps := make([]int64, len(m.Closes))
	closes := make([]*float64, len(m.Closes))
	base := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
	for i := range m.Closes {
		timestamps[i] = base.AddDate(0, 0, i).Unix()
		value := m.Closes[i]
		closes[i] = &value
	}

	payload := map[string]interface{}{
		"chart": map[string]interface{}{
			"result": []map[string]interface{}{
				{
					"timestamp": timestamps,
					"indicators": map[string]interface{}{
						"adjclose": []map[string]interface{}{{"adjclose": closes}},
					},
				},
			},
			"error": nil,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

// URL returns the mock server URL
func (m *MockMarketServer) URL() string { return m.server.URL }

// Close closes the mock server
func (m *MockMarketServer) Close() { m.server.Close() }

// MockTreasuryServer mimics the Debt to the Penny endpoint.
type MockTreasuryServer struct {
	server *httptest.Server
	Debt   string
	Date   string
}

// NewMockTreasuryServer creates a mock Treasury fiscal data server
func NewMockTreasuryServer() *MockTreasuryServer {
	mock := &MockTreasuryServer{
		Debt: "34567890123456.78",
		Date: "2024-06-07",
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handler))
	return mock
}

func (m *MockTreasuryServer) handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data": []map[string]string{
			{
				"record_date":                   m.Date,
				"total_public_debt_outstanding": m.Debt,
			},
		},
	})
}

// URL returns the mock server URL
func (m *MockTreasuryServer) URL() string { return m.server.URL }

// Close closes the mock server
func (m *MockTreasuryServer) Close() { m.server.Close() }

// MockGDELTServer mimics the GDELT DOC API ArtList response.
type MockGDELTServer struct {
	server *httptest.Server
}

// NewMockGDELTServer creates a mock GDELT server
func NewMockGDELTServer() *MockGDELTServer {
	mock := &MockGDELTServer{}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handler))
	return mock
}

func (m *MockGDELTServer) handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"articles": []map[string]string{
			{
				"title":         "Inflation cools for third straight month",
				"url":           "https://news.example.com/inflation-cools",
				"sourcecountry": "United States",
				"seendate":      "20240607T140000Z",
			},
			{
				"title":         "Fed holds rates steady",
				"url":           "https://news.example.com/fed-holds",
				"sourcecountry": "United States",
				"seendate":      "20240608T090000Z",
			},
		},
	})
}

// URL returns the mock server URL
func (m *MockGDELTServer) URL() string { return m.server.URL }

// Close closes the mock server
func (m *MockGDELTServer) Close() { m.server.Close() }
