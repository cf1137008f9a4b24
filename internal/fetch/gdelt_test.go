package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"econ-health-api/internal/config"
	"econ-health-api/internal/testutils"
)

func newsSource(baseURL string) config.Source {
	return config.Source{
		Name:     "gdelt",
		BaseURL:  baseURL,
		Enabled:  true,
		Timeout:  5 * time.Second,
		CacheTTL: time.Minute,
	}
}

func TestGDELTFetcher_FetchNews(t *testing.T) {
	server := testutils.NewMockGDELTServer()
	defer server.Close()

	fetcher := NewGDELTFetcher(newsSource(server.URL()), testClient(), testutils.MockLogger())

	items, err := fetcher.FetchNews(context.Background(), "US economy", 10)
	if err != nil {
		t.Fatalf("FetchNews() error = %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("FetchNews() items = %d, want 2", len(items))
	}
	// Ordered newest first regardless of upstream order.
	if items[0].Title != "Fed holds rates steady" {
		t.Errorf("FetchNews() first item = %q, want newest headline", items[0].Title)
	}
	if !items[0].SeenAt.After(items[1].SeenAt) {
		t.Error("FetchNews() items not ordered by seen date descending")
	}
}

func TestGDELTFetcher_LimitApplied(t *testing.T) {
	server := testutils.NewMockGDELTServer()
	defer server.Close()

	fetcher := NewGDELTFetcher(newsSource(server.URL()), testClient(), testutils.MockLogger())

	items, err := fetcher.FetchNews(context.Background(), "US economy", 1)
	if err != nil {
		t.Fatalf("FetchNews() error = %v", err)
	}
	if len(items) != 1 {
		t.Errorf("FetchNews() items = %d, want limit 1 applied", len(items))
	}
}

func TestGDELTFetcher_SourceFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"articles":[{"title":"t","url":"u","source":"example.com","sourcecountry":"","seendate":"20240607T140000Z"}]}`))
	}))
	defer server.Close()

	fetcher := NewGDELTFetcher(newsSource(server.URL), testClient(), testutils.MockLogger())

	items, err := fetcher.FetchNews(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("FetchNews() error = %v", err)
	}
	if items[0].Source != "example.com" {
		t.Errorf("FetchNews() source = %q, want fallback to source field", items[0].Source)
	}
}

func TestParseSeenDate(t *testing.T) {
	cases := []string{
		"20240607T140000Z",
		"2024-06-07T14:00:00Z",
		"2024-06-07 14:00:00",
	}
	for _, raw := range cases {
		if parseSeenDate(raw).IsZero() {
			t.Errorf("parseSeenDate(%q) = zero time", raw)
		}
	}
	if !parseSeenDate("garbage").IsZero() {
		t.Error("parseSeenDate(garbage) should be zero time")
	}
}
