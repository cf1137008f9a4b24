package fetch

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"time"

	"econ-health-api/internal/config"
	"econ-health-api/internal/logger"
	"econ-health-api/internal/models"
)

// GDELTFetcher pulls headlines from the GDELT 2.1 DOC API. No API key is
// required.
type GDELTFetcher struct {
	source config.Source
	client *Client
	logger *logger.Logger
}

// NewGDELTFetcher creates a news fetcher.
func NewGDELTFetcher(source config.Source, client *Client, log *logger.Logger) *GDELTFetcher {
	return &GDELTFetcher{source: source, client: client, logger: log}
}

type gdeltResponse struct {
	Articles []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Source        string `json:"source"`
		SourceCountry string `json:"sourcecountry"`
		SeenDate      string `json:"seendate"`
	} `json:"articles"`
}

// FetchNews fetches up to limit headlines matching query, newest first.
// Each call is a fresh snapshot of the feed.
func (f *GDELTFetcher) FetchNews(ctx context.Context, query string, limit int) ([]models.NewsItem, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("mode", "ArtList")
	params.Set("format", "json")
	params.Set("formatdatetime", "true")
	params.Set("maxrecords", strconv.Itoa(limit))
	params.Set("sort", "HybridRel")
	params.Set("sourcelang", "english")

	var payload gdeltResponse
	if err := f.client.GetJSON(ctx, f.source.Name, f.source.BaseURL+"?"+params.Encode(), &payload); err != nil {
		return nil, err
	}

	items := make([]models.NewsItem, 0, len(payload.Articles))
	for _, article := range payload.Articles {
		source := article.SourceCountry
		if source == "" {
			source = article.Source
		}
		items = append(items, models.NewsItem{
			Title:  article.Title,
			URL:    article.URL,
			Source: source,
			SeenAt: parseSeenDate(article.SeenDate),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].SeenAt.After(items[j].SeenAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}

	f.logger.WithSource(f.source.Name).Debugf("fetched %d headlines", len(items))
	return items, nil
}

// parseSeenDate handles the datetime layouts GDELT emits depending on the
// formatdatetime flag. Unparseable dates become the zero time and sort last.
func parseSeenDate(raw string) time.Time {
	for _, layout := range []string{
		"2006-01-02T15:04:05Z",
		"20060102T150405Z",
		"2006-01-02 15:04:05",
	} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
