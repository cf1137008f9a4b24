package fetch

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"econ-health-api/internal/config"
	"econ-health-api/internal/logger"
	"econ-health-api/internal/models"
)

// MarketFetcher fetches daily price history from the Yahoo Finance chart API.
type MarketFetcher struct {
	source config.Source
	client *Client
	logger *logger.Logger
}

// NewMarketFetcher creates a market data fetcher.
func NewMarketFetcher(source config.Source, client *Client, log *logger.Logger) *MarketFetcher {
	return &MarketFetcher{source: source, client: client, logger: log}
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchHistory fetches daily adjusted closes for one symbol covering the
// lookback window ending now.
func (f *MarketFetcher) FetchHistory(ctx context.Context, symbol string, lookbackDays int) (models.IndicatorSeries, error) {
	query := url.Values{}
	query.Set("interval", "1d")
	query.Set("range", rangeParam(lookbackDays))
	query.Set("events", "div,splits")

	requestURL := fmt.Sprintf("%s/%s?%s", f.source.BaseURL, url.PathEscape(symbol), query.Encode())

	var payload yahooChartResponse
	if err := f.client.GetJSON(ctx, f.source.Name, requestURL, &payload); err != nil {
		return models.IndicatorSeries{}, err
	}

	if payload.Chart.Error != nil {
		return models.IndicatorSeries{}, &Error{
			Kind:   KindParse,
			Source: f.source.Name,
			Cause:  fmt.Errorf("%s: %s (%s)", symbol, payload.Chart.Error.Description, payload.Chart.Error.Code),
		}
	}
	if len(payload.Chart.Result) == 0 {
		return models.IndicatorSeries{}, &Error{
			Kind:   KindParse,
			Source: f.source.Name,
			Cause:  fmt.Errorf("%s: empty chart result", symbol),
		}
	}

	result := payload.Chart.Result[0]

	// Prefer adjusted closes, fall back to raw closes.
	var closes []*float64
	if len(result.Indicators.AdjClose) > 0 && len(result.Indicators.AdjClose[0].AdjClose) > 0 {
		closes = result.Indicators.AdjClose[0].AdjClose
	} else if len(result.Indicators.Quote) > 0 {
		closes = result.Indicators.Quote[0].Close
	}
	if len(closes) == 0 || len(closes) != len(result.Timestamp) {
		return models.IndicatorSeries{}, &Error{
			Kind:   KindParse,
			Source: f.source.Name,
			Cause:  fmt.Errorf("%s: %d timestamps, %d closes", symbol, len(result.Timestamp), len(closes)),
		}
	}

	observations := make([]models.Observation, 0, len(closes))
	for i, close := range closes {
		if close == nil {
			continue
		}
		observations = append(observations, models.Observation{
			Date:  time.Unix(result.Timestamp[i], 0).UTC(),
			Value: *close,
		})
	}

	f.logger.WithSource(f.source.Name).Debugf("fetched %s: %d closes", symbol, len(observations))

	return models.IndicatorSeries{
		SeriesID:     symbol,
		Label:        symbol,
		Units:        "USD",
		Frequency:    "daily",
		Observations: observations,
		FetchedAt:    time.Now(),
	}, nil
}

// rangeParam maps a lookback in days to the closest Yahoo range token.
func rangeParam(days int) string {
	switch {
	case days <= 31:
		return "1mo"
	case days <= 93:
		return "3mo"
	case days <= 186:
		return "6mo"
	case days <= 366:
		return "1y"
	case days <= 732:
		return "2y"
	case days <= 1830:
		return "5y"
	default:
		return "10y"
	}
}
