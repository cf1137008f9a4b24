package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"econ-health-api/internal/config"
	"econ-health-api/internal/logger"
	"econ-health-api/internal/models"
)

// SeriesSpec describes one FRED series tracked by the dashboard.
type SeriesSpec struct {
	ID        string
	Label     string
	Units     string
	Frequency string
}

// Catalog is the set of FRED series the dashboard charts and scores.
var Catalog = map[string]SeriesSpec{
	"UNRATE":    {"UNRATE", "Unemployment Rate", "%", "monthly"},
	"PAYEMS":    {"PAYEMS", "Nonfarm Payrolls", "thousands", "monthly"},
	"ICSA":      {"ICSA", "Initial Jobless Claims", "claims", "weekly"},
	"JTSJOL":    {"JTSJOL", "Job Openings (JOLTS)", "thousands", "monthly"},
	"VIXCLS":    {"VIXCLS", "VIX (CBOE)", "index", "daily"},
	"CPIAUCSL":  {"CPIAUCSL", "CPI (All Urban Consumers)", "index", "monthly"},
	"FEDFUNDS":  {"FEDFUNDS", "Effective Fed Funds Rate", "%", "monthly"},
	"TDSP":      {"TDSP", "Household Debt Service Ratio", "%", "quarterly"},
	"DRCCLACBS": {"DRCCLACBS", "Credit Card Delinquency Rate", "%", "quarterly"},
	"TOTALSL":   {"TOTALSL", "Total Consumer Credit", "USD (billions)", "monthly"},
	"GFDEBTN":   {"GFDEBTN", "Federal Debt: Total Public Debt", "USD (millions)", "daily"},
}

// JobsSeriesIDs are the series shown on the Jobs page.
var JobsSeriesIDs = []string{"UNRATE", "PAYEMS", "ICSA", "JTSJOL"}

// DebtSeriesIDs are the FRED series shown on the Debt & BNPL page.
var DebtSeriesIDs = []string{"TDSP", "DRCCLACBS", "TOTALSL", "GFDEBTN"}

// FREDFetcher fetches observation series from the FRED API.
type FREDFetcher struct {
	source config.Source
	client *Client
	logger *logger.Logger
}

// NewFREDFetcher creates a FRED fetcher.
func NewFREDFetcher(source config.Source, client *Client, log *logger.Logger) *FREDFetcher {
	return &FREDFetcher{source: source, client: client, logger: log}
}

type fredObservationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// FetchSeries fetches one FRED series between start and end. A blank API
// key fails with MissingCredentialError before any network call is made.
func (f *FREDFetcher) FetchSeries(ctx context.Context, seriesID string, start, end time.Time) (models.IndicatorSeries, error) {
	if f.source.APIKey == "" {
		return models.IndicatorSeries{}, &MissingCredentialError{Source: f.source.Name}
	}

	spec, known := Catalog[seriesID]
	if !known {
		spec = SeriesSpec{ID: seriesID, Label: seriesID}
	}

	query := url.Values{}
	query.Set("series_id", seriesID)
	query.Set("api_key", f.source.APIKey)
	query.Set("file_type", "json")
	query.Set("observation_start", start.Format("2006-01-02"))
	query.Set("observation_end", end.Format("2006-01-02"))

	var payload fredObservationsResponse
	if err := f.client.GetJSON(ctx, f.source.Name, f.source.BaseURL+"?"+query.Encode(), &payload); err != nil {
		return models.IndicatorSeries{}, err
	}

	observations := make([]models.Observation, 0, len(payload.Observations))
	for _, obs := range payload.Observations {
		// FRED encodes missing values as "."
		if obs.Value == "." {
			continue
		}
		value, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			return models.IndicatorSeries{}, &Error{
				Kind:   KindParse,
				Source: f.source.Name,
				Cause:  fmt.Errorf("series %s: bad value %q: %w", seriesID, obs.Value, err),
			}
		}
		date, err := time.Parse("2006-01-02", obs.Date)
		if err != nil {
			return models.IndicatorSeries{}, &Error{
				Kind:   KindParse,
				Source: f.source.Name,
				Cause:  fmt.Errorf("series %s: bad date %q: %w", seriesID, obs.Date, err),
			}
		}
		observations = append(observations, models.Observation{Date: date, Value: value})
	}

	f.logger.WithSource(f.source.Name).Debugf("fetched %s: %d observations", seriesID, len(observations))

	return models.IndicatorSeries{
		SeriesID:     spec.ID,
		Label:        spec.Label,
		Units:        spec.Units,
		Frequency:    spec.Frequency,
		Observations: observations,
		FetchedAt:    time.Now(),
	}, nil
}
