package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"econ-health-api/internal/cache"
	"econ-health-api/internal/config"
	"econ-health-api/internal/fetch"
	"econ-health-api/internal/logger"
	"econ-health-api/internal/metrics"
	"econ-health-api/internal/models"
	"econ-health-api/internal/score"
)

// ErrUnknownSeries is returned for indicator IDs outside the FRED catalog.
var ErrUnknownSeries = errors.New("unknown indicator series")

// ErrSourceDisabled is returned when a fetch targets a source switched off
// in configuration.
var ErrSourceDisabled = errors.New("source disabled by configuration")

// FREDProvider fetches FRED observation series.
type FREDProvider interface {
	FetchSeries(ctx context.Context, seriesID string, start, end time.Time) (models.IndicatorSeries, error)
}

// MarketProvider fetches daily price history for a symbol.
type MarketProvider interface {
	FetchHistory(ctx context.Context, symbol string, lookbackDays int) (models.IndicatorSeries, error)
}

// TreasuryProvider fetches the latest federal debt snapshot.
type TreasuryProvider interface {
	FetchDebtToPenny(ctx context.Context) (models.DebtSnapshot, error)
}

// NewsProvider fetches headlines for a query.
type NewsProvider interface {
	FetchNews(ctx context.Context, query string, limit int) ([]models.NewsItem, error)
}

// DashboardService orchestrates fetching, caching, and scoring for the
// dashboard. Every upstream failure degrades to stale-or-absent data; a
// refresh never aborts because one source is down.
type DashboardService struct {
	configuration *config.Config
	logger        *logger.Logger
	cache         *cache.Cache

	fred     FREDProvider
	market   MarketProvider
	treasury TreasuryProvider
	news     NewsProvider
}

// NewDashboardService wires the service from its collaborators.
func NewDashboardService(configuration *config.Config, log *logger.Logger, dataCache *cache.Cache, fred FREDProvider, market MarketProvider, treasury TreasuryProvider, news NewsProvider) *DashboardService {
	return &DashboardService{
		configuration: configuration,
		logger:        log,
		cache:         dataCache,
		fred:          fred,
		market:        market,
		treasury:      treasury,
		news:          news,
	}
}

// Snapshot is one full refresh cycle's output. Partial is set when any
// section is stale, missing, or failed; the dashboard renders whatever is
// present.
type Snapshot struct {
	Indicators  map[string]*models.IndicatorSeries `json:"indicators"`
	Markets     map[string]*models.IndicatorSeries `json:"markets"`
	Debt        *models.DebtSnapshot               `json:"debt,omitempty"`
	News        []models.NewsItem                  `json:"news"`
	Score       *models.HealthScore                `json:"score,omitempty"`
	Stale       map[string]bool                    `json:"stale,omitempty"`
	Errors      map[string]string                  `json:"errors,omitempty"`
	Partial     bool                               `json:"partial"`
	GeneratedAt time.Time                          `json:"generated_at"`
}

// refreshResult carries one source's contribution back to the collector.
type refreshResult struct {
	section    string
	indicators map[string]*models.IndicatorSeries
	markets    map[string]*models.IndicatorSeries
	debt       *models.DebtSnapshot
	news       []models.NewsItem
	stale      map[string]bool
	errors     map[string]string
}

// Overview runs a full refresh: one goroutine per source, each bounded by
// its own timeout, results collected as they land. A slow source delays
// nothing beyond its own deadline. Sources disabled in configuration are
// skipped entirely and reported absent, not failed.
func (s *DashboardService) Overview(ctx context.Context) Snapshot {
	snapshot := Snapshot{
		Indicators:  make(map[string]*models.IndicatorSeries),
		Markets:     make(map[string]*models.IndicatorSeries),
		Stale:       make(map[string]bool),
		Errors:      make(map[string]string),
		GeneratedAt: time.Now(),
	}

	resultsChannel := make(chan refreshResult, 4)

	go func() {
		indicators, stale, errs := s.fetchAllFRED(ctx)
		resultsChannel <- refreshResult{section: "fred", indicators: indicators, stale: stale, errors: errs}
	}()
	go func() {
		markets, stale, errs := s.fetchAllMarkets(ctx)
		resultsChannel <- refreshResult{section: "market", markets: markets, stale: stale, errors: errs}
	}()
	go func() {
		result := refreshResult{section: "treasury", stale: map[string]bool{}, errors: map[string]string{}}
		debt, stale, err := s.debtToPenny(ctx)
		if err != nil {
			result.errors["treasury"] = err.Error()
		} else if debt != nil {
			result.debt = debt
			result.stale["treasury"] = stale
		}
		resultsChannel <- result
	}()
	go func() {
		result := refreshResult{section: "news", stale: map[string]bool{}, errors: map[string]string{}}
		items, stale := s.News(ctx, s.configuration.NewsQuery, s.configuration.NewsMaxItems)
		result.news = items
		result.stale["news"] = stale
		resultsChannel <- result
	}()

	for i := 0; i < 4; i++ {
		result := <-resultsChannel
		for id, series := range result.indicators {
			snapshot.Indicators[id] = series
		}
		for symbol, series := range result.markets {
			snapshot.Markets[symbol] = series
		}
		if result.debt != nil {
			snapshot.Debt = result.debt
		}
		if result.news != nil {
			snapshot.News = result.news
		}
		for key, stale := range result.stale {
			if stale {
				snapshot.Stale[key] = true
			}
		}
		for key, message := range result.errors {
			snapshot.Errors[key] = message
		}
	}

	computed, err := score.Compute(score.Components(snapshot.Indicators, snapshot.Markets))
	if err != nil {
		snapshot.Errors["score"] = err.Error()
	} else {
		snapshot.Score = &computed
		metrics.HealthScore.Set(float64(computed.Value))
	}

	snapshot.Partial = len(snapshot.Errors) > 0 || len(snapshot.Stale) > 0
	if snapshot.News == nil {
		snapshot.News = []models.NewsItem{}
	}
	return snapshot
}

// Score recomputes the health score from the (mostly cached) indicator and
// market series. Fails only when not a single component is available.
func (s *DashboardService) Score(ctx context.Context) (models.HealthScore, error) {
	indicators, _, _ := s.fetchAllFRED(ctx)
	markets, _, _ := s.fetchAllMarkets(ctx)

	computed, err := score.Compute(score.Components(indicators, markets))
	if err != nil {
		return models.HealthScore{}, err
	}
	metrics.HealthScore.Set(float64(computed.Value))
	return computed, nil
}

// Indicator returns one FRED series by ID with its staleness flag.
func (s *DashboardService) Indicator(ctx context.Context, seriesID string) (*models.IndicatorSeries, bool, error) {
	if _, known := fetch.Catalog[seriesID]; !known {
		return nil, false, ErrUnknownSeries
	}
	return s.fredSeries(ctx, seriesID)
}

// Jobs returns the labor-market series set.
func (s *DashboardService) Jobs(ctx context.Context) SectionReport {
	return s.fredSection(ctx, fetch.JobsSeriesIDs)
}

// News fetches headlines, soft-failing to an empty slice. The second
// return reports whether the items came from a stale cache entry.
func (s *DashboardService) News(ctx context.Context, query string, limit int) ([]models.NewsItem, bool) {
	if !s.configuration.News.Enabled {
		return []models.NewsItem{}, false
	}
	if limit <= 0 {
		limit = s.configuration.NewsMaxItems
	}
	fetchCtx, cancel := context.WithTimeout(ctx, s.configuration.News.Timeout)
	defer cancel()

	key := fmt.Sprintf("news:%s:%d", query, limit)
	result, err := s.cache.GetOrFetch(fetchCtx, key, s.configuration.News.CacheTTL, func(ctx context.Context) (interface{}, error) {
		return s.news.FetchNews(ctx, query, limit)
	})
	if err != nil {
		s.logger.WithSource("gdelt").Warnf("news fetch failed: %v", err)
		return []models.NewsItem{}, false
	}
	// the cached slice is shared across callers; sort a copy
	cached := result.Payload.([]models.NewsItem)
	items := make([]models.NewsItem, len(cached))
	copy(items, cached)
	sort.SliceStable(items, func(i, j int) bool { return items[i].SeenAt.After(items[j].SeenAt) })
	return items, result.Stale
}

// SectionReport is a group of related series plus their degradation state.
type SectionReport struct {
	Series map[string]*models.IndicatorSeries `json:"series"`
	Stale  map[string]bool                    `json:"stale,omitempty"`
	Errors map[string]string                  `json:"errors,omitempty"`
}

// fredSection fetches a set of FRED series concurrently.
func (s *DashboardService) fredSection(ctx context.Context, seriesIDs []string) SectionReport {
	report := SectionReport{
		Series: make(map[string]*models.IndicatorSeries),
		Stale:  make(map[string]bool),
		Errors: make(map[string]string),
	}
	series, stale, errs := s.fetchFREDSet(ctx, seriesIDs)
	report.Series = series
	report.Stale = stale
	report.Errors = errs
	return report
}

// fetchAllFRED fetches the whole catalog.
func (s *DashboardService) fetchAllFRED(ctx context.Context) (map[string]*models.IndicatorSeries, map[string]bool, map[string]string) {
	seriesIDs := make([]string, 0, len(fetch.Catalog))
	for id := range fetch.Catalog {
		seriesIDs = append(seriesIDs, id)
	}
	sort.Strings(seriesIDs)
	return s.fetchFREDSet(ctx, seriesIDs)
}

// fetchFREDSet fans out over the requested series with a bounded number of
// in-flight fetches; each series carries its own outcome, so one failed
// series never hides the others.
func (s *DashboardService) fetchFREDSet(ctx context.Context, seriesIDs []string) (map[string]*models.IndicatorSeries, map[string]bool, map[string]string) {
	if !s.configuration.FRED.Enabled {
		return map[string]*models.IndicatorSeries{}, map[string]bool{}, map[string]string{}
	}

	type seriesResult struct {
		id     string
		series *models.IndicatorSeries
		stale  bool
		err    error
	}

	maxConcurrent := s.configuration.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = len(seriesIDs)
	}
	semaphore := make(chan struct{}, maxConcurrent)
	resultsChannel := make(chan seriesResult, len(seriesIDs))

	for _, id := range seriesIDs {
		go func(seriesID string) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			series, stale, err := s.fredSeries(ctx, seriesID)
			resultsChannel <- seriesResult{id: seriesID, series: series, stale: stale, err: err}
		}(id)
	}

	series := make(map[string]*models.IndicatorSeries)
	staleFlags := make(map[string]bool)
	errs := make(map[string]string)
	for range seriesIDs {
		result := <-resultsChannel
		if result.err != nil {
			errs[result.id] = result.err.Error()
			continue
		}
		series[result.id] = result.series
		if result.stale {
			staleFlags[result.id] = true
		}
	}
	return series, staleFlags, errs
}

// fetchAllMarkets fetches history for every configured symbol.
func (s *DashboardService) fetchAllMarkets(ctx context.Context) (map[string]*models.IndicatorSeries, map[string]bool, map[string]string) {
	if !s.configuration.Market.Enabled {
		return map[string]*models.IndicatorSeries{}, map[string]bool{}, map[string]string{}
	}

	type marketResult struct {
		symbol string
		series *models.IndicatorSeries
		stale  bool
		err    error
	}

	symbols := s.configuration.MarketSymbols
	resultsChannel := make(chan marketResult, len(symbols))
	for _, symbol := range symbols {
		go func(sym string) {
			series, stale, err := s.marketHistory(ctx, sym)
			resultsChannel <- marketResult{symbol: sym, series: series, stale: stale, err: err}
		}(symbol)
	}

	series := make(map[string]*models.IndicatorSeries)
	staleFlags := make(map[string]bool)
	errs := make(map[string]string)
	for range symbols {
		result := <-resultsChannel
		if result.err != nil {
			errs[result.symbol] = result.err.Error()
			continue
		}
		series[result.symbol] = result.series
		if result.stale {
			staleFlags[result.symbol] = true
		}
	}
	return series, staleFlags, errs
}

// fredSeries fetches one series through the cache with the FRED TTL.
func (s *DashboardService) fredSeries(ctx context.Context, seriesID string) (*models.IndicatorSeries, bool, error) {
	if !s.configuration.FRED.Enabled {
		return nil, false, ErrSourceDisabled
	}
	fetchCtx, cancel := context.WithTimeout(ctx, s.configuration.FRED.Timeout)
	defer cancel()

	end := time.Now()
	start := end.AddDate(0, 0, -s.configuration.LookbackDays)

	result, err := s.cache.GetOrFetch(fetchCtx, "fred:"+seriesID, s.configuration.FRED.CacheTTL, func(ctx context.Context) (interface{}, error) {
		return s.fred.FetchSeries(ctx, seriesID, start, end)
	})
	if err != nil {
		return nil, false, err
	}
	series := result.Payload.(models.IndicatorSeries)
	return &series, result.Stale, nil
}

// marketHistory fetches one symbol's history through the cache.
func (s *DashboardService) marketHistory(ctx context.Context, symbol string) (*models.IndicatorSeries, bool, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.configuration.Market.Timeout)
	defer cancel()

	result, err := s.cache.GetOrFetch(fetchCtx, "market:"+symbol, s.configuration.Market.CacheTTL, func(ctx context.Context) (interface{}, error) {
		return s.market.FetchHistory(ctx, symbol, s.configuration.LookbackDays)
	})
	if err != nil {
		return nil, false, err
	}
	series := result.Payload.(models.IndicatorSeries)
	return &series, result.Stale, nil
}

// debtToPenny fetches the Treasury snapshot through the cache. Returns nil
// without error when the source is disabled.
func (s *DashboardService) debtToPenny(ctx context.Context) (*models.DebtSnapshot, bool, error) {
	if !s.configuration.Treasury.Enabled {
		return nil, false, nil
	}
	fetchCtx, cancel := context.WithTimeout(ctx, s.configuration.Treasury.Timeout)
	defer cancel()

	result, err := s.cache.GetOrFetch(fetchCtx, "treasury:debt_to_penny", s.configuration.Treasury.CacheTTL, func(ctx context.Context) (interface{}, error) {
		return s.treasury.FetchDebtToPenny(ctx)
	})
	if err != nil {
		return nil, false, err
	}
	snapshot := result.Payload.(models.DebtSnapshot)
	return &snapshot, result.Stale, nil
}
