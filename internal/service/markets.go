package service

import (
	"context"
	"math"
	"sort"
	"time"

	"econ-health-api/internal/fetch"
	"econ-health-api/internal/models"
)

// tradingDaysPerYear is the annualization factor for daily returns.
const tradingDaysPerYear = 252

// MarketStat summarizes one symbol's history. Only symbols with at least
// two observations get a stat row.
type MarketStat struct {
	Symbol           string  `json:"symbol"`
	Last             float64 `json:"last"`
	DayChangePct     float64 `json:"day_change_pct"`
	AnnualizedReturn float64 `json:"annualized_return"`
	AnnualizedVol    float64 `json:"annualized_vol"`
}

// MarketsReport backs the Markets page: raw histories, base-100
// normalized histories, per-symbol stats, and a return correlation matrix.
type MarketsReport struct {
	Histories   map[string]*models.IndicatorSeries `json:"histories"`
	Normalized  map[string]*models.IndicatorSeries `json:"normalized"`
	Stats       []MarketStat                       `json:"stats"`
	Correlation map[string]map[string]float64      `json:"correlation,omitempty"`
	Stale       map[string]bool                    `json:"stale,omitempty"`
	Errors      map[string]string                  `json:"errors,omitempty"`
}

// Markets builds the markets report from fetched (or cached) histories.
func (s *DashboardService) Markets(ctx context.Context) MarketsReport {
	histories, stale, errs := s.fetchAllMarkets(ctx)

	report := MarketsReport{
		Histories:  histories,
		Normalized: make(map[string]*models.IndicatorSeries, len(histories)),
		Stale:      stale,
		Errors:     errs,
	}

	symbols := make([]string, 0, len(histories))
	for symbol := range histories {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	returns := make(map[string]map[time.Time]float64, len(symbols))
	for _, symbol := range symbols {
		series := histories[symbol]
		report.Normalized[symbol] = series.Normalized(100.0)

		if stat, ok := computeStat(series); ok {
			report.Stats = append(report.Stats, stat)
		}
		returns[symbol] = dailyReturns(series)
	}

	if len(symbols) > 1 {
		report.Correlation = correlationMatrix(symbols, returns)
	}
	return report
}

// DebtCard is one value card on the Debt & BNPL page.
type DebtCard struct {
	Label     string  `json:"label"`
	SeriesID  string  `json:"series_id"`
	Value     float64 `json:"value"`
	Units     string  `json:"units"`
	Available bool    `json:"available"`
	Stale     bool    `json:"stale,omitempty"`
}

// DebtReport backs the Debt & BNPL page: the FRED debt proxies plus the
// Treasury debt-to-the-penny snapshot.
type DebtReport struct {
	Cards       []DebtCard           `json:"cards"`
	DebtToPenny *models.DebtSnapshot `json:"debt_to_penny,omitempty"`
	Stale       map[string]bool      `json:"stale,omitempty"`
	Errors      map[string]string    `json:"errors,omitempty"`
}

// Debt builds the debt report. Cards for unavailable series are kept with
// Available=false so the page layout never collapses.
func (s *DashboardService) Debt(ctx context.Context) DebtReport {
	section := s.fredSection(ctx, fetch.DebtSeriesIDs)

	report := DebtReport{
		Stale:  section.Stale,
		Errors: section.Errors,
	}

	for _, seriesID := range fetch.DebtSeriesIDs {
		spec := fetch.Catalog[seriesID]
		card := DebtCard{Label: spec.Label, SeriesID: seriesID, Units: spec.Units}
		if series, ok := section.Series[seriesID]; ok {
			if value, has := series.LatestValue(); has {
				card.Value = value
				card.Available = true
				card.Stale = section.Stale[seriesID]
			}
		}
		report.Cards = append(report.Cards, card)
	}

	debt, stale, err := s.debtToPenny(ctx)
	if err != nil {
		report.Errors["treasury"] = err.Error()
	} else if debt != nil {
		report.DebtToPenny = debt
		if stale {
			report.Stale["treasury"] = true
		}
	}
	return report
}

// computeStat derives last price, day change, and annualized return/vol.
func computeStat(series *models.IndicatorSeries) (MarketStat, bool) {
	last, ok := series.LatestValue()
	if !ok || len(series.Observations) < 2 {
		return MarketStat{}, false
	}

	values := series.Values()
	rets := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		rets = append(rets, values[i]/values[i-1]-1.0)
	}
	if len(rets) == 0 {
		return MarketStat{}, false
	}

	growth := 1.0
	for _, r := range rets {
		growth *= 1.0 + r
	}
	annReturn := math.Pow(growth, tradingDaysPerYear/float64(len(rets))) - 1.0

	dayChange, _ := series.PctChange(1)

	return MarketStat{
		Symbol:           series.SeriesID,
		Last:             last,
		DayChangePct:     dayChange,
		AnnualizedReturn: annReturn,
		AnnualizedVol:    sampleStddev(rets) * math.Sqrt(tradingDaysPerYear),
	}, true
}

// dailyReturns keys each day's return by date so correlations align on
// trading days the symbols share.
func dailyReturns(series *models.IndicatorSeries) map[time.Time]float64 {
	out := make(map[time.Time]float64)
	obs := series.Observations
	for i := 1; i < len(obs); i++ {
		if obs[i-1].Value == 0 {
			continue
		}
		out[obs[i].Date] = obs[i].Value/obs[i-1].Value - 1.0
	}
	return out
}

// correlationMatrix computes pairwise Pearson correlation of daily returns
// over each pair's shared dates.
func correlationMatrix(symbols []string, returns map[string]map[time.Time]float64) map[string]map[string]float64 {
	matrix := make(map[string]map[string]float64, len(symbols))
	for _, a := range symbols {
		matrix[a] = make(map[string]float64, len(symbols))
		for _, b := range symbols {
			if a == b {
				matrix[a][b] = 1.0
				continue
			}
			if corr, ok := pearson(returns[a], returns[b]); ok {
				matrix[a][b] = corr
			}
		}
	}
	return matrix
}

func pearson(a, b map[time.Time]float64) (float64, bool) {
	var xs, ys []float64
	for date, x := range a {
		if y, ok := b[date]; ok {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	if len(xs) < 2 {
		return 0, false
	}

	meanX := mean(xs)
	meanY := mean(ys)
	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, false
	}
	return cov / math.Sqrt(varX*varY), true
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sampleStddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var variance float64
	for _, v := range values {
		diff := v - m
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(values)-1))
}
