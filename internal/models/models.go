package models

import "time"

// Observation is a single dated value in a time series.
type Observation struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// IndicatorSeries is a normalized economic time series from any upstream
// (a FRED series or a market price history). Observations are ordered by
// date ascending and contain no gaps for missing upstream values; those
// are dropped during parsing.
type IndicatorSeries struct {
	SeriesID     string        `json:"series_id"`
	Label        string        `json:"label"`
	Units        string        `json:"units"`
	Frequency    string        `json:"frequency"`
	Observations []Observation `json:"observations"`
	FetchedAt    time.Time     `json:"fetched_at"`
}

// LatestValue returns the most recent value, false when the series is empty.
func (s *IndicatorSeries) LatestValue() (float64, bool) {
	if s == nil || len(s.Observations) == 0 {
		return 0, false
	}
	return s.Observations[len(s.Observations)-1].Value, true
}

// PctChange returns the percent change between the latest value and the
// value `periods` observations earlier, false when there is not enough
// history or the earlier value is zero.
func (s *IndicatorSeries) PctChange(periods int) (float64, bool) {
	if s == nil || len(s.Observations) <= periods {
		return 0, false
	}
	cur := s.Observations[len(s.Observations)-1].Value
	prev := s.Observations[len(s.Observations)-1-periods].Value
	if prev == 0 {
		return 0, false
	}
	return (cur/prev - 1.0) * 100.0, true
}

// Values returns the raw values in date order.
func (s *IndicatorSeries) Values() []float64 {
	if s == nil {
		return nil
	}
	values := make([]float64, len(s.Observations))
	for i, obs := range s.Observations {
		values[i] = obs.Value
	}
	return values
}

// Normalized returns a copy of the series rebased so the first value equals
// base (the dashboard charts market histories on a base of 100).
func (s *IndicatorSeries) Normalized(base float64) *IndicatorSeries {
	if s == nil || len(s.Observations) == 0 {
		return s
	}
	first := s.Observations[0].Value
	if first == 0 {
		return s
	}
	out := *s
	out.Observations = make([]Observation, len(s.Observations))
	for i, obs := range s.Observations {
		out.Observations[i] = Observation{Date: obs.Date, Value: obs.Value / first * base}
	}
	return &out
}

// ScoreComponent is one indicator's contribution to the health score.
type ScoreComponent struct {
	Name   string  `json:"name"`
	Z      float64 `json:"z"`
	Score  int     `json:"score"`
	Weight float64 `json:"weight"`
}

// HealthScore is the composite 0-100 economy health score. It is replaced
// wholesale on every recomputation, never mutated in place.
type HealthScore struct {
	Value      int              `json:"value"`
	ComputedAt time.Time        `json:"computed_at"`
	Components []ScoreComponent `json:"components"`
}

// DebtSnapshot is the latest Treasury "Debt to the Penny" figure.
type DebtSnapshot struct {
	TotalPublicDebt float64   `json:"total_public_debt"`
	RecordDate      time.Time `json:"record_date"`
	FetchedAt       time.Time `json:"fetched_at"`
}

// NewsItem is a single headline from the news feed, read-only once fetched.
type NewsItem struct {
	Title  string    `json:"title"`
	URL    string    `json:"url"`
	Source string    `json:"source"`
	SeenAt time.Time `json:"seen_at"`
}

type HealthCheck struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type APIResponse struct {
	Data   interface{} `json:"data"`
	Status int         `json:"status"`
	Stale  bool        `json:"stale,omitempty"`
}
