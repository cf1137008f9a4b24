package score

import (
	"errors"
	"math"
	"time"

	"econ-health-api/internal/models"
)

// ErrInsufficientData is returned when not a single component could be
// scored. This is the only failure the aggregator surfaces; anything less
// degrades to a partial score.
var ErrInsufficientData = errors.New("no indicators available to compute score")

// Component binds an indicator series to its scoring parameters.
// Direction is +1 when a rising value is healthy, -1 when it is not.
// Window is the trailing observation count the z-score is taken over.
type Component struct {
	Name      string
	Series    *models.IndicatorSeries
	Direction int
	Weight    float64
	Window    int
}

// Components assembles the documented component set from the fetched FRED
// series and market histories. Weights sum to 1.0 when every series is
// present; missing series are excluded and the remaining weights are
// renormalized inside Compute, which keeps the result deterministic.
func Components(fred map[string]*models.IndicatorSeries, markets map[string]*models.IndicatorSeries) []Component {
	return []Component{
		{Name: "Unemployment (UNRATE)", Series: fred["UNRATE"], Direction: -1, Weight: 0.16, Window: 60},
		{Name: "Payrolls (PAYEMS)", Series: fred["PAYEMS"], Direction: +1, Weight: 0.14, Window: 60},
		{Name: "Jobless Claims (ICSA)", Series: fred["ICSA"], Direction: -1, Weight: 0.10, Window: 104},
		{Name: "CPI (CPIAUCSL)", Series: fred["CPIAUCSL"], Direction: -1, Weight: 0.10, Window: 60},
		{Name: "Fed Funds (FEDFUNDS)", Series: fred["FEDFUNDS"], Direction: -1, Weight: 0.06, Window: 120},
		{Name: "SPY (price)", Series: markets["SPY"], Direction: +1, Weight: 0.10, Window: 252},
		{Name: "VTI (price)", Series: markets["VTI"], Direction: +1, Weight: 0.08, Window: 252},
		{Name: "VIX (VIXCLS)", Series: fred["VIXCLS"], Direction: -1, Weight: 0.10, Window: 252},
		{Name: "CC Delinq. (DRCCLACBS)", Series: fred["DRCCLACBS"], Direction: -1, Weight: 0.06, Window: 80},
	}
}

// Compute produces the composite health score.
//
// Per component: z = (latest - mean(window)) / stddev(window) over the
// trailing window (population stddev), the direction-adjusted z is clamped
// to [-2, 2], and the sub-score is round(((z+2)/4)*100). Components whose
// series is empty or flat are skipped. The final score is the weighted mean
// of the sub-scores with weights renormalized over the components present,
// clamped to [0, 100]. Zero scorable components fails with
// ErrInsufficientData.
func Compute(components []Component) (models.HealthScore, error) {
	scored := make([]models.ScoreComponent, 0, len(components))

	for _, component := range components {
		z, ok := zscoreLatest(component.Series.Values(), component.Window)
		if !ok {
			continue
		}
		clamped := clamp(float64(component.Direction)*z, -2.0, 2.0)
		scored = append(scored, models.ScoreComponent{
			Name:   component.Name,
			Z:      z,
			Score:  int(math.Round(((clamped + 2.0) / 4.0) * 100.0)),
			Weight: component.Weight,
		})
	}

	if len(scored) == 0 {
		return models.HealthScore{}, ErrInsufficientData
	}

	var weightedSum, totalWeight float64
	for _, component := range scored {
		weightedSum += float64(component.Score) * component.Weight
		totalWeight += component.Weight
	}

	value := int(math.Round(weightedSum / totalWeight))
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}

	return models.HealthScore{
		Value:      value,
		ComputedAt: time.Now(),
		Components: scored,
	}, nil
}

// zscoreLatest computes the z-score of the latest value against the mean
// and population stddev of the trailing window. Returns false for an empty
// series or zero variance.
func zscoreLatest(values []float64, window int) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}

	windowed := values
	if len(windowed) > window {
		windowed = windowed[len(windowed)-window:]
	}

	var sum float64
	for _, v := range windowed {
		sum += v
	}
	mean := sum / float64(len(windowed))

	var variance float64
	for _, v := range windowed {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(windowed))

	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return 0, false
	}

	return (values[len(values)-1] - mean) / stddev, true
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
