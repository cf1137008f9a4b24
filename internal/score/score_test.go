package score

import (
	"errors"
	"testing"
	"time"

	"econ-health-api/internal/models"
)

func seriesOf(id string, values ...float64) *models.IndicatorSeries {
	observations := make([]models.Observation, len(values))
	base := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range values {
		observations[i] = models.Observation{Date: base.AddDate(0, i, 0), Value: v}
	}
	return &models.IndicatorSeries{SeriesID: id, Observations: observations}
}

// Values [1,1,1,1,3] have window mean 1.4 and population stddev 0.8, so
// the latest value 3 sits exactly at z = +2.
func TestCompute_KnownValues(t *testing.T) {
	rising := seriesOf("UP", 1, 1, 1, 1, 3)

	components := []Component{
		{Name: "up-good", Series: rising, Direction: +1, Weight: 0.6, Window: 60},
		{Name: "up-bad", Series: rising, Direction: -1, Weight: 0.2, Window: 60},
	}

	result, err := Compute(components)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	// Sub-scores: +2 -> 100, -2 -> 0. Weighted: (100*0.6 + 0*0.2) / 0.8 = 75.
	if result.Value != 75 {
		t.Errorf("Compute() value = %d, want 75", result.Value)
	}
	if len(result.Components) != 2 {
		t.Fatalf("Compute() components = %d, want 2", len(result.Components))
	}
	if result.Components[0].Score != 100 {
		t.Errorf("first sub-score = %d, want 100", result.Components[0].Score)
	}
	if result.Components[1].Score != 0 {
		t.Errorf("second sub-score = %d, want 0", result.Components[1].Score)
	}
}

func TestCompute_ValueAlwaysInRange(t *testing.T) {
	cases := [][]float64{
		{100, 1, 1, 1, 1},
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 1000},
		{-50, -40, -30, -20, -10},
		{0.001, 0.002, 0.003},
		{5, 5, 5, 5, 9},
	}

	for _, values := range cases {
		for _, direction := range []int{-1, +1} {
			result, err := Compute([]Component{
				{Name: "x", Series: seriesOf("X", values...), Direction: direction, Weight: 1.0, Window: 252},
			})
			if err != nil {
				t.Fatalf("Compute(%v, dir=%d) error = %v", values, direction, err)
			}
			if result.Value < 0 || result.Value > 100 {
				t.Errorf("Compute(%v, dir=%d) = %d, want within [0,100]", values, direction, result.Value)
			}
		}
	}
}

func TestCompute_Deterministic(t *testing.T) {
	components := []Component{
		{Name: "a", Series: seriesOf("A", 3.5, 3.6, 3.9, 4.0), Direction: -1, Weight: 0.5, Window: 60},
		{Name: "b", Series: seriesOf("B", 150, 152, 151, 158), Direction: +1, Weight: 0.5, Window: 60},
	}

	first, err := Compute(components)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	second, err := Compute(components)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if first.Value != second.Value {
		t.Errorf("Compute() not deterministic: %d vs %d", first.Value, second.Value)
	}
	for i := range first.Components {
		if first.Components[i] != second.Components[i] {
			t.Errorf("component %d differs across runs: %+v vs %+v", i, first.Components[i], second.Components[i])
		}
	}
}

func TestCompute_MissingComponentsRenormalized(t *testing.T) {
	rising := seriesOf("UP", 1, 1, 1, 1, 3)

	// The flat and nil components carry most of the weight; they are
	// skipped and the single scorable component decides the result alone.
	result, err := Compute([]Component{
		{Name: "present", Series: rising, Direction: +1, Weight: 0.10, Window: 60},
		{Name: "flat", Series: seriesOf("FLAT", 2, 2, 2, 2), Direction: +1, Weight: 0.45, Window: 60},
		{Name: "absent", Series: nil, Direction: -1, Weight: 0.45, Window: 60},
	})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if result.Value != 100 {
		t.Errorf("Compute() = %d, want 100 after renormalizing to the present component", result.Value)
	}
	if len(result.Components) != 1 {
		t.Errorf("Compute() components = %d, want 1", len(result.Components))
	}
}

func TestCompute_NoDataFails(t *testing.T) {
	_, err := Compute([]Component{
		{Name: "absent", Series: nil, Direction: +1, Weight: 1.0, Window: 60},
		{Name: "flat", Series: seriesOf("FLAT", 7, 7, 7), Direction: +1, Weight: 1.0, Window: 60},
	})
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Compute() error = %v, want ErrInsufficientData", err)
	}
}

func TestComponents_BindsSeries(t *testing.T) {
	fred := map[string]*models.IndicatorSeries{
		"UNRATE": seriesOf("UNRATE", 4.0, 4.1),
	}
	markets := map[string]*models.IndicatorSeries{
		"SPY": seriesOf("SPY", 500, 510),
	}

	components := Components(fred, markets)

	var totalWeight float64
	for _, component := range components {
		totalWeight += component.Weight
		switch component.Name {
		case "Unemployment (UNRATE)":
			if component.Series != fred["UNRATE"] {
				t.Error("UNRATE component not bound to fetched series")
			}
		case "SPY (price)":
			if component.Series != markets["SPY"] {
				t.Error("SPY component not bound to fetched series")
			}
		}
	}

	if totalWeight < 0.999 || totalWeight > 1.001 {
		t.Errorf("component weights sum to %f, want 1.0", totalWeight)
	}
}

func TestZscoreLatest_Window(t *testing.T) {
	// Only the trailing window should feed the stats: with window 3 the
	// leading outlier is ignored and [2,2,8] gives mean 4, stddev 2.83.
	z, ok := zscoreLatest([]float64{1000, 2, 2, 8}, 3)
	if !ok {
		t.Fatal("zscoreLatest() ok = false")
	}
	if z < 1.40 || z > 1.42 {
		t.Errorf("zscoreLatest() = %f, want ~1.414", z)
	}

	if _, ok := zscoreLatest(nil, 10); ok {
		t.Error("zscoreLatest(nil) ok = true, want false")
	}
	if _, ok := zscoreLatest([]float64{5, 5, 5}, 10); ok {
		t.Error("zscoreLatest(flat) ok = true, want false")
	}
}
