// Package classify labels clusters and ZIPs by quartile and combines the two
// labels into a traffic matrix category.
package classify

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/sells-group/bikeshare-matrix/internal/model"
)

// Quantile cut points used for both distributions.
const (
	LowQuantile  = 0.25
	HighQuantile = 0.75
)

// Thresholds holds the low and high cut points of a distribution.
type Thresholds struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
}

type thresholdsJSON struct {
	Low  *float64 `json:"low"`
	High *float64 `json:"high"`
}

// MarshalJSON writes undefined cut points (an empty distribution) as null.
func (t Thresholds) MarshalJSON() ([]byte, error) {
	return json.Marshal(thresholdsJSON{Low: finite(t.Low), High: finite(t.High)})
}

// UnmarshalJSON reads null cut points back as NaN.
func (t *Thresholds) UnmarshalJSON(data []byte) error {
	var raw thresholdsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.Low, t.High = orNaN(raw.Low), orNaN(raw.High)
	return nil
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// Quantile returns the q-th quantile of values using linear interpolation
// between closest ranks. values is not modified. Returns NaN for empty input.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Cut computes the LowQuantile/HighQuantile thresholds of values.
func Cut(values []float64) Thresholds {
	return Thresholds{
		Low:  Quantile(values, LowQuantile),
		High: Quantile(values, HighQuantile),
	}
}

// Size classifies a cluster's start count. The high test runs first, so a value
// at both cut points is large.
func Size(starts float64, t Thresholds) model.SizeClass {
	switch {
	case starts >= t.High:
		return model.SizeLarge
	case starts <= t.Low:
		return model.SizeSmall
	default:
		return model.SizeMedium
	}
}

// Density classifies a ZIP's destination count with the same rule as Size.
func Density(dest float64, t Thresholds) model.DensityClass {
	switch {
	case dest >= t.High:
		return model.DensityDark
	case dest <= t.Low:
		return model.DensityPale
	default:
		return model.DensityMedium
	}
}

type cell struct {
	zip  model.DensityClass
	size model.SizeClass
}

// matrix maps (ZIP density, cluster size) to a category. Missing cells are Balanced.
var matrix = map[cell]model.Category{
	{model.DensityDark, model.SizeLarge}: model.CategoryHighTurnoverHub,
	{model.DensityDark, model.SizeSmall}: model.CategoryNetSinkZIP,
	{model.DensityPale, model.SizeLarge}: model.CategoryNetSourceHub,
	{model.DensityPale, model.SizeSmall}: model.CategoryLowTraffic,
}

// Category looks up the matrix cell for a ZIP density and cluster size.
func Category(zip model.DensityClass, size model.SizeClass) model.Category {
	if c, ok := matrix[cell{zip, size}]; ok {
		return c
	}
	return model.CategoryBalanced
}
