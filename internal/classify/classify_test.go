package classify

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bikeshare-matrix/internal/model"
)

func TestQuantile(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		q      float64
		want   float64
	}{
		{"single value", []float64{5}, 0.25, 5},
		{"exact rank", []float64{1, 2, 3, 4, 5}, 0.25, 2},
		{"interpolated", []float64{1, 2, 3, 4}, 0.25, 1.75},
		{"interpolated high", []float64{1, 2, 3, 4}, 0.75, 3.25},
		{"unsorted input", []float64{4, 1, 3, 2}, 0.75, 3.25},
		{"median", []float64{10, 20}, 0.5, 15},
		{"min", []float64{3, 1, 2}, 0, 1},
		{"max", []float64{3, 1, 2}, 1, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Quantile(tt.values, tt.q), 1e-9)
		})
	}
}

func TestQuantile_EmptyIsNaN(t *testing.T) {
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestThresholds_JSON(t *testing.T) {
	data, err := json.Marshal(Cut(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"low":null,"high":null}`, string(data))

	data, err = json.Marshal(Thresholds{Low: 1.5, High: 8})
	require.NoError(t, err)
	assert.JSONEq(t, `{"low":1.5,"high":8}`, string(data))

	var th Thresholds
	require.NoError(t, json.Unmarshal([]byte(`{"low":null,"high":3}`), &th))
	assert.True(t, math.IsNaN(th.Low))
	assert.InDelta(t, 3, th.High, 1e-9)
}

func TestQuantile_DoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Quantile(values, 0.5)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestSize_StartCountSample(t *testing.T) {
	starts := []float64{1, 1, 1, 1, 10, 10, 10, 50}
	th := Cut(starts)
	assert.InDelta(t, 1, th.Low, 1e-9)
	assert.InDelta(t, 10, th.High, 1e-9)

	assert.Equal(t, model.SizeSmall, Size(1, th))
	assert.Equal(t, model.SizeLarge, Size(10, th))
	assert.Equal(t, model.SizeLarge, Size(50, th))
}

func TestSize_Boundaries(t *testing.T) {
	th := Thresholds{Low: 2, High: 8}
	tests := []struct {
		name  string
		value float64
		want  model.SizeClass
	}{
		{"below low", 1, model.SizeSmall},
		{"at low", 2, model.SizeSmall},
		{"between", 5, model.SizeMedium},
		{"at high", 8, model.SizeLarge},
		{"above high", 9, model.SizeLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Size(tt.value, th))
		})
	}
}

func TestSize_DegenerateDistributionIsLarge(t *testing.T) {
	th := Cut([]float64{4, 4, 4})
	assert.Equal(t, model.SizeLarge, Size(4, th))
	assert.Equal(t, model.DensityDark, Density(4, th))
}

func TestDensity_AtHighQuantileIsDark(t *testing.T) {
	dest := []float64{0, 2, 4, 6, 8}
	th := Cut(dest)
	require.InDelta(t, 6, th.High, 1e-9)
	assert.Equal(t, model.DensityDark, Density(6, th))
	assert.Equal(t, model.DensityPale, Density(2, th))
	assert.Equal(t, model.DensityMedium, Density(4, th))
}

func TestCategory(t *testing.T) {
	tests := []struct {
		zip  model.DensityClass
		size model.SizeClass
		want model.Category
	}{
		{model.DensityDark, model.SizeLarge, model.CategoryHighTurnoverHub},
		{model.DensityDark, model.SizeSmall, model.CategoryNetSinkZIP},
		{model.DensityPale, model.SizeLarge, model.CategoryNetSourceHub},
		{model.DensityPale, model.SizeSmall, model.CategoryLowTraffic},
		{model.DensityDark, model.SizeMedium, model.CategoryBalanced},
		{model.DensityMedium, model.SizeLarge, model.CategoryBalanced},
		{model.DensityMedium, model.SizeSmall, model.CategoryBalanced},
		{model.DensityMedium, model.SizeMedium, model.CategoryBalanced},
		{model.DensityPale, model.SizeMedium, model.CategoryBalanced},
		{"", model.SizeLarge, model.CategoryBalanced},
	}
	for _, tt := range tests {
		t.Run(string(tt.zip)+"/"+string(tt.size), func(t *testing.T) {
			assert.Equal(t, tt.want, Category(tt.zip, tt.size))
		})
	}
}

func TestParseUnmatchedPolicy(t *testing.T) {
	p, err := ParseUnmatchedPolicy("")
	require.NoError(t, err)
	assert.Equal(t, UnmatchedBalanced, p)

	p, err = ParseUnmatchedPolicy("unclassified")
	require.NoError(t, err)
	assert.Equal(t, UnmatchedUnclassified, p)

	_, err = ParseUnmatchedPolicy("drop")
	assert.Error(t, err)
}
