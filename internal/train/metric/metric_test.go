package metric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRMSE(t *testing.T) {
	assert.Equal(t, 0.0, RMSE(nil, nil))
	assert.Equal(t, 0.0, RMSE([]float64{1, 2}, []float64{1, 2}))
	assert.InDelta(t, math.Sqrt(2.5), RMSE([]float64{0, 0}, []float64{1, 2}), 1e-12)
}

func TestPearson(t *testing.T) {
	tests := []struct {
		name string
		x, y []float64
		want float64
	}{
		{"perfect positive", []float64{1, 2, 3, 4}, []float64{2, 4, 6, 8}, 1},
		{"perfect negative", []float64{1, 2, 3}, []float64{3, 2, 1}, -1},
		{"shifted and scaled", []float64{0, 1, 2}, []float64{10, 13, 16}, 1},
		{"uncorrelated", []float64{1, 2, 3, 4}, []float64{1, -1, -1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Pearson(tt.x, tt.y)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestPearson_Undefined(t *testing.T) {
	tests := []struct {
		name string
		x, y []float64
	}{
		{"constant target", []float64{1, 2, 3}, []float64{5, 5, 5}},
		{"constant prediction", []float64{0, 0, 0}, []float64{1, 2, 3}},
		{"single point", []float64{1}, []float64{2}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Pearson(tt.x, tt.y)
			assert.ErrorIs(t, err, ErrUndefinedCorrelation)
			assert.True(t, math.IsNaN(got))
		})
	}

	_, err := Pearson([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrLength)
}

func TestValidator_Report(t *testing.T) {
	v := Validator{Range: 4}
	r, err := v.Report([]float64{1, 2, 3}, []float64{1, 2, 5})
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(4.0/3), r.RMSE, 1e-12)
	assert.InDelta(t, math.Sqrt(4.0/3)/4, r.RelativeRMSE, 1e-12)
	assert.Greater(t, r.Pearson, 0.9)
}

func TestValidator_ReportDegenerate(t *testing.T) {
	r, err := Validator{}.Report([]float64{0, 0}, []float64{1, 3})
	assert.ErrorIs(t, err, ErrUndefinedCorrelation)
	assert.InDelta(t, math.Sqrt(5), r.RMSE, 1e-12)
	assert.Equal(t, r.RMSE, r.RelativeRMSE, "no range configured")
	assert.True(t, math.IsNaN(r.Pearson))

	_, err = Validator{}.Report([]float64{0}, nil)
	assert.ErrorIs(t, err, ErrLength)
}
