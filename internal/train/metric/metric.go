// Package metric scores model predictions against targets after each epoch.
package metric

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUndefinedCorrelation is returned when the Pearson coefficient has no
	// value: fewer than two points, or zero variance on either side.
	ErrUndefinedCorrelation = errors.New("correlation undefined")

	// ErrLength is returned when predictions and targets differ in length.
	ErrLength = errors.New("prediction and target lengths differ")
)

// Report holds the validation scores of one epoch.
type Report struct {
	// RMSE is the root mean squared error.
	RMSE float64

	// RelativeRMSE is RMSE divided by the target range. It equals RMSE when
	// no range is configured.
	RelativeRMSE float64

	// Pearson is the correlation coefficient between predictions and targets.
	// It is NaN when the report came with ErrUndefinedCorrelation.
	Pearson float64
}

// Reporter turns a prediction sequence and its targets into a Report.
type Reporter interface {
	Report(predicted, target []float64) (Report, error)
}

// Validator is the default Reporter.
type Validator struct {
	// Range is targetMax - targetMin of the training set, used to scale RMSE.
	// Zero or negative disables the scaling.
	Range float64
}

// Report implements Reporter.
//
// When the correlation is undefined the error wraps ErrUndefinedCorrelation
// and the RMSE fields are still filled in.
func (v Validator) Report(predicted, target []float64) (Report, error) {
	if len(predicted) != len(target) {
		return Report{Pearson: math.NaN()}, fmt.Errorf("%w: %d vs %d", ErrLength, len(predicted), len(target))
	}

	r := Report{RMSE: RMSE(predicted, target)}
	r.RelativeRMSE = r.RMSE
	if v.Range > 0 {
		r.RelativeRMSE = r.RMSE / v.Range
	}

	p, err := Pearson(predicted, target)
	r.Pearson = p
	return r, err
}

// RMSE returns the root mean squared error of predicted against target.
// Both slices must have the same length; an empty input yields 0.
func RMSE(predicted, target []float64) float64 {
	if len(predicted) == 0 {
		return 0
	}
	var sum float64
	for i, p := range predicted {
		d := target[i] - p
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(predicted)))
}

// Pearson returns the Pearson correlation coefficient of x and y.
func Pearson(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return math.NaN(), fmt.Errorf("%w: %d vs %d", ErrLength, len(x), len(y))
	}
	n := len(x)
	if n < 2 {
		return math.NaN(), fmt.Errorf("%w: %d points", ErrUndefinedCorrelation, n)
	}

	var mx, my float64
	for i := range x {
		mx += x[i]
		my += y[i]
	}
	mx /= float64(n)
	my /= float64(n)

	var cov, vx, vy float64
	for i := range x {
		dx := x[i] - mx
		dy := y[i] - my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return math.NaN(), fmt.Errorf("%w: zero variance", ErrUndefinedCorrelation)
	}
	return cov / math.Sqrt(vx*vy), nil
}
