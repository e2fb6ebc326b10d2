package indicators

import "math"

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev is the population standard deviation.
func StdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := Mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// SampleStdDev uses the n-1 denominator; 0 for fewer than two values.
func SampleStdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := Mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// LinearFit is an ordinary least squares fit of y against its index.
type LinearFit struct {
	Slope     float64
	Intercept float64
	RSquared  float64
}

// FitLine regresses ys on x = 0..n-1. R² is 0 when ys has no variance.
func FitLine(ys []float64) LinearFit {
	n := len(ys)
	if n == 0 {
		return LinearFit{}
	}
	mx := float64(n-1) / 2
	my := Mean(ys)
	var sxx, sxy float64
	for i, y := range ys {
		dx := float64(i) - mx
		sxx += dx * dx
		sxy += dx * (y - my)
	}
	if sxx == 0 {
		return LinearFit{Intercept: my}
	}
	fit := LinearFit{Slope: sxy / sxx}
	fit.Intercept = my - fit.Slope*mx

	var sst, sse float64
	for i, y := range ys {
		d := y - my
		sst += d * d
		r := y - (fit.Intercept + fit.Slope*float64(i))
		sse += r * r
	}
	if sst > 0 {
		fit.RSquared = 1 - sse/sst
	}
	return fit
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
