// Package formulas provides shared statistical helpers used across the
// analytics modules. All estimators use sample statistics (n-1 denominator),
// matching gonum's defaults.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// Covariance calculates the sample covariance between two equal-length series
func Covariance(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	return stat.Covariance(x, y, nil)
}

// Correlation calculates the Pearson correlation coefficient between two series
func Correlation(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

// LogReturns converts a price series into log returns: ln(P_t / P_{t-1}).
// The result has length len(prices)-1. Non-positive prices produce a zero
// return for that step.
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}
	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i] > 0 && prices[i-1] > 0 {
			returns[i-1] = math.Log(prices[i] / prices[i-1])
		}
	}
	return returns
}

// AnnualizedReturn scales a mean per-period log return to an annual figure.
func AnnualizedReturn(periodReturns []float64, periodsPerYear float64) float64 {
	return Mean(periodReturns) * periodsPerYear
}

// AnnualizedVolatility scales a per-period sample standard deviation by
// sqrt(periods per year).
func AnnualizedVolatility(periodReturns []float64, periodsPerYear float64) float64 {
	return StdDev(periodReturns) * math.Sqrt(periodsPerYear)
}

// Dot returns the inner product of two equal-length vectors.
func Dot(x, y []float64) float64 {
	var sum float64
	for i := range x {
		sum += x[i] * y[i]
	}
	return sum
}

// Sum returns the sum of all elements.
func Sum(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v
	}
	return sum
}
