// Package risk estimates the covariance and correlation structure of asset
// returns for the optimizer.
package risk

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/frontier/internal/domain"
)

// MinObservations is the smallest sample for which covariance is defined.
const MinObservations = 2

// Estimator builds annualized sample covariance matrices from log returns.
type Estimator struct {
	periodsPerYear float64
	shrink         bool
	log            zerolog.Logger
}

// NewEstimator creates a covariance estimator. When shrink is true the sample
// estimate is pulled toward a constant-correlation target (Ledoit-Wolf style),
// which stabilizes the matrix on short samples.
func NewEstimator(periodsPerYear int, shrink bool, log zerolog.Logger) *Estimator {
	return &Estimator{
		periodsPerYear: float64(periodsPerYear),
		shrink:         shrink,
		log:            log.With().Str("component", "risk").Logger(),
	}
}

// Covariance computes the annualized sample covariance matrix of the return
// matrix. The result is symmetrized by averaging with its transpose to guard
// against floating-point asymmetry.
func (e *Estimator) Covariance(rm domain.ReturnMatrix) (domain.CovarianceMatrix, error) {
	n := len(rm.Symbols)
	obs := rm.Observations()
	if obs < MinObservations {
		return domain.CovarianceMatrix{}, &domain.InsufficientDataError{
			Observations: obs,
			Required:     MinObservations,
		}
	}

	for _, symbol := range rm.Symbols {
		if len(rm.Data[symbol]) != obs {
			return domain.CovarianceMatrix{}, &domain.AlignmentError{
				Symbol:  symbol,
				Against: "return matrix",
				Want:    obs,
				Got:     len(rm.Data[symbol]),
			}
		}
	}

	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
	}

	// Sample covariance (n-1 denominator), annualized
	for i := 0; i < n; i++ {
		colI := rm.Data[rm.Symbols[i]]
		for j := i; j < n; j++ {
			colJ := rm.Data[rm.Symbols[j]]
			cov := stat.Covariance(colI, colJ, nil) * e.periodsPerYear
			values[i][j] = cov
			values[j][i] = cov
		}
	}

	if e.shrink {
		values = shrinkToConstantCorrelation(values)
	}

	symmetrize(values)

	e.log.Debug().
		Int("matrix_size", n).
		Int("observations", obs).
		Bool("shrinkage", e.shrink).
		Msg("Calculated covariance matrix")

	return domain.CovarianceMatrix{
		Symbols: append([]string(nil), rm.Symbols...),
		Values:  values,
	}, nil
}

// Correlation derives the correlation matrix from a covariance matrix by
// normalizing with the outer product of per-asset standard deviations.
func (e *Estimator) Correlation(cov domain.CovarianceMatrix) domain.CorrelationMatrix {
	n := cov.Dim()
	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			vi, vj := cov.Variance(i), cov.Variance(j)
			if vi > 0 && vj > 0 {
				values[i][j] = cov.At(i, j) / math.Sqrt(vi*vj)
			}
		}
	}

	return domain.CorrelationMatrix{
		Symbols: append([]string(nil), cov.Symbols...),
		Values:  values,
	}
}

// ConditionNumber returns the 2-norm condition number of the covariance
// matrix. Large values signal near-singularity.
func ConditionNumber(cov domain.CovarianceMatrix) float64 {
	n := cov.Dim()
	if n == 0 {
		return math.Inf(1)
	}
	dense := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			dense.Set(i, j, cov.At(i, j))
		}
	}
	return mat.Cond(dense, 2)
}

// symmetrize averages a matrix with its transpose in place.
func symmetrize(values [][]float64) {
	n := len(values)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			avg := (values[i][j] + values[j][i]) / 2
			values[i][j] = avg
			values[j][i] = avg
		}
	}
}

// shrinkToConstantCorrelation pulls the sample covariance toward a
// constant-correlation target. The intensity is a simplified Ledoit-Wolf
// estimate capped at 0.5.
func shrinkToConstantCorrelation(sample [][]float64) [][]float64 {
	n := len(sample)
	if n < 2 {
		return sample
	}

	var avgVar, avgCov float64
	for i := 0; i < n; i++ {
		avgVar += sample[i][i]
		for j := 0; j < n; j++ {
			if i != j {
				avgCov += sample[i][j]
			}
		}
	}
	avgVar /= float64(n)
	avgCov /= float64(n * (n - 1))

	target := make([][]float64, n)
	for i := range target {
		target[i] = make([]float64, n)
		for j := range target[i] {
			if i == j {
				target[i][j] = avgVar
			} else if avgVar > 0 {
				target[i][j] = avgCov
			}
		}
	}

	shrinkage := 0.2
	if avgVar > 0 {
		var sumSqDiff, sumSq, mean float64
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				diff := sample[i][j] - target[i][j]
				sumSqDiff += diff * diff
				sumSq += sample[i][j] * sample[i][j]
				mean += sample[i][j]
			}
		}
		count := float64(n * n)
		mean /= count
		varSample := sumSq/count - mean*mean
		meanSqDiff := sumSqDiff / count
		if varSample > 0 && meanSqDiff > 0 {
			shrinkage = math.Min(0.5, math.Max(0.0, varSample/(varSample+meanSqDiff)))
		}
	}

	shrunk := make([][]float64, n)
	for i := range shrunk {
		shrunk[i] = make([]float64, n)
		for j := range shrunk[i] {
			shrunk[i][j] = (1-shrinkage)*sample[i][j] + shrinkage*target[i][j]
		}
	}

	return shrunk
}
