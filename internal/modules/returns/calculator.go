// Package returns converts aligned price histories into log returns and
// annualized per-asset statistics.
package returns

import (
	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/pkg/formulas"
)

// MinObservations is the smallest usable price series length: two prices
// produce one return.
const MinObservations = 2

// Calculator computes log returns and annualized statistics.
type Calculator struct {
	periodsPerYear float64
	log            zerolog.Logger
}

// NewCalculator creates a new return calculator.
func NewCalculator(periodsPerYear int, log zerolog.Logger) *Calculator {
	return &Calculator{
		periodsPerYear: float64(periodsPerYear),
		log:            log.With().Str("component", "returns").Logger(),
	}
}

// LogReturns converts a price table into per-asset log return series:
// ln(P_t / P_{t-1}). Every column must cover the shared date grid.
func (c *Calculator) LogReturns(table domain.PriceTable) (domain.ReturnMatrix, error) {
	if len(table.Dates) < MinObservations {
		return domain.ReturnMatrix{}, &domain.InsufficientDataError{
			Observations: len(table.Dates),
			Required:     MinObservations,
		}
	}

	rm := domain.ReturnMatrix{
		Symbols: append([]string(nil), table.Symbols...),
		Data:    make(map[string][]float64, len(table.Symbols)),
	}

	for _, symbol := range table.Symbols {
		prices := table.Data[symbol]
		if len(prices) != len(table.Dates) {
			return domain.ReturnMatrix{}, &domain.AlignmentError{
				Symbol:  symbol,
				Against: "date grid",
				Want:    len(table.Dates),
				Got:     len(prices),
			}
		}
		rm.Data[symbol] = formulas.LogReturns(prices)
	}

	c.log.Debug().
		Int("num_symbols", len(rm.Symbols)).
		Int("observations", rm.Observations()).
		Msg("Calculated log returns")

	return rm, nil
}

// Statistics computes annualized return and volatility per asset.
// Annualization follows the standard convention for log returns:
// mean * periods and sample std * sqrt(periods).
func (c *Calculator) Statistics(rm domain.ReturnMatrix) ([]domain.AssetStats, error) {
	if rm.Observations() < MinObservations {
		return nil, &domain.InsufficientDataError{
			Observations: rm.Observations(),
			Required:     MinObservations,
		}
	}

	stats := make([]domain.AssetStats, 0, len(rm.Symbols))
	for _, symbol := range rm.Symbols {
		col := rm.Data[symbol]
		stats = append(stats, domain.AssetStats{
			Symbol:       symbol,
			AnnualReturn: formulas.AnnualizedReturn(col, c.periodsPerYear),
			AnnualVol:    formulas.AnnualizedVolatility(col, c.periodsPerYear),
		})
	}

	return stats, nil
}
