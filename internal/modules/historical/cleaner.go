package historical

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/pkg/formulas"
)

// DefaultZThreshold marks prices more than three standard deviations from a
// column's mean as outliers.
const DefaultZThreshold = 3.0

// CleanStats summarizes what cleaning changed.
type CleanStats struct {
	MissingFilled   int `json:"missing_filled"`
	OutliersClamped int `json:"outliers_clamped"`
}

// Cleaner fills gaps and clamps extreme outliers in a price table. Raw data
// is never mutated; Clean returns a new table.
type Cleaner struct {
	zThreshold float64
	log        zerolog.Logger
}

// NewCleaner creates a cleaner with the default z-score threshold.
func NewCleaner(log zerolog.Logger) *Cleaner {
	return &Cleaner{
		zThreshold: DefaultZThreshold,
		log:        log.With().Str("component", "price_cleaner").Logger(),
	}
}

// Clean forward-fills missing values (back-filling leading gaps), then
// replaces z-score outliers with the previous observation.
func (c *Cleaner) Clean(table domain.PriceTable) (domain.PriceTable, CleanStats) {
	out := domain.PriceTable{
		Dates:   append([]string(nil), table.Dates...),
		Symbols: append([]string(nil), table.Symbols...),
		Data:    make(map[string][]float64, len(table.Symbols)),
	}

	var stats CleanStats
	for _, symbol := range table.Symbols {
		col := append([]float64(nil), table.Data[symbol]...)
		stats.MissingFilled += fillMissing(col)
		stats.OutliersClamped += c.clampOutliers(col)
		out.Data[symbol] = col
	}

	if stats.MissingFilled > 0 || stats.OutliersClamped > 0 {
		c.log.Warn().
			Int("missing_filled", stats.MissingFilled).
			Int("outliers_clamped", stats.OutliersClamped).
			Msg("Cleaned price data")
	}

	return out, stats
}

// fillMissing forward-fills NaN entries and back-fills any leading run.
// Returns the number of entries changed.
func fillMissing(col []float64) int {
	filled := 0

	last := math.NaN()
	for i, v := range col {
		if math.IsNaN(v) {
			if !math.IsNaN(last) {
				col[i] = last
				filled++
			}
		} else {
			last = v
		}
	}

	// Leading gap: back-fill from the first real observation
	first := math.NaN()
	for _, v := range col {
		if !math.IsNaN(v) {
			first = v
			break
		}
	}
	if !math.IsNaN(first) {
		for i, v := range col {
			if math.IsNaN(v) {
				col[i] = first
				filled++
			} else {
				break
			}
		}
	}

	return filled
}

// clampOutliers replaces entries whose z-score exceeds the threshold with
// the previous value. Returns the number of entries changed.
func (c *Cleaner) clampOutliers(col []float64) int {
	if len(col) < 3 {
		return 0
	}

	mean := formulas.Mean(col)
	std := formulas.StdDev(col)
	if std == 0 {
		return 0
	}

	clamped := 0
	for i := 1; i < len(col); i++ {
		if math.Abs((col[i]-mean)/std) > c.zThreshold {
			col[i] = col[i-1]
			clamped++
		}
	}

	return clamped
}
