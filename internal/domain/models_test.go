package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPriceTable(t *testing.T) {
	series := []PriceSeries{
		{
			Symbol: "AAA",
			Points: []PricePoint{
				{Date: "2024-01-02", Close: 100},
				{Date: "2024-01-03", Close: 101},
			},
		},
		{
			Symbol: "BBB",
			Points: []PricePoint{
				{Date: "2024-01-02", Close: 50},
				{Date: "2024-01-03", Close: 49},
			},
		},
	}

	table, err := NewPriceTable(series)
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-01-02", "2024-01-03"}, table.Dates)
	assert.Equal(t, []string{"AAA", "BBB"}, table.Symbols)
	assert.Equal(t, []float64{100, 101}, table.Data["AAA"])
	assert.Equal(t, []float64{50, 49}, table.Data["BBB"])
}

func TestNewPriceTable_LengthMismatch(t *testing.T) {
	series := []PriceSeries{
		{
			Symbol: "AAA",
			Points: []PricePoint{
				{Date: "2024-01-02", Close: 100},
				{Date: "2024-01-03", Close: 101},
			},
		},
		{
			Symbol: "BBB",
			Points: []PricePoint{{Date: "2024-01-02", Close: 50}},
		},
	}

	_, err := NewPriceTable(series)
	require.Error(t, err)

	var misaligned *AlignmentError
	require.True(t, errors.As(err, &misaligned))
	assert.Equal(t, "BBB", misaligned.Symbol)
	assert.Equal(t, "AAA", misaligned.Against)
	assert.Equal(t, 2, misaligned.Want)
	assert.Equal(t, 1, misaligned.Got)
}

func TestNewPriceTable_DateMismatch(t *testing.T) {
	series := []PriceSeries{
		{
			Symbol: "AAA",
			Points: []PricePoint{
				{Date: "2024-01-02", Close: 100},
				{Date: "2024-01-03", Close: 101},
			},
		},
		{
			Symbol: "BBB",
			Points: []PricePoint{
				{Date: "2024-01-02", Close: 50},
				{Date: "2024-01-04", Close: 49},
			},
		},
	}

	_, err := NewPriceTable(series)
	require.Error(t, err)

	var misaligned *AlignmentError
	require.True(t, errors.As(err, &misaligned))
	assert.Equal(t, "BBB", misaligned.Symbol)
	assert.Equal(t, "2024-01-04", misaligned.Date)
}

func TestNewPriceTable_Empty(t *testing.T) {
	table, err := NewPriceTable(nil)
	require.NoError(t, err)
	assert.Empty(t, table.Symbols)
}

func TestWeightVectorSum(t *testing.T) {
	w := WeightVector{"A": 0.4, "B": 0.6}
	assert.InDelta(t, 1.0, w.Sum(), 1e-12)
}

func TestReturnMatrixObservations(t *testing.T) {
	rm := ReturnMatrix{
		Symbols: []string{"A"},
		Data:    map[string][]float64{"A": {0.01, 0.02}},
	}
	assert.Equal(t, 2, rm.Observations())
	assert.Equal(t, 0, ReturnMatrix{}.Observations())
}
