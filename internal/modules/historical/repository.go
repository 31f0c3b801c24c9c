// Package historical provides the sqlite-backed price history store and the
// cleaning steps applied before analysis.
package historical

import (
	"database/sql"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/domain"
)

// Repository provides access to daily closing prices.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a price history repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "history_db").Logger(),
	}
}

// Init creates the schema if it does not exist.
func (r *Repository) Init() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_prices (
			symbol TEXT NOT NULL,
			date   TEXT NOT NULL,
			close  REAL NOT NULL,
			PRIMARY KEY (symbol, date)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create daily_prices table: %w", err)
	}
	return nil
}

// SaveSeries upserts a full price series in one transaction.
func (r *Repository) SaveSeries(series domain.PriceSeries) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO daily_prices (symbol, date, close)
		VALUES (?, ?, ?)
		ON CONFLICT(symbol, date) DO UPDATE SET close = excluded.close
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range series.Points {
		if _, err := stmt.Exec(series.Symbol, p.Date, p.Close); err != nil {
			return fmt.Errorf("failed to upsert price for %s on %s: %w", series.Symbol, p.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit prices for %s: %w", series.Symbol, err)
	}

	r.log.Debug().
		Str("symbol", series.Symbol).
		Int("points", len(series.Points)).
		Msg("Saved price series")

	return nil
}

// GetSeries fetches a symbol's prices ordered by date. Empty start/end leave
// that side of the range unbounded.
func (r *Repository) GetSeries(symbol, start, end string) (domain.PriceSeries, error) {
	query := `SELECT date, close FROM daily_prices WHERE symbol = ?`
	args := []interface{}{symbol}
	if start != "" {
		query += ` AND date >= ?`
		args = append(args, start)
	}
	if end != "" {
		query += ` AND date <= ?`
		args = append(args, end)
	}
	query += ` ORDER BY date ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("failed to query prices for %s: %w", symbol, err)
	}
	defer rows.Close()

	series := domain.PriceSeries{Symbol: symbol}
	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.Date, &p.Close); err != nil {
			return domain.PriceSeries{}, fmt.Errorf("failed to scan price for %s: %w", symbol, err)
		}
		series.Points = append(series.Points, p)
	}
	if err := rows.Err(); err != nil {
		return domain.PriceSeries{}, fmt.Errorf("error iterating prices for %s: %w", symbol, err)
	}

	return series, nil
}

// GetTable assembles an aligned price table for a set of symbols. The grid
// is the union of all observed dates; missing entries are NaN and are filled
// by the Cleaner before analysis.
func (r *Repository) GetTable(symbols []string, start, end string) (domain.PriceTable, error) {
	perSymbol := make(map[string]map[string]float64, len(symbols))
	dateSet := make(map[string]struct{})

	for _, symbol := range symbols {
		series, err := r.GetSeries(symbol, start, end)
		if err != nil {
			return domain.PriceTable{}, err
		}
		if len(series.Points) == 0 {
			return domain.PriceTable{}, &domain.InsufficientDataError{
				Symbol:       symbol,
				Observations: 0,
				Required:     2,
			}
		}
		byDate := make(map[string]float64, len(series.Points))
		for _, p := range series.Points {
			byDate[p.Date] = p.Close
			dateSet[p.Date] = struct{}{}
		}
		perSymbol[symbol] = byDate
	}

	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	table := domain.PriceTable{
		Dates:   dates,
		Symbols: append([]string(nil), symbols...),
		Data:    make(map[string][]float64, len(symbols)),
	}
	for _, symbol := range symbols {
		col := make([]float64, len(dates))
		for i, d := range dates {
			if v, ok := perSymbol[symbol][d]; ok {
				col[i] = v
			} else {
				col[i] = math.NaN()
			}
		}
		table.Data[symbol] = col
	}

	return table, nil
}
