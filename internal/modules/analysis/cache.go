package analysis

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/frontier/internal/domain"
)

// TTLReport is how long a cached analysis report stays valid.
const TTLReport = 24 * time.Hour

// Cache stores msgpack-encoded analysis reports in sqlite with a TTL.
type Cache struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewCache creates a report cache.
func NewCache(db *sql.DB, log zerolog.Logger) *Cache {
	return &Cache{
		db:  db,
		log: log.With().Str("component", "analysis_cache").Logger(),
	}
}

// Init creates the schema if it does not exist.
func (c *Cache) Init() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS analysis_cache (
			key        TEXT PRIMARY KEY,
			payload    BLOB NOT NULL,
			expires_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create analysis_cache table: %w", err)
	}
	return nil
}

// Get returns the cached report for a key, if present and unexpired.
func (c *Cache) Get(key string) (domain.Report, bool) {
	var payload []byte
	var expiresAt int64
	err := c.db.QueryRow(
		`SELECT payload, expires_at FROM analysis_cache WHERE key = ?`, key,
	).Scan(&payload, &expiresAt)
	if err != nil {
		return domain.Report{}, false
	}
	if time.Now().Unix() > expiresAt {
		return domain.Report{}, false
	}

	var report domain.Report
	if err := msgpack.Unmarshal(payload, &report); err != nil {
		c.log.Warn().Err(err).Msg("Failed to decode cached report, recalculating")
		return domain.Report{}, false
	}

	return report, true
}

// Set stores a report under a key with the given TTL.
func (c *Cache) Set(key string, report domain.Report, ttl time.Duration) error {
	payload, err := msgpack.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	_, err = c.db.Exec(`
		INSERT INTO analysis_cache (key, payload, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at
	`, key, payload, time.Now().Add(ttl).Unix())
	if err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}

	return nil
}

// Purge removes expired entries.
func (c *Cache) Purge() error {
	_, err := c.db.Exec(`DELETE FROM analysis_cache WHERE expires_at < ?`, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}
	return nil
}

// cacheKey builds a deterministic hash over the universe and the parameters
// that affect the result. Symbols are sorted so ordering never causes a miss.
func cacheKey(symbols []string, benchmark string, params string) string {
	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)
	keyData := strings.Join(sorted, ",") + "|" + benchmark + "|" + params
	h := sha256.Sum256([]byte(keyData))
	return hex.EncodeToString(h[:16])
}
