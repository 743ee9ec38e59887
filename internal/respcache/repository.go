// Package respcache provides persistent caching for read API responses.
// Responses are stored as JSON blobs with expiration timestamps; the whole
// namespace is flushed on every successful import so the read path never
// serves import-derived staleness beyond one TTL window.
package respcache

import (
	"database/sql"
	"fmt"
	"time"
)

// TTLResponse is how long a cached API response stays fresh.
const TTLResponse = 300 * time.Second

// Namespace tables, one per endpoint kind.
const (
	TableIndex = "responses_index"
	TableShow  = "responses_show"
)

// AllTables lists all cache tables for flush and cleanup operations.
var AllTables = []string{TableIndex, TableShow}

// validTables is a set for O(1) table name validation.
var validTables = func() map[string]bool {
	m := make(map[string]bool, len(AllTables))
	for _, t := range AllTables {
		m[t] = true
	}
	return m
}()

// Repository provides cache operations for API responses.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new response cache repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// SetClock overrides the repository clock. Used by tests to exercise
// expiration boundaries.
func (r *Repository) SetClock(now func() time.Time) {
	r.now = now
}

// validateTable ensures the table name is in our allowed list.
// This prevents SQL injection through table names.
func validateTable(table string) error {
	if !validTables[table] {
		return fmt.Errorf("invalid table name: %s", table)
	}
	return nil
}

// Store saves data with expiration = now + ttl.
// Uses INSERT OR REPLACE to upsert data.
func (r *Repository) Store(table, key string, data []byte, ttl time.Duration) error {
	if err := validateTable(table); err != nil {
		return err
	}

	expiresAt := r.now().Add(ttl).Unix()

	query := fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (cache_key, data, expires_at) VALUES (?, ?, ?)",
		table,
	)

	_, err := r.db.Exec(query, key, string(data), expiresAt)
	if err != nil {
		return fmt.Errorf("failed to store data in %s: %w", table, err)
	}

	return nil
}

// GetIfFresh returns data only if expires_at > now.
// Returns nil, nil if the key doesn't exist or data is expired.
func (r *Repository) GetIfFresh(table, key string) ([]byte, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}

	now := r.now().Unix()

	query := fmt.Sprintf(
		"SELECT data FROM %s WHERE cache_key = ? AND expires_at > ?",
		table,
	)

	var data string
	err := r.db.QueryRow(query, key, now).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get data from %s: %w", table, err)
	}

	return []byte(data), nil
}

// Remember returns the cached value for key, or runs producer and caches its
// result with the given TTL. A nil result from the producer is passed through
// without caching, so negative lookups are re-evaluated every time. Concurrent
// producers for the same key are safe; last writer wins.
func (r *Repository) Remember(table, key string, ttl time.Duration, producer func() ([]byte, error)) ([]byte, error) {
	cached, err := r.GetIfFresh(table, key)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}

	data, err := producer()
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	if err := r.Store(table, key, data, ttl); err != nil {
		return nil, err
	}

	return data, nil
}

// Flush removes every entry from every namespace table.
// Called after each successful bulk import.
func (r *Repository) Flush() error {
	for _, table := range AllTables {
		query := fmt.Sprintf("DELETE FROM %s", table)
		if _, err := r.db.Exec(query); err != nil {
			return fmt.Errorf("failed to flush %s: %w", table, err)
		}
	}
	return nil
}

// DeleteExpired removes all rows where expires_at < now.
// Returns the number of rows deleted.
func (r *Repository) DeleteExpired(table string) (int64, error) {
	if err := validateTable(table); err != nil {
		return 0, err
	}

	now := r.now().Unix()

	query := fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", table)

	result, err := r.db.Exec(query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired from %s: %w", table, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s: %w", table, err)
	}

	return deleted, nil
}

// DeleteAllExpired removes all expired entries from all tables.
// Returns a map of table name to number of rows deleted.
func (r *Repository) DeleteAllExpired() (map[string]int64, error) {
	results := make(map[string]int64)

	for _, table := range AllTables {
		deleted, err := r.DeleteExpired(table)
		if err != nil {
			return results, fmt.Errorf("failed to delete expired from %s: %w", table, err)
		}
		results[table] = deleted
	}

	return results, nil
}
