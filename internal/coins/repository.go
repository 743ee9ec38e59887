package coins

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/coinwatch/coinwatch/internal/database"
)

// coinColumns is the list of columns for the coins table.
// Used to avoid SELECT * which can break when schema changes.
const coinColumns = `id, slug, symbol, name, image, current_price, market_cap, market_cap_rank,
fully_diluted_valuation, total_volume, high_24h, low_24h, price_change_24h,
price_change_percentage_24h, market_cap_change_24h, market_cap_change_percentage_24h,
circulating_supply, total_supply, max_supply, ath, ath_change_percentage, ath_date,
atl, atl_change_percentage, atl_date, roi, last_updated, created_at, updated_at, deleted_at`

// upsertColumns are the columns written by the bulk upsert, in VALUES order.
// Everything except the unique key and created_at is updated on conflict.
var upsertColumns = []string{
	"slug", "symbol", "name", "image", "current_price", "market_cap", "market_cap_rank",
	"fully_diluted_valuation", "total_volume", "high_24h", "low_24h", "price_change_24h",
	"price_change_percentage_24h", "market_cap_change_24h", "market_cap_change_percentage_24h",
	"circulating_supply", "total_supply", "max_supply", "ath", "ath_change_percentage",
	"ath_date", "atl", "atl_change_percentage", "atl_date", "roi", "last_updated", "updated_at",
}

// ListOptions controls the ranked listing query
type ListOptions struct {
	Sort   string // "asc" (default) or "desc"
	Start  *int   // offset; nil means no pagination
	Length int    // ranked window size, also the page size
	Search string // substring match against name or symbol
}

// NavigationEntry is one element of the ordered filtered slug sequence
type NavigationEntry struct {
	ID   int64
	Slug string
}

// Repository handles coin database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new coin repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "coins").Logger(),
	}
}

// UpsertMarketData bulk-upserts market records keyed by slug in a single
// statement. The external id becomes the slug; the integer primary key is
// never touched, so existing rows keep their identity across imports.
func (r *Repository) UpsertMarketData(payloads []MarketPayload) error {
	if len(payloads) == 0 {
		return nil
	}

	now := time.Now().UTC().Format(storageTimeFormat)

	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(upsertColumns)), ", ") + ")"
	placeholders := make([]string, 0, len(payloads))
	args := make([]interface{}, 0, len(payloads)*len(upsertColumns))

	for _, p := range payloads {
		placeholders = append(placeholders, rowPlaceholder)
		args = append(args,
			p.ID, p.Symbol, p.Name, p.Image, p.CurrentPrice, roundToInt(p.MarketCap), p.MarketCapRank,
			roundToInt(p.FullyDilutedValuation), p.TotalVolume, p.High24h, p.Low24h, p.PriceChange24h,
			p.PriceChangePercentage24h, p.MarketCapChange24h, p.MarketCapChangePercentage24h,
			p.CirculatingSupply, p.TotalSupply, p.MaxSupply, p.ATH, p.ATHChangePercentage,
			normalizeTimestamp(p.ATHDate), p.ATL, p.ATLChangePercentage, normalizeTimestamp(p.ATLDate),
			encodeROI(p.ROI), normalizeTimestamp(p.LastUpdated), now,
		)
	}

	updates := make([]string, 0, len(upsertColumns))
	for _, col := range upsertColumns {
		if col == "slug" {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
	}

	query := fmt.Sprintf(
		"INSERT INTO coins (%s) VALUES %s ON CONFLICT(slug) DO UPDATE SET %s",
		strings.Join(upsertColumns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(query, args...)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert market data: %w", err)
	}

	r.log.Debug().Int("count", len(payloads)).Msg("Upserted market data")
	return nil
}

// GetBySlug returns a coin by slug, excluding tombstoned rows.
// Returns nil, nil when not found.
func (r *Repository) GetBySlug(slug string) (*Coin, error) {
	return r.getBySlug(slug, false)
}

// GetBySlugIncludingDeleted returns a coin by slug even if it has been
// soft-deleted. Used for recovery.
func (r *Repository) GetBySlugIncludingDeleted(slug string) (*Coin, error) {
	return r.getBySlug(slug, true)
}

func (r *Repository) getBySlug(slug string, includeDeleted bool) (*Coin, error) {
	query := "SELECT " + coinColumns + " FROM coins WHERE slug = ?"
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}

	rows, err := r.db.Query(query, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to query coin by slug: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	coin, err := scanCoin(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan coin: %w", err)
	}

	return &coin, nil
}

// List returns the filtered, sorted, paginated ranked window.
// The market_cap_rank <= length predicate restricts the whole window rather
// than limiting rows: searching for "bitcoin" must not surface "Wrapped
// Bitcoin" or "Bitcoin Cash" from outside the top-N ranks. Unranked coins
// never match the predicate.
func (r *Repository) List(opts ListOptions) ([]Coin, error) {
	query := "SELECT " + coinColumns + " FROM coins WHERE deleted_at IS NULL AND market_cap_rank <= ?"
	args := []interface{}{opts.Length}

	if opts.Search != "" {
		query += " AND (name LIKE ? OR symbol LIKE ?)"
		pattern := "%" + opts.Search + "%"
		args = append(args, pattern, pattern)
	}

	direction := "ASC"
	if strings.EqualFold(opts.Sort, "desc") {
		direction = "DESC"
	}
	query += " ORDER BY market_cap_rank " + direction

	if opts.Start != nil {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Length, *opts.Start)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query coins: %w", err)
	}
	defer rows.Close()

	coins := make([]Coin, 0)
	for rows.Next() {
		coin, err := scanCoin(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coin: %w", err)
		}
		coins = append(coins, coin)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate coins: %w", err)
	}

	return coins, nil
}

// ListNavigationSlugs returns the ordered (id, slug) sequence for the same
// ranked window and search filter as List, ascending, without pagination.
// Used to locate a coin's neighbours in the filtered set.
func (r *Repository) ListNavigationSlugs(search string, length int) ([]NavigationEntry, error) {
	query := "SELECT id, slug FROM coins WHERE deleted_at IS NULL AND market_cap_rank <= ?"
	args := []interface{}{length}

	if search != "" {
		query += " AND (name LIKE ? OR symbol LIKE ?)"
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}

	query += " ORDER BY market_cap_rank ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query navigation slugs: %w", err)
	}
	defer rows.Close()

	var entries []NavigationEntry
	for rows.Next() {
		var entry NavigationEntry
		if err := rows.Scan(&entry.ID, &entry.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan navigation entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate navigation slugs: %w", err)
	}

	return entries, nil
}

// SoftDelete tombstones a coin. The row remains recoverable and its metadata
// is kept; only a hard delete cascades.
func (r *Repository) SoftDelete(slug string) error {
	now := time.Now().UTC().Format(storageTimeFormat)

	result, err := r.db.Exec(
		"UPDATE coins SET deleted_at = ?, updated_at = ? WHERE slug = ? AND deleted_at IS NULL",
		now, now, slug,
	)
	if err != nil {
		return fmt.Errorf("failed to soft delete coin: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return &CoinNotFoundError{Slug: slug}
	}

	return nil
}

// Restore clears the tombstone on a soft-deleted coin
func (r *Repository) Restore(slug string) error {
	now := time.Now().UTC().Format(storageTimeFormat)

	result, err := r.db.Exec(
		"UPDATE coins SET deleted_at = NULL, updated_at = ? WHERE slug = ? AND deleted_at IS NOT NULL",
		now, slug,
	)
	if err != nil {
		return fmt.Errorf("failed to restore coin: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return &CoinNotFoundError{Slug: slug}
	}

	return nil
}

// Count returns the number of live coins
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.QueryRow("SELECT COUNT(*) FROM coins WHERE deleted_at IS NULL").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count coins: %w", err)
	}
	return count, nil
}

// scanCoin scans a coins row in coinColumns order
func scanCoin(rows *sql.Rows) (Coin, error) {
	var coin Coin
	var (
		currentPrice, totalVolume, high24h, low24h            sql.NullFloat64
		priceChange24h, priceChangePct24h                     sql.NullFloat64
		marketCapChange24h, marketCapChangePct24h             sql.NullFloat64
		circulatingSupply, totalSupply, maxSupply             sql.NullFloat64
		ath, athChangePct, atl, atlChangePct                  sql.NullFloat64
		marketCap, marketCapRank, fullyDilutedValuation       sql.NullInt64
		athDate, atlDate, roi, lastUpdated, deletedAt         sql.NullString
	)

	err := rows.Scan(
		&coin.ID, &coin.Slug, &coin.Symbol, &coin.Name, &coin.Image,
		&currentPrice, &marketCap, &marketCapRank, &fullyDilutedValuation,
		&totalVolume, &high24h, &low24h, &priceChange24h, &priceChangePct24h,
		&marketCapChange24h, &marketCapChangePct24h, &circulatingSupply,
		&totalSupply, &maxSupply, &ath, &athChangePct, &athDate,
		&atl, &atlChangePct, &atlDate, &roi, &lastUpdated,
		&coin.CreatedAt, &coin.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return coin, err
	}

	coin.CurrentPrice = nullFloat(currentPrice)
	coin.MarketCap = nullInt(marketCap)
	coin.MarketCapRank = nullInt(marketCapRank)
	coin.FullyDilutedValuation = nullInt(fullyDilutedValuation)
	coin.TotalVolume = nullFloat(totalVolume)
	coin.High24h = nullFloat(high24h)
	coin.Low24h = nullFloat(low24h)
	coin.PriceChange24h = nullFloat(priceChange24h)
	coin.PriceChangePercentage24h = nullFloat(priceChangePct24h)
	coin.MarketCapChange24h = nullFloat(marketCapChange24h)
	coin.MarketCapChangePercentage24h = nullFloat(marketCapChangePct24h)
	coin.CirculatingSupply = nullFloat(circulatingSupply)
	coin.TotalSupply = nullFloat(totalSupply)
	coin.MaxSupply = nullFloat(maxSupply)
	coin.ATH = nullFloat(ath)
	coin.ATHChangePercentage = nullFloat(athChangePct)
	coin.ATHDate = nullString(athDate)
	coin.ATL = nullFloat(atl)
	coin.ATLChangePercentage = nullFloat(atlChangePct)
	coin.ATLDate = nullString(atlDate)
	coin.ROI = decodeROI(nullString(roi))
	coin.LastUpdated = nullString(lastUpdated)
	coin.DeletedAt = nullString(deletedAt)

	return coin, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}
