package coins

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const metadataColumns = `id, coin_id, web_slug, asset_platform_id, block_time_in_minutes,
hashing_algorithm, categories, preview_listing, public_notice, additional_notices,
genesis_date, sentiment_votes_up_percentage, sentiment_votes_down_percentage,
watchlist_portfolio_users, platforms, detail_platforms, localization, description,
links, community_data, developer_data, status_updates, created_at, updated_at, deleted_at`

// MetadataRepository handles the one-to-one coin_metadata table
type MetadataRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewMetadataRepository creates a new metadata repository
func NewMetadataRepository(db *sql.DB, log zerolog.Logger) *MetadataRepository {
	return &MetadataRepository{
		db:  db,
		log: log.With().Str("repo", "coin_metadata").Logger(),
	}
}

// Upsert writes the metadata row for a coin, keyed by coin_id.
// An absent preview_listing in the payload is stored as false.
func (r *MetadataRepository) Upsert(coinID int64, payload MetadataPayload) error {
	now := time.Now().UTC().Format(storageTimeFormat)

	previewListing := 0
	if payload.PreviewListing != nil && *payload.PreviewListing {
		previewListing = 1
	}

	query := `INSERT INTO coin_metadata (
		coin_id, web_slug, asset_platform_id, block_time_in_minutes, hashing_algorithm,
		categories, preview_listing, public_notice, additional_notices, genesis_date,
		sentiment_votes_up_percentage, sentiment_votes_down_percentage,
		watchlist_portfolio_users, platforms, detail_platforms, localization,
		description, links, community_data, developer_data, status_updates, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(coin_id) DO UPDATE SET
		web_slug = excluded.web_slug,
		asset_platform_id = excluded.asset_platform_id,
		block_time_in_minutes = excluded.block_time_in_minutes,
		hashing_algorithm = excluded.hashing_algorithm,
		categories = excluded.categories,
		preview_listing = excluded.preview_listing,
		public_notice = excluded.public_notice,
		additional_notices = excluded.additional_notices,
		genesis_date = excluded.genesis_date,
		sentiment_votes_up_percentage = excluded.sentiment_votes_up_percentage,
		sentiment_votes_down_percentage = excluded.sentiment_votes_down_percentage,
		watchlist_portfolio_users = excluded.watchlist_portfolio_users,
		platforms = excluded.platforms,
		detail_platforms = excluded.detail_platforms,
		localization = excluded.localization,
		description = excluded.description,
		links = excluded.links,
		community_data = excluded.community_data,
		developer_data = excluded.developer_data,
		status_updates = excluded.status_updates,
		updated_at = excluded.updated_at`

	_, err := r.db.Exec(query,
		coinID, payload.WebSlug, payload.AssetPlatformID, payload.BlockTimeInMinutes,
		payload.HashingAlgorithm, rawJSONColumn(payload.Categories), previewListing,
		payload.PublicNotice, rawJSONColumn(payload.AdditionalNotices), payload.GenesisDate,
		payload.SentimentVotesUpPercentage, payload.SentimentVotesDownPercentage,
		payload.WatchlistPortfolioUsers, rawJSONColumn(payload.Platforms),
		rawJSONColumn(payload.DetailPlatforms), rawJSONColumn(payload.Localization),
		rawJSONColumn(payload.Description), rawJSONColumn(payload.Links),
		rawJSONColumn(payload.CommunityData), rawJSONColumn(payload.DeveloperData),
		rawJSONColumn(payload.StatusUpdates), now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert coin metadata: %w", err)
	}

	return nil
}

// GetByCoinID returns the metadata row for a coin, nil when none exists yet
func (r *MetadataRepository) GetByCoinID(coinID int64) (*Metadata, error) {
	query := "SELECT " + metadataColumns + " FROM coin_metadata WHERE coin_id = ? AND deleted_at IS NULL"

	rows, err := r.db.Query(query, coinID)
	if err != nil {
		return nil, fmt.Errorf("failed to query coin metadata: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	var m Metadata
	var (
		webSlug, assetPlatformID, hashingAlgorithm         sql.NullString
		publicNotice, genesisDate, deletedAt               sql.NullString
		categories, additionalNotices, platforms           sql.NullString
		detailPlatforms, localization, description         sql.NullString
		links, communityData, developerData, statusUpdates sql.NullString
		blockTimeInMinutes, watchlistPortfolioUsers        sql.NullInt64
		sentimentUp, sentimentDown                         sql.NullFloat64
		previewListing                                     int
	)

	err = rows.Scan(
		&m.ID, &m.CoinID, &webSlug, &assetPlatformID, &blockTimeInMinutes,
		&hashingAlgorithm, &categories, &previewListing, &publicNotice,
		&additionalNotices, &genesisDate, &sentimentUp, &sentimentDown,
		&watchlistPortfolioUsers, &platforms, &detailPlatforms, &localization,
		&description, &links, &communityData, &developerData, &statusUpdates,
		&m.CreatedAt, &m.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan coin metadata: %w", err)
	}

	m.WebSlug = nullString(webSlug)
	m.AssetPlatformID = nullString(assetPlatformID)
	m.BlockTimeInMinutes = nullInt(blockTimeInMinutes)
	m.HashingAlgorithm = nullString(hashingAlgorithm)
	m.Categories = rawJSONValue(categories)
	m.PreviewListing = previewListing != 0
	m.PublicNotice = nullString(publicNotice)
	m.AdditionalNotices = rawJSONValue(additionalNotices)
	m.GenesisDate = nullString(genesisDate)
	m.SentimentVotesUpPercentage = nullFloat(sentimentUp)
	m.SentimentVotesDownPercentage = nullFloat(sentimentDown)
	m.WatchlistPortfolioUsers = nullInt(watchlistPortfolioUsers)
	m.Platforms = rawJSONValue(platforms)
	m.DetailPlatforms = rawJSONValue(detailPlatforms)
	m.Localization = rawJSONValue(localization)
	m.Description = rawJSONValue(description)
	m.Links = rawJSONValue(links)
	m.CommunityData = rawJSONValue(communityData)
	m.DeveloperData = rawJSONValue(developerData)
	m.StatusUpdates = rawJSONValue(statusUpdates)
	m.DeletedAt = nullString(deletedAt)

	return &m, nil
}
