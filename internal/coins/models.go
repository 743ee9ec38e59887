// Package coins provides the market data domain: models, persistence,
// the import pipeline and ranked listing with navigation.
package coins

import "encoding/json"

// Coin represents a tracked market asset snapshot.
//
// N.B. The 'id' attribute from the CoinGecko response is saved as 'slug'
// so that we retain the integer primary key.
//
// https://docs.coingecko.com/reference/coins-markets
type Coin struct {
	ID     int64  `json:"id"`
	Slug   string `json:"slug"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Image  string `json:"image"`

	CurrentPrice                 *float64 `json:"current_price"`
	MarketCap                    *int64   `json:"market_cap"`
	MarketCapRank                *int64   `json:"market_cap_rank"`
	FullyDilutedValuation        *int64   `json:"fully_diluted_valuation"`
	TotalVolume                  *float64 `json:"total_volume"`
	High24h                      *float64 `json:"high_24h"`
	Low24h                       *float64 `json:"low_24h"`
	PriceChange24h               *float64 `json:"price_change_24h"`
	PriceChangePercentage24h     *float64 `json:"price_change_percentage_24h"`
	MarketCapChange24h           *float64 `json:"market_cap_change_24h"`
	MarketCapChangePercentage24h *float64 `json:"market_cap_change_percentage_24h"`
	CirculatingSupply            *float64 `json:"circulating_supply"`
	TotalSupply                  *float64 `json:"total_supply"`
	MaxSupply                    *float64 `json:"max_supply"`
	ATH                          *float64 `json:"ath"`
	ATHChangePercentage          *float64 `json:"ath_change_percentage"`
	ATHDate                      *string  `json:"ath_date"`
	ATL                          *float64 `json:"atl"`
	ATLChangePercentage          *float64 `json:"atl_change_percentage"`
	ATLDate                      *string  `json:"atl_date"`
	ROI                          *ROI     `json:"roi"`
	LastUpdated                  *string  `json:"last_updated"`

	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
	DeletedAt *string `json:"-"`

	// Navigation annotations, computed per request and never persisted
	PreviousSlug *string `json:"previous_coin_slug,omitempty"`
	NextSlug     *string `json:"next_coin_slug,omitempty"`

	Metadata *Metadata `json:"metadata,omitempty"`
}

// ROI is the return-on-investment object attached to some market records
type ROI struct {
	Times      float64 `json:"times"`
	Currency   string  `json:"currency"`
	Percentage float64 `json:"percentage"`
}

// Metadata is the one-to-one descriptive extension of a Coin.
// Structured fields are kept as raw JSON and served verbatim.
//
// https://docs.coingecko.com/reference/coins-id
type Metadata struct {
	ID     int64 `json:"id"`
	CoinID int64 `json:"coin_id"`

	WebSlug                      *string         `json:"web_slug"`
	AssetPlatformID              *string         `json:"asset_platform_id"`
	BlockTimeInMinutes           *int64          `json:"block_time_in_minutes"`
	HashingAlgorithm             *string         `json:"hashing_algorithm"`
	Categories                   json.RawMessage `json:"categories"`
	PreviewListing               bool            `json:"preview_listing"`
	PublicNotice                 *string         `json:"public_notice"`
	AdditionalNotices            json.RawMessage `json:"additional_notices"`
	GenesisDate                  *string         `json:"genesis_date"`
	SentimentVotesUpPercentage   *float64        `json:"sentiment_votes_up_percentage"`
	SentimentVotesDownPercentage *float64        `json:"sentiment_votes_down_percentage"`
	WatchlistPortfolioUsers      *int64          `json:"watchlist_portfolio_users"`
	Platforms                    json.RawMessage `json:"platforms"`
	DetailPlatforms              json.RawMessage `json:"detail_platforms"`
	Localization                 json.RawMessage `json:"localization"`
	Description                  json.RawMessage `json:"description"`
	Links                        json.RawMessage `json:"links"`
	CommunityData                json.RawMessage `json:"community_data"`
	DeveloperData                json.RawMessage `json:"developer_data"`
	StatusUpdates                json.RawMessage `json:"status_updates"`

	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
	DeletedAt *string `json:"-"`
}

// MarketPayload is one element of the coins/markets response.
// Every field is optional at the boundary; absent values stay nil.
// Cap fields arrive as floats (non-usd currencies and small-cap pages carry
// fractional values) and are rounded into their integer columns on storage.
type MarketPayload struct {
	ID                           string   `json:"id"`
	Symbol                       string   `json:"symbol"`
	Name                         string   `json:"name"`
	Image                        string   `json:"image"`
	CurrentPrice                 *float64 `json:"current_price"`
	MarketCap                    *float64 `json:"market_cap"`
	MarketCapRank                *int64   `json:"market_cap_rank"`
	FullyDilutedValuation        *float64 `json:"fully_diluted_valuation"`
	TotalVolume                  *float64 `json:"total_volume"`
	High24h                      *float64 `json:"high_24h"`
	Low24h                       *float64 `json:"low_24h"`
	PriceChange24h               *float64 `json:"price_change_24h"`
	PriceChangePercentage24h     *float64 `json:"price_change_percentage_24h"`
	MarketCapChange24h           *float64 `json:"market_cap_change_24h"`
	MarketCapChangePercentage24h *float64 `json:"market_cap_change_percentage_24h"`
	CirculatingSupply            *float64 `json:"circulating_supply"`
	TotalSupply                  *float64 `json:"total_supply"`
	MaxSupply                    *float64 `json:"max_supply"`
	ATH                          *float64 `json:"ath"`
	ATHChangePercentage          *float64 `json:"ath_change_percentage"`
	ATHDate                      *string  `json:"ath_date"`
	ATL                          *float64 `json:"atl"`
	ATLChangePercentage          *float64 `json:"atl_change_percentage"`
	ATLDate                      *string  `json:"atl_date"`
	ROI                          *ROI     `json:"roi"`
	LastUpdated                  *string  `json:"last_updated"`
}

// MetadataPayload is the coins/{slug} response, reduced to the fields we store
type MetadataPayload struct {
	WebSlug                      *string         `json:"web_slug"`
	AssetPlatformID              *string         `json:"asset_platform_id"`
	BlockTimeInMinutes           *int64          `json:"block_time_in_minutes"`
	HashingAlgorithm             *string         `json:"hashing_algorithm"`
	Categories                   json.RawMessage `json:"categories"`
	PreviewListing               *bool           `json:"preview_listing"`
	PublicNotice                 *string         `json:"public_notice"`
	AdditionalNotices            json.RawMessage `json:"additional_notices"`
	GenesisDate                  *string         `json:"genesis_date"`
	SentimentVotesUpPercentage   *float64        `json:"sentiment_votes_up_percentage"`
	SentimentVotesDownPercentage *float64        `json:"sentiment_votes_down_percentage"`
	WatchlistPortfolioUsers      *int64          `json:"watchlist_portfolio_users"`
	Platforms                    json.RawMessage `json:"platforms"`
	DetailPlatforms              json.RawMessage `json:"detail_platforms"`
	Localization                 json.RawMessage `json:"localization"`
	Description                  json.RawMessage `json:"description"`
	Links                        json.RawMessage `json:"links"`
	CommunityData                json.RawMessage `json:"community_data"`
	DeveloperData                json.RawMessage `json:"developer_data"`
	StatusUpdates                json.RawMessage `json:"status_updates"`
}
