package coins

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/coinwatch/coinwatch/internal/coingecko"
	"github.com/coinwatch/coinwatch/internal/respcache"
)

// Upstream endpoints.
const (
	endpointMarkets = "/coins/markets"
	endpointCoin    = "/coins/%s"
)

// Default market query parameters.
const (
	defaultVsCurrency = "usd"
	defaultOrder      = "market_cap_desc"
	defaultPerPage    = 100
	defaultPage       = 1
)

// metadataSpacing staggers metadata jobs so a burst of a hundred enqueues
// does not hammer the upstream rate limit all at once.
const metadataSpacing = 1500 * time.Millisecond

// ImportOptions overrides the default market query parameters.
// Zero values fall back to the defaults above.
type ImportOptions struct {
	VsCurrency string
	Order      string
	PerPage    int
	Page       int
	Sparkline  bool
}

// Enqueuer schedules deferred metadata fetches.
type Enqueuer interface {
	Enqueue(slug string, delay time.Duration) string
}

// ImportService drives the two import flows: the bulk market snapshot and the
// per-coin metadata fetch.
type ImportService struct {
	caller       *coingecko.Caller
	repo         *Repository
	metadataRepo *MetadataRepository
	cache        *respcache.Repository
	enqueuer     Enqueuer
	log          zerolog.Logger
}

// NewImportService creates the import service.
func NewImportService(
	caller *coingecko.Caller,
	repo *Repository,
	metadataRepo *MetadataRepository,
	cache *respcache.Repository,
	enqueuer Enqueuer,
	log zerolog.Logger,
) *ImportService {
	return &ImportService{
		caller:       caller,
		repo:         repo,
		metadataRepo: metadataRepo,
		cache:        cache,
		enqueuer:     enqueuer,
		log:          log.With().Str("component", "import").Logger(),
	}
}

// ImportMarketData fetches one page of market records, upserts them in bulk,
// schedules a staggered metadata fetch per record, and flushes the response
// cache. The flush happens only after a fully successful import; any earlier
// failure leaves the previous snapshot and its cached responses intact.
func (s *ImportService) ImportMarketData(ctx context.Context, opts ImportOptions) (int, error) {
	params := marketParams(opts)

	body, err := s.caller.Call(ctx, endpointMarkets, params)
	if err != nil {
		return 0, fmt.Errorf("market data fetch failed: %w", err)
	}

	var payloads []MarketPayload
	if err := json.Unmarshal(body, &payloads); err != nil {
		return 0, &coingecko.InvalidResponseError{Endpoint: endpointMarkets}
	}

	if err := s.repo.UpsertMarketData(payloads); err != nil {
		return 0, err
	}

	for i, p := range payloads {
		s.enqueuer.Enqueue(p.ID, time.Duration(i)*metadataSpacing)
	}

	if err := s.cache.Flush(); err != nil {
		return 0, fmt.Errorf("cache flush after import failed: %w", err)
	}

	s.log.Info().
		Int("count", len(payloads)).
		Str("vs_currency", params.Get("vs_currency")).
		Msg("Market data imported")

	return len(payloads), nil
}

// ImportMetadata fetches the full record for one coin and upserts its
// metadata row. The coin must already exist from a market import; a missing
// slug is reported so the queue can retry after the next import lands.
func (s *ImportService) ImportMetadata(ctx context.Context, slug string) error {
	coin, err := s.repo.GetBySlug(slug)
	if err != nil {
		return err
	}
	if coin == nil {
		return &CoinNotFoundError{Slug: slug}
	}

	endpoint := fmt.Sprintf(endpointCoin, url.PathEscape(slug))

	body, err := s.caller.Call(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("metadata fetch for %s failed: %w", slug, err)
	}

	var payload MetadataPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return &coingecko.InvalidResponseError{Endpoint: endpoint}
	}

	if err := s.metadataRepo.Upsert(coin.ID, payload); err != nil {
		return err
	}

	s.log.Debug().Str("slug", slug).Msg("Metadata imported")
	return nil
}

// HandleMetadataJob adapts ImportMetadata to the queue handler signature.
func (s *ImportService) HandleMetadataJob(ctx context.Context, slug string) error {
	return s.ImportMetadata(ctx, slug)
}

func marketParams(opts ImportOptions) url.Values {
	if opts.VsCurrency == "" {
		opts.VsCurrency = defaultVsCurrency
	}
	if opts.Order == "" {
		opts.Order = defaultOrder
	}
	if opts.PerPage == 0 {
		opts.PerPage = defaultPerPage
	}
	if opts.Page == 0 {
		opts.Page = defaultPage
	}

	params := url.Values{}
	params.Set("vs_currency", opts.VsCurrency)
	params.Set("order", opts.Order)
	params.Set("per_page", strconv.Itoa(opts.PerPage))
	params.Set("page", strconv.Itoa(opts.Page))
	params.Set("sparkline", strconv.FormatBool(opts.Sparkline))
	return params
}
