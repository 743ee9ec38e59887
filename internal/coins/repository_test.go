package coins

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testhelpers "github.com/coinwatch/coinwatch/internal/testing"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, cleanup := testhelpers.NewTestDB(t, "coins")
	t.Cleanup(cleanup)
	return NewRepository(db.Conn(), zerolog.Nop())
}

func i64ptr(v int64) *int64     { return &v }
func f64ptr(v float64) *float64 { return &v }
func strptr(s string) *string   { return &s }

// marketRecord builds a minimal payload with the given slug and rank
func marketRecord(slug, name, symbol string, rank int64) MarketPayload {
	return MarketPayload{
		ID:            slug,
		Symbol:        symbol,
		Name:          name,
		Image:         "https://img.example/" + slug + ".png",
		CurrentPrice:  f64ptr(100),
		MarketCapRank: i64ptr(rank),
	}
}

func seedRanked(t *testing.T, repo *Repository, records ...MarketPayload) {
	t.Helper()
	require.NoError(t, repo.UpsertMarketData(records))
}

func TestUpsertInsertsAndUpdatesBySlug(t *testing.T) {
	repo := newTestRepo(t)

	seedRanked(t, repo, marketRecord("bitcoin", "Bitcoin", "btc", 1))

	first, err := repo.GetBySlug("bitcoin")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "Bitcoin", first.Name)

	// Re-import with changed values keeps the surrogate id
	updated := marketRecord("bitcoin", "Bitcoin", "btc", 2)
	updated.CurrentPrice = f64ptr(200)
	seedRanked(t, repo, updated)

	second, err := repo.GetBySlug("bitcoin")
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	require.NotNil(t, second.CurrentPrice)
	assert.Equal(t, 200.0, *second.CurrentPrice)
	require.NotNil(t, second.MarketCapRank)
	assert.Equal(t, int64(2), *second.MarketCapRank)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUpsertNormalizesTimestampsAndROI(t *testing.T) {
	repo := newTestRepo(t)

	record := marketRecord("ethereum", "Ethereum", "eth", 2)
	record.ATHDate = strptr("2021-11-10T14:24:11.849Z")
	record.ROI = &ROI{Times: 29.7, Currency: "btc", Percentage: 2970.4}
	seedRanked(t, repo, record)

	coin, err := repo.GetBySlug("ethereum")
	require.NoError(t, err)
	require.NotNil(t, coin)
	require.NotNil(t, coin.ATHDate)
	assert.Equal(t, "2021-11-10 14:24:11", *coin.ATHDate)
	require.NotNil(t, coin.ROI)
	assert.Equal(t, "btc", coin.ROI.Currency)
	assert.InDelta(t, 29.7, coin.ROI.Times, 0.0001)
}

func TestUpsertRoundsFractionalCaps(t *testing.T) {
	repo := newTestRepo(t)

	// Non-usd currencies and small-cap coins report fractional cap values
	body := `[{"id": "smallcoin", "symbol": "sml", "name": "Smallcoin",
		"market_cap": 7715180.57, "market_cap_rank": 3,
		"fully_diluted_valuation": 9123456.49}]`
	var payloads []MarketPayload
	require.NoError(t, json.Unmarshal([]byte(body), &payloads))
	seedRanked(t, repo, payloads...)

	coin, err := repo.GetBySlug("smallcoin")
	require.NoError(t, err)
	require.NotNil(t, coin)
	require.NotNil(t, coin.MarketCap)
	assert.Equal(t, int64(7715181), *coin.MarketCap)
	require.NotNil(t, coin.FullyDilutedValuation)
	assert.Equal(t, int64(9123456), *coin.FullyDilutedValuation)
}

func TestListRestrictsToRankedWindow(t *testing.T) {
	repo := newTestRepo(t)

	seedRanked(t, repo,
		marketRecord("bitcoin", "Bitcoin", "btc", 1),
		marketRecord("ethereum", "Ethereum", "eth", 2),
		marketRecord("bitcoin-cash", "Bitcoin Cash", "bch", 14),
	)

	// Rank 14 matches the search string but sits outside the length-10 window
	result, err := repo.List(ListOptions{Length: 10, Search: "bitcoin"})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "bitcoin", result[0].Slug)
}

func TestListExcludesUnrankedCoins(t *testing.T) {
	repo := newTestRepo(t)

	unranked := marketRecord("mystery", "Mystery", "mst", 1)
	unranked.MarketCapRank = nil
	seedRanked(t, repo, marketRecord("bitcoin", "Bitcoin", "btc", 1), unranked)

	result, err := repo.List(ListOptions{Length: 10})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "bitcoin", result[0].Slug)
}

func TestListSortAndPagination(t *testing.T) {
	repo := newTestRepo(t)

	seedRanked(t, repo,
		marketRecord("bitcoin", "Bitcoin", "btc", 1),
		marketRecord("ethereum", "Ethereum", "eth", 2),
		marketRecord("tether", "Tether", "usdt", 3),
	)

	desc, err := repo.List(ListOptions{Sort: "desc", Length: 10})
	require.NoError(t, err)
	require.Len(t, desc, 3)
	assert.Equal(t, "tether", desc[0].Slug)
	assert.Equal(t, "bitcoin", desc[2].Slug)

	start := 1
	page, err := repo.List(ListOptions{Start: &start, Length: 10})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "ethereum", page[0].Slug)
}

func TestListSearchMatchesNameOrSymbol(t *testing.T) {
	repo := newTestRepo(t)

	seedRanked(t, repo,
		marketRecord("bitcoin", "Bitcoin", "btc", 1),
		marketRecord("ethereum", "Ethereum", "eth", 2),
	)

	bySymbol, err := repo.List(ListOptions{Length: 10, Search: "eth"})
	require.NoError(t, err)
	require.Len(t, bySymbol, 1)
	assert.Equal(t, "ethereum", bySymbol[0].Slug)

	byName, err := repo.List(ListOptions{Length: 10, Search: "Bitco"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "bitcoin", byName[0].Slug)
}

func TestGetBySlugMissing(t *testing.T) {
	repo := newTestRepo(t)

	coin, err := repo.GetBySlug("absent")
	require.NoError(t, err)
	assert.Nil(t, coin)
}

func TestSoftDeleteHidesCoinFromQueries(t *testing.T) {
	repo := newTestRepo(t)

	seedRanked(t, repo, marketRecord("bitcoin", "Bitcoin", "btc", 1))

	require.NoError(t, repo.SoftDelete("bitcoin"))

	coin, err := repo.GetBySlug("bitcoin")
	require.NoError(t, err)
	assert.Nil(t, coin)

	result, err := repo.List(ListOptions{Length: 10})
	require.NoError(t, err)
	assert.Empty(t, result)

	// Tombstoned row remains reachable in recovery mode
	tombstoned, err := repo.GetBySlugIncludingDeleted("bitcoin")
	require.NoError(t, err)
	require.NotNil(t, tombstoned)
	assert.NotNil(t, tombstoned.DeletedAt)
}

func TestRestoreClearsTombstone(t *testing.T) {
	repo := newTestRepo(t)

	seedRanked(t, repo, marketRecord("bitcoin", "Bitcoin", "btc", 1))
	require.NoError(t, repo.SoftDelete("bitcoin"))
	require.NoError(t, repo.Restore("bitcoin"))

	coin, err := repo.GetBySlug("bitcoin")
	require.NoError(t, err)
	require.NotNil(t, coin)
	assert.Nil(t, coin.DeletedAt)
}

func TestSoftDeleteUnknownSlug(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.SoftDelete("absent")

	var notFound *CoinNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "absent", notFound.Slug)
}
