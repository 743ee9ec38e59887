package respcache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testhelpers "github.com/coinwatch/coinwatch/internal/testing"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, cleanup := testhelpers.NewTestDB(t, "cache")
	t.Cleanup(cleanup)
	return NewRepository(db.Conn())
}

func TestListingKeyDefaultsMatchExplicitValues(t *testing.T) {
	omitted := ListingKey("", 0, 10, "")
	explicit := ListingKey("asc", 0, 10, "")

	assert.Equal(t, explicit, omitted)
}

func TestListingKeyDiffersByParameters(t *testing.T) {
	base := ListingKey("asc", 0, 10, "")

	assert.NotEqual(t, base, ListingKey("desc", 0, 10, ""))
	assert.NotEqual(t, base, ListingKey("asc", 10, 10, ""))
	assert.NotEqual(t, base, ListingKey("asc", 0, 25, ""))
	assert.NotEqual(t, base, ListingKey("asc", 0, 10, "bit"))
}

func TestShowKeyIncludesNavigationContext(t *testing.T) {
	base := ShowKey("bitcoin", "", 10)

	assert.NotEqual(t, base, ShowKey("ethereum", "", 10))
	assert.NotEqual(t, base, ShowKey("bitcoin", "bit", 10))
	assert.NotEqual(t, base, ShowKey("bitcoin", "", 25))
}

func TestStoreAndGetFresh(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store(TableIndex, "key1", []byte(`{"data":[]}`), TTLResponse))

	data, err := repo.GetIfFresh(TableIndex, "key1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[]}`, string(data))
}

func TestGetIfFreshMissingKey(t *testing.T) {
	repo := newTestRepo(t)

	data, err := repo.GetIfFresh(TableShow, "absent")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestTTLBoundary(t *testing.T) {
	repo := newTestRepo(t)

	storedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.SetClock(func() time.Time { return storedAt })
	require.NoError(t, repo.Store(TableIndex, "key1", []byte(`[1]`), TTLResponse))

	// Still fresh just before the TTL elapses
	repo.SetClock(func() time.Time { return storedAt.Add(299 * time.Second) })
	data, err := repo.GetIfFresh(TableIndex, "key1")
	require.NoError(t, err)
	assert.NotNil(t, data)

	// Gone just after
	repo.SetClock(func() time.Time { return storedAt.Add(301 * time.Second) })
	data, err = repo.GetIfFresh(TableIndex, "key1")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestRememberUsesCachedValue(t *testing.T) {
	repo := newTestRepo(t)

	producerCalls := 0
	producer := func() ([]byte, error) {
		producerCalls++
		return []byte(`{"n":1}`), nil
	}

	first, err := repo.Remember(TableIndex, "key1", TTLResponse, producer)
	require.NoError(t, err)
	second, err := repo.Remember(TableIndex, "key1", TTLResponse, producer)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, producerCalls)
}

func TestRememberPropagatesProducerError(t *testing.T) {
	repo := newTestRepo(t)

	wantErr := errors.New("query failed")
	_, err := repo.Remember(TableIndex, "key1", TTLResponse, func() ([]byte, error) {
		return nil, wantErr
	})
	require.ErrorIs(t, err, wantErr)

	// Nothing cached after a failure
	data, err := repo.GetIfFresh(TableIndex, "key1")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestRememberDoesNotCacheNilResult(t *testing.T) {
	repo := newTestRepo(t)

	producerCalls := 0
	producer := func() ([]byte, error) {
		producerCalls++
		return nil, nil
	}

	data, err := repo.Remember(TableShow, "missing", TTLResponse, producer)
	require.NoError(t, err)
	assert.Nil(t, data)

	_, err = repo.Remember(TableShow, "missing", TTLResponse, producer)
	require.NoError(t, err)
	assert.Equal(t, 2, producerCalls)
}

func TestFlushClearsAllTables(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store(TableIndex, "a", []byte(`[]`), TTLResponse))
	require.NoError(t, repo.Store(TableShow, "b", []byte(`{}`), TTLResponse))

	require.NoError(t, repo.Flush())

	for _, table := range AllTables {
		for _, key := range []string{"a", "b"} {
			data, err := repo.GetIfFresh(table, key)
			require.NoError(t, err)
			assert.Nil(t, data)
		}
	}
}

func TestDeleteAllExpired(t *testing.T) {
	repo := newTestRepo(t)

	storedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.SetClock(func() time.Time { return storedAt })
	require.NoError(t, repo.Store(TableIndex, "old", []byte(`[]`), TTLResponse))
	require.NoError(t, repo.Store(TableIndex, "new", []byte(`[]`), time.Hour))

	repo.SetClock(func() time.Time { return storedAt.Add(10 * time.Minute) })
	deleted, err := repo.DeleteAllExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted[TableIndex])

	data, err := repo.GetIfFresh(TableIndex, "new")
	require.NoError(t, err)
	assert.NotNil(t, data)
}

func TestStoreRejectsUnknownTable(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.Store("responses_bogus", "key", []byte(`[]`), TTLResponse)
	assert.Error(t, err)
}
