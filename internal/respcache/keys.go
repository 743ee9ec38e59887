package respcache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
)

// Cache keys are deterministic hashes over the normalized request parameter
// tuple. Defaults are applied before hashing so a request omitting a parameter
// and a request passing its default value hash identically.

// listingParams is the canonical parameter tuple for the listing endpoint.
type listingParams struct {
	Sort   string `json:"sort"`
	Start  int    `json:"start"`
	Length int    `json:"length"`
	Search string `json:"search"`
}

// showParams is the canonical parameter tuple for the single-coin endpoint.
type showParams struct {
	Slug   string `json:"slug"`
	Search string `json:"search"`
	Length int    `json:"length"`
}

// ListingKey builds the cache key for GET /api/coins.
func ListingKey(sort string, start, length int, search string) string {
	if sort == "" {
		sort = "asc"
	}
	return hashKey(listingParams{
		Sort:   sort,
		Start:  start,
		Length: length,
		Search: search,
	})
}

// ShowKey builds the cache key for GET /api/coins/{slug}.
func ShowKey(slug, search string, length int) string {
	return hashKey(showParams{
		Slug:   slug,
		Search: search,
		Length: length,
	})
}

// hashKey hashes the canonical JSON encoding of the parameter tuple.
// Struct field order makes the encoding deterministic.
func hashKey(params interface{}) string {
	encoded, err := json.Marshal(params)
	if err != nil {
		// Parameter tuples are plain structs; marshalling cannot fail
		return ""
	}
	sum := md5.Sum(encoded)
	return hex.EncodeToString(sum[:])
}
