// Package handlers provides the HTTP read API for coin data.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/coinwatch/coinwatch/internal/coins"
	"github.com/coinwatch/coinwatch/internal/respcache"
)

// Listing parameter defaults, applied before querying and before cache key
// construction so omitted and default-valued requests share one cache entry.
const (
	defaultSort     = "asc"
	defaultStart    = 0
	defaultLength   = 10
	maxSearchLength = 255
)

// Handler handles coin HTTP requests
type Handler struct {
	repo         *coins.Repository
	metadataRepo *coins.MetadataRepository
	navigator    *coins.Navigator
	cache        *respcache.Repository
	log          zerolog.Logger
}

// NewHandler creates a new coin handler
func NewHandler(
	repo *coins.Repository,
	metadataRepo *coins.MetadataRepository,
	navigator *coins.Navigator,
	cache *respcache.Repository,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		repo:         repo,
		metadataRepo: metadataRepo,
		navigator:    navigator,
		cache:        cache,
		log:          log.With().Str("handler", "coins").Logger(),
	}
}

// listQuery is the validated parameter tuple for HandleListCoins
type listQuery struct {
	sort   string
	start  int
	length int
	search string
}

// parseListQuery validates the listing parameters, applying defaults for
// omitted values. Malformed values are rejected rather than coerced.
func parseListQuery(r *http.Request) (listQuery, string) {
	q := listQuery{
		sort:   defaultSort,
		start:  defaultStart,
		length: defaultLength,
	}

	if sort := r.URL.Query().Get("sort"); sort != "" {
		sort = strings.ToLower(sort)
		if sort != "asc" && sort != "desc" {
			return q, "sort must be asc or desc"
		}
		q.sort = sort
	}

	if start := r.URL.Query().Get("start"); start != "" {
		parsed, err := strconv.Atoi(start)
		if err != nil || parsed < 0 {
			return q, "start must be a non-negative integer"
		}
		q.start = parsed
	}

	if length := r.URL.Query().Get("length"); length != "" {
		parsed, err := strconv.Atoi(length)
		if err != nil || parsed < 1 {
			return q, "length must be a positive integer"
		}
		q.length = parsed
	}

	q.search = r.URL.Query().Get("search")
	if len(q.search) > maxSearchLength {
		return q, "search must be at most 255 characters"
	}

	return q, ""
}

// HandleListCoins returns the filtered, sorted, paginated ranked listing.
// Responses are cached for the TTL window keyed by the parameter tuple.
func (h *Handler) HandleListCoins(w http.ResponseWriter, r *http.Request) {
	q, problem := parseListQuery(r)
	if problem != "" {
		h.writeError(w, http.StatusBadRequest, problem)
		return
	}

	key := respcache.ListingKey(q.sort, q.start, q.length, q.search)

	body, err := h.cache.Remember(respcache.TableIndex, key, respcache.TTLResponse, func() ([]byte, error) {
		start := q.start
		result, err := h.repo.List(coins.ListOptions{
			Sort:   q.sort,
			Start:  &start,
			Length: q.length,
			Search: q.search,
		})
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]interface{}{"data": result})
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list coins")
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeRaw(w, http.StatusOK, body)
}

// HandleGetCoin returns a single coin with its metadata and navigation links.
// search and length tune which filtered window the navigation links walk, so
// they participate in the cache key.
func (h *Handler) HandleGetCoin(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	search := r.URL.Query().Get("search")
	if len(search) > maxSearchLength {
		h.writeError(w, http.StatusBadRequest, "search must be at most 255 characters")
		return
	}

	length := defaultLength
	if raw := r.URL.Query().Get("length"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "length must be a positive integer")
			return
		}
		length = parsed
	}

	key := respcache.ShowKey(slug, search, length)

	body, err := h.cache.Remember(respcache.TableShow, key, respcache.TTLResponse, func() ([]byte, error) {
		coin, err := h.repo.GetBySlug(slug)
		if err != nil {
			return nil, err
		}
		if coin == nil {
			return nil, nil
		}

		metadata, err := h.metadataRepo.GetByCoinID(coin.ID)
		if err != nil {
			return nil, err
		}
		coin.Metadata = metadata

		if err := h.navigator.WithNavigation(coin, search, length); err != nil {
			return nil, err
		}

		return json.Marshal(coin)
	})
	if err != nil {
		h.log.Error().Err(err).Str("slug", slug).Msg("Failed to get coin")
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if body == nil {
		h.writeError(w, http.StatusNotFound, "coin not found")
		return
	}

	h.writeRaw(w, http.StatusOK, body)
}

func (h *Handler) writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		h.log.Error().Err(err).Msg("Failed to write response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
