package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all coin routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/coins", func(r chi.Router) {
		r.Get("/", h.HandleListCoins)     // Ranked listing with search and pagination
		r.Get("/{slug}", h.HandleGetCoin) // Single coin with metadata and navigation
	})
}
