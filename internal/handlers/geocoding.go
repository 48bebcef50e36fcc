package handlers

import (
	"log"
	"net/http"

	"rider-router/internal/geocoding"
)

const (
	minSearchLength = 4
	searchLimit     = 5
)

// HandleAddressSearch handles GET /api/v1/address-search
func (h *Handler) HandleAddressSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("address")
	log.Printf("[HTTP] GET /api/v1/address-search: query=%s", query)

	searcher, ok := h.Geocoder.(geocoding.Searcher)
	if !ok || len(query) < minSearchLength {
		h.writeJSON(w, http.StatusOK, []geocoding.GeocodingResult{})
		return
	}

	results, err := searcher.Search(r.Context(), query, searchLimit)
	if err != nil {
		log.Printf("[ERROR] Failed to search addresses: query=%s err=%v", query, err)
		h.writeJSON(w, http.StatusOK, []geocoding.GeocodingResult{})
		return
	}
	if results == nil {
		results = []geocoding.GeocodingResult{}
	}

	log.Printf("[HTTP] GET /api/v1/address-search: query=%s results_count=%d", query, len(results))
	h.writeJSON(w, http.StatusOK, results)
}
