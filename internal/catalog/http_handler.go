package catalog

import (
	"net/http"
	"strconv"
	"strings"

	"bookcrew/internal/httpx"
	"bookcrew/internal/platform/googlebooks"
)

const (
	maxUpcomingLimit = 40
	maxRailPageLimit = 80
)

type HTTPHandler struct {
	svc *Service
}

func NewHTTPHandler(svc *Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

func intParam(r *http.Request, name string, def, lo, hi int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return min(max(v, lo), hi)
}

func oneOf(v, def string, allowed ...string) string {
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return def
}

// Search handles GET /v1/catalog/search
// @Summary Search the book catalog
// @Tags catalog
// @Produce json
// @Param q query string true "Search query"
// @Param max_results query int false "Maximum results" default(16)
// @Param lang query string false "Language code or all"
// @Param sort query string false "relevance or newest"
// @Param format query string false "all, books or ebooks"
// @Param availability query string false "all, free, preview or paid"
// @Success 200 {object} httpx.SuccessResponse
// @Router /v1/catalog/search [get]
func (h *HTTPHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := strings.TrimSpace(query.Get("q"))
	maxResults := intParam(r, "max_results", DefaultSearchResults, 1, googlebooks.MaxResultsLimit)

	opts := SearchOptions{
		Lang:         query.Get("lang"),
		Sort:         oneOf(query.Get("sort"), SortRelevance, SortRelevance, SortNewest),
		Format:       oneOf(query.Get("format"), FormatBooks, FormatAll, FormatBooks, FormatEbooks),
		Availability: oneOf(query.Get("availability"), AvailabilityAll, AvailabilityAll, AvailabilityFree, AvailabilityPreview, AvailabilityPaid),
	}

	books := h.svc.Search(r.Context(), q, maxResults, opts)
	httpx.JSONSuccess(w, r, books, map[string]interface{}{
		"query": q,
		"count": len(books),
	})
}

// Featured handles GET /v1/catalog/featured
// @Summary Featured books for the home page
// @Tags catalog
// @Produce json
// @Success 200 {object} httpx.SuccessResponse
// @Router /v1/catalog/featured [get]
func (h *HTTPHandler) Featured(w http.ResponseWriter, r *http.Request) {
	httpx.JSONSuccess(w, r, h.svc.Featured(r.Context()), nil)
}

// Upcoming handles GET /v1/catalog/upcoming
// @Summary Books with a release date in the future
// @Tags catalog
// @Produce json
// @Param limit query int false "Maximum results" default(8)
// @Success 200 {object} httpx.SuccessResponse
// @Router /v1/catalog/upcoming [get]
func (h *HTTPHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r, "limit", DefaultUpcomingLimit, 1, maxUpcomingLimit)
	httpx.JSONSuccess(w, r, h.svc.UpcomingReleases(r.Context(), limit), nil)
}

// Rails handles GET /v1/catalog/rails
// @Summary Explore rails with their books
// @Tags catalog
// @Produce json
// @Success 200 {object} httpx.SuccessResponse
// @Router /v1/catalog/rails [get]
func (h *HTTPHandler) Rails(w http.ResponseWriter, r *http.Request) {
	httpx.JSONSuccess(w, r, h.svc.ExploreRails(r.Context()), nil)
}

// RailByID handles GET /v1/catalog/rails/{id}
// @Summary One explore rail with a deeper page of books
// @Tags catalog
// @Produce json
// @Param id path string true "Rail ID"
// @Param limit query int false "Maximum books" default(28)
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /v1/catalog/rails/{id} [get]
func (h *HTTPHandler) RailByID(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r, "limit", DefaultRailPageLimit, 1, maxRailPageLimit)

	rail, ok := h.svc.ExploreRailByID(r.Context(), r.PathValue("id"), limit)
	if !ok {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Rail not found", nil)
		return
	}
	httpx.JSONSuccess(w, r, rail, nil)
}

// BookByID handles GET /v1/catalog/books/{id}
// @Summary Book detail by catalog ID
// @Tags catalog
// @Produce json
// @Param id path string true "Catalog volume ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /v1/catalog/books/{id} [get]
func (h *HTTPHandler) BookByID(w http.ResponseWriter, r *http.Request) {
	book, ok := h.svc.BookByID(r.Context(), r.PathValue("id"))
	if !ok {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
		return
	}
	httpx.JSONSuccess(w, r, book, nil)
}

// Register mounts the catalog routes on mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/catalog/search", h.Search)
	mux.HandleFunc("GET /v1/catalog/featured", h.Featured)
	mux.HandleFunc("GET /v1/catalog/upcoming", h.Upcoming)
	mux.HandleFunc("GET /v1/catalog/rails", h.Rails)
	mux.HandleFunc("GET /v1/catalog/rails/{id}", h.RailByID)
	mux.HandleFunc("GET /v1/catalog/books/{id}", h.BookByID)
}
