package profile

import (
	"errors"
	"net/http"

	"bookcrew/internal/httpx"
	"bookcrew/internal/platform/docstore"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// GetOwnProfile handles GET /v1/me/profile
// @Summary Get own profile
// @Description Get the authenticated reader's profile document
// @Tags profiles
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /v1/me/profile [get]
func (h *HTTPHandler) GetOwnProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), httpx.UserIDFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, p, nil)
}

// UpdateProfile handles PATCH /v1/me/profile
// @Summary Update own profile
// @Description Partially update display name, bio, images, reading goal or theme
// @Tags profiles
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body UpdateCommand true "Fields to change"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /v1/me/profile [patch]
func (h *HTTPHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var cmd UpdateCommand
	if !httpx.BindJSON(w, r, &cmd) {
		return
	}

	p, err := h.service.Update(r.Context(), httpx.UserIDFrom(r), cmd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, p, map[string]interface{}{"message": "Profile updated."})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Profile not found", nil)
	case errors.Is(err, ErrEmptyUpdate), errors.Is(err, ErrInvalidImage),
		errors.Is(err, ErrImageTooLarge), errors.Is(err, ErrUnknownTheme):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, docstore.ErrPermissionDenied):
		httpx.JSONError(w, r, http.StatusForbidden, "PERMISSION_DENIED", "Access rules blocked profile access.", nil)
	default:
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Could not save profile right now.", nil)
	}
}

func (h *HTTPHandler) Register(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	mux.Handle("GET /v1/me/profile", auth(http.HandlerFunc(h.GetOwnProfile)))
	mux.Handle("PATCH /v1/me/profile", auth(http.HandlerFunc(h.UpdateProfile)))
}
