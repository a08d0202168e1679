package shelf

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

type statusRequest struct {
	Book   BookRef `json:"book"`
	Status string  `json:"status" validate:"required,oneof=want reading read dropped paused"`
}

type bookRequest struct {
	Book BookRef `json:"book"`
}

// Selection handles POST /v1/me/shelf/selection
// @Summary Get a book's shelf selection
// @Description Report which shelf holds the book and whether it is a favorite
// @Tags shelves
// @Accept json
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /v1/me/shelf/selection [post]
func (h *HTTPHandler) Selection(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !httpx.BindJSON(w, r, &req) {
		return
	}

	sel, err := h.service.Selection(r.Context(), httpx.UserIDFrom(r), req.Book)
	if err != nil {
		writeFailure(w, r, Outcome{Notice: NoticeFor(err)}, err)
		return
	}
	httpx.JSONSuccess(w, r, sel, nil)
}

// SetStatus handles PUT /v1/me/shelf/status
// @Summary Set reading status
// @Description Place the book on exactly one shelf
// @Tags shelves
// @Accept json
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Router /v1/me/shelf/status [put]
func (h *HTTPHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !httpx.BindJSON(w, r, &req) {
		return
	}
	status, err := ParseStatus(req.Status)
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	out, err := h.service.SetStatus(r.Context(), httpx.UserIDFrom(r), req.Book, status)
	if err != nil {
		writeFailure(w, r, out, err)
		return
	}
	httpx.JSONSuccess(w, r, out, nil)
}

// ClearStatus handles DELETE /v1/me/shelf/status
// @Summary Clear reading status
// @Tags shelves
// @Accept json
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Router /v1/me/shelf/status [delete]
func (h *HTTPHandler) ClearStatus(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !httpx.BindJSON(w, r, &req) {
		return
	}

	out, err := h.service.ClearStatus(r.Context(), httpx.UserIDFrom(r), req.Book)
	if err != nil {
		writeFailure(w, r, out, err)
		return
	}
	httpx.JSONSuccess(w, r, out, nil)
}

// ToggleFavorite handles POST /v1/me/favorites/toggle
// @Summary Toggle favorite
// @Tags shelves
// @Accept json
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Router /v1/me/favorites/toggle [post]
func (h *HTTPHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !httpx.BindJSON(w, r, &req) {
		return
	}

	out, err := h.service.ToggleFavorite(r.Context(), httpx.UserIDFrom(r), req.Book)
	if err != nil {
		writeFailure(w, r, out, err)
		return
	}
	httpx.JSONSuccess(w, r, out, nil)
}

func writeFailure(w http.ResponseWriter, r *http.Request, out Outcome, err error) {
	switch {
	case errors.Is(err, docstore.ErrPermissionDenied):
		httpx.JSONError(w, r, http.StatusForbidden, "PERMISSION_DENIED", out.Notice.Message, nil)
	case errors.Is(err, ErrUnknownStatus), errors.Is(err, ErrInvalidBook):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	default:
		httpx.JSONError(w, r, http.StatusServiceUnavailable, "UNAVAILABLE", out.Notice.Message, nil)
	}
}

// Register mounts the routes on mux behind the given auth middleware.
func (h *HTTPHandler) Register(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	mux.Handle("POST /v1/me/shelf/selection", auth(http.HandlerFunc(h.Selection)))
	mux.Handle("PUT /v1/me/shelf/status", auth(http.HandlerFunc(h.SetStatus)))
	mux.Handle("DELETE /v1/me/shelf/status", auth(http.HandlerFunc(h.ClearStatus)))
	mux.Handle("POST /v1/me/favorites/toggle", auth(http.HandlerFunc(h.ToggleFavorite)))
}
