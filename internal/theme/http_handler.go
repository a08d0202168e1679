package theme

import (
	"net/http"

	"bookcrew/internal/httpx"
)

type HTTPHandler struct{}

func NewHTTPHandler() *HTTPHandler {
	return &HTTPHandler{}
}

// List handles GET /v1/themes
// @Summary List themes
// @Description Get every palette a profile can select
// @Tags themes
// @Produce json
// @Success 200 {object} httpx.SuccessResponse
// @Router /v1/themes [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	httpx.JSONSuccess(w, r, All(), map[string]interface{}{"default": Default})
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/themes", h.List)
}
