package library

import (
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"bookcrew/internal/httpx"
	"bookcrew/internal/platform/docstore"
	"bookcrew/internal/profile"
)

const (
	pingPeriod     = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 4 * 1024
)

type HTTPHandler struct {
	service  *Service
	upgrader websocket.Upgrader
}

// NewHTTPHandler builds the handler. Stream connections are accepted from
// allowedOrigins, or from any origin when the list is empty or holds "*".
func NewHTTPHandler(service *Service, allowedOrigins []string) *HTTPHandler {
	anyOrigin := len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*")
	return &HTTPHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return anyOrigin || origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// Snapshot handles GET /v1/me/library
// @Summary Get library snapshot
// @Description Profile, the five status shelves and favorites of the authenticated reader
// @Tags library
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /v1/me/library [get]
func (h *HTTPHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.Load(r.Context(), httpx.UserIDFrom(r))
	if err != nil {
		if errors.Is(err, docstore.ErrPermissionDenied) {
			httpx.JSONError(w, r, http.StatusForbidden, "PERMISSION_DENIED", "Access rules blocked library reads.", nil)
			return
		}
		h.service.logger.Error("load library", "error", err)
		httpx.JSONError(w, r, http.StatusServiceUnavailable, "UNAVAILABLE", "Could not load your library right now.", nil)
		return
	}
	httpx.JSONSuccess(w, r, state, nil)
}

// Stream handles GET /v1/me/library/stream
// @Summary Stream library changes
// @Description Upgrades to a websocket and pushes the full library state on every change
// @Tags library
// @Security Bearer
// @Router /v1/me/library/stream [get]
func (h *HTTPHandler) Stream(w http.ResponseWriter, r *http.Request) {
	uid := httpx.UserIDFrom(r)
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	view := h.service.NewView()
	defer view.Close()
	ctx := r.Context()
	if err := view.SetIdentity(ctx, &profile.Identity{UID: uid}); err != nil {
		h.service.logger.Error("open library stream", "user_id", uid, "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "library unavailable"),
			time.Now().Add(writeWait))
		return
	}

	gone := make(chan struct{})
	go readPump(conn, gone)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-gone:
			return
		case <-ctx.Done():
			return
		case state, ok := <-view.Updates():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(state); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages and closes gone when the peer leaves.
func readPump(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *HTTPHandler) Register(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	mux.Handle("GET /v1/me/library", auth(http.HandlerFunc(h.Snapshot)))
	mux.Handle("GET /v1/me/library/stream", auth(http.HandlerFunc(h.Stream)))
}
