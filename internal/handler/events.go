package handler

import (
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/spot-saver/internal/app"
	"github.com/iliyamo/spot-saver/internal/middleware"
)

// EventsHandler upgrades to a WebSocket that receives the client's auth
// state, notices and navigations as they happen.
type EventsHandler struct {
	Hub            *app.Hub
	AllowedOrigins []string

	upgrader websocket.Upgrader
}

func NewEventsHandler(hub *app.Hub, allowedOrigins []string) *EventsHandler {
	h := &EventsHandler{Hub: hub, AllowedOrigins: allowedOrigins}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin accepts same-host pages, listed origins and non-browser
// callers without an Origin header.
func (h *EventsHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

// Stream: GET /v1/events
func (h *EventsHandler) Stream(c echo.Context) error {
	cl := middleware.CurrentClient(c)
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the error response.
		c.Logger().Warnf("websocket upgrade: %v", err)
		return nil
	}
	h.Hub.Register(cl.ID, conn)
	defer h.Hub.Unregister(cl.ID, conn)

	h.Hub.Send(cl.ID, app.Message{Type: "auth_state", Data: cl.Auth.State()})

	// Inbound frames are ignored; reading processes control frames and
	// detects the disconnect.
	conn.SetReadLimit(512)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Logger().Infof("websocket client %s: %v", cl.ID, err)
			}
			return nil
		}
	}
}
