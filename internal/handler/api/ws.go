package api

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/bournewang/ai-hedge-fund/internal/middleware"
	"github.com/bournewang/ai-hedge-fund/internal/service/push"
	xlogger "github.com/bournewang/ai-hedge-fund/pkg/logger"
)

// WSHandler upgrades clients onto the push hub so they receive throttled
// run updates without polling.
type WSHandler struct {
	logger   *xlogger.Logger
	hub      *push.Hub
	source   middleware.SnapshotSource
	upgrader websocket.Upgrader
}

func NewWSHandler(logger *xlogger.Logger, hub *push.Hub, source middleware.SnapshotSource) *WSHandler {
	return &WSHandler{
		logger: logger,
		hub:    hub,
		source: source,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *WSHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/ws", h.Serve)
}

// Serve upgrades the connection and starts its pumps. The current snapshot
// is pushed immediately so new clients render without waiting for the next
// state change.
func (h *WSHandler) Serve(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return err
	}

	conn := h.hub.NewConnection(ws)
	h.hub.Register(conn)

	go conn.WritePump()
	go conn.ReadPump()

	if h.source != nil {
		update := middleware.RunUpdate{
			Type:     "run_update",
			Status:   h.source.Status(),
			Progress: h.source.Progress(),
		}
		if err := h.hub.PushJSON(conn, update); err != nil {
			h.logger.Warn("initial snapshot push failed", xlogger.String("conn", conn.ID), xlogger.Error(err))
		}
	}

	return nil
}
