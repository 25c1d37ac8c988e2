package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"prodflow/collab-gateway/internal/collab"
	"prodflow/collab-gateway/utils"
)

// RequireWebsocketUpgrade rejects plain HTTP requests on the socket
// route before fiber attempts the upgrade.
func RequireWebsocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return utils.RespondWithError(c, fiber.StatusUpgradeRequired, "Websocket upgrade required")
	}
	return c.Next()
}

// SessionSocket upgrades the connection and hands it to the
// collaboration hub for the session named in the route.
func (h *ApplicationHandler) SessionSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		sessionID := conn.Params("sessionId")
		collab.ServeConn(h.Hub, sessionID, conn, h.Logger)
	})
}

// ListSessions reports the session ids with at least one connected
// participant.
func (h *ApplicationHandler) ListSessions(c *fiber.Ctx) error {
	return utils.RespondWithJSON(c, fiber.StatusOK, h.Hub.ActiveSessions())
}
