package handlers

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	streamBuffer = 100
	writeWait    = 5 * time.Second
	pingInterval = 30 * time.Second
)

// HandleProgressStream handles GET /api/runs/progress. It upgrades to a
// websocket and forwards every search event until the client goes away.
func (h *Handler) HandleProgressStream(w http.ResponseWriter, r *http.Request) {
	// Subscribe before the upgrade completes so no event after the handshake is lost
	events, unsubscribe := h.service.Subscribe(streamBuffer)
	defer unsubscribe()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // origins are governed by the CORS policy
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to accept progress stream")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	h.log.Info().Msg("Client connected to progress stream")

	// Clients never send; CloseRead handles control frames and reports disconnects
	ctx := conn.CloseRead(r.Context())

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from progress stream")
			return

		case event, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := wsjson.Write(writeCtx, conn, event)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("Progress stream write failed")
				return
			}

		case <-ping.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("Progress stream ping failed")
				return
			}
		}
	}
}
