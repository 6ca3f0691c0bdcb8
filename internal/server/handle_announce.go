package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"github.com/playperu/sprintstory/internal/announce"
)

// Announcer broadcasts an out-of-band message to every connected client.
type Announcer interface {
	Announce(ctx context.Context, message string) (announce.Announcement, int64, error)
}

type AnnounceRequest struct {
	Message string `json:"message"`
}

type AnnounceResponse struct {
	ID        string `json:"id"`
	Receivers int64  `json:"receivers"`
}

func handleAnnounce(logger *slog.Logger, announcer Announcer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if announcer == nil {
			writeDomainError(w, logger, announce.ErrNoTransport)
			return
		}

		var req AnnounceRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			writeError(w, http.StatusBadRequest, "message is required")
			return
		}

		a, n, err := announcer.Announce(r.Context(), req.Message)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		logger.Info("announcement sent", "id", a.ID, "receivers", n)
		writeJSON(w, http.StatusOK, AnnounceResponse{ID: a.ID, Receivers: n})
	}
}

// handleAnnouncementsWS pushes announcements to a WebSocket client until it
// disconnects.
func handleAnnouncementsWS(logger *slog.Logger, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ch := broker.Subscribe(announcementsTopic)
		defer broker.Unsubscribe(announcementsTopic, ch)

		// CloseRead discards client frames and cancels ctx once the peer goes away.
		ctx := conn.CloseRead(r.Context())

		for {
			select {
			case <-ctx.Done():
				logger.Debug("websocket closed", "error", ctx.Err())
				return
			case data := <-ch:
				wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
				err := conn.Write(wctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					logger.Debug("websocket write failed", "error", err)
					return
				}
			}
		}
	}
}
