package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  4096,
}

// handleSubscribe handles GET /api/v1/subscribe?message_id=<id>&since=<seq>.
// It upgrades to a websocket and streams transition events. since is the
// last sequence number the client has seen; replay starts after it, so a
// client that was dropped for lagging reconnects with its cursor and misses
// nothing. Delivery is at-least-once: a reconnecting client may see a
// transition twice, never a gap.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	messageID := r.URL.Query().Get("message_id")

	var since uint64
	if raw := r.URL.Query().Get("since"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be a non-negative integer")
			return
		}
		since = n
	}

	sub, err := s.hub.Subscribe(messageID, since)
	if err != nil {
		s.logger.Error().Err(err).Str("message_id", messageID).Msg("subscribe failed")
		writeError(w, http.StatusInternalServerError, "subscribe failed")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Close()
		s.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	defer sub.Close()

	// Reader goroutine: we never expect client frames, but reading is what
	// surfaces close frames and connection loss.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pinger := time.NewTicker(wsPingInterval)
	defer pinger.Stop()

	for {
		select {
		case tr, ok := <-sub.C:
			if !ok {
				// Hub closed the feed. If we lagged, tell the client to
				// reconnect with its cursor before dropping the connection.
				code := websocket.CloseNormalClosure
				text := ""
				if sub.Lagged() {
					code = websocket.CloseTryAgainLater
					text = "subscriber lagged, reconnect with since=<last seq>"
				}
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, text))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			event := TransitionEvent{
				Seq:       tr.Seq,
				MessageID: tr.MessageID,
				OldStatus: tr.OldStatus,
				NewStatus: tr.NewStatus,
				Timestamp: tr.Timestamp,
			}
			if err := conn.WriteJSON(event); err != nil {
				s.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}

		case <-pinger.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-clientGone:
			return

		case <-r.Context().Done():
			return
		}
	}
}
