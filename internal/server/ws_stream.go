package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/roi-tracker/internal/dashboard"
	"github.com/aristath/roi-tracker/internal/events"
	"github.com/aristath/roi-tracker/internal/modules/charts"
)

const wsWriteTimeout = 5 * time.Second

// WSHandler pushes the dashboard view over a WebSocket whenever the snapshot changes
type WSHandler struct {
	store *dashboard.Store
	bus   *events.Bus
	log   zerolog.Logger
}

// NewWSHandler creates a new WebSocket handler
func NewWSHandler(store *dashboard.Store, bus *events.Bus, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		store: store,
		bus:   bus,
		log:   log.With().Str("component", "ws_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/ws
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket handshake failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	// Clients only listen; CloseRead handles control frames and ends ctx on close
	ctx := conn.CloseRead(r.Context())

	// Updates are coalesced: only the latest snapshot matters
	changed := make(chan struct{}, 1)
	unsubscribe := h.bus.Subscribe(events.SnapshotUpdated, func(*events.Event) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	h.log.Debug().Msg("WebSocket client connected")

	var sent uint64
	first := true
	for {
		snap := h.store.Current()
		if first || snap.Version != sent {
			if err := h.write(ctx, conn, snap); err != nil {
				h.log.Debug().Err(err).Msg("WebSocket client gone")
				return
			}
			sent = snap.Version
			first = false
		}

		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-changed:
		}
	}
}

func (h *WSHandler) write(ctx context.Context, conn *websocket.Conn, snap *dashboard.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, charts.BuildView(snap))
}
