package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"github.com/odvcencio/panelsync/pkg/host"
)

const (
	wsPingInterval = 20 * time.Second
	wsPingTimeout  = 5 * time.Second
	wsWriteTimeout = 15 * time.Second
	wsReadLimit    = 4 << 10
)

// handleEvents streams hub events as JSON text messages. ?panel= limits
// the stream to one panel id.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusServiceUnavailable, nil)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn("events websocket accept failed", "error", err)
		return
	}
	conn.SetReadLimit(wsReadLimit)

	clientID := uuid.NewString()
	panelID := r.URL.Query().Get("panel")
	logger := s.logger.With("client_id", clientID)
	logger.Debug("events client connected", "panel_id", panelID)

	events, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	startWSPing(ctx, conn)

	// Reads only detect the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	if err := writeEvents(ctx, conn, events, panelID); err != nil {
		logger.Debug("events client gone", "error", err)
	}
	_ = conn.Close(websocket.StatusNormalClosure, "shutdown")
}

type wsWriter interface {
	Write(ctx context.Context, msgType websocket.MessageType, data []byte) error
}

func writeEvents(ctx context.Context, conn wsWriter, events <-chan host.Event, panelID string) error {
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if panelID != "" && event.PanelID != panelID {
				continue
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func startWSPing(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pingCtx, cancel := context.WithTimeout(ctx, wsPingTimeout)
				_ = conn.Ping(pingCtx)
				cancel()
			}
		}
	}()
}
