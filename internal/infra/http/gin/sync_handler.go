package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"staysync/internal/realtime"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// SyncHandler bridges websocket connections onto the realtime hub. Each
// connection becomes one hub session scoped by the forwarded identity; the
// optional "types" query narrows the subscription to specific event names.
type SyncHandler struct {
	Hub    *realtime.Hub
	Logger *slog.Logger

	upgrader websocket.Upgrader
}

func NewSyncHandler(hub *realtime.Hub, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{
		Hub:    hub,
		Logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Origin filtering happens at the gateway, same as identity.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *SyncHandler) Connect(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Debug("websocket upgrade failed", "error", err)
		}
		return
	}

	sub := h.Hub.Subscribe(realtime.SessionInfo{
		Identity:        p.ID,
		Role:            p.Role,
		OwnedProperties: p.OwnedProperties,
	}, c.QueryArray("types")...)

	go h.writePump(conn, sub)
	go h.readPump(conn, sub)
}

// writePump drains the subscription into the socket. The hub already dropped
// anything this session was too slow for, so writes never block on the hub.
func (h *SyncHandler) writePump(conn *websocket.Conn, sub *realtime.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case ev, open := <-sub.Events():
			if !open {
				_ = conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				sub.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				sub.Close()
				return
			}
		}
	}
}

// readPump exists to observe pongs and the peer closing the connection.
func (h *SyncHandler) readPump(conn *websocket.Conn, sub *realtime.Subscription) {
	defer sub.Close()
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
