package notify

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type WebsocketServer struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWebsocketServer(hub *Hub, allowedOrigin string) *WebsocketServer {
	return &WebsocketServer{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "" || origin == allowedOrigin
			},
		},
	}
}

// Serve upgrades the request and streams the user's notifications until the
// client disconnects. Inbound frames are only read to observe pongs and close.
func (s *WebsocketServer) Serve(w http.ResponseWriter, r *http.Request, userID int64) {
	logger := s.hub.logger.With("component", "websocket", "user_id", userID, "remote_addr", r.RemoteAddr)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Failed to upgrade websocket connection", "error", err)
		return
	}

	sub := s.hub.Subscribe(userID)
	logger.Info("Websocket client connected", "subscription_id", sub.ID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.hub.Unsubscribe(sub)
		if err := conn.Close(); err != nil {
			logger.Debug("Failed to close websocket", "error", err)
		}
		logger.Info("Websocket client disconnected", "subscription_id", sub.ID)
	}()

	for {
		select {
		case msg, ok := <-sub.Messages:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug("Failed to write websocket message", "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
