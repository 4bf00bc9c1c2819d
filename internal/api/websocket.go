package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AaronLay10/StoryLoom/internal/events"
)

const (
	// Number of recent events to send on connection
	recentEventsCount = 50

	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS layer and basic auth.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsEvents streams recent events, then live events, to one client. The
// query filters both the same way as /api/events.
func (s *Server) wsEvents(w http.ResponseWriter, r *http.Request) {
	filter := s.eventFilter(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	sub := events.Subscribe(filter)
	closeAll := func() {
		if n := sub.Dropped(); n > 0 {
			s.log.Debug("ws subscriber fell behind", zap.Uint64("dropped", n))
		}
		events.Unsubscribe(sub)
		conn.Close()
	}

	write := func(e events.Event) bool {
		data, err := json.Marshal(e)
		if err != nil {
			return true
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.log.Debug("ws write failed", zap.Error(err))
			return false
		}
		return true
	}

	for _, e := range events.Recent(filter, recentEventsCount) {
		if !write(e) {
			closeAll()
			return
		}
	}

	// Reader: pongs and close frames.
	done := make(chan struct{})
	go func() {
		defer close(done)
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
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			closeAll()
			return

		case e, ok := <-sub.C:
			if !ok {
				conn.Close()
				return
			}
			if !write(e) {
				closeAll()
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				closeAll()
				return
			}
		}
	}
}
