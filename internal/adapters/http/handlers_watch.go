package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	watchWriteWait  = 5 * time.Second
	watchPongWait   = 60 * time.Second
	watchPingPeriod = watchPongWait * 9 / 10
)

// The default origin check rejects cross-site pages, which is the CSRF
// protection for this GET route.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// handleWatchSession handles GET /api/sessions/{handle}/watch.
// It upgrades to a websocket and pushes the session view on every change.
// PRE: Caller opened the session
// POST: The first frame is the current view; the socket closes with 1000
// when the session is discarded or expires
func handleWatchSession(w http.ResponseWriter, r *http.Request) {
	handle, ls, ok := liveFor(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		slog.Warn("session_watch_upgrade_failed", "handle", handle, "error", err)
		return
	}
	defer conn.Close()

	changes, stop := ls.watch()
	defer stop()

	// Only control frames are expected from the client; the read loop keeps
	// pongs flowing and notices the close.
	gone := make(chan struct{})
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(watchPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(watchPongWait))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func() error {
		conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
		return conn.WriteJSON(sessionResponse{
			Handle:     handle,
			LeaveGuard: ls.leaveGuard.Load(),
			View:       ls.ctrl.View(),
		})
	}
	if err := send(); err != nil {
		return
	}
	slog.Info("session_watch_started", "handle", handle)
	defer slog.Info("session_watch_ended", "handle", handle)

	ping := time.NewTicker(watchPingPeriod)
	defer ping.Stop()
	for {
		select {
		case _, open := <-changes:
			if !open {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed")
				conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(watchWriteWait))
				return
			}
			if err := send(); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(watchWriteWait)); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}
