package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Browser clients connect from a different origin than the API.
	CheckOrigin: func(*http.Request) bool { return true },
}

const streamWriteTimeout = 5 * time.Second

// stream pushes the full catalog view to the client after every applied
// refresh. The first message is the current catalog, if one exists.
func (h *handler) stream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	updates, release := h.app.Catalog.Watch()
	defer release()

	if snap, err := h.app.Catalog.Snapshot(r.Context()); err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteJSON(snap.Items); err != nil {
			return
		}
	}

	// Reads are discarded; they only surface client disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case items, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(items); err != nil {
				return
			}
		}
	}
}
