package moodsense

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// StateMessage is one frame on the /ws feed. While the pipeline runs, every
// published revision is sent with Status "ok". When the pipeline stops, a
// final message carries Status "stopped" and, if the stop was caused by a
// failure, the error text.
type StateMessage struct {
	Status string        `json:"status"`
	State  *EmotionState `json:"state,omitempty"`
	Error  string        `json:"error,omitempty"`
}

type wsConn struct {
	conn *websocket.Conn
	log  *log.Logger
	wg   sync.WaitGroup
}

// handleWebSocket upgrades the connection and streams published states until
// either side goes away. The client is a pure subscriber; anything it writes
// besides control frames is discarded.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 8192,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	states, unsubscribe := s.pipeline.Subscribe()
	defer unsubscribe()

	wc := &wsConn{conn: conn, log: s.log}
	wc.run(s.pipeline, states, unsubscribe)
}

func (wc *wsConn) run(p *Pipeline, states <-chan EmotionState, unsubscribe func()) {
	// Reader exists only to detect the client going away.
	wc.wg.Add(1)
	go func() {
		defer wc.wg.Done()
		for {
			if _, _, err := wc.conn.ReadMessage(); err != nil {
				unsubscribe()
				return
			}
		}
	}()

	wc.writer(p, states)
	// Closing the connection unblocks the reader even when the client never
	// answers the close frame.
	wc.conn.Close()
	wc.wg.Wait()
}

func (wc *wsConn) writer(p *Pipeline, states <-chan EmotionState) {
	// Late joiners get the current snapshot immediately.
	var lastRev uint64
	if current := p.State(); current != nil {
		if err := wc.conn.WriteJSON(StateMessage{Status: "ok", State: current}); err != nil {
			return
		}
		lastRev = current.Revision
	}

	for state := range states {
		// The snapshot may also sit in the subscription buffer; keep the
		// feed strictly monotonic by revision.
		if state.Revision <= lastRev {
			continue
		}
		lastRev = state.Revision
		snapshot := state
		if err := wc.conn.WriteJSON(StateMessage{Status: "ok", State: &snapshot}); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				wc.log.Printf("WebSocket write error: %v", err)
			}
			return
		}
	}

	// Channel closed: the pipeline stopped. Surface the terminal status.
	final := StateMessage{Status: "stopped"}
	if err := p.Err(); err != nil {
		final.Error = err.Error()
	}
	if err := wc.conn.WriteJSON(final); err == nil {
		wc.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
}
