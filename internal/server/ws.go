package server

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ivlev/seqcrop/internal/viewport"
)

// hub keeps the open websocket connections so export progress can be pushed
// to every editor tab.
type hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]*sync.Mutex
}

func newHub() *hub {
	return &hub{conns: make(map[*websocket.Conn]*sync.Mutex)}
}

func (h *hub) add(c *websocket.Conn) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := &sync.Mutex{}
	h.conns[c] = m
	return m
}

func (h *hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

func (h *hub) broadcast(v any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c, m := range h.conns {
		m.Lock()
		_ = c.WriteJSON(v)
		m.Unlock()
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		_ = c.Close()
	}
}

// inputEvent is one pointer or wheel event from the editor canvas, in canvas
// pixels.
type inputEvent struct {
	Type  string  `json:"type"` // press, drag, release, wheel
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	DX    float64 `json:"dx"`
	DY    float64 `json:"dy"`
	Delta float64 `json:"delta"` // wheel: >0 zooms in
}

type message struct {
	Type  string `json:"type"`
	State *State `json:"state,omitempty"`
	Job   *Job   `json:"job,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *Server) handleWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer func() {
		s.hub.remove(conn)
		_ = conn.Close()
	}()
	wmu := s.hub.add(conn)

	for {
		var ev inputEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("websocket read", zap.Error(err))
			}
			return
		}

		reply := s.apply(ev)
		wmu.Lock()
		err := conn.WriteJSON(reply)
		wmu.Unlock()
		if err != nil {
			return
		}
	}
}

func (s *Server) apply(ev inputEvent) message {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := viewport.Pt(ev.X, ev.Y)
	switch ev.Type {
	case "press":
		s.sess.Press(p)
	case "drag":
		s.sess.Drag(p, ev.DX, ev.DY)
	case "release":
		s.sess.Release(p)
	case "wheel":
		switch {
		case ev.Delta > 0:
			s.sess.ZoomIn(p)
		case ev.Delta < 0:
			s.sess.ZoomOut(p)
		}
	default:
		return message{Type: "error", Error: "unknown event " + ev.Type}
	}
	st := s.state()
	return message{Type: "state", State: &st}
}
