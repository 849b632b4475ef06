package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/talgya/actorcore/internal/engine"
	"github.com/talgya/actorcore/internal/tile"
)

const (
	maxStreamConns = 16
	writeWait      = 2 * time.Second
	sendBuffer     = 8
)

// Frame is one tick of the websocket stream.
type Frame struct {
	Type   string       `json:"type"`
	Tick   uint64       `json:"tick"`
	Actors []ActorFrame `json:"actors"`
}

// ActorFrame is an actor's visible state within a Frame.
type ActorFrame struct {
	ID       uint16     `json:"id"`
	Location tile.Point `json:"location"`
	Facing   uint8      `json:"facing"`
	Vitality int16      `json:"vitality"`
	Dead     bool       `json:"dead,omitempty"`
	Motion   string     `json:"motion,omitempty"`
}

// BuildFrame captures the actors of sim for the stream.
func BuildFrame(sim *engine.Simulation) Frame {
	var f Frame
	sim.View(func(s *engine.Simulation) {
		f = Frame{Type: "tick", Tick: s.LastTick}
		for _, a := range s.Objects.Actors() {
			if !a.InWorld() {
				continue
			}
			af := ActorFrame{
				ID:       uint16(a.ID),
				Location: a.Location,
				Facing:   uint8(a.Facing),
				Vitality: a.Vitality,
				Dead:     a.Dead,
			}
			if mt := s.Motion.For(a.ID); mt != nil {
				af.Motion = mt.Type.String()
			}
			f.Actors = append(f.Actors, af)
		}
	})
	return f
}

type session struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans tick frames out to websocket sessions. A session that falls
// behind drops frames rather than stalling the tick loop.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*session
	upgrader websocket.Upgrader
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]*session),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Len returns the number of connected sessions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Broadcast queues f for every session.
func (h *Hub) Broadcast(f Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.sessions) == 0 {
		return
	}
	data, err := json.Marshal(f)
	if err != nil {
		slog.Warn("stream frame not encoded", "tick", f.Tick, "error", err)
		return
	}
	for _, s := range h.sessions {
		select {
		case s.send <- data:
		default:
			slog.Debug("stream frame dropped", "session", s.id, "tick", f.Tick)
		}
	}
}

// Close disconnects every session.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, s := range h.sessions {
		close(s.send)
		delete(h.sessions, id)
	}
}

func (h *Hub) add(conn *websocket.Conn) (*session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.sessions) >= maxStreamConns {
		return nil, false
	}
	s := &session{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}
	h.sessions[s.id] = s
	return s, true
}

func (h *Hub) remove(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[s.id] == s {
		delete(h.sessions, s.id)
		close(s.send)
	}
}

// serve upgrades the request and streams frames until either side
// closes. first is sent before any broadcast frame.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request, first Frame) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	s, ok := h.add(conn)
	if !ok {
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many streams")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		conn.Close()
		return
	}
	slog.Info("stream client connected", "session", s.id, "remote", r.RemoteAddr)

	hello, _ := json.Marshal(struct {
		Type    string `json:"type"`
		Session string `json:"session"`
		Frame
	}{"hello", s.id, first})
	s.send <- hello

	// Reader: only watches for the client going away.
	go func() {
		defer h.remove(s)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer conn.Close()
	for data := range s.send {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(s)
			break
		}
	}
	slog.Info("stream client disconnected", "session", s.id)
}
