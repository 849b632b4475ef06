// Package api provides the HTTP API for observing the simulation.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/engine"
	"github.com/talgya/actorcore/internal/motion"
	"github.com/talgya/actorcore/internal/persistence"
	"github.com/talgya/actorcore/internal/rules"
	"github.com/talgya/actorcore/internal/script"
	"github.com/talgya/actorcore/internal/task"
	"github.com/talgya/actorcore/internal/tile"
)

// Server serves the simulation state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB // Optional; save endpoints answer 503 without it
	Hub      *Hub
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	srv *http.Server
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	if s.Hub == nil {
		s.Hub = NewHub()
	}
	streamLimiter := NewRateLimiter(10, time.Minute)
	saveLimiter := NewRateLimiter(6, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/actors", s.handleActors)
	mux.HandleFunc("GET /api/v1/actor/{id}", s.handleActorDetail)
	mux.HandleFunc("GET /api/v1/motions", s.handleMotions)
	mux.HandleFunc("GET /api/v1/stacks", s.handleStacks)
	mux.HandleFunc("GET /api/v1/threads", s.handleThreads)
	mux.HandleFunc("GET /api/v1/aggressions", s.handleAggressions)
	mux.HandleFunc("GET /api/v1/saves", s.handleSaves)
	mux.HandleFunc("GET /api/v1/speed", s.handleSpeed)
	mux.HandleFunc("GET /api/v1/ws", RateLimitMiddleware(streamLimiter, s.handleStream))

	// Admin endpoints.
	mux.HandleFunc("POST /api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("POST /api/v1/snapshot", s.adminOnly(RateLimitMiddleware(saveLimiter, s.handleSnapshot)))

	return mux
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.srv = &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown closes the streams and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.Hub != nil {
		s.Hub.Close()
	}
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Broadcast sends the current tick to every stream client.
func (s *Server) Broadcast() {
	if s.Hub != nil && s.Hub.Len() > 0 {
		s.Hub.Broadcast(BuildFrame(s.Sim))
	}
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && token == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no ACTORSIM_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":    "actorsim",
		"streams": s.Hub.Len(),
	}
	if s.Eng != nil {
		status["speed"] = s.Eng.Speed()
		status["running"] = s.Eng.Running()
	}
	s.Sim.View(func(sim *engine.Simulation) {
		alive := 0
		actors := sim.Objects.Actors()
		for _, a := range actors {
			if !a.Dead {
				alive++
			}
		}
		status["tick"] = sim.LastTick
		status["objects"] = sim.Objects.Len()
		status["actors"] = len(actors)
		status["alive"] = alive
		status["motions"] = sim.Motion.Len()
		status["stacks"] = sim.Stacks.Len()
		status["tasks"] = sim.Stacks.Tasks().Len()
		status["threads"] = len(sim.Scripts.Threads())
		status["pending_paths"] = sim.Paths.Pending()
		status["aggressions"] = sim.Rules.Log.Total()
		status["stats"] = sim.Stats
	})
	if s.DB != nil {
		if tick, ok := s.DB.LastTick(); ok {
			status["last_save_tick"] = tick
		}
	}
	writeJSON(w, status)
}

type actorSummary struct {
	ID          agents.ObjectID `json:"id"`
	Name        string          `json:"name"`
	Location    tile.Point      `json:"location"`
	Disposition string          `json:"disposition"`
	Vitality    int16           `json:"vitality"`
	MaxVitality int16           `json:"max_vitality"`
	Dead        bool            `json:"dead"`
	Leader      agents.ObjectID `json:"leader,omitempty"`
	Followers   int             `json:"followers,omitempty"`
	Motion      string          `json:"motion,omitempty"`
	Plan        string          `json:"plan,omitempty"`
}

func summarize(sim *engine.Simulation, a *agents.Actor) actorSummary {
	out := actorSummary{
		ID:          a.ID,
		Name:        a.Name,
		Location:    a.Location,
		Disposition: "friendly",
		Vitality:    a.Vitality,
		MaxVitality: a.MaxVitality,
		Dead:        a.Dead,
		Leader:      a.Leader,
	}
	if a.Disposition == agents.Enemy {
		out.Disposition = "enemy"
	}
	if a.Followers != nil {
		out.Followers = a.Followers.Size()
	}
	if mt := sim.Motion.For(a.ID); mt != nil {
		out.Motion = mt.Type.String()
	}
	if st := sim.Stacks.For(a.ID); st != nil && st.Root() != nil {
		out.Plan = st.Root().Kind().String()
	}
	return out
}

func (s *Server) handleActors(w http.ResponseWriter, r *http.Request) {
	alive := r.URL.Query().Get("alive") == "true"
	var out []actorSummary
	s.Sim.View(func(sim *engine.Simulation) {
		for _, a := range sim.Objects.Actors() {
			if alive && a.Dead {
				continue
			}
			out = append(out, summarize(sim, a))
		}
	})
	writeJSON(w, out)
}

func (s *Server) handleActorDetail(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.ParseUint(r.PathValue("id"), 10, 16)
	if err != nil {
		http.Error(w, "invalid actor id", http.StatusBadRequest)
		return
	}
	id := agents.ObjectID(n)

	var detail map[string]any
	s.Sim.View(func(sim *engine.Simulation) {
		a := sim.Objects.Actor(id)
		if a == nil {
			return
		}
		detail = map[string]any{
			"actor":       summarize(sim, a),
			"skills":      a.Skills,
			"facing":      a.Facing,
			"target":      a.CurrentTarget,
			"right_hand":  a.RightHand,
			"left_hand":   a.LeftHand,
			"inventory":   inventory(sim, id),
			"aggressions": sim.Rules.Log.Against(id),
		}
		if mt := sim.Motion.For(id); mt != nil {
			detail["motion_record"] = *mt
		}
		if a.Followers != nil {
			detail["band"] = slices.Clone(a.Followers.Members())
		}
		for _, th := range sim.Scripts.Snapshot() {
			if th.Actor == id {
				detail["thread"] = th
			}
		}
	})
	if detail == nil {
		http.Error(w, "actor not found", http.StatusNotFound)
		return
	}
	writeJSON(w, detail)
}

// inventory copies what id carries so it can be encoded after the view.
func inventory(sim *engine.Simulation, id agents.ObjectID) []agents.Object {
	var out []agents.Object
	for _, o := range sim.Objects.Children(id) {
		out = append(out, *o)
	}
	return out
}

func (s *Server) handleMotions(w http.ResponseWriter, r *http.Request) {
	type motionSummary struct {
		Object agents.ObjectID `json:"object"`
		Type   string          `json:"type"`
		Prev   string          `json:"prev"`
		Thread int             `json:"thread"`
		Target agents.ObjectID `json:"target,omitempty"`
		Final  *tile.Point     `json:"final,omitempty"`
	}
	var out []motionSummary
	s.Sim.View(func(sim *engine.Simulation) {
		sim.Motion.Each(func(mt *motion.Task) {
			m := motionSummary{
				Object: mt.Object,
				Type:   mt.Type.String(),
				Prev:   mt.PrevType.String(),
				Thread: int(mt.Thread),
				Target: mt.Target,
			}
			if mt.IsWalk() {
				final := mt.FinalTarget()
				m.Final = &final
			}
			out = append(out, m)
		})
	})
	writeJSON(w, out)
}

func (s *Server) handleStacks(w http.ResponseWriter, r *http.Request) {
	type stackSummary struct {
		Actor agents.ObjectID `json:"actor"`
		Root  string          `json:"root"`
	}
	var out []stackSummary
	s.Sim.View(func(sim *engine.Simulation) {
		sim.Stacks.Each(func(st *task.Stack) {
			ss := stackSummary{Actor: st.Actor().ID, Root: "idle"}
			if root := st.Root(); root != nil {
				ss.Root = root.Kind().String()
			}
			out = append(out, ss)
		})
	})
	writeJSON(w, out)
}

func (s *Server) handleThreads(w http.ResponseWriter, r *http.Request) {
	var out []script.ThreadState
	s.Sim.View(func(sim *engine.Simulation) {
		out = sim.Scripts.Snapshot()
	})
	writeJSON(w, out)
}

func (s *Server) handleAggressions(w http.ResponseWriter, r *http.Request) {
	n := 50
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid n", http.StatusBadRequest)
			return
		}
		n = min(parsed, rules.DefaultLogSize)
	}
	var out []rules.Aggression
	s.Sim.View(func(sim *engine.Simulation) {
		out = sim.Rules.Log.Recent(n)
	})
	writeJSON(w, out)
}

func (s *Server) handleSaves(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	saves, err := s.DB.Saves()
	if err != nil {
		slog.Error("list saves failed", "error", err)
		http.Error(w, "list saves failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, saves)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "engine not available", http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
	}
	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	snap := s.Sim.Snapshot()
	id, err := s.DB.Save(snap)
	if err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"id":      id,
		"tick":    snap.Tick,
		"message": "snapshot saved",
	})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	s.Hub.serve(w, r, BuildFrame(s.Sim))
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Debug("response not written", "error", err)
	}
}
