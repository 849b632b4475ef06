package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/engine"
	"github.com/talgya/actorcore/internal/persistence"
	"github.com/talgya/actorcore/internal/tile"
	"github.com/talgya/actorcore/internal/world"
)

func newServer(t *testing.T) *Server {
	t.Helper()
	sim := engine.NewSimulation(engine.Options{Map: world.NewMap(16, 16), Seed: 3})
	a := agents.NewActor(2, "scout", tile.P(40, 40, 0))
	a.Anim = agents.NewAppearance(agents.StandardFrames)
	sim.Objects.AddActor(a)
	sim.Objects.Add(&agents.Object{ID: 3, Name: "sword", Kind: agents.KindMeleeWeapon, Parent: 2, Location: tile.Nowhere})
	sim.Populate()
	return &Server{Sim: sim, Eng: engine.NewEngine(0, time.Second), AdminKey: "secret"}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestStatus(t *testing.T) {
	s := newServer(t)
	rec := get(t, s.Handler(), "/api/v1/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["actors"] != float64(1) || body["stacks"] != float64(1) {
		t.Errorf("body = %v", body)
	}
}

func TestActorDetail(t *testing.T) {
	s := newServer(t)
	h := s.Handler()
	tests := []struct {
		path string
		code int
	}{
		{"/api/v1/actor/2", http.StatusOK},
		{"/api/v1/actor/99", http.StatusNotFound},
		{"/api/v1/actor/scout", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if rec := get(t, h, tt.path); rec.Code != tt.code {
				t.Errorf("code = %d, want %d", rec.Code, tt.code)
			}
		})
	}

	var body struct {
		Actor     actorSummary    `json:"actor"`
		Inventory []agents.Object `json:"inventory"`
	}
	if err := json.Unmarshal(get(t, h, "/api/v1/actor/2").Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Actor.Name != "scout" || body.Actor.Plan != "wander" {
		t.Errorf("actor = %+v", body.Actor)
	}
	if len(body.Inventory) != 1 || body.Inventory[0].Name != "sword" {
		t.Errorf("inventory = %+v", body.Inventory)
	}
}

func TestListEndpoints(t *testing.T) {
	s := newServer(t)
	h := s.Handler()
	for _, path := range []string{"/api/v1/actors", "/api/v1/motions", "/api/v1/stacks", "/api/v1/threads", "/api/v1/aggressions", "/api/v1/speed"} {
		t.Run(path, func(t *testing.T) {
			rec := get(t, h, path)
			if rec.Code != http.StatusOK {
				t.Errorf("code = %d", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type = %q", ct)
			}
		})
	}
	if rec := get(t, h, "/api/v1/aggressions?n=-1"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad n code = %d", rec.Code)
	}
	if rec := get(t, h, "/api/v1/saves"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("saves without db code = %d", rec.Code)
	}
}

func TestAdminSpeed(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		token string
		body  string
		code  int
	}{
		{"disabled", "", "", `{"speed":2}`, http.StatusForbidden},
		{"wrong token", "secret", "nope", `{"speed":2}`, http.StatusUnauthorized},
		{"out of range", "secret", "secret", `{"speed":5000}`, http.StatusBadRequest},
		{"ok", "secret", "secret", `{"speed":2}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newServer(t)
			s.AdminKey = tt.key
			req := httptest.NewRequest(http.MethodPost, "/api/v1/speed", strings.NewReader(tt.body))
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)
			if rec.Code != tt.code {
				t.Fatalf("code = %d, want %d", rec.Code, tt.code)
			}
			if tt.code == http.StatusOK && s.Eng.Speed() != 2 {
				t.Errorf("speed = %g, want 2", s.Eng.Speed())
			}
		})
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	s := newServer(t)
	db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	s.DB = db
	h := s.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/snapshot", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", rec.Code, rec.Body)
	}

	var saves []persistence.SaveInfo
	if err := json.Unmarshal(get(t, h, "/api/v1/saves").Body.Bytes(), &saves); err != nil {
		t.Fatal(err)
	}
	if len(saves) != 1 {
		t.Errorf("saves = %+v", saves)
	}
}

func TestStream(t *testing.T) {
	s := newServer(t)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(s.Hub.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer resp.Body.Close()
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello struct {
		Type    string       `json:"type"`
		Session string       `json:"session"`
		Actors  []ActorFrame `json:"actors"`
	}
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if hello.Type != "hello" || hello.Session == "" || len(hello.Actors) != 1 {
		t.Errorf("hello = %+v", hello)
	}

	s.Sim.Step(t.Context(), 1)
	s.Broadcast()
	var f Frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if f.Type != "tick" || f.Tick != 1 || len(f.Actors) != 1 || f.Actors[0].ID != 2 {
		t.Errorf("frame = %+v", f)
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Error("third request should be limited")
	}
	if !rl.Allow("b") {
		t.Error("other clients have their own bucket")
	}
	if got := rl.RetryAfter("a"); got != 61 {
		t.Errorf("RetryAfter = %d, want 61", got)
	}
	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Error("window reset should allow again")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.5:4321"
	if got := clientIP(r); got != "10.0.0.5" {
		t.Errorf("clientIP = %q", got)
	}
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	if got := clientIP(r); got != "1.2.3.4" {
		t.Errorf("clientIP with proxy = %q", got)
	}
}
