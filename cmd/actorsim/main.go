// Command actorsim runs the actor simulation: generates a map, spawns or
// restores the actors, and ticks them until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/api"
	"github.com/talgya/actorcore/internal/config"
	"github.com/talgya/actorcore/internal/engine"
	"github.com/talgya/actorcore/internal/persistence"
	"github.com/talgya/actorcore/internal/tile"
	"github.com/talgya/actorcore/internal/world"
)

// keepSaves is how many autosaves survive pruning.
const keepSaves = 10

func main() {
	configPath := flag.String("config", "", "YAML settings file (defaults are used when empty)")
	flag.Parse()

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}
	lvl, _ := config.ParseLevel(cfg.LogLevel)
	level.Set(lvl)

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		slog.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── World Map (always regenerated, deterministic from seed) ───────
	gen := world.DefaultGenConfig()
	gen.Cols, gen.Rows, gen.Seed = cfg.World.Cols, cfg.World.Rows, cfg.Seed
	worldMap := world.Generate(gen)
	for t, c := range worldMap.TerrainCounts() {
		slog.Debug("terrain", "type", world.TerrainName(t), "count", c)
	}

	spawns := world.PlaceSpawns(worldMap, cfg.Seed, cfg.World.Actors, 3)
	var routes [][]tile.Point
	for i := range cfg.World.Routes {
		if pts := world.PlaceSpawns(worldMap, cfg.Seed+int64(i)+1, 4, 8); len(pts) > 1 {
			routes = append(routes, world.PatrolRoute(pts))
		}
	}
	slog.Info("world generated", "cols", gen.Cols, "rows", gen.Rows, "spawns", len(spawns), "routes", len(routes))

	sim := engine.NewSimulation(engine.Options{
		Map:      worldMap,
		Seed:     cfg.Seed,
		Gravity:  cfg.Sim.Gravity,
		EvalRate: cfg.Sim.EvalRate,
		PathJobs: cfg.Sim.PathJobs,
		Routes:   routes,
	})
	if _, err := sim.Scripts.LoadDir(cfg.ScriptDir); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Error("failed to load scripts", "error", err)
			os.Exit(1)
		}
		slog.Warn("no script directory, using default plans", "dir", cfg.ScriptDir)
	}

	// ── Load or Spawn Actors ──────────────────────────────────────────
	if db.HasWorldState() {
		info, err := db.Latest()
		if err != nil {
			slog.Error("failed to find latest save", "error", err)
			os.Exit(1)
		}
		snap, err := db.Load(info.ID)
		if err != nil {
			slog.Error("failed to load save", "id", info.ID, "error", err)
			os.Exit(1)
		}
		if err := sim.Restore(snap); err != nil {
			slog.Error("failed to restore save", "id", info.ID, "error", err)
			os.Exit(1)
		}
		slog.Info("world state restored", "save", info.Name, "tick", sim.CurrentTick())
	} else {
		points := make([]tile.Point, len(spawns))
		for i, sp := range spawns {
			points[i] = sp.Location
		}
		spawner := agents.NewSpawner(sim.Objects, agents.SpawnConfig{
			Seed:     cfg.Seed,
			BandSize: cfg.World.BandSize,
		})
		actors := spawner.Spawn(points)
		sim.Populate()
		slog.Info("actors spawned", "count", len(actors))
		if _, err := db.Save(sim.Snapshot()); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	// ── Engine ────────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := engine.NewEngine(sim.CurrentTick(), cfg.Sim.TickInterval)
	eng.SetSpeed(cfg.Sim.Speed)
	eng.SaveEvery = engine.TicksIn(cfg.SaveInterval, cfg.Sim.TickInterval)

	server := &api.Server{
		Sim:      sim,
		Eng:      eng,
		DB:       db,
		Hub:      api.NewHub(),
		Port:     cfg.HTTPPort,
		AdminKey: os.Getenv("ACTORSIM_ADMIN_KEY"),
	}

	save := func() {
		if _, err := db.Save(sim.Snapshot()); err != nil {
			slog.Error("save failed", "error", err)
			return
		}
		if n, err := db.Prune(keepSaves); err != nil {
			slog.Warn("prune failed", "error", err)
		} else if n > 0 {
			slog.Debug("old saves pruned", "count", n)
		}
	}
	eng.OnTick = func(tick uint64) {
		sim.Step(ctx, tick)
		server.Broadcast()
	}
	eng.OnSave = func(uint64) { save() }

	// ── Config Hot Reload ─────────────────────────────────────────────
	if *configPath != "" {
		updates, err := config.Watch(ctx, *configPath)
		if err != nil {
			slog.Warn("config watch disabled", "error", err)
		} else {
			go func(cur config.Config) {
				for next := range updates {
					cur = cur.Reloadable(next)
					eng.SetSpeed(cur.Sim.Speed)
					sim.SetEvalRate(cur.Sim.EvalRate)
					if l, err := config.ParseLevel(cur.LogLevel); err == nil {
						level.Set(l)
					}
				}
			}(cfg)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.HTTPPort > 0 {
		server.Start()
	}

	// ── Graceful Shutdown ─────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	fmt.Println()
	fmt.Println("  actorsim")
	fmt.Printf("  %d actors, tick %d, one tick every %v\n", len(sim.Objects.Actors()), sim.CurrentTick(), cfg.Sim.TickInterval)
	if cfg.HTTPPort > 0 {
		fmt.Printf("  API: http://localhost:%d/api/v1/status\n", cfg.HTTPPort)
	}
	fmt.Println()

	eng.Run()

	cancel()
	slog.Info("saving final state...")
	save()

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("api shutdown", "error", err)
	}
	slog.Info("simulation stopped", "tick", sim.CurrentTick())
}
