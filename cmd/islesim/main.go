// Command islesim runs the castaway island survival simulation.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/talgya/castaway/internal/agents"
	"github.com/talgya/castaway/internal/api"
	"github.com/talgya/castaway/internal/chronicle"
	"github.com/talgya/castaway/internal/config"
	"github.com/talgya/castaway/internal/engine"
	"github.com/talgya/castaway/internal/oracle"
	"github.com/talgya/castaway/internal/persistence"
	"github.com/talgya/castaway/internal/social"
	"github.com/talgya/castaway/internal/world"
)

// dialogSink fans dialogue out to the JSON log and, when available, the
// SQLite archive.
type dialogSink struct {
	files   *persistence.Files
	archive *persistence.Archive
}

func (d dialogSink) AppendConversation(u social.Utterance) error {
	if d.archive != nil {
		if err := d.archive.ArchiveUtterance(u); err != nil {
			slog.Warn("dialogue archive failed", "error", err)
		}
	}
	return d.files.AppendConversation(u)
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Castaway Isle: three strangers, one island")

	cfgPath := "config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// ── Storage ───────────────────────────────────────────────────────
	files, err := persistence.NewFiles(cfg.DataDir)
	if err != nil {
		slog.Error("failed to open data dir", "error", err)
		os.Exit(1)
	}

	archive, err := persistence.OpenArchive(filepath.Join(cfg.DataDir, "castaway.db"))
	if err != nil {
		slog.Error("failed to open archive", "error", err)
		os.Exit(1)
	}
	defer archive.Close()

	// ── World ─────────────────────────────────────────────────────────
	gen := world.DefaultGenConfig(cfg.WorldSize)
	gen.Seed = cfg.Seed
	grid := world.Generate(gen)
	if files.LoadResources(grid) {
		slog.Info("resource state restored")
	}

	clock := files.LoadClock()
	if clock == nil {
		clock = world.NewClock()
	}
	slog.Info("world ready", "size", grid.Size, "clock", clock)

	// ── Chronicle & dialogue ─────────────────────────────────────────
	chron := chronicle.New(files)
	if events := files.LoadChronicle(); events != nil {
		chron.Restore(events)
		slog.Info("chronicle restored", "events", len(events))
	}

	dialog := social.NewDialogLog(dialogSink{files: files, archive: archive})

	// ── Agents ───────────────────────────────────────────────────────
	capacities := make(map[agents.Item]int, len(cfg.Capacities))
	for k, v := range cfg.Capacities {
		capacities[agents.Item(k)] = v
	}

	var cast []*agents.Agent
	for _, seed := range cfg.Agents {
		mem := agents.NewStream(seed.Name, files)
		if records := files.LoadMemories(seed.Name); records != nil {
			mem.Restore(records)
		}
		a := agents.New(seed.Name, seed.X, seed.Y, capacities, mem)
		if st, ok := files.LoadAgentState(seed.Name); ok {
			a.Restore(st)
			slog.Info("agent restored", "name", a.Name, "energy", a.Energy, "dead", a.Dead, "memories", mem.Len())
		} else {
			slog.Info("agent created", "name", a.Name, "x", a.X, "y", a.Y)
		}
		cast = append(cast, a)
	}

	// ── Oracle ───────────────────────────────────────────────────────
	gw := oracle.New(oracle.Config{
		APIKey:        os.Getenv("ORACLE_API_KEY"),
		BaseURL:       cfg.Oracle.BaseURL,
		Model:         cfg.Oracle.Model,
		MinInterval:   time.Duration(cfg.Oracle.MinIntervalSeconds * float64(time.Second)),
		ThinkDelayMin: time.Duration(cfg.Oracle.ThinkDelayMinMs) * time.Millisecond,
		ThinkDelayMax: time.Duration(cfg.Oracle.ThinkDelayMaxMs) * time.Millisecond,
	})
	if gw.Enabled() {
		slog.Info("oracle enabled", "model", cfg.Oracle.Model)
	} else {
		slog.Warn("ORACLE_API_KEY not set, agents will rest instead of deciding")
	}

	// ── Simulation ───────────────────────────────────────────────────
	sim := engine.NewSimulation(cfg, grid, clock, cast, gw, chron, dialog, files, cfg.Seed)

	eng := engine.NewEngine(cfg.TickRate)
	eng.OnTick = sim.Step

	// Resume the tick counter across restarts.
	if raw, err := archive.GetMeta("last_tick"); err == nil {
		if t, err := strconv.ParseUint(raw, 10, 64); err == nil {
			eng.Tick = t
			sim.LastTick = t
			slog.Info("resuming", "tick", t)
		}
	}

	// Daily snapshot, written while the simulation still holds its lock.
	sim.OnDay = func(day int) {
		states := make([]agents.State, len(cast))
		memories := make(map[string][]agents.Record, len(cast))
		for i, a := range cast {
			states[i] = a.Snapshot()
			memories[a.Name] = a.Memory.Records()
		}
		snap := &persistence.Snapshot{
			SavedAt:   time.Now(),
			Tick:      sim.LastTick,
			Clock:     clock,
			Kinds:     grid.Kind,
			Amounts:   grid.Amount,
			Agents:    states,
			Memories:  memories,
			Chronicle: chron.Recent(500),
		}
		path := filepath.Join(cfg.DataDir, fmt.Sprintf("snapshot_day_%03d.zst", day))
		if err := persistence.WriteSnapshot(path, snap); err != nil {
			slog.Error("snapshot failed", "day", day, "error", err)
		}
		if err := archive.SaveMeta("last_tick", strconv.FormatUint(sim.LastTick, 10)); err != nil {
			slog.Error("meta save failed", "error", err)
		}
	}

	// ── Observers ────────────────────────────────────────────────────
	hub := api.NewHub()
	chron.Observe(hub.Broadcast)
	chron.Observe(func(ev chronicle.Event) {
		if err := archive.ArchiveEvent(ev); err != nil {
			slog.Warn("event archive failed", "error", err)
		}
	})

	adminKey := os.Getenv("ISLESIM_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("ISLESIM_ADMIN_KEY not set, admin POST endpoints disabled")
	}

	server := &api.Server{
		Sim:        sim,
		Eng:        eng,
		Dialog:     dialog,
		Chron:      chron,
		Archive:    archive,
		Hub:        hub,
		Port:       cfg.API.Port,
		AdminKey:   adminKey,
		OnShutdown: eng.Stop,
	}
	server.Start()

	// ── Run ──────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	fmt.Printf("\n%d castaways on a %dx%d island. API: http://localhost:%d/api/v1/status\n",
		len(cast), grid.Size, grid.Size, cfg.API.Port)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run()

	// Final flush.
	slog.Info("final save", "tick", eng.Tick)
	if err := files.SaveClock(clock); err != nil {
		slog.Error("clock save failed", "error", err)
	}
	if err := files.SaveResources(grid); err != nil {
		slog.Error("resource save failed", "error", err)
	}
	for _, a := range cast {
		if err := files.SaveAgentState(a.Snapshot()); err != nil {
			slog.Error("agent save failed", "name", a.Name, "error", err)
		}
	}
	if err := archive.SaveMeta("last_tick", strconv.FormatUint(eng.Tick, 10)); err != nil {
		slog.Error("meta save failed", "error", err)
	}
	hub.Close()

	fmt.Println("Simulation stopped. Island state saved.")
}
