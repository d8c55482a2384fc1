// Command storytown runs the LLM-directed town story server.
package main

import (
	"flag"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/talgya/storytown/internal/api"
	"github.com/talgya/storytown/internal/config"
	"github.com/talgya/storytown/internal/director"
	"github.com/talgya/storytown/internal/llm"
	"github.com/talgya/storytown/internal/persistence"
	"github.com/talgya/storytown/internal/scene"
	"github.com/talgya/storytown/internal/sim"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── LLM Client ───────────────────────────────────────────────────
	llmClient := llm.NewClient(cfg.APIKey(), llm.Options{
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		MaxPerMin:   cfg.LLM.MaxPerMinute,
	})
	if llmClient.Enabled() {
		slog.Info("LLM client enabled", "model", cfg.LLM.Model)
	} else {
		slog.Warn("no API key set — stories run on templates and the round-robin fallback")
	}

	// ── Generation and Simulation ────────────────────────────────────
	generator := scene.NewGenerator(llmClient, cfg.Seed)
	storyDirector := director.New(llmClient)

	registry := sim.NewRegistry(func(name string) (*sim.Controller, error) {
		rec, err := db.LoadStory(name)
		if err != nil {
			return nil, err
		}

		var strategy sim.StepStrategy
		if cfg.UseDirector && rec.UseLLM && llmClient.Enabled() {
			strategy = &sim.DirectorStrategy{Planner: storyDirector}
		} else {
			strategy = &sim.RoundRobinStrategy{}
		}

		return sim.NewController(name, rec, strategy, storySeed(cfg.Seed, name))
	})

	// ── HTTP API ──────────────────────────────────────────────────────
	apiServer := &api.Server{
		DB:       db,
		Registry: registry,
		LLM:      llmClient,
		Scene:    generator,
		Port:     cfg.Port,
	}
	apiServer.Start()

	fmt.Printf("storytown is listening on http://localhost:%d/api/v1/stories\n", cfg.Port)
	fmt.Println("Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)
}

// storySeed derives a per-story seed so resumed stories keep deterministic
// placement and fallback behavior.
func storySeed(base int64, name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return base ^ int64(h.Sum64())
}
