// Package api provides the HTTP API for creating and playing stories.
// GET endpoints are read-only; POST endpoints mutate story state.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/talgya/storytown/internal/llm"
	"github.com/talgya/storytown/internal/persistence"
	"github.com/talgya/storytown/internal/scene"
	"github.com/talgya/storytown/internal/sim"
	"github.com/talgya/storytown/internal/story"
)

// Server serves the story API over HTTP.
type Server struct {
	DB       *persistence.DB
	Registry *sim.Registry
	LLM      *llm.Client
	Scene    *scene.Generator
	Port     int
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	// Rate limiters for LLM-consuming endpoints.
	createLimiter := NewRateLimiter(20, time.Hour)
	testLimiter := NewRateLimiter(10, time.Hour)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/stories", s.handleStories(createLimiter))
	mux.HandleFunc("/api/v1/story/", s.handleStoryRoutes)
	mux.HandleFunc("/api/v1/llm/test", RateLimitMiddleware(testLimiter, s.handleLLMTest))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "llm", s.LLM.Enabled())

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins. Set
// CORS_ORIGINS to a comma-separated list; localhost dev servers are always
// allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleStories dispatches the collection endpoint: GET lists stories, POST
// generates a new one (rate limited, may consume LLM calls).
func (s *Server) handleStories(limiter *RateLimiter) http.HandlerFunc {
	create := RateLimitMiddleware(limiter, s.handleCreateStory)
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.handleListStories(w, r)
		case http.MethodPost:
			create(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func (s *Server) handleListStories(w http.ResponseWriter, r *http.Request) {
	infos, err := s.DB.ListStories()
	if err != nil {
		slog.Error("list stories failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"stories": infos})
}

func (s *Server) handleCreateStory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name             string `json:"name"`
		SceneDescription string `json:"scene_description"`
		AgentCount       int    `json:"agent_count"`
		UseLLM           bool   `json:"use_llm"`
		MaxSteps         int    `json:"max_steps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SceneDescription == "" {
		http.Error(w, "scene_description is required", http.StatusBadRequest)
		return
	}

	name := req.Name
	if name == "" {
		name = story.SlugFromDescription(req.SceneDescription)
	}

	rec := s.Scene.GenerateComprehensive(req.SceneDescription, req.AgentCount, req.UseLLM, req.MaxSteps)
	if err := s.DB.SaveStory(name, rec); err != nil {
		slog.Error("save story failed", "story", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	// A regenerated story replaces any live instance.
	s.Registry.Drop(name)

	slog.Info("story created", "story", name, "agents", len(rec.Agents), "llm", rec.UseLLM)
	writeJSON(w, map[string]any{
		"status": "created",
		"name":   name,
		"story":  rec,
	})
}

// handleStoryRoutes dispatches /api/v1/story/{name}[/op].
func (s *Server) handleStoryRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/story/")
	parts := strings.SplitN(path, "/", 2)
	name := parts[0]
	if name == "" {
		http.Error(w, "story name required", http.StatusBadRequest)
		return
	}

	op := ""
	if len(parts) == 2 {
		op = parts[1]
	}

	switch op {
	case "":
		switch r.Method {
		case http.MethodGet:
			s.handleGetStory(w, r, name)
		case http.MethodDelete:
			s.handleDeleteStory(w, r, name)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	case "step":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleStep(w, r, name)
	case "state":
		s.handleState(w, r, name)
	case "map":
		s.handleMap(w, r, name)
	case "export":
		s.handleExport(w, r, name)
	case "import":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleImport(w, r, name)
	case "stream":
		s.handleStream(w, r, name)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (s *Server) handleGetStory(w http.ResponseWriter, r *http.Request, name string) {
	rec, err := s.DB.LoadStory(name)
	if err != nil {
		s.storyError(w, name, err)
		return
	}
	writeJSON(w, map[string]any{"name": name, "story": rec})
}

func (s *Server) handleDeleteStory(w http.ResponseWriter, r *http.Request, name string) {
	if err := s.DB.DeleteStory(name); err != nil {
		slog.Error("delete story failed", "story", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.Registry.Drop(name)
	writeJSON(w, map[string]any{"status": "deleted", "name": name})
}

// handleStep advances one story by exactly one action. The updated state is
// saved after every step; a failed save is logged but does not fail the
// step, the simulation stays ahead of the database.
func (s *Server) handleStep(w http.ResponseWriter, r *http.Request, name string) {
	ctrl, err := s.Registry.Get(name)
	if err != nil {
		s.storyError(w, name, err)
		return
	}

	result := ctrl.SimulateStep()

	if err := s.DB.SaveStory(name, ctrl.Record()); err != nil {
		slog.Error("save after step failed", "story", name, "error", err)
	}

	writeJSON(w, map[string]any{
		"status": result.Status,
		"data":   result,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request, name string) {
	ctrl, err := s.Registry.Get(name)
	if err != nil {
		s.storyError(w, name, err)
		return
	}
	writeJSON(w, ctrl.GetCurrentState())
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request, name string) {
	ctrl, err := s.Registry.Get(name)
	if err != nil {
		s.storyError(w, name, err)
		return
	}
	data := ctrl.GetMapData()
	data["layout"] = scene.GenerateLayout(ctrl.Structure(), ctrl.Seed())
	writeJSON(w, data)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, name string) {
	rec, err := s.DB.LoadStory(name)
	if err != nil {
		s.storyError(w, name, err)
		return
	}

	w.Header().Set("Content-Type", "application/zstd")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".story.zst"))
	if err := persistence.ExportArchive(w, rec); err != nil {
		slog.Error("export failed", "story", name, "error", err)
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request, name string) {
	rec, err := persistence.ImportArchive(r.Body)
	if err != nil {
		http.Error(w, "invalid archive", http.StatusBadRequest)
		return
	}
	if err := s.DB.SaveStory(name, rec); err != nil {
		slog.Error("import save failed", "story", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.Registry.Drop(name)

	slog.Info("story imported", "story", name, "agents", len(rec.Agents))
	writeJSON(w, map[string]any{"status": "imported", "name": name})
}

// handleLLMTest checks connectivity to the model backend.
func (s *Server) handleLLMTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.LLM.Enabled() {
		writeJSON(w, map[string]any{"status": "disabled", "reason": "no API key configured"})
		return
	}

	reply, err := s.LLM.Chat("Reply with the single word: ok")
	if err != nil {
		writeJSON(w, map[string]any{"status": "error", "error": err.Error()})
		return
	}
	writeJSON(w, map[string]any{"status": "ok", "reply": strings.TrimSpace(reply)})
}

// storyError maps a load failure to 404 for unknown stories and 500
// otherwise.
func (s *Server) storyError(w http.ResponseWriter, name string, err error) {
	if errors.Is(err, persistence.ErrStoryNotFound) {
		http.Error(w, fmt.Sprintf("story %q not found", name), http.StatusNotFound)
		return
	}
	slog.Error("story access failed", "story", name, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
