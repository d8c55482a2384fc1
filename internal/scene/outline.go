package scene

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/talgya/storytown/internal/llm"
	"github.com/talgya/storytown/internal/story"
)

// OutlineGenerator produces the story outline for a new scene, from the
// model when available and from templates otherwise.
type OutlineGenerator struct {
	client *llm.Client
	rng    *rand.Rand
}

// NewOutlineGenerator creates an outline generator. A nil client means
// template outlines only.
func NewOutlineGenerator(client *llm.Client, rng *rand.Rand) *OutlineGenerator {
	return &OutlineGenerator{client: client, rng: rng}
}

// Generate builds a full outline for the scene. Model failures fall back to
// the template outline; whatever comes back is repaired before use.
func (g *OutlineGenerator) Generate(desc, mapType string, agents []story.Agent, maxSteps int, useLLM bool) story.Outline {
	if useLLM && g.client.Enabled() {
		if outline, err := g.generateWithModel(desc, agents, maxSteps); err == nil {
			g.validateAndFix(&outline, mapType, maxSteps)
			return outline
		} else {
			slog.Warn("outline generation failed, using template", "error", err)
		}
	}

	outline := g.DefaultOutline(desc, mapType, agents, maxSteps)
	g.validateAndFix(&outline, mapType, maxSteps)
	return outline
}

func (g *OutlineGenerator) generateWithModel(desc string, agents []story.Agent, maxSteps int) (story.Outline, error) {
	var b strings.Builder
	b.WriteString("Design a story outline for a town simulation.\n\n")
	fmt.Fprintf(&b, "Scene: %s\n", desc)
	fmt.Fprintf(&b, "Steps available: %d\n", maxSteps)
	b.WriteString("Characters:\n")
	for _, a := range agents {
		fmt.Fprintf(&b, "- %s (%s), goal: %s\n", a.Name, strings.Join(a.Personality, ", "), a.Goal)
	}
	b.WriteString("\nReply with JSON only:\n")
	b.WriteString(`{
  "title": "...",
  "theme": "...",
  "main_conflict": "...",
  "key_events": [
    {"step": 2, "description": "...", "participants": ["name"], "location": "room_id", "next_step_trigger": "move|talk|interact or empty"}
  ],
  "scene_structure": {
    "map_type": "town",
    "rooms": [
      {"id": "square", "name": "...", "x": 250, "y": 200, "width": 300, "height": 200, "connections": ["shop"]}
    ]
  },
  "character_arcs": [
    {"character": "name", "initial_state": "...", "final_state": "..."}
  ],
  "plot_milestones": [
    {"step": 5, "milestone": "...", "consequences": "..."}
  ]
}`)

	reply, err := g.client.Chat(b.String())
	if err != nil {
		return story.Outline{}, err
	}
	raw, err := llm.ExtractJSON(reply)
	if err != nil {
		return story.Outline{}, err
	}
	var outline story.Outline
	if err := json.Unmarshal([]byte(raw), &outline); err != nil {
		return story.Outline{}, fmt.Errorf("parse outline: %w", err)
	}
	return outline, nil
}

// validateAndFix repairs a generated outline in place: fills missing title
// and structure, drops events beyond the step cap, and prunes dangling room
// connections. Model output is never trusted as-is.
func (g *OutlineGenerator) validateAndFix(outline *story.Outline, mapType string, maxSteps int) {
	if outline.Title == "" {
		outline.Title = "An Ordinary Day"
	}
	if len(outline.SceneStructure.Rooms) == 0 {
		outline.SceneStructure = g.structureFor(mapType)
	}
	if outline.SceneStructure.MapType == "" {
		outline.SceneStructure.MapType = mapType
	}

	kept := outline.KeyEvents[:0]
	for _, ev := range outline.KeyEvents {
		if ev.Step >= 0 && ev.Step < maxSteps {
			kept = append(kept, ev)
		}
	}
	outline.KeyEvents = kept

	outline.SceneStructure.PruneConnections()
}

// structureFor picks the template structure for a map type: the stock town
// for towns, a generated grid layout for everything else.
func (g *OutlineGenerator) structureFor(mapType string) story.Structure {
	if mapType == "" || mapType == "town" {
		return defaultTownStructure()
	}
	return GenerateStructure(mapType, g.rng)
}

// DefaultOutline is the template outline used without a model: a stock
// structure plus a handful of scheduled beats spread across the run.
func (g *OutlineGenerator) DefaultOutline(desc, mapType string, agents []story.Agent, maxSteps int) story.Outline {
	names := make([]string, 0, len(agents))
	for _, a := range agents {
		names = append(names, a.Name)
	}

	structure := g.structureFor(mapType)
	gatherAt := ""
	if len(structure.Rooms) > 0 {
		gatherAt = structure.Rooms[0].ID
	}

	beats := []struct {
		at      float64
		desc    string
		trigger string
	}{
		{0.2, "A stranger's rumor spreads through town", "talk"},
		{0.5, "Something unexpected is discovered", "interact"},
		{0.8, "Everyone is drawn toward the same place", "move"},
	}

	var events []story.KeyEvent
	for _, b := range beats {
		step := int(float64(maxSteps) * b.at)
		if step >= maxSteps {
			continue
		}
		participants := names
		if len(participants) > 2 {
			participants = participants[:2]
		}
		events = append(events, story.KeyEvent{
			Step:            step,
			EventType:       "plot",
			Description:     b.desc,
			Participants:    participants,
			Location:        gatherAt,
			NextStepTrigger: b.trigger,
		})
	}

	return story.Outline{
		Title:          "An Ordinary Day",
		Theme:          "small moments in a small town",
		MainConflict:   "quiet routines disturbed by something new",
		KeyEvents:      events,
		SceneStructure: structure,
	}
}

// defaultTownStructure is the stock four-room town used for town-typed
// templated stories.
func defaultTownStructure() story.Structure {
	return story.Structure{
		MapType: "town",
		Rooms: []story.Room{
			{
				ID: "square", Name: "Town Square", Color: "#d9b38c",
				X: 250, Y: 200, Width: 300, Height: 200,
				Connections: []string{"shop", "tavern", "station"},
			},
			{
				ID: "shop", Name: "General Store", Color: "#c68642",
				X: 100, Y: 100, Width: 150, Height: 120,
				Connections: []string{"square"},
			},
			{
				ID: "tavern", Name: "The Rusty Lantern", Color: "#8c6239",
				X: 600, Y: 150, Width: 180, Height: 140,
				Connections: []string{"square"},
			},
			{
				ID: "station", Name: "Old Station", Color: "#7a7a7a",
				X: 300, Y: 450, Width: 200, Height: 160,
				Connections: []string{"square"},
			},
		},
	}
}
