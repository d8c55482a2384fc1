package scene

import (
	"math/rand"
	"testing"

	"github.com/talgya/storytown/internal/story"
)

func TestExtractElements(t *testing.T) {
	el := ExtractElements("Mara and Theo walking through the old forest, searching for something buried")

	hasMara, hasTheo := false, false
	for _, n := range el.Names {
		if n == "Mara" {
			hasMara = true
		}
		if n == "Theo" {
			hasTheo = true
		}
	}
	if !hasMara || !hasTheo {
		t.Errorf("names = %v, want Mara and Theo", el.Names)
	}
	if el.MapType != "forest" {
		t.Errorf("map type = %q, want forest", el.MapType)
	}
	if len(el.Verbs) == 0 {
		t.Error("no activity verbs extracted")
	}
}

func TestExtractElementsDefaultsToTown(t *testing.T) {
	el := ExtractElements("somewhere unremarkable")
	if el.MapType != "town" {
		t.Errorf("map type = %q, want town default", el.MapType)
	}
}

func TestGenerateComprehensive(t *testing.T) {
	g := NewGenerator(nil, 1)
	rec := g.GenerateComprehensive("a quiet town where Mara keeps a shop", 4, false, 20)

	if len(rec.Agents) != 4 {
		t.Fatalf("agents = %d, want 4", len(rec.Agents))
	}
	if rec.Agents[0].Name != "Mara" {
		t.Errorf("first agent = %q, want the described Mara", rec.Agents[0].Name)
	}
	for i, a := range rec.Agents {
		if a.ID != i {
			t.Errorf("agent %d has id %d, ids must match array index", i, a.ID)
		}
		if len(a.Personality) != 2 {
			t.Errorf("agent %s personality = %v, want 2 traits", a.Name, a.Personality)
		}
		if a.Goal == "" || a.Color == "" {
			t.Errorf("agent %s missing goal or color", a.Name)
		}
		if a.Energy != 100 {
			t.Errorf("agent %s energy = %d, want 100", a.Name, a.Energy)
		}
	}

	if len(rec.Scene.Structure.Rooms) == 0 {
		t.Fatal("generated scene has no rooms")
	}
	if rec.Scene.GeneratedBy != "template" {
		t.Errorf("generated_by = %q, want template without a client", rec.Scene.GeneratedBy)
	}
	if rec.Config.MaxSteps != 20 || rec.Config.AgentCount != 4 {
		t.Errorf("config = %+v", rec.Config)
	}
	if rec.UseLLM {
		t.Error("use_llm should be false")
	}
}

func TestGenerateComprehensiveDefaults(t *testing.T) {
	g := NewGenerator(nil, 1)
	rec := g.GenerateComprehensive("an empty stage", 0, false, 0)
	if len(rec.Agents) != 3 {
		t.Errorf("agents = %d, want default 3", len(rec.Agents))
	}
	if rec.Config.MaxSteps != 30 {
		t.Errorf("max steps = %d, want default 30", rec.Config.MaxSteps)
	}
}

func TestDefaultOutline(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	og := NewOutlineGenerator(nil, rng)
	outline := og.DefaultOutline("a quiet town", "town", nil, 30)

	if outline.Title == "" {
		t.Error("outline has no title")
	}
	if len(outline.KeyEvents) == 0 {
		t.Fatal("outline has no key events")
	}
	for _, ev := range outline.KeyEvents {
		if ev.Step < 0 || ev.Step >= 30 {
			t.Errorf("event at step %d outside run", ev.Step)
		}
	}

	s := outline.SceneStructure
	if s.MapType != "town" || len(s.Rooms) != 4 {
		t.Fatalf("structure = %q with %d rooms, want town with 4", s.MapType, len(s.Rooms))
	}
	square, ok := s.RoomByID("square")
	if !ok {
		t.Fatal("no square room")
	}
	if len(square.Connections) != 3 {
		t.Errorf("square connections = %v, want 3", square.Connections)
	}

	// Every connection must resolve after a prune.
	before := countConnections(s)
	s.PruneConnections()
	if countConnections(s) != before {
		t.Error("default structure carried dangling connections")
	}
}

func countConnections(s story.Structure) int {
	n := 0
	for _, r := range s.Rooms {
		n += len(r.Connections)
	}
	return n
}
