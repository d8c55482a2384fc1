package scene

import (
	"math/rand"
	"testing"

	"github.com/talgya/storytown/internal/story"
)

func TestGenerateStructure(t *testing.T) {
	for _, mapType := range []string{"town", "forest", "building", "dungeon"} {
		rng := rand.New(rand.NewSource(7))
		s := GenerateStructure(mapType, rng)

		if s.MapType != mapType {
			t.Errorf("map type = %q, want %q", s.MapType, mapType)
		}
		if len(s.Rooms) < 3 {
			t.Errorf("%s: %d rooms, want at least 3", mapType, len(s.Rooms))
		}

		// Chained connections must all resolve.
		before := countConnections(s)
		s.PruneConnections()
		if countConnections(s) != before {
			t.Errorf("%s: generated structure carried dangling connections", mapType)
		}
		for i, r := range s.Rooms {
			if len(r.Connections) == 0 {
				t.Errorf("%s: room %d (%s) is unreachable", mapType, i, r.ID)
			}
		}
	}
}

func TestGenerateStructureUnknownTypeFallsBack(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := GenerateStructure("moonbase", rng)
	if s.MapType != "town" {
		t.Errorf("map type = %q, want town fallback", s.MapType)
	}
}

func TestGenerateLayout(t *testing.T) {
	structure := story.Structure{
		MapType: "forest",
		Rooms:   []story.Room{{ID: "clearing", X: 150, Y: 150, Width: 120, Height: 120}},
	}
	layout := GenerateLayout(structure, 42)

	if layout.Width != mapWidth || layout.Height != mapHeight {
		t.Errorf("canvas = %dx%d", layout.Width, layout.Height)
	}
	if layout.BackgroundColor == "" {
		t.Error("no background color")
	}
	for _, d := range layout.Decorations {
		if d.Kind != "tree" {
			t.Errorf("forest decoration kind = %q, want tree", d.Kind)
		}
		for _, r := range structure.Rooms {
			if r.Contains(d.X, d.Y) {
				t.Errorf("decoration at (%d, %d) inside room %s", d.X, d.Y, r.ID)
			}
		}
	}

	// Same seed, same scatter.
	again := GenerateLayout(structure, 42)
	if len(again.Decorations) != len(layout.Decorations) {
		t.Error("layout generation is not deterministic for a fixed seed")
	}
}

func TestValidateAndFixCapsEvents(t *testing.T) {
	og := NewOutlineGenerator(nil, rand.New(rand.NewSource(1)))
	outline := story.Outline{
		KeyEvents: []story.KeyEvent{
			{Step: 2, Description: "fine"},
			{Step: 50, Description: "beyond the cap"},
			{Step: -1, Description: "negative"},
		},
		SceneStructure: story.Structure{
			Rooms: []story.Room{{ID: "a", Connections: []string{"ghost"}}},
		},
	}

	og.validateAndFix(&outline, "town", 10)

	if len(outline.KeyEvents) != 1 || outline.KeyEvents[0].Step != 2 {
		t.Errorf("events = %+v, want only the in-range one", outline.KeyEvents)
	}
	if outline.Title == "" {
		t.Error("missing title not filled")
	}
	if outline.SceneStructure.MapType != "town" {
		t.Errorf("map type = %q, want town default", outline.SceneStructure.MapType)
	}
	if len(outline.SceneStructure.Rooms[0].Connections) != 0 {
		t.Error("dangling connection survived")
	}
}
