package persistence

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/talgya/storytown/internal/story"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRecord() story.Record {
	return story.Record{
		Scene: story.Scene{
			Type:        "town",
			Description: "a quiet town",
			Structure: story.Structure{
				MapType: "town",
				Rooms: []story.Room{
					{ID: "square", X: 0, Y: 0, Width: 100, Height: 100, Connections: []string{"shop", "ghost"}},
					{ID: "shop", X: 200, Y: 0, Width: 80, Height: 80, Connections: []string{"square"}},
				},
			},
		},
		Agents: []story.Agent{
			{ID: 0, Name: "Mara", Personality: []string{"curious"}, Goal: "find the truth", X: 50, Y: 50, CurrentRoom: "square", Energy: 90, Mood: "happy"},
			{ID: 1, Name: "Theo", X: 240, Y: 40, CurrentRoom: "shop", Energy: 70},
		},
		Outline: story.Outline{
			Title:     "An Ordinary Day",
			KeyEvents: []story.KeyEvent{{Step: 3, Description: "the bell rings"}},
		},
		Config: story.Config{
			SceneDescription: "a quiet town",
			AgentCount:       2,
			MaxSteps:         20,
			UseLLM:           true,
		},
		UseLLM:      true,
		CurrentStep: 4,
		AgentStates: []story.AgentSnapshot{
			{ID: 0, Name: "Mara", Position: story.Position{X: 50, Y: 50}, Mood: "happy", Energy: 90, Inventory: []string{}},
		},
	}
}

func TestSaveAndLoadStory(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveStory("quiet-town", sampleRecord()); err != nil {
		t.Fatalf("save: %v", err)
	}

	rec, err := db.LoadStory("quiet-town")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if rec.Scene.Description != "a quiet town" {
		t.Errorf("scene description = %q", rec.Scene.Description)
	}
	if len(rec.Agents) != 2 || rec.Agents[0].Name != "Mara" || rec.Agents[0].CurrentRoom != "square" {
		t.Errorf("agents = %+v", rec.Agents)
	}
	if rec.CurrentStep != 4 || !rec.UseLLM {
		t.Errorf("step = %d, use_llm = %v", rec.CurrentStep, rec.UseLLM)
	}
	if len(rec.AgentStates) != 1 || rec.AgentStates[0].Energy != 90 {
		t.Errorf("agent states = %+v", rec.AgentStates)
	}
	if len(rec.Outline.KeyEvents) != 1 {
		t.Errorf("outline events = %+v", rec.Outline.KeyEvents)
	}

	// The dangling "ghost" connection is pruned on load.
	square, _ := rec.Scene.Structure.RoomByID("square")
	if len(square.Connections) != 1 || square.Connections[0] != "shop" {
		t.Errorf("square connections = %v, want [shop]", square.Connections)
	}
}

func TestSaveStoryUpserts(t *testing.T) {
	db := openTestDB(t)
	rec := sampleRecord()
	if err := db.SaveStory("quiet-town", rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	rec.CurrentStep = 9
	if err := db.SaveStory("quiet-town", rec); err != nil {
		t.Fatalf("resave: %v", err)
	}

	back, err := db.LoadStory("quiet-town")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if back.CurrentStep != 9 {
		t.Errorf("step = %d after upsert, want 9", back.CurrentStep)
	}

	infos, err := db.ListStories()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 1 {
		t.Errorf("stories = %d after upsert, want 1", len(infos))
	}
}

func TestLoadStoryNotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.LoadStory("missing")
	if !errors.Is(err, ErrStoryNotFound) {
		t.Errorf("error = %v, want ErrStoryNotFound", err)
	}
}

func TestListAndDelete(t *testing.T) {
	db := openTestDB(t)
	db.SaveStory("alpha", sampleRecord())
	db.SaveStory("beta", sampleRecord())

	infos, err := db.ListStories()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("stories = %d, want 2", len(infos))
	}
	for _, info := range infos {
		if info.Description != "a quiet town" || info.AgentCount != 2 {
			t.Errorf("info = %+v", info)
		}
	}

	if err := db.DeleteStory("alpha"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	infos, _ = db.ListStories()
	if len(infos) != 1 || infos[0].Name != "beta" {
		t.Errorf("after delete stories = %+v", infos)
	}

	// Deleting a missing story is fine.
	if err := db.DeleteStory("alpha"); err != nil {
		t.Errorf("repeat delete: %v", err)
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	rec := sampleRecord()

	var buf bytes.Buffer
	if err := ExportArchive(&buf, rec); err != nil {
		t.Fatalf("export: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty archive")
	}

	back, err := ImportArchive(&buf)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if back.Scene.Description != rec.Scene.Description {
		t.Errorf("description = %q", back.Scene.Description)
	}
	if len(back.Agents) != 2 || back.CurrentStep != 4 {
		t.Errorf("agents = %d, step = %d", len(back.Agents), back.CurrentStep)
	}
}

func TestImportArchiveRejectsGarbage(t *testing.T) {
	if _, err := ImportArchive(bytes.NewReader([]byte("not an archive"))); err == nil {
		t.Error("garbage input should fail")
	}
}
