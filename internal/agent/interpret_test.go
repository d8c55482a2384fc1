package agent

import (
	"strings"
	"testing"

	"github.com/talgya/storytown/internal/story"
)

// fakeWorld backs interpreter tests with a fixed room set and agent roster.
type fakeWorld struct {
	rooms  map[string]story.Room
	agents map[string]*State
}

func (w fakeWorld) RoomByID(id string) (story.Room, bool) {
	r, ok := w.rooms[id]
	return r, ok
}

func (w fakeWorld) AgentByName(name string) (*State, bool) {
	a, ok := w.agents[name]
	return a, ok
}

func testWorld(agents ...*State) fakeWorld {
	w := fakeWorld{
		rooms: map[string]story.Room{
			"a": {ID: "a", X: 0, Y: 0, Width: 100, Height: 100},
			"b": {ID: "b", X: 200, Y: 0, Width: 100, Height: 100},
		},
		agents: make(map[string]*State),
	}
	for _, a := range agents {
		w.agents[a.Name] = a
	}
	return w
}

func testAgent(id int, name, room string, x, y int) *State {
	a := newState(story.Agent{ID: id, Name: name})
	a.CurrentRoom = room
	a.Position = story.Position{X: x, Y: y}
	return a
}

func TestMoveOutsideRoomFails(t *testing.T) {
	a := testAgent(0, "Mara", "a", 10, 10)
	act := story.Action{AgentID: 0, Type: story.ActionMove, Destination: &story.Position{X: 150, Y: 50}}

	out := Interpret(a, act, testWorld(a))

	if out.Success {
		t.Fatal("move outside room bounds should fail")
	}
	if a.Position.X != 10 || a.Position.Y != 10 {
		t.Errorf("failed move changed position to (%d, %d)", a.Position.X, a.Position.Y)
	}
}

func TestMoveInsideRoomSucceeds(t *testing.T) {
	a := testAgent(0, "Mara", "a", 10, 10)
	act := story.Action{AgentID: 0, Type: story.ActionMove, Destination: &story.Position{X: 80, Y: 20}}

	out := Interpret(a, act, testWorld(a))

	if !out.Success {
		t.Fatalf("move inside room failed: %s", out.Details)
	}
	if a.Position.X != 80 || a.Position.Y != 20 {
		t.Errorf("position = (%d, %d), want (80, 20)", a.Position.X, a.Position.Y)
	}
}

func TestMoveNilDestinationStaysPut(t *testing.T) {
	a := testAgent(0, "Mara", "a", 30, 40)
	out := Interpret(a, story.Action{AgentID: 0, Type: story.ActionMove}, testWorld(a))

	if !out.Success {
		t.Fatalf("staying in place should succeed: %s", out.Details)
	}
	if a.Position.X != 30 || a.Position.Y != 40 {
		t.Errorf("position changed to (%d, %d)", a.Position.X, a.Position.Y)
	}
}

func TestMoveUnknownRoomFails(t *testing.T) {
	a := testAgent(0, "Mara", "nowhere", 10, 10)
	out := Interpret(a, story.Action{AgentID: 0, Type: story.ActionMove, Destination: &story.Position{X: 5, Y: 5}}, testWorld(a))
	if out.Success {
		t.Fatal("move from unknown room should fail")
	}
}

func TestTalkRequiresColocation(t *testing.T) {
	a := testAgent(0, "Mara", "a", 10, 10)
	b := testAgent(1, "Theo", "b", 250, 50)

	out := Interpret(a, story.Action{AgentID: 0, Type: story.ActionTalk, Target: "Theo", Dialogue: "hi"}, testWorld(a, b))

	if out.Success {
		t.Fatal("talk across rooms should fail")
	}
	if len(a.Relationships) != 0 {
		t.Errorf("failed talk adjusted relationships: %v", a.Relationships)
	}
}

func TestTalkSucceedsAndWarmsRelationship(t *testing.T) {
	a := testAgent(0, "Mara", "a", 10, 10)
	b := testAgent(1, "Theo", "a", 20, 20)

	out := Interpret(a, story.Action{AgentID: 0, Type: story.ActionTalk, Target: "Theo", Dialogue: "evening"}, testWorld(a, b))

	if !out.Success {
		t.Fatalf("co-located talk failed: %s", out.Details)
	}
	if got := a.Relationships[1]; got != 0.1 {
		t.Errorf("relationship = %v, want 0.1", got)
	}
	if !strings.Contains(out.Details, "evening") {
		t.Errorf("details %q missing dialogue", out.Details)
	}
}

func TestTalkEmptyTargetFails(t *testing.T) {
	a := testAgent(0, "Mara", "a", 10, 10)
	out := Interpret(a, story.Action{AgentID: 0, Type: story.ActionTalk}, testWorld(a))
	if out.Success {
		t.Fatal("talk with no target should fail")
	}
}

func TestRelationshipClamped(t *testing.T) {
	a := testAgent(0, "Mara", "a", 10, 10)
	for i := 0; i < 30; i++ {
		a.AdjustRelationship(1, 0.1)
	}
	if got := a.Relationships[1]; got != 1.0 {
		t.Errorf("relationship = %v, want clamp at 1.0", got)
	}
	for i := 0; i < 60; i++ {
		a.AdjustRelationship(1, -0.1)
	}
	if got := a.Relationships[1]; got != -1.0 {
		t.Errorf("relationship = %v, want clamp at -1.0", got)
	}
}

func TestRestRecoversEnergyWithCap(t *testing.T) {
	a := testAgent(0, "Mara", "a", 10, 10)
	a.Energy = 95

	out := Interpret(a, story.Action{AgentID: 0, Type: story.ActionRest}, testWorld(a))

	if !out.Success {
		t.Fatalf("rest failed: %s", out.Details)
	}
	if a.Energy != MaxEnergy {
		t.Errorf("energy = %d, want cap at %d", a.Energy, MaxEnergy)
	}
}

func TestInvestigateAddsMemory(t *testing.T) {
	a := testAgent(0, "Mara", "a", 10, 10)
	Interpret(a, story.Action{AgentID: 0, Type: story.ActionInvestigate}, testWorld(a))
	if len(a.Memory) != 1 || !strings.Contains(a.Memory[0].Content, "a") {
		t.Errorf("investigate memory = %v", a.Memory)
	}
}

func TestFinalizeBookkeeping(t *testing.T) {
	a := testAgent(0, "Mara", "a", 10, 10)
	act := story.Action{AgentID: 0, Type: story.ActionMove, Destination: &story.Position{X: 20, Y: 20}}

	out := Interpret(a, act, testWorld(a))
	Finalize(a, act, out)

	if a.Energy != MaxEnergy-5 {
		t.Errorf("energy = %d, want %d after move", a.Energy, MaxEnergy-5)
	}
	if a.Mood != "happy" {
		t.Errorf("mood = %q, want happy after success", a.Mood)
	}
	if a.ActionCooldown != 2 {
		t.Errorf("cooldown = %d, want 2", a.ActionCooldown)
	}
	if a.CurrentAction == nil || a.CurrentAction.Type != story.ActionMove {
		t.Error("current action not recorded")
	}
	if len(a.Memory) == 0 {
		t.Error("finalize recorded no memory")
	}

	// A failed action sours the mood but costs the same.
	fail := story.Action{AgentID: 0, Type: story.ActionMove, Destination: &story.Position{X: 999, Y: 999}}
	out = Interpret(a, fail, testWorld(a))
	Finalize(a, fail, out)
	if a.Mood != "frustrated" {
		t.Errorf("mood = %q, want frustrated after failure", a.Mood)
	}
}
