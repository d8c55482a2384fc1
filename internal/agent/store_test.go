package agent

import (
	"testing"

	"github.com/talgya/storytown/internal/story"
)

func storeWorld(st *Store) fakeWorld {
	w := fakeWorld{
		rooms: map[string]story.Room{
			"a": {ID: "a", X: 0, Y: 0, Width: 100, Height: 100},
		},
		agents: make(map[string]*State),
	}
	for _, id := range st.IDs() {
		a, _ := st.Get(id)
		w.agents[a.Name] = a
	}
	return w
}

func newTestStore(t *testing.T, names ...string) *Store {
	t.Helper()
	st := NewStore(1)
	configs := make([]story.Agent, len(names))
	for i, n := range names {
		configs[i] = story.Agent{Name: n}
	}
	st.Initialize(configs, story.Structure{
		Rooms: []story.Room{{ID: "a", X: 0, Y: 0, Width: 100, Height: 100}},
	})
	return st
}

func TestInitializePlacesAgentsAtRoomCenter(t *testing.T) {
	st := newTestStore(t, "Mara", "Theo")

	for _, id := range st.IDs() {
		a, _ := st.Get(id)
		if a.CurrentRoom != "a" {
			t.Errorf("agent %d room = %q, want a", id, a.CurrentRoom)
		}
		if a.Position.X != 50 || a.Position.Y != 50 {
			t.Errorf("agent %d position = (%d, %d), want room center (50, 50)", id, a.Position.X, a.Position.Y)
		}
	}
	if !st.PlanFinished() {
		t.Error("fresh store should report plan finished")
	}
}

func TestPlanCursorAdvancesOnePerCall(t *testing.T) {
	st := newTestStore(t, "Mara", "Theo")
	st.SetPlan([]story.Action{
		{AgentID: 0, Type: story.ActionRest},
		{AgentID: 1, Type: story.ActionRest},
		{AgentID: 0, Type: story.ActionInvestigate},
	})
	w := storeWorld(st)

	if st.PlanFinished() {
		t.Fatal("plan with 3 actions should not be finished")
	}

	for i := 0; i < 3; i++ {
		upd := st.AdvanceOne(w)
		if upd.Status != StatusExecuted {
			t.Fatalf("call %d status = %q, want executed", i, upd.Status)
		}
		wantFinished := i == 2
		if st.PlanFinished() != wantFinished {
			t.Errorf("after call %d finished = %v, want %v", i, st.PlanFinished(), wantFinished)
		}
	}

	if got := st.PlanProgress(); got != "3/3" {
		t.Errorf("progress = %q, want 3/3", got)
	}
}

func TestAdvanceAfterFinishIsNoOp(t *testing.T) {
	st := newTestStore(t, "Mara")
	st.SetPlan([]story.Action{{AgentID: 0, Type: story.ActionRest}})
	w := storeWorld(st)
	st.AdvanceOne(w)

	before, _ := st.Get(0)
	mem := len(before.Memory)

	upd := st.AdvanceOne(w)
	if upd.Status != StatusNoPlan {
		t.Errorf("status = %q, want no_plan", upd.Status)
	}
	after, _ := st.Get(0)
	if len(after.Memory) != mem {
		t.Error("no-op advance mutated agent state")
	}
}

func TestUnknownAgentStillConsumesSlot(t *testing.T) {
	st := newTestStore(t, "Mara")
	st.SetPlan([]story.Action{
		{AgentID: 99, Type: story.ActionRest},
		{AgentID: 0, Type: story.ActionRest},
	})
	w := storeWorld(st)

	upd := st.AdvanceOne(w)
	if upd.Status != StatusError {
		t.Fatalf("status = %q, want error", upd.Status)
	}
	if upd.Error == "" {
		t.Error("error update missing message")
	}
	if st.PlanFinished() {
		t.Fatal("one bad slot should not finish a 2-action plan")
	}

	// The next slot executes normally.
	upd = st.AdvanceOne(w)
	if upd.Status != StatusExecuted {
		t.Errorf("status = %q, want executed", upd.Status)
	}
	if !st.PlanFinished() {
		t.Error("plan should be finished after both slots")
	}
}

func TestUpdateSingleConsumesCooldown(t *testing.T) {
	st := newTestStore(t, "Mara")
	w := storeWorld(st)

	upd := st.UpdateSingle(0, story.Action{AgentID: 0, Type: story.ActionRest}, w)
	if upd.Status != StatusExecuted {
		t.Fatalf("first update status = %q, want executed", upd.Status)
	}

	// Finalize set the cooldown; the next two turns are skipped.
	for i := 0; i < 2; i++ {
		upd = st.UpdateSingle(0, story.Action{AgentID: 0, Type: story.ActionRest}, w)
		if upd.Status != StatusCooldown {
			t.Fatalf("turn %d status = %q, want cooldown", i, upd.Status)
		}
	}

	upd = st.UpdateSingle(0, story.Action{AgentID: 0, Type: story.ActionRest}, w)
	if upd.Status != StatusExecuted {
		t.Errorf("post-cooldown status = %q, want executed", upd.Status)
	}
}

func TestSnapshotBoundsMemoryAndCopies(t *testing.T) {
	st := newTestStore(t, "Mara")
	a, _ := st.Get(0)
	for i := 0; i < 8; i++ {
		a.AddMemory("event")
	}
	a.Inventory = []string{"lantern"}

	snaps := st.Snapshot()
	if len(snaps) != 1 {
		t.Fatalf("snapshot count = %d", len(snaps))
	}
	if len(snaps[0].Memory) != 5 {
		t.Errorf("snapshot memory = %d entries, want 5", len(snaps[0].Memory))
	}

	snaps[0].Inventory[0] = "mutated"
	if a.Inventory[0] != "lantern" {
		t.Error("snapshot shares inventory backing array with live state")
	}
}

func TestDefaultActionIsLocal(t *testing.T) {
	st := newTestStore(t, "Mara")
	for i := 0; i < 20; i++ {
		act := st.DefaultAction(0)
		switch act.Type {
		case story.ActionMove, story.ActionInvestigate, story.ActionRest:
		default:
			t.Fatalf("unexpected default action %q", act.Type)
		}
		if act.Type == story.ActionMove && act.Destination == nil {
			t.Fatal("default move has no destination")
		}
	}
}

func TestRestoreOverlaysPersistedState(t *testing.T) {
	st := newTestStore(t, "Mara", "Theo")
	st.Restore([]story.Agent{
		{ID: 0, CurrentRoom: "a", X: 12, Y: 34, Mood: "happy", Energy: 60, Inventory: []string{"key"}},
		{ID: 1}, // no room: keeps initialized placement
	})

	a, _ := st.Get(0)
	if a.Position.X != 12 || a.Position.Y != 34 || a.Mood != "happy" || a.Energy != 60 {
		t.Errorf("restore did not overlay state: %+v", a)
	}
	if len(a.Inventory) != 1 || a.Inventory[0] != "key" {
		t.Errorf("inventory = %v", a.Inventory)
	}

	b, _ := st.Get(1)
	if b.Position.X != 50 || b.Position.Y != 50 {
		t.Errorf("agent without persisted room moved to (%d, %d)", b.Position.X, b.Position.Y)
	}
}

func TestRestoreKeepsDrainedEnergy(t *testing.T) {
	st := newTestStore(t, "Mara")
	st.Restore([]story.Agent{
		{ID: 0, CurrentRoom: "a", X: 12, Y: 34, Energy: 0},
	})

	a, _ := st.Get(0)
	if a.Energy != 0 {
		t.Errorf("energy = %d after restoring a drained agent, want 0", a.Energy)
	}
}
