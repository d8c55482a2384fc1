package agent

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/talgya/storytown/internal/story"
)

// ErrNoAgent marks a plan action that references an unknown agent id.
var ErrNoAgent = errors.New("plan action references unknown agent")

// Update statuses, shared by both step strategies so downstream consumers
// need no branching.
const (
	StatusExecuted = "executed"
	StatusNoPlan   = "no_plan"
	StatusError    = "error"
	StatusCooldown = "cooldown"
)

// Update is the result record for one executed (or skipped) action.
type Update struct {
	Status       string         `json:"status"`
	AgentID      int            `json:"agent_id"`
	Action       *story.Action  `json:"action,omitempty"`
	Result       *Outcome       `json:"result,omitempty"`
	Error        string         `json:"error,omitempty"`
	Position     story.Position `json:"position"`
	CurrentRoom  string         `json:"current_room,omitempty"`
	Mood         string         `json:"mood,omitempty"`
	Energy       int            `json:"energy"`
	Inventory    []string       `json:"inventory,omitempty"`
	PlanProgress string         `json:"plan_progress,omitempty"`
}

// Store owns the canonical runtime state for every agent in one story plus
// the single outstanding action plan and its cursor. One Store per live
// simulation controller; all mutation flows through AdvanceOne/UpdateSingle.
type Store struct {
	agents map[int]*State
	plan   []story.Action
	cursor int
	rng    *rand.Rand
}

// NewStore creates an empty store seeded for deterministic room assignment
// and fallback action synthesis.
func NewStore(seed int64) *Store {
	return &Store{
		agents: make(map[int]*State),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Initialize builds one runtime state per config, replacing all prior agent
// state. When the scene has rooms, each agent starts at the center of a
// pseudo-random room. Any outstanding plan is cleared.
func (st *Store) Initialize(configs []story.Agent, structure story.Structure) {
	st.agents = make(map[int]*State, len(configs))
	st.plan = nil
	st.cursor = 0

	for i, cfg := range configs {
		cfg.ID = i
		a := newState(cfg)

		if len(structure.Rooms) > 0 {
			room := structure.Rooms[st.rng.Intn(len(structure.Rooms))]
			a.CurrentRoom = room.ID
			a.Position = room.Center()
		}

		st.agents[i] = a
	}
}

// Restore overlays persisted record fields onto the runtime states. Used
// when resuming a story so positions, rooms, moods, and energy survive a
// process restart. Records without a room keep their initialized placement.
func (st *Store) Restore(records []story.Agent) {
	for _, rec := range records {
		a, ok := st.agents[rec.ID]
		if !ok || rec.CurrentRoom == "" {
			continue
		}
		a.CurrentRoom = rec.CurrentRoom
		a.Position = story.Position{X: rec.X, Y: rec.Y}
		if rec.Mood != "" {
			a.Mood = rec.Mood
		}
		// Energy 0 is a real persisted value, not an unset field; any record
		// that carries a room carries its energy too.
		a.Energy = rec.Energy
		a.AdjustEnergy(0)
		if rec.Inventory != nil {
			a.Inventory = append([]string(nil), rec.Inventory...)
		}
	}
}

// SetPlan replaces the current plan wholesale and resets the cursor.
// Actions are not validated here; malformed entries surface as failed
// outcomes at execution time.
func (st *Store) SetPlan(plan []story.Action) {
	st.plan = plan
	st.cursor = 0
}

// PlanFinished reports whether the plan is empty or fully consumed.
func (st *Store) PlanFinished() bool {
	return st.cursor >= len(st.plan)
}

// PlanProgress renders the cursor as "consumed/total".
func (st *Store) PlanProgress() string {
	return fmt.Sprintf("%d/%d", st.cursor, len(st.plan))
}

// Get returns the runtime state for one agent id.
func (st *Store) Get(id int) (*State, bool) {
	a, ok := st.agents[id]
	return a, ok
}

// IDs returns all agent ids in ascending order.
func (st *Store) IDs() []int {
	ids := make([]int, 0, len(st.agents))
	for id := range st.agents {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// AgentByName resolves an agent by exact name; lowest id wins on duplicates.
func (st *Store) AgentByName(name string) (*State, bool) {
	for _, id := range st.IDs() {
		if st.agents[id].Name == name {
			return st.agents[id], true
		}
	}
	return nil, false
}

// AdvanceOne executes the action at the plan cursor. An unknown agent id
// yields an error-status update but still consumes the plan slot; nothing
// in a plan is fatal. Calling with a finished plan is a no-op.
func (st *Store) AdvanceOne(w World) Update {
	if st.PlanFinished() {
		return Update{Status: StatusNoPlan}
	}

	act := st.plan[st.cursor]
	a, ok := st.agents[act.AgentID]
	if !ok {
		st.cursor++
		return Update{
			Status:       StatusError,
			AgentID:      act.AgentID,
			Action:       &act,
			Error:        fmt.Sprintf("%v: %d", ErrNoAgent, act.AgentID),
			PlanProgress: st.PlanProgress(),
		}
	}

	out := Interpret(a, act, w)
	Finalize(a, act, out)
	st.cursor++

	return Update{
		Status:       StatusExecuted,
		AgentID:      a.ID,
		Action:       &act,
		Result:       &out,
		Position:     a.Position,
		CurrentRoom:  a.CurrentRoom,
		Mood:         a.Mood,
		Energy:       a.Energy,
		Inventory:    append([]string(nil), a.Inventory...),
		PlanProgress: st.PlanProgress(),
	}
}

// UpdateSingle drives one agent outside any plan, the legacy round-robin
// path. Cooldown is consumed here and only here: an agent still cooling
// down skips its turn.
func (st *Store) UpdateSingle(id int, act story.Action, w World) Update {
	a, ok := st.agents[id]
	if !ok {
		return Update{Status: StatusError, AgentID: id, Error: fmt.Sprintf("%v: %d", ErrNoAgent, id)}
	}

	if a.ActionCooldown > 0 {
		a.ActionCooldown--
		return Update{
			Status:      StatusCooldown,
			AgentID:     a.ID,
			Position:    a.Position,
			CurrentRoom: a.CurrentRoom,
			Mood:        a.Mood,
			Energy:      a.Energy,
		}
	}

	out := Interpret(a, act, w)
	Finalize(a, act, out)

	return Update{
		Status:      StatusExecuted,
		AgentID:     a.ID,
		Action:      &act,
		Result:      &out,
		Position:    a.Position,
		CurrentRoom: a.CurrentRoom,
		Mood:        a.Mood,
		Energy:      a.Energy,
		Inventory:   append([]string(nil), a.Inventory...),
	}
}

// DefaultAction synthesizes a randomized local action for one agent, used
// when no director is available: wander nearby, investigate, or rest.
func (st *Store) DefaultAction(id int) story.Action {
	kinds := []story.ActionType{story.ActionMove, story.ActionInvestigate, story.ActionRest}
	kind := kinds[st.rng.Intn(len(kinds))]

	act := story.Action{
		AgentID:   id,
		Type:      kind,
		Reasoning: "wandering without direction",
		Priority:  "medium",
	}
	if a, ok := st.agents[id]; ok {
		act.Destination = &story.Position{
			X: a.Position.X + st.rng.Intn(101) - 50,
			Y: a.Position.Y + st.rng.Intn(101) - 50,
		}
	}
	return act
}

// Snapshot returns the read-only view of every agent, ordered by id.
// Safe to call at any time: deep copies only, no mutation.
func (st *Store) Snapshot() []story.AgentSnapshot {
	snaps := make([]story.AgentSnapshot, 0, len(st.agents))
	for _, id := range st.IDs() {
		snaps = append(snaps, st.agents[id].snapshot())
	}
	return snaps
}
