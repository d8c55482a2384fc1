// Package agent provides the runtime agent state, the per-story state store
// that owns the current action plan, and the action interpreter that applies
// plan actions to the world.
package agent

import (
	"github.com/talgya/storytown/internal/story"
)

// Energy bounds. Every mutation re-clamps into this range.
const (
	MinEnergy = 0
	MaxEnergy = 100
)

// State is the mutable runtime record for one agent, distinct from the
// persisted story.Agent it is synchronized with.
type State struct {
	ID          int
	Name        string
	Personality []string
	Goal        string

	CurrentRoom string
	Position    story.Position

	Health    int
	Energy    int
	Mood      string
	Inventory []string

	// Relationships maps other agent ids to an affinity in [-1, 1].
	Relationships map[int]float64

	// Memory is append-only. Only the snapshot accessor bounds it.
	Memory []story.MemoryEntry

	CurrentAction  *story.Action
	ActionCooldown int
	Knowledge      map[string]string
}

func newState(cfg story.Agent) *State {
	return &State{
		ID:            cfg.ID,
		Name:          cfg.Name,
		Personality:   cfg.Personality,
		Goal:          cfg.Goal,
		Health:        100,
		Energy:        MaxEnergy,
		Mood:          "neutral",
		Inventory:     []string{},
		Relationships: make(map[int]float64),
		Knowledge:     make(map[string]string),
	}
}

// AddMemory appends one entry to the memory stream. The timestamp is the
// entry's position in the stream.
func (s *State) AddMemory(content string) {
	s.Memory = append(s.Memory, story.MemoryEntry{
		Content:    content,
		Timestamp:  len(s.Memory),
		Importance: 1.0,
	})
}

// AdjustRelationship shifts the affinity toward another agent, clamped to
// [-1, 1].
func (s *State) AdjustRelationship(otherID int, delta float64) {
	v := s.Relationships[otherID] + delta
	if v > 1.0 {
		v = 1.0
	}
	if v < -1.0 {
		v = -1.0
	}
	s.Relationships[otherID] = v
}

// AdjustEnergy shifts energy, clamped to [MinEnergy, MaxEnergy].
func (s *State) AdjustEnergy(delta int) {
	s.Energy += delta
	if s.Energy > MaxEnergy {
		s.Energy = MaxEnergy
	}
	if s.Energy < MinEnergy {
		s.Energy = MinEnergy
	}
}

// snapshot builds the external read-only view: bounded memory suffix, full
// relationship map, deep copies throughout.
func (s *State) snapshot() story.AgentSnapshot {
	const memoryWindow = 5

	mem := s.Memory
	if len(mem) > memoryWindow {
		mem = mem[len(mem)-memoryWindow:]
	}
	memCopy := make([]story.MemoryEntry, len(mem))
	copy(memCopy, mem)

	rels := make(map[int]float64, len(s.Relationships))
	for id, v := range s.Relationships {
		rels[id] = v
	}

	inv := make([]string, len(s.Inventory))
	copy(inv, s.Inventory)

	var act *story.Action
	if s.CurrentAction != nil {
		c := *s.CurrentAction
		act = &c
	}

	return story.AgentSnapshot{
		ID:            s.ID,
		Name:          s.Name,
		Personality:   s.Personality,
		Goal:          s.Goal,
		Position:      s.Position,
		CurrentRoom:   s.CurrentRoom,
		Mood:          s.Mood,
		Energy:        s.Energy,
		Inventory:     inv,
		CurrentAction: act,
		Memory:        memCopy,
		Relationships: rels,
	}
}
