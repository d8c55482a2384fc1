// Package story provides the data model for one persisted story: its scene,
// rooms, agent records, outline, and the action vocabulary the simulation
// executes against them.
package story

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Position is a point on the scene map.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Room is one area of the scene map. Rooms are created at generation time
// and never change during simulation; only agent state does.
type Room struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Rectangular bounds.
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`

	Color            string   `json:"color,omitempty"`
	Connections      []string `json:"connections"`
	SpecialFeatures  []string `json:"special_features,omitempty"`
	InitialOccupants []string `json:"initial_occupants,omitempty"`
	KeyItems         []string `json:"key_items,omitempty"`
}

// Contains reports whether (x, y) lies within the room's rectangle.
// Edges count as inside.
func (r Room) Contains(x, y int) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// Center returns the midpoint of the room's rectangle.
func (r Room) Center() Position {
	return Position{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// RoomRelationship is an explicit connection between two rooms, richer than
// the plain Connections list (carries a connection type and access rules).
type RoomRelationship struct {
	From              string `json:"from"`
	To                string `json:"to"`
	ConnectionType    string `json:"connection_type,omitempty"`
	AccessRequirement string `json:"access_requirement,omitempty"`
}

// Structure is the spatial layout of a scene.
type Structure struct {
	MapType           string             `json:"map_type"`
	Rooms             []Room             `json:"rooms"`
	RoomRelationships []RoomRelationship `json:"room_relationships,omitempty"`
}

// RoomByID returns the room with the given id.
func (s Structure) RoomByID(id string) (Room, bool) {
	for _, r := range s.Rooms {
		if r.ID == id {
			return r, true
		}
	}
	return Room{}, false
}

// PruneConnections drops connection ids that do not reference an existing
// room. Run on every load; generated structures are not trusted.
func (s *Structure) PruneConnections() {
	known := make(map[string]bool, len(s.Rooms))
	for _, r := range s.Rooms {
		known[r.ID] = true
	}
	for i := range s.Rooms {
		valid := s.Rooms[i].Connections[:0]
		for _, c := range s.Rooms[i].Connections {
			if known[c] {
				valid = append(valid, c)
			}
		}
		s.Rooms[i].Connections = valid
	}
}

// Scene is the setting of a story.
type Scene struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Structure   Structure `json:"structure"`
	GeneratedBy string    `json:"generated_by,omitempty"`
}

// Agent is the authoritative persisted record for one character. The id is
// stable, 0-based, and matches the agent's index in the story's agent array.
// Runtime state (agent.State) is derived from this record and written back
// after every executed action.
type Agent struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Personality []string `json:"personality"`
	Goal        string   `json:"goal"`

	X           int    `json:"x"`
	Y           int    `json:"y"`
	CurrentRoom string `json:"current_room,omitempty"`

	Mood      string   `json:"mood,omitempty"`
	Energy    int      `json:"energy,omitempty"`
	Inventory []string `json:"inventory,omitempty"`

	Color      string `json:"color,omitempty"`
	LLMEnabled bool   `json:"llm_enabled,omitempty"`
}

// KeyEvent is a scripted story beat tied to a specific step number.
type KeyEvent struct {
	Step            int      `json:"step"`
	EventType       string   `json:"event_type,omitempty"`
	Description     string   `json:"description"`
	Participants    []string `json:"participants,omitempty"`
	Location        string   `json:"location,omitempty"`
	Impact          string   `json:"impact,omitempty"`
	NextStepTrigger string   `json:"next_step_trigger,omitempty"`
}

// CharacterArc sketches how one character is meant to develop.
type CharacterArc struct {
	Character        string `json:"character"`
	InitialState     string `json:"initial_state,omitempty"`
	DevelopmentSteps []int  `json:"development_steps,omitempty"`
	FinalState       string `json:"final_state,omitempty"`
}

// PlotMilestone marks a major plot point at a given step.
type PlotMilestone struct {
	Step         int    `json:"step"`
	Milestone    string `json:"milestone"`
	Consequences string `json:"consequences,omitempty"`
}

// Outline is the story plan produced at generation time.
type Outline struct {
	Title          string          `json:"title"`
	Theme          string          `json:"theme,omitempty"`
	MainConflict   string          `json:"main_conflict,omitempty"`
	KeyEvents      []KeyEvent      `json:"key_events"`
	SceneStructure Structure       `json:"scene_structure"`
	CharacterArcs  []CharacterArc  `json:"character_arcs,omitempty"`
	PlotMilestones []PlotMilestone `json:"plot_milestones,omitempty"`
}

// ActionType enumerates what an agent can do in one plan slot.
type ActionType string

const (
	ActionMove        ActionType = "move"
	ActionTalk        ActionType = "talk"
	ActionInteract    ActionType = "interact"
	ActionInvestigate ActionType = "investigate"
	ActionRest        ActionType = "rest"
	ActionUseItem     ActionType = "use_item"
)

// Action is one slot of a step plan. Most fields are optional; defaults are
// resolved at execution time, not here:
//   - Target: empty means no target (talk then fails, interact is generic).
//   - Dialogue: empty means the interpreter records no spoken line.
//   - Destination: nil means "stay in place" for move.
//   - Priority: empty is treated as "medium".
type Action struct {
	AgentID         int        `json:"agent_id"`
	Type            ActionType `json:"action_type"`
	Target          string     `json:"target,omitempty"`
	Dialogue        string     `json:"dialogue,omitempty"`
	Destination     *Position  `json:"destination,omitempty"`
	ExpectedOutcome string     `json:"expected_outcome,omitempty"`
	Reasoning       string     `json:"reasoning,omitempty"`
	Priority        string     `json:"priority,omitempty"`
}

// MemoryEntry is one record in an agent's append-only memory stream.
// Timestamp is the entry's sequence index, not wall time.
type MemoryEntry struct {
	Content    string  `json:"content"`
	Timestamp  int     `json:"timestamp"`
	Importance float64 `json:"importance"`
}

// AgentSnapshot is the read-only view of one agent's runtime state exposed
// to external callers and to the director. Memory holds only a bounded
// suffix of the stream; Relationships is the full mapping.
type AgentSnapshot struct {
	ID            int             `json:"id"`
	Name          string          `json:"name"`
	Personality   []string        `json:"personality,omitempty"`
	Goal          string          `json:"goal,omitempty"`
	Position      Position        `json:"position"`
	CurrentRoom   string          `json:"current_room,omitempty"`
	Mood          string          `json:"mood"`
	Energy        int             `json:"energy"`
	Inventory     []string        `json:"inventory"`
	CurrentAction *Action         `json:"current_action,omitempty"`
	Memory        []MemoryEntry   `json:"memory,omitempty"`
	Relationships map[int]float64 `json:"relationships,omitempty"`
}

// Config holds the per-story generation and playback settings.
type Config struct {
	SceneDescription string `json:"scene_description"`
	AgentCount       int    `json:"agent_count"`
	AutoPlay         bool   `json:"auto_play"`
	ShowBubbles      bool   `json:"show_bubbles"`
	AnimationSpeed   int    `json:"animation_speed"`
	UseLLM           bool   `json:"use_llm"`
	MaxSteps         int    `json:"max_steps"`
}

// Record is the persisted story document. The key set is a compatibility
// contract: stored stories must remain loadable across versions.
type Record struct {
	Scene       Scene           `json:"scene"`
	Agents      []Agent         `json:"agents"`
	Outline     Outline         `json:"outline"`
	Config      Config          `json:"config"`
	UseLLM      bool            `json:"use_llm"`
	AgentStates []AgentSnapshot `json:"agent_states,omitempty"`
	CurrentStep int             `json:"current_step,omitempty"`
}

var slugStrip = regexp.MustCompile(`[^\w\-.]`)

// SlugFromDescription derives a story name from a scene description: the
// first few words, sanitized for use as an identifier. Falls back to a
// random id when the description yields nothing usable.
func SlugFromDescription(desc string) string {
	words := strings.Fields(desc)
	if len(words) > 4 {
		words = words[:4]
	}
	slug := slugStrip.ReplaceAllString(strings.Join(words, "_"), "_")
	slug = strings.Trim(slug, "_")
	if slug == "" {
		return "story_" + uuid.NewString()[:8]
	}
	if len(slug) > 48 {
		slug = slug[:48]
	}
	return strings.ToLower(slug)
}
