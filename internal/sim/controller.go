// Package sim runs story simulations: one controller per live story, a step
// strategy that decides how agents act, and a registry that hands out
// controllers by story name.
package sim

import (
	"fmt"
	"strings"
	"sync"

	"github.com/talgya/storytown/internal/agent"
	"github.com/talgya/storytown/internal/story"
)

// Step statuses reported to API clients.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// StepRecord is one entry of a story's event history.
type StepRecord struct {
	Step        int    `json:"step"`
	AgentID     int    `json:"agent_id"`
	Description string `json:"description"`
	Event       string `json:"event,omitempty"`
}

// SceneData is the render payload attached to step results.
type SceneData struct {
	Agents    []story.AgentSnapshot `json:"agents"`
	Structure story.Structure       `json:"scene_structure"`
}

// StepResult is the outcome of one SimulateStep call.
type StepResult struct {
	Status           string                `json:"status"`
	Reason           string                `json:"reason,omitempty"`
	Step             int                   `json:"step"`
	AgentUpdate      *agent.Update         `json:"agent_update,omitempty"`
	TriggeredEvent   string                `json:"triggered_event,omitempty"`
	AllAgentStates   []story.AgentSnapshot `json:"all_agent_states"`
	SceneData        SceneData             `json:"scene_data"`
	PlanProgress     string                `json:"plan_progress,omitempty"`
	NarrativeSummary string                `json:"narrative_summary,omitempty"`
}

// Controller owns one story's live simulation state. All public methods are
// safe for concurrent use; SimulateStep serializes under the lock so each
// call executes exactly one action.
type Controller struct {
	mu sync.Mutex

	name     string
	scene    story.Scene
	agents   []story.Agent
	outline  story.Outline
	config   story.Config
	store    *agent.Store
	strategy StepStrategy

	currentStep int
	maxSteps    int
	history     []StepRecord
	narrative   string
	seed        int64
}

// NewController builds a controller from a persisted record. Agent runtime
// state is initialized from the record's agent list, then overlaid with any
// persisted positions so resumed stories pick up where they stopped.
func NewController(name string, rec story.Record, strategy StepStrategy, seed int64) (*Controller, error) {
	if len(rec.Agents) == 0 {
		return nil, fmt.Errorf("story %q has no agents", name)
	}

	maxSteps := rec.Config.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 30
	}

	c := &Controller{
		name:        name,
		scene:       rec.Scene,
		agents:      rec.Agents,
		outline:     rec.Outline,
		config:      rec.Config,
		store:       agent.NewStore(seed),
		strategy:    strategy,
		currentStep: rec.CurrentStep,
		maxSteps:    maxSteps,
		seed:        seed,
	}

	c.scene.Structure.PruneConnections()
	c.store.Initialize(rec.Agents, c.scene.Structure)
	c.store.Restore(rec.Agents)
	c.syncRecordsFromStore()

	return c, nil
}

// world adapts the controller's structure and store to agent.World.
type world struct {
	structure story.Structure
	store     *agent.Store
}

func (w world) RoomByID(id string) (story.Room, bool) { return w.structure.RoomByID(id) }

func (w world) AgentByName(name string) (*agent.State, bool) { return w.store.AgentByName(name) }

// SimulateStep advances the story by exactly one action (or one planning
// round when the current plan is exhausted) and returns the result.
func (c *Controller) SimulateStep() StepResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.strategy.Step(c)
}

// completedResult is shared by both strategies once the step cap is hit.
func (c *Controller) completedResult() StepResult {
	return StepResult{
		Status:         StatusCompleted,
		Reason:         fmt.Sprintf("reached max steps (%d)", c.maxSteps),
		Step:           c.currentStep,
		AllAgentStates: c.store.Snapshot(),
		SceneData:      c.sceneData(),
	}
}

func (c *Controller) sceneData() SceneData {
	return SceneData{Agents: c.store.Snapshot(), Structure: c.scene.Structure}
}

// writeBack copies an executed update onto the persisted agent record so the
// next save carries current positions.
func (c *Controller) writeBack(upd agent.Update) {
	if upd.Status != agent.StatusExecuted {
		return
	}
	if upd.AgentID < 0 || upd.AgentID >= len(c.agents) {
		return
	}
	rec := &c.agents[upd.AgentID]
	rec.X = upd.Position.X
	rec.Y = upd.Position.Y
	rec.CurrentRoom = upd.CurrentRoom
	rec.Mood = upd.Mood
	rec.Energy = upd.Energy
	if upd.Inventory != nil {
		rec.Inventory = upd.Inventory
	}
}

// syncRecordsFromStore pulls initialized placements back into the persisted
// records so a story saved before its first step already has positions.
func (c *Controller) syncRecordsFromStore() {
	for i := range c.agents {
		st, ok := c.store.Get(c.agents[i].ID)
		if !ok {
			continue
		}
		c.agents[i].X = st.Position.X
		c.agents[i].Y = st.Position.Y
		c.agents[i].CurrentRoom = st.CurrentRoom
		if c.agents[i].Mood == "" {
			c.agents[i].Mood = st.Mood
		}
		if c.agents[i].Energy == 0 {
			c.agents[i].Energy = st.Energy
		}
	}
}

// checkStoryEvents matches the executed action against this step's scripted
// events. An event with an empty trigger always fires; otherwise the trigger
// text is matched by substring against the action vocabulary. First match
// wins.
func (c *Controller) checkStoryEvents(upd agent.Update) string {
	if upd.Status != agent.StatusExecuted || upd.Action == nil {
		return ""
	}
	for _, ev := range c.outline.KeyEvents {
		if ev.Step != c.currentStep {
			continue
		}
		if evaluateTrigger(ev.NextStepTrigger, upd.Action.Type) {
			return ev.Description
		}
	}
	return ""
}

func evaluateTrigger(cond string, actionType story.ActionType) bool {
	if cond == "" {
		return true
	}
	cond = strings.ToLower(cond)
	for _, kind := range []story.ActionType{story.ActionMove, story.ActionTalk, story.ActionInteract} {
		if strings.Contains(cond, string(kind)) {
			return actionType == kind
		}
	}
	return true
}

// appendHistory records one consumed plan slot in the event history. Error
// slots are kept too so the history accounts for every action the plan
// scheduled; cooldown and no-plan calls leave no trace.
func (c *Controller) appendHistory(upd agent.Update, event string) {
	if upd.Status != agent.StatusExecuted && upd.Status != agent.StatusError {
		return
	}
	desc := upd.Error
	if upd.Result != nil {
		desc = upd.Result.Details
	}
	c.history = append(c.history, StepRecord{
		Step:        c.currentStep,
		AgentID:     upd.AgentID,
		Description: desc,
		Event:       event,
	})
}

// Name returns the story name this controller runs.
func (c *Controller) Name() string { return c.name }

// Structure returns the scene's room layout. Immutable after construction.
func (c *Controller) Structure() story.Structure { return c.scene.Structure }

// Seed returns the story's simulation seed.
func (c *Controller) Seed() int64 { return c.seed }

// Record renders the current state as a persistable story record.
func (c *Controller) Record() story.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return story.Record{
		Scene:       c.scene,
		Agents:      append([]story.Agent(nil), c.agents...),
		Outline:     c.outline,
		Config:      c.config,
		UseLLM:      c.config.UseLLM,
		AgentStates: c.store.Snapshot(),
		CurrentStep: c.currentStep,
	}
}

// GetCurrentState returns the playback view of the story.
func (c *Controller) GetCurrentState() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	hist := c.history
	if len(hist) > 10 {
		hist = hist[len(hist)-10:]
	}
	histCopy := make([]StepRecord, len(hist))
	copy(histCopy, hist)

	progress := 0.0
	if c.maxSteps > 0 {
		progress = float64(c.currentStep) / float64(c.maxSteps) * 100
		if progress > 100 {
			progress = 100
		}
	}

	return map[string]any{
		"current_step":        c.currentStep,
		"max_steps":           c.maxSteps,
		"story_outline":       c.outline,
		"agent_states":        c.store.Snapshot(),
		"event_history":       histCopy,
		"progress_percentage": progress,
		"narrative_summary":   c.narrative,
		"scene_data":          c.sceneData(),
	}
}

// GetMapData returns the map view: rooms, agent markers, and center-to-center
// paths. Explicit room relationships win; plain connections fill in when the
// structure has none.
func (c *Controller) GetMapData() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	positions := make([]map[string]any, 0, len(c.agents))
	for _, a := range c.agents {
		positions = append(positions, map[string]any{
			"id":           a.ID,
			"name":         a.Name,
			"x":            a.X,
			"y":            a.Y,
			"current_room": a.CurrentRoom,
			"color":        a.Color,
		})
	}

	type pathPair struct{ from, to string }
	var pairs []pathPair
	if len(c.scene.Structure.RoomRelationships) > 0 {
		for _, rel := range c.scene.Structure.RoomRelationships {
			pairs = append(pairs, pathPair{rel.From, rel.To})
		}
	} else {
		for _, r := range c.scene.Structure.Rooms {
			for _, conn := range r.Connections {
				pairs = append(pairs, pathPair{r.ID, conn})
			}
		}
	}

	paths := make([]map[string]any, 0, len(pairs))
	for _, p := range pairs {
		from, okFrom := c.scene.Structure.RoomByID(p.from)
		to, okTo := c.scene.Structure.RoomByID(p.to)
		if !okFrom || !okTo {
			continue
		}
		fc, tc := from.Center(), to.Center()
		paths = append(paths, map[string]any{
			"from": p.from, "to": p.to,
			"x1": fc.X, "y1": fc.Y,
			"x2": tc.X, "y2": tc.Y,
		})
	}

	return map[string]any{
		"map_type":        c.scene.Structure.MapType,
		"rooms":           c.scene.Structure.Rooms,
		"agent_positions": positions,
		"paths":           paths,
	}
}
