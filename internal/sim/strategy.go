package sim

import (
	"log/slog"

	"github.com/talgya/storytown/internal/director"
	"github.com/talgya/storytown/internal/story"
)

// StepStrategy decides how one SimulateStep call advances the story. Both
// implementations run under the controller's lock.
type StepStrategy interface {
	Step(c *Controller) StepResult
}

// Planner produces a narrative and action plan for one step. Satisfied by
// *director.Director; tests inject fakes.
type Planner interface {
	GenerateStepPlan(ctx director.Context) (string, []story.Action)
}

// DirectorStrategy drives the story from model-generated plans. Each call
// executes exactly one plan action; when the plan is exhausted, the call
// first asks the planner for the next step's plan. The step counter only
// advances when a plan is fully consumed, so one story step spans as many
// calls as the plan has actions.
type DirectorStrategy struct {
	Planner Planner
}

func (s *DirectorStrategy) Step(c *Controller) StepResult {
	if c.currentStep >= c.maxSteps {
		return c.completedResult()
	}

	if c.store.PlanFinished() {
		narrative, plan := s.Planner.GenerateStepPlan(director.Context{
			SceneDescription: c.scene.Description,
			Structure:        c.scene.Structure,
			CurrentStep:      c.currentStep,
			Agents:           c.store.Snapshot(),
			Outline:          c.outline,
		})
		c.narrative = narrative
		c.store.SetPlan(plan)

		if len(plan) == 0 {
			slog.Warn("no plan for step", "story", c.name, "step", c.currentStep)
			return StepResult{
				Status:           StatusError,
				Reason:           "director produced no plan",
				Step:             c.currentStep,
				AllAgentStates:   c.store.Snapshot(),
				SceneData:        c.sceneData(),
				PlanProgress:     c.store.PlanProgress(),
				NarrativeSummary: c.narrative,
			}
		}
	}

	upd := c.store.AdvanceOne(world{structure: c.scene.Structure, store: c.store})
	c.writeBack(upd)

	// Scripted events are evaluated once per story step, against the action
	// that consumes the plan.
	finished := c.store.PlanFinished()
	event := ""
	if finished {
		event = c.checkStoryEvents(upd)
	}
	c.appendHistory(upd, event)

	step := c.currentStep
	if finished {
		c.currentStep++
	}

	return StepResult{
		Status:           StatusRunning,
		Step:             step,
		AgentUpdate:      &upd,
		TriggeredEvent:   event,
		AllAgentStates:   c.store.Snapshot(),
		SceneData:        c.sceneData(),
		PlanProgress:     upd.PlanProgress,
		NarrativeSummary: c.narrative,
	}
}

// RoundRobinStrategy is the plan-free fallback: each call picks one agent by
// step order, synthesizes a local action, and advances the step counter.
// Agent cooldowns apply only on this path.
type RoundRobinStrategy struct{}

func (s *RoundRobinStrategy) Step(c *Controller) StepResult {
	if c.currentStep >= c.maxSteps {
		return c.completedResult()
	}

	ids := c.store.IDs()
	if len(ids) == 0 {
		return StepResult{
			Status:    StatusError,
			Reason:    "no agents",
			Step:      c.currentStep,
			SceneData: c.sceneData(),
		}
	}

	id := ids[c.currentStep%len(ids)]
	act := c.store.DefaultAction(id)
	upd := c.store.UpdateSingle(id, act, world{structure: c.scene.Structure, store: c.store})
	c.writeBack(upd)

	event := c.checkStoryEvents(upd)
	c.appendHistory(upd, event)

	step := c.currentStep
	c.currentStep++

	return StepResult{
		Status:         StatusRunning,
		Step:           step,
		AgentUpdate:    &upd,
		TriggeredEvent: event,
		AllAgentStates: c.store.Snapshot(),
		SceneData:      c.sceneData(),
	}
}
