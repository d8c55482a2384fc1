// Action interpreter: the single state transition shared by the
// director-driven plan path and the legacy round-robin path.
package agent

import (
	"fmt"

	"github.com/talgya/storytown/internal/story"
)

// World exposes the parts of the world an action may read. Implemented by
// the simulation controller; the interpreter never mutates the world itself,
// only the acting agent.
type World interface {
	// RoomByID looks up room geometry for the given room id.
	RoomByID(id string) (story.Room, bool)
	// AgentByName resolves an agent by exact name. First match wins.
	AgentByName(name string) (*State, bool)
}

// Outcome is the result of interpreting one action.
type Outcome struct {
	Success bool   `json:"success"`
	Details string `json:"details"`
}

// Interpret applies one action to the agent and returns the outcome.
// Failures are recorded outcomes, never errors; the simulation always
// continues. Finalize must be called afterward for the shared bookkeeping.
func Interpret(a *State, act story.Action, w World) Outcome {
	switch act.Type {
	case story.ActionMove:
		return interpretMove(a, act, w)
	case story.ActionTalk:
		return interpretTalk(a, act, w)
	case story.ActionInteract:
		target := act.Target
		if target == "" {
			target = "the surroundings"
		}
		return Outcome{Success: true, Details: fmt.Sprintf("interacted with %s", target)}
	case story.ActionInvestigate:
		a.AddMemory(fmt.Sprintf("investigated %s", a.CurrentRoom))
		return Outcome{Success: true, Details: "investigated the surroundings"}
	case story.ActionRest:
		a.AdjustEnergy(10)
		return Outcome{Success: true, Details: "rested and recovered some energy"}
	case story.ActionUseItem:
		if act.Target == "" {
			return Outcome{Success: true, Details: "fumbled with an empty hand"}
		}
		return Outcome{Success: true, Details: fmt.Sprintf("used %s", act.Target)}
	default:
		return Outcome{Success: true, Details: fmt.Sprintf("did something unremarkable (%s)", act.Type)}
	}
}

func interpretMove(a *State, act story.Action, w World) Outcome {
	dest := story.Position{X: a.Position.X, Y: a.Position.Y}
	if act.Destination != nil {
		dest = *act.Destination
	}

	room, ok := w.RoomByID(a.CurrentRoom)
	if !ok {
		return Outcome{Success: false, Details: "current room is unknown"}
	}
	if !room.Contains(dest.X, dest.Y) {
		return Outcome{Success: false, Details: fmt.Sprintf("cannot move to (%d, %d)", dest.X, dest.Y)}
	}

	a.Position = dest
	return Outcome{Success: true, Details: fmt.Sprintf("moved to (%d, %d)", dest.X, dest.Y)}
}

func interpretTalk(a *State, act story.Action, w World) Outcome {
	if act.Target == "" {
		return Outcome{Success: false, Details: "nobody to talk to"}
	}

	target, ok := w.AgentByName(act.Target)
	if !ok || target.CurrentRoom != a.CurrentRoom {
		return Outcome{Success: false, Details: fmt.Sprintf("%s is not here", act.Target)}
	}

	dialogue := act.Dialogue
	if dialogue == "" {
		dialogue = fmt.Sprintf("%s: hello", a.Name)
	}
	a.AdjustRelationship(target.ID, 0.1)
	return Outcome{Success: true, Details: fmt.Sprintf("said to %s: %s", act.Target, dialogue)}
}

// Finalize applies the post-action bookkeeping shared by every action type:
// energy cost, mood label, idle cooldown, and the memory entry combining
// action type and outcome.
func Finalize(a *State, act story.Action, out Outcome) {
	if act.Type == story.ActionMove || act.Type == story.ActionInvestigate {
		a.AdjustEnergy(-5)
	}

	if out.Success {
		a.Mood = "happy"
	} else {
		a.Mood = "frustrated"
	}

	// Consumed only by the round-robin path; inert under the director.
	a.ActionCooldown = 2

	actCopy := act
	a.CurrentAction = &actCopy
	a.AddMemory(fmt.Sprintf("%s: %s", act.Type, out.Details))
}
