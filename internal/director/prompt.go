package director

import (
	"fmt"
	"strings"
)

// buildPrompt renders the full director prompt: scene, rooms with geometry,
// every agent's current state, the scripted event for this step if any, the
// action vocabulary, and the required reply shape.
func buildPrompt(ctx Context) string {
	var b strings.Builder

	b.WriteString("You are the director of a small-town story simulation.\n")
	b.WriteString("Plan the next step so the story advances toward its outline.\n\n")

	fmt.Fprintf(&b, "Scene: %s\n", ctx.SceneDescription)
	if ctx.Outline.Title != "" {
		fmt.Fprintf(&b, "Story: %s", ctx.Outline.Title)
		if ctx.Outline.Theme != "" {
			fmt.Fprintf(&b, " (theme: %s)", ctx.Outline.Theme)
		}
		b.WriteString("\n")
	}
	if ctx.Outline.MainConflict != "" {
		fmt.Fprintf(&b, "Main conflict: %s\n", ctx.Outline.MainConflict)
	}
	fmt.Fprintf(&b, "Current step: %d\n\n", ctx.CurrentStep)

	b.WriteString("Rooms:\n")
	for _, r := range ctx.Structure.Rooms {
		fmt.Fprintf(&b, "- %s (%s): rect x=%d y=%d w=%d h=%d", r.ID, r.Name, r.X, r.Y, r.Width, r.Height)
		if len(r.Connections) > 0 {
			fmt.Fprintf(&b, ", connects to %s", strings.Join(r.Connections, ", "))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString("Agents:\n")
	for _, a := range ctx.Agents {
		fmt.Fprintf(&b, "- id=%d %s", a.ID, a.Name)
		if len(a.Personality) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(a.Personality, ", "))
		}
		if a.Goal != "" {
			fmt.Fprintf(&b, " goal: %s.", a.Goal)
		}
		fmt.Fprintf(&b, " In %s at (%d, %d), mood %s, energy %d.",
			a.CurrentRoom, a.Position.X, a.Position.Y, a.Mood, a.Energy)
		if len(a.Memory) > 0 {
			fmt.Fprintf(&b, " Last: %s", a.Memory[len(a.Memory)-1].Content)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for _, ev := range ctx.Outline.KeyEvents {
		if ev.Step == ctx.CurrentStep {
			fmt.Fprintf(&b, "Scripted event for this step: %s\n", ev.Description)
			if ev.Location != "" {
				fmt.Fprintf(&b, "Location: %s\n", ev.Location)
			}
			if len(ev.Participants) > 0 {
				fmt.Fprintf(&b, "Participants: %s\n", strings.Join(ev.Participants, ", "))
			}
			b.WriteString("Weave this event into the plan.\n\n")
			break
		}
	}

	b.WriteString("Allowed action_type values: move, talk, interact, investigate, rest, use_item.\n")
	b.WriteString("For move, destination must stay inside the agent's current room rectangle.\n")
	b.WriteString("For talk, target is another agent's name in the same room; include dialogue.\n\n")

	b.WriteString("Reply with JSON only, in exactly this shape:\n")
	b.WriteString(`{
  "narrative_summary": "one or two sentences describing what happens this step",
  "action_plan": [
    {
      "agent_id": 0,
      "action_type": "move",
      "target": "",
      "dialogue": "",
      "destination": {"x": 100, "y": 120},
      "expected_outcome": "",
      "reasoning": "",
      "priority": "medium"
    }
  ]
}`)
	b.WriteString("\nInclude one action per agent where it serves the story.\n")

	return b.String()
}
