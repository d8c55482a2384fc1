// Package director produces per-step narratives and action plans by asking
// a language model to direct the story. Every failure mode degrades to a
// placeholder narrative and an empty plan; the simulation never stalls on
// the model.
package director

import (
	"encoding/json"
	"log/slog"

	"github.com/talgya/storytown/internal/llm"
	"github.com/talgya/storytown/internal/story"
)

// fallbackNarrative is returned whenever the model call or its output
// fails. An empty plan alongside it tells the controller "no progress".
const fallbackNarrative = "The director is momentarily speechless; the town holds its breath."

// ChatClient is the single model capability the director needs.
// *llm.Client satisfies it; tests inject fakes.
type ChatClient interface {
	Chat(prompt string) (string, error)
}

// Director turns simulation context into one step's narrative and plan.
type Director struct {
	client ChatClient
}

// New creates a director. A nil client is allowed; every call then yields
// the fallback result.
func New(client ChatClient) *Director {
	return &Director{client: client}
}

// Context is everything the director sees when planning one step.
type Context struct {
	SceneDescription string
	Structure        story.Structure
	CurrentStep      int
	Agents           []story.AgentSnapshot
	Outline          story.Outline
}

// planDocument is the wire shape the model is asked to produce.
type planDocument struct {
	NarrativeSummary string         `json:"narrative_summary"`
	ActionPlan       []story.Action `json:"action_plan"`
}

// GenerateStepPlan asks the model for the next step's narrative and action
// plan. On any failure (transport, no JSON, malformed or schema-invalid
// document) it logs a warning and returns the fallback narrative with an
// empty plan.
func (d *Director) GenerateStepPlan(ctx Context) (string, []story.Action) {
	if d.client == nil {
		return fallbackNarrative, nil
	}

	reply, err := d.client.Chat(buildPrompt(ctx))
	if err != nil {
		slog.Warn("director chat failed", "step", ctx.CurrentStep, "error", err)
		return fallbackNarrative, nil
	}

	raw, err := llm.ExtractJSON(reply)
	if err != nil {
		slog.Warn("director reply had no plan", "step", ctx.CurrentStep, "error", err)
		return fallbackNarrative, nil
	}

	if err := validatePlan(raw); err != nil {
		slog.Warn("director plan rejected", "step", ctx.CurrentStep, "error", err)
		return fallbackNarrative, nil
	}

	var doc planDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		slog.Warn("director plan unparseable", "step", ctx.CurrentStep, "error", err)
		return fallbackNarrative, nil
	}

	slog.Debug("director plan accepted",
		"step", ctx.CurrentStep,
		"actions", len(doc.ActionPlan),
	)
	return doc.NarrativeSummary, doc.ActionPlan
}
