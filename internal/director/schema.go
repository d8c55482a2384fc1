package director

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// planSchema gates model output before it is trusted as a plan. Unknown
// fields pass through; only the shape the executor depends on is enforced.
const planSchema = `{
  "type": "object",
  "required": ["narrative_summary", "action_plan"],
  "properties": {
    "narrative_summary": {"type": "string"},
    "action_plan": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["agent_id", "action_type"],
        "properties": {
          "agent_id": {"type": "integer"},
          "action_type": {
            "type": "string",
            "enum": ["move", "talk", "interact", "investigate", "rest", "use_item"]
          },
          "target": {"type": "string"},
          "dialogue": {"type": "string"},
          "destination": {
            "type": "object",
            "required": ["x", "y"],
            "properties": {
              "x": {"type": "integer"},
              "y": {"type": "integer"}
            }
          },
          "priority": {"type": "string"}
        }
      }
    }
  }
}`

var compiledPlanSchema = jsonschema.MustCompileString("plan.json", planSchema)

// validatePlan checks a raw JSON document against the plan schema.
func validatePlan(raw string) error {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("parse plan: %w", err)
	}
	if err := compiledPlanSchema.Validate(doc); err != nil {
		return fmt.Errorf("validate plan: %w", err)
	}
	return nil
}
