package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// buildPlanSchema is the minimal contract a plan generator response must meet
// before it is offered for approval. The plan body stays opaque beyond this.
var buildPlanSchema = map[string]any{
	"type":     "object",
	"required": []any{"summary", "items"},
	"properties": map[string]any{
		"summary": map[string]any{"type": "string", "minLength": 1},
		"items": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":     "object",
				"required": []any{"kind", "name"},
				"properties": map[string]any{
					"kind": map[string]any{"type": "string"},
					"name": map[string]any{"type": "string"},
				},
			},
		},
	},
}

// ValidateBuildPlan checks an opaque plan document against the build plan
// schema. A plan that fails validation is treated as a collaborator failure.
func ValidateBuildPlan(plan json.RawMessage) error {
	if len(plan) == 0 {
		return fmt.Errorf("build plan is empty")
	}

	schemaLoader := gojsonschema.NewGoLoader(buildPlanSchema)
	planLoader := gojsonschema.NewBytesLoader(plan)

	result, err := gojsonschema.Validate(schemaLoader, planLoader)
	if err != nil {
		return fmt.Errorf("failed to validate build plan: %w", err)
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("invalid build plan: %s", strings.Join(descriptions, "; "))
	}

	return nil
}

// PlanSummary extracts the human-readable summary from an opaque build plan,
// falling back to a generic line when the field is absent.
func PlanSummary(plan json.RawMessage) string {
	var partial struct {
		Summary string `json:"summary"`
	}

	if err := json.Unmarshal(plan, &partial); err != nil || partial.Summary == "" {
		return "a tailored setup plan for your business"
	}

	return partial.Summary
}
