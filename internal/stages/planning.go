package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/sopforge/sopforge/internal/llm"
	"github.com/sopforge/sopforge/internal/parse"
	"github.com/sopforge/sopforge/internal/runstate"
	"github.com/sopforge/sopforge/internal/stage"
)

const planningUsageUnits = 1500

const planningSystemPrompt = `You are an expert SOP planning agent. Return ONLY valid JSON - no prose, no markdown fences.

JSON structure:
{
  "title": "Complete SOP Title",
  "industry": "Industry Name",
  "sections": [
    {"number": "1", "title": "Purpose and Scope", "subsections": ["1.1 Purpose"]}
  ],
  "estimated_pages": 8
}

Include all 11 mandatory sections: Purpose and Scope, Definitions and Abbreviations, Responsibilities and Authorities, Required Materials and Equipment, Safety Requirements and PPE, Detailed Step-by-Step Procedures, Quality Control and Verification, Emergency Procedures, Troubleshooting Guide, References and Related Documents, Revision History.`

// Planning builds the stage that turns the run inputs into a document
// outline.
func Planning(client llm.Client) stage.Func {
	return func(ctx context.Context, state *runstate.RunState) (string, error) {
		user := fmt.Sprintf(
			"Create a detailed SOP outline for:\nTopic: %s\nIndustry: %s\nTarget Audience: %s\nAdditional Requirements: %s",
			state.Inputs.Topic,
			state.Inputs.Industry,
			state.Inputs.Audience,
			strings.Join(state.Inputs.Requirements, ", "),
		)

		raw, err := client.Invoke(ctx, planningSystemPrompt, user, 2048)
		if err != nil {
			return "", err
		}
		parsed, err := parse.Object(raw)
		if err != nil {
			return "", err
		}
		outline, err := runstate.OutlineFromMap(parsed)
		if err != nil {
			return "", err
		}

		state.Outline = outline
		state.Status = runstate.StatusPlanned
		state.AddUsage(planningUsageUnits)

		return fmt.Sprintf("Planning complete: %d sections for %q", len(outline.Sections), state.Inputs.Topic), nil
	}
}
