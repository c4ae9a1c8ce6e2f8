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

const draftUsagePerSection = 2500

const draftSystemPrompt = `You are a technical writer specializing in Standard Operating Procedures. Return ONLY valid JSON - no prose, no markdown fences.

JSON structure:
{
  "section_title": "Section Name",
  "content": "1. **Step**\n   - Detail\n   - WARNING: ...\n   - CHECKPOINT: ...",
  "safety_warnings": ["warning text"],
  "quality_checkpoints": ["checkpoint text"],
  "time_estimate_minutes": 5
}

Use active voice. Number all steps. Include time estimates.`

// Draft builds the stage that writes content for every outline section, one
// collaborator call per section. On a revision pass the section map is
// rebuilt from scratch and the latest review's issues are folded into each
// prompt.
func Draft(client llm.Client) stage.Func {
	return func(ctx context.Context, state *runstate.RunState) (string, error) {
		if state.Outline == nil {
			return "", fmt.Errorf("stages: draft requires an outline")
		}

		var bestPractices, compliance []string
		if state.Research != nil {
			bestPractices = state.Research.BestPractices
			compliance = state.Research.Compliance
		}
		revisionNotes := revisionGuidance(state)

		sections := make(map[string]string, len(state.Outline.Sections))
		for _, section := range state.Outline.Sections {
			var sb strings.Builder
			fmt.Fprintf(&sb, "Write detailed SOP content for this section:\n\n")
			fmt.Fprintf(&sb, "Section: %s\n", section.Title)
			fmt.Fprintf(&sb, "Topic context: %s (%s)\n", state.Inputs.Topic, state.Inputs.Industry)
			fmt.Fprintf(&sb, "Target Audience: %s\n", state.Inputs.Audience)
			fmt.Fprintf(&sb, "Best Practices: %s\n", joinOrNone(bestPractices))
			fmt.Fprintf(&sb, "Compliance: %s\n", joinOrNone(compliance))
			if revisionNotes != "" {
				fmt.Fprintf(&sb, "Reviewer feedback to address: %s\n", revisionNotes)
			}
			sb.WriteString("\nWrite clear numbered steps with safety warnings, checkpoints, and time estimates. Return complete JSON.")

			raw, err := client.Invoke(ctx, draftSystemPrompt, sb.String(), 4096)
			if err != nil {
				return "", fmt.Errorf("section %q: %w", section.Title, err)
			}
			parsed, err := parse.Object(raw)
			if err != nil {
				return "", fmt.Errorf("section %q: %w", section.Title, err)
			}
			content, ok := parsed["content"].(string)
			if !ok || strings.TrimSpace(content) == "" {
				return "", &runstate.ValidationError{Field: "content", Reason: fmt.Sprintf("section %q produced no content", section.Title)}
			}
			sections[section.Title] = content
			state.AddUsage(draftUsagePerSection)
		}

		// Overwrite, never append: a revision pass replaces the draft.
		state.ContentSections = sections
		state.Status = runstate.StatusDrafted

		pass := "drafted"
		if state.RetryCount > 0 {
			pass = fmt.Sprintf("redrafted (revision %d)", state.RetryCount)
		}
		return fmt.Sprintf("Content %s: %d sections for %q", pass, len(sections), state.Inputs.Topic), nil
	}
}

func revisionGuidance(state *runstate.RunState) string {
	if state.RetryCount == 0 || state.Review == nil {
		return ""
	}
	if len(state.Review.Issues) > 0 {
		return strings.Join(state.Review.Issues, "; ")
	}
	return state.Review.Feedback
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "None"
	}
	return strings.Join(values, ", ")
}
