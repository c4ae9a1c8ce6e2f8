package stages

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/sopforge/sopforge/internal/llm"
	"github.com/sopforge/sopforge/internal/parse"
	"github.com/sopforge/sopforge/internal/runstate"
	"github.com/sopforge/sopforge/internal/stage"
)

const reviewUsageUnits = 1500

// reviewSampleLimit caps how much of the document goes into the prompt.
const reviewSampleLimit = 3000

const reviewSystemPrompt = `You are a quality assurance specialist for Standard Operating Procedures. Return ONLY valid JSON - no prose, no markdown fences.

Score each criterion 0-10. Overall score = average of all five.
approved = true if overall score >= 8.0, else false.

JSON structure:
{
  "score": 8.5,
  "feedback": "Detailed feedback",
  "approved": true,
  "issues": ["Issue 1"],
  "completeness_score": 9.0,
  "clarity_score": 8.5,
  "safety_score": 8.0,
  "compliance_score": 8.5,
  "consistency_score": 9.0
}`

// Review builds the stage that scores the formatted document. A fresh
// ReviewResult replaces any result from an earlier pass; the approval flag
// is always recomputed locally from the score.
func Review(client llm.Client) stage.Func {
	return func(ctx context.Context, state *runstate.RunState) (string, error) {
		if state.FormattedDocument == "" {
			return "", fmt.Errorf("stages: review requires a formatted document")
		}

		sample := truncateSample(state.FormattedDocument, reviewSampleLimit)

		user := fmt.Sprintf(
			"Review this SOP document:\n\nTopic: %s\nIndustry: %s\n\nDocument:\n%s\n\nScore on: completeness, clarity, safety, compliance, consistency. Return complete JSON.",
			state.Inputs.Topic, state.Inputs.Industry, sample,
		)

		raw, err := client.Invoke(ctx, reviewSystemPrompt, user, 2048)
		if err != nil {
			return "", err
		}
		parsed, err := parse.Object(raw)
		if err != nil {
			return "", err
		}
		result, err := runstate.ReviewFromMap(parsed)
		if err != nil {
			return "", err
		}

		state.Review = result
		state.Status = runstate.StatusReviewed
		state.AddUsage(reviewUsageUnits)

		verdict := "NEEDS REVISION"
		if result.Approved {
			verdict = "APPROVED"
		}
		return fmt.Sprintf("Review complete: score=%.1f/10 - %s", result.OverallScore, verdict), nil
	}
}

// truncateSample cuts the document at the byte limit without splitting a
// multi-byte rune, so the prompt is always valid UTF-8.
func truncateSample(doc string, limit int) string {
	if len(doc) <= limit {
		return doc
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(doc[cut]) {
		cut--
	}
	return doc[:cut] + "..."
}
