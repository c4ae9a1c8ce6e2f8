package stages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sopforge/sopforge/internal/runstate"
	"github.com/sopforge/sopforge/internal/stage"
)

// Formatting builds the stage that assembles the final markdown document.
// It is pure: no collaborator call, so no retry policy and no usage cost.
// The optional clock feeds the document-control timestamps.
func Formatting(clock func() time.Time) stage.Func {
	if clock == nil {
		clock = time.Now
	}
	return func(_ context.Context, state *runstate.RunState) (string, error) {
		if state.Outline == nil {
			return "", fmt.Errorf("stages: formatting requires an outline")
		}
		if len(state.ContentSections) == 0 {
			return "", fmt.Errorf("stages: formatting requires drafted content")
		}

		doc := buildDocument(state, clock())
		state.FormattedDocument = doc
		state.Status = runstate.StatusFormatted

		return fmt.Sprintf("Formatting complete: %d chars", len(doc)), nil
	}
}

// buildDocument renders the document in outline order so every section
// title appears exactly where the plan put it.
func buildDocument(state *runstate.RunState, now time.Time) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", state.Outline.Title)
	sb.WriteString("**Document Control**\n")
	fmt.Fprintf(&sb, "- Document ID: SOP-%s\n", now.Format("20060102-1504"))
	sb.WriteString("- Version: 1.0\n")
	fmt.Fprintf(&sb, "- Effective Date: %s\n", now.Format("2006-01-02"))
	fmt.Fprintf(&sb, "- Industry: %s\n", state.Inputs.Industry)
	fmt.Fprintf(&sb, "- Target Audience: %s\n\n", state.Inputs.Audience)
	sb.WriteString("---\n\n")

	sb.WriteString("## Table of Contents\n\n")
	for i, section := range state.Outline.Sections {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, section.Title)
	}
	sb.WriteString("\n---\n\n")

	for _, section := range state.Outline.Sections {
		fmt.Fprintf(&sb, "## %s\n\n", section.Title)
		if content := state.ContentSections[section.Title]; content != "" {
			sb.WriteString(content)
			sb.WriteString("\n\n")
		}
		sb.WriteString("---\n\n")
	}

	sb.WriteString("**Approval Signatures**\n\n")
	sb.WriteString("Prepared by: _________________ Date: _______\n\n")
	sb.WriteString("Reviewed by: _________________ Date: _______\n\n")
	sb.WriteString("Approved by: _________________ Date: _______\n")

	return sb.String()
}
