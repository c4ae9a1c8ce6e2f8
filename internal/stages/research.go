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

const researchUsageUnits = 1500

const researchSystemPrompt = `You are an SOP research analyst. Return ONLY valid JSON - no prose, no markdown fences.

JSON structure:
{
  "similar_documents": ["..."],
  "compliance_requirements": ["..."],
  "best_practices": ["..."],
  "sources": ["..."]
}`

// complianceByIndustry is the built-in lookup merged into whatever the
// collaborator reports, so known regulations are never lost to a weak
// response.
var complianceByIndustry = map[string][]string{
	"Manufacturing":   {"OSHA 29 CFR 1910", "ISO 9001:2015"},
	"Healthcare":      {"HIPAA", "OSHA Bloodborne Pathogens Standard"},
	"Food & Beverage": {"FDA Food Code", "HACCP"},
	"Construction":    {"OSHA 29 CFR 1926"},
	"Laboratory":      {"ISO 17025", "OSHA Laboratory Standard"},
}

func knownCompliance(industry string) []string {
	if reqs, ok := complianceByIndustry[industry]; ok {
		return reqs
	}
	return []string{"General Safety Standards"}
}

// Research builds the stage that gathers findings for the planned outline.
func Research(client llm.Client) stage.Func {
	return func(ctx context.Context, state *runstate.RunState) (string, error) {
		if state.Outline == nil {
			return "", fmt.Errorf("stages: research requires an outline")
		}
		compliance := knownCompliance(state.Inputs.Industry)

		user := fmt.Sprintf(
			"Research supporting material for an SOP:\nTopic: %s\nIndustry: %s\nOutline title: %s\nKnown compliance requirements: %s\nReturn complete JSON.",
			state.Inputs.Topic,
			state.Inputs.Industry,
			state.Outline.Title,
			strings.Join(compliance, ", "),
		)

		raw, err := client.Invoke(ctx, researchSystemPrompt, user, 2048)
		if err != nil {
			return "", err
		}
		parsed, err := parse.Object(raw)
		if err != nil {
			return "", err
		}
		findings, err := runstate.FindingsFromMap(parsed)
		if err != nil {
			return "", err
		}

		// Merge the lookup results into the model findings.
		for _, req := range compliance {
			if !containsString(findings.Compliance, req) {
				findings.Compliance = append(findings.Compliance, req)
			}
		}

		state.Research = findings
		state.Status = runstate.StatusResearched
		state.AddUsage(researchUsageUnits)

		return fmt.Sprintf("Research complete: %d similar documents, %d compliance requirements",
			len(findings.SimilarDocuments), len(findings.Compliance)), nil
	}
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
