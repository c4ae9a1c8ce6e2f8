// internal/runstate/outputs.go
//
// Typed stage outputs and their conversions from the loosely-typed maps the
// response parser produces. Collaborator output is untrusted: every field is
// validated here before it reaches the rest of the pipeline.

package runstate

import "fmt"

// ValidationError reports a collaborator response that parsed as JSON but
// violates the output contract for its stage.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("runstate: invalid %s: %s", e.Field, e.Reason)
}

// Section is one numbered entry in a document outline.
type Section struct {
	Number      string
	Title       string
	Subsections []string
}

// Outline is the planning stage output: the skeleton of the document.
type Outline struct {
	Title          string
	Industry       string
	Sections       []Section
	EstimatedPages int
}

// SectionTitles lists the outline's section titles in order.
func (o *Outline) SectionTitles() []string {
	titles := make([]string, len(o.Sections))
	for i, s := range o.Sections {
		titles[i] = s.Title
	}
	return titles
}

// Findings is the research stage output.
type Findings struct {
	SimilarDocuments []string
	Compliance       []string
	BestPractices    []string
	Sources          []string
}

// ReviewResult is the review stage output. A prior pass's result is
// replaced, never merged. Approved is recomputed locally from OverallScore
// and never trusted from the collaborator.
type ReviewResult struct {
	OverallScore float64
	Feedback     string
	Approved     bool
	Issues       []string

	Completeness float64
	Clarity      float64
	Safety       float64
	Compliance   float64
	Consistency  float64
}

// OutlineFromMap validates and converts a parsed planning response.
func OutlineFromMap(m map[string]any) (*Outline, error) {
	title, err := stringField(m, "title")
	if err != nil {
		return nil, err
	}
	industry, _ := optionalString(m, "industry")

	raw, ok := m["sections"].([]any)
	if !ok || len(raw) == 0 {
		return nil, &ValidationError{Field: "sections", Reason: "at least one section is required"}
	}
	sections := make([]Section, 0, len(raw))
	for i, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, &ValidationError{Field: "sections", Reason: fmt.Sprintf("entry %d is not an object", i)}
		}
		secTitle, err := stringField(entry, "title")
		if err != nil {
			return nil, &ValidationError{Field: "sections", Reason: fmt.Sprintf("entry %d has no title", i)}
		}
		number, _ := optionalString(entry, "number")
		if number == "" {
			number = fmt.Sprintf("%d", i+1)
		}
		sections = append(sections, Section{
			Number:      number,
			Title:       secTitle,
			Subsections: stringList(entry, "subsections"),
		})
	}

	pages := intField(m, "estimated_pages", 5)
	if pages < 1 {
		pages = 1
	}
	return &Outline{
		Title:          title,
		Industry:       industry,
		Sections:       sections,
		EstimatedPages: pages,
	}, nil
}

// FindingsFromMap validates and converts a parsed research response.
func FindingsFromMap(m map[string]any) (*Findings, error) {
	if m == nil {
		return nil, &ValidationError{Field: "findings", Reason: "empty response"}
	}
	return &Findings{
		SimilarDocuments: stringList(m, "similar_documents"),
		Compliance:       stringList(m, "compliance_requirements"),
		BestPractices:    stringList(m, "best_practices"),
		Sources:          stringList(m, "sources"),
	}, nil
}

// ReviewFromMap validates and converts a parsed review response. Every score
// must lie in [0, 10]; the approval flag is derived from the overall score.
func ReviewFromMap(m map[string]any) (*ReviewResult, error) {
	overall, err := scoreField(m, "score")
	if err != nil {
		return nil, err
	}
	feedback, _ := optionalString(m, "feedback")

	result := &ReviewResult{
		OverallScore: overall,
		Feedback:     feedback,
		Issues:       stringList(m, "issues"),
		Approved:     overall >= ApprovalThreshold,
	}
	for _, criterion := range []struct {
		key string
		dst *float64
	}{
		{"completeness_score", &result.Completeness},
		{"clarity_score", &result.Clarity},
		{"safety_score", &result.Safety},
		{"compliance_score", &result.Compliance},
		{"consistency_score", &result.Consistency},
	} {
		if _, present := m[criterion.key]; !present {
			continue
		}
		value, err := scoreField(m, criterion.key)
		if err != nil {
			return nil, err
		}
		*criterion.dst = value
	}
	return result, nil
}

func stringField(m map[string]any, key string) (string, error) {
	value, ok := m[key].(string)
	if !ok || value == "" {
		return "", &ValidationError{Field: key, Reason: "required string is missing or empty"}
	}
	return value, nil
}

func optionalString(m map[string]any, key string) (string, bool) {
	value, ok := m[key].(string)
	return value, ok
}

func stringList(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func intField(m map[string]any, key string, fallback int) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

func scoreField(m map[string]any, key string) (float64, error) {
	value, ok := m[key].(float64)
	if !ok {
		if n, isInt := m[key].(int); isInt {
			value = float64(n)
		} else {
			return 0, &ValidationError{Field: key, Reason: "required score is missing or not a number"}
		}
	}
	if value < 0 || value > 10 {
		return 0, &ValidationError{Field: key, Reason: fmt.Sprintf("score %.2f is outside [0, 10]", value)}
	}
	return value, nil
}
