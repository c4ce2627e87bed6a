package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"sevaflow/internal/catalog"
	"sevaflow/internal/domain"
)

const (
	defaultModelConfidence = domain.DefaultModelConfidence
	defaultModelIssue      = "General issue"
	notSpecified           = domain.LocationNotSpecified
)

type modelResponse struct {
	IssueType  string   `json:"issue_type"`
	Location   string   `json:"location"`
	Department string   `json:"responsible_department"`
	Priority   *string  `json:"priority"`
	Confidence *float64 `json:"confidence"`
	Summary    string   `json:"summary"`
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```JSON")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// parseModelResponse validates a backend reply. Any error means the reply
// is unusable and the next backend should be tried.
func parseModelResponse(responseText string, cat *catalog.Catalog) (domain.Classification, error) {
	cleaned := stripCodeFence(responseText)

	// Only a JSON object counts; null would otherwise decode into zero values.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return domain.Classification{}, fmt.Errorf("parsing model response: %w (response: %s)", err, truncate(cleaned, 200))
	}
	if fields == nil {
		return domain.Classification{}, fmt.Errorf("model response is not a JSON object (response: %s)", truncate(cleaned, 200))
	}

	var resp modelResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return domain.Classification{}, fmt.Errorf("parsing model response: %w (response: %s)", err, truncate(cleaned, 200))
	}
	if strings.TrimSpace(resp.Department) == "" && strings.TrimSpace(resp.IssueType) == "" {
		return domain.Classification{}, fmt.Errorf("model response has neither responsible_department nor issue_type (response: %s)", truncate(cleaned, 200))
	}

	urgency := domain.UrgencyMedium
	if resp.Priority != nil {
		parsed, ok := domain.ParseUrgency(*resp.Priority)
		if !ok {
			return domain.Classification{}, fmt.Errorf("invalid priority %q", *resp.Priority)
		}
		urgency = parsed
	}

	confidence := defaultModelConfidence
	if resp.Confidence != nil {
		confidence = *resp.Confidence
		if confidence < 0 || confidence > 1 {
			return domain.Classification{}, fmt.Errorf("confidence %v outside [0,1]", confidence)
		}
	}

	issue := strings.TrimSpace(resp.IssueType)
	if issue == "" {
		issue = defaultModelIssue
	}
	location := strings.TrimSpace(resp.Location)
	if location == "" {
		location = notSpecified
	}

	// Known units are canonicalised; unknown names pass through so routing
	// can substitute and flag them.
	unit := strings.TrimSpace(resp.Department)
	if unit == "" {
		unit = cat.DefaultUnit()
	} else if canonical, ok := cat.Canonical(unit); ok {
		unit = canonical
	}

	return domain.Classification{
		IssueType:  issue,
		Location:   location,
		Unit:       unit,
		Urgency:    urgency,
		Confidence: confidence,
		Summary:    strings.TrimSpace(resp.Summary),
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
