package extract

import (
	"fmt"
	"strings"

	"sevaflow/internal/catalog"
)

const maxPromptKeywords = 6

func buildSystemPrompt(cat *catalog.Catalog) string {
	var unitLines strings.Builder
	for _, d := range cat.Departments() {
		if len(d.Keywords) == 0 {
			unitLines.WriteString(fmt.Sprintf("   - %s (anything else)\n", d.Name))
			continue
		}
		kws := d.Keywords
		if len(kws) > maxPromptKeywords {
			kws = kws[:maxPromptKeywords]
		}
		unitLines.WriteString(fmt.Sprintf("   - %s (%s)\n", d.Name, strings.Join(kws, ", ")))
	}

	return fmt.Sprintf(`You classify citizen grievances for a municipal helpdesk.
Respond with valid JSON only. No explanations, no markdown.

Given the grievance text, extract:
1. issue_type: a short category, e.g. "Streetlight outage", "Garbage not collected"
2. location: the street, area or landmark mentioned; if unclear use "%s"
3. responsible_department: exactly one of:
%s   If none fit, use "%s".
4. priority: "low", "medium" or "high"
   - high: safety hazards, crime, emergencies, dangerous conditions
   - medium: service disruptions, broken infrastructure
   - low: suggestions, minor inconveniences, requests
5. confidence: your confidence in this classification, between 0 and 1
6. summary: one formal sentence summarising the grievance

Respond with JSON only:
{"issue_type": "...", "location": "...", "responsible_department": "...", "priority": "medium", "confidence": 0.85, "summary": "..."}`,
		notSpecified, unitLines.String(), cat.DefaultUnit())
}

func buildUserPrompt(text string) string {
	return fmt.Sprintf("Citizen's grievance:\n%q", strings.TrimSpace(text))
}
