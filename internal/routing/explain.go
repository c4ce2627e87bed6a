package routing

import (
	"fmt"
	"strings"

	"sevaflow/internal/domain"
)

const explainKeywordSample = 5

// Explain renders the routing decision for c as text for audits and the CLI.
func (r *Router) Explain(c domain.Classification) string {
	decision := r.Route(c)
	dept, _ := r.catalog.Lookup(decision.Unit)

	handles := "general issues"
	if len(dept.Keywords) > 0 {
		kws := dept.Keywords
		if len(kws) > explainKeywordSample {
			kws = kws[:explainKeywordSample]
		}
		handles = strings.Join(kws, ", ")
	}

	var b strings.Builder
	b.WriteString("ROUTING DECISION\n")
	b.WriteString("================\n")
	fmt.Fprintf(&b, "Issue type:  %s\n", c.IssueType)
	fmt.Fprintf(&b, "Location:    %s\n", c.Location)
	fmt.Fprintf(&b, "Urgency:     %s\n", strings.ToUpper(string(c.Urgency)))
	fmt.Fprintf(&b, "Confidence:  %.0f%%", c.Confidence*100)
	if c.Source != "" {
		fmt.Fprintf(&b, " (%s)", c.Source)
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Assigned to: %s\n", decision.Unit)
	fmt.Fprintf(&b, "Deadline:    %d hours\n\n", decision.DeadlineHours)
	b.WriteString("Reasoning:\n")
	fmt.Fprintf(&b, "- classified as: %s\n", c.IssueType)
	fmt.Fprintf(&b, "- department handles: %s\n", handles)
	fmt.Fprintf(&b, "- base SLA %d hours adjusted for %s urgency\n", dept.SLAHours, c.Urgency)
	if decision.Substituted {
		fmt.Fprintf(&b, "- requested unit %q is not configured; routed to %s\n", decision.RequestedUnit, decision.Unit)
	}
	return strings.TrimRight(b.String(), "\n")
}
