// Package routing assigns a classified grievance to a department and
// computes its resolution deadline. Routing is pure: the same
// classification and catalog always produce the same decision.
package routing

import (
	"math"

	"sevaflow/internal/catalog"
	"sevaflow/internal/domain"
)

// MinDeadlineHours is the shortest resolution window any grievance gets.
const MinDeadlineHours = 6

type Router struct {
	catalog *catalog.Catalog
}

func New(cat *catalog.Catalog) *Router {
	return &Router{catalog: cat}
}

func (r *Router) Route(c domain.Classification) domain.RoutingDecision {
	decision := domain.RoutingDecision{Unit: c.Unit}

	dept, ok := r.catalog.Lookup(c.Unit)
	if !ok {
		if name, found := r.catalog.Canonical(c.Unit); found {
			dept, _ = r.catalog.Lookup(name)
			decision.Unit = name
		} else {
			dept, _ = r.catalog.Lookup(r.catalog.DefaultUnit())
			decision.Unit = dept.Name
			decision.RequestedUnit = c.Unit
			decision.Substituted = true
		}
	}

	decision.DeadlineHours = deadlineHours(dept.SLAHours, c.Urgency)
	return decision
}

func deadlineHours(base int, urgency domain.Urgency) int {
	hours := base
	switch urgency {
	case domain.UrgencyHigh:
		hours = max(base/2, MinDeadlineHours)
	case domain.UrgencyLow:
		hours = int(math.Round(float64(base) * 1.5))
	}
	return max(hours, MinDeadlineHours)
}
