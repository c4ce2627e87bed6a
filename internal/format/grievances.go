package format

import (
	"fmt"
	"time"

	"sevaflow/internal/domain"
)

const (
	timestampLayout = "2006-01-02 15:04"
	summaryWidth    = 48
)

// Grievances renders a listing page. total is the unpaged match count.
func Grievances(m Mode, items []domain.Grievance, total int, loc *time.Location) string {
	tb := NewTable(m)
	tb.Header("Ref", "Status", "Urgency", "Department", "Issue", "Location", "Created", "Due")
	for _, g := range items {
		due := g.DueAt().In(loc).Format(timestampLayout)
		if g.Overdue(time.Now()) {
			due += " (overdue)"
		}
		tb.Row(g.RefID, g.Status.Label(), string(g.Urgency), g.Unit, g.IssueType, g.Location,
			g.CreatedAt.In(loc).Format(timestampLayout), due)
	}
	tb.Footer("", "", "", "", "", "", "Total", total)
	tb.Columns(ColumnConfig{Number: 5, MaxWidth: summaryWidth}, ColumnConfig{Number: 6, MaxWidth: 32})
	return tb.String()
}

// History renders an audit trail oldest first.
func History(m Mode, entries []domain.AuditEntry, loc *time.Location) string {
	tb := NewTable(m)
	tb.Header("#", "When", "From", "To", "Actor", "Note")
	for i, e := range entries {
		tb.Row(i+1, e.ChangedAt.In(loc).Format(timestampLayout), e.OldStatus.Label(), e.NewStatus.Label(), e.Actor, e.Note)
	}
	tb.Columns(ColumnConfig{Number: 1, Align: AlignRight}, ColumnConfig{Number: 6, MaxWidth: summaryWidth})
	return tb.String()
}

// Department is one catalog row for display.
type Department struct {
	Name     string
	Hours    int
	Contact  string
	Keywords []string
}

func Departments(m Mode, depts []Department) string {
	tb := NewTable(m)
	tb.Header("Department", "Base hours", "Contact", "Keywords")
	for _, d := range depts {
		kw := Truncate(joinKeywords(d.Keywords), summaryWidth)
		tb.Row(d.Name, d.Hours, d.Contact, kw)
	}
	tb.Columns(ColumnConfig{Number: 2, Align: AlignRight})
	return tb.String()
}

// Stats renders the dashboard as two-column key/count tables.
func Stats(m Mode, st domain.Stats) string {
	tb := NewTable(m)
	tb.Header("Metric", "Count")
	tb.Row("Total", st.Total)
	tb.Row("Pending", st.Pending)
	tb.Row("In progress", st.InProgress)
	tb.Row("Resolved", st.Resolved)
	tb.Row("Escalated", st.Escalated)
	for _, u := range []domain.Urgency{domain.UrgencyHigh, domain.UrgencyMedium, domain.UrgencyLow} {
		tb.Row(fmt.Sprintf("Urgency %s", u), st.ByUrgency[u])
	}
	for _, unit := range SortedByCount(st.ByUnit) {
		tb.Row(unit, st.ByUnit[unit])
	}
	tb.Columns(ColumnConfig{Number: 2, Align: AlignRight})
	return tb.String()
}
