package slackbot

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"sevaflow/internal/domain"
	"sevaflow/internal/intake"
)

const (
	myGrievancesLimit   = 10
	myGrievanceIssueLen = 40
	timestampLayout     = "02 Jan 2006, 03:04 PM"
)

var urgencyEmoji = map[domain.Urgency]string{
	domain.UrgencyLow:    ":large_green_circle:",
	domain.UrgencyMedium: ":large_yellow_circle:",
	domain.UrgencyHigh:   ":red_circle:",
}

var statusEmoji = map[domain.Status]string{
	domain.StatusSubmitted:  ":memo:",
	domain.StatusAssigned:   ":bust_in_silhouette:",
	domain.StatusInProgress: ":arrows_counterclockwise:",
	domain.StatusResolved:   ":white_check_mark:",
	domain.StatusEscalated:  ":warning:",
	domain.StatusClosed:     ":file_folder:",
}

var statusDescription = map[domain.Status]string{
	domain.StatusSubmitted:  "Your grievance has been received and is awaiting assignment.",
	domain.StatusAssigned:   "Your grievance has been assigned to the concerned department.",
	domain.StatusInProgress: "The department is actively working on your grievance.",
	domain.StatusResolved:   "Your grievance has been resolved.",
	domain.StatusEscalated:  "Your grievance has been escalated for priority attention.",
	domain.StatusClosed:     "This grievance has been closed.",
}

// statusUpdateText is what the reporter is told when their grievance moves;
// %s is the department.
var statusUpdateText = map[domain.Status]string{
	domain.StatusAssigned:   "Your grievance has been assigned to the %s team. They will begin work soon.",
	domain.StatusInProgress: "Work has begun on your grievance. The %s team is on it.",
	domain.StatusResolved:   "Your grievance has been resolved. Thank you for your patience.",
	domain.StatusEscalated:  "Your grievance has been escalated for priority handling.",
	domain.StatusClosed:     "This grievance has been closed. If you are not satisfied, please submit a new grievance.",
}

func formatRegistration(g domain.Grievance) string {
	emoji := urgencyEmoji[g.Urgency]
	if emoji == "" {
		emoji = urgencyEmoji[domain.UrgencyMedium]
	}
	lines := []string{
		":white_check_mark: *Grievance registered*",
		"",
		fmt.Sprintf("*Issue:* %s", g.IssueType),
		fmt.Sprintf("*Location:* %s", g.Location),
		fmt.Sprintf("*Department:* %s", g.Unit),
		fmt.Sprintf("%s *Urgency:* %s", emoji, capitalize(string(g.Urgency))),
		"",
		fmt.Sprintf("*Reference:* `%s`", g.RefID),
		fmt.Sprintf("*Expected resolution:* %d hours", g.EstimatedHours),
		"",
		fmt.Sprintf("Use `/status %s` to track progress.", g.RefID),
	}
	return strings.Join(lines, "\n")
}

func formatStatus(g domain.Grievance, loc *time.Location) string {
	emoji := statusEmoji[g.Status]
	if emoji == "" {
		emoji = ":clipboard:"
	}
	lines := []string{
		fmt.Sprintf("%s *Grievance status*", emoji),
		"",
		fmt.Sprintf("*Reference:* `%s`", g.RefID),
		fmt.Sprintf("*Issue:* %s", g.IssueType),
		fmt.Sprintf("*Department:* %s", g.Unit),
		fmt.Sprintf("*Location:* %s", g.Location),
		"",
		fmt.Sprintf("*Current status:* %s", g.Status.Label()),
	}
	if desc := statusDescription[g.Status]; desc != "" {
		lines = append(lines, desc)
	}
	if g.Status.Open() {
		lines = append(lines, fmt.Sprintf("_Due by %s_", g.DueAt().In(loc).Format(timestampLayout)))
	}
	lines = append(lines, fmt.Sprintf("_Last updated: %s_", g.UpdatedAt.In(loc).Format(timestampLayout)))
	return strings.Join(lines, "\n")
}

func formatStatusUpdate(g domain.Grievance, note string, loc *time.Location) string {
	body := fmt.Sprintf("Your grievance status is now %s.", g.Status.Label())
	if tmpl, ok := statusUpdateText[g.Status]; ok {
		body = tmpl
		if strings.Contains(tmpl, "%s") {
			body = fmt.Sprintf(tmpl, g.Unit)
		}
	}
	lines := []string{
		":bell: *Status update*",
		"",
		fmt.Sprintf("*Reference:* `%s`", g.RefID),
		fmt.Sprintf("*Issue:* %s", g.IssueType),
		"",
		body,
	}
	if note = strings.TrimSpace(note); note != "" {
		lines = append(lines, "", "*Note from the department:*", fmt.Sprintf("_%s_", note))
	}
	lines = append(lines, "", fmt.Sprintf("_Updated: %s_", g.UpdatedAt.In(loc).Format(timestampLayout)))
	return strings.Join(lines, "\n")
}

func formatMyGrievances(items []domain.Grievance) string {
	if len(items) == 0 {
		return "You haven't submitted any grievances yet.\nUse `/grievance <description>` to submit one."
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*Your grievances* (%d most recent)\n\n", len(items)))
	for _, g := range items {
		emoji := statusEmoji[g.Status]
		if emoji == "" {
			emoji = ":clipboard:"
		}
		sb.WriteString(fmt.Sprintf("%s `%s` %s\n", emoji, g.RefID, truncateRunes(g.IssueType, myGrievanceIssueLen)))
		sb.WriteString(fmt.Sprintf("    Status: %s\n", g.Status.Label()))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatHistory(refID string, entries []domain.AuditEntry, loc *time.Location) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*History for* `%s`\n", refID))
	for _, e := range entries {
		line := fmt.Sprintf("- %s  %s → %s", e.ChangedAt.In(loc).Format(timestampLayout), e.OldStatus.Label(), e.NewStatus.Label())
		if e.Actor != "" {
			line += fmt.Sprintf(" by %s", e.Actor)
		}
		if e.Note != "" {
			line += fmt.Sprintf(" (%s)", e.Note)
		}
		sb.WriteString(line + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatDepartments(depts []intake.Department) string {
	lines := []string{"*Departments*", ""}
	for _, d := range depts {
		line := fmt.Sprintf("- *%s* (base resolution %d hours)", d.Name, d.BaseDeadlineHours)
		if d.Contact != "" {
			line += " " + d.Contact
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func formatStats(st domain.Stats) string {
	var sb strings.Builder
	sb.WriteString("*Grievance Dashboard*\n\n")
	sb.WriteString(fmt.Sprintf("- Total: %d\n", st.Total))
	sb.WriteString(fmt.Sprintf("- Pending: %d\n", st.Pending))
	sb.WriteString(fmt.Sprintf("- In progress: %d\n", st.InProgress))
	sb.WriteString(fmt.Sprintf("- Resolved: %d\n", st.Resolved))
	sb.WriteString(fmt.Sprintf("- Escalated: %d\n", st.Escalated))

	if len(st.ByUnit) > 0 {
		sb.WriteString("\n*By department*\n")
		units := make([]string, 0, len(st.ByUnit))
		for u := range st.ByUnit {
			units = append(units, u)
		}
		sort.Slice(units, func(i, j int) bool {
			if st.ByUnit[units[i]] != st.ByUnit[units[j]] {
				return st.ByUnit[units[i]] > st.ByUnit[units[j]]
			}
			return units[i] < units[j]
		})
		for _, u := range units {
			sb.WriteString(fmt.Sprintf("- %s: %d\n", u, st.ByUnit[u]))
		}
	}

	if len(st.ByUrgency) > 0 {
		sb.WriteString("\n*By urgency*\n")
		for _, u := range []domain.Urgency{domain.UrgencyHigh, domain.UrgencyMedium, domain.UrgencyLow} {
			if n, ok := st.ByUrgency[u]; ok {
				sb.WriteString(fmt.Sprintf("- %s: %d\n", capitalize(string(u)), n))
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
