package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound       = errors.New("grievance not found")
	ErrInvalidStatus  = errors.New("invalid grievance status")
	ErrEmptyGrievance = errors.New("grievance text is empty")
)

type Status string

const (
	// StatusNew is only ever the prior status of a grievance's first audit entry.
	StatusNew        Status = "new"
	StatusSubmitted  Status = "submitted"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusEscalated  Status = "escalated"
	StatusClosed     Status = "closed"
)

// Statuses lists every status a stored grievance can hold, in lifecycle order.
var Statuses = []Status{
	StatusSubmitted,
	StatusAssigned,
	StatusInProgress,
	StatusResolved,
	StatusEscalated,
	StatusClosed,
}

// ParseStatus accepts the canonical names plus the spaced and hyphenated
// spellings people type into chat ("in progress", "in-progress").
func ParseStatus(s string) (Status, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	for _, st := range Statuses {
		if string(st) == norm {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

func (s Status) Valid() bool {
	for _, st := range Statuses {
		if st == s {
			return true
		}
	}
	return false
}

// Open reports whether the grievance is still waiting on the department.
func (s Status) Open() bool {
	return s == StatusSubmitted || s == StatusAssigned || s == StatusInProgress
}

// Label renders "in_progress" as "In Progress".
func (s Status) Label() string {
	words := strings.Split(string(s), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

func ParseUrgency(s string) (Urgency, bool) {
	switch Urgency(strings.ToLower(strings.TrimSpace(s))) {
	case UrgencyLow:
		return UrgencyLow, true
	case UrgencyMedium:
		return UrgencyMedium, true
	case UrgencyHigh:
		return UrgencyHigh, true
	}
	return "", false
}

const LocationNotSpecified = "Not specified"

// SourceRules marks a classification produced by the keyword fallback.
const SourceRules = "rules"

// DefaultModelConfidence is used when a backend reply omits confidence.
// Rule-based confidence must stay below it.
const DefaultModelConfidence = 0.7

// Classification is the transient result of reading a grievance's text.
type Classification struct {
	IssueType  string
	Location   string
	Unit       string
	Urgency    Urgency
	Confidence float64
	Summary    string
	Source     string
}

// RoutingDecision is the unit and deadline assigned to a classification.
// RequestedUnit keeps what the classifier asked for when it was not a
// configured unit and Unit holds the default instead.
type RoutingDecision struct {
	Unit          string
	DeadlineHours int
	RequestedUnit string
	Substituted   bool
}

type Reporter struct {
	ID   string
	Name string
}

type Grievance struct {
	ID               int64
	RefID            string
	ReporterID       string
	ReporterName     string
	RawText          string
	IssueType        string
	Location         string
	Unit             string
	Urgency          Urgency
	Summary          string
	Confidence       float64
	ClassifierSource string
	Status           Status
	EstimatedHours   int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DueAt is the end of the grievance's resolution window.
func (g Grievance) DueAt() time.Time {
	return g.CreatedAt.Add(time.Duration(g.EstimatedHours) * time.Hour)
}

func (g Grievance) Overdue(now time.Time) bool {
	return g.Status.Open() && now.After(g.DueAt())
}

type AuditEntry struct {
	ID        int64
	RefID     string
	OldStatus Status
	NewStatus Status
	ChangedAt time.Time
	Note      string
	Actor     string
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Filter selects grievances for listing. Zero values mean "any".
// Page is 1-based.
type Filter struct {
	Status   Status
	Unit     string
	Urgency  Urgency
	Page     int
	PageSize int
}

func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

func (f Filter) Offset() int {
	n := f.Normalize()
	return (n.Page - 1) * n.PageSize
}

type Stats struct {
	Total      int
	Pending    int
	InProgress int
	Resolved   int
	Escalated  int
	ByUnit     map[string]int
	ByUrgency  map[Urgency]int
}

// FormatRefID renders a sequence number as a public reference, e.g. SF-0042.
func FormatRefID(seq int64) string {
	return fmt.Sprintf("SF-%04d", seq)
}

// NormalizeRefID upper-cases user input such as "sf-0042".
func NormalizeRefID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
