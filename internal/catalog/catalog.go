// Package catalog holds the validated, read-only routing configuration:
// departments with their keywords and SLA hours, urgency keywords, and the
// keyword → issue label table used by the rule-based classifier.
package catalog

import (
	"fmt"
	"strings"
)

type Department struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	SLAHours int      `yaml:"sla_hours"`
	Contact  string   `yaml:"contact"`
}

type UrgencyKeywords struct {
	High   []string `yaml:"high"`
	Medium []string `yaml:"medium"`
	Low    []string `yaml:"low"`
}

type IssueLabel struct {
	Keyword string `yaml:"keyword"`
	Label   string `yaml:"label"`
}

// Catalog is immutable after New; accessors hand out copies.
type Catalog struct {
	departments []Department
	byName      map[string]int
	byFold      map[string]int
	defaultUnit string
	urgency     UrgencyKeywords
	labels      []IssueLabel
}

func New(departments []Department, defaultUnit string, urgency UrgencyKeywords, labels []IssueLabel) (*Catalog, error) {
	if len(departments) == 0 {
		return nil, fmt.Errorf("at least one department is required")
	}
	c := &Catalog{
		byName: make(map[string]int, len(departments)),
		byFold: make(map[string]int, len(departments)),
	}
	for i, d := range departments {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return nil, fmt.Errorf("department #%d has no name", i+1)
		}
		fold := strings.ToLower(name)
		if _, dup := c.byFold[fold]; dup {
			return nil, fmt.Errorf("duplicate department %q", name)
		}
		if d.SLAHours < 1 {
			return nil, fmt.Errorf("department %q: sla_hours must be >= 1, got %d", name, d.SLAHours)
		}
		c.byName[name] = len(c.departments)
		c.byFold[fold] = len(c.departments)
		c.departments = append(c.departments, Department{
			Name:     name,
			Keywords: normalizeKeywords(d.Keywords),
			SLAHours: d.SLAHours,
			Contact:  strings.TrimSpace(d.Contact),
		})
	}

	defaultUnit = strings.TrimSpace(defaultUnit)
	if defaultUnit == "" {
		return nil, fmt.Errorf("default department is required")
	}
	idx, ok := c.byFold[strings.ToLower(defaultUnit)]
	if !ok {
		return nil, fmt.Errorf("default department %q is not among the configured departments", defaultUnit)
	}
	c.defaultUnit = c.departments[idx].Name

	c.urgency = UrgencyKeywords{
		High:   normalizeKeywords(urgency.High),
		Medium: normalizeKeywords(urgency.Medium),
		Low:    normalizeKeywords(urgency.Low),
	}
	for _, l := range labels {
		kw := strings.ToLower(strings.TrimSpace(l.Keyword))
		label := strings.TrimSpace(l.Label)
		if kw == "" || label == "" {
			continue
		}
		c.labels = append(c.labels, IssueLabel{Keyword: kw, Label: label})
	}
	return c, nil
}

// Departments returns the departments in configured order.
func (c *Catalog) Departments() []Department {
	out := make([]Department, len(c.departments))
	for i, d := range c.departments {
		d.Keywords = append([]string(nil), d.Keywords...)
		out[i] = d
	}
	return out
}

// Lookup finds a department by its exact configured name.
func (c *Catalog) Lookup(name string) (Department, bool) {
	idx, ok := c.byName[name]
	if !ok {
		return Department{}, false
	}
	d := c.departments[idx]
	d.Keywords = append([]string(nil), d.Keywords...)
	return d, true
}

// Canonical maps a case-insensitive department name onto its configured spelling.
func (c *Catalog) Canonical(name string) (string, bool) {
	idx, ok := c.byFold[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", false
	}
	return c.departments[idx].Name, true
}

func (c *Catalog) DefaultUnit() string {
	return c.defaultUnit
}

func (c *Catalog) UrgencyKeywords() UrgencyKeywords {
	return UrgencyKeywords{
		High:   append([]string(nil), c.urgency.High...),
		Medium: append([]string(nil), c.urgency.Medium...),
		Low:    append([]string(nil), c.urgency.Low...),
	}
}

func (c *Catalog) IssueLabels() []IssueLabel {
	return append([]IssueLabel(nil), c.labels...)
}

func normalizeKeywords(in []string) []string {
	var out []string
	seen := make(map[string]bool, len(in))
	for _, kw := range in {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
	}
	return out
}
