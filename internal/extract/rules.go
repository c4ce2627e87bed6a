package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"sevaflow/internal/catalog"
	"sevaflow/internal/domain"
)

const (
	DefaultFallbackConfidence = 0.5
	fallbackIssueLabel        = "General complaint"
	summaryMaxRunes           = 100
)

var (
	// "near Laxmi Nagar metro gate", "opposite Sector 18 market"
	prepositionLocationRe = regexp.MustCompile(`\b(?i:near|at|in|around|opposite|behind|outside)\s+([A-Z][a-zA-Z0-9\s]*(?i:metro|station|gate|market|colony|nagar|vihar|park|road|street|block|sector|chowk|enclave|marg))\b`)
	// "Karol Bagh Market", "Rajiv Chowk Metro Station"
	capitalisedLocationRe = regexp.MustCompile(`\b([A-Z][a-zA-Z]*(?:\s+[A-Z][a-zA-Z]*)*\s+(?:Metro|Station|Gate|Market|Colony|Nagar|Vihar|Park|Road|Street|Block|Sector|Chowk|Enclave|Marg))\b`)
)

// ClassifyByRules is the deterministic keyword classifier used when no
// backend produced a usable answer.
func ClassifyByRules(cat *catalog.Catalog, text string, confidence float64) domain.Classification {
	lower := strings.ToLower(text)
	return domain.Classification{
		IssueType:  issueLabel(cat.IssueLabels(), lower),
		Location:   extractLocation(text),
		Unit:       matchUnit(cat, lower),
		Urgency:    matchUrgency(cat.UrgencyKeywords(), lower),
		Confidence: confidence,
		Summary:    summarize(text),
		Source:     domain.SourceRules,
	}
}

func matchUnit(cat *catalog.Catalog, lower string) string {
	for _, d := range cat.Departments() {
		if containsAny(lower, d.Keywords) {
			return d.Name
		}
	}
	return cat.DefaultUnit()
}

func matchUrgency(kw catalog.UrgencyKeywords, lower string) domain.Urgency {
	switch {
	case containsAny(lower, kw.High):
		return domain.UrgencyHigh
	case containsAny(lower, kw.Medium):
		return domain.UrgencyMedium
	case containsAny(lower, kw.Low):
		return domain.UrgencyLow
	}
	return domain.UrgencyMedium
}

func extractLocation(text string) string {
	for _, re := range []*regexp.Regexp{prepositionLocationRe, capitalisedLocationRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			if loc := strings.Join(strings.Fields(m[1]), " "); loc != "" {
				return loc
			}
		}
	}
	return domain.LocationNotSpecified
}

func issueLabel(labels []catalog.IssueLabel, lower string) string {
	for _, l := range labels {
		if strings.Contains(lower, l.Keyword) {
			return l.Label
		}
	}
	return fallbackIssueLabel
}

func summarize(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= summaryMaxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:summaryMaxRunes]) + "..."
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
