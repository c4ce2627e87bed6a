package catalog

const DefaultUnitName = "General Helpdesk"

func DefaultDepartments() []Department {
	return []Department{
		{
			Name:     "MCD Electrical",
			Keywords: []string{"streetlight", "light", "electricity", "power", "electrical", "lamp", "bulb"},
			SLAHours: 48,
			Contact:  "mcd-electrical@example.gov.in",
		},
		{
			Name:     "Delhi Jal Board",
			Keywords: []string{"water", "sewage", "drainage", "pipe", "leakage", "supply", "tanker"},
			SLAHours: 72,
			Contact:  "djb@example.gov.in",
		},
		{
			Name:     "PWD",
			Keywords: []string{"road", "pothole", "pavement", "footpath", "bridge", "flyover", "construction"},
			SLAHours: 96,
			Contact:  "pwd@example.gov.in",
		},
		{
			Name:     "MCD Sanitation",
			Keywords: []string{"garbage", "trash", "waste", "cleaning", "sanitation", "dustbin", "sweeper"},
			SLAHours: 24,
			Contact:  "mcd-sanitation@example.gov.in",
		},
		{
			Name:     "Traffic Police",
			Keywords: []string{"traffic", "signal", "parking", "challan", "jam", "violation", "zebra"},
			SLAHours: 24,
			Contact:  "traffic-police@example.gov.in",
		},
		{
			Name:     "Delhi Police",
			Keywords: []string{"crime", "theft", "robbery", "safety", "police", "emergency", "harassment"},
			SLAHours: 12,
			Contact:  "delhi-police@example.gov.in",
		},
		{
			Name:     "BSES/TPDDL",
			Keywords: []string{"meter", "bill", "voltage", "transformer", "outage", "fluctuation"},
			SLAHours: 48,
			Contact:  "power-discom@example.gov.in",
		},
		{
			Name:     "DDA",
			Keywords: []string{"park", "garden", "encroachment", "land", "colony", "development"},
			SLAHours: 120,
			Contact:  "dda@example.gov.in",
		},
		{
			Name:     DefaultUnitName,
			SLAHours: 72,
			Contact:  "helpdesk@example.gov.in",
		},
	}
}

func DefaultUrgencyKeywords() UrgencyKeywords {
	return UrgencyKeywords{
		High:   []string{"urgent", "emergency", "dangerous", "hazard", "safety", "crime", "accident", "fire"},
		Medium: []string{"broken", "not working", "issue", "problem", "complaint"},
		Low:    []string{"request", "suggestion", "feedback", "improvement"},
	}
}

func DefaultIssueLabels() []IssueLabel {
	return []IssueLabel{
		{Keyword: "streetlight", Label: "Streetlight issue"},
		{Keyword: "pothole", Label: "Pothole on road"},
		{Keyword: "garbage", Label: "Garbage collection issue"},
		{Keyword: "water", Label: "Water supply issue"},
		{Keyword: "sewage", Label: "Sewage/drainage issue"},
		{Keyword: "traffic", Label: "Traffic issue"},
		{Keyword: "parking", Label: "Parking problem"},
		{Keyword: "crime", Label: "Law & order issue"},
		{Keyword: "road", Label: "Road maintenance issue"},
		{Keyword: "electricity", Label: "Electricity issue"},
	}
}

// Default builds the catalog shipped with the binary. It panics only if the
// built-in tables above are inconsistent.
func Default() *Catalog {
	c, err := New(DefaultDepartments(), DefaultUnitName, DefaultUrgencyKeywords(), DefaultIssueLabels())
	if err != nil {
		panic("catalog: built-in defaults are invalid: " + err.Error())
	}
	return c
}
