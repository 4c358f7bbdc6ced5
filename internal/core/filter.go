package core

import "strings"

// FilterCriteria restricts a record collection. Empty fields impose no
// constraint. Dates are ISO strings compared lexically against the opened date.
type FilterCriteria struct {
	DateFrom   string `json:"date_from,omitempty"`
	DateTo     string `json:"date_to,omitempty"`
	Department string `json:"department,omitempty"`
	CollarType string `json:"collar_type,omitempty"`
}

// IsEmpty reports whether no criterion is set.
func (c FilterCriteria) IsEmpty() bool {
	return c == FilterCriteria{}
}

// Key returns a stable cache key for the criteria.
func (c FilterCriteria) Key() string {
	return strings.Join([]string{c.DateFrom, c.DateTo, c.Department, c.CollarType}, "|")
}

// Matches reports whether r satisfies every set criterion.
func (c FilterCriteria) Matches(r Record) bool {
	opened := r.OpenedDate.String()
	if c.DateFrom != "" && opened < c.DateFrom {
		return false
	}
	if c.DateTo != "" && opened > c.DateTo {
		return false
	}
	if c.Department != "" && r.Department != c.Department {
		return false
	}
	if c.CollarType != "" && string(r.CollarType) != c.CollarType {
		return false
	}
	return true
}

// Filter returns a new slice with the records matching c. The input is not modified.
func Filter(records []Record, c FilterCriteria) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if c.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}
