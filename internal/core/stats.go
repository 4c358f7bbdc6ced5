package core

import (
	"errors"
	"slices"
	"sort"
)

// ErrNoData is returned by Aggregate when the collection is empty.
var ErrNoData = errors.New("no data for current filter")

// FunnelTotals sums each recruitment stage across records.
type FunnelTotals struct {
	CVs      int `json:"cvs"`
	Meetings int `json:"meetings"`
	Offers   int `json:"offers"`
	Hires    int `json:"hires"`
}

// DepartmentRow is one line of the per-department breakdown.
type DepartmentRow struct {
	Department    string   `json:"department"`
	Total         int      `json:"total"`
	Open          int      `json:"open"`
	Closed        int      `json:"closed"`
	Hired         int      `json:"hired"`
	AvgTimeToFill *Decimal `json:"avg_time_to_fill"`
	AvgCV         Decimal  `json:"avg_cv"`
	SuccessRate   Decimal  `json:"success_rate"`
}

// AvgTimeToFillLabel renders the average or "N/A" when no record was hired.
func (d DepartmentRow) AvgTimeToFillLabel() string {
	if d.AvgTimeToFill == nil {
		return "N/A"
	}
	return d.AvgTimeToFill.String()
}

// DashboardStats is the aggregate view over a record collection.
// Per-record rates are absent on zero denominators; the aggregate rates here
// are zero instead.
type DashboardStats struct {
	Total       int `json:"total"`
	Open        int `json:"open"`
	Closed      int `json:"closed"`
	Hired       int `json:"hired"`
	Managers    int `json:"managers"`
	NonManagers int `json:"non_managers"`

	AvgTimeToFill     *Decimal `json:"avg_time_to_fill"`
	MedianTimeToFill  *Decimal `json:"median_time_to_fill"`
	AvgTimeToClose    *Decimal `json:"avg_time_to_close"`
	MedianTimeToClose *Decimal `json:"median_time_to_close"`

	OfferAcceptanceRate  Decimal `json:"offer_acceptance_rate"`
	CVToMeetingRate      Decimal `json:"cv_to_meeting_rate"`
	InterviewToOfferRate Decimal `json:"interview_to_offer_rate"`
	OfferToHireRate      Decimal `json:"offer_to_hire_rate"`
	SuccessRate          Decimal `json:"success_rate"`
	TurnoverRate         Decimal `json:"turnover_rate"`
	AvgMeetingsPerHire   Decimal `json:"avg_meetings_per_hire"`

	TotalCVRejected     int `json:"total_cv_rejected"`
	TotalOffersRejected int `json:"total_offers_rejected"`

	ByDepartment     map[string]int `json:"by_department"`
	ByReason         map[string]int `json:"by_reason"`
	ByCollarType     map[string]int `json:"by_collar_type"`
	ByEmploymentType map[string]int `json:"by_employment_type"`

	Funnel      FunnelTotals    `json:"funnel"`
	Departments []DepartmentRow `json:"departments"`
}

// Median returns the median of values and false when values is empty.
// The input slice is not modified.
func Median(values []int) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid]), true
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2, true
}

func mean(values []int) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values)), true
}

func avgAndMedian(values []int) (avg, med *Decimal) {
	if m, ok := mean(values); ok {
		avg = decimalPtr(Round1(m))
	}
	if m, ok := Median(values); ok {
		med = decimalPtr(Round1(m))
	}
	return avg, med
}

type departmentAcc struct {
	row   DepartmentRow
	ttf   []int
	cvSum int
}

// Aggregate builds dashboard statistics for an already filtered collection.
// It returns ErrNoData for an empty collection.
func Aggregate(records []Record) (DashboardStats, error) {
	if len(records) == 0 {
		return DashboardStats{}, ErrNoData
	}

	s := DashboardStats{
		Total:            len(records),
		ByDepartment:     map[string]int{},
		ByReason:         map[string]int{},
		ByCollarType:     map[string]int{string(White): 0, string(Blue): 0},
		ByEmploymentType: map[string]int{},
	}

	var ttf, ttc []int
	replacements := 0
	depts := map[string]*departmentAcc{}

	for _, r := range records {
		m := DeriveMetrics(r)

		if r.ClosedDate.IsZero() {
			s.Open++
		} else {
			s.Closed++
		}
		if r.HiredCount > 0 {
			s.Hired++
		}
		if r.IsManager {
			s.Managers++
		} else {
			s.NonManagers++
		}
		if m.TimeToFillDays != nil {
			ttf = append(ttf, *m.TimeToFillDays)
		}
		if m.TimeToCloseDays != nil {
			ttc = append(ttc, *m.TimeToCloseDays)
		}
		if r.Reason == ReasonReplacement {
			replacements++
		}

		s.Funnel.CVs += r.CVReceived
		s.Funnel.Meetings += r.Meetings()
		s.Funnel.Offers += r.OffersExtended
		s.Funnel.Hires += r.HiredCount
		s.TotalCVRejected += r.CVRejectedByRecruiter
		s.TotalOffersRejected += r.OffersRejectedByCandidate

		s.ByDepartment[r.Department]++
		s.ByReason[r.Reason]++
		if r.CollarType == White || r.CollarType == Blue {
			s.ByCollarType[string(r.CollarType)]++
		}
		if r.EmploymentType != "" {
			s.ByEmploymentType[r.EmploymentType]++
		}

		acc, ok := depts[r.Department]
		if !ok {
			acc = &departmentAcc{row: DepartmentRow{Department: r.Department}}
			depts[r.Department] = acc
		}
		acc.row.Total++
		if r.ClosedDate.IsZero() {
			acc.row.Open++
		} else {
			acc.row.Closed++
		}
		if r.HiredCount > 0 {
			acc.row.Hired++
		}
		if m.TimeToFillDays != nil {
			acc.ttf = append(acc.ttf, *m.TimeToFillDays)
		}
		acc.cvSum += r.CVReceived
	}

	s.AvgTimeToFill, s.MedianTimeToFill = avgAndMedian(ttf)
	s.AvgTimeToClose, s.MedianTimeToClose = avgAndMedian(ttc)

	s.OfferAcceptanceRate = Percent(s.Funnel.Offers-s.TotalOffersRejected, s.Funnel.Offers)
	s.CVToMeetingRate = Percent(s.Funnel.Meetings, s.Funnel.CVs)
	s.InterviewToOfferRate = Percent(s.Funnel.Offers, s.Funnel.Meetings)
	s.OfferToHireRate = Percent(s.Funnel.Hires, s.Funnel.Offers)
	s.SuccessRate = Percent(s.Hired, s.Total)
	s.TurnoverRate = Percent(replacements, s.Total)
	if s.Hired > 0 {
		s.AvgMeetingsPerHire = Round1(float64(s.Funnel.Meetings) / float64(s.Hired))
	}

	s.Departments = make([]DepartmentRow, 0, len(depts))
	for _, acc := range depts {
		row := acc.row
		if avg, ok := mean(acc.ttf); ok {
			row.AvgTimeToFill = decimalPtr(Round1(avg))
		}
		row.AvgCV = Round1(float64(acc.cvSum) / float64(row.Total))
		row.SuccessRate = Percent(row.Hired, row.Total)
		s.Departments = append(s.Departments, row)
	}
	sort.Slice(s.Departments, func(i, j int) bool {
		return s.Departments[i].Department < s.Departments[j].Department
	})

	return s, nil
}

// BuildDashboard filters all by c and aggregates the result.
func BuildDashboard(all []Record, c FilterCriteria) (DashboardStats, error) {
	return Aggregate(Filter(all, c))
}

// Counts is the short summary served by the statistics endpoint.
type Counts struct {
	Total  int `json:"total"`
	Open   int `json:"open"`
	Closed int `json:"closed"`
}

// BasicCounts counts records by whether they have a closing date.
func BasicCounts(records []Record) Counts {
	c := Counts{Total: len(records)}
	for _, r := range records {
		if r.ClosedDate.IsZero() {
			c.Open++
		} else {
			c.Closed++
		}
	}
	return c
}

// Options lists the distinct values available to the dashboard filters.
type Options struct {
	Departments []string `json:"departments"`
	Divisions   []string `json:"divisions"`
	CollarTypes []string `json:"collar_types"`
	MinDate     string   `json:"min_date,omitempty"`
	MaxDate     string   `json:"max_date,omitempty"`
}

// FilterOptions collects sorted distinct departments, divisions and collar
// types plus the opened-date range, which the dashboard uses as its default.
func FilterOptions(records []Record) Options {
	depts := map[string]struct{}{}
	divs := map[string]struct{}{}
	collars := map[string]struct{}{}
	var o Options
	for _, r := range records {
		if r.Department != "" {
			depts[r.Department] = struct{}{}
		}
		if r.Division != "" {
			divs[r.Division] = struct{}{}
		}
		if r.CollarType != "" {
			collars[string(r.CollarType)] = struct{}{}
		}
		opened := r.OpenedDate.String()
		if opened == "" {
			continue
		}
		if o.MinDate == "" || opened < o.MinDate {
			o.MinDate = opened
		}
		if opened > o.MaxDate {
			o.MaxDate = opened
		}
	}
	o.Departments = sortedKeys(depts)
	o.Divisions = sortedKeys(divs)
	o.CollarTypes = sortedKeys(collars)
	return o
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
