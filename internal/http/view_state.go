package http

import (
	"net/url"
	"sort"

	"rekrutacje/internal/core"
)

// Chart types understood by the dashboard script.
const (
	ChartBar      = "bar"
	ChartPie      = "pie"
	ChartDoughnut = "doughnut"
)

// Chart is one dataset ready for the chart library. Labels and Values are
// index-aligned.
type Chart struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Title      string   `json:"title"`
	Labels     []string `json:"labels"`
	Values     []int    `json:"values"`
	Horizontal bool     `json:"horizontal,omitempty"`
}

// ChartSet groups every chart drawn on the dashboard.
type ChartSet struct {
	Departments     Chart `json:"departments"`
	Reasons         Chart `json:"reasons"`
	CollarTypes     Chart `json:"collar_types"`
	EmploymentTypes Chart `json:"employment_types"`
	Funnel          Chart `json:"funnel"`
}

// BuildCharts derives the chart datasets from aggregated statistics.
func BuildCharts(stats core.DashboardStats) ChartSet {
	return ChartSet{
		Departments:     mapChart("departments", ChartBar, "Requisitions by department", stats.ByDepartment),
		Reasons:         mapChart("reasons", ChartPie, "Recruitment reasons", stats.ByReason),
		CollarTypes:     mapChart("collar_types", ChartDoughnut, "White vs blue collar", stats.ByCollarType),
		EmploymentTypes: mapChart("employment_types", ChartBar, "Employment types", stats.ByEmploymentType),
		Funnel: Chart{
			ID:         "funnel",
			Type:       ChartBar,
			Title:      "Recruitment funnel",
			Labels:     []string{"CVs", "Meetings", "Offers", "Hires"},
			Values:     []int{stats.Funnel.CVs, stats.Funnel.Meetings, stats.Funnel.Offers, stats.Funnel.Hires},
			Horizontal: true,
		},
	}
}

func mapChart(id, kind, title string, counts map[string]int) Chart {
	labels := make([]string, 0, len(counts))
	for k := range counts {
		labels = append(labels, k)
	}
	sort.Strings(labels)

	values := make([]int, len(labels))
	for i, l := range labels {
		values[i] = counts[l]
	}
	return Chart{ID: id, Type: kind, Title: title, Labels: labels, Values: values}
}

// DashboardViewState is everything the dashboard page renders for one
// request: the active filters, the filter choices, and the statistics with
// their charts. It is built per request and never shared.
type DashboardViewState struct {
	Filters core.FilterCriteria  `json:"filters"`
	Options core.Options         `json:"options"`
	Stats   *core.DashboardStats `json:"stats,omitempty"`
	Charts  *ChartSet            `json:"charts,omitempty"`
	Message string               `json:"message,omitempty"`
}

// NewDashboardViewState reads the filters from query.
func NewDashboardViewState(query url.Values) DashboardViewState {
	return DashboardViewState{Filters: ParseFilterCriteria(query)}
}

// WithOptions sets the filter choices and, when the query named no dates,
// defaults the date range to the span of the data.
func (v DashboardViewState) WithOptions(opts core.Options) DashboardViewState {
	v.Options = opts
	if v.Filters.DateFrom == "" && v.Filters.DateTo == "" {
		v.Filters.DateFrom = opts.MinDate
		v.Filters.DateTo = opts.MaxDate
	}
	return v
}

// WithStats attaches the statistics and their charts.
func (v DashboardViewState) WithStats(stats core.DashboardStats) DashboardViewState {
	charts := BuildCharts(stats)
	v.Stats = &stats
	v.Charts = &charts
	v.Message = ""
	return v
}

// WithMessage records why no statistics are shown.
func (v DashboardViewState) WithMessage(msg string) DashboardViewState {
	v.Stats = nil
	v.Charts = nil
	v.Message = msg
	return v
}

// HasData reports whether statistics are attached.
func (v DashboardViewState) HasData() bool {
	return v.Stats != nil
}

// IsSelected is used by the templates to mark the active dropdown option.
func (v DashboardViewState) IsSelected(field, value string) bool {
	switch field {
	case "department":
		return v.Filters.Department == value
	case "collar_type":
		return v.Filters.CollarType == value
	}
	return false
}
