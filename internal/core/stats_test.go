package core

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

func scenarioRecords() []Record {
	a := validRecord()
	a.ReferenceID = "A"
	a.Department = "Engineering"
	a.OpenedDate = NewDate(2024, 1, 1)
	a.ClosedDate = NewDate(2024, 1, 31)
	a.HiredDate = NewDate(2024, 1, 20)
	a.CVReceived = 10
	a.RecruiterMeetings = 2
	a.HiringManagerMeetings = 1
	a.OffersExtended = 1
	a.HiredCount = 1

	b := validRecord()
	b.ReferenceID = "B"
	b.Department = "Sales"
	b.OpenedDate = NewDate(2024, 2, 1)
	b.CVReceived = 5

	return []Record{a, b}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		in   []int
		want float64
	}{
		{[]int{7}, 7},
		{[]int{3, 7}, 5},
		{[]int{1, 3, 7}, 3},
		{[]int{7, 1, 3}, 3},
		{[]int{4, 1, 2, 10}, 3},
	}
	for _, tt := range tests {
		got, ok := Median(tt.in)
		if !ok || got != tt.want {
			t.Errorf("Median(%v) = %v,%v want %v", tt.in, got, ok, tt.want)
		}
	}
	if _, ok := Median(nil); ok {
		t.Errorf("Median(nil) should report no value")
	}

	in := []int{9, 1, 5}
	Median(in)
	if !reflect.DeepEqual(in, []int{9, 1, 5}) {
		t.Errorf("Median modified its input: %v", in)
	}
}

func TestRound1(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{19, "19.0"},
		{33.333, "33.3"},
		{66.666, "66.7"},
		{2.25, "2.3"},
		{-2.25, "-2.3"},
		{0, "0.0"},
	}
	for _, tt := range tests {
		if got := Round1(tt.in).String(); got != tt.want {
			t.Errorf("Round1(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestAggregateScenario(t *testing.T) {
	s, err := Aggregate(scenarioRecords())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if s.Total != 2 || s.Open != 1 || s.Closed != 1 || s.Hired != 1 {
		t.Fatalf("counts = total %d open %d closed %d hired %d", s.Total, s.Open, s.Closed, s.Hired)
	}
	if s.AvgTimeToFill == nil || s.AvgTimeToFill.String() != "19.0" {
		t.Fatalf("avg ttf = %v, want 19.0", s.AvgTimeToFill)
	}
	if s.MedianTimeToFill == nil || *s.MedianTimeToFill != 19 {
		t.Fatalf("median ttf = %v, want 19", s.MedianTimeToFill)
	}
	if s.AvgTimeToClose == nil || *s.AvgTimeToClose != 30 {
		t.Fatalf("avg ttc = %v, want 30", s.AvgTimeToClose)
	}
	if s.SuccessRate.String() != "50.0" {
		t.Fatalf("success rate = %s, want 50.0", s.SuccessRate)
	}
	if want := map[string]int{"Engineering": 1, "Sales": 1}; !reflect.DeepEqual(s.ByDepartment, want) {
		t.Fatalf("by department = %v, want %v", s.ByDepartment, want)
	}
	if s.OfferAcceptanceRate.String() != "100.0" {
		t.Fatalf("offer acceptance = %s", s.OfferAcceptanceRate)
	}
	if s.CVToMeetingRate.String() != "20.0" {
		t.Fatalf("cv to meeting = %s, want 20.0", s.CVToMeetingRate)
	}
	if s.AvgMeetingsPerHire.String() != "3.0" {
		t.Fatalf("meetings per hire = %s, want 3.0", s.AvgMeetingsPerHire)
	}
	if want := (FunnelTotals{CVs: 15, Meetings: 3, Offers: 1, Hires: 1}); s.Funnel != want {
		t.Fatalf("funnel = %+v, want %+v", s.Funnel, want)
	}

	if len(s.Departments) != 2 {
		t.Fatalf("expected 2 department rows, got %d", len(s.Departments))
	}
	eng, sales := s.Departments[0], s.Departments[1]
	if eng.Department != "Engineering" || eng.AvgTimeToFillLabel() != "19.0" || eng.SuccessRate.String() != "100.0" {
		t.Fatalf("unexpected engineering row %+v", eng)
	}
	if sales.AvgTimeToFillLabel() != "N/A" || sales.Open != 1 || sales.AvgCV.String() != "5.0" {
		t.Fatalf("unexpected sales row %+v", sales)
	}
}

func TestAggregateEmpty(t *testing.T) {
	if _, err := Aggregate(nil); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	_, err := BuildDashboard(scenarioRecords(), FilterCriteria{Department: "Legal"})
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData after filtering everything out, got %v", err)
	}
}

func TestAggregateZeroDenominators(t *testing.T) {
	r := validRecord()
	s, err := Aggregate([]Record{r})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if s.OfferAcceptanceRate != 0 || s.CVToMeetingRate != 0 || s.AvgMeetingsPerHire != 0 {
		t.Fatalf("aggregate rates must be zero on zero denominators: %+v", s)
	}
	if s.AvgTimeToFill != nil || s.MedianTimeToFill != nil {
		t.Fatalf("time to fill must be absent without hires")
	}

	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["offer_acceptance_rate"] != float64(0) {
		t.Fatalf("offer_acceptance_rate should serialise as 0, got %v", raw["offer_acceptance_rate"])
	}
	if raw["avg_time_to_fill"] != nil {
		t.Fatalf("avg_time_to_fill should serialise as null, got %v", raw["avg_time_to_fill"])
	}
}

func TestAggregateSuccessAndTurnover(t *testing.T) {
	var records []Record
	for i := 0; i < 10; i++ {
		r := validRecord()
		if i < 3 {
			r.HiredCount = 1
		}
		if i < 4 {
			r.Reason = ReasonReplacement
		}
		records = append(records, r)
	}
	s, err := Aggregate(records)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if s.SuccessRate.String() != "30.0" {
		t.Fatalf("success rate = %s, want 30.0", s.SuccessRate)
	}
	if s.TurnoverRate.String() != "40.0" {
		t.Fatalf("turnover rate = %s, want 40.0", s.TurnoverRate)
	}
	if s.ByReason[ReasonReplacement] != 4 || s.ByReason["New Position"] != 6 {
		t.Fatalf("by reason = %v", s.ByReason)
	}
}

func TestAggregateGroupingExclusions(t *testing.T) {
	white := validRecord()
	white.EmploymentType = "External"
	blue := validRecord()
	blue.CollarType = Blue
	grey := validRecord()
	grey.CollarType = "Grey"
	grey.EmploymentType = "Agency"

	s, err := Aggregate([]Record{white, blue, grey})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if s.Total != 3 {
		t.Fatalf("total = %d, want 3", s.Total)
	}
	if want := map[string]int{"White": 1, "Blue": 1}; !reflect.DeepEqual(s.ByCollarType, want) {
		t.Fatalf("by collar = %v, want %v", s.ByCollarType, want)
	}
	if want := map[string]int{"External": 1, "Agency": 1}; !reflect.DeepEqual(s.ByEmploymentType, want) {
		t.Fatalf("by employment type = %v, want %v", s.ByEmploymentType, want)
	}
}

func TestAggregateCollarKeysAlwaysPresent(t *testing.T) {
	s, err := Aggregate([]Record{validRecord()})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if n, ok := s.ByCollarType["Blue"]; !ok || n != 0 {
		t.Fatalf("Blue key should be present with 0, got %v", s.ByCollarType)
	}
}

func TestAggregateDeterministic(t *testing.T) {
	records := scenarioRecords()
	for i := 0; i < 5; i++ {
		r := validRecord()
		r.ReferenceID = string(rune('C' + i))
		r.Department = []string{"Ops", "HR", "Finance", "Ops", "Legal"}[i]
		r.HiredDate = NewDate(2024, 1, 10+i)
		r.HiredCount = 1
		records = append(records, r)
	}

	first, err := Aggregate(records)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	second, _ := Aggregate(records)
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("aggregation is not deterministic:\n%s\n%s", a, b)
	}
}

func TestBasicCountsAndOptions(t *testing.T) {
	records := scenarioRecords()
	c := BasicCounts(records)
	if c != (Counts{Total: 2, Open: 1, Closed: 1}) {
		t.Fatalf("counts = %+v", c)
	}

	o := FilterOptions(records)
	if !reflect.DeepEqual(o.Departments, []string{"Engineering", "Sales"}) {
		t.Fatalf("departments = %v", o.Departments)
	}
	if !reflect.DeepEqual(o.CollarTypes, []string{"White"}) {
		t.Fatalf("collar types = %v", o.CollarTypes)
	}
	if o.MinDate != "2024-01-01" || o.MaxDate != "2024-02-01" {
		t.Fatalf("date range = %s..%s", o.MinDate, o.MaxDate)
	}
}

func TestNewRecordView(t *testing.T) {
	a := scenarioRecords()[0]
	v := NewRecordView(a, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	if v.Status != StatusHired || v.DaysOpen != 30 {
		t.Fatalf("unexpected view %+v", v)
	}
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["reference_id"] != "A" || raw["time_to_fill_days"] != float64(19) || raw["status"] != "hired" {
		t.Fatalf("unexpected view json %s", b)
	}
}
