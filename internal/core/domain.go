package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used on the wire and for
// lexical comparisons in filters.
const DateLayout = "2006-01-02"

const (
	White CollarType = "White"
	Blue  CollarType = "Blue"
)

// ReasonReplacement marks a requisition opened to replace a departing employee.
const ReasonReplacement = "Replacement"

type (
	CollarType string

	// Date is a calendar date at UTC midnight. The zero value means "absent".
	Date struct {
		time.Time
	}

	// Record is a single recruitment requisition.
	Record struct {
		ID          int64  `json:"id" yaml:"id"`
		ReferenceID string `json:"reference_id" yaml:"reference_id"`

		Department     string     `json:"department" yaml:"department"`
		Division       string     `json:"division" yaml:"division"`
		Position       string     `json:"position" yaml:"position"`
		Location       string     `json:"location" yaml:"location"`
		HiringManager  string     `json:"hiring_manager" yaml:"hiring_manager"`
		CollarType     CollarType `json:"collar_type" yaml:"collar_type"`
		IsManager      bool       `json:"is_manager" yaml:"is_manager"`
		Reason         string     `json:"reason" yaml:"reason"`
		ReplacementFor string     `json:"replacement_for,omitempty" yaml:"replacement_for"`
		EmploymentType string     `json:"employment_type,omitempty" yaml:"employment_type"`
		Gender         string     `json:"gender,omitempty" yaml:"gender"`
		Comment        string     `json:"comment,omitempty" yaml:"comment"`

		OpenedDate Date `json:"opened_date" yaml:"opened_date"`
		ClosedDate Date `json:"closed_date" yaml:"closed_date"`
		HiredDate  Date `json:"hired_date" yaml:"hired_date"`

		CVReceived                int `json:"cv_received" yaml:"cv_received"`
		CVRejectedByRecruiter     int `json:"cv_rejected_by_recruiter" yaml:"cv_rejected_by_recruiter"`
		RecruiterMeetings         int `json:"recruiter_meetings" yaml:"recruiter_meetings"`
		HiringManagerMeetings     int `json:"hiring_manager_meetings" yaml:"hiring_manager_meetings"`
		OffersExtended            int `json:"offers_extended" yaml:"offers_extended"`
		OffersRejectedByCandidate int `json:"offers_rejected_by_candidate" yaml:"offers_rejected_by_candidate"`
		HiredCount                int `json:"hired_count" yaml:"hired_count"`
	}
)

var (
	ErrEmptyReferenceID   = errors.New("empty reference id")
	ErrEmptyDepartment    = errors.New("empty department")
	ErrEmptyDivision      = errors.New("empty division")
	ErrEmptyPosition      = errors.New("empty position")
	ErrEmptyLocation      = errors.New("empty location")
	ErrEmptyHiringManager = errors.New("empty hiring manager")
	ErrEmptyReason        = errors.New("empty recruitment reason")
	ErrEmptyCollarType    = errors.New("empty collar type")
	ErrMissingOpenedDate  = errors.New("missing opened date")
	ErrNegativeCounter    = errors.New("funnel counters cannot be negative")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. An empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is absent
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String returns the ISO form, or "" for an absent date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// daysBetween is floor((to - from) / 24h) on UTC calendar dates.
func daysBetween(from, to Date) int {
	ms := to.Sub(from.Time).Milliseconds()
	const msPerDay = 86_400_000
	days := ms / msPerDay
	if ms%msPerDay != 0 && ms < 0 {
		days--
	}
	return int(days)
}

// Validate rejects records that cannot be stored.
func (r Record) Validate() error {
	required := []struct {
		value string
		err   error
	}{
		{r.ReferenceID, ErrEmptyReferenceID},
		{r.Department, ErrEmptyDepartment},
		{r.Division, ErrEmptyDivision},
		{r.Position, ErrEmptyPosition},
		{r.Location, ErrEmptyLocation},
		{r.HiringManager, ErrEmptyHiringManager},
		{r.Reason, ErrEmptyReason},
		{string(r.CollarType), ErrEmptyCollarType},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return f.err
		}
	}
	if r.OpenedDate.IsZero() {
		return ErrMissingOpenedDate
	}
	for _, c := range r.counters() {
		if c < 0 {
			return ErrNegativeCounter
		}
	}
	return nil
}

// Warnings reports data-quality problems that do not prevent storage.
func (r Record) Warnings() []string {
	var warnings []string
	if !r.HiredDate.IsZero() && r.HiredDate.Before(r.OpenedDate.Time) {
		warnings = append(warnings, fmt.Sprintf("hired date %s is before opened date %s", r.HiredDate, r.OpenedDate))
	}
	if !r.ClosedDate.IsZero() && r.ClosedDate.Before(r.OpenedDate.Time) {
		warnings = append(warnings, fmt.Sprintf("closed date %s is before opened date %s", r.ClosedDate, r.OpenedDate))
	}
	if r.ReplacementFor != "" && r.Reason != ReasonReplacement {
		warnings = append(warnings, "replacement_for is set but reason is not Replacement")
	}
	if r.OffersRejectedByCandidate > r.OffersExtended {
		warnings = append(warnings, fmt.Sprintf("offers rejected (%d) exceed offers extended (%d)", r.OffersRejectedByCandidate, r.OffersExtended))
	}
	return warnings
}

func (r Record) counters() []int {
	return []int{
		r.CVReceived,
		r.CVRejectedByRecruiter,
		r.RecruiterMeetings,
		r.HiringManagerMeetings,
		r.OffersExtended,
		r.OffersRejectedByCandidate,
		r.HiredCount,
	}
}

// Meetings is the sum of recruiter and hiring manager meetings.
func (r Record) Meetings() int {
	return r.RecruiterMeetings + r.HiringManagerMeetings
}

// RecordPatch carries a partial update. Nil fields are left untouched.
type RecordPatch struct {
	ReferenceID    *string     `json:"reference_id"`
	Department     *string     `json:"department"`
	Division       *string     `json:"division"`
	Position       *string     `json:"position"`
	Location       *string     `json:"location"`
	HiringManager  *string     `json:"hiring_manager"`
	CollarType     *CollarType `json:"collar_type"`
	IsManager      *bool       `json:"is_manager"`
	Reason         *string     `json:"reason"`
	ReplacementFor *string     `json:"replacement_for"`
	EmploymentType *string     `json:"employment_type"`
	Gender         *string     `json:"gender"`
	Comment        *string     `json:"comment"`

	OpenedDate *Date `json:"opened_date"`
	ClosedDate *Date `json:"closed_date"`
	HiredDate  *Date `json:"hired_date"`

	CVReceived                *int `json:"cv_received"`
	CVRejectedByRecruiter     *int `json:"cv_rejected_by_recruiter"`
	RecruiterMeetings         *int `json:"recruiter_meetings"`
	HiringManagerMeetings     *int `json:"hiring_manager_meetings"`
	OffersExtended            *int `json:"offers_extended"`
	OffersRejectedByCandidate *int `json:"offers_rejected_by_candidate"`
	HiredCount                *int `json:"hired_count"`
}

// Apply returns a copy of r with the patch applied.
func (p RecordPatch) Apply(r Record) Record {
	setString(&r.ReferenceID, p.ReferenceID)
	setString(&r.Department, p.Department)
	setString(&r.Division, p.Division)
	setString(&r.Position, p.Position)
	setString(&r.Location, p.Location)
	setString(&r.HiringManager, p.HiringManager)
	if p.CollarType != nil {
		r.CollarType = *p.CollarType
	}
	if p.IsManager != nil {
		r.IsManager = *p.IsManager
	}
	setString(&r.Reason, p.Reason)
	setString(&r.ReplacementFor, p.ReplacementFor)
	setString(&r.EmploymentType, p.EmploymentType)
	setString(&r.Gender, p.Gender)
	setString(&r.Comment, p.Comment)
	if p.OpenedDate != nil {
		r.OpenedDate = *p.OpenedDate
	}
	if p.ClosedDate != nil {
		r.ClosedDate = *p.ClosedDate
	}
	if p.HiredDate != nil {
		r.HiredDate = *p.HiredDate
	}
	setInt(&r.CVReceived, p.CVReceived)
	setInt(&r.CVRejectedByRecruiter, p.CVRejectedByRecruiter)
	setInt(&r.RecruiterMeetings, p.RecruiterMeetings)
	setInt(&r.HiringManagerMeetings, p.HiringManagerMeetings)
	setInt(&r.OffersExtended, p.OffersExtended)
	setInt(&r.OffersRejectedByCandidate, p.OffersRejectedByCandidate)
	setInt(&r.HiredCount, p.HiredCount)
	return r
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
