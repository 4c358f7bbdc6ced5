package core

import (
	"math"
	"time"
)

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
	StatusHired  Status = "hired"
)

// Status is the lifecycle state of a requisition.
type Status string

// RecordMetrics holds the values derived from a single record.
// Nil fields are absent: the input date is missing or the denominator is zero.
type RecordMetrics struct {
	TimeToFillDays      *int     `json:"time_to_fill_days"`
	TimeToCloseDays     *int     `json:"time_to_close_days"`
	OfferAcceptanceRate *Decimal `json:"offer_acceptance_rate"`
	CVToMeetingRate     *Decimal `json:"cv_to_meeting_rate"`
}

// DeriveMetrics computes per-record metrics. It never fails; negative day
// differences are returned as they are.
func DeriveMetrics(r Record) RecordMetrics {
	var m RecordMetrics
	if !r.HiredDate.IsZero() && !r.OpenedDate.IsZero() {
		d := daysBetween(r.OpenedDate, r.HiredDate)
		m.TimeToFillDays = &d
	}
	if !r.ClosedDate.IsZero() && !r.OpenedDate.IsZero() {
		d := daysBetween(r.OpenedDate, r.ClosedDate)
		m.TimeToCloseDays = &d
	}
	if r.OffersExtended > 0 {
		m.OfferAcceptanceRate = decimalPtr(Percent(r.OffersExtended-r.OffersRejectedByCandidate, r.OffersExtended))
	}
	if r.CVReceived > 0 {
		m.CVToMeetingRate = decimalPtr(Percent(r.Meetings(), r.CVReceived))
	}
	return m
}

// RecordStatus reports hired when a hire date is set, closed when only a
// close date is set, open otherwise.
func RecordStatus(r Record) Status {
	switch {
	case !r.HiredDate.IsZero():
		return StatusHired
	case !r.ClosedDate.IsZero():
		return StatusClosed
	default:
		return StatusOpen
	}
}

// DaysOpen counts whole days from opening to closing, or to now for
// requisitions still open. Partial days round up.
func DaysOpen(r Record, now time.Time) int {
	end := now
	if !r.ClosedDate.IsZero() {
		end = r.ClosedDate.Time
	}
	hours := math.Abs(end.Sub(r.OpenedDate.Time).Hours())
	return int(math.Ceil(hours / 24))
}

// Badge classifies a days-open count for display.
func Badge(daysOpen int) string {
	switch {
	case daysOpen <= 45:
		return "ok"
	case daysOpen <= 60:
		return "alert"
	default:
		return "warning"
	}
}

// RecordView is a record together with everything derived from it.
type RecordView struct {
	Record
	RecordMetrics
	Status   Status `json:"status"`
	DaysOpen int    `json:"days_open"`
}

// NewRecordView derives metrics and status for r.
func NewRecordView(r Record, now time.Time) RecordView {
	return RecordView{
		Record:        r,
		RecordMetrics: DeriveMetrics(r),
		Status:        RecordStatus(r),
		DaysOpen:      DaysOpen(r, now),
	}
}
