package google

import (
	"fmt"
	"strconv"
	"strings"

	"rekrutacje/internal/core"
)

// Column headers of the mirrored sheet, in order.
var header = []string{
	"ID", "Reference ID", "Department", "Division", "Position", "Location",
	"Hiring Manager", "Collar Type", "Manager", "Reason", "Replacement For",
	"Employment Type", "Gender", "Opened", "Closed", "Hired",
	"CVs Received", "CVs Rejected", "Recruiter Meetings", "HM Meetings",
	"Offers Extended", "Offers Rejected", "Hired Count",
	"Status", "Time To Fill", "Time To Close", "Comment",
}

// buildRows renders the header plus one row per record, including the
// derived status and durations.
func buildRows(records []core.Record) [][]any {
	rows := make([][]any, 0, len(records)+1)
	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	rows = append(rows, head)

	for _, r := range records {
		m := core.DeriveMetrics(r)
		rows = append(rows, []any{
			r.ID,
			r.ReferenceID,
			r.Department,
			r.Division,
			r.Position,
			r.Location,
			r.HiringManager,
			string(r.CollarType),
			yesNo(r.IsManager),
			r.Reason,
			r.ReplacementFor,
			r.EmploymentType,
			r.Gender,
			r.OpenedDate.String(),
			r.ClosedDate.String(),
			r.HiredDate.String(),
			r.CVReceived,
			r.CVRejectedByRecruiter,
			r.RecruiterMeetings,
			r.HiringManagerMeetings,
			r.OffersExtended,
			r.OffersRejectedByCandidate,
			r.HiredCount,
			string(core.RecordStatus(r)),
			optionalInt(m.TimeToFillDays),
			optionalInt(m.TimeToCloseDays),
			r.Comment,
		})
	}
	return rows
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func optionalInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

// parseRows converts a values matrix with a header row back into records.
// Columns are located by header name so reordered sheets still parse.
// Rows without a reference id are skipped; malformed cells are reported.
func parseRows(values [][]any) ([]core.Record, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	col := func(name string) int { return indexOf(headers, name) }
	if col("Reference ID") == -1 || col("Opened") == -1 {
		return nil, fmt.Errorf("unexpected sheet header: got headers=%v", headers)
	}

	var out []core.Record
	var problems []string
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		get := func(name string) string { return safeGet(row, col(name)) }

		ref := get("Reference ID")
		if ref == "" {
			continue
		}
		r := core.Record{
			ReferenceID:    ref,
			Department:     get("Department"),
			Division:       get("Division"),
			Position:       get("Position"),
			Location:       get("Location"),
			HiringManager:  get("Hiring Manager"),
			CollarType:     core.CollarType(get("Collar Type")),
			IsManager:      strings.EqualFold(get("Manager"), "yes") || strings.EqualFold(get("Manager"), "true"),
			Reason:         get("Reason"),
			ReplacementFor: get("Replacement For"),
			EmploymentType: get("Employment Type"),
			Gender:         get("Gender"),
			Comment:        get("Comment"),
		}

		var err error
		if r.OpenedDate, err = core.ParseDate(get("Opened")); err != nil {
			problems = append(problems, fmt.Sprintf("row %d: opened: %v", i+1, err))
			continue
		}
		if r.ClosedDate, err = core.ParseDate(get("Closed")); err != nil {
			problems = append(problems, fmt.Sprintf("row %d: closed: %v", i+1, err))
			continue
		}
		if r.HiredDate, err = core.ParseDate(get("Hired")); err != nil {
			problems = append(problems, fmt.Sprintf("row %d: hired: %v", i+1, err))
			continue
		}

		counters := []struct {
			name string
			dst  *int
		}{
			{"CVs Received", &r.CVReceived},
			{"CVs Rejected", &r.CVRejectedByRecruiter},
			{"Recruiter Meetings", &r.RecruiterMeetings},
			{"HM Meetings", &r.HiringManagerMeetings},
			{"Offers Extended", &r.OffersExtended},
			{"Offers Rejected", &r.OffersRejectedByCandidate},
			{"Hired Count", &r.HiredCount},
		}
		bad := false
		for _, c := range counters {
			n, ok := parseCount(get(c.name))
			if !ok {
				problems = append(problems, fmt.Sprintf("row %d: %s: invalid number %q", i+1, c.name, get(c.name)))
				bad = true
				break
			}
			*c.dst = n
		}
		if bad {
			continue
		}
		out = append(out, r)
	}

	if len(problems) > 0 {
		return out, fmt.Errorf("%d malformed rows: %s", len(problems), strings.Join(problems, "; "))
	}
	return out, nil
}

// parseCount accepts blank cells as zero and tolerates "3.0" style numbers.
func parseCount(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// columnName converts a 1-based column index into A1 notation letters.
func columnName(n int) string {
	name := ""
	for n > 0 {
		n--
		name = string(rune('A'+n%26)) + name
		n /= 26
	}
	return name
}

// quoteSheet quotes a sheet name for use in an A1 range.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
