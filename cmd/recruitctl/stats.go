package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"rekrutacje/internal/core"
)

var (
	statsCriteria core.FilterCriteria
	statsJSON     bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print dashboard statistics",
	Long: `Compute the dashboard KPIs for the selected records.

Filters match the dashboard: dates are compared against the opened date and
are inclusive.

Examples:
  recruitctl stats --file data/seed_records.yaml
  recruitctl stats --db data/rekrutacje.db --collar-type Blue --json`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	f := statsCmd.Flags()
	f.StringVar(&statsCriteria.DateFrom, "date-from", "", "Earliest opened date (YYYY-MM-DD)")
	f.StringVar(&statsCriteria.DateTo, "date-to", "", "Latest opened date (YYYY-MM-DD)")
	f.StringVar(&statsCriteria.Department, "department", "", "Department")
	f.StringVar(&statsCriteria.CollarType, "collar-type", "", "Collar type (White or Blue)")
	f.BoolVar(&statsJSON, "json", false, "Print the raw statistics as JSON")
}

func runStats(cmd *cobra.Command, _ []string) error {
	if _, err := core.ParseDate(statsCriteria.DateFrom); err != nil {
		return fmt.Errorf("--date-from: %w", err)
	}
	if _, err := core.ParseDate(statsCriteria.DateTo); err != nil {
		return fmt.Errorf("--date-to: %w", err)
	}

	stats, err := loadStats(cmd, statsCriteria)
	if errors.Is(err, core.ErrNoData) {
		fmt.Fprintln(cmd.OutOrStdout(), "No data for the selected filters")
		return nil
	}
	if err != nil {
		return err
	}

	if statsJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	return printStats(cmd.OutOrStdout(), stats)
}

func loadStats(cmd *cobra.Command, c core.FilterCriteria) (core.DashboardStats, error) {
	if remote := flags.remote(); remote != nil {
		return remote.Dashboard(cmd.Context(), c)
	}

	store, closeStore, err := flags.openStore()
	if err != nil {
		return core.DashboardStats{}, err
	}
	defer closeStore()

	all, err := store.ListRecords(cmd.Context())
	if err != nil {
		return core.DashboardStats{}, fmt.Errorf("load records: %w", err)
	}
	return core.BuildDashboard(all, c)
}

func printStats(out io.Writer, s core.DashboardStats) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Requisitions\t%d\n", s.Total)
	fmt.Fprintf(tw, "Open / closed / hired\t%d / %d / %d\n", s.Open, s.Closed, s.Hired)
	fmt.Fprintf(tw, "Managers / others\t%d / %d\n", s.Managers, s.NonManagers)
	fmt.Fprintf(tw, "Avg time to fill\t%s\n", days(s.AvgTimeToFill))
	fmt.Fprintf(tw, "Median time to fill\t%s\n", days(s.MedianTimeToFill))
	fmt.Fprintf(tw, "Avg time to close\t%s\n", days(s.AvgTimeToClose))
	fmt.Fprintf(tw, "Median time to close\t%s\n", days(s.MedianTimeToClose))
	fmt.Fprintf(tw, "Offer acceptance\t%s%%\n", s.OfferAcceptanceRate)
	fmt.Fprintf(tw, "CV to meeting\t%s%%\n", s.CVToMeetingRate)
	fmt.Fprintf(tw, "Interview to offer\t%s%%\n", s.InterviewToOfferRate)
	fmt.Fprintf(tw, "Offer to hire\t%s%%\n", s.OfferToHireRate)
	fmt.Fprintf(tw, "Success rate\t%s%%\n", s.SuccessRate)
	fmt.Fprintf(tw, "Turnover rate\t%s%%\n", s.TurnoverRate)
	fmt.Fprintf(tw, "Funnel\t%d CVs > %d meetings > %d offers > %d hires\n",
		s.Funnel.CVs, s.Funnel.Meetings, s.Funnel.Offers, s.Funnel.Hires)
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "DEPARTMENT\tTOTAL\tOPEN\tHIRED\tAVG TTF\tSUCCESS")
	for _, d := range s.Departments {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s%%\n",
			d.Department, d.Total, d.Open, d.Hired, d.AvgTimeToFillLabel(), d.SuccessRate)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "REASON\tCOUNT")
	for _, k := range sortedKeys(s.ByReason) {
		fmt.Fprintf(tw, "%s\t%d\n", k, s.ByReason[k])
	}
	return tw.Flush()
}

func days(d *core.Decimal) string {
	if d == nil {
		return "N/A"
	}
	return d.String() + " days"
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
