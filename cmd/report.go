package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/report"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show who is present or absent for a day",
	Long: `Print the attendance report for a day: everyone marked present in the
ledger, or with --absent the enrolled identities missing from it.

Examples:
  # Today's present list
  face-attendance report

  # Who was absent last Friday
  face-attendance report --date 2026-08-28 --absent

  # Export to CSV
  face-attendance report --date 2026-08-28 --csv attendance.csv`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("date", "", "Report date key (defaults to today)")
	reportCmd.Flags().Bool("absent", false, "List absent identities instead of present ones")
	reportCmd.Flags().String("csv", "", "Write the report to a CSV file")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	s, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	records, err := s.roster.ListRecords(ctx)
	if err != nil {
		return fmt.Errorf("loading roster: %w", err)
	}

	dateKey := mustGetString(cmd, "date")
	if dateKey == "" {
		dateKey = time.Now().Format(cfg.Ledger.DateFormat)
	}
	led, err := ledger.Open(ctx, s.ledger, dateKey)
	if err != nil {
		return fmt.Errorf("opening attendance ledger: %w", err)
	}
	snap := led.Snapshot()

	people := report.FromRecords(records)
	label := "present"
	listed := report.Present(people, snap)
	if mustGetBool(cmd, "absent") {
		label = "absent"
		listed = report.Absent(people, snap)
	}

	if path := mustGetString(cmd, "csv"); path != "" {
		if err := writeReportCSV(path, dateKey, label, listed); err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", path)
	}

	rows := make([][]string, 0, len(listed))
	for _, p := range listed {
		rows = append(rows, []string{p.ID, p.DisplayName})
	}
	fmt.Println(renderTable([]string{"ID", "Name"}, rows))
	fmt.Printf("%s: %d of %d %s\n", dateKey, len(listed), len(people), label)
	return nil
}

func writeReportCSV(path, dateKey, label string, people []report.Person) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating CSV file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "id", "name", "status"}); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	for _, p := range people {
		if err := w.Write([]string{dateKey, p.ID, p.DisplayName, label}); err != nil {
			return fmt.Errorf("writing CSV: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	return nil
}
