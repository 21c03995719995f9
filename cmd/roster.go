package cmd

import (
	"fmt"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/roster"
	"github.com/spf13/cobra"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Inspect the enrolled roster",
}

var rosterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled identities",
	Long: `List all enrolled identities with their IDs and whether a usable
face embedding is stored for them.

Examples:
  # Full roster
  face-attendance roster list

  # Only identities whose name contains "nova" (diacritics ignored)
  face-attendance roster list --filter nova`,
	RunE: runRosterList,
}

func init() {
	rootCmd.AddCommand(rosterCmd)
	rosterCmd.AddCommand(rosterListCmd)

	rosterListCmd.Flags().String("filter", "", "Substring filter on normalized display names")
}

func runRosterList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	s, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.roster.ListRecords(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading roster: %w", err)
	}

	filter := roster.NormalizeName(mustGetString(cmd, "filter"))

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		if filter != "" && !strings.Contains(roster.NormalizeName(rec.DisplayName), filter) {
			continue
		}
		embedding := "yes"
		if len(rec.Embedding) == 0 {
			embedding = "no"
		}
		rows = append(rows, []string{rec.ID, rec.DisplayName, embedding})
	}

	fmt.Println(renderTable([]string{"ID", "Name", "Embedding"}, rows))
	fmt.Printf("%d identities\n", len(rows))
	return nil
}
