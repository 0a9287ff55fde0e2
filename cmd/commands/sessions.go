package commands

// Command to print the journal of finished trending sessions as a table.

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"omni-trending/internal/infra/config"
	storage "omni-trending/internal/infra/fs"
	"omni-trending/internal/market"
	"omni-trending/internal/telegram"
	"omni-trending/internal/trending"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Print finished trending sessions from the journal",
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "Show only the most recent N sessions (0 = all)")
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	journal := storage.NewSessionJournal(cfg.App.DataDir)
	reports, err := journal.Load()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", journal.Path(), err)
	}
	if len(reports) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No finished sessions in %s\n", journal.Path())
		return nil
	}

	if sessionsLimit > 0 && len(reports) > sessionsLimit {
		reports = reports[len(reports)-sessionsLimit:]
	}
	renderSessions(cmd.OutOrStdout(), reports)
	return nil
}

func renderSessions(w io.Writer, reports []trending.SessionReport) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Session", "User", "Token", "Network", "Status", "Start", "Final", "Change", "Alerts", "Polls", "Risk", "Finished"})
	table.SetAutoWrapText(false)

	completed := 0
	for _, r := range reports {
		if r.Status == trending.StatusCompleted {
			completed++
		}
		table.Append([]string{
			r.SessionID,
			strconv.FormatInt(r.UserID, 10),
			lo.Ternary(r.Symbol != "", "$"+r.Symbol, telegram.FormatTokenAddress(r.ContractAddress)),
			market.NetworkName(r.Network),
			string(r.Status),
			lo.Ternary(r.Baseline != "", r.Baseline, "N/A"),
			lo.Ternary(r.FinalPrice != "", r.FinalPrice, "N/A"),
			r.ChangePct + "%",
			lo.Ternary(len(r.Fired) > 0, strings.Join(r.Fired, " "), "-"),
			fmt.Sprintf("%d/%d", r.Polls-r.Misses, r.Polls),
			fmt.Sprintf("%s (%d)", r.RiskLevel, r.RiskScore),
			r.FinishedAt.Local().Format("2006-01-02 15:04"),
		})
	}

	table.SetFooter([]string{"", "", "", "", fmt.Sprintf("%d/%d completed", completed, len(reports)), "", "", "", "", "", "", ""})
	table.SetFooterAlignment(tablewriter.ALIGN_RIGHT)
	table.Render()
}
