package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"alpha-sniper/internal/models"
	"alpha-sniper/internal/store"
)

func newStatusCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show ledger state and recent decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dataStore, err := app.OpenStore()
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			limit, _ := cmd.Flags().GetInt("limit")
			return showStatus(cmd, dataStore, output, limit)
		},
	}
	cmd.Flags().Int("limit", 10, "number of recent decisions to show")
	return cmd
}

func newLedgerCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ledger",
		Short: "Show the persisted capital ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dataStore, err := app.OpenStore()
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}

			snap, found, err := dataStore.LoadLedgerSnapshot(cmd.Context())
			if err != nil {
				return fmt.Errorf("loading ledger snapshot: %w", err)
			}
			if output.IsJSON() {
				if !found {
					return output.JSON(map[string]bool{"found": false})
				}
				return output.JSON(snap)
			}
			if !found {
				output.Dim("No snapshot persisted yet")
				return nil
			}
			output.Bold("Capital Ledger")
			output.Printf("  Total:      %.4f SOL\n", snap.TotalCapital)
			output.Printf("  Available:  %.4f SOL\n", snap.AvailableCapital)
			output.Printf("  Reserved:   %.4f SOL\n", snap.ReservedCapital)
			output.Printf("  Positions:  %d\n", snap.ActivePositions)
			output.Dim("  As of %s", snap.Taken.Format(time.RFC3339))
			return nil
		},
	}
}

func showStatus(cmd *cobra.Command, dataStore store.Store, output *Output, limit int) error {
	ctx := cmd.Context()

	snap, found, err := dataStore.LoadLedgerSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("loading ledger snapshot: %w", err)
	}
	decisions, err := dataStore.RecentDecisions(ctx, limit)
	if err != nil {
		return fmt.Errorf("loading decisions: %w", err)
	}

	if output.IsJSON() {
		payload := map[string]interface{}{
			"decisions": decisions,
		}
		if found {
			payload["ledger"] = snap
		}
		return output.JSON(payload)
	}

	output.Bold("Capital Ledger")
	if !found {
		output.Dim("  No snapshot persisted yet")
	} else {
		output.Printf("  Total:      %.4f SOL\n", snap.TotalCapital)
		output.Printf("  Available:  %.4f SOL\n", snap.AvailableCapital)
		output.Printf("  Reserved:   %.4f SOL\n", snap.ReservedCapital)
		output.Printf("  Positions:  %d\n", snap.ActivePositions)
		output.Dim("  As of %s", snap.Taken.Format(time.RFC3339))
	}
	output.Println()

	output.Bold("Recent Decisions")
	if len(decisions) == 0 {
		output.Dim("  No decisions recorded yet")
		return nil
	}
	for _, d := range decisions {
		line := fmt.Sprintf("  %-7s %-10s conf=%-3d %s",
			d.Action, d.Symbol, d.Confidence, d.Reasoning)
		switch d.Action {
		case models.ActionBuy:
			output.Success("%s", line)
		case models.ActionReject:
			output.Error("%s", line)
		default:
			output.Printf("%s\n", line)
		}
	}
	return nil
}
