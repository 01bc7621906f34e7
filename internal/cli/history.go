package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/credaudit/internal/model"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List past runs, or show one run",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
				return usageError(err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())

			if len(args) == 1 {
				record, err := app.AuditService.GetRun(cmd.Context(), model.RunID(args[0]))
				if err != nil {
					return err
				}
				out.Print(HistoryListing{Runs: []*model.RunRecord{record}})
				return nil
			}

			records, err := app.AuditService.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if records == nil {
				records = []*model.RunRecord{}
			}
			out.Print(HistoryListing{Runs: records})
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list (0 lists all)")

	return cmd
}
