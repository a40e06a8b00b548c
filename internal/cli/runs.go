package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ernie/aastools/internal/history"
)

func newHistoryCommand(a *app) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs, or the full detail of one run",
		Args:  argsOrUsage(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.History.Enabled {
				return &ExitError{Code: 2, Message: "history is disabled in config"}
			}
			store, err := history.Open(cmd.Context(), a.cfg.History.Path, a.log)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				id, err := uuid.Parse(args[0])
				if err != nil {
					return usageError(fmt.Errorf("invalid run id %q: %w", args[0], err))
				}
				run, err := store.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				return writeJSON(a.stdout, run)
			}

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				if runs == nil {
					runs = []history.Run{}
				}
				return writeJSON(a.stdout, runs)
			}
			a.printRuns(runs)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show; 0 shows all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print runs as JSON")
	return cmd
}
