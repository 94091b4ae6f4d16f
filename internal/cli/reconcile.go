package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/listenupapp/showcase-server/internal/service"
)

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	var opts service.ReconcileOptions

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Repair mirrors, recount likes and backfill item owners",
		Long: `Reconcile re-runs mirror recovery, like recounts and item owner backfill.

With no flags every showcase is examined. --owner and --showcase narrow the
scope; --dry-run reports what would change without writing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := rootOpts.openEngine(cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			report, err := e.reconcile.Reconcile(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&opts.OwnerID, "owner", "", "only examine this owner's showcases")
	cmd.Flags().StringVar(&opts.ShowcaseID, "showcase", "", "only examine this showcase")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report without writing")

	return cmd
}
