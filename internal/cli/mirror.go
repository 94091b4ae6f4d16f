package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMirrorCommand creates the mirror command.
func NewMirrorCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		owner  string
		repair bool
	)

	cmd := &cobra.Command{
		Use:   "mirror <showcase-id>",
		Short: "Classify a showcase's public mirror and show the repair plan",
		Long: `Mirror classifies the public mirror of a showcase and prints the
actions EnsurePublic would take. With --repair the actions are applied.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := rootOpts.openEngine(cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			inspect := e.mirror.Inspect
			if repair {
				inspect = e.mirror.EnsurePublic
			}
			res, err := inspect(cmd.Context(), args[0], owner)
			if err != nil {
				return fmt.Errorf("mirror %s: %w", args[0], err)
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner hint for the showcase")
	cmd.Flags().BoolVar(&repair, "repair", false, "apply the repair instead of only reporting it")

	return cmd
}
