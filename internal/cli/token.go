package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/listenupapp/showcase-server/internal/auth"
)

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		name     string
		photo    string
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint an access token signed with the server's key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			key, err := auth.LoadOrGenerateKey(cfg.Auth.KeyPath)
			if err != nil {
				return err
			}
			if duration <= 0 {
				duration = cfg.Auth.AccessTokenDuration
			}
			tokens, err := auth.NewTokenService(key, duration)
			if err != nil {
				return err
			}

			token, err := tokens.GenerateAccessToken(auth.Identity{
				UserID:      args[0],
				DisplayName: name,
				PhotoURL:    photo,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name carried in the token")
	cmd.Flags().StringVar(&photo, "photo", "", "photo URL carried in the token")
	cmd.Flags().DurationVar(&duration, "duration", 0, "token lifetime (default from ACCESS_TOKEN_DURATION)")

	return cmd
}
