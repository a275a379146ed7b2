package cli

import (
	"fmt"
	"time"

	"ontograph/pkg/auth"

	"github.com/spf13/cobra"
)

func (a *app) tokenCommand() *cobra.Command {
	var (
		secret string
		issuer string
		email  string
		roles  []string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <user>",
		Short: "Mint an API bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, err := auth.NewGenerator(secret, issuer, ttl)
			if err != nil {
				return err
			}
			token, err := gen.GenerateToken(args[0], email, roles)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&secret, "secret", envOr("JWT_SECRET", ""), "HS256 secret")
	cmd.Flags().StringVar(&issuer, "issuer", envOr("JWT_ISSUER", "ontograph"), "Token issuer")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role claim, repeatable")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}
