package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/GTDGit/checkout_gateway/internal/utils"
)

// main issues merchant API tokens signed with the gateway's JWT_SECRET.
func main() {
	_ = godotenv.Load()

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var (
		secret string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:          "merchant-token [merchant-id]",
		Short:        "Issue a bearer token for the payments API",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			if secret == "" {
				return errors.New("JWT_SECRET is not set; pass --secret")
			}
			if ttl <= 0 {
				return errors.New("--ttl must be positive")
			}

			token, err := utils.GenerateMerchantJWT(args[0], secret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&secret, "secret", "s", "", "Signing secret (defaults to JWT_SECRET)")
	cmd.Flags().DurationVarP(&ttl, "ttl", "t", 24*time.Hour, "Token lifetime")

	return cmd
}
