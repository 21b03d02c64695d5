package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hubadmin/pkg/campushub"
	"hubadmin/pkg/payment"
)

func statusCmd() *cobra.Command {
	var up upstreamFlags
	cmd := &cobra.Command{
		Use:   "status [checkout-id]",
		Short: "Ask the gateway once for the state of a checkout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, err := time.ParseDuration(up.timeout)
			if err != nil {
				return fmt.Errorf("invalid --timeout: %w", err)
			}
			client, err := campushub.New(up.url, timeout)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if _, err := client.AdminLogin(ctx, up.email, up.otp); err != nil {
				return describe(err)
			}
			defer client.Logout(ctx)

			raw, err := client.TransactionStatus(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", args[0], payment.ParseStatus(raw))
			return nil
		},
	}
	up.register(cmd)
	return cmd
}
