package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hubadmin/pkg/payment"
)

func normalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize-phone [phone...]",
		Short: "Print phone numbers the way the gateway receives them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range args {
				fmt.Fprintln(cmd.OutOrStdout(), payment.NormalizePhone(p))
			}
			return nil
		},
	}
}
