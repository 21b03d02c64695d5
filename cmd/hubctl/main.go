package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hubadmin/config"
)

var Version = "dev"

// upstreamFlags are shared by every command that signs in to the marketplace.
type upstreamFlags struct {
	url     string
	email   string
	otp     string
	timeout string
}

func (f *upstreamFlags) register(cmd *cobra.Command) {
	def := config.Default().Upstream
	cmd.Flags().StringVar(&f.url, "url", envOr("UPSTREAM_BASE_URL", def.BaseURL), "Marketplace API base URL")
	cmd.Flags().StringVarP(&f.email, "email", "e", os.Getenv("HUBCTL_EMAIL"), "Admin email")
	cmd.Flags().StringVar(&f.otp, "otp", os.Getenv("HUBCTL_OTP"), "One-time password")
	cmd.Flags().StringVar(&f.timeout, "timeout", def.Timeout.String(), "Upstream request timeout")
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hubctl",
		Short:         "hubctl - operator tools for the CampusHub admin console",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(normalizeCmd())
	rootCmd.AddCommand(payCmd())
	rootCmd.AddCommand(statusCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
