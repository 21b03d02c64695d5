package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"hubadmin/config"
	"hubadmin/internal/checkout"
	"hubadmin/internal/session"
	"hubadmin/pkg/campushub"
)

var errPaymentFailed = errors.New("payment failed")

func payCmd() *cobra.Command {
	var (
		up        upstreamFlags
		bookingID int64
		phone     string
		amount    int64
		interval  time.Duration
		maxPolls  int
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Charge a booking and follow the attempt until it resolves",
		Long: `Signs in, triggers a mobile-money payment for the booking and prints
every state change of the attempt. Exits non-zero when the attempt fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, err := time.ParseDuration(up.timeout)
			if err != nil {
				return fmt.Errorf("invalid --timeout: %w", err)
			}
			def := config.Default().Payment
			opts := session.Options{
				UpstreamURL:     up.url,
				UpstreamTimeout: timeout,
				Payment: checkout.Config{
					PollInterval: interval,
					MaxPolls:     maxPolls,
					DismissAfter: def.DismissAfter,
					FixedAmount:  def.FixedAmount,
				},
			}
			return runPay(cmd.Context(), cmd.OutOrStdout(), opts, up, bookingID, phone, amount, asJSON)
		},
	}
	up.register(cmd)
	cmd.Flags().Int64VarP(&bookingID, "booking", "b", 0, "Booking id to charge")
	cmd.Flags().StringVarP(&phone, "phone", "p", "", "Payee phone (defaults to the booking's)")
	cmd.Flags().Int64Var(&amount, "amount", 0, "Amount (defaults to the booking's)")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "Status poll interval")
	cmd.Flags().IntVar(&maxPolls, "max-polls", 24, "Status checks before giving up")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Print attempts as JSON lines")
	cmd.MarkFlagRequired("booking")
	return cmd
}

func runPay(ctx context.Context, out io.Writer, opts session.Options, up upstreamFlags, bookingID int64, phone string, amount int64, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	resolved := make(chan checkout.Attempt, 1)
	var once sync.Once
	opts.OnPayment = func(_ *session.Session, a checkout.Attempt) {
		printAttempt(out, a, asJSON)
		if a.State.Terminal() {
			once.Do(func() { resolved <- a })
		}
	}
	store := session.NewStore(opts)
	defer store.Close()

	s, err := store.Login(ctx, up.email, up.otp)
	if err != nil {
		return describe(err)
	}
	defer store.Logout(context.Background(), s.ID)

	if _, err := s.TriggerPayment(ctx, bookingID, phone, amount); err != nil {
		return describe(err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case a := <-resolved:
		if a.State == checkout.StateFailed {
			return fmt.Errorf("%w: %s", errPaymentFailed, a.FailureReason)
		}
		return nil
	}
}

func printAttempt(out io.Writer, a checkout.Attempt, asJSON bool) {
	if asJSON {
		raw, _ := json.Marshal(a)
		fmt.Fprintln(out, string(raw))
		return
	}
	line := fmt.Sprintf("%s  booking=%s state=%s polls=%d", a.UpdatedAt.Format("15:04:05"), a.BookingRef, a.State, a.RetryCount)
	if a.CheckoutID != "" {
		line += " checkout=" + a.CheckoutID
	}
	if a.FailureReason != "" {
		line += " reason=" + string(a.FailureReason)
	}
	fmt.Fprintln(out, line)
}

// describe turns upstream errors into something an operator can act on.
func describe(err error) error {
	var apiErr *campushub.APIError
	switch {
	case errors.Is(err, campushub.ErrUnauthorized):
		return errors.New("not signed in: check --email and --otp")
	case errors.As(err, &apiErr) && apiErr.AttemptsLeft != nil:
		return fmt.Errorf("%s (%d attempts left)", apiErr.Message, *apiErr.AttemptsLeft)
	}
	return err
}
