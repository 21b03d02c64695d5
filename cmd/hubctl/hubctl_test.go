package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubadmin/internal/checkout"
	"hubadmin/internal/session"
	"hubadmin/pkg/campushub"
	"hubadmin/pkg/campushub/campushubtest"
)

func TestNormalizePhoneCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"normalize-phone", "0712345678", "254700000000", "+254711"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "254712345678\n254700000000\n+254711\n", out.String())
}

func testOptions(up *campushubtest.Server, maxPolls int) session.Options {
	return session.Options{
		UpstreamURL:     up.URL,
		UpstreamTimeout: 2 * time.Second,
		Payment: checkout.Config{
			PollInterval: 10 * time.Millisecond,
			MaxPolls:     maxPolls,
			DismissAfter: time.Second,
			FixedAmount:  1000,
		},
	}
}

func TestRunPayFollowsAttemptToSuccess(t *testing.T) {
	up := campushubtest.NewServer()
	defer up.Close()
	up.Bookings = []campushub.Booking{{BookingID: 7, UserID: 42, Phone: "0712345678", Amount: 1000, PaymentStatus: "unpaid"}}
	up.Statuses = []string{"pending", "success"}

	var out bytes.Buffer
	creds := upstreamFlags{email: "admin@campushub.test", otp: "123456"}
	err := runPay(context.Background(), &out, testOptions(up, 24), creds, 7, "", 0, false)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Contains(t, lines[0], "state=initiating")
	assert.Contains(t, lines[len(lines)-1], "state=success")
	assert.Contains(t, lines[len(lines)-1], "checkout=CO123")
	assert.Equal(t, "254712345678", up.LastBody("/admin/pay")["phone"])
	assert.Equal(t, 1, up.Calls("/auth/logout"))
}

func TestRunPayReportsFailure(t *testing.T) {
	up := campushubtest.NewServer()
	defer up.Close()
	up.Bookings = []campushub.Booking{{BookingID: 7, UserID: 42, Phone: "0712345678", Amount: 1000, PaymentStatus: "unpaid"}}

	var out bytes.Buffer
	creds := upstreamFlags{email: "admin@campushub.test", otp: "123456"}
	err := runPay(context.Background(), &out, testOptions(up, 2), creds, 7, "", 0, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errPaymentFailed))
	assert.Contains(t, err.Error(), string(checkout.ReasonRetriesExhausted))
	assert.Contains(t, out.String(), `"state":"failed"`)
}

func TestRunPayBadOTP(t *testing.T) {
	up := campushubtest.NewServer()
	defer up.Close()

	creds := upstreamFlags{email: "admin@campushub.test", otp: "000000"}
	err := runPay(context.Background(), &bytes.Buffer{}, testOptions(up, 2), creds, 7, "", 0, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 attempts left")
}
