package payment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubadmin/pkg/campushub"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"":              "",
		"0700000000":    "254700000000",
		"0712345678":    "254712345678",
		"254700000000":  "254700000000",
		"+254700000000": "+254700000000",
		" 0712345678 ":  "254712345678",
		"712345678":     "712345678",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePhone(in), "input %q", in)
	}
}

func TestNormalizePhonePrefixProperty(t *testing.T) {
	inputs := []string{"0", "00", "01", "0x", "1", "2540", "abc", " 0123", "\t0999", "9"}
	for _, in := range inputs {
		out := NormalizePhone(in)
		startsZero := strings.HasPrefix(strings.TrimSpace(in), "0")
		if startsZero {
			assert.True(t, strings.HasPrefix(out, "254"), in)
		} else {
			assert.Equal(t, strings.TrimSpace(in), out, in)
		}
		// normalizing twice changes nothing
		assert.Equal(t, out, NormalizePhone(out))
	}
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusSuccess, ParseStatus("success"))
	assert.Equal(t, StatusFailed, ParseStatus(" FAILED "))
	assert.Equal(t, StatusPending, ParseStatus("pending"))
	assert.Equal(t, StatusPending, ParseStatus(""))
	assert.Equal(t, StatusPending, ParseStatus("cancelled_by_user?"))
}

type fakeGateway struct {
	payIn   campushub.PayRequest
	payResp *campushub.PayResponse
	payErr  error
	status  string
	statErr error
}

func (f *fakeGateway) Pay(ctx context.Context, in campushub.PayRequest) (*campushub.PayResponse, error) {
	f.payIn = in
	return f.payResp, f.payErr
}

func (f *fakeGateway) TransactionStatus(ctx context.Context, id string) (string, error) {
	return f.status, f.statErr
}

func TestCampusHubProviderInitiate(t *testing.T) {
	gw := &fakeGateway{payResp: &campushub.PayResponse{Status: "success", CheckoutRequestID: "CO123"}}
	p := NewCampusHubProvider(gw)

	resp, err := p.InitiatePayment(context.Background(), PaymentRequest{UserID: 42, Amount: 1000, CustomerPhone: "0712345678"})
	require.NoError(t, err)
	assert.Equal(t, "CO123", resp.CheckoutRequestID)
	assert.Equal(t, "254712345678", gw.payIn.Phone)
	assert.Equal(t, int64(42), gw.payIn.UserID)
}

func TestCampusHubProviderRejects(t *testing.T) {
	gw := &fakeGateway{payResp: &campushub.PayResponse{Status: "error", Message: "insufficient funds"}}
	_, err := NewCampusHubProvider(gw).InitiatePayment(context.Background(), PaymentRequest{CustomerPhone: "0712345678"})
	require.Error(t, err)
	assert.True(t, IsRejected(err))

	// a success without a checkout id cannot be polled, so it is a rejection too
	gw.payResp = &campushub.PayResponse{Status: "success"}
	_, err = NewCampusHubProvider(gw).InitiatePayment(context.Background(), PaymentRequest{CustomerPhone: "0712345678"})
	assert.True(t, IsRejected(err))

	gw.payErr = errors.New("dial tcp: refused")
	_, err = NewCampusHubProvider(gw).InitiatePayment(context.Background(), PaymentRequest{CustomerPhone: "0712345678"})
	require.Error(t, err)
	assert.False(t, IsRejected(err))
}

func TestCampusHubProviderCheckStatus(t *testing.T) {
	gw := &fakeGateway{status: "success"}
	st, err := NewCampusHubProvider(gw).CheckStatus(context.Background(), "CO1")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, st)

	gw.statErr = errors.New("timeout")
	st, err = NewCampusHubProvider(gw).CheckStatus(context.Background(), "CO1")
	assert.Error(t, err)
	assert.Equal(t, StatusPending, st)
}

func TestStubProviderSettles(t *testing.T) {
	s := NewStubProvider(2)
	resp, err := s.InitiatePayment(context.Background(), PaymentRequest{UserID: 1, CustomerPhone: "0700000000"})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		st, _ := s.CheckStatus(context.Background(), resp.CheckoutRequestID)
		assert.Equal(t, StatusPending, st)
	}
	st, _ := s.CheckStatus(context.Background(), resp.CheckoutRequestID)
	assert.Equal(t, StatusSuccess, st)

	_, err = s.InitiatePayment(context.Background(), PaymentRequest{})
	assert.True(t, IsRejected(err))
}
