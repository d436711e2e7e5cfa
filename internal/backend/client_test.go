package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"portfolio-dashboard/internal/config"
	"portfolio-dashboard/internal/models"
	"portfolio-dashboard/pkg/auth"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	token   string
	err     error
	expired int
}

func (p *fakeProvider) Token() (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return p.token, nil
}

func (p *fakeProvider) OnExpire() {
	p.expired++
}

type recordingObserver struct {
	mu        sync.Mutex
	endpoints []string
	statuses  []int
}

func (o *recordingObserver) ObserveUpstream(target, endpoint string, statusCode int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.endpoints = append(o.endpoints, target+" "+endpoint)
	o.statuses = append(o.statuses, statusCode)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(config.BackendConfig{BaseURL: srv.URL + "/", Timeout: 5}, zerolog.Nop())
	return client, srv
}

func TestUserClient_TradesSendsBearerAndDecodesArray(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/trades", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"tradePair":"BTC/USDT","tradingAmountUSD":50,"status":"Completed","winLose":"Win","estimatedIncome":10,"createdAt":"2025-01-01T00:00:00Z"}]`))
	})

	trades, err := client.ForUser(&fakeProvider{token: "tok-1"}).Trades(context.Background())
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, models.EntityID("1"), trades[0].ID)
	assert.True(t, trades[0].IsWin())
}

func TestUserClient_DecodesDataEnvelope(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":[{"id":"d1","amount":100,"status":"Approved"}]}`))
	})

	deposits, err := client.ForUser(&fakeProvider{token: "tok"}).Deposits(context.Background())
	require.NoError(t, err)
	require.Len(t, deposits, 1)
	assert.True(t, deposits[0].IsApproved())
}

func TestUserClient_ProfileBareObject(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/profile", r.URL.Path)
		_, _ = w.Write([]byte(`{"userId":"u1","email":"a@b.c","balance":250.5,"status":"active"}`))
	})

	profile, err := client.ForUser(&fakeProvider{token: "tok"}).Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 250.5, profile.Balance)
	assert.Equal(t, "a@b.c", profile.Email)
}

func TestUserClient_UnauthorizedFiresOnExpire(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"jwt expired"}`))
	})

	provider := &fakeProvider{token: "tok"}
	_, err := client.ForUser(provider).Withdrawals(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, provider.expired)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "jwt expired", apiErr.Message)
}

func TestUserClient_ForbiddenKeepsSession(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"identity verification required"}`))
	})

	provider := &fakeProvider{token: "tok"}
	_, err := client.ForUser(provider).Withdrawals(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NotErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, provider.expired)
}

func TestUserClient_ExpiredTokenNeverReachesBackend(t *testing.T) {
	called := false
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	provider := &fakeProvider{err: auth.ErrTokenExpired}
	_, err := client.ForUser(provider).Trades(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, called)
	assert.Equal(t, 1, provider.expired)
}

func TestUserClient_ServerErrorIsUpstream(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.ForUser(&fakeProvider{token: "tok"}).Trades(context.Background())
	assert.ErrorIs(t, err, ErrUpstream)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestUserClient_IdentityStatusNotFoundIsUnset(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	record, err := client.ForUser(&fakeProvider{token: "tok"}).IdentityStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.IdentityStatusUnset, record.Status)
}

func TestUserClient_CreateWithdrawalSendsJSON(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body CreateWithdrawalRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 75.0, body.Amount)
		assert.Equal(t, "TRC20", body.Network)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"w1","amount":75,"status":"Pending"}`))
	})

	withdrawal, err := client.ForUser(&fakeProvider{token: "tok"}).CreateWithdrawal(context.Background(), CreateWithdrawalRequest{
		Amount:  75,
		Address: "TXYZ",
		Network: "TRC20",
	})
	require.NoError(t, err)
	assert.Equal(t, models.FundStatusPending, withdrawal.Status)
}

func TestUserClient_CreateDepositMultipart(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "100", r.FormValue("amount"))
		assert.Equal(t, "ERC20", r.FormValue("network"))

		file, header, err := r.FormFile("receipt")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)
		assert.Equal(t, "receipt.png", header.Filename)
		assert.Equal(t, "png-bytes", string(content))

		_, _ = w.Write([]byte(`{"id":"d9","amount":100,"status":"Pending"}`))
	})

	deposit, err := client.ForUser(&fakeProvider{token: "tok"}).CreateDeposit(context.Background(), CreateDepositRequest{
		Amount:  100,
		Network: "ERC20",
		Receipt: &Upload{FileName: "receipt.png", Content: strings.NewReader("png-bytes")},
	})
	require.NoError(t, err)
	assert.Equal(t, models.EntityID("d9"), deposit.ID)
}

func TestUserClient_VerifyFundPassword(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{name: "valid_flag", status: http.StatusOK, body: `{"valid":true}`, want: true},
		{name: "invalid_flag", status: http.StatusOK, body: `{"valid":false}`, want: false},
		{name: "bad_request", status: http.StatusBadRequest, body: `{"message":"wrong"}`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			ok, err := client.ForUser(&fakeProvider{token: "tok"}).VerifyFundPassword(context.Background(), VerifyFundPasswordRequest{FundPassword: "x"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestClient_AdminAddressesIsUnauthenticated(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"network":"TRC20","address":"TADDR"}]`))
	})

	addresses, err := client.AdminAddresses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.AdminAddress{{Network: "TRC20", Address: "TADDR"}}, addresses)
}

func TestClient_ObserverUsesLowCardinalityLabels(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	observer := &recordingObserver{}
	client.WithObserver(observer)

	require.NoError(t, client.ForUser(&fakeProvider{token: "tok"}).DeleteTrade(context.Background(), "abc123"))
	assert.Equal(t, []string{"backend /api/trades/:id"}, observer.endpoints)
	assert.Equal(t, []int{http.StatusNoContent}, observer.statuses)
}

func TestEndpointLabel(t *testing.T) {
	assert.Equal(t, "/api/auth/profile", endpointLabel("/api/auth/profile"))
	assert.Equal(t, "/api/deposits/:id", endpointLabel("/api/deposits/42"))
	assert.Equal(t, "/api/identity/status", endpointLabel("/api/identity/status"))
}
