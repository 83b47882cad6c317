package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/depositwatch/business/exchange/domain"
	"github.com/fd1az/depositwatch/internal/apperror"
	"github.com/fd1az/depositwatch/internal/logger"
)

// mockLogger implements logger.LoggerInterface for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Infoc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Warnc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

var _ logger.LoggerInterface = (*mockLogger)(nil)

const (
	testAPIKey    = "test-api-key"
	testAPISecret = "test-api-secret"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()

	c, err := NewClient(Config{
		APIKey:    testAPIKey,
		APISecret: testAPISecret,
		BaseURL:   serverURL,
	}, &mockLogger{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.now = func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return c
}

func verifySignature(t *testing.T, r *http.Request) {
	t.Helper()

	raw := r.URL.RawQuery
	idx := strings.Index(raw, "&signature=")
	if idx < 0 {
		t.Fatal("query missing signature")
	}
	payload, sig := raw[:idx], raw[idx+len("&signature="):]

	mac := hmac.New(sha256.New, []byte(testAPISecret))
	mac.Write([]byte(payload))
	want := hex.EncodeToString(mac.Sum(nil))

	if sig != want {
		t.Errorf("signature = %s, want %s (payload %q)", sig, want, payload)
	}
}

func TestClient_ListDeposits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != payTransactionsEndpoint {
			t.Errorf("path = %s, want %s", r.URL.Path, payTransactionsEndpoint)
		}
		if got := r.Header.Get("X-MBX-APIKEY"); got != testAPIKey {
			t.Errorf("X-MBX-APIKEY = %s, want %s", got, testAPIKey)
		}
		verifySignature(t, r)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payTransactionsResponse{
			Code:    "000000",
			Message: "success",
			Success: true,
			Data: []payTransaction{
				{TransactionID: "tx-1", TransactionTime: 1717243000000, Amount: "100.5", Currency: "USDT"},
				{TransactionID: "tx-2", TransactionTime: 1717243100000, Amount: "-42", Currency: "USDT"},
				{TransactionID: "tx-3", TransactionTime: 1717243200000, Amount: "7", Currency: "BTC"},
			},
		})
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	deposits, err := c.ListDeposits(context.Background(), "USDT", time.Now().Add(-3*time.Minute))
	if err != nil {
		t.Fatalf("ListDeposits: %v", err)
	}

	// Outgoing transfers and other currencies are filtered out.
	if len(deposits) != 1 {
		t.Fatalf("deposits = %d, want 1", len(deposits))
	}

	d := deposits[0]
	if d.Exchange != domain.Binance {
		t.Errorf("exchange = %s, want binance", d.Exchange)
	}
	if !d.Amount.Equal(decimal.RequireFromString("100.5")) {
		t.Errorf("amount = %s, want 100.5", d.Amount)
	}
	if d.Status != domain.StatusOK {
		t.Errorf("status = %s, want ok", d.Status)
	}
	if d.ID != "tx-1" {
		t.Errorf("id = %s, want tx-1", d.ID)
	}
}

func TestClient_ListDepositsAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":-2014,"msg":"API-key format invalid."}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	_, err := c.ListDeposits(context.Background(), "USDT", time.Now())
	if err == nil {
		t.Fatal("expected error")
	}
	if apperror.GetCode(err) != apperror.CodeDepositFetchFailed {
		t.Errorf("code = %s, want %s", apperror.GetCode(err), apperror.CodeDepositFetchFailed)
	}
}

func TestClient_FundingBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		verifySignature(t, r)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]fundingAsset{
			{Asset: "USDT", Free: "512.25", Locked: "0"},
		})
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	balance, err := c.FundingBalance(context.Background(), "USDT")
	if err != nil {
		t.Fatalf("FundingBalance: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("512.25")) {
		t.Errorf("balance = %s, want 512.25", balance)
	}
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(Config{}, &mockLogger{})
	if apperror.GetCode(err) != apperror.CodeMissingCredentials {
		t.Errorf("code = %s, want %s", apperror.GetCode(err), apperror.CodeMissingCredentials)
	}
}
