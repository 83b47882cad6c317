// Package bybit implements the deposit-history gateway for Bybit v5.
package bybit

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/depositwatch/business/exchange/domain"
	"github.com/fd1az/depositwatch/internal/apperror"
	"github.com/fd1az/depositwatch/internal/circuitbreaker"
	"github.com/fd1az/depositwatch/internal/httpclient"
	"github.com/fd1az/depositwatch/internal/logger"
	"github.com/fd1az/depositwatch/internal/ratelimit"
)

const (
	BaseAPIURL    = "https://api.bybit.com"
	TestnetAPIURL = "https://api-testnet.bybit.com"

	internalDepositsEndpoint = "/v5/asset/deposit/query-internal-record"
	coinBalanceEndpoint      = "/v5/asset/transfer/query-account-coins-balance"

	tracerName  = "exchange.bybit"
	httpTimeout = 10 * time.Second

	pageLimit  = 50
	recvWindow = "5000"

	requestsPerMinute = 120
)

// Config holds Bybit gateway settings.
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Timeout   time.Duration
	Testnet   bool
}

// Client is the Bybit deposit-history gateway.
type Client struct {
	client  httpclient.Client
	config  Config
	logger  logger.LoggerInterface
	tracer  trace.Tracer
	limiter *ratelimit.Limiter
	breaker *circuitbreaker.CircuitBreaker[[]domain.Deposit]
	now     func() time.Time
}

// NewClient creates a Bybit gateway.
func NewClient(cfg Config, log logger.LoggerInterface) (*Client, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, apperror.New(apperror.CodeMissingCredentials,
			apperror.WithContext("exchange: bybit"))
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = BaseAPIURL
		if cfg.Testnet {
			baseURL = TestnetAPIURL
		}
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = httpTimeout
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("bybit"),
		httpclient.WithBaseURL(baseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTracer(tracer),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("bybit-deposits")
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}

	return &Client{
		client:  client,
		config:  cfg,
		logger:  log,
		tracer:  tracer,
		limiter: ratelimit.New(requestsPerMinute),
		breaker: circuitbreaker.New[[]domain.Deposit](cbCfg),
		now:     time.Now,
	}, nil
}

// ID implements app.Gateway.
func (c *Client) ID() domain.ExchangeID {
	return domain.Bybit
}

// ListDeposits fetches internal deposit records since the given time.
func (c *Client) ListDeposits(ctx context.Context, asset string, since time.Time) ([]domain.Deposit, error) {
	ctx, span := c.tracer.Start(ctx, "bybit.list_deposits",
		trace.WithAttributes(
			attribute.String("asset", asset),
			attribute.String("since", since.UTC().Format(time.RFC3339)),
		),
	)
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	return c.breaker.Execute(func() ([]domain.Deposit, error) {
		return c.fetchInternalDeposits(ctx, asset, since)
	})
}

func (c *Client) fetchInternalDeposits(ctx context.Context, asset string, since time.Time) ([]domain.Deposit, error) {
	query := fmt.Sprintf("coin=%s&startTime=%d&endTime=%d&limit=%d",
		asset, since.UnixMilli(), c.now().UnixMilli(), pageLimit)

	var result internalDepositsResponse
	resp, err := c.client.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("endpoint", "internal_deposits")),
		httpclient.WithResponseErrorHandler(errorHandler),
	).
		SetHeaders(c.authHeaders(query)).
		SetRawQuery(query).
		SetResult(&result).
		Get(ctx, internalDepositsEndpoint)
	if err != nil {
		return nil, apperror.New(apperror.CodeDepositFetchFailed,
			apperror.WithCause(err),
			apperror.WithContext("exchange: bybit"))
	}
	if resp.IsError() {
		return nil, apperror.New(apperror.CodeExchangeAPIError,
			apperror.WithContext(fmt.Sprintf("bybit status %d", resp.StatusCode)))
	}
	if result.RetCode != 0 {
		return nil, apperror.New(apperror.CodeExchangeAPIError,
			apperror.WithContext(fmt.Sprintf("bybit retCode %d: %s", result.RetCode, result.RetMsg)))
	}

	deposits := make([]domain.Deposit, 0, len(result.Result.Rows))
	for _, row := range result.Result.Rows {
		d, ok := row.toDeposit(asset)
		if !ok {
			continue
		}
		deposits = append(deposits, d)
	}

	c.logger.Debug(ctx, "bybit deposits fetched", "count", len(deposits))
	return deposits, nil
}

// FundingBalance implements app.BalanceProvider via the FUND account balance.
func (c *Client) FundingBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	ctx, span := c.tracer.Start(ctx, "bybit.funding_balance",
		trace.WithAttributes(attribute.String("asset", asset)),
	)
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Zero, err
	}

	query := fmt.Sprintf("accountType=FUND&coin=%s", asset)

	var result coinBalanceResponse
	resp, err := c.client.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("endpoint", "coin_balance")),
		httpclient.WithResponseErrorHandler(errorHandler),
	).
		SetHeaders(c.authHeaders(query)).
		SetRawQuery(query).
		SetResult(&result).
		Get(ctx, coinBalanceEndpoint)
	if err != nil {
		return decimal.Zero, apperror.New(apperror.CodeBalanceFetchFailed,
			apperror.WithCause(err),
			apperror.WithContext("exchange: bybit"))
	}
	if resp.IsError() || result.RetCode != 0 {
		return decimal.Zero, apperror.New(apperror.CodeExchangeAPIError,
			apperror.WithContext(fmt.Sprintf("bybit retCode %d: %s", result.RetCode, result.RetMsg)))
	}

	for _, b := range result.Result.Balance {
		if b.Coin == asset {
			free, err := decimal.NewFromString(b.TransferBalance)
			if err != nil {
				return decimal.Zero, apperror.New(apperror.CodeDepositRecordInvalid,
					apperror.WithCause(err))
			}
			return free, nil
		}
	}

	return decimal.Zero, nil
}

// authHeaders signs the query per the v5 scheme: the signature covers
// timestamp, api key, recv window and the query string in that order.
func (c *Client) authHeaders(query string) map[string]string {
	timestamp := strconv.FormatInt(c.now().UnixMilli(), 10)

	payload := timestamp + c.config.APIKey + recvWindow + query
	mac := hmac.New(sha256.New, []byte(c.config.APISecret))
	mac.Write([]byte(payload))

	return map[string]string{
		"X-BAPI-API-KEY":     c.config.APIKey,
		"X-BAPI-TIMESTAMP":   timestamp,
		"X-BAPI-RECV-WINDOW": recvWindow,
		"X-BAPI-SIGN":        hex.EncodeToString(mac.Sum(nil)),
	}
}

func errorHandler(statusCode int, body []byte) error {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return apperror.New(apperror.CodeExchangeAuthFailed,
			apperror.WithContext("bybit: "+strconv.Itoa(statusCode)))
	case statusCode == http.StatusTooManyRequests:
		return apperror.New(apperror.CodeExchangeRateLimited,
			apperror.WithContext("bybit: "+strconv.Itoa(statusCode)))
	case statusCode >= 400:
		return apperror.New(apperror.CodeExchangeAPIError,
			apperror.WithContext(fmt.Sprintf("bybit status %d: %s", statusCode, string(body))))
	}
	return nil
}
