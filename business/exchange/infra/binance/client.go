// Package binance implements the deposit-history gateway for Binance Pay.
package binance

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
	BaseAPIURL = "https://api.binance.com"

	payTransactionsEndpoint = "/sapi/v1/pay/transactions"
	fundingAssetEndpoint    = "/sapi/v1/asset/get-funding-asset"

	tracerName  = "exchange.binance"
	httpTimeout = 10 * time.Second

	// Binance caps pay transaction pages at 100 records.
	maxPageLimit = 100

	// SAPI endpoints share a 12000 weight/minute budget; poll traffic stays
	// far below this.
	requestsPerMinute = 120
)

// Config holds Binance gateway settings.
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Timeout   time.Duration
}

// Client is the Binance deposit-history gateway.
type Client struct {
	client  httpclient.Client
	config  Config
	logger  logger.LoggerInterface
	tracer  trace.Tracer
	limiter *ratelimit.Limiter
	breaker *circuitbreaker.CircuitBreaker[[]domain.Deposit]
	now     func() time.Time
}

// NewClient creates a Binance gateway.
func NewClient(cfg Config, log logger.LoggerInterface) (*Client, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, apperror.New(apperror.CodeMissingCredentials,
			apperror.WithContext("exchange: binance"))
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = BaseAPIURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = httpTimeout
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("binance"),
		httpclient.WithBaseURL(baseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTracer(tracer),
		httpclient.WithHeaders(map[string]string{
			"Accept":       "application/json",
			"X-MBX-APIKEY": cfg.APIKey,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("binance-deposits")
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
	return domain.Binance
}

// ListDeposits fetches Binance Pay transactions since the given time and
// normalizes incoming transfers to deposit records.
func (c *Client) ListDeposits(ctx context.Context, asset string, since time.Time) ([]domain.Deposit, error) {
	ctx, span := c.tracer.Start(ctx, "binance.list_deposits",
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
		return c.fetchPayTransactions(ctx, asset, since)
	})
}

func (c *Client) fetchPayTransactions(ctx context.Context, asset string, since time.Time) ([]domain.Deposit, error) {
	// Pay transactions take timestamp, limit and an optional window. The
	// signature covers the query exactly as transmitted.
	query := fmt.Sprintf("timestamp=%d&limit=%d&startTime=%d",
		c.now().UnixMilli(), maxPageLimit, since.UnixMilli())
	query = query + "&signature=" + c.sign(query)

	var result payTransactionsResponse
	resp, err := c.client.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("endpoint", "pay_transactions")),
		httpclient.WithResponseErrorHandler(errorHandler),
	).
		SetRawQuery(query).
		SetResult(&result).
		Get(ctx, payTransactionsEndpoint)
	if err != nil {
		return nil, apperror.New(apperror.CodeDepositFetchFailed,
			apperror.WithCause(err),
			apperror.WithContext("exchange: binance"))
	}
	if resp.IsError() {
		return nil, apperror.New(apperror.CodeExchangeAPIError,
			apperror.WithContext(fmt.Sprintf("binance status %d: %s", resp.StatusCode, resp.String())))
	}

	deposits := make([]domain.Deposit, 0, len(result.Data))
	for _, tx := range result.Data {
		d, ok := tx.toDeposit(asset)
		if !ok {
			continue
		}
		deposits = append(deposits, d)
	}

	c.logger.Debug(ctx, "binance deposits fetched", "count", len(deposits))
	return deposits, nil
}

// FundingBalance implements app.BalanceProvider via the funding asset endpoint.
func (c *Client) FundingBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	ctx, span := c.tracer.Start(ctx, "binance.funding_balance",
		trace.WithAttributes(attribute.String("asset", asset)),
	)
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Zero, err
	}

	query := fmt.Sprintf("asset=%s&timestamp=%d", asset, c.now().UnixMilli())
	query = query + "&signature=" + c.sign(query)

	var result []fundingAsset
	resp, err := c.client.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("endpoint", "funding_asset")),
		httpclient.WithResponseErrorHandler(errorHandler),
	).
		SetRawQuery(query).
		SetResult(&result).
		Post(ctx, fundingAssetEndpoint)
	if err != nil {
		return decimal.Zero, apperror.New(apperror.CodeBalanceFetchFailed,
			apperror.WithCause(err),
			apperror.WithContext("exchange: binance"))
	}
	if resp.IsError() {
		return decimal.Zero, apperror.New(apperror.CodeExchangeAPIError,
			apperror.WithContext(fmt.Sprintf("binance status %d", resp.StatusCode)))
	}

	for _, b := range result {
		if b.Asset == asset {
			free, err := decimal.NewFromString(b.Free)
			if err != nil {
				return decimal.Zero, apperror.New(apperror.CodeDepositRecordInvalid,
					apperror.WithCause(err))
			}
			return free, nil
		}
	}

	return decimal.Zero, nil
}

// sign computes the HMAC-SHA256 signature over the raw query string.
func (c *Client) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(c.config.APISecret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

func errorHandler(statusCode int, body []byte) error {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return apperror.New(apperror.CodeExchangeAuthFailed,
			apperror.WithContext("binance: "+strconv.Itoa(statusCode)))
	case statusCode == http.StatusTeapot || statusCode == http.StatusTooManyRequests:
		return apperror.New(apperror.CodeExchangeRateLimited,
			apperror.WithContext("binance: "+strconv.Itoa(statusCode)))
	case statusCode >= 400:
		return apperror.New(apperror.CodeExchangeAPIError,
			apperror.WithContext(fmt.Sprintf("binance status %d: %s", statusCode, string(body))))
	}
	return nil
}
