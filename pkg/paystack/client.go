package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/safelink-ng/safelink-backend/pkg/config"
	pkgerrors "github.com/safelink-ng/safelink-backend/pkg/errors"
	"github.com/safelink-ng/safelink-backend/pkg/logger"
)

const (
	defaultBaseURL          = "https://api.paystack.co"
	defaultTimeout          = 15 * time.Second
	recipientTypeNuban      = "nuban"
	transferSourceBalance   = "balance"
	responseBodyLimit int64 = 1 << 20

	transferRetryBase     = 500 * time.Millisecond
	transferRetryAttempts = 3
)

var errSecretKeyRequired = errors.New("paystack secret key is required")

// Client is the live TransferGateway backed by Paystack's REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	currency   string
	logg       *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured Paystack base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the live Paystack client.
func NewClient(cfg config.PaystackConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	currency := strings.TrimSpace(cfg.Currency)
	if currency == "" {
		currency = "NGN"
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		currency:   currency,
		logg:       logg,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type recipientRequest struct {
	Type          string `json:"type"`
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	Currency      string `json:"currency"`
}

type recipientData struct {
	RecipientCode string `json:"recipient_code"`
}

// CreateRecipient registers the bank account as a transfer recipient.
// Paystack returns the existing recipient code when the same account is
// registered twice, so the call is safe to repeat as part of a retried
// settlement or refund, but it is never retried on its own.
func (c *Client) CreateRecipient(ctx context.Context, details BankDetails) (string, error) {
	if details.AccountName == "" || details.AccountNumber == "" || details.BankCode == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "account name, number and bank code are required")
	}

	body := recipientRequest{
		Type:          recipientTypeNuban,
		Name:          details.AccountName,
		AccountNumber: details.AccountNumber,
		BankCode:      details.BankCode,
		Currency:      c.currency,
	}

	var data recipientData
	if err := c.post(ctx, "/transferrecipient", body, &data); err != nil {
		return "", err
	}
	if data.RecipientCode == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "paystack returned no recipient code")
	}
	return data.RecipientCode, nil
}

type transferRequest struct {
	Source    string `json:"source"`
	Amount    int64  `json:"amount"`
	Recipient string `json:"recipient"`
	Reference string `json:"reference"`
	Reason    string `json:"reason"`
}

type transferData struct {
	Reference    string `json:"reference"`
	Status       string `json:"status"`
	TransferCode string `json:"transfer_code"`
	Amount       int64  `json:"amount"`
	Recipient    any    `json:"recipient"`
}

// InitiateTransfer submits the payout. The reference makes the submission
// idempotent on Paystack's side, so transient transport failures are retried
// with bounded exponential backoff.
func (c *Client) InitiateTransfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if req.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer amount must be positive")
	}
	if req.RecipientCode == "" || req.Reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient and reference are required")
	}

	body := transferRequest{
		Source:    transferSourceBalance,
		Amount:    req.AmountMinor,
		Recipient: req.RecipientCode,
		Reference: req.Reference,
		Reason:    req.Reason,
	}

	var data transferData
	backoff := retry.WithMaxRetries(transferRetryAttempts, retry.NewExponential(transferRetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.post(ctx, "/transfer", body, &data)
		if err == nil {
			return nil
		}
		if meta := pkgerrors.MetadataFor(pkgerrors.As(err).Code()); meta.Retryable {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	return &TransferResult{
		Reference:    data.Reference,
		Status:       data.Status,
		TransferCode: data.TransferCode,
		AmountMinor:  data.Amount,
		Recipient:    recipientString(data.Recipient),
	}, nil
}

type resolveData struct {
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
}

// ResolveAccount returns the account holder name registered with the bank.
func (c *Client) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*AccountResolution, error) {
	if accountNumber == "" || bankCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account number and bank code are required")
	}

	query := url.Values{}
	query.Set("account_number", accountNumber)
	query.Set("bank_code", bankCode)

	var data resolveData
	if err := c.get(ctx, "/bank/resolve?"+query.Encode(), &data); err != nil {
		return nil, err
	}

	return &AccountResolution{
		AccountName:   data.AccountName,
		AccountNumber: data.AccountNumber,
		BankCode:      bankCode,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body any, dest any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal paystack request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build paystack request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build paystack request")
	}
	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute paystack request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read paystack response")
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("paystack returned %d", resp.StatusCode)).
			WithDetails(map[string]any{"body": string(raw)})
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode paystack response")
	}
	if resp.StatusCode >= http.StatusBadRequest || !env.Status {
		return pkgerrors.New(pkgerrors.CodeValidation, "paystack rejected the request").
			WithDetails(map[string]any{"message": env.Message})
	}

	if dest != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, dest); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode paystack data")
		}
	}
	return nil
}

// recipientString tolerates Paystack returning the recipient either as the
// code string or as an expanded object.
func recipientString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if code, ok := t["recipient_code"].(string); ok {
			return code
		}
	}
	return ""
}
