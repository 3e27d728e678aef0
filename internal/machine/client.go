package machine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/ekosetor/rvmledger/internal/logger"
)

// Error codes for typed client failures
const (
	CodeUnavailable = "unavailable"
	CodeBadPayload  = "bad-payload"
	CodeUnknown     = "unknown"
)

const requestTimeout = 5 * time.Second

type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("code: %s, error: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code string, err error) *Error {
	return &Error{Code: code, Err: err}
}

// Client talks to the vendor hardware API over HTTP.
type Client struct {
	baseURL string
	http    *resty.Client
	logger  logger.Logger
}

func NewClient(baseURL string, l logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    resty.New().SetBaseURL(baseURL).SetTimeout(requestTimeout),
		logger:  l,
	}
}

// UserRecords returns the recent deposit records for a phone, newest first,
// as the vendor paginates them.
func (c *Client) UserRecords(ctx context.Context, phone string, page, pageSize int) ([]Record, error) {
	var body struct {
		Data []Record `json:"data"`
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"phone":    phone,
			"page":     fmt.Sprintf("%d", page),
			"pageSize": fmt.Sprintf("%d", pageSize),
		}).
		Get("/api/rubbish-log/user")
	if err != nil {
		return nil, newError(CodeUnavailable, fmt.Errorf("get user records: %w", err))
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, newError(CodeUnknown, fmt.Errorf("get user records: unexpected status %d", resp.StatusCode()))
	}

	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		c.logger.Warn("Failed to decode user records", "phone", phone, "error", err)
		return nil, newError(CodeBadPayload, fmt.Errorf("decode user records: %w", err))
	}

	c.logger.Debug("Fetched user records", "phone", phone, "count", len(body.Data))
	return body.Data, nil
}

// MachineConfig returns the bin configuration of a device.
func (c *Client) MachineConfig(ctx context.Context, deviceNo string) ([]Bin, error) {
	var body struct {
		Data []Bin `json:"data"`
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("deviceNo", deviceNo).
		Get("/api/machine/{deviceNo}/config")
	if err != nil {
		return nil, newError(CodeUnavailable, fmt.Errorf("get machine config: %w", err))
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, newError(CodeUnknown, fmt.Errorf("get machine config: unexpected status %d", resp.StatusCode()))
	}

	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, newError(CodeBadPayload, fmt.Errorf("decode machine config: %w", err))
	}

	return body.Data, nil
}

// AccountBalance returns the live wallet balance for a phone.
func (c *Client) AccountBalance(ctx context.Context, phone string) (decimal.Decimal, error) {
	var account Account

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("phone", phone).
		Get("/api/account/sync")
	if err != nil {
		return decimal.Zero, newError(CodeUnavailable, fmt.Errorf("sync account: %w", err))
	}
	if resp.StatusCode() != http.StatusOK {
		return decimal.Zero, newError(CodeUnknown, fmt.Errorf("sync account: unexpected status %d", resp.StatusCode()))
	}

	if err := json.Unmarshal(resp.Body(), &account); err != nil {
		return decimal.Zero, newError(CodeBadPayload, fmt.Errorf("decode account: %w", err))
	}

	c.logger.Debug("Synced account", "phone", phone, "integral", account.Integral)
	return account.Integral, nil
}
