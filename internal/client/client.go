package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client is the license API client used by the desktop application and
// the polling agent.
type Client struct {
	address string
	http    *resty.Client
}

func New(address string) *Client {
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		address = "http://" + address
	}

	httpClient := resty.New()

	httpClient.
		SetRetryCount(3).
		SetRetryWaitTime(10 * time.Second).
		SetRetryMaxWaitTime(30 * time.Second)

	return &Client{
		address: address,
		http:    httpClient,
	}
}

type APIError struct {
	Message string `json:"error"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s (status %d)", e.Message, e.Status)
}

type Status struct {
	Tier          string          `json:"tier"`
	TierDisplay   string          `json:"tier_display"`
	Remaining     json.RawMessage `json:"remaining"`
	Unlimited     bool            `json:"unlimited"`
	Expires       *string         `json:"expires"`
	DailyUsed     int64           `json:"daily_used"`
	DailyLimit    int64           `json:"daily_limit"`
	Suspended     bool            `json:"suspended"`
	SuspendReason string          `json:"suspend_reason"`
}

type Validation struct {
	CanGenerate bool   `json:"can_generate"`
	Reason      string `json:"reason"`
}

type Activation struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Tier      string `json:"tier"`
	Credits   int64  `json:"credits"`
	Unlimited bool   `json:"unlimited"`
	Expires   string `json:"expires"`
}

type Notification struct {
	ID            int64     `json:"id"`
	Type          string    `json:"type"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	CreditsChange int64     `json:"credits_change"`
	CreatedAt     time.Time `json:"created_at"`
}

type notificationsEnvelope struct {
	Notifications []Notification `json:"notifications"`
}

func (c *Client) Status(ctx context.Context, deviceID string) (Status, error) {
	var res Status

	err := c.post(ctx, "/api/status", map[string]string{"device_id": deviceID}, &res)

	return res, err
}

func (c *Client) Validate(ctx context.Context, deviceID string) (Validation, error) {
	var res Validation

	err := c.post(ctx, "/api/validate", map[string]string{"device_id": deviceID}, &res)

	return res, err
}

func (c *Client) Use(ctx context.Context, deviceID, text, voice string) (Status, error) {
	var res Status

	err := c.post(ctx, "/api/use", map[string]string{
		"device_id": deviceID,
		"text":      text,
		"voice":     voice,
	}, &res)

	return res, err
}

func (c *Client) Activate(ctx context.Context, deviceID, code string) (Activation, error) {
	var res Activation

	err := c.post(ctx, "/api/activate", map[string]string{
		"device_id": deviceID,
		"code":      code,
	}, &res)

	return res, err
}

func (c *Client) Notifications(ctx context.Context, deviceID string) ([]Notification, error) {
	var res notificationsEnvelope

	err := c.post(ctx, "/api/notifications", map[string]string{"device_id": deviceID}, &res)

	return res.Notifications, err
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	var apiErr APIError

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(result).
		SetError(&apiErr).
		Post(c.address + path)

	if err != nil {
		return fmt.Errorf("failed to do request: %w", err)
	}

	if res.IsError() {
		apiErr.Status = res.StatusCode()

		if apiErr.Message == "" {
			apiErr.Message = res.Status()
		}

		return &apiErr
	}

	return nil
}
