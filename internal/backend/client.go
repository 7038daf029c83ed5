package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Client talks to the CalmCast backend over its JSON/HTTP contract.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds every request, connection setup included.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithLogger sets the logger used for debug request tracing.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithDebugLogging traces each request and response at debug level.
func WithDebugLogging(enabled bool) Option {
	return func(c *Client) {
		if !enabled {
			return
		}
		c.http.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			c.log.Debug().
				Str("method", resp.Request.Method).
				Str("url", resp.Request.URL).
				Int("status", resp.StatusCode()).
				Dur("duration", resp.Time()).
				Msg("backend response")
			return nil
		})
	}
}

// New creates a client for baseURL, authenticating with token when non-empty.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json").
			SetTimeout(10 * time.Second),
		log: zerolog.Nop(),
	}
	if token != "" {
		c.http.SetAuthToken(token)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token used on subsequent requests.
func (c *Client) SetToken(token string) {
	c.http.SetAuthToken(token)
}

// CurrentBiometrics fetches today's stored record, which reports whether a
// manual override is confirmed server-side.
func (c *Client) CurrentBiometrics(ctx context.Context) (*CurrentBiometrics, error) {
	var out CurrentBiometrics
	if err := c.getJSON(ctx, "current biometrics", "/fitbit/current-data", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WearableFeed pulls the latest wearable metrics. ErrNotConnected is returned
// when the integration was never authorized.
func (c *Client) WearableFeed(ctx context.Context) (*WearableFeed, error) {
	const op = "wearable feed"
	resp, err := c.http.R().SetContext(ctx).Get("/fitbit/data")
	if err != nil {
		return nil, networkError(op, err)
	}
	switch resp.StatusCode() {
	case http.StatusNotFound, http.StatusPreconditionFailed:
		return nil, fmt.Errorf("%s: %w", op, ErrNotConnected)
	}
	if err := checkStatus(op, resp); err != nil {
		return nil, err
	}
	var out WearableFeed
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if out.Source == "none" {
		return nil, fmt.Errorf("%s: %w", op, ErrNotConnected)
	}
	return &out, nil
}

func (c *Client) SaveManualBiometrics(ctx context.Context, req ManualRequest) (*ManualSaveAck, error) {
	const op = "save manual biometrics"
	resp, err := c.http.R().SetContext(ctx).SetBody(&req).Post("/fitbit/manual-data")
	if err != nil {
		return nil, networkError(op, err)
	}
	if err := checkStatus(op, resp); err != nil {
		return nil, err
	}
	var ack ManualSaveAck
	if err := json.Unmarshal(resp.Body(), &ack); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if ack.Status != "" && ack.Status != "success" {
		return nil, newHTTPError(op, resp.StatusCode(), ack.Message)
	}
	return &ack, nil
}

// ClearManualBiometrics removes today's manual override on the backend.
func (c *Client) ClearManualBiometrics(ctx context.Context) error {
	const op = "clear manual biometrics"
	resp, err := c.http.R().SetContext(ctx).Delete("/fitbit/manual-data/today")
	if err != nil {
		return networkError(op, err)
	}
	return checkStatus(op, resp)
}

// PredictStress asks the remote model for a stress category. The caller
// decides what to do with a non-success status.
func (c *Client) PredictStress(ctx context.Context, req PredictionRequest) (*Prediction, error) {
	const op = "predict stress"
	resp, err := c.http.R().SetContext(ctx).SetBody(&req).Post("/stress/predict")
	if err != nil {
		return nil, networkError(op, err)
	}
	if err := checkStatus(op, resp); err != nil {
		return nil, err
	}
	var out Prediction
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return &out, nil
}

func (c *Client) MoodHistory(ctx context.Context) ([]MoodRecord, error) {
	var out moodHistoryResponse
	if err := c.getJSON(ctx, "mood history", "/mood", &out); err != nil {
		return nil, err
	}
	return out.MoodData, nil
}

func (c *Client) PostMood(ctx context.Context, req MoodRequest) error {
	const op = "post mood"
	resp, err := c.http.R().SetContext(ctx).SetBody(&req).Post("/mood")
	if err != nil {
		return networkError(op, err)
	}
	return checkStatus(op, resp)
}

func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := c.getJSON(ctx, "profile", "/users/me", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DisconnectWearable(ctx context.Context) error {
	const op = "disconnect wearable"
	resp, err := c.http.R().SetContext(ctx).Delete("/users/me/fitbit-connection")
	if err != nil {
		return networkError(op, err)
	}
	return checkStatus(op, resp)
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	resp, err := c.http.R().SetContext(ctx).Get(path)
	if err != nil {
		return networkError(op, err)
	}
	if err := checkStatus(op, resp); err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func checkStatus(op string, resp *resty.Response) error {
	status := resp.StatusCode()
	if status == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w", op, ErrSessionExpired)
	}
	if status < 200 || status >= 300 {
		return newHTTPError(op, status, strings.TrimSpace(resp.String()))
	}
	return nil
}
