// Package camera talks to the capture pipeline's control API and tracks its
// running state.
package camera

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"seizowatch/internal/models"
)

// ActionError is a refused or failed control call. Message is the text the
// control API returned.
type ActionError struct {
	StatusCode int
	Message    string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("camera API returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Status(ctx context.Context) (models.CameraStatus, error) {
	var status models.CameraStatus
	err := c.do(ctx, http.MethodGet, "/camera/status", &status)
	return status, err
}

func (c *Client) Start(ctx context.Context) (models.CameraActionResult, error) {
	var result models.CameraActionResult
	err := c.do(ctx, http.MethodPost, "/camera/start", &result)
	return result, err
}

func (c *Client) Stop(ctx context.Context) (models.CameraActionResult, error) {
	var result models.CameraActionResult
	err := c.do(ctx, http.MethodPost, "/camera/stop", &result)
	return result, err
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create camera request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("camera API %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read camera response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var failure struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &failure) != nil || failure.Message == "" {
			failure.Message = resp.Status
		}
		// out still receives the body when it decodes.
		_ = json.Unmarshal(body, out)
		return &ActionError{StatusCode: resp.StatusCode, Message: failure.Message}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode camera response: %w", err)
	}
	return nil
}
