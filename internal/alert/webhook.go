package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"seizowatch/internal/models"
)

// WebhookSender posts alerts as JSON to an HTTP endpoint with a bearer key.
type WebhookSender struct {
	endpointURL string
	apiKey      string
	httpClient  *http.Client
}

func NewWebhookSender(endpointURL, apiKey string) *WebhookSender {
	return &WebhookSender{
		endpointURL: endpointURL,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

type webhookPayload struct {
	EventID         string  `json:"event_id"`
	Timestamp       string  `json:"timestamp"`
	DurationSeconds float64 `json:"duration_seconds"`
	ONNXScore       float64 `json:"onnx_score"`
	Message         string  `json:"message"`
}

func (s *WebhookSender) Send(ctx context.Context, ev models.SeizureEvent) error {
	jsonData, err := json.Marshal(webhookPayload{
		EventID:         ev.ID,
		Timestamp:       ev.Timestamp,
		DurationSeconds: ev.DurationSeconds,
		ONNXScore:       ev.ONNXScore,
		Message:         FormatMessage(ev),
	})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpointURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("create alert request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("alert endpoint returned non-success status: %s", resp.Status)
	}
	log.Printf("[%s] Alert delivered. Status: %s", ev.ID, resp.Status)
	return nil
}

// FormatMessage renders the human-readable alert text.
func FormatMessage(ev models.SeizureEvent) string {
	ts := ev.Timestamp
	if ts == "" {
		ts = "N/A"
	}
	return fmt.Sprintf(
		"SEIZURE ALERT - SeizoWatch\n\nTime: %s\nDuration: %.1f seconds\nConfidence: %.0f%%\nStatus: DL Verified\n\nImmediate attention required!",
		ts, ev.DurationSeconds, ev.ONNXScore*100,
	)
}
