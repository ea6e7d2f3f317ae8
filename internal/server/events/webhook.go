package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookSink POSTs each event as JSON to a fixed URL.
type WebhookSink struct {
	url        string
	types      map[string]bool
	httpClient *http.Client
}

// NewWebhookSink creates a sink for url. With no types every event is sent.
func NewWebhookSink(url string, types ...string) *WebhookSink {
	s := &WebhookSink{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	if len(types) > 0 {
		s.types = make(map[string]bool, len(types))
		for _, t := range types {
			s.types[t] = true
		}
	}
	return s
}

func (s *WebhookSink) Name() string {
	return "webhook"
}

// Deliver sends one event. Events filtered out by type are skipped.
func (s *WebhookSink) Deliver(ctx context.Context, event Event) error {
	if s.types != nil && !s.types[event.Type] {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Flood-Memory-Event", event.Type)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &WebhookError{URL: s.url, StatusCode: resp.StatusCode}
	}
	return nil
}

// WebhookError represents a non-2xx webhook response
type WebhookError struct {
	URL        string
	StatusCode int
}

func (e *WebhookError) Error() string {
	return fmt.Sprintf("webhook %s returned status %d", e.URL, e.StatusCode)
}
