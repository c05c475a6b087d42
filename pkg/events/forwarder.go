// Package events posts proactive change reports to the platform event gateway.
package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/homai-alexa/pkg/alexa"
)

// DefaultEndpoint is the North America event gateway.
const DefaultEndpoint = "https://api.amazonalexa.com/v3/events"

// DefaultTimeout bounds a single POST.
const DefaultTimeout = 10 * time.Second

// ErrRejected indicates the gateway answered with a non-2xx status.
var ErrRejected = errors.New("event gateway rejected report")

// Forwarder posts change reports with a user's bearer credential.
type Forwarder struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
}

// NewForwarder creates a Forwarder. A zero timeout uses DefaultTimeout.
func NewForwarder(endpoint string, timeout time.Duration) *Forwarder {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Forwarder{
		endpoint:   endpoint,
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

// Forward posts report to the gateway. The timeout is applied here,
// independently of the caller's context deadline.
func (f *Forwarder) Forward(ctx context.Context, report alexa.ChangeReport, token string) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	body, err := json.Marshal(report.WithToken(token))
	if err != nil {
		return fmt.Errorf("failed to encode change report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post change report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, bytes.TrimSpace(msg))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	log.Debug().
		Str("endpoint_id", report.EndpointID()).
		Int("status", resp.StatusCode).
		Msg("Change report accepted")
	return nil
}
