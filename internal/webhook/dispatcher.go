// Package webhook delivers job completion notifications with HMAC-signed
// payloads, bounded retries and a per-host circuit breaker.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/internal/observability"
	"github.com/fairyhunter13/talent-matcher/internal/resilience"
)

// Signature headers attached to every delivery.
const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderTimestamp = "X-Webhook-Timestamp"
)

// Payload is the JSON body posted to webhook endpoints.
type Payload struct {
	JobID       string          `json:"jobId"`
	Status      string          `json:"status"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       *domain.Failure `json:"error,omitempty"`
	CompletedAt time.Time       `json:"completedAt"`
	Timestamp   int64           `json:"timestamp"`
}

// Dispatcher posts signed notifications. Failures with 4xx responses are
// terminal; 5xx and transport errors retry with backoff. Hosts that keep
// failing trip their breaker and subsequent deliveries fail fast.
type Dispatcher struct {
	client     *http.Client
	breakers   *resilience.BreakerSet
	maxRetries int
	timeout    time.Duration
	baseDelay  time.Duration
	now        func() time.Time
}

// Options configures a Dispatcher.
type Options struct {
	Client     *http.Client
	Breakers   *resilience.BreakerSet
	MaxRetries int
	Timeout    time.Duration
	// BaseDelay is the first retry interval; subsequent ones double.
	BaseDelay time.Duration
	Now       func() time.Time
}

// NewDispatcher applies defaults: 10s timeout, 5 retries.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Breakers == nil {
		opts.Breakers = resilience.NewBreakerSet(func(name string) *resilience.Breaker {
			return resilience.NewBreaker("webhook:"+name, 0, 0, 0)
		})
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Dispatcher{
		client:     opts.Client,
		breakers:   opts.Breakers,
		maxRetries: opts.MaxRetries,
		timeout:    opts.Timeout,
		baseDelay:  opts.BaseDelay,
		now:        opts.Now,
	}
}

// Sign computes the hex HMAC-SHA256 of the body under the secret. The
// timestamp rides inside the body and the X-Webhook-Timestamp header, so
// receivers verify the signature over the raw body alone.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// terminalStatusError marks an HTTP response that must not be retried.
type terminalStatusError struct{ code int }

func (e terminalStatusError) Error() string {
	return fmt.Sprintf("webhook rejected with status %d", e.code)
}

// Deliver posts the payload to endpoint, signing with secret. It blocks
// through retries and returns the final outcome.
func (d *Dispatcher) Deliver(ctx context.Context, endpoint, secret string, payload Payload) error {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return fmt.Errorf("op=webhook.Deliver: %w: bad endpoint %q", domain.ErrInvalidArgument, endpoint)
	}
	payload.Timestamp = d.now().Unix()
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("op=webhook.Deliver: %w", err)
	}
	signature := Sign(secret, body)
	breaker := d.breakers.For(u.Host)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.baseDelay
	bo.RandomizationFactor = 0.1
	bo.Multiplier = 2.0
	bo.MaxElapsedTime = 0

	var lastErr error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("op=webhook.Deliver: %w", domain.ErrCancelled)
			case <-time.After(bo.NextBackOff()):
			}
		}
		lastErr = breaker.Do(func() error {
			return d.post(ctx, endpoint, body, signature, payload.Timestamp)
		})
		if lastErr == nil {
			observability.RecordExternalCall("webhook", "ok")
			return nil
		}
		var terminal terminalStatusError
		if errors.As(lastErr, &terminal) {
			observability.RecordExternalCall("webhook", "rejected")
			slog.Warn("webhook delivery rejected",
				slog.String("endpoint", endpoint),
				slog.Int("status", terminal.code),
				slog.String("job_id", payload.JobID))
			return fmt.Errorf("op=webhook.Deliver: %w", lastErr)
		}
		if domain.Classify(lastErr) == domain.ClassCircuitOpen {
			break
		}
	}
	observability.RecordExternalCall("webhook", "error")
	slog.Error("webhook delivery failed",
		slog.String("endpoint", endpoint),
		slog.String("job_id", payload.JobID),
		slog.Any("error", lastErr))
	return fmt.Errorf("op=webhook.Deliver: %w", lastErr)
}

func (d *Dispatcher) post(ctx context.Context, endpoint string, body []byte, signature string, ts int64) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, signature)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))

	start := d.now()
	resp, err := d.client.Do(req)
	observability.RecordExternalLatency("webhook", d.now().Sub(start).Seconds())
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	defer func() {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return terminalStatusError{code: resp.StatusCode}
	default:
		return fmt.Errorf("%w: status %d", domain.ErrUnavailable, resp.StatusCode)
	}
}
