// Package censor holds the moderation backends and the flow that fans
// content out to them. Each provider wraps one remote HTTP/JSON API behind
// the contract.Provider interface; the local keyword matcher is exposed the
// same way so aggregation treats every contributor uniformly.
package censor

import (
	"bytes"
	"censor-lab/domain"
	"censor-lab/errors"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	retry "github.com/sethvargo/go-retry"
)

// RetryPolicy bounds how provider calls recover from transient transport
// failures. Auth and protocol failures are never retried.
type RetryPolicy struct {
	MaxRetries uint64
	Backoff    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, Backoff: 200 * time.Millisecond}
}

// do runs fn under the retry policy, retrying only failures classified as
// transport-level by the provider itself.
func (p RetryPolicy) do(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(p.MaxRetries, retry.NewExponential(p.Backoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if pe, ok := errors.AsProviderError(err); ok && pe.Retryable() {
			return retry.RetryableError(err)
		}
		return err
	})
}

// failedVerdict records a provider failure without influencing the decision.
func failedVerdict(provider string, err error) domain.ProviderVerdict {
	return domain.ProviderVerdict{
		Provider: provider,
		Matched:  false,
		Category: domain.CategoryNone,
		Err:      err,
	}
}

// postJSON sends one JSON request and classifies the failure modes:
// network errors and 5xx are transport (retryable), 401/403 are auth,
// anything else that is not a 2xx body is protocol.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewProviderError(provider, errors.FailureProtocol, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewProviderError(provider, errors.FailureProtocol, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, errors.NewProviderError(provider, errors.FailureTransport, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.NewProviderError(provider, errors.FailureTransport, err)
	}

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		return raw, nil
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return nil, errors.NewProviderError(provider, errors.FailureAuth,
			fmt.Errorf("status %s", res.Status))
	case res.StatusCode >= 500:
		return nil, errors.NewProviderError(provider, errors.FailureTransport,
			fmt.Errorf("status %s", res.Status))
	default:
		return nil, errors.NewProviderError(provider, errors.FailureProtocol,
			fmt.Errorf("status %s: %s", res.Status, truncate(string(raw), 200)))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
