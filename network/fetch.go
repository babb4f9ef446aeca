package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/somaray-cli/somaray/constant"
	"github.com/somaray-cli/somaray/log"
)

// Retry policy for transient failures. The delay doubles per attempt and is capped.
const (
	fetchAttempts = 4
	baseDelay     = 500 * time.Millisecond
	maxDelay      = 8 * time.Second
)

// NetworkError marks a transient transport-level failure. Callers may retry;
// FetchJSON already has.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network: fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError marks a structural failure: the endpoint answered, but with a body
// we cannot interpret. Never retried.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse: %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseError reports whether err is structural rather than transient.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// FetchJSON retrieves a JSON document into target, retrying transient failures
// with exponential backoff. A malformed body is structural and fails immediately.
func FetchJSON(ctx context.Context, url string, target interface{}) error {
	body, err := fetchWithRetry(ctx, url)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		return &ParseError{URL: url, Err: err}
	}
	return nil
}

func fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	delay := baseDelay
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			log.Warnf("retrying %s in %v (attempt %d/%d): %v", url, delay, attempt+1, fetchAttempts, lastErr)
			select {
			case <-ctx.Done():
				return nil, &NetworkError{URL: url, Err: ctx.Err()}
			case <-time.After(delay):
			}
			if delay *= 2; delay > maxDelay {
				delay = maxDelay
			}
		}

		body, err := fetchOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, &NetworkError{URL: url, Err: ctx.Err()}
		}
		lastErr = err
	}

	log.Errorf("giving up on %s after %d attempts: %v", url, fetchAttempts, lastErr)
	return nil, &NetworkError{URL: url, Err: lastErr}
}

func fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", constant.UserAgent)

	resp, err := Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	return io.ReadAll(resp.Body)
}
