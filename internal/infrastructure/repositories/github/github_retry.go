package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	gh "github.com/google/go-github/v66/github"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/rios0rios0/devflow/internal/domain/entities"
)

const defaultRateLimitBackoff = time.Minute

// retryOperation runs a GitHub API operation with throttling and exponential
// backoff. Rate limits and transient errors are retried; anything else is
// returned on the first attempt.
func retryOperation(
	ctx context.Context,
	config entities.RetryConfig,
	limiter *rate.Limiter,
	operation func() (*gh.Response, error),
) (*gh.Response, error) {
	config.ApplyDefaults()

	var lastErr error
	var lastResp *gh.Response
	backoff := config.InitialBackoff
	startTime := time.Now()

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limiter wait: %w", err)
			}
		}

		resp, err := operation()
		if err == nil {
			if attempt > 0 {
				logger.Infof(
					"[github] API operation recovered after %d retries (%s)",
					attempt, time.Since(startTime),
				)
			}
			return resp, nil
		}

		lastErr = err
		lastResp = resp

		if ctx.Err() != nil || !isRetryableError(err, resp) {
			logger.Debugf("[github] API error is not retryable (status %d): %v", statusCode(resp), err)
			return resp, err
		}

		// Last attempt, return error
		if attempt == config.MaxRetries {
			break
		}

		if isRateLimitError(resp) {
			backoff = rateLimitBackoff(resp, config.MaxBackoff)
			logger.Infof(
				"[github] Rate limit hit, waiting %s (attempt %d/%d)",
				backoff, attempt+1, config.MaxRetries+1,
			)
		} else {
			logger.Infof(
				"[github] Retrying after transient error (attempt %d/%d, status %d, backoff %s): %v",
				attempt+1, config.MaxRetries+1, statusCode(resp), backoff, err,
			)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("operation canceled: %w", ctx.Err())
		case <-time.After(backoff):
			nextBackoff := time.Duration(float64(backoff) * config.BackoffMultiplier)
			if nextBackoff > config.MaxBackoff {
				nextBackoff = config.MaxBackoff
			}
			backoff = nextBackoff
		}
	}

	logger.Warnf(
		"[github] API operation failed after %d attempts (%s, status %d): %v",
		config.MaxRetries+1, time.Since(startTime), statusCode(lastResp), lastErr,
	)
	return lastResp, fmt.Errorf("failed after %d retries: %w", config.MaxRetries, lastErr)
}

// isRetryableError checks if a GitHub API error is retryable.
func isRetryableError(err error, resp *gh.Response) bool {
	if err == nil {
		return false
	}

	var rateErr *gh.RateLimitError
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return true
	}

	if resp != nil && resp.Response != nil {
		code := resp.StatusCode

		switch code {
		case http.StatusTooManyRequests:
			return true
		case http.StatusForbidden:
			// secondary rate limits come back as 403 with rate information
			return resp.Rate.Limit > 0 && resp.Rate.Remaining == 0
		case http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity:
			return false
		default:
			return code >= http.StatusInternalServerError && code < 600
		}
	}

	// no response at all: network errors, timeouts
	return true
}

// isRateLimitError checks if the response indicates a rate limit error.
func isRateLimitError(resp *gh.Response) bool {
	if resp == nil || resp.Response == nil {
		return false
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return resp.StatusCode == http.StatusForbidden && resp.Rate.Limit > 0
}

// rateLimitBackoff honours Retry-After and the rate limit reset time, capped at maxBackoff.
func rateLimitBackoff(resp *gh.Response, maxBackoff time.Duration) time.Duration {
	if resp == nil || resp.Response == nil {
		return min(defaultRateLimitBackoff, maxBackoff)
	}

	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && seconds > 0 {
			return min(time.Duration(seconds)*time.Second, maxBackoff)
		}
	}

	if !resp.Rate.Reset.IsZero() {
		if wait := time.Until(resp.Rate.Reset.Time); wait > 0 {
			return min(wait, maxBackoff)
		}
	}

	return min(defaultRateLimitBackoff, maxBackoff)
}

func statusCode(resp *gh.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}

// classifyError maps a failed call onto the engine's error taxonomy.
func classifyError(action string, resp *gh.Response, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", action, err)
	}

	switch code := statusCode(resp); {
	case code == http.StatusNotFound:
		return fmt.Errorf("%s: %w: %v", action, entities.ErrNotFound, err)
	case code == http.StatusUnprocessableEntity && isAlreadyExists(err):
		return fmt.Errorf("%s: %w: %v", action, entities.ErrAlreadyExists, err)
	case code == http.StatusUnprocessableEntity || code == http.StatusBadRequest:
		return fmt.Errorf("%s: %w: %v", action, entities.ErrValidation, err)
	default:
		return fmt.Errorf("%s: %w: %v", action, entities.ErrRemoteService, err)
	}
}

// isAlreadyExists matches both the message form and the "already_exists"
// validation code GitHub returns for taken tags and refs.
func isAlreadyExists(err error) bool {
	var response *gh.ErrorResponse
	if errors.As(err, &response) {
		for _, e := range response.Errors {
			if e.Code == "already_exists" {
				return true
			}
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}
