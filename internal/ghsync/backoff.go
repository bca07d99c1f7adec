package ghsync

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// maxAttempts bounds the retry loop: four backoff sleeps, then the fifth
// consecutive rate-limit failure propagates.
const maxAttempts = 5

// ErrRateLimited is returned when retries exhaust against the tracker's
// rate limiting.
var ErrRateLimited = errors.New("rate limited")

// rateLimitPattern matches the gh CLI's rate-limit error signatures
var rateLimitPattern = regexp.MustCompile(`(?i)rate limit|secondary rate|abuse detection|HTTP 403`)

// isRateLimit classifies an error as a transient rate-limit failure
func isRateLimit(err error) bool {
	return err != nil && rateLimitPattern.MatchString(err.Error())
}

// retry runs op with bounded exponential backoff. Rate-limit signatures are
// retried after sleeping base, 2·base, 4·base, 8·base; every other error
// propagates immediately. When isCreate is set, an anomalous empty success
// response also counts as a rate-limit signature (the tracker silently
// dropping a creation).
func (s *Syncer) retry(ctx context.Context, isCreate bool, op func(context.Context) (string, error)) (string, error) {
	delay := s.base
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out, err := op(ctx)
		switch {
		case err == nil && (!isCreate || strings.TrimSpace(out) != ""):
			return out, nil
		case err == nil:
			lastErr = fmt.Errorf("empty response to creation command")
		case isRateLimit(err):
			lastErr = err
		default:
			return "", err
		}

		if attempt == maxAttempts {
			break
		}
		s.log.Warn("rate limited, backing off", "attempt", attempt, "delay", delay)
		if err := s.sleep.Sleep(ctx, delay); err != nil {
			return "", err
		}
		delay *= 2
	}

	return "", fmt.Errorf("%w after %d attempts: %v", ErrRateLimited, maxAttempts, lastErr)
}

// throttle applies the fixed inter-creation delay
func (s *Syncer) throttle(ctx context.Context) error {
	if s.delay <= 0 {
		return nil
	}
	return s.sleep.Sleep(ctx, s.delay)
}
