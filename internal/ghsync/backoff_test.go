package ghsync

import (
	"context"
	"errors"
	"testing"
	"time"
)

func retrySyncer(base time.Duration) (*Syncer, *fakeSleeper) {
	sleeper := &fakeSleeper{}
	s := NewWith("", &fakeExec{handler: func(string) (string, error) { return "", nil }}, sleeper)
	s.SetBackoffBase(base)
	return s, sleeper
}

func TestRetryExhaustsWithExponentialBackoff(t *testing.T) {
	base := 10 * time.Millisecond
	s, sleeper := retrySyncer(base)

	attempts := 0
	_, err := s.retry(context.Background(), false, func(context.Context) (string, error) {
		attempts++
		return "", errors.New("API rate limit exceeded")
	})

	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if attempts != 5 {
		t.Errorf("attempts = %d, want 5", attempts)
	}
	want := []time.Duration{base, 2 * base, 4 * base, 8 * base}
	if len(sleeper.slept) != len(want) {
		t.Fatalf("slept %v, want %v", sleeper.slept, want)
	}
	for i, d := range want {
		if sleeper.slept[i] != d {
			t.Errorf("sleep %d = %v, want %v", i, sleeper.slept[i], d)
		}
	}
}

func TestRetrySucceedsAfterTwoRateLimits(t *testing.T) {
	base := 10 * time.Millisecond
	s, sleeper := retrySyncer(base)

	attempts := 0
	out, err := s.retry(context.Background(), false, func(context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("you have exceeded a secondary rate limit")
		}
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if out != "ok" {
		t.Errorf("out = %q", out)
	}
	want := []time.Duration{base, 2 * base}
	if len(sleeper.slept) != 2 || sleeper.slept[0] != want[0] || sleeper.slept[1] != want[1] {
		t.Errorf("slept %v, want %v", sleeper.slept, want)
	}
}

func TestRetryPermanentErrorPropagatesImmediately(t *testing.T) {
	s, sleeper := retrySyncer(time.Millisecond)

	attempts := 0
	_, err := s.retry(context.Background(), true, func(context.Context) (string, error) {
		attempts++
		return "", errors.New("gh: issue title cannot be blank")
	})

	if err == nil || errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want the permanent error unwrapped", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if len(sleeper.slept) != 0 {
		t.Errorf("slept %v, want none", sleeper.slept)
	}
}

func TestRetryEmptyCreationResponseIsRateLimitSignature(t *testing.T) {
	s, _ := retrySyncer(time.Millisecond)

	attempts := 0
	out, err := s.retry(context.Background(), true, func(context.Context) (string, error) {
		attempts++
		if attempts < 2 {
			return "  \n", nil
		}
		return "https://github.com/acme/widgets/issues/7", nil
	})

	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2 (empty response retried)", attempts)
	}
	if out == "" {
		t.Error("expected the non-empty response to be returned")
	}
}

func TestRetryEmptyResponseAllowedForQueries(t *testing.T) {
	s, sleeper := retrySyncer(time.Millisecond)

	out, err := s.retry(context.Background(), false, func(context.Context) (string, error) {
		return "", nil
	})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if out != "" || len(sleeper.slept) != 0 {
		t.Error("query returning empty output must succeed without retries")
	}
}

func TestIsRateLimit(t *testing.T) {
	cases := []struct {
		err  string
		want bool
	}{
		{"API rate limit exceeded for user", true},
		{"You have exceeded a secondary rate limit", true},
		{"abuse detection mechanism triggered", true},
		{"HTTP 403: Forbidden", true},
		{"RATE LIMIT", true},
		{"gh: issue not found", false},
		{"connection refused", false},
	}
	for _, tc := range cases {
		if got := isRateLimit(errors.New(tc.err)); got != tc.want {
			t.Errorf("isRateLimit(%q) = %v, want %v", tc.err, got, tc.want)
		}
	}
	if isRateLimit(nil) {
		t.Error("nil error classified as rate limit")
	}
}
