package polling_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"alchemy/internal/polling"
)

func TestDelaySchedule(t *testing.T) {
	policy := polling.Policy{
		MaxAttempts: 36,
		Initial:     2000 * time.Millisecond,
		Step:        1000 * time.Millisecond,
		Cap:         8000 * time.Millisecond,
	}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2000 * time.Millisecond},
		{2, 3000 * time.Millisecond},
		{3, 4000 * time.Millisecond},
		{7, 8000 * time.Millisecond},
		{8, 8000 * time.Millisecond},
		{36, 8000 * time.Millisecond},
	}
	for _, tc := range tests {
		if got := policy.Delay(tc.attempt); got != tc.want {
			t.Errorf("Delay(%d) = %s, want %s", tc.attempt, got, tc.want)
		}
	}
}

func TestPollStopsOnDone(t *testing.T) {
	calls := 0
	err := polling.Poll(context.Background(), polling.Policy{MaxAttempts: 10}, func(ctx context.Context, attempt int) (bool, error) {
		calls++
		return attempt == 3, nil
	})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestPollExhaustsBudget(t *testing.T) {
	calls := 0
	err := polling.Poll(context.Background(), polling.Policy{MaxAttempts: 5}, func(ctx context.Context, attempt int) (bool, error) {
		calls++
		return false, nil
	})
	if !errors.Is(err, polling.ErrBudgetExhausted) {
		t.Fatalf("err = %v, want ErrBudgetExhausted", err)
	}
	if calls != 5 {
		t.Fatalf("calls = %d, want 5", calls)
	}
}

func TestPollAttemptErrorsAreNotFatal(t *testing.T) {
	transient := errors.New("transient")
	err := polling.Poll(context.Background(), polling.Policy{MaxAttempts: 4}, func(ctx context.Context, attempt int) (bool, error) {
		if attempt < 3 {
			return false, transient
		}
		return true, nil
	})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
}

func TestPollHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := polling.Poll(ctx, polling.Policy{MaxAttempts: 3, Initial: time.Hour}, func(ctx context.Context, attempt int) (bool, error) {
		t.Fatal("fn should not run after cancellation")
		return true, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
