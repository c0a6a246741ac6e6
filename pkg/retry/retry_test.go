package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTransient = errors.New("transient")
	errFatal     = errors.New("fatal")
)

func isTransient(err error) bool { return errors.Is(err, errTransient) }

func testPolicy(slept *[]time.Duration) Policy {
	p := DefaultPolicy(isTransient)
	p.Rand = func(int64) int64 { return 0 }
	p.Sleep = func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
	return p
}

func TestBackoff(t *testing.T) {
	p := DefaultPolicy(nil)
	p.Rand = func(n int64) int64 { return n - 1 }

	jitter := 200*time.Millisecond - 1
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 400*time.Millisecond + jitter},
		{2, 800*time.Millisecond + jitter},
		{3, 1600*time.Millisecond + jitter},
		{4, 3200*time.Millisecond + jitter},
		{5, 5000*time.Millisecond + jitter},
		{10, 5000*time.Millisecond + jitter},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Backoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestBackoffJitterBounds(t *testing.T) {
	p := DefaultPolicy(nil)
	for i := 0; i < 100; i++ {
		d := p.Backoff(1)
		assert.GreaterOrEqual(t, d, 400*time.Millisecond)
		assert.Less(t, d, 600*time.Millisecond)
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	var slept []time.Duration
	calls := 0

	got, err := Do(context.Background(), testPolicy(&slept), func(ctx context.Context, attempt int) (string, error) {
		calls++
		assert.Equal(t, calls, attempt)
		if attempt < 3 {
			return "", errTransient
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{400 * time.Millisecond, 800 * time.Millisecond}, slept)
}

func TestDo_StopsOnFatal(t *testing.T) {
	var slept []time.Duration
	calls := 0

	_, err := Do(context.Background(), testPolicy(&slept), func(context.Context, int) (int, error) {
		calls++
		return 0, errFatal
	})

	assert.ErrorIs(t, err, errFatal)
	assert.Equal(t, 1, calls)
	assert.Empty(t, slept)
}

func TestDo_ExhaustsBudget(t *testing.T) {
	var slept []time.Duration
	var retried []int
	p := testPolicy(&slept)
	p.OnRetry = func(attempt int, _ time.Duration, err error) {
		retried = append(retried, attempt)
		assert.ErrorIs(t, err, errTransient)
	}
	calls := 0

	_, err := Do(context.Background(), p, func(context.Context, int) (int, error) {
		calls++
		return 0, errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
	assert.Len(t, slept, 2)
}

func TestDo_CanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := DefaultPolicy(isTransient)
	p.BaseDelay = time.Hour
	p.OnRetry = func(int, time.Duration, error) { cancel() }
	calls := 0

	_, err := Do(ctx, p, func(context.Context, int) (int, error) {
		calls++
		return 0, errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}

func TestDo_SingleAttemptPolicy(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{Retryable: isTransient}, func(context.Context, int) (int, error) {
		calls++
		return 0, errTransient
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
