package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotateFirstBackendWins(t *testing.T) {
	var tried []string
	got, err := Rotate(context.Background(), []string{"haiku", "sonnet", "opus"},
		func(_ context.Context, backend string) (string, error) {
			tried = append(tried, backend)
			return "answer from " + backend, nil
		})
	require.NoError(t, err)
	assert.Equal(t, "answer from haiku", got)
	assert.Equal(t, []string{"haiku"}, tried)
}

func TestRotateAdvancesOnRateLimit(t *testing.T) {
	rateLimited := NewTransientError(errors.New("429 too many requests"), 429)

	var tried []string
	got, err := Rotate(context.Background(), []string{"haiku", "sonnet"},
		func(_ context.Context, backend string) (string, error) {
			tried = append(tried, backend)
			if backend == "haiku" {
				return "", rateLimited
			}
			return "ok", nil
		})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, []string{"haiku", "sonnet"}, tried)
}

func TestRotateExhaustsToHardFailure(t *testing.T) {
	boom := errors.New("boom")
	_, err := Rotate(context.Background(), []string{"a", "b", "c"},
		func(_ context.Context, _ string) (int, error) {
			return 0, boom
		})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "all 3 backends exhausted")
}

func TestRotateEmptyBackends(t *testing.T) {
	_, err := Rotate(context.Background(), nil,
		func(_ context.Context, _ string) (int, error) {
			t.Fatal("fn must not be called")
			return 0, nil
		})
	assert.Error(t, err)
}

func TestRotateStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := Rotate(ctx, []string{"a", "b", "c"},
		func(_ context.Context, _ string) (int, error) {
			calls++
			cancel()
			return 0, errors.New("fail")
		})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "cancellation stops the rotation")
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, IsRateLimited(NewTransientError(errors.New("throttled"), 429)))
	assert.False(t, IsRateLimited(NewTransientError(errors.New("oops"), 503)))
	assert.False(t, IsRateLimited(errors.New("plain")))
	assert.False(t, IsRateLimited(nil))
}
