package encoders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyEncoder struct {
	err   *Error
	calls int
}

func (f *flakyEncoder) Provider() string { return "flaky" }
func (f *flakyEncoder) Model() string    { return "flaky-model" }
func (f *flakyEncoder) Dimensions() int  { return 2 }
func (f *flakyEncoder) MaxBatch() int    { return 8 }

func (f *flakyEncoder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func TestBreakerTripsOnConsecutiveRetryableFailures(t *testing.T) {
	inner := &flakyEncoder{err: retryable("flaky", errors.New("connection refused"))}
	enc := WithBreaker(inner)

	for i := 0; i < 5; i++ {
		_, err := enc.Embed(context.Background(), []string{"x"})
		require.Error(t, err)
	}
	assert.Equal(t, 5, inner.calls)

	// The breaker is open now; the provider is no longer called and the
	// failure is still classified retryable.
	_, err := enc.Embed(context.Background(), []string{"x"})
	var encErr *Error
	require.ErrorAs(t, err, &encErr)
	assert.True(t, encErr.Retryable)
	assert.Equal(t, 5, inner.calls)
}

func TestBreakerIgnoresFatalFailures(t *testing.T) {
	inner := &flakyEncoder{err: fatal("flaky", errors.New("dimension mismatch"))}
	enc := WithBreaker(inner)

	for i := 0; i < 10; i++ {
		_, err := enc.Embed(context.Background(), []string{"x"})
		var encErr *Error
		require.ErrorAs(t, err, &encErr)
		assert.False(t, encErr.Retryable)
	}
	// Fatal errors never open the breaker; every call reached the provider.
	assert.Equal(t, 10, inner.calls)
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	inner := &flakyEncoder{}
	enc := WithBreaker(inner)

	vectors, err := enc.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, "flaky", enc.Provider())
	assert.Equal(t, 2, enc.Dimensions())
}
