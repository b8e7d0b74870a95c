package encoders

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// WithBreaker wraps an encoder in a circuit breaker so a provider outage
// sheds load quickly instead of queueing requests behind timeouts. Fatal
// errors (bad config, dimension mismatch) do not count toward tripping.
func WithBreaker(inner Encoder) Encoder {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    inner.Provider() + "-encoder",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Fatal errors mean the request is wrong, not that the provider is
		// down; they must not trip the breaker.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var fr *fatalResult
			return errors.As(err, &fr)
		},
	})
	return &breakerEncoder{inner: inner, cb: cb}
}

type breakerEncoder struct {
	inner Encoder
	cb    *gobreaker.CircuitBreaker
}

func (b *breakerEncoder) Provider() string { return b.inner.Provider() }
func (b *breakerEncoder) Model() string    { return b.inner.Model() }
func (b *breakerEncoder) Dimensions() int  { return b.inner.Dimensions() }
func (b *breakerEncoder) MaxBatch() int    { return b.inner.MaxBatch() }

func (b *breakerEncoder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		vecs, err := b.inner.Embed(ctx, texts)
		if err != nil {
			var encErr *Error
			if errors.As(err, &encErr) && !encErr.Retryable {
				return nil, &fatalResult{err: err}
			}
			return nil, err
		}
		return vecs, nil
	})
	if err != nil {
		var fr *fatalResult
		if errors.As(err, &fr) {
			return nil, fr.err
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, retryable(b.inner.Provider(), err)
		}
		return nil, err
	}
	return res.([][]float32), nil
}

// fatalResult smuggles a non-retryable error through gobreaker's failure
// accounting.
type fatalResult struct{ err error }

func (f *fatalResult) Error() string { return f.err.Error() }
func (f *fatalResult) Unwrap() error { return f.err }
