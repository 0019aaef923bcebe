package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vundelavamsi/finance-tracker-backend/internal/models"
)

// flakyParser fails transiently until failures is exhausted, then succeeds.
type flakyParser struct {
	failures int
	calls    int
	err      error
}

func (p *flakyParser) Extract(ctx context.Context, image []byte, mimeType string) (*models.TransactionDraft, error) {
	return p.extract()
}

func (p *flakyParser) ExtractText(ctx context.Context, text string) (*models.TransactionDraft, error) {
	return p.extract()
}

func (p *flakyParser) extract() (*models.TransactionDraft, error) {
	p.calls++
	if p.calls <= p.failures {
		return nil, p.err
	}
	return &models.TransactionDraft{ParseStatus: models.ParseStatusOK}, nil
}

func newTestRetrying(inner Parser, maxAttempts int) *Retrying {
	r := NewRetrying(inner, maxAttempts, zap.NewNop())
	r.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return r
}

func TestRetryingSucceedsAfterTransientFailures(t *testing.T) {
	inner := &flakyParser{failures: 2, err: Transient(errors.New("503 overloaded"))}
	r := newTestRetrying(inner, 3)

	draft, err := r.Extract(context.Background(), []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.NotNil(t, draft)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingGivesUpAfterMaxAttempts(t *testing.T) {
	inner := &flakyParser{failures: 10, err: Transient(errors.New("timeout"))}
	r := newTestRetrying(inner, 3)

	_, err := r.Extract(context.Background(), []byte("img"), "image/jpeg")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingStopsOnPermanentError(t *testing.T) {
	inner := &flakyParser{failures: 10, err: Permanent(errors.New("unsupported image"))}
	r := newTestRetrying(inner, 3)

	_, err := r.Extract(context.Background(), []byte("img"), "image/jpeg")
	require.Error(t, err)
	assert.False(t, IsTransient(err))
	assert.Equal(t, 1, inner.calls)
}

func TestRetryingStopsOnSchemaMismatch(t *testing.T) {
	inner := &flakyParser{failures: 10, err: SchemaMismatch(errors.New("not json"))}
	r := newTestRetrying(inner, 3)

	_, err := r.ExtractText(context.Background(), "spent 50")
	require.Error(t, err)

	var ee *ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, KindSchemaMismatch, ee.Kind)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryingSingleAttempt(t *testing.T) {
	inner := &flakyParser{failures: 1, err: Transient(errors.New("429"))}
	r := newTestRetrying(inner, 1)

	_, err := r.Extract(context.Background(), []byte("img"), "image/jpeg")
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}
