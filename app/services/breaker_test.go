package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := newBreaker("test", BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Hour, Interval: time.Hour}, nil)
	boom := errors.New("boom")

	calls := 0
	fail := func() (int, error) { calls++; return 0, boom }

	_, err := execute(cb, fail)
	assert.ErrorIs(t, err, boom)
	_, err = execute(cb, fail)
	assert.ErrorIs(t, err, boom)

	_, err = execute(cb, fail)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, 2, calls, "an open breaker does not call upstream")
}

func TestExecute_ReturnsTypedValue(t *testing.T) {
	cb := newBreaker("ok", DefaultBreakerSettings(), nil)
	got, err := execute(cb, func() (string, error) { return "pong", nil })
	require.NoError(t, err)
	assert.Equal(t, "pong", got)
}
