package db

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetryStopsOnSuccess(t *testing.T) {
	old := retrySleep
	retrySleep = time.Millisecond
	defer func() { retrySleep = old }()

	calls := 0
	err := withRetry(5, func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryReturnsLastError(t *testing.T) {
	old := retrySleep
	retrySleep = time.Millisecond
	defer func() { retrySleep = old }()

	calls := 0
	last := errors.New("still down")
	err := withRetry(4, func() error {
		calls++
		if calls < 4 {
			return errors.New("transient")
		}
		return last
	})
	assert.ErrorIs(t, err, last)
	assert.Equal(t, 4, calls)
}
