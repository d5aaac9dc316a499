package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesSentinelAfterWrap(t *testing.T) {
	sentinel := New(KindConflict, "insufficient stock")
	wrapped := fmt.Errorf("reserve: %w", sentinel.Wrap(errors.New("product 7")))

	assert.ErrorIs(t, wrapped, sentinel)
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, "insufficient stock", MessageOf(wrapped))
}

func TestError_IsDistinguishesMessages(t *testing.T) {
	a := New(KindNotFound, "order not found")
	b := New(KindNotFound, "payment not found")

	assert.False(t, errors.Is(a, b))
}

func TestKindOf_PlainError(t *testing.T) {
	err := errors.New("boom")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal server error", MessageOf(err))
}

func TestExternal_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := External(cause, "payment processor unavailable")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindExternal, KindOf(err))
	assert.Equal(t, "payment processor unavailable: connection refused", err.Error())
}

func TestWithf_KeepsSentinelIdentity(t *testing.T) {
	sentinel := New(KindNotFound, "product not found")
	err := fmt.Errorf("reserve: %w", sentinel.Withf("id %d", 7))

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, "product not found: id 7", MessageOf(err))
	assert.Empty(t, sentinel.Detail)
}
