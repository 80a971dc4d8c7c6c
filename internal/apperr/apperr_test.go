package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAndKindOf(t *testing.T) {
	err := New(NotFound, "ip not found")
	assert.True(t, Is(err, NotFound))
	assert.False(t, Is(err, Conflict))
	assert.Equal(t, NotFound, KindOf(err))

	plain := errors.New("boom")
	assert.False(t, Is(plain, NotFound))
	assert.Equal(t, Kind(""), KindOf(plain))
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ServiceUnavailable, "dial node", cause)
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "connection refused")
}
