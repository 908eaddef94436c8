package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	t.Run("nil error stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "boom"))
	})

	t.Run("wrapped cause is reachable", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(cause, CodeInternal, "lookup failed")
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "lookup failed: connection refused", err.Error())
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeBadRequest, CodeOf(New(CodeBadRequest, "bad")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))

	wrapped := fmt.Errorf("handler: %w", New(CodeConflict, "dup"))
	assert.Equal(t, CodeConflict, CodeOf(wrapped))
	assert.True(t, HasCode(wrapped, CodeConflict))
	assert.False(t, HasCode(wrapped, CodeNotFound))
	assert.Equal(t, "dup", Message(wrapped))
}
