package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := NewNotFoundError("favorite not found")
	assert.Equal(t, "NOT_FOUND: favorite not found", err.Error())

	wrapped := NewNetworkError("directory unreachable", fmt.Errorf("dial tcp: refused"))
	assert.Contains(t, wrapped.Error(), "NETWORK: directory unreachable")
	assert.Contains(t, wrapped.Error(), "dial tcp: refused")
}

func TestAppError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying")
	err := NewServerError("directory returned 500", cause)
	assert.True(t, stderrors.Is(err, cause))
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, UnauthorizedError, TypeOf(NewUnauthorizedError("no credentials")))
	assert.Equal(t, ExpiredError, TypeOf(NewExpiredError("coordinates expired")))
	assert.Equal(t, RequestFailedError, TypeOf(fmt.Errorf("plain error")))
}

func TestUserMessage_NeverEchoesBackendText(t *testing.T) {
	types := []ErrorType{
		UnauthorizedError, ExpiredError, InvalidSignatureError, NotFoundError,
		RateLimitError, ServerError, RequestFailedError, NetworkError,
	}
	for _, errorType := range types {
		msg := UserMessage(errorType)
		assert.NotEmpty(t, msg)
		assert.NotContains(t, msg, string(errorType))
	}
}

func TestErrorTypeCheckers(t *testing.T) {
	assert.True(t, IsUnauthorizedError(NewUnauthorizedError("x")))
	assert.False(t, IsUnauthorizedError(NewExpiredError("x")))
	assert.True(t, IsExpiredError(NewExpiredError("x")))
	assert.True(t, IsInvalidSignatureError(NewInvalidSignatureError("x")))
	assert.True(t, IsRateLimitError(NewRateLimitError("x", nil)))
	assert.True(t, IsNetworkError(NewNetworkError("x", nil)))
	assert.True(t, IsNotFoundError(NewNotFoundError("x")))
	assert.True(t, IsServerError(NewServerError("x", nil)))
	assert.True(t, IsRequestFailedError(NewRequestFailedError("x", nil)))
	assert.False(t, IsNotFoundError(fmt.Errorf("not an app error")))
}
