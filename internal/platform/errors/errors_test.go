package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ValidationError("bad").HTTPStatus())
	assert.Equal(t, http.StatusNotFound, NotFoundError("missing").HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, InternalError("boom", nil).HTTPStatus())
	assert.Equal(t, http.StatusServiceUnavailable, UnavailableError("full").HTTPStatus())
}

func TestError_MessageIncludesCause(t *testing.T) {
	cause := fmt.Errorf("websocket: not a websocket handshake")
	err := InternalError("upgrade failed", cause)

	assert.Equal(t, "internal: upgrade failed: websocket: not a websocket handshake", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestWithField_Chains(t *testing.T) {
	err := UnavailableError("connection limit reached").
		WithField("max", 10).
		WithField("remote_addr", "10.0.0.1")

	resp := err.ToResponse()
	assert.Equal(t, "connection limit reached", resp.Error)
	assert.Equal(t, TypeUnavailable, resp.Type)
	assert.Equal(t, 10, resp.Context["max"])
	assert.Equal(t, "10.0.0.1", resp.Context["remote_addr"])
}

func TestWithField_NilContext(t *testing.T) {
	err := &Error{Type: TypeValidation, Message: "x"}
	err.WithField("k", "v")
	assert.Equal(t, "v", err.Context["k"])
}

func TestAsStructuredError(t *testing.T) {
	assert.Nil(t, AsStructuredError(nil))

	structured := NotFoundError("no route")
	wrapped := fmt.Errorf("handler: %w", structured)
	assert.Same(t, structured, AsStructuredError(wrapped))

	plain := errors.New("plain")
	got := AsStructuredError(plain)
	require.NotNil(t, got)
	assert.Equal(t, TypeInternal, got.Type)
	assert.ErrorIs(t, got, plain)
}
