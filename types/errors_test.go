package types

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := Conflictf("submission %s not pending", "abc")
	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "conflict error: submission abc not pending", err.Error())

	wrapped := errors.Wrap(err, "approve")
	assert.True(t, errors.Is(wrapped, ErrConflict))
	assert.Equal(t, CodeConflict, CodeOf(wrapped))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewError(CodeNetwork, cause, "rpc %s", "http://127.0.0.1:8545")
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, http.StatusBadGateway, CodeOf(err).HTTPStatus())
}

func TestCodeHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		CodeValidation:    http.StatusBadRequest,
		CodeNotFound:      http.StatusNotFound,
		CodeConflict:      http.StatusConflict,
		CodeUnauthorized:  http.StatusUnauthorized,
		CodeStorage:       http.StatusInternalServerError,
		CodeConfig:        http.StatusInternalServerError,
		CodeChainRejected: http.StatusBadGateway,
		CodeUnreconciled:  http.StatusInternalServerError,
		CodeUnknown:       http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, code.HTTPStatus(), code.String())
	}
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("plain")))
}

func TestParseActionType(t *testing.T) {
	a, err := ParseActionType(" RECYCLE ")
	require.NoError(t, err)
	assert.Equal(t, ActionRecycle, a)

	_, err = ParseActionType("")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ParseActionType("tree")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestParseErrorCode(t *testing.T) {
	for c := CodeUnknown; c <= CodeUnauthorized; c++ {
		assert.Equal(t, c, ParseErrorCode(c.String()))
	}
	assert.Equal(t, CodeUnknown, ParseErrorCode("bogus"))
}
