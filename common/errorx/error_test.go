package errorx

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUsesCodeTable(t *testing.T) {
	err := New(CodeRoomUnauthorized)

	assert.Equal(t, CodeRoomUnauthorized, err.Code)
	assert.Equal(t, GetMessage(CodeRoomUnauthorized), err.Message)
}

func TestFromErrorUnwrapsBizError(t *testing.T) {
	inner := ErrBroadcastUnauthorized()
	wrapped := errors.Wrap(inner, "handle broadcast")

	got := FromError(wrapped)

	require.NotNil(t, got)
	assert.Equal(t, CodeBroadcastUnauthorized, got.Code)
}

func TestFromErrorUnknownFallsBackToInternal(t *testing.T) {
	got := FromError(errors.New("boom"))

	require.NotNil(t, got)
	assert.Equal(t, CodeInternalError, got.Code)
}

func TestIsMatchesCode(t *testing.T) {
	err := New(CodeAlertUnauthorized)

	assert.True(t, Is(err, CodeAlertUnauthorized))
	assert.False(t, Is(err, CodeRoomUnauthorized))
	assert.False(t, Is(nil, CodeRoomUnauthorized))
}

func TestGetMessageUnknownCode(t *testing.T) {
	assert.NotEmpty(t, GetMessage(-1))
}
