package messaging

import (
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
	}
}

func TestRetryMiddlewareDropsNonRetryable(t *testing.T) {
	attempts := 0
	handler := RetryMiddleware(testPolicy())(func(msg *message.Message) ([]*message.Message, error) {
		attempts++
		return nil, NewNonRetryableError(errors.New("反序列化失败"))
	})

	produced, err := handler(message.NewMessage("m1", []byte("{")))

	// 不可重试错误只尝试一次，消息被确认丢弃
	require.NoError(t, err)
	assert.Nil(t, produced)
	assert.Equal(t, 1, attempts)
}

func TestRetryMiddlewareExhaustsRetryable(t *testing.T) {
	attempts := 0
	handler := RetryMiddleware(testPolicy())(func(msg *message.Message) ([]*message.Message, error) {
		attempts++
		return nil, NewRetryableError(errors.New("临时故障"))
	})

	msg := message.NewMessage("m2", nil)
	_, err := handler(msg)

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, "3", msg.Metadata.Get(MetadataKeyRetryCount))
	assert.NotEmpty(t, msg.Metadata.Get(MetadataKeyLastError))
	assert.NotEmpty(t, msg.Metadata.Get(MetadataKeyFirstFailedAt))
}

func TestRetryMiddlewareSucceedsAfterRetry(t *testing.T) {
	attempts := 0
	handler := RetryMiddleware(testPolicy())(func(msg *message.Message) ([]*message.Message, error) {
		attempts++
		if attempts < 2 {
			return nil, NewRetryableError(errors.New("临时故障"))
		}
		return nil, nil
	})

	_, err := handler(message.NewMessage("m3", nil))

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestIsRetryableClassification(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(NewNonRetryableError(errors.New("x"))))
	assert.True(t, IsRetryable(NewRetryableError(errors.New("x"))))
	assert.True(t, IsRetryable(ErrTimeout))
	assert.False(t, IsRetryable(ErrInvalidMessage))
	// 未分类的错误默认可重试
	assert.True(t, IsRetryable(errors.New("unknown")))
}
