package messaging

import (
	"fmt"
	"math"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/zeromicro/go-zero/core/logx"
)

// 重试元数据键
const (
	MetadataKeyRetryCount    = "retry_count"
	MetadataKeyLastError     = "last_error"
	MetadataKeyFirstFailedAt = "first_failed_at"
)

// RetryPolicy 重试策略
type RetryPolicy struct {
	MaxAttempts     int           // 最大尝试次数（含首次）
	InitialInterval time.Duration // 首次重试延迟
	MaxInterval     time.Duration // 最大重试延迟
	Multiplier      float64       // 指数退避倍率
}

// DefaultRetryPolicy 默认重试策略
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
	}
}

// RetryMiddleware 创建重试中间件
//
// 错误按 IsRetryable 分类（见 errors.go）：
//   - 可重试错误按指数退避重试，超过最大次数后交还订阅端重新投递
//   - 不可重试错误（如反序列化失败）确认并丢弃，不再投递
func RetryMiddleware(policy RetryPolicy) message.HandlerMiddleware {
	return func(next message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			var lastErr error

			for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
				if attempt > 0 {
					delay := retryDelay(policy, attempt)
					select {
					case <-time.After(delay):
					case <-msg.Context().Done():
						return nil, msg.Context().Err()
					}
				}

				msg.Metadata.Set(MetadataKeyRetryCount, fmt.Sprintf("%d", attempt+1))

				produced, err := next(msg)
				if err == nil {
					return produced, nil
				}

				lastErr = err
				recordError(msg, err)

				if !IsRetryable(err) {
					// 重试无意义，确认消息避免反复投递
					logx.Errorf("丢弃不可重试消息: uuid=%s, err=%v", msg.UUID, err)
					return nil, nil
				}
			}

			return nil, fmt.Errorf("超过最大重试次数 (%d): %w", policy.MaxAttempts, lastErr)
		}
	}
}

// retryDelay 计算重试延迟
// 指数退避：delay = min(InitialInterval * Multiplier^(attempt-1), MaxInterval)
func retryDelay(policy RetryPolicy, attempt int) time.Duration {
	delay := float64(policy.InitialInterval) * math.Pow(policy.Multiplier, float64(attempt-1))
	if delay > float64(policy.MaxInterval) {
		delay = float64(policy.MaxInterval)
	}
	return time.Duration(delay)
}

// recordError 记录错误信息到消息元数据
func recordError(msg *message.Message, err error) {
	msg.Metadata.Set(MetadataKeyLastError, err.Error())
	if msg.Metadata.Get(MetadataKeyFirstFailedAt) == "" {
		msg.Metadata.Set(MetadataKeyFirstFailedAt, time.Now().Format(time.RFC3339))
	}
}
