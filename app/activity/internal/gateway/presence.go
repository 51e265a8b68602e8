package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zeromicro/go-zero/core/logx"
)

// Tracker 用户在线状态追踪
type Tracker interface {
	Online(ctx context.Context, userID uint64)
	Offline(ctx context.Context, userID uint64)
	IsOnline(ctx context.Context, userID uint64) (bool, error)
}

// presenceTTL 状态键保留时长，覆盖"最后在线时间"查询场景
const presenceTTL = 30 * 24 * time.Hour

// RedisTracker 基于 Redis Hash 的在线状态追踪
// 网关多实例部署时各实例写同一份状态，IsOnline 对任意实例可见
type RedisTracker struct {
	client *redis.Client
}

// NewRedisTracker 创建在线状态追踪器
func NewRedisTracker(client *redis.Client) *RedisTracker {
	return &RedisTracker{client: client}
}

func presenceKey(userID uint64) string {
	return fmt.Sprintf("activity:presence:%d", userID)
}

// Online 标记用户上线
func (t *RedisTracker) Online(ctx context.Context, userID uint64) {
	now := time.Now().Unix()
	key := presenceKey(userID)

	data := map[string]interface{}{
		"is_online":      "1",
		"last_seen":      now,
		"last_online_at": now,
	}
	if err := t.client.HSet(ctx, key, data).Err(); err != nil {
		logx.Errorf("更新用户在线状态失败: user=%d, err=%v", userID, err)
		return
	}
	t.client.Expire(ctx, key, presenceTTL)
}

// Offline 标记用户下线
func (t *RedisTracker) Offline(ctx context.Context, userID uint64) {
	now := time.Now().Unix()
	key := presenceKey(userID)

	data := map[string]interface{}{
		"is_online":       "0",
		"last_seen":       now,
		"last_offline_at": now,
	}
	if err := t.client.HSet(ctx, key, data).Err(); err != nil {
		logx.Errorf("更新用户离线状态失败: user=%d, err=%v", userID, err)
		return
	}
	t.client.Expire(ctx, key, presenceTTL)
}

// IsOnline 查询用户是否在线
func (t *RedisTracker) IsOnline(ctx context.Context, userID uint64) (bool, error) {
	val, err := t.client.HGet(ctx, presenceKey(userID), "is_online").Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	return val == "1", nil
}
