package mq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/SmartCampusHub/smarte-vent.server-sub001/common/messaging"

	"github.com/zeromicro/go-zero/core/logx"
)

// Producer 活动服务消息发布器
// nil 安全：Producer 或 Client 为 nil 时所有方法静默返回
type Producer struct {
	client *messaging.Client
}

// NewProducer 创建消息发布器
func NewProducer(client *messaging.Client) *Producer {
	if client == nil {
		return nil
	}
	return &Producer{client: client}
}

// publishAsync 异步发布事件（核心方法）
// - 开新 goroutine，不阻塞调用方
// - defer recover 防 panic 传播
// - 3 秒超时防 goroutine 泄漏
// - 发布失败只记日志，不影响主业务
func (p *Producer) publishAsync(topic string, payload interface{}) {
	if p == nil || p.client == nil {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logx.Errorf("[MQ-Producer] panic recovered: topic=%s, err=%v", topic, r)
			}
		}()

		data, err := json.Marshal(payload)
		if err != nil {
			logx.Errorf("[MQ-Producer] 序列化失败: topic=%s, err=%v", topic, err)
			return
		}

		pubCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := p.client.Publish(pubCtx, topic, data); err != nil {
			logx.Errorf("[MQ-Producer] 发布失败: topic=%s, err=%v", topic, err)
			return
		}

		logx.Infof("[MQ-Producer] 发布成功: topic=%s, size=%d", topic, len(data))
	}()
}

// ==================== 生命周期事件（网关 MQ 消费）====================

// PublishStatusChanged 发布活动状态变更事件
func (p *Producer) PublishStatusChanged(ctx context.Context, activityID uint64, fromStatus, toStatus int8, reason string) {
	p.publishAsync(messaging.TopicActivityStatusChanged, messaging.ActivityStatusChangedEvent{
		ActivityID: activityID,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
		Reason:     reason,
		ChangedAt:  time.Now(),
	})
}

// PublishReminderDue 发布活动提醒到期事件
func (p *Producer) PublishReminderDue(ctx context.Context, activityID uint64, kind, title, content string) {
	p.publishAsync(messaging.TopicActivityReminderDue, messaging.ActivityReminderDueEvent{
		ActivityID: activityID,
		Kind:       kind,
		Title:      title,
		Content:    content,
		RemindedAt: time.Now(),
	})
}

// Close 关闭 Producer 底层客户端
func (p *Producer) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
