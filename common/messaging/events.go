package messaging

import "time"

// ==================== Topic 定义 ====================

const (
	TopicActivityStatusChanged = "activity.status.changed"
	TopicActivityReminderDue   = "activity.reminder.due"
)

// ==================== 事件结构体 ====================
// 字段类型必须与网关 MQ 消费者完全匹配（uint64 ID + time.Time）

// ActivityStatusChangedEvent 活动状态变更事件
// 消费者：实时网关（向活动房间推送 activity_update）
type ActivityStatusChangedEvent struct {
	ActivityID uint64    `json:"activity_id"`
	FromStatus int8      `json:"from_status"`
	ToStatus   int8      `json:"to_status"`
	Reason     string    `json:"reason"`
	ChangedAt  time.Time `json:"changed_at"`
}

// ActivityReminderDueEvent 活动提醒到期事件
// 消费者：实时网关（向活动房间推送 activity_reminder）
type ActivityReminderDueEvent struct {
	ActivityID uint64    `json:"activity_id"`
	Kind       string    `json:"kind"` // three_day / one_day / today / deadline / schedule
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	RemindedAt time.Time `json:"reminded_at"`
}
