package model

// ==================== 活动状态常量 ====================

const (
	StatusPending    int8 = 1 // 待定（报名期内，等待截止判定）
	StatusPublished  int8 = 2 // 已发布（成团确认）
	StatusInProgress int8 = 3 // 进行中
	StatusCompleted  int8 = 4 // 已结束
	StatusCancelled  int8 = 5 // 已取消
)

// StatusText 状态文本映射
var StatusText = map[int8]string{
	StatusPending:    "待定",
	StatusPublished:  "已发布",
	StatusInProgress: "进行中",
	StatusCompleted:  "已结束",
	StatusCancelled:  "已取消",
}

// statusRank 状态在生命周期中的推进序
// 终态 Completed / Cancelled 并列最高，之间不存在流转
var statusRank = map[int8]int{
	StatusPending:    1,
	StatusPublished:  2,
	StatusInProgress: 3,
	StatusCompleted:  4,
	StatusCancelled:  4,
}

// StatusRank 获取状态推进序，未知状态返回 0
func StatusRank(status int8) int {
	return statusRank[status]
}

// IsTerminalStatus 是否为终态（不存在任何出边）
func IsTerminalStatus(status int8) bool {
	return status == StatusCompleted || status == StatusCancelled
}

// ==================== 日程状态常量 ====================

const (
	ScheduleWaiting    int8 = 1 // 等待开始
	ScheduleInProgress int8 = 2 // 进行中
	ScheduleCompleted  int8 = 3 // 已结束
	ScheduleCancelled  int8 = 4 // 已取消
)

// ScheduleStatusText 日程状态文本映射
var ScheduleStatusText = map[int8]string{
	ScheduleWaiting:    "等待开始",
	ScheduleInProgress: "进行中",
	ScheduleCompleted:  "已结束",
	ScheduleCancelled:  "已取消",
}

// ScheduleStatusFor 活动状态对应的日程镜像状态
// 日程状态只能是活动流转的结果，不允许独立决策
func ScheduleStatusFor(activityStatus int8) int8 {
	switch activityStatus {
	case StatusInProgress:
		return ScheduleInProgress
	case StatusCompleted:
		return ScheduleCompleted
	case StatusCancelled:
		return ScheduleCancelled
	default:
		return ScheduleWaiting
	}
}

// scheduleRank 日程状态推进序（Completed / Cancelled 并列终态）
var scheduleRank = map[int8]int{
	ScheduleWaiting:    1,
	ScheduleInProgress: 2,
	ScheduleCompleted:  3,
	ScheduleCancelled:  3,
}

// ScheduleRank 获取日程状态推进序
func ScheduleRank(status int8) int {
	return scheduleRank[status]
}

// ==================== 参与状态常量 ====================

const (
	ParticipationUnverified int8 = 0 // 待审核
	ParticipationVerified   int8 = 1 // 已审核通过（通知接收方）
	ParticipationRejected   int8 = 2 // 已拒绝
)

// ==================== 参与角色常量 ====================

const (
	RoleParticipant int8 = 1 // 普通参与者
	RoleContributor int8 = 2 // 协作成员
)

// ==================== 操作人类型 ====================

const (
	OperatorTypeUser   int8 = 1 // 用户
	OperatorTypeAdmin  int8 = 2 // 管理员
	OperatorTypeSystem int8 = 3 // 系统自动
)

// ==================== 通知类别 ====================

const (
	NotifyCategoryActivity = "activity" // 活动状态变更
	NotifyCategoryReminder = "reminder" // 活动/日程提醒
	NotifyCategorySystem   = "system"   // 系统通知
)
