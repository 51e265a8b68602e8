package notify

import (
	"fmt"
	"time"

	"github.com/SmartCampusHub/smarte-vent.server-sub001/app/activity/model"
)

// ==================== 提醒类型 ====================

const (
	KindThreeDay = "three_day" // 开始前3天
	KindOneDay   = "one_day"   // 开始前1天
	KindToday    = "today"     // 今天开始
	KindDeadline = "deadline"  // 报名即将截止
	KindSchedule = "schedule"  // 日程即将开始
)

// WebSocket 事件名
const (
	EventActivityReminder = "activity_reminder"
	EventActivityUpdate   = "activity_update"
)

const timeLayout = "2006-01-02 15:04"

func formatTime(ts int64) string {
	return time.Unix(ts, 0).Format(timeLayout)
}

// ==================== 消息模板 ====================
// 标题/内容用于落库与推送，邮件正文带称呼单独生成

// NewReminderMessage 构造开始倒计时提醒
func NewReminderMessage(a *model.Activity, kind string) *Message {
	var title, lead string
	switch kind {
	case KindThreeDay:
		title = fmt.Sprintf("活动提醒：「%s」还有3天开始", a.Name)
		lead = "距离活动开始还有3天"
	case KindOneDay:
		title = fmt.Sprintf("活动提醒：「%s」明天开始", a.Name)
		lead = "活动明天就要开始了"
	case KindToday:
		title = fmt.Sprintf("活动提醒：「%s」今天开始", a.Name)
		lead = "活动今天开始，请准时参加"
	default:
		title = fmt.Sprintf("活动提醒：「%s」", a.Name)
		lead = "活动即将开始"
	}
	content := fmt.Sprintf("%s。开始时间：%s，地点：%s", lead, formatTime(a.StartTime), a.Venue)

	return &Message{
		Event:        EventActivityReminder,
		Category:     model.NotifyCategoryReminder,
		Title:        title,
		Content:      content,
		EmailSubject: title,
		EmailBody: func(p *model.Participation) string {
			return fmt.Sprintf("%s，你好：\n\n%s。\n\n活动名称：%s\n开始时间：%s\n活动地点：%s\n\n请合理安排时间，准时参加。",
				p.UserName, lead, a.Name, formatTime(a.StartTime), a.Venue)
		},
	}
}

// NewDeadlineReminderMessage 构造报名截止提醒（48小时内截止的待发布活动）
func NewDeadlineReminderMessage(a *model.Activity) *Message {
	title := fmt.Sprintf("报名提醒：「%s」报名即将截止", a.Name)
	content := fmt.Sprintf("报名将于 %s 截止，当前报名 %d/%d 人",
		formatTime(a.RegistrationDeadline), a.CurrentParticipants, a.CapacityLimit)

	return &Message{
		Event:        EventActivityReminder,
		Category:     model.NotifyCategoryReminder,
		Title:        title,
		Content:      content,
		EmailSubject: title,
		EmailBody: func(p *model.Participation) string {
			return fmt.Sprintf("%s，你好：\n\n你报名的活动「%s」将于 %s 截止报名。\n达到开班人数后活动将正式发布，请留意后续通知。",
				p.UserName, a.Name, formatTime(a.RegistrationDeadline))
		},
	}
}

// NewScheduleReminderMessage 构造日程提醒（24小时内开始的日程）
func NewScheduleReminderMessage(a *model.Activity, s *model.ActivitySchedule) *Message {
	location := s.Location
	if location == "" {
		location = a.Venue
	}
	title := fmt.Sprintf("日程提醒：「%s」有日程即将开始", a.Name)
	content := fmt.Sprintf("日程「%s」将于 %s 开始，地点：%s", s.Description, formatTime(s.StartTime), location)

	return &Message{
		Event:        EventActivityReminder,
		Category:     model.NotifyCategoryReminder,
		Title:        title,
		Content:      content,
		EmailSubject: title,
		EmailBody: func(p *model.Participation) string {
			return fmt.Sprintf("%s，你好：\n\n活动「%s」的日程「%s」将于 %s 开始。\n地点：%s\n\n请准时参加。",
				p.UserName, a.Name, s.Description, formatTime(s.StartTime), location)
		},
	}
}

// NewStatusChangedMessage 构造状态变更通知
func NewStatusChangedMessage(a *model.Activity, fromStatus, toStatus int8, reason string) *Message {
	var title, content string
	switch toStatus {
	case model.StatusPublished:
		title = fmt.Sprintf("活动发布：「%s」已正式发布", a.Name)
		content = fmt.Sprintf("报名人数已达标，活动将于 %s 开始，地点：%s", formatTime(a.StartTime), a.Venue)
	case model.StatusCancelled:
		title = fmt.Sprintf("活动取消：「%s」已取消", a.Name)
		content = fmt.Sprintf("很抱歉，%s，活动已取消", reason)
	case model.StatusInProgress:
		title = fmt.Sprintf("活动开始：「%s」已开始", a.Name)
		content = fmt.Sprintf("活动已于 %s 开始，地点：%s", formatTime(a.StartTime), a.Venue)
	case model.StatusCompleted:
		title = fmt.Sprintf("活动结束：「%s」已结束", a.Name)
		content = "感谢参与，期待下次活动再见"
	default:
		title = fmt.Sprintf("活动状态变更：「%s」", a.Name)
		content = fmt.Sprintf("活动状态已变更为「%s」", model.StatusText[toStatus])
	}

	return &Message{
		Event:        EventActivityUpdate,
		Category:     model.NotifyCategoryActivity,
		Title:        title,
		Content:      content,
		EmailSubject: title,
		EmailBody: func(p *model.Participation) string {
			return fmt.Sprintf("%s，你好：\n\n%s。\n\n活动名称：%s\n当前状态：%s",
				p.UserName, content, a.Name, model.StatusText[toStatus])
		},
	}
}
