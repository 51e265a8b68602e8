package lifecycle

import (
	"time"

	"github.com/SmartCampusHub/smarte-vent.server-sub001/app/activity/model"
)

// 提醒去重说明：
// 不持久化"已提醒"标记，去重完全依赖窗口按天错开 + 每天执行一次的节奏。
// 进程在窗口内重启会重复提醒，这是源系统既有行为，按原样保留。

const day = 24 * time.Hour

// DeadlineReminderSpan 报名截止提醒的前瞻跨度
const DeadlineReminderSpan = 48 * time.Hour

// Window 半开时间窗口 [From, To)，unix 秒
type Window struct {
	From int64
	To   int64
}

// Contains 时刻是否落在窗口内
func (w Window) Contains(ts int64) bool {
	return ts >= w.From && ts < w.To
}

// StartWindow 开始时间提醒窗口
// offsetDays 天后的那个 24 小时：[now+offsetDays*24h, now+(offsetDays+1)*24h)
func StartWindow(now time.Time, offsetDays int) Window {
	from := now.Add(time.Duration(offsetDays) * day)
	return Window{
		From: from.Unix(),
		To:   from.Add(day).Unix(),
	}
}

// DeadlineWindow 报名截止提醒窗口：[now, now+48h)
func DeadlineWindow(now time.Time) Window {
	return Window{
		From: now.Unix(),
		To:   now.Add(DeadlineReminderSpan).Unix(),
	}
}

// ReminderStatuses 开始提醒对应偏移量所要求的活动状态
// T-3 只提醒已发布的活动；T-1 / T0 活动可能已经开始，进行中的也提醒
func ReminderStatuses(offsetDays int) []int8 {
	if offsetDays >= 3 {
		return []int8{model.StatusPublished}
	}
	return []int8{model.StatusPublished, model.StatusInProgress}
}
