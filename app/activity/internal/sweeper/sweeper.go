package sweeper

import (
	"context"
	"time"

	"github.com/SmartCampusHub/smarte-vent.server-sub001/app/activity/internal/lifecycle"
	"github.com/SmartCampusHub/smarte-vent.server-sub001/app/activity/internal/notify"
	"github.com/SmartCampusHub/smarte-vent.server-sub001/app/activity/model"
	"github.com/SmartCampusHub/smarte-vent.server-sub001/app/activity/mq"

	"github.com/zeromicro/go-zero/core/logx"
)

// 批量处理配置
const batchSize = 100

// ==================== 依赖接口 ====================

// ActivityStore 活动查询与状态流转
type ActivityStore interface {
	FindByID(ctx context.Context, id uint64) (*model.Activity, error)
	FindByStatusAndEndBefore(ctx context.Context, status int8, before int64, limit int) ([]model.Activity, error)
	FindApprovedByStatusAndStartBefore(ctx context.Context, status int8, before int64, limit int) ([]model.Activity, error)
	FindByStatusAndDeadlineBefore(ctx context.Context, status int8, before int64, limit int) ([]model.Activity, error)
	FindByStatusAndDeadlineBetween(ctx context.Context, status int8, from, to int64) ([]model.Activity, error)
	FindByStatusesAndStartBetween(ctx context.Context, statuses []int8, from, to int64) ([]model.Activity, error)
	TransitionStatus(ctx context.Context, act *model.Activity, toStatus int8, reason string) (bool, error)
}

// ScheduleStore 日程查询
type ScheduleStore interface {
	FindStartingBetween(ctx context.Context, from, to int64) ([]model.ActivitySchedule, error)
}

// Notifier 三通道扇出
type Notifier interface {
	DeliverToActivity(ctx context.Context, activityID uint64, msg *notify.Message) error
}

// ==================== Sweeper 生命周期扫描器 ====================

// Sweeper 活动生命周期扫描器
//
// 功能说明：
//   - 状态流转扫描：到点的活动按状态机推进（报名截止裁决、自动开始、自动结束）
//   - 提醒扫描：命中时间窗口的活动向参与者扇出提醒
//
// 所有扫描都是 now 的函数：同一 now 连续执行两次，第二次不产生新变更
// （状态流转靠 CAS 前置条件失效自然跳过；提醒窗口按天对齐，当天只命中一次）
type Sweeper struct {
	activities ActivityStore
	schedules  ScheduleStore
	notifier   Notifier     // 可为 nil（只流转不通知）
	producer   *mq.Producer // 可为 nil
}

// NewSweeper 创建生命周期扫描器
func NewSweeper(activities ActivityStore, schedules ScheduleStore, notifier Notifier, producer *mq.Producer) *Sweeper {
	return &Sweeper{
		activities: activities,
		schedules:  schedules,
		notifier:   notifier,
		producer:   producer,
	}
}

// JobSettings 扫描任务节奏配置
type JobSettings struct {
	TickInterval       time.Duration // 状态流转扫描间隔
	ResolveDailyAt     string        // 报名截止裁决
	ReminderTodayAt    string        // 今日开始提醒
	ReminderOneDayAt   string        // 明日开始提醒
	DeadlineReminderAt string        // 报名截止提醒
	ReminderThreeDayAt string        // 3天倒计时提醒
	ScheduleReminderAt string        // 日程提醒
}

// Jobs 构建完整的扫描任务表
func (s *Sweeper) Jobs(settings JobSettings) []Job {
	return []Job{
		{Name: "activity_start", Interval: settings.TickInterval, Run: s.StartPass},
		{Name: "activity_complete", Interval: settings.TickInterval, Run: s.CompletePass},
		{Name: "registration_resolve", DailyAt: settings.ResolveDailyAt, Run: s.ResolvePass},
		{Name: "reminder_today", DailyAt: settings.ReminderTodayAt, Run: s.ReminderTodayPass},
		{Name: "reminder_one_day", DailyAt: settings.ReminderOneDayAt, Run: s.ReminderOneDayPass},
		{Name: "deadline_reminder", DailyAt: settings.DeadlineReminderAt, Run: s.DeadlineReminderPass},
		{Name: "reminder_three_day", DailyAt: settings.ReminderThreeDayAt, Run: s.ReminderThreeDayPass},
		{Name: "schedule_reminder", DailyAt: settings.ScheduleReminderAt, Run: s.ScheduleReminderPass},
	}
}

// ==================== 状态流转扫描 ====================

// StartPass 已发布且到达开始时间的活动 → 进行中
func (s *Sweeper) StartPass(ctx context.Context, now time.Time) {
	s.transitionPass(ctx, now, "activity_start", func(before int64) ([]model.Activity, error) {
		return s.activities.FindApprovedByStatusAndStartBefore(ctx, model.StatusPublished, before, batchSize)
	})
}

// CompletePass 进行中且到达结束时间的活动 → 已结束
func (s *Sweeper) CompletePass(ctx context.Context, now time.Time) {
	s.transitionPass(ctx, now, "activity_complete", func(before int64) ([]model.Activity, error) {
		return s.activities.FindByStatusAndEndBefore(ctx, model.StatusInProgress, before, batchSize)
	})
}

// ResolvePass 报名截止裁决：待发布活动按成团人数流向发布或取消
func (s *Sweeper) ResolvePass(ctx context.Context, now time.Time) {
	s.transitionPass(ctx, now, "registration_resolve", func(before int64) ([]model.Activity, error) {
		return s.activities.FindByStatusAndDeadlineBefore(ctx, model.StatusPending, before, batchSize)
	})
}

// transitionPass 批量状态流转
//
// 流程：
//  1. 查询候选活动（限制数量，流转后自然退出候选集）
//  2. 逐个按状态机推进，单个失败不影响其他
func (s *Sweeper) transitionPass(ctx context.Context, now time.Time, jobName string, fetch func(before int64) ([]model.Activity, error)) {
	var total int
	for {
		activities, err := fetch(now.Unix())
		if err != nil {
			logx.Errorf("[Sweep] 查询候选活动失败: job=%s, err=%v", jobName, err)
			metricJobErrors.WithLabelValues(jobName).Inc()
			return
		}
		if len(activities) == 0 {
			break
		}

		progressed := 0
		for i := range activities {
			if s.transitionOne(ctx, &activities[i], now, jobName) {
				progressed++
			}
		}
		total += progressed

		// 整批零进展时同一批记录会被原样重查（守卫不满足或存储持续报错），退出避免空转
		if progressed == 0 || len(activities) < batchSize {
			break
		}
		// 短暂休眠，降低数据库压力
		time.Sleep(50 * time.Millisecond)
	}

	if total > 0 {
		logx.Infof("[Sweep] %s 完成: 流转 %d 条记录", jobName, total)
	}
}

// transitionOne 单个活动按状态机推进一步
func (s *Sweeper) transitionOne(ctx context.Context, act *model.Activity, now time.Time, jobName string) bool {
	toStatus, reason, ok := lifecycle.Next(act, now.Unix())
	if !ok {
		// 候选命中但守卫不满足（如未审核通过），留待下轮
		return false
	}

	fromStatus := act.Status
	applied, err := s.activities.TransitionStatus(ctx, act, toStatus, reason)
	if err != nil {
		logx.Errorf("[Sweep] 流转活动 %d 失败: %v", act.ID, err)
		metricJobErrors.WithLabelValues(jobName).Inc()
		return false
	}
	if !applied {
		// 其他实例赢得了竞争，正常跳过
		return false
	}

	metricTransitions.WithLabelValues(model.StatusText[fromStatus], model.StatusText[toStatus]).Inc()
	s.producer.PublishStatusChanged(ctx, act.ID, fromStatus, toStatus, reason)

	if s.notifier != nil {
		msg := notify.NewStatusChangedMessage(act, fromStatus, toStatus, reason)
		if err := s.notifier.DeliverToActivity(ctx, act.ID, msg); err != nil {
			metricJobErrors.WithLabelValues(jobName).Inc()
		}
	}
	return true
}

// ==================== 提醒扫描 ====================

// ReminderTodayPass 今天开始的活动提醒
func (s *Sweeper) ReminderTodayPass(ctx context.Context, now time.Time) {
	s.startWindowReminder(ctx, now, notify.KindToday, 0)
}

// ReminderOneDayPass 明天开始的活动提醒
func (s *Sweeper) ReminderOneDayPass(ctx context.Context, now time.Time) {
	s.startWindowReminder(ctx, now, notify.KindOneDay, 1)
}

// ReminderThreeDayPass 3天后开始的活动提醒
func (s *Sweeper) ReminderThreeDayPass(ctx context.Context, now time.Time) {
	s.startWindowReminder(ctx, now, notify.KindThreeDay, 3)
}

// startWindowReminder 开始时间窗口提醒
func (s *Sweeper) startWindowReminder(ctx context.Context, now time.Time, kind string, offsetDays int) {
	if s.notifier == nil {
		return
	}

	w := lifecycle.StartWindow(now, offsetDays)
	statuses := lifecycle.ReminderStatuses(offsetDays)

	activities, err := s.activities.FindByStatusesAndStartBetween(ctx, statuses, w.From, w.To)
	if err != nil {
		logx.Errorf("[Sweep] 查询提醒活动失败: kind=%s, err=%v", kind, err)
		metricJobErrors.WithLabelValues("reminder_" + kind).Inc()
		return
	}

	for i := range activities {
		act := &activities[i]
		msg := notify.NewReminderMessage(act, kind)
		if err := s.notifier.DeliverToActivity(ctx, act.ID, msg); err != nil {
			metricJobErrors.WithLabelValues("reminder_" + kind).Inc()
			continue
		}
		metricReminders.WithLabelValues(kind).Inc()
		s.producer.PublishReminderDue(ctx, act.ID, kind, msg.Title, msg.Content)
	}

	if len(activities) > 0 {
		logx.Infof("[Sweep] 提醒扫描完成: kind=%s, 活动数=%d", kind, len(activities))
	}
}

// DeadlineReminderPass 报名截止提醒：48小时内截止、仍在报名中的活动
func (s *Sweeper) DeadlineReminderPass(ctx context.Context, now time.Time) {
	if s.notifier == nil {
		return
	}

	w := lifecycle.DeadlineWindow(now)

	activities, err := s.activities.FindByStatusAndDeadlineBetween(ctx, model.StatusPending, w.From, w.To)
	if err != nil {
		logx.Errorf("[Sweep] 查询截止提醒活动失败: %v", err)
		metricJobErrors.WithLabelValues("deadline_reminder").Inc()
		return
	}

	for i := range activities {
		act := &activities[i]
		msg := notify.NewDeadlineReminderMessage(act)
		if err := s.notifier.DeliverToActivity(ctx, act.ID, msg); err != nil {
			metricJobErrors.WithLabelValues("deadline_reminder").Inc()
			continue
		}
		metricReminders.WithLabelValues(notify.KindDeadline).Inc()
		s.producer.PublishReminderDue(ctx, act.ID, notify.KindDeadline, msg.Title, msg.Content)
	}
}

// ScheduleReminderPass 日程提醒：24小时内开始的日程
func (s *Sweeper) ScheduleReminderPass(ctx context.Context, now time.Time) {
	if s.notifier == nil {
		return
	}

	from := now.Unix()
	to := now.Add(24 * time.Hour).Unix()

	schedules, err := s.schedules.FindStartingBetween(ctx, from, to)
	if err != nil {
		logx.Errorf("[Sweep] 查询即将开始的日程失败: %v", err)
		metricJobErrors.WithLabelValues("schedule_reminder").Inc()
		return
	}

	// 同一活动的多条日程各自提醒，但活动只查一次
	cache := make(map[uint64]*model.Activity)
	for i := range schedules {
		sch := &schedules[i]
		act, ok := cache[sch.ActivityID]
		if !ok {
			act, err = s.activities.FindByID(ctx, sch.ActivityID)
			if err != nil {
				logx.Errorf("[Sweep] 查询日程所属活动失败: activity=%d, err=%v", sch.ActivityID, err)
				metricJobErrors.WithLabelValues("schedule_reminder").Inc()
				continue
			}
			cache[sch.ActivityID] = act
		}

		// 已取消/已结束的活动不再提醒
		if model.IsTerminalStatus(act.Status) {
			continue
		}

		msg := notify.NewScheduleReminderMessage(act, sch)
		if err := s.notifier.DeliverToActivity(ctx, act.ID, msg); err != nil {
			metricJobErrors.WithLabelValues("schedule_reminder").Inc()
			continue
		}
		metricReminders.WithLabelValues(notify.KindSchedule).Inc()
		s.producer.PublishReminderDue(ctx, act.ID, notify.KindSchedule, msg.Title, msg.Content)
	}
}
