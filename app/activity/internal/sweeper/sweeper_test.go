package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SmartCampusHub/smarte-vent.server-sub001/app/activity/internal/notify"
	"github.com/SmartCampusHub/smarte-vent.server-sub001/app/activity/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 8, 0, 0, 0, time.Local)

// ==================== 测试替身 ====================

type transitionRecord struct {
	activityID uint64
	from, to   int8
}

type fakeActivityStore struct {
	mu          sync.Mutex
	activities  map[uint64]*model.Activity
	transitions []transitionRecord
	failFor     map[uint64]bool
	findCalls   int
}

func newFakeActivityStore(acts ...*model.Activity) *fakeActivityStore {
	m := make(map[uint64]*model.Activity, len(acts))
	for _, a := range acts {
		m[a.ID] = a
	}
	return &fakeActivityStore{activities: m, failFor: map[uint64]bool{}}
}

func (f *fakeActivityStore) snapshot(filter func(a *model.Activity) bool) []model.Activity {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	var out []model.Activity
	for _, a := range f.activities {
		if filter(a) {
			out = append(out, *a)
		}
	}
	return out
}

func (f *fakeActivityStore) FindByID(_ context.Context, id uint64) (*model.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.activities[id]
	if !ok {
		return nil, model.ErrActivityNotFound
	}
	copied := *a
	return &copied, nil
}

func (f *fakeActivityStore) FindByStatusAndEndBefore(_ context.Context, status int8, before int64, _ int) ([]model.Activity, error) {
	return f.snapshot(func(a *model.Activity) bool {
		return a.Status == status && a.EndTime <= before
	}), nil
}

func (f *fakeActivityStore) FindApprovedByStatusAndStartBefore(_ context.Context, status int8, before int64, _ int) ([]model.Activity, error) {
	return f.snapshot(func(a *model.Activity) bool {
		return a.Status == status && a.IsApproved && a.StartTime <= before
	}), nil
}

func (f *fakeActivityStore) FindByStatusAndDeadlineBefore(_ context.Context, status int8, before int64, _ int) ([]model.Activity, error) {
	return f.snapshot(func(a *model.Activity) bool {
		return a.Status == status && a.RegistrationDeadline <= before
	}), nil
}

func (f *fakeActivityStore) FindByStatusAndDeadlineBetween(_ context.Context, status int8, from, to int64) ([]model.Activity, error) {
	return f.snapshot(func(a *model.Activity) bool {
		return a.Status == status && a.RegistrationDeadline >= from && a.RegistrationDeadline < to
	}), nil
}

func (f *fakeActivityStore) FindByStatusesAndStartBetween(_ context.Context, statuses []int8, from, to int64) ([]model.Activity, error) {
	return f.snapshot(func(a *model.Activity) bool {
		for _, s := range statuses {
			if a.Status == s && a.StartTime >= from && a.StartTime < to {
				return true
			}
		}
		return false
	}), nil
}

func (f *fakeActivityStore) TransitionStatus(_ context.Context, act *model.Activity, toStatus int8, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[act.ID] {
		return false, errors.New("db error")
	}
	stored, ok := f.activities[act.ID]
	if !ok {
		return false, model.ErrActivityNotFound
	}
	// 乐观锁语义：版本或状态不匹配则前置条件失效
	if stored.Version != act.Version || stored.Status != act.Status {
		return false, nil
	}
	f.transitions = append(f.transitions, transitionRecord{activityID: act.ID, from: stored.Status, to: toStatus})
	stored.Status = toStatus
	stored.Version++
	return true, nil
}

func (f *fakeActivityStore) transitionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transitions)
}

func (f *fakeActivityStore) findCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findCalls
}

func (f *fakeActivityStore) statusOf(id uint64) int8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activities[id].Status
}

type fakeScheduleStore struct {
	schedules []model.ActivitySchedule
}

func (f *fakeScheduleStore) FindStartingBetween(_ context.Context, from, to int64) ([]model.ActivitySchedule, error) {
	var out []model.ActivitySchedule
	for _, s := range f.schedules {
		if s.StartTime >= from && s.StartTime < to {
			out = append(out, s)
		}
	}
	return out, nil
}

type deliveryRecord struct {
	activityID uint64
	event      string
}

type fakeNotifier struct {
	mu         sync.Mutex
	deliveries []deliveryRecord
}

func (f *fakeNotifier) DeliverToActivity(_ context.Context, activityID uint64, msg *notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveries = append(f.deliveries, deliveryRecord{activityID: activityID, event: msg.Event})
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deliveries)
}

// ==================== 状态流转扫描 ====================

func TestStartPassTransitionsApprovedActivities(t *testing.T) {
	approved := &model.Activity{
		ID: 1, Status: model.StatusPublished, IsApproved: true,
		StartTime: testNow.Add(-time.Minute).Unix(),
	}
	notApproved := &model.Activity{
		ID: 2, Status: model.StatusPublished, IsApproved: false,
		StartTime: testNow.Add(-time.Minute).Unix(),
	}
	store := newFakeActivityStore(approved, notApproved)
	notifier := &fakeNotifier{}
	s := NewSweeper(store, &fakeScheduleStore{}, notifier, nil)

	s.StartPass(context.Background(), testNow)

	assert.Equal(t, model.StatusInProgress, store.statusOf(1))
	assert.Equal(t, model.StatusPublished, store.statusOf(2))
	assert.Equal(t, 1, notifier.count())
}

func TestCompletePass(t *testing.T) {
	store := newFakeActivityStore(&model.Activity{
		ID: 1, Status: model.StatusInProgress,
		EndTime: testNow.Add(-time.Hour).Unix(),
	})
	s := NewSweeper(store, &fakeScheduleStore{}, &fakeNotifier{}, nil)

	s.CompletePass(context.Background(), testNow)

	assert.Equal(t, model.StatusCompleted, store.statusOf(1))
}

func TestResolvePassQuotaDecision(t *testing.T) {
	deadline := testNow.Add(-time.Hour).Unix()
	quotaMet := &model.Activity{
		ID: 1, Status: model.StatusPending,
		RegistrationDeadline: deadline, CurrentParticipants: 30, CapacityLimit: 100,
	}
	quotaMissed := &model.Activity{
		ID: 2, Status: model.StatusPending,
		RegistrationDeadline: deadline, CurrentParticipants: 29, CapacityLimit: 100,
	}
	notDue := &model.Activity{
		ID: 3, Status: model.StatusPending,
		RegistrationDeadline: testNow.Add(time.Hour).Unix(), CurrentParticipants: 90, CapacityLimit: 100,
	}
	store := newFakeActivityStore(quotaMet, quotaMissed, notDue)
	notifier := &fakeNotifier{}
	s := NewSweeper(store, &fakeScheduleStore{}, notifier, nil)

	s.ResolvePass(context.Background(), testNow)

	assert.Equal(t, model.StatusPublished, store.statusOf(1))
	assert.Equal(t, model.StatusCancelled, store.statusOf(2))
	assert.Equal(t, model.StatusPending, store.statusOf(3))
	assert.Equal(t, 2, notifier.count())
}

func TestPassIdempotentSameNow(t *testing.T) {
	store := newFakeActivityStore(&model.Activity{
		ID: 1, Status: model.StatusInProgress,
		EndTime: testNow.Add(-time.Hour).Unix(),
	})
	notifier := &fakeNotifier{}
	s := NewSweeper(store, &fakeScheduleStore{}, notifier, nil)

	s.CompletePass(context.Background(), testNow)
	s.CompletePass(context.Background(), testNow)

	// 同一 now 连续执行两次，第二次不产生新变更
	assert.Equal(t, 1, store.transitionCount())
	assert.Equal(t, 1, notifier.count())
}

func TestTransitionFailureIsolation(t *testing.T) {
	broken := &model.Activity{
		ID: 1, Status: model.StatusInProgress, EndTime: testNow.Add(-time.Hour).Unix(),
	}
	healthy := &model.Activity{
		ID: 2, Status: model.StatusInProgress, EndTime: testNow.Add(-time.Hour).Unix(),
	}
	store := newFakeActivityStore(broken, healthy)
	store.failFor[1] = true
	s := NewSweeper(store, &fakeScheduleStore{}, &fakeNotifier{}, nil)

	s.CompletePass(context.Background(), testNow)

	// 单条失败不影响其余记录
	assert.Equal(t, model.StatusInProgress, store.statusOf(1))
	assert.Equal(t, model.StatusCompleted, store.statusOf(2))
}

func TestTransitionSkipsOnVersionConflict(t *testing.T) {
	store := newFakeActivityStore(&model.Activity{
		ID: 1, Status: model.StatusInProgress, Version: 3,
		EndTime: testNow.Add(-time.Hour).Unix(),
	})
	notifier := &fakeNotifier{}
	s := NewSweeper(store, &fakeScheduleStore{}, notifier, nil)

	// 模拟另一实例抢先流转：候选查出后版本已变
	stale := &model.Activity{ID: 1, Status: model.StatusInProgress, Version: 2,
		EndTime: testNow.Add(-time.Hour).Unix()}
	ok := s.transitionOne(context.Background(), stale, testNow, "activity_complete")

	assert.False(t, ok)
	assert.Equal(t, 0, notifier.count(), "未生效的流转不应扇出通知")
}

func TestTransitionPassStopsWhenBatchMakesNoProgress(t *testing.T) {
	acts := make([]*model.Activity, 0, 100)
	for i := 1; i <= 100; i++ {
		acts = append(acts, &model.Activity{
			ID: uint64(i), Status: model.StatusInProgress,
			EndTime: testNow.Add(-time.Hour).Unix(),
		})
	}
	store := newFakeActivityStore(acts...)
	for i := 1; i <= 100; i++ {
		store.failFor[uint64(i)] = true
	}
	s := NewSweeper(store, &fakeScheduleStore{}, &fakeNotifier{}, nil)

	s.CompletePass(context.Background(), testNow)

	// 整批零进展时同一批记录会被原样重查，必须只查一轮就退出
	assert.Equal(t, 1, store.findCallCount())
	assert.Equal(t, 0, store.transitionCount())
}

// ==================== 提醒扫描 ====================

func TestReminderTodayPass(t *testing.T) {
	inWindow := &model.Activity{
		ID: 1, Status: model.StatusPublished,
		StartTime: testNow.Add(2 * time.Hour).Unix(),
	}
	outOfWindow := &model.Activity{
		ID: 2, Status: model.StatusPublished,
		StartTime: testNow.Add(30 * time.Hour).Unix(),
	}
	store := newFakeActivityStore(inWindow, outOfWindow)
	notifier := &fakeNotifier{}
	s := NewSweeper(store, &fakeScheduleStore{}, notifier, nil)

	s.ReminderTodayPass(context.Background(), testNow)

	require.Equal(t, 1, notifier.count())
	assert.Equal(t, uint64(1), notifier.deliveries[0].activityID)
	assert.Equal(t, notify.EventActivityReminder, notifier.deliveries[0].event)
}

func TestReminderThreeDayPassExcludesInProgress(t *testing.T) {
	start := testNow.Add(3*24*time.Hour + time.Hour).Unix()
	published := &model.Activity{ID: 1, Status: model.StatusPublished, StartTime: start}
	inProgress := &model.Activity{ID: 2, Status: model.StatusInProgress, StartTime: start}
	store := newFakeActivityStore(published, inProgress)
	notifier := &fakeNotifier{}
	s := NewSweeper(store, &fakeScheduleStore{}, notifier, nil)

	s.ReminderThreeDayPass(context.Background(), testNow)

	require.Equal(t, 1, notifier.count())
	assert.Equal(t, uint64(1), notifier.deliveries[0].activityID)
}

func TestDeadlineReminderPass(t *testing.T) {
	within := &model.Activity{
		ID: 1, Status: model.StatusPending,
		RegistrationDeadline: testNow.Add(36 * time.Hour).Unix(),
	}
	beyond := &model.Activity{
		ID: 2, Status: model.StatusPending,
		RegistrationDeadline: testNow.Add(72 * time.Hour).Unix(),
	}
	alreadyPublished := &model.Activity{
		ID: 3, Status: model.StatusPublished,
		RegistrationDeadline: testNow.Add(36 * time.Hour).Unix(),
	}
	store := newFakeActivityStore(within, beyond, alreadyPublished)
	notifier := &fakeNotifier{}
	s := NewSweeper(store, &fakeScheduleStore{}, notifier, nil)

	s.DeadlineReminderPass(context.Background(), testNow)

	require.Equal(t, 1, notifier.count())
	assert.Equal(t, uint64(1), notifier.deliveries[0].activityID)
}

func TestScheduleReminderPass(t *testing.T) {
	active := &model.Activity{ID: 1, Status: model.StatusPublished, Name: "讲座", Venue: "报告厅"}
	cancelled := &model.Activity{ID: 2, Status: model.StatusCancelled}
	store := newFakeActivityStore(active, cancelled)
	schedules := &fakeScheduleStore{schedules: []model.ActivitySchedule{
		{ID: 11, ActivityID: 1, Description: "上半场", StartTime: testNow.Add(10 * time.Hour).Unix()},
		{ID: 12, ActivityID: 2, Description: "已取消场次", StartTime: testNow.Add(10 * time.Hour).Unix()},
		{ID: 13, ActivityID: 1, Description: "下周场次", StartTime: testNow.Add(7 * 24 * time.Hour).Unix()},
	}}
	notifier := &fakeNotifier{}
	s := NewSweeper(store, schedules, notifier, nil)

	s.ScheduleReminderPass(context.Background(), testNow)

	// 24 小时内、且活动未终止的日程才提醒
	require.Equal(t, 1, notifier.count())
	assert.Equal(t, uint64(1), notifier.deliveries[0].activityID)
}

func TestReminderPassesWithoutNotifier(t *testing.T) {
	store := newFakeActivityStore(
		&model.Activity{ID: 1, Status: model.StatusPublished, StartTime: testNow.Add(2 * time.Hour).Unix()},
		&model.Activity{ID: 2, Status: model.StatusPending, RegistrationDeadline: testNow.Add(36 * time.Hour).Unix()},
	)
	schedules := &fakeScheduleStore{schedules: []model.ActivitySchedule{
		{ID: 11, ActivityID: 1, StartTime: testNow.Add(10 * time.Hour).Unix()},
	}}

	// 只流转不通知的配置：全部提醒扫描为空操作
	s := NewSweeper(store, schedules, nil, nil)

	s.ReminderTodayPass(context.Background(), testNow)
	s.ReminderOneDayPass(context.Background(), testNow)
	s.ReminderThreeDayPass(context.Background(), testNow)
	s.DeadlineReminderPass(context.Background(), testNow)
	s.ScheduleReminderPass(context.Background(), testNow)

	assert.Equal(t, 0, store.transitionCount())
}

// ==================== 调度器 ====================

func TestRunnerRunOnceExecutesAllJobs(t *testing.T) {
	var mu sync.Mutex
	ran := make(map[string]int)
	mark := func(name string) func(context.Context, time.Time) {
		return func(context.Context, time.Time) {
			mu.Lock()
			defer mu.Unlock()
			ran[name]++
		}
	}

	r := NewRunner(nil, []Job{
		{Name: "a", Interval: time.Second, Run: mark("a")},
		{Name: "b", DailyAt: "07:00", Run: mark("b")},
	})

	r.RunOnce(context.Background(), testNow)

	assert.Equal(t, 1, ran["a"])
	assert.Equal(t, 1, ran["b"])
}

func TestUntilNextDaily(t *testing.T) {
	now := time.Date(2026, 3, 1, 6, 30, 0, 0, time.Local)

	assert.Equal(t, 30*time.Minute, untilNextDaily(now, "07:00"))
	// 今天的时刻已过，排到明天
	assert.Equal(t, 23*time.Hour+30*time.Minute, untilNextDaily(now, "06:00"))
}

func TestSweeperJobsTable(t *testing.T) {
	s := NewSweeper(newFakeActivityStore(), &fakeScheduleStore{}, &fakeNotifier{}, nil)

	jobs := s.Jobs(JobSettings{
		TickInterval:       5 * time.Second,
		ResolveDailyAt:     "00:00",
		ReminderTodayAt:    "07:00",
		ReminderOneDayAt:   "08:00",
		DeadlineReminderAt: "08:00",
		ReminderThreeDayAt: "09:00",
		ScheduleReminderAt: "11:00",
	})

	require.Len(t, jobs, 8)
	names := make(map[string]bool, len(jobs))
	for _, j := range jobs {
		names[j.Name] = true
		assert.NotNil(t, j.Run)
	}
	for _, want := range []string{
		"activity_start", "activity_complete", "registration_resolve",
		"reminder_today", "reminder_one_day", "deadline_reminder",
		"reminder_three_day", "schedule_reminder",
	} {
		assert.True(t, names[want], "缺少任务 %s", want)
	}
}
