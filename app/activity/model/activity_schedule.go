package model

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrScheduleNotFound = errors.New("活动日程不存在")

// ==================== ActivitySchedule 活动日程模型 ====================
// 一个活动可以包含多个日程时段，日程状态只随活动流转而镜像变化，
// 且任何时刻不得比所属活动"更靠后"

type ActivitySchedule struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"`

	ActivityID  uint64 `gorm:"index:idx_activity_id;not null;comment:所属活动ID" json:"activity_id"`
	Description string `gorm:"type:varchar(200);default:'';comment:日程说明" json:"description"`
	Location    string `gorm:"type:varchar(200);default:'';comment:日程地点" json:"location"`

	StartTime int64 `gorm:"index;not null;comment:日程开始时间" json:"start_time"`
	EndTime   int64 `gorm:"not null;comment:日程结束时间" json:"end_time"`

	Status int8 `gorm:"default:1;comment:日程状态" json:"status"`

	CreatedAt int64 `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt int64 `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ActivitySchedule) TableName() string {
	return "activity_schedules"
}

// StatusText 获取日程状态文本
func (s *ActivitySchedule) StatusText() string {
	if text, ok := ScheduleStatusText[s.Status]; ok {
		return text
	}
	return "未知"
}

// syncScheduleStatus 将活动全部日程镜像到目标状态
// 只允许状态前进：已处于同阶段或更靠后的日程保持不变
func syncScheduleStatus(tx *gorm.DB, activityID uint64, toStatus int8) error {
	var fromStatuses []int8
	for status, rank := range scheduleRank {
		if rank < ScheduleRank(toStatus) {
			fromStatuses = append(fromStatuses, status)
		}
	}
	if len(fromStatuses) == 0 {
		return nil
	}
	return tx.Model(&ActivitySchedule{}).
		Where("activity_id = ? AND status IN ?", activityID, fromStatuses).
		Update("status", toStatus).Error
}

// ==================== ActivityScheduleModel 数据访问层 ====================

type ActivityScheduleModel struct {
	db *gorm.DB
}

func NewActivityScheduleModel(db *gorm.DB) *ActivityScheduleModel {
	return &ActivityScheduleModel{db: db}
}

// FindByActivity 查询活动的全部日程
func (m *ActivityScheduleModel) FindByActivity(ctx context.Context, activityID uint64) ([]ActivitySchedule, error) {
	var schedules []ActivitySchedule
	err := m.db.WithContext(ctx).
		Where("activity_id = ?", activityID).
		Order("start_time ASC").
		Find(&schedules).Error
	return schedules, err
}

// FindStartingBetween 开始时间落在 [from, to) 且尚未结束的日程
// 用于日程开始提醒
func (m *ActivityScheduleModel) FindStartingBetween(ctx context.Context, from, to int64) ([]ActivitySchedule, error) {
	var schedules []ActivitySchedule
	err := m.db.WithContext(ctx).
		Where("start_time >= ? AND start_time < ? AND status IN ?",
			from, to, []int8{ScheduleWaiting, ScheduleInProgress}).
		Find(&schedules).Error
	return schedules, err
}

// SyncStatusByActivity 按活动镜像日程状态（独立调用入口，事务外使用）
func (m *ActivityScheduleModel) SyncStatusByActivity(ctx context.Context, activityID uint64, activityStatus int8) error {
	return syncScheduleStatus(m.db.WithContext(ctx), activityID, ScheduleStatusFor(activityStatus))
}
