package model

import (
	"context"

	"gorm.io/gorm"
)

// ==================== ActivityStatusLog 状态变更日志 ====================
// 每次状态流转追加一条，便于审计与排查自动流转问题

type ActivityStatusLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"`

	ActivityID uint64 `gorm:"index:idx_activity_id;not null;comment:活动ID" json:"activity_id"`
	FromStatus int8   `gorm:"not null;comment:原状态" json:"from_status"`
	ToStatus   int8   `gorm:"not null;comment:新状态" json:"to_status"`

	OperatorID   uint64 `gorm:"default:0;comment:操作人ID(0=系统)" json:"operator_id"`
	OperatorType int8   `gorm:"default:3;comment:操作人类型" json:"operator_type"`
	Reason       string `gorm:"type:varchar(200);default:'';comment:变更原因" json:"reason"`

	CreatedAt int64 `gorm:"autoCreateTime;index" json:"created_at"`
}

func (ActivityStatusLog) TableName() string {
	return "activity_status_logs"
}

// ==================== ActivityStatusLogModel 数据访问层 ====================

type ActivityStatusLogModel struct {
	db *gorm.DB
}

func NewActivityStatusLogModel(db *gorm.DB) *ActivityStatusLogModel {
	return &ActivityStatusLogModel{db: db}
}

// Create 追加状态变更日志
func (m *ActivityStatusLogModel) Create(ctx context.Context, log *ActivityStatusLog) error {
	return m.db.WithContext(ctx).Create(log).Error
}

// FindByActivity 查询活动的状态变更历史
func (m *ActivityStatusLogModel) FindByActivity(ctx context.Context, activityID uint64) ([]ActivityStatusLog, error) {
	var logs []ActivityStatusLog
	err := m.db.WithContext(ctx).
		Where("activity_id = ?", activityID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}
