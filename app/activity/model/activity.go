package model

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ==================== 错误定义 ====================

var (
	ErrActivityNotFound         = errors.New("活动不存在")
	ErrActivityConcurrentUpdate = errors.New("并发更新冲突，请重试")
)

// ==================== Activity 活动模型 ====================

type Activity struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"`

	// 基本信息
	Name        string `gorm:"type:varchar(100);not null;comment:活动名称" json:"name"`
	Description string `gorm:"type:text;comment:活动详情" json:"description"`
	Venue       string `gorm:"type:varchar(200);default:'';comment:活动地点" json:"venue"`

	// 主办组织（目标发送方 toOrganizers 的解析依据）
	OrganizationID uint64 `gorm:"index;not null;comment:主办组织ID" json:"organization_id"`

	// 时间信息（unix 秒）
	StartTime            int64 `gorm:"index:idx_status_start,priority:2;not null;comment:活动开始时间" json:"start_time"`
	EndTime              int64 `gorm:"not null;comment:活动结束时间" json:"end_time"`
	RegistrationDeadline int64 `gorm:"index;not null;comment:报名截止时间" json:"registration_deadline"`

	// 名额
	CapacityLimit       uint32 `gorm:"default:0;comment:名额上限" json:"capacity_limit"`
	CurrentParticipants uint32 `gorm:"default:0;comment:当前报名人数" json:"current_participants"`

	// 审批与状态
	IsApproved bool `gorm:"default:false;comment:是否已审批通过" json:"is_approved"`
	Status     int8 `gorm:"default:1;index:idx_status_start,priority:1;index:idx_status_end;index:idx_status_deadline;comment:状态" json:"status"`

	// 乐观锁
	Version uint32 `gorm:"default:0;comment:乐观锁版本号" json:"version"`

	CreatedAt int64          `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt int64          `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Activity) TableName() string {
	return "activities"
}

// StatusText 获取状态文本
func (a *Activity) StatusText() string {
	if text, ok := StatusText[a.Status]; ok {
		return text
	}
	return "未知"
}

// ==================== ActivityModel 数据访问层 ====================

type ActivityModel struct {
	db *gorm.DB
}

func NewActivityModel(db *gorm.DB) *ActivityModel {
	return &ActivityModel{db: db}
}

// FindByID 根据ID查询
func (m *ActivityModel) FindByID(ctx context.Context, id uint64) (*Activity, error) {
	var activity Activity
	err := m.db.WithContext(ctx).Where("id = ?", id).First(&activity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActivityNotFound
		}
		return nil, err
	}
	return &activity, nil
}

// ==================== 扫描前置条件查询 ====================
// 每条查询对应状态图中一条边的触发前置条件，扫描任务按批次消费

// FindByStatusAndEndBefore 指定状态且结束时间已到的活动
// 用于 InProgress → Completed
func (m *ActivityModel) FindByStatusAndEndBefore(ctx context.Context, status int8, before int64, limit int) ([]Activity, error) {
	var activities []Activity
	err := m.db.WithContext(ctx).
		Where("status = ? AND end_time <= ?", status, before).
		Limit(limit).
		Find(&activities).Error
	return activities, err
}

// FindApprovedByStatusAndStartBefore 指定状态、已审批且开始时间已到的活动
// 用于 Published → InProgress
func (m *ActivityModel) FindApprovedByStatusAndStartBefore(ctx context.Context, status int8, before int64, limit int) ([]Activity, error) {
	var activities []Activity
	err := m.db.WithContext(ctx).
		Where("status = ? AND is_approved = ? AND start_time <= ?", status, true, before).
		Limit(limit).
		Find(&activities).Error
	return activities, err
}

// FindByStatusAndDeadlineBefore 指定状态且报名已截止的活动
// 用于 Pending → {Published, Cancelled}
func (m *ActivityModel) FindByStatusAndDeadlineBefore(ctx context.Context, status int8, before int64, limit int) ([]Activity, error) {
	var activities []Activity
	err := m.db.WithContext(ctx).
		Where("status = ? AND registration_deadline <= ?", status, before).
		Limit(limit).
		Find(&activities).Error
	return activities, err
}

// FindByStatusAndDeadlineBetween 指定状态且报名截止时间落在 [from, to) 的活动
// 用于报名截止提醒
func (m *ActivityModel) FindByStatusAndDeadlineBetween(ctx context.Context, status int8, from, to int64) ([]Activity, error) {
	var activities []Activity
	err := m.db.WithContext(ctx).
		Where("status = ? AND registration_deadline >= ? AND registration_deadline < ?", status, from, to).
		Find(&activities).Error
	return activities, err
}

// FindByStatusesAndStartBetween 开始时间落在 [from, to) 且状态属于给定集合的活动
// 用于 T-3 / T-1 / T0 开始提醒
func (m *ActivityModel) FindByStatusesAndStartBetween(ctx context.Context, statuses []int8, from, to int64) ([]Activity, error) {
	var activities []Activity
	err := m.db.WithContext(ctx).
		Where("status IN ? AND start_time >= ? AND start_time < ?", statuses, from, to).
		Find(&activities).Error
	return activities, err
}

// ==================== 状态流转 ====================

// TransitionStatus 单个活动状态流转（乐观锁 CAS）
//
// 事务内完成：
//  1. 状态更新（version 匹配才生效）
//  2. 日程镜像同步
//  3. 状态变更日志
//
// 返回 applied=false 表示该活动已被其他实例流转（正常现象，跳过即可）
func (m *ActivityModel) TransitionStatus(ctx context.Context, act *Activity, toStatus int8, reason string) (applied bool, err error) {
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Activity{}).
			Where("id = ? AND version = ? AND status = ?", act.ID, act.Version, act.Status).
			Updates(map[string]interface{}{
				"status":  toStatus,
				"version": gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// 前置条件已失效（其他实例赢得了竞争），无事可做
			return nil
		}
		applied = true

		// 日程镜像：只升不降，且不超过活动当前状态对应的阶段
		if err := syncScheduleStatus(tx, act.ID, ScheduleStatusFor(toStatus)); err != nil {
			return err
		}

		log := &ActivityStatusLog{
			ActivityID:   act.ID,
			FromStatus:   act.Status,
			ToStatus:     toStatus,
			OperatorID:   0,
			OperatorType: OperatorTypeSystem,
			Reason:       reason,
		}
		return tx.Create(log).Error
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}
