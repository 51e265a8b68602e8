package model

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrParticipationNotFound = errors.New("参与记录不存在")

// ==================== Participation 参与记录模型 ====================
// 账号与活动的关联关系；只有 Verified 的记录才是通知接收方

type Participation struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"`

	ActivityID uint64 `gorm:"uniqueIndex:uk_activity_user,priority:1;index:idx_activity_status;not null;comment:活动ID" json:"activity_id"`
	UserID     uint64 `gorm:"uniqueIndex:uk_activity_user,priority:2;index:idx_user_id;not null;comment:用户ID" json:"user_id"`

	// 冗余存储，供通知/邮件直接使用，避免联表
	UserName string `gorm:"type:varchar(50);default:'';comment:用户名称" json:"user_name"`
	Email    string `gorm:"type:varchar(100);default:'';comment:邮箱" json:"email"`

	Role   int8 `gorm:"default:1;comment:角色: 1参与者 2协作成员" json:"role"`
	Status int8 `gorm:"default:0;index:idx_activity_status;comment:审核状态: 0待审核 1通过 2拒绝" json:"status"`

	CreatedAt int64 `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt int64 `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Participation) TableName() string {
	return "participations"
}

// ==================== ParticipationModel 数据访问层 ====================

type ParticipationModel struct {
	db *gorm.DB
}

func NewParticipationModel(db *gorm.DB) *ParticipationModel {
	return &ParticipationModel{db: db}
}

// Create 创建参与记录
func (m *ParticipationModel) Create(ctx context.Context, p *Participation) error {
	return m.db.WithContext(ctx).Create(p).Error
}

// FindVerifiedByActivity 查询活动的全部已审核参与者
// 扇出发送方每次都重新查询，不依赖任何房间名单缓存
func (m *ParticipationModel) FindVerifiedByActivity(ctx context.Context, activityID uint64) ([]Participation, error) {
	var participations []Participation
	err := m.db.WithContext(ctx).
		Where("activity_id = ? AND status = ?", activityID, ParticipationVerified).
		Find(&participations).Error
	return participations, err
}

// ExistsVerified 用户是否为活动的已审核参与者
// 房间加入与广播鉴权使用
func (m *ParticipationModel) ExistsVerified(ctx context.Context, activityID, userID uint64) (bool, error) {
	var count int64
	err := m.db.WithContext(ctx).
		Model(&Participation{}).
		Where("activity_id = ? AND user_id = ? AND status = ?", activityID, userID, ParticipationVerified).
		Count(&count).Error
	return count > 0, err
}

// FindByActivityUser 根据活动ID和用户ID查询
func (m *ParticipationModel) FindByActivityUser(ctx context.Context, activityID, userID uint64) (*Participation, error) {
	var p Participation
	err := m.db.WithContext(ctx).
		Where("activity_id = ? AND user_id = ?", activityID, userID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipationNotFound
		}
		return nil, err
	}
	return &p, nil
}
