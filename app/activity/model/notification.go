package model

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// ==================== Notification 通知模型 ====================
// 追加写入，由扇出分发器产生；已读标记供查询侧使用

type Notification struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	NotificationID string `gorm:"uniqueIndex:uk_notification_id;type:varchar(64);not null;comment:通知唯一ID" json:"notification_id"`
	UserID         uint64 `gorm:"index:idx_user_id_created;not null;comment:接收方用户ID" json:"user_id"`

	Category string `gorm:"type:varchar(32);not null;comment:通知类别" json:"category"`
	Title    string `gorm:"type:varchar(255);not null" json:"title"`
	Content  string `gorm:"type:text;not null" json:"content"`

	IsRead    int8       `gorm:"index:idx_is_read;type:tinyint;not null;default:0;comment:0未读 1已读" json:"is_read"`
	ReadAt    *time.Time `gorm:"type:datetime" json:"read_at,omitempty"`
	CreatedAt time.Time  `gorm:"index:idx_user_id_created;type:datetime;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// ==================== NotificationModel 数据访问层 ====================

type NotificationModel struct {
	db *gorm.DB
}

func NewNotificationModel(db *gorm.DB) *NotificationModel {
	return &NotificationModel{db: db}
}

// Insert 追加一条通知记录
func (m *NotificationModel) Insert(ctx context.Context, data *Notification) error {
	return m.db.WithContext(ctx).Create(data).Error
}

// FindByUserID 根据用户ID查询通知列表（分页，isRead<0 表示不筛选）
func (m *NotificationModel) FindByUserID(ctx context.Context, userID uint64, isRead int32, page, pageSize int32) ([]*Notification, int64, error) {
	var notifications []*Notification
	var total int64

	query := m.db.WithContext(ctx).Where("user_id = ?", userID)
	if isRead >= 0 {
		query = query.Where("is_read = ?", isRead)
	}

	if err := query.Model(&Notification{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").
		Offset(int(offset)).
		Limit(int(pageSize)).
		Find(&notifications).Error; err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

// MarkAsRead 标记指定通知为已读
func (m *NotificationModel) MarkAsRead(ctx context.Context, userID uint64, notificationIDs []string) (int64, error) {
	now := time.Now()
	result := m.db.WithContext(ctx).
		Model(&Notification{}).
		Where("user_id = ? AND notification_id IN ?", userID, notificationIDs).
		Where("is_read = 0").
		Updates(map[string]interface{}{
			"is_read": 1,
			"read_at": &now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
