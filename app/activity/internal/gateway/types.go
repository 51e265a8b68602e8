package gateway

import "encoding/json"

// MessageType 消息类型
type MessageType string

const (
	// 客户端 -> 服务端
	TypePing             MessageType = "ping"               // 心跳
	TypeAuth             MessageType = "auth"               // 认证
	TypeJoinRoom         MessageType = "join_room"          // 加入活动房间
	TypeLeaveRoom        MessageType = "leave_room"         // 离开活动房间
	TypeListParticipants MessageType = "list_participants"  // 查询房间参与者
	TypeBroadcast        MessageType = "broadcast_message"  // 房间广播
	TypeEmergencyAlert   MessageType = "emergency_alert"    // 紧急告警（仅组织方）
	TypeSubscribe        MessageType = "subscribe_updates"  // 订阅活动状态更新
	TypeUnsubscribe      MessageType = "unsubscribe_updates" // 取消订阅

	// 服务端 -> 客户端
	TypePong            MessageType = "pong"             // 心跳响应
	TypeAuthSuccess     MessageType = "auth_success"     // 认证成功
	TypeAuthFailed      MessageType = "auth_failed"      // 认证失败
	TypeRoomJoined      MessageType = "room_joined"      // 已加入房间
	TypeRoomLeft        MessageType = "room_left"        // 已离开房间
	TypeParticipantList MessageType = "participant_list" // 参与者列表
	TypeNewBroadcast    MessageType = "new_broadcast"    // 新广播消息
	TypeNewAlert        MessageType = "new_alert"        // 紧急告警下发
	TypeActivityUpdate  MessageType = "activity_update"  // 活动状态变更
	TypeActivityReminder MessageType = "activity_reminder" // 活动提醒
	TypeNotification    MessageType = "notification"     // 个人通知
	TypeError           MessageType = "error"            // 错误消息
)

// WSMessage WebSocket 消息结构
type WSMessage struct {
	Type      MessageType     `json:"type"`           // 消息类型
	MessageID string          `json:"message_id"`     // 消息ID (用于去重和确认)
	Timestamp int64           `json:"timestamp"`      // 时间戳
	Data      json.RawMessage `json:"data,omitempty"` // 消息数据
}

// AuthData 认证数据
type AuthData struct {
	Token string `json:"token"` // JWT Token
}

// RoomData 房间操作数据（加入/离开/订阅/取消订阅/查询参与者）
type RoomData struct {
	ActivityID uint64 `json:"activity_id"`
}

// BroadcastData 房间广播数据
type BroadcastData struct {
	ActivityID uint64 `json:"activity_id"`
	Content    string `json:"content"`
}

// EmergencyAlertData 紧急告警数据
type EmergencyAlertData struct {
	ActivityID uint64 `json:"activity_id"`
	Content    string `json:"content"`
}

// BroadcastPayload 广播下发数据
type BroadcastPayload struct {
	ActivityID uint64 `json:"activity_id"`
	SenderID   uint64 `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
	CreatedAt  int64  `json:"created_at"`
}

// AlertPayload 紧急告警下发数据
type AlertPayload struct {
	ActivityID uint64 `json:"activity_id"`
	Content    string `json:"content"`
	CreatedAt  int64  `json:"created_at"`
}

// ParticipantInfo 参与者信息
type ParticipantInfo struct {
	UserID   uint64 `json:"user_id"`
	UserName string `json:"user_name"`
	Role     int8   `json:"role"`
	Online   bool   `json:"online"`
}

// ParticipantListPayload 参与者列表下发数据
type ParticipantListPayload struct {
	ActivityID   uint64            `json:"activity_id"`
	Total        int               `json:"total"`
	Participants []ParticipantInfo `json:"participants"`
}

// ErrorData 错误数据
type ErrorData struct {
	Code    int    `json:"code"`    // 错误码
	Message string `json:"message"` // 错误信息
}
