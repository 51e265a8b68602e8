package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/SmartCampusHub/smarte-vent.server-sub001/common/errorx"
	"github.com/SmartCampusHub/smarte-vent.server-sub001/common/messaging"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"
)

var (
	ErrSendBufferFull = errors.New("发送缓冲区已满")
	ErrUserNotOnline  = errors.New("用户不在线")
)

// MessageHandler 入站事件处理器接口
type MessageHandler interface {
	HandleAuth(client *Client, msg *WSMessage) error
	HandleJoinRoom(client *Client, msg *WSMessage) error
	HandleLeaveRoom(client *Client, msg *WSMessage) error
	HandleListParticipants(client *Client, msg *WSMessage) error
	HandleBroadcast(client *Client, msg *WSMessage) error
	HandleEmergencyAlert(client *Client, msg *WSMessage) error
	HandleSubscribe(client *Client, msg *WSMessage) error
	HandleUnsubscribe(client *Client, msg *WSMessage) error
}

// Hub 连接管理中心
// 维护 用户ID -> 活跃连接 与 活动ID -> 房间成员 两张表；
// 两张表都随连接生灭，任何扇出收件人计算都不依赖它们
type Hub struct {
	// 已注册的客户端（每个用户只保留最新一条连接）
	clients map[uint64]*Client

	// 活动房间 (activityID -> clients)
	rooms map[uint64]map[*Client]bool

	// 活动更新订阅 (activityID -> clients)
	watchers map[uint64]map[*Client]bool

	// 注册/注销请求
	register   chan *Client
	unregister chan *Client

	// 入站事件处理器
	messageHandler MessageHandler

	// 消息中间件客户端（可为 nil，nil 时不桥接 MQ 事件）
	messagingClient *messaging.Client

	// 在线状态追踪（可为 nil）
	presence Tracker

	mu sync.RWMutex
}

// NewHub 创建新的 Hub
func NewHub(messagingClient *messaging.Client, presence Tracker) *Hub {
	return &Hub{
		clients:         make(map[uint64]*Client),
		rooms:           make(map[uint64]map[*Client]bool),
		watchers:        make(map[uint64]map[*Client]bool),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		messagingClient: messagingClient,
		presence:        presence,
	}
}

// SetMessageHandler 设置入站事件处理器（Hub 与 Gateway 相互持有，延迟注入）
func (h *Hub) SetMessageHandler(handler MessageHandler) {
	h.messageHandler = handler
}

// Run 运行 Hub
func (h *Hub) Run(ctx context.Context) {
	if h.messagingClient != nil {
		go h.subscribeMessages(ctx)
	}

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ctx.Done():
			logx.Info("Hub 正在关闭")
			return
		}
	}
}

// Register 获取注册通道
func (h *Hub) Register() chan<- *Client {
	return h.register
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userID := client.GetUserID()
	if userID == 0 {
		return
	}

	// 同一用户只保留最新连接，旧连接关闭
	if oldClient, exists := h.clients[userID]; exists {
		oldClient.Close()
		h.removeFromAllRoomsLocked(oldClient)
	}
	h.clients[userID] = client

	if h.presence != nil {
		h.presence.Online(context.Background(), userID)
	}

	logx.Infof("用户 %d 已连接", userID)
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userID := client.GetUserID()
	if userID == 0 {
		return
	}

	// 只注销仍是当前连接的客户端（旧连接被顶替时已清理）
	if current, exists := h.clients[userID]; exists && current == client {
		delete(h.clients, userID)
		client.Close()
		h.removeFromAllRoomsLocked(client)

		if h.presence != nil {
			h.presence.Offline(context.Background(), userID)
		}

		logx.Infof("用户 %d 已断开连接", userID)
	}
}

// removeFromAllRoomsLocked 将客户端从全部房间与订阅中移除（须持有写锁）
func (h *Hub) removeFromAllRoomsLocked(client *Client) {
	for activityID := range client.rooms {
		if clients, ok := h.rooms[activityID]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.rooms, activityID)
			}
		}
	}
	for activityID := range client.subscriptions {
		if clients, ok := h.watchers[activityID]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.watchers, activityID)
			}
		}
	}
}

// handleClientMessage 处理客户端消息
func (h *Hub) handleClientMessage(client *Client, msg *WSMessage) {
	var err error

	switch msg.Type {
	case TypePing:
		// 心跳响应
		client.SendMessage(&WSMessage{
			Type:      TypePong,
			Timestamp: time.Now().Unix(),
		})
		return

	case TypeAuth:
		err = h.messageHandler.HandleAuth(client, msg)

	case TypeJoinRoom:
		err = h.messageHandler.HandleJoinRoom(client, msg)

	case TypeLeaveRoom:
		err = h.messageHandler.HandleLeaveRoom(client, msg)

	case TypeListParticipants:
		err = h.messageHandler.HandleListParticipants(client, msg)

	case TypeBroadcast:
		err = h.messageHandler.HandleBroadcast(client, msg)

	case TypeEmergencyAlert:
		err = h.messageHandler.HandleEmergencyAlert(client, msg)

	case TypeSubscribe:
		err = h.messageHandler.HandleSubscribe(client, msg)

	case TypeUnsubscribe:
		err = h.messageHandler.HandleUnsubscribe(client, msg)

	default:
		client.SendError(errorx.CodeBadEvent, "未知的消息类型")
		return
	}

	if err != nil {
		logx.Errorf("处理消息错误: type=%s, user=%d, err=%v", msg.Type, client.GetUserID(), err)
		bizErr := errorx.FromError(err)
		client.SendError(bizErr.Code, bizErr.Message)
	}
}

// ==================== 房间操作 ====================

// AddClientToRoom 将客户端加入活动房间
func (h *Hub) AddClientToRoom(client *Client, activityID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[activityID]; !ok {
		h.rooms[activityID] = make(map[*Client]bool)
	}
	h.rooms[activityID][client] = true
	client.JoinRoom(activityID)
}

// RemoveClientFromRoom 将客户端移出活动房间
func (h *Hub) RemoveClientFromRoom(client *Client, activityID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.rooms[activityID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, activityID)
		}
	}
	client.LeaveRoom(activityID)
}

// AddWatcher 订阅活动更新
func (h *Hub) AddWatcher(client *Client, activityID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.watchers[activityID]; !ok {
		h.watchers[activityID] = make(map[*Client]bool)
	}
	h.watchers[activityID][client] = true
	client.Subscribe(activityID)
}

// RemoveWatcher 取消订阅
func (h *Hub) RemoveWatcher(client *Client, activityID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.watchers[activityID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.watchers, activityID)
		}
	}
	client.Unsubscribe(activityID)
}

// ==================== 消息下发 ====================

// BroadcastToRoom 向活动房间广播消息
func (h *Hub) BroadcastToRoom(activityID uint64, msg *WSMessage) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[activityID]))
	for client := range h.rooms[activityID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if client.InRoom(activityID) {
			client.SendMessage(msg)
		}
	}
}

// BroadcastActivityEvent 向房间成员与更新订阅者下发活动事件（去重）
func (h *Hub) BroadcastActivityEvent(activityID uint64, msg *WSMessage) {
	h.mu.RLock()
	targets := make(map[*Client]bool, len(h.rooms[activityID])+len(h.watchers[activityID]))
	for client := range h.rooms[activityID] {
		targets[client] = true
	}
	for client := range h.watchers[activityID] {
		targets[client] = true
	}
	h.mu.RUnlock()

	for client := range targets {
		client.SendMessage(msg)
	}
}

// SendToUser 发送消息给指定用户
func (h *Hub) SendToUser(userID uint64, msg *WSMessage) error {
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()

	if !ok {
		return ErrUserNotOnline
	}

	return client.SendMessage(msg)
}

// SendNotification 在线推送通知
// 返回用户是否有活跃连接且投递成功；不在线是正常结果，不是错误
func (h *Hub) SendNotification(userID uint64, event string, payload interface{}) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		logx.Errorf("通知负载序列化失败: user=%d, err=%v", userID, err)
		return false
	}

	msg := &WSMessage{
		Type:      MessageType(event),
		MessageID: uuid.New().String(),
		Timestamp: time.Now().Unix(),
		Data:      data,
	}
	return h.SendToUser(userID, msg) == nil
}

// IsConnected 用户在本实例是否有活跃连接
func (h *Hub) IsConnected(userID uint64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// IsOnline 用户是否在线：本实例连接优先，其次查跨实例在线状态
func (h *Hub) IsOnline(ctx context.Context, userID uint64) bool {
	if h.IsConnected(userID) {
		return true
	}
	if h.presence == nil {
		return false
	}
	online, err := h.presence.IsOnline(ctx, userID)
	if err != nil {
		logx.Errorf("查询用户在线状态失败: user=%d, err=%v", userID, err)
		return false
	}
	return online
}

// GetOnlineUserCount 获取在线用户数
func (h *Hub) GetOnlineUserCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetRoomSize 获取房间人数
func (h *Hub) GetRoomSize(activityID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[activityID])
}

// ==================== MQ 事件桥接 ====================

// subscribeMessages 订阅消息中间件的生命周期事件，桥接到房间下发
func (h *Hub) subscribeMessages(ctx context.Context) {
	h.messagingClient.Subscribe(messaging.TopicActivityStatusChanged, "gateway-status-handler", func(msg *message.Message) error {
		var event messaging.ActivityStatusChangedEvent
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			return messaging.NewNonRetryableError(err)
		}

		h.BroadcastActivityEvent(event.ActivityID, &WSMessage{
			Type:      TypeActivityUpdate,
			MessageID: uuid.New().String(),
			Timestamp: event.ChangedAt.Unix(),
			Data:      json.RawMessage(msg.Payload),
		})
		return nil
	})

	h.messagingClient.Subscribe(messaging.TopicActivityReminderDue, "gateway-reminder-handler", func(msg *message.Message) error {
		var event messaging.ActivityReminderDueEvent
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			return messaging.NewNonRetryableError(err)
		}

		h.BroadcastActivityEvent(event.ActivityID, &WSMessage{
			Type:      TypeActivityReminder,
			MessageID: uuid.New().String(),
			Timestamp: event.RemindedAt.Unix(),
			Data:      json.RawMessage(msg.Payload),
		})
		return nil
	})

	if err := h.messagingClient.Run(ctx); err != nil {
		logx.Errorf("消息中间件客户端停止: %v", err)
	}
}
