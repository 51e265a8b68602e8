package gateway

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/SmartCampusHub/smarte-vent.server-sub001/common/errorx"

	"github.com/gorilla/websocket"
	"github.com/zeromicro/go-zero/core/logx"
)

const (
	// 写入超时时间
	writeWait = 10 * time.Second
	// 心跳超时时间
	pongWait = 60 * time.Second
	// Ping 间隔 (必须小于 pongWait)
	pingPeriod = (pongWait * 9) / 10
	// 最大消息大小
	maxMessageSize = 64 * 1024 // 64KB
)

// Client WebSocket 客户端，对应一条活动网关连接
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	userID uint64
	// 已加入的活动房间与已订阅的活动更新
	// 房间成员身份是纯传输层状态，随连接生灭，不参与扇出收件人计算
	rooms         map[uint64]bool
	subscriptions map[uint64]bool

	mu       sync.RWMutex
	isAuthed bool
	closed   bool
}

// NewClient 创建新客户端
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:           hub,
		conn:          conn,
		send:          make(chan []byte, 256),
		rooms:         make(map[uint64]bool),
		subscriptions: make(map[uint64]bool),
	}
}

// ReadPump 读取消息
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logx.Errorf("WebSocket 错误: %v", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// WritePump 写入消息
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// 批量写入队列中的消息
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage 发送消息给客户端
// 缓冲区满视为该条投递被跳过，不阻塞发送方；
// 连接已关闭时同样只跳过本条投递，不 panic 发送方
func (c *Client) SendMessage(msg *WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	// 读锁与 Close 的写锁互斥，保证 send 不会在投递中途被关闭
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrUserNotOnline
	}

	select {
	case c.send <- data:
		return nil
	default:
		logx.Errorf("用户 %d 的发送缓冲区已满", c.userID)
		return ErrSendBufferFull
	}
}

// Close 关闭发送通道，幂等
// 关闭后的 SendMessage 返回 ErrUserNotOnline 而不是向已关闭通道发送
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// handleMessage 处理接收到的消息
func (c *Client) handleMessage(message []byte) {
	var msg WSMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.SendError(errorx.CodeBadEvent, "消息格式错误")
		return
	}

	// 未认证只能发送认证消息和心跳
	if !c.IsAuthed() && msg.Type != TypeAuth && msg.Type != TypePing {
		c.SendError(errorx.CodeAuthRequired, errorx.GetMessage(errorx.CodeAuthRequired))
		return
	}

	c.hub.handleClientMessage(c, &msg)
}

// SendError 发送错误消息
func (c *Client) SendError(code int, message string) {
	errData := ErrorData{
		Code:    code,
		Message: message,
	}
	data, _ := json.Marshal(errData)

	msg := &WSMessage{
		Type:      TypeError,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}
	c.SendMessage(msg)
}

// SetUserID 设置用户ID
func (c *Client) SetUserID(userID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
}

// GetUserID 获取用户ID
func (c *Client) GetUserID() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// SetAuthed 设置认证状态
func (c *Client) SetAuthed(authed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isAuthed = authed
}

// IsAuthed 是否已认证
func (c *Client) IsAuthed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isAuthed
}

// JoinRoom 记录加入房间
func (c *Client) JoinRoom(activityID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[activityID] = true
}

// LeaveRoom 记录离开房间
func (c *Client) LeaveRoom(activityID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, activityID)
}

// InRoom 是否在房间中
func (c *Client) InRoom(activityID uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rooms[activityID]
}

// Subscribe 记录订阅活动更新
func (c *Client) Subscribe(activityID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[activityID] = true
}

// Unsubscribe 取消订阅
func (c *Client) Unsubscribe(activityID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscriptions, activityID)
}

// Subscribed 是否订阅了活动更新
func (c *Client) Subscribed(activityID uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscriptions[activityID]
}
