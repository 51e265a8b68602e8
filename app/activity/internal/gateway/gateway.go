package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/SmartCampusHub/smarte-vent.server-sub001/app/activity/model"
	"github.com/SmartCampusHub/smarte-vent.server-sub001/common/errorx"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/threading"
)

// handlerTimeout 单个入站事件的数据库操作超时
const handlerTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 允许跨域
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ==================== 依赖接口 ====================

// ActivityStore 活动查询
type ActivityStore interface {
	FindByID(ctx context.Context, id uint64) (*model.Activity, error)
}

// ParticipantStore 参与者查询
// 定向下发每次都重新查询名单，不依赖房间成员表
type ParticipantStore interface {
	FindVerifiedByActivity(ctx context.Context, activityID uint64) ([]model.Participation, error)
	ExistsVerified(ctx context.Context, activityID, userID uint64) (bool, error)
}

// TokenParser JWT 解析
type TokenParser interface {
	ParseToken(tokenString string) (uint64, error)
}

// ==================== Gateway 实时网关 ====================
// 入站事件鉴权 + 定向下发。鉴权失败只回错误事件，不产生任何扇出副作用

type Gateway struct {
	hub          *Hub
	activities   ActivityStore
	participants ParticipantStore
	auth         TokenParser
}

// NewGateway 创建实时网关并注册为 Hub 的事件处理器
func NewGateway(hub *Hub, activities ActivityStore, participants ParticipantStore, auth TokenParser) *Gateway {
	g := &Gateway{
		hub:          hub,
		activities:   activities,
		participants: participants,
		auth:         auth,
	}
	hub.SetMessageHandler(g)
	return g
}

// ServeWS WebSocket 连接处理器
func (g *Gateway) ServeWS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Errorf("升级连接失败: %v", err)
			return
		}

		client := NewClient(g.hub, conn)

		// 认证前先启动读写协程，注册发生在 auth 成功后
		go client.WritePump()
		go client.ReadPump()

		logx.Info("新的 WebSocket 连接已建立")
	}
}

// ==================== 入站事件处理 ====================

// HandleAuth 处理认证
func (g *Gateway) HandleAuth(client *Client, msg *WSMessage) error {
	var data AuthData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return errorx.New(errorx.CodeBadEvent)
	}

	userID, err := g.auth.ParseToken(data.Token)
	if err != nil {
		logx.Errorf("认证失败: %v", err)
		client.SendMessage(&WSMessage{
			Type:      TypeAuthFailed,
			Timestamp: time.Now().Unix(),
		})
		return nil
	}

	client.SetUserID(userID)
	client.SetAuthed(true)
	g.hub.Register() <- client

	client.SendMessage(&WSMessage{
		Type:      TypeAuthSuccess,
		Timestamp: time.Now().Unix(),
	})
	return nil
}

// HandleJoinRoom 处理加入活动房间
// 仅活动的已审核参与者或主办组织可加入
func (g *Gateway) HandleJoinRoom(client *Client, msg *WSMessage) error {
	var data RoomData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return errorx.New(errorx.CodeBadEvent)
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if err := g.authorizeRoomMember(ctx, data.ActivityID, client.GetUserID()); err != nil {
		return err
	}

	g.hub.AddClientToRoom(client, data.ActivityID)
	g.reply(client, TypeRoomJoined, RoomData{ActivityID: data.ActivityID})
	return nil
}

// HandleLeaveRoom 处理离开活动房间
func (g *Gateway) HandleLeaveRoom(client *Client, msg *WSMessage) error {
	var data RoomData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return errorx.New(errorx.CodeBadEvent)
	}

	g.hub.RemoveClientFromRoom(client, data.ActivityID)
	g.reply(client, TypeRoomLeft, RoomData{ActivityID: data.ActivityID})
	return nil
}

// HandleListParticipants 查询活动参与者列表（带在线标记）
func (g *Gateway) HandleListParticipants(client *Client, msg *WSMessage) error {
	var data RoomData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return errorx.New(errorx.CodeBadEvent)
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if err := g.authorizeRoomMember(ctx, data.ActivityID, client.GetUserID()); err != nil {
		return err
	}

	participants, err := g.participants.FindVerifiedByActivity(ctx, data.ActivityID)
	if err != nil {
		return errorx.Wrap(errorx.CodeParticipantNotFound, err)
	}

	infos := make([]ParticipantInfo, 0, len(participants))
	for _, p := range participants {
		infos = append(infos, ParticipantInfo{
			UserID:   p.UserID,
			UserName: p.UserName,
			Role:     p.Role,
			Online:   g.hub.IsOnline(ctx, p.UserID),
		})
	}

	g.reply(client, TypeParticipantList, ParticipantListPayload{
		ActivityID:   data.ActivityID,
		Total:        len(infos),
		Participants: infos,
	})
	return nil
}

// HandleBroadcast 处理房间广播
// 发送方必须是已审核参与者或主办组织；鉴权失败时任何参与者都不会收到消息
func (g *Gateway) HandleBroadcast(client *Client, msg *WSMessage) error {
	var data BroadcastData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return errorx.New(errorx.CodeBadEvent)
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	senderID := client.GetUserID()
	authorized, err := g.isParticipantOrOwner(ctx, data.ActivityID, senderID)
	if err != nil {
		return err
	}
	if !authorized {
		return errorx.ErrBroadcastUnauthorized()
	}

	payload := BroadcastPayload{
		ActivityID: data.ActivityID,
		SenderID:   senderID,
		SenderName: g.senderName(ctx, data.ActivityID, senderID),
		Content:    data.Content,
		CreatedAt:  time.Now().Unix(),
	}
	g.ToParticipantsExcept(ctx, data.ActivityID, senderID, string(TypeNewBroadcast), payload)
	return nil
}

// HandleEmergencyAlert 处理紧急告警（仅主办组织）
func (g *Gateway) HandleEmergencyAlert(client *Client, msg *WSMessage) error {
	var data EmergencyAlertData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return errorx.New(errorx.CodeBadEvent)
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	act, err := g.activities.FindByID(ctx, data.ActivityID)
	if err != nil {
		return errorx.Wrap(errorx.CodeActivityNotFound, err)
	}
	if act.OrganizationID != client.GetUserID() {
		return errorx.ErrAlertUnauthorized()
	}

	payload := AlertPayload{
		ActivityID: data.ActivityID,
		Content:    data.Content,
		CreatedAt:  time.Now().Unix(),
	}
	g.ToParticipants(ctx, data.ActivityID, string(TypeNewAlert), payload)
	return nil
}

// HandleSubscribe 处理订阅活动更新（与加入房间同一鉴权规则）
func (g *Gateway) HandleSubscribe(client *Client, msg *WSMessage) error {
	var data RoomData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return errorx.New(errorx.CodeBadEvent)
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if err := g.authorizeRoomMember(ctx, data.ActivityID, client.GetUserID()); err != nil {
		return err
	}

	g.hub.AddWatcher(client, data.ActivityID)
	return nil
}

// HandleUnsubscribe 处理取消订阅
func (g *Gateway) HandleUnsubscribe(client *Client, msg *WSMessage) error {
	var data RoomData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return errorx.New(errorx.CodeBadEvent)
	}

	g.hub.RemoveWatcher(client, data.ActivityID)
	return nil
}

// ==================== 定向下发 ====================
// 收件人每次都从持久化状态重新计算，与房间成员表无关

// ToParticipants 向活动全部已审核参与者下发事件
func (g *Gateway) ToParticipants(ctx context.Context, activityID uint64, event string, payload interface{}) {
	g.ToParticipantsExcept(ctx, activityID, 0, event, payload)
}

// ToParticipantsExcept 向除指定用户外的全部已审核参与者下发事件
// 名单同步查询，逐个投递放入后台协程；离线用户静默跳过
func (g *Gateway) ToParticipantsExcept(ctx context.Context, activityID, exceptUserID uint64, event string, payload interface{}) {
	participants, err := g.participants.FindVerifiedByActivity(ctx, activityID)
	if err != nil {
		logx.Errorf("查询参与者失败: activity=%d, err=%v", activityID, err)
		return
	}

	threading.GoSafe(func() {
		delivered := 0
		for _, p := range participants {
			if p.UserID == exceptUserID {
				continue
			}
			if g.hub.SendNotification(p.UserID, event, payload) {
				delivered++
			}
		}
		logx.Infof("定向下发完成: activity=%d, event=%s, 参与者=%d, 送达=%d",
			activityID, event, len(participants), delivered)
	})
}

// ToOrganizers 向活动主办组织下发事件
func (g *Gateway) ToOrganizers(ctx context.Context, activityID uint64, event string, payload interface{}) {
	act, err := g.activities.FindByID(ctx, activityID)
	if err != nil {
		logx.Errorf("查询活动失败: activity=%d, err=%v", activityID, err)
		return
	}
	g.hub.SendNotification(act.OrganizationID, event, payload)
}

// ==================== 内部方法 ====================

// authorizeRoomMember 房间成员资格鉴权：已审核参与者或主办组织
func (g *Gateway) authorizeRoomMember(ctx context.Context, activityID, userID uint64) error {
	authorized, err := g.isParticipantOrOwner(ctx, activityID, userID)
	if err != nil {
		return err
	}
	if !authorized {
		return errorx.ErrRoomUnauthorized()
	}
	return nil
}

func (g *Gateway) isParticipantOrOwner(ctx context.Context, activityID, userID uint64) (bool, error) {
	verified, err := g.participants.ExistsVerified(ctx, activityID, userID)
	if err != nil {
		return false, errorx.Wrap(errorx.CodeParticipantNotFound, err)
	}
	if verified {
		return true, nil
	}

	act, err := g.activities.FindByID(ctx, activityID)
	if err != nil {
		if err == model.ErrActivityNotFound {
			return false, errorx.New(errorx.CodeActivityNotFound)
		}
		return false, errorx.Wrap(errorx.CodeActivityNotFound, err)
	}
	return act.OrganizationID == userID, nil
}

// senderName 查询发送方在活动中的名称，主办组织无参与记录时为空
func (g *Gateway) senderName(ctx context.Context, activityID, userID uint64) string {
	participants, err := g.participants.FindVerifiedByActivity(ctx, activityID)
	if err != nil {
		return ""
	}
	for _, p := range participants {
		if p.UserID == userID {
			return p.UserName
		}
	}
	return ""
}

func (g *Gateway) reply(client *Client, msgType MessageType, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	client.SendMessage(&WSMessage{
		Type:      msgType,
		MessageID: uuid.New().String(),
		Timestamp: time.Now().Unix(),
		Data:      data,
	})
}
