package notify

import (
	"context"
	"sync"

	"github.com/SmartCampusHub/smarte-vent.server-sub001/app/activity/model"

	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/threading"
	"golang.org/x/sync/semaphore"
)

// ==================== 依赖接口 ====================

// NotificationStore 通知落库
type NotificationStore interface {
	Insert(ctx context.Context, data *model.Notification) error
}

// ParticipantStore 参与者名单查询
type ParticipantStore interface {
	FindVerifiedByActivity(ctx context.Context, activityID uint64) ([]model.Participation, error)
}

// Pusher 实时推送通道（在线才投递）
// 返回 false 表示用户不在线或推送缓冲已满，均视为未送达
type Pusher interface {
	SendNotification(userID uint64, event string, payload interface{}) bool
}

// EmailSender 邮件通道
type EmailSender interface {
	Send(to, subject, body string) error
}

// ==================== 消息与结果 ====================

// Message 一次扇出的消息内容
type Message struct {
	Event    string // WebSocket 事件名
	Category string // 落库通知类别（model.CategoryXxx）
	Title    string
	Content  string
	Payload  interface{} // 推送负载，为 nil 时推送 Title/Content

	// 邮件内容，EmailBody 为 nil 时跳过邮件通道
	EmailSubject string
	EmailBody    func(p *model.Participation) string
}

// Result 一次扇出的投递结果统计
type Result struct {
	Recipients int
	Persisted  int
	Pushed     int
	Emailed    int
	Errors     int
}

// pushPayload 默认推送负载
type pushPayload struct {
	NotificationID string      `json:"notification_id"`
	Category       string      `json:"category"`
	Title          string      `json:"title"`
	Content        string      `json:"content"`
	Data           interface{} `json:"data,omitempty"`
}

// ==================== Dispatcher 三通道扇出分发器 ====================
// 通道1：通知落库（无论在线与否）
// 通道2：实时推送（在线才投递，离线静默跳过）
// 通道3：邮件（有邮箱才投递）
// 三个通道相互独立，单个通道、单个接收方失败不影响其余投递

type Dispatcher struct {
	notifications NotificationStore
	participants  ParticipantStore
	pusher        Pusher
	mailer        EmailSender

	// 限制同时进行的投递数，防止大活动扇出时 SMTP 连接被打爆
	sem *semaphore.Weighted
}

// NewDispatcher 创建扇出分发器
// pusher、mailer 可为 nil（对应通道整体关闭）
func NewDispatcher(notifications NotificationStore, participants ParticipantStore,
	pusher Pusher, mailer EmailSender, maxConcurrency int64) *Dispatcher {
	if maxConcurrency <= 0 {
		maxConcurrency = 8
	}
	return &Dispatcher{
		notifications: notifications,
		participants:  participants,
		pusher:        pusher,
		mailer:        mailer,
		sem:           semaphore.NewWeighted(maxConcurrency),
	}
}

// Deliver 向指定接收方扇出一条消息（同步，返回时投递完成）
func (d *Dispatcher) Deliver(ctx context.Context, recipients []model.Participation, msg *Message) *Result {
	result := &Result{Recipients: len(recipients)}
	if len(recipients) == 0 {
		return result
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := range recipients {
		p := recipients[i]
		if err := d.sem.Acquire(ctx, 1); err != nil {
			logx.Errorf("[Notify] 扇出中断: activity 接收方剩余=%d, err=%v", len(recipients)-i, err)
			mu.Lock()
			result.Errors += len(recipients) - i
			mu.Unlock()
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer d.sem.Release(1)
			defer func() {
				if r := recover(); r != nil {
					logx.Errorf("[Notify] 投递 panic recovered: user=%d, err=%v", p.UserID, r)
				}
			}()

			one := d.deliverOne(ctx, &p, msg)
			mu.Lock()
			result.Persisted += one.Persisted
			result.Pushed += one.Pushed
			result.Emailed += one.Emailed
			result.Errors += one.Errors
			mu.Unlock()
		}()
	}
	wg.Wait()
	return result
}

// DeliverToActivity 向活动的全部已审核参与者扇出（异步投递）
// 名单同步查询，投递放入后台 goroutine，调用方（扫描任务）不被 SMTP 拖慢
func (d *Dispatcher) DeliverToActivity(ctx context.Context, activityID uint64, msg *Message) error {
	recipients, err := d.participants.FindVerifiedByActivity(ctx, activityID)
	if err != nil {
		logx.Errorf("[Notify] 查询参与者失败: activity=%d, err=%v", activityID, err)
		return err
	}
	if len(recipients) == 0 {
		return nil
	}

	threading.GoSafe(func() {
		result := d.Deliver(context.Background(), recipients, msg)
		logx.Infof("[Notify] 扇出完成: activity=%d, event=%s, 接收方=%d, 落库=%d, 推送=%d, 邮件=%d, 失败=%d",
			activityID, msg.Event, result.Recipients, result.Persisted, result.Pushed, result.Emailed, result.Errors)
	})
	return nil
}

// deliverOne 向单个接收方走完三个通道
func (d *Dispatcher) deliverOne(ctx context.Context, p *model.Participation, msg *Message) Result {
	var one Result
	notificationID := uuid.New().String()

	// 通道1：落库
	if d.notifications != nil {
		notification := &model.Notification{
			NotificationID: notificationID,
			UserID:         p.UserID,
			Category:       msg.Category,
			Title:          msg.Title,
			Content:        msg.Content,
			IsRead:         0,
		}
		if err := d.notifications.Insert(ctx, notification); err != nil {
			logx.Errorf("[Notify] 通知落库失败: user=%d, err=%v", p.UserID, err)
			one.Errors++
		} else {
			one.Persisted++
		}
	}

	// 通道2：实时推送（离线是正常情况，不计失败）
	if d.pusher != nil {
		payload := msg.Payload
		if payload == nil {
			payload = pushPayload{
				NotificationID: notificationID,
				Category:       msg.Category,
				Title:          msg.Title,
				Content:        msg.Content,
			}
		}
		if d.pusher.SendNotification(p.UserID, msg.Event, payload) {
			one.Pushed++
		}
	}

	// 通道3：邮件
	if d.mailer != nil && msg.EmailBody != nil && p.Email != "" {
		if err := d.mailer.Send(p.Email, msg.EmailSubject, msg.EmailBody(p)); err != nil {
			logx.Errorf("[Notify] 邮件发送失败: user=%d, email=%s, err=%v", p.UserID, p.Email, err)
			one.Errors++
		} else {
			one.Emailed++
		}
	}

	return one
}
