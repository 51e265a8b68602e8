package errorx

// 错误码规范：
// 0       - 成功
// 1xxx    - 通用错误
// 3xxx    - 活动服务错误
// 31xx    - 生命周期流转
// 32xx    - 通知投递
// 33xx    - 实时网关

const (
	CodeSuccess            = 0    // 成功
	CodeInternalError      = 1000 // 内部服务器错误
	CodeInvalidParams      = 1001 // 参数校验失败
	CodeUnauthorized       = 1002 // 未授权访问
	CodeForbidden          = 1003 // 禁止访问
	CodeNotFound           = 1004 // 资源不存在
	CodeDBError            = 1008 // 数据库错误
	CodeCacheError         = 1009 // 缓存错误

	// 生命周期流转 31xx
	CodeActivityNotFound   = 3101 // 活动不存在
	CodeTransitionPersist  = 3102 // 状态流转持久化失败
	CodeTransitionConflict = 3103 // 状态流转并发冲突

	// 通知投递 32xx
	CodeDeliveryFailed       = 3201 // 通知渠道投递失败
	CodeRecipientNotFound    = 3202 // 接收方不存在
	CodeParticipantNotFound  = 3203 // 参与记录不存在

	// 实时网关 33xx
	CodeRoomUnauthorized      = 3301 // 无权加入活动房间
	CodeBroadcastUnauthorized = 3302 // 无权发送活动广播
	CodeAlertUnauthorized     = 3303 // 无权发送紧急告警
	CodeBadEvent              = 3304 // 未知或格式错误的事件
	CodeAuthRequired          = 3305 // 连接未认证
)

// codeMessages 错误码对应的默认消息
var codeMessages = map[int]string{
	CodeSuccess:       "success",
	CodeInternalError: "内部服务器错误",
	CodeInvalidParams: "参数校验失败",
	CodeUnauthorized:  "未授权访问",
	CodeForbidden:     "禁止访问",
	CodeNotFound:      "资源不存在",
	CodeDBError:       "数据库错误",
	CodeCacheError:    "缓存错误",

	CodeActivityNotFound:   "活动不存在",
	CodeTransitionPersist:  "状态流转保存失败",
	CodeTransitionConflict: "状态流转并发冲突，下个周期重试",

	CodeDeliveryFailed:      "通知投递失败",
	CodeRecipientNotFound:   "接收方不存在",
	CodeParticipantNotFound: "参与记录不存在",

	CodeRoomUnauthorized:      "不是该活动的已审核参与者，无法加入房间",
	CodeBroadcastUnauthorized: "无权向该活动发送广播",
	CodeAlertUnauthorized:     "仅主办组织可发送紧急告警",
	CodeBadEvent:              "未知的消息类型",
	CodeAuthRequired:          "未授权，请先认证",
}

// GetMessage 根据错误码获取默认消息
func GetMessage(code int) string {
	if msg, ok := codeMessages[code]; ok {
		return msg
	}
	return "未知错误"
}

// IsValidCode 判断是否为有效的业务错误码
func IsValidCode(code int) bool {
	_, exists := codeMessages[code]
	return exists
}
