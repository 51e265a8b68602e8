// Package lifecycle 活动生命周期规则
//
// 状态图与提醒窗口的唯一事实来源。全部为纯函数：输入当前实体与时刻，
// 输出下一状态或时间窗口，不依赖任何存储与时钟，便于独立单测。
package lifecycle

import (
	"github.com/SmartCampusHub/smarte-vent.server-sub001/app/activity/model"
)

// QuotaRatio 成团比例阈值
// 报名截止时 currentParticipants >= QuotaRatio * capacityLimit 才成团
const QuotaRatio = 0.3

// Transition 一条状态流转边
type Transition struct {
	To    int8   // 目标状态
	Guard Guard  // 触发条件
	Reason string // 写入状态日志的流转原因
}

// Guard 流转触发条件（now 为 unix 秒）
type Guard func(a *model.Activity, now int64) bool

// Transitions 状态流转表：状态 → 有序的 (条件, 目标状态) 列表
// 同一状态的多条出边按序判定，命中即停；终态无出边
var Transitions = map[int8][]Transition{
	model.StatusPending: {
		{
			To:     model.StatusPublished,
			Guard:  func(a *model.Activity, now int64) bool { return deadlinePassed(a, now) && QuotaMet(a) },
			Reason: "报名截止，达到成团人数，自动发布",
		},
		{
			To:     model.StatusCancelled,
			Guard:  func(a *model.Activity, now int64) bool { return deadlinePassed(a, now) },
			Reason: "报名截止，未达到成团人数，自动取消",
		},
	},
	model.StatusPublished: {
		{
			To:     model.StatusInProgress,
			Guard:  func(a *model.Activity, now int64) bool { return a.IsApproved && a.StartTime <= now },
			Reason: "活动开始时间到达，自动开始",
		},
	},
	model.StatusInProgress: {
		{
			To:     model.StatusCompleted,
			Guard:  func(a *model.Activity, now int64) bool { return a.EndTime <= now },
			Reason: "活动结束时间到达，自动结束",
		},
	},
}

// Next 计算活动的下一状态
// ok=false 表示当前时刻没有可触发的流转（包括处于终态的情况）
func Next(a *model.Activity, now int64) (to int8, reason string, ok bool) {
	for _, t := range Transitions[a.Status] {
		if t.Guard(a, now) {
			return t.To, t.Reason, true
		}
	}
	return 0, "", false
}

// QuotaMet 是否达到成团人数
func QuotaMet(a *model.Activity) bool {
	return float64(a.CurrentParticipants) >= QuotaRatio*float64(a.CapacityLimit)
}

func deadlinePassed(a *model.Activity, now int64) bool {
	return a.RegistrationDeadline <= now
}
