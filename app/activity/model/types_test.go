package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusRankMonotonic(t *testing.T) {
	assert.Less(t, StatusRank(StatusPending), StatusRank(StatusPublished))
	assert.Less(t, StatusRank(StatusPublished), StatusRank(StatusInProgress))
	assert.Less(t, StatusRank(StatusInProgress), StatusRank(StatusCompleted))
	// 两个终态并列
	assert.Equal(t, StatusRank(StatusCompleted), StatusRank(StatusCancelled))
	// 未知状态
	assert.Equal(t, 0, StatusRank(0))
}

func TestScheduleStatusFor(t *testing.T) {
	tests := []struct {
		activity int8
		want     int8
	}{
		{StatusPending, ScheduleWaiting},
		{StatusPublished, ScheduleWaiting},
		{StatusInProgress, ScheduleInProgress},
		{StatusCompleted, ScheduleCompleted},
		{StatusCancelled, ScheduleCancelled},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ScheduleStatusFor(tt.activity),
			"活动状态 %s 的日程镜像", StatusText[tt.activity])
	}
}

func TestScheduleMirrorNeverOutpacesActivity(t *testing.T) {
	// 镜像得到的日程阶段不得超过活动自身阶段
	for activityStatus := range StatusText {
		mirrored := ScheduleStatusFor(activityStatus)
		assert.LessOrEqual(t, ScheduleRank(mirrored), StatusRank(activityStatus),
			"活动 %s 镜像后日程不应更靠后", StatusText[activityStatus])
	}
}

func TestIsTerminalStatus(t *testing.T) {
	assert.True(t, IsTerminalStatus(StatusCompleted))
	assert.True(t, IsTerminalStatus(StatusCancelled))
	assert.False(t, IsTerminalStatus(StatusPending))
	assert.False(t, IsTerminalStatus(StatusPublished))
	assert.False(t, IsTerminalStatus(StatusInProgress))
}
