package lifecycle

import (
	"testing"

	"github.com/SmartCampusHub/smarte-vent.server-sub001/app/activity/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNow = int64(1_700_000_000)

func pendingActivity(current, capacity uint32, deadline int64) *model.Activity {
	return &model.Activity{
		ID:                   1,
		Status:               model.StatusPending,
		CurrentParticipants:  current,
		CapacityLimit:        capacity,
		RegistrationDeadline: deadline,
	}
}

func TestNextPendingQuotaMet(t *testing.T) {
	a := pendingActivity(30, 100, testNow-1)

	to, reason, ok := Next(a, testNow)

	require.True(t, ok)
	assert.Equal(t, model.StatusPublished, to)
	assert.NotEmpty(t, reason)
}

func TestNextPendingQuotaNotMet(t *testing.T) {
	a := pendingActivity(29, 100, testNow-1)

	to, _, ok := Next(a, testNow)

	require.True(t, ok)
	assert.Equal(t, model.StatusCancelled, to)
}

func TestNextPendingBeforeDeadline(t *testing.T) {
	// 截止时间未到，哪怕人数已达标也不流转
	a := pendingActivity(80, 100, testNow+3600)

	_, _, ok := Next(a, testNow)

	assert.False(t, ok)
}

func TestNextPendingDeadlineExactlyNow(t *testing.T) {
	// 截止时刻等于当前时刻视为已截止
	a := pendingActivity(30, 100, testNow)

	to, _, ok := Next(a, testNow)

	require.True(t, ok)
	assert.Equal(t, model.StatusPublished, to)
}

func TestQuotaBoundary(t *testing.T) {
	tests := []struct {
		name     string
		current  uint32
		capacity uint32
		want     bool
	}{
		{"刚好达标", 30, 100, true},
		{"差一人", 29, 100, false},
		{"零容量", 0, 0, true},
		{"小容量上取", 3, 10, true},
		{"小容量不足", 2, 10, false},
		{"容量1人报名0", 0, 1, false},
		{"容量1人报名1", 1, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &model.Activity{CurrentParticipants: tt.current, CapacityLimit: tt.capacity}
			assert.Equal(t, tt.want, QuotaMet(a))
		})
	}
}

func TestNextPublishedRequiresApproval(t *testing.T) {
	a := &model.Activity{
		Status:    model.StatusPublished,
		StartTime: testNow - 60,
	}

	// 未审核通过不开始
	_, _, ok := Next(a, testNow)
	assert.False(t, ok)

	a.IsApproved = true
	to, _, ok := Next(a, testNow)
	require.True(t, ok)
	assert.Equal(t, model.StatusInProgress, to)
}

func TestNextPublishedBeforeStart(t *testing.T) {
	a := &model.Activity{
		Status:     model.StatusPublished,
		IsApproved: true,
		StartTime:  testNow + 60,
	}

	_, _, ok := Next(a, testNow)
	assert.False(t, ok)
}

func TestNextInProgressCompletes(t *testing.T) {
	a := &model.Activity{
		Status:  model.StatusInProgress,
		EndTime: testNow,
	}

	to, _, ok := Next(a, testNow)

	require.True(t, ok)
	assert.Equal(t, model.StatusCompleted, to)
}

func TestNextTerminalStatesHaveNoExit(t *testing.T) {
	for _, status := range []int8{model.StatusCompleted, model.StatusCancelled} {
		a := &model.Activity{
			Status:               status,
			StartTime:            testNow - 7200,
			EndTime:              testNow - 3600,
			RegistrationDeadline: testNow - 10000,
			CurrentParticipants:  100,
			CapacityLimit:        100,
			IsApproved:           true,
		}

		_, _, ok := Next(a, testNow)
		assert.False(t, ok, "终态 %s 不应有出边", model.StatusText[status])
	}
}
