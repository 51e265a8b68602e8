package sweeper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricJobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity",
		Subsystem: "sweep",
		Name:      "job_runs_total",
		Help:      "扫描任务执行次数",
	}, []string{"job"})

	metricJobErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity",
		Subsystem: "sweep",
		Name:      "job_errors_total",
		Help:      "扫描任务中单条记录处理失败次数",
	}, []string{"job"})

	metricTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity",
		Subsystem: "sweep",
		Name:      "transitions_total",
		Help:      "状态流转成功次数",
	}, []string{"from", "to"})

	metricReminders = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity",
		Subsystem: "sweep",
		Name:      "reminders_total",
		Help:      "提醒扇出发起次数",
	}, []string{"kind"})
)
