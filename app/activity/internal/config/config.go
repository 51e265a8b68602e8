package config

import (
	"github.com/SmartCampusHub/smarte-vent.server-sub001/common/utils/email"

	"github.com/zeromicro/go-zero/core/stores/redis"
)

// Config 活动生命周期服务配置
type Config struct {
	Host string `json:",default=0.0.0.0"`
	Port int    `json:",default=8890"`

	// 数据存储
	MySQL MySQLConfig     // MySQL 配置
	Redis redis.RedisConf // Redis 配置（分布式锁）

	// 消息中间件 / 在线状态（go-redis 客户端）
	EventRedis EventRedisConfig

	// JWT 认证配置
	Auth AuthConf

	// 邮件通道配置
	Email email.Config

	// 扫描任务节奏
	Sweep SweepConf
}

// MySQLConfig 数据库配置
type MySQLConfig struct {
	Host            string `json:",default=127.0.0.1"`
	Port            int    `json:",default=3306"`
	Username        string
	Password        string
	Database        string
	MaxOpenConns    int `json:",default=100"`  // 最大打开连接数
	MaxIdleConns    int `json:",default=10"`   // 最大空闲连接数
	ConnMaxLifetime int `json:",default=3600"` // 连接生命周期（秒）
}

// EventRedisConfig 事件总线与在线状态使用的 Redis
type EventRedisConfig struct {
	Addr     string `json:",default=localhost:6379"`
	Password string `json:",optional"`
	DB       int    `json:",default=0"`
}

// AuthConf 认证配置
type AuthConf struct {
	AccessSecret string
	AccessExpire int64 `json:",default=86400"`
}

// SweepConf 扫描任务节奏配置
type SweepConf struct {
	TickSeconds        int    `json:",default=5"`     // 状态流转扫描间隔（秒）
	ResolveDailyAt     string `json:",default=00:00"` // 报名截止裁决
	ReminderTodayAt    string `json:",default=07:00"` // 今日开始提醒
	ReminderOneDayAt   string `json:",default=08:00"` // 明日开始提醒
	DeadlineReminderAt string `json:",default=08:00"` // 报名截止提醒
	ReminderThreeDayAt string `json:",default=09:00"` // 3天倒计时提醒
	ScheduleReminderAt string `json:",default=11:00"` // 日程提醒
	MaxFanoutWorkers   int    `json:",default=8"`     // 扇出并发上限
}
