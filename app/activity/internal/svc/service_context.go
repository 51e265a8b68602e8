package svc

import (
	"fmt"
	"time"

	"github.com/SmartCampusHub/smarte-vent.server-sub001/app/activity/internal/config"
	"github.com/SmartCampusHub/smarte-vent.server-sub001/app/activity/model"
	"github.com/SmartCampusHub/smarte-vent.server-sub001/app/activity/mq"
	"github.com/SmartCampusHub/smarte-vent.server-sub001/common/messaging"
	"github.com/SmartCampusHub/smarte-vent.server-sub001/common/utils/email"

	goredis "github.com/redis/go-redis/v9"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ServiceContext 服务上下文
type ServiceContext struct {
	Config config.Config

	// 数据存储
	DB          *gorm.DB       // MySQL 连接
	Redis       *redis.Redis   // Redis 客户端（分布式锁）
	EventRedis  *goredis.Client // 在线状态存储
	EmailSender *email.Sender

	// Model 层
	ActivityModel      *model.ActivityModel
	ScheduleModel      *model.ActivityScheduleModel
	ParticipationModel *model.ParticipationModel
	NotificationModel  *model.NotificationModel
	StatusLogModel     *model.ActivityStatusLogModel

	// 消息中间件
	MessagingClient *messaging.Client
	Producer        *mq.Producer

	// 认证
	JwtAuth *JwtAuth
}

// NewServiceContext 创建服务上下文
func NewServiceContext(c config.Config) *ServiceContext {
	// 1. 初始化数据库连接
	db := initDB(c.MySQL)

	// 2. 初始化业务 Redis（分布式锁）
	rds := initRedis(c.Redis)

	// 3. 在线状态 Redis 客户端
	eventRedis := goredis.NewClient(&goredis.Options{
		Addr:     c.EventRedis.Addr,
		Password: c.EventRedis.Password,
		DB:       c.EventRedis.DB,
	})

	// 4. 消息中间件客户端
	messagingClient, err := messaging.NewClient(messaging.Config{
		Redis: messaging.RedisConfig{
			Addr:     c.EventRedis.Addr,
			Password: c.EventRedis.Password,
			DB:       c.EventRedis.DB,
		},
		ServiceName: "activity-lifecycle",
	})
	if err != nil {
		logx.Errorf("消息中间件连接失败: %v", err)
		panic(err)
	}

	return &ServiceContext{
		Config:      c,
		DB:          db,
		Redis:       rds,
		EventRedis:  eventRedis,
		EmailSender: email.NewSender(c.Email),

		ActivityModel:      model.NewActivityModel(db),
		ScheduleModel:      model.NewActivityScheduleModel(db),
		ParticipationModel: model.NewParticipationModel(db),
		NotificationModel:  model.NewNotificationModel(db),
		StatusLogModel:     model.NewActivityStatusLogModel(db),

		MessagingClient: messagingClient,
		Producer:        mq.NewProducer(messagingClient),

		JwtAuth: NewJwtAuth(c.Auth.AccessSecret),
	}
}

// 初始化函数

// initDB 初始化数据库连接
func initDB(mysqlConf config.MySQLConfig) *gorm.DB {
	dsn := buildMySQLDSN(mysqlConf)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		logx.Errorf("连接数据库失败: %v", err)
		panic(err)
	}

	// 设置连接池
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	maxOpenConns := mysqlConf.MaxOpenConns
	if maxOpenConns <= 0 {
		maxOpenConns = 100
	}
	maxIdleConns := mysqlConf.MaxIdleConns
	if maxIdleConns <= 0 {
		maxIdleConns = 10
	}
	connMaxLifetime := mysqlConf.ConnMaxLifetime
	if connMaxLifetime <= 0 {
		connMaxLifetime = 3600
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)

	logx.Info("数据库连接成功")
	return db
}

// initRedis 初始化 Redis 连接
func initRedis(c redis.RedisConf) *redis.Redis {
	rds := redis.MustNewRedis(c)
	logx.Info("Redis 连接成功")
	return rds
}

func buildMySQLDSN(c config.MySQLConfig) string {
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=Local",
		c.Username,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}
