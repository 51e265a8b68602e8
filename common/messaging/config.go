package messaging

// Config 消息中间件配置（Redis Streams 后端）
type Config struct {
	// Redis 连接
	Redis RedisConfig

	// 服务名，同时作为消费者组名
	ServiceName string
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Addr     string `json:",default=localhost:6379"`
	Password string `json:",optional"`
	DB       int    `json:",default=0"`
}
