package messaging

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
)

// Client Watermill 消息客户端（Redis Streams 后端）
type Client struct {
	Publisher   message.Publisher
	Subscriber  message.Subscriber
	Router      *message.Router
	config      Config
	redisClient *redis.Client
}

// NewClient 创建新的消息客户端
func NewClient(config Config) (*Client, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})

	// 测试 Redis 连接
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return nil, WrapError(err, "failed to connect to Redis")
	}

	logger := newWatermillLogger(config.ServiceName)

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		logger,
	)
	if err != nil {
		return nil, WrapError(err, "failed to create publisher")
	}

	// 订阅使用服务名作为消费者组，多实例部署时分摊消费
	subscriber, err := redisstream.NewSubscriber(
		redisstream.SubscriberConfig{
			Client:        redisClient,
			ConsumerGroup: config.ServiceName,
		},
		logger,
	)
	if err != nil {
		return nil, WrapError(err, "failed to create subscriber")
	}

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, WrapError(err, "failed to create router")
	}

	// 重试中间件：可重试错误指数退避，不可重试错误直接丢弃
	router.AddMiddleware(RetryMiddleware(DefaultRetryPolicy()))

	return &Client{
		Publisher:   publisher,
		Subscriber:  subscriber,
		Router:      router,
		config:      config,
		redisClient: redisClient,
	}, nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if err := c.Publisher.Close(); err != nil {
		return WrapError(err, "failed to close publisher")
	}
	if err := c.Subscriber.Close(); err != nil {
		return WrapError(err, "failed to close subscriber")
	}
	if err := c.Router.Close(); err != nil {
		return WrapError(err, "failed to close router")
	}
	if err := c.redisClient.Close(); err != nil {
		return WrapError(err, "failed to close redis client")
	}
	return nil
}

// Publish 发布消息（便捷方法）
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("topic", topic)
	return c.Publisher.Publish(topic, msg)
}

// Subscribe 订阅消息（便捷方法）
// 注意：这个方法会直接添加 handler 到 Router，需要调用 Run() 来启动
func (c *Client) Subscribe(topic string, handlerName string, handler message.NoPublishHandlerFunc) {
	c.Router.AddNoPublisherHandler(
		handlerName,
		topic,
		c.Subscriber,
		handler,
	)
}

// Run 启动 Router（阻塞）
func (c *Client) Run(ctx context.Context) error {
	return c.Router.Run(ctx)
}

// Running 返回一个 channel，当 Router 运行时关闭
func (c *Client) Running() chan struct{} {
	return c.Router.Running()
}
