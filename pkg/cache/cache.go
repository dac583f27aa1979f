package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Cache 基于Redis的共享缓存
// 除普通的键值存取外，还支持经pub/sub通道的请求/应答往返，
// 应答按token关联，超时未到达则失败而不是一直挂起
type Cache struct {
	client *redis.Client
	prefix string
}

// Config Redis配置
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

// DefaultRequestTimeout 请求/应答往返的默认超时
const DefaultRequestTimeout = time.Second

// ErrCacheMiss 键不存在
var ErrCacheMiss = errors.New("缓存键不存在")

// ErrRequestTimeout 应答超时
var ErrRequestTimeout = errors.New("缓存请求超时，未收到应答")

// Message 请求/应答消息，按Token关联
type Message struct {
	Token   string          `json:"token"`
	Payload json.RawMessage `json:"payload"`
}

// New 创建缓存实例
func New(config *Config) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	prefix := config.Prefix
	if prefix == "" {
		prefix = "upam:cache"
	}

	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// Close 关闭Redis连接
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping 测试Redis连接
func (c *Cache) Ping() error {
	ctx := context.Background()
	return c.client.Ping(ctx).Err()
}

func (c *Cache) key(key string) string {
	return c.prefix + ":" + key
}

// Set 写入键值，ttl为0表示不过期
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

// Get 读取键值
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	value, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return value, err
}

// Delete 删除键
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}

// ========== 请求/应答往返 ==========

func (c *Cache) requestChannel(channel string) string {
	return c.prefix + ":req:" + channel
}

func (c *Cache) replyChannel(channel string) string {
	return c.prefix + ":rep:" + channel
}

// Request 向channel发布请求并等待对应token的应答
// 超时（默认1秒）未收到应答返回ErrRequestTimeout
func (c *Cache) Request(ctx context.Context, channel string, payload interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	message := Message{
		Token:   uuid.NewString(),
		Payload: data,
	}
	raw, err := json.Marshal(message)
	if err != nil {
		return nil, err
	}

	// 先订阅应答通道再发布，避免应答先于订阅到达
	sub := c.client.Subscribe(ctx, c.replyChannel(channel))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return nil, err
	}

	if err := c.client.Publish(ctx, c.requestChannel(channel), raw).Err(); err != nil {
		return nil, err
	}

	timeout := time.NewTimer(DefaultRequestTimeout)
	defer timeout.Stop()
	incoming := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout.C:
			return nil, ErrRequestTimeout
		case m, ok := <-incoming:
			if !ok {
				return nil, ErrRequestTimeout
			}
			var reply Message
			if err := json.Unmarshal([]byte(m.Payload), &reply); err != nil {
				continue
			}
			if reply.Token != message.Token {
				continue
			}
			return reply.Payload, nil
		}
	}
}

// Serve 订阅channel上的请求并用handler的结果应答，阻塞直到ctx取消
func (c *Cache) Serve(ctx context.Context, channel string, handler func(payload json.RawMessage) (interface{}, error)) error {
	sub := c.client.Subscribe(ctx, c.requestChannel(channel))
	defer sub.Close()

	incoming := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-incoming:
			if !ok {
				return nil
			}
			var request Message
			if err := json.Unmarshal([]byte(m.Payload), &request); err != nil {
				continue
			}
			result, err := handler(request.Payload)
			if err != nil {
				continue
			}
			data, err := json.Marshal(result)
			if err != nil {
				continue
			}
			reply, err := json.Marshal(Message{Token: request.Token, Payload: data})
			if err != nil {
				continue
			}
			if err := c.client.Publish(ctx, c.replyChannel(channel), reply).Err(); err != nil {
				return err
			}
		}
	}
}
