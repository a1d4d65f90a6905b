// internal/pkg/redis/client.go
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// Client 封装 go-redis 客户端，统一连接管理。
type Client struct {
	client *goredis.Client
}

// NewClient 创建 redis 客户端并验证连通性。
func NewClient(ctx context.Context, addr string) (*Client, error) {
	c := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &Client{client: c}, nil
}

// GetClient 暴露底层客户端，供需要 pipeline 等高级能力的调用方使用。
func (c *Client) GetClient() *goredis.Client {
	return c.client
}

// Close 关闭底层连接。
func (c *Client) Close() error {
	return c.client.Close()
}
