package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct{ R *redis.Client }

func NewClient(addr string) *Client {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 0})
	return &Client{R: rdb}
}

func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.R.Ping(ctx).Err()
}

func (c *Client) Close() error { return c.R.Close() }
