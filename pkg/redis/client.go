package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps go-redis with the hash-plus-publish pattern the service uses.
type Client struct {
	client *redis.Client
}

// New connects and pings.
func New(ctx context.Context, addr string, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{client: client}, nil
}

// WriteHash sets fields on a hash.
func (c *Client) WriteHash(ctx context.Context, key string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return c.client.HSet(ctx, key, fields).Err()
}

// WriteAndPublish sets fields on a hash and publishes message on the
// channel of the same name, in one round trip.
func (c *Client) WriteAndPublish(ctx context.Context, key string, fields map[string]interface{}, message string) error {
	pipe := c.client.Pipeline()
	if len(fields) > 0 {
		pipe.HSet(ctx, key, fields)
	}
	pipe.Publish(ctx, key, message)
	_, err := pipe.Exec(ctx)
	return err
}

// Delete removes keys.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// LPush pushes value onto the head of a list.
func (c *Client) LPush(ctx context.Context, key string, value string) error {
	return c.client.LPush(ctx, key, value).Err()
}

// BRPop blocks up to timeout for an element of key. A timeout yields
// nil, nil. The result is {key, value}.
func (c *Client) BRPop(ctx context.Context, timeout time.Duration, key string) ([]string, error) {
	result, err := c.client.BRPop(ctx, timeout, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected result from BRPOP: %v", result)
	}
	return result, nil
}

// Close closes the connection pool.
func (c *Client) Close() error {
	return c.client.Close()
}
