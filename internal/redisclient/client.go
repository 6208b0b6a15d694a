package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/reserve_stock.lua
var reserveStockScript string

//go:embed scripts/release_stock.lua
var releaseStockScript string

type Client struct {
	rdb           *redis.Client
	prefix        string
	reserveScript *redis.Script
	releaseScript *redis.Script
}

// NewClient creates a new Redis client with the reserve script loaded.
// Keys are namespaced under prefix so concurrent runs do not collide.
func NewClient(addr, password string, db int, prefix string) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:           rdb,
		prefix:        prefix,
		reserveScript: redis.NewScript(reserveStockScript),
		releaseScript: redis.NewScript(releaseStockScript),
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) key(productID string) string {
	return fmt.Sprintf("%s:inventory:%s", c.prefix, productID)
}

// ReserveStock atomically reserves stock using the Lua script.
// Returns found=false when the product has no inventory hash.
func (c *Client) ReserveStock(ctx context.Context, productID string, quantity int) (reserved, found bool, err error) {
	result, err := c.reserveScript.Run(ctx, c.rdb, []string{c.key(productID)}, quantity).Result()
	if err != nil {
		return false, false, fmt.Errorf("reserve stock script failed: %w", err)
	}

	code, ok := result.(int64)
	if !ok {
		return false, false, fmt.Errorf("unexpected script result type %T", result)
	}

	switch code {
	case 1:
		return true, true, nil
	case 0:
		return false, true, nil
	default:
		return false, false, nil
	}
}

// ReleaseStock atomically gives back stock of an uncommitted reservation (compensation)
func (c *Client) ReleaseStock(ctx context.Context, productID string, quantity int) error {
	_, err := c.releaseScript.Run(ctx, c.rdb, []string{c.key(productID)}, quantity).Result()
	if err != nil {
		return fmt.Errorf("release stock script failed: %w", err)
	}

	return nil
}

// InitInventory sets the available count of every product in one pipeline
func (c *Client) InitInventory(ctx context.Context, stock map[string]int) error {
	pipe := c.rdb.Pipeline()
	for id, available := range stock {
		pipe.HSet(ctx, c.key(id), "available", available, "sold", 0)
	}

	_, err := pipe.Exec(ctx)
	return err
}

// GetAvailable retrieves the available count of one product
func (c *Client) GetAvailable(ctx context.Context, productID string) (int, bool, error) {
	val, err := c.rdb.HGet(ctx, c.key(productID), "available").Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt inventory for product %s: %w", productID, err)
	}
	return n, true, nil
}

// GetAvailableMany retrieves available counts for many products in one pipeline
func (c *Client) GetAvailableMany(ctx context.Context, productIDs []string) (map[string]int, error) {
	pipe := c.rdb.Pipeline()
	cmds := make([]*redis.StringCmd, len(productIDs))
	for i, id := range productIDs {
		cmds[i] = pipe.HGet(ctx, c.key(id), "available")
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	out := make(map[string]int, len(productIDs))
	for i, cmd := range cmds {
		n, err := cmd.Int()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("corrupt inventory for product %s: %w", productIDs[i], err)
		}
		out[productIDs[i]] = n
	}
	return out, nil
}
