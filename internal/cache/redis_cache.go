package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"brandis/backend/internal/domain"
)

type RedisStockCache struct {
	client *redis.Client
}

func NewRedisStockCache(addr string, password string, db int) *RedisStockCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisStockCache{client: client}
}

func (c *RedisStockCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisStockCache) Close() error {
	return c.client.Close()
}

func stockKey(outletID int64) string {
	return fmt.Sprintf("stock:outlet:%d", outletID)
}

func (c *RedisStockCache) Get(ctx context.Context, outletID int64) ([]domain.StockRow, bool, error) {
	val, err := c.client.Get(ctx, stockKey(outletID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var rows []domain.StockRow
	if err := json.Unmarshal([]byte(val), &rows); err != nil {
		return nil, false, err
	}
	return rows, true, nil
}

func (c *RedisStockCache) Set(ctx context.Context, outletID int64, rows []domain.StockRow, ttl time.Duration) error {
	if rows == nil {
		rows = []domain.StockRow{}
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, stockKey(outletID), payload, ttl).Err()
}

func (c *RedisStockCache) Invalidate(ctx context.Context, outletID int64) error {
	return c.client.Del(ctx, stockKey(outletID)).Err()
}
