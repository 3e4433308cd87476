package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// InitRedis คืน nil ถ้าไม่ได้ตั้ง REDIS_URI (dev mode ไม่มี blacklist)
func InitRedis(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr, // เช่น localhost:6379
		Password: "",   // ถ้าไม่มีรหัสผ่าน
		DB:       0,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("❌ Failed to connect Redis: %w", err)
	}
	return rdb, nil
}
