package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TokenBlacklist เก็บ token ที่ logout แล้วใน Redis จนกว่าจะหมดอายุ
// ถ้าไม่มี Redis (dev mode) ทุก method จะข้ามไปเฉยๆ
type TokenBlacklist struct {
	client *redis.Client
}

func NewTokenBlacklist(client *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{client: client}
}

func blacklistKey(token string) string {
	return fmt.Sprintf("blacklist:%s", token)
}

// Add เพิ่ม access token เข้า blacklist (ใช้ตอน logout)
func (b *TokenBlacklist) Add(ctx context.Context, token string, expiresIn time.Duration) error {
	if b == nil || b.client == nil {
		Log.Debug("redis client not initialized, skip blacklist")
		return nil
	}
	if expiresIn <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, blacklistKey(token), "1", expiresIn).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

// Contains ตรวจสอบว่า token อยู่ใน blacklist หรือไม่
func (b *TokenBlacklist) Contains(ctx context.Context, token string) (bool, error) {
	if b == nil || b.client == nil {
		return false, nil
	}
	_, err := b.client.Get(ctx, blacklistKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil // Token ไม่อยู่ใน blacklist
		}
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return true, nil
}

// unlockScript ลบ lock เฉพาะเมื่อยังเป็นของเราอยู่ (token ตรงกัน)
var unlockScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`)

// RedisLock is a per-key mutex shared by every instance using the same Redis.
// The key expires after ttl so a crashed holder cannot block voting forever.
type RedisLock struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

func NewRedisLock(client *redis.Client, ttl time.Duration) *RedisLock {
	return &RedisLock{client: client, ttl: ttl, wait: 20 * time.Millisecond}
}

func lockKey(key string) string {
	return fmt.Sprintf("lock:%s", key)
}

// Lock รอจนได้ lock หรือ ctx หมดเวลา
func (l *RedisLock) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, lockKey(key), token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return func() { l.unlock(key, token) }, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.wait):
		}
	}
}

func (l *RedisLock) unlock(key, token string) {
	// ใช้ context ใหม่ เพราะ ctx ของ request อาจหมดเวลาไปแล้ว
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := unlockScript.Run(ctx, l.client, []string{lockKey(key)}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		Log.WithError(err).WithField("key", key).Warn("failed to release lock, it will expire")
	}
}
