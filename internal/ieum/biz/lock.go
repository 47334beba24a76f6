package biz

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/ieum/pkg/utils/errors"
	"github.com/kart-io/logger"
)

// ingestLockPrefix 是单文件摄取锁的键前缀。
const ingestLockPrefix = "ieum:lock:ingest:"

// ingestLockKey 返回 (类别, 文件名) 的摄取锁键，不同类别的同名文件互不阻塞。
func ingestLockKey(category Category, name string) string {
	return ingestLockPrefix + string(category) + ":" + name
}

// Locker 提供按键的互斥，获取失败返回 ErrIngestInProgress。
type Locker interface {
	// TryLock 立即尝试获取锁，成功时返回释放函数。
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// releaseScript 仅在令牌匹配时删除锁。
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker 基于 SET NX PX 的分布式锁。
type RedisLocker struct {
	client goredis.UniversalClient
}

// NewRedisLocker 创建 Redis 锁。
func NewRedisLocker(client goredis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client}
}

// TryLock 以随机令牌获取锁。
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token, err := randomToken()
	if err != nil {
		return nil, err
	}

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, errors.ErrExternalService.WithCause(fmt.Errorf("acquire lock %s: %w", key, err))
	}
	if !ok {
		return nil, errors.ErrIngestInProgress.WithMessagef("lock %s is held", key)
	}

	return func() {
		// 请求 ctx 可能已取消，释放使用独立的超时。
		rctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.client, []string{key}, token).Err(); err != nil {
			logger.Warnw("failed to release lock", "key", key, "error", err.Error())
		}
	}, nil
}

func randomToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// LocalLocker 是进程内的按键锁，用于单实例部署。
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
}

// NewLocalLocker 创建进程内锁。
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]time.Time)}
}

// TryLock 获取锁；已过期的锁视为空闲。
func (l *LocalLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if exp, ok := l.held[key]; ok && now.Before(exp) {
		return nil, errors.ErrIngestInProgress.WithMessagef("lock %s is held", key)
	}
	exp := now.Add(ttl)
	l.held[key] = exp

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if l.held[key].Equal(exp) {
				delete(l.held, key)
			}
		})
	}, nil
}
