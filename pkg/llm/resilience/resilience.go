// Package resilience 为模型调用提供重试与熔断。
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/kart-io/logger"
)

// ErrCircuitOpen 熔断器打开时直接返回，不会重试。
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config 重试与熔断配置。
type Config struct {
	// MaxRetries 首次调用之后的最大重试次数，0 表示不重试。
	MaxRetries int
	// InitialDelay 第一次重试前的等待时间。
	InitialDelay time.Duration
	// MaxDelay 指数退避的等待上限。
	MaxDelay time.Duration
	// MaxFailures 连续失败达到该次数后熔断，0 表示不熔断。
	MaxFailures int
	// OpenTimeout 熔断后允许探测请求前的冷却时间。
	OpenTimeout time.Duration
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:   2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		MaxFailures:  5,
		OpenTimeout:  time.Minute,
	}
}

// State 熔断器状态。
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker 按连续失败次数熔断，冷却后只放行一个探测请求。
type CircuitBreaker struct {
	name        string
	maxFailures int
	openTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// NewCircuitBreaker 创建熔断器。maxFailures 非正时熔断器永不打开。
func NewCircuitBreaker(name string, maxFailures int, openTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:        name,
		maxFailures: maxFailures,
		openTimeout: openTimeout,
		now:         time.Now,
	}
}

// State 返回当前状态。
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Execute 在熔断器保护下执行 fn。
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.allow(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.openTimeout {
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probing = true
		logger.Infow("circuit breaker half-open", "name", cb.name)
		return nil
	case StateHalfOpen:
		if cb.probing {
			return ErrCircuitOpen
		}
		cb.probing = true
		return nil
	default:
		return nil
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probing = false
	if err == nil {
		if cb.state != StateClosed {
			logger.Infow("circuit breaker closed", "name", cb.name)
		}
		cb.state = StateClosed
		cb.failures = 0
		return
	}

	// 调用方取消不计入失败
	if errors.Is(err, context.Canceled) {
		return
	}

	cb.failures++
	if cb.state == StateHalfOpen || (cb.maxFailures > 0 && cb.failures >= cb.maxFailures) {
		if cb.state != StateOpen {
			logger.Warnw("circuit breaker opened", "name", cb.name, "failures", cb.failures)
		}
		cb.state = StateOpen
		cb.openedAt = cb.now()
	}
}

// Do 以指数退避重试 fn，每次尝试都经过熔断器。
// 不可重试的错误与熔断错误立即返回。
func Do[T any](ctx context.Context, cfg *Config, cb *CircuitBreaker, fn func(context.Context) (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	b := backoff.NewExponentialBackOff()
	if cfg.InitialDelay > 0 {
		b.InitialInterval = cfg.InitialDelay
	}
	if cfg.MaxDelay > 0 {
		b.MaxInterval = cfg.MaxDelay
	}

	attempt := 0
	op := func() (T, error) {
		attempt++
		var out T
		err := cb.Execute(func() error {
			var err error
			out, err = fn(ctx)
			return err
		})
		if err != nil && !IsRetryable(err) {
			return out, backoff.Permanent(err)
		}
		return out, err
	}

	maxTries := cfg.MaxRetries + 1
	if maxTries < 1 {
		maxTries = 1
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(maxTries)),
		backoff.WithNotify(func(err error, d time.Duration) {
			logger.Debugw("retrying model call", "name", cb.name, "attempt", attempt, "delay", d, "error", err.Error())
		}),
	)
}
