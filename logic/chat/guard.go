package chat

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type GuardConfig struct {
	Name             string
	MaxRetries       uint64
	InitialInterval  time.Duration
	MaxInterval      time.Duration
	FailureThreshold uint32        // 连续失败多少次后熔断
	OpenTimeout      time.Duration // 熔断后多久进入半开
}

func DefaultGuardConfig(name string) GuardConfig {
	return GuardConfig{
		Name:             name,
		MaxRetries:       2,
		InitialInterval:  time.Second,
		MaxInterval:      8 * time.Second,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// guardedModel 给模型调用加上重试和熔断，只对瞬时错误（超时、429、5xx）重试
type guardedModel struct {
	inner model.BaseChatModel
	cb    *gobreaker.CircuitBreaker
	cfg   GuardConfig
}

func Guard(inner model.BaseChatModel, cfg GuardConfig) model.BaseChatModel {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    cfg.Name,
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			zap.L().Warn("llm circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &guardedModel{inner: inner, cb: cb, cfg: cfg}
}

func (g *guardedModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	var out *schema.Message
	attempt := 0
	op := func() error {
		attempt++
		res, err := g.cb.Execute(func() (interface{}, error) {
			return g.inner.Generate(ctx, input, opts...)
		})
		if err != nil {
			if !retryable(ctx, err) {
				return backoff.Permanent(err)
			}
			zap.L().Warn("llm call failed, will retry",
				zap.String("name", g.cfg.Name),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		out, _ = res.(*schema.Message)
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(g.newBackOff(), ctx)); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.New("llm returned empty message")
	}
	return out, nil
}

// Stream 只走熔断，不重试：流一旦开始就不能重放
func (g *guardedModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	res, err := g.cb.Execute(func() (interface{}, error) {
		return g.inner.Stream(ctx, input, opts...)
	})
	if err != nil {
		return nil, err
	}
	sr, _ := res.(*schema.StreamReader[*schema.Message])
	return sr, nil
}

func (g *guardedModel) newBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if g.cfg.InitialInterval > 0 {
		eb.InitialInterval = g.cfg.InitialInterval
	}
	if g.cfg.MaxInterval > 0 {
		eb.MaxInterval = g.cfg.MaxInterval
	}
	eb.MaxElapsedTime = 0
	return backoff.WithMaxRetries(eb, g.cfg.MaxRetries)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	return isTransient(err)
}

// isTransient 根据错误信息粗略判断是否值得重试
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"), strings.Contains(msg, "rate limit"):
		return true
	case strings.Contains(msg, "status code: 5"), strings.Contains(msg, "server error"), strings.Contains(msg, "unavailable"):
		return true
	case strings.Contains(msg, "status code: 4"), strings.Contains(msg, "invalid api key"), strings.Contains(msg, "not configured"):
		return false
	default:
		return true
	}
}
