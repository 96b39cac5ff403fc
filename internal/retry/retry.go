// Package retry provides the caller-side retry loop for client reads and the
// bounded polling loop behind waiting queue state changes.
//
// The client itself never retries: Do is what callers (jqctl) wrap around
// idempotent reads, and only failures classified as retryable are repeated.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aatumaykin/jobqueue/internal/errs"
	"github.com/aatumaykin/jobqueue/internal/logger"
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 200 * time.Millisecond
	defaultMaxDelay     = 2 * time.Second
)

// ErrDeadline возвращается Poll, если условие не выполнилось за отведённое время
var ErrDeadline = errors.New("condition not met before deadline")

// Config - настройки повторов
type Config struct {
	MaxAttempts    int              // Максимум попыток (по умолчанию 3)
	InitialBackoff time.Duration    // Первая пауза (по умолчанию 200ms)
	MaxBackoff     time.Duration    // Предел паузы (по умолчанию 2s)
	Retryable      func(error) bool // Классификатор ошибок (по умолчанию errs.IsRetryable)
	Logger         *logger.Logger   // Необязательный логгер попыток
}

func (c *Config) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = defaultInitialDelay
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaultMaxDelay
	}
	if c.Retryable == nil {
		c.Retryable = errs.IsRetryable
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
}

// Do выполняет fn, повторяя её после повторяемых ошибок с экспоненциальной паузой.
// Неповторяемая ошибка возвращается сразу и без обёртки.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	cfg.applyDefaults()

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !cfg.Retryable(err) {
			return err
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		backoff := calculateBackoff(attempt, cfg.InitialBackoff, cfg.MaxBackoff)
		cfg.Logger.Debug("retrying after error",
			logger.Field{Key: "attempt", Value: attempt + 1},
			logger.Field{Key: "backoff", Value: backoff},
			logger.Field{Key: "error", Value: err})

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
}

// Poll вызывает check, пока он не вернёт true, ошибку или не истечёт timeout.
// Первая проверка выполняется сразу, следующие - через interval.
// По истечении времени возвращает ErrDeadline.
func Poll(timeout, interval time.Duration, check func() (bool, error)) error {
	if interval <= 0 {
		interval = defaultInitialDelay
	}
	deadline := time.Now().Add(timeout)

	for {
		done, err := check()
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrDeadline
		}
		time.Sleep(min(interval, remaining))
	}
}

// calculateBackoff: 2^attempt * initial, но не больше max
func calculateBackoff(attempt int, initial, max time.Duration) time.Duration {
	backoff := time.Duration(1<<uint(attempt)) * initial
	if backoff > max {
		return max
	}
	return backoff
}
