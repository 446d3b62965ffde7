package worker

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"
)

type BackoffConfig struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

var DefaultBackoffConfig = BackoffConfig{
	BaseDelay: 100 * time.Millisecond,
	MaxDelay:  2 * time.Second,
}

func FullJitter(attempt int, cfg BackoffConfig) time.Duration {
	if attempt <= 0 {
		return cfg.BaseDelay
	}

	exp := min(cfg.BaseDelay*time.Duration(1<<attempt), cfg.MaxDelay)

	jitter := time.Duration(rand.Int63n(int64(exp)))

	return exp/2 + jitter
}

func Exponential(attempt int, cfg BackoffConfig) time.Duration {
	if attempt <= 0 {
		return cfg.BaseDelay
	}

	return min(cfg.BaseDelay*time.Duration(1<<attempt), cfg.MaxDelay)
}

// retryableErrors são falhas transientes do SQLite compartilhado: o
// produtor pode estar segurando o write lock, ou a tabela ainda nem
// existir porque o job de ingestão não rodou as migrações dele.
var retryableErrors = []string{
	"database is locked",
	"database table is locked",
	"busy",
	"no such table",
	"i/o timeout",
	"disk i/o error",
	"connection refused",
}

func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	for _, pattern := range retryableErrors {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// withRetry tenta op até maxAttempts vezes com full jitter entre
// tentativas, mas só para erros reconhecidamente transientes.
func withRetry(ctx context.Context, maxAttempts int, op func() error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(FullJitter(attempt, DefaultBackoffConfig)):
			}
		}
		if err = op(); err == nil || !IsRetryableError(err) {
			return err
		}
	}
	return err
}
