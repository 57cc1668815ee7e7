package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = time.Second
)

type retryClient struct {
	next           Client
	maxRetries     int
	initialBackoff time.Duration
}

// WithRetry wraps a client so that failed calls are retried with exponential backoff
func WithRetry(next Client, maxRetries int, initialBackoff time.Duration) Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &retryClient{next: next, maxRetries: maxRetries, initialBackoff: initialBackoff}
}

func (r *retryClient) Chat(ctx context.Context, req ChatRequest) (*Response, error) {
	var resp *Response
	err := r.do(ctx, "chat", func() error {
		var err error
		resp, err = r.next.Chat(ctx, req)
		return err
	})
	return resp, err
}

func (r *retryClient) ChatStructured(ctx context.Context, req ChatRequest, shape *Schema, out any) error {
	return r.do(ctx, "chat_structured", func() error {
		return r.next.ChatStructured(ctx, req, shape, out)
	})
}

func (r *retryClient) do(ctx context.Context, op string, call func() error) error {
	var err error
	backoff := r.initialBackoff
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		err = call()
		if err == nil {
			return nil
		}
		if !retryable(ctx, err) {
			return err
		}
		slog.Warn("llm call failed", "op", op, "attempt", attempt+1, "error", err)
	}
	return fmt.Errorf("failed after %d attempts: %w", r.maxRetries, err)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, ErrNotConfigured) && !errors.Is(err, ErrBlocked) &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
