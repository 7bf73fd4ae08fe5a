// Package queue pulls invocation requests off a Redis list and dispatches
// them to the runner.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/stratovia/cpi/pkg/models"
	"github.com/stratovia/cpi/pkg/runner"
)

const popTimeout = 1 * time.Second

// Message is the wire format producers push onto the intake list. A
// message without a reply_to is fire-and-forget; the invocation is still
// audited like any other.
type Message struct {
	Provider  string         `json:"provider"`
	Action    string         `json:"action"`
	Args      map[string]any `json:"args,omitempty"`
	TimeoutMS int64          `json:"timeout_ms,omitempty"`
	ReplyTo   string         `json:"reply_to,omitempty"`
}

// Reply is pushed onto a message's reply_to list once the invocation
// lands.
type Reply struct {
	InvocationID string                  `json:"invocation_id"`
	Provider     string                  `json:"provider"`
	Action       string                  `json:"action"`
	Status       models.InvocationStatus `json:"status"`
	Output       any                     `json:"output,omitempty"`
	Error        string                  `json:"error,omitempty"`
	DurationMS   int64                   `json:"duration_ms"`
}

// Worker drains one intake list. Poison messages are logged and dropped;
// the protocol has no redelivery.
type Worker struct {
	logger *slog.Logger
	runner *runner.Runner
	opts   *redis.Options
	queue  string
	client redis.UniversalClient
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewWorker(logger *slog.Logger, run *runner.Runner, redisURL, queue string) (*Worker, error) {
	if queue == "" {
		return nil, errors.New("queue name is required")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid queue url: %w", err)
	}

	return &Worker{
		logger: logger.With("module", "queue", "queue", queue),
		runner: run,
		opts:   opts,
		queue:  queue,
		stopCh: make(chan struct{}),
	}, nil
}

// Start connects to Redis and begins draining the intake list.
func (w *Worker) Start(ctx context.Context) error {
	w.client = redis.NewClient(w.opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := w.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	w.logger.InfoContext(ctx, "Connected to Redis", "addr", w.opts.Addr, "db", w.opts.DB)

	w.wg.Add(1)

	go w.consume(ctx)

	return nil
}

func (w *Worker) consume(ctx context.Context) {
	defer w.wg.Done()

	w.logger.InfoContext(ctx, "Queue consumer started")

	for {
		select {
		case <-w.stopCh:
			w.logger.InfoContext(ctx, "Queue consumer stopped")

			return
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Context cancelled, stopping queue consumer")

			return
		default:
			err := w.processMessage(ctx)
			if err != nil {
				w.logger.ErrorContext(ctx, "Error processing queue message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (w *Worker) processMessage(ctx context.Context) error {
	result, err := w.client.BLPop(ctx, popTimeout, w.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	raw := result[1]

	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		w.logger.WarnContext(ctx, "Dropping malformed queue message", "error", err, "message", raw)

		return nil
	}

	if msg.Provider == "" || msg.Action == "" {
		w.logger.WarnContext(ctx, "Dropping queue message without provider or action", "message", raw)

		return nil
	}

	w.wg.Add(1)

	go w.dispatch(ctx, msg)

	return nil
}

func (w *Worker) dispatch(ctx context.Context, msg Message) {
	defer w.wg.Done()

	result := w.runner.Execute(ctx, runner.Request{
		Provider: msg.Provider,
		Action:   msg.Action,
		Args:     msg.Args,
		Timeout:  time.Duration(msg.TimeoutMS) * time.Millisecond,
	})

	if msg.ReplyTo == "" {
		return
	}

	reply := Reply{
		InvocationID: result.InvocationID,
		Provider:     result.Provider,
		Action:       result.Action,
		Status:       result.Status,
		Output:       result.Output,
		Error:        result.Err,
		DurationMS:   result.Duration.Milliseconds(),
	}

	payload, err := json.Marshal(reply)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to marshal reply",
			"invocation_id", result.InvocationID,
			"error", err,
		)

		return
	}

	// The requester is owed a reply even when the server is shutting down.
	pushCtx := context.WithoutCancel(ctx)

	if err := w.client.LPush(pushCtx, msg.ReplyTo, payload).Err(); err != nil {
		w.logger.ErrorContext(pushCtx, "Failed to push reply", "reply_to", msg.ReplyTo, "error", err)
	}
}

// Stop drains in-flight work and closes the connection.
func (w *Worker) Stop(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Stopping queue worker")

	close(w.stopCh)
	w.wg.Wait()

	if w.client != nil {
		if err := w.client.Close(); err != nil {
			w.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}
	}

	return nil
}
