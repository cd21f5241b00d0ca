package jobs

import (
	"context"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

// RedisConnOpt accepts either host:port or a redis:// URL.
func RedisConnOpt(addr string) (asynq.RedisConnOpt, error) {
	if strings.Contains(addr, "://") {
		return asynq.ParseRedisURI(addr)
	}
	return asynq.RedisClientOpt{Addr: addr}, nil
}

// Client enqueues console tasks.
type Client struct {
	client *asynq.Client
}

// NewClient returns a Client on the given redis connection.
func NewClient(redis asynq.RedisConnOpt) *Client {
	return &Client{client: asynq.NewClient(redis)}
}

// EnqueueDashboardWarmup asks the worker to refill the dashboard cache. Requests within
// a minute of each other collapse into one task.
func (c *Client) EnqueueDashboardWarmup(ctx context.Context, reason string) (*asynq.TaskInfo, error) {
	task, err := NewDashboardWarmupTask(reason)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueDefault),
		asynq.Unique(time.Minute),
		asynq.MaxRetry(3),
	)
}

// Close releases the redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}
