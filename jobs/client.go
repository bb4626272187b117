package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

// noticeWindow collapses repeated resets of the same user into one notice.
const noticeWindow = 10 * time.Minute

// Enqueuer is the part of *asynq.Client the Client uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client submits jobs to the queue.
type Client struct {
	client Enqueuer
}

// NewClient constructs a Client backed by Redis.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	if redisOpts.Addr == "" {
		return nil, errors.New("jobs: redis address required")
	}
	return &Client{client: asynq.NewClient(redisOpts)}, nil
}

// EnqueuePasswordResetNotice queues a notice for userID. A notice already
// queued for the same user within the window is not duplicated.
func (c *Client) EnqueuePasswordResetNotice(ctx context.Context, userID int64) error {
	task, err := NewPasswordResetNoticeTask(PasswordResetNoticePayload{UserID: userID})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.Unique(noticeWindow))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
