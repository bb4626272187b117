package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPasswordResetNotice tells a user that staff reset their password.
	TaskPasswordResetNotice = "auth:password-reset-notice"
	// TaskTokensPrune removes dangling ids from the per-user token index.
	TaskTokensPrune = "tokens:prune"
)

// PasswordResetNoticePayload identifies the user whose password was reset.
type PasswordResetNoticePayload struct {
	UserID int64 `json:"user_id"`
}

// NewPasswordResetNoticeTask constructs an Asynq task.
func NewPasswordResetNoticeTask(payload PasswordResetNoticePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPasswordResetNotice, data, asynq.MaxRetry(5)), nil
}

// NewTokensPruneTask constructs the periodic prune task.
func NewTokensPruneTask() *asynq.Task {
	return asynq.NewTask(TaskTokensPrune, nil, asynq.MaxRetry(1))
}
