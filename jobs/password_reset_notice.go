package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/jokesdb/jokes-api/internal/auth"
	jobmetrics "github.com/jokesdb/jokes-api/internal/jobs"
	"github.com/jokesdb/jokes-api/internal/shared"
)

// PasswordResetNoticeJob records that a user must be told about a password
// reset. Delivery is left to the log pipeline.
type PasswordResetNoticeJob struct {
	Accounts auth.AccountLoader
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewPasswordResetNoticeJob initialises the notice handler.
func NewPasswordResetNoticeJob(accounts auth.AccountLoader, logger *slog.Logger, metrics *jobmetrics.Metrics) *PasswordResetNoticeJob {
	return &PasswordResetNoticeJob{Accounts: accounts, Logger: logger, Metrics: metrics}
}

// Handle processes TaskPasswordResetNotice tasks.
func (j *PasswordResetNoticeJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil {
		return errors.New("password reset notice: handler not configured")
	}
	var payload PasswordResetNoticePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.UserID <= 0 {
		return asynq.SkipRetry
	}
	tracker := j.Metrics.Track(TaskPasswordResetNotice)
	defer func() { err = tracker.End(err) }()

	logger := j.logger().With(slog.Int64("user_id", payload.UserID))
	acc, err := j.Accounts.FindByID(ctx, payload.UserID)
	if err != nil {
		if shared.IsKind(err, shared.KindNotFound) {
			logger.Info("password reset notice dropped: user gone")
			return nil
		}
		logger.Error("load user", slog.Any("error", err))
		return err
	}
	logger.Info("password reset notice", slog.String("email", acc.Email))
	return nil
}

func (j *PasswordResetNoticeJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}
