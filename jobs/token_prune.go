package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/jokesdb/jokes-api/internal/jobs"
)

// TokenPruner drops revocation index entries whose token already expired.
type TokenPruner interface {
	Prune(ctx context.Context) (int, error)
}

// TokenPruneJob keeps the per-user token sets from growing without bound.
type TokenPruneJob struct {
	Tokens  TokenPruner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewTokenPruneJob initialises the prune handler.
func NewTokenPruneJob(tokens TokenPruner, logger *slog.Logger, metrics *jobmetrics.Metrics) *TokenPruneJob {
	return &TokenPruneJob{Tokens: tokens, Logger: logger, Metrics: metrics}
}

// Handle processes TaskTokensPrune tasks.
func (j *TokenPruneJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Tokens == nil {
		return errors.New("token prune: handler not configured")
	}
	tracker := j.Metrics.Track(TaskTokensPrune)
	defer func() { err = tracker.End(err) }()

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	n, err := j.Tokens.Prune(ctx)
	if err != nil {
		logger.Error("token prune failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddPrunedTokens(n)
	logger.Info("token prune finished", slog.Int("pruned", n))
	return nil
}
