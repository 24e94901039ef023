package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mycrm-app/mycrm/internal/observability"
	"github.com/mycrm-app/mycrm/internal/rbac"
)

const defaultExpiryWindow = 72 * time.Hour

// ExpiryNoticeJob warns users whose role assignments are about to lapse.
// Expiry itself needs no job: the evaluator enforces it lazily. This only
// exists so a grant does not vanish unannounced.
type ExpiryNoticeJob struct {
	Assignments rbac.AssignmentStore
	Pool        *pgxpool.Pool
	Client      *Client
	Logger      *slog.Logger
	Metrics     *observability.Metrics
}

// NewExpiryNoticeJob wires dependencies for the expiry scan handler.
func NewExpiryNoticeJob(assignments rbac.AssignmentStore, pool *pgxpool.Pool, client *Client, logger *slog.Logger, metrics *observability.Metrics) *ExpiryNoticeJob {
	return &ExpiryNoticeJob{Assignments: assignments, Pool: pool, Client: client, Logger: logger, Metrics: metrics}
}

// Handle processes TaskRoleExpiryNotice tasks.
func (j *ExpiryNoticeJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Assignments == nil {
		return errors.New("expiry notice: handler not configured")
	}
	var payload ExpiryNoticePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	window := defaultExpiryWindow
	if payload.WindowHours > 0 {
		window = time.Duration(payload.WindowHours) * time.Hour
	}

	logger := j.logger()
	expiring, err := j.Assignments.ListExpiringWithin(ctx, window)
	if err != nil {
		j.Metrics.JobRun(TaskRoleExpiryNotice, "error")
		logger.Error("list expiring assignments", slog.Any("error", err))
		return err
	}

	notified := 0
	for _, assignment := range expiring {
		email, err := j.holderEmail(ctx, assignment.UserID)
		if err != nil {
			logger.Warn("resolve holder email",
				slog.Int64("user_id", assignment.UserID),
				slog.Any("error", err))
			continue
		}
		if err := j.notify(ctx, email, assignment); err != nil {
			logger.Warn("enqueue expiry notice",
				slog.Int64("assignment_id", assignment.ID),
				slog.Any("error", err))
			continue
		}
		notified++
	}

	j.Metrics.JobRun(TaskRoleExpiryNotice, "ok")
	logger.Info("expiry scan complete",
		slog.Int("expiring", len(expiring)),
		slog.Int("notified", notified),
		slog.Duration("window", window))
	return nil
}

func (j *ExpiryNoticeJob) notify(ctx context.Context, email string, assignment rbac.Assignment) error {
	if j.Client == nil {
		return nil
	}
	expiresAt := ""
	if assignment.ExpiresAt != nil {
		expiresAt = assignment.ExpiresAt.Format(time.RFC1123)
	}
	_, err := j.Client.EnqueueSendEmail(ctx, SendEmailPayload{
		To:      email,
		Subject: fmt.Sprintf("Your %s role is about to expire", assignment.RoleType.DisplayName()),
		Body:    fmt.Sprintf("Your %s role expires on %s. Contact your company admin to extend it.", assignment.RoleType.DisplayName(), expiresAt),
	})
	return err
}

func (j *ExpiryNoticeJob) holderEmail(ctx context.Context, userID int64) (string, error) {
	if j.Pool == nil {
		return "", errors.New("expiry notice: pool not configured")
	}
	var email string
	err := j.Pool.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&email)
	return email, err
}

func (j *ExpiryNoticeJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRoleExpiryNotice))
	}
	return slog.Default().With(slog.String("job", TaskRoleExpiryNotice))
}
