package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"crm_assistant_backend/internal/crm/repository"
	"crm_assistant_backend/internal/notifier"
	"crm_assistant_backend/platform/apperr"
	"crm_assistant_backend/platform/config"
	"crm_assistant_backend/platform/logger"
)

// Worker processes due reminder tasks and delivers them by email.
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	repo     repository.Repository
	notifier *notifier.Notifier
	log      *logger.Logger
}

// NewWorker builds the asynq server and its task handlers. The notifier may
// be nil, in which case due reminders are logged and acknowledged.
func NewWorker(cfg *config.Config, pool *pgxpool.Pool, n *notifier.Notifier, log *logger.Logger) (*Worker, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.QueueName
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.WorkerConcurrency
	if concurrency < 1 {
		concurrency = 5
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		repo:     repository.New(pool),
		notifier: n,
		log:      log,
	}

	mux.HandleFunc(TaskActionReminder, w.handleActionReminder)

	return w, nil
}

// Run blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleActionReminder delivers one due reminder. Actions deleted or stripped
// of their reminder since scheduling are acknowledged silently.
func (w *Worker) handleActionReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseActionReminderPayload(task)
	if err != nil {
		return err
	}

	actionID, err := uuid.Parse(payload.ActionID)
	if err != nil {
		return err
	}
	ownerID, err := uuid.Parse(payload.OwnerID)
	if err != nil {
		return err
	}

	action, err := w.repo.GetAction(ctx, ownerID, actionID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}
	if action.RemindAt == nil {
		return nil
	}

	est, err := w.repo.GetEstablishment(ctx, ownerID, action.EstablishmentID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}

	email := w.recipientEmail(ctx, action.AssigneeID, ownerID)
	if email == "" {
		w.log.Warn("reminder due but no recipient email",
			"action_id", action.ID.String(),
			"establishment", est.Name,
		)
		return nil
	}

	if w.notifier == nil {
		w.log.Info("reminder due, delivery disabled",
			"action_id", action.ID.String(),
			"establishment", est.Name,
		)
		return nil
	}

	err = w.notifier.SendReminder(ctx, email, notifier.Reminder{
		EstablishmentName: est.Name,
		Kind:              action.Kind,
		OccursAt:          action.OccursAt,
		Comment:           action.Comment,
	})
	if err != nil {
		return fmt.Errorf("send reminder for action %s: %w", action.ID, err)
	}

	w.log.Info("reminder delivered", "action_id", action.ID.String(), "to", email)
	return nil
}

// recipientEmail prefers the assignee's email, then the owner's own
// internal-user record.
func (w *Worker) recipientEmail(ctx context.Context, assigneeID *uuid.UUID, ownerID uuid.UUID) string {
	if assigneeID != nil {
		if u, err := w.repo.GetInternalUser(ctx, *assigneeID); err == nil && u.Email != "" {
			return u.Email
		}
	}
	if u, err := w.repo.GetInternalUser(ctx, ownerID); err == nil {
		return u.Email
	}
	return ""
}
