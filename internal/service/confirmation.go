package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/boddenberg/finance-entry-bfa-go/internal/domain"
	"github.com/boddenberg/finance-entry-bfa-go/internal/infra/observability"
)

// RunOutcome is the result of ConfirmAndRun.
type RunOutcome string

const (
	RunCompleted RunOutcome = "completed"
	RunCancelled RunOutcome = "cancelled"
	RunFailed    RunOutcome = "failed"
)

type confirmationResult struct {
	confirmed bool
	err       error
}

type pendingConfirmation struct {
	req     domain.ConfirmationRequest
	mailbox chan confirmationResult // capacity 1, written exactly once
}

// ConfirmationHandle is returned to the requester of a confirmation.
type ConfirmationHandle struct {
	id      string
	mailbox <-chan confirmationResult
}

// ID identifies the request in the broker queue.
func (h *ConfirmationHandle) ID() string { return h.id }

// Wait blocks until the request is resolved or ctx is done. A requester that
// stops waiting leaves the request queued; its eventual outcome is discarded.
func (h *ConfirmationHandle) Wait(ctx context.Context) (bool, error) {
	select {
	case res := <-h.mailbox:
		return res.confirmed, res.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// ConfirmationBroker serializes yes/no questions. Requests are shown one at a
// time in arrival order; the head of the queue is the pending confirmation.
type ConfirmationBroker struct {
	mu     sync.Mutex
	queue  []*pendingConfirmation
	closed bool

	toasts  *NotificationQueue
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewConfirmationBroker creates a broker. toasts receives the follow-up
// messages of ConfirmAndRun.
func NewConfirmationBroker(toasts *NotificationQueue, metrics *observability.Metrics, logger *zap.Logger) *ConfirmationBroker {
	return &ConfirmationBroker{
		toasts:  toasts,
		metrics: metrics,
		logger:  logger,
	}
}

// Submit enqueues a confirmation and returns its handle without blocking.
func (b *ConfirmationBroker) Submit(cfg domain.ConfirmationConfig) (*ConfirmationHandle, error) {
	p := &pendingConfirmation{
		req: domain.ConfirmationRequest{
			ID:          uuid.NewString(),
			Config:      withConfirmationDefaults(cfg),
			RequestedAt: time.Now(),
		},
		mailbox: make(chan confirmationResult, 1),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, domain.ErrBrokerClosed
	}
	b.queue = append(b.queue, p)
	depth := len(b.queue)
	b.mu.Unlock()

	b.logger.Debug("confirmation requested",
		zap.String("confirmation_id", p.req.ID),
		zap.String("title", p.req.Config.Title),
		zap.Int("queue_depth", depth),
	)
	return &ConfirmationHandle{id: p.req.ID, mailbox: p.mailbox}, nil
}

// Request asks the question and waits for the answer.
func (b *ConfirmationBroker) Request(ctx context.Context, cfg domain.ConfirmationConfig) (bool, error) {
	h, err := b.Submit(cfg)
	if err != nil {
		return false, err
	}
	return h.Wait(ctx)
}

// Current returns the pending confirmation, if any.
func (b *ConfirmationBroker) Current() (domain.ConfirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.queue) == 0 {
		return domain.ConfirmationRequest{}, false
	}
	req := b.queue[0].req
	req.Queued = len(b.queue) - 1
	return req, true
}

// ResolveCurrent answers the pending confirmation and promotes the next one.
func (b *ConfirmationBroker) ResolveCurrent(confirmed bool) error {
	return b.resolve("", confirmed)
}

// Resolve answers the pending confirmation only if its id matches, so a stale
// answer cannot land on a newer question.
func (b *ConfirmationBroker) Resolve(id string, confirmed bool) error {
	return b.resolve(id, confirmed)
}

func (b *ConfirmationBroker) resolve(id string, confirmed bool) error {
	b.mu.Lock()
	if len(b.queue) == 0 {
		b.mu.Unlock()
		return domain.ErrNoPendingConfirmation
	}
	head := b.queue[0]
	if id != "" && head.req.ID != id {
		b.mu.Unlock()
		return &domain.ErrConflict{Message: fmt.Sprintf("confirmation %s is not the pending one", id)}
	}
	b.queue[0] = nil
	b.queue = b.queue[1:]
	b.mu.Unlock()

	head.mailbox <- confirmationResult{confirmed: confirmed}
	b.metrics.IncrConfirmation(confirmed)
	b.logger.Debug("confirmation resolved",
		zap.String("confirmation_id", head.req.ID),
		zap.Bool("confirmed", confirmed),
	)
	return nil
}

// Close rejects every queued request with ErrBrokerClosed.
func (b *ConfirmationBroker) Close() {
	b.mu.Lock()
	queue := b.queue
	b.queue = nil
	b.closed = true
	b.mu.Unlock()

	for _, p := range queue {
		p.mailbox <- confirmationResult{err: domain.ErrBrokerClosed}
	}
}

// ConfirmAndRun asks for a destructive confirmation and runs action only when
// the user confirms. The user is told about the result through a toast.
// A cancelled confirmation is reported as RunCancelled with a nil error.
func (b *ConfirmationBroker) ConfirmAndRun(ctx context.Context, action func(context.Context) error, itemLabel string) (RunOutcome, error) {
	confirmed, err := b.Request(ctx, DeleteConfirmation(itemLabel))
	if err != nil {
		return RunCancelled, err
	}
	if !confirmed {
		return RunCancelled, nil
	}

	if err := action(ctx); err != nil {
		b.logger.Warn("confirmed action failed",
			zap.String("item", itemLabel),
			zap.Error(err),
		)
		b.toasts.Error(fmt.Sprintf("Failed to delete %s", itemLabel), WithTitle("Error"))
		return RunFailed, err
	}

	b.toasts.Success(fmt.Sprintf("%s deleted successfully", itemLabel), WithTitle("Deleted"))
	return RunCompleted, nil
}

// DeleteConfirmation builds the danger-styled dialog for deleting an item.
func DeleteConfirmation(itemLabel string) domain.ConfirmationConfig {
	return domain.ConfirmationConfig{
		Title:        "Confirm Delete",
		Message:      fmt.Sprintf("Are you sure you want to delete %q? This action cannot be undone.", itemLabel),
		Severity:     domain.ConfirmationDanger,
		ConfirmLabel: "Delete",
		CancelLabel:  "Cancel",
	}
}

func withConfirmationDefaults(cfg domain.ConfirmationConfig) domain.ConfirmationConfig {
	if cfg.Severity == "" {
		cfg.Severity = domain.ConfirmationInfo
	}
	if cfg.ConfirmLabel == "" {
		cfg.ConfirmLabel = "Confirm"
	}
	if cfg.CancelLabel == "" {
		cfg.CancelLabel = "Cancel"
	}
	return cfg
}

// IsAbandoned reports whether err means the requester stopped waiting rather than the user answering.
func IsAbandoned(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrBrokerClosed)
}
