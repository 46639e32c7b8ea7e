package service

import (
	"context"
	"sync"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/observability"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ============================================================
// Confirmation gate: FIFO queue of prompts per scope
// ============================================================

type pendingPrompt struct {
	prompt domain.Prompt
	result chan bool
}

// ConfirmationQueue is a re-entrant confirmation gate. Every Confirm call
// enqueues its own prompt and waits on its own result, so concurrent
// destructive actions never overwrite each other. Prompts that are not
// answered within the timeout resolve as cancelled.
type ConfirmationQueue struct {
	mu      sync.Mutex
	queues  map[string][]*pendingPrompt
	timeout time.Duration
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewConfirmationQueue creates the gate. A non-positive timeout waits
// until the caller's context ends.
func NewConfirmationQueue(timeout time.Duration, metrics *observability.Metrics, logger *zap.Logger) *ConfirmationQueue {
	return &ConfirmationQueue{
		queues:  make(map[string][]*pendingPrompt),
		timeout: timeout,
		metrics: metrics,
		logger:  logger,
	}
}

// Confirm opens a prompt in p.CompanyID's queue and blocks until it is
// resolved, times out (false) or ctx ends (ctx.Err()).
func (q *ConfirmationQueue) Confirm(ctx context.Context, p domain.Prompt) (bool, error) {
	now := time.Now().UTC()
	p.ID = uuid.New().String()
	p.State = domain.PromptOpen
	p.CreatedAt = now

	var expired <-chan time.Time
	if q.timeout > 0 {
		exp := now.Add(q.timeout)
		p.ExpiresAt = &exp
		timer := time.NewTimer(q.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	pp := &pendingPrompt{prompt: p, result: make(chan bool, 1)}
	q.mu.Lock()
	q.queues[p.CompanyID] = append(q.queues[p.CompanyID], pp)
	q.mu.Unlock()

	q.logger.Debug("confirmation opened",
		zap.String("scope", p.CompanyID),
		zap.String("prompt_id", p.ID),
		zap.String("title", p.Title),
	)

	select {
	case ok := <-pp.result:
		return ok, nil
	case <-expired:
		if q.take(p.CompanyID, p.ID) != nil {
			q.metrics.RecordConfirmation("timeout")
			q.logger.Info("confirmation timed out",
				zap.String("scope", p.CompanyID),
				zap.String("prompt_id", p.ID),
			)
			return false, nil
		}
		// Resolved concurrently with the timeout.
		return <-pp.result, nil
	case <-ctx.Done():
		if q.take(p.CompanyID, p.ID) != nil {
			q.metrics.RecordConfirmation("abandoned")
			return false, ctx.Err()
		}
		return <-pp.result, nil
	}
}

// Pending lists the open prompts of a scope, oldest first.
func (q *ConfirmationQueue) Pending(scope string) []domain.Prompt {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]domain.Prompt, 0, len(q.queues[scope]))
	for _, pp := range q.queues[scope] {
		out = append(out, pp.prompt)
	}
	return out
}

// Resolve answers the prompt id of a scope and returns it in its final state.
func (q *ConfirmationQueue) Resolve(scope, id string, confirmed bool) (domain.Prompt, error) {
	pp := q.take(scope, id)
	if pp == nil {
		return domain.Prompt{}, &domain.ErrNotFound{Resource: "confirmação", ID: id}
	}
	pp.result <- confirmed

	pp.prompt.State = domain.PromptCancelled
	outcome := "cancelled"
	if confirmed {
		pp.prompt.State = domain.PromptConfirmed
		outcome = "confirmed"
	}
	q.metrics.RecordConfirmation(outcome)
	q.logger.Info("confirmation resolved",
		zap.String("scope", scope),
		zap.String("prompt_id", id),
		zap.String("outcome", outcome),
	)
	return pp.prompt, nil
}

// take removes a prompt from its queue. Only the caller that removes it
// may decide its outcome.
func (q *ConfirmationQueue) take(scope, id string) *pendingPrompt {
	q.mu.Lock()
	defer q.mu.Unlock()

	queue := q.queues[scope]
	for i, pp := range queue {
		if pp.prompt.ID != id {
			continue
		}
		rest := make([]*pendingPrompt, 0, len(queue)-1)
		rest = append(rest, queue[:i]...)
		rest = append(rest, queue[i+1:]...)
		if len(rest) == 0 {
			delete(q.queues, scope)
		} else {
			q.queues[scope] = rest
		}
		return pp
	}
	return nil
}
