package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/observability"
	"github.com/boddenberg/agenda-bfa-go/internal/port"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSweepSchedule runs the trial sweep at the top of every hour.
const DefaultSweepSchedule = "@hourly"

// TrialSweeper periodically notifies companies whose trial has ended. It
// never changes a company's status; that stays with the super admin.
type TrialSweeper struct {
	companies port.EntityStore[domain.Company]
	inbox     *InboxService
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
	timeout   time.Duration

	cron     *cron.Cron
	mu       sync.Mutex
	notified map[string]struct{} // company ids notified by this process
}

// NewTrialSweeper creates the sweeper.
func NewTrialSweeper(companies port.EntityStore[domain.Company], inbox *InboxService, metrics *observability.Metrics, logger *zap.Logger) *TrialSweeper {
	return &TrialSweeper{
		companies: companies,
		inbox:     inbox,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
		timeout:   time.Minute,
		cron:      cron.New(),
		notified:  make(map[string]struct{}),
	}
}

// WithClock replaces the sweeper's time source.
func (t *TrialSweeper) WithClock(now func() time.Time) *TrialSweeper {
	t.now = now
	return t
}

// Start schedules the sweep. schedule is a standard cron expression or a
// descriptor such as "@hourly".
func (t *TrialSweeper) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	_, err := t.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		if _, err := t.Sweep(ctx); err != nil {
			t.logger.Error("trial sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule trial sweep %q: %w", schedule, err)
	}
	t.cron.Start()
	t.logger.Info("trial sweeper started", zap.String("schedule", schedule))
	return nil
}

// Stop halts the schedule and waits for a running sweep, bounded by ctx.
func (t *TrialSweeper) Stop(ctx context.Context) {
	done := t.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	t.logger.Info("trial sweeper stopped")
}

// Sweep notifies every company whose trial expired and was not notified yet,
// and returns how many notifications it sent.
func (t *TrialSweeper) Sweep(ctx context.Context) (int, error) {
	companies, err := t.companies.List(ctx)
	if err != nil {
		return 0, err
	}

	now := t.now()
	expired := 0
	sent := 0
	for _, c := range companies {
		if c.Trial(now).State != domain.TrialExpired {
			continue
		}
		expired++
		if t.seen(c.ID) {
			continue
		}
		_, err := t.inbox.Notify(ctx, c.ID,
			"Período de teste encerrado",
			"O período de teste da sua empresa terminou. Escolha um plano para continuar usando a agenda.",
			"trial",
		)
		if err != nil {
			t.logger.Warn("trial notification failed",
				zap.String("company_id", c.ID),
				zap.Error(err),
			)
			continue
		}
		t.mark(c.ID)
		sent++
	}

	t.metrics.SetExpiredTrials(expired)
	t.logger.Info("trial sweep finished",
		zap.Int("expired", expired),
		zap.Int("notified", sent),
	)
	return sent, nil
}

func (t *TrialSweeper) seen(companyID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.notified[companyID]
	return ok
}

func (t *TrialSweeper) mark(companyID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notified[companyID] = struct{}{}
}
