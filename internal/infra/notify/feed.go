// Package notify keeps the per-tenant toast feed shown by the dashboards.
package notify

import (
	"sync"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Feed is a bounded ring of recent toasts per company.
type Feed struct {
	mu     sync.RWMutex
	size   int
	rings  map[string][]domain.Toast
	logger *zap.Logger
	now    func() time.Time
}

// NewFeed creates a feed keeping the last size toasts of each company.
func NewFeed(size int, logger *zap.Logger) *Feed {
	if size <= 0 {
		size = 50
	}
	return &Feed{
		size:   size,
		rings:  make(map[string][]domain.Toast),
		logger: logger,
		now:    time.Now,
	}
}

// Success records a success toast.
func (f *Feed) Success(companyID, title, message string) {
	f.push(companyID, domain.ToastSuccess, title, message)
}

// Error records an error toast.
func (f *Feed) Error(companyID, title, message string) {
	f.push(companyID, domain.ToastError, title, message)
}

func (f *Feed) push(companyID string, kind domain.ToastKind, title, message string) {
	t := domain.Toast{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Kind:      kind,
		Title:     title,
		Message:   message,
		CreatedAt: f.now().UTC(),
	}

	f.mu.Lock()
	ring := append(f.rings[companyID], t)
	if len(ring) > f.size {
		ring = append([]domain.Toast(nil), ring[len(ring)-f.size:]...)
	}
	f.rings[companyID] = ring
	f.mu.Unlock()

	f.logger.Debug("toast",
		zap.String("company_id", companyID),
		zap.String("kind", string(kind)),
		zap.String("title", title),
	)
}

// Recent returns the company's toasts newer than since, oldest first.
// A zero since returns the whole ring.
func (f *Feed) Recent(companyID string, since time.Time) []domain.Toast {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]domain.Toast, 0, len(f.rings[companyID]))
	for _, t := range f.rings[companyID] {
		if since.IsZero() || t.CreatedAt.After(since) {
			out = append(out, t)
		}
	}
	return out
}
