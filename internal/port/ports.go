// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
)

// EntityStore is the remote CRUD surface of one tenant-owned entity.
// Implemented by supabase.Table.
type EntityStore[T domain.Record] interface {
	List(ctx context.Context) ([]T, error)
	ListByCompany(ctx context.Context, companyID string) ([]T, error)
	FindBy(ctx context.Context, column, value string) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, e T) (T, error)
	// Update fails with a stale ErrConflict when the stored version differs.
	Update(ctx context.Context, e T, version string) (T, error)
	Delete(ctx context.Context, companyID, id string) error
}

// ProfileStore resolves and links auth users to companies.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*domain.Identity, error)
	LinkProfile(ctx context.Context, userID, companyID string, role domain.Role) error
}

// ProfessionalProvisioner runs the create-professional function.
type ProfessionalProvisioner interface {
	CreateProfessionalUser(ctx context.Context, invite domain.ProfessionalInvite) (*domain.ProfessionalInviteResult, error)
}

// HealthChecker probes a dependency.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Len() int
}

// Confirmer asks the user a yes/no question and waits for the answer.
type Confirmer interface {
	Confirm(ctx context.Context, prompt domain.Prompt) (bool, error)
}

// Notifier records user-facing toasts for a tenant.
type Notifier interface {
	Success(companyID, title, message string)
	Error(companyID, title, message string)
}

// Prefs is the non-authoritative key-value store for preferences
// (branding, landing drafts). Values are JSON blobs.
type Prefs interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
