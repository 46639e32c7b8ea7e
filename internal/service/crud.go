package service

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/observability"
	"github.com/boddenberg/agenda-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var crudTracer = otel.Tracer("service/crud")

// PlatformScope keys the toasts and prompts of super-admin actions, which
// are not bound to a company.
const PlatformScope = "platform"

func tenantScope(companyID string) string {
	if companyID == "" {
		return PlatformScope
	}
	return companyID
}

// ScopeOf returns the toast/prompt scope of an identity.
func ScopeOf(ident domain.Identity) string {
	if ident.Role == domain.RoleSuperAdmin {
		return PlatformScope
	}
	return tenantScope(ident.CompanyID)
}

// Entity names a collection in user-facing messages.
type Entity struct {
	Name     string // lower-case singular, e.g. "serviço"
	Feminine bool
}

func (e Entity) title() string {
	r, size := utf8.DecodeRuneInString(e.Name)
	return string(unicode.ToUpper(r)) + e.Name[size:]
}

func (e Entity) done(verb string) string {
	// verb is the masculine participle, e.g. "criado"
	if e.Feminine {
		verb = strings.TrimSuffix(verb, "o") + "a"
	}
	return fmt.Sprintf("%s %s com sucesso", e.title(), verb)
}

func (e Entity) this() string {
	if e.Feminine {
		return "esta " + e.Name
	}
	return "este " + e.Name
}

// CrudConfig describes one entity for the CRUD orchestrator.
type CrudConfig[T domain.Record] struct {
	Entity   Entity
	Store    port.EntityStore[T]
	Validate func(T) error
	// AppendOnly entities can never be removed.
	AppendOnly bool
}

// Crud wraps an entity store with local-collection updates, toasts and a
// confirmation gate in front of deletes. The collection is touched only
// after the remote call succeeds.
type Crud[T domain.Record] struct {
	entity     Entity
	store      port.EntityStore[T]
	validate   func(T) error
	appendOnly bool
	gate       port.Confirmer
	toasts     port.Notifier
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewCrud creates a CRUD orchestrator for one entity.
func NewCrud[T domain.Record](cfg CrudConfig[T], gate port.Confirmer, toasts port.Notifier, metrics *observability.Metrics, logger *zap.Logger) *Crud[T] {
	validate := cfg.Validate
	if validate == nil {
		validate = func(T) error { return nil }
	}
	return &Crud[T]{
		entity:     cfg.Entity,
		store:      cfg.Store,
		validate:   validate,
		appendOnly: cfg.AppendOnly,
		gate:       gate,
		toasts:     toasts,
		metrics:    metrics,
		logger:     logger,
	}
}

// Store exposes the underlying remote store.
func (c *Crud[T]) Store() port.EntityStore[T] { return c.store }

// Create validates e, writes it remotely and upserts the stored
// representation into col. Toasts go to e's company.
func (c *Crud[T]) Create(ctx context.Context, col *Collection[T], e T) (T, error) {
	return c.CreateAs(ctx, col, tenantScope(e.Tenant()), e)
}

// CreateAs is Create with the toasts sent to scope.
func (c *Crud[T]) CreateAs(ctx context.Context, col *Collection[T], scope string, e T) (T, error) {
	ctx, span := crudTracer.Start(ctx, "Crud.Create")
	defer span.End()
	span.SetAttributes(attribute.String("entity", c.entity.Name), attribute.String("company.id", e.Tenant()))

	var zero T

	if err := c.validate(e); err != nil {
		c.metrics.RecordCrud(c.entity.Name, "create", "invalid")
		c.toasts.Error(scope, "Erro ao criar "+c.entity.Name, err.Error())
		return zero, err
	}

	created, err := c.store.Create(ctx, e)
	if err != nil {
		c.fail(scope, "create", "Erro ao criar "+c.entity.Name, e.RecordID(), err)
		return zero, err
	}

	col.Upsert(created)
	c.metrics.RecordCrud(c.entity.Name, "create", "success")
	c.toasts.Success(scope, c.entity.done("criado"), "")
	c.logger.Info("entity created",
		zap.String("entity", c.entity.Name),
		zap.String("company_id", created.Tenant()),
		zap.String("id", created.RecordID()),
	)
	return created, nil
}

// Update applies a partial change to the entity id owned by companyID
// (empty for platform-wide entities) and writes it with the version check.
// An empty version uses the version of the local copy.
func (c *Crud[T]) Update(ctx context.Context, col *Collection[T], companyID, id, version string, apply func(*T) error) (T, error) {
	ctx, span := crudTracer.Start(ctx, "Crud.Update")
	defer span.End()
	span.SetAttributes(attribute.String("entity", c.entity.Name), attribute.String("id", id))

	var zero T
	scope := tenantScope(companyID)
	title := "Erro ao atualizar " + c.entity.Name

	current, err := c.current(ctx, col, companyID, id)
	if err != nil {
		c.fail(scope, "update", title, id, err)
		return zero, err
	}

	next := current
	if err := apply(&next); err != nil {
		c.metrics.RecordCrud(c.entity.Name, "update", "invalid")
		c.toasts.Error(scope, title, err.Error())
		return zero, err
	}
	if next.RecordID() != current.RecordID() || next.Tenant() != current.Tenant() {
		err := &domain.ErrValidation{Field: "id", Message: "Identificador e empresa não podem ser alterados"}
		c.metrics.RecordCrud(c.entity.Name, "update", "invalid")
		c.toasts.Error(scope, title, err.Error())
		return zero, err
	}
	if err := c.validate(next); err != nil {
		c.metrics.RecordCrud(c.entity.Name, "update", "invalid")
		c.toasts.Error(scope, title, err.Error())
		return zero, err
	}

	if version == "" {
		version = current.Version()
	}
	updated, err := c.store.Update(ctx, next, version)
	if err != nil {
		c.fail(scope, "update", title, id, err)
		return zero, err
	}

	col.Upsert(updated)
	c.metrics.RecordCrud(c.entity.Name, "update", "success")
	c.toasts.Success(scope, c.entity.done("atualizado"), "")
	return updated, nil
}

// Remove asks for confirmation and, only if confirmed, deletes the entity
// remotely and drops it from col. It reports false when the user declined.
func (c *Crud[T]) Remove(ctx context.Context, col *Collection[T], companyID, id, displayName string) (bool, error) {
	ctx, span := crudTracer.Start(ctx, "Crud.Remove")
	defer span.End()
	span.SetAttributes(attribute.String("entity", c.entity.Name), attribute.String("id", id))

	scope := tenantScope(companyID)
	title := "Erro ao excluir " + c.entity.Name

	if c.appendOnly {
		return false, &domain.ErrForbidden{Action: "excluir " + c.entity.Name}
	}

	current, err := c.current(ctx, col, companyID, id)
	if err != nil {
		c.fail(scope, "delete", title, id, err)
		return false, err
	}

	if displayName == "" {
		displayName = c.entity.this()
	}
	confirmed, err := c.gate.Confirm(ctx, domain.Prompt{
		CompanyID:   scope,
		Title:       "Excluir " + c.entity.Name,
		Description: fmt.Sprintf("Tem certeza que deseja excluir %s? Esta ação não pode ser desfeita.", displayName),
		ConfirmText: "Excluir",
		CancelText:  "Cancelar",
		Destructive: true,
	})
	if err != nil {
		return false, err
	}
	if !confirmed {
		c.metrics.RecordCrud(c.entity.Name, "delete", "declined")
		c.logger.Info("delete declined",
			zap.String("entity", c.entity.Name),
			zap.String("company_id", companyID),
			zap.String("id", id),
		)
		return false, nil
	}

	if err := c.store.Delete(ctx, current.Tenant(), id); err != nil {
		c.fail(scope, "delete", title, id, err)
		return false, err
	}

	col.Remove(id)
	c.metrics.RecordCrud(c.entity.Name, "delete", "success")
	c.toasts.Success(scope, c.entity.done("excluído"), "")
	c.logger.Info("entity deleted",
		zap.String("entity", c.entity.Name),
		zap.String("company_id", current.Tenant()),
		zap.String("id", id),
	)
	return true, nil
}

// current returns the local copy, falling back to the remote store. Entities
// of another company are reported as not found.
func (c *Crud[T]) current(ctx context.Context, col *Collection[T], companyID, id string) (T, error) {
	e, ok := col.Find(id)
	if !ok {
		var err error
		e, err = c.store.Get(ctx, id)
		if err != nil {
			return e, err
		}
	}
	if companyID != "" && e.Tenant() != companyID {
		var zero T
		return zero, &domain.ErrNotFound{Resource: c.entity.Name, ID: id}
	}
	return e, nil
}

func (c *Crud[T]) fail(scope, op, title, id string, err error) {
	c.metrics.RecordCrud(c.entity.Name, op, "failure")
	c.toasts.Error(scope, title, err.Error())
	c.logger.Error("crud operation failed",
		zap.String("entity", c.entity.Name),
		zap.String("op", op),
		zap.String("scope", scope),
		zap.String("id", id),
		zap.Error(err),
	)
}
