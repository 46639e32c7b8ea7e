package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var couponTracer = otel.Tracer("service/coupons")

const redeemAttempts = 3

// CouponService manages promotional codes. Coupons are not part of the
// working set and are always read from the remote store.
type CouponService struct {
	crud   *Crud[domain.Coupon]
	store  port.EntityStore[domain.Coupon]
	data   *TenantData
	toasts port.Notifier
	now    func() time.Time
	logger *zap.Logger
}

// NewCouponService creates the coupon service.
func NewCouponService(d Deps) *CouponService {
	return &CouponService{
		crud: NewCrud(CrudConfig[domain.Coupon]{
			Entity:   entityCoupon,
			Store:    d.Stores.Coupons,
			Validate: domain.Coupon.Validate,
		}, d.Gate, d.Toasts, d.Metrics, d.Logger),
		store:  d.Stores.Coupons,
		data:   d.Data,
		toasts: d.Toasts,
		now:    d.Now,
		logger: d.Logger,
	}
}

// List returns the company's coupons with their status at now, newest first.
func (s *CouponService) List(ctx context.Context, ident domain.Identity) ([]domain.CouponView, error) {
	coupons, err := s.load(ctx, ident)
	if err != nil {
		return nil, err
	}
	now := s.now()
	sort.SliceStable(coupons, func(i, j int) bool {
		return coupons[i].CreatedAt.After(coupons[j].CreatedAt)
	})
	out := make([]domain.CouponView, 0, len(coupons))
	for _, c := range coupons {
		out = append(out, domain.CouponView{Coupon: c, Status: c.Status(now)})
	}
	return out, nil
}

// Create adds a coupon. Codes are upper-cased and unique per company.
func (s *CouponService) Create(ctx context.Context, ident domain.Identity, c domain.Coupon) (domain.CouponView, error) {
	ctx, span := couponTracer.Start(ctx, "CouponService.Create")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", ident.CompanyID))

	existing, err := s.load(ctx, ident)
	if err != nil {
		return domain.CouponView{}, err
	}
	c.ID = uuid.New().String()
	c.CompanyID = ident.CompanyID
	c.Code = domain.NormalizeCouponCode(c.Code)
	c.UsedCount = 0
	if err := codeTaken(existing, c); err != nil {
		s.toasts.Error(tenantScope(ident.CompanyID), "Erro ao criar cupom", err.Error())
		return domain.CouponView{}, err
	}
	created, err := s.crud.Create(ctx, nil, c)
	if err != nil {
		return domain.CouponView{}, err
	}
	return domain.CouponView{Coupon: created, Status: created.Status(s.now())}, nil
}

// Update patches a coupon. usedCount only changes through Redeem.
func (s *CouponService) Update(ctx context.Context, ident domain.Identity, id, version string, patch json.RawMessage) (domain.CouponView, error) {
	existing, err := s.load(ctx, ident)
	if err != nil {
		return domain.CouponView{}, err
	}
	policy := PatchPolicy{Protected: []string{"usedCount"}}
	updated, err := s.crud.Update(ctx, nil, ident.CompanyID, id, version,
		mergePatch(patch, policy, func(_, next *domain.Coupon) error {
			next.Code = domain.NormalizeCouponCode(next.Code)
			return codeTaken(existing, *next)
		}))
	if err != nil {
		return domain.CouponView{}, err
	}
	return domain.CouponView{Coupon: updated, Status: updated.Status(s.now())}, nil
}

// Delete removes a coupon after confirmation.
func (s *CouponService) Delete(ctx context.Context, ident domain.Identity, id string) (bool, error) {
	if !ident.HasTenant() {
		return false, &domain.ErrForbidden{Action: "excluir cupom sem empresa vinculada"}
	}
	return s.crud.Remove(ctx, nil, ident.CompanyID, id, "")
}

// Redeem consumes one use of a coupon. The increment is written with the
// version check and retried on a stale version, so two concurrent
// redemptions can never both take the last use.
func (s *CouponService) Redeem(ctx context.Context, ident domain.Identity, id string) (domain.CouponView, error) {
	ctx, span := couponTracer.Start(ctx, "CouponService.Redeem")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", ident.CompanyID), attribute.String("coupon.id", id))

	if !ident.HasTenant() {
		return domain.CouponView{}, &domain.ErrForbidden{Action: "resgatar cupom sem empresa vinculada"}
	}
	scope := tenantScope(ident.CompanyID)

	var lastErr error
	for attempt := 1; attempt <= redeemAttempts; attempt++ {
		c, err := s.store.Get(ctx, id)
		if err != nil {
			return domain.CouponView{}, err
		}
		if c.CompanyID != ident.CompanyID {
			return domain.CouponView{}, &domain.ErrNotFound{Resource: "cupom", ID: id}
		}
		now := s.now()
		if st := c.Status(now); st != domain.CouponActive {
			err := &domain.ErrCouponUnavailable{Code: c.Code, Status: st}
			s.toasts.Error(scope, "Cupom indisponível", err.Error())
			return domain.CouponView{}, err
		}

		next := c
		next.UsedCount++
		updated, err := s.store.Update(ctx, next, c.Version())
		if err == nil {
			s.logger.Info("coupon redeemed",
				zap.String("company_id", ident.CompanyID),
				zap.String("id", id),
				zap.Int("used_count", updated.UsedCount),
			)
			return domain.CouponView{Coupon: updated, Status: updated.Status(now)}, nil
		}

		var conflict *domain.ErrConflict
		if !errors.As(err, &conflict) || conflict.Kind != domain.ConflictStale {
			s.toasts.Error(scope, "Erro ao resgatar cupom", err.Error())
			return domain.CouponView{}, err
		}
		lastErr = err
		s.logger.Debug("coupon redeem raced, retrying",
			zap.String("company_id", ident.CompanyID),
			zap.String("id", id),
			zap.Int("attempt", attempt),
		)
	}
	s.toasts.Error(scope, "Erro ao resgatar cupom", lastErr.Error())
	return domain.CouponView{}, lastErr
}

// Quote applies an active coupon to price without consuming it.
func (s *CouponService) Quote(ctx context.Context, ident domain.Identity, code string, price decimal.Decimal) (decimal.Decimal, domain.CouponView, error) {
	coupons, err := s.load(ctx, ident)
	if err != nil {
		return decimal.Zero, domain.CouponView{}, err
	}
	code = domain.NormalizeCouponCode(code)
	now := s.now()
	for _, c := range coupons {
		if c.Code != code {
			continue
		}
		view := domain.CouponView{Coupon: c, Status: c.Status(now)}
		if view.Status != domain.CouponActive {
			return price, view, &domain.ErrCouponUnavailable{Code: c.Code, Status: view.Status}
		}
		return c.Apply(price), view, nil
	}
	return price, domain.CouponView{}, &domain.ErrNotFound{Resource: "cupom", ID: code}
}

func (s *CouponService) load(ctx context.Context, ident domain.Identity) ([]domain.Coupon, error) {
	if !ident.HasTenant() {
		return nil, &domain.ErrForbidden{Action: "acessar cupons sem empresa vinculada"}
	}
	rows, err := s.store.ListByCompany(ctx, ident.CompanyID)
	if err != nil {
		return nil, err
	}
	return isolate(s.data, ident.CompanyID, "coupons", rows), nil
}

func codeTaken(existing []domain.Coupon, c domain.Coupon) error {
	for _, other := range existing {
		if other.ID != c.ID && other.Code == c.Code {
			return &domain.ErrConflict{Kind: domain.ConflictDuplicate, Message: "Já existe um cupom com este código"}
		}
	}
	return nil
}
