package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCoupon(h *harness, maxUses int) domain.Coupon {
	return h.coupons.put(domain.Coupon{
		ID:            "cup-1",
		CompanyID:     companyA,
		Code:          "PROMO10",
		DiscountType:  domain.DiscountPercentage,
		DiscountValue: dec("10"),
		MaxUses:       maxUses,
		IsActive:      true,
	})
}

// bumpUsage simulates a concurrent redemption landing between our read and
// our write.
func bumpUsage(h *harness, id string) func() {
	return func() {
		c, _ := h.coupons.row(id)
		c.UsedCount++
		h.coupons.put(c)
	}
}

func TestCoupons_CreateNormalizesAndRejectsDuplicates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	view, err := h.svc.Coupons.Create(ctx, adminA, domain.Coupon{
		Code:          " verao20 ",
		DiscountType:  domain.DiscountFixed,
		DiscountValue: dec("20"),
		UsedCount:     7,
		IsActive:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, "VERAO20", view.Code)
	assert.Equal(t, 0, view.UsedCount)
	assert.Equal(t, domain.CouponActive, view.Status)

	_, err = h.svc.Coupons.Create(ctx, adminA, domain.Coupon{Code: "Verao20", DiscountType: domain.DiscountFixed, DiscountValue: dec("5")})
	var conflict *domain.ErrConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.ConflictDuplicate, conflict.Kind)

	// Codes are unique per company only.
	_, err = h.svc.Coupons.Create(ctx, adminB, domain.Coupon{Code: "VERAO20", DiscountType: domain.DiscountFixed, DiscountValue: dec("5")})
	assert.NoError(t, err)
}

func TestCoupons_UpdateCannotTouchUsage(t *testing.T) {
	h := newHarness(t)
	seedCoupon(h, 5)

	view, err := h.svc.Coupons.Update(context.Background(), adminA, "cup-1", "", json.RawMessage(`{"usedCount":5,"description":"Semana do cliente"}`))
	require.NoError(t, err)
	assert.Equal(t, 0, view.UsedCount)
	assert.Equal(t, "Semana do cliente", view.Description)
}

func TestCoupons_RedeemIncrementsUntilExhausted(t *testing.T) {
	h := newHarness(t)
	seedCoupon(h, 2)
	ctx := context.Background()

	view, err := h.svc.Coupons.Redeem(ctx, adminA, "cup-1")
	require.NoError(t, err)
	assert.Equal(t, 1, view.UsedCount)
	assert.Equal(t, domain.CouponActive, view.Status)

	view, err = h.svc.Coupons.Redeem(ctx, adminA, "cup-1")
	require.NoError(t, err)
	assert.Equal(t, 2, view.UsedCount)
	assert.Equal(t, domain.CouponExhausted, view.Status)

	_, err = h.svc.Coupons.Redeem(ctx, adminA, "cup-1")
	var unavailable *domain.ErrCouponUnavailable
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, domain.CouponExhausted, unavailable.Status)
	assert.Equal(t, "Cupom indisponível", h.lastToast(companyA).Title)

	row, _ := h.coupons.row("cup-1")
	assert.Equal(t, 2, row.UsedCount)
}

func TestCoupons_RedeemRetriesAfterConcurrentUse(t *testing.T) {
	h := newHarness(t)
	seedCoupon(h, 2)
	h.coupons.beforeUpdate = bumpUsage(h, "cup-1")

	view, err := h.svc.Coupons.Redeem(context.Background(), adminA, "cup-1")
	require.NoError(t, err)
	assert.Equal(t, 2, view.UsedCount)
	assert.Equal(t, int32(2), h.coupons.updates.Load())
}

func TestCoupons_RedeemNeverOverspendsLastUse(t *testing.T) {
	h := newHarness(t)
	seedCoupon(h, 1)
	h.coupons.beforeUpdate = bumpUsage(h, "cup-1")

	_, err := h.svc.Coupons.Redeem(context.Background(), adminA, "cup-1")

	var unavailable *domain.ErrCouponUnavailable
	require.ErrorAs(t, err, &unavailable)
	row, _ := h.coupons.row("cup-1")
	assert.Equal(t, 1, row.UsedCount)
}

func TestCoupons_RedeemOtherTenantIsNotFound(t *testing.T) {
	h := newHarness(t)
	seedCoupon(h, 0)

	_, err := h.svc.Coupons.Redeem(context.Background(), adminB, "cup-1")

	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, int32(0), h.coupons.updates.Load())
}

func TestCoupons_ExpiredCannotBeRedeemed(t *testing.T) {
	h := newHarness(t)
	c := seedCoupon(h, 0)
	yesterday := h.now.Add(-24 * time.Hour)
	c.ExpiresAt = &yesterday
	h.coupons.put(c)

	_, err := h.svc.Coupons.Redeem(context.Background(), adminA, "cup-1")

	var unavailable *domain.ErrCouponUnavailable
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, domain.CouponExpired, unavailable.Status)
}

func TestCoupons_Quote(t *testing.T) {
	h := newHarness(t)
	seedCoupon(h, 0)
	ctx := context.Background()

	price, view, err := h.svc.Coupons.Quote(ctx, adminA, "promo10", dec("50"))
	require.NoError(t, err)
	assert.True(t, price.Equal(dec("45")), "got %s", price)
	assert.Equal(t, "PROMO10", view.Code)

	row, _ := h.coupons.row("cup-1")
	assert.Equal(t, 0, row.UsedCount, "quoting does not consume")

	_, _, err = h.svc.Coupons.Quote(ctx, adminA, "NOPE", dec("50"))
	var nf *domain.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestCoupons_ListNewestFirst(t *testing.T) {
	h := newHarness(t)
	seedCoupon(h, 0)
	h.coupons.put(domain.Coupon{ID: "cup-2", CompanyID: companyA, Code: "NOVO", DiscountType: domain.DiscountFixed, DiscountValue: dec("5"), IsActive: false})

	list, err := h.svc.Coupons.List(context.Background(), adminA)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "cup-2", list[0].ID)
	assert.Equal(t, domain.CouponInactive, list[0].Status)
}

func TestCoupons_UpdateCannotLowerLimitBelowUsage(t *testing.T) {
	h := newHarness(t)
	c := seedCoupon(h, 10)
	c.UsedCount = 5
	h.coupons.put(c)

	_, err := h.svc.Coupons.Update(context.Background(), adminA, "cup-1", "", json.RawMessage(`{"maxUses":2}`))

	var invalid *domain.ErrValidation
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "maxUses", invalid.Field)
	assert.Equal(t, int32(0), h.coupons.updates.Load())

	row, _ := h.coupons.row("cup-1")
	assert.Equal(t, 10, row.MaxUses)
}
