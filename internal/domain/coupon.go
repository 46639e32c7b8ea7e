package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType selects how a coupon discount is applied.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// CouponStatus is the computed availability of a coupon.
type CouponStatus string

const (
	CouponActive    CouponStatus = "active"
	CouponInactive  CouponStatus = "inactive"
	CouponExpired   CouponStatus = "expired"
	CouponExhausted CouponStatus = "exhausted"
)

// Coupon is a promotional code, unique per tenant.
type Coupon struct {
	ID            string          `json:"id"`
	CompanyID     string          `json:"companyId"`
	Code          string          `json:"code"`
	Description   string          `json:"description,omitempty"`
	DiscountType  DiscountType    `json:"discountType"`
	DiscountValue decimal.Decimal `json:"discountValue"`
	MaxUses       int             `json:"maxUses"` // 0 = unlimited
	UsedCount     int             `json:"usedCount"`
	ExpiresAt     *time.Time      `json:"expiresAt,omitempty"`
	IsActive      bool            `json:"isActive"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (c Coupon) RecordID() string { return c.ID }
func (c Coupon) Tenant() string   { return c.CompanyID }
func (c Coupon) Version() string  { return versionOf(c.UpdatedAt) }

// NormalizeCouponCode upper-cases and trims a code.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Status computes availability at now. Exhaustion wins over the active flag
// and the expiry date.
func (c Coupon) Status(now time.Time) CouponStatus {
	switch {
	case c.MaxUses > 0 && c.UsedCount >= c.MaxUses:
		return CouponExhausted
	case !c.IsActive:
		return CouponInactive
	case c.ExpiresAt != nil && !now.Before(*c.ExpiresAt):
		return CouponExpired
	default:
		return CouponActive
	}
}

// Apply returns price after the discount, never below zero.
func (c Coupon) Apply(price decimal.Decimal) decimal.Decimal {
	var out decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		out = price.Sub(price.Mul(c.DiscountValue).Div(hundred))
	default:
		out = price.Sub(c.DiscountValue)
	}
	if out.IsNegative() {
		return decimal.Zero
	}
	return out.Round(2)
}

// Validate checks code, discount bounds and usage counters.
func (c Coupon) Validate() error {
	if c.Code == "" {
		return &ErrValidation{Field: "code", Message: "Código do cupom é obrigatório"}
	}
	switch c.DiscountType {
	case DiscountPercentage:
		if c.DiscountValue.GreaterThan(hundred) {
			return &ErrValidation{Field: "discountValue", Message: "Desconto percentual não pode passar de 100"}
		}
	case DiscountFixed:
	default:
		return &ErrValidation{Field: "discountType", Message: "Tipo de desconto inválido"}
	}
	if c.DiscountValue.IsNegative() {
		return &ErrValidation{Field: "discountValue", Message: "Desconto não pode ser negativo"}
	}
	if c.MaxUses < 0 || c.UsedCount < 0 {
		return &ErrValidation{Field: "maxUses", Message: "Limites de uso não podem ser negativos"}
	}
	if c.MaxUses > 0 && c.UsedCount > c.MaxUses {
		return &ErrValidation{Field: "maxUses", Message: "Limite de usos não pode ser menor que os usos já registrados"}
	}
	return nil
}

// CouponView adds the computed status to a coupon.
type CouponView struct {
	Coupon
	Status CouponStatus `json:"status"`
}
