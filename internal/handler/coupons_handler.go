package handler

import (
	"net/http"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ============================================================
// Coupons: CRUD, redemption and price quotes
// ============================================================

func listCouponsHandler(coupons *service.CouponService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/company/coupons")
		defer span.End()

		list, err := coupons.List(ctx, IdentityFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func createCouponHandler(coupons *service.CouponService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/company/coupons")
		defer span.End()

		var req domain.Coupon
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		created, err := coupons.Create(ctx, IdentityFromContext(ctx), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusCreated, created)
	}
}

func updateCouponHandler(coupons *service.CouponService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/company/coupons/{id}")
		defer span.End()

		patch, version, err := readPatch(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		updated, err := coupons.Update(ctx, IdentityFromContext(ctx), chi.URLParam(r, "id"), version, patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusOK, updated)
	}
}

func deleteCouponHandler(coupons *service.CouponService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/company/coupons/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		ok, err := coupons.Delete(ctx, IdentityFromContext(ctx), id)
		writeRemoved(w, ok, err, id, "excluir cupom", logger)
	}
}

func redeemCouponHandler(coupons *service.CouponService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/company/coupons/{id}/redeem")
		defer span.End()

		redeemed, err := coupons.Redeem(ctx, IdentityFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeRecord(w, http.StatusOK, redeemed)
	}
}

type quoteRequest struct {
	Code  string          `json:"code"`
	Price decimal.Decimal `json:"price"`
}

type quoteResponse struct {
	Code          string          `json:"code"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	FinalPrice    decimal.Decimal `json:"finalPrice"`
	Discount      decimal.Decimal `json:"discount"`
}

func quoteCouponHandler(coupons *service.CouponService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/company/coupons/quote")
		defer span.End()

		var req quoteRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		final, view, err := coupons.Quote(ctx, IdentityFromContext(ctx), req.Code, req.Price)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, quoteResponse{
			Code:          view.Code,
			OriginalPrice: req.Price,
			FinalPrice:    final,
			Discount:      req.Price.Sub(final),
		})
	}
}
