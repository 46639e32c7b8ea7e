package service

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/port"

	"go.uber.org/zap"
)

// MaxLandingDraftBytes bounds an autosaved landing-page draft.
const MaxLandingDraftBytes = 256 << 10

// LandingDrafts stores the landing-page editor's autosave per company. The
// draft is an opaque JSON object.
type LandingDrafts struct {
	prefs  port.Prefs
	logger *zap.Logger
}

// NewLandingDrafts creates the draft store.
func NewLandingDrafts(prefs port.Prefs, logger *zap.Logger) *LandingDrafts {
	return &LandingDrafts{prefs: prefs, logger: logger}
}

func landingKey(companyID string) string { return "landing:" + companyID }

// Get returns the caller's draft, or an empty object.
func (l *LandingDrafts) Get(ctx context.Context, ident domain.Identity) (json.RawMessage, error) {
	if !ident.HasTenant() {
		return nil, &domain.ErrForbidden{Action: "acessar rascunho sem empresa vinculada"}
	}
	raw, ok, err := l.prefs.Get(ctx, landingKey(ident.CompanyID))
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "prefs", Err: err}
	}
	if !ok {
		return json.RawMessage(`{}`), nil
	}
	return raw, nil
}

// Save replaces the caller's draft.
func (l *LandingDrafts) Save(ctx context.Context, ident domain.Identity, draft json.RawMessage) error {
	if !ident.HasTenant() {
		return &domain.ErrForbidden{Action: "salvar rascunho sem empresa vinculada"}
	}
	if len(draft) > MaxLandingDraftBytes {
		return &domain.ErrValidation{Field: "body", Message: "Rascunho excede o tamanho máximo"}
	}
	trimmed := bytes.TrimSpace(draft)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return &domain.ErrValidation{Field: "body", Message: "Rascunho deve ser um objeto JSON"}
	}
	if err := l.prefs.Set(ctx, landingKey(ident.CompanyID), trimmed); err != nil {
		return &domain.ErrExternalService{Service: "prefs", Err: err}
	}
	l.logger.Debug("landing draft saved",
		zap.String("company_id", ident.CompanyID),
		zap.Int("bytes", len(trimmed)),
	)
	return nil
}
