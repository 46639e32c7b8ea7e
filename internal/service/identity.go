package service

import (
	"context"
	"errors"
	"strings"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var identityTracer = otel.Tracer("service/identity")

// AccessClaims are the claims of a Supabase access token the BFA relies on.
type AccessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// IdentityService resolves bearer tokens into identities. The company and
// role come from the profiles table and are cached per user.
type IdentityService struct {
	secret   []byte
	profiles port.ProfileStore
	cache    port.Cache[domain.Identity]
	logger   *zap.Logger
}

// NewIdentityService creates the identity service.
func NewIdentityService(secret string, profiles port.ProfileStore, cache port.Cache[domain.Identity], logger *zap.Logger) *IdentityService {
	return &IdentityService{
		secret:   []byte(secret),
		profiles: profiles,
		cache:    cache,
		logger:   logger,
	}
}

// ParseToken validates an HS256 access token and returns its claims.
func (s *IdentityService) ParseToken(tokenString string) (*AccessClaims, error) {
	if len(s.secret) == 0 {
		return nil, &domain.ErrUnauthorized{Message: "Autenticação não configurada"}
	}
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &domain.ErrUnauthorized{Message: "Token expirado"}
		}
		return nil, &domain.ErrUnauthorized{Message: "Token inválido ou expirado"}
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido"}
	}
	return claims, nil
}

// Authenticate resolves a bearer token into the caller's identity. A user
// without a profile row yet is returned without company and role.
func (s *IdentityService) Authenticate(ctx context.Context, tokenString string) (domain.Identity, error) {
	ctx, span := identityTracer.Start(ctx, "IdentityService.Authenticate")
	defer span.End()

	claims, err := s.ParseToken(strings.TrimSpace(tokenString))
	if err != nil {
		return domain.Identity{}, err
	}
	userID := claims.Subject

	if ident, ok := s.cache.Get(userID); ok {
		return ident, nil
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	var nf *domain.ErrNotFound
	switch {
	case errors.As(err, &nf):
		s.logger.Debug("no profile for user", zap.String("user_id", userID))
		return domain.Identity{UserID: userID, Email: claims.Email}, nil
	case err != nil:
		return domain.Identity{}, err
	}

	ident := *profile
	ident.UserID = userID
	if ident.Email == "" {
		ident.Email = claims.Email
	}
	s.cache.Set(userID, ident)
	return ident, nil
}

// Forget drops the cached profile of a user, so the next request sees a
// changed company or role.
func (s *IdentityService) Forget(userID string) {
	s.cache.Delete(userID)
}
