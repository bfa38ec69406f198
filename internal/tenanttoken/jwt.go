// Package tenanttoken issues and validates the HS256 bearer tokens that
// scope every gateway call to a tenant. Tenant identity never travels in
// the request body; it is always derived from the token.
package tenanttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "evigate/pkg/domain"
	dErrors "evigate/pkg/domain-errors"
)

// Claims are the JWT claims carried by evidence-gateway access tokens.
type Claims struct {
	TenantID string `json:"tenant_id"`
	Subject  string `json:"sub_name,omitempty"`
	jwt.RegisteredClaims
}

// Service handles token creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
}

func NewService(signingKey string, issuer string) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// Generate mints a tenant-scoped access token. Used by operator tooling and
// integration tests; production deployments typically mint tokens upstream.
func (s *Service) Generate(tenantID id.TenantID, subject string, expiresIn time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		TenantID: tenantID.String(),
		Subject:  subject,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// Validate parses and verifies a token, returning the tenant it scopes.
func (s *Service) Validate(tokenString string) (id.TenantID, *Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return id.TenantID{}, nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return id.TenantID{}, nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return id.TenantID{}, nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return id.TenantID{}, nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	tenantID, err := id.ParseTenantID(claims.TenantID)
	if err != nil || tenantID.IsNil() {
		return id.TenantID{}, nil, dErrors.New(dErrors.CodeUnauthorized, "token carries no tenant")
	}
	return tenantID, claims, nil
}

// ValidateTenant is the narrow form the HTTP middleware consumes.
func (s *Service) ValidateTenant(tokenString string) (id.TenantID, error) {
	tenantID, _, err := s.Validate(tokenString)
	return tenantID, err
}
