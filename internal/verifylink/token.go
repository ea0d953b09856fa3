// Package verifylink issues and resolves signed share tokens for the public
// verification lookup. A token grants read access to one contractor's
// aggregate compliance, nothing else.
package verifylink

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"paygate/pkg/domain"
	dErrors "paygate/pkg/domain-errors"
)

// Claims are the share token claims. The subject is the contractor ID.
type Claims struct {
	ContractorID string `json:"contractor_id"`
	jwt.RegisteredClaims
}

// Signer creates and verifies share tokens with an HMAC key.
type Signer struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

func NewSigner(signingKey string, ttl time.Duration) *Signer {
	return &Signer{
		signingKey: []byte(signingKey),
		issuer:     "paygate",
		ttl:        ttl,
	}
}

// Issue signs a token for the contractor, valid from now for the configured
// TTL.
func (s *Signer) Issue(contractorID domain.ContractorID, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ContractorID: contractorID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   contractorID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Resolve verifies a token and returns the contractor it grants access to.
func (s *Signer) Resolve(tokenString string) (domain.ContractorID, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.ContractorID{}, dErrors.New(dErrors.CodeUnauthorized, "share link has expired")
		}
		return domain.ContractorID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid share link")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.ContractorID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid share link")
	}

	contractorID, err := domain.ParseContractorID(claims.ContractorID)
	if err != nil {
		return domain.ContractorID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid share link")
	}
	return contractorID, nil
}
