package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// ApprovalClaims is the payload of a signed approve/reject link.
// Links are mailed to reviewers, so tokens are short-lived and scoped
// to a single content record.
type ApprovalClaims struct {
	jwt.RegisteredClaims
	ContentID int64 `json:"content_id"`
}

// Manager mints and verifies approval link tokens
type Manager struct {
	secretKey []byte
	ttl       time.Duration
}

// NewManager creates a token manager with the given signing secret and lifetime
func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secretKey: []byte(secret), ttl: ttl}
}

// GenerateApprovalToken creates a signed token authorizing an
// approve/reject decision on one content record
func (m *Manager) GenerateApprovalToken(contentID int64) (string, error) {
	now := time.Now()
	claims := ApprovalClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		ContentID: contentID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// VerifyApprovalToken validates a token and returns its claims
func (m *Manager) VerifyApprovalToken(tokenString string) (*ApprovalClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ApprovalClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*ApprovalClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
