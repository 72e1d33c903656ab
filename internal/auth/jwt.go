package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lawdesk_backend/internal/config"
	"lawdesk_backend/pkg/apperrors"
)

// Claims carried in every access token.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken issues a signed access token for the user.
func GenerateToken(userID, role string) (string, error) {
	cfg := config.GetConfig()

	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(cfg.JWT.TTL) * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWT.Secret))
}

// ParseToken validates a token and returns its claims.
func ParseToken(tokenStr string) (*Claims, error) {
	cfg := config.GetConfig()

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.New(apperrors.CodeInvalidToken, "auth", "unexpected signing method", 401)
		}
		return []byte(cfg.JWT.Secret), nil
	})
	if err != nil {
		if apperrors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.New(apperrors.CodeTokenExpired, "auth", "Token expired", 401)
		}
		return nil, apperrors.New(apperrors.CodeInvalidToken, "auth", "Invalid token", 401)
	}
	if !token.Valid {
		return nil, apperrors.New(apperrors.CodeInvalidToken, "auth", "Invalid token", 401)
	}

	return claims, nil
}
