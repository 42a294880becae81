package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"

	"mindbridge/config"
	"mindbridge/models"
)

// IdentityClaims is the token body issued by the accounts service.
type IdentityClaims struct {
	Role       string `json:"role"`
	IsActive   bool   `json:"is_active"`
	IsApproved bool   `json:"is_approved"`
	jwt.StandardClaims
}

func secretKey() []byte {
	return []byte(config.AppConfig.JWTSecret)
}

// GenerateToken signs an identity token that expires after duration.
func GenerateToken(identity models.Identity, duration time.Duration) (string, error) {
	now := time.Now()
	claims := IdentityClaims{
		Role:       identity.Role,
		IsActive:   identity.IsActive,
		IsApproved: identity.IsApproved,
		StandardClaims: jwt.StandardClaims{
			Subject:   identity.UserID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(duration).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey())
}

// ParseIdentity validates a bearer token and returns the identity it asserts.
func ParseIdentity(tokenString string) (models.Identity, error) {
	if len(secretKey()) == 0 {
		return models.Identity{}, errors.New("jwt secret not configured")
	}
	claims := &IdentityClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Ensure that the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secretKey(), nil
	})
	if err != nil {
		return models.Identity{}, err
	}
	if !token.Valid {
		return models.Identity{}, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return models.Identity{}, errors.New("token does not contain a valid 'sub' claim")
	}
	switch claims.Role {
	case models.RoleClient, models.RoleCounsellor, models.RoleAdmin:
	default:
		return models.Identity{}, errors.New("token carries an unknown role")
	}
	return models.Identity{
		UserID:     claims.Subject,
		Role:       claims.Role,
		IsActive:   claims.IsActive,
		IsApproved: claims.IsApproved,
	}, nil
}
