package auth

import (
	"fmt"
	"strconv"
	"time"

	"fleets-server/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "fleets-server"

// Claims identify the player behind a request. The faction rides along so
// handlers can show it without a lookup.
type Claims struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	FactionID int64  `json:"faction_id"`
	jwt.RegisteredClaims
}

func GenerateJWT(user *models.User, secret []byte, expiration time.Duration, now time.Time) (string, error) {
	claims := Claims{
		UserID:    user.ID,
		Username:  user.Username,
		FactionID: user.FactionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ValidateJWT accepts only HS256 tokens issued by this server that carry an
// expiry.
func ValidateJWT(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}
	if claims.UserID <= 0 {
		return nil, fmt.Errorf("token has no user")
	}
	return claims, nil
}
