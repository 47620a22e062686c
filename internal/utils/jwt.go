package utils

import (
	"errors"
	"strconv"
	"time"

	"relist/internal/config"
	"relist/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Token lifetime defaults, overridable through JWT_ACCESS_TTL and
// JWT_REFRESH_TTL.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid token")

// TokenPair carries the signed tokens issued on login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// GenerateTokens signs an access/refresh token pair for the claims. The
// refresh token carries identity and token version only; role and
// permissions are re-derived from the user record when it is redeemed.
func GenerateTokens(claims *models.UserClaims) (*TokenPair, error) {
	secret, err := jwtSecret()
	if err != nil {
		return nil, err
	}

	now := time.Now()

	access := *claims
	access.RegisteredClaims = registeredClaims(claims.UserID, now,
		config.GetDurationEnv("JWT_ACCESS_TTL", DefaultAccessTTL))

	refresh := models.UserClaims{
		RegisteredClaims: registeredClaims(claims.UserID, now,
			config.GetDurationEnv("JWT_REFRESH_TTL", DefaultRefreshTTL)),
		UserID:       claims.UserID,
		TokenVersion: claims.TokenVersion,
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, access).SignedString(secret)
	if err != nil {
		return nil, err
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refresh).SignedString(secret)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// ParseToken validates a token's signature, expiry and issuer and returns
// its claims.
func ParseToken(tokenStr string) (*models.UserClaims, error) {
	secret, err := jwtSecret()
	if err != nil {
		return nil, err
	}

	token, err := jwt.ParseWithClaims(tokenStr, &models.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithIssuer(issuer()))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*models.UserClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func registeredClaims(userID uint, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    issuer(),
		Subject:   strconv.FormatUint(uint64(userID), 10),
	}
}

func issuer() string {
	return config.GetEnv("JWT_ISSUER", "relist-api")
}

func jwtSecret() ([]byte, error) {
	secret := config.GetEnv("JWT_SECRET", "")
	if secret == "" {
		return nil, errors.New("JWT_SECRET not configured")
	}
	return []byte(secret), nil
}
