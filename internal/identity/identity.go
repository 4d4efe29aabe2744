package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the access-token payload issued by the identity service.
type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens and yields the caller's identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

const cacheTTL = 5 * time.Minute

// JWTVerifier validates HS256 tokens. Verified tokens are cached in
// Redis keyed by token hash so hot tokens skip signature checks; the
// cache entry never outlives the token itself.
type JWTVerifier struct {
	secret []byte
	cache  redis.Cmdable
}

func NewJWTVerifier(secret string, cache redis.Cmdable) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), cache: cache}
}

func (v *JWTVerifier) Verify(ctx context.Context, token string) (string, error) {
	cacheKey := "auth:token:" + hashToken(token)

	if v.cache != nil {
		uid, err := v.cache.Get(ctx, cacheKey).Result()
		if err == nil && uid != "" {
			return uid, nil
		}
		if err != nil && err != redis.Nil {
			slog.Warn("identity: token cache read failed", "error", err)
		}
	}

	claims, err := v.parse(token)
	if err != nil {
		return "", ErrInvalidToken
	}

	if v.cache != nil {
		ttl := cacheTTL
		if claims.ExpiresAt != nil {
			if remaining := time.Until(claims.ExpiresAt.Time); remaining < ttl {
				ttl = remaining
			}
		}
		if ttl > 0 {
			if err := v.cache.Set(ctx, cacheKey, claims.UserID, ttl).Err(); err != nil {
				slog.Warn("identity: token cache write failed", "error", err)
			}
		}
	}

	return claims.UserID, nil
}

func (v *JWTVerifier) parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing access token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("invalid access token claims")
	}

	return claims, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
