package identity

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, uid string, expiry time.Duration, method jwt.SigningMethod) string {
	t.Helper()
	claims := Claims{
		UserID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestVerify_ValidToken(t *testing.T) {
	v := NewJWTVerifier(testSecret, nil)
	token := signToken(t, testSecret, "u1", time.Hour, jwt.SigningMethodHS256)

	uid, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)
}

func TestVerify_ExpiredToken(t *testing.T) {
	v := NewJWTVerifier(testSecret, nil)
	token := signToken(t, testSecret, "u1", -time.Minute, jwt.SigningMethodHS256)

	_, err := v.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	v := NewJWTVerifier(testSecret, nil)
	token := signToken(t, "other-secret", "u1", time.Hour, jwt.SigningMethodHS256)

	_, err := v.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Garbage(t *testing.T) {
	v := NewJWTVerifier(testSecret, nil)

	_, err := v.Verify(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_MissingUID(t *testing.T) {
	v := NewJWTVerifier(testSecret, nil)
	token := signToken(t, testSecret, "", time.Hour, jwt.SigningMethodHS256)

	_, err := v.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_CachesVerifiedTokens(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	v := NewJWTVerifier(testSecret, rdb)
	token := signToken(t, testSecret, "u1", time.Hour, jwt.SigningMethodHS256)

	uid, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "u1", uid)

	// The cached entry must answer even if the key rotates.
	rotated := NewJWTVerifier("rotated-secret", rdb)
	uid, err = rotated.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)
}

func TestVerify_CacheNeverOutlivesToken(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	v := NewJWTVerifier(testSecret, rdb)
	token := signToken(t, testSecret, "u1", 30*time.Second, jwt.SigningMethodHS256)

	_, err := v.Verify(context.Background(), token)
	require.NoError(t, err)

	key := "auth:token:" + hashToken(token)
	ttl := mr.TTL(key)
	assert.True(t, ttl > 0 && ttl <= 30*time.Second, "cache TTL %v must not exceed token lifetime", ttl)
}
