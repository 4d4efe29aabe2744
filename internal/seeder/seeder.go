package seeder

import (
	"context"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/alphatracesol/operator-uplift-gateway/internal/credits"
	"github.com/alphatracesol/operator-uplift-gateway/internal/identity"
)

const (
	TestUserID  = "test-user-0001"
	TestCredits = 100
)

// SeedTestUser grants a development user a credit balance and prints a
// matching bearer token so the gateway can be exercised end to end.
func SeedTestUser(ctx context.Context, ledger credits.Ledger, jwtSecret string) {
	if err := ledger.Grant(ctx, TestUserID, TestCredits); err != nil {
		log.Printf("[Seeder] failed to seed test user: %v", err)
		return
	}

	claims := identity.Claims{
		UserID: TestUserID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "operator-uplift",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	if err != nil {
		log.Printf("[Seeder] failed to sign test token: %v", err)
		return
	}

	log.Printf("[Seeder] Test user created successfully")
	log.Printf("[Seeder] UserID: %s (credits: %d)", TestUserID, TestCredits)
	log.Printf("[Seeder] Token: %s", token)
}
