package client

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/kopilka/internal/client/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testModelExpense(id string) models.Expense {
	return models.Expense{
		ID:          id,
		UserID:      "u1",
		Amount:      decimal.RequireFromString("25.5"),
		Description: "dinner",
		Date:        time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Currency:    "EUR",
		Origin:      models.OriginManual,
		CreatedAt:   time.Date(2026, 8, 1, 19, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2026, 8, 1, 19, 0, 0, 0, time.UTC),
	}
}

// makeToken builds a signed JWT with an optional exp claim. The signature is
// irrelevant: the client only reads claims without verification.
func makeToken(t *testing.T, exp *int64) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "u1"}
	if exp != nil {
		claims["exp"] = *exp
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test"))
	require.NoError(t, err)
	return token
}
