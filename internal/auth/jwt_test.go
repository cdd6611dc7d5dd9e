package auth_test

import (
	"testing"
	"time"

	"perakende-backend/internal/auth"
	"perakende-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	branchID := uint(3)
	user := &models.User{
		Name:     "Ayşe Yılmaz",
		Email:    "ayse@example.com",
		Role:     models.RoleBranchAdmin,
		BranchID: &branchID,
	}
	user.ID = 7

	tokenStr, err := auth.GenerateToken("test-secret", user)
	require.NoError(t, err)

	claims, err := auth.ParseToken("test-secret", tokenStr)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "Ayşe Yılmaz", claims.Name)
	assert.Equal(t, "ayse@example.com", claims.Email)
	assert.Equal(t, models.RoleBranchAdmin, claims.Role)
	require.NotNil(t, claims.BranchID)
	assert.Equal(t, branchID, *claims.BranchID)
	assert.Equal(t, "ayse@example.com", claims.Subject)

	// Süre yaklaşık 12 saat ileride olmalı
	require.NotNil(t, claims.ExpiresAt)
	ttl := time.Until(claims.ExpiresAt.Time)
	assert.Greater(t, ttl, 11*time.Hour)
	assert.LessOrEqual(t, ttl, 12*time.Hour)
}

func TestParseToken_WrongSecret(t *testing.T) {
	user := &models.User{
		Name:  "Admin",
		Email: "admin@example.com",
		Role:  models.RoleSuperAdmin,
	}
	user.ID = 1

	tokenStr, err := auth.GenerateToken("right-secret", user)
	require.NoError(t, err)

	_, err = auth.ParseToken("wrong-secret", tokenStr)
	assert.Error(t, err)
}

func TestParseToken_SuperAdminHasNoBranch(t *testing.T) {
	user := &models.User{
		Name:  "Admin",
		Email: "admin@example.com",
		Role:  models.RoleSuperAdmin,
	}
	user.ID = 1

	tokenStr, err := auth.GenerateToken("s", user)
	require.NoError(t, err)

	claims, err := auth.ParseToken("s", tokenStr)
	require.NoError(t, err)
	assert.Nil(t, claims.BranchID)
}
