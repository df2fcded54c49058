package businessflow_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/amirphl/smm-panel/app/dto"
	"github.com/amirphl/smm-panel/app/services"
	businessflow "github.com/amirphl/smm-panel/business_flow"
	"github.com/amirphl/smm-panel/models"
	testingutil "github.com/amirphl/smm-panel/testing"
	"github.com/amirphl/smm-panel/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthFlow(t *testing.T) (businessflow.AuthFlow, services.TokenService, *testingutil.MemStore, *testingutil.TestFixtures) {
	t.Helper()
	tokens, err := services.NewTokenService(15*time.Minute, 24*time.Hour, "smm-panel", "smm-panel-api", false, "", "", "test-secret")
	require.NoError(t, err)
	store := testingutil.NewMemStore()
	flow := businessflow.NewAuthFlow(store.Users(), store.Admins(), store.AuditLogs(), tokens, 15*time.Minute, nil)
	return flow, tokens, store, testingutil.NewTestFixtures(store)
}

func TestAuthFlow_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		flow, tokens, store, fixtures := newAuthFlow(t)
		user := fixtures.CreateUser("NGN", "0")

		resp, err := flow.Login(ctx, &dto.LoginRequest{Email: "  " + strings.ToUpper(user.Email), Password: testingutil.TestPassword}, nil)
		require.NoError(t, err)
		assert.Equal(t, user.ID, resp.Subject)
		assert.Equal(t, services.SubjectUser, resp.Kind)
		assert.Equal(t, "Bearer", resp.Session.TokenType)
		assert.Equal(t, 900, resp.Session.ExpiresIn)

		claims, err := tokens.ValidateToken(resp.Session.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.SubjectID)

		_, err = tokens.ValidateAdminToken(resp.Session.AccessToken)
		assert.Error(t, err)

		logs := store.AllAuditLogs()
		require.Len(t, logs, 1)
		assert.Equal(t, models.AuditActionLoginSuccess, logs[0].Action)
		assert.NotNil(t, store.User(user.ID).LastLoginAt)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		flow, _, store, fixtures := newAuthFlow(t)
		user := fixtures.CreateUser("NGN", "0")

		_, err := flow.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: "not-the-password"}, nil)
		assert.ErrorIs(t, err, businessflow.ErrInvalidCredentials)

		logs := store.AllAuditLogs()
		require.Len(t, logs, 1)
		assert.Equal(t, models.AuditActionLoginFailed, logs[0].Action)
		assert.False(t, utils.IsTrue(logs[0].Success))
	})

	t.Run("UnknownEmailLooksTheSame", func(t *testing.T) {
		flow, _, _, _ := newAuthFlow(t)
		_, err := flow.Login(ctx, &dto.LoginRequest{Email: "ghost@example.com", Password: testingutil.TestPassword}, nil)
		assert.ErrorIs(t, err, businessflow.ErrInvalidCredentials)
	})

	t.Run("SuspendedAccount", func(t *testing.T) {
		flow, _, store, _ := newAuthFlow(t)
		hash, err := bcrypt.GenerateFromPassword([]byte(testingutil.TestPassword), bcrypt.MinCost)
		require.NoError(t, err)
		user := &models.User{
			Email:        "banned@example.com",
			Username:     "banned",
			PasswordHash: string(hash),
			IsSuspended:  utils.ToPtr(true),
		}
		require.NoError(t, store.Users().Save(ctx, user))

		_, err = flow.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: testingutil.TestPassword}, nil)
		assert.ErrorIs(t, err, businessflow.ErrAccountInactive)
	})
}

func TestAuthFlow_AdminLogin(t *testing.T) {
	ctx := context.Background()
	flow, tokens, _, fixtures := newAuthFlow(t)
	admin := fixtures.CreateAdmin("ops")

	resp, err := flow.AdminLogin(ctx, &dto.AdminLoginRequest{Username: "ops", Password: testingutil.TestPassword}, nil)
	require.NoError(t, err)
	assert.Equal(t, services.SubjectAdmin, resp.Kind)

	claims, err := tokens.ValidateAdminToken(resp.Session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.SubjectID)

	_, err = flow.AdminLogin(ctx, &dto.AdminLoginRequest{Username: "ops", Password: "wrong-password"}, nil)
	assert.ErrorIs(t, err, businessflow.ErrInvalidCredentials)
}

func TestAuthFlow_Refresh(t *testing.T) {
	ctx := context.Background()
	flow, _, _, fixtures := newAuthFlow(t)
	user := fixtures.CreateUser("NGN", "0")

	login, err := flow.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: testingutil.TestPassword}, nil)
	require.NoError(t, err)

	next, err := flow.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: login.Session.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.Session.RefreshToken, next.RefreshToken)

	// refresh tokens rotate; the old one is spent
	_, err = flow.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: login.Session.RefreshToken})
	assert.ErrorIs(t, err, businessflow.ErrInvalidCredentials)

	_, err = flow.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: login.Session.AccessToken})
	assert.ErrorIs(t, err, businessflow.ErrInvalidCredentials)
}

func TestAuthFlow_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("RevokesBothTokens", func(t *testing.T) {
		flow, tokens, _, fixtures := newAuthFlow(t)
		user := fixtures.CreateUser("NGN", "0")
		login, err := flow.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: testingutil.TestPassword}, nil)
		require.NoError(t, err)

		err = flow.Logout(ctx, login.Session.AccessToken, &dto.LogoutRequest{RefreshToken: login.Session.RefreshToken})
		require.NoError(t, err)

		_, err = tokens.ValidateToken(login.Session.AccessToken)
		assert.ErrorIs(t, err, services.ErrTokenRevoked)
		_, err = flow.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: login.Session.RefreshToken})
		assert.ErrorIs(t, err, businessflow.ErrInvalidCredentials)
	})

	t.Run("AccessOnlyKeepsRefresh", func(t *testing.T) {
		flow, tokens, _, fixtures := newAuthFlow(t)
		user := fixtures.CreateUser("NGN", "0")
		login, err := flow.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: testingutil.TestPassword}, nil)
		require.NoError(t, err)

		require.NoError(t, flow.Logout(ctx, login.Session.AccessToken, nil))

		_, err = tokens.ValidateToken(login.Session.AccessToken)
		assert.ErrorIs(t, err, services.ErrTokenRevoked)
		_, err = flow.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: login.Session.RefreshToken})
		assert.NoError(t, err)
	})

	t.Run("GarbageToken", func(t *testing.T) {
		flow, _, _, _ := newAuthFlow(t)
		err := flow.Logout(ctx, "not-a-jwt", nil)
		assert.ErrorIs(t, err, businessflow.ErrInvalidCredentials)
	})
}
