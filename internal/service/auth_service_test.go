package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/edustack/sis-api/internal/models"
	appErrors "github.com/edustack/sis-api/pkg/errors"
)

type fakeUserRepo struct {
	users map[string]*models.User
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	if u, ok := f.users[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	if u, ok := f.users[id]; ok {
		u.PasswordHash = hash
	}
	return nil
}

type fakeTokenRepo struct {
	tokens  map[string]*models.RefreshToken
	revoked []string
}

func (f *fakeTokenRepo) Create(_ context.Context, token *models.RefreshToken) error {
	if f.tokens == nil {
		f.tokens = map[string]*models.RefreshToken{}
	}
	f.tokens[token.Token] = token
	return nil
}

func (f *fakeTokenRepo) FindByToken(_ context.Context, token string) (*models.RefreshToken, error) {
	stored, ok := f.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return stored, nil
}

func (f *fakeTokenRepo) Revoke(_ context.Context, id string) error {
	f.revoked = append(f.revoked, id)
	for _, t := range f.tokens {
		if t.ID == id {
			t.Revoked = true
		}
	}
	return nil
}

func (f *fakeTokenRepo) RevokeAllForUser(_ context.Context, userID string) error {
	for _, t := range f.tokens {
		if t.UserID == userID {
			t.Revoked = true
			f.revoked = append(f.revoked, t.ID)
		}
	}
	return nil
}

type fakeAudit struct {
	entries []*models.AuditLog
}

func (f *fakeAudit) Insert(_ context.Context, entry *models.AuditLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

func newAuthFixture(t *testing.T, password string) (*AuthService, *fakeUserRepo, *fakeTokenRepo, *fakeAudit) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	users := &fakeUserRepo{users: map[string]*models.User{
		"user-1": {
			ID:           "user-1",
			Email:        "admin@district.test",
			PasswordHash: string(hash),
			FullName:     "District Admin",
			Role:         models.RoleAdmin,
			Active:       true,
		},
	}}
	tokens := &fakeTokenRepo{tokens: map[string]*models.RefreshToken{}}
	audit := &fakeAudit{}
	svc := NewAuthService(users, tokens, audit, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "sis-api",
	})
	return svc, users, tokens, audit
}

func TestLoginIssuesTokens(t *testing.T) {
	svc, _, tokens, audit := newAuthFixture(t, "s3cret-pass")

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@district.test",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "user-1", resp.User.ID)
	assert.Contains(t, tokens.tokens, resp.RefreshToken)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionLogin, audit.entries[0].Action)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t, "s3cret-pass")

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@district.test",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	svc, users, _, _ := newAuthFixture(t, "s3cret-pass")
	users.users["user-1"].Active = false

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@district.test",
		Password: "s3cret-pass",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _, tokens, _ := newAuthFixture(t, "s3cret-pass")

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@district.test",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The used token is revoked and cannot be replayed.
	assert.True(t, tokens.tokens[login.RefreshToken].Revoked)
	_, err = svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	svc, users, tokens, _ := newAuthFixture(t, "s3cret-pass")

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@district.test",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "s3cret-pass",
		NewPassword: "brand-new-pass",
	})
	require.NoError(t, err)

	assert.True(t, tokens.tokens[login.RefreshToken].Revoked)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(users.users["user-1"].PasswordHash), []byte("brand-new-pass")))
}

func TestLogoutRejectsForeignToken(t *testing.T) {
	svc, _, tokens, _ := newAuthFixture(t, "s3cret-pass")
	tokens.tokens["other-token"] = &models.RefreshToken{
		ID:        "rt-2",
		UserID:    "user-2",
		Token:     "other-token",
		ExpiresAt: time.Now().Add(time.Hour),
	}

	err := svc.Logout(context.Background(), "other-token", "user-1", "", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t, "s3cret-pass")

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@district.test",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)

	_, err = svc.ValidateToken(login.AccessToken + "x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
