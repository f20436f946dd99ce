package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusworks/college-cms-api/internal/models"
	appErrors "github.com/campusworks/college-cms-api/pkg/errors"
)

type mockAuthRepo struct {
	users         map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
	revokedAll    []string
}

func newMockAuthRepo(users ...*models.User) *mockAuthRepo {
	repo := &mockAuthRepo{users: make(map[string]*models.User), refreshTokens: make(map[string]*models.RefreshToken)}
	for _, u := range users {
		copy := *u
		repo.users[u.ID] = &copy
	}
	return repo
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
		return nil
	}
	return sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAll = append(m.revokedAll, userID)
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	copy := *token
	m.refreshTokens[token.Token] = &copy
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.refreshTokens[token]; ok {
		copy := *t
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, t := range m.refreshTokens {
		if t.ID == id {
			t.Revoked = true
			return nil
		}
	}
	return sql.ErrNoRows
}

func newAuthFixture(t *testing.T, repo *mockAuthRepo) (*AuthService, *mockActivity) {
	t.Helper()
	activity := &mockActivity{}
	svc := NewAuthService(repo, activity, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "college-cms",
	})
	return svc, activity
}

func testUser(t *testing.T) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "u1",
		Email:        "admin@college.edu",
		PasswordHash: string(hash),
		FullName:     "Site Admin",
		Role:         models.RoleAdmin,
		Active:       true,
	}
}

func TestLoginSuccess(t *testing.T) {
	repo := newMockAuthRepo(testUser(t))
	svc, activity := newAuthFixture(t, repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@college.edu",
		Password: "correct-horse",
	}, models.RequestMeta{IP: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "u1", resp.User.ID)
	assert.Equal(t, models.AuditActionLogin, activity.lastAction())

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newMockAuthRepo(testUser(t))
	svc, activity := newAuthFixture(t, repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@college.edu",
		Password: "wrong",
	}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	assert.Empty(t, activity.entries)
}

func TestLoginInactiveAccount(t *testing.T) {
	user := testUser(t)
	user.Active = false
	svc, _ := newAuthFixture(t, newMockAuthRepo(user))

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@college.edu",
		Password: "correct-horse",
	}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	repo := newMockAuthRepo(testUser(t))
	svc, _ := newAuthFixture(t, repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@college.edu",
		Password: "correct-horse",
	}, models.RequestMeta{})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken}, models.RequestMeta{})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The used token no longer works.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestChangePasswordWrongOld(t *testing.T) {
	repo := newMockAuthRepo(testUser(t))
	svc, _ := newAuthFixture(t, repo)

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		OldPassword: "nope",
		NewPassword: "new-password-1",
	}, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	repo := newMockAuthRepo(testUser(t))
	svc, activity := newAuthFixture(t, repo)

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		OldPassword: "correct-horse",
		NewPassword: "new-password-1",
	}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Contains(t, repo.revokedAll, "u1")
	assert.Equal(t, models.AuditActionPasswordChange, activity.lastAction())
}
