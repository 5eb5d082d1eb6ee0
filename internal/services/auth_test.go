package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/kramikkk/vitalink-ai/internal/apperr"
	"github.com/kramikkk/vitalink-ai/internal/repos"
	"github.com/kramikkk/vitalink-ai/internal/requestdata"
	"github.com/kramikkk/vitalink-ai/internal/types"
)

func newTestAuth(t *testing.T) (AuthService, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	log := testLogger()
	cfg := testConfig()
	svc := NewAuthService(db, log,
		repos.NewUserRepo(db, log),
		repos.NewUserTokenRepo(db, log),
		cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	return svc, db
}

func registerTestAccount(t *testing.T, svc AuthService) *types.User {
	t.Helper()
	user := &types.User{
		FullName: "Jamie Cruz",
		Username: "jamie",
		Email:    "Jamie@Example.COM",
		Password: "hunter22",
	}
	if err := svc.RegisterUser(context.Background(), user); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	return user
}

func TestRegisterUser_NormalizesAndHashes(t *testing.T) {
	svc, db := newTestAuth(t)
	user := registerTestAccount(t, svc)

	if user.Email != "jamie@example.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if user.Role != types.RoleStudent {
		t.Fatalf("default role should be student, got %s", user.Role)
	}

	var stored types.User
	if err := db.First(&stored, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.Password == "hunter22" {
		t.Fatalf("password stored in plain text")
	}
}

func TestRegisterUser_RejectsDuplicates(t *testing.T) {
	svc, _ := newTestAuth(t)
	registerTestAccount(t, svc)

	dupEmail := &types.User{FullName: "Other", Username: "other", Email: "jamie@example.com", Password: "pw"}
	if err := svc.RegisterUser(context.Background(), dupEmail); !errors.Is(err, apperr.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	dupUsername := &types.User{FullName: "Other", Username: "jamie", Email: "other@example.com", Password: "pw"}
	if err := svc.RegisterUser(context.Background(), dupUsername); !errors.Is(err, apperr.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegisterUser_RequiresFields(t *testing.T) {
	svc, _ := newTestAuth(t)
	err := svc.RegisterUser(context.Background(), &types.User{Email: "a@b.c"})
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestLoginUser_IssuesWorkingToken(t *testing.T) {
	svc, _ := newTestAuth(t)
	user := registerTestAccount(t, svc)

	access, refresh, err := svc.LoginUser(context.Background(), "jamie@example.com", "hunter22")
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}
	if access == "" || refresh == "" {
		t.Fatalf("empty tokens returned")
	}

	ctx, err := svc.SetContextFromToken(context.Background(), access)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID != user.ID || rd.Role != types.RoleStudent {
		t.Fatalf("unexpected request data: %+v", rd)
	}
}

func TestLoginUser_RejectsBadCredentials(t *testing.T) {
	svc, _ := newTestAuth(t)
	registerTestAccount(t, svc)

	if _, _, err := svc.LoginUser(context.Background(), "jamie@example.com", "wrong"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("wrong password: expected ErrUnauthorized, got %v", err)
	}
	if _, _, err := svc.LoginUser(context.Background(), "nobody@example.com", "hunter22"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("unknown email: expected ErrUnauthorized, got %v", err)
	}
}

func TestRefreshUser_RotatesTokens(t *testing.T) {
	svc, _ := newTestAuth(t)
	registerTestAccount(t, svc)

	_, refresh, err := svc.LoginUser(context.Background(), "jamie@example.com", "hunter22")
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}

	access2, refresh2, err := svc.RefreshUser(context.Background(), refresh)
	if err != nil {
		t.Fatalf("RefreshUser: %v", err)
	}
	if access2 == "" || refresh2 == "" || refresh2 == refresh {
		t.Fatalf("refresh must rotate the token pair")
	}

	// The old refresh token is dead.
	if _, _, err := svc.RefreshUser(context.Background(), refresh); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("reused refresh token: expected ErrUnauthorized, got %v", err)
	}
}

func TestLogoutUser_InvalidatesRefreshTokens(t *testing.T) {
	svc, _ := newTestAuth(t)
	user := registerTestAccount(t, svc)

	_, refresh, err := svc.LoginUser(context.Background(), "jamie@example.com", "hunter22")
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}
	if err := svc.LogoutUser(context.Background(), user.ID); err != nil {
		t.Fatalf("LogoutUser: %v", err)
	}
	if _, _, err := svc.RefreshUser(context.Background(), refresh); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}
}

func TestSetContextFromToken_RejectsGarbage(t *testing.T) {
	svc, _ := newTestAuth(t)
	if _, err := svc.SetContextFromToken(context.Background(), "not-a-jwt"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
