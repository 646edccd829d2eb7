package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/evetabi/easybet/internal/config"
	"github.com/evetabi/easybet/internal/domain"
	"github.com/evetabi/easybet/internal/service"
	"github.com/evetabi/easybet/internal/store/memstore"
)

func newAuth(t *testing.T) (*service.AuthService, *memstore.Store) {
	t.Helper()
	cfg := &config.Config{
		JWT: config.JWTConfig{
			AccessSecret:  "test-access",
			RefreshSecret: "test-refresh",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    time.Hour,
		},
		Wallet: config.WalletConfig{
			EscrowAccountID: config.DefaultEscrowAccount,
			SignupBonus:     1000,
		},
	}
	st := memstore.New()
	return service.NewAuthService(st, cfg, service.SystemClock{}), st
}

func TestRegister_CreditsBonus(t *testing.T) {
	auth, st := newAuth(t)

	resp, err := auth.Register(ctx, service.RegisterRequest{
		Username: "alice", Email: "Alice@Example.com ", Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.User.Email != "alice@example.com" {
		t.Errorf("Email = %q, want normalised", resp.User.Email)
	}
	bal, _ := st.BalanceOf(ctx, resp.User.ID)
	if !bal.Equal(units(1000)) {
		t.Errorf("balance = %s, want 1000", bal)
	}
	txns, _ := st.Transactions(ctx, resp.User.ID, 10, 0)
	if len(txns) != 1 || txns[0].Type != domain.TxBonus {
		t.Errorf("transactions = %+v, want one bonus", txns)
	}

	claims, err := auth.ParseAccessToken(resp.AccessToken)
	if err != nil || claims.Subject != resp.User.ID.String() || claims.TokenType != "access" {
		t.Errorf("ParseAccessToken = %+v, %v", claims, err)
	}
}

func TestRegister_Duplicates(t *testing.T) {
	auth, st := newAuth(t)
	req := service.RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "password1"}
	if _, err := auth.Register(ctx, req); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := auth.Register(ctx, req); !errors.Is(err, domain.ErrEmailTaken) {
		t.Errorf("same email: err = %v, want ErrEmailTaken", err)
	}
	req.Email = "bob2@example.com"
	if _, err := auth.Register(ctx, req); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Errorf("same username: err = %v, want ErrUsernameTaken", err)
	}
	_, total, _ := st.ListUsers(ctx, 10, 0)
	if total != 1 {
		t.Errorf("users = %d, want 1", total)
	}
}

func TestLogin(t *testing.T) {
	auth, _ := newAuth(t)
	reg, err := auth.Register(ctx, service.RegisterRequest{Username: "carol", Email: "carol@example.com", Password: "hunter22"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := auth.Login(ctx, "carol@example.com", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v", err)
	}
	if _, err := auth.Login(ctx, "CAROL@example.com", "hunter22"); err != nil {
		t.Errorf("Login: %v", err)
	}

	if err := auth.SetUserActive(ctx, reg.User.ID, false); err != nil {
		t.Fatalf("SetUserActive: %v", err)
	}
	if _, err := auth.Login(ctx, "carol@example.com", "hunter22"); !errors.Is(err, domain.ErrUserInactive) {
		t.Errorf("suspended: err = %v, want ErrUserInactive", err)
	}

	access, refresh, err := auth.RefreshToken(ctx, reg.RefreshToken)
	if !errors.Is(err, domain.ErrUserInactive) || access != "" || refresh != "" {
		t.Errorf("refresh for suspended user: err = %v", err)
	}
}

func TestPromoteByEmail(t *testing.T) {
	auth, _ := newAuth(t)
	reg, err := auth.Register(ctx, service.RegisterRequest{Username: "dana", Email: "dana@example.com", Password: "hunter22"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	u, err := auth.PromoteByEmail(ctx, " Dana@Example.com ", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("PromoteByEmail: %v", err)
	}
	if u.ID != reg.User.ID || u.Role != domain.RoleAdmin {
		t.Errorf("promoted = %s/%s, want %s/admin", u.ID, u.Role, reg.User.ID)
	}

	access, _, err := auth.RefreshToken(ctx, reg.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	claims, err := auth.ParseAccessToken(access)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.Role != string(domain.RoleAdmin) {
		t.Errorf("refreshed role = %q, want admin", claims.Role)
	}

	if _, err := auth.PromoteByEmail(ctx, "nobody@example.com", domain.RoleOps); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("unknown email: err = %v, want ErrUserNotFound", err)
	}
}
