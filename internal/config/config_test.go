package config_test

import (
	"testing"
	"time"

	"github.com/evetabi/easybet/internal/config"
	"github.com/google/uuid"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("ESCROW_ACCOUNT_ID", "")
	t.Setenv("SIGNUP_BONUS", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DB.Driver != "memory" {
		t.Errorf("DB.Driver = %q, want memory", cfg.DB.Driver)
	}
	if cfg.Wallet.EscrowAccountID != config.DefaultEscrowAccount {
		t.Errorf("EscrowAccountID = %s, want default", cfg.Wallet.EscrowAccountID)
	}
	if cfg.Wallet.SignupBonus != 1000 {
		t.Errorf("SignupBonus = %d, want 1000", cfg.Wallet.SignupBonus)
	}
	if cfg.Scheduler.ExpiryScanInterval != 5*time.Second {
		t.Errorf("ExpiryScanInterval = %s, want 5s", cfg.Scheduler.ExpiryScanInterval)
	}
}

func TestLoad_Overrides(t *testing.T) {
	escrow := uuid.New()
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("ESCROW_ACCOUNT_ID", escrow.String())
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://a.example")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.UsePostgres() {
		t.Errorf("UsePostgres() = false for driver %q", cfg.DB.Driver)
	}
	if cfg.Wallet.EscrowAccountID != escrow {
		t.Errorf("EscrowAccountID = %s, want %s", cfg.Wallet.EscrowAccountID, escrow)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if len(cfg.Server.WSAllowedOrigins) != 1 || cfg.Server.WSAllowedOrigins[0] != "https://a.example" {
		t.Errorf("WSAllowedOrigins = %v", cfg.Server.WSAllowedOrigins)
	}
}

func TestLoad_BadEscrow(t *testing.T) {
	t.Setenv("ESCROW_ACCOUNT_ID", "not-a-uuid")
	if _, err := config.Load(); err == nil {
		t.Error("Load() accepted an invalid ESCROW_ACCOUNT_ID")
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("ESCROW_ACCOUNT_ID", "")
	t.Setenv("STORE_DRIVER", "")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.JWT.AccessSecret = "a"
	cfg.JWT.RefreshSecret = "r"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	cfg.DB.Driver = "sqlite"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted unknown STORE_DRIVER")
	}
}
