package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadQuantityPolicyOverridesOnlyGivenFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quantity.yaml")
	if err := os.WriteFile(path, []byte("adequate_tolerance_percent: 8\n"), 0o600); err != nil {
		t.Fatalf("write policy file: %v", err)
	}

	base := QuantityPolicy{ExactTolerancePercent: 1, AdequateTolerancePercent: 5, VeryInsufficientPercent: 50}
	policy, err := LoadQuantityPolicy(path, base)
	if err != nil {
		t.Fatalf("expected policy to load, got %v", err)
	}
	if policy.AdequateTolerancePercent != 8 {
		t.Fatalf("expected adequate tolerance 8, got %v", policy.AdequateTolerancePercent)
	}
	if policy.ExactTolerancePercent != 1 || policy.VeryInsufficientPercent != 50 {
		t.Fatalf("expected untouched bands to keep defaults, got %+v", policy)
	}
}

func TestQuantityPolicyValidateRejectsUnorderedBands(t *testing.T) {
	policy := QuantityPolicy{ExactTolerancePercent: 6, AdequateTolerancePercent: 5, VeryInsufficientPercent: 50}
	if err := policy.Validate(); err == nil {
		t.Fatalf("expected unordered bands to be rejected")
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	if _, err := Load(); err == nil {
		t.Fatalf("expected missing DATABASE_URL to fail")
	}
}

func TestLoadAppliesBiddingDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/procurement")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ALLOW_ALL", "false")
	t.Setenv("QUANTITY_POLICY_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected config to load, got %v", err)
	}
	if cfg.GetDefaultCounterProposalMinutes() != 15 {
		t.Fatalf("expected default window of 15 minutes, got %d", cfg.GetDefaultCounterProposalMinutes())
	}
	if cfg.GetDefaultReminderPercentage() != 33 {
		t.Fatalf("expected default reminder percentage 33, got %d", cfg.GetDefaultReminderPercentage())
	}
	if cfg.GetPhoneDefaultRegion() != "BR" {
		t.Fatalf("expected BR phone region, got %s", cfg.GetPhoneDefaultRegion())
	}
}
