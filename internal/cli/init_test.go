package cli

import (
	"testing"

	"anggaran/internal/config"
	"anggaran/internal/core"
	"anggaran/internal/log"
)

func TestAccounts(t *testing.T) {
	cfg := &config.Config{Accounts: []config.Account{
		{Username: "kpa", Role: "admin", PasswordHash: "$2a$04$x"},
		{Username: "staf", Role: "user", PasswordHash: "$2a$04$y"},
	}}
	got := Accounts(cfg)
	if len(got) != 2 || got[0].Role != core.RoleAdmin || got[1].Role != core.RoleUser || got[1].PasswordHash != "$2a$04$y" {
		t.Fatalf("unexpected accounts: %+v", got)
	}
}

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger(&config.Config{LogLevel: "debug", LogFormat: "JSON"}, log.ComponentWorker)
	if logger.Component() != log.ComponentWorker {
		t.Fatalf("component = %q", logger.Component())
	}
}
