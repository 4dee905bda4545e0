package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "btcdigest/pkg/market/exchanges/gateio"
	_ "btcdigest/pkg/market/exchanges/okx"
)

const testMarketYAML = `
reference: okx
providers:
  okx:
    type: okx
  gate:
    type: gateio
assets:
  - ticker: ORDI
    protocol: BRC20
    chain: [okx, gate]
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_defaultsAndMarketSection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "market.yaml", testMarketYAML)
	mainPath := writeFile(t, dir, "digest.yaml", "Env: dev\n")

	cfg, err := Load(mainPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "dev" {
		t.Fatalf("unexpected env %q", cfg.Env)
	}
	if got := cfg.Schedule.Times; len(got) != 2 || got[0] != "08:00" || got[1] != "20:00" {
		t.Fatalf("default schedule not applied: %v", got)
	}
	if cfg.CycleTimeout != 2*time.Minute {
		t.Fatalf("unexpected cycle timeout %s", cfg.CycleTimeout)
	}
	if cfg.Publish.Mode != PublishStdout {
		t.Fatalf("unexpected publish mode %q", cfg.Publish.Mode)
	}
	if !cfg.Market.Loaded() {
		t.Fatalf("market section not hydrated")
	}
	if cfg.Market.File != filepath.Join(dir, "market.yaml") {
		t.Fatalf("market file not resolved: %s", cfg.Market.File)
	}
	if got := len(cfg.Market.Value.Assets); got != 1 {
		t.Fatalf("unexpected asset count %d", got)
	}
	if cfg.MainPath() != mainPath || cfg.BaseDir() != dir {
		t.Fatalf("paths not recorded: %s %s", cfg.MainPath(), cfg.BaseDir())
	}
	if cfg.Log.ServiceName != "digest" {
		t.Fatalf("log defaults not applied: %+v", cfg.Log)
	}
}

func TestLoad_explicitSections(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "chains.yaml", testMarketYAML)
	mainPath := writeFile(t, dir, "digest.yaml", `
Env: prod
CycleTimeout: 45s
JournalDir: journal
Schedule:
  Times: ["09:30"]
  Timezone: Asia/Shanghai
Publish:
  Mode: webhook
  WebhookURL: https://hooks.example/digest
  Token: secret
  Timeout: 3s
Market:
  File: chains.yaml
`)

	cfg, err := Load(mainPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CycleTimeout != 45*time.Second {
		t.Fatalf("unexpected cycle timeout %s", cfg.CycleTimeout)
	}
	if cfg.Publish.Mode != PublishWebhook || cfg.Publish.Timeout != 3*time.Second {
		t.Fatalf("unexpected publish %+v", cfg.Publish)
	}
	loc, err := cfg.Schedule.Location()
	if err != nil || loc.String() != "Asia/Shanghai" {
		t.Fatalf("unexpected location %v err=%v", loc, err)
	}
	if cfg.Market.File != filepath.Join(dir, "chains.yaml") {
		t.Fatalf("market file not resolved: %s", cfg.Market.File)
	}
}

func TestLoad_missingMarketFile(t *testing.T) {
	dir := t.TempDir()
	mainPath := writeFile(t, dir, "digest.yaml", "Env: test\n")
	if _, err := Load(mainPath); err == nil {
		t.Fatalf("expected error for missing market.yaml")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: Config{CycleTimeout: time.Minute}},
		{name: "bad env", cfg: Config{Env: "staging", CycleTimeout: time.Minute}, wantErr: true},
		{name: "zero timeout", cfg: Config{}, wantErr: true},
		{
			name:    "bad time",
			cfg:     Config{CycleTimeout: time.Minute, Schedule: ScheduleConf{Times: []string{"25:00"}}},
			wantErr: true,
		},
		{
			name:    "bad timezone",
			cfg:     Config{CycleTimeout: time.Minute, Schedule: ScheduleConf{Timezone: "Mars/Olympus"}},
			wantErr: true,
		},
		{
			name:    "webhook without url",
			cfg:     Config{CycleTimeout: time.Minute, Publish: PublishConf{Mode: "webhook"}},
			wantErr: true,
		},
		{
			name:    "unknown mode",
			cfg:     Config{CycleTimeout: time.Minute, Publish: PublishConf{Mode: "email"}},
			wantErr: true,
		},
		{
			name: "webhook",
			cfg:  Config{CycleTimeout: time.Minute, Publish: PublishConf{Mode: "Webhook", WebhookURL: "http://x"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
