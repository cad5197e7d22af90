package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/miosa/modq/paging"
)

func TestNew_Defaults(t *testing.T) {
	cfg, err := New(viper.New(), t.TempDir(), "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.Theme != "dark" {
		t.Errorf("Theme = %q, want %q", cfg.Theme, "dark")
	}
	if cfg.CacheTTL != time.Second {
		t.Errorf("CacheTTL = %v, want %v", cfg.CacheTTL, time.Second)
	}
	if cfg.PageSize != paging.DefaultPageSize {
		t.Errorf("PageSize = %d, want %d", cfg.PageSize, paging.DefaultPageSize)
	}
	if cfg.FetchBatch != paging.DefaultFetchBatch {
		t.Errorf("FetchBatch = %d, want %d", cfg.FetchBatch, paging.DefaultFetchBatch)
	}
	if cfg.Mode() != paging.ModeScroll {
		t.Errorf("Mode() = %v, want scroll", cfg.Mode())
	}
	if filepath.Base(cfg.DBPath) != "modq.db" {
		t.Errorf("DBPath = %q, want modq.db in the profile dir", cfg.DBPath)
	}
}

func TestNew_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	data := "url: https://board.test\npage_size: 20\ncache_ttl: 5s\ndefault_mode: page\n"
	if err := os.WriteFile(Path(dir), []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MODQ_PAGE_SIZE", "30")
	t.Setenv("MODQ_TOKEN", "secret")

	cfg, err := New(viper.New(), dir, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.BaseURL != "https://board.test" {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, "https://board.test")
	}
	if cfg.PageSize != 30 {
		t.Errorf("PageSize = %d, want 30 (env wins over file)", cfg.PageSize)
	}
	if cfg.Token != "secret" {
		t.Errorf("Token = %q, want %q", cfg.Token, "secret")
	}
	if cfg.CacheTTL != 5*time.Second {
		t.Errorf("CacheTTL = %v, want 5s", cfg.CacheTTL)
	}
	if cfg.Mode() != paging.ModePage {
		t.Errorf("Mode() = %v, want page", cfg.Mode())
	}
}

func TestNew_ExplicitValueWins(t *testing.T) {
	v := viper.New()
	v.Set("url", "http://flag.test")
	t.Setenv("MODQ_URL", "http://env.test")

	cfg, err := New(v, t.TempDir(), "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.BaseURL != "http://flag.test" {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, "http://flag.test")
	}
}

func TestNew_BadFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(Path(dir), []byte("url: [unterminated\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := New(viper.New(), dir, ""); err == nil {
		t.Error("New() with malformed yaml: want error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profile")
	want := defaults()
	want.BaseURL = "https://board.test"
	want.Mobile = true
	want.CacheTTL = 3 * time.Second
	want.DBPath = filepath.Join(dir, "modq.db")

	if err := Save(dir, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := New(viper.New(), dir, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got != want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mut     func(*Config)
		wantErr bool
	}{
		{"ok", func(c *Config) {}, false},
		{"missing url", func(c *Config) { c.BaseURL = "" }, true},
		{"bad mode", func(c *Config) { c.DefaultMode = "sideways" }, true},
		{"zero page", func(c *Config) { c.PageSize = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			cfg.BaseURL = "https://board.test"
			tt.mut(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPaging(t *testing.T) {
	cfg := defaults()
	if got := cfg.Paging(); got != paging.DefaultConfig() {
		t.Errorf("Paging() = %+v, want %+v", got, paging.DefaultConfig())
	}
}
