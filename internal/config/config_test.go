package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 8080 || cfg.ExportDPI != 300 || cfg.StorageKey != "pinto-design" {
		t.Fatalf("defaults %+v", cfg)
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("DATABASE_URL defaulted to %q", cfg.DatabaseURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("EXPORT_DPI", "150")
	t.Setenv("DATABASE_URL", "postgres://localhost/pinto")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 9090 || cfg.ExportDPI != 150 || cfg.DatabaseURL != "postgres://localhost/pinto" {
		t.Fatalf("overrides %+v", cfg)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct{ key, value string }{
		{"EXPORT_DPI", "0"},
		{"HISTORY_LIMIT", "-1"},
		{"PORT", "not-a-number"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("%s=%s accepted", tt.key, tt.value)
			}
		})
	}
}
