package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "liscain.ini")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalConfig = `[liscain]
database = liscain.db
command_socket = 127.0.0.1:1337
`

func TestLoadMinimal(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database != "liscain.db" {
		t.Errorf("Database = %q", cfg.Database)
	}
	if cfg.CommandSocket != "127.0.0.1:1337" {
		t.Errorf("CommandSocket = %q", cfg.CommandSocket)
	}

	// Defaults
	if cfg.AutoconfEnabled {
		t.Error("autoconf should default to disabled")
	}
	if cfg.EphemeralBackend != "memory" {
		t.Errorf("EphemeralBackend = %q, want memory", cfg.EphemeralBackend)
	}
	if cfg.EphemeralTTL != 10*time.Minute {
		t.Errorf("EphemeralTTL = %v, want 10m", cfg.EphemeralTTL)
	}
	if cfg.Transport != "telnet" {
		t.Errorf("Transport = %q, want telnet", cfg.Transport)
	}
}

func TestLoadFull(t *testing.T) {
	cfg, err := Load(writeConfig(t, `[liscain]
database = /var/lib/liscain/liscain.db
command_socket = 127.0.0.1:1337
opt82_zmq_listener = 0.0.0.0:1338
liscain_adopt_dn = liscain.example.org
liscain_init_username = liscain
liscain_init_password = hunter2
autoconf_enabled = yes
autoconf_mode = opt82
autoconf_path = /etc/liscain/autoconf
autoconf_version_whitelist_prefix = 15.2,16.
serve_http = yes
http_port = 8081
ephemeral_backend = redis
ephemeral_redis = 127.0.0.1:6379
liscain_transport = ssh
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.AutoconfEnabled || cfg.AutoconfMode != "opt82" {
		t.Errorf("autoconf = %v/%q", cfg.AutoconfEnabled, cfg.AutoconfMode)
	}
	if cfg.AutoconfVersionWhitelist != "15.2,16." {
		t.Errorf("whitelist = %q", cfg.AutoconfVersionWhitelist)
	}
	if !cfg.ServeHTTP || cfg.HTTPPort != 8081 {
		t.Errorf("http = %v/%d", cfg.ServeHTTP, cfg.HTTPPort)
	}
	if cfg.EphemeralBackend != "redis" || cfg.EphemeralRedis != "127.0.0.1:6379" {
		t.Errorf("ephemeral = %q/%q", cfg.EphemeralBackend, cfg.EphemeralRedis)
	}
	if cfg.Transport != "ssh" {
		t.Errorf("Transport = %q", cfg.Transport)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing database", func(c *Config) { c.Database = "" }, true},
		{"missing command socket", func(c *Config) { c.CommandSocket = "" }, true},
		{"autoconf without mode", func(c *Config) { c.AutoconfEnabled = true; c.AutoconfPath = "x" }, true},
		{"autoconf bad mode", func(c *Config) {
			c.AutoconfEnabled = true
			c.AutoconfMode = "lldp"
			c.AutoconfPath = "x"
		}, true},
		{"cdp without jaspy", func(c *Config) {
			c.AutoconfEnabled = true
			c.AutoconfMode = "cdp"
			c.AutoconfPath = "x"
		}, true},
		{"redis without addr", func(c *Config) { c.EphemeralBackend = "redis" }, true},
		{"bad transport", func(c *Config) { c.Transport = "serial" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Database:         "x.db",
				CommandSocket:    "127.0.0.1:1337",
				EphemeralBackend: "memory",
				Transport:        "telnet",
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
