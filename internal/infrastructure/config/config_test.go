package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// validJWTSecret meets the 32-character minimum.
const validJWTSecret = "test-secret-key-at-least-32-chars!"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
instance:
  id: "test-instance"
database:
  path: "/tmp/test.db"
  wal_mode: true
mqtt:
  broker:
    host: "broker.local"
    port: 1883
    client_id: "test-client"
  qos: 1
homeassistant:
  discovery_prefix: "ha"
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
entries:
  - title: "Home"
    username: "user@example.com"
    password: "hunter2"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Instance.ID != "test-instance" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-instance")
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
	if cfg.HomeAssistant.DiscoveryPrefix != "ha" {
		t.Errorf("HomeAssistant.DiscoveryPrefix = %q, want %q", cfg.HomeAssistant.DiscoveryPrefix, "ha")
	}
	// Unset keys keep their defaults.
	if cfg.HomeAssistant.BaseTopic != "miraie" {
		t.Errorf("HomeAssistant.BaseTopic = %q, want %q", cfg.HomeAssistant.BaseTopic, "miraie")
	}
	if cfg.MirAIe.BrokerPort != 8883 {
		t.Errorf("MirAIe.BrokerPort = %d, want 8883", cfg.MirAIe.BrokerPort)
	}
	if len(cfg.Entries) != 1 || cfg.Entries[0].Username != "user@example.com" {
		t.Errorf("Entries = %+v, want one entry for user@example.com", cfg.Entries)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
instance:
  id: ""
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Error("Load() expected validation error for empty instance.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{
			name:    "missing instance ID",
			mutate:  func(c *Config) { c.Instance.ID = "" },
			wantErr: "instance.id",
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "missing discovery prefix",
			mutate:  func(c *Config) { c.HomeAssistant.DiscoveryPrefix = "" },
			wantErr: "discovery_prefix",
		},
		{
			name:    "invalid broker port",
			mutate:  func(c *Config) { c.MirAIe.BrokerPort = 0 },
			wantErr: "miraie.broker_port",
		},
		{
			name:    "invalid API port",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "api.port",
		},
		{
			name:    "missing JWT secret",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "" },
			wantErr: "security.jwt.secret is required",
		},
		{
			name:    "JWT secret too short",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "short" },
			wantErr: "at least 32 characters",
		},
		{
			name: "entry without password",
			mutate: func(c *Config) {
				c.Entries = []EntryConfig{{Username: "user@example.com"}}
			},
			wantErr: "entries[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Security.JWT.Secret = validJWTSecret
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{Read: 30, Write: 45, Idle: 60},
		},
		MirAIe: MirAIeConfig{HTTPTimeout: 15},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
	if got := cfg.GetHTTPTimeout().Seconds(); got != 15 {
		t.Errorf("GetHTTPTimeout() = %v, want 15", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("MIRAIE_DATABASE_PATH", "/custom/path.db")
	t.Setenv("MIRAIE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("MIRAIE_MQTT_PORT", "1884")
	t.Setenv("MIRAIE_MQTT_USERNAME", "testuser")
	t.Setenv("MIRAIE_MQTT_PASSWORD", "testpass")
	t.Setenv("MIRAIE_API_PORT", "not-a-number")
	t.Setenv("MIRAIE_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("MIRAIE_JWT_SECRET", "jwt-secret")
	t.Setenv("MIRAIE_USERNAME", "user@example.com")
	t.Setenv("MIRAIE_PASSWORD", "hunter2")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Broker.Port != 1884 {
		t.Errorf("MQTT.Broker.Port = %d, want 1884", cfg.MQTT.Broker.Port)
	}
	if cfg.MQTT.Auth.Username != "testuser" || cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth = %+v, want testuser/testpass", cfg.MQTT.Auth)
	}
	// Unparseable ports are ignored.
	if cfg.API.Port != 8099 {
		t.Errorf("API.Port = %d, want 8099", cfg.API.Port)
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
	if cfg.Security.JWT.Secret != "jwt-secret" {
		t.Errorf("Security.JWT.Secret = %q, want %q", cfg.Security.JWT.Secret, "jwt-secret")
	}
	if len(cfg.Entries) != 1 || cfg.Entries[0].Password != "hunter2" {
		t.Errorf("Entries = %+v, want bootstrap entry from environment", cfg.Entries)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Instance.ID == "" {
		t.Error("defaultConfig should have non-empty Instance.ID")
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.HomeAssistant.DiscoveryPrefix != "homeassistant" {
		t.Errorf("defaultConfig HomeAssistant.DiscoveryPrefix = %q, want homeassistant", cfg.HomeAssistant.DiscoveryPrefix)
	}
	if cfg.MirAIe.BrokerHost != "mqtt.miraie.in" {
		t.Errorf("defaultConfig MirAIe.BrokerHost = %q, want mqtt.miraie.in", cfg.MirAIe.BrokerHost)
	}
}
