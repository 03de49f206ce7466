package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

// testConfig is a simple struct for testing the generic loader
type testConfig struct {
	Name    string `yaml:"name"`
	Port    int    `yaml:"port"`
	Enabled bool   `yaml:"enabled"`
}

func TestLoadConfig_Success(t *testing.T) {
	// Create a temporary YAML file
	content := `name: test-service
port: 8080
enabled: true
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfig[testConfig](configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Name != "test-service" {
		t.Errorf("expected Name 'test-service', got '%s'", cfg.Name)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected Port 8080, got %d", cfg.Port)
	}
	if !cfg.Enabled {
		t.Errorf("expected Enabled true, got false")
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig[testConfig]("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for non-existent file, got nil")
	}
	if !strings.Contains(err.Error(), "read config file") {
		t.Errorf("expected error to contain 'read config file', got: %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	// Create a temporary file with invalid YAML
	content := `name: [invalid yaml
port: not closed`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := LoadConfig[testConfig](configPath)
	if err == nil {
		t.Fatal("expected error for invalid YAML, got nil")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Errorf("expected error to contain 'parse config', got: %v", err)
	}
}

// Property-based test for round-trip consistency
// Feature: config-load-refactor, Property 1: Config Round-Trip Consistency
// Validates: Requirements 1.2, 1.5

func TestLoadConfig_RoundTrip_Property(t *testing.T) {
	// Property: For any valid config struct, writing to YAML and loading back
	// should produce an equivalent struct.
	for i := 0; i < 100; i++ {
		// Generate random config values
		original := testConfig{
			Name:    randomString(i),
			Port:    (i * 17) % 65535, // Vary port values
			Enabled: i%2 == 0,
		}

		// Write to YAML file
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.yaml")

		yamlData, err := yaml.Marshal(&original)
		if err != nil {
			t.Fatalf("iteration %d: failed to marshal config: %v", i, err)
		}

		if err := os.WriteFile(configPath, yamlData, 0644); err != nil {
			t.Fatalf("iteration %d: failed to write config: %v", i, err)
		}

		// Load back using LoadConfig
		loaded, err := LoadConfig[testConfig](configPath)
		if err != nil {
			t.Fatalf("iteration %d: LoadConfig failed: %v", i, err)
		}

		// Verify equivalence
		if loaded.Name != original.Name {
			t.Errorf("iteration %d: Name mismatch: got %q, want %q", i, loaded.Name, original.Name)
		}
		if loaded.Port != original.Port {
			t.Errorf("iteration %d: Port mismatch: got %d, want %d", i, loaded.Port, original.Port)
		}
		if loaded.Enabled != original.Enabled {
			t.Errorf("iteration %d: Enabled mismatch: got %v, want %v", i, loaded.Enabled, original.Enabled)
		}
	}
}

// randomString generates a deterministic string based on seed for reproducibility
func randomString(seed int) string {
	chars := "abcdefghijklmnopqrstuvwxyz0123456789-_"
	length := (seed % 20) + 1
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		result[i] = chars[(seed+i*7)%len(chars)]
	}
	return string(result)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoadServerConfig(t *testing.T) {
	configPath := writeConfig(t, `listen:
  ip: 127.0.0.1
  port: 9000
max_clients: 3
poll_timeout: 250ms
full_policy: reject
rate_limit:
  messages_per_second: 5
remote:
  enabled: true
  allow_exec: true
  exec_timeout: 2s
`)

	cfg, err := LoadServerConfig(configPath)
	if err != nil {
		t.Fatalf("LoadServerConfig failed: %v", err)
	}

	if cfg.Listen.Address() != "127.0.0.1:9000" {
		t.Errorf("expected listen 127.0.0.1:9000, got %s", cfg.Listen.Address())
	}
	if cfg.MaxClients != 3 {
		t.Errorf("expected max_clients 3, got %d", cfg.MaxClients)
	}
	if cfg.PollTimeout != 250*time.Millisecond {
		t.Errorf("expected poll_timeout 250ms, got %s", cfg.PollTimeout)
	}
	if cfg.FullPolicy != FullPolicyReject {
		t.Errorf("expected full_policy reject, got %q", cfg.FullPolicy)
	}
	if cfg.RateLimit.Burst != 5 {
		t.Errorf("expected burst defaulted to 5, got %d", cfg.RateLimit.Burst)
	}
	if !cfg.Remote.Enabled || !cfg.Remote.AllowExec || cfg.Remote.ExecTimeout != 2*time.Second {
		t.Errorf("unexpected remote section: %+v", cfg.Remote)
	}
	// untouched fields get defaults
	if cfg.Backlog != DefaultBacklog || cfg.WelcomeMessage != DefaultWelcomeMessage {
		t.Errorf("defaults not applied: backlog=%d welcome=%q", cfg.Backlog, cfg.WelcomeMessage)
	}
}

func TestLoadServerConfig_Invalid(t *testing.T) {
	configPath := writeConfig(t, `full_policy: drop
`)
	_, err := LoadServerConfig(configPath)
	if err == nil {
		t.Fatal("expected error for unknown full_policy, got nil")
	}
	if !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("expected error to contain 'invalid config', got: %v", err)
	}
}

func TestLoadClientConfig(t *testing.T) {
	configPath := writeConfig(t, `server: "chat.example.com:8080"
username: alice
receive_timeout: 3s
`)

	cfg, err := LoadClientConfig(configPath)
	if err != nil {
		t.Fatalf("LoadClientConfig failed: %v", err)
	}
	if cfg.Server != "chat.example.com:8080" {
		t.Errorf("expected server chat.example.com:8080, got %q", cfg.Server)
	}
	if cfg.Username != "alice" {
		t.Errorf("expected username alice, got %q", cfg.Username)
	}
	if cfg.ReceiveTimeout != 3*time.Second {
		t.Errorf("expected receive_timeout 3s, got %s", cfg.ReceiveTimeout)
	}
	if cfg.ReadBufferSize != DefaultReadBufferSize {
		t.Errorf("expected default read_buffer_size, got %d", cfg.ReadBufferSize)
	}
}

func TestLoadClientConfig_InvalidAddress(t *testing.T) {
	configPath := writeConfig(t, `server: "no-port"
`)
	_, err := LoadClientConfig(configPath)
	if err == nil {
		t.Fatal("expected error for address without port, got nil")
	}
	if !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("expected error to contain 'invalid config', got: %v", err)
	}
}
