package config

import (
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func validServer() *Server {
	s := &Server{}
	s.ApplyDefaults()
	return s
}

func TestServer_YAMLParsing_Durations(t *testing.T) {
	content := `poll_timeout: 1500ms
remote:
  exec_timeout: 1m
  capture_interval: 100ms
`
	var s Server
	if err := yaml.Unmarshal([]byte(content), &s); err != nil {
		t.Fatalf("failed to unmarshal YAML: %v", err)
	}

	if s.PollTimeout != 1500*time.Millisecond {
		t.Errorf("expected PollTimeout 1.5s, got %s", s.PollTimeout)
	}
	if s.Remote.ExecTimeout != time.Minute {
		t.Errorf("expected ExecTimeout 1m, got %s", s.Remote.ExecTimeout)
	}
	if s.Remote.CaptureInterval != 100*time.Millisecond {
		t.Errorf("expected CaptureInterval 100ms, got %s", s.Remote.CaptureInterval)
	}
}

func TestServer_ApplyDefaults_KeepsExplicitValues(t *testing.T) {
	s := &Server{
		Listen:     Listen{IP: "127.0.0.1", Port: 7000},
		MaxClients: 42,
		FullPolicy: FullPolicyReject,
		RateLimit:  RateLimit{MessagesPerSecond: 2, Burst: 9},
	}
	s.ApplyDefaults()

	if s.Listen.IP != "127.0.0.1" || s.Listen.Port != 7000 {
		t.Errorf("listen overwritten: %+v", s.Listen)
	}
	if s.MaxClients != 42 {
		t.Errorf("expected MaxClients 42, got %d", s.MaxClients)
	}
	if s.FullPolicy != FullPolicyReject {
		t.Errorf("expected FullPolicy reject, got %q", s.FullPolicy)
	}
	if s.RateLimit.Burst != 9 {
		t.Errorf("expected Burst 9, got %d", s.RateLimit.Burst)
	}
}

func TestServer_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Server)
		wantErr string
	}{
		{"defaults", func(s *Server) {}, ""},
		{"ephemeral port", func(s *Server) { s.Listen.Port = 0 }, ""},
		{"bad ip", func(s *Server) { s.Listen.IP = "localhost" }, "listen"},
		{"ipv6", func(s *Server) { s.Listen.IP = "::1" }, "listen"},
		{"port too large", func(s *Server) { s.Listen.Port = 65536 }, "listen"},
		{"negative clients", func(s *Server) { s.MaxClients = -1 }, "max_clients"},
		{"negative backlog", func(s *Server) { s.Backlog = -1 }, "backlog"},
		{"negative poll timeout", func(s *Server) { s.PollTimeout = -time.Second }, "poll_timeout"},
		{"tiny read buffer", func(s *Server) { s.ReadBufferSize = 8 }, "read_buffer_size"},
		{"unknown policy", func(s *Server) { s.FullPolicy = "drop" }, "full_policy"},
		{"negative rate", func(s *Server) { s.RateLimit.MessagesPerSecond = -1 }, "rate_limit"},
		{"negative socket buffer", func(s *Server) { s.Socket.RecvBuffer = -1 }, "socket"},
		{"negative process limit", func(s *Server) { s.Remote.ProcessLimit = -1 }, "remote"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validServer()
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestListen_Address(t *testing.T) {
	l := Listen{IP: "10.0.0.1", Port: 8080}
	if l.Address() != "10.0.0.1:8080" {
		t.Errorf("expected 10.0.0.1:8080, got %s", l.Address())
	}
	ip, err := l.GetIP()
	if err != nil {
		t.Fatalf("GetIP failed: %v", err)
	}
	if ip.String() != "10.0.0.1" {
		t.Errorf("expected 10.0.0.1, got %s", ip)
	}
}
