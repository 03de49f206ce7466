package config

import (
	"fmt"
	"time"
)

type Server struct {
	Listen         Listen        `yaml:"listen"`
	MaxClients     int           `yaml:"max_clients"`
	Backlog        int           `yaml:"backlog"`
	PollTimeout    time.Duration `yaml:"poll_timeout"`
	ReadBufferSize int           `yaml:"read_buffer_size"`
	FullPolicy     string        `yaml:"full_policy"`
	WelcomeMessage string        `yaml:"welcome_message"`
	RateLimit      RateLimit     `yaml:"rate_limit"`
	Socket         Socket        `yaml:"socket"`
	Remote         Remote        `yaml:"remote"`
}

// RateLimit bounds inbound messages per peer. A zero rate disables it.
type RateLimit struct {
	MessagesPerSecond float64 `yaml:"messages_per_second"`
	Burst             int     `yaml:"burst"`
}

// Socket holds tunables applied to every accepted connection.
type Socket struct {
	RecvBuffer int  `yaml:"recv_buffer"`
	SendBuffer int  `yaml:"send_buffer"`
	NoDelay    bool `yaml:"no_delay"`
}

type Remote struct {
	Enabled         bool          `yaml:"enabled"`
	AllowExec       bool          `yaml:"allow_exec"`
	ExecTimeout     time.Duration `yaml:"exec_timeout"`
	ProcessLimit    int           `yaml:"process_limit"` // 0 lists every process
	CaptureInterval time.Duration `yaml:"capture_interval"`
	CaptureLimit    int           `yaml:"capture_limit"`
}

// ApplyDefaults fills zero-valued fields.
func (s *Server) ApplyDefaults() {
	if s.Listen.IP == "" {
		s.Listen.IP = DefaultListenIP
	}
	if s.MaxClients == 0 {
		s.MaxClients = DefaultMaxClients
	}
	if s.Backlog == 0 {
		s.Backlog = DefaultBacklog
	}
	if s.PollTimeout == 0 {
		s.PollTimeout = DefaultPollTimeout
	}
	if s.ReadBufferSize == 0 {
		s.ReadBufferSize = DefaultReadBufferSize
	}
	if s.FullPolicy == "" {
		s.FullPolicy = FullPolicySilent
	}
	if s.WelcomeMessage == "" {
		s.WelcomeMessage = DefaultWelcomeMessage
	}
	if s.RateLimit.MessagesPerSecond > 0 && s.RateLimit.Burst == 0 {
		s.RateLimit.Burst = max(1, int(s.RateLimit.MessagesPerSecond))
	}
	s.Remote.ApplyDefaults()
}

func (s *Server) Validate() error {
	if err := s.Listen.Validate(); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	if s.MaxClients < 1 {
		return fmt.Errorf("max_clients must be positive, got %d", s.MaxClients)
	}
	if s.Backlog < 1 {
		return fmt.Errorf("backlog must be positive, got %d", s.Backlog)
	}
	if s.PollTimeout <= 0 {
		return fmt.Errorf("poll_timeout must be positive, got %s", s.PollTimeout)
	}
	if s.ReadBufferSize < 64 {
		return fmt.Errorf("read_buffer_size must be at least 64, got %d", s.ReadBufferSize)
	}
	switch s.FullPolicy {
	case FullPolicySilent, FullPolicyReject:
	default:
		return fmt.Errorf("full_policy must be %q or %q, got %q", FullPolicySilent, FullPolicyReject, s.FullPolicy)
	}
	if s.RateLimit.MessagesPerSecond < 0 || s.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}
	if s.Socket.RecvBuffer < 0 || s.Socket.SendBuffer < 0 {
		return fmt.Errorf("socket buffer sizes must not be negative")
	}
	if err := s.Remote.Validate(); err != nil {
		return fmt.Errorf("remote: %w", err)
	}
	return nil
}

func (r *Remote) ApplyDefaults() {
	if r.ExecTimeout == 0 {
		r.ExecTimeout = DefaultExecTimeout
	}
	if r.CaptureInterval == 0 {
		r.CaptureInterval = DefaultCaptureInterval
	}
	if r.CaptureLimit == 0 {
		r.CaptureLimit = DefaultCaptureLimit
	}
}

func (r *Remote) Validate() error {
	if r.ExecTimeout <= 0 {
		return fmt.Errorf("exec_timeout must be positive, got %s", r.ExecTimeout)
	}
	if r.ProcessLimit < 0 {
		return fmt.Errorf("process_limit must not be negative, got %d", r.ProcessLimit)
	}
	if r.CaptureInterval <= 0 {
		return fmt.Errorf("capture_interval must be positive, got %s", r.CaptureInterval)
	}
	if r.CaptureLimit < 1 {
		return fmt.Errorf("capture_limit must be positive, got %d", r.CaptureLimit)
	}
	return nil
}
