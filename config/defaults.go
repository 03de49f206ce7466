package config

import (
	"time"

	"github.com/google/uuid"
)

// Server defaults
const (
	// DefaultListenIP binds every interface
	DefaultListenIP = "0.0.0.0"

	DefaultListenPort = 8080

	// DefaultMaxClients is the registry capacity
	DefaultMaxClients = 10

	// DefaultBacklog is the listen(2) backlog
	DefaultBacklog = 5

	// DefaultPollTimeout bounds one wait of the event loop
	DefaultPollTimeout = time.Second

	// DefaultReadBufferSize is the size of a single read from a peer
	DefaultReadBufferSize = 1024

	DefaultWelcomeMessage = "Welcome to the LPTF server!"

	// DefaultExecTimeout bounds a remote command execution
	DefaultExecTimeout = 10 * time.Second

	// DefaultCaptureInterval is the pace of the demo capture worker
	DefaultCaptureInterval = time.Second

	// DefaultCaptureLimit is how many demo keys one capture produces
	DefaultCaptureLimit = 10
)

// Admission policies applied when the registry is full
const (
	FullPolicySilent = "silent"
	FullPolicyReject = "reject"
)

// Client defaults
const (
	DefaultServerAddress = "127.0.0.1:8080"

	// DefaultReceiveTimeout of zero blocks until data arrives
	DefaultReceiveTimeout = 0
)

// GenerateUsername returns a guest name with a random suffix.
func GenerateUsername() string {
	return "guest-" + uuid.NewString()[:8]
}
