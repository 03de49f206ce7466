package config

import (
	"fmt"
	"time"
)

type Client struct {
	Server         string        `yaml:"server"` // host:port
	Username       string        `yaml:"username"`
	ReadBufferSize int           `yaml:"read_buffer_size"`
	ReceiveTimeout time.Duration `yaml:"receive_timeout"` // 0 blocks
}

// ApplyDefaults fills zero-valued fields. An empty username gets a generated guest name.
func (c *Client) ApplyDefaults() {
	if c.Server == "" {
		c.Server = DefaultServerAddress
	}
	if c.Username == "" {
		c.Username = GenerateUsername()
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = DefaultReadBufferSize
	}
}

func (c *Client) Validate() error {
	if err := ValidateAddress(c.Server); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if c.Username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if len(c.Username) > 255 {
		return fmt.Errorf("username longer than 255 bytes")
	}
	if c.ReadBufferSize < 64 {
		return fmt.Errorf("read_buffer_size must be at least 64, got %d", c.ReadBufferSize)
	}
	if c.ReceiveTimeout < 0 {
		return fmt.Errorf("receive_timeout must not be negative, got %s", c.ReceiveTimeout)
	}
	return nil
}
