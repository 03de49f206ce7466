package config

import (
	"fmt"
	"net"
	"strconv"
)

const (
	EnvPrefix = "LPTF_"
)

type Listen struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
}

func (l Listen) GetIP() (net.IP, error) {
	ip := net.ParseIP(l.IP).To4()
	if ip == nil {
		return nil, fmt.Errorf("invalid ipv4 address: %s", l.IP)
	}
	return ip, nil
}

// Address returns "ip:port".
func (l Listen) Address() string {
	return net.JoinHostPort(l.IP, strconv.Itoa(l.Port))
}

func (l Listen) Validate() error {
	if _, err := l.GetIP(); err != nil {
		return err
	}
	// port 0 binds an ephemeral port
	if l.Port < 0 || l.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", l.Port)
	}
	return nil
}

// ValidateAddress validates that an address is in valid host:port format.
// Returns an error if the address is invalid.
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address cannot be empty")
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address format %q: %w", addr, err)
	}

	if host == "" {
		return fmt.Errorf("host cannot be empty in address %q", addr)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port in address %q: %w", addr, err)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d in address %q", port, addr)
	}

	return nil
}
