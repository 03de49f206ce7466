package remote

import (
	"context"
	"os/user"
	"runtime"
	"strings"

	"github.com/Mmx233/lptf/protocol"
	"github.com/shirou/gopsutil/v4/host"
)

// HostInfo describes the machine the server runs on.
type HostInfo struct {
	Hostname     string
	Username     string
	OSName       string
	OSVersion    string
	Architecture string
	Platform     string
	Uptime       uint64 // seconds
}

func HostInfoWithContext(ctx context.Context) (HostInfo, error) {
	stat, err := host.InfoWithContext(ctx)
	if err != nil {
		return HostInfo{}, err
	}
	info := HostInfo{
		Hostname:     stat.Hostname,
		Username:     currentUser(),
		OSName:       stat.OS,
		OSVersion:    stat.KernelVersion,
		Architecture: stat.KernelArch,
		Platform:     strings.TrimSpace(stat.Platform + " " + stat.PlatformVersion),
		Uptime:       stat.Uptime,
	}
	if info.Architecture == "" {
		info.Architecture = runtime.GOARCH
	}
	return info, nil
}

func currentUser() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}

// Packet encodes the info as a host-info response.
func (h HostInfo) Packet() *protocol.Packet {
	p := protocol.NewPacket(protocol.MsgTypeHostInfoResponse)
	p.SetString("hostname", h.Hostname)
	p.SetString("username", h.Username)
	p.SetString("os_name", h.OSName)
	p.SetString("os_version", h.OSVersion)
	p.SetString("architecture", h.Architecture)
	p.SetString("platform", h.Platform)
	p.SetUint64("uptime", h.Uptime)
	return p
}
