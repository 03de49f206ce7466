package remote

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Mmx233/lptf/protocol"
	"github.com/shirou/gopsutil/v4/process"
)

type Process struct {
	PID  int32
	Name string
	CPU  float64 // percent
	RSS  uint64  // KiB
}

// Line formats p as "pid|name|cpu|rss".
func (p Process) Line() string {
	return fmt.Sprintf("%d|%s|%.1f|%d", p.PID, p.Name, p.CPU, p.RSS)
}

// ListProcesses returns running processes ordered by pid. A positive limit
// caps the result.
func ListProcesses(ctx context.Context, limit int) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Process, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			// exited since the listing
			continue
		}
		entry := Process{PID: p.Pid, Name: strings.ReplaceAll(name, "|", "_")}
		if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
			entry.CPU = cpu
		}
		if mem, err := p.MemoryInfoWithContext(ctx); err == nil {
			entry.RSS = mem.RSS / 1024
		}
		out = append(out, entry)
	}

	slices.SortFunc(out, func(a, b Process) int { return cmp.Compare(a.PID, b.PID) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// processListPacket encodes as many processes as fit in one string field.
func processListPacket(procs []Process) *protocol.Packet {
	var (
		b     strings.Builder
		count uint32
	)
	for _, p := range procs {
		line := p.Line() + "\n"
		if b.Len()+len(line) > protocol.MaxValueLength {
			break
		}
		b.WriteString(line)
		count++
	}

	pkt := protocol.NewPacket(protocol.MsgTypeProcessListResponse)
	pkt.SetUint32("process_count", count)
	pkt.SetString("process_list", b.String())
	return pkt
}
