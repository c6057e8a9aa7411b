package vm

import (
	"sort"
	"time"

	"deskvm.dev/deskvm/gen"
)

// Info builds the snapshot taking every resource lock one at a time. It
// must not be called with the primary lock held.
func (p *process) Info() gen.ProcessInfo {
	info := gen.ProcessInfo{
		ID:         p.id,
		Status:     p.status.Load(),
		Flags:      p.flags.load(),
		Attachment: p.attachment.load(),
		Links:      p.Links(),
		Monitors:   p.Monitors(),
		Mailbox:    p.mailbox.lens(),
		Timers:     p.Timers(),
		Reductions: p.reductions.Load(),
		Uptime:     time.Now().Unix() - p.creation,
	}

	p.kv.read(func(kv map[gen.Type]gen.Value) {
		info.KvKeys = make([]gen.Type, 0, len(kv))
		for key := range kv {
			info.KvKeys = append(info.KvKeys, key)
		}
	})
	sort.Slice(info.KvKeys, func(i, j int) bool {
		return info.KvKeys[i] < info.KvKeys[j]
	})

	p.vm.names.Range(func(k, v any) bool {
		if v.(gen.ProcessID) == p.id {
			info.Names = append(info.Names, k.(gen.Name))
		}
		return true
	})
	sort.Slice(info.Names, func(i, j int) bool {
		return info.Names[i] < info.Names[j]
	})

	return info
}
