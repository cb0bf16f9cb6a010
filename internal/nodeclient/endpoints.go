package nodeclient

import (
	"strings"
	"sync"
	"time"
)

// endpointPool hands out REST base URLs round-robin, advancing to the next
// endpoint once per rotation interval. Rotation is lazy: it happens on the
// next pick after the interval elapses.
type endpointPool struct {
	mu        sync.Mutex
	endpoints []string
	index     int
	rotation  time.Duration
	rotatedAt time.Time
	now       func() time.Time
}

func newEndpointPool(endpoints []string, rotation time.Duration) *endpointPool {
	trimmed := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		if e = strings.TrimRight(strings.TrimSpace(e), "/"); e != "" {
			trimmed = append(trimmed, e)
		}
	}
	return &endpointPool{
		endpoints: trimmed,
		rotation:  rotation,
		now:       time.Now,
	}
}

func (p *endpointPool) current() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.endpoints) == 0 {
		return ""
	}
	now := p.now()
	if p.rotatedAt.IsZero() {
		p.rotatedAt = now
	}
	if p.rotation > 0 && len(p.endpoints) > 1 && now.Sub(p.rotatedAt) >= p.rotation {
		p.index = (p.index + 1) % len(p.endpoints)
		p.rotatedAt = now
	}
	return p.endpoints[p.index]
}
