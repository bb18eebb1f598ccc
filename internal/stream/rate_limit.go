package stream

import "sync"

// defaultMaxTotal caps streams across all clients so a crowd of distinct
// IPs cannot exhaust the snapshot workers.
const defaultMaxTotal = 1000

// streamLimiter bounds concurrent SSE connections, per client IP and in
// total. Entries are removed as soon as an IP's count drops to zero so
// the map stays proportional to active clients.
type streamLimiter struct {
	mu       sync.Mutex
	perIP    map[string]int
	total    int
	maxPerIP int
	maxTotal int
}

func newStreamLimiter(maxPerIP int) *streamLimiter {
	return &streamLimiter{
		perIP:    make(map[string]int),
		maxPerIP: maxPerIP,
		maxTotal: defaultMaxTotal,
	}
}

// acquire reserves a connection slot for ip. It returns false when either
// the per-IP or the global cap is already reached.
func (l *streamLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.total >= l.maxTotal || l.perIP[ip] >= l.maxPerIP {
		return false
	}
	l.perIP[ip]++
	l.total++
	return true
}

// release returns a slot previously taken by acquire.
func (l *streamLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.total--
	if l.perIP[ip] <= 1 {
		delete(l.perIP, ip)
		return
	}
	l.perIP[ip]--
}

// count reports the live connection count for ip.
func (l *streamLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perIP[ip]
}
