package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dreschagin/kvm-streamer-api/internal/interfaces/http/response"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// maxTrackedClients bounds the limiter map between idle sweeps
const maxTrackedClients = 10000

// IPRateLimiter holds rate limiters for each IP address
type IPRateLimiter struct {
	limiters   map[string]*limiterEntry
	mu         sync.Mutex
	rps        rate.Limit
	burst      int
	idleTTL    time.Duration
	maxEntries int
	trusted    []netip.Prefix
	now        func() time.Time
}

// NewIPRateLimiter creates a new IP-based rate limiter
// rps: requests per second allowed per IP
// burst: maximum burst size
func NewIPRateLimiter(rps float64, burst int) *IPRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &IPRateLimiter{
		limiters: make(map[string]*limiterEntry),
		rps:      rate.Limit(rps),
		burst:    burst,
		idleTTL:    5 * time.Minute,
		maxEntries: maxTrackedClients,
		now:        time.Now,
	}
}

// TrustProxies sets the proxies whose X-Forwarded-For and X-Real-IP headers are honored.
// Entries are IP addresses or CIDR prefixes. Without trusted proxies only RemoteAddr is used.
func (i *IPRateLimiter) TrustProxies(entries []string) error {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}

	i.mu.Lock()
	i.trusted = prefixes
	i.mu.Unlock()
	return nil
}

// Allow reports whether a request from ip may proceed
func (i *IPRateLimiter) Allow(ip string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	entry, exists := i.limiters[ip]
	if !exists {
		if len(i.limiters) >= i.maxEntries {
			i.shrinkLocked()
		}
		entry = &limiterEntry{limiter: rate.NewLimiter(i.rps, i.burst)}
		i.limiters[ip] = entry
	}
	entry.lastSeen = i.now()

	return entry.limiter.Allow()
}

// Len returns the number of tracked addresses
func (i *IPRateLimiter) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.limiters)
}

// Run periodically forgets addresses idle for longer than idleTTL, until ctx is done
func (i *IPRateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(i.idleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i.evictIdle()
		}
	}
}

func (i *IPRateLimiter) evictIdle() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.evictIdleLocked()
}

func (i *IPRateLimiter) evictIdleLocked() {
	cutoff := i.now().Add(-i.idleTTL)
	for ip, entry := range i.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(i.limiters, ip)
		}
	}
}

// shrinkLocked frees room for a new client: idle entries first, then half of the map
func (i *IPRateLimiter) shrinkLocked() {
	i.evictIdleLocked()
	if len(i.limiters) < i.maxEntries {
		return
	}

	drop := len(i.limiters) / 2
	for ip := range i.limiters {
		if drop == 0 {
			break
		}
		delete(i.limiters, ip)
		drop--
	}
}

func (i *IPRateLimiter) isTrusted(addr netip.Addr) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	for _, prefix := range i.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// RateLimit middleware limits requests per IP address
func RateLimit(limiter *IPRateLimiter, onDrop func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(limiter.clientIP(r)) {
				if onDrop != nil {
					onDrop()
				}
				w.Header().Set("Retry-After", "1")
				response.WriteError(w, http.StatusTooManyRequests, response.KindRateLimit, "Rate limit exceeded. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the address the limit applies to. Forwarding headers are used only
// when the direct peer is a trusted proxy; then the rightmost untrusted X-Forwarded-For hop wins.
func (i *IPRateLimiter) clientIP(r *http.Request) string {
	remote := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		remote = host
	}

	remoteAddr, err := netip.ParseAddr(remote)
	if err != nil || !i.isTrusted(remoteAddr.Unmap()) {
		return remote
	}

	if forwarded := r.Header.Values("X-Forwarded-For"); len(forwarded) > 0 {
		hops := strings.Split(strings.Join(forwarded, ","), ",")
		client := ""
		for idx := len(hops) - 1; idx >= 0; idx-- {
			hop := strings.TrimSpace(hops[idx])
			if hop == "" {
				continue
			}
			addr, err := netip.ParseAddr(hop)
			if err != nil {
				break
			}
			client = addr.Unmap().String()
			if !i.isTrusted(addr.Unmap()) {
				break
			}
		}
		if client != "" {
			return client
		}
	}

	if realIP, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return realIP.Unmap().String()
	}
	return remote
}
