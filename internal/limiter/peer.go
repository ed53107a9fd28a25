package limiter

import (
	"context"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// Peers hands out one token bucket per client host.
type Peers struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewPeers limits each host to rps requests per second with the given burst.
// Buckets unused for idle are dropped on the next call.
func NewPeers(rps float64, burst int, idle time.Duration) *Peers {
	if burst < 1 {
		burst = 1
	}
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	return &Peers{
		buckets: map[string]*bucket{},
		limit:   rate.Limit(rps),
		burst:   burst,
		idle:    idle,
		now:     time.Now,
	}
}

// Allow consumes one token for key.
func (p *Peers) Allow(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for k, b := range p.buckets {
		if now.Sub(b.seen) > p.idle {
			delete(p.buckets, k)
		}
	}
	b, ok := p.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(p.limit, p.burst)}
		p.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// UnaryInterceptor rejects calls over the peer's rate with ResourceExhausted.
// With methods given, only those full method names are limited.
func (p *Peers) UnaryInterceptor(methods ...string) grpc.UnaryServerInterceptor {
	only := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		only[m] = struct{}{}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if len(only) > 0 {
			if _, ok := only[info.FullMethod]; !ok {
				return handler(ctx, req)
			}
		}
		if !p.Allow(PeerHost(ctx)) {
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(ctx, req)
	}
}

// PeerHost returns the host part of the caller's address, or "" if unknown.
func PeerHost(ctx context.Context) string {
	pr, ok := peer.FromContext(ctx)
	if !ok || pr.Addr == nil {
		return ""
	}
	addr := pr.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
