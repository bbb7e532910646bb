package agent

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrBusy        = errors.New("agent request already running")
	ErrRateLimited = errors.New("too many agent requests")
)

type guardKey struct {
	board  string
	client string
}

// Guard admits at most one agent run per board and client, and rate limits each
// client with a token bucket.
type Guard struct {
	mu       sync.Mutex
	running  map[guardKey]struct{}
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
}

// NewGuard allows perMinute requests per client. Zero or less disables the rate
// limit and keeps only the busy check.
func NewGuard(perMinute int) *Guard {
	g := &Guard{
		running:  make(map[guardKey]struct{}),
		limiters: make(map[string]*rate.Limiter),
		every:    rate.Inf,
	}
	if perMinute > 0 {
		g.every = rate.Every(time.Minute / time.Duration(perMinute))
		g.burst = perMinute
	}
	return g
}

// Acquire marks a run as started. Every nil return must be paired with Release.
func (g *Guard) Acquire(board, client string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	k := guardKey{board: board, client: client}
	if _, ok := g.running[k]; ok {
		return ErrBusy
	}
	if !g.limiter(client).Allow() {
		return ErrRateLimited
	}
	g.running[k] = struct{}{}
	return nil
}

func (g *Guard) Release(board, client string) {
	g.mu.Lock()
	delete(g.running, guardKey{board: board, client: client})
	g.mu.Unlock()
}

// Busy reports whether a run is in flight for board and client.
func (g *Guard) Busy(board, client string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.running[guardKey{board: board, client: client}]
	return ok
}

// Forget drops the client's limiter once it disconnects.
func (g *Guard) Forget(client string) {
	g.mu.Lock()
	delete(g.limiters, client)
	g.mu.Unlock()
}

func (g *Guard) limiter(client string) *rate.Limiter {
	l, ok := g.limiters[client]
	if !ok {
		l = rate.NewLimiter(g.every, g.burst)
		g.limiters[client] = l
	}
	return l
}
