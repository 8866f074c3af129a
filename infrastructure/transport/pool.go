// Package transport provides the HTTP client pool and dispatcher for the
// external speech-transcription API.
package transport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meetscribe/scribe-go/domain/call"
	"github.com/meetscribe/scribe-go/infrastructure/logging"
)

// lease is one checked-out client and the configuration it was leased for.
type lease struct {
	client *http.Client
	cfg    call.ClientConfig
}

// Pool implements call.ClientPool over pooled http.Clients. Clients are
// keyed by (region, credential) so a lease always talks to the endpoint
// it was configured for.
type Pool struct {
	mu      sync.Mutex
	timeout time.Duration
	idle    map[string][]*http.Client
	leases  map[string]*lease
}

// PoolOption configures the pool.
type PoolOption func(*Pool)

// WithClientTimeout sets the per-request timeout on pooled clients.
func WithClientTimeout(d time.Duration) PoolOption {
	return func(p *Pool) {
		p.timeout = d
	}
}

// NewPool creates an empty client pool.
func NewPool(opts ...PoolOption) *Pool {
	p := &Pool{
		timeout: 30 * time.Second,
		idle:    make(map[string][]*http.Client),
		leases:  make(map[string]*lease),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetClient leases a client for the given configuration, reusing an idle
// one when available.
func (p *Pool) GetClient(ctx context.Context, cfg call.ClientConfig) (call.ClientHandle, error) {
	if err := ctx.Err(); err != nil {
		return call.ClientHandle{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := poolKey(cfg)
	var client *http.Client
	if pooled := p.idle[key]; len(pooled) > 0 {
		client = pooled[len(pooled)-1]
		p.idle[key] = pooled[:len(pooled)-1]
	} else {
		client = &http.Client{Timeout: p.timeout}
	}

	id := uuid.NewString()
	p.leases[id] = &lease{client: client, cfg: cfg}
	return call.ClientHandle{ClientID: id}, nil
}

// ReleaseClient returns a leased client to the idle pool. Releasing an
// unknown id is logged and ignored.
func (p *Pool) ReleaseClient(clientID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.leases[clientID]
	if !ok {
		logging.Warn().
			Add(logging.Str("client_id", clientID)).
			Msg("release of unknown client")
		return
	}
	delete(p.leases, clientID)
	key := poolKey(l.cfg)
	p.idle[key] = append(p.idle[key], l.client)
}

// Leased returns the number of currently leased clients.
func (p *Pool) Leased() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.leases)
}

// resolve looks up a lease by id.
func (p *Pool) resolve(clientID string) (*lease, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.leases[clientID]
	return l, ok
}

func poolKey(cfg call.ClientConfig) string {
	return cfg.Region + "\x00" + cfg.Credential
}
