package stream

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/tonimelisma/tdstream-go/internal/tdapi"
)

// PrincipalSource fetches the user principal. *tdapi.Client implements it.
type PrincipalSource interface {
	UserPrincipals(ctx context.Context) (*tdapi.UserPrincipal, error)
}

// Options configures a Pipeline.
type Options struct {
	// URL overrides the streamer socket URL.
	URL          string
	LoginTimeout time.Duration
	// FrameTimeout bounds each Start call's wait for a frame. Zero waits
	// until a frame arrives or the pipeline closes.
	FrameTimeout time.Duration
	HTTPClient   *http.Client
	Logger       *slog.Logger
}

// Pipeline queues subscription requests, sends them all at once when the
// stream starts, and yields inbound frames one per Start call. It never
// stops on its own; the caller decides when to Close.
type Pipeline struct {
	principal *tdapi.UserPrincipal
	builder   *Builder
	opts      Options
	logger    *slog.Logger

	mu      sync.Mutex
	pending []Request
	conn    *Connection
}

// NewPipeline fetches the user principal once and caches it for the login
// credential and every request template.
func NewPipeline(ctx context.Context, principals PrincipalSource, opts Options) (*Pipeline, error) {
	p, err := principals.UserPrincipals(ctx)
	if err != nil {
		return nil, fmt.Errorf("stream: fetching user principals: %w", err)
	}

	b, err := NewBuilder(p)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		principal: p,
		builder:   b,
		opts:      opts,
		logger:    logger,
	}, nil
}

// Builder returns the request builder bound to this pipeline's session.
func (p *Pipeline) Builder() *Builder {
	return p.builder
}

// Principal returns the cached user principal.
func (p *Pipeline) Principal() *tdapi.UserPrincipal {
	return p.principal
}

// Subscribe appends requests to the pending queue. They are sent, in order,
// by the next Start.
func (p *Pipeline) Subscribe(reqs ...Request) {
	p.mu.Lock()
	p.pending = append(p.pending, reqs...)
	p.mu.Unlock()
}

// Pending returns a copy of the queued requests.
func (p *Pipeline) Pending() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]Request(nil), p.pending...)
}

// State reports the underlying connection's state, Idle before Build.
func (p *Pipeline) State() State {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()

	if conn == nil {
		return Idle
	}

	return conn.State()
}

// Build opens the websocket and completes the login handshake. It fails
// fast when the acknowledgement is missing or negative. After Close a new
// Build starts a fresh session.
func (p *Pipeline) Build(ctx context.Context) error {
	p.mu.Lock()
	if p.conn != nil {
		if st := p.conn.State(); st != Closed {
			p.mu.Unlock()
			return &StateError{Op: "build", State: st}
		}
	}

	conn, err := NewConnection(p.principal, ConnectionOptions{
		URL:          p.opts.URL,
		LoginTimeout: p.opts.LoginTimeout,
		HTTPClient:   p.opts.HTTPClient,
		Logger:       p.logger,
	})
	if err != nil {
		p.mu.Unlock()
		return err
	}

	p.conn = conn
	p.mu.Unlock()

	return conn.Connect(ctx)
}

// Start sends every pending request exactly once, in one frame and in
// queue order, then waits for and returns the next inbound frame. Call it
// in a loop; later Subscribe calls are flushed by the following Start.
func (p *Pipeline) Start(ctx context.Context) (Frame, error) {
	conn, err := p.openConn("start")
	if err != nil {
		return Frame{}, err
	}

	p.mu.Lock()
	batch := p.pending
	p.pending = nil
	p.mu.Unlock()

	if len(batch) > 0 {
		if err := conn.Send(ctx, batch...); err != nil {
			p.requeue(batch)
			return Frame{}, err
		}

		p.logger.Info("subscriptions sent", slog.Int("count", len(batch)))
	}

	if p.opts.FrameTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.FrameTimeout)

		defer cancel()
	}

	return conn.Next(ctx)
}

// Unsubscribe sends an UNSUBS request for service right away. With no keys
// every symbol of the service is dropped.
func (p *Pipeline) Unsubscribe(ctx context.Context, service Service, keys ...string) error {
	conn, err := p.openConn("unsubscribe")
	if err != nil {
		return err
	}

	return conn.Send(ctx, p.builder.Unsubscribe(service, keys...))
}

// Close ends the session. A Start blocked in another goroutine returns a
// closed outcome; later Start and Unsubscribe calls fail with *StateError.
// Pending requests are discarded and request ids restart at 1. Calling
// Close more than once, or before Build, is harmless.
func (p *Pipeline) Close(ctx context.Context) error {
	p.mu.Lock()
	conn := p.conn
	p.pending = nil
	p.mu.Unlock()

	p.builder.Reset()

	if conn == nil {
		return nil
	}

	return conn.Close(ctx)
}

func (p *Pipeline) openConn(op string) (*Connection, error) {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()

	if conn == nil {
		return nil, &StateError{Op: op, State: Idle}
	}

	if st := conn.State(); st != Open {
		return nil, &StateError{Op: op, State: st}
	}

	return conn, nil
}

// requeue puts an unsent batch back at the front of the queue.
func (p *Pipeline) requeue(batch []Request) {
	p.mu.Lock()
	p.pending = append(batch, p.pending...)
	p.mu.Unlock()
}
