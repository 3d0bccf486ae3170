package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/tonimelisma/tdstream-go/internal/tdapi"
)

const (
	// DefaultLoginTimeout bounds the wait for the LOGIN acknowledgement.
	DefaultLoginTimeout = 10 * time.Second

	defaultReadLimit   = 1 << 20
	frameBuffer        = 64
	logoutTimeout      = 2 * time.Second
	loginProtocolVer   = "1.0"
	loginRequestID     = 0
	streamerSocketPath = "/ws"
)

// ConnectionOptions configures a Connection.
type ConnectionOptions struct {
	// URL overrides the socket URL derived from the principal.
	URL          string
	LoginTimeout time.Duration
	HTTPClient   *http.Client
	Logger       *slog.Logger
	// ReadLimit caps a single inbound message; defaults to 1 MiB.
	ReadLimit int64
}

// Connection is one logged-in websocket session with the streamer. Sends
// are serialized; a single goroutine reads frames for the lifetime of the
// socket.
type Connection struct {
	principal *tdapi.UserPrincipal
	url       string
	opts      ConnectionOptions
	logger    *slog.Logger

	mu    sync.Mutex
	state State
	ws    *websocket.Conn
	err   error // terminal transport error, set once

	sendMu sync.Mutex

	frames  chan Frame
	backlog []Frame
	closed  chan struct{} // closed on entering Closed
}

// NewConnection prepares a connection in the Idle state. No I/O happens
// until Connect.
func NewConnection(p *tdapi.UserPrincipal, opts ConnectionOptions) (*Connection, error) {
	if _, err := p.PrimaryAccount(); err != nil {
		return nil, err
	}

	if opts.LoginTimeout <= 0 {
		opts.LoginTimeout = DefaultLoginTimeout
	}

	if opts.ReadLimit <= 0 {
		opts.ReadLimit = defaultReadLimit
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	u := opts.URL
	if u == "" {
		if p.StreamerInfo.StreamerSocketURL == "" {
			return nil, errors.New("stream: user principal has no streamer socket URL")
		}

		u = "wss://" + p.StreamerInfo.StreamerSocketURL + streamerSocketPath
	}

	return &Connection{
		principal: p,
		url:       u,
		opts:      opts,
		logger:    logger,
		state:     Idle,
		frames:    make(chan Frame, frameBuffer),
		closed:    make(chan struct{}),
	}, nil
}

// State returns the current lifecycle position.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Connect dials the streamer, sends the LOGIN request, and waits for its
// acknowledgement. On any failure the connection ends Closed.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Idle {
		st := c.state
		c.mu.Unlock()

		return &StateError{Op: "connect", State: st}
	}

	c.state = Connecting
	c.mu.Unlock()

	login, err := c.loginRequest()
	if err != nil {
		c.fail(nil)
		return err
	}

	c.logger.Info("connecting to streamer", slog.String("url", c.url))

	ws, _, err := websocket.Dial(ctx, c.url, &websocket.DialOptions{HTTPClient: c.opts.HTTPClient})
	if err != nil {
		return c.fail(&ConnectionError{Op: "dial", Err: err})
	}

	ws.SetReadLimit(c.opts.ReadLimit)

	if !c.transition(Connecting, AwaitingLoginAck, ws) {
		ws.CloseNow()
		return &StateError{Op: "connect", State: c.State()}
	}

	if err := c.write(ctx, []Request{login}); err != nil {
		return c.fail(&ConnectionError{Op: "login", Err: err})
	}

	if err := c.awaitLoginAck(ctx); err != nil {
		return c.fail(err)
	}

	if !c.transition(AwaitingLoginAck, Open, ws) {
		return &StateError{Op: "connect", State: c.State()}
	}

	c.logger.Info("streamer login acknowledged",
		slog.String("account", login.Account),
		slog.Int("backlog", len(c.backlog)),
	)

	go c.readLoop(ws)

	return nil
}

// awaitLoginAck reads synchronously until the ADMIN/LOGIN response arrives.
// Frames that arrive earlier are kept and delivered first by Next.
func (c *Connection) awaitLoginAck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.LoginTimeout)
	defer cancel()

	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return &ConnectionError{Op: "login", Err: ErrLoginTimeout}
			}

			return &ConnectionError{Op: "login", Err: err}
		}

		frame, err := decodeFrame(data)
		if err != nil {
			c.logger.Warn("keeping undecodable frame raw during login", slog.String("error", err.Error()))
			c.backlog = append(c.backlog, rawFrame(data))

			continue
		}

		ack, ok := frame.loginAck()
		if !ok {
			c.backlog = append(c.backlog, frame)
			continue
		}

		if ack.Content.Code != 0 {
			return &ConnectionError{
				Op:  "login",
				Err: fmt.Errorf("%w: code %d: %s", ErrLoginRejected, ack.Content.Code, ack.Content.Msg),
			}
		}

		return nil
	}
}

// Send writes reqs as one {"requests": [...]} frame. Only allowed while
// Open.
func (c *Connection) Send(ctx context.Context, reqs ...Request) error {
	if st := c.State(); st != Open {
		return &StateError{Op: "send", State: st}
	}

	if len(reqs) == 0 {
		return nil
	}

	if err := c.write(ctx, reqs); err != nil {
		if st := c.State(); st != Open {
			return &StateError{Op: "send", State: st}
		}

		return &ConnectionError{Op: "send", Err: err}
	}

	c.logger.Debug("sent requests", slog.Int("count", len(reqs)))

	return nil
}

func (c *Connection) write(ctx context.Context, reqs []Request) error {
	payload, err := json.Marshal(envelope{Requests: reqs})
	if err != nil {
		return fmt.Errorf("encoding requests: %w", err)
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	return c.ws.Write(ctx, websocket.MessageText, payload)
}

// Next returns the next inbound frame. It blocks until a frame arrives, ctx
// is done, or the connection closes; a closed connection yields either a
// *StateError in state Closed or the *ConnectionError that killed it.
func (c *Connection) Next(ctx context.Context) (Frame, error) {
	switch st := c.State(); st {
	case Open, Closing, Closed:
	default:
		return Frame{}, &StateError{Op: "receive", State: st}
	}

	select {
	case <-c.closed:
		return Frame{}, c.closedErr()
	default:
	}

	select {
	case f := <-c.frames:
		return f, nil
	case <-c.closed:
		return Frame{}, c.closedErr()
	case <-ctx.Done():
		return Frame{}, fmt.Errorf("stream: waiting for frame: %w", ctx.Err())
	}
}

// Close logs out and closes the socket, unblocking any pending Next. It is
// safe to call more than once and from any goroutine.
func (c *Connection) Close(ctx context.Context) error {
	c.mu.Lock()
	prev := c.state
	ws := c.ws

	switch prev {
	case Closing, Closed:
		c.mu.Unlock()
		return nil
	case Idle:
		c.state = Closed
		close(c.closed)
		c.mu.Unlock()

		return nil
	}

	c.state = Closing
	c.mu.Unlock()

	c.logger.Info("closing stream", slog.String("from", prev.String()))

	if prev == Open {
		c.logout(ctx)
	}

	var closeErr error
	if ws != nil {
		closeErr = ws.Close(websocket.StatusNormalClosure, "client closing")
	}

	c.setClosed(nil)

	if closeErr != nil && !isExpectedClose(closeErr) {
		c.logger.Debug("websocket close handshake", slog.String("error", closeErr.Error()))
	}

	return nil
}

// logout sends ADMIN/LOGOUT, best effort.
func (c *Connection) logout(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
	defer cancel()

	acct, _ := c.principal.PrimaryAccount()

	req := Request{
		Service:   ServiceAdmin,
		RequestID: loginRequestID,
		Command:   CommandLogout,
		Account:   acct.AccountID,
		Source:    c.principal.StreamerInfo.AppID,
	}

	if err := c.write(ctx, []Request{req}); err != nil {
		c.logger.Debug("logout not sent", slog.String("error", err.Error()))
	}
}

// readLoop is the connection's only reader once Open. It exits when the
// socket fails or is closed.
func (c *Connection) readLoop(ws *websocket.Conn) {
	for _, f := range c.backlog {
		if !c.deliver(f) {
			return
		}
	}

	c.backlog = nil

	for {
		_, data, err := ws.Read(context.Background())
		if err != nil {
			if st := c.State(); st == Closing || st == Closed {
				return
			}

			if !c.transition(Open, Closing, ws) {
				return
			}

			c.logger.Warn("stream read failed",
				slog.String("error", err.Error()), slog.String("state", Closing.String()))
			ws.CloseNow()
			c.setClosed(&ConnectionError{Op: "read", Err: err})

			return
		}

		frame, err := decodeFrame(data)
		if err != nil {
			c.logger.Warn("delivering undecodable frame raw", slog.String("error", err.Error()))
			frame = rawFrame(data)
		}

		if !c.deliver(frame) {
			return
		}
	}
}

func (c *Connection) deliver(f Frame) bool {
	select {
	case c.frames <- f:
		return true
	case <-c.closed:
		return false
	}
}

// transition moves from one state to the next if nothing else (Close)
// intervened.
func (c *Connection) transition(from, to State, ws *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != from {
		return false
	}

	c.state = to
	c.ws = ws

	return true
}

// fail forces Closed during Connect and returns err.
func (c *Connection) fail(err error) error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()

	if ws != nil {
		ws.CloseNow()
	}

	c.setClosed(err)

	if err == nil {
		return nil
	}

	c.logger.Warn("stream connect failed", slog.String("error", err.Error()))

	return err
}

// setClosed enters Closed once, recording the terminal error if any.
func (c *Connection) setClosed(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Closed {
		return
	}

	c.state = Closed
	c.err = err
	close(c.closed)
}

func (c *Connection) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return c.err
	}

	return &StateError{Op: "receive", State: Closed}
}

// loginRequest builds the ADMIN/LOGIN request from the principal.
func (c *Connection) loginRequest() (Request, error) {
	p := c.principal

	acct, err := p.PrimaryAccount()
	if err != nil {
		return Request{}, err
	}

	ts, err := p.StreamerInfo.TokenTime()
	if err != nil {
		return Request{}, err
	}

	return Request{
		Service:   ServiceAdmin,
		RequestID: loginRequestID,
		Command:   CommandLogin,
		Account:   acct.AccountID,
		Source:    p.StreamerInfo.AppID,
		Parameters: Parameters{Extra: map[string]string{
			"credential": loginCredential(acct, p.StreamerInfo, ts),
			"token":      p.StreamerInfo.Token,
			"version":    loginProtocolVer,
		}},
	}, nil
}

// loginCredential is the url-encoded credential string the streamer
// expects, fields in the documented order.
func loginCredential(acct tdapi.Account, info tdapi.StreamerInfo, tokenTime time.Time) string {
	pairs := [][2]string{
		{"userid", acct.AccountID},
		{"token", info.Token},
		{"company", acct.Company},
		{"segment", acct.Segment},
		{"cddomain", acct.AccountCdDomainID},
		{"usergroup", info.UserGroup},
		{"accesslevel", info.AccessLevel},
		{"authorized", "Y"},
		{"timestamp", strconv.FormatInt(tokenTime.UnixMilli(), 10)},
		{"appid", info.AppID},
		{"acl", info.ACL},
	}

	var b strings.Builder

	for i, kv := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}

		b.WriteString(url.QueryEscape(kv[0]))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv[1]))
	}

	return b.String()
}

func isExpectedClose(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}

	return errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed)
}
