package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/tdstream-go/internal/tdapi"
)

func testPrincipal() *tdapi.UserPrincipal {
	p := &tdapi.UserPrincipal{
		UserID: "trader1",
		Accounts: []tdapi.Account{{
			AccountID:         "123456789",
			Company:           "AMER",
			Segment:           "AMER",
			AccountCdDomainID: "A000000012345678",
		}},
		StreamerInfo: tdapi.StreamerInfo{
			StreamerSocketURL: "streamer-ws.example.com",
			Token:             "streamer-token",
			TokenTimestamp:    "2021-04-10T14:35:12+0000",
			UserGroup:         "ACCT",
			AccessLevel:       "ACCT",
			ACL:               "AKBPCFDRDTESF7G1",
			AppID:             "appid1",
		},
	}
	p.StreamerSubscriptionKeys.Keys = append(p.StreamerSubscriptionKeys.Keys, struct {
		Key string `json:"key"`
	}{Key: "subkey-1"})

	return p
}

// principalFunc adapts a function to PrincipalSource.
type principalFunc func(ctx context.Context) (*tdapi.UserPrincipal, error)

func (f principalFunc) UserPrincipals(ctx context.Context) (*tdapi.UserPrincipal, error) {
	return f(ctx)
}

func staticPrincipals() PrincipalSource {
	return principalFunc(func(context.Context) (*tdapi.UserPrincipal, error) {
		return testPrincipal(), nil
	})
}

// fakeStreamer is a websocket server speaking enough of the streamer
// protocol for tests: it answers LOGIN, records every request envelope and
// pushes frames written to push.
type fakeStreamer struct {
	srv *httptest.Server

	// loginCode is sent in the LOGIN ack; ackDisabled suppresses the ack.
	loginCode   int
	ackDisabled bool
	// preamble frames are sent after LOGIN is read and before the ack.
	preamble []string

	mu       sync.Mutex
	received []envelope

	requests chan envelope
	push     chan string
	dropped  chan struct{}
}

func newFakeStreamer(t *testing.T, configure ...func(*fakeStreamer)) *fakeStreamer {
	t.Helper()

	f := &fakeStreamer{
		requests: make(chan envelope, 64),
		push:     make(chan string, 64),
		dropped:  make(chan struct{}),
	}

	for _, fn := range configure {
		fn(f)
	}

	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)

	return f
}

// URL returns the socket URL to pass as Options.URL.
func (f *fakeStreamer) URL() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
}

func (f *fakeStreamer) handle(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer ws.CloseNow()

	ctx := r.Context()

	login, ok := f.read(ctx, ws)
	if !ok || len(login.Requests) != 1 || login.Requests[0].Command != CommandLogin {
		ws.Close(websocket.StatusPolicyViolation, "expected login")
		return
	}

	for _, frame := range f.preamble {
		if ws.Write(ctx, websocket.MessageText, []byte(frame)) != nil {
			return
		}
	}

	if !f.ackDisabled {
		ack := `{"response":[{"service":"ADMIN","requestid":"0","command":"LOGIN","timestamp":1618065312000,` +
			`"content":{"code":` + itoa(f.loginCode) + `,"msg":"ack"}}]}`
		if ws.Write(ctx, websocket.MessageText, []byte(ack)) != nil {
			return
		}
	}

	go func() {
		for {
			select {
			case frame := <-f.push:
				if frame == "" {
					ws.CloseNow()
					close(f.dropped)

					return
				}

				if ws.Write(ctx, websocket.MessageText, []byte(frame)) != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		env, ok := f.read(ctx, ws)
		if !ok {
			return
		}

		f.requests <- env
	}
}

func (f *fakeStreamer) read(ctx context.Context, ws *websocket.Conn) (envelope, bool) {
	_, data, err := ws.Read(ctx)
	if err != nil {
		return envelope{}, false
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, false
	}

	f.mu.Lock()
	f.received = append(f.received, env)
	f.mu.Unlock()

	return env, true
}

// Received returns every envelope read so far, including LOGIN.
func (f *fakeStreamer) Received() []envelope {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]envelope(nil), f.received...)
}

// nextRequests waits for the next envelope after LOGIN.
func (f *fakeStreamer) nextRequests(t *testing.T) envelope {
	t.Helper()

	select {
	case env := <-f.requests:
		return env
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for requests")
		return envelope{}
	}
}

// drop kills the socket without a close handshake.
func (f *fakeStreamer) drop() {
	f.push <- ""
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func newTestPipeline(t *testing.T, f *fakeStreamer, opts Options) *Pipeline {
	t.Helper()

	opts.URL = f.URL()

	p, err := NewPipeline(context.Background(), staticPrincipals(), opts)
	require.NoError(t, err)

	t.Cleanup(func() { p.Close(context.Background()) })

	return p
}
