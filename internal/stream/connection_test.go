package stream

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConnection(t *testing.T, f *fakeStreamer, loginTimeout time.Duration) *Connection {
	t.Helper()

	c, err := NewConnection(testPrincipal(), ConnectionOptions{URL: f.URL(), LoginTimeout: loginTimeout})
	require.NoError(t, err)

	t.Cleanup(func() { c.Close(context.Background()) })

	return c
}

func TestConnection_DefaultURL(t *testing.T) {
	c, err := NewConnection(testPrincipal(), ConnectionOptions{})
	require.NoError(t, err)
	assert.Equal(t, "wss://streamer-ws.example.com/ws", c.url)
	assert.Equal(t, Idle, c.State())
}

func TestConnection_LoginFrame(t *testing.T) {
	f := newFakeStreamer(t)
	c := newTestConnection(t, f, 0)

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, Open, c.State())

	got := f.Received()
	require.NotEmpty(t, got)
	require.Len(t, got[0].Requests, 1)

	login := got[0].Requests[0]
	assert.Equal(t, ServiceAdmin, login.Service)
	assert.Equal(t, CommandLogin, login.Command)
	assert.Equal(t, int64(0), login.RequestID)
	assert.Equal(t, "123456789", login.Account)
	assert.Equal(t, "appid1", login.Source)
	assert.Equal(t, "streamer-token", login.Parameters.Extra["token"])
	assert.Equal(t, "1.0", login.Parameters.Extra["version"])

	cred, err := url.ParseQuery(login.Parameters.Extra["credential"])
	require.NoError(t, err)
	assert.Equal(t, "123456789", cred.Get("userid"))
	assert.Equal(t, "streamer-token", cred.Get("token"))
	assert.Equal(t, "AMER", cred.Get("company"))
	assert.Equal(t, "AMER", cred.Get("segment"))
	assert.Equal(t, "A000000012345678", cred.Get("cddomain"))
	assert.Equal(t, "ACCT", cred.Get("usergroup"))
	assert.Equal(t, "ACCT", cred.Get("accesslevel"))
	assert.Equal(t, "Y", cred.Get("authorized"))
	assert.Equal(t, "1618065312000", cred.Get("timestamp"))
	assert.Equal(t, "appid1", cred.Get("appid"))
	assert.Equal(t, "AKBPCFDRDTESF7G1", cred.Get("acl"))
}

func TestLoginCredential_Order(t *testing.T) {
	p := testPrincipal()
	ts, err := p.StreamerInfo.TokenTime()
	require.NoError(t, err)

	assert.Equal(t,
		"userid=123456789&token=streamer-token&company=AMER&segment=AMER&cddomain=A000000012345678"+
			"&usergroup=ACCT&accesslevel=ACCT&authorized=Y&timestamp=1618065312000&appid=appid1&acl=AKBPCFDRDTESF7G1",
		loginCredential(p.Accounts[0], p.StreamerInfo, ts))
}

func TestConnection_LoginRejected(t *testing.T) {
	f := newFakeStreamer(t, func(f *fakeStreamer) { f.loginCode = 3 })
	c := newTestConnection(t, f, 0)

	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoginRejected)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, Closed, c.State())
}

func TestConnection_LoginTimeout(t *testing.T) {
	f := newFakeStreamer(t, func(f *fakeStreamer) { f.ackDisabled = true })
	c := newTestConnection(t, f, 50*time.Millisecond)

	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoginTimeout)
	assert.Equal(t, Closed, c.State())
}

func TestConnection_DialFailure(t *testing.T) {
	c, err := NewConnection(testPrincipal(), ConnectionOptions{URL: "ws://127.0.0.1:1/ws"})
	require.NoError(t, err)

	err = c.Connect(context.Background())

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "dial", connErr.Op)
	assert.Equal(t, Closed, c.State())
}

func TestConnection_ConnectTwice(t *testing.T) {
	f := newFakeStreamer(t)
	c := newTestConnection(t, f, 0)

	require.NoError(t, c.Connect(context.Background()))

	err := c.Connect(context.Background())

	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, Open, stateErr.State)
}

func TestConnection_PreambleDeliveredFirst(t *testing.T) {
	f := newFakeStreamer(t, func(f *fakeStreamer) {
		f.preamble = []string{`{"notify":[{"service":"ADMIN","content":{"code":30}}]}`}
	})
	c := newTestConnection(t, f, 0)

	require.NoError(t, c.Connect(context.Background()))
	f.push <- `{"data":[{"service":"QUOTE","content":[]}]}`

	first, err := c.Next(context.Background())
	require.NoError(t, err)
	assert.True(t, first.HasNotify())

	second, err := c.Next(context.Background())
	require.NoError(t, err)
	assert.True(t, second.HasData())
}

func TestConnection_SendRequiresOpen(t *testing.T) {
	f := newFakeStreamer(t)
	c := newTestConnection(t, f, 0)

	err := c.Send(context.Background(), Request{Service: ServiceQuote})

	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, Idle, stateErr.State)

	_, err = c.Next(context.Background())
	require.ErrorAs(t, err, &stateErr)
}

func TestConnection_CloseIsIdempotentAndLogsOut(t *testing.T) {
	f := newFakeStreamer(t)
	c := newTestConnection(t, f, 0)

	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, Closed, c.State())

	env := f.nextRequests(t)
	require.Len(t, env.Requests, 1)
	assert.Equal(t, CommandLogout, env.Requests[0].Command)

	_, err := c.Next(context.Background())
	assert.True(t, IsClosed(err))

	err = c.Send(context.Background(), Request{})

	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, Closed, stateErr.State)
}

func TestConnection_CloseBeforeConnect(t *testing.T) {
	f := newFakeStreamer(t)
	c := newTestConnection(t, f, 0)

	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, Closed, c.State())

	err := c.Connect(context.Background())

	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
}

func TestConnection_DroppedSocketIsConnectionError(t *testing.T) {
	f := newFakeStreamer(t)
	c := newTestConnection(t, f, 0)

	require.NoError(t, c.Connect(context.Background()))
	f.drop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := c.Next(ctx)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "read", connErr.Op)
	assert.True(t, IsClosed(err))
	assert.Equal(t, Closed, c.State())
}

func TestConnection_NextHonorsContext(t *testing.T) {
	f := newFakeStreamer(t)
	c := newTestConnection(t, f, 0)

	require.NoError(t, c.Connect(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Open, c.State())
}

func TestConnection_ReadFailurePassesThroughClosing(t *testing.T) {
	f := newFakeStreamer(t)

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	c, err := NewConnection(testPrincipal(), ConnectionOptions{URL: f.URL(), Logger: logger})
	require.NoError(t, err)

	require.NoError(t, c.Connect(context.Background()))
	f.drop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = c.Next(ctx)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, Closed, c.State())
	assert.Contains(t, logs.String(), `"msg":"stream read failed"`)
	assert.Contains(t, logs.String(), `"state":"closing"`)

	// Close after a read failure finds nothing left to do.
	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, Closed, c.State())
}

func TestConnection_UndecodableFrameDeliveredRaw(t *testing.T) {
	f := newFakeStreamer(t)
	c := newTestConnection(t, f, 0)

	require.NoError(t, c.Connect(context.Background()))

	bad := `{"data":[{"timestamp":"x"}]}`
	f.push <- bad
	f.push <- `{"data":[{"service":"QUOTE","content":[]}]}`

	first, err := c.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, first.HasData())
	assert.JSONEq(t, bad, string(first.Raw))

	second, err := c.Next(context.Background())
	require.NoError(t, err)
	assert.True(t, second.HasData())
}

func TestConnection_UndecodableFrameDuringLoginKept(t *testing.T) {
	f := newFakeStreamer(t, func(f *fakeStreamer) {
		f.preamble = []string{`not json`}
	})
	c := newTestConnection(t, f, 0)

	require.NoError(t, c.Connect(context.Background()))

	first, err := c.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "not json", string(first.Raw))
	assert.Equal(t, Open, c.State())
}
