package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/supportchat-server/internal/auth"
	"github.com/vovakirdan/supportchat-server/internal/config"
	"github.com/vovakirdan/supportchat-server/internal/core"
	"github.com/vovakirdan/supportchat-server/internal/proto"
	"github.com/vovakirdan/supportchat-server/internal/store/sqlite"
)

type testEnv struct {
	ts    *httptest.Server
	svc   *auth.Service
	store *sqlite.SQLiteStore
	hub   *core.Hub
}

func newTestEnv(t *testing.T, tune ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.JWTSecret = "test-secret-0123456789"
	cfg.RateLimitPerMinute = 0
	for _, f := range tune {
		f(&cfg)
	}

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	jwtCfg := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	}
	gate := auth.NewGate(jwtCfg)
	svc := auth.NewService(st, jwtCfg)
	logger := zerolog.Nop()

	hub := core.NewHub(gate, st, core.Options{
		SendBuffer:       cfg.SendBuffer,
		PersistTimeout:   cfg.PersistTimeout,
		MaxMessageLength: cfg.MaxMessageLength,
	}, &logger)

	srv := NewServer(Deps{
		Hub:   hub,
		Auth:  svc,
		Gate:  gate,
		Users: st,
	}, &cfg, &logger)

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, svc: svc, store: st, hub: hub}
}

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()

	ctx := context.Background()
	_, err := e.svc.CreateAdmin(ctx, "admin@example.com", "Support", "password1")
	require.NoError(t, err)
	token, err := e.svc.IssueToken(ctx, "admin@example.com")
	require.NoError(t, err)
	return token
}

func (e *testEnv) userToken(t *testing.T, email string) string {
	t.Helper()

	token, err := e.svc.Register(context.Background(), email, "", "password1")
	require.NoError(t, err)
	return token
}

func (e *testEnv) wsURL() string {
	return strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws"
}

func (e *testEnv) dial(t *testing.T, ctx context.Context, token string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, e.wsURL(), &websocket.DialOptions{
		HTTPHeader: stdhttp.Header{"Authorization": []string{"Bearer " + token}},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *stdhttp.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := stdhttp.NewRequest(method, e.ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *stdhttp.Response, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

// outbound mirrors proto.Outbound with the payload left raw.
type outbound struct {
	V     int             `json:"v"`
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	in := proto.Inbound{Type: typ}
	if data != nil {
		raw, err := json.Marshal(data)
		require.NoError(t, err)
		in.Data = raw
	}
	require.NoError(t, wsjson.Write(ctx, conn, in))
}

// readUntil skips frames until match accepts one.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, match func(outbound) bool) outbound {
	t.Helper()

	for {
		var out outbound
		require.NoError(t, wsjson.Read(ctx, conn, &out))
		require.Equal(t, proto.ProtocolVersion, out.V)
		if match(out) {
			return out
		}
	}
}

func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, event string, dst any) {
	t.Helper()

	out := readUntil(t, ctx, conn, func(o outbound) bool {
		return o.Type == proto.OutboundTypeEvent && o.Event == event
	})
	require.NoError(t, json.Unmarshal(out.Data, dst))
}

func readError(t *testing.T, ctx context.Context, conn *websocket.Conn) *proto.Error {
	t.Helper()

	out := readUntil(t, ctx, conn, func(o outbound) bool {
		return o.Type == proto.OutboundTypeError
	})
	require.NotNil(t, out.Error)
	return out.Error
}

// register sends register and waits for the snapshot that proves it landed.
func register(t *testing.T, ctx context.Context, conn *websocket.Conn) []proto.OnlineUser {
	t.Helper()

	send(t, ctx, conn, proto.InboundTypeRegister, nil)
	var users []proto.OnlineUser
	readEvent(t, ctx, conn, proto.EventOnlineUsers, &users)
	return users
}
