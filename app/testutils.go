package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sushihentaime/threadline/internal/common"
	"github.com/sushihentaime/threadline/internal/rbac"
)

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, h http.Handler) *testServer {
	ts := httptest.NewServer(h)

	t.Cleanup(ts.Close)

	return &testServer{ts}
}

func readResponse(t *testing.T, res *http.Response) (int, http.Header, envelope) {
	defer res.Body.Close()

	responseBody, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}

	var envelope envelope
	err = json.Unmarshal(responseBody, &envelope)
	if err != nil {
		t.Fatal(err)
	}

	return res.StatusCode, res.Header, envelope
}

func newTestApplication(t *testing.T) (*application, *sql.DB) {
	db := common.TestDB("file://../migrations", t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rabbitURI := common.TestRabbitMQ(t)
	broker, err := common.NewMessageBroker(rabbitURI)
	require.NoError(t, err)
	t.Cleanup(func() { broker.Close() })

	err = common.SetupUserExchange(broker)
	require.NoError(t, err)

	cfg, err := loadConfig("../.test.env")
	require.NoError(t, err)

	app, err := newApplication(cfg, logger, db, broker)
	require.NoError(t, err)
	t.Cleanup(app.mailService.Close)

	return app, db
}

// do sends payload as JSON when it is not nil and authenticates with token when it is not empty.
func (ts *testServer) do(t *testing.T, method, path, token string, payload any) (int, http.Header, envelope) {
	var body io.Reader
	if payload != nil {
		jsonPayload, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(jsonPayload)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}

	return readResponse(t, res)
}

func (ts *testServer) get(t *testing.T, path, token string) (int, http.Header, envelope) {
	return ts.do(t, http.MethodGet, path, token, nil)
}

func (ts *testServer) post(t *testing.T, path, token string, payload any) (int, http.Header, envelope) {
	return ts.do(t, http.MethodPost, path, token, payload)
}

func (ts *testServer) patch(t *testing.T, path, token string, payload any) (int, http.Header, envelope) {
	return ts.do(t, http.MethodPatch, path, token, payload)
}

func (ts *testServer) delete(t *testing.T, path, token string, payload any) (int, http.Header, envelope) {
	return ts.do(t, http.MethodDelete, path, token, payload)
}

const testPassword = "Passw0rd!"

// signupAs creates an account through the user service, assigns role and returns a session token for it.
func signupAs(t *testing.T, app *application, db *sql.DB, name, email string, role rbac.Role) (*rbac.Identity, string) {
	t.Helper()
	ctx := context.Background()

	u, err := app.userService.Signup(ctx, name, email, testPassword)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, "UPDATE users SET role = $1 WHERE id = $2", role, u.ID)
	require.NoError(t, err)

	session, err := app.userService.Login(ctx, email, testPassword)
	require.NoError(t, err)

	identity := session.User.Identity()
	return &identity, session.Token
}

// field digs a nested value out of a decoded JSON envelope.
func field(env envelope, path ...string) any {
	var cur any = map[string]any(env)
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}

	return cur
}
