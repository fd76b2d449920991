package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/triviapool/internal/api"
	"github.com/mcoot/triviapool/internal/api/apierr"
	"github.com/mcoot/triviapool/internal/api/middleware"
	"github.com/mcoot/triviapool/internal/api/response"
	"github.com/mcoot/triviapool/internal/factory"
	"github.com/mcoot/triviapool/internal/model"
	"github.com/mcoot/triviapool/internal/testutil"
)

// testServer wraps the router over a TestApp
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	t.Cleanup(func() { _ = app.Close() })

	router := api.NewRouter(api.RouterConfig{
		Logger:            testutil.NopLogger(),
		AuthService:       app.AuthService,
		SessionController: app.SessionController,
		Ledger:            app.Ledger,
		HubManager:        app.HubManager,
		DevLedger:         true,
		CORSOrigins:       []string{"https://quiz.example"},
	})

	return &testServer{handler: router, app: app}
}

func (ts *testServer) request(method, path string, body any, token string, caller model.Address) *httptest.ResponseRecorder {
	var reqBody bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&reqBody).Encode(body)
	}

	req := httptest.NewRequest(method, path, &reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if caller != "" {
		req.Header.Set(middleware.CallerHeader, string(caller))
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[apierr.ErrorResponse](t, rr).Error.Code
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestInfo(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/info", nil, "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	info := decode[response.InfoResponse](t, rr)
	assert.Equal(t, string(factory.TestAdmin), info.Admin)
	assert.Equal(t, string(factory.TestEscrow), info.Escrow)
	assert.Equal(t, "50", info.EntryFee)
	assert.True(t, info.DevLedger)
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/auth/login", map[string]string{"key": "wrong"}, "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, apierr.CodeInvalidCredentials, errorCode(t, rr))

	token := login(t, ts)
	assert.True(t, strings.HasPrefix(token, "adm_"))

	rr = ts.request(http.MethodPost, "/api/v1/auth/logout", nil, token, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/sessions", map[string]any{"title": "x", "max_participants": 2}, token, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAdminRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t)

	// Naming the admin account in the caller header is not enough
	rr := ts.request(http.MethodPost, "/api/v1/sessions", map[string]any{"title": "x", "max_participants": 2}, "", factory.TestAdmin)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/sessions", nil, "adm_forged", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCreateAndGetSession(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)

	rr := ts.request(http.MethodPost, "/api/v1/sessions", map[string]any{"title": "Friday quiz", "max_participants": 3}, token, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "/api/v1/sessions/1", rr.Header().Get("Location"))

	created := decode[response.Session](t, rr)
	assert.Equal(t, uint64(1), created.ID)
	assert.Equal(t, "open", created.State)
	assert.Equal(t, "50", created.EntryFee)
	assert.Equal(t, "0", created.PrizePool)
	assert.Empty(t, created.Participants)

	rr = ts.request(http.MethodGet, "/api/v1/sessions/1", nil, "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Friday quiz", decode[response.Session](t, rr).Title)

	rr = ts.request(http.MethodGet, "/api/v1/sessions", nil, "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[response.SessionList](t, rr).Sessions, 1)
}

func TestCreateSessionValidation(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)

	rr := ts.request(http.MethodPost, "/api/v1/sessions", map[string]any{"title": "empty", "max_participants": 0}, token, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidCapacity, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/sessions", map[string]any{"bogus": true}, token, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, errorCode(t, rr))
}

func TestUnknownSession(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/sessions/42", nil, "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeSessionNotFound, errorCode(t, rr))

	// Queries report zero values for unknown sessions
	rr = ts.request(http.MethodGet, "/api/v1/sessions/42/state", nil, "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[response.StateResponse](t, rr).State)

	rr = ts.request(http.MethodGet, "/api/v1/sessions/42/participants", nil, "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[response.AddressList](t, rr).Addresses)

	rr = ts.request(http.MethodGet, "/api/v1/sessions/abc", nil, "", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestJoinRequiresAllowance(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)
	createSession(t, ts, token, 2)

	rr := ts.request(http.MethodPost, "/api/v1/sessions/1/join", nil, "", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/sessions/1/join", nil, "", "0xalice")
	assert.Equal(t, http.StatusPaymentRequired, rr.Code)
	assert.Equal(t, apierr.CodeInsufficientAllowance, errorCode(t, rr))
}

func TestFullSessionFlow(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)
	createSession(t, ts, token, 4)

	players := []model.Address{"0xalice", "0xbob", "0xcarol", "0xdave"}
	for _, p := range players {
		fund(t, ts, token, p, "50")
		rr := ts.request(http.MethodPost, "/api/v1/sessions/1/join", nil, "", p)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}

	rr := ts.request(http.MethodPost, "/api/v1/sessions/1/join", nil, "", "0xalice")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/sessions/1/pool", nil, "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "200", decode[response.PoolResponse](t, rr).PrizePool)

	rr = ts.request(http.MethodGet, "/api/v1/sessions/1/members/0xbob", nil, "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[response.MembershipResponse](t, rr).Participant)

	rr = ts.request(http.MethodPost, "/api/v1/sessions/1/start", nil, token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "in_progress", decode[response.Session](t, rr).State)

	rr = ts.request(http.MethodPost, "/api/v1/sessions/1/complete", map[string]any{"winners": []string{"0xalice", "0xeve"}}, token, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidWinner, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/sessions/1/complete", map[string]any{"winners": []string{"0xbob", "0xalice", "0xdave"}}, token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	done := decode[response.Session](t, rr)
	assert.Equal(t, "completed", done.State)
	require.Len(t, done.Disbursements, 3)
	assert.Equal(t, "160", done.Disbursements[0].Amount)
	assert.Equal(t, "paid", done.Disbursements[0].Status)

	rr = ts.request(http.MethodGet, "/api/v1/ledger/balances/0xbob", nil, "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "160", decode[response.BalanceResponse](t, rr).Balance)

	rr = ts.request(http.MethodGet, "/api/v1/sessions/1/winners", nil, "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"0xbob", "0xalice", "0xdave"}, decode[response.AddressList](t, rr).Addresses)

	rr = ts.request(http.MethodPost, "/api/v1/sessions/1/cancel", nil, token, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeInvalidState, errorCode(t, rr))
}

func TestCancelWithoutParticipants(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)
	createSession(t, ts, token, 2)

	rr := ts.request(http.MethodPost, "/api/v1/sessions/1/cancel", nil, token, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeNothingToRefund, errorCode(t, rr))
}

func TestAllowanceQuery(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/ledger/approve", map[string]string{"amount": "75"}, "", "0xalice")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/ledger/allowances/0xalice", nil, "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	allowance := decode[response.AllowanceResponse](t, rr)
	assert.Equal(t, "75", allowance.Allowance)
	assert.Equal(t, string(factory.TestEscrow), allowance.Spender)

	rr = ts.request(http.MethodPost, "/api/v1/ledger/approve", map[string]string{"amount": "-1"}, "", "0xalice")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMintRequiresAdmin(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/ledger/mint", map[string]string{"to": "0xalice", "amount": "10"}, "", "0xalice")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestDevLedgerDisabled(t *testing.T) {
	app := factory.NewTestApp()
	defer app.Close()
	router := api.NewRouter(api.RouterConfig{
		Logger:            testutil.NopLogger(),
		AuthService:       app.AuthService,
		SessionController: app.SessionController,
		Ledger:            app.Ledger,
		HubManager:        app.HubManager,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ledger/approve", strings.NewReader(`{"amount":"1"}`))
	req.Header.Set(middleware.CallerHeader, "0xalice")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sessions/1/join", nil)
	req.Header.Set("Origin", "https://quiz.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", middleware.CallerHeader)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, "https://quiz.example", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestEventStream(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)
	createSession(t, ts, token, 2)

	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/sessions/1/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "event: connected\n", line)

	rr := ts.request(http.MethodPost, "/api/v1/sessions/1/start", nil, token, "")
	require.Equal(t, http.StatusOK, rr.Code)

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "event: session_started") {
			break
		}
	}
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, `"type":"session_started"`)
}

// Helper functions

func login(t *testing.T, ts *testServer) string {
	t.Helper()

	rr := ts.request(http.MethodPost, "/api/v1/auth/login", map[string]string{"key": factory.TestAdminKey}, "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decode[response.AuthResponse](t, rr)
	assert.Equal(t, string(factory.TestAdmin), resp.Address)
	return resp.SessionToken
}

func createSession(t *testing.T, ts *testServer, token string, capacity int) {
	t.Helper()

	rr := ts.request(http.MethodPost, "/api/v1/sessions", map[string]any{"title": "quiz", "max_participants": capacity}, token, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func fund(t *testing.T, ts *testServer, token string, addr model.Address, amount string) {
	t.Helper()

	rr := ts.request(http.MethodPost, "/api/v1/ledger/mint", map[string]string{"to": string(addr), "amount": amount}, token, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = ts.request(http.MethodPost, "/api/v1/ledger/approve", map[string]string{"amount": amount}, "", addr)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}
