package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/grimoire/games"
)

type testServer struct {
	*httptest.Server
	mgr *games.Manager
	cfg *Config
}

func newTestServer(t *testing.T, cfg *Config) *testServer {
	t.Helper()

	if cfg == nil {
		cfg = &Config{port: 8080}
	}

	catalog, err := games.DefaultCatalog()
	require.NoError(t, err)

	mgr := games.NewManager(catalog, games.NewEngine(catalog, nil), games.NewStore())
	live := newLiveUpdates(mgr)
	errs := make(chan error, 64)

	srv := httptest.NewServer(newRouter(cfg, mgr, live, errs))
	t.Cleanup(func() {
		live.closeAll()
		srv.Close()
	})

	return &testServer{Server: srv, mgr: mgr, cfg: cfg}
}

// call sends body (JSON-encoded unless it is already a string) and decodes
// the response into out when out is non-nil.
func (ts *testServer) call(t *testing.T, method, path string, body any, out any) int {
	t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.URL+ts.cfg.prefix+path, rdr)
	require.NoError(t, err)

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp.StatusCode
}

func (ts *testServer) createGame(t *testing.T, host string, players ...string) (createResponse, []joinResponse) {
	t.Helper()

	var created createResponse
	status := ts.call(t, http.MethodPost, "/api/game", createRequest{Edition: "trouble-brewing", HostName: host}, &created)
	require.Equal(t, http.StatusCreated, status)

	joined := make([]joinResponse, 0, len(players))
	for _, name := range players {
		var j joinResponse
		status := ts.call(t, http.MethodPost, "/api/game/"+created.GameID+"/join", joinRequest{Name: name}, &j)
		require.Equal(t, http.StatusOK, status)
		joined = append(joined, j)
	}

	return created, joined
}

func TestEditionsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	var editions []games.EditionSummary
	status := ts.call(t, http.MethodGet, "/api/editions", nil, &editions)

	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, editions, games.EditionSummary{ID: "trouble-brewing", Name: "Trouble Brewing"})
	assert.Contains(t, editions, games.EditionSummary{ID: "bad-moon-rising", Name: "Bad Moon Rising"})
}

func TestCharactersEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	var chars map[string][]map[string]any
	status := ts.call(t, http.MethodGet, "/api/editions/trouble-brewing/characters", nil, &chars)
	require.Equal(t, http.StatusOK, status)

	require.Len(t, chars, 4)
	require.Len(t, chars["demons"], 1)

	imp := chars["demons"][0]
	assert.Equal(t, "imp", imp["id"])
	assert.Equal(t, "Imp", imp["name"])
	assert.Equal(t, "demons", imp["type"])
	assert.Contains(t, imp, "firstNight")
	assert.Contains(t, imp, "otherNights")
	assert.Contains(t, imp, "ability")

	for cat, list := range chars {
		for _, c := range list {
			assert.Equal(t, cat, c["type"])
		}
	}
}

func TestCharactersUnknownEdition(t *testing.T) {
	ts := newTestServer(t, nil)

	var e errorResponse
	status := ts.call(t, http.MethodGet, "/api/editions/nope/characters", nil, &e)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", e.Error)
	assert.NotEmpty(t, e.Message)
}

func TestGameLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)

	created, joined := ts.createGame(t, "Alice", "Bob", "Carol")
	assert.Equal(t, "trouble-brewing", created.Edition)
	assert.NotEmpty(t, created.HostID)
	assert.Equal(t, "/join?game="+created.GameID, created.JoinReference)
	require.Len(t, joined, 2)
	assert.Equal(t, created.GameID, joined[0].GameID)
	assert.Equal(t, "Bob", joined[0].Name)

	var summary games.Summary
	status := ts.call(t, http.MethodGet, "/api/game/"+created.GameID, nil, &summary)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, games.Summary{ID: created.GameID, Edition: "trouble-brewing", ParticipantCount: 2}, summary)

	var notYet errorResponse
	status = ts.call(t, http.MethodGet, "/api/player/"+created.GameID+"/"+joined[0].ParticipantID+"/role", nil, &notYet)
	assert.Equal(t, http.StatusNotFound, status)

	var started startResponse
	status = ts.call(t, http.MethodPost, "/api/game/"+created.GameID+"/start", startRequest{ParticipantCount: 2}, &started)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, started.Started)
	assert.Equal(t, created.GameID, started.GameID)
	assert.NotEmpty(t, started.Message)

	status = ts.call(t, http.MethodGet, "/api/game/"+created.GameID, nil, &summary)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, summary.Started)

	roles := make(map[string]roleView)
	for _, p := range joined {
		var role roleView
		status := ts.call(t, http.MethodGet, "/api/player/"+created.GameID+"/"+p.ParticipantID+"/role", nil, &role)
		require.Equal(t, http.StatusOK, status)
		assert.NotEmpty(t, role.Name)
		assert.NotEmpty(t, role.Ability)
		roles[p.Name] = role
	}
	assert.NotEqual(t, roles["Bob"].Name, roles["Carol"].Name)

	var ov games.Overview
	status = ts.call(t, http.MethodGet, "/api/host/"+created.GameID+"/"+created.HostID+"/overview", nil, &ov)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, ov.Started)
	require.NotNil(t, ov.NightOrder)
	require.Len(t, ov.Players, 2)
	for _, row := range ov.Players {
		require.NotNil(t, row.Character)
		assert.Equal(t, roles[row.Name].Name, *row.Character)
		assert.Equal(t, roles[row.Name].Type, *row.Type)
	}
}

func TestHostOverviewBeforeStartHasNoNightOrder(t *testing.T) {
	ts := newTestServer(t, nil)
	created, _ := ts.createGame(t, "Alice", "Bob")

	var raw map[string]any
	status := ts.call(t, http.MethodGet, "/api/host/"+created.GameID+"/"+created.HostID+"/overview", nil, &raw)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, false, raw["started"])
	assert.Contains(t, raw, "nightOrder")
	assert.Nil(t, raw["nightOrder"])

	participants, ok := raw["participants"].([]any)
	require.True(t, ok)
	require.Len(t, participants, 1)
	row := participants[0].(map[string]any)
	assert.Equal(t, "Bob", row["name"])
	assert.Nil(t, row["character"])
}

func TestHostOverviewErrors(t *testing.T) {
	ts := newTestServer(t, nil)
	created, joined := ts.createGame(t, "Alice", "Bob")

	var e errorResponse
	status := ts.call(t, http.MethodGet, "/api/host/"+created.GameID+"/"+joined[0].ParticipantID+"/overview", nil, &e)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "forbidden", e.Error)

	status = ts.call(t, http.MethodGet, "/api/host/missing/"+created.HostID+"/overview", nil, &e)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCreateGameErrors(t *testing.T) {
	ts := newTestServer(t, nil)

	cases := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"unknown edition", createRequest{Edition: "nope", HostName: "Alice"}, http.StatusNotFound, "not_found"},
		{"empty host", createRequest{Edition: "trouble-brewing"}, http.StatusBadRequest, "invalid_argument"},
		{"malformed body", `{"edition": `, http.StatusBadRequest, "invalid_argument"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var e errorResponse
			status := ts.call(t, http.MethodPost, "/api/game", tc.body, &e)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, e.Error)
		})
	}

	assert.Equal(t, 0, ts.mgr.Store().Len())
}

func TestJoinAndStartErrors(t *testing.T) {
	ts := newTestServer(t, nil)

	var e errorResponse
	status := ts.call(t, http.MethodPost, "/api/game/missing/join", joinRequest{Name: "Bob"}, &e)
	assert.Equal(t, http.StatusNotFound, status)

	status = ts.call(t, http.MethodPost, "/api/game/missing/start", startRequest{ParticipantCount: 2}, &e)
	assert.Equal(t, http.StatusNotFound, status)

	created, _ := ts.createGame(t, "Alice", "Bob")
	game := "/api/game/" + created.GameID

	status = ts.call(t, http.MethodPost, game+"/start", startRequest{ParticipantCount: 2}, &e)
	assert.Equal(t, http.StatusConflict, status, "count mismatch")
	assert.Equal(t, "invalid_state", e.Error)

	status = ts.call(t, http.MethodPost, game+"/start", startRequest{ParticipantCount: 1}, &e)
	assert.Equal(t, http.StatusBadRequest, status, "no setup for a single player")
	assert.Equal(t, "invalid_argument", e.Error)

	status = ts.call(t, http.MethodPost, game+"/join", joinRequest{Name: "Carol"}, nil)
	require.Equal(t, http.StatusOK, status)

	status = ts.call(t, http.MethodPost, game+"/start", startRequest{ParticipantCount: 2}, nil)
	require.Equal(t, http.StatusOK, status)

	status = ts.call(t, http.MethodPost, game+"/start", startRequest{ParticipantCount: 2}, &e)
	assert.Equal(t, http.StatusConflict, status, "second start")

	status = ts.call(t, http.MethodPost, game+"/join", joinRequest{Name: "Dave"}, &e)
	assert.Equal(t, http.StatusConflict, status, "join after start")
	assert.Equal(t, "invalid_state", e.Error)
}

func TestGameNotFound(t *testing.T) {
	ts := newTestServer(t, nil)

	var e errorResponse
	status := ts.call(t, http.MethodGet, "/api/game/missing", nil, &e)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", e.Error)

	status = ts.call(t, http.MethodGet, "/api/player/missing/nobody/role", nil, &e)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestQRCode(t *testing.T) {
	ts := newTestServer(t, nil)
	created, _ := ts.createGame(t, "Alice")

	resp, err := ts.Client().Get(ts.URL + "/api/game/" + created.GameID + "/qr")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")))

	missing, err := ts.Client().Get(ts.URL + "/api/game/missing/qr")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestJoinURL(t *testing.T) {
	cfg := &Config{prefix: "/botc"}

	r := httptest.NewRequest(http.MethodGet, "http://games.example/botc/api/game/abc/qr", nil)
	assert.Equal(t, "http://games.example/botc/join?game=abc", joinURL(cfg, r, "abc"))

	r.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://games.example/botc/join?game=abc", joinURL(cfg, r, "abc"))
}

func TestPrefixedRoutes(t *testing.T) {
	ts := newTestServer(t, &Config{port: 8080, prefix: "/botc"})

	created, _ := ts.createGame(t, "Alice")
	assert.Equal(t, "/botc/join?game="+created.GameID, created.JoinReference)

	resp, err := ts.Client().Get(ts.URL + "/api/editions")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPlainEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	for path, want := range map[string]string{
		"/healthz": "Ok\n",
		"/version": "grimoire v" + releaseVersion + "\n",
	} {
		resp, err := ts.Client().Get(ts.URL + path)
		require.NoError(t, err)

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, want, string(body), path)
		assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"), path)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{&games.Error{Kind: games.KindNotFound}, http.StatusNotFound},
		{&games.Error{Kind: games.KindInvalidState}, http.StatusConflict},
		{&games.Error{Kind: games.KindInvalidArgument}, http.StatusBadRequest},
		{&games.Error{Kind: games.KindForbidden}, http.StatusForbidden},
		{errBadRequest, http.StatusBadRequest},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		status, _ := statusFor(tc.err)
		assert.Equal(t, tc.status, status, "%v", tc.err)
	}
}
