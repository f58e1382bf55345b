package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Luka-CB/card-game-server/internal/auth"
	"github.com/Luka-CB/card-game-server/internal/cache"
	"github.com/Luka-CB/card-game-server/internal/flow"
	"github.com/Luka-CB/card-game-server/internal/game"
	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/Luka-CB/card-game-server/internal/room"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStats struct {
	stats models.UserStats
	err   error
}

func (f fakeStats) GetUserStats(_ context.Context, userID uuid.UUID) (models.UserStats, error) {
	s := f.stats
	s.UserID = userID
	return s, f.err
}

type testEnv struct {
	server *Server
	orch   *flow.Orchestrator
	rooms  *room.Directory
	signer *auth.Signer
	http   *httptest.Server
}

// flowConfig deals immediately but never lets a player's clock run out.
func flowConfig() flow.Config {
	cfg := flow.DefaultConfig()
	cfg.TurnDuration = time.Hour
	cfg.AwayTurnDuration = time.Hour
	cfg.DealAnimation = time.Hour
	cfg.RevealInitialDelay = 0
	cfg.RevealStepDelay = 0
	cfg.RevealSettleDelay = 0
	cfg.NextHandDelay = time.Hour
	cfg.FinishedGrace = time.Hour
	cfg.LockRetryDelay = time.Millisecond
	return cfg
}

func newTestEnv(t *testing.T, stats StatsReader) *testEnv {
	t.Helper()
	logger, _ := test.NewNullLogger()
	hashes := cache.NewMemoryHashStore()
	rooms := room.NewDirectory(hashes)
	hub := NewHub(logger)
	orch := flow.New(flowConfig(), flow.Deps{
		Games:   game.NewGameStore(hashes),
		Rooms:   rooms,
		Emitter: hub,
		Logger:  logger,
	})
	signer, err := auth.NewSigner(time.Hour)
	require.NoError(t, err)

	s := NewServer(Options{
		Flow:            orch,
		Rooms:           rooms,
		Signer:          signer,
		Hub:             hub,
		Stats:           stats,
		DisconnectGrace: 10 * time.Millisecond,
		Logger:          logger,
	})
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	return &testEnv{server: s, orch: orch, rooms: rooms, signer: signer, http: srv}
}

func (e *testEnv) guest(t *testing.T, name string) (models.User, string) {
	t.Helper()
	u, token, err := e.signer.CreateGuestJWT(name)
	require.NoError(t, err)
	return u, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.http.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) dial(t *testing.T, token string, protocols ...string) *websocket.Conn {
	t.Helper()
	if protocols == nil {
		protocols = []string{subprotocol}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(e.http.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: protocols})
	require.NoError(t, err)
	conn.SetReadLimit(1 << 20)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

type wireEvent struct {
	Type    models.EventType `json:"type"`
	RoomID  uuid.UUID        `json:"roomId"`
	Payload json.RawMessage  `json:"payload"`
}

func writeMsg(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

// readUntil reads events until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(wireEvent) bool) wireEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var ev wireEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		if match(ev) {
			return ev
		}
	}
}

func ofType(typ models.EventType) func(wireEvent) bool {
	return func(ev wireEvent) bool { return ev.Type == typ }
}

func TestGuestHandler(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/auth/guest", "", map[string]string{"username": "nika"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got guestResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "nika", got.User.Username)
	assert.True(t, got.User.IsGuest)

	u, err := env.signer.AuthenticateJWT(got.Token)
	require.NoError(t, err)
	assert.Equal(t, got.User.ID, u.ID)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == authCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, got.Token, cookie.Value)
}

func TestGuestHandlerRejectsLongNames(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodPost, "/auth/guest", "", map[string]string{"username": strings.Repeat("x", maxUsernameLength+1)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateRoomRequiresAuth(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodPost, "/rooms", "", createRoomRequest{Name: "table"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/rooms", "garbage", createRoomRequest{Name: "table"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateAndListRooms(t *testing.T) {
	env := newTestEnv(t, nil)
	host, token := env.guest(t, "host")

	resp := env.do(t, http.MethodPost, "/rooms", token, createRoomRequest{
		Name:     "table",
		Type:     models.GameNines,
		Hisht:    500,
		Status:   "private",
		Password: "joker",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Room
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, host.ID, created.HostID)
	assert.Empty(t, created.Password)
	require.Len(t, created.Users, 1)
	assert.Equal(t, host.ID, created.Users[0].ID)

	resp = env.do(t, http.MethodPost, "/rooms", token, createRoomRequest{Name: "another"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	_, other := env.guest(t, "other")
	resp = env.do(t, http.MethodPost, "/rooms", other, createRoomRequest{Name: "bad", Type: "poker"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/rooms", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rooms []models.Room
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, created.ID, rooms[0].ID)
	assert.Empty(t, rooms[0].Password)
}

func TestStatsHandler(t *testing.T) {
	env := newTestEnv(t, fakeStats{stats: models.UserStats{GamesPlayed: 3, Rating: 1.5}})
	id := uuid.New()

	resp := env.do(t, http.MethodGet, "/stats/"+id.String(), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got models.UserStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, id, got.UserID)
	assert.Equal(t, 3, got.GamesPlayed)

	resp = env.do(t, http.MethodGet, "/stats/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatsHandlerErrors(t *testing.T) {
	resp := newTestEnv(t, nil).do(t, http.MethodGet, "/stats/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = newTestEnv(t, fakeStats{err: errors.New("db down")}).do(t, http.MethodGet, "/stats/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestWSRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, "garbage")
	_, _, err := conn.Read(ctx)
	assert.Equal(t, websocket.StatusCode(InvalidAuthTokenError), websocket.CloseStatus(err))

	_, token := env.guest(t, "p")
	conn = env.dial(t, token, "other")
	_, _, err = conn.Read(ctx)
	assert.Equal(t, websocket.StatusCode(BadSubprotocolError), websocket.CloseStatus(err))
}

func TestWSRoomQuery(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	u, token := env.guest(t, "p")

	conn := env.dial(t, token+"&roomId=nope")
	_, _, err := conn.Read(ctx)
	assert.Equal(t, websocket.StatusCode(InvalidRoomIDError), websocket.CloseStatus(err))

	conn = env.dial(t, token+"&roomId="+uuid.NewString())
	_, _, err = conn.Read(ctx)
	assert.Equal(t, websocket.StatusCode(InvalidRoomIDError), websocket.CloseStatus(err))

	r, err := env.rooms.CreateRoom(ctx, models.Room{Name: "table"})
	require.NoError(t, err)
	conn = env.dial(t, token+"&roomId="+r.ID.String())
	ev := readUntil(t, conn, ofType(models.EventRoomState))
	var state models.Room
	require.NoError(t, json.Unmarshal(ev.Payload, &state))
	require.Len(t, state.Users, 1)
	assert.Equal(t, u.ID, state.Users[0].ID)
}

func TestWSPingAndUnknownMessage(t *testing.T) {
	env := newTestEnv(t, nil)
	_, token := env.guest(t, "p")
	conn := env.dial(t, token)

	readUntil(t, conn, ofType(models.EventRooms))
	writeMsg(t, conn, ClientMessage{Type: "ping"})
	readUntil(t, conn, ofType(models.EventPong))

	writeMsg(t, conn, ClientMessage{Type: "shuffle"})
	ev := readUntil(t, conn, ofType(models.EventError))
	assert.Contains(t, string(ev.Payload), "unknown message type")

	writeMsg(t, conn, ClientMessage{Type: "submit_bid", Bid: 1})
	ev = readUntil(t, conn, ofType(models.EventError))
	assert.Contains(t, string(ev.Payload), "not in a room")
}

func TestWSJoinAndLeave(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	r, err := env.rooms.CreateRoom(ctx, models.Room{Name: "table"})
	require.NoError(t, err)

	u, token := env.guest(t, "p")
	conn := env.dial(t, token)
	readUntil(t, conn, ofType(models.EventRooms))

	writeMsg(t, conn, ClientMessage{Type: "join_room", RoomID: r.ID})
	ev := readUntil(t, conn, ofType(models.EventRoomState))
	var state models.Room
	require.NoError(t, json.Unmarshal(ev.Payload, &state))
	require.Len(t, state.Users, 1)
	assert.Equal(t, u.ID, state.Users[0].ID)

	writeMsg(t, conn, ClientMessage{Type: "get_game_info"})
	readUntil(t, conn, ofType(models.EventRoomState))

	writeMsg(t, conn, ClientMessage{Type: "leave_room"})
	require.Eventually(t, func() bool {
		_, err := env.rooms.GetRoom(ctx, r.ID)
		return errors.Is(err, room.ErrRoomNotFound)
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWSFullRoomStartsRedactedGame(t *testing.T) {
	env := newTestEnv(t, nil)
	host, hostToken := env.guest(t, "host")

	resp := env.do(t, http.MethodPost, "/rooms", hostToken, createRoomRequest{Name: "table"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var r models.Room
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&r))
	t.Cleanup(func() { _ = env.orch.DestroyRoom(context.Background(), r.ID) })

	ids := []uuid.UUID{host.ID}
	conns := []*websocket.Conn{env.dial(t, hostToken)}
	readUntil(t, conns[0], ofType(models.EventRoomState))

	for i := 0; i < 3; i++ {
		u, token := env.guest(t, "p")
		conn := env.dial(t, token)
		readUntil(t, conn, ofType(models.EventRooms))
		writeMsg(t, conn, ClientMessage{Type: "join_room", RoomID: r.ID})
		ids = append(ids, u.ID)
		conns = append(conns, conn)
	}

	for i, conn := range conns {
		ev := readUntil(t, conn, func(ev wireEvent) bool {
			if ev.Type != models.EventGameState {
				return false
			}
			var g models.Game
			require.NoError(t, json.Unmarshal(ev.Payload, &g))
			return len(g.HandSizes) == models.MaxRoomUsers
		})
		var g models.Game
		require.NoError(t, json.Unmarshal(ev.Payload, &g))
		assert.Equal(t, r.ID, g.RoomID)
		assert.ElementsMatch(t, ids, g.Players)
		require.Len(t, g.Hands, 1, "only the viewer's hand is visible")
		assert.NotEmpty(t, g.Hands[ids[i]])
	}
}

func TestOnAbsentMarksSeatBusy(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	r, err := env.rooms.CreateRoom(ctx, models.Room{Name: "table"})
	require.NoError(t, err)
	stayed := models.RoomUser{ID: uuid.New(), Username: "a"}
	quit := models.RoomUser{ID: uuid.New(), Username: "b"}
	for _, u := range []models.RoomUser{stayed, quit} {
		_, err := env.rooms.JoinRoom(ctx, r.ID, u, "")
		require.NoError(t, err)
	}
	require.NoError(t, env.rooms.UpdateUserStatus(ctx, r.ID, quit.ID, models.UserLeft))

	env.server.onAbsent(r.ID, stayed.ID)
	env.server.onAbsent(r.ID, quit.ID)
	env.server.onAbsent(uuid.New(), stayed.ID)

	got, err := env.rooms.GetRoom(ctx, r.ID)
	require.NoError(t, err)
	u, _ := got.User(stayed.ID)
	assert.Equal(t, models.UserBusy, u.Status)
	u, _ = got.User(quit.ID)
	assert.Equal(t, models.UserLeft, u.Status)
}

func TestWSDisconnectMarksBusyAfterGrace(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	r, err := env.rooms.CreateRoom(ctx, models.Room{Name: "table"})
	require.NoError(t, err)

	u, token := env.guest(t, "p")
	conn := env.dial(t, token)
	writeMsg(t, conn, ClientMessage{Type: "join_room", RoomID: r.ID})
	readUntil(t, conn, ofType(models.EventRoomState))
	conn.Close(websocket.StatusNormalClosure, "bye")

	require.Eventually(t, func() bool {
		got, err := env.rooms.GetRoom(ctx, r.ID)
		if err != nil {
			return false
		}
		seated, _ := got.User(u.ID)
		return seated.Status == models.UserBusy
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRequestToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?token=query", nil)
	r.Header.Set("Cookie", "theme=dark; auth_token=cookie; lang=ka")
	assert.Equal(t, "query", requestToken(r))

	r.Header.Set("Authorization", "Bearer header")
	assert.Equal(t, "header", requestToken(r))

	r = httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Cookie", "theme=dark; auth_token=cookie; lang=ka")
	assert.Equal(t, "cookie", requestToken(r))
}
