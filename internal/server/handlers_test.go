package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"osakana/internal/broadcast"
	"osakana/internal/config"
	"osakana/internal/events"
	"osakana/internal/gamedata"
	"osakana/internal/kanji"
	"osakana/internal/metrics"
	"osakana/internal/questions"
	"osakana/internal/ranking"
	"osakana/internal/wshub"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	game    *gamedata.Game
	bus     *broadcast.Broadcaster
	hub     *wshub.Hub
	handler http.Handler
}

func testConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		FrontendURL:       "http://localhost:3000",
		RoundDuration:     time.Minute,
		TickInterval:      500 * time.Millisecond,
		QuestionsPerRound: 10,
		SubscriberBuffer:  16,
		AnswerRateLimit:   1000,
		AnswerRateBurst:   1000,
	}
}

func newTestEnv(t *testing.T, cfg *config.Config, checks map[string]HealthCheck) *testEnv {
	t.Helper()
	catalog, errs := kanji.LoadDefault()
	require.Empty(t, errs)

	recorder := metrics.New()
	bus := broadcast.NewBroadcaster(cfg.SubscriberBuffer, recorder)
	game := gamedata.NewGame(catalog, bus, nil, recorder, gamedata.Config{
		RoundDuration:     cfg.RoundDuration,
		QuestionsPerRound: cfg.QuestionsPerRound,
		TickInterval:      cfg.TickInterval,
	})
	hub := wshub.NewHub()

	return &testEnv{
		game: game,
		bus:  bus,
		hub:  hub,
		handler: NewHandler(cfg, Deps{
			Game:        game,
			Broadcaster: bus,
			Hub:         hub,
			Recorder:    recorder,
			Checks:      checks,
		}),
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *testEnv) createUser(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/user", "")
	require.Equal(t, http.StatusOK, rec.Code)
	return decode[map[string]string](t, rec)["user_id"]
}

func answerBody(t *testing.T, userID string, index int, unicode string) string {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"user_id":        userID,
		"question_index": index,
		"kanji_unicode":  unicode,
	})
	require.NoError(t, err)
	return string(data)
}

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)

	id := env.createUser(t)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, env.createUser(t))
}

func TestAnswer(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	id := env.createUser(t)
	qs := env.game.CurrentQuestions()

	rec := env.do(t, http.MethodPost, "/answer", answerBody(t, id, 0, qs[0].Kanji.Unicode))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"is_correct":true,"combo":1}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/answer", answerBody(t, id, 1, "0000"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"is_correct":false,"combo":0}`, rec.Body.String())
}

func TestAnswer_Errors(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	id := env.createUser(t)
	qs := env.game.CurrentQuestions()

	rec := env.do(t, http.MethodPost, "/answer", answerBody(t, "nobody", 0, qs[0].Kanji.Unicode))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/answer", answerBody(t, id, len(qs), qs[0].Kanji.Unicode))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/answer", `{"user_id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.False(t, env.game.CurrentQuestions()[0].Solved)
}

func TestAnswer_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.AnswerRateLimit = 0.001
	cfg.AnswerRateBurst = 2
	env := newTestEnv(t, cfg, nil)
	id := env.createUser(t)

	body := answerBody(t, id, 0, "0000")
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/answer", body).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/answer", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, env.do(t, http.MethodPost, "/answer", body).Code)

	// other routes are not limited
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/questions/current", "").Code)
}

func TestCurrentQuestions(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)

	for _, path := range []string{"/questions/current", "/current_questions"} {
		rec := env.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)

		got := decode[map[string][]questions.Question](t, rec)
		assert.Equal(t, env.game.CurrentQuestions(), got["current_questions"], path)
	}
}

func TestRemainingTime(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)

	rec := env.do(t, http.MethodPost, "/questions/remaining_time", `{"seconds":20}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	snap := env.game.RoundSnapshot()
	assert.Equal(t, questions.Duration(20*time.Second), snap.TotalTime)
	assert.Equal(t, questions.Duration(20*time.Second), snap.RemainingTime)

	for _, body := range []string{`{"seconds":0}`, `{"seconds":-3}`, `{}`, `nope`} {
		rec := env.do(t, http.MethodPost, "/questions/remaining_time", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestRanking(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	id := env.createUser(t)
	qs := env.game.CurrentQuestions()
	env.do(t, http.MethodPost, "/answer", answerBody(t, id, 0, qs[0].Kanji.Unicode))

	rec := env.do(t, http.MethodGet, "/ranking", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ranking":[]}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/ranking", `{"user_id":"`+id+`","username":"Alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ranking.Entry{ID: id, Username: "Alice", Combo: 1}, decode[ranking.Entry](t, rec))

	rec = env.do(t, http.MethodGet, "/ranking", "")
	got := decode[map[string][]ranking.Entry](t, rec)
	assert.Equal(t, []ranking.Entry{{ID: id, Username: "Alice", Combo: 1}}, got["ranking"])
}

func TestRanking_Errors(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	id := env.createUser(t)

	rec := env.do(t, http.MethodPost, "/ranking", `{"user_id":"nobody","username":"Alice"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/ranking", `{"user_id":"`+id+`","username":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/ranking", `[]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, env.game.CurrentRanking())
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)

	rec := env.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","subscribers":0,"screens":0}`, rec.Body.String())
}

func TestHealth_FailingCheck(t *testing.T) {
	env := newTestEnv(t, testConfig(), map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})

	rec := env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	got := decode[map[string]any](t, rec)
	assert.Equal(t, "degraded", got["status"])
	assert.Equal(t, map[string]any{"redis": "error"}, got["checks"])
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	id := env.createUser(t)
	env.do(t, http.MethodPost, "/answer", answerBody(t, id, 0, "0000"))

	rec := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `osakana_answers_total{result="incorrect"} 1`)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)

	req := httptest.NewRequest(http.MethodOptions, "/answer", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/ranking", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSSE(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/sse", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return env.bus.SubscriberCount() == 1 }, time.Second, 10*time.Millisecond)

	id := env.game.CreateParticipant().ID
	_, err = env.game.SubmitAnswer(id, 2, "0000")
	require.NoError(t, err)

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, `data: {"Answer":{"index":2,"is_correct":false}}`+"\n", line)

	cancel()
	require.Eventually(t, func() bool { return env.bus.SubscriberCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestWebSocket_GreetsWithRoundThenStreams(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	ev, err := events.Decode(data)
	require.NoError(t, err)
	greeting, ok := ev.(events.RoundReset)
	require.True(t, ok, "expected RoundReset greeting, got %T", ev)
	assert.Equal(t, env.game.CurrentQuestions(), greeting.Questions.Current)
	assert.Equal(t, 1, env.hub.Count())

	env.game.SetRoundDuration(30 * time.Second)

	_, data, err = conn.Read(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"RemainingTimePercentage":{"percentage":100}}`, string(data))

	conn.Close(websocket.StatusNormalClosure, "")
	require.Eventually(t, func() bool { return env.hub.Count() == 0 }, time.Second, 10*time.Millisecond)
}
