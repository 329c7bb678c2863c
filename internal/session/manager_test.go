package session

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickgauge/internal/config"
	"tickgauge/internal/core"
	"tickgauge/internal/ingest"
	"tickgauge/internal/metrics"
	"tickgauge/internal/model"
	"tickgauge/internal/sysinfo"
	"tickgauge/internal/transport"
)

type fixedPlayer string

func (p fixedPlayer) GetOrCreatePlayerID() string { return string(p) }

func fixedMachine() sysinfo.Descriptor {
	return sysinfo.Descriptor{OS: "linux", CPUFamily: "AMD Ryzen 7", Cores: "9-16", Memory: "16-32"}
}

// scripted 는 resource 별로 정해진 결과를 돌려주고, 요청은 기록한다.
// 정해지지 않은 resource 는 resolve 되지 않은 채 남는다 (in-flight).
type scripted struct {
	results  map[string]transport.Result
	requests []transport.Request
}

func (s *scripted) Post(req transport.Request) *transport.Pending {
	s.requests = append(s.requests, req)
	if res, ok := s.results[req.Resource]; ok {
		return transport.Resolved(res)
	}
	return transport.NewPending()
}

func (s *scripted) resources() []string {
	out := make([]string, len(s.requests))
	for i, r := range s.requests {
		out[i] = r.Resource
	}
	return out
}

type fixture struct {
	m     *Manager
	core  *core.Context
	clock *clock.Mock
	queue *ingest.Queue
	tr    *scripted
	notes []Notification
}

func newFixture(t *testing.T, mutate func(*config.Config), results map[string]transport.Result) *fixture {
	t.Helper()
	cfg := config.New("game", "pk_test", "1.2.3")
	cfg.APIBase = "https://ingest.example.com"
	cfg.BatchSize = 64
	cfg.FlushInterval = 10 * time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	clk := clock.NewMock()
	clk.Add(time.Hour)
	c := core.New(cfg, clk, zerolog.Nop(), metrics.New())

	if results == nil {
		results = map[string]transport.Result{
			model.ResourceSessionStart: okStart("tok-1"),
		}
	}
	tr := &scripted{results: results}
	q := ingest.NewQueue(c)
	f := &fixture{core: c, clock: clk, queue: q, tr: tr}
	f.m = NewManager(c, q, transport.NewDispatcher(c, tr, false), fixedPlayer("player-1"), fixedMachine)
	f.m.OnNotify(func(n Notification) { f.notes = append(f.notes, n) })
	return f
}

func okStart(token string) transport.Result {
	return transport.Result{Response: transport.Response{Status: http.StatusOK, Body: []byte(`{"sessionToken":"` + token + `"}`)}}
}

func (f *fixture) activate(t *testing.T) {
	t.Helper()
	require.NoError(t, f.m.StartSession(StartOptions{Platform: "steam", Locale: "en-US"}))
	f.m.Tick()
	require.Equal(t, StateActive, f.m.State())
}

func (f *fixture) outcomes() []Outcome {
	out := make([]Outcome, len(f.notes))
	for i, n := range f.notes {
		out[i] = n.Outcome
	}
	return out
}

func TestStartSessionPayload(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.activate(t)

	req := f.tr.requests[0]
	assert.Equal(t, "https://ingest.example.com/v1/sessions/start", req.URL)
	assert.Equal(t, "pk_test", req.Header.Get(transport.HeaderKey))
	assert.JSONEq(t, `{
		"clientVersion":"1.2.3","playerId":"player-1","platform":"steam","os":"linux",
		"cpuFamily":"AMD Ryzen 7","cores":"9-16","memory":"16-32","locale":"en-US"
	}`, string(req.Body))

	tok, ok := f.m.Credential()
	assert.True(t, ok)
	assert.Equal(t, "tok-1", tok)
	assert.True(t, f.core.Started())
	assert.Equal(t, []Outcome{Success}, f.outcomes())
}

func TestDuplicateStartBeforeResponse(t *testing.T) {
	f := newFixture(t, nil, nil)

	require.NoError(t, f.m.StartSession(StartOptions{}))
	err := f.m.StartSession(StartOptions{})
	assert.ErrorIs(t, err, model.ErrDuplicateSession)

	f.m.Tick()
	f.m.Tick()

	assert.Equal(t, StateActive, f.m.State())
	assert.Equal(t, []Outcome{Skipped, Success}, f.outcomes())
	assert.Equal(t, []string{model.ResourceSessionStart}, f.tr.resources())
	assert.Equal(t, int64(1), metrics.Load(&f.core.Metrics.SessionsStartedTotal))
}

func TestStartAfterActiveIsSkipped(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.activate(t)

	assert.ErrorIs(t, f.m.StartSession(StartOptions{}), model.ErrDuplicateSession)
	assert.Equal(t, []Outcome{Success, Skipped}, f.outcomes())
}

func TestStartFailureKinds(t *testing.T) {
	cases := []struct {
		name   string
		result transport.Result
		want   Outcome
	}{
		{"error body", transport.Result{Response: transport.Response{Status: 401, Body: []byte(`{"code":"invalid_key","message":"bad key"}`)}}, Failure},
		{"undecodable", transport.Result{Response: transport.Response{Status: 502, Body: []byte(`<html>bad gateway</html>`)}}, UnexpectedFailure},
		{"unknown shape", transport.Result{Response: transport.Response{Status: 200, Body: []byte(`{"token":"x"}`)}}, UnexpectedFailure},
		{"transport error", transport.Result{Err: errors.New("connection refused")}, Failure},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newFixture(t, nil, map[string]transport.Result{model.ResourceSessionStart: c.result})

			require.NoError(t, f.m.StartSession(StartOptions{}))
			f.m.Tick()

			require.Len(t, f.notes, 1)
			assert.Equal(t, c.want, f.notes[0].Outcome)
			assert.Error(t, f.notes[0].Err)
			assert.Equal(t, StateUninitialized, f.m.State())
			assert.False(t, f.core.Started())
			_, ok := f.m.Credential()
			assert.False(t, ok)
		})
	}
}

func TestErrorBodyIsSurfaced(t *testing.T) {
	f := newFixture(t, nil, map[string]transport.Result{
		model.ResourceSessionStart: {Response: transport.Response{Status: 403, Body: []byte(`{"code":"forbidden","message":"no"}`)}},
	})
	require.NoError(t, f.m.StartSession(StartOptions{}))
	f.m.Tick()

	var eb *model.ErrorBody
	require.ErrorAs(t, f.notes[0].Err, &eb)
	assert.Equal(t, "forbidden", eb.Code)
}

func TestDecodeErrorIsSurfaced(t *testing.T) {
	f := newFixture(t, nil, map[string]transport.Result{
		model.ResourceSessionStart: {Response: transport.Response{Status: 200, Body: []byte(`not json`)}},
	})
	require.NoError(t, f.m.StartSession(StartOptions{}))
	f.m.Tick()

	var de *model.DecodeError
	require.ErrorAs(t, f.notes[0].Err, &de)
	assert.Equal(t, 200, de.Status)
}

func TestStartInstantAlreadySetIsFailure(t *testing.T) {
	f := newFixture(t, nil, nil)
	require.NoError(t, f.core.MarkStarted(f.clock.Now()))

	// start instant 가 이미 있으면 시작 자체가 거절된다.
	assert.ErrorIs(t, f.m.StartSession(StartOptions{}), model.ErrDuplicateSession)
	assert.Equal(t, []Outcome{Skipped}, f.outcomes())
}

func TestMissingKeyDisablesPipeline(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.PublicKey = "" }, nil)

	err := f.m.StartSession(StartOptions{})
	assert.ErrorIs(t, err, model.ErrMissingPublicKey)
	assert.ErrorIs(t, f.m.Disabled(), model.ErrMissingPublicKey)
	assert.Equal(t, []Outcome{UnexpectedFailure}, f.outcomes())
	assert.Empty(t, f.tr.requests)
}

func TestEnqueueWithoutActiveSessionNeverBuffers(t *testing.T) {
	f := newFixture(t, nil, map[string]transport.Result{
		model.ResourceSessionStart: {Err: errors.New("offline")},
	})
	p := f.queue.Producer()

	p.Enqueue(model.LevelInfo, "ui.click", nil, nil)
	require.NoError(t, f.m.StartSession(StartOptions{}))
	p.Enqueue(model.LevelInfo, "ui.click", nil, nil)
	f.m.Tick()
	p.Enqueue(model.LevelInfo, "ui.click", nil, nil)
	f.m.Tick()

	assert.Zero(t, f.m.Buffered())
	assert.Zero(t, f.queue.Len())
	assert.Equal(t, int64(3), metrics.Load(&f.core.Metrics.EventsDroppedInactiveTotal))
}

func TestTickDrainsAndFlushesOnSize(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.BatchSize = 3 }, nil)
	f.activate(t)
	p := f.queue.Producer()

	for _, et := range []string{"a.one", "a.two", "a.three", "a.four", "a.five"} {
		p.Enqueue(model.LevelInfo, et, nil, nil)
	}
	f.m.Tick()

	require.Equal(t, []string{model.ResourceSessionStart, model.ResourceEventsBatch}, f.tr.resources())
	var sent model.BatchEventPayload
	require.NoError(t, json.Unmarshal(f.tr.requests[1].Body, &sent))
	require.Len(t, sent.Events, 3)
	assert.Equal(t, "a.one", sent.Events[0].EventType)
	assert.Equal(t, "a.three", sent.Events[2].EventType)
	assert.Equal(t, "tok-1", f.tr.requests[1].Header.Get(transport.HeaderKey))
	assert.Equal(t, 2, f.m.Buffered())
}

func TestIntervalSendsHeartbeatWhenIdle(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.activate(t)

	f.clock.Add(9 * time.Second)
	f.m.Tick()
	assert.Len(t, f.tr.requests, 1)

	f.clock.Add(time.Second)
	f.m.Tick()
	assert.Equal(t, []string{model.ResourceSessionStart, model.ResourceSessionHeartbeat}, f.tr.resources())
	assert.JSONEq(t, `{}`, string(f.tr.requests[1].Body))
	assert.Equal(t, int64(1), metrics.Load(&f.core.Metrics.HeartbeatsSentTotal))
}

func TestElapsedIsRelativeToSessionStart(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.activate(t)

	f.clock.Add(1500 * time.Millisecond)
	f.queue.Producer().Enqueue(model.LevelWarn, "net.lag", map[string]int{"ms": 300}, nil)
	f.m.Exit()

	var sent model.BatchEventPayload
	require.NoError(t, json.Unmarshal(f.tr.requests[2].Body, &sent))
	require.Len(t, sent.Events, 1)
	assert.Equal(t, uint64(1500), sent.Events[0].ElapsedMs)
	assert.JSONEq(t, `{"ms":300}`, string(sent.Events[0].Metadata))
}

func TestExitSendsEndThenFinalFlushWithoutWaiting(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.activate(t)
	p := f.queue.Producer()

	p.Enqueue(model.LevelInfo, "ui.open", nil, nil)
	p.Enqueue(model.LevelInfo, "ui.close", nil, nil)
	f.m.Tick()
	require.Equal(t, 2, f.m.Buffered())

	f.m.Exit()

	assert.Equal(t, []string{model.ResourceSessionStart, model.ResourceSessionEnd, model.ResourceEventsBatch}, f.tr.resources())
	assert.JSONEq(t, `{"reason":"ended"}`, string(f.tr.requests[1].Body))

	var sent model.BatchEventPayload
	require.NoError(t, json.Unmarshal(f.tr.requests[2].Body, &sent))
	require.Len(t, sent.Events, 2)
	assert.Equal(t, "ui.open", sent.Events[0].EventType)
	assert.Equal(t, "ui.close", sent.Events[1].EventType)

	// 두 요청 모두 아직 응답이 없다.
	assert.Equal(t, 2, f.m.Dispatcher().Inflight())
	assert.Equal(t, StateEnded, f.m.State())
	_, ok := f.m.Credential()
	assert.False(t, ok)

	// 세션 종료 후 producer 는 닫힌다.
	p.Enqueue(model.LevelInfo, "ui.open", nil, nil)
	assert.Zero(t, f.queue.Len())
}

func TestExitDrainsQueueAndChunksFinalFlush(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.BatchSize = 2 }, nil)
	f.activate(t)
	p := f.queue.Producer()

	for i := 0; i < 5; i++ {
		p.Enqueue(model.LevelDebug, "loop.step", nil, nil)
	}
	f.m.Exit()

	assert.Equal(t, []string{
		model.ResourceSessionStart,
		model.ResourceSessionEnd,
		model.ResourceEventsBatch,
		model.ResourceEventsBatch,
		model.ResourceEventsBatch,
	}, f.tr.resources())
	assert.Equal(t, int64(5), metrics.Load(&f.core.Metrics.EventsSentTotal))
	assert.Zero(t, f.m.Buffered())
}

func TestExitWithEmptyBufferSendsNoHeartbeat(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.activate(t)

	f.m.Exit()
	f.m.Exit()

	assert.Equal(t, []string{model.ResourceSessionStart, model.ResourceSessionEnd}, f.tr.resources())
	assert.Equal(t, int64(1), metrics.Load(&f.core.Metrics.SessionsEndedTotal))
}

func TestEndWhileStartingIgnoresLateResponse(t *testing.T) {
	f := newFixture(t, nil, nil)

	require.NoError(t, f.m.StartSession(StartOptions{}))
	f.m.Exit()
	assert.Equal(t, StateEnded, f.m.State())

	f.m.Tick()
	assert.Equal(t, StateEnded, f.m.State())
	assert.Empty(t, f.notes)
	assert.False(t, f.core.Started())
	assert.Equal(t, []string{model.ResourceSessionStart}, f.tr.resources())
}

func TestCredentialExpiryEndsSession(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.SessionTTL = time.Hour; c.FlushInterval = 2 * time.Hour }, nil)
	f.activate(t)
	f.queue.Producer().Enqueue(model.LevelInfo, "ui.click", nil, nil)

	f.clock.Add(59 * time.Minute)
	_, ok := f.m.Credential()
	assert.True(t, ok)

	f.clock.Add(time.Minute)
	_, ok = f.m.Credential()
	assert.False(t, ok)

	f.m.Tick()
	assert.Equal(t, StateEnded, f.m.State())
	assert.Equal(t, []string{model.ResourceSessionStart, model.ResourceSessionEnd, model.ResourceEventsBatch}, f.tr.resources())
	assert.JSONEq(t, `{"reason":"expired"}`, string(f.tr.requests[1].Body))
}

func TestDevTransportRunsFullLifecycle(t *testing.T) {
	cfg := config.New("game", "pk", "1")
	cfg.Mode = config.ModeDev
	clk := clock.NewMock()
	c := core.New(cfg, clk, zerolog.Nop(), metrics.New())
	rec := transport.NewMemoryRecorder()
	q := ingest.NewQueue(c)
	m := NewManager(c, q, transport.NewDispatcher(c, transport.NewDev(clk, rec), false), fixedPlayer("p"), fixedMachine)

	require.NoError(t, m.StartSession(StartOptions{}))
	m.Tick()
	require.Equal(t, StateActive, m.State())

	tok, ok := m.Credential()
	require.True(t, ok)
	assert.Contains(t, tok, "dev-")

	q.Producer().Enqueue(model.LevelError, "game.crash", nil, nil)
	m.Tick()
	m.Exit()
	m.Tick()

	assert.Equal(t, []string{model.ResourceSessionStart, model.ResourceSessionEnd, model.ResourceEventsBatch}, rec.Resources())
	assert.Zero(t, m.Dispatcher().Inflight())
}
