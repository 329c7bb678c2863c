// Package session owns the session state machine and the tick-loop side of
// the pipeline: it drains the ingestion queue into the batch buffer, drives
// the flusher and completes in-flight requests.
package session

import (
	"errors"

	"github.com/rs/zerolog"

	"tickgauge/internal/batch"
	"tickgauge/internal/core"
	"tickgauge/internal/ingest"
	"tickgauge/internal/logger"
	"tickgauge/internal/metrics"
	"tickgauge/internal/model"
	"tickgauge/internal/sysinfo"
	"tickgauge/internal/transport"
)

// PlayerIDSource 는 identity.Store 가 구현한다.
type PlayerIDSource interface {
	GetOrCreatePlayerID() string
}

// StartOptions 는 host 가 세션 시작 시 넘기는 선택 값.
type StartOptions struct {
	Platform string
	Locale   string
}

// Manager
// ------------------------------------------------------------
// 프로세스당 하나의 세션을 관리하는 상태 머신.
// queue producer 를 제외한 모든 상태는 tick 루프 goroutine 전용이며 lock 을 쓰지 않는다.
//
// tick 순서:
//  1. 완료된 요청의 continuation 실행 (start 응답 → Active 전이 포함)
//  2. Active 가 아니면 종료
//  3. credential 만료 확인 → 만료 시 세션 종료 (reason "expired")
//  4. queue → buffer (검증 실패는 로그 후 폐기)
//  5. flusher 평가 (batch size / interval)
type Manager struct {
	core       *core.Context
	log        zerolog.Logger
	queue      *ingest.Queue
	buffer     *batch.Buffer
	flusher    *batch.Flusher
	dispatcher *transport.Dispatcher
	players    PlayerIDSource
	machine    sysinfo.Source

	state     State
	cred      *Credential
	disabled  error
	listeners []func(Notification)
}

func NewManager(c *core.Context, q *ingest.Queue, d *transport.Dispatcher, players PlayerIDSource, machine sysinfo.Source) *Manager {
	if machine == nil {
		machine = sysinfo.Collect
	}
	m := &Manager{
		core:       c,
		log:        logger.Component(c.Log, "session"),
		queue:      q,
		buffer:     batch.NewBuffer(),
		dispatcher: d,
		players:    players,
		machine:    machine,
	}
	m.flusher = batch.NewFlusher(m.buffer, sender{m}, c.Clock, c.Config.BatchSize, c.Config.FlushInterval)

	if err := c.Config.Validate(); err != nil {
		m.disabled = err
		if !errors.Is(err, model.ErrDisabled) {
			m.log.Warn().Err(err).Msg("ingestion disabled by configuration")
		}
	}
	return m
}

// OnNotify 는 lifecycle 알림 listener 를 등록한다. tick 루프에서 동기 호출된다.
func (m *Manager) OnNotify(fn func(Notification)) {
	if fn != nil {
		m.listeners = append(m.listeners, fn)
	}
}

func (m *Manager) notify(n Notification) {
	for _, fn := range m.listeners {
		fn(n)
	}
}

func (m *Manager) State() State { return m.state }

// Disabled 는 설정 오류 / Disabled 모드로 파이프라인이 꺼져 있으면 그 원인을 돌려준다.
func (m *Manager) Disabled() error { return m.disabled }

// Buffered 는 batch buffer 에 대기 중인 이벤트 수.
func (m *Manager) Buffered() int { return m.buffer.Len() }

func (m *Manager) Dispatcher() *transport.Dispatcher { return m.dispatcher }

// Credential 은 Active 세션의 유효한 토큰을 돌려준다. 만료되었으면 false.
func (m *Manager) Credential() (string, bool) {
	if m.state != StateActive || m.cred == nil {
		return "", false
	}
	if m.cred.Expired(m.core.Clock.Now()) {
		return "", false
	}
	return m.cred.Token, true
}

// ElapsedMs 는 세션 시작 기준 경과 시간 (시작 전 0).
func (m *Manager) ElapsedMs() uint64 {
	return m.core.ElapsedMs()
}

// StartSession
//
// Uninitialized → Starting 전이 후 sessions/start 를 발행한다. 응답은 이후 Tick 에서 처리된다.
//
//   - 비활성화 상태: UnexpectedFailure 알림 + 원인 에러
//   - 이미 Starting / Active 이거나 start instant 가 이미 설정됨: Skipped 알림 + ErrDuplicateSession
func (m *Manager) StartSession(opts StartOptions) error {
	if m.disabled != nil {
		m.notify(Notification{Outcome: UnexpectedFailure, Reason: "ingestion disabled", Err: m.disabled})
		return m.disabled
	}

	if m.state != StateUninitialized || m.core.Started() {
		m.log.Warn().Str("state", m.state.String()).Msg("session already started")
		m.notify(Notification{Outcome: Skipped, Reason: "session already started", Err: model.ErrDuplicateSession})
		return model.ErrDuplicateSession
	}

	cfg := m.core.Config
	hw := m.machine()

	payload := model.StartSessionPayload{
		ClientVersion: cfg.ProductVersion,
		Platform:      opts.Platform,
		OS:            hw.OS,
		CPUFamily:     hw.CPUFamily,
		Cores:         hw.Cores,
		Memory:        hw.Memory,
		Locale:        opts.Locale,
	}
	if m.players != nil {
		payload.PlayerID = m.players.GetOrCreatePlayerID()
	}

	m.state = StateStarting
	err := m.dispatcher.PostJSON(model.ResourceSessionStart, cfg.PublicKey, payload, transport.Handlers{
		OnResponse: m.onStartResponse,
		OnError:    m.onStartError,
	})
	if err != nil {
		m.failStart(Failure, "failed to build session start request", err)
		return err
	}

	m.log.Debug().Str("player_id", payload.PlayerID).Msg("session start requested")
	return nil
}

func (m *Manager) onStartResponse(resp transport.Response) {
	if m.state != StateStarting {
		// Starting 중에 End 가 호출된 경우. 늦게 온 응답은 버린다.
		m.log.Debug().Str("state", m.state.String()).Msg("ignoring late session start response")
		return
	}

	res, err := model.DecodeStartSession(resp.Status, resp.Body)
	if err != nil {
		m.failStart(UnexpectedFailure, "failed to decode session start response", err)
		return
	}
	if res.Err != nil {
		m.log.Error().Str("error_code", res.Err.Code).Str("error_message", res.Err.Message).Msg("session start refused")
		m.failStart(Failure, "failed to start session", res.Err)
		return
	}

	now := m.core.Clock.Now()
	if err := m.core.MarkStarted(now); err != nil {
		m.failStart(Failure, "failed to set session start instant", err)
		return
	}

	cred := Credential{Token: res.OK.SessionToken}
	if ttl := m.core.Config.SessionTTL; ttl > 0 {
		cred.ExpiresAt = now.Add(ttl)
	}
	m.cred = &cred
	m.state = StateActive

	if err := m.queue.Arm(); err != nil {
		m.log.Error().Err(err).Msg("producer handle already armed")
	}
	m.flusher.Reset()

	metrics.Inc(&m.core.Metrics.SessionsStartedTotal)
	m.log.Info().Time("start_instant", now).Time("expires_at", cred.ExpiresAt).Msg("session started")
	m.notify(Notification{Outcome: Success})
}

func (m *Manager) onStartError(err error) {
	if m.state != StateStarting {
		return
	}
	m.failStart(Failure, "session start request failed", err)
}

func (m *Manager) failStart(outcome Outcome, reason string, err error) {
	m.state = StateUninitialized
	metrics.Inc(&m.core.Metrics.SessionStartFailuresTotal)
	m.log.Error().Err(err).Str("outcome", outcome.String()).Msg(reason)
	m.notify(Notification{Outcome: outcome, Reason: reason, Err: err})
}

// Tick 은 host 의 main loop 에서 프레임마다 한 번 호출한다. 절대 block 하지 않는다.
func (m *Manager) Tick() {
	m.dispatcher.Poll()

	if m.state != StateActive {
		return
	}

	if m.cred.Expired(m.core.Clock.Now()) {
		m.log.Info().Msg("session credential expired")
		m.End(ReasonExpired)
		return
	}

	m.queue.Drain(m.buffer.Push)

	if tr, n := m.flusher.Tick(); tr != batch.TriggerNone {
		m.log.Debug().Str("trigger", tr.String()).Int("count", n).Msg("flushed")
	}
}

// End
//
// Active → Ending → Ended.
//  1. queue 에 남은 이벤트를 buffer 로 이동
//  2. sessions/end 발행
//  3. buffer 전체를 batch 로 발행 (final flush, heartbeat 없음)
//  4. credential 폐기, producer handle 닫기
//
// 어떤 요청의 완료도 기다리지 않는다.
// Starting 중이면 곧바로 Ended 가 되고 이후 도착하는 start 응답은 무시된다.
func (m *Manager) End(reason string) {
	switch m.state {
	case StateStarting:
		m.state = StateEnded
		m.queue.Close()
		m.log.Info().Msg("session ended before start completed")
		return
	case StateActive:
	default:
		return
	}

	m.state = StateEnding
	m.queue.Drain(m.buffer.Push)

	if err := m.dispatcher.PostJSON(model.ResourceSessionEnd, m.cred.Token, model.EndSessionPayload{Reason: reason}, transport.Handlers{}); err != nil {
		m.log.Error().Err(err).Msg("failed to build session end request")
	}

	n := m.flusher.FinalFlush()

	m.cred = nil
	m.queue.Close()
	m.state = StateEnded

	metrics.Inc(&m.core.Metrics.SessionsEndedTotal)
	m.log.Info().Str("reason", reason).Int("final_flush", n).Msg("session ended")
}

// Exit 는 application 종료 시 호출한다.
func (m *Manager) Exit() {
	m.End(ReasonEnded)
}

// sender 는 flusher 가 쓰는 batch.Sender 구현. 세션 credential 로 인증한다.
type sender struct {
	m *Manager
}

func (s sender) SendBatch(b model.BatchEventPayload) {
	m := s.m
	if m.cred == nil {
		return
	}
	count := len(b.Events)
	err := m.dispatcher.PostJSON(model.ResourceEventsBatch, m.cred.Token, b, transport.Handlers{
		OnResponse: func(resp transport.Response) {
			if resp.Success() {
				m.log.Debug().Int("count", count).Msg("event batch delivered")
			}
		},
	})
	if err != nil {
		m.log.Error().Err(err).Int("count", count).Msg("failed to build event batch request")
		return
	}
	metrics.Inc(&m.core.Metrics.BatchesSentTotal)
	metrics.Add(&m.core.Metrics.EventsSentTotal, int64(count))
}

func (s sender) SendHeartbeat() {
	m := s.m
	if m.cred == nil {
		return
	}
	if err := m.dispatcher.PostJSON(model.ResourceSessionHeartbeat, m.cred.Token, struct{}{}, transport.Handlers{}); err != nil {
		m.log.Error().Err(err).Msg("failed to build heartbeat request")
		return
	}
	metrics.Inc(&m.core.Metrics.HeartbeatsSentTotal)
}
