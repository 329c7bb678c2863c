package tickgauge

import (
	"context"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"tickgauge/internal/core"
	"tickgauge/internal/feedback"
	"tickgauge/internal/identity"
	"tickgauge/internal/ingest"
	"tickgauge/internal/logger"
	"tickgauge/internal/model"
	"tickgauge/internal/session"
	"tickgauge/internal/transport"
	"tickgauge/internal/worker"
)

// Client
// ------------------------------------------------------------
// 프로세스당 하나 만든다.
//
//   - Enqueue / Trace..Error / Producer: 어느 goroutine 에서나 호출 가능, non-blocking
//   - 나머지 메서드: host 의 main loop (Tick 을 부르는 goroutine) 에서만 호출
type Client struct {
	core     *core.Context
	log      zerolog.Logger
	queue    *ingest.Queue
	session  *session.Manager
	feedback *feedback.Submitter
	form     *feedback.Form
	identity *identity.Store

	memory   *transport.MemoryRecorder // Dev 모드에서만
	archiver *worker.Archiver          // Dev 모드 + Archive 설정 시에만

	closeOnce sync.Once
}

// New
//
// 구성 순서:
//  1. core.Context (config, clock, logger, metrics, set-once start instant)
//  2. ingestion queue
//  3. transport: Live → HTTP, Dev/Disabled → 기록 전용 (+ 선택 archiver)
//  4. dispatcher, identity store, session manager, feedback submitter
//
// 설정 오류는 에러로 돌려주지 않는다. 파이프라인만 꺼지고 StartSession 이 원인을 보고한다.
func New(cfg Config, opts ...Option) *Client {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	log := logger.ForSDK(o.log, cfg.LogLevel)
	c := core.New(cfg, o.clock, log, o.metrics)

	cl := &Client{
		core:  c,
		log:   logger.Component(log, "client"),
		queue: ingest.NewQueue(c),
		form:  feedback.NewForm(),
	}

	t := o.transport
	if t == nil {
		t = cl.buildTransport(o)
	}
	d := transport.NewDispatcher(c, t, cfg.CompressBatches && cfg.Mode == ModeLive)

	dir := identity.XDGConfigHome
	if o.identityDir != "" {
		root := o.identityDir
		dir = func() (string, error) { return root, nil }
	}
	cl.identity = identity.NewStore(dir, cfg.ProductName, log)

	cl.session = session.NewManager(c, cl.queue, d, cl.identity, o.machine)
	cl.feedback = feedback.NewSubmitter(c, d, cl.session)
	return cl
}

func (cl *Client) buildTransport(o options) Transport {
	cfg := cl.core.Config
	if cfg.Mode == ModeLive {
		return transport.NewHTTP(o.httpClient, cfg.RequestTimeout)
	}

	cl.memory = transport.NewMemoryRecorder()
	recs := transport.MultiRecorder{cl.memory}
	if o.recorder != nil {
		recs = append(recs, o.recorder)
	}

	if cfg.Mode == ModeDev && cfg.Archive.Enabled() {
		arc, err := worker.NewArchiverFromConfig(context.Background(), cfg.Archive, cl.core.Clock, cl.core.Metrics, cl.core.Log)
		if err != nil {
			cl.log.Warn().Err(err).Msg("capture archive disabled")
		} else if arc != nil {
			arc.Start()
			cl.archiver = arc
			recs = append(recs, arc)
		}
	}
	return transport.NewDev(cl.core.Clock, recs)
}

// ------------------------------------------------------------
// 이벤트 수집
// ------------------------------------------------------------

// Producer 는 다른 goroutine 에 넘길 수 있는 enqueue handle.
func (cl *Client) Producer() *Producer { return cl.queue.Producer() }

// Enqueue 는 호출 위치 없이 이벤트를 넣는다. 세션이 Active 가 아니면 조용히 무시된다.
func (cl *Client) Enqueue(level Level, eventType string, metadata any, opts ...EventOption) {
	cl.queue.Producer().Enqueue(level, eventType, metadata, nil, opts...)
}

// Trace / Debug / Info / Warn / Error 는 호출 위치 (file, line, package) 를 context 로 붙인다.
func (cl *Client) Trace(eventType string, metadata any, opts ...EventOption) {
	cl.emit(LevelTrace, eventType, metadata, opts)
}

func (cl *Client) Debug(eventType string, metadata any, opts ...EventOption) {
	cl.emit(LevelDebug, eventType, metadata, opts)
}

func (cl *Client) Info(eventType string, metadata any, opts ...EventOption) {
	cl.emit(LevelInfo, eventType, metadata, opts)
}

func (cl *Client) Warn(eventType string, metadata any, opts ...EventOption) {
	cl.emit(LevelWarn, eventType, metadata, opts)
}

func (cl *Client) Error(eventType string, metadata any, opts ...EventOption) {
	cl.emit(LevelError, eventType, metadata, opts)
}

func (cl *Client) emit(level Level, eventType string, metadata any, opts []EventOption) {
	p := cl.queue.Producer()
	if !cl.queue.Active() {
		// call site 계산 전에 걸러낸다. 카운터는 Enqueue 가 올린다.
		p.Enqueue(level, eventType, metadata, nil, opts...)
		return
	}
	p.Enqueue(level, eventType, metadata, callSite(2), opts...)
}

// callSite 는 skip 단계 위 호출자의 위치. file 은 마지막 디렉토리 + 파일명만 남긴다.
func callSite(skip int) *model.EventContext {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return nil
	}
	ec := &model.EventContext{
		File: path.Join(filepath.Base(filepath.Dir(file)), filepath.Base(file)),
		Line: line,
	}
	if fn := runtime.FuncForPC(pc); fn != nil {
		ec.Module = packagePath(fn.Name())
	}
	return ec
}

// packagePath: "example.com/game/ui.(*Menu).Open" → "example.com/game/ui"
func packagePath(funcName string) string {
	slash := strings.LastIndex(funcName, "/")
	rest := funcName[slash+1:]
	if dot := strings.Index(rest, "."); dot >= 0 {
		rest = rest[:dot]
	}
	return funcName[:slash+1] + rest
}

// ------------------------------------------------------------
// 세션 lifecycle (main loop 전용)
// ------------------------------------------------------------

// StartSession 은 sessions/start 를 발행한다. 결과는 이후 Tick 에서 OnSessionInit listener 로 전달된다.
func (cl *Client) StartSession(opts StartOptions) error {
	return cl.session.StartSession(opts)
}

// OnSessionInit 은 세션 시작 결과 (Success / Skipped / Failure / UnexpectedFailure) listener.
func (cl *Client) OnSessionInit(fn func(Notification)) {
	cl.session.OnNotify(fn)
}

// Tick 은 프레임마다 한 번. 완료된 요청 처리, queue drain, flush 판단을 한다.
func (cl *Client) Tick() { cl.session.Tick() }

// EndSession 은 sessions/end 와 final flush 를 발행한다. 완료를 기다리지 않는다.
func (cl *Client) EndSession() { cl.session.End(session.ReasonEnded) }

// Exit 는 application 종료 직전에 호출한다.
func (cl *Client) Exit() { cl.session.Exit() }

// Close 는 Exit 후 capture archive 를 정리한다. 여러 번 호출해도 안전하다.
func (cl *Client) Close() {
	cl.closeOnce.Do(func() {
		cl.session.Exit()
		if cl.archiver != nil {
			cl.archiver.Shutdown()
		}
	})
}

func (cl *Client) State() State { return cl.session.State() }

// Disabled 는 파이프라인이 꺼진 원인 (설정 오류 / Disabled 모드). 켜져 있으면 nil.
func (cl *Client) Disabled() error { return cl.session.Disabled() }

// ElapsedMs 는 세션 시작 기준 경과 시간 (시작 전 0).
func (cl *Client) ElapsedMs() uint64 { return cl.session.ElapsedMs() }

// Buffered 는 아직 발행되지 않은 이벤트 수 (batch buffer 기준).
func (cl *Client) Buffered() int { return cl.session.Buffered() }

// Inflight 는 완료 처리되지 않은 요청 수.
func (cl *Client) Inflight() int { return cl.session.Dispatcher().Inflight() }

func (cl *Client) PlayerID() string { return cl.identity.GetOrCreatePlayerID() }

func (cl *Client) Metrics() *Metrics { return cl.core.Metrics }

// MetricsText 는 카운터를 "name=value" 줄로 출력한다.
func (cl *Client) MetricsText() string { return cl.core.Metrics.String() }

// Captures 는 Dev 모드에서 기록된 요청 (Live 모드에서는 nil).
func (cl *Client) Captures() []Capture {
	if cl.memory == nil {
		return nil
	}
	return cl.memory.Captures()
}

// ------------------------------------------------------------
// 피드백
// ------------------------------------------------------------

// SubmitFeedback
//
//   - *ValidationError: 정규화 후 2글자 미만
//   - ErrNoSession: Active 세션 없음
//
// onAccepted 는 서비스가 feedback id 를 돌려주면 Tick 에서 호출된다 (nil 가능).
func (cl *Client) SubmitFeedback(message string, category Category, question string, onAccepted func(id string)) error {
	return cl.feedback.Submit(message, category, question, onAccepted)
}

// Form 은 host UI 가 그리는 피드백 폼 상태.
func (cl *Client) Form() *Form { return cl.form }

// RequestFeedback 은 질문과 category 를 채운 채로 폼을 연다.
func (cl *Client) RequestFeedback(question string, category Category) {
	cl.form.OpenWithQuestion(question, category)
}

// SubmitForm 은 Form 내용을 제출한다. shot 은 스크린샷 포함이 켜져 있을 때만 호출된다.
func (cl *Client) SubmitForm(shot ScreenshotFunc) error {
	return cl.feedback.SubmitForm(cl.form, shot)
}

func (cl *Client) UploadScreenshot(feedbackID string, png []byte) error {
	return cl.feedback.UploadScreenshot(feedbackID, png)
}
