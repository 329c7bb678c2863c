package tickgauge

import (
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"tickgauge/internal/sysinfo"
)

type options struct {
	log         *zerolog.Logger
	clock       clock.Clock
	transport   Transport
	recorder    Recorder
	identityDir string
	machine     sysinfo.Source
	httpClient  *http.Client
	metrics     *Metrics
}

// Option 은 New 의 선택 collaborator 를 지정한다.
type Option func(*options)

// WithLogger 는 SDK 로그의 base 로거. 없으면 zerolog 전역 로거를 쓴다.
// 레벨은 항상 Config.LogLevel 을 따른다.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = &l }
}

// WithClock 은 elapsed_ms 계산과 flush 타이머에 쓰는 clock.
// 테스트에서는 clock.NewMock() 을 넘긴다.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithTransport 는 Mode 와 무관하게 주어진 transport 를 쓴다.
func WithTransport(t Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithRecorder 는 Dev 모드에서 기록된 요청을 추가로 받을 Recorder.
func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithIdentityDir 은 player id 파일의 root 디렉토리 (기본: XDG config home).
func WithIdentityDir(dir string) Option {
	return func(o *options) { o.identityDir = dir }
}

// WithMachine 은 세션 시작 시 보낼 machine descriptor 를 고정한다.
func WithMachine(fn func() Machine) Option {
	return func(o *options) { o.machine = fn }
}

// WithHTTPClient 는 Live 모드 transport 의 http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithMetrics 는 host 가 가진 카운터 집합을 공유할 때 쓴다.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}
