// Package tickgauge is the host-facing API of the telemetry SDK.
//
// A host builds one Client at startup, calls StartSession once, and calls
// Tick once per frame from its main loop. Events may be enqueued from any
// goroutine. Nothing in the package blocks the caller or panics, except
// MustEventType on an invalid literal.
//
//	client := tickgauge.New(tickgauge.NewConfig("my-game", key, "1.4.0"))
//	defer client.Close()
//	_ = client.StartSession(tickgauge.StartOptions{Platform: "steam"})
//
//	for running {
//		client.Info(evLevelLoaded, map[string]any{"level": 3})
//		client.Tick()
//	}
package tickgauge

import (
	"tickgauge/internal/config"
	"tickgauge/internal/feedback"
	"tickgauge/internal/ingest"
	"tickgauge/internal/metrics"
	"tickgauge/internal/model"
	"tickgauge/internal/session"
	"tickgauge/internal/sysinfo"
	"tickgauge/internal/transport"
)

type (
	Config        = config.Config
	ArchiveConfig = config.Archive
	Mode          = config.Mode
	Level         = model.Level
	Category      = model.FeedbackCategory
	EventContext  = model.EventContext
	Capture       = model.Capture

	Notification = session.Notification
	Outcome      = session.Outcome
	State        = session.State
	StartOptions = session.StartOptions

	Form           = feedback.Form
	ScreenshotFunc = feedback.ScreenshotFunc

	Producer    = ingest.Producer
	EventOption = ingest.Option

	Machine = sysinfo.Descriptor
	Metrics = metrics.Metrics

	Transport = transport.Transport
	Request   = transport.Request
	Response  = transport.Response
	Result    = transport.Result
	Pending   = transport.Pending
	Recorder  = transport.Recorder

	ValidationError = model.ValidationError
	TransportError  = model.TransportError
	DecodeError     = model.DecodeError
	ErrorBody       = model.ErrorBody
)

const (
	ModeLive     = config.ModeLive
	ModeDev      = config.ModeDev
	ModeDisabled = config.ModeDisabled

	LevelTrace = model.LevelTrace
	LevelDebug = model.LevelDebug
	LevelInfo  = model.LevelInfo
	LevelWarn  = model.LevelWarn
	LevelError = model.LevelError

	Success           = session.Success
	Skipped           = session.Skipped
	Failure           = session.Failure
	UnexpectedFailure = session.UnexpectedFailure

	StateUninitialized = session.StateUninitialized
	StateStarting      = session.StateStarting
	StateActive        = session.StateActive
	StateEnding        = session.StateEnding
	StateEnded         = session.StateEnded

	CategoryGeneral     = model.CategoryGeneral
	CategoryUI          = model.CategoryUI
	CategoryGameplay    = model.CategoryGameplay
	CategoryPerformance = model.CategoryPerformance
	CategoryBugs        = model.CategoryBugs
	CategoryControls    = model.CategoryControls
	CategoryAudio       = model.CategoryAudio
	CategoryBalance     = model.CategoryBalance
	CategoryGraphics    = model.CategoryGraphics
	CategoryVisual      = model.CategoryVisual
	CategoryArt         = model.CategoryArt
	CategoryOther       = model.CategoryOther
)

var (
	ErrMissingPublicKey = model.ErrMissingPublicKey
	ErrDuplicateSession = model.ErrDuplicateSession
	ErrNoSession        = model.ErrNoSession
	ErrDisabled         = model.ErrDisabled
)

// AllCategories 는 폼 dropdown 표시 순서.
var AllCategories = model.AllCategories

// NewConfig 는 기본값이 채워진 Config. TICKGAUGE_API_BASE 가 있으면 base URL 을 덮어쓴다.
func NewConfig(productName, publicKey, productVersion string) Config {
	return config.New(productName, publicKey, productVersion)
}

// ConfigFromEnv 는 public key 와 mode 까지 환경 변수에서 읽는다.
func ConfigFromEnv(productName, productVersion string) Config {
	return config.FromEnv(productName, productVersion)
}

// ParseMode 는 "live" / "dev" / "disabled".
func ParseMode(s string) (Mode, error) { return config.ParseMode(s) }

// MustEventType 는 package-level 이벤트 타입 리터럴을 초기화 시점에 검증한다.
//
//	var evLevelLoaded = tickgauge.MustEventType("level.loaded")
func MustEventType(s string) string { return model.MustEventType(s) }

// ValidateEventType 는 "<letters>.<letters>" 형태인지 확인한다.
func ValidateEventType(s string) error { return model.ValidateEventType(s) }

func WithIdempotencyKey(key string) EventOption { return ingest.WithIdempotencyKey(key) }

// NewPending / Resolved 는 host 가 직접 Transport 를 구현할 때 쓴다.
func NewPending() *Pending         { return transport.NewPending() }
func Resolved(res Result) *Pending { return transport.Resolved(res) }
