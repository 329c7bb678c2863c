// internal/config/config.go
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"tickgauge/internal/model"
)

// Mode 는 전송 방식 스위치.
//   - Live: 실제 네트워크 I/O
//   - Dev: 네트워크 없이 "보냈을 요청"을 로컬에 기록만 한다 (세션 토큰도 로컬 생성)
//   - Disabled: 파이프라인 전체 off
type Mode int

const (
	ModeLive Mode = iota
	ModeDev
	ModeDisabled
)

func (m Mode) String() string {
	switch m {
	case ModeLive:
		return "live"
	case ModeDev:
		return "dev"
	case ModeDisabled:
		return "disabled"
	}
	return "unknown"
}

// ParseMode 는 "live" / "dev" / "disabled" 를 해석한다. 대소문자 무시.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "live", "":
		return ModeLive, nil
	case "dev":
		return ModeDev, nil
	case "disabled", "off":
		return ModeDisabled, nil
	}
	return ModeLive, fmt.Errorf("unknown mode %q", s)
}

const (
	EnvAPIBase   = "TICKGAUGE_API_BASE"
	EnvPublicKey = "TICKGAUGE_PUBLIC_KEY"
	EnvMode      = "TICKGAUGE_MODE"

	DefaultAPIBase        = "https://ingest.tickgauge.dev"
	DefaultBatchSize      = 64
	DefaultFlushInterval  = 10 * time.Second
	DefaultMaxQueue       = 10_000
	DefaultRequestTimeout = 10 * time.Second

	// 세션 credential 유효 기간 (세션 시작 시점 기준)
	DefaultSessionTTL = 6 * time.Hour
)

// Config
//
// SDK 프로세스 전역 설정.
// New() 로 한 번 만들고 Client 에 값으로 넘기며, 이후에는 변경되지 않는
// 불변(read-only) 설정이다. 값 복사로 전달되므로 여러 goroutine 에서 공유해도 안전하다.
type Config struct {

	// ---------------------------
	// ingest 서비스
	// ---------------------------

	APIBase   string // 예: https://ingest.tickgauge.dev (env TICKGAUGE_API_BASE 로 override)
	PublicKey string // 세션 시작 시 사용하는 public API key

	// ---------------------------
	// 제품 식별
	// ---------------------------

	ProductName    string // preferences 디렉토리 이름으로도 사용
	ProductVersion string // clientVersion

	// ---------------------------
	// 배치 / 큐
	// ---------------------------

	BatchSize      int           // 1회 flush 시 최대 이벤트 수
	FlushInterval  time.Duration // 마지막 flush 이후 이 시간이 지나면 flush (heartbeat 포함)
	MaxQueue       int           // ingestion queue 최대 깊이 (초과 시 drop)
	RequestTimeout time.Duration // 요청 1건당 timeout

	// ---------------------------
	// 세션
	// ---------------------------

	SessionTTL time.Duration // credential 만료 window

	// ---------------------------
	// 전송 / 로깅
	// ---------------------------

	Mode            Mode
	LogLevel        string // debug | info | warn | error | silent
	CompressBatches bool   // events/batch 바디를 gzip 으로 보낼지 여부

	// Dev 모드에서 기록한 요청을 파일/S3 로 남길 때 사용 (비어 있으면 메모리 기록만)
	Archive Archive
}

// New
//
// 기본값으로 Config 를 만든다.
// API base URL 만 환경 변수(TICKGAUGE_API_BASE)로 덮어쓸 수 있고,
// 나머지 knob 은 호출자가 반환값의 필드를 조정한다.
func New(productName, publicKey, productVersion string) Config {
	return Config{
		APIBase:        envOr(EnvAPIBase, DefaultAPIBase),
		PublicKey:      publicKey,
		ProductName:    productName,
		ProductVersion: productVersion,
		BatchSize:      DefaultBatchSize,
		FlushInterval:  DefaultFlushInterval,
		MaxQueue:       DefaultMaxQueue,
		RequestTimeout: DefaultRequestTimeout,
		SessionTTL:     DefaultSessionTTL,
		Mode:           ModeLive,
		LogLevel:       "info",
	}
}

// FromEnv 는 New 에 더해 public key 와 mode 도 환경 변수에서 읽는다.
// 형식이 잘못된 mode 는 Live 로 취급한다 (SDK 는 host 를 죽이지 않는다).
func FromEnv(productName, productVersion string) Config {
	cfg := New(productName, os.Getenv(EnvPublicKey), productVersion)
	if m, err := ParseMode(os.Getenv(EnvMode)); err == nil {
		cfg.Mode = m
	}
	return cfg
}

// Validate
//
// 파이프라인을 켤 수 있는 설정인지 확인한다.
// public key 누락은 ConfigError (model.ErrMissingPublicKey) 로,
// 호출자는 경고 1회만 남기고 파이프라인을 끈다.
func (c Config) Validate() error {
	if c.Mode == ModeDisabled {
		return model.ErrDisabled
	}
	if strings.TrimSpace(c.PublicKey) == "" {
		return model.ErrMissingPublicKey
	}
	if strings.TrimSpace(c.APIBase) == "" {
		return fmt.Errorf("tickgauge: api base is empty")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("tickgauge: batch size must be positive, got %d", c.BatchSize)
	}
	if c.MaxQueue <= 0 {
		return fmt.Errorf("tickgauge: max queue must be positive, got %d", c.MaxQueue)
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("tickgauge: flush interval must be positive, got %s", c.FlushInterval)
	}
	return nil
}

// URL 은 {api_base}/v1/<resource> 를 만든다.
func (c Config) URL(resource string) string {
	return strings.TrimRight(c.APIBase, "/") + "/v1/" + strings.TrimLeft(resource, "/")
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// instanceID
//
// 프로세스 식별자.
//   - 기본: hostname
//   - fallback: 12자리 랜덤 hex
func instanceID() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	var b [6]byte
	if _, err := rand.Read(b[:]); err == nil {
		return hex.EncodeToString(b[:])
	}
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}
