// internal/logger/log.go
package logger

import (
	"io"
	"os"
	"strings"

	"tickgauge/internal/config"

	stdlog "log"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Init
//
// binary (cmd/*) 시작 시 한 번만 호출되는 전역 로거 초기화 함수.
// SDK 자체는 전역 로거를 건드리지 않는다 (host 의 설정을 존중) → ForSDK 참고.
//
// [주요 기능]
//
//  1. 로그 포맷 자동 전환:
//     - LogPretty=true: 콘솔 컬러 출력 (로컬 개발)
//     - LogPretty=false: JSON (수집 시스템용)
//
//  2. 공통 필드 자동 추가: "service", "instance"
//
//  3. 로그 샘플링: Debug/Info 만 N개 중 1개 기록, Warn/Error 는 100% 기록
func Init(cfg config.Logging) {
	level := ParseLevel(cfg.LogLevel, zerolog.InfoLevel)
	zerolog.SetGlobalLevel(level)

	var w io.Writer
	if cfg.LogPretty {
		w = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	} else {
		w = os.Stdout
	}

	base := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("instance", cfg.InstanceID).
		Logger()

	logger := base
	if cfg.LogSampleN > 1 {
		logger = base.Sample(&zerolog.LevelSampler{
			DebugSampler: &zerolog.BasicSampler{N: cfg.LogSampleN},
			InfoSampler:  &zerolog.BasicSampler{N: cfg.LogSampleN},
		})
	}

	zlog.Logger = logger

	// 표준 log 패키지 출력도 zerolog 로 돌린다.
	stdlog.SetFlags(0)
	stdlog.SetOutput(zlog.Logger)
}

// ParseLevel
//
// "debug|info|warn|error|silent" 를 zerolog 레벨로 바꾼다.
// "silent" (또는 "off") 는 zerolog.Disabled. 해석 실패 시 def.
func ParseLevel(s string, def zerolog.Level) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "silent", "off", "none":
		return zerolog.Disabled
	case "":
		return def
	}
	if l, err := zerolog.ParseLevel(s); err == nil {
		return l
	}
	return def
}

// ForSDK
//
// SDK 내부 컴포넌트용 로거를 만든다.
// base 는 host 가 넘긴 로거 (없으면 전역 zlog.Logger), level 은 Config.LogLevel.
func ForSDK(base *zerolog.Logger, level string) zerolog.Logger {
	l := zlog.Logger
	if base != nil {
		l = *base
	}
	return l.Level(ParseLevel(level, zerolog.InfoLevel)).
		With().
		Str("sdk", "tickgauge").
		Logger()
}

// Component 는 component 필드가 붙은 child 로거.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
