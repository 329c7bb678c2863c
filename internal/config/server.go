package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Logging 은 binary (cmd/*) 용 로거 설정.
type Logging struct {
	ServiceName string
	InstanceID  string
	LogLevel    string // debug | info | warn | error
	LogPretty   bool   // true: 콘솔 컬러 출력, false: JSON
	LogSampleN  uint32 // Debug/Info 샘플링 (N개 중 1개), 1 이하이면 샘플링 없음
}

// Server
//
// stand-in ingest 서버 (cmd/ingest-mock) 설정.
// 모든 값은 프로세스 시작 시점에 LoadServer() 로 초기화되며 이후 변경되지 않는다.
type Server struct {
	Logging Logging

	HTTPAddr    string // 예: ":8787"
	MaxBodySize int64  // 요청 body 최대 크기 (바이트)
	PublicKey   string // sessions/start 에서 기대하는 key (비어 있으면 검사 안 함)

	Archive Archive
}

// LoadServer
//
// 환경 변수 기반으로 Server 설정을 읽는다.
// 필수 env 가 비어 있거나 형식이 잘못되면 즉시 종료(fail-fast).
func LoadServer() Server {
	inst := instanceID()

	return Server{
		Logging: Logging{
			ServiceName: envOr("SERVICE_NAME", "tickgauge-ingest-mock"),
			InstanceID:  inst,
			LogLevel:    envOr("LOG_LEVEL", "info"),
			LogPretty:   envBool("LOG_PRETTY"),
			LogSampleN:  uint32(envInt("LOG_SAMPLE_N", 1)),
		},

		HTTPAddr:    must("HTTP_ADDR"),
		MaxBodySize: mustInt64("MAX_BODY_SIZE"),
		PublicKey:   os.Getenv("INGEST_PUBLIC_KEY"),

		Archive: Archive{
			InstanceID:    inst,
			ChannelSize:   mustInt("CHANNEL_SIZE"),
			UploadQueue:   mustInt("UPLOAD_QUEUE"),
			BatchSize:     mustInt("BATCH_SIZE"),
			FlushInterval: mustDur("FLUSH_INTERVAL"),

			Dir:          os.Getenv("ARCHIVE_DIR"),
			MaxAge:       envDur("ARCHIVE_MAX_AGE", 0),
			MaxSizeBytes: int64(envInt("ARCHIVE_MAX_SIZE_BYTES", 0)),

			AWSRegion: os.Getenv("AWS_REGION"),
			Bucket:    os.Getenv("ARCHIVE_BUCKET"),
			Prefix:    envOr("ARCHIVE_PREFIX", "captures"),
			S3Timeout: envDur("S3_TIMEOUT", 5*time.Second),
		},
	}
}

// must / mustInt / mustInt64 / mustDur
//
// 필수 환경변수가 없거나 형식이 잘못되면 즉시 로그 출력 후 종료(fail-fast).
func must(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("missing required env: %s", key)
	}
	return v
}

func mustInt(key string) int {
	v := must(key)
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int env %s=%q: %v", key, v, err)
	}
	return n
}

func mustInt64(key string) int64 {
	v := must(key)
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Fatalf("invalid int64 env %s=%q: %v", key, v, err)
	}
	return n
}

func mustDur(key string) time.Duration {
	v := must(key)
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration env %s=%q: %v", key, v, err)
	}
	return d
}

// 선택 env (없으면 기본값)

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int env %s=%q: %v", key, v, err)
	}
	return n
}

func envDur(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration env %s=%q: %v", key, v, err)
	}
	return d
}

func envBool(key string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return b
}
