package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	zlog "github.com/rs/zerolog/log"

	"tickgauge/internal/config"
	"tickgauge/internal/logger"
	"tickgauge/internal/metrics"
	"tickgauge/internal/server"
	"tickgauge/internal/worker"
)

func main() {

	// ====================================================================
	// CPU 설정
	// ====================================================================
	//
	// stand-in 서버는 로컬 / CI 에서 SDK 와 같이 뜨는 경우가 대부분이다.
	// 게임 프로세스와 코어를 다투지 않도록 기본값은 1 로 둔다.
	//
	// GOMAXPROCS 환경변수로 재정의 가능.
	// ====================================================================
	if v := os.Getenv("GOMAXPROCS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			runtime.GOMAXPROCS(n)
		}
	} else {
		runtime.GOMAXPROCS(1)
	}

	// ====================================================================
	// Config / Logger / Metrics 초기화
	// ====================================================================
	//
	// - Config: 환경변수 기반 (HTTP_ADDR, MAX_BODY_SIZE, archive 설정 등)
	// - Logger: 전역 zerolog 로거 (JSON 또는 콘솔)
	// - Metrics: /metrics 에서 text 로 반환하는 내부 카운터
	// ====================================================================
	cfg := config.LoadServer()
	logger.Init(cfg.Logging)
	m := metrics.New()
	clk := clock.New()

	// ====================================================================
	// Archiver 생성 (Encoder + S3Sink / DirSink)
	// ====================================================================
	//
	// 수신한 요청을 gzip JSONL 로 보관한다.
	//  - ARCHIVE_BUCKET 설정 시 S3 primary, ARCHIVE_DIR 은 실패 spool
	//  - ARCHIVE_DIR 만 있으면 디렉토리에만 기록
	//  - 둘 다 없으면 보관하지 않는다 (로그만)
	// ====================================================================
	arc, err := worker.NewArchiverFromConfig(context.Background(), cfg.Archive, clk, m, zlog.Logger)
	if err != nil {
		zlog.Fatal().Err(err).Msg("archiver init failed")
	}

	var rec server.Recorder
	if arc != nil {
		arc.Start()
		rec = arc
	}

	// ====================================================================
	// HTTP Handler
	// ====================================================================
	//
	// 엔드포인트:
	//  - POST /v1/sessions/{start,heartbeat,end}
	//  - POST /v1/events/batch
	//  - POST /v1/feedback, /v1/feedback/{id}/screenshot
	//  - GET  /metrics, /health
	// ====================================================================
	h := server.NewHandler(cfg, m, rec, clk, zlog.Logger)

	// ====================================================================
	// HTTP 서버 설정
	// ====================================================================
	//
	// SDK 요청은 짧은 JSON 이거나 스크린샷 1장이다.
	// 스크린샷 업로드를 고려해 Read/Write 는 15초로 잡는다.
	// ====================================================================
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      h.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ====================================================================
	// Graceful Shutdown
	// ====================================================================
	//
	// SIGTERM / SIGINT 수신 시:
	//   1) HTTP 서버를 먼저 멈추고 (새 요청 차단)
	//   2) archiver 를 종료해 남은 capture 까지 기록한다
	// ====================================================================
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

		sig := <-sigCh
		zlog.Info().Str("signal", sig.String()).Msg("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := srv.Shutdown(ctx); err != nil {
			zlog.Error().Err(err).Msg("http shutdown")
		}
		cancel()

		if arc != nil {
			zlog.Info().Msg("stopping archiver...")
			arc.Shutdown()
		}
	}()

	zlog.Info().Str("addr", cfg.HTTPAddr).Msg("ingest mock listening")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		zlog.Fatal().Err(err).Msg("http server terminated")
	}

	// Shutdown 은 여러 번 호출해도 안전하다.
	if arc != nil {
		arc.Shutdown()
	}
	zlog.Info().Msg("shutdown complete")
}
