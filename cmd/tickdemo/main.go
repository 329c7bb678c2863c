package main

import (
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	zlog "github.com/rs/zerolog/log"

	"tickgauge/internal/config"
	"tickgauge/internal/logger"
	"tickgauge/pkg/tickgauge"
)

var (
	evLevelStart = tickgauge.MustEventType("level.start")
	evLevelClear = tickgauge.MustEventType("level.clear")
	evFrameSpike = tickgauge.MustEventType("perf.spike")
)

func main() {

	// ====================================================================
	// Logger / Config
	// ====================================================================
	//
	// - TICKGAUGE_MODE=dev 이면 네트워크 없이 요청을 기록만 한다.
	// - TICKGAUGE_API_BASE=http://localhost:8787 로 cmd/ingest-mock 에 붙일 수 있다.
	// - DEMO_SECONDS: 실행 시간 (기본 5초), DEMO_FPS: tick 빈도 (기본 60)
	// ====================================================================
	logger.Init(config.Logging{
		ServiceName: "tickdemo",
		InstanceID:  "local",
		LogLevel:    envOr("LOG_LEVEL", "info"),
		LogPretty:   true,
	})

	cfg := tickgauge.ConfigFromEnv("tickdemo", "0.1.0")
	cfg.LogLevel = envOr("LOG_LEVEL", "info")
	cfg.FlushInterval = 2 * time.Second
	if dir := os.Getenv("ARCHIVE_DIR"); dir != "" {
		cfg.Archive = tickgauge.ArchiveConfig{Dir: dir}
	}

	client := tickgauge.New(cfg, tickgauge.WithLogger(zlog.Logger))
	defer client.Close()

	client.OnSessionInit(func(n tickgauge.Notification) {
		ev := zlog.Info()
		if n.Outcome != tickgauge.Success {
			ev = zlog.Warn().Err(n.Err).Str("reason", n.Reason)
		}
		ev.Str("outcome", n.Outcome.String()).Msg("session init")
	})

	if err := client.StartSession(tickgauge.StartOptions{Platform: "desktop", Locale: os.Getenv("LANG")}); err != nil {
		zlog.Warn().Err(err).Msg("session not started")
	}

	// ====================================================================
	// 백그라운드 producer (로딩 스레드 흉내)
	// ====================================================================
	//
	// Producer handle 은 goroutine 간에 공유해도 안전하다.
	// 세션이 Active 가 되기 전 호출은 조용히 무시된다.
	// ====================================================================
	producer := client.Producer()
	stopBG := make(chan struct{})
	go func() {
		t := time.NewTicker(300 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-stopBG:
				return
			case <-t.C:
				if ms := rand.Intn(80); ms > 50 {
					producer.Enqueue(tickgauge.LevelWarn, evFrameSpike, map[string]int{"frame_ms": ms}, nil)
				}
			}
		}
	}()

	// ====================================================================
	// Main loop
	// ====================================================================
	fps := envInt("DEMO_FPS", 60)
	runFor := time.Duration(envInt("DEMO_SECONDS", 5)) * time.Second

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	frame := time.NewTicker(time.Second / time.Duration(fps))
	defer frame.Stop()
	deadline := time.After(runFor)

	level := 0
	asked := false

loop:
	for {
		select {
		case <-sigCh:
			break loop
		case <-deadline:
			break loop
		case <-frame.C:
		}

		if client.State() == tickgauge.StateActive {
			if rand.Intn(fps) == 0 {
				level++
				client.Info(evLevelStart, map[string]int{"level": level})
				client.Info(evLevelClear, map[string]any{"level": level, "deaths": rand.Intn(4)})
			}
			if !asked && client.ElapsedMs() > uint64(runFor.Milliseconds()/2) {
				asked = true
				client.RequestFeedback("How did that level feel?", tickgauge.CategoryGameplay)
				client.Form().SetMessage("Level  felt\r\n a bit long ")
				if err := client.SubmitForm(nil); err != nil {
					zlog.Warn().Err(err).Msg("feedback not sent")
				}
			}
		}

		client.Tick()
	}

	close(stopBG)
	client.Exit()

	// 종료 요청의 완료는 기다리지 않는다. 결과 확인용으로 몇 프레임만 더 돌린다.
	for i := 0; i < 10 && client.Inflight() > 0; i++ {
		time.Sleep(20 * time.Millisecond)
		client.Tick()
	}

	zlog.Info().
		Str("player_id", client.PlayerID()).
		Int("captured", len(client.Captures())).
		Msg("demo finished")
	os.Stdout.WriteString(client.MetricsText())
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return def
}
