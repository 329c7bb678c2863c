package metrics

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metrics 는 SDK 파이프라인 / capture archive / stand-in ingest 서버 상태 카운터 모음이다.
// 모든 필드는 atomic 으로만 접근한다. producer goroutine 과 tick 루프가 동시에 갱신한다.
type Metrics struct {
	// ======================
	// ingestion queue
	// ======================

	// EventsEnqueuedTotal
	// - queue 에 정상적으로 들어간 이벤트 수.
	EventsEnqueuedTotal int64

	// EventsDroppedQueueFullTotal
	// - queue 가 가득 차서 버린 이벤트 수. producer 에게는 보이지 않는다 (silent drop).
	// - 이 값이 계속 증가하면 MaxQueue 가 작거나 tick 빈도가 너무 낮다는 신호.
	EventsDroppedQueueFullTotal int64

	// EventsDroppedInactiveTotal
	// - producer handle 이 아직 arm 되지 않았거나(세션 전) 이미 닫힌 상태(세션 후)에서 들어온 호출 수.
	EventsDroppedInactiveTotal int64

	// EventsRejectedTotal
	// - 형식 검증(enqueue 시점 + drain 시점)에서 거절된 이벤트 수.
	EventsRejectedTotal int64

	// ======================
	// batch / flush
	// ======================

	// EventsBufferedTotal
	// - drain 단계에서 검증을 통과해 batch buffer 로 옮겨진 이벤트 수.
	EventsBufferedTotal int64

	// BatchesSentTotal / EventsSentTotal
	// - events/batch 요청 발행 수와 그 안에 담긴 이벤트 수 (발행 기준, 전달 보장 아님).
	BatchesSentTotal int64
	EventsSentTotal  int64

	// HeartbeatsSentTotal
	// - buffer 가 비어 있을 때 flush 대신 보낸 heartbeat 수.
	HeartbeatsSentTotal int64

	// RequestErrorsTotal
	// - transport 레벨 실패 (네트워크 오류, timeout). payload 는 재시도 없이 버려진다.
	RequestErrorsTotal int64

	// RequestRejectedTotal
	// - 응답은 받았지만 2xx 가 아닌 요청 수.
	RequestRejectedTotal int64

	// ======================
	// session / feedback
	// ======================

	SessionsStartedTotal      int64
	SessionStartFailuresTotal int64
	SessionsEndedTotal        int64
	FeedbackSentTotal         int64
	FeedbackRejectedTotal     int64 // 길이 검증 실패 (네트워크 미사용)
	ScreenshotsSentTotal      int64

	// ======================
	// capture archive
	// ======================

	// CapturesRecordedTotal / CapturesDroppedTotal
	// - archive 채널에 들어간 / 채널 full 로 버려진 capture 수.
	CapturesRecordedTotal int64
	CapturesDroppedTotal  int64

	// ArchiveObjectsStoredTotal
	// - sink 에 저장된 gzip JSONL 객체 수 (S3 또는 spool 디렉토리).
	ArchiveObjectsStoredTotal int64

	// ArchivePutErrorsTotal
	// - sink 저장 실패 횟수.
	ArchivePutErrorsTotal int64

	// SpoolFilesCurrent / SpoolSizeBytes
	// - 현재 spool 디렉토리의 data 파일 수와 전체 크기 (gauge).
	SpoolFilesCurrent int64
	SpoolSizeBytes    int64

	// SpoolFilesExpiredTotal
	// - TTL 또는 용량 제한으로 삭제된 spool 파일 수.
	SpoolFilesExpiredTotal int64

	// SpoolCapturesDroppedTotal
	// - 용량 부족으로 spool 에 쓰지 못하고 버린 capture 수.
	SpoolCapturesDroppedTotal int64

	// SpoolReuploadedTotal
	// - spool 에서 S3 로 재업로드에 성공한 파일 수.
	SpoolReuploadedTotal int64

	// ======================
	// stand-in ingest 서버
	// ======================

	HTTPRequestsTotal                     int64
	HTTPRequestsRejectedBodyTooLargeTotal int64
	HTTPRequestsUnauthorizedTotal         int64
	HTTPRequestsBadRequestTotal           int64
	IngestSessionsTotal                   int64
	IngestEventsAcceptedTotal             int64
	IngestFeedbackTotal                   int64
}

func New() *Metrics {
	return &Metrics{}
}

// Add 는 atomic 증가 단축 함수.
func Add(p *int64, n int64) {
	atomic.AddInt64(p, n)
}

// Inc 는 Add(p, 1).
func Inc(p *int64) {
	atomic.AddInt64(p, 1)
}

// Load 는 atomic 읽기 단축 함수. 테스트에서도 사용한다.
func Load(p *int64) int64 {
	return atomic.LoadInt64(p)
}

func (m *Metrics) String() string {
	var sb strings.Builder
	sb.Grow(1024)

	line := func(name string, p *int64) {
		fmt.Fprintf(&sb, "%s=%d\n", name, atomic.LoadInt64(p))
	}

	line("events_enqueued_total", &m.EventsEnqueuedTotal)
	line("events_dropped_queue_full_total", &m.EventsDroppedQueueFullTotal)
	line("events_dropped_inactive_total", &m.EventsDroppedInactiveTotal)
	line("events_rejected_total", &m.EventsRejectedTotal)
	line("events_buffered_total", &m.EventsBufferedTotal)
	line("batches_sent_total", &m.BatchesSentTotal)
	line("events_sent_total", &m.EventsSentTotal)
	line("heartbeats_sent_total", &m.HeartbeatsSentTotal)
	line("request_errors_total", &m.RequestErrorsTotal)
	line("request_rejected_total", &m.RequestRejectedTotal)

	line("sessions_started_total", &m.SessionsStartedTotal)
	line("session_start_failures_total", &m.SessionStartFailuresTotal)
	line("sessions_ended_total", &m.SessionsEndedTotal)
	line("feedback_sent_total", &m.FeedbackSentTotal)
	line("feedback_rejected_total", &m.FeedbackRejectedTotal)
	line("screenshots_sent_total", &m.ScreenshotsSentTotal)

	line("captures_recorded_total", &m.CapturesRecordedTotal)
	line("captures_dropped_total", &m.CapturesDroppedTotal)
	line("archive_objects_stored_total", &m.ArchiveObjectsStoredTotal)
	line("archive_put_errors_total", &m.ArchivePutErrorsTotal)
	line("spool_files_current", &m.SpoolFilesCurrent)
	line("spool_size_bytes", &m.SpoolSizeBytes)
	line("spool_files_expired_total", &m.SpoolFilesExpiredTotal)
	line("spool_captures_dropped_total", &m.SpoolCapturesDroppedTotal)
	line("spool_reuploaded_total", &m.SpoolReuploadedTotal)

	line("http_requests_total", &m.HTTPRequestsTotal)
	line("http_requests_rejected_body_too_large_total", &m.HTTPRequestsRejectedBodyTooLargeTotal)
	line("http_requests_unauthorized_total", &m.HTTPRequestsUnauthorizedTotal)
	line("http_requests_bad_request_total", &m.HTTPRequestsBadRequestTotal)
	line("ingest_sessions_total", &m.IngestSessionsTotal)
	line("ingest_events_accepted_total", &m.IngestEventsAcceptedTotal)
	line("ingest_feedback_total", &m.IngestFeedbackTotal)

	return sb.String()
}
