package ingest

import (
	"time"

	"tickgauge/internal/metrics"
	"tickgauge/internal/model"
)

// Producer 는 Queue 에 대한 동시 사용 가능한 handle 이다.
// nil Producer 에 대한 호출도 안전하다 (no-op).
type Producer struct {
	q *Queue
}

// Option 은 QueuedEvent 의 선택 필드를 채운다.
type Option func(*model.QueuedEvent)

// WithIdempotencyKey 는 서비스 측 중복 제거용 key 를 붙인다.
func WithIdempotencyKey(key string) Option {
	return func(ev *model.QueuedEvent) { ev.IdempotencyKey = key }
}

// WithElapsed 는 세션 시작 기준 경과 시간을 직접 지정한다.
func WithElapsed(d time.Duration) Option {
	return func(ev *model.QueuedEvent) {
		if d < 0 {
			d = 0
		}
		ev.ElapsedMs = uint64(d / time.Millisecond)
	}
}

// Enqueue
//
// 어느 goroutine 에서나 호출 가능하며 절대 block 하지 않는다.
//   - handle 미초기화 (세션 전 / 비활성화): 조용히 무시
//   - event type 형식 오류: 거절 (카운터만 증가)
//   - queue full: drop
//
// 반환값이 없는 이유: producer 에게 backpressure 나 큐 깊이를 노출하지 않는다.
func (p *Producer) Enqueue(level model.Level, eventType string, metadata any, origin *model.EventContext, opts ...Option) {
	if p == nil || p.q == nil {
		return
	}
	q := p.q

	if !q.Active() {
		metrics.Inc(&q.core.Metrics.EventsDroppedInactiveTotal)
		return
	}

	if err := model.ValidateEventType(eventType); err != nil {
		metrics.Inc(&q.core.Metrics.EventsRejectedTotal)
		q.log.Debug().Err(err).Msg("rejected event at enqueue")
		return
	}

	ev := model.QueuedEvent{
		EventType: eventType,
		Metadata:  metadata,
		Level:     level,
		ElapsedMs: q.core.ElapsedMs(),
		Context:   origin,
	}
	for _, opt := range opts {
		opt(&ev)
	}

	q.push(ev)
}
