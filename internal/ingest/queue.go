// internal/ingest/queue.go
package ingest

import (
	"fmt"
	"sync/atomic"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"tickgauge/internal/core"
	"tickgauge/internal/logger"
	"tickgauge/internal/metrics"
	"tickgauge/internal/model"
	"tickgauge/internal/setonce"
)

// Queue
// ------------------------------------------------------------
// 어느 goroutine 에서든 이벤트를 넣을 수 있는 bounded hand-off 채널.
// 파이프라인에서 유일하게 여러 goroutine 이 동시에 만지는 구조체다.
//
//   - producer: Enqueue (non-blocking, full 이면 drop)
//   - consumer: tick 루프의 Drain (검증 후 batch buffer 로 이동)
//
// producer handle 은 세션이 Active 가 되는 순간 한 번만 arm 되고,
// 세션이 끝나면 닫힌다. arm 전 / close 후의 Enqueue 는 조용히 무시된다.
type Queue struct {
	core *core.Context
	log  zerolog.Logger
	ch   chan model.QueuedEvent

	armed  setonce.Cell[struct{}]
	closed atomic.Bool
}

func NewQueue(c *core.Context) *Queue {
	size := c.Config.MaxQueue
	if size <= 0 {
		size = 1
	}
	return &Queue{
		core: c,
		log:  logger.Component(c.Log, "ingest"),
		ch:   make(chan model.QueuedEvent, size),
	}
}

// Arm 은 producer handle 을 활성화한다. 두 번째 호출은 setonce.ErrAlreadySet.
func (q *Queue) Arm() error {
	return q.armed.Set(struct{}{})
}

// Close 는 producer handle 을 닫는다. 이후 Enqueue 는 no-op.
// 채널 자체는 닫지 않는다 (동시 send 와의 race 방지).
func (q *Queue) Close() {
	q.closed.Store(true)
}

// Active 는 producer 가 실제로 이벤트를 넣을 수 있는 상태인지.
func (q *Queue) Active() bool {
	return q.armed.IsSet() && !q.closed.Load()
}

// Len 은 현재 대기 중인 이벤트 수 (테스트 / 진단용).
func (q *Queue) Len() int {
	return len(q.ch)
}

// Producer 는 동시 사용 가능한 producer handle 을 돌려준다.
func (q *Queue) Producer() *Producer {
	return &Producer{q: q}
}

// push
//
// full 이면 대기하지 않고 버린다.
// host 의 main path 지연이 telemetry 양에 좌우되면 안 된다.
func (q *Queue) push(ev model.QueuedEvent) {
	m := q.core.Metrics

	if !q.Active() {
		metrics.Inc(&m.EventsDroppedInactiveTotal)
		return
	}

	select {
	case q.ch <- ev:
		metrics.Inc(&m.EventsEnqueuedTotal)
	default:
		metrics.Inc(&m.EventsDroppedQueueFullTotal)
	}
}

// Drain
//
// tick 루프에서만 호출한다.
// 호출 시점에 대기 중이던 이벤트만큼만 꺼내므로 (len 스냅샷)
// producer 가 계속 밀어 넣어도 tick 이 끝나지 않는 일은 없다.
//
// 각 레코드는 검증(Validate)을 거쳐 accept 로 넘겨지고,
// 실패한 레코드는 로그만 남기고 버린다.
func (q *Queue) Drain(accept func(model.EventPayload)) (accepted, rejected int) {
	n := len(q.ch)
	for i := 0; i < n; i++ {
		var ev model.QueuedEvent
		select {
		case ev = <-q.ch:
		default:
			return accepted, rejected
		}

		payload, err := Validate(ev)
		if err != nil {
			rejected++
			metrics.Inc(&q.core.Metrics.EventsRejectedTotal)
			q.log.Warn().Err(err).Str("event_type", ev.EventType).Msg("discarding invalid event")
			continue
		}

		accept(payload)
		accepted++
	}

	if accepted > 0 {
		metrics.Add(&q.core.Metrics.EventsBufferedTotal, int64(accepted))
	}
	return accepted, rejected
}

// Validate
//
// QueuedEvent → EventPayload 변환 + 형식 검증.
//   - event type: "<letters>.<letters>"
//   - level: 정의된 5개 중 하나
//   - metadata: JSON 직렬화 가능해야 함 (여기서 한 번만 인코딩)
func Validate(ev model.QueuedEvent) (model.EventPayload, error) {
	if err := model.ValidateEventType(ev.EventType); err != nil {
		return model.EventPayload{}, err
	}
	if !ev.Level.Valid() {
		return model.EventPayload{}, &model.ValidationError{Field: "level", Value: string(ev.Level), Reason: "unknown level"}
	}

	var meta json.RawMessage
	if ev.Metadata != nil {
		raw, err := json.Marshal(ev.Metadata)
		if err != nil {
			return model.EventPayload{}, &model.ValidationError{Field: "metadata", Reason: fmt.Sprintf("not JSON encodable: %v", err)}
		}
		meta = raw
	}

	return model.EventPayload{
		EventType:      ev.EventType,
		Metadata:       meta,
		Level:          ev.Level,
		ElapsedMs:      ev.ElapsedMs,
		IdempotencyKey: ev.IdempotencyKey,
		Context:        ev.Context,
	}, nil
}
