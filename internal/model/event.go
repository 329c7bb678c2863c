// internal/model/event.go
package model

import (
	json "github.com/goccy/go-json"
)

// Level
// ------------------------------------------------------------
// 이벤트 중요도. 전송 시 소문자 문자열 그대로 들어간다.
type Level string

const (
	LevelTrace Level = "trace"
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Valid 는 정의된 5개 레벨 중 하나인지 확인한다.
func (l Level) Valid() bool {
	switch l {
	case LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError:
		return true
	}
	return false
}

// EventContext
// ------------------------------------------------------------
// 이벤트를 발생시킨 호출 위치 (파일/라인/패키지).
// Trace/Debug/Info/Warn/Error 헬퍼가 runtime.Caller 로 채운다.
type EventContext struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Module string `json:"module,omitempty"`
}

// QueuedEvent
// ------------------------------------------------------------
// producer 가 ingestion queue 에 넣는 "raw" 레코드.
// 호출 지점에서 한 번 만들어진 뒤 변경되지 않으며,
// tick 루프의 drain 단계에서 검증을 거쳐 EventPayload 로 변환된다.
//
// Metadata 는 아직 직렬화되지 않은 임의의 값이다.
// 직렬화 가능 여부는 drain 단계에서 판단한다 (producer 경로에서 인코딩 비용 제거).
type QueuedEvent struct {
	EventType      string
	Metadata       any
	Level          Level
	ElapsedMs      uint64
	IdempotencyKey string
	Context        *EventContext
}

// EventPayload 는 events/batch 요청에 들어가는 이벤트 한 건.
type EventPayload struct {
	EventType      string          `json:"eventType"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	Level          Level           `json:"level"`
	ElapsedMs      uint64          `json:"elapsedMs"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
	Context        *EventContext   `json:"context,omitempty"`
}

// BatchEventPayload
// ------------------------------------------------------------
// flush 1회 = 요청 1건. Events 순서는 buffer 에 들어간 순서(FIFO) 그대로다.
type BatchEventPayload struct {
	Events []EventPayload `json:"events"`
}
