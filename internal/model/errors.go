package model

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------
// 에러 분류
//
// 모든 에러는 발생한 경계에서 처리된다.
// host 로는 lifecycle notification 또는 public API 반환값으로만 노출되며,
// 어떤 경우에도 host 프로세스를 중단시키지 않는다.
// ---------------------------------------------------------------

var (
	// ErrMissingPublicKey: public key 가 비어 있음 → 파이프라인 전체 비활성화
	ErrMissingPublicKey = errors.New("tickgauge: public key is not set")

	// ErrDuplicateSession: 이미 Starting/Active 인 상태에서 재시작 요청
	ErrDuplicateSession = errors.New("tickgauge: session already started")

	// ErrNoSession: Active 세션 (유효한 credential) 이 없음
	ErrNoSession = errors.New("tickgauge: no active session")

	// ErrDisabled: Disabled 모드이거나 설정 오류로 파이프라인이 꺼져 있음
	ErrDisabled = errors.New("tickgauge: ingestion disabled")
)

// ValidationError 는 로컬에서 거절된 입력이다. 네트워크에는 절대 도달하지 않는다.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// TransportError 는 네트워크 실패 / timeout 이다. 로그만 남기고 payload 는 버린다.
type TransportError struct {
	Resource string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Resource, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError 는 성공/에러 스키마 어느 쪽으로도 해석되지 않은 응답이다.
// well-formed 에러 바디(ErrorBody)와 구분해서 UnexpectedFailure 로 보고한다.
type DecodeError struct {
	Resource string
	Status   int
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s response (status %d): %v", e.Resource, e.Status, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
