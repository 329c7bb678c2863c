package session

import "time"

// State
//
//	Uninitialized → Starting → Active → Ending → Ended
//
// 시작 실패 시 Starting → Uninitialized 로 돌아간다 (start instant 는 설정되지 않았으므로 재시도 가능).
type State int

const (
	StateUninitialized State = iota
	StateStarting
	StateActive
	StateEnding
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateEnding:
		return "ending"
	case StateEnded:
		return "ended"
	}
	return "unknown"
}

// Outcome 은 host 에게 보고되는 세션 시작 결과.
type Outcome int

const (
	Success Outcome = iota
	Skipped
	Failure
	UnexpectedFailure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Skipped:
		return "skipped"
	case Failure:
		return "failure"
	case UnexpectedFailure:
		return "unexpected_failure"
	}
	return "unknown"
}

// Notification 은 lifecycle 알림. Success 외에는 Reason 과 (있다면) 원인 에러를 담는다.
type Notification struct {
	Outcome Outcome
	Reason  string
	Err     error
}

// 세션 종료 사유 (sessions/end 의 reason)
const (
	ReasonEnded   = "ended"
	ReasonExpired = "expired"
)

// Credential 은 sessions/start 가 돌려준 세션 토큰과 만료 시각.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// Expired: ExpiresAt 이 zero 면 만료 없음.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}
