package model

import "fmt"

// ValidateEventType
//
// 이벤트 타입은 "<letters>.<letters>" 형태여야 한다.
//   - 구분자 '.' 는 정확히 1개
//   - 양쪽 모두 1글자 이상, ASCII 영문자만 허용
//
// 예: "ui.click", "gameplay.start" → OK
//
//	"ui", "ui.click.left", "ui.cl1ck", ".click" → 거절
func ValidateEventType(s string) error {
	dot := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '.':
			if dot != -1 {
				return &ValidationError{Field: "event_type", Value: s, Reason: "more than one '.' separator"}
			}
			dot = i
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		default:
			return &ValidationError{Field: "event_type", Value: s, Reason: fmt.Sprintf("invalid character %q", c)}
		}
	}

	if dot == -1 {
		return &ValidationError{Field: "event_type", Value: s, Reason: "missing '.' separator"}
	}
	if dot == 0 || dot == len(s)-1 {
		return &ValidationError{Field: "event_type", Value: s, Reason: "empty namespace or event name"}
	}
	return nil
}

// MustEventType 는 패키지 레벨 리터럴 검증용이다.
// 잘못된 값이면 프로그램 초기화 시점에 바로 panic 한다 (regexp.MustCompile 와 같은 용도).
//
//	var evClick = model.MustEventType("ui.click")
func MustEventType(s string) string {
	if err := ValidateEventType(s); err != nil {
		panic(err)
	}
	return s
}
