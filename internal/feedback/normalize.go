package feedback

import (
	"strings"
	"unicode/utf8"

	"tickgauge/internal/model"
)

// MinMessageLen 은 정규화 후 최소 글자 수 (rune 기준).
const MinMessageLen = 2

// Normalize
//
//   - \r\n, \r → \n
//   - 연속된 공백(' ') → 한 칸
//   - 앞뒤 whitespace 제거
func Normalize(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return strings.TrimSpace(s)
}

// ValidateMessage 는 정규화된 메시지를 검사한다. 실패는 사용자에게 그대로 보여줄 수 있는 문구.
func ValidateMessage(msg string) error {
	if utf8.RuneCountInString(msg) < MinMessageLen {
		return &model.ValidationError{Field: "feedback", Reason: "Feedback cannot be less than 2 characters"}
	}
	return nil
}
