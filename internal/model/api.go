package model

import (
	"bytes"
	"errors"

	json "github.com/goccy/go-json"
)

// ------------------------------------------------------------
// ingest 서비스 wire 타입 (HTTPS JSON, camelCase key)
//
//	POST {api_base}/v1/sessions/start
//	POST {api_base}/v1/sessions/heartbeat
//	POST {api_base}/v1/sessions/end
//	POST {api_base}/v1/events/batch
//	POST {api_base}/v1/feedback
//	POST {api_base}/v1/feedback/{id}/screenshot
// ------------------------------------------------------------

const (
	ResourceSessionStart     = "sessions/start"
	ResourceSessionHeartbeat = "sessions/heartbeat"
	ResourceSessionEnd       = "sessions/end"
	ResourceEventsBatch      = "events/batch"
	ResourceFeedback         = "feedback"
)

// ScreenshotResource 는 feedback/{id}/screenshot 경로를 만든다.
func ScreenshotResource(feedbackID string) string {
	return ResourceFeedback + "/" + feedbackID + "/screenshot"
}

// StartSessionPayload
// ------------------------------------------------------------
// 세션 시작 요청. 하드웨어 정보는 원시값이 아니라 bucket 된 값만 보낸다.
type StartSessionPayload struct {
	ClientVersion string `json:"clientVersion"`
	PlayerID      string `json:"playerId,omitempty"`
	Platform      string `json:"platform,omitempty"`
	OS            string `json:"os,omitempty"`
	CPUFamily     string `json:"cpuFamily,omitempty"`
	Cores         string `json:"cores,omitempty"`
	Memory        string `json:"memory,omitempty"`
	Locale        string `json:"locale,omitempty"`
}

type StartSessionResponse struct {
	SessionToken string `json:"sessionToken"`
}

// ErrorBody 는 서비스가 실패 시 돌려주는 바디.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorBody) Error() string {
	return e.Code + ": " + e.Message
}

type EndSessionPayload struct {
	Reason string `json:"reason"`
}

// FeedbackPayload 는 제출 시점에 만들어져 한 번 전송되고 저장되지 않는다.
type FeedbackPayload struct {
	Message   string `json:"message"`
	Category  string `json:"category"`
	ElapsedMs uint64 `json:"elapsedMs"`
	Question  string `json:"question,omitempty"`
}

// StartSessionResult
// ------------------------------------------------------------
// sessions/start 응답의 tagged 결과.
// 서비스 응답에는 태그가 없으므로 (필드 존재 여부로 구분되는 union)
// 성공 스키마 → 에러 스키마 순서로 시도하고, 둘 다 아니면 DecodeError.
type StartSessionResult struct {
	OK  *StartSessionResponse
	Err *ErrorBody
}

var errUnknownShape = errors.New("body matches neither success nor error schema")

// DecodeStartSession 은 응답 바디를 StartSessionResult 로 해석한다.
// 문서화된 필드 외에는 추측하지 않는다.
func DecodeStartSession(status int, body []byte) (StartSessionResult, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return StartSessionResult{}, &DecodeError{Resource: ResourceSessionStart, Status: status, Err: errors.New("empty body")}
	}

	// 1) 성공 스키마
	var ok struct {
		SessionToken *string `json:"sessionToken"`
	}
	if err := json.Unmarshal(body, &ok); err != nil {
		return StartSessionResult{}, &DecodeError{Resource: ResourceSessionStart, Status: status, Err: err}
	}
	if ok.SessionToken != nil && *ok.SessionToken != "" {
		return StartSessionResult{OK: &StartSessionResponse{SessionToken: *ok.SessionToken}}, nil
	}

	// 2) 에러 스키마 (code, message 둘 다 있어야 함)
	var eb struct {
		Code    *string `json:"code"`
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(body, &eb); err == nil && eb.Code != nil && eb.Message != nil {
		return StartSessionResult{Err: &ErrorBody{Code: *eb.Code, Message: *eb.Message}}, nil
	}

	return StartSessionResult{}, &DecodeError{Resource: ResourceSessionStart, Status: status, Err: errUnknownShape}
}
