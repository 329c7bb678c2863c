// Package feedback turns user-authored messages into feedback requests and
// keeps the retained state of the feedback form.
package feedback

import (
	"errors"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"tickgauge/internal/core"
	"tickgauge/internal/logger"
	"tickgauge/internal/metrics"
	"tickgauge/internal/model"
	"tickgauge/internal/transport"
)

// SessionSource 는 session.Manager 가 구현한다.
type SessionSource interface {
	Credential() (string, bool)
	ElapsedMs() uint64
}

// ScreenshotFunc 는 host 가 제공하는 화면 캡처 (PNG 바이트).
type ScreenshotFunc func() ([]byte, error)

// Submitter
// ------------------------------------------------------------
// Normalize → 길이 검증 → FeedbackPayload → POST feedback.
// 이벤트 batch 와 같은 fire-and-forget 경로 (재시도 없음).
type Submitter struct {
	core       *core.Context
	log        zerolog.Logger
	dispatcher *transport.Dispatcher
	session    SessionSource
}

func NewSubmitter(c *core.Context, d *transport.Dispatcher, s SessionSource) *Submitter {
	return &Submitter{
		core:       c,
		log:        logger.Component(c.Log, "feedback"),
		dispatcher: d,
		session:    s,
	}
}

type acceptedBody struct {
	ID string `json:"id"`
}

// Submit
//
// 반환값:
//   - *model.ValidationError: 정규화 후 2글자 미만 (네트워크 미사용)
//   - model.ErrNoSession: 유효한 세션 credential 없음
//   - nil: 요청 발행됨. 결과는 onAccepted (서비스가 id 를 돌려준 경우) 로만 전달된다.
func (s *Submitter) Submit(raw string, category model.FeedbackCategory, question string, onAccepted func(id string)) error {
	msg := Normalize(raw)
	if err := ValidateMessage(msg); err != nil {
		metrics.Inc(&s.core.Metrics.FeedbackRejectedTotal)
		s.log.Debug().Err(err).Msg("feedback rejected")
		return err
	}

	token, ok := s.session.Credential()
	if !ok {
		return model.ErrNoSession
	}

	payload := model.FeedbackPayload{
		Message:   msg,
		Category:  category.Wire(),
		ElapsedMs: s.session.ElapsedMs(),
		Question:  question,
	}

	err := s.dispatcher.PostJSON(model.ResourceFeedback, token, payload, transport.Handlers{
		OnResponse: func(resp transport.Response) {
			if !resp.Success() {
				return
			}
			var body acceptedBody
			if err := json.Unmarshal(resp.Body, &body); err != nil || body.ID == "" {
				s.log.Debug().Msg("feedback accepted without id")
				return
			}
			s.log.Info().Str("feedback_id", body.ID).Msg("feedback sent")
			if onAccepted != nil {
				onAccepted(body.ID)
			}
		},
	})
	if err != nil {
		return err
	}

	metrics.Inc(&s.core.Metrics.FeedbackSentTotal)
	return nil
}

// UploadScreenshot 은 feedback/{id}/screenshot 에 PNG 를 올린다.
func (s *Submitter) UploadScreenshot(feedbackID string, png []byte) error {
	if feedbackID == "" {
		return &model.ValidationError{Field: "feedback id", Reason: "empty"}
	}
	if len(png) == 0 {
		return &model.ValidationError{Field: "screenshot", Reason: "empty image"}
	}
	token, ok := s.session.Credential()
	if !ok {
		return model.ErrNoSession
	}

	s.dispatcher.PostBinary(model.ScreenshotResource(feedbackID), token, "image/png", png, transport.Handlers{
		OnResponse: func(resp transport.Response) {
			if resp.Success() {
				s.log.Info().Str("feedback_id", feedbackID).Msg("sent feedback screenshot")
			}
		},
	})
	metrics.Inc(&s.core.Metrics.ScreenshotsSentTotal)
	return nil
}

// SubmitForm
//
// 폼 내용을 제출한다.
//   - 검증 실패: form.Error() 에 문구를 남기고 폼은 유지
//   - 요청 발행: 네트워크 결과와 무관하게 폼의 요청 상태를 해제
//
// 스크린샷 포함이 켜져 있고 shot 이 주어지면, 서비스가 feedback id 를 돌려준 뒤 업로드한다.
func (s *Submitter) SubmitForm(form *Form, shot ScreenshotFunc) error {
	withShot := form.IncludeScreenshot() && shot != nil

	var onAccepted func(string)
	if withShot {
		onAccepted = func(id string) {
			png, err := shot()
			if err != nil {
				s.log.Warn().Err(err).Msg("screenshot capture failed")
				return
			}
			if err := s.UploadScreenshot(id, png); err != nil {
				s.log.Warn().Err(err).Msg("screenshot upload skipped")
			}
		}
	}

	err := s.Submit(form.Message(), form.Category(), form.Question(), onAccepted)

	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		form.err = verr.Reason
		return err
	case err != nil:
		return err
	}

	form.Close()
	return nil
}
