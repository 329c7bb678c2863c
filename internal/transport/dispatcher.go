package transport

import (
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"tickgauge/internal/core"
	"tickgauge/internal/logger"
	"tickgauge/internal/metrics"
	"tickgauge/internal/model"
	"tickgauge/internal/pool"
)

// Dispatcher
// ------------------------------------------------------------
// 요청 생성 (URL, 헤더, JSON 인코딩, 선택적 gzip) → Transport.Post → Inflight 등록.
// tick 루프 전용. Poll 에서 완료된 요청의 continuation 을 실행한다.
//
// 실패 정책:
//   - transport 에러: 로그 + 카운터, 재시도 / requeue 없음
//   - 2xx 가 아닌 응답: 카운터 증가 후 handler 에 그대로 전달
type Dispatcher struct {
	core      *core.Context
	log       zerolog.Logger
	transport Transport
	inflight  Inflight

	// events/batch 바디를 gzip 으로 보낼지
	compressBatches bool
}

func NewDispatcher(c *core.Context, t Transport, compressBatches bool) *Dispatcher {
	return &Dispatcher{
		core:            c,
		log:             logger.Component(c.Log, "transport"),
		transport:       t,
		compressBatches: compressBatches,
	}
}

// PostJSON 은 payload 를 JSON 으로 인코딩해 보낸다.
// 인코딩 실패만 동기적으로 반환되고, 나머지 결과는 h 로 전달된다.
func (d *Dispatcher) PostJSON(resource, key string, payload any, h Handlers) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", resource, err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set(HeaderKey, key)

	if d.compressBatches && resource == model.ResourceEventsBatch {
		gz, err := pool.Gzip(body)
		if err != nil {
			return fmt.Errorf("compress %s payload: %w", resource, err)
		}
		body = gz
		header.Set("Content-Encoding", "gzip")
	}

	d.post(Request{
		Resource: resource,
		URL:      d.core.Config.URL(resource),
		Header:   header,
		Body:     body,
		Timeout:  d.core.Config.RequestTimeout,
	}, h)
	return nil
}

// PostBinary 는 바이트 바디를 그대로 보낸다 (스크린샷 업로드).
func (d *Dispatcher) PostBinary(resource, key, contentType string, body []byte, h Handlers) {
	header := http.Header{}
	header.Set("Content-Type", contentType)
	header.Set(HeaderKey, key)

	d.post(Request{
		Resource: resource,
		URL:      d.core.Config.URL(resource),
		Header:   header,
		Body:     body,
		Timeout:  d.core.Config.RequestTimeout,
	}, h)
}

func (d *Dispatcher) post(req Request, h Handlers) {
	m := d.core.Metrics
	resource := req.Resource

	wrapped := Handlers{
		OnResponse: func(resp Response) {
			if !resp.Success() {
				metrics.Inc(&m.RequestRejectedTotal)
				d.log.Warn().Str("resource", resource).Int("status", resp.Status).Msg("request rejected by ingest service")
			}
			if h.OnResponse != nil {
				h.OnResponse(resp)
			}
		},
		OnError: func(err error) {
			metrics.Inc(&m.RequestErrorsTotal)
			terr := &model.TransportError{Resource: resource, Err: err}
			d.log.Error().Err(err).Str("resource", resource).Msg("request failed")
			if h.OnError != nil {
				h.OnError(terr)
			}
		},
	}

	d.inflight.Track(d.transport.Post(req), wrapped)
}

// Poll 은 완료된 요청의 continuation 을 실행한다. 매 tick 마다 호출.
func (d *Dispatcher) Poll() int {
	return d.inflight.Poll()
}

// Inflight 는 아직 결과가 오지 않은 요청 수.
func (d *Dispatcher) Inflight() int {
	return d.inflight.Len()
}
