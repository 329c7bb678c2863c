package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// 응답 바디는 세션 토큰 / 에러 바디 정도만 읽으면 된다.
const maxResponseBody = 1 << 20

// HTTP
// ------------------------------------------------------------
// net/http 기반 Live transport.
// Post 는 goroutine 을 하나 띄우고 즉시 반환한다.
// 결과는 Pending 으로 전달되고 tick 루프가 다음 프레임에 가져간다.
//
// in-flight 요청은 취소하지 않는다. 종료 시에도 완료를 기다리지 않는다.
type HTTP struct {
	client         *http.Client
	defaultTimeout time.Duration
}

func NewHTTP(client *http.Client, defaultTimeout time.Duration) *HTTP {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTP{client: client, defaultTimeout: defaultTimeout}
}

func (h *HTTP) Post(req Request) *Pending {
	p := NewPending()
	go func() {
		p.Resolve(h.do(req))
	}()
	return p
}

func (h *HTTP) do(req Request) Result {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = h.defaultTimeout
	}

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return Result{Err: err}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hr.Header.Add(k, v)
		}
	}

	resp, err := h.client.Do(hr)
	if err != nil {
		return Result{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return Result{Err: err}
	}

	return Result{Response: Response{Status: resp.StatusCode, Body: body}}
}
