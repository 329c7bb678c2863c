package transport

import (
	"net/http"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"tickgauge/internal/model"
)

// Recorder 는 Dev 모드에서 "보냈을 요청"을 받는다.
// 호출은 tick 루프에서 일어나므로 구현체는 block 하면 안 된다.
type Recorder interface {
	Record(c model.Capture)
}

// Dev
// ------------------------------------------------------------
// 네트워크 I/O 없이 요청을 기록만 하는 transport.
// live endpoint 없이도 파이프라인 전체를 결정적으로 돌려볼 수 있다.
//
// 응답은 즉시 resolve 된 Pending 으로 돌려주지만,
// continuation 은 여전히 다음 Inflight.Poll 에서 실행된다 (Live 와 같은 흐름).
type Dev struct {
	clock    clock.Clock
	recorder Recorder
}

func NewDev(clk clock.Clock, rec Recorder) *Dev {
	if clk == nil {
		clk = clock.New()
	}
	return &Dev{clock: clk, recorder: rec}
}

func (d *Dev) Post(req Request) *Pending {
	if d.recorder != nil {
		d.recorder.Record(CaptureOf(req, d.clock.Now().UnixMilli(), "dev"))
	}
	return Resolved(Result{Response: devResponse(req.Resource)})
}

// devResponse 는 서비스가 돌려줬을 최소 응답을 만든다.
func devResponse(resource string) Response {
	switch {
	case resource == model.ResourceSessionStart:
		body, _ := json.Marshal(model.StartSessionResponse{SessionToken: "dev-" + uuid.NewString()})
		return Response{Status: http.StatusOK, Body: body}
	case resource == model.ResourceFeedback:
		body, _ := json.Marshal(map[string]string{"id": "dev-" + uuid.NewString()})
		return Response{Status: http.StatusOK, Body: body}
	case strings.HasSuffix(resource, "/screenshot"):
		return Response{Status: http.StatusNoContent}
	}
	return Response{Status: http.StatusOK, Body: []byte("{}")}
}

// CaptureOf
//
// 요청을 Capture 로 변환한다. 인증 헤더는 기록하지 않는다.
// JSON 바디만 Body 에 넣고, 바이너리 / gzip 바디는 Size 만 남긴다.
func CaptureOf(req Request, tsMillis int64, source string) model.Capture {
	ct := req.Header.Get("Content-Type")
	c := model.Capture{
		Ts:          tsMillis,
		Resource:    req.Resource,
		Source:      source,
		ContentType: ct,
		Size:        len(req.Body),
	}
	if strings.HasPrefix(ct, "application/json") && req.Header.Get("Content-Encoding") == "" && json.Valid(req.Body) {
		c.Body = append(json.RawMessage(nil), req.Body...)
	}
	return c
}

// MemoryRecorder 는 기록을 메모리에 모은다. 동시 사용 가능.
type MemoryRecorder struct {
	mu       sync.Mutex
	captures []model.Capture
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (m *MemoryRecorder) Record(c model.Capture) {
	m.mu.Lock()
	m.captures = append(m.captures, c)
	m.mu.Unlock()
}

// Captures 는 기록 순서대로의 복사본.
func (m *MemoryRecorder) Captures() []model.Capture {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Capture, len(m.captures))
	copy(out, m.captures)
	return out
}

// Resources 는 기록된 요청의 resource 목록 (순서 유지).
func (m *MemoryRecorder) Resources() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.captures))
	for i, c := range m.captures {
		out[i] = c.Resource
	}
	return out
}

// MultiRecorder 는 여러 Recorder 에 같은 capture 를 넘긴다.
type MultiRecorder []Recorder

func (mr MultiRecorder) Record(c model.Capture) {
	for _, r := range mr {
		if r != nil {
			r.Record(c)
		}
	}
}
