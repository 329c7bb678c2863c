// Package server is a stand-in for the remote ingest service. It implements
// every endpoint the SDK calls so Live mode can run against a local process.
package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"

	"tickgauge/internal/config"
	"tickgauge/internal/logger"
	"tickgauge/internal/metrics"
	"tickgauge/internal/model"
	"tickgauge/internal/pool"
)

// HeaderKey 는 SDK 가 public key / 세션 토큰을 싣는 헤더.
const HeaderKey = "X-Tickgauge-Key"

// end 이후에도 events/batch 를 받아주는 시간.
const finalFlushGrace = 30 * time.Second

// Recorder 는 수신한 요청을 보관한다 (worker.Archiver).
type Recorder interface {
	Record(c model.Capture)
}

type Handler struct {
	cfg      config.Server
	metrics  *metrics.Metrics
	log      zerolog.Logger
	clock    clock.Clock
	recorder Recorder
	sessions *sessionStore
}

func NewHandler(cfg config.Server, m *metrics.Metrics, rec Recorder, clk clock.Clock, log zerolog.Logger) *Handler {
	if clk == nil {
		clk = clock.New()
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 1 << 20
	}
	return &Handler{
		cfg:      cfg,
		metrics:  m,
		log:      logger.Component(log, "ingest"),
		clock:    clk,
		recorder: rec,
		sessions: newSessionStore(),
	}
}

// Routes
//
//	POST /v1/sessions/start
//	POST /v1/sessions/heartbeat
//	POST /v1/sessions/end
//	POST /v1/events/batch
//	POST /v1/feedback
//	POST /v1/feedback/{id}/screenshot
//	GET  /metrics
//	GET  /health
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/sessions/start", h.HandleStart)
	mux.HandleFunc("POST /v1/sessions/heartbeat", h.HandleHeartbeat)
	mux.HandleFunc("POST /v1/sessions/end", h.HandleEnd)
	mux.HandleFunc("POST /v1/events/batch", h.HandleBatch)
	mux.HandleFunc("POST /v1/feedback", h.HandleFeedback)
	mux.HandleFunc("POST /v1/feedback/{id}/screenshot", h.HandleScreenshot)
	mux.HandleFunc("GET /metrics", h.HandleMetrics)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return h.count(mux)
}

func (h *Handler) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.Inc(&h.metrics.HTTPRequestsTotal)
		next.ServeHTTP(w, r)
	})
}

// HandleStart 는 public key 를 확인하고 세션 토큰을 발급한다.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	if h.cfg.PublicKey != "" && r.Header.Get(HeaderKey) != h.cfg.PublicKey {
		metrics.Inc(&h.metrics.HTTPRequestsUnauthorizedTotal)
		writeError(w, http.StatusUnauthorized, "invalid_key", "public key is not valid")
		return
	}

	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	var p model.StartSessionPayload
	if err := json.Unmarshal(body, &p); err != nil || strings.TrimSpace(p.ClientVersion) == "" {
		h.badRequest(w, "clientVersion is required")
		return
	}

	token := h.sessions.issue(p.PlayerID, h.clock.Now())
	metrics.Inc(&h.metrics.IngestSessionsTotal)
	h.log.Info().
		Str("ip", clientIP(r)).
		Str("player_id", p.PlayerID).
		Str("client_version", p.ClientVersion).
		Str("os", p.OS).
		Str("cpu_family", p.CPUFamily).
		Str("cores", p.Cores).
		Str("memory", p.Memory).
		Msg("session started")

	h.record(r, model.ResourceSessionStart, body)
	writeJSON(w, http.StatusOK, model.StartSessionResponse{SessionToken: token})
}

func (h *Handler) HandleHeartbeat(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	if _, ok := h.readBody(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	var p model.EndSessionPayload
	if err := json.Unmarshal(body, &p); err != nil {
		h.badRequest(w, "invalid end payload")
		return
	}

	h.sessions.end(r.Header.Get(HeaderKey), h.clock.Now())
	h.log.Info().Str("ip", clientIP(r)).Str("reason", p.Reason).Msg("session ended")
	h.record(r, model.ResourceSessionEnd, body)
	writeJSON(w, http.StatusOK, struct{}{})
}

type batchResult struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// HandleBatch 는 이벤트를 하나씩 검증하고 수락 / 거절 수를 돌려준다.
// end 된 세션도 finalFlushGrace 동안은 받는다.
func (h *Handler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.draining(r.Header.Get(HeaderKey), h.clock.Now(), finalFlushGrace) {
		h.unauthorized(w)
		return
	}
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	var p model.BatchEventPayload
	if err := json.Unmarshal(body, &p); err != nil {
		h.badRequest(w, "invalid batch payload")
		return
	}

	var res batchResult
	for _, ev := range p.Events {
		if model.ValidateEventType(ev.EventType) != nil || !ev.Level.Valid() {
			res.Rejected++
			continue
		}
		res.Accepted++
	}

	metrics.Add(&h.metrics.IngestEventsAcceptedTotal, int64(res.Accepted))
	h.log.Debug().Int("accepted", res.Accepted).Int("rejected", res.Rejected).Msg("batch received")
	h.record(r, model.ResourceEventsBatch, body)
	writeJSON(w, http.StatusOK, res)
}

type feedbackResult struct {
	ID string `json:"id"`
}

func (h *Handler) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	var p model.FeedbackPayload
	if err := json.Unmarshal(body, &p); err != nil || strings.TrimSpace(p.Message) == "" {
		h.badRequest(w, "message is required")
		return
	}

	id, ok := h.sessions.addFeedback(r.Header.Get(HeaderKey))
	if !ok {
		h.unauthorized(w)
		return
	}

	metrics.Inc(&h.metrics.IngestFeedbackTotal)
	h.log.Info().Str("feedback_id", id).Str("category", p.Category).Msg("feedback received")
	h.record(r, model.ResourceFeedback, body)
	writeJSON(w, http.StatusOK, feedbackResult{ID: id})
}

func (h *Handler) HandleScreenshot(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	id := r.PathValue("id")
	if !h.sessions.hasFeedback(r.Header.Get(HeaderKey), id) {
		writeError(w, http.StatusNotFound, "not_found", "unknown feedback id")
		return
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "image/") {
		h.badRequest(w, "content type must be an image")
		return
	}

	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	if len(body) == 0 {
		h.badRequest(w, "empty image")
		return
	}

	h.record(r, model.ScreenshotResource(id), body)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMetrics 는 카운터를 text 로 출력한다.
func (h *Handler) HandleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, h.metrics.String())
}

// authorize 는 세션 토큰이 발급되었고 끝나지 않았는지 확인한다. 실패 시 401 을 쓴다.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) bool {
	if h.sessions.live(r.Header.Get(HeaderKey)) {
		return true
	}
	h.unauthorized(w)
	return false
}

func (h *Handler) unauthorized(w http.ResponseWriter) {
	metrics.Inc(&h.metrics.HTTPRequestsUnauthorizedTotal)
	writeError(w, http.StatusUnauthorized, "invalid_session", "session token is not valid")
}

func (h *Handler) badRequest(w http.ResponseWriter, msg string) {
	metrics.Inc(&h.metrics.HTTPRequestsBadRequestTotal)
	writeError(w, http.StatusBadRequest, "bad_request", msg)
}

// readBody
//
//  1. MaxBytesReader 로 크기 제한
//  2. Content-Encoding: gzip 이면 해제 (해제 후 크기도 같은 제한)
//  3. BodyPool 버퍼로 읽고 호출자 소유의 복사본을 돌려준다
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	max := h.cfg.MaxBodySize
	r.Body = http.MaxBytesReader(w, r.Body, max)
	defer r.Body.Close()

	var src io.Reader = r.Body
	if strings.EqualFold(r.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			h.badRequest(w, "invalid gzip body")
			return nil, false
		}
		defer zr.Close()
		src = io.LimitReader(zr, max+1)
	}

	buf := pool.BodyPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer pool.PutBody(buf, max*2)

	if _, err := io.Copy(buf, src); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.tooLarge(w)
			return nil, false
		}
		h.badRequest(w, "unreadable body")
		return nil, false
	}
	if int64(buf.Len()) > max {
		h.tooLarge(w)
		return nil, false
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, true
}

func (h *Handler) tooLarge(w http.ResponseWriter) {
	metrics.Inc(&h.metrics.HTTPRequestsRejectedBodyTooLargeTotal)
	writeError(w, http.StatusRequestEntityTooLarge, "too_large", "request body too large")
}

// record 는 수신한 요청을 Capture 로 recorder 에 넘긴다. 인증 헤더는 남기지 않는다.
func (h *Handler) record(r *http.Request, resource string, body []byte) {
	if h.recorder == nil {
		return
	}
	c := model.Capture{
		Ts:          h.clock.Now().UnixMilli(),
		Resource:    resource,
		Source:      "ingest",
		ContentType: r.Header.Get("Content-Type"),
		Size:        len(body),
	}
	if strings.HasPrefix(c.ContentType, "application/json") && json.Valid(body) {
		c.Body = body
	}
	h.recorder.Record(c)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, model.ErrorBody{Code: code, Message: msg})
}
