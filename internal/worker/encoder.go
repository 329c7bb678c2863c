package worker

import (
	"bytes"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"

	"tickgauge/internal/model"
	"tickgauge/internal/pool"
)

// Encoder 는 capture 배치를 JSONL → gzip 으로 직렬화한다.
//
//   - goccy/go-json encoder 를 gzip writer 에 직결
//   - gzip.Writer / bytes.Buffer 는 pool 에서 재사용
//   - 결과는 새 []byte 로 복사해 호출자에게 넘긴다 (pool 버퍼 오염 방지)
type Encoder struct{}

func NewEncoder() *Encoder {
	return &Encoder{}
}

// EncodeJSONLGZ 는 capture 마다 한 줄씩 JSON 인코딩한 뒤 gzip 으로 압축한다.
func (e *Encoder) EncodeJSONLGZ(captures []*model.Capture) ([]byte, error) {
	buf := pool.BufferPool.Get().(*bytes.Buffer)
	buf.Reset()

	gz := pool.GzipPool.Get().(*gzip.Writer)
	gz.Reset(buf)

	enc := json.NewEncoder(gz)
	for _, c := range captures {
		if err := enc.Encode(c); err != nil {
			_ = gz.Close()
			pool.GzipPool.Put(gz)
			pool.PutBuffer(buf)
			return nil, err
		}
	}

	// Close 시 gzip footer 가 기록된다.
	if err := gz.Close(); err != nil {
		pool.GzipPool.Put(gz)
		pool.PutBuffer(buf)
		return nil, err
	}
	pool.GzipPool.Put(gz)

	data := make([]byte, buf.Len())
	copy(data, buf.Bytes())
	pool.PutBuffer(buf)

	return data, nil
}

// RecycleCaptures 는 capture 객체를 초기화해 pool 에 돌려준다.
func (e *Encoder) RecycleCaptures(captures []*model.Capture) {
	for _, c := range captures {
		pool.ResetCapture(c)
		pool.CapturePool.Put(c)
	}
}
