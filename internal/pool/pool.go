package pool

import (
	"bytes"
	"sync"

	"tickgauge/internal/model"

	"github.com/klauspost/compress/gzip"
)

// ---------------------------------------------------------------
// Pool 구성 목적
//
// gzip 인코딩 (events/batch 바디 압축, capture archive) 과
// stand-in 서버의 body 읽기는 매번 큰 버퍼를 만든다.
// 아래 Pool 들은 GC 압력을 줄이기 위한 재사용 용도.
// ---------------------------------------------------------------

var (
	// CapturePool: Capture 객체 재사용 (stand-in 서버 hot path)
	CapturePool = sync.Pool{
		New: func() any { return new(model.Capture) },
	}

	// BodyPool: 요청 body 임시 버퍼 (초기 4KB)
	BodyPool = sync.Pool{
		New: func() any {
			return bytes.NewBuffer(make([]byte, 0, 4*1024))
		},
	}

	// BufferPool: gzip 결과 버퍼 (초기 64KB)
	BufferPool = sync.Pool{
		New: func() any {
			return bytes.NewBuffer(make([]byte, 0, 64*1024))
		},
	}

	// GzipPool: gzip.Writer 재사용. 속도 우선 (BestSpeed).
	GzipPool = sync.Pool{
		New: func() any {
			w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
			return w
		},
	}
)

// 이보다 큰 버퍼는 Pool 에 넣지 않고 GC 에 맡긴다.
const MaxBufferCap = 1 * 1024 * 1024 // 1MB

func ResetCapture(c *model.Capture) {
	*c = model.Capture{}
}

// PutBody: maxCap 보다 커진 버퍼는 버린다.
func PutBody(buf *bytes.Buffer, maxCap int64) {
	if int64(buf.Cap()) <= maxCap {
		buf.Reset()
		BodyPool.Put(buf)
	}
}

// PutBuffer: 1MB 이하만 재사용.
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() <= MaxBufferCap {
		buf.Reset()
		BufferPool.Put(buf)
	}
}

// Gzip
//
// data 를 gzip 으로 압축해 호출자 소유의 새 slice 로 돌려준다.
// pool 버퍼를 그대로 반환하면 재사용 시 데이터가 오염되므로 반드시 복사한다.
func Gzip(data []byte) ([]byte, error) {
	buf := BufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer PutBuffer(buf)

	gz := GzipPool.Get().(*gzip.Writer)
	gz.Reset(buf)
	defer GzipPool.Put(gz)

	if _, err := gz.Write(data); err != nil {
		_ = gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
