// internal/model/capture.go
package model

import (
	json "github.com/goccy/go-json"
)

// Capture
// ------------------------------------------------------------
// Dev 모드에서 "실제로 보냈을 요청" 한 건을 기록한 것.
// stand-in ingest 서버가 받은 이벤트를 보관할 때도 같은 구조를 쓴다.
// Archiver → Encoder → (DirSink | S3Sink) 까지 그대로 전달된다.
//
// 인증 헤더 값(credential)은 절대 기록하지 않는다.
type Capture struct {
	Ts          int64           `json:"ts"`                     // 기록 시각 (UTC epoch ms)
	Resource    string          `json:"resource"`               // 예: events/batch
	Source      string          `json:"source"`                 // dev | ingest
	ContentType string          `json:"content_type,omitempty"` // application/json, image/png ...
	Size        int             `json:"size"`                   // 원본 body 바이트 수
	Body        json.RawMessage `json:"body,omitempty"`         // JSON body 만 보관 (바이너리는 Size 만)
}

// ArchiveJob 은 Archiver 내부에서 배치 단위 업로드에 사용된다.
type ArchiveJob struct {
	Captures []*Capture
}
