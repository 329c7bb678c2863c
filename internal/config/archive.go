package config

import "time"

// Archive
//
// 기록된 요청(Capture)을 gzip JSONL 객체로 묶어 보관하는 설정.
// SDK 의 Dev 모드와 stand-in ingest 서버가 같이 사용한다.
//
// Dir, Bucket 둘 다 비어 있으면 archive 는 꺼진다.
// 둘 다 있으면 S3 가 primary, Dir 은 S3 실패 시 spool 로 쓰인다.
type Archive struct {
	InstanceID string // 파일명에 들어가는 프로세스 식별자

	// ---------------------------
	// 배치
	// ---------------------------

	ChannelSize   int           // recordCh 버퍼 크기
	UploadQueue   int           // uploadCh 버퍼 크기
	BatchSize     int           // N개 모이면 객체 1개로 기록
	FlushInterval time.Duration // 시간 기반 flush 주기

	// ---------------------------
	// 로컬 spool
	// ---------------------------

	Dir          string        // 로컬 디렉토리 (비어 있으면 미사용)
	MaxAge       time.Duration // 파일 TTL (초과 시 삭제, 0 이면 무제한)
	MaxSizeBytes int64         // 디렉토리 전체 허용 용량 (0 이면 무제한)

	// ---------------------------
	// S3
	// ---------------------------

	AWSRegion string
	Bucket    string        // 비어 있으면 S3 미사용
	Prefix    string        // 예: captures
	S3Timeout time.Duration // PutObject 1회 timeout
}

// Enabled 는 sink 가 하나라도 설정됐는지.
func (a Archive) Enabled() bool {
	return a.Dir != "" || a.Bucket != ""
}

// WithDefaults 는 비어 있는 배치 파라미터를 채운 복사본을 돌려준다.
func (a Archive) WithDefaults() Archive {
	if a.InstanceID == "" {
		a.InstanceID = instanceID()
	}
	if a.ChannelSize <= 0 {
		a.ChannelSize = 1024
	}
	if a.UploadQueue <= 0 {
		a.UploadQueue = 8
	}
	if a.BatchSize <= 0 {
		a.BatchSize = 256
	}
	if a.FlushInterval <= 0 {
		a.FlushInterval = 5 * time.Second
	}
	if a.S3Timeout <= 0 {
		a.S3Timeout = 5 * time.Second
	}
	if a.Prefix == "" {
		a.Prefix = "captures"
	}
	return a
}
