// internal/worker/file_util.go
package worker

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/benbjohnson/clock"
)

// file_util.go
// ------------------------------------------------------------
// archive 객체 / spool 파일 이름 규칙.
//
//	<unix>_<instance>_<counter>.jsonl.gz
//
// 예:
//
//	1764721594_devbox_000042.jsonl.gz
//
// 문자열 정렬 = 시간 순 정렬이므로 spool 에서 가장 오래된 파일을 고를 때 그대로 쓴다.
var globalCounter uint64

// NextCounter 는 goroutine 간 충돌 없는 순번. 1e6 에서 0 으로 돌아간다.
func NextCounter() uint64 {
	return atomic.AddUint64(&globalCounter, 1) % 1_000_000
}

// NewFilename 은 clk 기준 현재 시각으로 파일명을 만든다.
func NewFilename(clk clock.Clock, instanceID string) string {
	return fmt.Sprintf("%d_%s_%06d.jsonl.gz", clk.Now().Unix(), sanitizeInstance(instanceID), NextCounter())
}

// BuildKey
//
//	<prefix>/dt=<YYYY-MM-DD>/hr=<HH>/<filename>
//
// 파티션은 UTC 기준.
func BuildKey(clk clock.Clock, prefix, filename string) string {
	now := clk.Now().UTC()
	return fmt.Sprintf("%s/dt=%s/hr=%s/%s", strings.TrimRight(prefix, "/"), now.Format("2006-01-02"), now.Format("15"), filename)
}

// extractUnixFromFilename 은 파일명 prefix 의 Unix seconds 를 파싱한다.
func extractUnixFromFilename(name string) (int64, bool) {
	idx := strings.IndexByte(name, '_')
	if idx <= 0 {
		return 0, false
	}
	sec, err := strconv.ParseInt(name[:idx], 10, 64)
	if err != nil || sec <= 0 {
		return 0, false
	}
	return sec, true
}

// instance 에 '_' 나 '/' 가 있으면 파일명 파싱 / 키 계층이 깨진다.
func sanitizeInstance(id string) string {
	if id == "" {
		return "local"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '/', '\\', ' ':
			return '-'
		}
		return r
	}, id)
}
