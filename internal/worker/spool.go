// internal/worker/spool.go
package worker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"

	"tickgauge/internal/config"
	"tickgauge/internal/metrics"
)

const metaSuffix = ".meta.json"

// DirSink
// ------------------------------------------------------------
// gzip JSONL 객체를 로컬 디렉토리에 저장한다.
//   - S3 가 없으면: 이 디렉토리가 곧 archive
//   - S3 가 있으면: S3 실패분의 spool. idle 시 가장 오래된 파일부터 재업로드
//
// 각 data 파일 옆에 <name>.meta.json ({"num_captures":N}) 을 둔다.
// TTL 판단은 파일명 prefix 의 Unix timestamp 기준.
type DirSink struct {
	dir     string
	maxAge  time.Duration
	maxSize int64
	clock   clock.Clock
	metrics *metrics.Metrics
	log     zerolog.Logger

	// 현재 디렉토리의 data 파일 총 바이트 수
	sizeBytes int64
}

// NewDirSink 는 디렉토리를 만들고 기존 파일을 스캔해 크기 / 개수를 복원한다.
// data 없이 meta 만 남은 파일은 정리한다.
func NewDirSink(cfg config.Archive, clk clock.Clock, m *metrics.Metrics, log zerolog.Logger) (*DirSink, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	d := &DirSink{
		dir:     cfg.Dir,
		maxAge:  cfg.MaxAge,
		maxSize: cfg.MaxSizeBytes,
		clock:   clk,
		metrics: m,
		log:     log,
	}

	entries, err := os.ReadDir(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("scan archive dir: %w", err)
	}

	var total, count int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()

		if strings.HasSuffix(name, metaSuffix) {
			dataName := strings.TrimSuffix(name, metaSuffix)
			if _, err := os.Stat(filepath.Join(cfg.Dir, dataName)); os.IsNotExist(err) {
				_ = os.Remove(filepath.Join(cfg.Dir, name))
			}
			continue
		}
		if !isDataFile(name) {
			continue
		}
		if info, err := e.Info(); err == nil {
			total += info.Size()
			count++
		}
	}

	atomic.StoreInt64(&d.sizeBytes, total)
	metrics.Add(&m.SpoolSizeBytes, total)
	metrics.Add(&m.SpoolFilesCurrent, count)

	return d, nil
}

func (d *DirSink) Dir() string { return d.dir }

// SizeBytes 는 현재 data 파일 총 크기.
func (d *DirSink) SizeBytes() int64 { return atomic.LoadInt64(&d.sizeBytes) }

// Save 는 객체를 name 으로 저장한다.
// 용량 제한을 넘으면 가장 오래된 파일부터 지우고, 그래도 안 되면 버린다 (nil 반환, 카운터 증가).
func (d *DirSink) Save(name string, data []byte, numCaptures int) error {
	if len(data) == 0 || numCaptures <= 0 {
		return nil
	}

	size := int64(len(data))
	if !d.ensureCapacity(size) {
		d.log.Error().Int64("bytes", size).Int("captures", numCaptures).Msg("archive dir full, dropping object")
		metrics.Add(&d.metrics.SpoolCapturesDroppedTotal, int64(numCaptures))
		return nil
	}

	dataPath := filepath.Join(d.dir, name)
	if err := os.WriteFile(dataPath, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", dataPath, err)
	}
	meta := []byte(fmt.Sprintf(`{"num_captures":%d}`, numCaptures))
	_ = os.WriteFile(dataPath+metaSuffix, meta, 0o600)

	atomic.AddInt64(&d.sizeBytes, size)
	metrics.Add(&d.metrics.SpoolSizeBytes, size)
	metrics.Inc(&d.metrics.SpoolFilesCurrent)
	return nil
}

// ensureCapacity 는 maxSize 를 넘지 않도록 오래된 파일을 지운다.
// 지울 파일이 없는데도 공간이 부족하면 false.
func (d *DirSink) ensureCapacity(incoming int64) bool {
	if d.maxSize <= 0 {
		return true
	}
	if incoming > d.maxSize {
		return false
	}

	for atomic.LoadInt64(&d.sizeBytes)+incoming > d.maxSize {
		oldest := d.pickOldest()
		if oldest == "" {
			return false
		}
		d.remove(oldest)
		metrics.Inc(&d.metrics.SpoolFilesExpiredTotal)
		d.log.Warn().Str("file", oldest).Msg("archive dir capacity, removed oldest")
	}
	return true
}

// PruneExpired 는 TTL 이 지난 파일을 모두 지우고 지운 개수를 돌려준다.
func (d *DirSink) PruneExpired() int {
	if d.maxAge <= 0 {
		return 0
	}
	removed := 0
	for _, name := range d.list() {
		if !d.expired(name) {
			// 파일명 정렬 = 시간 정렬, 이후는 모두 더 최근
			break
		}
		d.remove(name)
		metrics.Inc(&d.metrics.SpoolFilesExpiredTotal)
		removed++
	}
	if removed > 0 {
		d.log.Info().Int("removed", removed).Msg("archive dir TTL prune")
	}
	return removed
}

// ReuploadOne 은 가장 오래된 파일 하나를 s3 로 다시 올린다.
// TTL 이 지난 파일은 올리지 않고 지운다. 처리한 파일이 있으면 true.
func (d *DirSink) ReuploadOne(ctx context.Context, s3 *S3Sink) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}

	name := d.pickOldest()
	if name == "" {
		return false
	}

	if d.expired(name) {
		d.remove(name)
		metrics.Inc(&d.metrics.SpoolFilesExpiredTotal)
		d.log.Info().Str("file", name).Msg("spool TTL expired")
		return true
	}

	dataPath := filepath.Join(d.dir, name)
	f, err := os.Open(dataPath)
	if err != nil {
		d.log.Warn().Err(err).Str("file", name).Msg("spool open failed")
		d.remove(name)
		return true
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return false
	}

	if !validateFile(f, info.Size()) {
		f.Close()
		d.log.Warn().Str("file", name).Msg("spool file is corrupt, removing")
		d.remove(name)
		return true
	}

	err = s3.PutFile(ctx, name, f, info.Size())
	f.Close()
	if err != nil {
		d.log.Warn().Err(err).Str("file", name).Msg("spool reupload failed")
		return false
	}

	n := d.numCaptures(dataPath)
	d.remove(name)
	metrics.Inc(&d.metrics.SpoolReuploadedTotal)
	metrics.Inc(&d.metrics.ArchiveObjectsStoredTotal)
	d.log.Info().Str("file", name).Int64("captures", n).Msg("spool reupload success")
	return true
}

func (d *DirSink) expired(name string) bool {
	if d.maxAge <= 0 {
		return false
	}
	sec, ok := extractUnixFromFilename(name)
	if !ok {
		return false
	}
	age := time.Duration(d.clock.Now().Unix()-sec) * time.Second
	return age > d.maxAge
}

// remove 는 data/meta 를 지우고 카운터를 맞춘다.
func (d *DirSink) remove(name string) {
	dataPath := filepath.Join(d.dir, name)
	if info, err := os.Stat(dataPath); err == nil {
		atomic.AddInt64(&d.sizeBytes, -info.Size())
		metrics.Add(&d.metrics.SpoolSizeBytes, -info.Size())
	}
	_ = os.Remove(dataPath)
	_ = os.Remove(dataPath + metaSuffix)
	metrics.Add(&d.metrics.SpoolFilesCurrent, -1)
}

// numCaptures 는 meta 의 num_captures. 없거나 깨져 있으면 1.
func (d *DirSink) numCaptures(dataPath string) int64 {
	meta, err := os.ReadFile(dataPath + metaSuffix)
	if err != nil {
		return 1
	}
	var v struct {
		NumCaptures int64 `json:"num_captures"`
	}
	if json.Unmarshal(meta, &v) != nil || v.NumCaptures <= 0 {
		return 1
	}
	return v.NumCaptures
}

// pickOldest 는 파일명 기준 가장 오래된 data 파일.
func (d *DirSink) pickOldest() string {
	files := d.list()
	if len(files) == 0 {
		return ""
	}
	return files[0]
}

// list 는 data 파일명을 정렬해서 돌려준다. ReadDir 순서는 보장되지 않는다.
func (d *DirSink) list() []string {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isDataFile(e.Name()) {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files
}

func isDataFile(name string) bool {
	return name != "" && name[0] != '.' && strings.HasSuffix(name, ".jsonl.gz")
}

// validateFile 은 gzip 을 풀어 첫 JSONL 라인이 JSON 인지 확인한다.
func validateFile(f io.ReadSeeker, size int64) bool {
	if size <= 0 {
		return false
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return false
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		return false
	}
	defer gz.Close()

	line, err := bufio.NewReader(gz).ReadBytes('\n')
	if err != nil && err != io.EOF {
		return false
	}
	line = bytes.TrimSpace(line)
	return len(line) > 0 && json.Valid(line)
}
