// internal/worker/archiver.go
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"tickgauge/internal/config"
	"tickgauge/internal/logger"
	"tickgauge/internal/metrics"
	"tickgauge/internal/model"
	"tickgauge/internal/pool"
)

// spool 재업로드 주기 (uploadCh 가 비어 있을 때)
const idleInterval = 500 * time.Millisecond

// Archiver
// ------------------------------------------------------------
// 기록된 요청(Capture)을 모아 gzip JSONL 객체로 보관하는 파이프라인.
// SDK Dev 모드의 transport.Recorder 이자, stand-in 서버의 수신 이벤트 보관소.
//
//   - Record: recordCh 로 non-blocking push (가득 차면 drop)
//   - collectLoop: BatchSize 도달 또는 FlushInterval 마다 batch 를 uploadCh 로
//   - uploadLoop: 인코딩 → S3 (실패 시 spool) 또는 디렉토리 저장, idle 시 spool 정리/재업로드
//
// Shutdown 은 recordCh 에 남은 capture 까지 기록한 뒤 반환한다.
// recordCh 는 닫지 않는다 (동시 Record 와의 race 방지). 대신 stopped 플래그로 막는다.
type Archiver struct {
	cfg     config.Archive
	clock   clock.Clock
	log     zerolog.Logger
	metrics *metrics.Metrics
	encoder *Encoder

	s3  *S3Sink  // nil 이면 미사용
	dir *DirSink // nil 이면 미사용

	recordCh chan *model.Capture
	uploadCh chan model.ArchiveJob

	ctx     context.Context
	cancel  context.CancelFunc
	quit    chan struct{}
	stopped atomic.Bool

	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewArchiver(cfg config.Archive, s3 *S3Sink, dir *DirSink, clk clock.Clock, m *metrics.Metrics, log zerolog.Logger) *Archiver {
	cfg = cfg.WithDefaults()
	if clk == nil {
		clk = clock.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Archiver{
		cfg:      cfg,
		clock:    clk,
		log:      logger.Component(log, "archiver"),
		metrics:  m,
		encoder:  NewEncoder(),
		s3:       s3,
		dir:      dir,
		recordCh: make(chan *model.Capture, cfg.ChannelSize),
		uploadCh: make(chan model.ArchiveJob, cfg.UploadQueue),
		ctx:      ctx,
		cancel:   cancel,
		quit:     make(chan struct{}),
	}
}

// NewArchiverFromConfig 는 설정에 따라 sink 를 구성한다.
// Bucket 이 있으면 S3, Dir 이 있으면 디렉토리 sink 를 만든다. 둘 다 없으면 nil.
func NewArchiverFromConfig(ctx context.Context, cfg config.Archive, clk clock.Clock, m *metrics.Metrics, log zerolog.Logger) (*Archiver, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	cfg = cfg.WithDefaults()
	if clk == nil {
		clk = clock.New()
	}

	var s3 *S3Sink
	if cfg.Bucket != "" {
		client, err := NewS3Client(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		s3 = NewS3Sink(client, cfg, clk, m)
	}

	var dir *DirSink
	if cfg.Dir != "" {
		d, err := NewDirSink(cfg, clk, m, logger.Component(log, "archive_dir"))
		if err != nil {
			return nil, err
		}
		dir = d
	}

	return NewArchiver(cfg, s3, dir, clk, m, log), nil
}

// Start 는 collectLoop / uploadLoop 를 띄운다. 두 번째 호출은 무시된다.
func (a *Archiver) Start() {
	a.startOnce.Do(func() {
		a.wg.Add(2)
		go a.collectLoop()
		go a.uploadLoop()
	})
}

// Shutdown 은 새 기록을 막고, 남은 capture 를 모두 처리한 뒤 반환한다.
func (a *Archiver) Shutdown() {
	a.stopOnce.Do(func() {
		a.stopped.Store(true)
		close(a.quit)
	})
	a.wg.Wait()
	a.cancel()
}

// Record 는 transport.Recorder 구현. 절대 block 하지 않는다.
func (a *Archiver) Record(c model.Capture) {
	if a.stopped.Load() {
		metrics.Inc(&a.metrics.CapturesDroppedTotal)
		return
	}

	cp := pool.CapturePool.Get().(*model.Capture)
	*cp = c

	select {
	case a.recordCh <- cp:
		metrics.Inc(&a.metrics.CapturesRecordedTotal)
	default:
		pool.ResetCapture(cp)
		pool.CapturePool.Put(cp)
		metrics.Inc(&a.metrics.CapturesDroppedTotal)
	}
}

// collectLoop 는 recordCh 를 batch 로 묶는다.
// flush 는 항상 새 slice 를 만든다 (재사용으로 인한 오염 방지).
func (a *Archiver) collectLoop() {
	defer a.wg.Done()
	defer close(a.uploadCh)

	batch := make([]*model.Capture, 0, a.cfg.BatchSize)
	timer := a.clock.Timer(a.cfg.FlushInterval)
	defer timer.Stop()

	flush := func() {
		if len(batch) > 0 {
			a.uploadCh <- model.ArchiveJob{Captures: batch}
			batch = make([]*model.Capture, 0, a.cfg.BatchSize)
		}
		timer.Reset(a.cfg.FlushInterval)
	}

	for {
		select {
		case <-a.quit:
			// 이미 들어온 capture 는 모두 기록한다.
			for {
				select {
				case c := <-a.recordCh:
					batch = append(batch, c)
					if len(batch) >= a.cfg.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}

		case c := <-a.recordCh:
			batch = append(batch, c)
			if len(batch) >= a.cfg.BatchSize {
				flush()
			}

		case <-timer.C:
			flush()
		}
	}
}

// uploadLoop 는 uploadCh 가 닫힐 때까지 batch 를 처리한다.
// 처리 사이사이와 idle 시 spool 을 정리 / 재업로드한다 (최대 3건씩, starvation 방지).
func (a *Archiver) uploadLoop() {
	defer a.wg.Done()

	idle := a.clock.Ticker(idleInterval)
	defer idle.Stop()

	for {
		select {
		case job, ok := <-a.uploadCh:
			if !ok {
				a.log.Debug().Msg("uploader exiting")
				return
			}
			a.process(a.ctx, job)
			a.maintainSpool(a.ctx)

		case <-idle.C:
			a.maintainSpool(a.ctx)
		}
	}
}

// process
//  1. JSONL + gzip 인코딩 (실패 시 카운터 후 폐기)
//  2. S3 가 있으면 업로드, 실패 시 디렉토리 spool
//  3. S3 가 없으면 디렉토리 저장
//  4. capture 객체는 pool 로 반환
func (a *Archiver) process(ctx context.Context, job model.ArchiveJob) {
	if len(job.Captures) == 0 {
		return
	}
	defer a.encoder.RecycleCaptures(job.Captures)

	n := len(job.Captures)
	data, err := a.encoder.EncodeJSONLGZ(job.Captures)
	if err != nil {
		metrics.Inc(&a.metrics.ArchivePutErrorsTotal)
		a.log.Error().Err(err).Int("captures", n).Msg("capture encode failed")
		return
	}

	name := NewFilename(a.clock, a.cfg.InstanceID)

	if a.s3 != nil {
		err := a.s3.Put(ctx, name, data)
		if err == nil {
			metrics.Inc(&a.metrics.ArchiveObjectsStoredTotal)
			return
		}
		a.log.Warn().Err(err).Str("file", name).Msg("s3 put failed")
		if a.dir == nil {
			metrics.Add(&a.metrics.SpoolCapturesDroppedTotal, int64(n))
			return
		}
	}

	if a.dir != nil {
		if err := a.dir.Save(name, data, n); err != nil {
			metrics.Inc(&a.metrics.ArchivePutErrorsTotal)
			a.log.Error().Err(err).Str("file", name).Msg("archive dir save failed")
			return
		}
		if a.s3 == nil {
			metrics.Inc(&a.metrics.ArchiveObjectsStoredTotal)
		}
	}
}

func (a *Archiver) maintainSpool(ctx context.Context) {
	if a.dir == nil {
		return
	}
	if a.s3 == nil {
		a.dir.PruneExpired()
		return
	}
	for i := 0; i < 3; i++ {
		if !a.dir.ReuploadOne(ctx, a.s3) {
			return
		}
	}
}
