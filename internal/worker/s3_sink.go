// internal/worker/s3_sink.go
package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfgLib "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/benbjohnson/clock"

	"tickgauge/internal/config"
	"tickgauge/internal/metrics"
)

// PutObjectAPI 는 *s3.Client 의 부분집합. 테스트에서 fake 로 바꿔 끼운다.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink
// ------------------------------------------------------------
// gzip JSONL 객체를 S3 에 올린다.
//   - 호출당 PutObject 1회 (재시도 없음, 실패 시 호출자가 spool 로 보낸다)
//   - 1회 시도당 S3Timeout
//   - key: <prefix>/dt=YYYY-MM-DD/hr=HH/<file>
type S3Sink struct {
	client  PutObjectAPI
	bucket  string
	prefix  string
	timeout time.Duration
	clock   clock.Clock
	metrics *metrics.Metrics
}

func NewS3Sink(client PutObjectAPI, cfg config.Archive, clk clock.Clock, m *metrics.Metrics) *S3Sink {
	return &S3Sink{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		timeout: cfg.S3Timeout,
		clock:   clk,
		metrics: m,
	}
}

// NewS3Client 는 AWS 기본 credential chain 과 region 으로 client 를 만든다.
// SDK 내부 retry 는 끈다 (실패 처리는 spool 이 담당).
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	opts := []func(*awsCfgLib.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsCfgLib.WithRegion(region))
	}
	awsCfg, err := awsCfgLib.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.RetryMaxAttempts = 1
	}), nil
}

// Key 는 파일명에 대한 S3 key.
func (u *S3Sink) Key(name string) string {
	return BuildKey(u.clock, u.prefix, name)
}

// Put 은 메모리의 객체를 올린다.
func (u *S3Sink) Put(ctx context.Context, name string, data []byte) error {
	return u.putObject(ctx, u.Key(name), bytes.NewReader(data), int64(len(data)))
}

// PutFile 은 spool 파일을 그대로 올린다.
func (u *S3Sink) PutFile(ctx context.Context, name string, f io.ReadSeeker, size int64) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return u.putObject(ctx, u.Key(name), f, size)
}

func (u *S3Sink) putObject(ctx context.Context, key string, body io.Reader, size int64) error {
	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(u.bucket),
		Key:             aws.String(key),
		Body:            body,
		ContentLength:   aws.Int64(size),
		ContentType:     aws.String("application/x-ndjson"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		metrics.Inc(&u.metrics.ArchivePutErrorsTotal)
		return fmt.Errorf("put s3://%s/%s: %w", u.bucket, key, err)
	}
	return nil
}
