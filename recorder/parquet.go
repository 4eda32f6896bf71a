package recorder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"cdcflow/config"
	"cdcflow/logger"
	"cdcflow/models"
)

// memoryFileWriter is a write-only source.ParquetFile backed by a buffer.
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{buffer: &bytes.Buffer{}}
}

func (m *memoryFileWriter) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memoryFileWriter) Open(string) (source.ParquetFile, error)   { return m, nil }

func (m *memoryFileWriter) Seek(int64, int) (int64, error) {
	return int64(m.buffer.Len()), nil
}

func (m *memoryFileWriter) Read(b []byte) (int, error)  { return m.buffer.Read(b) }
func (m *memoryFileWriter) Write(b []byte) (int, error) { return m.buffer.Write(b) }
func (m *memoryFileWriter) Close() error                { return nil }
func (m *memoryFileWriter) Bytes() []byte               { return m.buffer.Bytes() }

// ObjectPutter is the subset of the S3 client the sink uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ParquetSink writes each batch as one Parquet file, to a local directory,
// an S3 bucket, or both.
type ParquetSink struct {
	dir         string
	bucket      string
	prefix      string
	compression string
	s3          ObjectPutter
	log         *logger.Log
}

// ParquetOption configures a ParquetSink.
type ParquetOption func(*ParquetSink)

// WithLocalDir writes files under dir.
func WithLocalDir(dir string) ParquetOption {
	return func(s *ParquetSink) { s.dir = dir }
}

// WithS3 uploads files to bucket under prefix.
func WithS3(client ObjectPutter, bucket, prefix string) ParquetOption {
	return func(s *ParquetSink) {
		s.s3 = client
		s.bucket = bucket
		s.prefix = prefix
	}
}

// WithCompression selects snappy, gzip or none.
func WithCompression(codec string) ParquetOption {
	return func(s *ParquetSink) { s.compression = codec }
}

func NewParquetSink(opts ...ParquetOption) (*ParquetSink, error) {
	s := &ParquetSink{log: logger.GetLogger()}
	for _, opt := range opts {
		opt(s)
	}
	if s.dir == "" && s.s3 == nil {
		return nil, fmt.Errorf("parquet sink needs a local directory or an S3 client")
	}
	s.log.WithComponent("parquet_sink").WithFields(logger.Fields{
		"dir":         s.dir,
		"bucket":      s.bucket,
		"compression": s.compression,
	}).Info("parquet sink initialized")
	return s, nil
}

// NewS3Client builds an S3 client from cfg. Static keys are used when both
// are set; otherwise the default AWS credential chain applies.
func NewS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	}), nil
}

func (s *ParquetSink) Name() string { return "parquet" }

// Write encodes batch and stores it in every configured destination. It
// returns the encoded size.
func (s *ParquetSink) Write(ctx context.Context, batch Batch) (int64, error) {
	if len(batch.Rows) == 0 {
		return 0, nil
	}
	key := objectKey(batch)
	log := s.log.WithComponent("parquet_sink").WithFields(logger.Fields{
		"batch_id": batch.ID,
		"kind":     batch.Kind,
		"rows":     len(batch.Rows),
		"key":      key,
	})

	var size int64
	if s.dir != "" {
		n, err := s.writeLocal(filepath.Join(s.dir, filepath.FromSlash(key)), batch)
		if err != nil {
			log.WithError(err).Error("failed to write local parquet file")
			return 0, err
		}
		size = n
	}

	if s.s3 != nil {
		fw := newMemoryFileWriter()
		if err := s.encode(fw, batch); err != nil {
			return 0, err
		}
		data := fw.Bytes()
		size = int64(len(data))

		_, err := s.s3.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(path.Join(s.prefix, key)),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/octet-stream"),
			Metadata: map[string]string{
				"content-type": "parquet",
				"compression":  s.compression,
				"kind":         string(batch.Kind),
				"instrument":   batch.Instrument,
			},
		})
		if err != nil {
			log.WithError(err).WithEnv("S3_BUCKET").Error("failed to upload to S3")
			return 0, fmt.Errorf("failed to upload to S3 bucket %s: %w", s.bucket, err)
		}
	}

	log.WithFields(logger.Fields{"file_size": size}).Debug("batch written")
	return size, nil
}

func (s *ParquetSink) writeLocal(file string, batch Batch) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return 0, fmt.Errorf("create directory: %w", err)
	}
	fw, err := local.NewLocalFileWriter(file)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", file, err)
	}
	if err := s.encode(fw, batch); err != nil {
		fw.Close()
		return 0, err
	}
	if err := fw.Close(); err != nil {
		return 0, err
	}
	info, err := os.Stat(file)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (s *ParquetSink) encode(fw source.ParquetFile, batch Batch) error {
	schema, err := schemaFor(batch.Kind)
	if err != nil {
		return err
	}
	pw, err := writer.NewParquetWriter(fw, schema, 1)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}

	switch s.compression {
	case "snappy":
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	case "gzip":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	default:
		pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED
	}

	for _, row := range batch.Rows {
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			return fmt.Errorf("failed to write parquet record: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finalize parquet writing: %w", err)
	}
	return nil
}

func (s *ParquetSink) Close() error { return nil }

func schemaFor(kind models.Kind) (interface{}, error) {
	switch kind {
	case models.KindTrade:
		return new(TradeRow), nil
	case models.KindTicker:
		return new(TickerRow), nil
	case models.KindBook:
		return new(BookRow), nil
	default:
		return nil, fmt.Errorf("no parquet schema for %s", kind)
	}
}

// objectKey is kind=<k>/instrument=<i>/YYYY/MM/DD/<batch id>.parquet.
func objectKey(batch Batch) string {
	ts := batch.CreatedAt.UTC()
	id := batch.ID
	if id == "" {
		id = uuid.NewString()
	}
	return fmt.Sprintf("kind=%s/instrument=%s/%04d/%02d/%02d/%s.parquet",
		batch.Kind, batch.Instrument, ts.Year(), ts.Month(), ts.Day(), id)
}
