package randls

import (
	"github.com/hupe1980/randls/blobstore"
	"github.com/hupe1980/randls/internal/compress"
)

// Compression selects the codec for persisted factors.
type Compression = compress.Type

// Compression codecs.
const (
	CompressionNone = compress.None
	CompressionLZ4  = compress.LZ4
	CompressionZSTD = compress.ZSTD
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	factorBlobs      blobstore.BlobStore
	factorPrefix     string
	compression      Compression
	concurrency      int
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics collector.
//
// If nil is passed, NoopMetricsCollector is used.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithFactorStore sets the blob store preconditioning factors are loaded
// from and saved to. Required when Config.LoadN or Config.SaveN is set.
//
// Factors are stored under prefix (default "factors").
func WithFactorStore(store blobstore.BlobStore, prefix string) Option {
	return func(o *options) {
		o.factorBlobs = store
		if prefix != "" {
			o.factorPrefix = prefix
		}
	}
}

// WithCompression sets the codec for saved factors (default ZSTD).
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithConcurrency runs up to n trials at once. Values <= 1 run trials
// sequentially.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}
