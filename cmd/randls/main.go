// Command randls runs randomized least-squares experiments on a dataset.
//
//	randls -m 1000 -n 10 -low-precision -projection -p gaussian -r 200 -k 5 -t mydata
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hupe1980/randls"
	"github.com/hupe1980/randls/blobstore"
	"github.com/hupe1980/randls/codec"
	"github.com/hupe1980/randls/prommetrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "randls:", err)
		os.Exit(1)
	}
}

func newLogger(p *params, w io.Writer) *randls.Logger {
	level := slog.LevelInfo
	if p.debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if p.jsonLogs {
		return randls.NewLogger(slog.NewJSONHandler(w, opts))
	}
	return randls.NewLogger(slog.NewTextHandler(w, opts))
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	p, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	logger := newLogger(p, stderr)

	name, dataset := datasetBlob(p.dataset)
	p.cfg.Dataset = dataset
	if err := p.cfg.Validate(p.m*p.repetitions, p.n); err != nil {
		return err
	}
	logger.LogParams(ctx, p.cfg, p.m*p.repetitions, p.n, p.partitions*p.repetitions)

	session := randls.NewSession(randls.SessionConfig{
		Parallelism:      p.parallelism,
		CacheMemoryBytes: p.cacheMemMB << 20,
		IOBytesPerSec:    p.ioMBps << 20,
		Logger:           logger.Logger,
	})

	st, err := openStores(ctx, p, session.Resources())
	if err != nil {
		return err
	}

	opts := []randls.Option{
		randls.WithLogger(logger),
		randls.WithConcurrency(p.concurrency),
		randls.WithCompression(p.compression),
		randls.WithFactorStore(st.factors, ""),
	}
	if p.metricsAddr != "" {
		collector, err := serveMetrics(ctx, p.metricsAddr, logger)
		if err != nil {
			return err
		}
		opts = append(opts, randls.WithMetricsCollector(collector))
	}

	rm, err := randls.NewMatrix(session, randls.FromBlob(st.data, name, p.partitions), dataset, p.m, p.n+1,
		randls.WithRepetitions(p.repetitions), randls.WithCache(p.cache))
	if err != nil {
		return err
	}
	defer rm.Close()

	ls, err := randls.New(rm, p.cfg, opts...)
	if err != nil {
		return err
	}
	res, err := ls.Fit(ctx)
	if err != nil {
		return err
	}

	if err := writeResult(ctx, p, res); err != nil {
		return err
	}
	logger.InfoContext(ctx, "total time elapsed", "seconds", res.Elapsed.Seconds())

	if !p.test {
		return nil
	}
	ref, err := reference(ctx, st.data, rm, dataset, logger)
	if err != nil {
		return err
	}
	eval, err := randls.Evaluate(ctx, rm, res.Trials, ref)
	if err != nil {
		return err
	}
	logger.LogEvaluation(ctx, eval)
	return nil
}

// reference loads the precomputed solution of dataset, computing it from
// the matrix when none is stored.
func reference(ctx context.Context, store blobstore.BlobStore, rm *randls.Matrix, dataset string, logger *randls.Logger) (*randls.ReferenceSolution, error) {
	ref, err := randls.LoadReference(ctx, store, dataset)
	switch {
	case err == nil:
		logger.InfoContext(ctx, "found precomputed optimal solutions")
		return ref.ForRepetitions(rm.Repetitions()), nil
	case randls.IsNotFound(err):
		logger.InfoContext(ctx, "computing optimal solutions")
		return randls.ComputeReference(ctx, rm)
	default:
		return nil, err
	}
}

func writeResult(ctx context.Context, p *params, res *randls.Result) error {
	data, err := codec.EncodeResult(codec.Default, codec.NewResult(res.Elapsed, res.X, res.Solutions(), res.Seed))
	if err != nil {
		return err
	}
	return blobstore.NewLocalStore(p.resultDir).Put(ctx, p.output, data)
}

func serveMetrics(ctx context.Context, addr string, logger *randls.Logger) (*prommetrics.Collector, error) {
	reg := prometheus.NewRegistry()
	collector, err := prommetrics.New(reg)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.InfoContext(ctx, "serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorContext(ctx, "metrics server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	return collector, nil
}
