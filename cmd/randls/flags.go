package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/hupe1980/randls"
	"github.com/hupe1980/randls/internal/compress"
	"github.com/hupe1980/randls/model"
)

// optionalInt is an int flag that remembers whether it was set.
type optionalInt struct {
	value int
	set   bool
}

func (o *optionalInt) String() string {
	if o == nil || !o.set {
		return ""
	}
	return strconv.Itoa(o.value)
}

func (o *optionalInt) Set(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	o.value, o.set = v, true
	return nil
}

type params struct {
	dataset     string
	m, n        int
	repetitions int
	partitions  int
	cache       bool

	source      string
	dataDir     string
	resultDir   string
	output      string
	factorDir   string
	ddbTable    string
	blockCache  int64
	compression compress.Type

	cfg         randls.Config
	concurrency int
	parallelism int
	cacheMemMB  int64
	ioMBps      int64

	test        bool
	debug       bool
	jsonLogs    bool
	metricsAddr string
}

func parseFlags(args []string, stderr io.Writer) (*params, error) {
	fs := flag.NewFlagSet("randls", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: randls [flags] dataset")
		fs.PrintDefaults()
	}

	p := &params{}
	var (
		high, low            bool
		projection, sampling bool
		projType             string
		r, s                 optionalInt
		q                    optionalInt
		codecName            string
	)

	fs.IntVar(&p.m, "m", 0, "number of rows of A (required)")
	fs.IntVar(&p.n, "n", 0, "number of columns of A (required)")
	fs.IntVar(&p.repetitions, "nrepetitions", 1, "number of times to stack the matrix vertically")
	fs.IntVar(&p.partitions, "npartitions", 280, "number of partitions")
	fs.BoolVar(&p.cache, "cache", false, "keep loaded partitions in memory")
	fs.StringVar(&p.source, "source", "local", "data source: local, s3://bucket/prefix or minio://endpoint/bucket/prefix")
	fs.StringVar(&p.dataDir, "data-dir", "../data/", "directory of local datasets")
	fs.StringVar(&p.resultDir, "result-dir", "../result/", "directory the result file is written to")
	fs.StringVar(&p.output, "output", "ls.out", "name of the result file")
	fs.StringVar(&p.factorDir, "factor-dir", "", "local directory for saved factors (default: the data source)")
	fs.StringVar(&p.ddbTable, "ddb-table", "", "DynamoDB table committing factor versions (s3 source only)")
	fs.Int64Var(&p.blockCache, "block-cache-mb", 64, "block cache for remote sources in MiB (0 disables)")
	fs.StringVar(&codecName, "compression", "zstd", "codec for saved factors: none, lz4 or zstd")

	fs.BoolVar(&high, "high-precision", false, "use the high precision solver")
	fs.BoolVar(&low, "low-precision", false, "use the low precision solver (default)")
	fs.BoolVar(&projection, "projection", false, "compute the sketch by projection")
	fs.BoolVar(&sampling, "sampling", false, "compute the sketch by sampling")
	fs.StringVar(&projType, "p", "gaussian", "projection type: cw, gaussian, rademacher or srdht")
	fs.Var(&r, "r", "projection size (required)")
	fs.Var(&s, "s", "sampling size (sampling only)")
	fs.Var(&q, "q", "number of LSQR iterations (high precision only)")
	fs.IntVar(&p.cfg.Trials, "k", 1, "number of independent trials")
	fs.Uint64Var(&p.cfg.Seed, "seed", 0, "base seed (0 draws one from the clock)")
	fs.BoolVar(&p.cfg.LoadN, "load-n", false, "load the preconditioning factor")
	fs.BoolVar(&p.cfg.SaveN, "save-n", false, "save the preconditioning factor")
	fs.IntVar(&p.concurrency, "concurrency", 1, "number of trials run at once")
	fs.IntVar(&p.parallelism, "parallelism", 0, "partitions processed at once (default GOMAXPROCS)")
	fs.Int64Var(&p.cacheMemMB, "cache-mem-mb", 0, "memory limit for cached partitions in MiB (0 is unlimited)")
	fs.Int64Var(&p.ioMBps, "io-mbps", 0, "source read limit in MiB/s (0 is unlimited)")

	fs.BoolVar(&p.test, "t", false, "compute accuracies of the returned solutions")
	fs.BoolVar(&p.debug, "debug", false, "debug logging")
	fs.BoolVar(&p.jsonLogs, "json-logs", false, "log as JSON")
	fs.StringVar(&p.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New("expected exactly one dataset argument")
	}
	p.dataset = fs.Arg(0)

	if p.m <= 0 || p.n <= 0 {
		return nil, model.NewConfigurationError("dims", "-m and -n are required", nil)
	}
	if !r.set {
		return nil, model.NewConfigurationError("r", "-r is required", nil)
	}

	switch {
	case high && low:
		return nil, model.NewConfigurationError("solver_type", "-high-precision and -low-precision are exclusive", nil)
	case high:
		p.cfg.SolverType = randls.HighPrecision
	default:
		p.cfg.SolverType = randls.LowPrecision
	}
	switch {
	case projection && sampling:
		return nil, model.NewConfigurationError("sketch_type", "-projection and -sampling are exclusive", nil)
	case projection:
		p.cfg.SketchType = randls.Projection
	case sampling:
		p.cfg.SketchType = randls.Sampling
	default:
		p.cfg.SketchType = randls.NoSketch
	}

	kind, err := model.ParseProjectionType(projType)
	if err != nil {
		return nil, err
	}
	p.cfg.ProjectionType = kind
	p.cfg.R = r.value
	if s.set {
		p.cfg.S = s.value
	}
	if q.set {
		p.cfg.Iters = randls.Iters(q.value)
	}

	if p.compression, err = compress.ParseType(codecName); err != nil {
		return nil, model.NewConfigurationError("compression", err.Error(), err)
	}
	return p, nil
}
