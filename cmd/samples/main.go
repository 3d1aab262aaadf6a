// Command samples runs the concurrency samples: a fixed workload under
// one dispatch strategy with live progress, or one chained write.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/NetPo4ki/go-dispatch/chainwrite"
	"github.com/NetPo4ki/go-dispatch/config"
	"github.com/NetPo4ki/go-dispatch/counters"
	"github.com/NetPo4ki/go-dispatch/dispatch"
	"github.com/NetPo4ki/go-dispatch/logging"
	"github.com/NetPo4ki/go-dispatch/monitor"
	"github.com/NetPo4ki/go-dispatch/observe/prom"
	"github.com/NetPo4ki/go-dispatch/observe/zaplog"
	"github.com/NetPo4ki/go-dispatch/pool"
	"github.com/NetPo4ki/go-dispatch/scope"
)

// Options holds CLI options.
type Options struct {
	ConfigPath  string
	Strategy    string
	Units       int
	Workers     int
	Write       string
	Output      string
	MetricsAddr string
	LogLevel    string
}

// ParseFlags parses CLI flags from args.
func ParseFlags(args []string) (Options, error) {
	fs := flag.NewFlagSet("samples", flag.ContinueOnError)
	var opts Options
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to YAML config file")
	fs.StringVar(&opts.Strategy, "strategy", "", "Dispatch strategy: 1|blocking 2|nonblocking 3|timer 4|tasks")
	fs.IntVar(&opts.Units, "units", 0, "Number of work units")
	fs.IntVar(&opts.Workers, "workers", 0, "Worker pool capacity")
	fs.StringVar(&opts.Write, "write", "", "Run a chained write instead: callbacks|coroutine|async|sync")
	fs.StringVar(&opts.Output, "out", "", "Chained write output file")
	fs.StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Log level: debug|info|warn|error")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

// apply layers non-zero flag values over cfg.
func (o Options) apply(cfg *config.Config) {
	if o.Strategy != "" {
		cfg.Strategy = o.Strategy
	}
	if o.Units > 0 {
		cfg.Units = o.Units
	}
	if o.Workers > 0 {
		cfg.Workers = o.Workers
	}
	if o.Write != "" {
		cfg.Write.Style = o.Write
	}
	if o.Output != "" {
		cfg.Write.Output = o.Output
	}
	if o.MetricsAddr != "" {
		cfg.Metrics.Addr = o.MetricsAddr
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "samples:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := ParseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.Setup(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	reg := prometheus.NewRegistry()
	metrics, err := prom.New(reg)
	if err != nil {
		return err
	}
	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, reg, logger)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	p := pool.New(cfg.Workers, pool.WithPanicHandler(func(v any) {
		logger.Error("pool item panicked", zap.Any("value", v))
	}))
	defer p.Close()
	logger.Info("worker pool started", zap.Int("workers", cfg.Workers))

	if opts.Write != "" {
		return runWrite(cfg, p, logger)
	}
	return runDispatch(cfg, p, metrics, logger)
}

func runDispatch(cfg *config.Config, p *pool.Pool, metrics *prom.Metrics, logger *zap.Logger) error {
	strategy, err := dispatch.ParseStrategy(cfg.Strategy)
	if err != nil {
		return err
	}

	c := counters.New()
	mon := monitor.New(c, p,
		monitor.WithInterval(cfg.Monitor.Interval),
		monitor.WithSink(monitor.MultiSink(monitor.WriterSink(os.Stdout), metrics)),
		monitor.WithLogger(logger),
	)
	d := dispatch.New(p, c, cfg.Dispatch,
		dispatch.WithLogger(logger),
		dispatch.WithObserver(scope.Observers(metrics, zaplog.New(logger))),
	)

	var g errgroup.Group
	g.Go(func() error {
		mon.Run()
		return nil
	})
	var rep dispatch.Report
	g.Go(func() error {
		defer mon.Stop()
		var err error
		rep, err = d.Run(strategy, cfg.Units)
		return err
	})
	err = g.Wait()

	fmt.Printf("strategy=%s units=%d completed=%d failed=%d elapsed=%s\n",
		rep.Strategy, rep.Units, rep.Completed, rep.Failed, rep.Elapsed.Round(time.Millisecond))
	return err
}

func runWrite(cfg *config.Config, p *pool.Pool, logger *zap.Logger) error {
	style, err := chainwrite.ParseStyle(cfg.Write.Style)
	if err != nil {
		return err
	}
	payload, err := chainwrite.NewPayload()
	if err != nil {
		return err
	}

	start := time.Now()
	if err := chainwrite.Write(style, cfg.Write.Output, payload, chainwrite.WithExecutor(p)); err != nil {
		return err
	}
	_, digest, err := chainwrite.Verify(cfg.Write.Output)
	if err != nil {
		return err
	}
	logger.Info("chained write finished",
		zap.Stringer("style", style),
		zap.String("output", cfg.Write.Output),
		zap.Binary("digest", digest[:]),
		zap.Duration("elapsed", time.Since(start)),
	)
	fmt.Printf("wrote %s (%d bytes) digest=%x\n", cfg.Write.Output, chainwrite.PayloadSize+chainwrite.DigestSize, digest)
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return srv
}
