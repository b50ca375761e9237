package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_zap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	grpc_ctxtags "github.com/grpc-ecosystem/go-grpc-middleware/tags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/npk/config"
	"xdao.co/npk/logging"
	"xdao.co/npk/storage"
	"xdao.co/npk/storage/grpcstore"
	"xdao.co/npk/storage/registry"

	_ "xdao.co/npk/storage/ipfs"
	_ "xdao.co/npk/storage/localfs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type stringList []string

func (s *stringList) String() string { return fmt.Sprint(*s) }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func run(ctx context.Context, args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("npk-stored", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var (
		configPath    string
		listen        string
		metricsListen string
		backend       string
		opts          stringList
		maxMsgBytes   int
		listBackends  bool
		logLevel      string
		logFormat     string
	)
	fs.StringVar(&configPath, "config", "", "Config file (YAML or JSON)")
	fs.StringVar(&listen, "listen", "", "gRPC listen address (default from config, 127.0.0.1:7420)")
	fs.StringVar(&metricsListen, "metrics-listen", "", "Serve Prometheus metrics on this address")
	fs.StringVar(&backend, "backend", "", "Backend name (default: store section of --config)")
	fs.Var(&opts, "opt", "Backend option key=value (repeatable)")
	fs.IntVar(&maxMsgBytes, "max-msg-bytes", 0, "Max gRPC message size in bytes; 0 uses grpc defaults")
	fs.BoolVar(&listBackends, "list-backends", false, "List supported backends and exit")
	fs.StringVar(&logLevel, "log-level", "", "Log level")
	fs.StringVar(&logFormat, "log-format", "", "Log format (console, json, logfmt)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if listBackends {
		for _, b := range registry.List(registry.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(out, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
		}
		return 0
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return 2
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if listen != "" {
		cfg.Server.Listen = listen
	}
	if metricsListen != "" {
		cfg.Server.MetricsListen = metricsListen
	}
	if maxMsgBytes > 0 {
		cfg.Server.MaxMsgBytes = maxMsgBytes
	}

	lc := cfg.Log.Logging()
	lc.Writer = errOut
	logger, err := logging.New(lc)
	if err != nil {
		fmt.Fprintf(errOut, "logging: %v\n", err)
		return 2
	}
	defer func() { _ = logger.Sync() }()

	st, err := openStore(cfg, backend, opts, logger)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	defer func() { _ = storage.Close(st) }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := grpcstore.NewMetrics(reg)
	if err != nil {
		fmt.Fprintf(errOut, "metrics: %v\n", err)
		return 1
	}

	lis, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	srv := newServer(st, logger, metrics, cfg.Server.MaxMsgBytes)
	errc := make(chan error, 2)
	go func() { errc <- srv.Serve(lis) }()
	logger.Info("serving", zap.String("addr", lis.Addr().String()), zap.String("service", grpcstore.ServiceName))

	var metricsSrv *http.Server
	if cfg.Server.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		metricsSrv = &http.Server{Addr: cfg.Server.MetricsListen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()
		logger.Info("serving metrics", zap.String("addr", cfg.Server.MetricsListen))
	}

	code := 0
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errc:
		logger.Error("server stopped", zap.Error(err))
		code = 1
	}
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsSrv.Shutdown(shutdownCtx)
		cancel()
	}
	srv.GracefulStop()
	return code
}

func openStore(cfg config.Config, backend string, pairs []string, logger *zap.Logger) (storage.Store, error) {
	if backend != "" {
		opts, err := registry.ParseOptions(pairs)
		if err != nil {
			return nil, err
		}
		return registry.Open(backend, registry.UsageDaemon, opts, logger)
	}
	if len(pairs) > 0 {
		return nil, errors.New("--opt requires --backend")
	}
	if len(cfg.Store.Backends) == 0 {
		return nil, fmt.Errorf("no --backend given and no store configured (available: %v)", registry.Names(registry.UsageDaemon))
	}
	return cfg.Store.Open(registry.UsageDaemon, "", logger)
}

func newServer(st storage.Store, logger *zap.Logger, metrics *grpcstore.Metrics, maxMsgBytes int) *grpc.Server {
	recoveryOpts := []grpc_recovery.Option{
		grpc_recovery.WithRecoveryHandler(func(p interface{}) error {
			logger.Error("recovered from panic", zap.Any("panic", p))
			return status.Error(codes.Internal, "internal error")
		}),
	}
	interceptors := []grpc.UnaryServerInterceptor{
		grpc_ctxtags.UnaryServerInterceptor(),
		grpc_zap.UnaryServerInterceptor(logger.Named("grpc")),
	}
	if metrics != nil {
		interceptors = append(interceptors, metrics.UnaryServerInterceptor())
	}
	interceptors = append(interceptors, grpc_recovery.UnaryServerInterceptor(recoveryOpts...))

	opts := []grpc.ServerOption{grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(interceptors...))}
	if maxMsgBytes > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(maxMsgBytes), grpc.MaxSendMsgSize(maxMsgBytes))
	}
	srv := grpc.NewServer(opts...)
	grpcstore.RegisterPackageStoreServer(srv, &grpcstore.Server{Store: st, Logger: logger.Named("store"), Metrics: metrics})
	return srv
}
