package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/agent"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/agent/providers"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/config"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/observability"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/executor"
)

// loadConfig loads the config file with the run flags applied on top.
func loadConfig(opts runOptions) (*config.Config, error) {
	return config.Load(opts.configPath, func(cfg *config.Config) {
		if opts.provider != "" {
			if !strings.EqualFold(opts.provider, cfg.Provider.Name) {
				// A key configured for another provider must not leak.
				cfg.Provider.APIKey = ""
				cfg.Provider.BaseURL = ""
				cfg.Provider.Model = ""
			}
			cfg.Provider.Name = opts.provider
		}
		if opts.model != "" {
			cfg.Provider.Model = opts.model
		}
		if opts.baseURL != "" {
			cfg.Provider.BaseURL = opts.baseURL
		}
		if opts.workspace != "" {
			cfg.Workspace = opts.workspace
		}
		if opts.maxRounds != 0 {
			cfg.Agent.MaxRounds = opts.maxRounds
		}
		if opts.system != "" {
			cfg.Agent.SystemPrompt = opts.system
		}
		if opts.metricsAddr != "" {
			cfg.Observability.MetricsAddr = opts.metricsAddr
		}
	})
}

func newLogger(cfg *config.Config, out io.Writer) *slog.Logger {
	return observability.NewLogger(observability.LogConfig{
		Level:          cfg.Logging.Level,
		Format:         cfg.Logging.Format,
		Output:         out,
		AddSource:      cfg.Logging.AddSource,
		RedactPatterns: cfg.Logging.RedactPatterns,
	})
}

// resolveWorkspace returns the absolute workspace root, which must be an
// existing directory.
func resolveWorkspace(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve workspace: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("workspace: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("workspace %s is not a directory", abs)
	}
	return abs, nil
}

// stack is everything a run needs, built from the config.
type stack struct {
	logger       *slog.Logger
	metrics      *observability.Metrics
	tracer       *observability.Tracer
	orchestrator *agent.Orchestrator
	executor     *executor.Executor
	shutdown     []func(context.Context) error
}

func (rt *stack) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.shutdown) - 1; i >= 0; i-- {
		errs = append(errs, rt.shutdown[i](ctx))
	}
	return errors.Join(errs...)
}

// buildStack wires observability, the provider, the executor and the
// orchestrator in that order.
func buildStack(cfg *config.Config, logOut io.Writer) (*stack, error) {
	workspace, err := resolveWorkspace(cfg.Workspace)
	if err != nil {
		return nil, err
	}
	rt := &stack{logger: newLogger(cfg, logOut)}

	if addr := cfg.Observability.MetricsAddr; addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		rt.metrics = observability.NewMetrics(reg)
		stop, err := serveMetrics(addr, reg, rt.logger)
		if err != nil {
			return nil, err
		}
		rt.shutdown = append(rt.shutdown, stop)
	}

	if tracing := cfg.Observability.Tracing; tracing.Enabled {
		tracer, stop := observability.NewTracer(observability.TraceConfig{
			ServiceName:    tracing.ServiceName,
			ServiceVersion: version,
			Environment:    tracing.Environment,
			Endpoint:       tracing.Endpoint,
			SamplingRate:   tracing.SamplingRate,
			Attributes:     tracing.Attributes,
			EnableInsecure: tracing.Insecure,
		})
		rt.tracer = tracer
		rt.shutdown = append(rt.shutdown, stop)
	}

	provider, err := providers.New(providerConfig(cfg, rt))
	if err != nil {
		_ = rt.Close(context.Background())
		return nil, err
	}

	rt.executor = executor.New(executor.Config{
		Workspace:         workspace,
		AllowedRoots:      cfg.Tools.AllowedRoots,
		AllowedBinaries:   cfg.Tools.AllowedBinaries,
		MaxCallsPerMinute: cfg.Tools.MaxCallsPerMinute,
		OutputBudget:      cfg.Tools.OutputBudget,
		CommandTimeout:    cfg.Tools.CommandTimeout,
		PythonBinary:      cfg.Tools.PythonBinary,
		Ripgrep:           cfg.Tools.Ripgrep,
		Logger:            rt.logger,
		Metrics:           rt.metrics,
		Tracer:            rt.tracer,
	})

	rt.orchestrator, err = agent.NewOrchestrator(provider, rt.executor,
		agent.WithMaxRounds(cfg.Agent.MaxRounds),
		agent.WithLogger(rt.logger),
		agent.WithMetrics(rt.metrics),
		agent.WithTracer(rt.tracer),
	)
	if err != nil {
		_ = rt.Close(context.Background())
		return nil, err
	}
	return rt, nil
}

func providerConfig(cfg *config.Config, rt *stack) providers.Config {
	return providers.Config{
		Provider:    cfg.Provider.Name,
		Model:       cfg.Provider.Model,
		APIKey:      cfg.Provider.APIKey,
		BaseURL:     cfg.Provider.BaseURL,
		Temperature: cfg.Agent.Temperature,
		MaxTokens:   cfg.Provider.MaxTokens,
		Timeout:     cfg.Provider.Timeout,
		MaxRetries:  cfg.Provider.MaxRetries,
		RetryDelay:  cfg.Provider.RetryDelay,
		Logger:      rt.logger,
		Metrics:     rt.metrics,
		Tracer:      rt.tracer,
	}
}

// serveMetrics exposes reg on addr until the returned stop is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) (func(context.Context) error, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", listener.Addr().String())
	return server.Shutdown, nil
}
