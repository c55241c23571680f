package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	zaplogfmt "github.com/sykesm/zap-logfmt"
	"github.com/thecodeteam/goodbye"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/simplesurance/snapbump/internal/bump"
	"github.com/simplesurance/snapbump/internal/cfg"
	"github.com/simplesurance/snapbump/internal/githubclt"
	"github.com/simplesurance/snapbump/internal/logfields"
	"github.com/simplesurance/snapbump/internal/snapstoreclt"
)

const appName = "snapbump"

var logger *zap.Logger

// Version is set via a ldflag on compilation
var Version = "unknown"

func exitOnErr(msg string, err error) {
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "ERROR:", msg+", error:", err.Error())
	os.Exit(1)
}

func panicHandler() {
	if r := recover(); r != nil {
		logger.Info(
			"panic caught , terminating gracefully",
			zap.String("panic", fmt.Sprintf("%v", r)),
			zap.StackSkip("stacktrace", 1),
		)

		ctx, cancelFn := context.WithTimeout(context.Background(), time.Minute)
		defer cancelFn()

		goodbye.Exit(ctx, 1)

	}
}

func startHTTPSServer(listenAddr string, certFile, keyFile string, mux *http.ServeMux) {
	httpsServer := http.Server{
		Addr:    listenAddr,
		Handler: mux,
	}

	goodbye.Register(func(context.Context, os.Signal) {
		const shutdownTimeout = 30 * time.Second
		ctx, cancelFn := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelFn()

		logger.Debug(
			"terminating https server",
			logfields.Event("https_server_terminating"),
			zap.Duration("shutdown_timeout", shutdownTimeout),
		)

		err := httpsServer.Shutdown(ctx)
		if err != nil {
			logger.Warn(
				"shutting down https server failed",
				logfields.Event("https_server_termination_failed"),
				zap.Error(err),
			)
		}
	})

	go func() {
		defer panicHandler()

		logger.Info(
			"https server started",
			logfields.Event("https_server_started"),
			zap.String("listenAddr", listenAddr),
		)

		err := httpsServer.ListenAndServeTLS(certFile, keyFile)
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("https server terminated", logfields.Event("https_server_terminated"))
			return
		}

		logger.Fatal(
			"https server terminated unexpectedly",
			logfields.Event("https_server_terminated_unexpectedly"),
			zap.Error(err),
		)
	}()
}

func startHTTPServer(listenAddr string, mux *http.ServeMux) {
	httpServer := http.Server{
		Addr:    listenAddr,
		Handler: mux,
	}

	goodbye.Register(func(context.Context, os.Signal) {
		const shutdownTimeout = 30 * time.Second
		ctx, cancelFn := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelFn()

		logger.Debug(
			"terminating http server",
			logfields.Event("http_server_terminating"),
			zap.Duration("shutdown_timeout", shutdownTimeout),
		)

		err := httpServer.Shutdown(ctx)
		if err != nil {
			logger.Warn(
				"shutting down http server failed",
				logfields.Event("http_server_termination_failed"),
				zap.Error(err),
			)
		}
	})

	go func() {
		defer panicHandler()

		logger.Info(
			"http server started",
			logfields.Event("http_server_started"),
			zap.String("listenAddr", listenAddr),
		)

		err := httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("http server terminated", logfields.Event("http_server_terminated"))
			return
		}

		logger.Fatal(
			"http server terminated unexpectedly",
			logfields.Event("http_server_terminated_unexpectedly"),
			zap.Error(err),
		)
	}()
}

type arguments struct {
	Verbose     *bool
	ConfigFile  *string
	ShowVersion *bool
	Oneshot     *bool
	DryRun      *bool
	Archs       *[]string
}

var args arguments

const defConfigFile = "/etc/snapbump/config.toml"

func mustParseCommandlineParams() {
	args = arguments{
		Verbose: pflag.BoolP(
			"verbose",
			"v",
			false,
			"enable verbose logging",
		),
		ConfigFile: pflag.StringP(
			"cfg-file",
			"c",
			defConfigFile,
			"path to the snapbump configuration file",
		),
		ShowVersion: pflag.Bool(
			"version",
			false,
			"print the version and exit",
		),
		Oneshot: pflag.Bool(
			"oneshot",
			false,
			"execute a single update run and exit instead of running as daemon",
		),
		DryRun: pflag.Bool(
			"dry-run",
			false,
			"simulate all github modifications",
		),
		Archs: pflag.StringSlice(
			"arch",
			nil,
			"restrict --oneshot runs to the given architectures, can be repeated",
		),
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]\nKeep pinned snap revisions in release branch manifests up to date via pull requests.\n", appName)
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()
}

func mustParseCfg() *cfg.Config {
	// we use exitOnErr in this function instead of logger.Fatal() because
	// the logger is not initialized yet

	file, err := os.Open(*args.ConfigFile)
	exitOnErr("could not open configuration files", err)
	defer file.Close()

	config, err := cfg.Load(file)
	if err != nil {
		exitOnErr(fmt.Sprintf("could not load configuration file: %s", *args.ConfigFile), err)
	}

	return config
}

func mustParseDuration(option, val string) time.Duration {
	d, err := time.ParseDuration(val)
	exitOnErr(fmt.Sprintf("configuration file defines an invalid duration %q for %s", val, option), err)

	return d
}

func initLogFmtLogger(config *cfg.Config, logLevel zapcore.Level) *zap.Logger {
	cfg := zapEncoderConfig(config)

	logger := zap.New(zapcore.NewCore(
		zaplogfmt.NewEncoder(cfg),
		os.Stdout,
		logLevel),
	)

	return logger
}

func zapEncoderConfig(config *cfg.Config) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()

	cfg.LevelKey = "loglevel"
	cfg.TimeKey = config.LogTimeKey
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder

	return cfg
}

func mustInitZapFormatLogger(config *cfg.Config, logLevel zapcore.Level) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	cfg.EncoderConfig = zapEncoderConfig(config)
	cfg.OutputPaths = []string{"stdout"}
	cfg.Encoding = config.LogFormat
	cfg.Level = zap.NewAtomicLevelAt(logLevel)

	logger, err := cfg.Build()
	exitOnErr("could not initialize logger", err)

	return logger
}

func mustInitLogger(config *cfg.Config) {
	var logLevel zapcore.Level
	if *args.Verbose {
		logLevel = zapcore.DebugLevel
	} else {
		if err := (&logLevel).Set(config.LogLevel); err != nil {
			fmt.Fprintf(os.Stderr, "can not set log level to %q: %s \n", config.LogLevel, err)
			os.Exit(2)
		}
	}

	switch config.LogFormat {
	case "logfmt":
		logger = initLogFmtLogger(config, logLevel)
	case "console", "json":
		logger = mustInitZapFormatLogger(config, logLevel)
	default:
		fmt.Fprintf(os.Stderr, "unsupported log-format argument: %q\n", config.LogFormat)
		os.Exit(2)
	}

	logger = logger.Named("main")
	zap.ReplaceGlobals(logger)

	goodbye.Register(func(context.Context, os.Signal) {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "flushing logs failed: %s\n", err)
		}
	})
}

func hide(in string) string {
	if in == "" {
		return in
	}

	return "**hidden**"
}

func main() {
	defer panicHandler()

	defer goodbye.Exit(context.Background(), 1)
	goodbye.Notify(context.Background())

	mustParseCommandlineParams()

	if *args.ShowVersion {
		fmt.Printf("%s %s\n", appName, Version)
		os.Exit(0) // nolint:gocritic // defer functions won't run
	}

	config := mustParseCfg()

	mustInitLogger(config)

	runInterval := mustParseDuration("updater.run_interval", config.Updater.RunInterval)
	lookupTimeout := mustParseDuration("updater.lookup_timeout", config.Updater.LookupTimeout)

	targets, err := bump.TargetsFromCfg(config)
	exitOnErr(fmt.Sprintf("could not parse targets from configuration file: %s", *args.ConfigFile), err)

	var ghClient bump.GithubClient = githubclt.New(config.GithubAPIToken)

	dryRun := config.Updater.DryRun || *args.DryRun
	if dryRun {
		ghClient = bump.NewDryGithubClient(ghClient)
	}

	var storeOpts []snapstoreclt.Option
	if config.SnapStoreURL != "" {
		storeOpts = append(storeOpts, snapstoreclt.WithBaseURL(config.SnapStoreURL))
	}

	storeClient := snapstoreclt.New(storeOpts...)

	retryer := bump.NewRetryer()
	goodbye.Register(func(context.Context, os.Signal) {
		retryer.Stop()
	})

	bumper, err := bump.New(
		ghClient,
		storeClient,
		retryer,
		targets,
		bump.WithWorkers(config.Updater.Workers),
		bump.WithLookupTimeout(lookupTimeout),
		bump.WithHeadBranchPrefix(config.Updater.HeadBranchPrefix),
		bump.WithPRLabel(config.Updater.PRLabel),
		bump.WithProposalTemplates(config.Updater.PRTitleTemplate, config.Updater.PRBodyTemplate),
	)
	exitOnErr("could not initialize the updater", err)

	logger.Info(
		"loaded cfg file",
		logfields.Event("cfg_loaded"),
		zap.String("cfg_file", *args.ConfigFile),
		zap.String("http_server_listen_addr", config.HTTPListenAddr),
		zap.String("https_server_listen_addr", config.HTTPSListenAddr),
		zap.String("status_endpoint", config.StatusEndpoint),
		zap.String("trigger_endpoint", config.TriggerEndpoint),
		zap.String("metrics_endpoint", config.MetricsEndpoint),
		zap.String("github_api_token", hide(config.GithubAPIToken)),
		zap.String("snap_store_url", config.SnapStoreURL),
		zap.String("log_format", config.LogFormat),
		zap.String("log_time_key", config.LogTimeKey),
		zap.String("log_level", config.LogLevel),
		zap.Duration("updater.run_interval", runInterval),
		zap.Duration("updater.lookup_timeout", lookupTimeout),
		zap.Int("updater.workers", config.Updater.Workers),
		zap.Bool("updater.dry_run", dryRun),
		zap.String("updater.pr_label", config.Updater.PRLabel),
		zap.String("updater.head_branch_prefix", config.Updater.HeadBranchPrefix),
		zap.Int("target_count", len(targets)),
	)

	goodbye.Register(func(_ context.Context, sig os.Signal) {
		logger.Info(fmt.Sprintf("terminating, received signal %s", sig.String()))
	})

	if *args.Oneshot {
		_, err := bumper.Run(context.Background(), *args.Archs)
		if err != nil {
			logger.Error(
				"update run failed",
				logfields.Event("run_failed"),
				zap.Error(err),
			)

			goodbye.Exit(context.Background(), 1)
		}

		goodbye.Exit(context.Background(), 0)

		return
	}

	if config.HTTPListenAddr == "" && config.HTTPSListenAddr == "" {
		fmt.Fprintf(os.Stderr, "https_server_listen_addr or http_server_listen_addr must be defined in the config file, both are unset")
		os.Exit(1)
	}

	evLoop := bump.NewEventLoop(bumper, runInterval)
	go evLoop.Start()

	goodbye.Register(func(context.Context, os.Signal) {
		logger.Debug(
			"stopping event loop",
			logfields.Event("event_loop_stopping"),
		)

		evLoop.Stop()
	})

	mux := http.NewServeMux()

	httpService := bump.NewHTTPService(evLoop, targets)
	httpService.RegisterHandlers(mux, config.StatusEndpoint, config.TriggerEndpoint)

	mux.Handle(config.MetricsEndpoint, promhttp.Handler())

	logger.Info(
		"registered http endpoints",
		logfields.Event("http_handlers_registered"),
		zap.String("status_endpoint", config.StatusEndpoint),
		zap.String("trigger_endpoint", config.TriggerEndpoint),
		zap.String("metrics_endpoint", config.MetricsEndpoint),
	)

	if config.HTTPListenAddr != "" {
		startHTTPServer(config.HTTPListenAddr, mux)
	}

	if config.HTTPSListenAddr != "" {
		startHTTPSServer(
			config.HTTPSListenAddr,
			config.HTTPSCertFile,
			config.HTTPSKeyFile,
			mux,
		)
	}

	select {}
}
