package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gigapi/compactor/compactor"
	"github.com/gigapi/compactor/config"
	"github.com/gigapi/compactor/lakefs"
	"github.com/gigapi/compactor/logger"
	"github.com/gigapi/compactor/model"
	"github.com/gigapi/compactor/router"
	"github.com/gigapi/compactor/service/db"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// initFlags initializes the command line flags
func initFlags() *model.CommandLineFlags {

	appFlags := &model.CommandLineFlags{}
	appFlags.Config = flag.String("config", "", "Configuration file. Default to environment only.")
	appFlags.LogLevel = flag.String("log-level", "", "Log level: debug, info or none. Overrides LOG_LEVEL.")
	appFlags.Listen = flag.String("listen", "", "Admin API address, e.g. :8123. Overrides LISTEN.")
	flag.Parse()

	return appFlags
}

var appFlags *model.CommandLineFlags

func main() {
	appFlags = initFlags()
	config.InitConfig(*appFlags.Config)
	cfg := config.Config
	if *appFlags.LogLevel != "" {
		cfg.LogLevel = *appFlags.LogLevel
	}
	if *appFlags.Listen != "" {
		cfg.Listen = *appFlags.Listen
	}

	log, err := logger.GetLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q: %v\n", cfg.LogLevel, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("compactor exited", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Configuration, log *zap.Logger) error {
	setup, err := bootstrap(cfg)
	if err != nil {
		return err
	}
	if cfg.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return fmt.Errorf("create db directory: %w", err)
		}
	}
	session, err := db.NewSession(ctx, cfg.DBPath, log.Named("duckdb"), setup...)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("closing duckdb session", zap.Error(err))
		}
	}()

	filter, err := lakefs.CompileFilter(cfg.File.Filter)
	if err != nil {
		return err
	}
	client, err := lakefs.New(cfg.LakeFS, filter, log.Named("lakefs"))
	if err != nil {
		return err
	}
	c, err := compactor.New(session, client, compactor.OptionsFromConfig(cfg), log.Named("compactor"))
	if err != nil {
		return err
	}

	var (
		srv *http.Server
		ln  net.Listener
	)
	if cfg.Listen != "" {
		if ln, err = net.Listen("tcp", cfg.Listen); err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.Listen, err)
		}
		srv = &http.Server{Handler: router.NewRouter(c, log.Named("api"))}
		log.Info("admin API running", zap.String("listen", ln.Addr().String()))
	}
	return supervise(ctx, log, func(ctx context.Context) error {
		_, err := c.Run(ctx)
		return err
	}, srv, ln)
}

// supervise runs the compaction next to the optional admin server. The server
// keeps answering after a successful run until ctx is cancelled, so the final
// statistics stay readable; a failed run stops it.
func supervise(ctx context.Context, log *zap.Logger, run func(context.Context) error,
	srv *http.Server, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := run(gctx); err != nil {
			return err
		}
		if srv != nil {
			log.Info("compaction finished, serving admin API until interrupted")
		}
		return nil
	})
	if srv != nil {
		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}

// bootstrap returns the engine statements: the lakeFS S3 settings followed by
// the queries of the optional setup file.
func bootstrap(cfg *config.Configuration) ([]string, error) {
	host, _ := cfg.LakeFS.S3Endpoint()
	setup := db.S3Setup(host, cfg.LakeFS.AccessKey, cfg.LakeFS.SecretKey)
	if cfg.DBSetupFile == "" {
		return setup, nil
	}
	extra, err := config.LoadSetup(cfg.DBSetupFile)
	if err != nil {
		return nil, err
	}
	return append(setup, extra.OnStart.Queries...), nil
}
