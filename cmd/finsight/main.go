// Command finsight serves the FinSight HTTP API: upload an SAP CSV
// export (or ingest a database table), then ask free-text questions
// about it.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finsight/finsight/api"
	"github.com/finsight/finsight/internal/analyzer"
	"github.com/finsight/finsight/internal/config"
	"github.com/finsight/finsight/internal/filestore"
	fsminio "github.com/finsight/finsight/internal/filestore/minio"
	"github.com/finsight/finsight/internal/insight"
	"github.com/finsight/finsight/internal/logger"
	"github.com/finsight/finsight/internal/planner"
	"github.com/finsight/finsight/internal/session"
	"github.com/finsight/finsight/internal/source"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Global().Errorf("config: %v", err)
		os.Exit(1)
	}

	logFormat := "json"
	if cfg.Logging.Pretty {
		logFormat = "console"
	}
	log := logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: logFormat,
		Output: os.Stdout,
	})
	logger.SetGlobal(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	an := analyzer.New(analyzer.Config{SampleSize: cfg.Analyzer.SampleSize}, log)

	sessions := session.NewMemory(session.Config{
		TTL:           cfg.Session.TTL,
		SweepInterval: cfg.Session.SweepInterval,
	}, log)
	defer sessions.Close()

	opts := api.Options{
		PlannerCfg: planner.Config{
			DefaultTopN:        cfg.Planner.DefaultTopN,
			ShortQuestionWords: cfg.Planner.ShortQuestionWords,
		},
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}

	if cfg.Insight.Enabled {
		gemini := insight.NewGemini(insight.Config{
			APIKey:  cfg.Insight.APIKey,
			Model:   cfg.Insight.Model,
			Timeout: cfg.Insight.Timeout,
		}, log)
		opts.Insights = insight.WithFallback(gemini)
	}

	if cfg.Filestore.Enabled {
		archive, err := fsminio.New(ctx, &filestore.Config{
			Provider:  filestore.ProviderMinIO,
			Endpoint:  cfg.Filestore.Endpoint,
			AccessKey: cfg.Filestore.AccessKey,
			SecretKey: cfg.Filestore.SecretKey,
			UseSSL:    cfg.Filestore.UseSSL,
			Bucket:    cfg.Filestore.Bucket,
		})
		if err != nil {
			log.Errorf("filestore: %v", err)
			os.Exit(1)
		}
		defer archive.Close()
		opts.Archive = archive
	}

	if cfg.Source.Enabled {
		srcCfg := source.DefaultConfig(cfg.Source.DSN)
		srcCfg.MaxRows = cfg.Source.MaxRows

		var src source.Source
		switch source.Driver(cfg.Source.Driver) {
		case source.DriverMySQL:
			src, err = source.NewMySQL(ctx, srcCfg, log)
		default:
			src, err = source.NewPostgres(ctx, srcCfg, log)
		}
		if err != nil {
			log.Errorf("source: %v", err)
			os.Exit(1)
		}
		defer src.Close()
		opts.Source = src
	}

	srv := api.NewServer(an, sessions, opts, log)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.With().Str("addr", cfg.Server.Addr).Logger().Info("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
	log.Info("server stopped")
}
