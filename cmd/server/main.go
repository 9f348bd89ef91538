// Package main is the entry point for the adhocdist server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"adhocdist/internal/appstore"
	"adhocdist/internal/auth"
	"adhocdist/internal/config"
	"adhocdist/internal/controller"
	"adhocdist/internal/controller/handlers"
	"adhocdist/internal/lifecycle"
	"adhocdist/internal/logger"
	"adhocdist/internal/notify"
	"adhocdist/internal/observability"
	"adhocdist/internal/pipeline"
	"adhocdist/internal/profile"
	"adhocdist/internal/store"
	"adhocdist/internal/store/memory"
	"adhocdist/internal/store/postgres"
	"adhocdist/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: adhocdist.yaml in current directory)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server exited properly")
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, w := range cfg.Warnings() {
		log.Warn("configuration", "warning", w)
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "adhocdist", cfg.OTELEndpoint)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics(ctx, "adhocdist")
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Error("failed to shutdown metrics", "error", err)
		}
	}()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	log.Info("store ready", "backend", cfg.Store)

	var vendor lifecycle.Vendor
	if cfg.VendorEnabled() {
		tokens, err := appstore.NewTokenIssuer(cfg.ASCIssuerID, cfg.ASCKeyID, cfg.ASCPrivateKey)
		if err != nil {
			return fmt.Errorf("app store connect key: %w", err)
		}
		vendor = appstore.NewClient(cfg.ASCAPIBase, tokens)
	}

	dispatcher := pipeline.NewDispatcher(pipeline.Config{
		Owner:      cfg.GitHubOwner,
		Repo:       cfg.GitHubRepo,
		WorkflowID: cfg.GitHubWorkflowID,
		Token:      cfg.GitHubToken,
		Ref:        cfg.GitHubRef,
		APIBase:    cfg.GitHubAPIBase,
	})

	var sender notify.Sender = &notify.LogSender{Logger: log}
	if cfg.MailEnabled() {
		sender = notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.EmailFrom,
		})
	}
	notifier := notify.New(sender, cfg.AppName)

	signer, err := profile.NewSigner(cfg.SSLCert, cfg.SSLKey)
	if err != nil {
		return fmt.Errorf("profile signing identity: %w", err)
	}
	profiles := profile.NewBuilder(profile.Config{
		PublicBaseURL: cfg.PublicBaseURL,
		Organization:  cfg.OrgName,
	}, signer)

	creds, err := auth.NewStaticCredentials(cfg.AdminUser, cfg.AdminPass, cfg.AdminPassHash)
	if err != nil {
		return fmt.Errorf("admin credentials: %w", err)
	}

	// Background executor for post-acknowledgement work. It gets its own
	// context so in-flight provisioning can drain after the HTTP server stops.
	pool := worker.New(worker.Config{
		Concurrency: cfg.WorkerConcurrency,
		TaskTimeout: cfg.WorkerTaskTimeout,
	}, log)
	poolCtx, stopPool := context.WithCancel(context.Background())
	go pool.Run(poolCtx)

	app := lifecycle.New(lifecycle.Deps{
		Store:    st,
		Vendor:   vendor,
		Trigger:  dispatcher,
		Notifier: notifier,
		Executor: pool,
	}, lifecycle.Config{
		PublicBaseURL: cfg.PublicBaseURL,
		AppName:       cfg.AppName,
	}, log)

	checks := []handlers.Check{{Name: "store", Check: st.Ping}}
	if cfg.MailEnabled() {
		checks = append(checks, handlers.Check{Name: "mail", Check: notifier.Verify})
	}

	srv := controller.New(controller.Config{
		Addr:           fmt.Sprintf(":%d", cfg.HTTPPort),
		AdminAuth:      creds,
		CallbackSecret: cfg.BuildCallbackSecret,
		Metrics:        metricsHandler,
		Logger:         log,
	}, handlers.New(app, profiles, log, checks...))

	log.Info("adhocdist starting",
		"port", cfg.HTTPPort,
		"public_url", cfg.PublicBaseURL,
		"vendor", cfg.VendorEnabled(),
		"mail", cfg.MailEnabled(),
		"signed_profiles", signer.Enabled(),
	)
	serveErr := srv.Run(ctx)

	log.Info("draining background work")
	stopPool()
	<-pool.Done()

	return serveErr
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Store == config.StorePostgres {
		st, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		return st, nil
	}
	return memory.New(), nil
}
