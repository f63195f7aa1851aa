// Package app builds the dropscout object graph from configuration and owns
// the lifetime of every long-lived client.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/dropscout/internal/api"
	"github.com/JakeFAU/dropscout/internal/clock/system"
	"github.com/JakeFAU/dropscout/internal/compose"
	"github.com/JakeFAU/dropscout/internal/config"
	"github.com/JakeFAU/dropscout/internal/drops"
	collyfetcher "github.com/JakeFAU/dropscout/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/dropscout/internal/fetcher/headless"
	"github.com/JakeFAU/dropscout/internal/headless/detector"
	"github.com/JakeFAU/dropscout/internal/logging"
	"github.com/JakeFAU/dropscout/internal/metrics"
	"github.com/JakeFAU/dropscout/internal/pipeline"
	"github.com/JakeFAU/dropscout/internal/preview"
	memorypublisher "github.com/JakeFAU/dropscout/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/dropscout/internal/publisher/pubsub"
	"github.com/JakeFAU/dropscout/internal/report"
	gcsstorage "github.com/JakeFAU/dropscout/internal/storage/gcs"
	localstorage "github.com/JakeFAU/dropscout/internal/storage/local"
	memorystore "github.com/JakeFAU/dropscout/internal/storage/memory"
	pgstore "github.com/JakeFAU/dropscout/internal/storage/postgres"
	"github.com/JakeFAU/dropscout/internal/verify"
	"github.com/JakeFAU/dropscout/internal/xapi"
)

const shutdownTimeout = 10 * time.Second

// App contains the application's dependencies.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	clock  drops.Clock

	store    drops.Store
	postgres *pgstore.Store
	x        *xapi.Client

	renderer     *headlessfetcher.Renderer
	pubsubClient *pubsub.Client
	topic        *pubsub.Topic
	gcs          *storage.Client

	reporter   *report.Reporter
	runner     *pipeline.Runner
	review     *pipeline.ReviewQueue
	reconciler *pipeline.Reconciler
}

// Build creates the application's dependencies. The caller must Close the
// returned App.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	return BuildWithLogger(ctx, cfg, logger)
}

// BuildWithLogger is Build with a caller-supplied logger.
func BuildWithLogger(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	app := &App{cfg: cfg, logger: logger, clock: system.New()}
	defer func() {
		if err != nil {
			app.closeInfrastructure()
		}
	}()

	logger.Info("building application dependencies",
		zap.Bool("dry_run", cfg.DryRun),
		zap.String("store", cfg.Store.Backend),
		zap.String("publisher", cfg.Publisher.Backend),
		zap.String("preview", cfg.Preview.Backend),
	)

	if err = setupStore(ctx, app); err != nil {
		return nil, err
	}
	if err = setupReporter(app); err != nil {
		return nil, err
	}
	app.x, err = xapi.New(xapi.Config{
		BaseURL:     cfg.X.BaseURL,
		BearerToken: cfg.X.BearerToken,
		UserToken:   cfg.X.UserToken,
		Timeout:     cfg.X.Timeout,
		RPS:         cfg.X.LookupRPS,
	}, app.logger)
	if err != nil {
		return nil, fmt.Errorf("x client init failed: %w", err)
	}
	publisher, err := setupPublisher(ctx, app)
	if err != nil {
		return nil, err
	}
	previewer, err := setupPreview(ctx, app)
	if err != nil {
		return nil, err
	}
	verifier, err := setupVerifier(app)
	if err != nil {
		return nil, err
	}
	if err = setupPipeline(app, publisher, previewer, verifier); err != nil {
		return nil, err
	}
	return app, nil
}

func setupStore(ctx context.Context, app *App) error {
	switch app.cfg.Store.Backend {
	case config.StoreMemory:
		app.logger.Warn("using in-memory state store; state is lost on exit")
		app.store = memorystore.NewStore()
	default:
		pg, err := pgstore.New(ctx, pgstore.Config{
			DSN:             app.cfg.Database.DSN,
			MaxConns:        app.cfg.Database.MaxConns,
			MinConns:        app.cfg.Database.MinConns,
			MaxConnLifetime: app.cfg.Database.MaxConnLifetime,
		})
		if err != nil {
			return fmt.Errorf("state store init failed: %w", err)
		}
		app.postgres = pg
		app.store = pg
		app.logger.Info("postgres state store initialized")
	}
	return nil
}

func setupReporter(app *App) error {
	runID, err := report.NewRunID()
	if err != nil {
		return fmt.Errorf("run id: %w", err)
	}
	sinks := []report.Sink{
		report.NewStoreSink(app.store),
		report.NewLogSink(app.logger.Named("decisions")),
	}
	if app.cfg.Metrics.Enabled {
		prom, err := report.NewPrometheusSink(nil)
		if err != nil {
			return fmt.Errorf("prometheus sink init failed: %w", err)
		}
		sinks = append(sinks, prom)
	}
	app.reporter = report.New(runID, app.clock, sinks...)
	app.logger = app.logger.With(zap.String("run_id", runID))
	return nil
}

func setupPublisher(ctx context.Context, app *App) (drops.Publisher, error) {
	switch app.cfg.Publisher.Backend {
	case config.PublisherMemory:
		app.logger.Warn("using in-memory publisher; threads are not sent anywhere")
		return memorypublisher.New(), nil
	case config.PublisherPubSub:
		var err error
		app.pubsubClient, err = pubsub.NewClient(ctx, app.cfg.Publisher.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("pubsub client init failed: %w", err)
		}
		app.topic = app.pubsubClient.Topic(app.cfg.Publisher.TopicName)
		app.logger.Info("Pub/Sub publisher initialized",
			zap.String("project", app.cfg.Publisher.ProjectID),
			zap.String("topic", app.cfg.Publisher.TopicName),
		)
		return gcppublisher.New(app.topic), nil
	default:
		return app.x, nil
	}
}

func setupPreview(ctx context.Context, app *App) (drops.Previewer, error) {
	logPreview := preview.NewLog(app.logger)
	switch app.cfg.Preview.Backend {
	case config.PreviewLocal:
		blobs, err := localstorage.New(localstorage.Config{BaseDir: app.cfg.Preview.Dir})
		if err != nil {
			return nil, fmt.Errorf("local preview store init failed: %w", err)
		}
		app.logger.Debug("local preview store", zap.String("dir", app.cfg.Preview.Dir))
		return preview.Multi{logPreview, preview.NewBlob(blobs, app.reporter.RunID(), app.clock)}, nil
	case config.PreviewGCS:
		var err error
		app.gcs, err = storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		blobs, err := gcsstorage.New(app.gcs, gcsstorage.Config{
			Bucket: app.cfg.Preview.Bucket,
			Prefix: app.cfg.Preview.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("gcs preview store init failed: %w", err)
		}
		app.logger.Debug("GCS preview store", zap.String("bucket", app.cfg.Preview.Bucket))
		return preview.Multi{logPreview, preview.NewBlob(blobs, app.reporter.RunID(), app.clock)}, nil
	default:
		return logPreview, nil
	}
}

func setupVerifier(app *App) (*verify.Verifier, error) {
	vc := app.cfg.Verify
	deps := verify.Dependencies{
		Probe: collyfetcher.New(collyfetcher.Config{
			UserAgent:     vc.UserAgent,
			RespectRobots: vc.RespectRobots,
			Timeout:       vc.Timeout,
			MaxBodyBytes:  vc.MaxBodyBytes,
		}),
		Profiles: app.x,
		Logger:   app.logger,
	}
	if vc.Headless.Enabled {
		renderer, err := headlessfetcher.New(headlessfetcher.Config{
			MaxParallel:       vc.Headless.MaxParallel,
			UserAgent:         vc.UserAgent,
			NavigationTimeout: vc.Headless.NavTimeout,
			MaxBodyBytes:      vc.MaxBodyBytes,
		})
		if err != nil {
			return nil, fmt.Errorf("headless renderer init failed: %w", err)
		}
		app.renderer = renderer
		deps.Renderer = renderer
		deps.Detector = detector.NewHeuristic(vc.Headless.ThinBodyBytes)
		app.logger.Info("headless render fallback enabled", zap.Int("max_parallel", vc.Headless.MaxParallel))
	}
	return verify.New(verify.Config{ProfileCacheTTL: vc.ProfileCacheTTL}, deps), nil
}

func setupPipeline(app *App, publisher drops.Publisher, previewer drops.Previewer, verifier drops.Verifier) error {
	cfg := app.cfg
	deps := pipeline.Dependencies{
		Store: app.store,
		Composer: compose.New(compose.Config{
			AccountTag:       cfg.Compose.AccountTag,
			TemplateRotation: cfg.Compose.TemplateRotation,
			SelfReplyEnabled: cfg.Compose.SelfReplyEnabled,
			SelfReplyText:    cfg.Compose.SelfReplyText,
			CardTitle:        cfg.Compose.CardTitle,
			CardFooter:       cfg.Compose.CardFooter,
		}),
		Publisher: publisher,
		Previewer: previewer,
		Reporter:  app.reporter,
		Clock:     app.clock,
		Logger:    app.logger,
	}

	day, err := pipeline.ParseWeekday(cfg.Cadence.WeeklyDigestDay)
	if err != nil {
		return err
	}
	cadence, err := pipeline.NewCadence(pipeline.CadenceConfig{
		CTAEveryN:    cfg.Cadence.CTAEveryNPosts,
		CTAText:      cfg.Cadence.CTAText,
		LinkHubURL:   cfg.Cadence.LinkHubURL,
		WeeklyDigest: cfg.Cadence.WeeklyDigest,
		DigestDay:    day,
		DryRun:       cfg.DryRun,
	}, deps)
	if err != nil {
		return fmt.Errorf("cadence init failed: %w", err)
	}

	evaluator, err := pipeline.NewEvaluator(pipeline.EvaluatorConfig{
		Policy: pipeline.Policy{
			RequireHTTPS:     cfg.Policy.RequireHTTPS,
			BlockShorteners:  cfg.Policy.BlockShorteners,
			RejectSocialOnly: cfg.Policy.RejectSocialOnly,
			Allowlist:        cfg.Policy.AllowlistDomains,
			OnlyVerified:     cfg.Policy.OnlyVerified,
			AutoPost:         cfg.Policy.AutoPost,
		},
		Thresholds: pipeline.Thresholds{
			MinVerified:   cfg.Thresholds.MinScoreVerified,
			MinUnverified: cfg.Thresholds.MinScoreUnverified,
			QueueMin:      cfg.Thresholds.QueueMinScore,
		},
		MaxPostsPerRun: cfg.Run.MaxPostsPerRun,
		DryRun:         cfg.DryRun,
	}, verifier, nil, cadence, deps)
	if err != nil {
		return fmt.Errorf("evaluator init failed: %w", err)
	}

	sponsored := pipeline.SponsoredConfig{
		Enabled: cfg.Sponsored.Mode,
		Sponsored: compose.Sponsored{
			Title:       cfg.Sponsored.Title,
			Project:     cfg.Sponsored.Project,
			OfficialURL: cfg.Sponsored.OfficialURL,
			Note:        cfg.Sponsored.Note,
			Tag:         cfg.Sponsored.Tag,
		},
	}
	if sponsored.Enabled && !sponsored.Active() {
		app.logger.Warn("sponsored mode is on but project or official_url is missing; evaluating candidates instead")
	}
	if app.runner, err = pipeline.NewRunner(app.x, sponsored, cfg.DryRun, cadence, evaluator, deps); err != nil {
		return fmt.Errorf("runner init failed: %w", err)
	}
	if app.review, err = pipeline.NewReviewQueue(pipeline.ReviewConfig{
		BatchSize:    cfg.Run.ApprovePostLimit,
		OnlyVerified: cfg.Policy.OnlyVerified,
		DryRun:       cfg.DryRun,
	}, cadence, deps); err != nil {
		return fmt.Errorf("review queue init failed: %w", err)
	}
	if app.reconciler, err = pipeline.NewReconciler(pipeline.ReconcileConfig{
		DryRun: cfg.DryRun,
		Grace:  cfg.Run.ReconcileGrace,
	}, cadence, deps); err != nil {
		return fmt.Errorf("reconciler init failed: %w", err)
	}
	return nil
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Run searches for candidates and evaluates them.
func (a *App) Run(ctx context.Context) (pipeline.RunResult, error) {
	if err := a.cfg.RequireSearch(); err != nil {
		return pipeline.RunResult{}, err
	}
	if err := a.cfg.RequirePublish(); err != nil {
		return pipeline.RunResult{}, err
	}
	return a.runner.Run(ctx, drops.Query{
		Keywords:   a.cfg.Search.Keywords,
		Lang:       a.cfg.Search.Lang,
		MaxResults: a.cfg.Search.ResultsPerRun,
	})
}

// Approve publishes the next approved batch from the review queue.
func (a *App) Approve(ctx context.Context) (pipeline.ApproveSummary, error) {
	if err := a.cfg.RequirePublish(); err != nil {
		return pipeline.ApproveSummary{}, err
	}
	return a.review.ApproveAndPublish(ctx)
}

// Reconcile retries publishes that were reserved but never stamped. A
// non-positive limit uses the configured one.
func (a *App) Reconcile(ctx context.Context, limit int) (pipeline.ReconcileSummary, error) {
	if err := a.cfg.RequirePublish(); err != nil {
		return pipeline.ReconcileSummary{}, err
	}
	if limit <= 0 {
		limit = a.cfg.Run.ReconcileLimit
	}
	return a.reconciler.Reconcile(ctx, limit)
}

// Migrate applies the Postgres schema.
func (a *App) Migrate(ctx context.Context) error {
	if a.postgres == nil {
		return errors.New("migrate requires store.backend=postgres")
	}
	return a.postgres.Migrate(ctx)
}

// Handler returns the admin API handler.
func (a *App) Handler() http.Handler {
	var ready api.Pinger
	if a.postgres != nil {
		ready = a.postgres
	}
	return api.NewServer(
		api.Config{APIKey: a.cfg.Server.APIKey},
		a.review,
		a.reconciler,
		ready,
		a.logger.Named("api"),
	).Handler()
}

// Serve runs the admin API until ctx is canceled.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	a.logger.Info("shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// Close flushes metrics and releases every client. It is safe to call once
// after any command.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.reporter != nil {
		if err := a.reporter.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close reporter: %w", err))
		}
	}
	if a.cfg.Metrics.Enabled {
		job := a.cfg.Metrics.Job
		if job == "" {
			job = "dropscout"
		}
		if err := metrics.Push(ctx, a.cfg.Metrics.PushgatewayURL, job); err != nil {
			a.logger.Warn("metrics push failed", zap.Error(err))
		}
	}
	a.closeInfrastructure()
	a.logger.Info("shutdown complete")
	_ = a.logger.Sync()
	return errors.Join(errs...)
}

func (a *App) closeInfrastructure() {
	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.topic != nil {
		a.topic.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.gcs != nil {
		if err := a.gcs.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.store != nil {
		a.store.Close()
	}
}
