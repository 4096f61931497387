package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/patient-intake/internal/api/router"
	"github.com/wolfman30/patient-intake/internal/appointments"
	appconfig "github.com/wolfman30/patient-intake/internal/config"
	"github.com/wolfman30/patient-intake/internal/db"
	"github.com/wolfman30/patient-intake/internal/http/handlers"
	"github.com/wolfman30/patient-intake/internal/intake"
	"github.com/wolfman30/patient-intake/internal/observability/metrics"
	"github.com/wolfman30/patient-intake/internal/patients"
	"github.com/wolfman30/patient-intake/internal/providers"
	"github.com/wolfman30/patient-intake/internal/seed"
	"github.com/wolfman30/patient-intake/internal/webchat"
	"github.com/wolfman30/patient-intake/pkg/logging"
)

// App is the assembled intake API.
type App struct {
	Handler  http.Handler
	Service  *intake.Service
	Metrics  *metrics.IntakeMetrics
	Registry *prometheus.Registry
	closers  []func()
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

type repositories struct {
	patients  patients.Repository
	providers providers.Repository
	slots     appointments.Repository
	tx        db.TxRunner
}

// BuildApp wires storage, understanding, notifications and HTTP routing from
// config. Postgres and Redis are optional; without them state lives in memory.
func BuildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	app := &App{}
	fail := func(err error) (*App, error) {
		app.Close()
		return nil, err
	}
	checks := map[string]router.HealthCheck{}

	pool, err := BuildPostgresPool(ctx, cfg, logger)
	if err != nil {
		return fail(fmt.Errorf("bootstrap: postgres: %w", err))
	}
	var repos repositories
	if pool != nil {
		app.closers = append(app.closers, pool.Close)
		checks["postgres"] = pool.Ping
		repos = repositories{
			patients:  patients.NewPostgresRepository(pool),
			providers: providers.NewPostgresRepository(pool),
			slots:     appointments.NewPostgresRepository(pool),
			tx:        db.NewTxManager(pool),
		}
	} else {
		repos, err = memoryRepositories(cfg, logger)
		if err != nil {
			return fail(err)
		}
	}

	var (
		store       intake.Store = intake.NewMemoryStore()
		transcripts webchat.TranscriptStore
	)
	if client := BuildRedisClient(ctx, cfg, logger); client != nil {
		app.closers = append(app.closers, func() { _ = client.Close() })
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		store = intake.NewRedisStore(client, cfg.SessionTTL)
		transcripts = webchat.NewRedisTranscript(client, cfg.SessionTTL)
	} else {
		logger.Warn("REDIS_ADDR not set or unreachable; sessions are kept in memory")
	}

	var awsCfg aws.Config
	if needsAWS(cfg) {
		awsCfg, err = LoadAWSConfig(ctx, cfg)
		if err != nil {
			return fail(fmt.Errorf("bootstrap: load aws config: %w", err))
		}
	}

	understanding, err := BuildUnderstanding(ctx, cfg, awsCfg, logger)
	if err != nil {
		return fail(err)
	}
	app.closers = append(app.closers, func() { _ = understanding.Close() })

	validator, err := BuildAddressValidator(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.Metrics = metrics.NewIntakeMetrics(app.Registry)

	loc, err := time.LoadLocation(cfg.ClinicTimezone)
	if err != nil {
		logger.Warn("unknown CLINIC_TIMEZONE; slot times shown in UTC", "timezone", cfg.ClinicTimezone, "error", err)
		loc = time.UTC
	}

	machine := intake.NewMachine(intake.Dependencies{
		Extractor:  understanding.Extractor,
		Classifier: understanding.Classifier,
		Patients:   patients.NewMatcher(repos.patients),
		Store:      repos.patients,
		Providers:  providers.NewMatcher(repos.providers, 0),
		Booker:     appointments.NewBooker(repos.tx, repos.slots, repos.patients, appointments.WithLogger(logger)),
		Address:    validator,
	},
		intake.WithMaxAddressAttempts(cfg.AddressMaxAttempts),
		intake.WithRecorder(app.Metrics),
		intake.WithLogger(logger),
		intake.WithLocation(loc),
	)

	opts := []intake.ServiceOption{
		intake.WithNotifier(BuildNotifier(cfg, awsCfg, logger)),
		intake.WithMetrics(app.Metrics),
		intake.WithServiceLogger(logger),
	}
	if archiver := BuildArchiver(cfg, awsCfg, transcripts, logger); archiver != nil {
		opts = append(opts, intake.WithArchiver(archiver))
	}
	app.Service = intake.NewService(machine, store, opts...)

	var adminPatients *handlers.AdminPatientsHandler
	if cfg.AdminJWTSecret != "" {
		adminPatients = handlers.NewAdminPatientsHandler(repos.patients, logger)
	} else {
		logger.Warn("ADMIN_JWT_SECRET not set; admin endpoints disabled")
	}

	app.Handler = router.New(&router.Config{
		Logger:             logger,
		Intake:             intake.NewHandler(app.Service, logger),
		WebChat:            webchat.NewHandler(app.Service, transcripts, logger),
		AdminPatients:      adminPatients,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MessageRatePerSec:  cfg.MessageRatePerSec,
		MessageRateBurst:   cfg.MessageRateBurst,
		HealthChecks:       checks,
	})
	return app, nil
}

func memoryRepositories(cfg *appconfig.Config, logger *logging.Logger) (repositories, error) {
	provRepo := providers.NewInMemoryRepository()
	slotRepo := appointments.NewInMemoryRepository()
	if cfg.SeedFile != "" {
		data, err := seed.LoadFile(cfg.SeedFile)
		if err != nil {
			return repositories{}, fmt.Errorf("bootstrap: %w", err)
		}
		counts := data.ApplyMemory(provRepo, slotRepo)
		logger.Info("seeded in-memory scheduling data", "providers", counts.Providers, "slots", counts.Slots)
	}
	logger.Warn("DATABASE_URL not set; patients and appointments are kept in memory")
	return repositories{
		patients:  patients.NewInMemoryRepository(),
		providers: provRepo,
		slots:     slotRepo,
		tx:        db.NewLocalTxRunner(),
	}, nil
}
