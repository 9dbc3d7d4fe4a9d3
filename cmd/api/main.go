package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/WailSalutem-Health-Care/care-portal/internal/appointment"
	"github.com/WailSalutem-Health-Care/care-portal/internal/auth"
	"github.com/WailSalutem-Health-Care/care-portal/internal/booking"
	"github.com/WailSalutem-Health-Care/care-portal/internal/cache"
	"github.com/WailSalutem-Health-Care/care-portal/internal/config"
	"github.com/WailSalutem-Health-Care/care-portal/internal/dashboard"
	"github.com/WailSalutem-Health-Care/care-portal/internal/db"
	"github.com/WailSalutem-Health-Care/care-portal/internal/directory"
	portalhttp "github.com/WailSalutem-Health-Care/care-portal/internal/http"
	"github.com/WailSalutem-Health-Care/care-portal/internal/logger"
	"github.com/WailSalutem-Health-Care/care-portal/internal/medication"
	"github.com/WailSalutem-Health-Care/care-portal/internal/messaging"
	"github.com/WailSalutem-Health-Care/care-portal/internal/profile"
	"github.com/WailSalutem-Health-Care/care-portal/internal/seed"
	"github.com/WailSalutem-Health-Care/care-portal/internal/session"
	"github.com/WailSalutem-Health-Care/care-portal/internal/survey"
	"github.com/WailSalutem-Health-Care/care-portal/internal/telemetry"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "care-portal",
		Short: "Patient, doctor, hospital and caretaker portal API",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger.Init(cfg.LogLevel, cfg.LogFormat)
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			database, _, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer database.Close()
			return db.Migrate(ctx, database)
		},
	}
}

func seedCmd() *cobra.Command {
	var opts seed.Options
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert fake hospitals, doctors, patients and caretakers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			database, _, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := db.Migrate(ctx, database); err != nil {
				return err
			}
			_, err = seed.New(database, opts.Seed).Run(ctx, opts)
			return err
		},
	}
	cmd.Flags().IntVar(&opts.Hospitals, "hospitals", 3, "Number of hospitals")
	cmd.Flags().IntVar(&opts.DoctorsPerHospital, "doctors", 4, "Doctors per hospital")
	cmd.Flags().IntVar(&opts.Patients, "patients", 20, "Number of patients")
	cmd.Flags().IntVar(&opts.PatientsPerCaretaker, "patients-per-caretaker", 3, "Patients grouped under each caretaker (0 for none)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", uint64(time.Now().UnixNano()), "Random seed")
	return cmd
}

func openDatabase(ctx context.Context) (*sql.DB, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	database, err := db.Connect(ctx, db.Options{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Name:     cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		return nil, nil, err
	}
	return database, cfg, nil
}

func runServer() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	loc, _ := cfg.Location()

	tp, err := telemetry.InitProvider(ctx, telemetry.LoadConfig())
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		return err
	}

	database, _, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := db.Migrate(ctx, database); err != nil {
		return err
	}

	var store cache.Cache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rc.Close()
		store = rc
	} else {
		log.Warn().Msg("REDIS_URL not set, sessions and drafts are kept in memory")
		mc := cache.NewMemoryCache()
		defer mc.Close()
		store = mc
	}

	var publisher messaging.PublisherInterface
	if cfg.RabbitMQURL != "" {
		p, err := messaging.NewPublisher(cfg.RabbitMQURL, metrics)
		if err != nil {
			log.Warn().Err(err).Msg("event publishing disabled")
		} else {
			defer p.Close()
			publisher = p
		}
	}

	var jwks *auth.JWKS
	if cfg.AuthJWKSURL != "" {
		jwks, err = auth.NewJWKS(ctx, cfg.AuthJWKSURL, 10*time.Minute)
		if err != nil {
			return err
		}
		defer jwks.Close()
	}
	verifier := auth.NewVerifier(auth.Config{
		Issuer:    cfg.Issuer(),
		Audience:  cfg.AuthAudience,
		JWTSecret: cfg.AuthJWTSecret,
		JWKSURL:   cfg.AuthJWKSURL,
	}, jwks)

	provider, err := auth.NewProviderClient(cfg.AuthURL, cfg.AuthAPIKey)
	if err != nil {
		return err
	}
	perms, err := auth.LoadPermissions(cfg.PermissionsFile)
	if err != nil {
		return err
	}

	profiles := profile.NewRepository(database)
	directoryService := directory.NewService(directory.NewRepository(database), store, cfg.DirectoryCacheTTL, provider, publisher)
	appointmentService := appointment.NewService(appointment.NewRepository(database), publisher, loc)
	medicationService := medication.NewService(medication.NewRepository(database), publisher, loc)
	surveyService := survey.NewService(survey.NewRepository(database), medicationService, publisher, metrics, loc)
	drafts := booking.NewDraftStore(store, cfg.DraftTTL)
	bookingService := booking.NewService(directoryService, appointmentService, drafts, metrics, loc)
	dashboardService := dashboard.NewService(appointmentService, medicationService, surveyService, directoryService, profiles)

	sessions := session.NewManager(store, provider, profiles, publisher, metrics, session.Options{
		TTL:          cfg.SessionTTL,
		IdleTTL:      cfg.SessionIdleTTL,
		CookieSecure: cfg.CookieSecure,
		OnDestroy: func(ctx context.Context, sessionID string) {
			if err := drafts.DiscardSession(ctx, sessionID); err != nil {
				log.Ctx(ctx).Warn().Err(err).Msg("failed to discard booking drafts")
			}
		},
	})
	defer sessions.Close()

	var prom *telemetry.Prometheus
	if cfg.MetricsEnabled {
		prom = telemetry.NewPrometheus()
	}

	router := portalhttp.SetupRouter(portalhttp.Handlers{
		Session:     session.NewHandler(sessions, cfg.PublicURL),
		Booking:     booking.NewHandler(bookingService),
		Dashboard:   dashboard.NewHandler(dashboardService),
		Survey:      survey.NewHandler(surveyService),
		Directory:   directory.NewHandler(directoryService),
		Medication:  medication.NewHandler(medicationService),
		Appointment: appointment.NewHandler(appointmentService),
	}, portalhttp.Options{
		Verifier:       verifier,
		Sessions:       sessions,
		Permissions:    perms,
		AuthMetrics:    metrics,
		HTTPMetrics:    metrics,
		Prometheus:     prom,
		AllowedOrigins: cfg.AllowedOrigins,
		Ready: map[string]portalhttp.Pinger{
			"database": portalhttp.PingFunc(database.PingContext),
			"cache":    store,
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("care-portal starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("✓ server stopped")
	return nil
}
