package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dmehra2102/prod-golang-projects/medbook/config"
	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain"
	v1 "github.com/dmehra2102/prod-golang-projects/medbook/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/medbook/internal/repository"
	"github.com/dmehra2102/prod-golang-projects/medbook/internal/service"
	"github.com/dmehra2102/prod-golang-projects/medbook/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/medbook/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/medbook/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/medbook/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/medbook/pkg/tracer"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "medbook",
		Short:        "Appointment booking and patient records API",
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
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrate, _ := cmd.Flags().GetBool("migrate")
			return runServer(cmd.Context(), migrate)
		},
	}
	cmd.Flags().Bool("migrate", false, "Run database migrations before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create schemas, tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(rt *runtime) error {
				return database.Migrate(rt.db, rt.log)
			})
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the users listed in SEED_USERS that do not exist yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(rt *runtime) error {
				n, err := rt.seed(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("Seeded %d user(s).\n", n)
				return nil
			})
		},
	}
}

// runtime is the set of process-wide dependencies every command needs.
type runtime struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *gorm.DB
	metrics *metrics.Collector
	users   *repository.UserRepository
}

func withRuntime(fn func(rt *runtime) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.Log, cfg.App)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", zap.Error(err))
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Warn("closing database", zap.Error(err))
		}
	}()

	m := metrics.NewCollector(cfg.App.Name, prometheus.DefaultRegisterer)

	return fn(&runtime{
		cfg:     cfg,
		log:     log,
		db:      db,
		metrics: m,
		users:   repository.NewUserRepository(db, m),
	})
}

func (rt *runtime) seed(ctx context.Context) (int, error) {
	users := make([]service.SeedUser, 0, len(rt.cfg.Seed.Users))
	for _, u := range rt.cfg.Seed.Users {
		users = append(users, service.SeedUser{Username: u.Username, Password: u.Password, Role: domain.Role(u.Role)})
	}
	return service.NewSeeder(rt.users, rt.log).SeedUsers(ctx, users)
}

func runServer(ctx context.Context, migrate bool) error {
	return withRuntime(func(rt *runtime) error {
		log := rt.log

		tp, err := tracer.Init(ctx, rt.cfg.Tracing, rt.cfg.App.Version)
		if err != nil {
			return fmt.Errorf("initialising tracer: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(shutdownCtx)
		}()

		if migrate {
			if err := database.Migrate(rt.db, log); err != nil {
				return err
			}
		}

		n, err := rt.seed(ctx)
		if err != nil {
			return fmt.Errorf("seeding users: %w", err)
		}
		if n > 0 {
			log.Info("bootstrap users created", zap.Int("count", n))
		}

		appointments := repository.NewAppointmentRepository(rt.db, rt.metrics)
		records := repository.NewPatientRecordRepository(rt.db, rt.metrics)

		authSvc := service.NewAuthService(rt.users, auth.NewJWTManager(rt.cfg.JWT), rt.metrics, log)
		apptSvc := service.NewAppointmentService(appointments, service.NewFirstPractitionerAssigner(rt.users), rt.metrics, log)
		recordSvc := service.NewPatientRecordService(records, rt.users, rt.metrics, log)
		usernames := service.NewUsernameResolver(rt.users, log)

		if rt.cfg.App.Environment == "production" {
			gin.SetMode(gin.ReleaseMode)
		}

		router := v1.NewRouter(v1.RouterDeps{
			Auth:          v1.NewAuthHandler(authSvc),
			Appointments:  v1.NewAppointmentHandler(apptSvc, usernames),
			PatientRecord: v1.NewPatientRecordHandler(recordSvc, usernames),
			Authenticator: authSvc,
			Metrics:       rt.metrics,
			Gatherer:      prometheus.DefaultGatherer,
			Log:           log,
			RateLimit:     rt.cfg.RateLimit,
			Ready: func(ctx context.Context) error {
				sqlDB, err := rt.db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		})

		srv := &http.Server{
			Addr:         rt.cfg.Server.Address(),
			Handler:      router,
			ReadTimeout:  rt.cfg.Server.ReadTimeout,
			WriteTimeout: rt.cfg.Server.WriteTimeout,
			IdleTimeout:  rt.cfg.Server.IdleTimeout,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info("server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-quit:
			log.Info("shutting down server", zap.String("signal", sig.String()))
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), rt.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		log.Info("server stopped")
		return nil
	})
}
