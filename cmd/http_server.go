package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/vuln-management/internal"
	"github.com/frahmantamala/vuln-management/internal/auth"
	datastorepg "github.com/frahmantamala/vuln-management/internal/datastore/postgres"
	"github.com/frahmantamala/vuln-management/internal/nvd"
	"github.com/frahmantamala/vuln-management/internal/system"
	"github.com/frahmantamala/vuln-management/internal/token"
	"github.com/frahmantamala/vuln-management/internal/transport/rest"
	"github.com/frahmantamala/vuln-management/internal/user"
	"github.com/frahmantamala/vuln-management/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config        *internal.Config
	DB            *gorm.DB
	SQLDB         *sqlx.DB
	Router        *chi.Mux
	AuthHandler   *auth.Handler
	Pipeline      *auth.Pipeline
	SystemHandler *system.Handler
	Logger        *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.SQLDB.DB, deps.AuthHandler, deps.Pipeline, deps.SystemHandler, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.SQLDB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.LoggerWrapper()

	gormDB, err := initGorm(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	sqlDB, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize health connection: %w", err)
	}

	encryptionKey, err := config.Security.GetClaimEncryptionKey()
	if err != nil {
		return nil, fmt.Errorf("failed to load claim encryption key: %w", err)
	}
	codec, err := token.NewCodec([]byte(config.Security.JWTSigningKey), encryptionKey, config.Security.TokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to build token codec: %w", err)
	}

	store := datastorepg.NewRecordStore(gormDB)

	userService := user.NewService(user.NewDatastoreRepository(store), codec, lg)
	nvdClient := nvd.NewClient(config.NVD.BaseURL, config.NVD.Timeout, lg)
	systemService := system.NewService(system.NewDatastoreRepository(store), nvdClient, lg)

	provider := auth.NewGoogleProvider(config.OAuth)
	pipeline := auth.NewPipeline(userService, systemService, auth.DefaultPolicy())

	return &Dependencies{
		Config:        config,
		DB:            gormDB,
		SQLDB:         sqlDB,
		Router:        chi.NewRouter(),
		AuthHandler:   auth.NewHandler(provider, userService),
		Pipeline:      pipeline,
		SystemHandler: system.NewHandler(systemService),
		Logger:        lg,
	}, nil
}

// initGorm opens the ORM connection used by the record store.
// TranslateError is required so duplicate keys surface uniformly.
func initGorm(cfg internal.DatabaseConfig) (*gorm.DB, error) {
	gormDB, err := gorm.Open(gormpostgres.Open(cfg.Source), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access underlying connection: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return gormDB, nil
}

// initDB opens the plain connection used by health checks and the seeder.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
