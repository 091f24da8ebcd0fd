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

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/harborops/fleetledger/internal"
	"github.com/harborops/fleetledger/internal/audit"
	auditpg "github.com/harborops/fleetledger/internal/audit/postgres"
	"github.com/harborops/fleetledger/internal/auth"
	"github.com/harborops/fleetledger/internal/cashledger"
	cashpg "github.com/harborops/fleetledger/internal/cashledger/postgres"
	"github.com/harborops/fleetledger/internal/category"
	categorypg "github.com/harborops/fleetledger/internal/category/postgres"
	"github.com/harborops/fleetledger/internal/events"
	"github.com/harborops/fleetledger/internal/expense"
	expensepg "github.com/harborops/fleetledger/internal/expense/postgres"
	"github.com/harborops/fleetledger/internal/transport"
	"github.com/harborops/fleetledger/internal/transport/rest"
	"github.com/harborops/fleetledger/internal/user"
	userpg "github.com/harborops/fleetledger/internal/user/postgres"
	"github.com/harborops/fleetledger/pkg/logger"
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
	Config *internal.Config
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

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
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func setupRoutes(deps *Dependencies) {
	lg := deps.Logger
	permissions := auth.NewPermissionChecker()

	bus := events.NewBus(lg)
	invalidator := events.NewBusInvalidator(bus, lg)

	auditRepo := auditpg.NewAuditRepository(deps.Gorm)
	auditService := audit.NewService(auditRepo, lg)
	auditHandler := audit.NewHandler(auditService)

	cashRepo := cashpg.NewCashRepository(deps.Gorm)
	cashService := cashledger.NewService(cashRepo, permissions, auditService, invalidator, lg)
	cashHandler := cashledger.NewHandler(cashService)

	expenseRepo := expensepg.NewExpenseRepository(deps.Gorm)
	expenseService := expense.NewService(expenseRepo, permissions, auditService, invalidator, lg)
	expenseHandler := expense.NewHandler(expenseService)

	categoryRepo := categorypg.NewCategoryRepository(deps.Gorm)
	categoryService := category.NewService(categoryRepo, permissions, lg)
	categoryHandler := category.NewHandler(transport.NewBaseHandler(lg), categoryService)

	userRepo := userpg.NewUserRepository(deps.Gorm)
	userService := user.NewService(userRepo)
	userHandler := user.NewHandler(transport.NewBaseHandler(lg), userService)

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, permissions, rest.Handlers{
		Expense:  expenseHandler,
		Cash:     cashHandler,
		Category: categoryHandler,
		Audit:    auditHandler,
		User:     userHandler,
	}, lg)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"), config.Observability.Logging.Level)

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	return &Dependencies{
		Config: config,
		Logger: logger.L(),
		DB:     db,
		Gorm:   gormDB,
		Router: chi.NewRouter(),
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
