package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	combosvc "github.com/mirageholidays/trip-planner-api/internal/domain/combo"
	leadsvc "github.com/mirageholidays/trip-planner-api/internal/domain/lead"
	plannersvc "github.com/mirageholidays/trip-planner-api/internal/domain/planner"
	tripsvc "github.com/mirageholidays/trip-planner-api/internal/domain/trip"
	"github.com/mirageholidays/trip-planner-api/internal/lib/currency"
	"github.com/mirageholidays/trip-planner-api/pkg/config"
	"github.com/mirageholidays/trip-planner-api/pkg/db"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config    *config.Config
	DB        *db.DB
	Logger    *slog.Logger
	Converter *currency.Converter

	// Repositories
	LeadRepo  leadsvc.Repository
	TripRepo  tripsvc.Repository
	ComboRepo combosvc.Repository

	// Services
	LeadSvc      leadsvc.Service
	TripSvc      tripsvc.Service
	ComboSvc     combosvc.Service
	PlannerSvc   plannersvc.Service
	SessionStore *plannersvc.Store

	// Handlers
	LeadHandler    *leadsvc.Handler
	TripHandler    *tripsvc.Handler
	PlannerHandler *plannersvc.Handler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:    cfg,
		Logger:    logger,
		Converter: currency.NewConverter(cfg.Currency.Rates, cfg.Currency.DisplayMarginPercent),
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	if err := deps.initServices(ctx); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	if err := deps.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() error {
	d.LeadRepo = leadsvc.NewRepositoryImpl(d.DB.Pool, d.Logger)
	d.TripRepo = tripsvc.NewRepositoryImpl(d.DB.Pool, d.Logger)
	d.ComboRepo = combosvc.NewRepositoryImpl(d.DB.Pool, d.Logger)

	d.Logger.Info("repositories initialized")
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices(ctx context.Context) error {
	generator, err := tripsvc.NewGeminiGenerator(
		ctx,
		d.Config.Generation.GeminiAPIKey,
		d.Config.Generation.Model,
		d.Config.Generation.Timeout,
		d.Logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create trip generator: %w", err)
	}

	d.LeadSvc = leadsvc.NewService(d.LeadRepo, d.Logger)
	d.TripSvc = tripsvc.NewService(d.TripRepo, generator, d.Converter, d.Logger)
	d.ComboSvc = combosvc.NewService(d.ComboRepo, d.Logger)

	d.SessionStore = plannersvc.NewStore()
	d.PlannerSvc = plannersvc.NewService(d.SessionStore, d.LeadSvc, d.TripSvc, d.ComboSvc, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() error {
	d.LeadHandler = leadsvc.NewHandler(d.LeadSvc, d.Logger)
	d.TripHandler = tripsvc.NewHandler(d.TripSvc, d.Logger)
	d.PlannerHandler = plannersvc.NewHandler(d.PlannerSvc, d.Logger)
	d.Logger.Info("handlers initialized")
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
