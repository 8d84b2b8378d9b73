package main

import (
	"fmt"
	"os"

	"github.com/coder/quartz"

	"occupancy-analytics/internal/config"
	"occupancy-analytics/internal/db"
	httphandler "occupancy-analytics/internal/http"
	"occupancy-analytics/internal/logger"
	"occupancy-analytics/internal/repository"
	"occupancy-analytics/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment)

	database, err := db.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect database")
	}

	eventRepo := repository.NewEventRepository(database)
	analyticsService := service.NewAnalyticsService(eventRepo, quartz.NewReal(), appLogger, service.Settings{
		Location:              cfg.Analytics.Location,
		ExcludedRoles:         cfg.Analytics.ExcludedRoles,
		Workers:               cfg.Analytics.Workers,
		MaxRangeDays:          cfg.Analytics.MaxRangeDays,
		MonthlyMetricsMinDays: cfg.Analytics.MonthlyMetricsMinDays,
		HistoryDays:           cfg.Analytics.HistoryDays,
	})

	handler := httphandler.NewHandler(analyticsService, appLogger)
	router := httphandler.NewRouter(handler, cfg.HTTP.AllowedOrigins, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	appLogger.Info().
		Str("addr", addr).
		Str("timezone", cfg.Analytics.Location.String()).
		Int("workers", cfg.Analytics.Workers).
		Msg("starting occupancy analytics")

	if err := router.Run(addr); err != nil {
		appLogger.Error().Err(err).Msg("failed to start server")
		os.Exit(1)
	}
}
