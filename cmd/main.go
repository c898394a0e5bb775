package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"traffic_control/internal/handlers"
	"traffic_control/internal/inventory"
	"traffic_control/internal/logger"
	"traffic_control/internal/metrics"
	"traffic_control/internal/repository"
	"traffic_control/internal/routing"
	"traffic_control/internal/server"
	"traffic_control/internal/service"

	"github.com/spf13/viper"
)

const defaultTick = 1 * time.Second

func main() {
	log := logger.Get(logger.InfoLevel)

	if err := loadConfig(); err != nil {
		log.Fatalw("error reading config", "err", err)
	}

	db, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	teamID := viper.GetString("team.id")
	if teamID == "" {
		teamID = "default"
	}
	repos := repository.NewRepository(db, teamID)
	collector := metrics.NewCollector()
	services := service.NewService(service.Deps{
		Repos:      repos,
		Inventory:  inventory.NewClient(viper.GetString("inventory.base_url")),
		Routes:     routing.NewClient(viper.GetString("routing.base_url")),
		Cycle:      cycleConfig(),
		Tick:       defaultTick,
		Metrics:    collector,
		Log:        log,
		SigningKey: viper.GetString("auth.signing_key"),
	})
	apiHandler := handlers.NewHandler(services, collector, log)

	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	waitForShutdown(srv, services, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// cycleConfig resolves phase durations from config, falling back to the
// stock values when absent or invalid.
func cycleConfig() service.CycleConfig {
	cfg := service.DefaultCycleConfig()
	if v := viper.GetInt("signal.green_s"); v > 0 {
		cfg.GreenSeconds = v
	}
	if v := viper.GetInt("signal.yellow_s"); v > 0 {
		cfg.YellowSeconds = v
	}
	if v := viper.GetInt("signal.red_s"); v > 0 {
		cfg.RedSeconds = v
	}
	return cfg
}

// openDB initializes the SQLite state store using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "signals.db")
		dbPath = "signals.db"
	}
	return repository.InitDB(dbPath)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals, halts the junction loops,
// and drains in-flight requests.
func waitForShutdown(srv *server.Server, services *service.Service, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := services.Scheduler.Stop(stopCtx); err != nil && err != service.ErrNotRunning {
		log.Errorw("scheduler stop on shutdown", "err", err)
	}
	stopCancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
