package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"drying_oven/internal/handlers"
	"drying_oven/internal/logger"
	"drying_oven/internal/metrics"
	"drying_oven/internal/repository"
	"drying_oven/internal/repository/db"
	"drying_oven/internal/serialport"
	"drying_oven/internal/server"
	"drying_oven/internal/service"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Run the supervisory host: link supervisor, drying policy and HTTP API",
	RunE:  runHost,
}

func init() {
	hostCmd.Flags().String("port", "", "HTTP listen port or address")
	hostCmd.Flags().String("db", "", "SQLite database file")
	mustBind(settings, "port", hostCmd.Flags().Lookup("port"))
	mustBind(settings, "db.path", hostCmd.Flags().Lookup("db"))
	rootCmd.AddCommand(hostCmd)
}

func runHost(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateHost(); err != nil {
		return err
	}
	log := logger.Get(cfg.Log.Options(nil))
	metrics.RegisterMetrics()

	database, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("init sqlite: %w", err)
	}
	defer func() {
		if cerr := database.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	port, err := serialport.Open(cfg.Serial)
	if err != nil {
		return err
	}
	defer func() { _ = port.Close() }()
	log.Infow("serial_port_open", "address", cfg.Serial.Address, "baud_rate", cfg.Serial.BaudRate)

	// wire dependencies
	repos := repository.NewRepository(database)
	services := service.NewService(repos, service.Deps{
		Port: port,
		Log:  log,
		Oven: cfg.Oven,
		Link: cfg.Link,
		Auth: cfg.Auth,
	})
	apiHandler := handlers.NewHandler(services, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := services.Controller.Restore(ctx); err != nil {
		log.Errorw("restore_failed", "err", err)
	}

	// the first component to fail cancels the others
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return services.LinkRunner.Run(gctx) })
	g.Go(func() error {
		services.Controller.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return server.New(cfg.Port, apiHandler.InitRoutes(), log.Named("http")).Run(gctx)
	})

	err = g.Wait()
	if err != nil {
		log.Errorw("component_failed", "err", err)
	}
	log.Infow("host_stopped")
	return err
}
