package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/AutoDebrid/AutoDebrid/internal/config"
	"github.com/AutoDebrid/AutoDebrid/internal/core"
	"github.com/AutoDebrid/AutoDebrid/internal/database"
	"github.com/AutoDebrid/AutoDebrid/internal/handlers"
	"github.com/AutoDebrid/AutoDebrid/internal/utils"
)

func main() {
	configPath := flag.String("config", "./data/config.yaml", "path to the configuration file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	if *debug {
		cfg.App.Debug = true
	}

	if err := os.MkdirAll(cfg.App.DataPath, 0755); err != nil {
		fmt.Fprintln(os.Stderr, "failed to create data directory:", err)
		os.Exit(1)
	}

	logPath := filepath.Join(cfg.App.DataPath, "app.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to open log file:", err)
		os.Exit(1)
	}
	defer logFile.Close()

	logger := utils.NewLogger(cfg.App.Debug, io.MultiWriter(os.Stdout, logFile))
	logger.Info("AutoDebrid starting")

	db, err := database.NewSQLite(filepath.Join(cfg.App.DataPath, "autodebrid.db"))
	if err != nil {
		logger.Fatal("Failed to open database:", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		logger.Fatal("Failed to run migrations:", err)
	}

	manager := core.NewManager(cfg, logger, db)
	manager.Start()

	server := handlers.NewServer(logger, manager, logPath)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      server.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("Listening on port", cfg.App.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	manager.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error:", err)
	}
	logger.Info("Goodbye")
}
