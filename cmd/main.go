package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ebogdum/datarepo/config"
	"github.com/ebogdum/datarepo/core"
	"github.com/ebogdum/datarepo/server"
)

var rootCmd = &cobra.Command{
	Use:   "datarepo",
	Short: "datarepo - remote media repository manager",
	Long: `datarepo stores, retrieves and synchronizes media files against a remote
repository, either an S3-compatible object store or an SFTP server.`,
	SilenceUsage: true,
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the datarepo HTTP server",
	Long:  "Start the HTTP API exposing the configured remote store",
	Args:  cobra.NoArgs,
	RunE:  runServer,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  "Validate the datarepo configuration and display the loaded settings",
	Args:  cobra.NoArgs,
	RunE:  validateConfig,
}

var configFilePath string

func main() {
	rootCmd.PersistentFlags().StringVarP(&configFilePath, "config", "c", "", "Path to configuration file")

	configCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(serverCmd, configCmd)
	addFileCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// session holds what every command needs to reach the remote store
type session struct {
	cfg    config.AppConfig
	fm     *core.FileManager
	logger *zap.Logger
}

// openSession loads configuration and connects the selected backend
func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.LoadConfigFromFile(configFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := initializeLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	fm, err := core.NewFileManagerFromConfig(ctx, cfg, core.DefaultFactory(), afero.NewOsFs(), logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to initialize file manager: %w", err)
	}

	return &session{cfg: cfg, fm: fm, logger: logger}, nil
}

func (s *session) Close() {
	if err := s.fm.Close(); err != nil {
		s.logger.Warn("Failed to close file manager", zap.Error(err))
	}
	// Syncing stderr fails on some platforms; nothing useful can be done about it
	_ = s.logger.Sync()
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	s.logger.Info("Starting datarepo server",
		zap.String("listen_addr", s.cfg.Server.ListenAddr),
		zap.String("backend", s.fm.BackendType()))

	router, err := server.NewRouter(s.fm, s.cfg, s.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP router: %w", err)
	}

	srv := &http.Server{
		Addr:         s.cfg.Server.ListenAddr,
		Handler:      router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.cfg.Server.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	s.logger.Info("Server exited gracefully")
	return nil
}

func validateConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Validating configuration...")

	cfg, err := config.LoadConfigFromFile(configFilePath)
	if err != nil {
		fmt.Fprintf(out, "Configuration validation failed: %v\n", err)
		return err
	}

	kind, _ := config.StorageKind(cfg.Control.Storage)
	fmt.Fprintln(out, "Configuration is valid")
	fmt.Fprintf(out, "Storage: %s (%s)\n", cfg.Control.Storage, kind)
	switch kind {
	case config.StorageObject:
		fmt.Fprintf(out, "Endpoint: %s\n", cfg.MinIO.Endpoint)
		fmt.Fprintf(out, "Bucket: %s\n", cfg.MinIO.Bucket)
		fmt.Fprintf(out, "Access Key: %s\n", maskSecret(cfg.MinIO.AccessKey))
	case config.StorageTree:
		fmt.Fprintf(out, "Host: %s:%d\n", cfg.SFTP.Host, cfg.SFTP.Port)
		fmt.Fprintf(out, "User: %s\n", cfg.SFTP.User)
		fmt.Fprintf(out, "Base Path: %s\n", cfg.SFTP.BasePath)
	}
	fmt.Fprintf(out, "Sync: pattern=%s compare=%s lock=%s\n", cfg.Sync.Pattern, cfg.Sync.Compare, cfg.Sync.Lock.Type)
	fmt.Fprintf(out, "Listen Address: %s\n", cfg.Server.ListenAddr)

	return nil
}

func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) > 8 {
		return secret[:4] + "***"
	}
	return "***"
}

func initializeLogger(logCfg config.LogConfig) (*zap.Logger, error) {
	var cfg zap.Config

	if logCfg.Format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	switch logCfg.Level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return cfg.Build()
}
