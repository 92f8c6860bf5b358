package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"invoicer/internal/config"
	"invoicer/internal/logger"
)

var version = "1.0.0"

var (
	appConfig *config.Config
	configErr error
)

var rootCmd = &cobra.Command{
	Use:   "invoicer",
	Short: "Generate invoices and offers as Word and PDF documents",
	Long: `invoicer turns a billing request (JSON or YAML) into a numbered invoice
or offer. Companies, currencies, policies and the per-company sequence
counters live in a single JSON reference store (PATH_DB).

Documents are written as .docx and converted to PDF. Live runs commit the
document number to the store and can upload the PDF to Google Drive, mail
it through Gmail and record it in a register.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI with the configuration loaded by main. cfgErr is
// reported by the commands that need configuration.
func Execute(cfg *config.Config, cfgErr error) {
	log := logger.WithComponent("cmd")
	appConfig, configErr = cfg, cfgErr

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// requireConfig returns the loaded configuration or the reason it is missing.
func requireConfig() (*config.Config, error) {
	if appConfig == nil {
		if configErr != nil {
			return nil, fmt.Errorf("configuration not available: %w", configErr)
		}
		return nil, fmt.Errorf("configuration not available")
	}
	return appConfig, nil
}

// createContext creates a context with timeout and signal handling
func createContext(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// resolveRequestPath looks up bare file names in the request directory.
func resolveRequestPath(cfg *config.Config, path string) string {
	if filepath.Base(path) != path {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return filepath.Join(cfg.RequestDir, path)
}

// writeOutput writes data to path, or to stdout when path is empty.
func writeOutput(path string, data []byte, log zerolog.Logger) error {
	if path == "" {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Error().Err(err).Str("file", path).Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().Str("file", path).Msg("Output written")
	return nil
}
