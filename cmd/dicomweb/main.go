package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mwantia/dicomweb"
	"github.com/mwantia/dicomweb/backend"
	"github.com/mwantia/dicomweb/config"
	"github.com/mwantia/dicomweb/data"
	"github.com/mwantia/dicomweb/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string

	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dicomweb",
	Short: "DICOMweb store, query and retrieve server",
	Long: "dicomweb stores DICOM Part 10 objects and serves them through the\n" +
		"STOW-RS, QIDO-RS and WADO-RS endpoints.",
	SilenceUsage:      true,
	PersistentPreRunE: initializeApp,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "dicomweb.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Overrides the configured log level")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(statsCmd)
}

// initializeApp loads the configuration shared by all subcommands
func initializeApp(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.LogLevel = logLevel
	}
	cfg = loaded

	return nil
}

// openService creates and opens the service from the loaded configuration.
// The serve command logs to the terminal; every other command keeps stdout
// for its own output and logs to stderr or the configured file.
func openService(cmd *cobra.Command, terminalLog bool) (*dicomweb.Service, error) {
	ctx := cmd.Context()

	level, err := log.Parse(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	meta, err := cfg.NewMetadataBackend(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata backend: %w", err)
	}
	blobs, err := cfg.NewBlobBackend()
	if err != nil {
		closeBackends(ctx, meta, nil)
		return nil, fmt.Errorf("failed to create blob backend: %w", err)
	}

	opts := []dicomweb.ServiceOption{
		dicomweb.WithLogLevel(level),
		dicomweb.WithLogFile(cfg.LogFile),
	}
	if cfg.LogJSON {
		opts = append(opts, dicomweb.WithLogJSON())
	}
	if !terminalLog {
		opts = append(opts, dicomweb.WithLogger(newCommandLogger(cmd, level)))
	}

	return newService(ctx, meta, blobs, opts...)
}

// newService takes ownership of meta and blobs and closes them on any failure.
func newService(ctx context.Context, meta backend.MetadataBackend, blobs backend.BlobBackend, opts ...dicomweb.ServiceOption) (*dicomweb.Service, error) {
	svc, err := dicomweb.NewService(meta, blobs, opts...)
	if err != nil {
		closeBackends(ctx, meta, blobs)
		return nil, err
	}

	// Open releases the backends itself when it fails
	if err := svc.Open(ctx); err != nil {
		return nil, err
	}

	return svc, nil
}

func closeBackends(ctx context.Context, meta backend.MetadataBackend, blobs backend.BlobBackend) error {
	errs := data.Errors{}
	if meta != nil {
		errs.Add(meta.Close(ctx))
	}
	if blobs != nil {
		errs.Add(blobs.Close(ctx))
	}
	return errs.Errors()
}

func newCommandLogger(cmd *cobra.Command, level log.LogLevel) *log.Logger {
	if cfg.LogFile != "" {
		return log.NewLogger("dicomweb", level, cfg.LogFile, true).SetJSON(cfg.LogJSON)
	}
	return log.NewWriterLogger("dicomweb", level, cmd.ErrOrStderr()).SetJSON(cfg.LogJSON)
}
