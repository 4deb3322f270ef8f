package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mwantia/dicomweb/server"
	"github.com/spf13/cobra"
)

var serveDebug bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the DICOMweb HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Run the HTTP engine in debug mode")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	svc, err := openService(cmd, true)
	if err != nil {
		return err
	}
	defer svc.Close(context.WithoutCancel(ctx))

	opts := []server.ServerOption{
		server.WithAddress(cfg.Listen),
		server.WithBasePath(cfg.BasePath),
		server.WithMaxUploadSize(cfg.MaxUploadSize),
	}
	if serveDebug {
		opts = append(opts, server.WithDebug())
	}

	srv, err := server.NewServer(svc, opts...)
	if err != nil {
		return err
	}

	return srv.Serve(ctx)
}
