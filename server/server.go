// Package server exposes a dicomweb.Service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mwantia/dicomweb"
	"github.com/mwantia/dicomweb/data"
	"github.com/mwantia/dicomweb/log"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	service *dicomweb.Service
	log     *log.Logger
	options *ServerOptions
	engine  *gin.Engine
}

func NewServer(service *dicomweb.Service, opts ...ServerOption) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("%w: service must not be nil", data.ErrInvalid)
	}

	options := newDefaultServerOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	if options.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		service: service,
		log:     service.Logger().Named("server"),
		options: options,
		engine:  gin.New(),
	}
	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	s.engine.Use(gin.Recovery(), s.loggerMiddleware(), corsMiddleware())

	s.engine.GET("/", s.handleIndex)
	s.engine.GET("/health", s.handleHealth)
	s.engine.NoRoute(s.handleNotFound)

	api := s.engine.Group(s.options.BasePath)
	{
		// STOW-RS
		api.POST("/studies", s.handleStore)
		api.POST("/studies/:study", s.handleStore)

		// QIDO-RS
		api.GET("/studies", s.handleSearchStudies)
		api.GET("/studies/:study/series", s.handleSearchSeries)
		api.GET("/studies/:study/series/:series/instances", s.handleSearchInstances)
		api.GET("/statistics", s.handleStatistics)

		// WADO-RS
		api.GET("/studies/:study", s.handleRetrieveStudy)
		api.GET("/studies/:study/series/:series", s.handleRetrieveSeries)
		api.GET("/studies/:study/series/:series/instances/:instance", s.handleRetrieveInstance)
		api.GET("/studies/:study/series/:series/instances/:instance/metadata", s.handleRetrieveMetadata)
		api.GET("/instances/:instance/file", s.handleRetrieveFile)
	}
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve listens on the configured address until ctx is cancelled and then
// shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.options.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Listening on %s with base path '%s'", s.options.Address, s.options.BasePath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	}
}
