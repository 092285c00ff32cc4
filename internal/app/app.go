package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zengallery/internal/blob"
	"zengallery/internal/config"
	"zengallery/internal/gallery"
	"zengallery/internal/metadata"
	"zengallery/internal/server"
	"zengallery/internal/transform"
)

// App is the application layer between the CLI and the service graph.
// It constructs all dependencies from config and manages their lifecycle
// on Close.
type App struct {
	cfg         *config.Config
	blob        gallery.BlobStore
	meta        gallery.MetadataStore
	coordinator *gallery.Coordinator
	cache       *gallery.DerivedCache
	ranges      *gallery.RangeServer
	logger      gallery.Logger
	logFile     *os.File
}

// NewApp creates a fully wired App from the given config.
// The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	slogger, logFile, err := newLogger(cfg.LogDir)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	store, err := blob.NewStoreFromConfig(ctx, cfg.Blob)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating blob store: %w", err)
	}

	meta, err := metadata.NewStoreFromConfig(cfg.Metadata)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating metadata store: %w", err)
	}

	transformer, err := transform.NewTransformerFromConfig(cfg.Transform)
	if err != nil {
		meta.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating transformer: %w", err)
	}

	coordinator := gallery.NewCoordinator(store, meta, logger,
		gallery.RealClock{}, gallery.UUIDGenerator{}, cfg.Limits.MaxSingleUploadBytes())
	cache := gallery.NewDerivedCache(store, transformer, logger, cfg.Limits.DeriveCeilingBytes())
	ranges := gallery.NewRangeServer(store, logger, cfg.Limits.MaxSliceSizeBytes())

	return &App{
		cfg:         cfg,
		blob:        store,
		meta:        meta,
		coordinator: coordinator,
		cache:       cache,
		ranges:      ranges,
		logger:      logger,
		logFile:     logFile,
	}, nil
}

// Serve runs the HTTP server until ctx is canceled or a shutdown signal
// arrives.
func (a *App) Serve(ctx context.Context) error {
	handler := server.NewHandler(a.coordinator, a.cache, a.ranges, a.meta, a.logger,
		a.cfg.Limits.MaxSingleUploadBytes())
	router := server.NewRouter(handler, a.logger)

	srv := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  5 * time.Minute, // uploads can be slow
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", "addr", a.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// AbortUpload discards an orphan multipart session. Used by the operator CLI
// to reclaim staged parts whose client never completed or aborted.
func (a *App) AbortUpload(ctx context.Context, sessionID, key string) error {
	return a.coordinator.AbortMultipart(ctx, sessionID, key)
}

// Close releases all resources.
func (a *App) Close() error {
	var firstErr error
	if err := a.meta.Close(); err != nil {
		firstErr = fmt.Errorf("closing metadata store: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
