// Package main starts the gophtodo web front end: it wires configuration,
// logging, durable session storage, the API client and the HTML handlers,
// and serves them over HTTP or HTTPS.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/gophtodo/internal/certgen"
	"github.com/atinyakov/gophtodo/internal/client/api"
	"github.com/atinyakov/gophtodo/internal/config"
	"github.com/atinyakov/gophtodo/internal/db"
	"github.com/atinyakov/gophtodo/internal/logger"
	"github.com/atinyakov/gophtodo/internal/metrics"
	"github.com/atinyakov/gophtodo/internal/repository"
	"github.com/atinyakov/gophtodo/internal/server/handler/http"
	"github.com/atinyakov/gophtodo/internal/session"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const (
	cleanupInterval = time.Hour
	shutdownTimeout = 10 * time.Second
)

func main() {
	options := config.Parse()

	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := repository.Open(options)
	if err != nil {
		zapLogger.Fatal("cannot open storage", zap.String("storage", options.Storage), zap.Error(err))
	}
	defer func() { _ = backend.Close() }()

	db.StartStorageCleaner(ctx, backend.Purger, cleanupInterval, options.Retention, zapLogger)

	m := metrics.New()

	apiOpts := []api.Option{api.WithLogger(zapLogger), api.WithRecorder(m)}
	tlsFiles := api.TLSFiles{CAFile: options.APICAFile, CertFile: options.APICertFile, KeyFile: options.APIKeyFile}
	if !tlsFiles.Empty() {
		hc, err := api.NewTLSHTTPClient(tlsFiles)
		if err != nil {
			zapLogger.Fatal("failed to configure API TLS", zap.Error(err))
		}
		apiOpts = append(apiOpts, api.WithHTTPClient(hc))
	}
	apiClient := api.New(options.APIBaseURL, apiOpts...)

	sessions := session.NewManager(apiClient, backend.Storage, zapLogger)
	clients := http.NewClients(sessions, apiClient, zapLogger)
	clients.StartEvictor(ctx, cleanupInterval, options.Retention)

	certFile, keyFile := options.TLSCert, options.TLSKey
	if !options.TLSEnabled() && options.DevTLS {
		files, created, err := certgen.EnsureDevCertificates(options.CertDir, devHosts(options.Port))
		if err != nil {
			zapLogger.Fatal("failed to prepare development certificate", zap.Error(err))
		}
		if created {
			zapLogger.Info("generated development certificate", zap.String("ca", files.CACert))
		}
		certFile, keyFile = files.ServerCert, files.ServerKey
	}
	useTLS := certFile != "" && keyFile != ""

	handler, err := http.NewHandler(clients, options.CookieSecure || useTLS, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to build handlers", zap.Error(err))
	}
	router := http.NewRouter(handler, m, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	zapLogger.Info("starting web server",
		zap.String("addr", options.Port),
		zap.String("api", options.APIBaseURL),
		zap.String("storage", options.Storage),
		zap.Bool("tls", useTLS),
	)
	if useTLS {
		err = server.ListenAndServeTLS(certFile, keyFile)
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}

// devHosts lists the names a development certificate is issued for.
func devHosts(addr string) []string {
	hosts := []string{"localhost", "127.0.0.1", "::1"}
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" && host != "localhost" {
		hosts = append(hosts, host)
	}
	return hosts
}
