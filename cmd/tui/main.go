// Package main starts the gophtodo terminal front end.
package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/atinyakov/gophtodo/internal/client/api"
	"github.com/atinyakov/gophtodo/internal/config"
	"github.com/atinyakov/gophtodo/internal/logger"
	"github.com/atinyakov/gophtodo/internal/repository"
	"github.com/atinyakov/gophtodo/internal/session"
	"github.com/atinyakov/gophtodo/internal/tui"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "-version" {
		fmt.Printf("gophtodo terminal client\nVersion: %s\nBuild Date: %s\n", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
		return
	}

	options, err := config.ParseArgs(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	// Without a browser nothing else keeps the session between runs.
	if options.Storage == config.StorageMemory {
		options.Storage = config.StorageFile
	}

	log := logger.New()
	if err := log.InitWithPaths(options.LogLevel, []string{options.LogFile}); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Log.Sync() }()
	zapLogger := log.Log

	if err := run(options, zapLogger); err != nil {
		zapLogger.Error("terminal client stopped", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(options *config.Options, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	backend, err := repository.Open(options)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() { _ = backend.Close() }()

	apiOpts := []api.Option{api.WithLogger(log)}
	tlsFiles := api.TLSFiles{CAFile: options.APICAFile, CertFile: options.APICertFile, KeyFile: options.APIKeyFile}
	if !tlsFiles.Empty() {
		hc, err := api.NewTLSHTTPClient(tlsFiles)
		if err != nil {
			return err
		}
		apiOpts = append(apiOpts, api.WithHTTPClient(hc))
	}
	client := api.New(options.APIBaseURL, apiOpts...)

	store := session.New(client, backend.Storage, tui.Namespace, log)
	if err := store.Load(ctx); err != nil {
		log.Warn("stored session discarded", zap.Error(err))
	}
	jar := tui.NewStorageJar(backend.Storage, log)

	log.Info("starting terminal client", zap.String("api", options.APIBaseURL), zap.String("storage", options.Storage))
	_, err = tea.NewProgram(tui.New(ctx, store, jar, client, log), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
