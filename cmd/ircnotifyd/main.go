// Command ircnotifyd tails IRC client logs, matches them against
// configured notification rules, and dispatches to notification
// sinks.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hycord/irc-notify/internal/configstore"
	"github.com/hycord/irc-notify/internal/httpapi"
	"github.com/hycord/irc-notify/internal/orchestrator"
	"github.com/hycord/irc-notify/internal/sink"
)

const version = "0.1.0"

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version")
		configDir   = flag.String("config-dir", "", "Config directory (default: ./config)")
		debug       = flag.Bool("debug", false, "Enable debug logging")
		noControlPlane = flag.Bool("no-control-plane", false, "Disable the HTTP control plane regardless of config")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `ircnotifyd v%s

Usage: ircnotifyd [options]

Options:
`, version)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Environment Variables:
  IRCNOTIFY_AUTH_TOKEN        Overrides the auth_token.txt bearer token for the control plane

`)
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("ircnotifyd v%s\n", version)
		return
	}

	log, err := buildLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	dir := *configDir
	if dir == "" {
		dir = "./config"
	}

	store, err := configstore.Open(dir, log)
	if err != nil {
		log.Error("failed to open configstore", zap.Error(err))
		os.Exit(1)
	}

	sinkRegistry := sink.NewRegistry()
	orch := orchestrator.New(log, store, sinkRegistry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := orch.Start(ctx); err != nil {
		log.Error("failed to start orchestrator", zap.Error(err))
		os.Exit(1)
	}
	defer orch.Stop()

	root := store.Root()
	var httpServer *http.Server
	if root.ControlPlane != nil && root.ControlPlane.Enabled && !*noControlPlane {
		authToken, err := configstore.EnsureAuthToken(dir)
		if err != nil {
			log.Error("failed to load control plane auth token", zap.Error(err))
			os.Exit(1)
		}
		if envToken := os.Getenv("IRCNOTIFY_AUTH_TOKEN"); envToken != "" {
			authToken = envToken
		}
		api := httpapi.New(log, store, orch, httpapi.Options{
			AuthToken:      authToken,
			FileOpsEnabled: root.ControlPlane.FileOpsEnabled,
		})
		addr := fmt.Sprintf("%s:%d", root.ControlPlane.Host, root.ControlPlane.Port)
		httpServer = &http.Server{Addr: addr, Handler: api.Router()}
		go func() {
			log.Info("control plane listening", zap.String("addr", addr))
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("control plane stopped unexpectedly", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
