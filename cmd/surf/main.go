// Package main runs the surf browsing assistant: a Chromium session driven
// by a tool-calling language model, exposed over a local HTTP API for the
// sidepanel UI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/entrhq/surf/pkg/agent"
	"github.com/entrhq/surf/pkg/automation"
	"github.com/entrhq/surf/pkg/browser"
	"github.com/entrhq/surf/pkg/config"
	"github.com/entrhq/surf/pkg/gateway"
	"github.com/entrhq/surf/pkg/logging"
	"github.com/entrhq/surf/pkg/server"
	"github.com/entrhq/surf/pkg/tabcontext"
)

const version = "0.1.0"

// Flags holds the command line configuration.
type Flags struct {
	Addr        string
	ConfigPath  string
	Headed      bool
	ShowVersion bool
}

func main() {
	flags := parseFlags()
	if flags.ShowVersion {
		fmt.Printf("surf v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := run(ctx, flags); err != nil {
		log.Fatalf("surf: %v", err)
	}
}

func parseFlags() *Flags {
	flags := &Flags{}

	flag.StringVar(&flags.Addr, "addr", "127.0.0.1:8747", "HTTP listen address for the sidepanel API")
	flag.StringVar(&flags.ConfigPath, "config", "", "Path to config file (default ~/.surf/config.json)")
	flag.BoolVar(&flags.Headed, "headed", false, "Run the browser with a visible window")
	flag.BoolVar(&flags.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "surf - an LLM browsing assistant\n\n")
		fmt.Fprintf(os.Stderr, "Usage: surf [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  SURF_API_KEY    Model gateway API key (overrides config file)\n")
	}

	flag.Parse()
	return flags
}

// newBrowserHooks keeps the tab-context store and rate windows in sync with
// browser tab lifecycle events.
func newBrowserHooks(tabs *tabcontext.Store, guard *automation.Guard, logger *logging.Logger) browser.Hooks {
	return browser.Hooks{
		OnLoad: func(tab automation.Tab) {
			if !automation.IsInjectableURL(tab.URL()) {
				return
			}
			html, err := tab.Content(context.Background())
			if err != nil {
				if logger != nil {
					logger.Debugf("tab %d content unavailable: %v", tab.ID(), err)
				}
				return
			}
			tabs.Update(tab.ID(), automation.ExtractPageContent(html, tab.URL(), true))
		},
		OnClose: func(tabID int) {
			tabs.Remove(tabID)
			guard.Forget(tabID)
		},
		OnActivate: func(tabID int) {
			tabs.SetActive(tabID)
		},
	}
}

func run(ctx context.Context, flags *Flags) error {
	// A .env file is optional; ignore its absence.
	_ = godotenv.Load()

	logger, err := logging.NewLogger("surf")
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.Infof("starting surf v%s (session %s)", version, logger.SessionID())

	settings, err := config.NewStore(flags.ConfigPath)
	if err != nil {
		return err
	}
	go func() {
		if watchErr := settings.Watch(ctx); watchErr != nil && !errors.Is(watchErr, context.Canceled) {
			logger.Warnf("config watch disabled: %v", watchErr)
		}
	}()

	apiKey := os.Getenv("SURF_API_KEY")
	if apiKey == "" {
		apiKey = settings.Current().Gateway.APIKey
	}
	if apiKey == "" {
		return errors.New("no API key: set SURF_API_KEY or gateway.api_key in the config file")
	}

	gw, err := gateway.NewClient(apiKey,
		gateway.WithBaseURL(settings.Current().Gateway.BaseURL),
		gateway.WithModel(settings.Current().Gateway.Model),
	)
	if err != nil {
		return fmt.Errorf("failed to create gateway client: %w", err)
	}

	tabs := tabcontext.NewStore(nil)
	guard := automation.NewGuard(func() config.Automation {
		return settings.Current().Automation
	}, nil)

	mgr := browser.NewManager(browser.Config{Headless: !flags.Headed}, newBrowserHooks(tabs, guard, logger), logger)
	if err := mgr.Start(); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if stopErr := mgr.Stop(); stopErr != nil {
			logger.Warnf("browser shutdown: %v", stopErr)
		}
	}()

	executor := automation.NewExecutor(mgr, guard, automation.DefaultConfig(), logger)
	assistant := agent.New(gw, executor, tabs, agent.WithLogger(logger))
	api := server.New(assistant, gw, tabs, settings, logger)

	httpServer := &http.Server{
		Addr:              flags.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Infof("listening on http://%s", flags.Addr)
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	select {
	case <-ctx.Done():
		logger.Infof("shutting down")
	case err := <-errChan:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	return nil
}
