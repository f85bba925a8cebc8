package main

import (
	"errors"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/funnyzak/reqstash/internal/config"
	"github.com/funnyzak/reqstash/internal/dispatcher"
	"github.com/funnyzak/reqstash/internal/history"
	"github.com/funnyzak/reqstash/internal/logger"
	"github.com/funnyzak/reqstash/internal/store"
)

// app holds what every command needs after configuration is loaded.
type app struct {
	cfg   *config.Config
	log   logger.Logger
	store *store.Store
}

// loadApp reads configuration, applies command line overrides and builds the
// logger and record store.
func loadApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.LoadConfig(configPath, viper.GetViper())
	if err != nil {
		return nil, &configError{err: err}
	}

	// Command line has highest priority
	if logLevel, err := cmd.Flags().GetString("log-level"); err == nil && logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if mode, err := cmd.Flags().GetString("output"); err == nil && mode != "" {
		cfg.Output.Mode = mode
	}
	if root, err := cmd.Flags().GetString("root"); err == nil && root != "" {
		cfg.Storage.Root = root
	}
	if include, err := cmd.Flags().GetBool("include"); err == nil && cmd.Flags().Changed("include") {
		cfg.Output.IncludeHeaders = include
	}
	if insecure, err := cmd.Flags().GetBool("insecure"); err == nil && cmd.Flags().Changed("insecure") {
		cfg.Dispatch.TLSInsecureSkipVerify = insecure
	}

	if err := cfg.Validate(); err != nil {
		return nil, &configError{err: err}
	}

	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor || cfg.Output.Mode == "json" {
		color.NoColor = true
		text.DisableColors()
	}

	log := logger.NewLogger(&cfg.Log, cfg.Output.Mode)
	if used := config.ConfigFileUsed(viper.GetViper()); used != "" {
		log.Debug("Configuration loaded", "file", used)
	}

	return &app{
		cfg:   cfg,
		log:   log,
		store: store.New(cfg.Storage.Root, log),
	}, nil
}

func (a *app) newDispatcher() *dispatcher.Dispatcher {
	return dispatcher.New(a.log, dispatcher.Options{
		DefaultTimeout:        time.Duration(a.cfg.Dispatch.Timeout) * time.Second,
		TLSInsecureSkipVerify: a.cfg.Dispatch.TLSInsecureSkipVerify,
		MaxRedirects:          a.cfg.Dispatch.MaxRedirects,
		UserAgent:             a.cfg.Dispatch.UserAgent,
	})
}

// openHistory returns nil when history is disabled or cannot be opened.
func (a *app) openHistory() history.Store {
	hist, err := history.New(&a.cfg.History, a.log)
	if err != nil {
		if !errors.Is(err, history.ErrDisabled) {
			a.log.Warn("History log unavailable", "path", a.cfg.History.Path, "error", err)
		}
		return nil
	}
	return hist
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
