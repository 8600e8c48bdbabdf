package main

import (
	"fmt"
	"log/slog"

	"github.com/opensdd/youtrack-core/core/config"
	"github.com/opensdd/youtrack-core/core/resolver"
	"github.com/opensdd/youtrack-core/core/transport"
	"github.com/spf13/cobra"
)

// app holds the state shared by all commands of one invocation.
type app struct {
	configPath string
	url        string
	verbose    bool

	// newTransport builds the tracker connection from the loaded config.
	newTransport func(cfg *config.Config) transport.Transport

	cfg *config.Config
	eng *resolver.Engine
}

func newApp() *app {
	return &app{
		newTransport: func(cfg *config.Config) transport.Transport { return cfg.Client() },
	}
}

func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFiles(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if a.url != "" {
		cfg.URL = a.url
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg
	return cfg, nil
}

// engine returns the session engine, creating it on first use.
func (a *app) engine() (*resolver.Engine, error) {
	if a.eng != nil {
		return a.eng, nil
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	slog.Debug("Connecting", "url", cfg.URL, "user", cfg.Username)
	a.eng = resolver.New(a.newTransport(cfg), resolver.WithTrackingDisabled(cfg.TrackingDisabled))
	return a.eng, nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "youtrack",
		Short: "Query and update a YouTrack server",
		Long: `youtrack fetches issues together with their parent and subtask hierarchy,
exports them as YAML and applies commands or logged work.

Connection settings are read from ~/.config/youtrack/config.yaml, then
./.youtrack.yaml, then YOUTRACK_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if a.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file to use instead of the default locations")
	root.PersistentFlags().StringVar(&a.url, "url", "", "Server URL, overrides the config")

	root.AddCommand(
		newIssueCmd(a),
		newSearchCmd(a),
		newExportCmd(a),
		newExecCmd(a),
		newTrackCmd(a),
		newUserCmd(a),
		newRefsCmd(a),
	)
	return root
}
