package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AaronLay10/StoryLoom/internal/app"
	"github.com/AaronLay10/StoryLoom/internal/config"
	"github.com/AaronLay10/StoryLoom/internal/events"
	"github.com/AaronLay10/StoryLoom/internal/fixture"
	"github.com/AaronLay10/StoryLoom/internal/logging"
	"github.com/AaronLay10/StoryLoom/internal/story"
	"github.com/AaronLay10/StoryLoom/internal/version"
)

var (
	brand  = color.New(color.FgHiGreen, color.Bold)
	subtle = color.New(color.FgHiBlack)
	bad    = color.New(color.FgRed)
)

var configPath string

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storyloom",
		Short: "StoryLoom plays branching stories and shows where you are in them",
		Long: brand.Sprint("storyloom") + " compiles a branching story, plays it and tracks the path through its graph\n" +
			subtle.Sprint("Serve the browser playground, play in the terminal, or print the story graph"),
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("storyloom {{ .Version }}\n")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to storyloom.yaml")

	cmd.AddCommand(
		serveCmd(),
		playCmd(),
		graphCmd(),
		examplesCmd(),
		versionCmd(),
	)
	return cmd
}

// loadConfig reads the config file and builds the process logger. Every
// emitted event is mirrored to the logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		bad.Printf("storyloom: %v\n", err)
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, nil, err
	}
	events.SetLogger(logger)
	return cfg, logger, nil
}

// openSession loads the engine and compiles the configured story.
func openSession(ctx context.Context, cfg *config.Config, opts app.Options) (*app.Session, error) {
	sess := app.New(opts)

	loadCtx, cancel := context.WithTimeout(ctx, cfg.Engine.LoadTimeout)
	defer cancel()
	err := sess.Open(loadCtx, func(ctx context.Context) (story.Runtime, error) {
		return fixture.NewRuntime(), nil
	})
	if err != nil {
		return sess, fmt.Errorf("load story engine: %w", err)
	}

	src, err := fixture.Source(cfg.Engine.Story)
	if err != nil {
		return sess, err
	}
	if _, err := sess.Compile(src); err != nil {
		return sess, err
	}
	return sess, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func examplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "List the built-in example stories",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range fixture.Examples() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", brand.Sprint(name))
			}
		},
	}
}
